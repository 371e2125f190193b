package usecase

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulsedex-labs/pqs/domain"
)

// maxStableConnectorRouteOptions caps the CPMM expansions attached to each
// stable pivot side.
const maxStableConnectorRouteOptions = 4

// cpmmVenues are the leg options every adjacent token pair gets.
var cpmmVenues = []domain.Venue{domain.VenueCPMMV1, domain.VenueCPMMV2}

// Enumerator generates deduplicated route candidates between two tokens over
// the configured connector set.
type Enumerator struct {
	connectors []common.Address
	stables    map[string]struct{}
	cfg        domain.RoutingConfig
}

// NewEnumerator creates a route enumerator. Connector order is preserved and
// drives the deterministic candidate order.
func NewEnumerator(connectors, stables []common.Address, cfg domain.RoutingConfig) *Enumerator {
	stableSet := make(map[string]struct{}, len(stables))
	for _, stable := range stables {
		stableSet[domain.AddrKey(stable)] = struct{}{}
	}
	return &Enumerator{
		connectors: connectors,
		stables:    stableSet,
		cfg:        cfg,
	}
}

// IsStable reports whether the token is in the configured stable set.
func (e *Enumerator) IsStable(token common.Address) bool {
	_, ok := e.stables[domain.AddrKey(token)]
	return ok
}

// Candidates enumerates every route candidate from tokenIn to tokenOut,
// deduplicated by id. stableIndex is the stable pool coin map; nil or empty
// disables stable legs regardless of configuration.
func (e *Enumerator) Candidates(tokenIn, tokenOut common.Address, stableIndex map[string]uint8) []domain.RouteCandidate {
	if tokenIn == tokenOut {
		return nil
	}

	stableLegsOK := e.cfg.StableRoutingEnabled && len(stableIndex) > 0

	var candidates []domain.RouteCandidate
	seen := make(map[string]struct{})
	add := func(candidate domain.RouteCandidate) {
		id := candidate.ID()
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		candidates = append(candidates, candidate)
	}

	for _, path := range e.nodePaths(tokenIn, tokenOut) {
		for _, candidate := range e.expand(path, stableLegsOK, stableIndex) {
			add(candidate)
		}
	}

	if stableLegsOK {
		for _, candidate := range e.stablePivotCandidates(tokenIn, tokenOut, stableIndex) {
			add(candidate)
		}
	}

	return candidates
}

// nodePaths produces every token sequence tokenIn, c1, ..., ck, tokenOut with
// k up to maxConnectorHops, no repeated tokens, via DFS over the connector
// set minus the endpoints.
func (e *Enumerator) nodePaths(tokenIn, tokenOut common.Address) [][]common.Address {
	pool := make([]common.Address, 0, len(e.connectors))
	for _, connector := range e.connectors {
		if connector == tokenIn || connector == tokenOut {
			continue
		}
		pool = append(pool, connector)
	}

	var paths [][]common.Address
	seenPaths := make(map[string]struct{})
	used := make(map[string]struct{}, len(pool)+1)
	used[domain.AddrKey(tokenIn)] = struct{}{}

	var emit func(prefix []common.Address)
	emit = func(prefix []common.Address) {
		path := make([]common.Address, 0, len(prefix)+1)
		path = append(path, prefix...)
		path = append(path, tokenOut)

		key := pathKey(path)
		if _, dup := seenPaths[key]; !dup {
			seenPaths[key] = struct{}{}
			paths = append(paths, path)
		}
	}

	var dfs func(prefix []common.Address, hops int)
	dfs = func(prefix []common.Address, hops int) {
		emit(prefix)
		if hops >= e.cfg.MaxConnectorHops {
			return
		}
		for _, connector := range pool {
			key := domain.AddrKey(connector)
			if _, taken := used[key]; taken {
				continue
			}
			used[key] = struct{}{}
			dfs(append(prefix, connector), hops+1)
			delete(used, key)
		}
	}
	dfs([]common.Address{tokenIn}, 0)

	return paths
}

func pathKey(path []common.Address) string {
	keys := make([]string, len(path))
	for i, token := range path {
		keys[i] = domain.AddrKey(token)
	}
	return strings.Join(keys, ">")
}

// expand builds the Cartesian product of per-hop leg options for one node path.
func (e *Enumerator) expand(path []common.Address, stableLegsOK bool, stableIndex map[string]uint8) []domain.RouteCandidate {
	options := make([][]domain.RouteLeg, 0, len(path)-1)
	for hop := 0; hop+1 < len(path); hop++ {
		options = append(options, e.legOptions(path[hop], path[hop+1], stableLegsOK, stableIndex))
	}

	legSets := [][]domain.RouteLeg{{}}
	for _, hopOptions := range options {
		next := make([][]domain.RouteLeg, 0, len(legSets)*len(hopOptions))
		for _, prefix := range legSets {
			for _, leg := range hopOptions {
				legs := make([]domain.RouteLeg, 0, len(prefix)+1)
				legs = append(legs, prefix...)
				legs = append(legs, leg)
				next = append(next, legs)
			}
		}
		legSets = next
	}

	candidates := make([]domain.RouteCandidate, 0, len(legSets))
	for _, legs := range legSets {
		candidates = append(candidates, domain.RouteCandidate{Legs: legs, Path: path})
	}
	return candidates
}

func (e *Enumerator) legOptions(tokenA, tokenB common.Address, stableLegsOK bool, stableIndex map[string]uint8) []domain.RouteLeg {
	options := make([]domain.RouteLeg, 0, len(cpmmVenues)+1)
	for _, venue := range cpmmVenues {
		options = append(options, domain.RouteLeg{Venue: venue, TokenIn: tokenA, TokenOut: tokenB})
	}
	if stableLegsOK && e.IsStable(tokenA) && e.IsStable(tokenB) {
		options = append(options, e.stableLeg(tokenA, tokenB, stableIndex))
	}
	return options
}

func (e *Enumerator) stableLeg(tokenA, tokenB common.Address, stableIndex map[string]uint8) domain.RouteLeg {
	leg := domain.RouteLeg{Venue: domain.VenueStable, TokenIn: tokenA, TokenOut: tokenB}
	i, okA := stableIndex[domain.AddrKey(tokenA)]
	j, okB := stableIndex[domain.AddrKey(tokenB)]
	if okA && okB {
		leg.LegData = domain.StableLegData(i, j)
	}
	return leg
}

// stablePivotCandidates builds candidates that enter or leave the stable pool
// through a pivot stable token when exactly one endpoint is stable, plus the
// single-leg stable candidate when both endpoints are.
func (e *Enumerator) stablePivotCandidates(tokenIn, tokenOut common.Address, stableIndex map[string]uint8) []domain.RouteCandidate {
	inStable := e.IsStable(tokenIn)
	outStable := e.IsStable(tokenOut)

	if inStable && outStable {
		return []domain.RouteCandidate{{
			Legs: []domain.RouteLeg{e.stableLeg(tokenIn, tokenOut, stableIndex)},
			Path: []common.Address{tokenIn, tokenOut},
		}}
	}
	if inStable == outStable || !e.cfg.StableAsConnector {
		return nil
	}

	pivots := e.pivotTokens(tokenIn, tokenOut, stableIndex)
	var candidates []domain.RouteCandidate
	for _, pivot := range pivots {
		if inStable {
			head := e.stableLeg(tokenIn, pivot, stableIndex)
			for _, tail := range e.cappedExpansions(pivot, tokenOut) {
				legs := append([]domain.RouteLeg{head}, tail.Legs...)
				path := append([]common.Address{tokenIn}, tail.Path...)
				candidates = append(candidates, domain.RouteCandidate{Legs: legs, Path: path})
			}
			continue
		}

		tail := e.stableLeg(pivot, tokenOut, stableIndex)
		for _, head := range e.cappedExpansions(tokenIn, pivot) {
			legs := append(append([]domain.RouteLeg{}, head.Legs...), tail)
			path := append(append([]common.Address{}, head.Path...), tokenOut)
			candidates = append(candidates, domain.RouteCandidate{Legs: legs, Path: path})
		}
	}
	return candidates
}

// pivotTokens returns the stable tokens usable as pivots, in connector order,
// capped at maxStablePivots.
func (e *Enumerator) pivotTokens(tokenIn, tokenOut common.Address, stableIndex map[string]uint8) []common.Address {
	var pivots []common.Address
	for _, connector := range e.connectors {
		if connector == tokenIn || connector == tokenOut {
			continue
		}
		key := domain.AddrKey(connector)
		if _, stable := e.stables[key]; !stable {
			continue
		}
		if _, indexed := stableIndex[key]; !indexed {
			continue
		}
		pivots = append(pivots, connector)
		if e.cfg.MaxStablePivots > 0 && len(pivots) >= e.cfg.MaxStablePivots {
			break
		}
	}
	return pivots
}

// cappedExpansions enumerates CPMM-only candidates between two tokens, capped
// at maxStableConnectorRouteOptions.
func (e *Enumerator) cappedExpansions(from, to common.Address) []domain.RouteCandidate {
	var expansions []domain.RouteCandidate
	for _, path := range e.nodePaths(from, to) {
		for _, candidate := range e.expand(path, false, nil) {
			expansions = append(expansions, candidate)
			if len(expansions) >= maxStableConnectorRouteOptions {
				return expansions
			}
		}
	}
	return expansions
}
