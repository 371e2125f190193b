package usecase

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/domain/workerpool"
	"github.com/pulsedex-labs/pqs/log"
)

// minRouteTimeout floors the shrinking per-route budget.
const minRouteTimeout = 200 * time.Millisecond

// Pre-score weights. Cheap static preferences applied before any chain read
// to decide which candidates are worth simulating.
const (
	preScoreBase         = 1000
	preScorePerHop       = -50
	preScorePerV1Leg     = -25
	preScorePerStableLeg = 10
	preScorePerCachedLeg = 5
)

type routerUsecase struct {
	enumerator *Enumerator
	simulator  *Simulator
	reserves   mvc.ReservesUsecase
	stable     mvc.StableUsecase
	pricing    mvc.PricingSource
	tokens     mvc.TokensUsecase
	fees       mvc.FeeSource
	// periphery is the on-chain router quoter of last resort; nil disables it.
	periphery mvc.PeripheryUsecase

	routing domain.RoutingConfig
	quote   domain.QuoteConfig
	split   domain.SplitConfig
	gas     domain.GasConfig

	// router is the address executing the returned route.
	router common.Address
	// connectors in preference order; used for the pre-score bonus.
	connectors []common.Address
	// coreConnectors are the pivots allowed in the direct fallback.
	coreConnectors []common.Address

	logger log.Logger
}

var _ mvc.RouterUsecase = &routerUsecase{}

// NewRouterUsecase wires the quote orchestrator.
func NewRouterUsecase(
	enumerator *Enumerator,
	simulator *Simulator,
	reserves mvc.ReservesUsecase,
	stable mvc.StableUsecase,
	pricing mvc.PricingSource,
	tokens mvc.TokensUsecase,
	fees mvc.FeeSource,
	periphery mvc.PeripheryUsecase,
	cfg *domain.Config,
	router common.Address,
	connectors, coreConnectors []common.Address,
	logger log.Logger,
) mvc.RouterUsecase {
	return &routerUsecase{
		enumerator:     enumerator,
		simulator:      simulator,
		reserves:       reserves,
		stable:         stable,
		pricing:        pricing,
		tokens:         tokens,
		fees:           fees,
		periphery:      periphery,
		routing:        cfg.Routing,
		quote:          cfg.Quote,
		split:          cfg.Split,
		gas:            cfg.Gas,
		router:         router,
		connectors:     connectors,
		coreConnectors: coreConnectors,
		logger:         logger,
	}
}

// GetQuote computes the optimal exact-in quote for the request.
func (r *routerUsecase) GetQuote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResult, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, domain.ErrAmountNonPositive
	}

	quoteCtx, cancel := context.WithTimeout(ctx, r.quote.TotalTimeout())
	defer cancel()
	deadline, _ := quoteCtx.Deadline()

	stableIndex := r.loadStableIndex(quoteCtx)

	candidates := r.enumerator.Candidates(req.TokenIn, req.TokenOut, stableIndex)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrNoCandidates, req.TokenIn.Hex(), req.TokenOut.Hex())
	}
	hasStableCandidates := false
	for _, candidate := range candidates {
		if candidate.HasStableLeg() {
			hasStableCandidates = true
			break
		}
	}

	selected := r.selectCandidates(candidates, hasStableCandidates)

	r.prewarm(quoteCtx, selected, deadline)

	simulated := r.evaluate(quoteCtx, selected, req.AmountIn, deadline)
	if len(simulated) == 0 {
		simulated = r.directFallback(quoteCtx, req.TokenIn, req.TokenOut, req.AmountIn)
	}
	if len(simulated) == 0 {
		if quoteCtx.Err() != nil {
			return nil, domain.ErrQuoteTimeout
		}
		return nil, domain.ErrNoValidRoutes
	}

	bothStable := r.enumerator.IsStable(req.TokenIn) && r.enumerator.IsStable(req.TokenOut)
	ranked := rankRoutes(simulated, bothStable)
	best := ranked[0]

	result := &domain.QuoteResult{
		Request:        req,
		TotalAmountOut: best.AmountOut,
		Router:         r.router,
		Single:         best,
	}

	if parts := r.trySplit(quoteCtx, ranked, req); parts != nil {
		result.Single = nil
		result.Splits = parts
		result.TotalAmountOut = splitTotal(parts)
	}

	result.Gas = estimateGas(quoteCtx, result.LegCount(), r.gas, r.fees, r.pricing)

	return result, nil
}

// loadStableIndex returns the stable coin index map, best effort: a load
// failure disables stable candidates for this quote instead of failing it.
func (r *routerUsecase) loadStableIndex(ctx context.Context) map[string]uint8 {
	if !r.routing.StableRoutingEnabled {
		return nil
	}
	indexMap, err := r.stable.LoadIndexMap(ctx)
	if err != nil {
		r.logger.Warn("stable index unavailable, quoting without stable routes", zap.Error(err))
		return nil
	}
	return indexMap
}

// preScore ranks candidates before simulation using static route shape plus
// the current cache state.
func (r *routerUsecase) preScore(candidate domain.RouteCandidate) int {
	score := preScoreBase
	score += preScorePerHop * (len(candidate.Path) - 2)

	for _, leg := range candidate.Legs {
		switch leg.Venue {
		case domain.VenueCPMMV1:
			score += preScorePerV1Leg
		case domain.VenueStable:
			score += preScorePerStableLeg
		}
		if leg.Venue.IsCPMM() && r.reserves.IsCached(leg.Venue, leg.TokenIn, leg.TokenOut) {
			score += preScorePerCachedLeg
		}
	}

	// Preferred connectors earn a bonus proportional to their configured rank.
	for _, token := range candidate.Path[1 : len(candidate.Path)-1] {
		for rank, connector := range r.connectors {
			if connector == token {
				score += len(r.connectors) - rank
				break
			}
		}
	}
	return score
}

// selectCandidates sorts candidates by pre-score and truncates to maxRoutes,
// keeping at least one stable candidate when any exists.
func (r *routerUsecase) selectCandidates(candidates []domain.RouteCandidate, hasStableCandidates bool) []domain.RouteCandidate {
	type scored struct {
		candidate domain.RouteCandidate
		score     int
		id        string
	}
	scoredCandidates := make([]scored, len(candidates))
	for i, candidate := range candidates {
		scoredCandidates[i] = scored{candidate: candidate, score: r.preScore(candidate), id: candidate.ID()}
	}
	sort.Slice(scoredCandidates, func(a, b int) bool {
		if scoredCandidates[a].score != scoredCandidates[b].score {
			return scoredCandidates[a].score > scoredCandidates[b].score
		}
		return scoredCandidates[a].id < scoredCandidates[b].id
	})

	limit := r.quote.MaxRoutes
	if limit <= 0 || limit > len(scoredCandidates) {
		limit = len(scoredCandidates)
	}

	selected := make([]domain.RouteCandidate, 0, limit)
	stableKept := false
	for _, entry := range scoredCandidates[:limit] {
		if entry.candidate.HasStableLeg() {
			stableKept = true
		}
		selected = append(selected, entry.candidate)
	}

	if hasStableCandidates && !stableKept {
		for _, entry := range scoredCandidates[limit:] {
			if entry.candidate.HasStableLeg() {
				selected[len(selected)-1] = entry.candidate
				break
			}
		}
	}
	return selected
}

func (r *routerUsecase) prewarm(ctx context.Context, candidates []domain.RouteCandidate, deadline time.Time) {
	var legs []domain.RouteLeg
	for _, candidate := range candidates {
		legs = append(legs, candidate.Legs...)
	}
	r.reserves.Prewarm(ctx, legs, deadline)
}

// evaluate simulates the selected candidates with bounded concurrency and a
// per-route timeout that shrinks as the total budget drains.
func (r *routerUsecase) evaluate(ctx context.Context, candidates []domain.RouteCandidate, amountIn *big.Int, deadline time.Time) []*domain.SimulatedRoute {
	jobs := make([]workerpool.Job[*domain.SimulatedRoute], len(candidates))
	for i, candidate := range candidates {
		candidate := candidate
		jobs[i] = workerpool.Job[*domain.SimulatedRoute]{
			ID: candidate.ID(),
			Task: func() (*domain.SimulatedRoute, error) {
				remaining := time.Until(deadline)
				if remaining < minRouteTimeout {
					return nil, nil
				}
				timeout := remaining / 2
				if timeout < minRouteTimeout {
					timeout = minRouteTimeout
				}
				if base := r.quote.Timeout(); timeout > base {
					timeout = base
				}

				routeCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return r.simulator.SimulateRoute(routeCtx, candidate, amountIn), nil
			},
		}
	}

	concurrency := r.quote.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var simulated []*domain.SimulatedRoute
	for _, result := range workerpool.Process(jobs, concurrency) {
		if result.Err != nil || result.Result == nil {
			continue
		}
		simulated = append(simulated, result.Result)
	}
	return simulated
}

// directFallback retries with the simplest possible candidates when the full
// evaluation produced nothing: the direct pair on each CPMM venue, then one
// hop through a core connector. First success wins.
func (r *routerUsecase) directFallback(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) []*domain.SimulatedRoute {
	var candidates []domain.RouteCandidate
	for _, venue := range cpmmVenues {
		candidates = append(candidates, domain.RouteCandidate{
			Legs: []domain.RouteLeg{{Venue: venue, TokenIn: tokenIn, TokenOut: tokenOut}},
			Path: []common.Address{tokenIn, tokenOut},
		})
	}
	for _, connector := range r.coreConnectors {
		if connector == tokenIn || connector == tokenOut {
			continue
		}
		for _, venue := range cpmmVenues {
			candidates = append(candidates, domain.RouteCandidate{
				Legs: []domain.RouteLeg{
					{Venue: venue, TokenIn: tokenIn, TokenOut: connector},
					{Venue: venue, TokenIn: connector, TokenOut: tokenOut},
				},
				Path: []common.Address{tokenIn, connector, tokenOut},
			})
		}
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return nil
		}
		if route := r.simulator.SimulateRoute(ctx, candidate, amountIn); route != nil {
			r.logger.Info("direct fallback route found", zap.String("route", candidate.ID()))
			return []*domain.SimulatedRoute{route}
		}
	}

	return r.peripheryFallback(ctx, tokenIn, tokenOut, amountIn)
}

// peripheryFallback asks the on-chain periphery router to quote the path when
// even the simplified local candidates produced nothing. The router resolves
// pairs itself, so the returned legs carry no pool address.
func (r *routerUsecase) peripheryFallback(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) []*domain.SimulatedRoute {
	if r.periphery == nil {
		return nil
	}

	paths := [][]common.Address{{tokenIn, tokenOut}}
	for _, connector := range r.coreConnectors {
		if connector == tokenIn || connector == tokenOut {
			continue
		}
		paths = append(paths, []common.Address{tokenIn, connector, tokenOut})
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			return nil
		}
		out, err := r.periphery.GetAmountsOut(ctx, amountIn, path)
		if err != nil || out == nil || out.Sign() <= 0 {
			continue
		}

		legs := make([]domain.RouteLeg, 0, len(path)-1)
		for hop := 0; hop+1 < len(path); hop++ {
			legs = append(legs, domain.RouteLeg{
				Venue:    domain.VenueCPMMV2,
				TokenIn:  path[hop],
				TokenOut: path[hop+1],
			})
		}
		candidate := domain.RouteCandidate{Legs: legs, Path: path}
		r.logger.Info("periphery fallback route found", zap.String("route", candidate.ID()))
		return []*domain.SimulatedRoute{{Candidate: candidate, AmountOut: out, Legs: legs}}
	}
	return nil
}

// trySplit runs the pairwise split search when enabled and the input notional
// clears the configured USD floor.
func (r *routerUsecase) trySplit(ctx context.Context, ranked []*domain.SimulatedRoute, req domain.QuoteRequest) []domain.SplitPart {
	if !r.split.Enabled || len(ranked) < 2 {
		return nil
	}
	if r.split.MinUSDValue > 0 && !r.notionalAboveFloor(ctx, req) {
		return nil
	}

	return findBestSplit(ctx, ranked, req.AmountIn, r.split,
		func(ctx context.Context, candidate domain.RouteCandidate, amountIn *big.Int) *domain.SimulatedRoute {
			return r.simulator.SimulateRoute(ctx, candidate, amountIn)
		})
}

// notionalAboveFloor prices the input amount in USD. Unpriceable inputs skip
// the split search rather than failing the quote.
func (r *routerUsecase) notionalAboveFloor(ctx context.Context, req domain.QuoteRequest) bool {
	price, err := r.pricing.TokenPriceUSD(ctx, req.TokenIn)
	if err != nil {
		return false
	}
	decimals, err := r.tokens.GetDecimals(ctx, req.TokenIn)
	if err != nil {
		return false
	}

	amount, _ := new(big.Float).SetInt(req.AmountIn).Float64()
	notional := amount * math.Pow10(-int(decimals)) * price
	return notional >= r.split.MinUSDValue
}
