package usecase

import (
	"context"
	"math/big"

	"github.com/pulsedex-labs/pqs/domain"
)

// simulateFunc prices one candidate for one input amount; nil rejects it.
type simulateFunc func(ctx context.Context, candidate domain.RouteCandidate, amountIn *big.Int) *domain.SimulatedRoute

// routeMemo caches simulations of a single candidate keyed by input amount,
// so equal partitions across weight pairs are priced once.
type routeMemo struct {
	candidate domain.RouteCandidate
	simulate  simulateFunc
	results   map[string]*domain.SimulatedRoute
}

func newRouteMemo(candidate domain.RouteCandidate, simulate simulateFunc) *routeMemo {
	return &routeMemo{
		candidate: candidate,
		simulate:  simulate,
		results:   make(map[string]*domain.SimulatedRoute),
	}
}

func (m *routeMemo) at(ctx context.Context, amountIn *big.Int) *domain.SimulatedRoute {
	key := amountIn.String()
	if cached, found := m.results[key]; found {
		return cached
	}
	result := m.simulate(ctx, m.candidate, amountIn)
	m.results[key] = result
	return result
}

// findBestSplit searches pairwise splits of amountIn across the ranked routes
// and returns the winning parts, or nil when no split beats the best single
// route by at least minImprovementBps.
func findBestSplit(
	ctx context.Context,
	ranked []*domain.SimulatedRoute,
	amountIn *big.Int,
	cfg domain.SplitConfig,
	simulate simulateFunc,
) []domain.SplitPart {
	if len(ranked) < 2 || len(cfg.WeightsBps) == 0 {
		return nil
	}

	routes := ranked
	if cfg.MaxRoutes > 0 && len(routes) > cfg.MaxRoutes {
		routes = routes[:cfg.MaxRoutes]
	}

	memos := make([]*routeMemo, len(routes))
	for i, route := range routes {
		memos[i] = newRouteMemo(route.Candidate, simulate)
	}

	bestSingle := ranked[0].AmountOut

	var bestTotal *big.Int
	var bestParts []domain.SplitPart
	bps := big.NewInt(domain.BpsDenominator)

	for i := 0; i < len(routes); i++ {
		for j := i + 1; j < len(routes); j++ {
			for _, weight := range cfg.WeightsBps {
				if weight <= 0 || weight >= domain.BpsDenominator {
					continue
				}

				inA := new(big.Int).Mul(amountIn, big.NewInt(weight))
				inA.Quo(inA, bps)
				inB := new(big.Int).Sub(amountIn, inA)
				if inA.Sign() <= 0 || inB.Sign() <= 0 {
					continue
				}

				outA := memos[i].at(ctx, inA)
				outB := memos[j].at(ctx, inB)
				if outA == nil || outB == nil {
					continue
				}

				total := new(big.Int).Add(outA.AmountOut, outB.AmountOut)
				if bestTotal != nil && total.Cmp(bestTotal) <= 0 {
					continue
				}

				bestTotal = total
				bestParts = []domain.SplitPart{
					{Route: *outA, AmountIn: inA, ShareBps: weight},
					{Route: *outB, AmountIn: inB, ShareBps: domain.BpsDenominator - weight},
				}
			}
		}
	}

	if bestTotal == nil || bestTotal.Cmp(bestSingle) <= 0 {
		return nil
	}

	// improvementBps = (total - single) * 10000 / single
	improvement := new(big.Int).Sub(bestTotal, bestSingle)
	improvement.Mul(improvement, bps)
	improvement.Quo(improvement, bestSingle)
	if improvement.Cmp(big.NewInt(cfg.MinImprovementBps)) < 0 {
		return nil
	}

	return bestParts
}

// splitTotal sums the outputs of the accepted split parts.
func splitTotal(parts []domain.SplitPart) *big.Int {
	total := new(big.Int)
	for _, part := range parts {
		total.Add(total, part.Route.AmountOut)
	}
	return total
}
