package usecase

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/pulsedex-labs/pqs/domain"
)

func splitCandidate(venue domain.Venue) domain.RouteCandidate {
	return domain.RouteCandidate{
		Legs: []domain.RouteLeg{{Venue: venue, TokenIn: rankUSDC, TokenOut: rankUSDT}},
		Path: []common.Address{rankUSDC, rankUSDT},
	}
}

func splitConfig() domain.SplitConfig {
	weights := make([]int64, 0, 9)
	for w := int64(1_000); w <= 9_000; w += 1_000 {
		weights = append(weights, w)
	}
	return domain.SplitConfig{
		Enabled:           true,
		WeightsBps:        weights,
		MaxRoutes:         3,
		MinImprovementBps: 0,
	}
}

// tableSimulator prices routes from per-candidate amount tables. Amounts not
// listed fall back to identity.
type tableSimulator struct {
	outputs map[string]map[string]int64
	calls   int
}

func (s *tableSimulator) simulate(ctx context.Context, candidate domain.RouteCandidate, amountIn *big.Int) *domain.SimulatedRoute {
	s.calls++
	out := new(big.Int).Set(amountIn)
	if table, ok := s.outputs[candidate.ID()]; ok {
		if fixed, ok := table[amountIn.String()]; ok {
			out = big.NewInt(fixed)
		}
	}
	return &domain.SimulatedRoute{Candidate: candidate, AmountOut: out, Legs: candidate.Legs}
}

// Split beats single: route A is an identity, route B pays 5_200 on a 5_000
// half but only 9_700 on the full amount.
func TestFindBestSplit_Accepted(t *testing.T) {
	routeA := splitCandidate(domain.VenueCPMMV2)
	routeB := splitCandidate(domain.VenueCPMMV1)

	simulator := &tableSimulator{outputs: map[string]map[string]int64{
		routeB.ID(): {"5000": 5_200, "10000": 9_700},
	}}

	ranked := []*domain.SimulatedRoute{
		simulator.simulate(context.Background(), routeA, big.NewInt(10_000)),
		simulator.simulate(context.Background(), routeB, big.NewInt(10_000)),
	}

	parts := findBestSplit(context.Background(), ranked, big.NewInt(10_000), splitConfig(), simulator.simulate)
	require.Len(t, parts, 2)

	require.Equal(t, int64(5_000), parts[0].ShareBps)
	require.Equal(t, int64(5_000), parts[1].ShareBps)
	require.Equal(t, int64(domain.BpsDenominator), parts[0].ShareBps+parts[1].ShareBps)

	totalIn := new(big.Int).Add(parts[0].AmountIn, parts[1].AmountIn)
	require.Equal(t, "10000", totalIn.String())
	require.Equal(t, "10200", splitTotal(parts).String())
}

func TestFindBestSplit_RejectedWhenSingleWins(t *testing.T) {
	routeA := splitCandidate(domain.VenueCPMMV2)
	routeB := splitCandidate(domain.VenueCPMMV1)

	// Route B is strictly worse at every partition.
	simulator := &tableSimulator{outputs: map[string]map[string]int64{
		routeB.ID(): {
			"1000": 500, "2000": 1_000, "3000": 1_500, "4000": 2_000,
			"5000": 2_500, "6000": 3_000, "7000": 3_500, "8000": 4_000, "9000": 4_500,
		},
	}}

	ranked := []*domain.SimulatedRoute{
		simulator.simulate(context.Background(), routeA, big.NewInt(10_000)),
		simulator.simulate(context.Background(), routeB, big.NewInt(10_000)),
	}

	parts := findBestSplit(context.Background(), ranked, big.NewInt(10_000), splitConfig(), simulator.simulate)
	require.Nil(t, parts)
}

func TestFindBestSplit_MinImprovement(t *testing.T) {
	routeA := splitCandidate(domain.VenueCPMMV2)
	routeB := splitCandidate(domain.VenueCPMMV1)

	// Best split totals 10_050: an improvement of 50 bps over 10_000.
	simulator := &tableSimulator{outputs: map[string]map[string]int64{
		routeB.ID(): {"5000": 5_050, "10000": 9_000},
	}}
	ranked := []*domain.SimulatedRoute{
		simulator.simulate(context.Background(), routeA, big.NewInt(10_000)),
		simulator.simulate(context.Background(), routeB, big.NewInt(10_000)),
	}

	cfg := splitConfig()
	cfg.MinImprovementBps = 100
	require.Nil(t, findBestSplit(context.Background(), ranked, big.NewInt(10_000), cfg, simulator.simulate))

	cfg.MinImprovementBps = 50
	require.NotNil(t, findBestSplit(context.Background(), ranked, big.NewInt(10_000), cfg, simulator.simulate))
}

// Equal partitions across route pairs are simulated once per route.
func TestFindBestSplit_Memoized(t *testing.T) {
	routeA := splitCandidate(domain.VenueCPMMV2)
	routeB := splitCandidate(domain.VenueCPMMV1)
	routeC := splitCandidate(domain.VenueStable)

	simulator := &tableSimulator{}
	ranked := []*domain.SimulatedRoute{
		simulator.simulate(context.Background(), routeA, big.NewInt(10_000)),
		simulator.simulate(context.Background(), routeB, big.NewInt(10_000)),
		simulator.simulate(context.Background(), routeC, big.NewInt(10_000)),
	}
	simulator.calls = 0

	findBestSplit(context.Background(), ranked, big.NewInt(10_000), splitConfig(), simulator.simulate)

	// Each route appears in two pairs over the same 9 partition amounts; the
	// memo caps it at 9 simulations per route.
	require.Equal(t, 27, simulator.calls)
}

func TestFindBestSplit_NeedsTwoRoutes(t *testing.T) {
	routeA := splitCandidate(domain.VenueCPMMV2)
	simulator := &tableSimulator{}
	ranked := []*domain.SimulatedRoute{
		simulator.simulate(context.Background(), routeA, big.NewInt(10_000)),
	}

	require.Nil(t, findBestSplit(context.Background(), ranked, big.NewInt(10_000), splitConfig(), simulator.simulate))
}
