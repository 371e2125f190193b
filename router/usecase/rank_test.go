package usecase

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/pulsedex-labs/pqs/domain"
)

var (
	rankUSDC = common.HexToAddress("0x15D38573d2feeb82e7ad5187aB8c1D52810B1f07")
	rankUSDT = common.HexToAddress("0x0Cb6F5a34ad42ec934882A05265A7d5F59b51A2f")
)

func simulatedRoute(venue domain.Venue, amountOut int64) *domain.SimulatedRoute {
	legs := []domain.RouteLeg{{Venue: venue, TokenIn: rankUSDC, TokenOut: rankUSDT}}
	return &domain.SimulatedRoute{
		Candidate: domain.RouteCandidate{Legs: legs, Path: []common.Address{rankUSDC, rankUSDT}},
		AmountOut: big.NewInt(amountOut),
		Legs:      legs,
	}
}

func TestRankRoutes_HigherOutputWins(t *testing.T) {
	better := simulatedRoute(domain.VenueCPMMV2, 2_000)
	worse := simulatedRoute(domain.VenueCPMMV1, 1_000)

	ranked := rankRoutes([]*domain.SimulatedRoute{worse, better}, false)
	require.Equal(t, better, ranked[0])
}

func TestRankRoutes_FewerLegsBreaksTie(t *testing.T) {
	short := simulatedRoute(domain.VenueCPMMV2, 1_000)
	long := simulatedRoute(domain.VenueCPMMV2, 1_000)
	long.Legs = append(long.Legs, domain.RouteLeg{Venue: domain.VenueCPMMV2, TokenIn: rankUSDT, TokenOut: rankUSDC})
	long.Candidate.Legs = long.Legs

	ranked := rankRoutes([]*domain.SimulatedRoute{long, short}, false)
	require.Equal(t, short, ranked[0])
}

// Equal outputs on a stable-to-stable swap prefer the stable venue.
func TestRankRoutes_StableTieBreak(t *testing.T) {
	stable := simulatedRoute(domain.VenueStable, 1_000)
	cpmm := simulatedRoute(domain.VenueCPMMV2, 1_000)

	ranked := rankRoutes([]*domain.SimulatedRoute{cpmm, stable}, true)
	require.Equal(t, stable, ranked[0])

	// Without stable endpoints the id decides: cpmm_v2 sorts before stable.
	ranked = rankRoutes([]*domain.SimulatedRoute{stable, cpmm}, false)
	require.Equal(t, cpmm, ranked[0])
}

func TestRankRoutes_TopK(t *testing.T) {
	routes := []*domain.SimulatedRoute{
		simulatedRoute(domain.VenueCPMMV1, 100),
		simulatedRoute(domain.VenueCPMMV2, 400),
		simulatedRoute(domain.VenueCPMMV1, 300),
		simulatedRoute(domain.VenueCPMMV2, 200),
	}

	ranked := rankRoutes(routes, false)
	require.Len(t, ranked, 3)
	require.Equal(t, "400", ranked[0].AmountOut.String())
	require.Equal(t, "300", ranked[1].AmountOut.String())
	require.Equal(t, "200", ranked[2].AmountOut.String())
}
