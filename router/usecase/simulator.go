package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
)

// Simulator prices a route candidate leg by leg against current pool state.
type Simulator struct {
	reserves   mvc.ReservesUsecase
	stable     mvc.StableUsecase
	stablePool common.Address
	routing    domain.RoutingConfig
}

// NewSimulator creates a route simulator.
func NewSimulator(reserves mvc.ReservesUsecase, stable mvc.StableUsecase, stablePool common.Address, routing domain.RoutingConfig) *Simulator {
	return &Simulator{
		reserves:   reserves,
		stable:     stable,
		stablePool: stablePool,
		routing:    routing,
	}
}

// SimulateRoute runs amountIn through the candidate's legs in order. A nil
// return rejects the route: missing pair, failed read, or a non-positive
// amount at any leg.
func (s *Simulator) SimulateRoute(ctx context.Context, candidate domain.RouteCandidate, amountIn *big.Int) *domain.SimulatedRoute {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil
	}

	cursor := new(big.Int).Set(amountIn)
	legs := make([]domain.RouteLeg, 0, len(candidate.Legs))
	for _, leg := range candidate.Legs {
		var out *big.Int
		var resolved domain.RouteLeg

		switch leg.Venue {
		case domain.VenueStable:
			out, resolved = s.simulateStableLeg(ctx, leg, cursor)
		default:
			out, resolved = s.simulateCPMMLeg(ctx, leg, cursor)
		}

		if out == nil || out.Sign() <= 0 {
			return nil
		}
		cursor = out
		legs = append(legs, resolved)
	}

	return &domain.SimulatedRoute{
		Candidate: candidate,
		AmountOut: cursor,
		Legs:      legs,
	}
}

func (s *Simulator) simulateStableLeg(ctx context.Context, leg domain.RouteLeg, amountIn *big.Int) (*big.Int, domain.RouteLeg) {
	i, j, ok := domain.DecodeStableLegData(leg.LegData)
	if !ok {
		indexMap := s.stable.IndexMap()
		var okIn, okOut bool
		i, okIn = indexMap[domain.AddrKey(leg.TokenIn)]
		j, okOut = indexMap[domain.AddrKey(leg.TokenOut)]
		if !okIn || !okOut {
			return nil, leg
		}
	}

	out, err := s.stable.QuoteByIndices(ctx, i, j, amountIn)
	if err != nil {
		return nil, leg
	}

	resolved := leg
	resolved.Pool = s.stablePool
	resolved.LegData = domain.StableLegData(i, j)
	return out, resolved
}

func (s *Simulator) simulateCPMMLeg(ctx context.Context, leg domain.RouteLeg, amountIn *big.Int) (*big.Int, domain.RouteLeg) {
	mapped, err := s.reserves.GetPairReserves(ctx, leg.Venue, leg.TokenIn, leg.TokenOut)
	if err != nil || mapped == nil {
		return nil, leg
	}
	if mapped.ReserveIn == nil || mapped.ReserveOut == nil || mapped.ReserveIn.Sign() <= 0 || mapped.ReserveOut.Sign() <= 0 {
		return nil, leg
	}

	out, err := ComputeCPMMOut(amountIn, mapped.ReserveIn, mapped.ReserveOut, s.routing.FeeBps(leg.Venue))
	if err != nil {
		return nil, leg
	}

	resolved := leg
	resolved.Pool = mapped.Pair
	resolved.LegData = nil
	return out, resolved
}
