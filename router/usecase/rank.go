package usecase

import (
	"sort"

	"github.com/pulsedex-labs/pqs/domain"
)

// topRankedRoutes is how many ranked results the orchestrator keeps for the
// split search.
const topRankedRoutes = 3

func stableLegCount(route *domain.SimulatedRoute) int {
	count := 0
	for _, leg := range route.Legs {
		if leg.Venue == domain.VenueStable {
			count++
		}
	}
	return count
}

// rankRoutes orders simulated routes best first: higher output, then fewer
// legs, then (for stable-to-stable swaps) more stable legs, then candidate id
// as the deterministic tiebreak. Returns at most topRankedRoutes entries.
func rankRoutes(routes []*domain.SimulatedRoute, bothEndpointsStable bool) []*domain.SimulatedRoute {
	ranked := make([]*domain.SimulatedRoute, len(routes))
	copy(ranked, routes)

	sort.SliceStable(ranked, func(a, b int) bool {
		left, right := ranked[a], ranked[b]

		if cmp := left.AmountOut.Cmp(right.AmountOut); cmp != 0 {
			return cmp > 0
		}
		if len(left.Legs) != len(right.Legs) {
			return len(left.Legs) < len(right.Legs)
		}
		if bothEndpointsStable {
			if leftStable, rightStable := stableLegCount(left), stableLegCount(right); leftStable != rightStable {
				return leftStable > rightStable
			}
		}
		return left.Candidate.ID() < right.Candidate.ID()
	})

	if len(ranked) > topRankedRoutes {
		ranked = ranked[:topRankedRoutes]
	}
	return ranked
}
