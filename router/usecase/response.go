package usecase

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulsedex-labs/pqs/domain"
)

// quoteDeadlineSeconds is how long a returned quote stays executable.
const quoteDeadlineSeconds = 600

// BuildQuoteResponse renders a quote result into the response body. Native
// aliases echo as the zero address; routing addresses stay wrapped.
func BuildQuoteResponse(result *domain.QuoteResult, now time.Time) domain.QuoteResponse {
	req := result.Request

	minAmountOut := new(big.Int).Mul(result.TotalAmountOut, big.NewInt(domain.BpsDenominator-req.SlippageBps))
	minAmountOut.Quo(minAmountOut, big.NewInt(domain.BpsDenominator))
	deadline := now.Unix() + quoteDeadlineSeconds

	recipient := req.Account
	if recipient == (common.Address{}) {
		recipient = result.Router
	}

	return domain.QuoteResponse{
		Calldata:           buildCalldata(result, minAmountOut, deadline, recipient),
		TokenInAddress:     echoAddress(req.TokenIn, req.TokenInIsNative),
		TokenOutAddress:    echoAddress(req.TokenOut, req.TokenOutIsNative),
		AmountIn:           req.AmountIn.String(),
		MinAmountOut:       minAmountOut.String(),
		OutputAmount:       result.TotalAmountOut.String(),
		Deadline:           deadline,
		GasAmountEstimated: gasUnits(result.Gas),
		GasUSDEstimated:    gasUSD(result.Gas),
		Route:              buildRoute(result),
		RouterAddress:      result.Router.Hex(),
	}
}

func echoAddress(routed common.Address, isNative bool) string {
	if isNative {
		return common.Address{}.Hex()
	}
	return routed.Hex()
}

func gasUnits(gas *domain.GasEstimate) uint64 {
	if gas == nil {
		return 0
	}
	return gas.Units
}

func gasUSD(gas *domain.GasEstimate) float64 {
	if gas == nil {
		return 0
	}
	return gas.USD
}

func buildRoute(result *domain.QuoteResult) []domain.SwapGroup {
	if result.Single != nil {
		return []domain.SwapGroup{{
			Percent:   100,
			AmountIn:  result.Request.AmountIn.String(),
			AmountOut: result.Single.AmountOut.String(),
			Swaps:     buildSwaps(result.Single.Legs),
		}}
	}

	groups := make([]domain.SwapGroup, 0, len(result.Splits))
	for _, part := range result.Splits {
		groups = append(groups, domain.SwapGroup{
			Percent:   float64(part.ShareBps) / 100,
			AmountIn:  part.AmountIn.String(),
			AmountOut: part.Route.AmountOut.String(),
			Swaps:     buildSwaps(part.Route.Legs),
		})
	}
	return groups
}

func buildSwaps(legs []domain.RouteLeg) []domain.SwapStep {
	swaps := make([]domain.SwapStep, 0, len(legs))
	for _, leg := range legs {
		swaps = append(swaps, domain.SwapStep{
			TokenIn:  leg.TokenIn.Hex(),
			TokenOut: leg.TokenOut.Hex(),
			Pool:     leg.Pool.Hex(),
			Exchange: leg.Venue.DisplayName(),
		})
	}
	return swaps
}
