package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BpsDenominator is the basis point denominator shared by fees and shares.
const BpsDenominator = 10_000

// QuoteRequest is the parsed, validated quote request.
type QuoteRequest struct {
	// TokenIn and TokenOut are the wrapped-normalized routing addresses.
	TokenIn  common.Address
	TokenOut common.Address
	// TokenInRaw and TokenOutRaw echo the request spelling for the response.
	TokenInRaw  string
	TokenOutRaw string
	// TokenInIsNative and TokenOutIsNative record whether the request used a
	// native alias.
	TokenInIsNative  bool
	TokenOutIsNative bool

	// AmountIn is the exact input in base units.
	AmountIn *big.Int
	// SlippageBps is the allowed slippage converted to basis points.
	SlippageBps int64
	// Account is the recipient; zero means the configured router.
	Account common.Address
}

// SplitPart is one side of an accepted split.
type SplitPart struct {
	Route    SimulatedRoute
	AmountIn *big.Int
	ShareBps int64
}

// GasEstimate is the static gas model applied to the winning route.
type GasEstimate struct {
	Units     uint64
	NativeWei *big.Int
	USD       float64
}

// QuoteResult is the orchestrator output. Exactly one of Single and Splits is set.
type QuoteResult struct {
	Request        QuoteRequest
	TotalAmountOut *big.Int
	Router         common.Address

	Single *SimulatedRoute
	Splits []SplitPart

	// Gas is nil when estimation failed; the quote is still valid.
	Gas *GasEstimate
}

// LegCount returns the total number of legs across the winning route(s).
func (r *QuoteResult) LegCount() int {
	if r.Single != nil {
		return len(r.Single.Legs)
	}
	count := 0
	for _, part := range r.Splits {
		count += len(part.Route.Legs)
	}
	return count
}

// QuoteResponse is the JSON body returned to callers.
type QuoteResponse struct {
	Calldata           string      `json:"calldata"`
	TokenInAddress     string      `json:"tokenInAddress"`
	TokenOutAddress    string      `json:"tokenOutAddress"`
	AmountIn           string      `json:"amountIn"`
	MinAmountOut       string      `json:"minAmountOut"`
	OutputAmount       string      `json:"outputAmount"`
	Deadline           int64       `json:"deadline"`
	GasAmountEstimated uint64      `json:"gasAmountEstimated,omitempty"`
	GasUSDEstimated    float64     `json:"gasUSDEstimated,omitempty"`
	Route              []SwapGroup `json:"route"`
	RouterAddress      string      `json:"routerAddress"`
}

// SwapGroup is one split side of the combined response route.
type SwapGroup struct {
	Percent   float64    `json:"percent"`
	AmountIn  string     `json:"amountIn"`
	AmountOut string     `json:"amountOut"`
	Swaps     []SwapStep `json:"swaps"`
}

// SwapStep is one leg descriptor of the combined response route.
type SwapStep struct {
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	Pool     string `json:"pool"`
	Exchange string `json:"exchange"`
}
