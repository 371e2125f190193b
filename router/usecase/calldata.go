package usecase

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/pulsedex-labs/pqs/domain"
)

// calldataStep is the wire layout of one swap step in the execution payload.
type calldataStep struct {
	Pool     common.Address
	TokenIn  common.Address
	TokenOut common.Address
	Venue    uint8
	ShareBps *big.Int
}

var calldataArguments = abi.Arguments{
	{Name: "tokenIn", Type: mustNewType("address")},
	{Name: "tokenOut", Type: mustNewType("address")},
	{Name: "amountIn", Type: mustNewType("uint256")},
	{Name: "minAmountOut", Type: mustNewType("uint256")},
	{Name: "deadline", Type: mustNewType("uint256")},
	{Name: "recipient", Type: mustNewType("address")},
	{Name: "steps", Type: mustNewType("tuple[]", abi.ArgumentMarshaling{Name: "pool", Type: "address"},
		abi.ArgumentMarshaling{Name: "tokenIn", Type: "address"},
		abi.ArgumentMarshaling{Name: "tokenOut", Type: "address"},
		abi.ArgumentMarshaling{Name: "venue", Type: "uint8"},
		abi.ArgumentMarshaling{Name: "shareBps", Type: "uint256"})},
}

func mustNewType(t string, components ...abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

// buildCalldata encodes the winning route as the fixed-schema execution
// payload. Pure function of the result; a failed encode degrades to an empty
// payload rather than failing the quote.
func buildCalldata(result *domain.QuoteResult, minAmountOut *big.Int, deadline int64, recipient common.Address) string {
	var steps []calldataStep
	appendRoute := func(route *domain.SimulatedRoute, shareBps int64) {
		for _, leg := range route.Legs {
			steps = append(steps, calldataStep{
				Pool:     leg.Pool,
				TokenIn:  leg.TokenIn,
				TokenOut: leg.TokenOut,
				Venue:    uint8(leg.Venue),
				ShareBps: big.NewInt(shareBps),
			})
		}
	}

	if result.Single != nil {
		appendRoute(result.Single, domain.BpsDenominator)
	} else {
		for _, part := range result.Splits {
			appendRoute(&part.Route, part.ShareBps)
		}
	}

	packed, err := calldataArguments.Pack(
		result.Request.TokenIn,
		result.Request.TokenOut,
		result.Request.AmountIn,
		minAmountOut,
		big.NewInt(deadline),
		recipient,
		steps,
	)
	if err != nil {
		return "0x"
	}
	return hexutil.Encode(packed)
}
