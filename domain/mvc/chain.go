package mvc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
)

// ContractCaller executes read-only contract calls against the chain.
// Implemented by the RPC provider pool.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// FeeSource provides the current chain gas price. Implementations fall back
// through the available fee fields and finally to a fixed default, so the
// returned value is always usable.
type FeeSource interface {
	GasPrice(ctx context.Context) *big.Int
}
