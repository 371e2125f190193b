package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pulsedex-labs/pqs/chain/contracts"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
)

type peripheryUsecase struct {
	caller mvc.ContractCaller
	router common.Address
	logger log.Logger
}

var _ mvc.PeripheryUsecase = &peripheryUsecase{}

// NewPeripheryUsecase creates the periphery router quoter. The router resolves
// pairs on-chain, so this path works even when the local reserve loader could
// not.
func NewPeripheryUsecase(caller mvc.ContractCaller, router common.Address, logger log.Logger) mvc.PeripheryUsecase {
	return &peripheryUsecase{
		caller: caller,
		router: router,
		logger: logger,
	}
}

// GetAmountsOut quotes amountIn through the token path via the router's
// getAmountsOut and returns the final output amount.
func (p *peripheryUsecase) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("getAmountsOut: path needs at least two tokens")
	}

	input, err := contracts.RouterABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("pack getAmountsOut: %w", err)
	}

	output, err := p.caller.CallContract(ctx, ethereum.CallMsg{To: &p.router, Data: input})
	if err != nil {
		return nil, err
	}

	amounts, err := contracts.UnpackAmounts(output)
	if err != nil {
		return nil, err
	}
	if len(amounts) != len(path) {
		return nil, fmt.Errorf("getAmountsOut: expected %d amounts, got %d", len(path), len(amounts))
	}
	return amounts[len(amounts)-1], nil
}
