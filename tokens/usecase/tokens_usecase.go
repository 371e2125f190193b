// Package usecase implements token-level concerns: address normalization for
// native aliases and ERC-20 metadata reads.
package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pulsedex-labs/pqs/chain/contracts"
	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
)

// decimalsCacheSize bounds the decimals cache. Decimals are immutable, so
// entries never expire.
const decimalsCacheSize = 4096

type tokensUsecase struct {
	caller        mvc.ContractCaller
	wrappedNative common.Address
	decimalsCache *lru.Cache[string, uint8]
	logger        log.Logger
}

var _ mvc.TokensUsecase = &tokensUsecase{}

// NewTokensUsecase creates the token metadata usecase.
func NewTokensUsecase(caller mvc.ContractCaller, wrappedNative common.Address, logger log.Logger) mvc.TokensUsecase {
	decimalsCache, err := lru.New[string, uint8](decimalsCacheSize)
	if err != nil {
		panic(err)
	}
	return &tokensUsecase{
		caller:        caller,
		wrappedNative: wrappedNative,
		decimalsCache: decimalsCache,
		logger:        logger,
	}
}

// Normalize maps native aliases to the wrapped native token and validates the
// address form. The second return reports whether the input was an alias.
func (t *tokensUsecase) Normalize(raw string) (common.Address, bool, error) {
	return domain.NormalizeTokenAddress(raw, t.wrappedNative)
}

// GetDecimals returns the token's ERC-20 decimals, cached forever after the
// first successful read.
func (t *tokensUsecase) GetDecimals(ctx context.Context, token common.Address) (uint8, error) {
	key := domain.AddrKey(token)
	if decimals, found := t.decimalsCache.Get(key); found {
		return decimals, nil
	}

	input, err := contracts.ERC20ABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}
	output, err := t.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input})
	if err != nil {
		return 0, err
	}
	decimals, err := contracts.UnpackUint8(contracts.ERC20ABI, "decimals", output)
	if err != nil {
		return 0, fmt.Errorf("decimals of %s: %w", token.Hex(), err)
	}

	t.decimalsCache.Add(key, decimals)
	return decimals, nil
}
