// Package usecase implements on-chain pool reads: the stable pool quoter and
// the CPMM pair reserve loader with its cache and multicall prewarm.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pulsedex-labs/pqs/chain/contracts"
	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
)

// stablePoolCoinCount is the number of coins in the deployed stable pool.
const stablePoolCoinCount = 3

type stableUsecase struct {
	caller mvc.ContractCaller
	pool   common.Address
	ttl    time.Duration
	logger log.Logger

	mu       sync.RWMutex
	indexMap map[string]uint8
	loadedAt time.Time
	// useUint256 is set once the int128 get_dy signature has been observed to
	// fail while the uint256 one succeeds, and cleared again if the uint256
	// path later fails.
	useUint256 bool
}

var _ mvc.StableUsecase = &stableUsecase{}

// NewStableUsecase creates the stable pool quoter. The coin index map is
// loaded lazily and refreshed on the given TTL; a stale map is kept as a
// fallback when a refresh fails.
func NewStableUsecase(caller mvc.ContractCaller, pool common.Address, indexTTL time.Duration, logger log.Logger) mvc.StableUsecase {
	return &stableUsecase{
		caller: caller,
		pool:   pool,
		ttl:    indexTTL,
		logger: logger,
	}
}

// LoadIndexMap returns the coin index map, reloading it from the pool's
// coins(i) getters when the cached copy is stale. A failed reload falls back
// to the last good map if one exists.
func (s *stableUsecase) LoadIndexMap(ctx context.Context) (map[string]uint8, error) {
	s.mu.RLock()
	if s.indexMap != nil && time.Since(s.loadedAt) < s.ttl {
		cached := s.indexMap
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	loaded, err := s.fetchIndexMap(ctx)
	if err != nil {
		s.mu.RLock()
		fallback := s.indexMap
		s.mu.RUnlock()
		if fallback != nil {
			s.logger.Warn("stable index reload failed, keeping stale map", zap.Error(err))
			return fallback, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.indexMap = loaded
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return loaded, nil
}

// IndexMap returns the current map without triggering a load. Nil until the
// first successful LoadIndexMap.
func (s *stableUsecase) IndexMap() map[string]uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexMap
}

func (s *stableUsecase) fetchIndexMap(ctx context.Context) (map[string]uint8, error) {
	indexMap := make(map[string]uint8, stablePoolCoinCount)
	for i := 0; i < stablePoolCoinCount; i++ {
		input, err := contracts.StableCoinsABI.Pack("coins", big.NewInt(int64(i)))
		if err != nil {
			return nil, fmt.Errorf("pack coins(%d): %w", i, err)
		}

		output, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.pool, Data: input})
		if err != nil {
			return nil, fmt.Errorf("coins(%d): %w", i, err)
		}

		coin, err := contracts.UnpackAddress(contracts.StableCoinsABI, "coins", output)
		if err != nil {
			return nil, fmt.Errorf("coins(%d): %w", i, err)
		}
		indexMap[domain.AddrKey(coin)] = uint8(i)
	}
	return indexMap, nil
}

// QuoteByIndices prices a swap between two coin indices via get_dy. Equal
// indices quote as a copy of the input amount.
func (s *stableUsecase) QuoteByIndices(ctx context.Context, i, j uint8, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, domain.ErrStableNegativeAmount
	}
	if amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if i == j {
		return new(big.Int).Set(amount), nil
	}

	s.mu.RLock()
	useUint256 := s.useUint256
	s.mu.RUnlock()

	if useUint256 {
		out, err := s.getDy(ctx, contracts.StableDyUint256ABI, i, j, amount)
		if err == nil {
			return out, nil
		}
		// The remembered signature stopped working; forget it and probe both
		// signatures again below.
		s.mu.Lock()
		s.useUint256 = false
		s.mu.Unlock()
		s.logger.Warn("uint256 get_dy failed, retrying the int128 signature", zap.Error(err))
	}

	out, int128Err := s.getDy(ctx, contracts.StableDyInt128ABI, i, j, amount)
	if int128Err == nil {
		return out, nil
	}

	out, uint256Err := s.getDy(ctx, contracts.StableDyUint256ABI, i, j, amount)
	if uint256Err == nil {
		s.mu.Lock()
		s.useUint256 = true
		s.mu.Unlock()
		s.logger.Info("stable pool uses uint256 get_dy signature")
		return out, nil
	}
	return nil, errors.Join(int128Err, uint256Err)
}

func (s *stableUsecase) getDy(ctx context.Context, dyABI abi.ABI, i, j uint8, amount *big.Int) (*big.Int, error) {
	input, err := dyABI.Pack("get_dy", big.NewInt(int64(i)), big.NewInt(int64(j)), amount)
	if err != nil {
		return nil, fmt.Errorf("pack get_dy: %w", err)
	}

	output, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.pool, Data: input})
	if err != nil {
		return nil, err
	}
	return contracts.UnpackBigInt(dyABI, "get_dy", output)
}

// QuoteByAddresses resolves both token addresses through the index map and
// prices the swap.
func (s *stableUsecase) QuoteByAddresses(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, error) {
	indexMap, err := s.LoadIndexMap(ctx)
	if err != nil {
		return nil, err
	}

	i, okIn := indexMap[domain.AddrKey(tokenIn)]
	j, okOut := indexMap[domain.AddrKey(tokenOut)]
	if !okIn || !okOut {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrStableTokenUnsupported, tokenIn.Hex(), tokenOut.Hex())
	}
	return s.QuoteByIndices(ctx, i, j, amount)
}
