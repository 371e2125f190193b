// Package mocks provides hand-written test doubles for the mvc interfaces.
package mocks

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pulsedex-labs/pqs/domain"
)

// ContractCallerMock delegates eth_call to a configurable function.
type ContractCallerMock struct {
	CallContractFn func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

func (m *ContractCallerMock) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	if m.CallContractFn == nil {
		return nil, errors.New("CallContractFn not set")
	}
	return m.CallContractFn(ctx, msg)
}

// PoolState is one CPMM pair served by ReservesMock.
type PoolState struct {
	Pair     common.Address
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// ReservesMock serves reserves from an in-memory pool table keyed the same
// way as the production cache.
type ReservesMock struct {
	mu    sync.Mutex
	pools map[string]*PoolState

	// Err, when set, fails every lookup.
	Err error
	// Cached marks pairs IsCached reports as live.
	Cached map[string]bool

	PrewarmedLegs []domain.RouteLeg
	Lookups       int
}

// NewReservesMock creates an empty reserves mock.
func NewReservesMock() *ReservesMock {
	return &ReservesMock{
		pools:  make(map[string]*PoolState),
		Cached: make(map[string]bool),
	}
}

// AddPool registers a pair on the venue.
func (m *ReservesMock) AddPool(venue domain.Venue, pool PoolState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[domain.ReserveCacheKey(venue, pool.Token0, pool.Token1)] = &pool
}

func (m *ReservesMock) GetPairReserves(ctx context.Context, venue domain.Venue, tokenIn, tokenOut common.Address) (*domain.MappedReserves, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups++

	if m.Err != nil {
		return nil, m.Err
	}
	pool, ok := m.pools[domain.ReserveCacheKey(venue, tokenIn, tokenOut)]
	if !ok {
		return nil, nil
	}
	reserves := domain.PairReserves{
		Pair:     pool.Pair,
		Token0:   pool.Token0,
		Token1:   pool.Token1,
		Reserve0: pool.Reserve0,
		Reserve1: pool.Reserve1,
	}
	mapped, ok := reserves.MapTo(tokenIn, tokenOut)
	if !ok {
		return nil, nil
	}
	return &mapped, nil
}

func (m *ReservesMock) IsCached(venue domain.Venue, a, b common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Cached[domain.ReserveCacheKey(venue, a, b)]
}

func (m *ReservesMock) Prewarm(ctx context.Context, legs []domain.RouteLeg, deadline time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrewarmedLegs = append(m.PrewarmedLegs, legs...)
}

// StableMock quotes stable swaps at a fixed output per input unit ratio.
type StableMock struct {
	Index   map[string]uint8
	LoadErr error
	// QuoteFn overrides quoting entirely when set.
	QuoteFn func(i, j uint8, amount *big.Int) (*big.Int, error)
	// RateBps prices every swap as amount*RateBps/10000 when QuoteFn is unset.
	RateBps int64
}

func (m *StableMock) LoadIndexMap(ctx context.Context) (map[string]uint8, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Index, nil
}

func (m *StableMock) IndexMap() map[string]uint8 {
	return m.Index
}

func (m *StableMock) QuoteByIndices(ctx context.Context, i, j uint8, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, domain.ErrStableNegativeAmount
	}
	if amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if i == j {
		return new(big.Int).Set(amount), nil
	}
	if m.QuoteFn != nil {
		return m.QuoteFn(i, j, amount)
	}
	rate := m.RateBps
	if rate == 0 {
		rate = domain.BpsDenominator
	}
	out := new(big.Int).Mul(amount, big.NewInt(rate))
	return out.Quo(out, big.NewInt(domain.BpsDenominator)), nil
}

func (m *StableMock) QuoteByAddresses(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, error) {
	i, okIn := m.Index[domain.AddrKey(tokenIn)]
	j, okOut := m.Index[domain.AddrKey(tokenOut)]
	if !okIn || !okOut {
		return nil, domain.ErrStableTokenUnsupported
	}
	return m.QuoteByIndices(ctx, i, j, amount)
}

// PricingMock serves prices from a static map keyed by lowercase address.
type PricingMock struct {
	NativeUSD float64
	Prices    map[string]float64
}

func (m *PricingMock) NativePriceUSD(ctx context.Context) (float64, error) {
	if m.NativeUSD <= 0 {
		return 0, domain.ErrPriceUnavailable
	}
	return m.NativeUSD, nil
}

func (m *PricingMock) TokenPriceUSD(ctx context.Context, token common.Address) (float64, error) {
	price, ok := m.Prices[domain.AddrKey(token)]
	if !ok {
		return 0, domain.ErrPriceUnavailable
	}
	return price, nil
}

// TokensMock serves decimals from a static map.
type TokensMock struct {
	WrappedNative common.Address
	Decimals      map[string]uint8
}

func (m *TokensMock) GetDecimals(ctx context.Context, token common.Address) (uint8, error) {
	decimals, ok := m.Decimals[domain.AddrKey(token)]
	if !ok {
		return 0, errors.New("unknown token")
	}
	return decimals, nil
}

func (m *TokensMock) Normalize(raw string) (common.Address, bool, error) {
	return domain.NormalizeTokenAddress(raw, m.WrappedNative)
}

// PeripheryMock quotes paths from a static table keyed by the joined path.
type PeripheryMock struct {
	// Amounts maps "a>b>c" lowercase path keys to output amounts.
	Amounts map[string]*big.Int
	Calls   int
}

func (m *PeripheryMock) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	m.Calls++
	keys := make([]string, len(path))
	for i, token := range path {
		keys[i] = domain.AddrKey(token)
	}
	out, ok := m.Amounts[strings.Join(keys, ">")]
	if !ok {
		return nil, errors.New("no pair on path")
	}
	return out, nil
}

// RouterUsecaseMock records the last request and returns a canned result.
type RouterUsecaseMock struct {
	LastRequest domain.QuoteRequest
	Result      *domain.QuoteResult
	Err         error
}

func (m *RouterUsecaseMock) GetQuote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResult, error) {
	m.LastRequest = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// FeeSourceMock returns a fixed gas price.
type FeeSourceMock struct {
	Price *big.Int
}

func (m *FeeSourceMock) GasPrice(ctx context.Context) *big.Int {
	if m.Price == nil {
		return big.NewInt(1_000_000_000)
	}
	return m.Price
}
