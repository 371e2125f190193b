package mvc

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulsedex-labs/pqs/domain"
)

// ReservesUsecase loads and caches CPMM pair reserves.
type ReservesUsecase interface {
	// GetPairReserves returns the reserves for the venue's (tokenIn, tokenOut)
	// pair oriented by the requested order. Returns (nil, nil) when the pair
	// does not exist or could not be loaded; the miss is negatively cached.
	GetPairReserves(ctx context.Context, venue domain.Venue, tokenIn, tokenOut common.Address) (*domain.MappedReserves, error)

	// IsCached reports whether a live positive cache entry exists for the pair.
	IsCached(venue domain.Venue, a, b common.Address) bool

	// Prewarm batch-loads the reserves for the given legs ahead of simulation.
	// It respects the given deadline and never fails the quote.
	Prewarm(ctx context.Context, legs []domain.RouteLeg, deadline time.Time)
}

// StableUsecase quotes swaps through the stable pool.
type StableUsecase interface {
	// LoadIndexMap discovers the pool coins and returns the lowercase
	// address to coin index mapping, cached with TTL.
	LoadIndexMap(ctx context.Context) (map[string]uint8, error)

	// IndexMap returns the cached mapping without loading. Nil if never loaded.
	IndexMap() map[string]uint8

	QuoteByIndices(ctx context.Context, i, j uint8, amount *big.Int) (*big.Int, error)
	QuoteByAddresses(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, error)
}

// PricingSource resolves USD prices from on-chain pair reserves.
type PricingSource interface {
	NativePriceUSD(ctx context.Context) (float64, error)
	TokenPriceUSD(ctx context.Context, token common.Address) (float64, error)
}

// TokensUsecase resolves token metadata and request-level token spellings.
type TokensUsecase interface {
	// GetDecimals returns the ERC-20 decimals for the token, cached.
	GetDecimals(ctx context.Context, token common.Address) (uint8, error)

	// Normalize parses a request token and maps native aliases onto the
	// wrapped native address. The second return reports whether the input
	// was a native alias.
	Normalize(raw string) (common.Address, bool, error)
}

// PeripheryUsecase quotes a swap path through the on-chain periphery router.
// Used only by the fallback path when local simulation produced nothing.
type PeripheryUsecase interface {
	// GetAmountsOut returns the output amount of routing amountIn through the
	// given token path.
	GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error)
}

// RouterUsecase computes the optimal quote for an exact-in swap.
type RouterUsecase interface {
	GetQuote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResult, error)
}
