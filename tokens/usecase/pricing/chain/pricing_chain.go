// Package chain implements the spot price oracle over the CPMM pairs
// themselves: USD prices are derived from pool reserve ratios against the
// canonical USD stable, with the wrapped native token as the bridge.
package chain

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
)

// priceCacheSize bounds both price caches.
const priceCacheSize = 2048

var (
	priceCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pqs_price_cache_hits_total",
		Help: "Total number of price cache hits.",
	})
	priceCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pqs_price_cache_misses_total",
		Help: "Total number of price cache misses.",
	})
)

func init() {
	prometheus.MustRegister(priceCacheHits)
	prometheus.MustRegister(priceCacheMisses)
}

// venuePriority is the pair lookup order for pricing reads.
var venuePriority = []domain.Venue{domain.VenueCPMMV2, domain.VenueCPMMV1}

type pricingSource struct {
	reserves      mvc.ReservesUsecase
	tokens        mvc.TokensUsecase
	wrappedNative common.Address
	usdStable     common.Address
	logger        log.Logger

	cache         *expirable.LRU[string, float64]
	negativeCache *expirable.LRU[string, struct{}]
}

var _ mvc.PricingSource = &pricingSource{}

// New creates the on-chain pricing source. Prices are cached for cfg.CacheTTL;
// tokens with no priceable pair are remembered for cfg.NegativeTTL so they do
// not trigger repeated chain reads.
func New(
	reserves mvc.ReservesUsecase,
	tokens mvc.TokensUsecase,
	wrappedNative, usdStable common.Address,
	cfg domain.PricingConfig,
	logger log.Logger,
) mvc.PricingSource {
	return &pricingSource{
		reserves:      reserves,
		tokens:        tokens,
		wrappedNative: wrappedNative,
		usdStable:     usdStable,
		logger:        logger,
		cache:         expirable.NewLRU[string, float64](priceCacheSize, nil, cfg.CacheTTL()),
		negativeCache: expirable.NewLRU[string, struct{}](priceCacheSize, nil, cfg.NegativeTTL()),
	}
}

// NativePriceUSD returns the USD price of the native coin from the wrapped
// native / USD stable pair.
func (p *pricingSource) NativePriceUSD(ctx context.Context) (float64, error) {
	return p.TokenPriceUSD(ctx, p.wrappedNative)
}

// TokenPriceUSD returns the USD price of the token. The USD stable prices at
// exactly 1; everything else prices through a direct stable pair or through
// the wrapped native bridge.
func (p *pricingSource) TokenPriceUSD(ctx context.Context, token common.Address) (float64, error) {
	if token == p.usdStable {
		return 1.0, nil
	}

	key := domain.AddrKey(token)
	if price, found := p.cache.Get(key); found {
		priceCacheHits.Inc()
		return price, nil
	}
	if _, found := p.negativeCache.Get(key); found {
		priceCacheHits.Inc()
		return 0, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, token.Hex())
	}
	priceCacheMisses.Inc()

	price, err := p.resolve(ctx, token)
	if err != nil {
		p.negativeCache.Add(key, struct{}{})
		return 0, err
	}

	p.cache.Add(key, price)
	return price, nil
}

func (p *pricingSource) resolve(ctx context.Context, token common.Address) (float64, error) {
	if token == p.wrappedNative {
		return p.pairPrice(ctx, token, p.usdStable)
	}

	// Bridge through the wrapped native token first; most listings pair
	// against it.
	if priceInNative, err := p.pairPrice(ctx, token, p.wrappedNative); err == nil {
		nativeUSD, err := p.TokenPriceUSD(ctx, p.wrappedNative)
		if err == nil {
			return priceInNative * nativeUSD, nil
		}
	}

	// Fall back to a direct pair against the USD stable.
	price, err := p.pairPrice(ctx, token, p.usdStable)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, token.Hex())
	}
	return price, nil
}

// pairPrice returns the mid price of base denominated in quote from the first
// venue that lists the pair.
func (p *pricingSource) pairPrice(ctx context.Context, base, quote common.Address) (float64, error) {
	for _, venue := range venuePriority {
		mapped, err := p.reserves.GetPairReserves(ctx, venue, base, quote)
		if err != nil {
			p.logger.Debug("pricing pair read failed",
				zap.String("venue", venue.String()),
				zap.String("base", base.Hex()),
				zap.Error(err))
			continue
		}
		if mapped == nil {
			continue
		}

		baseDecimals, err := p.tokens.GetDecimals(ctx, base)
		if err != nil {
			return 0, err
		}
		quoteDecimals, err := p.tokens.GetDecimals(ctx, quote)
		if err != nil {
			return 0, err
		}

		price := ratio(mapped.ReserveOut, mapped.ReserveIn, quoteDecimals, baseDecimals)
		if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
			continue
		}
		return price, nil
	}
	return 0, fmt.Errorf("%w: no %s pair", domain.ErrPriceUnavailable, base.Hex())
}

// ratio computes (a / 10^aDecimals) / (b / 10^bDecimals) in floating point.
func ratio(a, b *big.Int, aDecimals, bDecimals uint8) float64 {
	if b.Sign() == 0 {
		return 0
	}
	value := new(big.Float).Quo(new(big.Float).SetInt(a), new(big.Float).SetInt(b))
	result, _ := value.Float64()
	return result * math.Pow10(int(bDecimals)-int(aDecimals))
}
