package usecase

import (
	"context"
	"math/big"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
)

// weiPerNative converts wei to whole native units for USD formatting.
var weiPerNative = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// estimateGas applies the static gas model to the winning route. The USD
// field stays zero when the oracle cannot price the native coin; a nil return
// only happens when the fee ladder produced no usable price.
func estimateGas(ctx context.Context, legCount int, cfg domain.GasConfig, fees mvc.FeeSource, pricing mvc.PricingSource) *domain.GasEstimate {
	units := cfg.BaseUnits + uint64(legCount)*cfg.PerLegUnits
	price := fees.GasPrice(ctx)
	if price == nil || price.Sign() <= 0 {
		return nil
	}

	wei := new(big.Int).Mul(new(big.Int).SetUint64(units), price)
	estimate := &domain.GasEstimate{Units: units, NativeWei: wei}

	nativeUSD, err := pricing.NativePriceUSD(ctx)
	if err != nil {
		return estimate
	}

	native, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerNative).Float64()
	estimate.USD = native * nativeUSD
	return estimate
}
