package usecase

import (
	"math/big"

	"github.com/pulsedex-labs/pqs/domain"
)

// ComputeCPMMOut prices a single constant-product swap with the fee taken
// from the input side:
//
//	out = in*(10000-fee)*reserveOut / (reserveIn*10000 + in*(10000-fee))
//
// All intermediate arithmetic is arbitrary precision and the division floors,
// matching the pair contract exactly.
func ComputeCPMMOut(amountIn, reserveIn, reserveOut *big.Int, feeBps int64) (*big.Int, error) {
	if feeBps < 0 || feeBps >= domain.BpsDenominator {
		return nil, domain.ErrInvalidFee
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, domain.ErrInvalidReserves
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(domain.BpsDenominator-feeBps))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(domain.BpsDenominator))
	denominator.Add(denominator, amountInWithFee)

	return numerator.Quo(numerator, denominator), nil
}
