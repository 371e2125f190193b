package usecase_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/router/usecase"
)

func TestComputeCPMMOut(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   *big.Int
		reserveIn  *big.Int
		reserveOut *big.Int
		feeBps     int64
		want       *big.Int
		wantErr    error
	}{
		{
			name:       "small trade against thin pool",
			amountIn:   big.NewInt(10_000),
			reserveIn:  big.NewInt(1_000_000),
			reserveOut: big.NewInt(2_000_000),
			feeBps:     29,
			want:       big.NewInt(19_745),
		},
		{
			name:       "larger trade",
			amountIn:   big.NewInt(1_000_000),
			reserveIn:  big.NewInt(1_000_000_000),
			reserveOut: big.NewInt(2_000_000_000),
			feeBps:     29,
			want:       big.NewInt(1_992_213),
		},
		{
			name:       "zero fee",
			amountIn:   big.NewInt(1_000),
			reserveIn:  big.NewInt(1_000_000),
			reserveOut: big.NewInt(1_000_000),
			feeBps:     0,
			want:       big.NewInt(999),
		},
		{
			name:       "zero amount in",
			amountIn:   big.NewInt(0),
			reserveIn:  big.NewInt(1_000_000),
			reserveOut: big.NewInt(1_000_000),
			feeBps:     29,
			want:       big.NewInt(0),
		},
		{
			name:       "negative amount in",
			amountIn:   big.NewInt(-5),
			reserveIn:  big.NewInt(1_000_000),
			reserveOut: big.NewInt(1_000_000),
			feeBps:     29,
			want:       big.NewInt(0),
		},
		{
			name:       "zero input reserve",
			amountIn:   big.NewInt(1_000),
			reserveIn:  big.NewInt(0),
			reserveOut: big.NewInt(1_000_000),
			feeBps:     29,
			wantErr:    domain.ErrInvalidReserves,
		},
		{
			name:       "zero output reserve",
			amountIn:   big.NewInt(1_000),
			reserveIn:  big.NewInt(1_000_000),
			reserveOut: big.NewInt(0),
			feeBps:     29,
			wantErr:    domain.ErrInvalidReserves,
		},
		{
			name:       "negative fee",
			amountIn:   big.NewInt(1_000),
			reserveIn:  big.NewInt(1_000_000),
			reserveOut: big.NewInt(1_000_000),
			feeBps:     -1,
			wantErr:    domain.ErrInvalidFee,
		},
		{
			name:       "fee of full denominator",
			amountIn:   big.NewInt(1_000),
			reserveIn:  big.NewInt(1_000_000),
			reserveOut: big.NewInt(1_000_000),
			feeBps:     10_000,
			wantErr:    domain.ErrInvalidFee,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := usecase.ComputeCPMMOut(tt.amountIn, tt.reserveIn, tt.reserveOut, tt.feeBps)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want.String(), got.String())
		})
	}
}

// Output must grow with input and never exceed the output reserve.
func TestComputeCPMMOut_Monotonic(t *testing.T) {
	reserveIn := big.NewInt(5_000_000_000)
	reserveOut := big.NewInt(3_000_000_000)

	prev := big.NewInt(-1)
	amountIn := big.NewInt(1)
	for i := 0; i < 30; i++ {
		out, err := usecase.ComputeCPMMOut(amountIn, reserveIn, reserveOut, 29)
		require.NoError(t, err)
		require.GreaterOrEqual(t, out.Cmp(prev), 0)
		require.Negative(t, out.Cmp(reserveOut))
		prev = out
		amountIn = new(big.Int).Mul(amountIn, big.NewInt(2))
	}
}
