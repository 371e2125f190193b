package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/pulsedex-labs/pqs/chain/contracts"
	"github.com/pulsedex-labs/pqs/domain/mocks"
	"github.com/pulsedex-labs/pqs/log"
	"github.com/pulsedex-labs/pqs/pools/usecase"
)

var routerV2Address = common.HexToAddress("0x165C3410fC91EF562C50559f7d2289fEbed552d9")

func packAmounts(t *testing.T, amounts []*big.Int) []byte {
	t.Helper()
	method := contracts.RouterABI.Methods["getAmountsOut"]
	packed, err := method.Outputs.Pack(amounts)
	require.NoError(t, err)
	return packed
}

func TestPeripheryUsecase_GetAmountsOut(t *testing.T) {
	var calledTo common.Address
	caller := &mocks.ContractCallerMock{
		CallContractFn: func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
			calledTo = *msg.To
			return packAmounts(t, []*big.Int{big.NewInt(10_000), big.NewInt(19_745)}), nil
		},
	}
	periphery := usecase.NewPeripheryUsecase(caller, routerV2Address, log.NewNopLogger())

	out, err := periphery.GetAmountsOut(context.Background(), big.NewInt(10_000), []common.Address{wplsAddress, hexAddress})
	require.NoError(t, err)
	require.Equal(t, "19745", out.String())
	require.Equal(t, routerV2Address, calledTo)
}

func TestPeripheryUsecase_GetAmountsOut_Errors(t *testing.T) {
	periphery := usecase.NewPeripheryUsecase(&mocks.ContractCallerMock{
		CallContractFn: func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
			return nil, errors.New("execution reverted")
		},
	}, routerV2Address, log.NewNopLogger())

	_, err := periphery.GetAmountsOut(context.Background(), big.NewInt(1), []common.Address{wplsAddress, hexAddress})
	require.Error(t, err)

	// A path shorter than two tokens never reaches the chain.
	_, err = periphery.GetAmountsOut(context.Background(), big.NewInt(1), []common.Address{wplsAddress})
	require.Error(t, err)
}

func TestPeripheryUsecase_GetAmountsOut_LengthMismatch(t *testing.T) {
	periphery := usecase.NewPeripheryUsecase(&mocks.ContractCallerMock{
		CallContractFn: func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
			return packAmounts(t, []*big.Int{big.NewInt(1)}), nil
		},
	}, routerV2Address, log.NewNopLogger())

	_, err := periphery.GetAmountsOut(context.Background(), big.NewInt(1), []common.Address{wplsAddress, hexAddress})
	require.Error(t, err)
}
