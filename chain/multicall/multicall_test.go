package multicall_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/pulsedex-labs/pqs/chain/contracts"
	"github.com/pulsedex-labs/pqs/chain/multicall"
	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/log"
)

var multicallAddress = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// fakeCaller answers eth_call by decoding the aggregate input and echoing one
// scripted result per inner call.
type fakeCaller struct {
	batches [][]contracts.Call
	reply   func(call contracts.Call) contracts.Result
	err     error
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}

	calls, err := contracts.DecodeMulticallInput(msg.Data)
	if err != nil {
		return nil, err
	}
	f.batches = append(f.batches, calls)

	results := make([]contracts.Result, len(calls))
	for i, call := range calls {
		results[i] = f.reply(call)
	}
	return contracts.PackMulticallResults(results)
}

func defaultConfig() domain.MulticallConfig {
	return domain.MulticallConfig{
		Enabled:      true,
		MaxBatchSize: 50,
		TimeoutMs:    2000,
	}
}

func makeCalls(n int) []contracts.Call {
	calls := make([]contracts.Call, n)
	for i := range calls {
		calls[i] = contracts.Call{
			Target:   common.BigToAddress(common.Big1),
			CallData: []byte{byte(i)},
		}
	}
	return calls
}

func TestClient_Execute(t *testing.T) {
	caller := &fakeCaller{
		reply: func(call contracts.Call) contracts.Result {
			return contracts.Result{Success: true, ReturnData: call.CallData}
		},
	}
	client := multicall.NewClient(caller, defaultConfig(), multicallAddress, log.NewNopLogger())

	results, err := client.Execute(context.Background(), makeCalls(3))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, result := range results {
		require.True(t, result.Success)
		require.Equal(t, []byte{byte(i)}, result.ReturnData)
	}
}

func TestClient_Execute_Chunks(t *testing.T) {
	caller := &fakeCaller{
		reply: func(call contracts.Call) contracts.Result {
			return contracts.Result{Success: true, ReturnData: call.CallData}
		},
	}
	cfg := defaultConfig()
	cfg.MaxBatchSize = 2
	client := multicall.NewClient(caller, cfg, multicallAddress, log.NewNopLogger())

	results, err := client.Execute(context.Background(), makeCalls(5))
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.Len(t, caller.batches, 3)
	require.Len(t, caller.batches[0], 2)
	require.Len(t, caller.batches[2], 1)

	// Positional alignment must survive chunking.
	for i, result := range results {
		require.Equal(t, []byte{byte(i)}, result.ReturnData)
	}
}

func TestClient_Execute_FailedInnerCall(t *testing.T) {
	caller := &fakeCaller{
		reply: func(call contracts.Call) contracts.Result {
			if call.CallData[0] == 1 {
				return contracts.Result{Success: false}
			}
			return contracts.Result{Success: true, ReturnData: call.CallData}
		},
	}
	client := multicall.NewClient(caller, defaultConfig(), multicallAddress, log.NewNopLogger())

	results, err := client.Execute(context.Background(), makeCalls(3))
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.True(t, results[0].Success)
	require.False(t, results[1].Success)
	require.Equal(t, []byte{}, results[1].ReturnData)
	require.True(t, results[2].Success)
}

func TestClient_Execute_Disabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Enabled = false
	client := multicall.NewClient(&fakeCaller{}, cfg, multicallAddress, log.NewNopLogger())

	_, err := client.Execute(context.Background(), makeCalls(1))
	require.ErrorIs(t, err, domain.ErrMulticallDisabled)
}

func TestClient_Execute_Empty(t *testing.T) {
	client := multicall.NewClient(&fakeCaller{}, defaultConfig(), multicallAddress, log.NewNopLogger())

	results, err := client.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestClient_Execute_CallError(t *testing.T) {
	callErr := errors.New("connection refused")
	client := multicall.NewClient(&fakeCaller{err: callErr}, defaultConfig(), multicallAddress, log.NewNopLogger())

	_, err := client.Execute(context.Background(), makeCalls(1))
	require.ErrorIs(t, err, callErr)
}

// blockingCaller stalls until the per-chunk deadline expires.
type blockingCaller struct{}

func (blockingCaller) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestClient_Execute_Timeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.TimeoutMs = 5
	client := multicall.NewClient(blockingCaller{}, cfg, multicallAddress, log.NewNopLogger())

	_, err := client.Execute(context.Background(), makeCalls(1))
	require.ErrorIs(t, err, domain.ErrMulticallTimeout)
}
