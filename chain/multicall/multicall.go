// Package multicall batches independent read calls through the deployed
// Multicall aggregator so a quote prewarm costs a handful of RPC round trips
// instead of one per pool.
package multicall

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pulsedex-labs/pqs/chain/contracts"
	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
)

// Client executes batched aggregate calls against the multicall contract.
type Client struct {
	caller  mvc.ContractCaller
	cfg     domain.MulticallConfig
	address common.Address
	logger  log.Logger
}

// NewClient creates a multicall client over the given contract caller.
func NewClient(caller mvc.ContractCaller, cfg domain.MulticallConfig, address common.Address, logger log.Logger) *Client {
	return &Client{
		caller:  caller,
		cfg:     cfg,
		address: address,
		logger:  logger,
	}
}

// Enabled reports whether batching is switched on.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// Execute runs the given calls through aggregate, chunked to the configured
// batch size. Results come back positionally aligned with the input; a failed
// inner call is reported as an unsuccessful Result, not an error. The whole
// batch fails only when the aggregate call itself cannot complete.
func (c *Client) Execute(ctx context.Context, calls []contracts.Call) ([]contracts.Result, error) {
	if !c.cfg.Enabled {
		return nil, domain.ErrMulticallDisabled
	}
	if len(calls) == 0 {
		return []contracts.Result{}, nil
	}

	batchSize := c.cfg.MaxBatchSize
	if batchSize <= 0 {
		batchSize = len(calls)
	}

	results := make([]contracts.Result, 0, len(calls))
	for start := 0; start < len(calls); start += batchSize {
		end := start + batchSize
		if end > len(calls) {
			end = len(calls)
		}

		chunk, err := c.executeChunk(ctx, calls[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}
	return results, nil
}

func (c *Client) executeChunk(ctx context.Context, calls []contracts.Call) ([]contracts.Result, error) {
	input, err := contracts.MulticallABI.Pack("aggregate", calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate: %w", err)
	}

	callCtx := ctx
	if timeout := c.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := c.caller.CallContract(callCtx, ethereum.CallMsg{
		To:   &c.address,
		Data: input,
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %d call(s)", domain.ErrMulticallTimeout, len(calls))
		}
		return nil, err
	}
	if len(output) == 0 {
		return nil, domain.ErrMulticallEmpty
	}

	results, err := contracts.UnpackMulticall(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMulticallEmpty, err)
	}
	if len(results) != len(calls) {
		c.logger.Warn("multicall result count mismatch",
			zap.Int("calls", len(calls)),
			zap.Int("results", len(results)))
		return nil, fmt.Errorf("%w: %d result(s) for %d call(s)", domain.ErrMulticallEmpty, len(results), len(calls))
	}
	return results, nil
}
