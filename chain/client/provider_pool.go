// Package client implements the fault-tolerant JSON-RPC provider pool: a
// prioritized set of endpoints behind a single read-only interface, with a
// per-endpoint circuit breaker and retry fallback across endpoints.
package client

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/log"
)

// defaultGasPriceWei is used when every fee source fails (1 gwei).
var defaultGasPriceWei = big.NewInt(1_000_000_000)

// nodeClient is the subset of ethclient.Client the pool uses.
// Abstracted for test injection.
type nodeClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

type dialFunc func(ctx context.Context, url string) (nodeClient, error)

func dialEthclient(ctx context.Context, url string) (nodeClient, error) {
	return ethclient.DialContext(ctx, url)
}

// endpoint is one prioritized provider entry with its circuit breaker state.
type endpoint struct {
	url    string
	client nodeClient
	// failedUntil is a unix-millisecond timestamp. While now < failedUntil,
	// calls are rejected locally with ErrRPCCooldown. Races on this value can
	// only cause an extra transient rejection, never silent use of a broken
	// endpoint beyond one extra attempt.
	failedUntil atomic.Int64
}

// Pool is the fault-tolerant RPC provider pool.
type Pool struct {
	cfg        domain.RPCConfig
	chainID    uint64
	classifier *Classifier
	logger     log.Logger
	dial       dialFunc

	mu          sync.Mutex
	initialized atomic.Bool
	endpoints   []*endpoint
}

// NewPool creates an uninitialized provider pool.
func NewPool(cfg domain.RPCConfig, chainID uint64, classifier *Classifier, logger log.Logger) *Pool {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Pool{
		cfg:        cfg,
		chainID:    chainID,
		classifier: classifier,
		logger:     logger,
		dial:       dialEthclient,
	}
}

// Initialize validates every configured endpoint by fetching its chain id and
// current block number. Endpoints that fail validation are dropped; if none
// pass, Initialize fails with ErrRPCUnavailable. Idempotent after first
// success; on failure the next call re-validates from scratch.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized.Load() {
		return nil
	}

	validated := make([]*endpoint, 0, len(p.cfg.Endpoints))
	for _, url := range p.cfg.Endpoints {
		client, err := p.validateEndpoint(ctx, url)
		if err != nil {
			p.logger.Warn("dropping RPC endpoint", zap.String("url", url), zap.Error(err))
			continue
		}
		validated = append(validated, &endpoint{url: url, client: client})
	}

	if len(validated) == 0 {
		return fmt.Errorf("%w: %d endpoint(s) configured, none validated", domain.ErrRPCUnavailable, len(p.cfg.Endpoints))
	}

	p.endpoints = validated
	p.initialized.Store(true)
	p.logger.Info("RPC provider pool initialized", zap.Int("endpoints", len(validated)))
	return nil
}

func (p *Pool) validateEndpoint(ctx context.Context, url string) (nodeClient, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.StallTimeout())
	defer cancel()

	client, err := p.dial(dialCtx, url)
	if err != nil {
		return nil, err
	}

	chainIDCtx, cancel := context.WithTimeout(ctx, p.cfg.StallTimeout())
	defer cancel()
	chainID, err := client.ChainID(chainIDCtx)
	if err != nil {
		return nil, err
	}
	if chainID == nil || !chainID.IsUint64() || chainID.Uint64() != p.chainID {
		return nil, fmt.Errorf("chain id mismatch: want %d, got %v", p.chainID, chainID)
	}

	blockCtx, cancel := context.WithTimeout(ctx, p.cfg.StallTimeout())
	defer cancel()
	if _, err := client.BlockNumber(blockCtx); err != nil {
		return nil, err
	}

	return client, nil
}

// do runs one logical operation with up to retryCount+1 attempts across the
// prioritized endpoints. Only transient errors (including local cooldown
// rejections) are retried; after exhaustion the last error surfaces wrapped
// in ErrRPCExhausted.
func (p *Pool) do(ctx context.Context, op string, fn func(ctx context.Context, client nodeClient) error) error {
	if !p.initialized.Load() {
		return domain.ErrRPCNotInitialized
	}

	var lastErr error
	for attempt := 0; attempt <= p.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.RetryDelay()):
			}
		}

		for _, ep := range p.endpoints {
			err := p.callEndpoint(ctx, ep, fn)
			if err == nil {
				return nil
			}

			if !p.classifier.Classify(err).Transient {
				return err
			}
			lastErr = err
		}
	}

	p.logger.Error("RPC operation exhausted all attempts", zap.String("op", op), zap.Error(lastErr))
	return fmt.Errorf("%w: %s: %w", domain.ErrRPCExhausted, op, lastErr)
}

func (p *Pool) callEndpoint(ctx context.Context, ep *endpoint, fn func(ctx context.Context, client nodeClient) error) error {
	if time.Now().UnixMilli() < ep.failedUntil.Load() {
		return domain.ErrRPCCooldown
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.StallTimeout())
	defer cancel()

	err := fn(callCtx, ep.client)
	if err == nil {
		if ep.failedUntil.Swap(0) != 0 {
			p.logger.Info("RPC endpoint recovered", zap.String("url", ep.url))
		}
		return nil
	}

	classification := p.classifier.Classify(err)
	if classification.Transient {
		cooldown := p.cfg.Cooldown()
		if classification.RateLimited {
			cooldown = p.cfg.RateLimitCooldown()
		}
		ep.failedUntil.Store(time.Now().Add(cooldown).UnixMilli())
		p.logger.Warn("RPC endpoint entering cooldown",
			zap.String("url", ep.url),
			zap.Duration("cooldown", cooldown),
			zap.Bool("rate_limited", classification.RateLimited),
			zap.Error(err))
	}
	return err
}

// CallContract implements mvc.ContractCaller against the latest block.
func (p *Pool) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var result []byte
	err := p.do(ctx, "eth_call", func(ctx context.Context, client nodeClient) error {
		data, err := client.CallContract(ctx, msg, nil)
		if err != nil {
			return err
		}
		result = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BlockNumber returns the current block number.
func (p *Pool) BlockNumber(ctx context.Context) (uint64, error) {
	var result uint64
	err := p.do(ctx, "eth_blockNumber", func(ctx context.Context, client nodeClient) error {
		number, err := client.BlockNumber(ctx)
		if err != nil {
			return err
		}
		result = number
		return nil
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// GasPrice implements mvc.FeeSource. It prefers the legacy gas price, falls
// back to the suggested tip cap, and finally to a 1 gwei default; the return
// is always usable.
func (p *Pool) GasPrice(ctx context.Context) *big.Int {
	var result *big.Int
	err := p.do(ctx, "eth_gasPrice", func(ctx context.Context, client nodeClient) error {
		price, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}
		result = price
		return nil
	})
	if err == nil && result != nil && result.Sign() > 0 {
		return result
	}

	err = p.do(ctx, "eth_maxPriorityFeePerGas", func(ctx context.Context, client nodeClient) error {
		tip, err := client.SuggestGasTipCap(ctx)
		if err != nil {
			return err
		}
		result = tip
		return nil
	})
	if err == nil && result != nil && result.Sign() > 0 {
		return result
	}

	return new(big.Int).Set(defaultGasPriceWei)
}

// Healthy reports whether the pool is initialized and at least one endpoint
// is outside its cooldown window.
func (p *Pool) Healthy() bool {
	if !p.initialized.Load() {
		return false
	}
	now := time.Now().UnixMilli()
	for _, ep := range p.endpoints {
		if now >= ep.failedUntil.Load() {
			return true
		}
	}
	return false
}
