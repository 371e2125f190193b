package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulsedex-labs/pqs/chain/contracts"
	"github.com/pulsedex-labs/pqs/chain/multicall"
	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/cache"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
)

var (
	reservesCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pqs_reserves_cache_hits_total",
		Help: "Total number of reserve cache hits.",
	})
	reservesCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pqs_reserves_cache_misses_total",
		Help: "Total number of reserve cache misses.",
	})
)

func init() {
	prometheus.MustRegister(reservesCacheHits)
	prometheus.MustRegister(reservesCacheMisses)
}

// prewarmMinRemaining is the smallest budget worth spending on the slower
// per-pair fallback during a prewarm.
const prewarmMinRemaining = time.Second

// prewarmFallbackConcurrency bounds direct pair reads when multicall is off.
const prewarmFallbackConcurrency = 8

type reservesUsecase struct {
	caller    mvc.ContractCaller
	mc        *multicall.Client
	factories map[domain.Venue]common.Address
	ttl       time.Duration
	cache     *cache.Cache
	logger    log.Logger
}

var _ mvc.ReservesUsecase = &reservesUsecase{}

// NewReservesUsecase creates the CPMM pair reserve loader. Lookups that find
// no pair are cached as negative entries with the same TTL so repeated quotes
// for unlisted pairs do not hit the chain.
func NewReservesUsecase(
	caller mvc.ContractCaller,
	mc *multicall.Client,
	factories map[domain.Venue]common.Address,
	ttl time.Duration,
	logger log.Logger,
) mvc.ReservesUsecase {
	return &reservesUsecase{
		caller:    caller,
		mc:        mc,
		factories: factories,
		ttl:       ttl,
		cache:     cache.New(),
		logger:    logger,
	}
}

// GetPairReserves returns the reserves of the venue's pair for the given
// tokens, oriented to the swap direction. A (nil, nil) return means the venue
// has no pair for the tokens.
func (r *reservesUsecase) GetPairReserves(ctx context.Context, venue domain.Venue, tokenIn, tokenOut common.Address) (*domain.MappedReserves, error) {
	if !venue.IsCPMM() {
		return nil, domain.UnsupportedVenueError{Venue: venue.String()}
	}

	key := domain.ReserveCacheKey(venue, tokenIn, tokenOut)
	if cached, found := r.cache.Get(key); found {
		reservesCacheHits.Inc()
		if cached == nil {
			return nil, nil
		}
		return r.orient(cached.(*domain.PairReserves), tokenIn, tokenOut)
	}
	reservesCacheMisses.Inc()

	reserves, err := r.fetchPair(ctx, venue, tokenIn, tokenOut)
	if err != nil {
		// A failed read is cached as a negative entry so retries inside the
		// TTL do not hammer a struggling endpoint.
		r.cache.Set(key, nil, r.ttl)
		return nil, err
	}
	if reserves == nil {
		r.cache.Set(key, nil, r.ttl)
		return nil, nil
	}

	r.cache.Set(key, reserves, r.ttl)
	return r.orient(reserves, tokenIn, tokenOut)
}

func (r *reservesUsecase) orient(reserves *domain.PairReserves, tokenIn, tokenOut common.Address) (*domain.MappedReserves, error) {
	mapped, ok := reserves.MapTo(tokenIn, tokenOut)
	if !ok {
		return nil, fmt.Errorf("pair %s does not hold %s/%s", reserves.Pair.Hex(), tokenIn.Hex(), tokenOut.Hex())
	}
	return &mapped, nil
}

// IsCached reports whether a positive pair entry is live in the cache.
// Negative entries do not count; callers use this to favor legs that can
// simulate without a chain read.
func (r *reservesUsecase) IsCached(venue domain.Venue, a, b common.Address) bool {
	value, found := r.cache.Get(domain.ReserveCacheKey(venue, a, b))
	return found && value != nil
}

// fetchPair loads one pair from chain, preferring two multicall batches over
// per-call RPC reads. Returns nil when the factory has no pair.
func (r *reservesUsecase) fetchPair(ctx context.Context, venue domain.Venue, tokenA, tokenB common.Address) (*domain.PairReserves, error) {
	factory, ok := r.factories[venue]
	if !ok {
		return nil, domain.UnsupportedVenueError{Venue: venue.String()}
	}

	if r.mc != nil && r.mc.Enabled() {
		reserves, err := r.fetchPairMulticall(ctx, factory, tokenA, tokenB)
		if err == nil {
			return reserves, nil
		}
		r.logger.Debug("multicall pair read failed, falling back to direct reads", zap.Error(err))
	}

	pair, err := r.resolvePair(ctx, factory, tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	if pair == (common.Address{}) {
		return nil, nil
	}
	return r.readPair(ctx, pair)
}

// fetchPairMulticall loads one pair through the aggregator: getPair first,
// then token0, token1 and getReserves in a second batch.
func (r *reservesUsecase) fetchPairMulticall(ctx context.Context, factory, tokenA, tokenB common.Address) (*domain.PairReserves, error) {
	getPairInput, err := contracts.FactoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return nil, fmt.Errorf("pack getPair: %w", err)
	}
	results, err := r.mc.Execute(ctx, []contracts.Call{{Target: factory, CallData: getPairInput}})
	if err != nil {
		return nil, err
	}
	if !results[0].Success {
		return nil, fmt.Errorf("getPair reverted for %s/%s", tokenA.Hex(), tokenB.Hex())
	}
	pair, err := contracts.UnpackAddress(contracts.FactoryABI, "getPair", results[0].ReturnData)
	if err != nil {
		return nil, err
	}
	if pair == (common.Address{}) {
		return nil, nil
	}

	token0Input, err := contracts.PairABI.Pack("token0")
	if err != nil {
		return nil, err
	}
	token1Input, err := contracts.PairABI.Pack("token1")
	if err != nil {
		return nil, err
	}
	reservesInput, err := contracts.PairABI.Pack("getReserves")
	if err != nil {
		return nil, err
	}

	results, err = r.mc.Execute(ctx, []contracts.Call{
		{Target: pair, CallData: token0Input},
		{Target: pair, CallData: token1Input},
		{Target: pair, CallData: reservesInput},
	})
	if err != nil {
		return nil, err
	}
	if !results[0].Success || !results[1].Success || !results[2].Success {
		return nil, fmt.Errorf("pair read reverted for %s", pair.Hex())
	}

	token0, err := contracts.UnpackAddress(contracts.PairABI, "token0", results[0].ReturnData)
	if err != nil {
		return nil, err
	}
	token1, err := contracts.UnpackAddress(contracts.PairABI, "token1", results[1].ReturnData)
	if err != nil {
		return nil, err
	}
	reserve0, reserve1, err := contracts.UnpackReserves(results[2].ReturnData)
	if err != nil {
		return nil, err
	}
	return &domain.PairReserves{
		Pair:     pair,
		Token0:   token0,
		Token1:   token1,
		Reserve0: reserve0,
		Reserve1: reserve1,
	}, nil
}

func (r *reservesUsecase) resolvePair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	input, err := contracts.FactoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getPair: %w", err)
	}
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: input})
	if err != nil {
		return common.Address{}, err
	}
	return contracts.UnpackAddress(contracts.FactoryABI, "getPair", output)
}

func (r *reservesUsecase) readPair(ctx context.Context, pair common.Address) (*domain.PairReserves, error) {
	reserves := &domain.PairReserves{Pair: pair}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		token0, err := r.callAddress(groupCtx, pair, "token0")
		if err != nil {
			return err
		}
		reserves.Token0 = token0
		return nil
	})
	group.Go(func() error {
		token1, err := r.callAddress(groupCtx, pair, "token1")
		if err != nil {
			return err
		}
		reserves.Token1 = token1
		return nil
	})
	group.Go(func() error {
		input, err := contracts.PairABI.Pack("getReserves")
		if err != nil {
			return fmt.Errorf("pack getReserves: %w", err)
		}
		output, err := r.caller.CallContract(groupCtx, ethereum.CallMsg{To: &pair, Data: input})
		if err != nil {
			return err
		}
		reserve0, reserve1, err := contracts.UnpackReserves(output)
		if err != nil {
			return err
		}
		reserves.Reserve0 = reserve0
		reserves.Reserve1 = reserve1
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return reserves, nil
}

func (r *reservesUsecase) callAddress(ctx context.Context, target common.Address, method string) (common.Address, error) {
	input, err := contracts.PairABI.Pack(method)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &target, Data: input})
	if err != nil {
		return common.Address{}, err
	}
	return contracts.UnpackAddress(contracts.PairABI, method, output)
}

// prewarmTarget is one unique uncached pair a prewarm has to load.
type prewarmTarget struct {
	venue  domain.Venue
	tokenA common.Address
	tokenB common.Address
	key    string
	pair   common.Address
}

// Prewarm loads every uncached CPMM pair the given legs reference before the
// deadline, preferring two multicall rounds (pair resolution, then pair
// reads) over per-pair RPC calls. Best effort: failures are logged, never
// returned, and partial results still land in the cache.
func (r *reservesUsecase) Prewarm(ctx context.Context, legs []domain.RouteLeg, deadline time.Time) {
	targets := r.collectTargets(legs)
	if len(targets) == 0 {
		return
	}

	prewarmCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if r.mc != nil && r.mc.Enabled() {
		err := r.prewarmMulticall(prewarmCtx, targets)
		if err == nil {
			return
		}
		r.logger.Warn("multicall prewarm failed, falling back to direct reads", zap.Error(err))
	}

	if time.Until(deadline) < prewarmMinRemaining {
		r.logger.Debug("skipping direct prewarm, budget too small", zap.Int("pairs", len(targets)))
		return
	}
	r.prewarmDirect(prewarmCtx, targets)
}

func (r *reservesUsecase) collectTargets(legs []domain.RouteLeg) []prewarmTarget {
	seen := make(map[string]struct{}, len(legs))
	targets := make([]prewarmTarget, 0, len(legs))
	for _, leg := range legs {
		if !leg.Venue.IsCPMM() {
			continue
		}
		key := domain.ReserveCacheKey(leg.Venue, leg.TokenIn, leg.TokenOut)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, cached := r.cache.Get(key); cached {
			continue
		}
		targets = append(targets, prewarmTarget{
			venue:  leg.Venue,
			tokenA: leg.TokenIn,
			tokenB: leg.TokenOut,
			key:    key,
		})
	}
	return targets
}

func (r *reservesUsecase) prewarmMulticall(ctx context.Context, targets []prewarmTarget) error {
	// Round one: resolve pair addresses through the factories.
	calls := make([]contracts.Call, 0, len(targets))
	called := make([]prewarmTarget, 0, len(targets))
	for _, target := range targets {
		factory, ok := r.factories[target.venue]
		if !ok {
			continue
		}
		input, err := contracts.FactoryABI.Pack("getPair", target.tokenA, target.tokenB)
		if err != nil {
			return fmt.Errorf("pack getPair: %w", err)
		}
		calls = append(calls, contracts.Call{Target: factory, CallData: input})
		called = append(called, target)
	}

	results, err := r.mc.Execute(ctx, calls)
	if err != nil {
		return err
	}

	resolved := make([]prewarmTarget, 0, len(called))
	for i, result := range results {
		target := called[i]
		if !result.Success {
			continue
		}
		pair, err := contracts.UnpackAddress(contracts.FactoryABI, "getPair", result.ReturnData)
		if err != nil {
			continue
		}
		if pair == (common.Address{}) {
			r.cache.Set(target.key, nil, r.ttl)
			continue
		}
		target.pair = pair
		resolved = append(resolved, target)
	}
	if len(resolved) == 0 {
		return nil
	}

	// Round two: token0, token1 and getReserves for every resolved pair.
	token0Input, err := contracts.PairABI.Pack("token0")
	if err != nil {
		return err
	}
	token1Input, err := contracts.PairABI.Pack("token1")
	if err != nil {
		return err
	}
	reservesInput, err := contracts.PairABI.Pack("getReserves")
	if err != nil {
		return err
	}

	calls = make([]contracts.Call, 0, len(resolved)*3)
	for _, target := range resolved {
		calls = append(calls,
			contracts.Call{Target: target.pair, CallData: token0Input},
			contracts.Call{Target: target.pair, CallData: token1Input},
			contracts.Call{Target: target.pair, CallData: reservesInput},
		)
	}

	results, err = r.mc.Execute(ctx, calls)
	if err != nil {
		return err
	}

	for i, target := range resolved {
		token0Result, token1Result, reservesResult := results[i*3], results[i*3+1], results[i*3+2]
		if !token0Result.Success || !token1Result.Success || !reservesResult.Success {
			continue
		}
		token0, err0 := contracts.UnpackAddress(contracts.PairABI, "token0", token0Result.ReturnData)
		token1, err1 := contracts.UnpackAddress(contracts.PairABI, "token1", token1Result.ReturnData)
		reserve0, reserve1, err2 := contracts.UnpackReserves(reservesResult.ReturnData)
		if err0 != nil || err1 != nil || err2 != nil {
			continue
		}
		r.cache.Set(target.key, &domain.PairReserves{
			Pair:     target.pair,
			Token0:   token0,
			Token1:   token1,
			Reserve0: reserve0,
			Reserve1: reserve1,
		}, r.ttl)
	}
	return nil
}

func (r *reservesUsecase) prewarmDirect(ctx context.Context, targets []prewarmTarget) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(prewarmFallbackConcurrency)
	for _, target := range targets {
		target := target
		group.Go(func() error {
			if _, err := r.GetPairReserves(groupCtx, target.venue, target.tokenA, target.tokenB); err != nil {
				r.logger.Debug("prewarm pair read failed",
					zap.String("key", target.key),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = group.Wait()
}
