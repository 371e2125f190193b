package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pulsedex-labs/pqs/chain/client"
	"github.com/pulsedex-labs/pqs/chain/multicall"
	poolsUseCase "github.com/pulsedex-labs/pqs/pools/usecase"
	tokensUseCase "github.com/pulsedex-labs/pqs/tokens/usecase"
	pricingChain "github.com/pulsedex-labs/pqs/tokens/usecase/pricing/chain"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
	"github.com/pulsedex-labs/pqs/middleware"

	routerHttpDelivery "github.com/pulsedex-labs/pqs/router/delivery/http"
	routerUseCase "github.com/pulsedex-labs/pqs/router/usecase"

	systemhttpdelivery "github.com/pulsedex-labs/pqs/system/delivery/http"
)

// QuoteServer defines an interface for the pulse quote server.
// It wires the RPC provider pool into the quoting pipeline and exposes the
// quote endpoint over HTTP.
type QuoteServer interface {
	GetRouterUsecase() mvc.RouterUsecase
	GetTokensUsecase() mvc.TokensUsecase
	GetLogger() log.Logger
	Shutdown(context.Context) error
	Start(context.Context) error
}

type quoteServer struct {
	routerUsecase mvc.RouterUsecase
	tokensUsecase mvc.TokensUsecase
	e             *echo.Echo
	address       string
	logger        log.Logger
}

// GetRouterUsecase implements QuoteServer.
func (s *quoteServer) GetRouterUsecase() mvc.RouterUsecase {
	return s.routerUsecase
}

// GetTokensUsecase implements QuoteServer.
func (s *quoteServer) GetTokensUsecase() mvc.TokensUsecase {
	return s.tokensUsecase
}

// GetLogger implements QuoteServer.
func (s *quoteServer) GetLogger() log.Logger {
	return s.logger
}

// Shutdown implements QuoteServer.
func (s *quoteServer) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Start implements QuoteServer.
func (s *quoteServer) Start(context.Context) error {
	s.logger.Info("Starting pulse quote server", zap.String("address", s.address))
	return s.e.Start(s.address)
}

// NewQuoteServer creates a new pulse quote server. It validates the configured
// RPC endpoints before returning; an unreachable chain fails construction.
func NewQuoteServer(ctx context.Context, config domain.Config, logger log.Logger) (QuoteServer, error) {
	// Setup echo server
	e := echo.New()
	middleware := middleware.InitMiddleware(&config.CORS)
	e.Use(middleware.CORS)
	e.Use(middleware.InstrumentMiddleware)

	// Initialize the provider pool and ensure the chain is reachable.
	pool := client.NewPool(config.RPC, config.ChainID, nil, logger.Named("rpc"))
	if err := pool.Initialize(ctx); err != nil {
		return nil, err
	}

	contracts, err := parseContracts(config.Contracts)
	if err != nil {
		return nil, err
	}
	wrappedNative, err := parseAddress("tokens.wrapped-native", config.Tokens.WrappedNative)
	if err != nil {
		return nil, err
	}
	usdStable, err := parseAddress("tokens.usd-stable", config.Tokens.USDStable)
	if err != nil {
		return nil, err
	}
	connectors, err := parseAddresses("tokens.connectors", config.Tokens.Connectors)
	if err != nil {
		return nil, err
	}
	stables, err := parseAddresses("tokens.stables", config.Tokens.Stables)
	if err != nil {
		return nil, err
	}
	coreConnectors, err := parseAddresses("tokens.core-connectors", config.Tokens.CoreConnectors)
	if err != nil {
		return nil, err
	}
	if len(connectors) == 0 || connectors[0] != wrappedNative {
		return nil, fmt.Errorf("tokens.connectors must start with the wrapped native token")
	}

	// Initialize the on-chain read layer.
	mc := multicall.NewClient(pool, config.Multicall, contracts.multicall, logger.Named("multicall"))
	factories := map[domain.Venue]common.Address{
		domain.VenueCPMMV1: contracts.factoryV1,
		domain.VenueCPMMV2: contracts.factoryV2,
	}
	reservesUsecase := poolsUseCase.NewReservesUsecase(pool, mc, factories, config.Routing.ReservesCacheTTL(), logger.Named("reserves"))
	stableUsecase := poolsUseCase.NewStableUsecase(pool, contracts.stablePool, config.Routing.StableIndexTTL(), logger.Named("stable"))
	peripheryUsecase := poolsUseCase.NewPeripheryUsecase(pool, contracts.routerV2, logger.Named("periphery"))

	// Initialize tokens usecase and the on-chain price oracle.
	tokensUsecase := tokensUseCase.NewTokensUsecase(pool, wrappedNative, logger.Named("tokens"))
	pricingSource := pricingChain.New(reservesUsecase, tokensUsecase, wrappedNative, usdStable, config.Pricing, logger.Named("pricing"))

	// Initialize the quoting pipeline.
	enumerator := routerUseCase.NewEnumerator(connectors, stables, config.Routing)
	simulator := routerUseCase.NewSimulator(reservesUsecase, stableUsecase, contracts.stablePool, config.Routing)
	routerUsecase := routerUseCase.NewRouterUsecase(
		enumerator,
		simulator,
		reservesUsecase,
		stableUsecase,
		pricingSource,
		tokensUsecase,
		pool,
		peripheryUsecase,
		&config,
		contracts.routerV2,
		connectors,
		coreConnectors,
		logger.Named("router"),
	)

	// HTTP handlers
	routerHttpDelivery.NewRouterHandler(e, routerUsecase, tokensUsecase, logger)
	systemhttpdelivery.NewSystemHandler(e, config, logger, pool)

	return &quoteServer{
		routerUsecase: routerUsecase,
		tokensUsecase: tokensUsecase,
		logger:        logger,
		e:             e,
		address:       config.ServerAddress,
	}, nil
}

type contractAddresses struct {
	factoryV1  common.Address
	factoryV2  common.Address
	routerV2   common.Address
	stablePool common.Address
	multicall  common.Address
}

func parseContracts(cfg domain.ContractsConfig) (contractAddresses, error) {
	var (
		parsed contractAddresses
		err    error
	)
	if parsed.factoryV1, err = parseAddress("contracts.factory-v1", cfg.FactoryV1); err != nil {
		return contractAddresses{}, err
	}
	if parsed.factoryV2, err = parseAddress("contracts.factory-v2", cfg.FactoryV2); err != nil {
		return contractAddresses{}, err
	}
	if parsed.routerV2, err = parseAddress("contracts.router-v2", cfg.RouterV2); err != nil {
		return contractAddresses{}, err
	}
	if parsed.stablePool, err = parseAddress("contracts.stable-pool", cfg.StablePool); err != nil {
		return contractAddresses{}, err
	}
	if parsed.multicall, err = parseAddress("contracts.multicall", cfg.Multicall); err != nil {
		return contractAddresses{}, err
	}
	return parsed, nil
}

func parseAddress(key, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("config key %s: %q is not a hex address", key, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAddresses(key string, raws []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(raws))
	for _, raw := range raws {
		address, err := parseAddress(key, raw)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, nil
}
