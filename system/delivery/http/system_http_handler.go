package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/labstack/echo/v4"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/log"
)

// ChainHealthSource reports the liveness of the RPC provider pool.
type ChainHealthSource interface {
	Healthy() bool
	BlockNumber(ctx context.Context) (uint64, error)
}

type SystemHandler struct {
	logger log.Logger
	chain  ChainHealthSource
	config domain.Config
}

// healthBlockTimeout bounds the block number probe in the healthcheck.
const healthBlockTimeout = 2 * time.Second

// NewSystemHandler will initialize the /debug/pprof resources endpoint
func NewSystemHandler(e *echo.Echo, config domain.Config, logger log.Logger, chain ChainHealthSource) {
	handler := &SystemHandler{
		logger: logger,
		chain:  chain,
		config: config,
	}

	// if debug mod, enable additional profiles that are too intensive
	// for production.
	if !config.LoggerIsProduction {
		runtime.SetMutexProfileFraction(2)
		runtime.SetBlockProfileRate(2)
	}

	e.GET("/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))
	e.GET("/debug/pprof/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	e.GET("/debug/pprof/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	e.GET("/debug/pprof/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	e.GET("/debug/pprof/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))

	e.GET("/healthcheck", handler.GetHealthStatus)
	e.GET("/config", handler.GetConfig)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// GetConfig returns the config for the quote service
func (h *SystemHandler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.config)
}

// GetHealthStatus handles health check requests against the RPC provider pool
func (h *SystemHandler) GetHealthStatus(c echo.Context) error {
	ctx := c.Request().Context()

	if !h.chain.Healthy() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "No healthy RPC endpoint available")
	}

	probeCtx, cancel := context.WithTimeout(ctx, healthBlockTimeout)
	defer cancel()

	blockNumber, err := h.chain.BlockNumber(probeCtx)
	if err != nil {
		h.logger.Error("Error fetching block number for healthcheck", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Error fetching block number from RPC")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"rpc_status":          "running",
		"chain_latest_height": fmt.Sprint(blockNumber),
	})
}
