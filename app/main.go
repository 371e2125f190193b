package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	pqslog "github.com/pulsedex-labs/pqs/log"
)

// envBindings maps config keys onto their environment variable overrides.
var envBindings = map[string]string{
	"rpc.stall-timeout-ms":          "RPC_STALL_TIMEOUT_MS",
	"rpc.retry-count":               "RPC_RETRY_COUNT",
	"rpc.retry-delay-ms":            "RPC_RETRY_DELAY_MS",
	"rpc.cooldown-ms":               "RPC_COOLDOWN_MS",
	"rpc.rate-limit-cooldown-ms":    "RPC_RATE_LIMIT_COOLDOWN_MS",
	"routing.max-connector-hops":    "MAX_CONNECTOR_HOPS",
	"routing.reserves-cache-ttl-ms": "RESERVES_CACHE_TTL_MS",
	"routing.stable-index-ttl-ms":   "STABLE_INDEX_TTL_MS",
	"pricing.cache-ttl-ms":          "PRICE_CACHE_TTL_MS",
	"quote.timeout-ms":              "QUOTE_TIMEOUT_MS",
	"quote.concurrency":             "QUOTE_CONCURRENCY",
	"quote.max-routes":              "QUOTE_MAX_ROUTES",
	"quote.total-timeout-ms":        "QUOTE_TOTAL_TIMEOUT_MS",
	"split.enabled":                 "SPLIT_ROUTES_ENABLED",
	"multicall.enabled":             "MULTICALL_ENABLED",
	"multicall.max-batch-size":      "MULTICALL_MAX_BATCH",
	"multicall.timeout-ms":          "MULTICALL_TIMEOUT_MS",
}

func main() {
	configPath := flag.String("config", "config.json", "config file location")

	isDebug := flag.Bool("debug", false, "debug mode")
	if *isDebug {
		log.Println("Service RUN on DEBUG mode")
	}

	// Parse the command-line arguments
	flag.Parse()

	fmt.Println("configPath", *configPath)

	viper.SetConfigFile(*configPath)
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			panic(err)
		}
	}

	// File and environment values overlay the built-in defaults.
	config := DefaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println("Error unmarshalling config:", err)
		return
	}

	// Handle SIGINT and SIGTERM signals to initiate shutdown
	exitChan := make(chan os.Signal, 1)
	signal.Notify(exitChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		if err := recover(); err != nil {
			log.Println(err)
			exitChan <- syscall.SIGTERM
		}
	}()

	// logger
	logger, err := pqslog.NewLogger(config.LoggerIsProduction, config.LoggerFilename, config.LoggerLevel)
	if err != nil {
		panic(fmt.Errorf("error while creating logger: %s", err))
	}
	logger.Info("Starting pulse quote server")

	// Use context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	quoteServer, err := NewQuoteServer(ctx, config, logger)
	if err != nil {
		panic(err)
	}

	go func() {
		<-exitChan
		cancel() // Trigger shutdown

		if err := quoteServer.Shutdown(context.Background()); err != nil {
			log.Fatal(err)
		}

		os.Exit(0)
	}()

	if err := quoteServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}
