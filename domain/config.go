package domain

import "time"

// Config defines the config for the pulse quote server.
type Config struct {
	// Defines the web server configuration.
	ServerAddress string `mapstructure:"server-address"`

	// Defines the logger configuration.
	LoggerFilename     string `mapstructure:"logger-filename"`
	LoggerIsProduction bool   `mapstructure:"logger-is-production"`
	LoggerLevel        string `mapstructure:"logger-level"`

	ChainID uint64 `mapstructure:"chain-id"`

	RPC       RPCConfig       `mapstructure:"rpc"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Tokens    TokensConfig    `mapstructure:"tokens"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Quote     QuoteConfig     `mapstructure:"quote"`
	Split     SplitConfig     `mapstructure:"split"`
	Gas       GasConfig       `mapstructure:"gas"`
	Multicall MulticallConfig `mapstructure:"multicall"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// CORSConfig defines the CORS handler configuration.
type CORSConfig struct {
	AllowedHeaders string `mapstructure:"allowed-headers"`
	AllowedMethods string `mapstructure:"allowed-methods"`
	AllowedOrigin  string `mapstructure:"allowed-origin"`
}

// RPCConfig configures the fault-tolerant provider pool.
type RPCConfig struct {
	// Endpoints in priority order. The first validated endpoint is preferred.
	Endpoints []string `mapstructure:"endpoints"`

	StallTimeoutMs int `mapstructure:"stall-timeout-ms"`
	RetryCount     int `mapstructure:"retry-count"`
	RetryDelayMs   int `mapstructure:"retry-delay-ms"`
	CooldownMs     int `mapstructure:"cooldown-ms"`
	// Cooldown applied on rate-limited failures. When zero, defaults to
	// max(2 * CooldownMs, 60000).
	RateLimitCooldownMs int `mapstructure:"rate-limit-cooldown-ms"`
}

// StallTimeout returns the per-call stall timeout.
func (c RPCConfig) StallTimeout() time.Duration {
	return time.Duration(c.StallTimeoutMs) * time.Millisecond
}

// RetryDelay returns the fixed inter-attempt delay.
func (c RPCConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// Cooldown returns the circuit-breaker cooldown for transient failures.
func (c RPCConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// RateLimitCooldown returns the circuit-breaker cooldown for rate-limited failures.
func (c RPCConfig) RateLimitCooldown() time.Duration {
	ms := c.RateLimitCooldownMs
	if ms == 0 {
		ms = 2 * c.CooldownMs
		if ms < 60_000 {
			ms = 60_000
		}
	}
	return time.Duration(ms) * time.Millisecond
}

// ContractsConfig holds the venue contract addresses.
type ContractsConfig struct {
	FactoryV1  string `mapstructure:"factory-v1"`
	FactoryV2  string `mapstructure:"factory-v2"`
	RouterV2   string `mapstructure:"router-v2"`
	StablePool string `mapstructure:"stable-pool"`
	Multicall  string `mapstructure:"multicall"`
}

// TokensConfig holds the routing token lists.
type TokensConfig struct {
	// WrappedNative is the ERC-20 counterpart of the chain's native coin.
	// It must be the first entry of Connectors.
	WrappedNative string `mapstructure:"wrapped-native"`
	// Connectors are the intermediate tokens used to construct multi-hop routes.
	Connectors []string `mapstructure:"connectors"`
	// Stables is a proper subset of Connectors covered by the stable pool.
	Stables []string `mapstructure:"stables"`
	// CoreConnectors are the pivots tried by the direct route fallback.
	CoreConnectors []string `mapstructure:"core-connectors"`
	// USDStable is the canonical USD stablecoin used by the price oracle.
	USDStable string `mapstructure:"usd-stable"`
}

// RoutingConfig configures candidate route generation and reserve caching.
type RoutingConfig struct {
	MaxConnectorHops     int  `mapstructure:"max-connector-hops"`
	StableRoutingEnabled bool `mapstructure:"stable-routing-enabled"`
	// StableAsConnector enables stable-pool pivot candidates for routes with
	// exactly one stable endpoint.
	StableAsConnector bool `mapstructure:"stable-as-connector"`
	MaxStablePivots   int  `mapstructure:"max-stable-pivots"`

	FeeBpsV1 int64 `mapstructure:"fee-bps-v1"`
	FeeBpsV2 int64 `mapstructure:"fee-bps-v2"`

	ReservesCacheTTLMs int `mapstructure:"reserves-cache-ttl-ms"`
	StableIndexTTLMs   int `mapstructure:"stable-index-ttl-ms"`
}

// FeeBps returns the CPMM fee for the given venue in basis points.
func (c RoutingConfig) FeeBps(venue Venue) int64 {
	if venue == VenueCPMMV1 {
		return c.FeeBpsV1
	}
	return c.FeeBpsV2
}

// ReservesCacheTTL returns the reserve cache TTL.
func (c RoutingConfig) ReservesCacheTTL() time.Duration {
	return time.Duration(c.ReservesCacheTTLMs) * time.Millisecond
}

// StableIndexTTL returns the stable-pool index map TTL.
func (c RoutingConfig) StableIndexTTL() time.Duration {
	return time.Duration(c.StableIndexTTLMs) * time.Millisecond
}

// QuoteConfig configures quote evaluation.
type QuoteConfig struct {
	// TimeoutMs is the base per-call and per-route timeout.
	TimeoutMs int `mapstructure:"timeout-ms"`
	// Concurrency bounds parallel route simulations.
	Concurrency int `mapstructure:"concurrency"`
	// MaxRoutes bounds the number of candidates evaluated per request.
	MaxRoutes int `mapstructure:"max-routes"`
	// TotalTimeoutMs is the whole-quote budget.
	TotalTimeoutMs int `mapstructure:"total-timeout-ms"`
}

// Timeout returns the base per-route timeout.
func (c QuoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// TotalTimeout returns the whole-quote budget.
func (c QuoteConfig) TotalTimeout() time.Duration {
	return time.Duration(c.TotalTimeoutMs) * time.Millisecond
}

// SplitConfig configures the pairwise split search.
type SplitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// WeightsBps are the candidate share weights in basis points, exclusive of 0 and 10000.
	WeightsBps []int64 `mapstructure:"weights-bps"`
	// MaxRoutes is the number of top-ranked routes considered for splitting.
	MaxRoutes int `mapstructure:"max-routes"`
	// MinImprovementBps is the minimum improvement over the best single route
	// required to accept a split.
	MinImprovementBps int64 `mapstructure:"min-improvement-bps"`
	// MinUSDValue is the minimum input notional for the split search to run.
	MinUSDValue float64 `mapstructure:"min-usd-value"`
}

// GasConfig configures the static gas model.
type GasConfig struct {
	BaseUnits   uint64 `mapstructure:"base-units"`
	PerLegUnits uint64 `mapstructure:"per-leg-units"`
}

// MulticallConfig configures the batched read client.
type MulticallConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	MaxBatchSize int  `mapstructure:"max-batch-size"`
	TimeoutMs    int  `mapstructure:"timeout-ms"`
}

// Timeout returns the per-batch timeout.
func (c MulticallConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// PricingConfig configures the price oracle caches.
type PricingConfig struct {
	CacheTTLMs int `mapstructure:"cache-ttl-ms"`
	// NegativeTTLMs is the TTL for failed lookups.
	NegativeTTLMs int `mapstructure:"negative-ttl-ms"`
}

// CacheTTL returns the positive price cache TTL.
func (c PricingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMs) * time.Millisecond
}

// NegativeTTL returns the negative price cache TTL.
func (c PricingConfig) NegativeTTL() time.Duration {
	return time.Duration(c.NegativeTTLMs) * time.Millisecond
}
