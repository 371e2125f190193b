package main

import (
	"github.com/pulsedex-labs/pqs/domain"
)

// DefaultConfig defines the default config for the pulse quote server,
// targeting PulseChain mainnet.
var DefaultConfig = domain.Config{
	ServerAddress: ":9092",

	LoggerFilename:     "pqs.log",
	LoggerIsProduction: true,
	LoggerLevel:        "info",

	ChainID: 369,

	RPC: domain.RPCConfig{
		Endpoints: []string{
			"https://rpc.pulsechain.com",
			"https://pulsechain-rpc.publicnode.com",
		},
		StallTimeoutMs: 1200,
		RetryCount:     2,
		RetryDelayMs:   200,
		CooldownMs:     30_000,
	},

	Contracts: domain.ContractsConfig{
		FactoryV1:  "0x1715a3E4A142d8b698131108995174F37aEBA10D",
		FactoryV2:  "0x29eA7545DEf87022BAdc76323F373EA1e707C523",
		RouterV2:   "0x165C3410fC91EF562C50559f7d2289fEbed552d9",
		StablePool: "0xE3acFA6C40d53C3faf2aa62D0a715C737071511c",
		Multicall:  "0xcA11bde05977b3631167028862bE2a173976CA11",
	},

	Tokens: domain.TokensConfig{
		WrappedNative: "0xA1077a294dDE1B09bB078844df40758a5D0f9a27",
		Connectors: []string{
			"0xA1077a294dDE1B09bB078844df40758a5D0f9a27", // WPLS
			"0x95B303987A60C71504D99Aa1b13B4DA07b0790ab", // PLSX
			"0x2b591e99afE9f32eAA6214f7B7629768c40Eeb39", // HEX
			"0x15D38573d2feeb82e7ad5187aB8c1D52810B1f07", // USDC
			"0x0Cb6F5a34ad42ec934882A05265A7d5F59b51A2f", // USDT
			"0xefD766cCb38EaF1dfd701853BFCe31359239F305", // DAI
		},
		Stables: []string{
			"0x15D38573d2feeb82e7ad5187aB8c1D52810B1f07", // USDC
			"0x0Cb6F5a34ad42ec934882A05265A7d5F59b51A2f", // USDT
			"0xefD766cCb38EaF1dfd701853BFCe31359239F305", // DAI
		},
		CoreConnectors: []string{
			"0xA1077a294dDE1B09bB078844df40758a5D0f9a27", // WPLS
			"0x15D38573d2feeb82e7ad5187aB8c1D52810B1f07", // USDC
			"0x95B303987A60C71504D99Aa1b13B4DA07b0790ab", // PLSX
		},
		USDStable: "0x15D38573d2feeb82e7ad5187aB8c1D52810B1f07",
	},

	Routing: domain.RoutingConfig{
		MaxConnectorHops:     1,
		StableRoutingEnabled: true,
		StableAsConnector:    true,
		MaxStablePivots:      4,
		FeeBpsV1:             29,
		FeeBpsV2:             29,
		ReservesCacheTTLMs:   15_000,
		StableIndexTTLMs:     300_000,
	},

	Quote: domain.QuoteConfig{
		TimeoutMs:      3_000,
		Concurrency:    6,
		MaxRoutes:      40,
		TotalTimeoutMs: 6_000,
	},

	Split: domain.SplitConfig{
		Enabled:           true,
		WeightsBps:        []int64{1_000, 2_000, 3_000, 4_000, 5_000, 6_000, 7_000, 8_000, 9_000},
		MaxRoutes:         3,
		MinImprovementBps: 0,
		MinUSDValue:       0,
	},

	Gas: domain.GasConfig{
		BaseUnits:   150_000,
		PerLegUnits: 120_000,
	},

	Multicall: domain.MulticallConfig{
		Enabled:      true,
		MaxBatchSize: 50,
		TimeoutMs:    2_000,
	},

	Pricing: domain.PricingConfig{
		CacheTTLMs:    15_000,
		NegativeTTLMs: 15_000,
	},

	CORS: domain.CORSConfig{
		AllowedHeaders: "Origin, Accept, Content-Type, X-Requested-With, X-Server-Time",
		AllowedMethods: "GET, OPTIONS",
		AllowedOrigin:  "*",
	},
}
