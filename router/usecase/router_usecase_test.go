package usecase_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mocks"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
	"github.com/pulsedex-labs/pqs/router/usecase"
)

var (
	routerAddress     = common.HexToAddress("0x165C3410fC91EF562C50559f7d2289fEbed552d9")
	stablePoolAddress = common.HexToAddress("0xE3acFA6C40d53C3faf2aa62D0a715C737071511c")
)

type RouterUsecaseTestSuite struct {
	suite.Suite

	reserves  *mocks.ReservesMock
	stable    *mocks.StableMock
	pricing   *mocks.PricingMock
	tokens    *mocks.TokensMock
	fees      *mocks.FeeSourceMock
	periphery *mocks.PeripheryMock
	cfg       *domain.Config
}

func TestRouterUsecaseTestSuite(t *testing.T) {
	suite.Run(t, new(RouterUsecaseTestSuite))
}

func (s *RouterUsecaseTestSuite) SetupTest() {
	s.reserves = mocks.NewReservesMock()
	s.stable = &mocks.StableMock{Index: stableIndexMap(), RateBps: domain.BpsDenominator}
	s.pricing = &mocks.PricingMock{
		NativeUSD: 0.00004,
		Prices: map[string]float64{
			domain.AddrKey(wplsAddress): 0.00004,
			domain.AddrKey(usdcAddress): 1.0,
		},
	}
	s.tokens = &mocks.TokensMock{
		WrappedNative: wplsAddress,
		Decimals: map[string]uint8{
			domain.AddrKey(wplsAddress): 18,
			domain.AddrKey(usdcAddress): 6,
			domain.AddrKey(hexAddress):  8,
		},
	}
	s.fees = &mocks.FeeSourceMock{Price: big.NewInt(2_000_000_000)}
	s.periphery = &mocks.PeripheryMock{}
	s.cfg = &domain.Config{
		Routing: routingConfig(1),
		Quote: domain.QuoteConfig{
			TimeoutMs:      3_000,
			Concurrency:    6,
			MaxRoutes:      40,
			TotalTimeoutMs: 6_000,
		},
		Split: domain.SplitConfig{Enabled: false},
		Gas:   domain.GasConfig{BaseUnits: 150_000, PerLegUnits: 120_000},
	}
}

func (s *RouterUsecaseTestSuite) newRouter() mvc.RouterUsecase {
	enumerator := usecase.NewEnumerator(allConnectors, allStables, s.cfg.Routing)
	simulator := usecase.NewSimulator(s.reserves, s.stable, stablePoolAddress, s.cfg.Routing)
	return usecase.NewRouterUsecase(
		enumerator, simulator,
		s.reserves, s.stable, s.pricing, s.tokens, s.fees, s.periphery,
		s.cfg, routerAddress,
		allConnectors,
		[]common.Address{wplsAddress, usdcAddress, plsxAddress},
		log.NewNopLogger(),
	)
}

func (s *RouterUsecaseTestSuite) addPool(venue domain.Venue, pair string, token0, token1 common.Address, reserve0, reserve1 int64) {
	s.reserves.AddPool(venue, mocks.PoolState{
		Pair:     common.HexToAddress(pair),
		Token0:   token0,
		Token1:   token1,
		Reserve0: big.NewInt(reserve0),
		Reserve1: big.NewInt(reserve1),
	})
}

func (s *RouterUsecaseTestSuite) quoteRequest(tokenIn, tokenOut common.Address, amountIn int64) domain.QuoteRequest {
	return domain.QuoteRequest{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    big.NewInt(amountIn),
		SlippageBps: 50,
	}
}

func (s *RouterUsecaseTestSuite) TestSingleRoute() {
	s.addPool(domain.VenueCPMMV2, "0xAA01", wplsAddress, hexAddress, 1_000_000, 2_000_000)
	router := s.newRouter()

	result, err := router.GetQuote(context.Background(), s.quoteRequest(wplsAddress, hexAddress, 10_000))
	s.Require().NoError(err)

	s.Require().NotNil(result.Single)
	s.Require().Nil(result.Splits)
	s.Require().Equal("19745", result.TotalAmountOut.String())
	s.Require().Len(result.Single.Legs, 1)
	s.Require().Equal(domain.VenueCPMMV2, result.Single.Legs[0].Venue)
	s.Require().Equal(common.HexToAddress("0xAA01"), result.Single.Legs[0].Pool)

	// Gas uses the static model: base + one leg.
	s.Require().NotNil(result.Gas)
	s.Require().EqualValues(270_000, result.Gas.Units)
	s.Require().Equal(new(big.Int).Mul(big.NewInt(270_000), big.NewInt(2_000_000_000)), result.Gas.NativeWei)

	// Prewarm saw the candidate legs before evaluation.
	s.Require().NotEmpty(s.reserves.PrewarmedLegs)
}

// A stable entry leg into a deeper CPMM pool beats the direct CPMM route.
func (s *RouterUsecaseTestSuite) TestStablePivotPreferred() {
	s.addPool(domain.VenueCPMMV2, "0xAA02", usdcAddress, wplsAddress, 1_000_000, 2_000_000)
	s.addPool(domain.VenueCPMMV2, "0xAA03", usdtAddress, wplsAddress, 1_000_000, 3_000_000)
	router := s.newRouter()

	result, err := router.GetQuote(context.Background(), s.quoteRequest(usdcAddress, wplsAddress, 10_000))
	s.Require().NoError(err)

	s.Require().NotNil(result.Single)
	s.Require().Equal("29617", result.TotalAmountOut.String())
	s.Require().Len(result.Single.Legs, 2)
	s.Require().Equal(domain.VenueStable, result.Single.Legs[0].Venue)
	s.Require().Equal(stablePoolAddress, result.Single.Legs[0].Pool)
	s.Require().Equal(usdtAddress, result.Single.Legs[0].TokenOut)
}

// Stable-vs-CPMM tie on a stable pair resolves to the stable venue.
func (s *RouterUsecaseTestSuite) TestStableTieOnStablePair() {
	// The CPMM pool quotes 1_000 USDC -> 997 USDT; pin the stable quote to
	// the same output to force a genuine tie.
	s.stable.QuoteFn = func(i, j uint8, amount *big.Int) (*big.Int, error) {
		return big.NewInt(997), nil
	}
	s.reserves.AddPool(domain.VenueCPMMV2, mocks.PoolState{
		Pair:     common.HexToAddress("0xAA04"),
		Token0:   usdcAddress,
		Token1:   usdtAddress,
		Reserve0: big.NewInt(1_000_000_000),
		Reserve1: big.NewInt(1_000_000_000),
	})
	router := s.newRouter()

	result, err := router.GetQuote(context.Background(), s.quoteRequest(usdcAddress, usdtAddress, 1_000))
	s.Require().NoError(err)

	s.Require().Equal("997", result.TotalAmountOut.String())
	s.Require().Equal(domain.VenueStable, result.Single.Legs[0].Venue)
}

func (s *RouterUsecaseTestSuite) TestSplitBeatsSingle() {
	s.cfg.Split = domain.SplitConfig{
		Enabled:    true,
		WeightsBps: []int64{1_000, 2_000, 3_000, 4_000, 5_000, 6_000, 7_000, 8_000, 9_000},
		MaxRoutes:  3,
	}
	// Identical pools on both CPMM generations: splitting halves the price
	// impact on each.
	s.addPool(domain.VenueCPMMV1, "0xAA05", wplsAddress, hexAddress, 1_000_000, 2_000_000)
	s.addPool(domain.VenueCPMMV2, "0xAA06", wplsAddress, hexAddress, 1_000_000, 2_000_000)
	router := s.newRouter()

	result, err := router.GetQuote(context.Background(), s.quoteRequest(wplsAddress, hexAddress, 10_000))
	s.Require().NoError(err)

	s.Require().Nil(result.Single)
	s.Require().Len(result.Splits, 2)

	shares := result.Splits[0].ShareBps + result.Splits[1].ShareBps
	s.Require().EqualValues(domain.BpsDenominator, shares)

	totalIn := new(big.Int).Add(result.Splits[0].AmountIn, result.Splits[1].AmountIn)
	s.Require().Equal("10000", totalIn.String())

	// Split halves 9_921 + 9_921 beat the single-route 19_745.
	s.Require().Equal("19842", result.TotalAmountOut.String())
}

func (s *RouterUsecaseTestSuite) TestDirectFallback() {
	// With maxRoutes 1 only the best pre-scored candidate (direct V2) gets
	// evaluated, and it has no pool. The fallback then finds the V1 pair.
	s.cfg.Quote.MaxRoutes = 1
	s.addPool(domain.VenueCPMMV1, "0xAA07", wplsAddress, hexAddress, 1_000_000, 2_000_000)
	router := s.newRouter()

	result, err := router.GetQuote(context.Background(), s.quoteRequest(wplsAddress, hexAddress, 10_000))
	s.Require().NoError(err)
	s.Require().Equal("19745", result.TotalAmountOut.String())
}

// With no local pool data at all, the on-chain periphery router still quotes.
func (s *RouterUsecaseTestSuite) TestPeripheryFallback() {
	key := domain.AddrKey(wplsAddress) + ">" + domain.AddrKey(hexAddress)
	s.periphery.Amounts = map[string]*big.Int{key: big.NewInt(19_700)}
	router := s.newRouter()

	result, err := router.GetQuote(context.Background(), s.quoteRequest(wplsAddress, hexAddress, 10_000))
	s.Require().NoError(err)

	s.Require().Equal("19700", result.TotalAmountOut.String())
	s.Require().Len(result.Single.Legs, 1)
	s.Require().Equal(domain.VenueCPMMV2, result.Single.Legs[0].Venue)
	s.Require().Equal(common.Address{}, result.Single.Legs[0].Pool)
}

func (s *RouterUsecaseTestSuite) TestAmountNonPositive() {
	router := s.newRouter()

	_, err := router.GetQuote(context.Background(), s.quoteRequest(wplsAddress, hexAddress, 0))
	s.Require().ErrorIs(err, domain.ErrAmountNonPositive)

	req := s.quoteRequest(wplsAddress, hexAddress, 10_000)
	req.AmountIn = nil
	_, err = router.GetQuote(context.Background(), req)
	s.Require().ErrorIs(err, domain.ErrAmountNonPositive)
}

func (s *RouterUsecaseTestSuite) TestNoCandidates() {
	router := s.newRouter()

	_, err := router.GetQuote(context.Background(), s.quoteRequest(wplsAddress, wplsAddress, 10_000))
	s.Require().ErrorIs(err, domain.ErrNoCandidates)
}

func (s *RouterUsecaseTestSuite) TestNoValidRoutes() {
	router := s.newRouter()

	_, err := router.GetQuote(context.Background(), s.quoteRequest(wplsAddress, hexAddress, 10_000))
	s.Require().ErrorIs(err, domain.ErrNoValidRoutes)
}

func (s *RouterUsecaseTestSuite) TestQuoteTimeout() {
	s.cfg.Quote.TotalTimeoutMs = 0
	s.addPool(domain.VenueCPMMV2, "0xAA08", wplsAddress, hexAddress, 1_000_000, 2_000_000)
	router := s.newRouter()

	_, err := router.GetQuote(context.Background(), s.quoteRequest(wplsAddress, hexAddress, 10_000))
	s.Require().ErrorIs(err, domain.ErrQuoteTimeout)
}

// Native aliases route over the wrapped token but echo the zero address.
func (s *RouterUsecaseTestSuite) TestResponseNativeEcho() {
	s.addPool(domain.VenueCPMMV2, "0xAA09", wplsAddress, hexAddress, 1_000_000, 2_000_000)
	router := s.newRouter()

	req := s.quoteRequest(wplsAddress, hexAddress, 10_000)
	req.TokenInIsNative = true
	result, err := router.GetQuote(context.Background(), req)
	s.Require().NoError(err)

	now := time.Now()
	response := usecase.BuildQuoteResponse(result, now)

	s.Require().Equal(common.Address{}.Hex(), response.TokenInAddress)
	s.Require().Equal(hexAddress.Hex(), response.TokenOutAddress)
	s.Require().Equal("19745", response.OutputAmount)

	// minAmountOut applies the 50 bps slippage with floor division.
	s.Require().Equal("19646", response.MinAmountOut)
	s.Require().Greater(response.Deadline, now.Unix())
	s.Require().Equal(now.Unix()+600, response.Deadline)

	s.Require().Len(response.Route, 1)
	s.Require().Equal(float64(100), response.Route[0].Percent)
	s.Require().Len(response.Route[0].Swaps, 1)
	s.Require().Equal("PulseX V2", response.Route[0].Swaps[0].Exchange)
	s.Require().Equal(routerAddress.Hex(), response.RouterAddress)
	s.Require().NotEmpty(response.Calldata)
	s.Require().NotEqual("0x", response.Calldata)
}
