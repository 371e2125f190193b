package http

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/pulsedex-labs/pqs/domain"
	"github.com/pulsedex-labs/pqs/domain/mvc"
	"github.com/pulsedex-labs/pqs/log"
	"github.com/pulsedex-labs/pqs/router/usecase"
)

// RouterHandler represent the httphandler for the router
type RouterHandler struct {
	RUsecase mvc.RouterUsecase
	TUsecase mvc.TokensUsecase
	logger   log.Logger
}

// defaultSlippagePercent applies when the request omits allowedSlippage.
const defaultSlippagePercent = 0.5

// NewRouterHandler will initialize the quote resource endpoint
func NewRouterHandler(e *echo.Echo, us mvc.RouterUsecase, tu mvc.TokensUsecase, logger log.Logger) {
	handler := &RouterHandler{
		RUsecase: us,
		TUsecase: tu,
		logger:   logger,
	}
	e.GET("/quote", handler.GetQuote)
}

// GetQuote returns the best exact-in quote it can compute for the given
// tokenIn, tokenOut and amountIn.
func (a *RouterHandler) GetQuote(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := a.parseQuoteRequest(c)
	if err != nil {
		return c.JSON(domain.GetStatusCode(err), domain.ResponseError{Message: err.Error()})
	}

	result, err := a.RUsecase.GetQuote(ctx, req)
	if err != nil {
		return c.JSON(domain.GetStatusCode(err), domain.ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, usecase.BuildQuoteResponse(result, time.Now()))
}

func (a *RouterHandler) parseQuoteRequest(c echo.Context) (domain.QuoteRequest, error) {
	tokenInRaw := c.QueryParam("tokenIn")
	tokenOutRaw := c.QueryParam("tokenOut")
	if tokenInRaw == "" || tokenOutRaw == "" {
		return domain.QuoteRequest{}, fmt.Errorf("tokenIn and tokenOut are required: %w", domain.ErrBadParamInput)
	}

	tokenIn, tokenInIsNative, err := a.TUsecase.Normalize(tokenInRaw)
	if err != nil {
		return domain.QuoteRequest{}, err
	}
	tokenOut, tokenOutIsNative, err := a.TUsecase.Normalize(tokenOutRaw)
	if err != nil {
		return domain.QuoteRequest{}, err
	}

	amountIn, ok := new(big.Int).SetString(c.QueryParam("amountIn"), 10)
	if !ok {
		return domain.QuoteRequest{}, fmt.Errorf("amountIn must be a base-10 integer: %w", domain.ErrBadParamInput)
	}
	if amountIn.Sign() <= 0 {
		return domain.QuoteRequest{}, domain.ErrAmountNonPositive
	}

	slippageBps, err := parseSlippage(c.QueryParam("allowedSlippage"))
	if err != nil {
		return domain.QuoteRequest{}, err
	}

	var account common.Address
	if accountRaw := c.QueryParam("account"); accountRaw != "" {
		if !common.IsHexAddress(accountRaw) {
			return domain.QuoteRequest{}, fmt.Errorf("account must be a hex address: %w", domain.ErrBadParamInput)
		}
		account = common.HexToAddress(accountRaw)
	}

	return domain.QuoteRequest{
		TokenIn:          tokenIn,
		TokenOut:         tokenOut,
		TokenInRaw:       tokenInRaw,
		TokenOutRaw:      tokenOutRaw,
		TokenInIsNative:  tokenInIsNative,
		TokenOutIsNative: tokenOutIsNative,
		AmountIn:         amountIn,
		SlippageBps:      slippageBps,
		Account:          account,
	}, nil
}

// parseSlippage converts the allowedSlippage percentage into basis points,
// clamped to [0, 100] percent.
func parseSlippage(raw string) (int64, error) {
	slippage := defaultSlippagePercent
	if raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("allowedSlippage must be a number: %w", domain.ErrBadParamInput)
		}
		slippage = parsed
	}
	if slippage < 0 {
		slippage = 0
	}
	if slippage > 100 {
		slippage = 100
	}
	return int64(slippage * 100), nil
}
