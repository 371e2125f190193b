package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRPCUnavailable will throw if no configured endpoint passes validation.
	ErrRPCUnavailable = errors.New("no usable RPC endpoint")
	// ErrRPCNotInitialized will throw if the provider pool is used before initialization.
	ErrRPCNotInitialized = errors.New("RPC provider pool is not initialized")
	// ErrRPCExhausted will throw after all retry attempts across endpoints failed.
	ErrRPCExhausted = errors.New("all RPC attempts exhausted")
	// ErrRPCCooldown will throw locally while an endpoint circuit breaker is open.
	ErrRPCCooldown = errors.New("RPC endpoint is cooling down")

	// ErrMulticallDisabled will throw if the multicall client is used while disabled.
	ErrMulticallDisabled = errors.New("multicall is disabled")
	// ErrMulticallTimeout will throw if a multicall batch exceeds its timeout.
	ErrMulticallTimeout = errors.New("multicall batch timed out")
	// ErrMulticallEmpty will throw if the multicall payload cannot be decoded.
	ErrMulticallEmpty = errors.New("multicall returned an empty payload")

	// ErrInvalidReserves will throw if CPMM math is invoked with non-positive reserves.
	ErrInvalidReserves = errors.New("reserves must be positive")
	// ErrInvalidFee will throw if the CPMM fee is outside [0, 10000).
	ErrInvalidFee = errors.New("fee must be in [0, 10000) basis points")

	// ErrStableTokenUnsupported will throw if a token is not a stable pool coin.
	ErrStableTokenUnsupported = errors.New("token is not supported by the stable pool")
	// ErrStableNegativeAmount will throw on negative stable quote amounts.
	ErrStableNegativeAmount = errors.New("stable quote amount must not be negative")

	// ErrPriceUnavailable will throw if the oracle cannot price a token.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrQuoteTimeout will throw if the whole-quote budget is exceeded.
	ErrQuoteTimeout = errors.New("quote timed out")
	// ErrNoCandidates will throw if the enumerator produces no candidates.
	ErrNoCandidates = errors.New("no candidate routes")
	// ErrNoValidRoutes will throw if all simulations failed and the fallback failed.
	ErrNoValidRoutes = errors.New("no valid routes")
	// ErrAmountNonPositive will throw on a non-positive input amount.
	ErrAmountNonPositive = errors.New("amount in must be positive")
	// ErrBadParamInput will throw if the given request params are not valid.
	ErrBadParamInput = errors.New("given param is not valid")
)

// GetStatusCode returns the HTTP status code for the given error.
func GetStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAmountNonPositive), errors.Is(err, ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoCandidates), errors.Is(err, ErrNoValidRoutes):
		return http.StatusNotFound
	case errors.Is(err, ErrQuoteTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// UnsupportedVenueError is an error type for an unknown venue tag.
type UnsupportedVenueError struct {
	Venue string
}

func (e UnsupportedVenueError) Error() string {
	return fmt.Sprintf("venue %s is not supported", e.Venue)
}
