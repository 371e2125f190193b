package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token describes an ERC-20 token known to the router.
type Token struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
	Name     string
	// IsNative marks the request-level native coin. Routing always uses the
	// wrapped counterpart internally.
	IsNative bool
}

// nativeAliases are the request spellings that designate the native coin.
var nativeAliases = map[string]struct{}{
	"native": {},
	"pls":    {},
	"0x0":    {},
	"0x0000000000000000000000000000000000000000": {},
}

// IsNativeAlias reports whether raw designates the chain's native coin.
func IsNativeAlias(raw string) bool {
	_, ok := nativeAliases[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// NormalizeTokenAddress parses a request token and maps native aliases onto the
// wrapped native address. The second return reports whether the input was a
// native alias.
func NormalizeTokenAddress(raw string, wrappedNative common.Address) (common.Address, bool, error) {
	if IsNativeAlias(raw) {
		return wrappedNative, true, nil
	}

	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, false, fmt.Errorf("%w: token address %q", ErrBadParamInput, raw)
	}

	return common.HexToAddress(trimmed), false, nil
}

// AddrKey returns the canonical lowercase form used for comparisons and map keys.
func AddrKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
