package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Venue is the liquidity venue a leg trades on.
type Venue uint8

const (
	VenueCPMMV1 Venue = iota
	VenueCPMMV2
	VenueStable
)

// String implements fmt.Stringer. The value doubles as the route id segment.
func (v Venue) String() string {
	switch v {
	case VenueCPMMV1:
		return "cpmm_v1"
	case VenueCPMMV2:
		return "cpmm_v2"
	case VenueStable:
		return "stable"
	default:
		return fmt.Sprintf("venue(%d)", uint8(v))
	}
}

// DisplayName returns the exchange name shown in the response route.
func (v Venue) DisplayName() string {
	switch v {
	case VenueCPMMV1:
		return "PulseX V1"
	case VenueCPMMV2:
		return "PulseX V2"
	case VenueStable:
		return "PulseX Stable"
	default:
		return "Unknown"
	}
}

// IsCPMM reports whether the venue is a constant-product pool generation.
func (v Venue) IsCPMM() bool {
	return v == VenueCPMMV1 || v == VenueCPMMV2
}

// RouteLeg is one swap step on one venue.
type RouteLeg struct {
	Venue    Venue
	TokenIn  common.Address
	TokenOut common.Address
	// Pool is the resolved pool address. Zero until resolved by simulation.
	Pool common.Address
	// LegData is opaque per-venue data. For a stable leg it packs the two
	// pool coin indices as two 8-bit values.
	LegData []byte
}

// StableLegData packs the two stable pool coin indices.
func StableLegData(i, j uint8) []byte {
	return []byte{i, j}
}

// DecodeStableLegData unpacks the two stable pool coin indices.
func DecodeStableLegData(data []byte) (i, j uint8, ok bool) {
	if len(data) != 2 {
		return 0, 0, false
	}
	return data[0], data[1], true
}

// RouteCandidate is an ordered sequence of legs from tokenIn to tokenOut,
// together with the node path it was expanded from.
type RouteCandidate struct {
	Legs []RouteLeg
	// Path is the token sequence tokenIn, c1, ..., ck, tokenOut.
	Path []common.Address
}

// ID derives the candidate identity from its legs. It is order-sensitive and
// stable across runs; candidates with identical ids are duplicates.
func (c RouteCandidate) ID() string {
	var sb strings.Builder
	for i, leg := range c.Legs {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(leg.Venue.String())
		sb.WriteByte(':')
		sb.WriteString(AddrKey(leg.TokenIn))
		sb.WriteString("->")
		sb.WriteString(AddrKey(leg.TokenOut))
	}
	return sb.String()
}

// HasStableLeg reports whether any leg trades on the stable pool.
func (c RouteCandidate) HasStableLeg() bool {
	for _, leg := range c.Legs {
		if leg.Venue == VenueStable {
			return true
		}
	}
	return false
}

// SimulatedRoute is a candidate evaluated against current reserves.
type SimulatedRoute struct {
	Candidate RouteCandidate
	AmountOut *big.Int
	// Legs are the normalized leg summaries with resolved pool addresses.
	Legs []RouteLeg
}

// PairReserves is the raw reserve state of a CPMM pair in its canonical
// token0/token1 order.
type PairReserves struct {
	Pair     common.Address
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// MappedReserves orients pair reserves by a requested (tokenIn, tokenOut) order.
type MappedReserves struct {
	Pair       common.Address
	ReserveIn  *big.Int
	ReserveOut *big.Int
}

// MapTo orients the reserves by the requested order. Returns false if the
// pair's canonical tokens do not contain both requested tokens.
func (p *PairReserves) MapTo(tokenIn, tokenOut common.Address) (MappedReserves, bool) {
	switch {
	case p.Token0 == tokenIn && p.Token1 == tokenOut:
		return MappedReserves{Pair: p.Pair, ReserveIn: p.Reserve0, ReserveOut: p.Reserve1}, true
	case p.Token1 == tokenIn && p.Token0 == tokenOut:
		return MappedReserves{Pair: p.Pair, ReserveIn: p.Reserve1, ReserveOut: p.Reserve0}, true
	default:
		return MappedReserves{}, false
	}
}

// ReserveCacheKey keys the reserve cache by venue and the unordered token pair.
func ReserveCacheKey(venue Venue, a, b common.Address) string {
	ka, kb := AddrKey(a), AddrKey(b)
	if kb < ka {
		ka, kb = kb, ka
	}
	return venue.String() + ":" + ka + ":" + kb
}
