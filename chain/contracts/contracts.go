// Package contracts holds the parsed ABIs for every on-chain interface the
// quoting engine reads: CPMM factories and pairs, the stable pool, routers,
// ERC-20 metadata and the multicall aggregator.
package contracts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const factoryABIJSON = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"}
		],
		"name": "getPair",
		"outputs": [{"internalType": "address", "name": "pair", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const pairABIJSON = `[
	{
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "token1",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const routerABIJSON = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const stablePoolCoinsABIJSON = `[
	{
		"inputs": [{"internalType": "uint256", "name": "arg0", "type": "uint256"}],
		"name": "coins",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// The stable pool exposes get_dy with int128 indices; some deployments use
// uint256 indices. Both are kept as separate ABI instances because abi.JSON
// cannot hold two methods with the same name.
const stableGetDyInt128ABIJSON = `[
	{
		"inputs": [
			{"internalType": "int128", "name": "i", "type": "int128"},
			{"internalType": "int128", "name": "j", "type": "int128"},
			{"internalType": "uint256", "name": "dx", "type": "uint256"}
		],
		"name": "get_dy",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const stableGetDyUint256ABIJSON = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "i", "type": "uint256"},
			{"internalType": "uint256", "name": "j", "type": "uint256"},
			{"internalType": "uint256", "name": "dx", "type": "uint256"}
		],
		"name": "get_dy",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const erc20ABIJSON = `[
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const multicallABIJSON = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "bytes", "name": "callData", "type": "bytes"}
				],
				"internalType": "struct Multicall.Call[]",
				"name": "calls",
				"type": "tuple[]"
			}
		],
		"name": "aggregate",
		"outputs": [
			{
				"components": [
					{"internalType": "bool", "name": "success", "type": "bool"},
					{"internalType": "bytes", "name": "returnData", "type": "bytes"}
				],
				"internalType": "struct Multicall.Result[]",
				"name": "returnData",
				"type": "tuple[]"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	FactoryABI         = mustParseABI(factoryABIJSON)
	PairABI            = mustParseABI(pairABIJSON)
	RouterABI          = mustParseABI(routerABIJSON)
	StableCoinsABI     = mustParseABI(stablePoolCoinsABIJSON)
	StableDyInt128ABI  = mustParseABI(stableGetDyInt128ABIJSON)
	StableDyUint256ABI = mustParseABI(stableGetDyUint256ABIJSON)
	ERC20ABI           = mustParseABI(erc20ABIJSON)
	MulticallABI       = mustParseABI(multicallABIJSON)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI definition: %v", err))
	}
	return parsed
}

// Call is one multicall entry.
type Call struct {
	Target   common.Address
	CallData []byte
}

// Result is one multicall entry result.
type Result struct {
	Success    bool
	ReturnData []byte
}

// UnpackAddress decodes a single-address return value.
func UnpackAddress(contractABI abi.ABI, method string, data []byte) (common.Address, error) {
	values, err := contractABI.Unpack(method, data)
	if err != nil {
		return common.Address{}, err
	}
	if len(values) == 0 {
		return common.Address{}, fmt.Errorf("%s: empty return", method)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected return type %T", method, values[0])
	}
	return addr, nil
}

// UnpackBigInt decodes a single-integer return value.
func UnpackBigInt(contractABI abi.ABI, method string, data []byte) (*big.Int, error) {
	values, err := contractABI.Unpack(method, data)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty return", method)
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected return type %T", method, values[0])
	}
	return value, nil
}

// UnpackUint8 decodes a single-uint8 return value.
func UnpackUint8(contractABI abi.ABI, method string, data []byte) (uint8, error) {
	values, err := contractABI.Unpack(method, data)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%s: empty return", method)
	}
	value, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected return type %T", method, values[0])
	}
	return value, nil
}

// UnpackReserves decodes a getReserves return value.
func UnpackReserves(data []byte) (reserve0, reserve1 *big.Int, err error) {
	values, err := PairABI.Unpack("getReserves", data)
	if err != nil {
		return nil, nil, err
	}
	if len(values) < 2 {
		return nil, nil, fmt.Errorf("getReserves: expected 3 return values, got %d", len(values))
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("getReserves: unexpected return types %T, %T", values[0], values[1])
	}
	return reserve0, reserve1, nil
}

// UnpackAmounts decodes a getAmountsOut return value.
func UnpackAmounts(data []byte) ([]*big.Int, error) {
	values, err := RouterABI.Unpack("getAmountsOut", data)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("getAmountsOut: empty return")
	}
	amounts, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getAmountsOut: unexpected return type %T", values[0])
	}
	return amounts, nil
}

// DecodeMulticallInput decodes an aggregate call payload back into calls.
func DecodeMulticallInput(data []byte) ([]Call, error) {
	method := MulticallABI.Methods["aggregate"]
	if len(data) < 4 {
		return nil, fmt.Errorf("aggregate: input too short")
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("aggregate: empty input")
	}
	return *abi.ConvertType(values[0], new([]Call)).(*[]Call), nil
}

// PackMulticallResults encodes an aggregate return value.
func PackMulticallResults(results []Result) ([]byte, error) {
	method := MulticallABI.Methods["aggregate"]
	return method.Outputs.Pack(results)
}

// UnpackMulticall decodes an aggregate return value, normalising each entry:
// a missing returnData decodes to the empty byte string.
func UnpackMulticall(data []byte) ([]Result, error) {
	values, err := MulticallABI.Unpack("aggregate", data)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("aggregate: empty return")
	}

	results := *abi.ConvertType(values[0], new([]Result)).(*[]Result)
	for i := range results {
		if results[i].ReturnData == nil {
			results[i].ReturnData = []byte{}
		}
	}
	return results, nil
}
