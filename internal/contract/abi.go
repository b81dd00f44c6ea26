// Package contract provides the binding factory and the typed call surface
// for the deployed PredictionMarket contract.
package contract

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// predictionMarketABIJSON is the call surface this gateway consumes. Markets
// are binary yes/no questions; all amounts are native-token wei.
const predictionMarketABIJSON = `[
	{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getActiveMarketIds","outputs":[{"name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"}],"name":"getMarketInfo","outputs":[
		{"name":"question","type":"string"},
		{"name":"endTime","type":"uint256"},
		{"name":"isResolved","type":"bool"},
		{"name":"outcome","type":"bool"},
		{"name":"totalYesAmount","type":"uint256"},
		{"name":"totalNoAmount","type":"uint256"},
		{"name":"totalAmount","type":"uint256"},
		{"name":"isOpen","type":"bool"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"},{"name":"user","type":"address"}],"name":"getUserBet","outputs":[
		{"name":"hasPlacedBet","type":"bool"},
		{"name":"prediction","type":"bool"},
		{"name":"amount","type":"uint256"},
		{"name":"hasClaimed","type":"bool"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"}],"name":"getMarketOdds","outputs":[
		{"name":"yesPercentage","type":"uint256"},
		{"name":"noPercentage","type":"uint256"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"question","type":"string"},{"name":"durationSeconds","type":"uint256"}],"name":"createMarket","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"},{"name":"outcome","type":"bool"}],"name":"resolveMarket","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"}],"name":"distributeWinnings","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"},{"name":"prediction","type":"bool"}],"name":"placeBet","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"}],"name":"claimWinnings","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	parsedABI     abi.ABI
	parseABIOnce  sync.Once
	parseABIError error
)

// predictionMarketABI returns the parsed PredictionMarket ABI. Parsing a
// compiled-in constant cannot fail at runtime, so an error here panics.
func predictionMarketABI() abi.ABI {
	parseABIOnce.Do(func() {
		parsedABI, parseABIError = abi.JSON(strings.NewReader(predictionMarketABIJSON))
	})
	if parseABIError != nil {
		panic("contract: parsing embedded ABI: " + parseABIError.Error())
	}
	return parsedABI
}
