package domain

import (
	"context"
	"math/big"
)

// MarketContract is the call surface of the deployed prediction-market
// contract, bound to one signer/chain pair. Bindings become stale when the
// session account or chain changes and must be rebuilt, never reused.
//
// Write methods submit a signed transaction and return its hash without
// waiting; Wait blocks until the transaction is included and returns an
// error wrapping ErrTxFailed if execution reverted.
type MarketContract interface {
	Owner(ctx context.Context) (string, error)
	ActiveMarketIDs(ctx context.Context) ([]*big.Int, error)
	MarketInfo(ctx context.Context, id *big.Int) (MarketInfo, error)
	UserBet(ctx context.Context, id *big.Int, account string) (BetInfo, error)
	MarketOdds(ctx context.Context, id *big.Int) (Odds, error)

	CreateMarket(ctx context.Context, question string, durationSeconds *big.Int) (string, error)
	ResolveMarket(ctx context.Context, id *big.Int, outcome bool) (string, error)
	DistributeWinnings(ctx context.Context, id *big.Int) (string, error)
	PlaceBet(ctx context.Context, id *big.Int, prediction bool, amountWei *big.Int) (string, error)
	ClaimWinnings(ctx context.Context, id *big.Int) (string, error)

	Wait(ctx context.Context, txHash string) (TxReceipt, error)
}

// TxReceipt summarizes a mined transaction.
type TxReceipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}
