// Package domain defines the view models, events, and interfaces shared by
// every other package in the gateway. It deliberately has no third-party
// dependencies; concrete implementations live in their own packages and are
// wired together in internal/app.
package domain

import (
	"math/big"
	"time"
)

// Odds is the percentage split between the yes and no pools of a market,
// as computed by the contract. Yes + No is normally 100 but the gateway
// passes the contract's numbers through unmodified.
type Odds struct {
	Yes int64 `json:"yes"`
	No  int64 `json:"no"`
}

// UserBet is the calling account's existing bet on a market, if any.
// Amount is in the decimal display unit (ether), not wei.
type UserBet struct {
	HasPlacedBet bool   `json:"hasPlacedBet"`
	Prediction   bool   `json:"prediction"` // true = yes
	Amount       string `json:"amount"`
	HasClaimed   bool   `json:"hasClaimed"`
}

// Market is the normalized view of one on-chain market, assembled by the
// aggregator for a specific account. It mirrors on-chain truth and is never
// mutated in place: every refresh cycle rebuilds the full collection.
type Market struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	EndTime        time.Time `json:"endTime"`
	IsResolved     bool      `json:"isResolved"`
	Outcome        bool      `json:"outcome"` // meaningful only when IsResolved
	TotalYesAmount string    `json:"totalYesAmount"`
	TotalNoAmount  string    `json:"totalNoAmount"`
	TotalAmount    string    `json:"totalAmount"`
	IsOpen         bool      `json:"isOpen"`
	Odds           Odds      `json:"odds"`
	UserBet        UserBet   `json:"userBet"`
}

// CanClaim reports whether the account the market was fetched for may claim
// winnings: the market is resolved, the account bet on the winning side, and
// the winnings have not been claimed yet.
func (m Market) CanClaim() bool {
	return m.IsResolved &&
		m.UserBet.HasPlacedBet &&
		m.UserBet.Prediction == m.Outcome &&
		!m.UserBet.HasClaimed
}

// Snapshot is one completed refresh cycle: the full market collection plus
// the account and chain it was fetched under. Cycle is the monotonic token
// assigned when the refresh was initiated; consumers must discard snapshots
// whose token is lower than the newest one they have already accepted.
type Snapshot struct {
	Cycle     uint64    `json:"cycle"`
	Account   string    `json:"account"`
	ChainID   uint64    `json:"chainId"`
	Markets   []Market  `json:"markets"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// MarketInfo is the raw getMarketInfo result. Monetary amounts are in wei.
type MarketInfo struct {
	Question       string
	EndTime        *big.Int
	IsResolved     bool
	Outcome        bool
	TotalYesAmount *big.Int
	TotalNoAmount  *big.Int
	TotalAmount    *big.Int
	IsOpen         bool
}

// BetInfo is the raw getUserBet result. Amount is in wei.
type BetInfo struct {
	HasPlacedBet bool
	Prediction   bool
	Amount       *big.Int
	HasClaimed   bool
}
