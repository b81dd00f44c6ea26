package domain

import (
	"context"
	"time"
)

// JournalStatus is the lifecycle state of an orchestrated transaction.
type JournalStatus string

const (
	JournalSubmitted JournalStatus = "submitted"
	JournalConfirmed JournalStatus = "confirmed"
	JournalFailed    JournalStatus = "failed"
)

// Action names for journal entries.
const (
	ActionCreateMarket       = "create_market"
	ActionResolveMarket      = "resolve_market"
	ActionDistributeWinnings = "distribute_winnings"
	ActionPlaceBet           = "place_bet"
	ActionClaimWinnings      = "claim_winnings"
)

// JournalEntry records one state-changing contract call made through the
// orchestrator. The raw error string is kept on failure so wallet rejections
// and on-chain reverts stay distinguishable from the data even though the
// gateway reports them identically.
type JournalEntry struct {
	ID        string        `json:"id"`
	Action    string        `json:"action"`
	MarketID  string        `json:"marketId,omitempty"`
	Account   string        `json:"account"`
	ChainID   uint64        `json:"chainId"`
	AmountWei string        `json:"amountWei,omitempty"`
	TxHash    string        `json:"txHash,omitempty"`
	Status    JournalStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// JournalStore persists journal entries.
type JournalStore interface {
	Insert(ctx context.Context, e JournalEntry) error
	MarkConfirmed(ctx context.Context, id, txHash string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	ListRecent(ctx context.Context, limit int) ([]JournalEntry, error)
	ListByMarket(ctx context.Context, marketID string) ([]JournalEntry, error)
}
