// Package orchestrator executes state-changing contract calls. Every action
// is validated locally, journaled before submission, and confirmed or failed
// from the mined receipt. Confirmed actions trigger a market refresh so
// reads reflect the new chain state.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/predictgate/predictgate/internal/domain"
	"github.com/predictgate/predictgate/internal/ethunit"
)

// Markets is the market service surface the orchestrator needs.
type Markets interface {
	Binding() (domain.MarketContract, domain.Session, error)
	Refresh(ctx context.Context) (domain.Snapshot, error)
	Snapshot(ctx context.Context) (domain.Snapshot, bool)
}

// Notifier delivers operator alerts for confirmed actions.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// txEvent is the payload published on the transaction channel.
type txEvent struct {
	Action   string `json:"action"`
	MarketID string `json:"marketId,omitempty"`
	TxHash   string `json:"txHash,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Orchestrator runs the write path: validate, journal, submit, wait,
// record, refresh.
type Orchestrator struct {
	markets  Markets
	journal  domain.JournalStore
	bus      domain.EventBus
	notifier Notifier
	archiver domain.Archiver
	logger   *slog.Logger
}

// New creates an Orchestrator. bus, notifier, and archiver may be nil.
func New(markets Markets, journal domain.JournalStore, bus domain.EventBus, notifier Notifier, archiver domain.Archiver, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		markets:  markets,
		journal:  journal,
		bus:      bus,
		notifier: notifier,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// PlaceBet validates and submits a bet of amountEther on marketID. The
// prediction is true for yes. It returns the confirmed journal entry.
func (o *Orchestrator) PlaceBet(ctx context.Context, marketID string, prediction bool, amountEther string) (domain.JournalEntry, error) {
	id, err := parseMarketID(marketID)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	amountWei, err := parseAmount(amountEther)
	if err != nil {
		return domain.JournalEntry{}, err
	}

	return o.run(ctx, domain.ActionPlaceBet, marketID, amountWei, func(c domain.MarketContract) (string, error) {
		return c.PlaceBet(ctx, id, prediction, amountWei)
	})
}

// ClaimWinnings submits a claim for the caller's winnings on marketID.
func (o *Orchestrator) ClaimWinnings(ctx context.Context, marketID string) (domain.JournalEntry, error) {
	id, err := parseMarketID(marketID)
	if err != nil {
		return domain.JournalEntry{}, err
	}

	return o.run(ctx, domain.ActionClaimWinnings, marketID, nil, func(c domain.MarketContract) (string, error) {
		return c.ClaimWinnings(ctx, id)
	})
}

// CreateMarket submits a new market with the given question, open for
// durationSeconds. Owner-only; the contract rejects other callers.
func (o *Orchestrator) CreateMarket(ctx context.Context, question string, durationSeconds int64) (domain.JournalEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.JournalEntry{}, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidInput)
	}
	if durationSeconds <= 0 {
		return domain.JournalEntry{}, fmt.Errorf("%w: duration must be positive", domain.ErrInvalidInput)
	}

	return o.run(ctx, domain.ActionCreateMarket, "", nil, func(c domain.MarketContract) (string, error) {
		return c.CreateMarket(ctx, question, big.NewInt(durationSeconds))
	})
}

// ResolveMarket records the outcome of marketID and then distributes
// winnings. The two calls are separate transactions: a distribution failure
// leaves the market resolved, and the returned error reports only the
// distribution step.
func (o *Orchestrator) ResolveMarket(ctx context.Context, marketID string, outcome bool) (domain.JournalEntry, error) {
	id, err := parseMarketID(marketID)
	if err != nil {
		return domain.JournalEntry{}, err
	}

	entry, err := o.run(ctx, domain.ActionResolveMarket, marketID, nil, func(c domain.MarketContract) (string, error) {
		return c.ResolveMarket(ctx, id, outcome)
	})
	if err != nil {
		return entry, err
	}

	if _, err := o.run(ctx, domain.ActionDistributeWinnings, marketID, nil, func(c domain.MarketContract) (string, error) {
		return c.DistributeWinnings(ctx, id)
	}); err != nil {
		return entry, fmt.Errorf("orchestrator: market %s resolved but distribution failed: %w", marketID, err)
	}

	o.archive(ctx, marketID)
	return entry, nil
}

// archive copies the resolved market and its journal trail to cold storage.
// Best effort: the resolution already succeeded on chain.
func (o *Orchestrator) archive(ctx context.Context, marketID string) {
	if o.archiver == nil {
		return
	}

	snap, ok := o.markets.Snapshot(ctx)
	if !ok {
		return
	}
	for _, m := range snap.Markets {
		if m.ID != marketID || !m.IsResolved {
			continue
		}
		entries, err := o.journal.ListByMarket(ctx, marketID)
		if err != nil {
			o.logger.Warn("journal lookup for archive failed", slog.String("error", err.Error()))
		}
		if err := o.archiver.ArchiveResolved(ctx, m, entries); err != nil {
			o.logger.Warn("archiving resolved market failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
}

// Recent returns the most recent journal entries.
func (o *Orchestrator) Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	return o.journal.ListRecent(ctx, limit)
}

// run is the shared action pipeline. submit performs the contract call and
// returns the transaction hash.
func (o *Orchestrator) run(ctx context.Context, action, marketID string, amountWei *big.Int, submit func(domain.MarketContract) (string, error)) (domain.JournalEntry, error) {
	binding, sess, err := o.markets.Binding()
	if err != nil {
		return domain.JournalEntry{}, err
	}

	now := time.Now().UTC()
	entry := domain.JournalEntry{
		ID:        uuid.NewString(),
		Action:    action,
		MarketID:  marketID,
		Account:   sess.Account,
		ChainID:   sess.ChainID,
		Status:    domain.JournalSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if amountWei != nil {
		entry.AmountWei = amountWei.String()
	}
	if err := o.journal.Insert(ctx, entry); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("orchestrator: journal insert: %w", err)
	}

	txHash, err := submit(binding)
	if err != nil {
		return o.fail(ctx, entry, err)
	}
	entry.TxHash = txHash

	receipt, err := binding.Wait(ctx, txHash)
	if err != nil {
		return o.fail(ctx, entry, err)
	}

	if err := o.journal.MarkConfirmed(ctx, entry.ID, txHash); err != nil {
		o.logger.Warn("journal confirm failed",
			slog.String("entry_id", entry.ID),
			slog.String("error", err.Error()),
		)
	}
	entry.Status = domain.JournalConfirmed
	entry.UpdatedAt = time.Now().UTC()

	o.logger.Info("action confirmed",
		slog.String("action", action),
		slog.String("market_id", marketID),
		slog.String("tx_hash", txHash),
		slog.Uint64("block", receipt.BlockNumber),
		slog.Uint64("gas_used", receipt.GasUsed),
	)

	o.publish(ctx, entry)
	o.announce(ctx, entry)
	o.refresh(ctx)
	return entry, nil
}

// fail records the failure with the raw cause and reports it as a single
// transaction-failed condition to the caller.
func (o *Orchestrator) fail(ctx context.Context, entry domain.JournalEntry, cause error) (domain.JournalEntry, error) {
	if err := o.journal.MarkFailed(ctx, entry.ID, cause.Error()); err != nil {
		o.logger.Warn("journal fail-mark failed",
			slog.String("entry_id", entry.ID),
			slog.String("error", err.Error()),
		)
	}
	entry.Status = domain.JournalFailed
	entry.Error = cause.Error()
	entry.UpdatedAt = time.Now().UTC()

	o.logger.Error("action failed",
		slog.String("action", entry.Action),
		slog.String("market_id", entry.MarketID),
		slog.String("error", cause.Error()),
	)
	o.publish(ctx, entry)

	if errors.Is(cause, domain.ErrTxFailed) {
		return entry, cause
	}
	return entry, fmt.Errorf("%w: %s", domain.ErrTxFailed, cause)
}

// publish emits a transaction event on the bus.
func (o *Orchestrator) publish(ctx context.Context, entry domain.JournalEntry) {
	if o.bus == nil {
		return
	}
	payload, err := json.Marshal(txEvent{
		Action:   entry.Action,
		MarketID: entry.MarketID,
		TxHash:   entry.TxHash,
		Status:   string(entry.Status),
		Error:    entry.Error,
	})
	if err != nil {
		return
	}
	if err := o.bus.Publish(ctx, domain.ChannelTx, payload); err != nil {
		o.logger.Warn("publishing tx event failed", slog.String("error", err.Error()))
	}
}

// announce sends an operator notification for a confirmed action.
func (o *Orchestrator) announce(ctx context.Context, entry domain.JournalEntry) {
	if o.notifier == nil {
		return
	}

	var title, body string
	switch entry.Action {
	case domain.ActionCreateMarket:
		title = "Market created"
		body = fmt.Sprintf("by %s (tx %s)", entry.Account, entry.TxHash)
	case domain.ActionResolveMarket:
		title = "Market resolved"
		body = fmt.Sprintf("market %s (tx %s)", entry.MarketID, entry.TxHash)
	case domain.ActionDistributeWinnings:
		title = "Winnings distributed"
		body = fmt.Sprintf("market %s (tx %s)", entry.MarketID, entry.TxHash)
	case domain.ActionPlaceBet:
		title = "Bet placed"
		body = fmt.Sprintf("market %s, %s wei by %s", entry.MarketID, entry.AmountWei, entry.Account)
	case domain.ActionClaimWinnings:
		title = "Winnings claimed"
		body = fmt.Sprintf("market %s by %s", entry.MarketID, entry.Account)
	default:
		return
	}

	if err := o.notifier.Notify(ctx, entry.Action, title, body); err != nil {
		o.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}

// refresh re-reads the markets after a confirmed action. A concurrently
// published newer cycle is fine; any other failure is logged and dropped
// because the action itself already succeeded.
func (o *Orchestrator) refresh(ctx context.Context) {
	if _, err := o.markets.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrStaleCycle) {
		o.logger.Warn("post-action refresh failed", slog.String("error", err.Error()))
	}
}

// parseMarketID parses a decimal market id.
func parseMarketID(marketID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(marketID), 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid market id %q", domain.ErrInvalidInput, marketID)
	}
	return id, nil
}

// parseAmount parses a positive decimal ether amount into wei.
func parseAmount(amountEther string) (*big.Int, error) {
	amountEther = strings.TrimSpace(amountEther)
	if amountEther == "" {
		return nil, fmt.Errorf("%w: amount must not be empty", domain.ErrInvalidInput)
	}
	wei, err := ethunit.ToWei(amountEther)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	return wei, nil
}
