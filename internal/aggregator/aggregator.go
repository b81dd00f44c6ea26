// Package aggregator assembles normalized market view models from the
// contract in refresh cycles. Each cycle carries a monotonic token; a cycle
// that finishes after a newer one has already published is discarded so a
// slow fetch can never overwrite fresher data.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predictgate/predictgate/internal/domain"
	"github.com/predictgate/predictgate/internal/ethunit"
)

// fetchConcurrency bounds the per-market detail fan-out.
const fetchConcurrency = 8

// Aggregator builds market snapshots. It owns the cycle counter and the
// latest published snapshot; completed cycles also land in the snapshot
// cache and on the event bus.
type Aggregator struct {
	cache  domain.SnapshotCache
	bus    domain.EventBus
	logger *slog.Logger

	cycle atomic.Uint64

	mu        sync.RWMutex
	current   *domain.Snapshot
	published uint64 // token of the newest published cycle
}

// New creates an Aggregator. cache and bus may be nil in tests.
func New(cache domain.SnapshotCache, bus domain.EventBus, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		cache:  cache,
		bus:    bus,
		logger: logger.With(slog.String("component", "aggregator")),
	}
}

// Refresh runs one full refresh cycle against the given binding for the
// given account and publishes the resulting snapshot. Any per-market fetch
// failure aborts the whole cycle: no partial market list is ever published.
// A cycle superseded by a later one returns domain.ErrStaleCycle and leaves
// published state untouched.
func (a *Aggregator) Refresh(ctx context.Context, contract domain.MarketContract, account string, chainID uint64) (domain.Snapshot, error) {
	cycle := a.cycle.Add(1)

	markets, err := a.load(ctx, contract, account)
	if err != nil {
		a.logger.Error("refresh cycle failed",
			slog.Uint64("cycle", cycle),
			slog.String("error", err.Error()),
		)
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		Cycle:     cycle,
		Account:   account,
		ChainID:   chainID,
		Markets:   markets,
		FetchedAt: time.Now().UTC(),
	}
	if err := a.publish(ctx, snap); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// load fetches the active market ids and then, concurrently per market, the
// market info, the caller's bet, and the odds. The returned slice preserves
// the order of the id fetch.
func (a *Aggregator) load(ctx context.Context, contract domain.MarketContract, account string) ([]domain.Market, error) {
	ids, err := contract.ActiveMarketIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregator: active market ids: %w", err)
	}

	markets := make([]domain.Market, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			info, err := contract.MarketInfo(gctx, id)
			if err != nil {
				return fmt.Errorf("aggregator: market %s info: %w", id, err)
			}
			bet, err := contract.UserBet(gctx, id, account)
			if err != nil {
				return fmt.Errorf("aggregator: market %s user bet: %w", id, err)
			}
			odds, err := contract.MarketOdds(gctx, id)
			if err != nil {
				return fmt.Errorf("aggregator: market %s odds: %w", id, err)
			}

			markets[i] = domain.Market{
				ID:             id.String(),
				Question:       info.Question,
				EndTime:        time.Unix(info.EndTime.Int64(), 0).UTC(),
				IsResolved:     info.IsResolved,
				Outcome:        info.Outcome,
				TotalYesAmount: ethunit.FormatWei(info.TotalYesAmount),
				TotalNoAmount:  ethunit.FormatWei(info.TotalNoAmount),
				TotalAmount:    ethunit.FormatWei(info.TotalAmount),
				IsOpen:         info.IsOpen,
				Odds:           odds,
				UserBet: domain.UserBet{
					HasPlacedBet: bet.HasPlacedBet,
					Prediction:   bet.Prediction,
					Amount:       ethunit.FormatWei(bet.Amount),
					HasClaimed:   bet.HasClaimed,
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return markets, nil
}

// publish installs snap as the current snapshot unless a later-initiated
// cycle already published.
func (a *Aggregator) publish(ctx context.Context, snap domain.Snapshot) error {
	a.mu.Lock()
	if snap.Cycle <= a.published {
		a.mu.Unlock()
		a.logger.Debug("discarding superseded refresh cycle",
			slog.Uint64("cycle", snap.Cycle),
			slog.Uint64("published", a.published),
		)
		return domain.ErrStaleCycle
	}
	a.published = snap.Cycle
	a.current = &snap
	a.mu.Unlock()

	if a.cache != nil {
		if err := a.cache.Put(ctx, snap); err != nil {
			a.logger.Warn("caching snapshot failed", slog.String("error", err.Error()))
		}
	}
	if a.bus != nil {
		payload, err := json.Marshal(snap)
		if err == nil {
			if err := a.bus.Publish(ctx, domain.ChannelMarkets, payload); err != nil {
				a.logger.Warn("publishing snapshot failed", slog.String("error", err.Error()))
			}
		}
	}

	a.logger.Info("refresh cycle completed",
		slog.Uint64("cycle", snap.Cycle),
		slog.Int("markets", len(snap.Markets)),
		slog.String("account", snap.Account),
	)
	return nil
}

// Current returns the newest published snapshot for the given session
// identity. When none has been published this run, it falls back to the
// snapshot cache. A snapshot fetched under a different account or chain is
// a miss: bet fields are only meaningful for the account they were fetched
// with, so another session's snapshot is never served.
func (a *Aggregator) Current(ctx context.Context, account string, chainID uint64) (domain.Snapshot, bool) {
	a.mu.RLock()
	if a.current != nil && snapshotFor(*a.current, account, chainID) {
		snap := *a.current
		a.mu.RUnlock()
		return snap, true
	}
	a.mu.RUnlock()

	if a.cache != nil {
		if snap, err := a.cache.Get(ctx); err == nil && snapshotFor(snap, account, chainID) {
			return snap, true
		}
	}
	return domain.Snapshot{}, false
}

// snapshotFor reports whether snap was fetched under the given session
// identity.
func snapshotFor(snap domain.Snapshot, account string, chainID uint64) bool {
	return strings.EqualFold(snap.Account, account) && snap.ChainID == chainID
}

// Invalidate forgets the in-memory snapshot and drops the cached one. Used
// when the session account or chain changes so a stale account's markets
// are never served against a new session.
func (a *Aggregator) Invalidate(ctx context.Context) {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()

	if a.cache != nil {
		if err := a.cache.Delete(ctx); err != nil {
			a.logger.Warn("dropping cached snapshot failed", slog.String("error", err.Error()))
		}
	}
}
