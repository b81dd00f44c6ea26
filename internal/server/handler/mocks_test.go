package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/predictgate/predictgate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWallet struct {
	session    domain.Session
	connectErr error
}

func (f *fakeWallet) Session() domain.Session { return f.session }

func (f *fakeWallet) Connect(ctx context.Context) (domain.Session, error) {
	if f.connectErr != nil {
		failed := f.session
		failed.Err = f.connectErr.Error()
		return failed, f.connectErr
	}
	return f.session, nil
}

func (f *fakeWallet) Disconnect(ctx context.Context) domain.Session {
	f.session = domain.Session{Initialized: true}
	return f.session
}

type fakeChains struct{}

func (fakeChains) ChainName(chainID uint64) string {
	switch chainID {
	case 534351:
		return "Scroll Sepolia"
	case 78600:
		return "Vanar Vanguard"
	default:
		return "Unsupported Network"
	}
}

type fakeMarketReader struct {
	snapshot   domain.Snapshot
	hasSnap    bool
	refreshErr error
	refreshes  int
}

func (f *fakeMarketReader) Snapshot(ctx context.Context) (domain.Snapshot, bool) {
	return f.snapshot, f.hasSnap
}

func (f *fakeMarketReader) Refresh(ctx context.Context) (domain.Snapshot, error) {
	f.refreshes++
	if f.refreshErr != nil {
		if errors.Is(f.refreshErr, domain.ErrStaleCycle) {
			// Losing the cycle race means a newer snapshot was published.
			f.hasSnap = true
		}
		return domain.Snapshot{}, f.refreshErr
	}
	f.hasSnap = true
	return f.snapshot, nil
}

func (f *fakeMarketReader) ChainName(chainID uint64) string {
	return fakeChains{}.ChainName(chainID)
}

type fakeBets struct {
	entry    domain.JournalEntry
	err      error
	lastBet  string
	lastClam string
}

func (f *fakeBets) PlaceBet(ctx context.Context, marketID string, prediction bool, amountEther string) (domain.JournalEntry, error) {
	f.lastBet = marketID
	if f.err != nil {
		return domain.JournalEntry{}, f.err
	}
	return f.entry, nil
}

func (f *fakeBets) ClaimWinnings(ctx context.Context, marketID string) (domain.JournalEntry, error) {
	f.lastClam = marketID
	if f.err != nil {
		return domain.JournalEntry{}, f.err
	}
	return f.entry, nil
}

type fakeOwners struct {
	isOwner bool
	err     error
}

func (f *fakeOwners) IsOwner(ctx context.Context) (bool, error) {
	return f.isOwner, f.err
}

type fakeAdmin struct {
	entry   domain.JournalEntry
	entries []domain.JournalEntry
	err     error
}

func (f *fakeAdmin) CreateMarket(ctx context.Context, question string, durationSeconds int64) (domain.JournalEntry, error) {
	if f.err != nil {
		return domain.JournalEntry{}, f.err
	}
	return f.entry, nil
}

func (f *fakeAdmin) ResolveMarket(ctx context.Context, marketID string, outcome bool) (domain.JournalEntry, error) {
	if f.err != nil {
		return domain.JournalEntry{}, f.err
	}
	return f.entry, nil
}

func (f *fakeAdmin) Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func connectedSession() domain.Session {
	return domain.Session{Account: "0xabc", ChainID: 534351, Initialized: true}
}
