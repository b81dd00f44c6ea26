package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/predictgate/predictgate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSessions struct {
	session domain.Session
	client  *ethclient.Client
}

func (f *fakeSessions) Session() domain.Session      { return f.session }
func (f *fakeSessions) Client() *ethclient.Client    { return f.client }
func (f *fakeSessions) SignerKey() *ecdsa.PrivateKey { return nil }

type fakeBinder struct {
	supported    map[uint64]bool
	binding      domain.MarketContract
	bindingCalls int
}

func (f *fakeBinder) Supported(chainID uint64) bool { return f.supported[chainID] }

func (f *fakeBinder) ChainName(chainID uint64) string {
	if f.supported[chainID] {
		return "Scroll Sepolia"
	}
	return "Unsupported Network"
}

func (f *fakeBinder) Binding(client *ethclient.Client, chainID uint64, key *ecdsa.PrivateKey) (domain.MarketContract, bool) {
	f.bindingCalls++
	if !f.supported[chainID] {
		return nil, false
	}
	return f.binding, true
}

type fakeRefresher struct {
	snapshot    domain.Snapshot
	hasSnapshot bool
	refreshErr  error
	refreshes   int
	invalidated int
}

func (f *fakeRefresher) Refresh(ctx context.Context, contract domain.MarketContract, account string, chainID uint64) (domain.Snapshot, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return domain.Snapshot{}, f.refreshErr
	}
	return f.snapshot, nil
}

func (f *fakeRefresher) Current(ctx context.Context, account string, chainID uint64) (domain.Snapshot, bool) {
	if !f.hasSnapshot || !strings.EqualFold(f.snapshot.Account, account) || f.snapshot.ChainID != chainID {
		return domain.Snapshot{}, false
	}
	return f.snapshot, true
}

func (f *fakeRefresher) Invalidate(ctx context.Context) { f.invalidated++ }

// ownerContract answers only the Owner read.
type ownerContract struct {
	owner string
}

func (c *ownerContract) Owner(ctx context.Context) (string, error) { return c.owner, nil }
func (c *ownerContract) ActiveMarketIDs(ctx context.Context) ([]*big.Int, error) {
	return nil, nil
}
func (c *ownerContract) MarketInfo(ctx context.Context, id *big.Int) (domain.MarketInfo, error) {
	return domain.MarketInfo{}, nil
}
func (c *ownerContract) UserBet(ctx context.Context, id *big.Int, account string) (domain.BetInfo, error) {
	return domain.BetInfo{}, nil
}
func (c *ownerContract) MarketOdds(ctx context.Context, id *big.Int) (domain.Odds, error) {
	return domain.Odds{}, nil
}
func (c *ownerContract) CreateMarket(ctx context.Context, question string, durationSeconds *big.Int) (string, error) {
	return "", nil
}
func (c *ownerContract) ResolveMarket(ctx context.Context, id *big.Int, outcome bool) (string, error) {
	return "", nil
}
func (c *ownerContract) DistributeWinnings(ctx context.Context, id *big.Int) (string, error) {
	return "", nil
}
func (c *ownerContract) PlaceBet(ctx context.Context, id *big.Int, prediction bool, amountWei *big.Int) (string, error) {
	return "", nil
}
func (c *ownerContract) ClaimWinnings(ctx context.Context, id *big.Int) (string, error) {
	return "", nil
}
func (c *ownerContract) Wait(ctx context.Context, txHash string) (domain.TxReceipt, error) {
	return domain.TxReceipt{}, nil
}

func TestBindingErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		client    *ethclient.Client
		session   domain.Session
		supported bool
		wantErr   error
	}{
		{"no provider", nil, domain.Session{Account: "0xabc", ChainID: 534351}, true, domain.ErrNoProvider},
		{"no session", &ethclient.Client{}, domain.Session{}, true, domain.ErrNoSession},
		{"unsupported chain", &ethclient.Client{}, domain.Session{Account: "0xabc", ChainID: 1}, false, domain.ErrUnsupportedChain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binder := &fakeBinder{supported: map[uint64]bool{tt.session.ChainID: tt.supported}}
			svc := NewMarketService(
				&fakeSessions{session: tt.session, client: tt.client},
				binder,
				&fakeRefresher{},
				0,
				testLogger(),
			)

			_, _, err := svc.Binding()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Binding() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBindingSuccess(t *testing.T) {
	contract := &ownerContract{owner: "0xabc"}
	binder := &fakeBinder{supported: map[uint64]bool{534351: true}, binding: contract}
	svc := NewMarketService(
		&fakeSessions{
			session: domain.Session{Account: "0xabc", ChainID: 534351},
			client:  &ethclient.Client{},
		},
		binder,
		&fakeRefresher{},
		0,
		testLogger(),
	)

	binding, sess, err := svc.Binding()
	if err != nil {
		t.Fatalf("Binding: %v", err)
	}
	if binding != contract {
		t.Error("Binding should return the binder's contract")
	}
	if sess.Account != "0xabc" {
		t.Errorf("session account = %q", sess.Account)
	}
}

func TestBindingSkipsBinderWithoutProvider(t *testing.T) {
	binder := &fakeBinder{supported: map[uint64]bool{534351: true}}
	svc := NewMarketService(
		&fakeSessions{session: domain.Session{Account: "0xabc", ChainID: 534351}},
		binder,
		&fakeRefresher{},
		0,
		testLogger(),
	)

	if _, _, err := svc.Binding(); !errors.Is(err, domain.ErrNoProvider) {
		t.Fatalf("Binding() error = %v, want ErrNoProvider", err)
	}
	if binder.bindingCalls != 0 {
		t.Errorf("binder called %d times with no provider, want 0", binder.bindingCalls)
	}
}

func TestIsOwnerCaseInsensitive(t *testing.T) {
	tests := []struct {
		name     string
		owner    string
		account  string
		expected bool
	}{
		{"exact match", "0xAbCd", "0xAbCd", true},
		{"case differs", "0xABCD", "0xabcd", true},
		{"different account", "0xAbCd", "0x1234", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binder := &fakeBinder{
				supported: map[uint64]bool{534351: true},
				binding:   &ownerContract{owner: tt.owner},
			}
			svc := NewMarketService(
				&fakeSessions{
					session: domain.Session{Account: tt.account, ChainID: 534351},
					client:  &ethclient.Client{},
				},
				binder,
				&fakeRefresher{},
				0,
				testLogger(),
			)

			got, err := svc.IsOwner(context.Background())
			if err != nil {
				t.Fatalf("IsOwner: %v", err)
			}
			if got != tt.expected {
				t.Errorf("IsOwner() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestOnSessionChangeInvalidatesOnAccountSwitch(t *testing.T) {
	refresher := &fakeRefresher{
		snapshot:    domain.Snapshot{Cycle: 1, Account: "0xold", ChainID: 534351},
		hasSnapshot: true,
	}
	svc := NewMarketService(
		&fakeSessions{},
		&fakeBinder{supported: map[uint64]bool{}},
		refresher,
		0,
		testLogger(),
	)

	// Disconnected session with a snapshot from another account.
	svc.OnSessionChange(domain.Session{})
	if refresher.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", refresher.invalidated)
	}

	// Same account and chain leaves the snapshot alone.
	refresher.snapshot = domain.Snapshot{Cycle: 2, Account: "0xabc", ChainID: 534351}
	svc.OnSessionChange(domain.Session{Account: "0xABC", ChainID: 534351})
	if refresher.invalidated != 1 {
		t.Errorf("invalidated = %d after same-session change, want 1", refresher.invalidated)
	}
}

func TestSnapshotScopedToActiveSession(t *testing.T) {
	refresher := &fakeRefresher{
		snapshot:    domain.Snapshot{Cycle: 3, Account: "0xold", ChainID: 534351},
		hasSnapshot: true,
	}
	sessions := &fakeSessions{session: domain.Session{Account: "0xnew", ChainID: 534351}}
	svc := NewMarketService(sessions, &fakeBinder{}, refresher, 0, testLogger())

	if _, ok := svc.Snapshot(context.Background()); ok {
		t.Error("another account's snapshot must not be served to the active session")
	}

	sessions.session.Account = "0xOLD"
	snap, ok := svc.Snapshot(context.Background())
	if !ok || snap.Cycle != 3 {
		t.Errorf("Snapshot = (%d, %v), want the owning session's cycle 3", snap.Cycle, ok)
	}
}
