package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/predictgate/predictgate/internal/config"
	"github.com/predictgate/predictgate/internal/domain"
)

// chainIDServer answers every JSON-RPC request with the given chain id.
func chainIDServer(t *testing.T, hexID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"%s"}`, req.ID, hexID)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMarker struct {
	set    bool
	sets   int
	clears int
}

func (f *fakeMarker) Set(ctx context.Context) error {
	f.set = true
	f.sets++
	return nil
}

func (f *fakeMarker) Clear(ctx context.Context) error {
	f.set = false
	f.clears++
	return nil
}

func (f *fakeMarker) IsSet(ctx context.Context) (bool, error) {
	return f.set, nil
}

func TestStartWithoutMarkerStaysDisconnected(t *testing.T) {
	marker := &fakeMarker{}
	m := NewManager(
		config.WalletConfig{KeystoreDir: t.TempDir()},
		config.ProviderConfig{},
		marker,
		testLogger(),
	)
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sess := m.Session()
	if sess.Connected() {
		t.Error("session should not be connected without a marker")
	}
	if !sess.Initialized {
		t.Error("session should be initialized after Start")
	}
	if marker.clears != 0 {
		t.Errorf("marker cleared %d times, want 0", marker.clears)
	}
}

func TestStartClearsMarkerWithoutAuthorizedAccount(t *testing.T) {
	// Marker says connected, but the keystore is empty and no provider is
	// reachable: the restore must silently give up and clear the marker
	// rather than prompt for a new authorization.
	marker := &fakeMarker{set: true}
	m := NewManager(
		config.WalletConfig{KeystoreDir: t.TempDir()},
		config.ProviderConfig{},
		marker,
		testLogger(),
	)
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if m.Session().Connected() {
		t.Error("restore must not connect without an authorized account")
	}
	if marker.set {
		t.Error("stale marker should be cleared")
	}
	if marker.clears != 1 {
		t.Errorf("marker cleared %d times, want 1", marker.clears)
	}
}

func TestStartNotifiesListeners(t *testing.T) {
	m := NewManager(
		config.WalletConfig{KeystoreDir: t.TempDir()},
		config.ProviderConfig{},
		&fakeMarker{},
		testLogger(),
	)
	defer m.Close()

	var got []domain.Session
	m.OnChange(func(sess domain.Session) {
		got = append(got, sess)
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("listeners notified %d times, want 1", len(got))
	}
	if !got[0].Initialized {
		t.Error("notified session should be initialized")
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	marker := &fakeMarker{}
	m := NewManager(
		config.WalletConfig{KeystoreDir: t.TempDir()},
		config.ProviderConfig{},
		marker,
		testLogger(),
	)
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sess, err := m.Connect(context.Background())
	if !errors.Is(err, domain.ErrNoProvider) {
		t.Fatalf("Connect = %v, want ErrNoProvider", err)
	}
	if sess.Connected() {
		t.Error("failed connect must not produce a connected session")
	}
	if sess.Err == "" {
		t.Error("failed connect should set the user-facing session error")
	}
	if marker.set {
		t.Error("failed connect must not persist the marker")
	}
}

func TestConnectWithoutKeySource(t *testing.T) {
	m := NewManager(
		config.WalletConfig{KeystoreDir: t.TempDir()},
		config.ProviderConfig{RPCURL: "http://127.0.0.1:1"},
		&fakeMarker{},
		testLogger(),
	)
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sess, err := m.Connect(context.Background())
	if !errors.Is(err, domain.ErrConnectRejected) {
		t.Fatalf("Connect = %v, want ErrConnectRejected", err)
	}
	if sess.Connected() {
		t.Error("rejected connect must not produce a connected session")
	}
	if sess.Err == "" {
		t.Error("rejected connect should set the user-facing session error")
	}
}

func TestWalletArrivalPopulatesChainID(t *testing.T) {
	srv := chainIDServer(t, "0x8274f") // 534351

	marker := &fakeMarker{}
	m := NewManager(
		config.WalletConfig{KeystoreDir: t.TempDir()},
		config.ProviderConfig{RPCURL: srv.URL},
		marker,
		testLogger(),
	)
	defer m.Close()

	client, err := ethclient.DialContext(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("dialing test provider: %v", err)
	}
	m.client = client
	m.ks = keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	if _, err := m.ks.NewAccount("pw"); err != nil {
		t.Fatalf("creating keystore account: %v", err)
	}

	m.handleWalletEvent(accounts.WalletEvent{Kind: accounts.WalletArrived})

	sess := m.Session()
	if !sess.Connected() {
		t.Fatal("account arrival should populate the session")
	}
	if sess.ChainID != 534351 {
		t.Errorf("ChainID = %d immediately after arrival, want 534351", sess.ChainID)
	}
	if !marker.set {
		t.Error("marker should be persisted on account arrival")
	}
}

func TestDisconnectClearsMarker(t *testing.T) {
	marker := &fakeMarker{set: true}
	m := NewManager(
		config.WalletConfig{KeystoreDir: t.TempDir()},
		config.ProviderConfig{},
		marker,
		testLogger(),
	)
	defer m.Close()

	sess := m.Disconnect(context.Background())
	if sess.Connected() {
		t.Error("session should be cleared")
	}
	if marker.set {
		t.Error("marker should be cleared on disconnect")
	}
}
