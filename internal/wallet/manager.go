// Package wallet owns the wallet session lifecycle: provider detection,
// restore-from-marker, explicit connect/disconnect, and account/chain change
// tracking. All other packages see the session only as read-only
// domain.Session snapshots emitted through change listeners.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"

	"github.com/predictgate/predictgate/internal/config"
	gatecrypto "github.com/predictgate/predictgate/internal/crypto"
	"github.com/predictgate/predictgate/internal/domain"
)

// walletEventBuffer sizes the keystore event channel.
const walletEventBuffer = 16

// Listener receives a session snapshot after every session change.
type Listener func(domain.Session)

// Manager is the wallet session manager. It is the sole owner of the
// provider handle, the keystore, and the unlocked signing key.
type Manager struct {
	walletCfg   config.WalletConfig
	providerCfg config.ProviderConfig
	marker      domain.MarkerStore
	logger      *slog.Logger

	mu        sync.RWMutex
	client    *ethclient.Client // nil when no provider is reachable
	ks        *keystore.KeyStore
	key       *ecdsa.PrivateKey // nil until a session is established
	session   domain.Session
	listeners []Listener

	walletCh  chan accounts.WalletEvent
	walletSub event.Subscription
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewManager creates a Manager. Call Start to detect the provider and
// restore any prior session, and Close on shutdown.
func NewManager(walletCfg config.WalletConfig, providerCfg config.ProviderConfig, marker domain.MarkerStore, logger *slog.Logger) *Manager {
	return &Manager{
		walletCfg:   walletCfg,
		providerCfg: providerCfg,
		marker:      marker,
		logger:      logger.With(slog.String("component", "wallet")),
		stopCh:      make(chan struct{}),
	}
}

// Start detects the node provider, opens the keystore, attempts a silent
// session restore, and begins watching for account and chain changes. A
// missing or unreachable provider is not fatal: the gateway starts in
// degraded mode and Connect reports the condition to the user.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()

	client, err := ethclient.DialContext(ctx, m.providerCfg.RPCURL)
	if err != nil {
		m.logger.Warn("node provider not reachable",
			slog.String("rpc_url", m.providerCfg.RPCURL),
			slog.String("error", err.Error()),
		)
	} else {
		m.client = client
	}

	if m.walletCfg.KeystoreDir != "" {
		m.ks = keystore.NewKeyStore(m.walletCfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	}

	m.restoreLocked(ctx)
	m.session.Initialized = true
	snap := m.session
	m.mu.Unlock()

	m.notify(snap)

	// Account-change events come from the keystore backend; chain changes
	// are detected by polling the provider.
	if m.ks != nil {
		m.walletCh = make(chan accounts.WalletEvent, walletEventBuffer)
		m.walletSub = m.ks.Subscribe(m.walletCh)
		m.wg.Add(1)
		go m.watchWallets()
	}
	if m.client != nil && m.providerCfg.ChainPollSeconds > 0 {
		m.wg.Add(1)
		go m.watchChain()
	}

	return nil
}

// restoreLocked implements the silent restore: only when the persisted
// marker is set AND the keystore already reports at least one authorized
// account is the session populated, and never with a user prompt. Any
// failure is logged and clears the marker. Caller holds m.mu.
func (m *Manager) restoreLocked(ctx context.Context) {
	isSet, err := m.marker.IsSet(ctx)
	if err != nil {
		m.logger.Warn("reading connection marker failed", slog.String("error", err.Error()))
		return
	}
	if !isSet {
		return
	}

	if m.client == nil || m.ks == nil || len(m.ks.Accounts()) == 0 {
		// Marker says connected but no authorized account exists anymore.
		if err := m.marker.Clear(ctx); err != nil {
			m.logger.Warn("clearing stale connection marker failed", slog.String("error", err.Error()))
		}
		return
	}

	chainID, err := m.fetchChainID(ctx)
	if err != nil {
		m.logger.Warn("session restore failed", slog.String("error", err.Error()))
		if err := m.marker.Clear(ctx); err != nil {
			m.logger.Warn("clearing connection marker failed", slog.String("error", err.Error()))
		}
		return
	}

	acct := m.ks.Accounts()[0]
	m.session.Account = acct.Address.Hex()
	m.session.ChainID = chainID

	// Best effort: load the signing key so restored sessions can also
	// transact. A restore never prompts, so a missing key source just
	// leaves the session read-only.
	if key, err := gatecrypto.LoadPrivateKey(m.keySource()); err == nil {
		m.key = key
	} else if !errors.Is(err, gatecrypto.ErrNoKeySource) {
		m.logger.Warn("signing key unavailable after restore", slog.String("error", err.Error()))
	}

	m.logger.Info("session restored",
		slog.String("account", m.session.Account),
		slog.Uint64("chain_id", m.session.ChainID),
	)
}

// Connect performs an explicit authorization request: it resolves the
// configured signing key, imports it into the keystore, and populates the
// session. On failure the session's error message is set and everything
// else is left unchanged so the user may retry. Concurrent invocations are
// coalesced: while one Connect is in flight, later calls return the
// in-progress session without side effects.
func (m *Manager) Connect(ctx context.Context) (domain.Session, error) {
	m.mu.Lock()
	if m.session.Connecting {
		snap := m.session
		m.mu.Unlock()
		return snap, nil
	}
	m.session.Connecting = true
	m.session.Err = ""
	snap := m.session
	m.mu.Unlock()
	m.notify(snap)

	sess, err := m.connect(ctx)
	m.notify(sess)
	return sess, err
}

func (m *Manager) connect(ctx context.Context) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.session.Connecting = false }()

	// Re-detect the provider: it may have come up since Start.
	if m.client == nil {
		client, err := ethclient.DialContext(ctx, m.providerCfg.RPCURL)
		if err != nil {
			m.session.Err = "No wallet provider detected. Configure a reachable JSON-RPC endpoint and retry."
			return m.sessionAfterConnectLocked(), fmt.Errorf("%w: %s", domain.ErrNoProvider, err)
		}
		m.client = client
	}

	key, err := gatecrypto.LoadPrivateKey(m.keySource())
	if err != nil {
		if errors.Is(err, gatecrypto.ErrNoKeySource) {
			m.session.Err = "No signing key configured. Set a wallet key to authorize a connection."
		} else {
			m.session.Err = "Wallet authorization failed: " + err.Error()
		}
		return m.sessionAfterConnectLocked(), fmt.Errorf("%w: %s", domain.ErrConnectRejected, err)
	}

	addr := ethcrypto.PubkeyToAddress(key.PublicKey)
	if m.ks != nil && !m.ks.HasAddress(addr) {
		if _, err := m.ks.ImportECDSA(key, m.walletCfg.KeyPassword); err != nil {
			m.session.Err = "Wallet authorization failed: " + err.Error()
			return m.sessionAfterConnectLocked(), fmt.Errorf("%w: import key: %s", domain.ErrConnectRejected, err)
		}
	}

	chainID, err := m.fetchChainID(ctx)
	if err != nil {
		m.session.Err = "Failed to read chain id from provider: " + err.Error()
		return m.sessionAfterConnectLocked(), fmt.Errorf("%w: %s", domain.ErrNoProvider, err)
	}

	m.key = key
	m.session.Account = addr.Hex()
	m.session.ChainID = chainID
	m.session.Err = ""

	if err := m.marker.Set(ctx); err != nil {
		m.logger.Warn("persisting connection marker failed", slog.String("error", err.Error()))
	}

	m.logger.Info("wallet connected",
		slog.String("account", m.session.Account),
		slog.Uint64("chain_id", m.session.ChainID),
	)
	return m.sessionAfterConnectLocked(), nil
}

// sessionAfterConnectLocked returns the session as it will look once the
// deferred Connecting reset runs. Caller holds m.mu.
func (m *Manager) sessionAfterConnectLocked() domain.Session {
	snap := m.session
	snap.Connecting = false
	return snap
}

// Disconnect clears the session and the persisted marker. It cannot revoke
// the keystore-side authorization; the accounts remain on disk.
func (m *Manager) Disconnect(ctx context.Context) domain.Session {
	m.mu.Lock()
	m.key = nil
	m.session.Account = ""
	m.session.ChainID = 0
	m.session.Err = ""
	snap := m.session
	m.mu.Unlock()

	if err := m.marker.Clear(ctx); err != nil {
		m.logger.Warn("clearing connection marker failed", slog.String("error", err.Error()))
	}

	m.logger.Info("wallet disconnected")
	m.notify(snap)
	return snap
}

// Session returns a read-only snapshot of the current session.
func (m *Manager) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Client returns the provider handle, or nil when no provider is reachable.
func (m *Manager) Client() *ethclient.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// SignerKey returns the unlocked signing key for the active session, or nil
// for a read-only session.
func (m *Manager) SignerKey() *ecdsa.PrivateKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key
}

// OnChange registers a listener invoked with a session snapshot after every
// change. Listeners run on the manager's goroutines and must not block.
func (m *Manager) OnChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// notify delivers a snapshot to all registered listeners.
func (m *Manager) notify(snap domain.Session) {
	m.mu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, l := range listeners {
		l(snap)
	}
}

// watchWallets reacts to keystore account arrivals and departures for the
// lifetime of the manager, mirroring the account-list change semantics of a
// browser wallet: an empty list behaves like Disconnect, a new account
// updates the session and re-persists the marker.
func (m *Manager) watchWallets() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case ev, ok := <-m.walletCh:
			if !ok {
				return
			}
			m.handleWalletEvent(ev)
		case err, ok := <-m.walletSub.Err():
			// Subscription teardown races with Close are expected; log and
			// stop watching.
			if ok && err != nil {
				m.logger.Warn("wallet subscription error", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (m *Manager) handleWalletEvent(ev accounts.WalletEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.mu.Lock()
	accts := m.ks.Accounts()

	var snap domain.Session
	switch {
	case len(accts) == 0:
		// Account list became empty: same as an explicit disconnect.
		m.key = nil
		m.session.Account = ""
		m.session.ChainID = 0
		snap = m.session
		m.mu.Unlock()
		if err := m.marker.Clear(ctx); err != nil {
			m.logger.Warn("clearing connection marker failed", slog.String("error", err.Error()))
		}
		m.logger.Info("all accounts removed, session cleared")

	case ev.Kind == accounts.WalletArrived && !m.session.Connected():
		m.session.Account = accts[0].Address.Hex()
		// Populate the chain id now; waiting for the next poll would leave
		// a connected session on chain 0 in the meantime.
		if chainID, err := m.fetchChainID(ctx); err == nil {
			m.session.ChainID = chainID
		} else {
			m.logger.Warn("chain id unavailable after account arrival", slog.String("error", err.Error()))
		}
		snap = m.session
		m.mu.Unlock()
		if err := m.marker.Set(ctx); err != nil {
			m.logger.Warn("persisting connection marker failed", slog.String("error", err.Error()))
		}
		m.logger.Info("account arrived", slog.String("account", snap.Account))

	case !strings.EqualFold(accts[0].Address.Hex(), m.session.Account) && m.session.Connected():
		// Active account replaced.
		m.session.Account = accts[0].Address.Hex()
		snap = m.session
		m.mu.Unlock()
		if err := m.marker.Set(ctx); err != nil {
			m.logger.Warn("persisting connection marker failed", slog.String("error", err.Error()))
		}
		m.logger.Info("active account changed", slog.String("account", snap.Account))

	default:
		m.mu.Unlock()
		return
	}

	m.notify(snap)
}

// watchChain polls the provider's chain id and updates the session when the
// endpoint switches networks.
func (m *Manager) watchChain() {
	defer m.wg.Done()
	interval := time.Duration(m.providerCfg.ChainPollSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			chainID, err := m.fetchChainID(ctx)
			cancel()
			if err != nil {
				m.logger.Debug("chain id poll failed", slog.String("error", err.Error()))
				continue
			}

			m.mu.Lock()
			if chainID == m.session.ChainID || !m.session.Connected() {
				m.mu.Unlock()
				continue
			}
			m.session.ChainID = chainID
			snap := m.session
			m.mu.Unlock()

			m.logger.Info("chain changed", slog.Uint64("chain_id", chainID))
			m.notify(snap)
		}
	}
}

// fetchChainID reads eth_chainId from the provider and normalizes its hex
// encoding to a numeric chain id.
func (m *Manager) fetchChainID(ctx context.Context) (uint64, error) {
	if m.client == nil {
		return 0, domain.ErrNoProvider
	}

	var hexID string
	if err := m.client.Client().CallContext(ctx, &hexID, "eth_chainId"); err != nil {
		return 0, fmt.Errorf("eth_chainId: %w", err)
	}

	id, err := strconv.ParseUint(strings.TrimPrefix(hexID, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("eth_chainId: parsing %q: %w", hexID, err)
	}
	return id, nil
}

// keySource builds the crypto.KeySource from the wallet configuration.
func (m *Manager) keySource() gatecrypto.KeySource {
	return gatecrypto.KeySource{
		RawPrivateKey:    m.walletCfg.PrivateKey,
		EncryptedKeyPath: m.walletCfg.EncryptedKeyPath,
		KeyPassword:      m.walletCfg.KeyPassword,
	}
}

// Close unsubscribes the account watcher, stops the chain poller, and
// releases the provider handle. Safe to call once.
func (m *Manager) Close() {
	close(m.stopCh)
	if m.walletSub != nil {
		m.walletSub.Unsubscribe()
	}
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
}
