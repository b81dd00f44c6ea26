// Package service glues the wallet session to contract bindings and the
// market aggregator. It is the layer handlers talk to.
package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/predictgate/predictgate/internal/domain"
)

// refreshTimeout bounds a single session-triggered background refresh.
const refreshTimeout = 30 * time.Second

// invalidateTimeout bounds the cache drop on a session change.
const invalidateTimeout = 5 * time.Second

// SessionSource exposes the wallet manager surface the service needs.
type SessionSource interface {
	Session() domain.Session
	Client() *ethclient.Client
	SignerKey() *ecdsa.PrivateKey
}

// Binder builds contract bindings per chain.
type Binder interface {
	Supported(chainID uint64) bool
	ChainName(chainID uint64) string
	Binding(client *ethclient.Client, chainID uint64, key *ecdsa.PrivateKey) (domain.MarketContract, bool)
}

// Refresher runs refresh cycles and holds the published snapshot. Current
// only returns a snapshot fetched under the given account and chain.
type Refresher interface {
	Refresh(ctx context.Context, contract domain.MarketContract, account string, chainID uint64) (domain.Snapshot, error)
	Current(ctx context.Context, account string, chainID uint64) (domain.Snapshot, bool)
	Invalidate(ctx context.Context)
}

// MarketService resolves the active session into a contract binding and
// drives market refreshes, both on demand and on a timer.
type MarketService struct {
	sessions SessionSource
	binder   Binder
	agg      Refresher
	logger   *slog.Logger

	autoRefresh time.Duration
}

// NewMarketService creates a MarketService. autoRefreshSeconds of zero
// disables the background refresh ticker.
func NewMarketService(sessions SessionSource, binder Binder, agg Refresher, autoRefreshSeconds int, logger *slog.Logger) *MarketService {
	return &MarketService{
		sessions:    sessions,
		binder:      binder,
		agg:         agg,
		logger:      logger.With(slog.String("component", "market_service")),
		autoRefresh: time.Duration(autoRefreshSeconds) * time.Second,
	}
}

// Binding resolves the current session into a contract binding. It fails
// with domain.ErrNoProvider when no node is reachable, domain.ErrNoSession
// when no wallet is connected, and domain.ErrUnsupportedChain when the
// session chain has no deployed contract. No contract call is ever made on
// an unsupported chain.
func (s *MarketService) Binding() (domain.MarketContract, domain.Session, error) {
	sess := s.sessions.Session()

	client := s.sessions.Client()
	if client == nil {
		return nil, sess, domain.ErrNoProvider
	}
	if !sess.Connected() {
		return nil, sess, domain.ErrNoSession
	}

	binding, ok := s.binder.Binding(client, sess.ChainID, s.sessions.SignerKey())
	if !ok {
		return nil, sess, fmt.Errorf("%w: chain %d (%s)", domain.ErrUnsupportedChain, sess.ChainID, s.binder.ChainName(sess.ChainID))
	}
	return binding, sess, nil
}

// Refresh runs one refresh cycle for the active session.
func (s *MarketService) Refresh(ctx context.Context) (domain.Snapshot, error) {
	binding, sess, err := s.Binding()
	if err != nil {
		return domain.Snapshot{}, err
	}
	return s.agg.Refresh(ctx, binding, sess.Account, sess.ChainID)
}

// Snapshot returns the newest snapshot fetched for the active session
// without touching the chain. A snapshot from another account or chain is
// never served.
func (s *MarketService) Snapshot(ctx context.Context) (domain.Snapshot, bool) {
	sess := s.sessions.Session()
	return s.agg.Current(ctx, sess.Account, sess.ChainID)
}

// ChainName resolves a chain id to its display name.
func (s *MarketService) ChainName(chainID uint64) string {
	return s.binder.ChainName(chainID)
}

// IsOwner reports whether the active session account is the contract owner.
func (s *MarketService) IsOwner(ctx context.Context) (bool, error) {
	binding, sess, err := s.Binding()
	if err != nil {
		return false, err
	}
	owner, err := binding.Owner(ctx)
	if err != nil {
		return false, fmt.Errorf("market_service: owner: %w", err)
	}
	return strings.EqualFold(owner, sess.Account), nil
}

// OnSessionChange is registered as a wallet change listener. A new account
// or chain invalidates the published and cached snapshots and kicks a
// background refresh so the next read never serves the previous session's
// markets.
func (s *MarketService) OnSessionChange(sess domain.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	if _, ok := s.agg.Current(ctx, sess.Account, sess.ChainID); !ok {
		s.agg.Invalidate(ctx)
	}
	cancel()

	if !sess.Connected() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrStaleCycle) {
			s.logger.Warn("session-change refresh failed", slog.String("error", err.Error()))
		}
	}()
}

// Run drives the periodic auto refresh until ctx is cancelled. Cycles are
// skipped quietly while no session is connected.
func (s *MarketService) Run(ctx context.Context) error {
	if s.autoRefresh <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.autoRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				switch {
				case errors.Is(err, domain.ErrNoSession), errors.Is(err, domain.ErrNoProvider):
					// Nothing to refresh yet.
				case errors.Is(err, domain.ErrStaleCycle):
					// A newer cycle already published.
				default:
					s.logger.Warn("auto refresh failed", slog.String("error", err.Error()))
				}
			}
		}
	}
}
