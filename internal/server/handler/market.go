package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/predictgate/predictgate/internal/domain"
)

// MarketReader defines the read-side market operations the handler needs.
type MarketReader interface {
	Snapshot(ctx context.Context) (domain.Snapshot, bool)
	Refresh(ctx context.Context) (domain.Snapshot, error)
	ChainName(chainID uint64) string
}

// BetService defines the write-side operations reachable from the home page.
type BetService interface {
	PlaceBet(ctx context.Context, marketID string, prediction bool, amountEther string) (domain.JournalEntry, error)
	ClaimWinnings(ctx context.Context, marketID string) (domain.JournalEntry, error)
}

// MarketHandler serves the home-page market endpoints. Every endpoint is
// session gated: without a connected wallet the client is pointed back to
// the landing page.
type MarketHandler struct {
	wallet  WalletService
	markets MarketReader
	bets    BetService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(wallet WalletService, markets MarketReader, bets BetService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		wallet:  wallet,
		markets: markets,
		bets:    bets,
		logger:  logHandler(logger, "market"),
	}
}

// marketsResponse is the home-page payload. On an unsupported chain the
// market list is empty and Unsupported is set; the client renders the
// network banner instead of markets.
type marketsResponse struct {
	Account     string          `json:"account"`
	ChainID     uint64          `json:"chainId"`
	ChainName   string          `json:"chainName"`
	Unsupported bool            `json:"unsupported,omitempty"`
	Cycle       uint64          `json:"cycle"`
	Markets     []domain.Market `json:"markets"`
}

// gate rejects requests without a connected session.
func (h *MarketHandler) gate(w http.ResponseWriter) (domain.Session, bool) {
	sess := h.wallet.Session()
	if !sess.Connected() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "no wallet connected",
			"next":  RouteLanding,
		})
		return sess, false
	}
	return sess, true
}

// List returns the current market snapshot, refreshing first when none has
// been published yet.
// GET /api/markets
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.gate(w)
	if !ok {
		return
	}

	snap, have := h.markets.Snapshot(r.Context())
	if !have {
		fresh, err := h.markets.Refresh(r.Context())
		switch {
		case err == nil:
			snap = fresh
		case errors.Is(err, domain.ErrStaleCycle):
			// A concurrent refresh won the cycle; serve what it published.
			if newer, ok := h.markets.Snapshot(r.Context()); ok {
				snap = newer
			}
		default:
			h.respondRefreshError(w, r, err, sess)
			return
		}
	}

	writeJSON(w, http.StatusOK, marketsResponse{
		Account:   sess.Account,
		ChainID:   sess.ChainID,
		ChainName: h.markets.ChainName(sess.ChainID),
		Cycle:     snap.Cycle,
		Markets:   snap.Markets,
	})
}

// Refresh forces a refresh cycle and returns the fresh snapshot. A cycle
// superseded by a newer one returns the newer published snapshot instead.
// POST /api/markets/refresh
func (h *MarketHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.gate(w)
	if !ok {
		return
	}

	snap, err := h.markets.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrStaleCycle) {
			if newer, have := h.markets.Snapshot(r.Context()); have {
				snap = newer
			}
		} else {
			h.respondRefreshError(w, r, err, sess)
			return
		}
	}

	writeJSON(w, http.StatusOK, marketsResponse{
		Account:   sess.Account,
		ChainID:   sess.ChainID,
		ChainName: h.markets.ChainName(sess.ChainID),
		Cycle:     snap.Cycle,
		Markets:   snap.Markets,
	})
}

// respondRefreshError renders the unsupported-network state as a normal
// page payload; other failures use the error taxonomy.
func (h *MarketHandler) respondRefreshError(w http.ResponseWriter, r *http.Request, err error, sess domain.Session) {
	if errors.Is(err, domain.ErrUnsupportedChain) {
		writeJSON(w, http.StatusOK, marketsResponse{
			Account:     sess.Account,
			ChainID:     sess.ChainID,
			ChainName:   h.markets.ChainName(sess.ChainID),
			Unsupported: true,
			Markets:     []domain.Market{},
		})
		return
	}
	h.logger.ErrorContext(r.Context(), "refresh failed", slog.String("error", err.Error()))
	writeDomainError(w, err)
}

// placeBetRequest is the body of the bet endpoint. Amount is a decimal
// ether string exactly as the user typed it.
type placeBetRequest struct {
	Prediction bool   `json:"prediction"`
	Amount     string `json:"amount"`
}

// PlaceBet places a yes/no bet on a market.
// POST /api/markets/{id}/bets
func (h *MarketHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.gate(w); !ok {
		return
	}

	id := pathParam(r, "id")
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.bets.PlaceBet(r.Context(), id, req.Prediction, req.Amount)
	if err != nil && !errors.Is(err, domain.ErrInvalidInput) {
		h.logger.ErrorContext(r.Context(), "place bet failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Claim claims the caller's winnings on a resolved market.
// POST /api/markets/{id}/claim
func (h *MarketHandler) Claim(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.gate(w); !ok {
		return
	}

	id := pathParam(r, "id")
	entry, err := h.bets.ClaimWinnings(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "claim failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
