package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/predictgate/predictgate/internal/domain"
)

// WalletService defines the session operations the handler requires.
type WalletService interface {
	Session() domain.Session
	Connect(ctx context.Context) (domain.Session, error)
	Disconnect(ctx context.Context) domain.Session
}

// ChainNamer resolves chain ids to display names.
type ChainNamer interface {
	ChainName(chainID uint64) string
}

// SessionHandler serves the landing-page session endpoints.
type SessionHandler struct {
	wallet WalletService
	chains ChainNamer
	logger *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(wallet WalletService, chains ChainNamer, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		wallet: wallet,
		chains: chains,
		logger: logHandler(logger, "session"),
	}
}

// sessionResponse is the session payload with the resolved chain name and,
// when the session grants access to another page, the route to go to.
type sessionResponse struct {
	domain.Session
	ChainName string `json:"chainName,omitempty"`
	Next      string `json:"next,omitempty"`
}

func (h *SessionHandler) respond(sess domain.Session) sessionResponse {
	resp := sessionResponse{Session: sess}
	if sess.ChainID != 0 {
		resp.ChainName = h.chains.ChainName(sess.ChainID)
	}
	if sess.Connected() {
		resp.Next = RouteHome
	}
	return resp
}

// Status returns the current session.
// GET /api/session
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.respond(h.wallet.Session()))
}

// Connect performs an explicit wallet authorization. The session in the
// response carries the user-facing error message when authorization fails,
// so the landing page can render it inline.
// POST /api/session/connect
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wallet.Connect(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "connect failed", slog.String("error", err.Error()))
		writeJSON(w, statusForConnectError(err), h.respond(sess))
		return
	}
	writeJSON(w, http.StatusOK, h.respond(sess))
}

// Disconnect clears the session and the persisted connection marker.
// POST /api/session/disconnect
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	sess := h.wallet.Disconnect(r.Context())
	resp := h.respond(sess)
	resp.Next = RouteLanding
	writeJSON(w, http.StatusOK, resp)
}

// statusForConnectError keeps the session payload in the body; only the
// status code distinguishes the failure class. Connect surfaces
// domain.ErrNoProvider or domain.ErrConnectRejected.
func statusForConnectError(err error) int {
	if errors.Is(err, domain.ErrNoProvider) {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}
