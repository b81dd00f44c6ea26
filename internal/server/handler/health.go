package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/predictgate/predictgate/internal/domain"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	wallet WalletService
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(wallet WalletService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{wallet: wallet, logger: logger}
}

// HealthCheck reports liveness plus whether a provider session exists. It
// stays 200 even without a session; the gateway is healthy either way.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var sess domain.Session
	if h.wallet != nil {
		sess = h.wallet.Session()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"connected": sess.Connected(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
