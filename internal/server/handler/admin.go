package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/predictgate/predictgate/internal/domain"
)

// OwnerChecker verifies contract ownership for the active session.
type OwnerChecker interface {
	IsOwner(ctx context.Context) (bool, error)
}

// AdminService defines the owner-only operations.
type AdminService interface {
	CreateMarket(ctx context.Context, question string, durationSeconds int64) (domain.JournalEntry, error)
	ResolveMarket(ctx context.Context, marketID string, outcome bool) (domain.JournalEntry, error)
	Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error)
}

// AdminHandler serves the admin-page endpoints. All of them are owner
// gated: a request without a session points to the landing page, a
// non-owner session points to the home page.
type AdminHandler struct {
	owners   OwnerChecker
	admin    AdminService
	archives domain.BlobReader // nil when no object store is configured
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(owners OwnerChecker, admin AdminService, archives domain.BlobReader, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		owners:   owners,
		admin:    admin,
		archives: archives,
		logger:   logHandler(logger, "admin"),
	}
}

// adminStatus is the access-check payload. Until the ownership check has
// completed the client stays on a neutral checking state; it must never
// flash the admin controls to a non-owner.
type adminStatus struct {
	IsOwner bool   `json:"isOwner"`
	Next    string `json:"next,omitempty"`
}

// Status runs the ownership check for the active session.
// GET /api/admin
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	isOwner, err := h.owners.IsOwner(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !isOwner {
		writeJSON(w, http.StatusForbidden, adminStatus{IsOwner: false, Next: RouteHome})
		return
	}
	writeJSON(w, http.StatusOK, adminStatus{IsOwner: true})
}

// gate rejects non-owner requests before any admin operation runs.
func (h *AdminHandler) gate(w http.ResponseWriter, r *http.Request) bool {
	isOwner, err := h.owners.IsOwner(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return false
	}
	if !isOwner {
		writeDomainError(w, domain.ErrNotOwner)
		return false
	}
	return true
}

// createMarketRequest is the body of the create endpoint.
type createMarketRequest struct {
	Question        string `json:"question"`
	DurationSeconds int64  `json:"durationSeconds"`
}

// CreateMarket creates a new market.
// POST /api/admin/markets
func (h *AdminHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.admin.CreateMarket(r.Context(), req.Question, req.DurationSeconds)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidInput) {
			h.logger.ErrorContext(r.Context(), "create market failed", slog.String("error", err.Error()))
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// resolveMarketRequest is the body of the resolve endpoint.
type resolveMarketRequest struct {
	Outcome bool `json:"outcome"`
}

// ResolveMarket records a market's outcome and distributes winnings.
// POST /api/admin/markets/{id}/resolve
func (h *AdminHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	id := pathParam(r, "id")
	var req resolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.admin.ResolveMarket(r.Context(), id, req.Outcome)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "resolve market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Journal returns the most recent orchestrated transactions.
// GET /api/admin/journal?limit=50
func (h *AdminHandler) Journal(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}

	entries, err := h.admin.Recent(r.Context(), parseLimit(r, 50))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "journal list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list journal")
		return
	}
	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ListArchives lists archived resolved-market objects.
// GET /api/admin/archives
func (h *AdminHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}
	if h.archives == nil {
		writeError(w, http.StatusNotFound, "archive storage not configured")
		return
	}

	infos, err := h.archives.List(r.Context(), "archive/")
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": infos})
}

// GetArchive streams one archived object.
// GET /api/admin/archives/{path...}
func (h *AdminHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r) {
		return
	}
	if h.archives == nil {
		writeError(w, http.StatusNotFound, "archive storage not configured")
		return
	}

	path := pathParam(r, "path")
	if path == "" || strings.Contains(path, "..") {
		writeError(w, http.StatusBadRequest, "invalid archive path")
		return
	}

	body, err := h.archives.Get(r.Context(), "archive/"+path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "archive fetch failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to fetch archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "archive stream interrupted", slog.String("error", err.Error()))
	}
}
