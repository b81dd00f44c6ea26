// Package handler contains the HTTP handlers for the gateway API. Each
// handler declares the narrow service interface it needs so the package
// stays decoupled from the concrete service types.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/predictgate/predictgate/internal/domain"
)

// Route hints returned to the client alongside gated responses.
const (
	RouteLanding = "/"
	RouteHome    = "/home"
	RouteAdmin   = "/admin"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy to HTTP statuses. Gated
// conditions carry a route hint so clients know where to send the user.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		msg    = "internal error"
		next   string
	)

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNoSession):
		status, msg, next = http.StatusUnauthorized, "no wallet connected", RouteLanding
	case errors.Is(err, domain.ErrConnectRejected):
		status, msg = http.StatusUnauthorized, "wallet authorization rejected"
	case errors.Is(err, domain.ErrNotOwner):
		status, msg, next = http.StatusForbidden, "admin access requires the contract owner account", RouteHome
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrUnsupportedChain):
		status, msg = http.StatusConflict, "Unsupported Network"
	case errors.Is(err, domain.ErrTxFailed):
		status, msg = http.StatusBadGateway, "transaction failed"
	case errors.Is(err, domain.ErrNoProvider):
		status, msg = http.StatusServiceUnavailable, "no node provider reachable"
	}

	body := map[string]string{"error": msg}
	if next != "" {
		body["next"] = next
	}
	writeJSON(w, status, body)
}

// parseLimit extracts a bounded limit query parameter.
// Defaults to def; capped at 500.
func parseLimit(r *http.Request, def int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}
	return limit
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
