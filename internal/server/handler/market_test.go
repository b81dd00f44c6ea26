package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/predictgate/predictgate/internal/domain"
)

func decodeMarkets(t *testing.T, rec *httptest.ResponseRecorder) marketsResponse {
	t.Helper()
	var resp marketsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp
}

func TestMarketListGate(t *testing.T) {
	h := NewMarketHandler(&fakeWallet{}, &fakeMarketReader{}, &fakeBets{}, testLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["next"] != RouteLanding {
		t.Errorf("next = %q, want %q", body["next"], RouteLanding)
	}
}

func TestMarketListServesSnapshot(t *testing.T) {
	reader := &fakeMarketReader{
		snapshot: domain.Snapshot{
			Cycle:   4,
			Account: "0xabc",
			ChainID: 534351,
			Markets: []domain.Market{{ID: "1", Question: "Will it rain?"}},
		},
		hasSnap: true,
	}
	h := NewMarketHandler(&fakeWallet{session: connectedSession()}, reader, &fakeBets{}, testLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeMarkets(t, rec)
	if resp.Cycle != 4 || len(resp.Markets) != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.ChainName != "Scroll Sepolia" {
		t.Errorf("chainName = %q", resp.ChainName)
	}
	if reader.refreshes != 0 {
		t.Errorf("refreshes = %d, a cached snapshot should be served directly", reader.refreshes)
	}
}

func TestMarketListRefreshesOnMiss(t *testing.T) {
	reader := &fakeMarketReader{
		snapshot: domain.Snapshot{Cycle: 1, Markets: []domain.Market{{ID: "1"}}},
	}
	h := NewMarketHandler(&fakeWallet{session: connectedSession()}, reader, &fakeBets{}, testLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if reader.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1 on snapshot miss", reader.refreshes)
	}
}

func TestMarketListStaleRefreshServesPublished(t *testing.T) {
	// No snapshot yet and the initial refresh loses the cycle race: the
	// list must serve the winning cycle's snapshot, not an empty one.
	reader := &fakeMarketReader{
		snapshot:   domain.Snapshot{Cycle: 6, Markets: []domain.Market{{ID: "4"}}},
		refreshErr: domain.ErrStaleCycle,
	}
	h := NewMarketHandler(&fakeWallet{session: connectedSession()}, reader, &fakeBets{}, testLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeMarkets(t, rec)
	if resp.Cycle != 6 || len(resp.Markets) != 1 {
		t.Errorf("response = cycle %d with %d markets, want the published cycle 6 with 1", resp.Cycle, len(resp.Markets))
	}
}

func TestMarketRefreshStaleCycleServesNewer(t *testing.T) {
	reader := &fakeMarketReader{
		snapshot:   domain.Snapshot{Cycle: 9, Markets: []domain.Market{{ID: "2"}}},
		hasSnap:    true,
		refreshErr: domain.ErrStaleCycle,
	}
	h := NewMarketHandler(&fakeWallet{session: connectedSession()}, reader, &fakeBets{}, testLogger())

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/markets/refresh", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeMarkets(t, rec)
	if resp.Cycle != 9 {
		t.Errorf("cycle = %d, want the newer published cycle 9", resp.Cycle)
	}
}

func TestMarketRefreshUnsupportedChain(t *testing.T) {
	sess := domain.Session{Account: "0xabc", ChainID: 1}
	reader := &fakeMarketReader{
		refreshErr: fmt.Errorf("%w: chain 1", domain.ErrUnsupportedChain),
	}
	h := NewMarketHandler(&fakeWallet{session: sess}, reader, &fakeBets{}, testLogger())

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/markets/refresh", nil))

	// The unsupported-network state is page content, not an error.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeMarkets(t, rec)
	if !resp.Unsupported {
		t.Error("response should flag the unsupported chain")
	}
	if resp.ChainName != "Unsupported Network" {
		t.Errorf("chainName = %q", resp.ChainName)
	}
	if len(resp.Markets) != 0 {
		t.Errorf("markets = %v, want empty", resp.Markets)
	}
}

func TestMarketRefreshProviderDown(t *testing.T) {
	reader := &fakeMarketReader{refreshErr: domain.ErrNoProvider}
	h := NewMarketHandler(&fakeWallet{session: connectedSession()}, reader, &fakeBets{}, testLogger())

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/markets/refresh", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestPlaceBetHandler(t *testing.T) {
	bets := &fakeBets{entry: domain.JournalEntry{ID: "e1", Status: domain.JournalConfirmed}}
	h := NewMarketHandler(&fakeWallet{session: connectedSession()}, &fakeMarketReader{}, bets, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/markets/7/bets",
		strings.NewReader(`{"prediction": true, "amount": "0.5"}`))
	req.SetPathValue("id", "7")

	rec := httptest.NewRecorder()
	h.PlaceBet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if bets.lastBet != "7" {
		t.Errorf("bet market id = %q, want 7", bets.lastBet)
	}
	var entry domain.JournalEntry
	if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if entry.ID != "e1" || entry.Status != domain.JournalConfirmed {
		t.Errorf("entry = %+v", entry)
	}
}

func TestPlaceBetHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{"malformed body", `{`, nil, http.StatusBadRequest},
		{"invalid input", `{"amount": "-1"}`, fmt.Errorf("%w: amount", domain.ErrInvalidInput), http.StatusBadRequest},
		{"tx failed", `{"amount": "1"}`, fmt.Errorf("%w: reverted", domain.ErrTxFailed), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bets := &fakeBets{err: tt.serviceErr}
			h := NewMarketHandler(&fakeWallet{session: connectedSession()}, &fakeMarketReader{}, bets, testLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/markets/7/bets", strings.NewReader(tt.body))
			req.SetPathValue("id", "7")

			rec := httptest.NewRecorder()
			h.PlaceBet(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestClaimHandler(t *testing.T) {
	bets := &fakeBets{entry: domain.JournalEntry{ID: "e2", Status: domain.JournalConfirmed}}
	h := NewMarketHandler(&fakeWallet{session: connectedSession()}, &fakeMarketReader{}, bets, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/markets/3/claim", nil)
	req.SetPathValue("id", "3")

	rec := httptest.NewRecorder()
	h.Claim(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if bets.lastClam != "3" {
		t.Errorf("claim market id = %q, want 3", bets.lastClam)
	}
}

func TestClaimHandlerTxFailure(t *testing.T) {
	bets := &fakeBets{err: fmt.Errorf("%w: nothing to claim", domain.ErrTxFailed)}
	h := NewMarketHandler(&fakeWallet{session: connectedSession()}, &fakeMarketReader{}, bets, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/markets/3/claim", nil)
	req.SetPathValue("id", "3")

	rec := httptest.NewRecorder()
	h.Claim(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["error"] == "" {
		t.Error("error body should carry a message")
	}
}
