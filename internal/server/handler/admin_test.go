package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/predictgate/predictgate/internal/domain"
)

func TestAdminStatus(t *testing.T) {
	tests := []struct {
		name       string
		owners     *fakeOwners
		wantStatus int
		wantOwner  bool
		wantNext   string
	}{
		{"owner", &fakeOwners{isOwner: true}, http.StatusOK, true, ""},
		{"non-owner", &fakeOwners{isOwner: false}, http.StatusForbidden, false, RouteHome},
		{"no session", &fakeOwners{err: domain.ErrNoSession}, http.StatusUnauthorized, false, RouteLanding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAdminHandler(tt.owners, &fakeAdmin{}, nil, testLogger())

			rec := httptest.NewRecorder()
			h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/admin", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if tt.wantStatus != http.StatusUnauthorized {
				if got, _ := body["isOwner"].(bool); got != tt.wantOwner {
					t.Errorf("isOwner = %v, want %v", got, tt.wantOwner)
				}
			}
			next, _ := body["next"].(string)
			if next != tt.wantNext {
				t.Errorf("next = %q, want %q", next, tt.wantNext)
			}
		})
	}
}

func TestAdminCreateMarket(t *testing.T) {
	admin := &fakeAdmin{entry: domain.JournalEntry{ID: "e1", Action: domain.ActionCreateMarket}}
	h := NewAdminHandler(&fakeOwners{isOwner: true}, admin, nil, testLogger())

	rec := httptest.NewRecorder()
	h.CreateMarket(rec, httptest.NewRequest(http.MethodPost, "/api/admin/markets",
		strings.NewReader(`{"question": "Will it rain?", "durationSeconds": 3600}`)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var entry domain.JournalEntry
	if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if entry.ID != "e1" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestAdminCreateMarketGate(t *testing.T) {
	h := NewAdminHandler(&fakeOwners{isOwner: false}, &fakeAdmin{}, nil, testLogger())

	rec := httptest.NewRecorder()
	h.CreateMarket(rec, httptest.NewRequest(http.MethodPost, "/api/admin/markets",
		strings.NewReader(`{"question": "q", "durationSeconds": 1}`)))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["next"] != RouteHome {
		t.Errorf("next = %q, want %q", body["next"], RouteHome)
	}
}

func TestAdminResolveMarket(t *testing.T) {
	admin := &fakeAdmin{entry: domain.JournalEntry{ID: "e2", Action: domain.ActionResolveMarket}}
	h := NewAdminHandler(&fakeOwners{isOwner: true}, admin, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/markets/5/resolve",
		strings.NewReader(`{"outcome": true}`))
	req.SetPathValue("id", "5")

	rec := httptest.NewRecorder()
	h.ResolveMarket(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAdminJournal(t *testing.T) {
	admin := &fakeAdmin{entries: []domain.JournalEntry{{ID: "a"}, {ID: "b"}}}
	h := NewAdminHandler(&fakeOwners{isOwner: true}, admin, nil, testLogger())

	rec := httptest.NewRecorder()
	h.Journal(rec, httptest.NewRequest(http.MethodGet, "/api/admin/journal", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Entries []domain.JournalEntry `json:"entries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(body.Entries))
	}
}

func TestAdminJournalEmpty(t *testing.T) {
	h := NewAdminHandler(&fakeOwners{isOwner: true}, &fakeAdmin{}, nil, testLogger())

	rec := httptest.NewRecorder()
	h.Journal(rec, httptest.NewRequest(http.MethodGet, "/api/admin/journal", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"entries":[]`) {
		t.Errorf("body = %s, want an empty array, not null", rec.Body.String())
	}
}

func TestAdminArchivesUnconfigured(t *testing.T) {
	h := NewAdminHandler(&fakeOwners{isOwner: true}, &fakeAdmin{}, nil, testLogger())

	rec := httptest.NewRecorder()
	h.ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/admin/archives", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without archive storage", rec.Code)
	}
}

type fakeArchives struct {
	objects map[string]string
}

func (f *fakeArchives) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := f.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (f *fakeArchives) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for path := range f.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{Path: path})
		}
	}
	return infos, nil
}

func TestAdminGetArchive(t *testing.T) {
	archives := &fakeArchives{objects: map[string]string{
		"archive/markets/534351/5.json": `{"id":"5"}`,
	}}
	h := NewAdminHandler(&fakeOwners{isOwner: true}, &fakeAdmin{}, archives, testLogger())

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"existing object", "markets/534351/5.json", http.StatusOK, `{"id":"5"}`},
		{"missing object", "markets/534351/9.json", http.StatusNotFound, ""},
		{"traversal", "../secrets", http.StatusBadRequest, ""},
		{"empty path", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/archives/x", nil)
			req.SetPathValue("path", tt.path)

			rec := httptest.NewRecorder()
			h.GetArchive(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAdminListArchives(t *testing.T) {
	archives := &fakeArchives{objects: map[string]string{
		"archive/markets/534351/5.json":  "{}",
		"archive/journal/534351/5.jsonl": "{}",
	}}
	h := NewAdminHandler(&fakeOwners{isOwner: true}, &fakeAdmin{}, archives, testLogger())

	rec := httptest.NewRecorder()
	h.ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/admin/archives", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Archives []domain.BlobInfo `json:"archives"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Archives) != 2 {
		t.Errorf("archives = %d, want 2", len(body.Archives))
	}
}
