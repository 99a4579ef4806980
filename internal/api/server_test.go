package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"iff_parser/internal/iff"
	"iff_parser/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(store, Config{Port: 0}), store
}

func seedTrack(t *testing.T, store *storage.SQLiteStore, key string, n int) {
	t.Helper()
	table := iff.NewTable([]string{"callsign", "latitude", "longitude"})
	for i := 0; i < n; i++ {
		cs := "ABC123"
		if i%2 == 1 {
			cs = "DEF456"
		}
		table.Append([]any{cs, 37.61, -122.39})
	}
	if err := store.PutDataset(context.Background(), key, table); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv.Handler(), "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}

func TestListDatasets(t *testing.T) {
	srv, store := newTestServer(t)
	seedTrack(t, store, "sfo_track", 4)
	seedTrack(t, store, "phx_track", 2)

	rec := get(t, srv.Handler(), "/api/v1/datasets")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Datasets []string `json:"datasets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Datasets) != 2 || body.Datasets[0] != "phx_track" {
		t.Errorf("datasets = %v", body.Datasets)
	}
}

func TestGetDatasetPaging(t *testing.T) {
	srv, store := newTestServer(t)
	seedTrack(t, store, "track", 10)

	rec := get(t, srv.Handler(), "/api/v1/datasets/track?limit=4&offset=8")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body DatasetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.RowCount != 10 {
		t.Errorf("row_count = %d, want 10", body.RowCount)
	}
	if len(body.Rows) != 2 {
		t.Errorf("page has %d rows, want 2 (clamped at end)", len(body.Rows))
	}
	if len(body.Columns) != 3 {
		t.Errorf("columns = %v", body.Columns)
	}
}

func TestPageRowsLimitClamped(t *testing.T) {
	table := iff.NewTable([]string{"callsign"})
	for i := 0; i < defaultPageSize+200; i++ {
		table.Append([]any{"ABC123"})
	}

	// A zero or negative limit must not dump the whole dataset.
	for _, limit := range []int{0, -1} {
		if got := len(pageRows(table, 0, limit)); got != defaultPageSize {
			t.Errorf("limit %d returned %d rows, want %d", limit, got, defaultPageSize)
		}
	}
	if got := len(pageRows(table, defaultPageSize, 0)); got != 200 {
		t.Errorf("tail page has %d rows, want 200", got)
	}
}

func TestGetDatasetNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv.Handler(), "/api/v1/datasets/absent")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetCallsigns(t *testing.T) {
	srv, store := newTestServer(t)
	seedTrack(t, store, "track", 6)

	rec := get(t, srv.Handler(), "/api/v1/datasets/track/callsigns")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Callsigns []string `json:"callsigns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Callsigns) != 2 {
		t.Errorf("callsigns = %v, want 2 distinct", body.Callsigns)
	}
}

func TestGetCallsignsNoColumn(t *testing.T) {
	srv, store := newTestServer(t)
	table := iff.NewTable([]string{"comment"})
	table.Append([]any{"hello"})
	if err := store.PutDataset(context.Background(), "comments", table); err != nil {
		t.Fatal(err)
	}

	rec := get(t, srv.Handler(), "/api/v1/datasets/comments/callsigns")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
