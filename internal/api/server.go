// Package api provides REST API access to stored datasets.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"iff_parser/internal/iff"
	"iff_parser/internal/storage"
)

// defaultPageSize caps rows per response when the client does not ask
// for a limit.
const defaultPageSize = 1000

// Server serves datasets from a storage backend.
type Server struct {
	store storage.Store
	port  int
}

// Config holds configuration for the dataset API server.
type Config struct {
	Port int
}

// NewServer creates a new dataset API server.
func NewServer(store storage.Store, cfg Config) *Server {
	return &Server{store: store, port: cfg.Port}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := ":" + strconv.Itoa(s.port)
	log.Printf("Dataset API starting at http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler builds the route tree. Exposed separately from Run for
// tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/datasets", s.handleListDatasets)
		r.Get("/datasets/{key}", s.handleGetDataset)
		r.Get("/datasets/{key}/callsigns", s.handleGetCallsigns)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.ListDatasets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": keys})
}

// DatasetResponse is the JSON response for a dataset page.
type DatasetResponse struct {
	Key      string   `json:"key"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	Offset   int      `json:"offset"`
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	table, err := s.store.GetDataset(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such dataset")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	limit := queryInt(r, "limit", defaultPageSize)
	offset := queryInt(r, "offset", 0)
	page := pageRows(table, offset, limit)

	writeJSON(w, http.StatusOK, DatasetResponse{
		Key:      key,
		Columns:  table.Columns,
		Rows:     page,
		RowCount: table.NumRows(),
		Offset:   offset,
	})
}

func (s *Server) handleGetCallsigns(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	table, err := s.store.GetDataset(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such dataset")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !table.HasColumn("callsign") {
		writeError(w, http.StatusBadRequest, "dataset has no callsign column")
		return
	}
	callsigns := table.DistinctStrings("callsign")
	if callsigns == nil {
		callsigns = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "callsigns": callsigns})
}

func pageRows(table *iff.Table, offset, limit int) [][]any {
	if offset < 0 {
		offset = 0
	}
	if offset >= table.NumRows() {
		return [][]any{}
	}
	// A non-positive limit falls back to the default page size rather
	// than returning everything.
	if limit <= 0 {
		limit = defaultPageSize
	}
	end := offset + limit
	if end > table.NumRows() {
		end = table.NumRows()
	}
	return table.Rows[offset:end]
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
