// Package storage persists decoded tables as named datasets. SQLite is
// the default backend, PostgreSQL serves shared deployments, and
// ClickHouse holds the track point archive for analytics.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"iff_parser/internal/iff"
)

// ErrNotFound is returned when the requested dataset key does not
// exist in the store.
var ErrNotFound = errors.New("dataset not found")

// Store is implemented by each dataset backend.
type Store interface {
	// PutDataset stores a table under a key, replacing any existing
	// dataset with that key.
	PutDataset(ctx context.Context, key string, table *iff.Table) error

	// GetDataset retrieves a stored table. Returns ErrNotFound if the
	// key does not exist.
	GetDataset(ctx context.Context, key string) (*iff.Table, error)

	// ListDatasets returns all stored keys in lexical order.
	ListDatasets(ctx context.Context) ([]string, error)

	// DeleteDataset removes a dataset. Deleting a missing key is not
	// an error.
	DeleteDataset(ctx context.Context, key string) error

	Close() error
}

// Cell values are JSON with one special case: timestamps, which JSON
// has no type for, are wrapped so a round trip restores a time.Time
// rather than a string.
type timeCell struct {
	Time string `json:"$time"`
}

func encodeRow(row []any) ([]byte, error) {
	out := make([]any, len(row))
	for i, v := range row {
		if ts, ok := v.(time.Time); ok {
			out[i] = timeCell{Time: ts.UTC().Format(time.RFC3339Nano)}
		} else {
			out[i] = v
		}
	}
	return json.Marshal(out)
}

func decodeRow(data []byte, width int) ([]any, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) != width {
		return nil, fmt.Errorf("stored row has %d cells, dataset schema has %d", len(raw), width)
	}
	row := make([]any, width)
	for i, cell := range raw {
		var tc timeCell
		if err := json.Unmarshal(cell, &tc); err == nil && tc.Time != "" {
			ts, err := time.Parse(time.RFC3339Nano, tc.Time)
			if err != nil {
				return nil, fmt.Errorf("bad stored timestamp %q: %w", tc.Time, err)
			}
			row[i] = ts
			continue
		}
		var v any
		if err := json.Unmarshal(cell, &v); err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}
