package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"iff_parser/internal/iff"
)

// SQLiteStore keeps datasets in a local SQLite file. It is the default
// backend for single-user work.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite dataset store at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		key        TEXT PRIMARY KEY,
		columns    TEXT NOT NULL,
		row_count  INTEGER NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS dataset_rows (
		dataset_key TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		row         TEXT NOT NULL,
		PRIMARY KEY (dataset_key, seq)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// PutDataset stores a table under a key, replacing any existing
// dataset with that key. The write is transactional.
func (s *SQLiteStore) PutDataset(ctx context.Context, key string, table *iff.Table) error {
	columns, err := json.Marshal(table.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset_key = ?`, key); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO datasets (key, columns, row_count) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET columns = excluded.columns, row_count = excluded.row_count
	`, key, string(columns), table.NumRows()); err != nil {
		return fmt.Errorf("upsert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dataset_rows (dataset_key, seq, row) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for seq, row := range table.Rows {
		data, err := encodeRow(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", seq, err)
		}
		if _, err := stmt.ExecContext(ctx, key, seq, string(data)); err != nil {
			return fmt.Errorf("insert row %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

// GetDataset retrieves a stored table, rows in original order.
func (s *SQLiteStore) GetDataset(ctx context.Context, key string) (*iff.Table, error) {
	var columnsJSON string
	err := s.db.QueryRowContext(ctx, `SELECT columns FROM datasets WHERE key = ?`, key).Scan(&columnsJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	var columns []string
	if err := json.Unmarshal([]byte(columnsJSON), &columns); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT row FROM dataset_rows WHERE dataset_key = ? ORDER BY seq`, key)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	table := iff.NewTable(columns)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row, err := decodeRow([]byte(data), len(columns))
		if err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		table.Append(row)
	}
	return table, rows.Err()
}

// ListDatasets returns the stored keys in lexical order.
func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM datasets ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteDataset removes a dataset and its rows.
func (s *SQLiteStore) DeleteDataset(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset_key = ?`, key); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return tx.Commit()
}
