package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"iff_parser/internal/iff"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresStore keeps datasets in PostgreSQL for shared deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL and ensures the
// dataset tables exist.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		key        TEXT PRIMARY KEY,
		columns    JSONB NOT NULL,
		row_count  INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS dataset_rows (
		dataset_key TEXT NOT NULL REFERENCES datasets(key) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		row         JSONB NOT NULL,
		PRIMARY KEY (dataset_key, seq)
	);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// PutDataset stores a table under a key, replacing any existing
// dataset with that key.
func (s *PostgresStore) PutDataset(ctx context.Context, key string, table *iff.Table) error {
	columns, err := json.Marshal(table.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dataset_rows WHERE dataset_key = $1`, key); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO datasets (key, columns, row_count) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET columns = EXCLUDED.columns, row_count = EXCLUDED.row_count
	`, key, string(columns), table.NumRows()); err != nil {
		return fmt.Errorf("upsert dataset: %w", err)
	}

	// Bulk-load the rows; datasets can run to hundreds of thousands.
	rows := make([][]any, 0, table.NumRows())
	for seq, row := range table.Rows {
		data, err := encodeRow(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", seq, err)
		}
		rows = append(rows, []any{key, seq, string(data)})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"dataset_rows"},
		[]string{"dataset_key", "seq", "row"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}

	return tx.Commit(ctx)
}

// GetDataset retrieves a stored table, rows in original order.
func (s *PostgresStore) GetDataset(ctx context.Context, key string) (*iff.Table, error) {
	var columnsJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT columns FROM datasets WHERE key = $1`, key).Scan(&columnsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	var columns []string
	if err := json.Unmarshal(columnsJSON, &columns); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT row FROM dataset_rows WHERE dataset_key = $1 ORDER BY seq`, key)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	table := iff.NewTable(columns)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row, err := decodeRow(data, len(columns))
		if err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		table.Append(row)
	}
	return table, rows.Err()
}

// ListDatasets returns the stored keys in lexical order.
func (s *PostgresStore) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM datasets ORDER BY key`)
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

// DeleteDataset removes a dataset; rows go with it via the foreign
// key.
func (s *PostgresStore) DeleteDataset(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM datasets WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return nil
}
