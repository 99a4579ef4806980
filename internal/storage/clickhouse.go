package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"iff_parser/internal/iff"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// TrackArchive stores normalized track points in ClickHouse for
// analytical queries across many recordings. One row per track sample,
// keyed by the recording source name.
type TrackArchive struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse and ensures the
// archive table exists.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*TrackArchive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	a := &TrackArchive{conn: conn}
	if err := a.createSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return a, nil
}

// Close closes the ClickHouse connection.
func (a *TrackArchive) Close() error {
	return a.conn.Close()
}

func (a *TrackArchive) createSchema(ctx context.Context) error {
	return a.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS track_points (
			source    String,
			time      DateTime64(3, 'UTC'),
			callsign  String,
			latitude  Nullable(Float64),
			longitude Nullable(Float64),
			altitude  Nullable(Float64),
			rocd      Nullable(Float64),
			tas       Nullable(Float64),
			heading   Nullable(Float64)
		)
		ENGINE = MergeTree()
		ORDER BY (source, callsign, time)
	`)
}

// archiveColumns are the normalized track columns carried into the
// archive, in table order after source, time and callsign.
var archiveColumns = []string{"latitude", "longitude", "altitude", "rocd", "tas", "heading"}

// InsertTrackPoints batch-inserts a normalized track point table under
// a source name. Rows without a timestamp or callsign are skipped.
// Returns the number of rows inserted.
func (a *TrackArchive) InsertTrackPoints(ctx context.Context, source string, track *iff.Table) (int, error) {
	tIdx := track.ColumnIndex("time")
	csIdx := track.ColumnIndex("callsign")
	if tIdx < 0 || csIdx < 0 {
		return 0, fmt.Errorf("track table lacks time/callsign columns")
	}
	valIdx := make([]int, len(archiveColumns))
	for i, col := range archiveColumns {
		valIdx[i] = track.ColumnIndex(col)
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO track_points (source, time, callsign, latitude, longitude, altitude, rocd, tas, heading)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	inserted := 0
	for _, row := range track.Rows {
		ts, ok := row[tIdx].(time.Time)
		if !ok {
			continue
		}
		cs, ok := row[csIdx].(string)
		if !ok {
			continue
		}
		values := make([]any, 0, 3+len(archiveColumns))
		values = append(values, source, ts, cs)
		for _, idx := range valIdx {
			if idx < 0 {
				values = append(values, nil)
				continue
			}
			values = append(values, nullableFloat(row[idx]))
		}
		if err := batch.Append(values...); err != nil {
			return 0, fmt.Errorf("append row: %w", err)
		}
		inserted++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}
	return inserted, nil
}

// CountByCallsign returns the number of archived samples per callsign
// for a source.
func (a *TrackArchive) CountByCallsign(ctx context.Context, source string) (map[string]uint64, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT callsign, count() FROM track_points
		WHERE source = ? GROUP BY callsign
	`, source)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var callsign string
		var n uint64
		if err := rows.Scan(&callsign, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[callsign] = n
	}
	return counts, rows.Err()
}

// nullableFloat coerces a decoded cell to *float64 for a Nullable
// ClickHouse column; missing and non-numeric values become NULL.
func nullableFloat(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return &f
		}
	}
	return nil
}
