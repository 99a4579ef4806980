package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"iff_parser/internal/iff"
)

// setupTestClickHouse creates a test archive connection. Skips the
// test if no ClickHouse server is available.
func setupTestClickHouse(t *testing.T) *TrackArchive {
	t.Helper()

	host := os.Getenv("CLICKHOUSE_HOST")
	if host == "" {
		host = "localhost"
	}
	port := 9000
	if p := os.Getenv("CLICKHOUSE_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	database := os.Getenv("CLICKHOUSE_DATABASE")
	if database == "" {
		database = "default"
	}
	user := os.Getenv("CLICKHOUSE_USER")
	if user == "" {
		user = "default"
	}

	ctx := context.Background()
	archive, err := OpenClickHouse(ctx, ClickHouseConfig{
		Host:     host,
		Port:     port,
		Database: database,
		User:     user,
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
	})
	if err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}
	t.Cleanup(func() { archive.Close() })
	return archive
}

// testSource returns a per-run source name so concurrent test runs do
// not see each other's rows, with best-effort cleanup.
func testSource(t *testing.T, archive *TrackArchive) string {
	t.Helper()
	source := fmt.Sprintf("test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_ = archive.conn.Exec(context.Background(),
			`ALTER TABLE track_points DELETE WHERE source = ?`, source)
	})
	return source
}

func normalizedTrack() *iff.Table {
	table := iff.NewTable([]string{"time", "callsign", "latitude", "longitude", "altitude", "rocd", "tas", "heading"})
	base := time.Unix(1121238000, 0).UTC()
	for i := 0; i < 4; i++ {
		table.Append([]any{base.Add(time.Duration(i) * time.Second), "ABC123", 37.61, -122.39, 3300.0, 0.0, 250.0, 281.2})
	}
	for i := 0; i < 2; i++ {
		table.Append([]any{base.Add(time.Duration(i) * time.Second), "DEF456", 37.62, -122.38, nil, nil, "250.0", 90.0})
	}
	return table
}

func TestClickHouseInsertAndCount(t *testing.T) {
	archive := setupTestClickHouse(t)
	ctx := context.Background()
	source := testSource(t, archive)

	n, err := archive.InsertTrackPoints(ctx, source, normalizedTrack())
	if err != nil {
		t.Fatalf("InsertTrackPoints: %v", err)
	}
	if n != 6 {
		t.Errorf("inserted %d rows, want 6", n)
	}

	counts, err := archive.CountByCallsign(ctx, source)
	if err != nil {
		t.Fatalf("CountByCallsign: %v", err)
	}
	if counts["ABC123"] != 4 || counts["DEF456"] != 2 {
		t.Errorf("counts = %v, want ABC123:4 DEF456:2", counts)
	}
}

func TestClickHouseSkipsUnusableRows(t *testing.T) {
	archive := setupTestClickHouse(t)
	ctx := context.Background()
	source := testSource(t, archive)

	table := iff.NewTable([]string{"time", "callsign", "latitude"})
	table.Append(
		[]any{time.Unix(1121238000, 0).UTC(), "ABC123", 37.61},
		[]any{nil, "ABC123", 37.61},
		[]any{time.Unix(1121238001, 0).UTC(), nil, 37.61},
	)
	n, err := archive.InsertTrackPoints(ctx, source, table)
	if err != nil {
		t.Fatalf("InsertTrackPoints: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted %d rows, want 1 (rows without time/callsign skipped)", n)
	}
}
