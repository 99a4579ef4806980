package iff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
)

func TestDecodeAllRecordTypes(t *testing.T) {
	dir := t.TempDir()
	// One line each of record types 0, 1, 2, plus 724 track points and
	// 6 flight plan lines.
	lines := []string{
		"1,IFF,2.15",
		"0,recorded at KSFO",
		recordLine(t, FlightSummary, map[string]string{"recTime": "1121238000.0", "AcId": "ABC123"}),
	}
	for i := 0; i < 6; i++ {
		lines = append(lines, recordLine(t, FlightPlan, map[string]string{"recTime": "1121238000.0", "AcId": "ABC123"}))
	}
	for i := 0; i < 724; i++ {
		lines = append(lines, trackLine(t, "ABC123", 1121238000+float64(i), 37.61, -122.39, 10))
	}
	path := writeLines(t, dir, "all.csv", lines)

	tables, err := Decode(path, All(), Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := map[RecordType]int{
		Comment:       1,
		Header:        1,
		FlightSummary: 1,
		TrackPoint:    724,
		FlightPlan:    6,
	}
	if len(tables) != len(want) {
		t.Fatalf("decoded %d record types, want %d", len(tables), len(want))
	}
	for rt, n := range want {
		table, ok := tables[rt]
		if !ok {
			t.Fatalf("record type %d missing from result", int(rt))
		}
		if table.NumRows() != n {
			t.Errorf("record type %d: %d rows, want %d", int(rt), table.NumRows(), n)
		}
	}
}

func TestDecodeCallsignFilter(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "three.csv", map[string]int{
		"ABC123": 194,
		"DEF456": 186,
		"GHI789": 186,
	})

	t.Run("single callsign", func(t *testing.T) {
		table, err := DecodeRecordType(path, TrackPoint, Options{Callsigns: []string{"ABC123"}})
		if err != nil {
			t.Fatalf("DecodeRecordType: %v", err)
		}
		if table.NumRows() != 194 {
			t.Errorf("%d rows, want 194", table.NumRows())
		}
		if cs := table.DistinctStrings("callsign"); len(cs) != 1 || cs[0] != "ABC123" {
			t.Errorf("distinct callsigns = %v, want [ABC123]", cs)
		}
	})

	t.Run("two callsigns", func(t *testing.T) {
		table, err := DecodeRecordType(path, TrackPoint, Options{Callsigns: []string{"DEF456", "GHI789"}})
		if err != nil {
			t.Fatalf("DecodeRecordType: %v", err)
		}
		if table.NumRows() != 372 {
			t.Errorf("%d rows, want 372", table.NumRows())
		}
		if cs := table.DistinctStrings("callsign"); len(cs) != 2 {
			t.Errorf("distinct callsigns = %v, want 2 values", cs)
		}
	})

	t.Run("union of disjoint sets adds up", func(t *testing.T) {
		one, err := DecodeRecordType(path, TrackPoint, Options{Callsigns: []string{"DEF456"}})
		if err != nil {
			t.Fatal(err)
		}
		two, err := DecodeRecordType(path, TrackPoint, Options{Callsigns: []string{"GHI789"}})
		if err != nil {
			t.Fatal(err)
		}
		both, err := DecodeRecordType(path, TrackPoint, Options{Callsigns: []string{"DEF456", "GHI789"}})
		if err != nil {
			t.Fatal(err)
		}
		if both.NumRows() != one.NumRows()+two.NumRows() {
			t.Errorf("union rows %d != %d + %d", both.NumRows(), one.NumRows(), two.NumRows())
		}
	})
}

func TestDecodeNormalizesTrackPoints(t *testing.T) {
	dir := t.TempDir()
	path := writeLines(t, dir, "norm.csv", []string{
		"1,IFF,2.15",
		trackLine(t, "ABC123", 1121238067, 37.61, -122.39, 33),
	})

	table, err := DecodeRecordType(path, TrackPoint, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, col := range []string{"time", "callsign", "latitude", "longitude", "altitude", "rocd", "tas", "heading"} {
		if !table.HasColumn(col) {
			t.Errorf("normalized column %q missing", col)
		}
	}

	row := table.Rows[0]
	ts := row[table.ColumnIndex("time")].(time.Time)
	if ts.Unix() != 1121238067 {
		t.Errorf("time = %v", ts)
	}
	if alt := row[table.ColumnIndex("altitude")].(float64); alt != 3300.0 {
		t.Errorf("altitude = %v, want 3300 (hundreds of feet scaled)", alt)
	}
}

func TestDecodeMissingTimeSentinel(t *testing.T) {
	dir := t.TempDir()
	// A `?` in the time field is a missing value, not a parse failure.
	path := writeLines(t, dir, "notime.csv", []string{
		"1,IFF,2.15",
		recordLine(t, TrackPoint, map[string]string{"AcId": "ABC123", "alt": "10.0"}),
	})

	table, err := DecodeRecordType(path, TrackPoint, Options{})
	if err != nil {
		t.Fatalf("decode with sentinel time: %v", err)
	}
	if v := table.Rows[0][table.ColumnIndex("time")]; v != nil {
		t.Errorf("sentinel time should be missing, got %v", v)
	}
}

func TestDecodeIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "twice.csv", map[string]int{"ABC123": 20, "DEF456": 10})

	first, err := Decode(path, All(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Decode(path, All(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("decoding the same file twice produced different results")
	}
}

func TestDecodeScalarShape(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "scalar.csv", map[string]int{"ABC123": 3})

	table, err := DecodeRecordType(path, TrackPoint, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if table.NumRows() != 3 {
		t.Errorf("%d rows, want 3", table.NumRows())
	}

	tables, err := Decode(path, Types(TrackPoint, FlightPlan), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 2 {
		t.Errorf("list request should return a table per type, got %d", len(tables))
	}
}

func TestDecodePreservesRowOrder(t *testing.T) {
	dir := t.TempDir()
	lines := []string{"1,IFF,2.15"}
	for i := 0; i < 30; i++ {
		lines = append(lines, trackLine(t, "ABC123", 1121238000+float64(i), 37.61, -122.39, 10))
	}
	path := writeLines(t, dir, "order.csv", lines)

	// A chunk size smaller than the row count exercises accumulation
	// across chunk boundaries.
	table, err := DecodeRecordType(path, TrackPoint, Options{ChunkSize: 7})
	if err != nil {
		t.Fatal(err)
	}
	idx := table.ColumnIndex("time")
	var prev time.Time
	for i, row := range table.Rows {
		ts := row[idx].(time.Time)
		if i > 0 && !ts.After(prev) {
			t.Fatalf("row %d out of file order", i)
		}
		prev = ts
	}
}

func TestDecodeFailFast(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Decode(filepath.Join(dir, "nope.csv"), All(), Options{})
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected not-exist error, got %v", err)
		}
	})

	t.Run("unknown requested type aborts before extraction", func(t *testing.T) {
		path := writeScenarioFile(t, dir, "ok.csv", map[string]int{"ABC123": 2})
		_, err := Decode(path, Types(TrackPoint, RecordType(42)), Options{})
		var uerr *UnknownRecordTypeError
		if !errors.As(err, &uerr) {
			t.Fatalf("expected UnknownRecordTypeError, got %v", err)
		}
	})

	t.Run("truncated data line aborts the whole call", func(t *testing.T) {
		path := writeLines(t, dir, "trunc.csv", []string{
			"1,IFF,2.15",
			trackLine(t, "ABC123", 1121238000, 37.61, -122.39, 10),
			"3,1121238001.0,truncated",
		})
		_, err := Decode(path, All(), Options{})
		var merr *SchemaMismatchError
		if !errors.As(err, &merr) {
			t.Fatalf("expected SchemaMismatchError, got %v", err)
		}
	})
}

func TestExtractStopsOnCanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "cancel.csv", map[string]int{"ABC123": 20})

	index, err := Classify(path, charmap.ISO8859_1)
	if err != nil {
		t.Fatal(err)
	}
	reg := NewSchemaRegistry(Version{2, 15, 0})

	// A sibling extraction failing cancels the shared context; a pass
	// seeing a done context must give up rather than finish its scan.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = extractOne(ctx, path, TrackPoint, reg, index, nil, Options{ChunkSize: 5})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeLatin1Default(t *testing.T) {
	dir := t.TempDir()
	// 0xE9 is not valid UTF-8 on its own; the latin-1 default must not
	// choke on it.
	raw := []byte("1,IFF,2.15\n0,caf\xe9 comment\n")
	path := filepath.Join(dir, "latin1.csv")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := Decode(path, Types(Comment), Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	comment := tables[Comment].Rows[0][1].(string)
	if comment != "café comment" {
		t.Errorf("comment = %q", comment)
	}
}
