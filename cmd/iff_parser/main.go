// Command-line entry point for the IFF parser.
//
// IFF (Integrated Flight Format) files interleave lines of different
// record types, each with its own comma-separated schema. The decode
// command extracts the requested record types as JSON tables; store
// persists them to a dataset store; archive loads track points into
// the ClickHouse archive; publish streams decoded track points to
// NATS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"iff_parser/internal/feed"
	"iff_parser/internal/iff"
	"iff_parser/internal/storage"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "iff_parser - commands:")
	fmt.Fprintln(w, "  decode   - decode an IFF file and output JSON tables")
	fmt.Fprintln(w, "  store    - decode an IFF file into a dataset store")
	fmt.Fprintln(w, "  archive  - decode track points into the ClickHouse archive")
	fmt.Fprintln(w, "  publish  - decode track points and publish them to NATS")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  iff_parser decode -input flights.csv [-records 3|2,3,4|all] [-callsigns ABC123,DEF456] [-output out.json] [-pretty] [-stats]")
	fmt.Fprintln(w, "  iff_parser store -input flights.csv -db datasets.db [-key flights] [-records all]")
	fmt.Fprintln(w, "  iff_parser archive -input flights.csv [-source flights] [-ch-host localhost] [-counts]")
	fmt.Fprintln(w, "  iff_parser publish -input flights.csv [-nats nats://localhost:4222] [-subject iff.track]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - The default record type is 3 (track points).")
	fmt.Fprintln(w, "  - Record type codes: 0 comment, 1 header, 2 flight summary, 3 track point,")
	fmt.Fprintln(w, "    4 flight plan, 5 data source, 6 sectorization, 7 minimum safe altitude,")
	fmt.Fprintln(w, "    8 flight progress, 9 aircraft state, 10 configuration.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "decode":
		runDecode(os.Args[2:])
	case "store":
		runStore(os.Args[2:])
	case "archive":
		runArchive(os.Args[2:])
	case "publish":
		runPublish(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

// parseRecords turns the -records flag into a decode request. Returns
// whether the request was a single scalar type, which controls the
// output shape.
func parseRecords(spec string) (iff.Request, bool, error) {
	spec = strings.TrimSpace(spec)
	if strings.EqualFold(spec, "all") {
		return iff.All(), false, nil
	}
	parts := strings.Split(spec, ",")
	types := make([]iff.RecordType, 0, len(parts))
	for _, p := range parts {
		code, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return iff.Request{}, false, fmt.Errorf("bad record type %q", p)
		}
		types = append(types, iff.RecordType(code))
	}
	return iff.Types(types...), len(types) == 1, nil
}

func splitCallsigns(spec string) []string {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	parts := strings.Split(spec, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if cs := strings.TrimSpace(p); cs != "" {
			out = append(out, cs)
		}
	}
	return out
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	inPath := fs.String("input", "", "Input IFF file (required)")
	records := fs.String("records", "3", "Record types: a code, a comma list, or 'all'")
	callsigns := fs.String("callsigns", "", "Comma-separated callsigns to keep (default: all)")
	chunkSize := fs.Int("chunk", iff.DefaultChunkSize, "Rows per extraction batch")
	outPath := fs.String("output", "", "Output JSON file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	showStats := fs.Bool("stats", false, "Print row counts to stderr")
	_ = fs.Parse(args)

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "decode: -input is required")
		os.Exit(2)
	}
	req, scalar, err := parseRecords(*records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(2)
	}

	opts := iff.Options{Callsigns: splitCallsigns(*callsigns), ChunkSize: *chunkSize}
	tables, err := iff.Decode(*inPath, req, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}

	var out any
	if scalar {
		for _, table := range tables {
			out = table
		}
	} else {
		keyed := make(map[string]*iff.Table, len(tables))
		for rt, table := range tables {
			keyed[strconv.Itoa(int(rt))] = table
		}
		out = keyed
	}

	var wout io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		wout = f
	}

	enc, err := marshalJSON(out, *pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
		os.Exit(1)
	}
	_, _ = wout.Write(enc)
	if wout == os.Stdout {
		_, _ = wout.Write([]byte("\n"))
	}

	if *showStats {
		for rt, table := range tables {
			fmt.Fprintf(os.Stderr, "stats: record_type=%d (%s) rows=%d\n", int(rt), rt, table.NumRows())
		}
	}
}

func runStore(args []string) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	inPath := fs.String("input", "", "Input IFF file (required)")
	dbPath := fs.String("db", "datasets.db", "SQLite dataset store path")
	keyPrefix := fs.String("key", "", "Dataset key prefix (default: input file base name)")
	records := fs.String("records", "3", "Record types: a code, a comma list, or 'all'")
	callsigns := fs.String("callsigns", "", "Comma-separated callsigns to keep (default: all)")
	_ = fs.Parse(args)

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "store: -input is required")
		os.Exit(2)
	}
	req, _, err := parseRecords(*records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(2)
	}
	prefix := *keyPrefix
	if prefix == "" {
		prefix = baseKey(*inPath)
	}

	tables, err := iff.Decode(*inPath, req, iff.Options{Callsigns: splitCallsigns(*callsigns)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	for rt, table := range tables {
		key := fmt.Sprintf("%s_rec%d", prefix, int(rt))
		if err := store.PutDataset(ctx, key, table); err != nil {
			fmt.Fprintf(os.Stderr, "store: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "stored %s: %d rows\n", key, table.NumRows())
	}
}

func runArchive(args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	inPath := fs.String("input", "", "Input IFF file (required)")
	source := fs.String("source", "", "Archive source name (default: input file base name)")
	callsigns := fs.String("callsigns", "", "Comma-separated callsigns to keep (default: all)")
	chHost := fs.String("ch-host", envOr("CLICKHOUSE_HOST", "localhost"), "ClickHouse host")
	chPort := fs.Int("ch-port", 9000, "ClickHouse port")
	chDatabase := fs.String("ch-database", envOr("CLICKHOUSE_DATABASE", "default"), "ClickHouse database")
	chUser := fs.String("ch-user", envOr("CLICKHOUSE_USER", "default"), "ClickHouse user")
	chPassword := fs.String("ch-password", envOr("CLICKHOUSE_PASSWORD", ""), "ClickHouse password")
	showCounts := fs.Bool("counts", false, "Print per-callsign archive totals after loading")
	_ = fs.Parse(args)

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "archive: -input is required")
		os.Exit(2)
	}
	src := *source
	if src == "" {
		src = baseKey(*inPath)
	}

	track, err := iff.DecodeRecordType(*inPath, iff.TrackPoint, iff.Options{Callsigns: splitCallsigns(*callsigns)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	archive, err := storage.OpenClickHouse(ctx, storage.ClickHouseConfig{
		Host:     *chHost,
		Port:     *chPort,
		Database: *chDatabase,
		User:     *chUser,
		Password: *chPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	n, err := archive.InsertTrackPoints(ctx, src, track)
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "archived %d track points under source %q\n", n, src)

	if *showCounts {
		counts, err := archive.CountByCallsign(ctx, src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "archive: %v\n", err)
			os.Exit(1)
		}
		for cs, total := range counts {
			fmt.Fprintf(os.Stderr, "archive: callsign=%s rows=%d\n", cs, total)
		}
	}
}

func runPublish(args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	inPath := fs.String("input", "", "Input IFF file (required)")
	natsURL := fs.String("nats", "", "NATS server URL (default: local server)")
	subject := fs.String("subject", "", "Subject prefix (default: iff.track)")
	callsigns := fs.String("callsigns", "", "Comma-separated callsigns to keep (default: all)")
	_ = fs.Parse(args)

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "publish: -input is required")
		os.Exit(2)
	}

	track, err := iff.DecodeRecordType(*inPath, iff.TrackPoint, iff.Options{Callsigns: splitCallsigns(*callsigns)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
		os.Exit(1)
	}

	pub, err := feed.Connect(*natsURL, *subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
		os.Exit(1)
	}
	defer pub.Close()

	n, err := pub.PublishTrack(track)
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "published %d track points\n", n)
}

// baseKey derives a dataset key from an input path: the base file name
// without the .csv suffix.
func baseKey(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, ".csv")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
