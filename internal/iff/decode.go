// Package iff decodes Integrated Flight Format (IFF) flight
// surveillance log files into per-record-type tables.
//
// An IFF file interleaves lines of different logical record types,
// each with its own comma-separated column schema, and the schemas
// have grown columns across format versions. Decoding runs as:
// detect the declared version, build the schema registry for it,
// classify every line by its leading record-type code in one pass,
// then stream each requested record type out of the file in
// memory-bounded chunks, filter by callsign if asked, and normalize
// column names and units on the accumulated result.
package iff

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultChunkSize bounds how many rows an extraction pass holds
// before they are filtered and accumulated.
const DefaultChunkSize = 50000

// Options holds the optional knobs of a decode call. The zero value
// uses the defaults: no callsign filter, DefaultChunkSize, latin-1.
type Options struct {
	// Callsigns restricts track-oriented records to the given
	// aircraft identifiers. Empty means no filtering.
	Callsigns []string

	// ChunkSize caps rows per extraction batch.
	ChunkSize int

	// Encoding decodes the file's bytes. The latin-1 default never
	// fails on corrupt byte sequences, which field recordings do
	// contain.
	Encoding encoding.Encoding
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Encoding == nil {
		o.Encoding = charmap.ISO8859_1
	}
	return o
}

// Request names which record types a decode call should extract:
// either an explicit list or every type observed in the file.
type Request struct {
	all   bool
	types []RecordType
}

// Types requests an explicit list of record types.
func Types(rts ...RecordType) Request { return Request{types: rts} }

// All requests every record type actually present in the file.
func All() Request { return Request{all: true} }

// DecodeRecordType decodes a single record type and returns its table.
// It is the scalar form of Decode; the common case is track points:
//
//	track, err := iff.DecodeRecordType(path, iff.TrackPoint, iff.Options{})
func DecodeRecordType(path string, rt RecordType, opts Options) (*Table, error) {
	tables, err := Decode(path, Types(rt), opts)
	if err != nil {
		return nil, err
	}
	return tables[rt], nil
}

// Decode decodes the requested record types from an IFF file and
// returns one table per type. Any failure in any stage aborts the
// whole call; partial results are never returned.
func Decode(path string, req Request, opts Options) (map[RecordType]*Table, error) {
	opts = opts.withDefaults()

	version, err := DetectVersion(path, opts.Encoding)
	if err != nil {
		return nil, err
	}
	reg := NewSchemaRegistry(version)

	index, err := Classify(path, opts.Encoding)
	if err != nil {
		return nil, err
	}

	requested := req.types
	if req.all {
		requested = index.Observed()
	}

	// Resolve every schema up front so an unknown requested type fails
	// before any extraction work starts.
	for _, rt := range requested {
		if _, err := reg.SchemaFor(rt); err != nil {
			return nil, err
		}
	}

	filter := NewCallsignSet(opts.Callsigns...)

	// Extraction passes are independent full scans sharing only the
	// read-only registry and index, so they run in parallel, one
	// goroutine per requested type. The first failure cancels the
	// sibling scans.
	tables := make([]*Table, len(requested))
	g, ctx := errgroup.WithContext(context.Background())
	for i, rt := range requested {
		i, rt := i, rt
		g.Go(func() error {
			table, err := extractOne(ctx, path, rt, reg, index, filter, opts)
			if err != nil {
				return err
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[RecordType]*Table, len(requested))
	for i, rt := range requested {
		result[rt] = tables[i]
	}
	return result, nil
}

// extractOne accumulates one record type's rows chunk by chunk and
// normalizes the assembled table. It stops between chunks once the
// context is done.
func extractOne(ctx context.Context, path string, rt RecordType, reg *SchemaRegistry, index *ClassIndex, filter CallsignSet, opts Options) (*Table, error) {
	it, err := Chunks(path, rt, reg, index, opts)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	schema, _ := reg.SchemaFor(rt)
	table := NewTable(schema)
	for it.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk := filter.Filter(it.Chunk())
		table.Append(chunk.Rows...)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if err := Normalize(table); err != nil {
		return nil, err
	}
	return table, nil
}
