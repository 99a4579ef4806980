package iff

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
)

// missingToken is written in place of absent field values in IFF data.
const missingToken = "?"

func newLineScanner(r io.Reader, enc encoding.Encoding) *bufio.Scanner {
	sc := bufio.NewScanner(enc.NewDecoder().Reader(r))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return sc
}

// ChunkIter streams the lines of one record type as bounded-size row
// batches, so that peak memory stays proportional to the chunk size no
// matter how large the file is. Iteration follows the bufio.Scanner
// idiom:
//
//	it, err := Chunks(path, rt, reg, index, opts)
//	...
//	defer it.Close()
//	for it.Scan() {
//	    chunk := it.Chunk()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
//
// The sequence is finite and restartable: a new iterator re-reads from
// the start of the file, there is no persisted cursor.
type ChunkIter struct {
	path      string
	rt        RecordType
	schema    []string
	index     *ClassIndex
	chunkSize int

	f     *os.File
	sc    *bufio.Scanner
	line  int
	chunk *Table
	err   error
}

// Chunks opens a chunked extraction pass over one record type. The
// schema is resolved from the registry; the classification index
// decides which lines belong to the pass.
func Chunks(path string, rt RecordType, reg *SchemaRegistry, index *ClassIndex, opts Options) (*ChunkIter, error) {
	opts = opts.withDefaults()
	schema, err := reg.SchemaFor(rt)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &ChunkIter{
		path:      path,
		rt:        rt,
		schema:    schema,
		index:     index,
		chunkSize: opts.ChunkSize,
		f:         f,
		sc:        newLineScanner(f, opts.Encoding),
	}, nil
}

// Scan advances to the next chunk. It returns false at end of input or
// on error; check Err after the loop.
func (it *ChunkIter) Scan() bool {
	if it.err != nil || it.f == nil {
		return false
	}
	chunk := NewTable(it.schema)
	for len(chunk.Rows) < it.chunkSize && it.sc.Scan() {
		line := it.line
		it.line++
		if line >= it.index.Len() || it.index.At(line) != it.rt {
			continue
		}
		row, err := it.parseRow(it.sc.Text(), line)
		if err != nil {
			it.err = err
			return false
		}
		chunk.Append(row)
	}
	if err := it.sc.Err(); err != nil {
		it.err = err
		return false
	}
	if len(chunk.Rows) == 0 {
		return false
	}
	it.chunk = chunk
	return true
}

// parseRow splits a raw line and maps it onto the schema. Extra
// trailing fields beyond the schema are ignored; the format routinely
// carries extraneous empty trailing columns.
func (it *ChunkIter) parseRow(text string, line int) ([]any, error) {
	fields := strings.Split(text, ",")
	if len(fields) < len(it.schema) {
		return nil, &SchemaMismatchError{
			Path:       it.path,
			Line:       line,
			RecordType: it.rt,
			Want:       len(it.schema),
			Got:        len(fields),
		}
	}
	row := make([]any, len(it.schema))
	for i := range it.schema {
		if v := fields[i]; v != missingToken {
			row[i] = v
		}
	}
	return row, nil
}

// Chunk returns the batch read by the last successful Scan.
func (it *ChunkIter) Chunk() *Table { return it.chunk }

// Err returns the first error encountered during iteration.
func (it *ChunkIter) Err() error { return it.err }

// Close releases the underlying file. It is safe to call more than
// once.
func (it *ChunkIter) Close() error {
	if it.f == nil {
		return nil
	}
	f := it.f
	it.f = nil
	return f.Close()
}
