package iff

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
)

// Scanner buffer cap. IFF route and scratchpad fields can make lines
// long, but nowhere near this.
const maxLineBytes = 16 * 1024 * 1024

// ClassIndex maps each physical line of a file to its record type. It
// is built by a single scan and shared read-only by every extraction
// pass of a decode call; it holds the type tags, not line content.
type ClassIndex struct {
	path  string
	types []RecordType
}

// Classify reads every line of the file once, parsing the leading
// comma-delimited integer token as the line's record type.
func Classify(path string, enc encoding.Encoding) (*ClassIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := newLineScanner(f, enc)
	types := make([]RecordType, 0, 1024)
	for line := 0; sc.Scan(); line++ {
		text := sc.Text()
		token := text
		if i := strings.IndexByte(text, ','); i >= 0 {
			token = text[:i]
		}
		code, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil {
			return nil, &FormatError{Path: path, Line: line, Msg: fmt.Sprintf("leading token %q is not a record type code", token)}
		}
		types = append(types, RecordType(code))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &ClassIndex{path: path, types: types}, nil
}

// Len returns the number of classified lines.
func (ix *ClassIndex) Len() int { return len(ix.types) }

// At returns the record type of the 0-based line number.
func (ix *ClassIndex) At(line int) RecordType { return ix.types[line] }

// Count returns how many lines were classified as the given type.
func (ix *ClassIndex) Count(rt RecordType) int {
	n := 0
	for _, t := range ix.types {
		if t == rt {
			n++
		}
	}
	return n
}

// Observed returns the distinct record type codes present in the file,
// in ascending numeric order.
func (ix *ClassIndex) Observed() []RecordType {
	seen := make(map[RecordType]bool)
	var out []RecordType
	for _, t := range ix.types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
