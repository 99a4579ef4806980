package iff

import "fmt"

// FormatError reports a structural problem with an IFF file: an
// unparsable version header or a line whose leading record-type token
// is missing or not an integer. Line is 0-based; -1 when the error is
// not tied to a particular line.
type FormatError struct {
	Path string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// UnknownRecordTypeError reports a requested or classified record type
// that has no schema in the base table.
type UnknownRecordTypeError struct {
	RecordType RecordType
}

func (e *UnknownRecordTypeError) Error() string {
	return fmt.Sprintf("unknown record type %d", int(e.RecordType))
}

// SchemaMismatchError reports a data line with fewer fields than its
// resolved schema requires. Line is 0-based.
type SchemaMismatchError struct {
	Path       string
	Line       int
	RecordType RecordType
	Want       int
	Got        int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: line %d: record type %d has %d fields, schema requires %d",
		e.Path, e.Line, int(e.RecordType), e.Got, e.Want)
}
