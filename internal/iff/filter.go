package iff

// CallsignSet restricts extraction to a set of aircraft identifiers.
// A nil or empty set matches everything.
type CallsignSet map[string]struct{}

// NewCallsignSet builds a set from callsign strings.
func NewCallsignSet(callsigns ...string) CallsignSet {
	if len(callsigns) == 0 {
		return nil
	}
	s := make(CallsignSet, len(callsigns))
	for _, c := range callsigns {
		s[c] = struct{}{}
	}
	return s
}

// Filter returns the rows of the chunk whose aircraft identifier field
// is in the set. It is applied per chunk, before accumulation, so a
// filtered-out row is never retained. Chunks whose schema carries no
// identifier column pass through unchanged, as does every chunk when
// the set is empty.
func (s CallsignSet) Filter(chunk *Table) *Table {
	if len(s) == 0 {
		return chunk
	}
	idx := chunk.ColumnIndex(acIDColumn)
	if idx < 0 {
		return chunk
	}
	out := NewTable(chunk.Columns)
	for _, row := range chunk.Rows {
		cs, ok := row[idx].(string)
		if !ok {
			continue
		}
		if _, want := s[cs]; want {
			out.Append(row)
		}
	}
	return out
}
