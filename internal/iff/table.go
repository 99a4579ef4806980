package iff

// Table is an ordered collection of rows sharing one column schema.
// Row order is the order of first appearance in the source file. A nil
// cell is a missing value (the `?` sentinel in the raw data).
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewTable creates an empty table with the given columns.
func NewTable(columns []string) *Table {
	return &Table{Columns: columns}
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int { return len(t.Rows) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Append adds rows to the table. Rows must match the table's column
// count; this is the caller's responsibility.
func (t *Table) Append(rows ...[]any) {
	t.Rows = append(t.Rows, rows...)
}

// DistinctStrings returns the distinct non-missing string values of the
// named column, in order of first appearance. Returns nil if the column
// does not exist.
func (t *Table) DistinctStrings(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		s, ok := row[idx].(string)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
