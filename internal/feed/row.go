package feed

// Row is one data record of a feed keyed by header name. Rows are read-only
// after parsing; Line is the 1-based position counting the header as line 1.
type Row struct {
	Line   int
	header []string
	values map[string]string
}

func newRow(line int, header []string, record []string) Row {
	values := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(record) {
			values[name] = CleanCell(record[i])
		}
	}
	return Row{Line: line, header: header, values: values}
}

// Get returns the cleaned value of column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r.values[column]
}

// Lookup reports whether column exists in the row along with its value.
func (r Row) Lookup(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the header names in source order.
func (r Row) Columns() []string {
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// Values returns a copy of the column/value mapping.
func (r Row) Values() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
