package feed

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newSource wraps r so that a leading UTF-8 BOM, common in spreadsheet
// exports, never becomes part of the first header name.
func newSource(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// newCSVReader configures encoding/csv the way feeds arrive in practice:
// ragged rows are reported per row instead of failing the reader, stray
// quotes inside unquoted cells are tolerated.
func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(newSource(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false
	return cr
}
