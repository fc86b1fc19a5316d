package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// ParseCSV reads a tabular estimate export. The delimiter (comma or
// semicolon) is sniffed from the first line and a UTF-8 BOM is dropped.
func ParseCSV(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	first, _ := br.Peek(4096)
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}) {
		cr.Comma = ';'
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return assembleRows(rows)
}
