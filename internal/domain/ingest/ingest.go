// Package ingest turns uploaded bytes into a header + rows table.
//
// Text formats use a deliberately simple line splitter: lines are split on
// "\n", blank lines are dropped, cells are split on the delimiter, trimmed,
// and stripped of every double quote. Quoted delimiters are therefore not
// supported, and the row count is always the number of non-blank lines
// minus the header.
package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const utf8BOM = "\ufeff"

// Table is the raw string grid of an upload.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the value at row i, column j, or "" when the row is short.
func (t *Table) Cell(i, j int) string {
	if i < 0 || i >= len(t.Rows) || j < 0 || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// Column returns the non-empty values of column j in row order.
func (t *Table) Column(j int) []string {
	values := make([]string, 0, len(t.Rows))
	for i := range t.Rows {
		if v := t.Cell(i, j); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Parse splits comma-separated text.
func Parse(content string) (*Table, error) {
	return ParseDelimited(content, ',')
}

// ParseDelimited splits text on sep.
func ParseDelimited(content string, sep rune) (*Table, error) {
	content = strings.TrimPrefix(content, utf8BOM)

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmpty
	}

	t := &Table{
		Headers: splitCells(lines[0], sep),
		Rows:    make([][]string, 0, len(lines)-1),
	}
	for _, line := range lines[1:] {
		t.Rows = append(t.Rows, splitCells(line, sep))
	}
	return t, nil
}

func splitCells(line string, sep rune) []string {
	parts := strings.Split(line, string(sep))
	for i, p := range parts {
		parts[i] = cleanCell(p)
	}
	return parts
}

func cleanCell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, "")
}

// Decode parses payload according to its detected format.
func Decode(filename, contentType string, payload []byte) (*Table, Format, error) {
	format, err := DetectFormat(filename, contentType)
	if err != nil {
		return nil, "", err
	}

	var t *Table
	switch format {
	case FormatXLSX:
		t, err = ReadWorkbook(payload)
	case FormatXLS:
		err = fmt.Errorf("%w: legacy .xls workbooks must be re-saved as .xlsx or .csv", ErrUnsupportedFormat)
	case FormatTSV:
		t, err = ParseDelimited(decodeText(payload), '\t')
	default:
		t, err = Parse(decodeText(payload))
	}
	if err != nil {
		return nil, format, err
	}
	return t, format, nil
}

// decodeText reads payload as UTF-8, falling back to Windows-1252 for the
// legacy spreadsheet exports that are not valid UTF-8.
func decodeText(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(payload)
	if err != nil {
		return strings.ToValidUTF8(string(payload), "\uFFFD")
	}
	return string(out)
}
