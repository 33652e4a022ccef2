package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook reads the first sheet of an .xlsx workbook. Blank rows are
// dropped and cells are cleaned exactly like delimited text.
func ReadWorkbook(payload []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %s: %w", ErrWorkbook, sheets[0], err)
	}

	var kept [][]string
	for _, row := range rows {
		cells := make([]string, len(row))
		blank := true
		for i, c := range row {
			cells[i] = cleanCell(c)
			if strings.TrimSpace(c) != "" {
				blank = false
			}
		}
		if !blank {
			kept = append(kept, cells)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmpty
	}
	return &Table{Headers: kept[0], Rows: kept[1:]}, nil
}
