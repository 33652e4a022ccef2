package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies how an upload is decoded.
type Format string

// Supported upload formats. XLS is recognised so it can be rejected clearly.
const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatText Format = "txt"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

var extensionFormats = map[string]Format{
	".csv":  FormatCSV,
	".tsv":  FormatTSV,
	".txt":  FormatText,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
}

// Browsers report an empty or generic type for many CSV files, so both are
// accepted and fall through to comma-separated text.
var mimeFormats = map[string]Format{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
	"application/vnd.ms-excel":  FormatXLS,
	"application/excel":         FormatXLS,
	"application/x-excel":       FormatXLS,
	"application/x-msexcel":     FormatXLS,
	"text/csv":                  FormatCSV,
	"text/plain":                FormatText,
	"text/tab-separated-values": FormatTSV,
	"application/csv":           FormatCSV,
	"application/x-csv":         FormatCSV,
	"":                          FormatCSV,
	"application/octet-stream":  FormatCSV,
}

// DetectFormat accepts an upload when either its extension or its declared
// MIME type is known. The extension wins when both are present.
func DetectFormat(filename, contentType string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}

	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if f, ok := mimeFormats[mime]; ok {
		return f, nil
	}

	if mime == "" {
		mime = "unknown"
	}
	return "", fmt.Errorf("%w: detected file type %s, file name %s", ErrUnsupportedFormat, mime, filename)
}

// CheckSize rejects payloads larger than limit bytes. A limit <= 0 disables the check.
func CheckSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: %d bytes > %d bytes", ErrTooLarge, size, limit)
	}
	return nil
}

// Describe returns the human label shown next to an accepted file.
func (f Format) Describe() string {
	switch f {
	case FormatXLSX:
		return "Excel Workbook"
	case FormatXLS:
		return "Excel 97-2003"
	case FormatCSV:
		return "CSV File"
	case FormatTSV:
		return "Tab-Separated Values"
	case FormatText:
		return "Text File"
	default:
		return "Data File"
	}
}
