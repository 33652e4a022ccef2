package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrEmpty             = errors.New("empty dataset")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrTooLarge          = errors.New("file exceeds upload limit")
	ErrWorkbook          = errors.New("unreadable workbook")
)
