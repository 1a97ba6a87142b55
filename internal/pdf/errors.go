package pdf

import "errors"

// Sentinel errors returned by the reader and validator. Callers match them
// with errors.Is; the wrapped message carries the offending path.
var (
	ErrEmptyPath    = errors.New("path cannot be empty")
	ErrNotExist     = errors.New("file does not exist")
	ErrIsDirectory  = errors.New("path is a directory, not a file")
	ErrNotPDF       = errors.New("file is not a PDF")
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file too large")
	ErrNoText       = errors.New("no text content could be extracted from PDF")
	ErrInvalidPDF   = errors.New("invalid PDF file")
)
