package pdf

import (
	"errors"
	"fmt"
)

// Errors returned by document operations.
var (
	ErrInvalidPage    = errors.New("invalid page number")
	ErrDocumentClosed = errors.New("document is closed")
	ErrNotPDF         = errors.New("file is not a PDF")
)

// DocumentError reports which operation failed on which file.
type DocumentError struct {
	Op   string `json:"operation"`
	Path string `json:"path"`
	Err  error  `json:"error"`
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("pdf %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func docErr(op, path string, err error) error {
	return &DocumentError{Op: op, Path: path, Err: err}
}
