package pdf

import (
	"fmt"
	"os"
	"strings"
)

// DefaultMaxFileSize caps documents accepted for redaction.
const DefaultMaxFileSize = 100 * 1024 * 1024

// Validator performs cheap checks on a file before it is parsed.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator. A non-positive size uses the default.
func NewValidator(maxFileSize int64) *Validator {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Validator{maxFileSize: maxFileSize}
}

// ValidateFile checks that path is a non-empty .pdf file within the size
// limit. It does not open the file.
func (v *Validator) ValidateFile(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.ValidateFileInfo(path, info); err != nil {
		return nil, err
	}
	return info, nil
}

// ValidateFileInfo runs the same checks on an already stat'ed file.
func (v *Validator) ValidateFileInfo(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !IsPDFName(path) {
		return fmt.Errorf("%w: %s", ErrNotPDF, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), v.maxFileSize)
	}
	return nil
}

// IsPDFName reports whether name has a .pdf extension, in any case.
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
