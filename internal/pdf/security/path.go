// Package security keeps document and artifact paths inside the configured
// directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that escape the configured
// directory, directly or through a symlink.
var ErrOutsideDirectory = errors.New("path is outside configured directory")

// PathValidator resolves user-supplied paths against one root directory.
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a validator rooted at dir. The directory must
// exist so that symlinks inside it can be resolved.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	return &PathValidator{configuredDirectory: filepath.Clean(abs)}, nil
}

// GetConfiguredDirectory returns the absolute root directory.
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

// Resolve turns path into a cleaned absolute path inside the root. Relative
// paths are taken relative to the root.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	within, err := v.IsPathWithinDirectory(abs)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	return abs, nil
}

// ValidatePath reports an error unless path resolves inside the root.
func (v *PathValidator) ValidatePath(path string) error {
	_, err := v.Resolve(path)
	return err
}

// IsPathWithinDirectory checks the cleaned path and, when it exists, its
// symlink target against the root and the root's own symlink target.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	roots := []string{v.configuredDirectory}
	if real, err := filepath.EvalSymlinks(v.configuredDirectory); err == nil && real != v.configuredDirectory {
		roots = append(roots, real)
	}

	if !under(cleanPath, roots) {
		return false, nil
	}

	real, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to evaluate symlinks: %w", err)
	}
	return under(real, roots), nil
}

func under(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
