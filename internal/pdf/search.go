package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes a PDF found in a directory
type FileInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Catalog finds candidate documents under a directory
type Catalog struct {
	validator *Validator
}

// NewCatalog creates a catalog that skips files the validator rejects
func NewCatalog(maxFileSize int64) *Catalog {
	return &Catalog{validator: NewValidator(maxFileSize)}
}

// Find walks directory and returns the PDFs whose names match query, sorted
// by path. Hidden directories, including the snapshot directory, are skipped.
// A non-positive limit returns every match.
func (c *Catalog) Find(directory, query string, limit int) ([]FileInfo, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	root, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if limit > 0 && len(files) >= limit {
			return filepath.SkipAll
		}
		// Symlinks are not followed
		if d.Type()&fs.ModeSymlink != 0 || !IsPDFName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if err := c.validator.ValidateFileInfo(path, info); err != nil {
			return nil
		}
		if !matchesQuery(info.Name(), query) {
			return nil
		}

		files = append(files, FileInfo{
			Path:     path,
			Name:     info.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// matchesQuery performs fuzzy matching on the filename: a plain substring
// match, or every query word contained in some word of the name.
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	name := strings.ToLower(filename)
	if strings.Contains(name, query) {
		return true
	}

	words := splitIntoWords(strings.TrimSuffix(name, ".pdf"))
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// splitIntoWords splits a string into words using common separators
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
