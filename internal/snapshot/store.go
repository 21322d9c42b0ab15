// Package snapshot stores JSON state blobs as timestamped artifacts plus a
// single autosave artifact per logical object. Every write is atomic.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const (
	// TimestampFormat sorts lexicographically in creation order.
	TimestampFormat = "2006-01-02-150405.000"

	// AutosaveTag replaces the timestamp for the autosave artifact.
	AutosaveTag = "autosave"

	fileExt  = ".json"
	dirPerm  = 0o750
	filePerm = 0o640
)

// ErrMalformed is returned when a persisted artifact cannot be decoded.
var ErrMalformed = errors.New("malformed snapshot")

// Older artifacts carry minute or second precision.
var timestampLayouts = map[int]string{
	len("2006-01-02-1504"):       "2006-01-02-1504",
	len("2006-01-02-150405"):     "2006-01-02-150405",
	len("2006-01-02-150405.000"): TimestampFormat,
}

var (
	timestampRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{4}(?:\d{2}(?:\.\d{3})?)?$`)
	unsafeStemRe = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)
)

// Store reads and writes artifacts inside one directory.
type Store struct {
	dir string
	now func() time.Time

	// mu serializes name allocation so two saves in the same millisecond
	// still produce distinct artifacts.
	mu       sync.Mutex
	lastName map[string]time.Time
}

// NewStore creates the directory if needed and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot directory cannot be empty")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("cannot create snapshot directory %s: %w", dir, err)
	}
	return &Store{
		dir:      dir,
		now:      time.Now,
		lastName: make(map[string]time.Time),
	}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the location of a plain, non-versioned artifact such as the
// user presets file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, SanitizeStem(name)+fileExt)
}

// SanitizeStem makes a document or configuration name safe to embed in a
// file name.
func SanitizeStem(stem string) string {
	stem = strings.TrimSpace(stem)
	stem = unsafeStemRe.ReplaceAllString(stem, "_")
	if stem == "" || stem == "." || stem == ".." {
		return "_"
	}
	return stem
}

func prefix(stem, purpose string) string {
	return SanitizeStem(stem) + "_" + purpose + "_"
}

// AutosavePath is the single well-known autosave location for stem/purpose.
func (s *Store) AutosavePath(stem, purpose string) string {
	return filepath.Join(s.dir, prefix(stem, purpose)+AutosaveTag+fileExt)
}

// TimestampedPath returns a new, unused path of the form
// <stem>_<purpose>_<timestamp>.json.
func (s *Store) TimestampedPath(stem, purpose string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := prefix(stem, purpose)
	ts := s.now().Truncate(time.Millisecond)
	if last, ok := s.lastName[key]; ok && !ts.After(last) {
		ts = last.Add(time.Millisecond)
	}
	for {
		path := filepath.Join(s.dir, key+ts.Format(TimestampFormat)+fileExt)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			s.lastName[key] = ts
			return path
		}
		ts = ts.Add(time.Millisecond)
	}
}

// WriteAtomic serializes v with two-space indentation into a sibling temp
// file and renames it over path. On failure the temp file is removed and
// path is left untouched.
func (s *Store) WriteAtomic(path string, v interface{}) (err error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// SaveTimestamped writes v to a fresh timestamped artifact and returns its path.
func (s *Store) SaveTimestamped(stem, purpose string, v interface{}) (string, error) {
	path := s.TimestampedPath(stem, purpose)
	if err := s.WriteAtomic(path, v); err != nil {
		return "", err
	}
	return path, nil
}

// SaveAutosave atomically replaces the autosave artifact for stem/purpose.
func (s *Store) SaveAutosave(stem, purpose string, v interface{}) (string, error) {
	path := s.AutosavePath(stem, purpose)
	if err := s.WriteAtomic(path, v); err != nil {
		return "", err
	}
	return path, nil
}

// ReadJSON decodes the artifact at path into v. Decoding failures wrap
// ErrMalformed.
func (s *Store) ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, filepath.Base(path), err)
	}
	return nil
}

type artifact struct {
	path    string
	created time.Time
}

// List returns the timestamped artifacts for stem/purpose, oldest first.
// The autosave artifact is not included.
func (s *Store) List(stem, purpose string) ([]string, error) {
	artifacts, err := s.timestamped(stem, purpose)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.path
	}
	return paths, nil
}

// FindLatest prefers the autosave artifact when it exists, otherwise the
// newest timestamped artifact. ok is false when nothing has been saved.
func (s *Store) FindLatest(stem, purpose string) (string, bool, error) {
	autosave := s.AutosavePath(stem, purpose)
	if info, err := os.Stat(autosave); err == nil && info.Mode().IsRegular() {
		return autosave, true, nil
	}

	artifacts, err := s.timestamped(stem, purpose)
	if err != nil {
		return "", false, err
	}
	if len(artifacts) == 0 {
		return "", false, nil
	}
	return artifacts[len(artifacts)-1].path, true, nil
}

func (s *Store) timestamped(stem, purpose string) ([]artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	want := prefix(stem, purpose)
	var artifacts []artifact
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, want) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		tag := strings.TrimSuffix(strings.TrimPrefix(name, want), fileExt)
		if tag == AutosaveTag {
			continue
		}

		created, ok := parseTimestamp(tag)
		if !ok {
			continue
		}
		artifacts = append(artifacts, artifact{path: filepath.Join(s.dir, name), created: created})
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].created.Equal(artifacts[j].created) {
			return artifacts[i].path < artifacts[j].path
		}
		return artifacts[i].created.Before(artifacts[j].created)
	})
	return artifacts, nil
}

func parseTimestamp(tag string) (time.Time, bool) {
	if !timestampRe.MatchString(tag) {
		return time.Time{}, false
	}
	layout, ok := timestampLayouts[len(tag)]
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(layout, tag, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
