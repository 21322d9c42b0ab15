// Package regions keeps the manually drawn rectangles of one document with a
// bounded linear undo history and a periodic autosave.
package regions

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
)

// Kind tags a region with its effect on resolution.
type Kind string

const (
	// KindRedact regions are always burned in.
	KindRedact Kind = "redact"
	// KindExclude regions are informational and only shown in previews.
	KindExclude Kind = "exclude"
	// KindProtect regions shield fully contained text matches.
	KindProtect Kind = "protect"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindRedact, KindExclude, KindProtect}

// ErrUnknownKind is returned for a kind outside Kinds.
var ErrUnknownKind = errors.New("unknown region kind")

// ErrNonFiniteBox rejects boxes with NaN or infinite coordinates.
var ErrNonFiniteBox = errors.New("region coordinates must be finite")

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRedact, KindExclude, KindProtect:
		return true
	}
	return false
}

// Region is one rectangle on one page.
type Region struct {
	Page  int       `json:"page"`
	Index int       `json:"index"`
	BBox  geom.Rect `json:"bbox"`
	Kind  Kind      `json:"kind"`
}

// PageSet groups the regions of one page by kind.
type PageSet struct {
	Redact  []geom.Rect `json:"redact"`
	Exclude []geom.Rect `json:"exclude"`
	Protect []geom.Rect `json:"protect"`
}

// state is the undoable part of a store. Snapshots are deep copies.
type state struct {
	redact  map[int][]geom.Rect
	exclude map[int][]geom.Rect
	protect map[int][]geom.Rect
}

func newState() state {
	return state{
		redact:  make(map[int][]geom.Rect),
		exclude: make(map[int][]geom.Rect),
		protect: make(map[int][]geom.Rect),
	}
}

func (s state) bucket(kind Kind) map[int][]geom.Rect {
	switch kind {
	case KindExclude:
		return s.exclude
	case KindProtect:
		return s.protect
	default:
		return s.redact
	}
}

func (s state) clone() state {
	return state{
		redact:  cloneBucket(s.redact),
		exclude: cloneBucket(s.exclude),
		protect: cloneBucket(s.protect),
	}
}

func (s state) isEmpty() bool {
	return len(s.redact) == 0 && len(s.exclude) == 0 && len(s.protect) == 0
}

func cloneBucket(in map[int][]geom.Rect) map[int][]geom.Rect {
	out := make(map[int][]geom.Rect, len(in))
	for page, rects := range in {
		if len(rects) == 0 {
			continue
		}
		cp := make([]geom.Rect, len(rects))
		copy(cp, rects)
		out[page] = cp
	}
	return out
}

// document is the persisted form. Pages are string keys and rectangles are
// [x0, y0, x1, y1] arrays. The exclude key is optional.
type document struct {
	Regions map[string][]geom.Rect `json:"regions"`
	Exclude map[string][]geom.Rect `json:"exclude,omitempty"`
	Protect map[string][]geom.Rect `json:"protect"`
}

func (s state) toDocument() document {
	doc := document{
		Regions: encodeBucket(s.redact),
		Protect: encodeBucket(s.protect),
	}
	if len(s.exclude) > 0 {
		doc.Exclude = encodeBucket(s.exclude)
	}
	return doc
}

func encodeBucket(in map[int][]geom.Rect) map[string][]geom.Rect {
	out := make(map[string][]geom.Rect, len(in))
	for page, rects := range in {
		if len(rects) == 0 {
			continue
		}
		cp := make([]geom.Rect, len(rects))
		copy(cp, rects)
		out[strconv.Itoa(page)] = cp
	}
	return out
}

func (d document) toState() (state, error) {
	st := newState()
	for _, b := range []struct {
		src map[string][]geom.Rect
		dst map[int][]geom.Rect
	}{
		{d.Regions, st.redact},
		{d.Exclude, st.exclude},
		{d.Protect, st.protect},
	} {
		for key, rects := range b.src {
			page, err := strconv.Atoi(key)
			if err != nil || page < 0 {
				return state{}, fmt.Errorf("invalid page key %q", key)
			}
			for _, r := range rects {
				b.dst[page] = append(b.dst[page], r.Normalize())
			}
		}
	}
	return st, nil
}

func (s state) pages() []int {
	seen := make(map[int]bool)
	for _, kind := range Kinds {
		for page, rects := range s.bucket(kind) {
			if len(rects) > 0 {
				seen[page] = true
			}
		}
	}
	pages := make([]int, 0, len(seen))
	for page := range seen {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}

func (s state) list() []Region {
	var out []Region
	for _, page := range s.pages() {
		for _, kind := range Kinds {
			for i, r := range s.bucket(kind)[page] {
				out = append(out, Region{Page: page, Index: i, BBox: r, Kind: kind})
			}
		}
	}
	return out
}
