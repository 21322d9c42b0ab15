package regions

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/metrics"
	"github.com/a3tai/mcp-pdf-redactor/internal/snapshot"
)

// Purpose is the artifact purpose used for region snapshots.
const Purpose = "regions"

// Defaults applied when no option overrides them.
const (
	DefaultHistoryDepth     = 50
	DefaultAutosaveInterval = 5 * time.Second
)

// Status is the lifecycle state of a store.
type Status int

const (
	StatusUnloaded Status = iota
	StatusLoaded
	StatusDirty
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusDirty:
		return "dirty"
	default:
		return "unloaded"
	}
}

// Stats counts durable writes performed by a store.
type Stats struct {
	AutosaveWrites int       `json:"autosave_writes"`
	Saves          int       `json:"saves"`
	LastAutosave   time.Time `json:"last_autosave,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryDepth bounds the undo history. Values below one keep the default.
func WithHistoryDepth(depth int) Option {
	return func(s *Store) {
		if depth > 0 {
			s.depth = depth
		}
	}
}

// WithAutosaveInterval sets the autosave cadence. Zero disables the timer;
// Flush and Close still write.
func WithAutosaveInterval(d time.Duration) Option {
	return func(s *Store) { s.interval = d }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithFallbackID names an older id to load from when nothing has been saved
// under the store's own id yet. Writes always go to the store's own id.
func WithFallbackID(id string) Option {
	return func(s *Store) { s.fallbackID = id }
}

// WithMetrics records writes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Store holds the regions of one open document. All methods are safe for
// concurrent use; every mutation is one history entry.
type Store struct {
	documentID string
	fallbackID string
	snapshots  *snapshot.Store
	log        zerolog.Logger
	metrics    *metrics.Metrics
	depth      int
	interval   time.Duration

	mu          sync.Mutex
	current     state
	history     []state
	future      []state
	dirty       bool
	gen         uint64
	status      Status
	stats       Stats
	loadedFrom  string
	loadWarning error

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Open loads the latest snapshot for documentID, or starts empty when there
// is none. A malformed snapshot also starts empty; the problem is logged and
// kept in LoadWarning.
func Open(documentID string, snapshots *snapshot.Store, opts ...Option) (*Store, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id cannot be empty")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}

	s := &Store{
		documentID: documentID,
		snapshots:  snapshots,
		log:        zerolog.Nop(),
		depth:      DefaultHistoryDepth,
		interval:   DefaultAutosaveInterval,
		current:    newState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("document", documentID).Logger()

	if err := s.load(); err != nil {
		return nil, err
	}
	s.status = StatusLoaded

	if s.interval > 0 {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.autosaveLoop()
	}
	return s, nil
}

func (s *Store) load() error {
	path, ok, err := s.snapshots.FindLatest(s.documentID, Purpose)
	if err != nil {
		return fmt.Errorf("failed to locate regions for %s: %w", s.documentID, err)
	}
	if !ok && s.fallbackID != "" && s.fallbackID != s.documentID {
		path, ok, err = s.snapshots.FindLatest(s.fallbackID, Purpose)
		if err != nil {
			return fmt.Errorf("failed to locate regions for %s: %w", s.fallbackID, err)
		}
	}
	if !ok {
		s.log.Debug().Msg("no saved regions, starting empty")
		return nil
	}

	var doc document
	if err := s.snapshots.ReadJSON(path, &doc); err != nil {
		if !errors.Is(err, snapshot.ErrMalformed) {
			return err
		}
		s.loadWarning = err
		s.log.Warn().Err(err).Str("path", path).Msg("ignoring malformed region snapshot")
		return nil
	}

	st, err := doc.toState()
	if err != nil {
		s.loadWarning = fmt.Errorf("%w: %s: %v", snapshot.ErrMalformed, path, err)
		s.log.Warn().Err(s.loadWarning).Msg("ignoring malformed region snapshot")
		return nil
	}

	s.current = st
	s.loadedFrom = path
	s.log.Debug().Str("path", path).Int("regions", len(st.list())).Msg("regions loaded")
	return nil
}

// DocumentID returns the id the store was opened with.
func (s *Store) DocumentID() string {
	return s.documentID
}

// LoadedFrom returns the artifact the store was loaded from, if any.
func (s *Store) LoadedFrom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedFrom
}

// LoadWarning returns the reason a snapshot was discarded on open, if any.
func (s *Store) LoadWarning() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadWarning
}

// mutate snapshots the current state, applies fn and updates history. The
// caller holds mu.
func (s *Store) mutate(fn func(st *state)) {
	s.history = append(s.history, s.current.clone())
	if len(s.history) > s.depth {
		s.history = s.history[len(s.history)-s.depth:]
	}
	s.future = nil
	fn(&s.current)
	s.markDirty()
}

func (s *Store) markDirty() {
	s.dirty = true
	s.gen++
	if s.status != StatusUnloaded {
		s.status = StatusDirty
	}
}

// Add stores bbox, normalized, as a new region at the end of the page's list
// for kind. Minimum size checks belong to the caller.
func (s *Store) Add(page int, bbox geom.Rect, kind Kind) (Region, error) {
	if !kind.Valid() {
		return Region{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if page < 0 {
		return Region{}, fmt.Errorf("page must be non-negative, got %d", page)
	}
	if !bbox.IsFinite() {
		return Region{}, fmt.Errorf("%w: %s", ErrNonFiniteBox, bbox)
	}
	bbox = bbox.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	var index int
	s.mutate(func(st *state) {
		b := st.bucket(kind)
		b[page] = append(b[page], bbox)
		index = len(b[page]) - 1
	})
	return Region{Page: page, Index: index, BBox: bbox, Kind: kind}, nil
}

// Remove deletes the region at index. It reports false, leaving history
// untouched, when there is no such region.
func (s *Store) Remove(page, index int, kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists(page, index, kind) {
		return false
	}
	s.mutate(func(st *state) {
		b := st.bucket(kind)
		rects := append(b[page][:index:index], b[page][index+1:]...)
		if len(rects) == 0 {
			delete(b, page)
			return
		}
		b[page] = rects
	})
	return true
}

// Update replaces the geometry of the region at index in place. It reports
// false for a missing region or a box with non-finite coordinates.
func (s *Store) Update(page, index int, bbox geom.Rect, kind Kind) bool {
	if !bbox.IsFinite() {
		return false
	}
	bbox = bbox.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists(page, index, kind) {
		return false
	}
	s.mutate(func(st *state) {
		st.bucket(kind)[page][index] = bbox
	})
	return true
}

func (s *Store) exists(page, index int, kind Kind) bool {
	if !kind.Valid() || index < 0 {
		return false
	}
	return index < len(s.current.bucket(kind)[page])
}

// Clear removes every region on page as a single history entry. It reports
// false when the page had nothing to clear.
func (s *Store) Clear(page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, kind := range Kinds {
		if len(s.current.bucket(kind)[page]) > 0 {
			found = true
		}
	}
	if !found {
		return false
	}
	s.mutate(func(st *state) {
		for _, kind := range Kinds {
			delete(st.bucket(kind), page)
		}
	})
	return true
}

// ClearAll removes every region of the document as a single history entry.
func (s *Store) ClearAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.isEmpty() {
		return false
	}
	s.mutate(func(st *state) { *st = newState() })
	return true
}

// Undo restores the state before the most recent mutation. It reports false
// when there is nothing to undo.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return false
	}
	last := len(s.history) - 1
	s.future = append(s.future, s.current)
	s.current = s.history[last]
	s.history = s.history[:last]
	s.markDirty()
	return true
}

// Redo reapplies the most recently undone mutation.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.future) == 0 {
		return false
	}
	last := len(s.future) - 1
	s.history = append(s.history, s.current)
	if len(s.history) > s.depth {
		s.history = s.history[len(s.history)-s.depth:]
	}
	s.current = s.future[last]
	s.future = s.future[:last]
	s.markDirty()
	return true
}

// CanUndo reports whether Undo would change anything.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history) > 0
}

// CanRedo reports whether Redo would change anything.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.future) > 0
}

// Regions returns a copy of the rectangles of kind on page.
func (s *Store) Regions(page int, kind Kind) []geom.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	rects := s.current.bucket(kind)[page]
	out := make([]geom.Rect, len(rects))
	copy(out, rects)
	return out
}

// Page returns a copy of every region on page grouped by kind.
func (s *Store) Page(page int) PageSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := func(rects []geom.Rect) []geom.Rect {
		out := make([]geom.Rect, len(rects))
		copy(out, rects)
		return out
	}
	return PageSet{
		Redact:  cp(s.current.redact[page]),
		Exclude: cp(s.current.exclude[page]),
		Protect: cp(s.current.protect[page]),
	}
}

// Pages returns the pages holding at least one region, ascending.
func (s *Store) Pages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.pages()
}

// List returns every region ordered by page, kind and index.
func (s *Store) List() []Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.list()
}

// Dirty reports whether there are changes not yet written.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Status returns the lifecycle state.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stats returns write counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Save writes the current regions to a new timestamped artifact and refreshes
// the autosave artifact so the next open sees the same state.
func (s *Store) Save() (string, error) {
	s.mu.Lock()
	doc := s.current.toDocument()
	gen := s.gen
	s.mu.Unlock()

	path, err := s.snapshots.SaveTimestamped(s.documentID, Purpose, doc)
	if err != nil {
		return "", fmt.Errorf("failed to save regions for %s: %w", s.documentID, err)
	}
	if _, err := s.snapshots.SaveAutosave(s.documentID, Purpose, doc); err != nil {
		s.log.Warn().Err(err).Msg("saved regions but could not refresh autosave")
	}

	s.mu.Lock()
	s.stats.Saves++
	s.markClean(gen)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SnapshotSaves.Inc()
	}
	s.log.Info().Str("path", path).Msg("regions saved")
	return path, nil
}

// Flush writes the autosave artifact when there are unsaved changes and
// reports whether a write happened.
func (s *Store) Flush() (bool, error) {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return false, nil
	}
	doc := s.current.toDocument()
	gen := s.gen
	s.mu.Unlock()

	if _, err := s.snapshots.SaveAutosave(s.documentID, Purpose, doc); err != nil {
		if s.metrics != nil {
			s.metrics.AutosaveErrors.Inc()
		}
		return false, fmt.Errorf("autosave failed for %s: %w", s.documentID, err)
	}

	s.mu.Lock()
	s.stats.AutosaveWrites++
	s.stats.LastAutosave = time.Now()
	s.markClean(gen)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.AutosaveWrites.Inc()
	}
	return true, nil
}

// markClean clears dirty unless a mutation happened after gen was captured.
func (s *Store) markClean(gen uint64) {
	if s.gen != gen {
		return
	}
	s.dirty = false
	if s.status == StatusDirty {
		s.status = StatusLoaded
	}
}

func (s *Store) autosaveLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if _, err := s.Flush(); err != nil {
				s.log.Warn().Err(err).Msg("autosave failed, will retry")
			}
		}
	}
}

// Close stops the autosave timer, performs a final flush and unloads the
// store. Calling Close more than once is safe.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
		_, err = s.Flush()

		s.mu.Lock()
		s.status = StatusUnloaded
		s.mu.Unlock()
	})
	return err
}
