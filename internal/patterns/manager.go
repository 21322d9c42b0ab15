package patterns

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-redactor/internal/metrics"
	"github.com/a3tai/mcp-pdf-redactor/internal/snapshot"
)

// Artifact naming for the process-wide configuration.
const (
	ConfigStem        = "app_wide"
	PurposePatterns   = "patterns"
	PurposeExclusions = "exclusions"
	presetsName       = "app_wide_presets"
)

// Errors returned by preset and import operations.
var (
	ErrPresetNotFound  = errors.New("preset not found")
	ErrBuiltinPreset   = errors.New("built-in presets cannot be modified")
	ErrEmptyPresetName = errors.New("preset name cannot be empty")
	ErrUnknownImport   = errors.New("unrecognized configuration format")
)

// patternsFile is the persisted pattern configuration. The regex and preset
// keys are optional so plain {keywords, passages} files load unchanged.
type patternsFile struct {
	Keywords []string `json:"keywords"`
	Passages []string `json:"passages"`
	Regex    []string `json:"regex_patterns,omitempty"`
	Preset   string   `json:"preset,omitempty"`
}

// ExportDocument bundles the whole configuration for transfer between
// installations.
type ExportDocument struct {
	Patterns         PatternSet `json:"patterns"`
	Exclusions       []string   `json:"exclusions"`
	ExcludedPassages []string   `json:"excluded_passages"`
	Regex            []string   `json:"regex_patterns"`
	Preset           string     `json:"preset"`
	Exported         time.Time  `json:"exported"`
}

// ImportKind describes what an imported file contained.
type ImportKind string

const (
	ImportPatterns   ImportKind = "patterns"
	ImportExclusions ImportKind = "exclusions"
	ImportFull       ImportKind = "full"
)

// DefaultHistoryDepth bounds the undo history unless WithHistoryDepth
// overrides it.
const DefaultHistoryDepth = 50

// loadedArtifact remembers the file the rules were last read from or written
// to, and a hash of its content.
type loadedArtifact struct {
	path string
	sum  uint64
}

// Manager owns the single current pattern/exclusion configuration shared by
// every open document. Every change is one undo step; changes are written to
// the autosave artifacts by Flush and the autosave timer. All methods are
// safe for concurrent use.
type Manager struct {
	store    *snapshot.Store
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	depth    int
	interval time.Duration

	mu      sync.RWMutex
	rules   Rules
	history []Rules
	future  []Rules
	dirty   bool
	gen     uint64
	presets map[string]Preset
	loaded  map[string]loadedArtifact

	subMu sync.Mutex
	subs  []chan Rules

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithMetrics records reloads and autosaves on m.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithHistoryDepth bounds the undo history. Values below one keep the default.
func WithHistoryDepth(depth int) Option {
	return func(m *Manager) {
		if depth > 0 {
			m.depth = depth
		}
	}
}

// WithAutosaveInterval starts a timer that flushes unsaved changes every d.
// Without it only Flush and Close write.
func WithAutosaveInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// NewManager returns a manager with empty rules and the built-in presets.
// Call Load to pick up persisted configuration and Close to stop autosaving.
func NewManager(store *snapshot.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		log:     zerolog.Nop(),
		now:     time.Now,
		depth:   DefaultHistoryDepth,
		rules:   emptyRules(),
		presets: BuiltinPresets(),
		loaded:  make(map[string]loadedArtifact),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.interval > 0 {
		m.stop = make(chan struct{})
		m.done = make(chan struct{})
		go m.autosaveLoop()
	}
	return m
}

func emptyRules() Rules {
	return Rules{
		Patterns:   PatternSet{Keywords: []string{}, Passages: []string{}},
		Exclusions: ExclusionSet{Keywords: []string{}, Passages: []string{}},
		Regex:      []string{},
	}
}

// Load reads the latest persisted patterns, exclusions and user presets.
// Malformed artifacts fall back to defaults; each fallback is returned as a
// warning and logged. Only directory listing failures are returned as err.
func (m *Manager) Load() (warnings []error, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rules := emptyRules()

	var pf patternsFile
	found, warn, err := m.readLatest(PurposePatterns, &pf)
	if err != nil {
		return nil, err
	}
	if warn != nil {
		warnings = append(warnings, warn)
	} else if found {
		rules.Patterns = PatternSet{Keywords: cloneStrings(pf.Keywords), Passages: cloneStrings(pf.Passages)}
		rules.Regex = cloneStrings(pf.Regex)
		rules.Preset = pf.Preset
	}

	var ex ExclusionSet
	found, warn, err = m.readLatest(PurposeExclusions, &ex)
	if err != nil {
		return nil, err
	}
	if warn != nil {
		warnings = append(warnings, warn)
	} else if found {
		rules.Exclusions = ex.Clone()
	}

	m.rules = rules
	m.history = nil
	m.future = nil
	m.dirty = false

	if warn := m.loadPresetsLocked(); warn != nil {
		warnings = append(warnings, warn)
	}

	for _, w := range warnings {
		m.log.Warn().Err(w).Msg("falling back to default configuration")
	}
	return warnings, nil
}

// readLatest decodes the newest artifact for purpose into v and remembers
// which file it came from. A decode failure is returned as warn.
func (m *Manager) readLatest(purpose string, v interface{}) (found bool, warn error, err error) {
	path, ok, err := m.store.FindLatest(ConfigStem, purpose)
	if err != nil {
		return false, nil, fmt.Errorf("failed to locate %s configuration: %w", purpose, err)
	}
	if !ok {
		delete(m.loaded, purpose)
		return false, nil, nil
	}

	m.loaded[purpose] = loadedArtifact{path: path, sum: fileSum(path)}
	if err := m.store.ReadJSON(path, v); err != nil {
		return false, fmt.Errorf("%s configuration: %w", purpose, err), nil
	}
	return true, nil, nil
}

func (m *Manager) loadPresetsLocked() error {
	presets := BuiltinPresets()
	defer func() { m.presets = presets }()

	path := m.store.Path(presetsName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	var user map[string]Preset
	if err := m.store.ReadJSON(path, &user); err != nil {
		return fmt.Errorf("presets: %w", err)
	}
	for name, p := range user {
		if IsBuiltin(name) {
			continue
		}
		p.Name = name
		p.BuiltIn = false
		p.Patterns = p.Patterns.Clone()
		p.Regex = cloneStrings(p.Regex)
		presets[name] = p
	}
	return nil
}

// Save writes the current patterns and exclusions to new timestamped
// artifacts and returns their paths. The autosave artifacts are refreshed
// too so the next Load sees the same state.
func (m *Manager) Save() (patternsPath, exclusionsPath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pf := m.patternsFileLocked()
	ex := m.rules.Exclusions.Clone()
	gen := m.gen

	patternsPath, err = m.store.SaveTimestamped(ConfigStem, PurposePatterns, pf)
	if err != nil {
		return "", "", fmt.Errorf("failed to save patterns: %w", err)
	}
	exclusionsPath, err = m.store.SaveTimestamped(ConfigStem, PurposeExclusions, ex)
	if err != nil {
		return patternsPath, "", fmt.Errorf("failed to save exclusions: %w", err)
	}
	if err := m.writeAutosaveLocked(pf, ex, gen); err != nil {
		m.log.Warn().Err(err).Msg("saved rules but could not refresh autosave")
	}
	if m.metrics != nil {
		m.metrics.SnapshotSaves.Inc()
	}
	return patternsPath, exclusionsPath, nil
}

// Flush writes the autosave artifacts when there are unsaved changes and
// reports whether a write happened.
func (m *Manager) Flush() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return false, nil
	}
	if err := m.writeAutosaveLocked(m.patternsFileLocked(), m.rules.Exclusions.Clone(), m.gen); err != nil {
		if m.metrics != nil {
			m.metrics.AutosaveErrors.Inc()
		}
		return false, fmt.Errorf("rules autosave failed: %w", err)
	}
	if m.metrics != nil {
		m.metrics.AutosaveWrites.Inc()
	}
	return true, nil
}

// writeAutosaveLocked replaces both autosave artifacts and records them as
// loaded so Watch does not mistake them for outside changes. The caller
// holds mu.
func (m *Manager) writeAutosaveLocked(pf patternsFile, ex ExclusionSet, gen uint64) error {
	patternsPath, err := m.store.SaveAutosave(ConfigStem, PurposePatterns, pf)
	if err != nil {
		return err
	}
	m.loaded[PurposePatterns] = loadedArtifact{path: patternsPath, sum: fileSum(patternsPath)}

	exclusionsPath, err := m.store.SaveAutosave(ConfigStem, PurposeExclusions, ex)
	if err != nil {
		return err
	}
	m.loaded[PurposeExclusions] = loadedArtifact{path: exclusionsPath, sum: fileSum(exclusionsPath)}

	if m.gen == gen {
		m.dirty = false
	}
	return nil
}

func (m *Manager) patternsFileLocked() patternsFile {
	return patternsFile{
		Keywords: cloneStrings(m.rules.Patterns.Keywords),
		Passages: cloneStrings(m.rules.Patterns.Passages),
		Regex:    cloneStrings(m.rules.Regex),
		Preset:   m.rules.Preset,
	}
}

func (m *Manager) autosaveLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if _, err := m.Flush(); err != nil {
				m.log.Warn().Err(err).Msg("autosave failed, will retry")
			}
		}
	}
}

// Close stops the autosave timer and writes any unsaved changes. Calling
// Close more than once is safe.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.stop != nil {
			close(m.stop)
			<-m.done
		}
		_, err = m.Flush()
	})
	return err
}

// Dirty reports whether there are changes not yet written.
func (m *Manager) Dirty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirty
}

// Current returns a deep copy of the rules for use in one resolution call.
func (m *Manager) Current() Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules.Clone()
}

// update applies fn as one undo step.
func (m *Manager) update(fn func(r *Rules)) Rules {
	m.mu.Lock()
	m.pushHistoryLocked()
	fn(&m.rules)
	m.markDirtyLocked()
	current := m.rules.Clone()
	m.mu.Unlock()

	m.publish(current)
	return current
}

func (m *Manager) pushHistoryLocked() {
	m.history = append(m.history, m.rules.Clone())
	if len(m.history) > m.depth {
		m.history = m.history[len(m.history)-m.depth:]
	}
	m.future = nil
}

func (m *Manager) markDirtyLocked() {
	m.dirty = true
	m.gen++
}

// Undo restores the rules before the most recent change. It reports false
// when there is nothing to undo.
func (m *Manager) Undo() bool {
	m.mu.Lock()
	if len(m.history) == 0 {
		m.mu.Unlock()
		return false
	}
	last := len(m.history) - 1
	m.future = append(m.future, m.rules)
	m.rules = m.history[last]
	m.history = m.history[:last]
	m.markDirtyLocked()
	current := m.rules.Clone()
	m.mu.Unlock()

	m.publish(current)
	return true
}

// Redo reapplies the most recently undone change.
func (m *Manager) Redo() bool {
	m.mu.Lock()
	if len(m.future) == 0 {
		m.mu.Unlock()
		return false
	}
	last := len(m.future) - 1
	m.history = append(m.history, m.rules)
	if len(m.history) > m.depth {
		m.history = m.history[len(m.history)-m.depth:]
	}
	m.rules = m.future[last]
	m.future = m.future[:last]
	m.markDirtyLocked()
	current := m.rules.Clone()
	m.mu.Unlock()

	m.publish(current)
	return true
}

// CanUndo reports whether Undo would change anything.
func (m *Manager) CanUndo() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history) > 0
}

// CanRedo reports whether Redo would change anything.
func (m *Manager) CanRedo() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.future) > 0
}

// SetPatterns replaces the pattern set.
func (m *Manager) SetPatterns(p PatternSet) Rules {
	return m.update(func(r *Rules) { r.Patterns = p.Clone() })
}

// SetExclusions replaces the exclusion set.
func (m *Manager) SetExclusions(e ExclusionSet) Rules {
	return m.update(func(r *Rules) { r.Exclusions = e.Clone() })
}

// SetRegex replaces the regex patterns.
func (m *Manager) SetRegex(exprs []string) Rules {
	return m.update(func(r *Rules) { r.Regex = cloneStrings(exprs) })
}

// AddKeyword appends a trimmed keyword. Blank input is ignored and reported
// as false.
func (m *Manager) AddKeyword(keyword string) bool {
	return m.add(keyword, func(r *Rules, s string) { r.Patterns.Keywords = append(r.Patterns.Keywords, s) })
}

// AddPassage appends a trimmed passage.
func (m *Manager) AddPassage(passage string) bool {
	return m.add(passage, func(r *Rules, s string) { r.Patterns.Passages = append(r.Patterns.Passages, s) })
}

// AddExclusion appends a trimmed exclusion keyword.
func (m *Manager) AddExclusion(keyword string) bool {
	return m.add(keyword, func(r *Rules, s string) { r.Exclusions.Keywords = append(r.Exclusions.Keywords, s) })
}

// AddExcludedPassage appends a trimmed excluded passage.
func (m *Manager) AddExcludedPassage(passage string) bool {
	return m.add(passage, func(r *Rules, s string) { r.Exclusions.Passages = append(r.Exclusions.Passages, s) })
}

func (m *Manager) add(value string, appendFn func(r *Rules, s string)) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	m.update(func(r *Rules) { appendFn(r, value) })
	return true
}

// Presets lists built-in presets first, then user presets, each by name.
func (m *Manager) Presets() []Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedPresets(m.presets)
}

// ApplyPreset replaces the patterns and regex patterns with the preset's and
// records it as the active preset. Exclusions are kept.
func (m *Manager) ApplyPreset(name string) (Rules, error) {
	m.mu.RLock()
	p, ok := m.presets[name]
	m.mu.RUnlock()
	if !ok {
		return Rules{}, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}

	p = p.Clone()
	return m.update(func(r *Rules) {
		r.Patterns = p.Patterns
		r.Regex = p.Regex
		r.Preset = p.Name
	}), nil
}

// SaveAsPreset stores the current patterns and regex patterns as a user
// preset and persists the user presets file.
func (m *Manager) SaveAsPreset(name, description string) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, ErrEmptyPresetName
	}
	if IsBuiltin(name) {
		return Preset{}, fmt.Errorf("%w: %s", ErrBuiltinPreset, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	created := m.now()
	p := Preset{
		Name:        name,
		Description: description,
		Patterns:    m.rules.Patterns.Clone(),
		Regex:       cloneStrings(m.rules.Regex),
		Created:     &created,
	}

	previous, existed := m.presets[name]
	m.presets[name] = p
	if err := m.savePresetsLocked(); err != nil {
		if existed {
			m.presets[name] = previous
		} else {
			delete(m.presets, name)
		}
		return Preset{}, err
	}
	return p.Clone(), nil
}

// DeletePreset removes a user preset. Built-in presets cannot be deleted.
func (m *Manager) DeletePreset(name string) error {
	if IsBuiltin(name) {
		return fmt.Errorf("%w: %s", ErrBuiltinPreset, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	previous, ok := m.presets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	delete(m.presets, name)
	if err := m.savePresetsLocked(); err != nil {
		m.presets[name] = previous
		return err
	}
	if m.rules.Preset == name {
		m.rules.Preset = ""
		m.markDirtyLocked()
	}
	return nil
}

func (m *Manager) savePresetsLocked() error {
	user := make(map[string]Preset)
	for name, p := range m.presets {
		if !p.BuiltIn {
			user[name] = p
		}
	}
	if err := m.store.WriteAtomic(m.store.Path(presetsName), user); err != nil {
		return fmt.Errorf("failed to save presets: %w", err)
	}
	return nil
}

// Export returns the whole configuration as one document.
func (m *Manager) Export() ExportDocument {
	r := m.Current()
	return ExportDocument{
		Patterns:         r.Patterns,
		Exclusions:       r.Exclusions.Keywords,
		ExcludedPassages: r.Exclusions.Passages,
		Regex:            r.Regex,
		Preset:           r.Preset,
		Exported:         m.now(),
	}
}

// Import detects the shape of data and applies it. A pattern file carries
// keywords or passages, an exclusions file is a flat list, and a full
// configuration carries an exclusions key.
func (m *Manager) Import(data []byte) (ImportKind, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return "", fmt.Errorf("%w: %v", snapshot.ErrMalformed, err)
		}
		m.SetExclusions(ExclusionSet{Keywords: list, Passages: []string{}})
		return ImportExclusions, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", snapshot.ErrMalformed, err)
	}

	_, hasKeywords := probe["keywords"]
	_, hasPassages := probe["passages"]
	_, hasExclusions := probe["exclusions"]

	switch {
	case hasKeywords || hasPassages:
		var pf patternsFile
		if err := json.Unmarshal(data, &pf); err != nil {
			return "", fmt.Errorf("%w: %v", snapshot.ErrMalformed, err)
		}
		m.update(func(r *Rules) {
			r.Patterns = PatternSet{Keywords: cloneStrings(pf.Keywords), Passages: cloneStrings(pf.Passages)}
			if pf.Regex != nil {
				r.Regex = cloneStrings(pf.Regex)
			}
		})
		return ImportPatterns, nil

	case hasExclusions:
		var doc ExportDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("%w: %v", snapshot.ErrMalformed, err)
		}
		m.update(func(r *Rules) {
			r.Patterns = doc.Patterns.Clone()
			r.Exclusions = ExclusionSet{
				Keywords: cloneStrings(doc.Exclusions),
				Passages: cloneStrings(doc.ExcludedPassages),
			}
			r.Regex = cloneStrings(doc.Regex)
			r.Preset = doc.Preset
		})
		return ImportFull, nil
	}

	return "", ErrUnknownImport
}

// Subscribe returns a channel receiving the rules after every change,
// including reloads triggered by Watch. Slow receivers miss intermediate
// values; the channel is closed when ctx is done.
func (m *Manager) Subscribe(ctx context.Context) <-chan Rules {
	ch := make(chan Rules, 1)

	m.subMu.Lock()
	m.subs = append(m.subs, ch)
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (m *Manager) publish(r Rules) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- r.Clone():
		default:
			// Drop the stale value so the newest one wins.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- r.Clone():
			default:
			}
		}
	}
}

// Watch reloads the configuration whenever a newer pattern or exclusion
// artifact appears in the data directory. It blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.store.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.store.Dir(), err)
	}
	m.log.Debug().Str("dir", m.store.Dir()).Msg("watching configuration")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isConfigArtifact(filepath.Base(event.Name)) {
				continue
			}
			if _, err := m.ReloadIfChanged(); err != nil {
				m.log.Warn().Err(err).Msg("configuration reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.Warn().Err(err).Msg("configuration watcher error")
		}
	}
}

func isConfigArtifact(name string) bool {
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	for _, purpose := range []string{PurposePatterns, PurposeExclusions} {
		if strings.HasPrefix(name, ConfigStem+"_"+purpose+"_") {
			return true
		}
	}
	return false
}

// ReloadIfChanged reloads when the latest artifact differs from the one last
// read or written, or its content has changed since. A reload is one undo
// step. Parse errors keep the current rules.
func (m *Manager) ReloadIfChanged() (bool, error) {
	m.mu.Lock()
	changed := false
	for _, purpose := range []string{PurposePatterns, PurposeExclusions} {
		path, ok, err := m.store.FindLatest(ConfigStem, purpose)
		if err != nil {
			m.mu.Unlock()
			return false, err
		}
		if !ok {
			continue
		}
		prev, seen := m.loaded[purpose]
		if !seen || prev.path != path || fileSum(path) != prev.sum {
			changed = true
		}
	}
	if !changed {
		m.mu.Unlock()
		return false, nil
	}

	next := m.rules.Clone()
	var pf patternsFile
	found, warn, err := m.readLatest(PurposePatterns, &pf)
	if err == nil && warn == nil && found {
		next.Patterns = PatternSet{Keywords: cloneStrings(pf.Keywords), Passages: cloneStrings(pf.Passages)}
		next.Regex = cloneStrings(pf.Regex)
		next.Preset = pf.Preset
	}
	if warn != nil {
		m.log.Warn().Err(warn).Msg("ignoring unreadable configuration")
	}

	var ex ExclusionSet
	found, warn, err2 := m.readLatest(PurposeExclusions, &ex)
	if err2 == nil && warn == nil && found {
		next.Exclusions = ex.Clone()
	}
	if warn != nil {
		m.log.Warn().Err(warn).Msg("ignoring unreadable configuration")
	}

	m.pushHistoryLocked()
	m.rules = next
	current := next.Clone()
	m.mu.Unlock()

	if err := errors.Join(err, err2); err != nil {
		return false, err
	}
	if m.metrics != nil {
		m.metrics.ConfigReloads.Inc()
	}
	m.log.Info().Int("triggers", len(current.Triggers())).Msg("configuration reloaded")
	m.publish(current)
	return true, nil
}

// fileSum hashes the content of path; unreadable files hash as zero.
func fileSum(path string) uint64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}
