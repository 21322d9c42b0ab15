// Package service ties open documents, their regions and the shared rules
// together behind one API used by the MCP tools and the plan command.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-redactor/internal/config"
	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/logger"
	"github.com/a3tai/mcp-pdf-redactor/internal/metrics"
	"github.com/a3tai/mcp-pdf-redactor/internal/patterns"
	"github.com/a3tai/mcp-pdf-redactor/internal/pdf"
	"github.com/a3tai/mcp-pdf-redactor/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-redactor/internal/redact"
	"github.com/a3tai/mcp-pdf-redactor/internal/regions"
	"github.com/a3tai/mcp-pdf-redactor/internal/snapshot"
)

var (
	// ErrSessionNotFound is returned for unknown or closed session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRegionTooSmall rejects drawn regions not larger than the minimum
	// size on both sides.
	ErrRegionTooSmall = errors.New("region too small")
)

// session is one open document and its region store
type session struct {
	id      string
	docID   string
	doc     *pdf.Document
	regions *regions.Store
	opened  time.Time
}

// Service handles redaction sessions
type Service struct {
	cfg       *config.Config
	log       zerolog.Logger
	metrics   *metrics.Metrics
	paths     *security.PathValidator
	catalog   *pdf.Catalog
	snapshots *snapshot.Store
	rules     *patterns.Manager
	resolver  *redact.Resolver
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	byPath   map[string]string
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics shares a metrics registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a service rooted at cfg.PDFDirectory and loads the shared rules
// from cfg.DataDirectory. Malformed rule files are logged and replaced by
// defaults.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	s := &Service{
		cfg:      cfg,
		log:      logger.Nop(),
		now:      time.Now,
		sessions: make(map[string]*session),
		byPath:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	protection, err := redact.ParseProtection(cfg.Protection)
	if err != nil {
		return nil, err
	}

	paths, err := security.NewPathValidator(cfg.PDFDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	dataDir := cfg.DataDirectory
	if dataDir == "" {
		dataDir = filepath.Join(cfg.PDFDirectory, config.DefaultDataDirName)
	}
	snapshots, err := snapshot.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	s.paths = paths
	s.catalog = pdf.NewCatalog(cfg.MaxFileSize)
	s.snapshots = snapshots
	s.rules = patterns.NewManager(snapshots,
		patterns.WithLogger(logger.Component(s.log, "patterns")),
		patterns.WithMetrics(s.metrics),
		patterns.WithHistoryDepth(cfg.HistoryDepth),
		patterns.WithAutosaveInterval(cfg.AutosaveInterval),
	)
	s.resolver = redact.NewResolver(
		redact.Options{ContextMargin: cfg.ContextMargin, Protection: protection},
		redact.WithLogger(logger.Component(s.log, "resolver")),
		redact.WithMetrics(s.metrics),
	)

	// Load logs each malformed file it falls back from.
	if _, err := s.rules.Load(); err != nil {
		_ = s.rules.Close()
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	return s, nil
}

// Metrics returns the registry the service records on
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// Rules returns the shared pattern and exclusion manager
func (s *Service) Rules() *patterns.Manager {
	return s.rules
}

// Snapshots returns the snapshot store
func (s *Service) Snapshots() *snapshot.Store {
	return s.snapshots
}

// WatchRules reloads the rules whenever a newer rules file lands in the data
// directory. It blocks until ctx is done.
func (s *Service) WatchRules(ctx context.Context) error {
	return s.rules.Watch(ctx)
}

// ListDocuments lists the PDFs under the configured directory
func (s *Service) ListDocuments(query string, limit int) ([]pdf.FileInfo, error) {
	return s.catalog.Find(s.paths.GetConfiguredDirectory(), query, limit)
}

// OpenDocument opens path for redaction. Opening a document that is already
// open returns its existing session.
func (s *Service) OpenDocument(path string) (*DocumentInfo, error) {
	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byPath[resolved]; ok {
		return s.describe(s.sessions[id]), nil
	}

	log := logger.Component(s.log, "document")
	doc, err := pdf.Open(resolved,
		pdf.WithMaxFileSize(s.cfg.MaxFileSize),
		pdf.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	docID := s.documentID(resolved, doc.Stem())
	store, err := regions.Open(docID, s.snapshots,
		regions.WithFallbackID(doc.Stem()),
		regions.WithHistoryDepth(s.cfg.HistoryDepth),
		regions.WithAutosaveInterval(s.cfg.AutosaveInterval),
		regions.WithLogger(logger.Component(s.log, "regions")),
		regions.WithMetrics(s.metrics),
	)
	if err != nil {
		_ = doc.Close()
		return nil, fmt.Errorf("failed to open regions: %w", err)
	}

	sess := &session{
		id:      uuid.NewString(),
		docID:   docID,
		doc:     doc,
		regions: store,
		opened:  s.now(),
	}
	s.sessions[sess.id] = sess
	s.byPath[resolved] = sess.id

	s.log.Info().
		Str("session", sess.id).
		Str("path", resolved).
		Int("pages", doc.PageCount()).
		Msg("document opened")

	return s.describe(sess), nil
}

// documentID names the artifacts of the document at resolved. Files directly
// under the root use their stem; nested files append a hash of their
// directory so a/x.pdf and b/x.pdf keep separate histories.
func (s *Service) documentID(resolved, stem string) string {
	dir, err := filepath.Rel(s.paths.GetConfiguredDirectory(), filepath.Dir(resolved))
	if err != nil {
		dir = filepath.Dir(resolved)
	}
	if dir == "." {
		return stem
	}
	return fmt.Sprintf("%s_%08x", stem, uint32(xxhash.Sum64String(filepath.ToSlash(dir))))
}

func (s *Service) describe(sess *session) *DocumentInfo {
	info := sess.doc.Info()
	out := &DocumentInfo{
		SessionID:  sess.id,
		Path:       sess.doc.Path(),
		Stem:       sess.doc.Stem(),
		DocumentID: sess.docID,
		Pages:      sess.doc.PageCount(),
		Size:       info.Size,
		Encrypted:  info.Encrypted,
		Regions:    len(sess.regions.List()),
		LoadedFrom: sess.regions.LoadedFrom(),
		Opened:     sess.opened,
	}
	if w := sess.regions.LoadWarning(); w != nil {
		out.LoadWarning = w.Error()
	}
	return out
}

// Documents describes every open session, oldest first
func (s *Service) Documents() []DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DocumentInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *s.describe(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Opened.Equal(out[j].Opened) {
			return out[i].Path < out[j].Path
		}
		return out[i].Opened.Before(out[j].Opened)
	})
	return out
}

// CloseDocument flushes the session's regions and releases the document
func (s *Service) CloseDocument(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		delete(s.byPath, sess.doc.Path())
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return closeSession(sess)
}

func closeSession(sess *session) error {
	return errors.Join(sess.regions.Close(), sess.doc.Close())
}

// Close closes every open session and writes unsaved rule changes
func (s *Service) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.byPath = make(map[string]string)
	s.mu.Unlock()

	var errs []error
	for _, sess := range sessions {
		if err := closeSession(sess); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sess.id, err))
		}
	}
	if err := s.rules.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) checkPage(sess *session, page int) error {
	if n := sess.doc.PageCount(); page < 0 || page >= n {
		return fmt.Errorf("%w: %d (document has %d pages)", pdf.ErrInvalidPage, page, n)
	}
	return nil
}

// checkSize applies the minimum drawn size to a region
func (s *Service) checkSize(bbox geom.Rect) error {
	if !bbox.IsFinite() {
		return fmt.Errorf("%w: %s", regions.ErrNonFiniteBox, bbox)
	}
	minSize := s.cfg.MinRegionSize
	if bbox.Width() <= minSize || bbox.Height() <= minSize {
		return fmt.Errorf("%w: %s must be larger than %g on both sides", ErrRegionTooSmall, bbox, minSize)
	}
	return nil
}

// AddRegion draws a region
func (s *Service) AddRegion(req RegionRequest) (regions.Region, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return regions.Region{}, err
	}
	if err := s.checkPage(sess, req.Page); err != nil {
		return regions.Region{}, err
	}
	if err := s.checkSize(req.BBox); err != nil {
		return regions.Region{}, err
	}
	return sess.regions.Add(req.Page, req.BBox, req.Kind)
}

// UpdateRegion replaces the box of an existing region. It reports false when
// the region does not exist.
func (s *Service) UpdateRegion(req RegionRequest) (bool, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return false, err
	}
	if !req.Kind.Valid() {
		return false, fmt.Errorf("%w: %q", regions.ErrUnknownKind, req.Kind)
	}
	if err := s.checkPage(sess, req.Page); err != nil {
		return false, err
	}
	if err := s.checkSize(req.BBox); err != nil {
		return false, err
	}
	return sess.regions.Update(req.Page, req.Index, req.BBox, req.Kind), nil
}

// RemoveRegion deletes a region. It reports false when the region does not
// exist.
func (s *Service) RemoveRegion(req RegionRequest) (bool, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return false, err
	}
	if !req.Kind.Valid() {
		return false, fmt.Errorf("%w: %q", regions.ErrUnknownKind, req.Kind)
	}
	return sess.regions.Remove(req.Page, req.Index, req.Kind), nil
}

// ClearRegions removes the regions of page, or of every page when page is
// negative. It reports false when there was nothing to clear.
func (s *Service) ClearRegions(id string, page int) (bool, error) {
	sess, err := s.session(id)
	if err != nil {
		return false, err
	}
	if page < 0 {
		return sess.regions.ClearAll(), nil
	}
	return sess.regions.Clear(page), nil
}

// ListRegions lists the regions of page, or of every page when page is
// negative.
func (s *Service) ListRegions(id string, page int) (*RegionsResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	all := sess.regions.List()
	list := all[:0:0]
	for _, r := range all {
		if page < 0 || r.Page == page {
			list = append(list, r)
		}
	}
	return &RegionsResult{
		SessionID: id,
		Regions:   list,
		CanUndo:   sess.regions.CanUndo(),
		CanRedo:   sess.regions.CanRedo(),
		Status:    sess.regions.Status().String(),
	}, nil
}

// Undo reverts the last region change. It reports false when there is
// nothing to undo.
func (s *Service) Undo(id string) (bool, error) {
	sess, err := s.session(id)
	if err != nil {
		return false, err
	}
	return sess.regions.Undo(), nil
}

// Redo reapplies the last undone change
func (s *Service) Redo(id string) (bool, error) {
	sess, err := s.session(id)
	if err != nil {
		return false, err
	}
	return sess.regions.Redo(), nil
}

// SaveRegions writes a timestamped snapshot of the session's regions
func (s *Service) SaveRegions(id string) (string, error) {
	sess, err := s.session(id)
	if err != nil {
		return "", err
	}
	return sess.regions.Save()
}

func regionsFor(store *regions.Store) redact.RegionsFunc {
	return func(page int) redact.PageRegions {
		set := store.Page(page)
		return redact.PageRegions{Redact: set.Redact, Exclude: set.Exclude, Protect: set.Protect}
	}
}

// ResolvePage previews the redaction of one page with the current rules
func (s *Service) ResolvePage(id string, page int) (*redact.PageResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPage(sess, page); err != nil {
		return nil, err
	}

	regionsOf := regionsFor(sess.regions)
	text, err := sess.doc.PageText(page)
	if err != nil {
		s.log.Warn().Err(err).Int("page", page).Msg("page text unavailable, applying drawn regions only")
		res := s.resolver.ResolvePage(page, nil, s.rules.Current(), regionsOf(page))
		res.Warnings = append(res.Warnings, fmt.Sprintf("page text unavailable: %v", err))
		return &res, nil
	}
	res := s.resolver.ResolvePage(page, text, s.rules.Current(), regionsOf(page))
	return &res, nil
}

// ResolveAll resolves every page of the session's document
func (s *Service) ResolveAll(ctx context.Context, id string) ([]redact.PageResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveDocument(ctx, sess.doc, s.rules.Current(), regionsFor(sess.regions))
}

// planBurner records boxes instead of burning them
type planBurner struct {
	pages []PlanPage
}

func (b *planBurner) ApplyRedactions(page int, boxes []geom.Rect) error {
	b.pages = append(b.pages, PlanPage{Page: page, Boxes: append([]geom.Rect(nil), boxes...)})
	return nil
}

// ExportPlan resolves the whole document and writes the boxes to burn as
// <document id>_plan_<timestamp>.json in the data directory.
func (s *Service) ExportPlan(ctx context.Context, id string) (*PlanResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	rules := s.rules.Current()
	results, err := s.resolver.ResolveDocument(ctx, sess.doc, rules, regionsFor(sess.regions))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document: %w", err)
	}

	burner := &planBurner{pages: []PlanPage{}}
	if err := redact.Burn(ctx, burner, results); err != nil {
		return nil, err
	}

	opts := s.resolver.Options()
	plan := Plan{
		Document:      sess.doc.Path(),
		Pages:         sess.doc.PageCount(),
		Created:       s.now().UTC(),
		ContextMargin: opts.ContextMargin,
		Protection:    opts.Protection.String(),
		Preset:        rules.Preset,
		Summary:       redact.Summarize(results),
		Redactions:    burner.pages,
	}
	for _, res := range results {
		for _, w := range res.Warnings {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("page %d: %s", res.Page, w))
		}
	}

	path, err := s.snapshots.SaveTimestamped(sess.docID, PlanPurpose, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to write plan: %w", err)
	}

	s.log.Info().
		Str("session", id).
		Str("plan", path).
		Int("boxes", plan.Summary.Boxes).
		Msg("redaction plan written")

	return &PlanResult{Path: path, Plan: plan}, nil
}

// ExportPlanForPath opens path, writes its plan and closes it again
func (s *Service) ExportPlanForPath(ctx context.Context, path string) (*PlanResult, error) {
	info, err := s.OpenDocument(path)
	if err != nil {
		return nil, err
	}
	result, planErr := s.ExportPlan(ctx, info.SessionID)
	closeErr := s.CloseDocument(info.SessionID)
	if planErr != nil {
		return nil, planErr
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return result, nil
}
