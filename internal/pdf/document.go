package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/redact"
)

// US Letter, used when a page carries no usable MediaBox.
var defaultMediaBox = geom.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}

// descentRatio extends glyph boxes below the baseline.
const descentRatio = 0.2

// Document is an open PDF whose pages expose searchable text. Pages are
// 0-based. Methods are safe for concurrent use.
type Document struct {
	path string
	info Info
	log  zerolog.Logger

	mu     sync.Mutex
	file   *os.File
	reader *pdf.Reader
	cache  *layoutCache
	closed bool
}

// DocumentOption configures Open.
type DocumentOption func(*documentOptions)

type documentOptions struct {
	maxFileSize int64
	cacheSize   int
	log         zerolog.Logger
}

// WithMaxFileSize limits the size of documents that can be opened.
func WithMaxFileSize(n int64) DocumentOption {
	return func(o *documentOptions) { o.maxFileSize = n }
}

// WithCacheSize bounds the number of page layouts kept in memory.
func WithCacheSize(n int) DocumentOption {
	return func(o *documentOptions) { o.cacheSize = n }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) DocumentOption {
	return func(o *documentOptions) { o.log = log }
}

// Open validates path, inspects it with pdfcpu and opens it for text access.
func Open(path string, opts ...DocumentOption) (*Document, error) {
	o := documentOptions{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := NewValidator(o.maxFileSize).ValidateFile(path); err != nil {
		return nil, docErr("open", path, err)
	}

	info, err := Inspect(path)
	if err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, docErr("open", path, fmt.Errorf("failed to open PDF: %w", err))
	}

	if n := reader.NumPage(); n != info.PageCount {
		o.log.Warn().Int("pdfcpu_pages", info.PageCount).Int("text_pages", n).Msg("page counts disagree")
	}

	return &Document{
		path:   path,
		info:   info,
		log:    o.log.With().Str("path", path).Logger(),
		file:   f,
		reader: reader,
		cache:  newLayoutCache(o.cacheSize),
	}, nil
}

// Path returns the file the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// Stem is the file name without directory or extension. It keys snapshots.
func (d *Document) Stem() string {
	base := filepath.Base(d.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Info returns what was learned when the document was opened.
func (d *Document) Info() Info {
	return d.info
}

// PageCount returns the number of pages with accessible text.
func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	return d.reader.NumPage()
}

// PageText implements redact.Document.
func (d *Document) PageText(page int) (redact.PageText, error) {
	layout, err := d.Layout(page)
	if err != nil {
		return nil, err
	}
	return layout, nil
}

// Layout returns the positioned text of page, parsing it on first use.
func (d *Document) Layout(page int) (*TextLayout, error) {
	if layout, ok := d.cache.get(page); ok {
		return layout, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, docErr("layout", d.path, ErrDocumentClosed)
	}
	if page < 0 || page >= d.reader.NumPage() {
		return nil, docErr("layout", d.path,
			fmt.Errorf("%w: %d (document has %d pages)", ErrInvalidPage, page, d.reader.NumPage()))
	}

	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return nil, docErr("layout", d.path, fmt.Errorf("%w: page %d has no page object", ErrInvalidPage, page))
	}

	layout, err := buildLayout(p)
	if err != nil {
		d.log.Warn().Err(err).Int("page", page).Msg("failed to read page text")
		return nil, docErr("layout", d.path, fmt.Errorf("page %d: %w", page, err))
	}
	d.cache.put(page, layout)
	return layout, nil
}

// CacheStats reports layout cache usage.
func (d *Document) CacheStats() CacheStats {
	return d.cache.stats()
}

// Close releases the underlying file.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.cache.clear()
	return d.file.Close()
}

// buildLayout converts the page's glyphs into document space. The text
// library panics on some malformed content streams; that is reported as an
// error.
func buildLayout(p pdf.Page) (layout *TextLayout, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()

	media := mediaBox(p.V)
	bounds := geom.Rect{X0: 0, Y0: 0, X1: media.Width(), Y1: media.Height()}

	content := p.Content()
	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		glyphs = append(glyphs, toGlyph(t, media))
	}
	return NewTextLayout(bounds, glyphs), nil
}

// toGlyph flips PDF user space (origin bottom left) to document space.
func toGlyph(t pdf.Text, media geom.Rect) Glyph {
	size := t.FontSize
	if size <= 0 {
		size = 1
	}
	width := t.W
	if width <= 0 {
		width = size * 0.5 * float64(len([]rune(t.S)))
	}

	x0 := t.X - media.X0
	baseline := media.Y1 - t.Y
	return Glyph{
		S:   t.S,
		Box: geom.NewRect(x0, baseline-size, x0+width, baseline+descentRatio*size),
	}
}

// mediaBox looks up the page's MediaBox, following inherited attributes
// through the page tree.
func mediaBox(v pdf.Value) geom.Rect {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			r := geom.NewRect(box.Index(0).Float64(), box.Index(1).Float64(),
				box.Index(2).Float64(), box.Index(3).Float64())
			if !r.IsEmpty() {
				return r
			}
		}
		v = v.Key("Parent")
	}
	return defaultMediaBox
}
