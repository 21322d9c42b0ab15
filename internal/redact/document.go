package redact

import (
	"context"
	"fmt"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/patterns"
)

// Document gives page-by-page access to searchable text. Pages are 0-based.
type Document interface {
	PageCount() int
	PageText(page int) (PageText, error)
}

// RegionsFunc returns the drawn regions of a page.
type RegionsFunc func(page int) PageRegions

// Burner permanently covers boxes on a page.
type Burner interface {
	ApplyRedactions(page int, boxes []geom.Rect) error
}

// ResolveDocument resolves every page in order. It stops between pages when
// ctx is done and returns the pages finished so far with ctx.Err(). A page
// whose text cannot be loaded still gets its manual redact regions.
func (r *Resolver) ResolveDocument(ctx context.Context, doc Document, rules patterns.Rules, regionsFor RegionsFunc) ([]PageResult, error) {
	if regionsFor == nil {
		regionsFor = func(int) PageRegions { return PageRegions{} }
	}

	results := make([]PageResult, 0, doc.PageCount())
	for page := 0; page < doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		text, err := doc.PageText(page)
		if err != nil {
			r.log.Warn().Err(err).Int("page", page).Msg("page text unavailable, applying drawn regions only")
			res := r.ResolvePage(page, nil, rules, regionsFor(page))
			res.Warnings = append(res.Warnings, fmt.Sprintf("page text unavailable: %v", err))
			results = append(results, res)
			continue
		}
		results = append(results, r.ResolvePage(page, text, rules, regionsFor(page)))
	}
	return results, nil
}

// Burn hands each page's boxes to b, skipping pages with nothing to cover.
// It checks ctx between pages and stops at the first burner error.
func Burn(ctx context.Context, b Burner, results []PageResult) error {
	for _, res := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(res.Boxes) == 0 {
			continue
		}
		if err := b.ApplyRedactions(res.Page, res.Boxes); err != nil {
			return fmt.Errorf("failed to apply redactions on page %d: %w", res.Page, err)
		}
	}
	return nil
}

// Summary totals a set of page results.
type Summary struct {
	Pages      int `json:"pages"`
	Boxes      int `json:"boxes"`
	Accepted   int `json:"accepted"`
	Suppressed int `json:"suppressed"`
	Manual     int `json:"manual"`
}

// Summarize totals results.
func Summarize(results []PageResult) Summary {
	s := Summary{Pages: len(results)}
	for _, res := range results {
		s.Boxes += len(res.Boxes)
		s.Accepted += len(res.Accepted)
		s.Suppressed += len(res.Suppressed)
		s.Manual += len(res.Manual)
	}
	return s
}
