// Package redact decides which text occurrences and drawn regions of a page
// are burned in. Resolution is read-only: it never changes regions or rules.
package redact

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/metrics"
	"github.com/a3tai/mcp-pdf-redactor/internal/patterns"
)

// PageText is the searchable text of one page.
type PageText interface {
	// Search returns one box per case-insensitive occurrence of needle.
	Search(needle string) ([]geom.Rect, error)
	// TextIn returns the text inside rect. Out-of-bounds rectangles are not
	// an error.
	TextIn(rect geom.Rect) (string, error)
	// Text returns the whole page text.
	Text() (string, error)
	// Bounds is the page box used to clamp widened rectangles.
	Bounds() geom.Rect
}

// PageRegions are the drawn regions of one page.
type PageRegions struct {
	Redact  []geom.Rect
	Exclude []geom.Rect
	Protect []geom.Rect
}

// Protection selects how a Protect region shields an occurrence.
type Protection int

const (
	// ProtectContain shields occurrences lying entirely inside the region.
	ProtectContain Protection = iota
	// ProtectIntersect shields occurrences overlapping the region at all.
	ProtectIntersect
)

// ParseProtection maps "contain" and "intersect" to a Protection.
func ParseProtection(s string) (Protection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contain", "containment":
		return ProtectContain, nil
	case "intersect", "intersection":
		return ProtectIntersect, nil
	}
	return ProtectContain, fmt.Errorf("unknown protection mode %q", s)
}

func (p Protection) String() string {
	if p == ProtectIntersect {
		return "intersect"
	}
	return "contain"
}

// DefaultContextMargin is how far occurrences are widened to the left and
// right before their surroundings are checked for exclusions.
const DefaultContextMargin = 20.0

// Options tune resolution.
type Options struct {
	ContextMargin float64
	Protection    Protection
}

// DefaultOptions returns containment protection and the default margin.
func DefaultOptions() Options {
	return Options{ContextMargin: DefaultContextMargin, Protection: ProtectContain}
}

// TriggerSource tells literal triggers and regex matches apart.
type TriggerSource string

const (
	SourceLiteral TriggerSource = "literal"
	SourceRegex   TriggerSource = "regex"
)

// Candidate is one occurrence considered for redaction.
type Candidate struct {
	Trigger string        `json:"trigger"`
	Source  TriggerSource `json:"source"`
	BBox    geom.Rect     `json:"bbox"`
	// Context is the widened text checked against exclusions.
	Context string `json:"context,omitempty"`
	// Reason is set for suppressed candidates.
	Reason string `json:"reason,omitempty"`
	// ContextError is set when the context could not be read and the
	// occurrence was redacted anyway.
	ContextError string `json:"context_error,omitempty"`
}

// PageResult is the outcome of resolving one page.
type PageResult struct {
	Page         int         `json:"page"`
	Accepted     []Candidate `json:"accepted"`
	Suppressed   []Candidate `json:"suppressed"`
	SelfExcluded []string    `json:"self_excluded"`
	Manual       []geom.Rect `json:"manual"`
	// Exclude regions are returned for previews and never affect Boxes.
	Exclude  []geom.Rect `json:"exclude"`
	Boxes    []geom.Rect `json:"boxes"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Resolver applies rules and regions to pages.
type Resolver struct {
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for lookup failures.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithMetrics records resolution counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver returns a resolver. A negative margin is treated as zero.
func NewResolver(opts Options, options ...Option) *Resolver {
	if opts.ContextMargin < 0 {
		opts.ContextMargin = 0
	}
	r := &Resolver{opts: opts, log: zerolog.Nop()}
	for _, o := range options {
		o(r)
	}
	return r
}

// Options returns the resolver's options.
func (r *Resolver) Options() Options {
	return r.opts
}

// ResolvePage decides the boxes to burn in on one page.
//
// Literal triggers containing an exclusion are dropped before searching.
// Every occurrence of the remaining triggers, and of regex matches, is then
// discarded when protected or when its widened context contains an
// exclusion. Manual redact regions are appended unconditionally.
func (r *Resolver) ResolvePage(page int, text PageText, rules patterns.Rules, regions PageRegions) PageResult {
	res := PageResult{
		Page:         page,
		Accepted:     []Candidate{},
		Suppressed:   []Candidate{},
		SelfExcluded: []string{},
		Manual:       cloneRects(regions.Redact),
		Exclude:      cloneRects(regions.Exclude),
	}
	log := r.log.With().Int("page", page).Logger()

	exclusions := lowerAll(rules.ExclusionStrings())

	if text != nil {
		for _, trigger := range rules.Triggers() {
			r.count(func(m *metrics.Metrics) { m.TriggersEvaluated.Inc() })

			if ex, ok := containsAny(strings.ToLower(trigger), exclusions); ok {
				log.Debug().Str("trigger", trigger).Str("exclusion", ex).Msg("trigger excluded")
				res.SelfExcluded = append(res.SelfExcluded, trigger)
				r.count(func(m *metrics.Metrics) { m.OccurrencesSuppressed.WithLabelValues(metrics.ReasonSelfExcluded).Inc() })
				continue
			}
			r.evaluate(&res, log, text, trigger, SourceLiteral, exclusions, regions.Protect)
		}

		r.resolveRegex(&res, log, text, rules, exclusions, regions.Protect)
	}

	res.Boxes = make([]geom.Rect, 0, len(res.Accepted)+len(res.Manual))
	for _, c := range res.Accepted {
		res.Boxes = append(res.Boxes, c.BBox)
	}
	res.Boxes = append(res.Boxes, res.Manual...)

	r.count(func(m *metrics.Metrics) { m.PagesResolved.Inc() })
	return res
}

func (r *Resolver) resolveRegex(res *PageResult, log zerolog.Logger, text PageText, rules patterns.Rules, exclusions []string, protect []geom.Rect) {
	compiled, errs := rules.CompileRegex()
	for _, err := range errs {
		log.Warn().Err(err).Msg("skipping regex pattern")
		res.Warnings = append(res.Warnings, err.Error())
	}
	if len(compiled) == 0 {
		return
	}

	content, err := text.Text()
	if err != nil {
		log.Warn().Err(err).Msg("page text unavailable, regex patterns skipped")
		res.Warnings = append(res.Warnings, fmt.Sprintf("page text unavailable: %v", err))
		return
	}

	for _, re := range compiled {
		seen := make(map[string]bool)
		for _, match := range re.FindAllString(content, -1) {
			match = strings.TrimSpace(match)
			if match == "" || seen[match] {
				continue
			}
			seen[match] = true
			r.count(func(m *metrics.Metrics) { m.TriggersEvaluated.Inc() })
			r.evaluate(res, log, text, match, SourceRegex, exclusions, protect)
		}
	}
}

func (r *Resolver) evaluate(res *PageResult, log zerolog.Logger, text PageText, trigger string, source TriggerSource, exclusions []string, protect []geom.Rect) {
	occurrences, err := text.Search(trigger)
	if err != nil {
		log.Warn().Err(err).Str("trigger", trigger).Msg("search failed, trigger skipped")
		res.Warnings = append(res.Warnings, fmt.Sprintf("search %q: %v", trigger, err))
		r.count(func(m *metrics.Metrics) { m.SearchFailures.Inc() })
		return
	}

	for _, box := range occurrences {
		c := Candidate{Trigger: trigger, Source: source, BBox: box}

		if r.protected(box, protect) {
			c.Reason = metrics.ReasonProtected
			res.Suppressed = append(res.Suppressed, c)
			r.count(func(m *metrics.Metrics) { m.OccurrencesSuppressed.WithLabelValues(metrics.ReasonProtected).Inc() })
			continue
		}

		if len(exclusions) > 0 {
			widened := box.WidenX(r.opts.ContextMargin, text.Bounds())
			context, err := text.TextIn(widened)
			if err != nil {
				// Redact when the surroundings cannot be read.
				log.Warn().Err(err).Str("trigger", trigger).Stringer("bbox", box).Msg("context lookup failed, redacting")
				c.ContextError = err.Error()
				r.count(func(m *metrics.Metrics) { m.ContextLookupFailures.Inc() })
			} else {
				c.Context = context
				if _, ok := containsAny(strings.ToLower(context), exclusions); ok {
					c.Reason = metrics.ReasonContextExcluded
					res.Suppressed = append(res.Suppressed, c)
					r.count(func(m *metrics.Metrics) {
						m.OccurrencesSuppressed.WithLabelValues(metrics.ReasonContextExcluded).Inc()
					})
					continue
				}
			}
		}

		res.Accepted = append(res.Accepted, c)
		r.count(func(m *metrics.Metrics) { m.OccurrencesAccepted.Inc() })
	}
}

func (r *Resolver) protected(box geom.Rect, protect []geom.Rect) bool {
	for _, p := range protect {
		switch r.opts.Protection {
		case ProtectIntersect:
			if p.Intersects(box) {
				return true
			}
		default:
			if p.Contains(box) {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) count(fn func(m *metrics.Metrics)) {
	if r.metrics != nil {
		fn(r.metrics)
	}
}

func containsAny(s string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return n, true
		}
	}
	return "", false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cloneRects(in []geom.Rect) []geom.Rect {
	out := make([]geom.Rect, len(in))
	copy(out, in)
	return out
}
