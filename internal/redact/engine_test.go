package redact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/metrics"
	"github.com/a3tai/mcp-pdf-redactor/internal/patterns"
)

// fakePage lays text out on one line with fixed-width characters.
type fakePage struct {
	text       string
	charWidth  float64
	searchErr  map[string]error
	textInErr  error
	textErr    error
	textInCall int
}

const lineTop, lineBottom = 100.0, 112.0

func newFakePage(text string) *fakePage {
	return &fakePage{text: text, charWidth: 2}
}

func (p *fakePage) charRect(i int) geom.Rect {
	return geom.Rect{X0: float64(i) * p.charWidth, Y0: lineTop, X1: float64(i+1) * p.charWidth, Y1: lineBottom}
}

func (p *fakePage) Search(needle string) ([]geom.Rect, error) {
	if err := p.searchErr[needle]; err != nil {
		return nil, err
	}
	if needle == "" {
		return nil, nil
	}
	hay := []rune(strings.ToLower(p.text))
	n := []rune(strings.ToLower(needle))
	var out []geom.Rect
	for i := 0; i+len(n) <= len(hay); {
		if string(hay[i:i+len(n)]) == string(n) {
			out = append(out, p.charRect(i).Union(p.charRect(i+len(n)-1)))
			i += len(n)
			continue
		}
		i++
	}
	return out, nil
}

func (p *fakePage) TextIn(rect geom.Rect) (string, error) {
	p.textInCall++
	if p.textInErr != nil {
		return "", p.textInErr
	}
	var b strings.Builder
	for i, r := range []rune(p.text) {
		if rect.ContainsPoint(p.charRect(i).Center()) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func (p *fakePage) Text() (string, error) {
	if p.textErr != nil {
		return "", p.textErr
	}
	return p.text, nil
}

func (p *fakePage) Bounds() geom.Rect {
	return geom.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}
}

func rules(keywords, exclusions []string) patterns.Rules {
	return patterns.Rules{
		Patterns:   patterns.PatternSet{Keywords: keywords},
		Exclusions: patterns.ExclusionSet{Keywords: exclusions},
	}
}

func TestResolvePage_ContextExclusion(t *testing.T) {
	page := newFakePage("Tom went to Tom's party.")
	r := NewResolver(DefaultOptions())

	res := r.ResolvePage(0, page, rules([]string{"Tom"}, []string{"Tom's party"}), PageRegions{})

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, page.charRect(0).Union(page.charRect(2)), res.Accepted[0].BBox)
	assert.NotContains(t, strings.ToLower(res.Accepted[0].Context), "tom's party")

	require.Len(t, res.Suppressed, 1)
	assert.Equal(t, metrics.ReasonContextExcluded, res.Suppressed[0].Reason)
	assert.Contains(t, res.Suppressed[0].Context, "Tom's party")

	assert.Equal(t, []geom.Rect{res.Accepted[0].BBox}, res.Boxes)
}

func TestResolvePage_SelfExclusion(t *testing.T) {
	page := newFakePage("Tom went to Tom's party.")
	mt := metrics.New()
	r := NewResolver(DefaultOptions(), WithMetrics(mt))

	res := r.ResolvePage(0, page, rules([]string{"Tom's PARTY", "went"}, []string{"party"}), PageRegions{})

	assert.Equal(t, []string{"Tom's PARTY"}, res.SelfExcluded)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "went", res.Accepted[0].Trigger)
	assert.Equal(t, float64(1), testutil.ToFloat64(mt.OccurrencesSuppressed.WithLabelValues(metrics.ReasonSelfExcluded)))
	assert.Equal(t, float64(2), testutil.ToFloat64(mt.TriggersEvaluated))
}

func TestResolvePage_Protection(t *testing.T) {
	page := newFakePage("Tom went home")
	tom := page.charRect(0).Union(page.charRect(2))

	full := geom.Rect{X0: tom.X0 - 1, Y0: tom.Y0 - 1, X1: tom.X1 + 1, Y1: tom.Y1 + 1}
	partial := geom.Rect{X0: tom.X0 + 1, Y0: tom.Y0, X1: tom.X1 + 10, Y1: tom.Y1}

	tests := []struct {
		name       string
		protection Protection
		protect    geom.Rect
		redacted   bool
	}{
		{name: "contained", protection: ProtectContain, protect: full, redacted: false},
		{name: "partial is not protected", protection: ProtectContain, protect: partial, redacted: true},
		{name: "exact edges count as contained", protection: ProtectContain, protect: tom, redacted: false},
		{name: "intersect mode", protection: ProtectIntersect, protect: partial, redacted: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(Options{ContextMargin: 20, Protection: tt.protection})
			res := r.ResolvePage(0, page, rules([]string{"tom"}, nil), PageRegions{Protect: []geom.Rect{tt.protect}})

			if tt.redacted {
				assert.Len(t, res.Accepted, 1)
				assert.Empty(t, res.Suppressed)
			} else {
				assert.Empty(t, res.Accepted)
				require.Len(t, res.Suppressed, 1)
				assert.Equal(t, metrics.ReasonProtected, res.Suppressed[0].Reason)
			}
		})
	}
}

func TestResolvePage_ContextFailureRedacts(t *testing.T) {
	page := newFakePage("Tom went to Tom's party.")
	page.textInErr = errors.New("broken content stream")
	mt := metrics.New()
	r := NewResolver(DefaultOptions(), WithMetrics(mt))

	res := r.ResolvePage(0, page, rules([]string{"Tom"}, []string{"Tom's party"}), PageRegions{})

	require.Len(t, res.Accepted, 2, "both occurrences are redacted when context is unreadable")
	assert.Equal(t, "broken content stream", res.Accepted[0].ContextError)
	assert.Equal(t, float64(2), testutil.ToFloat64(mt.ContextLookupFailures))
}

func TestResolvePage_NoExclusionsSkipsContext(t *testing.T) {
	page := newFakePage("Tom went to Tom's party.")
	r := NewResolver(DefaultOptions())

	res := r.ResolvePage(0, page, rules([]string{"Tom"}, nil), PageRegions{})
	assert.Len(t, res.Accepted, 2)
	assert.Zero(t, page.textInCall)
}

func TestResolvePage_SearchFailureSkipsTrigger(t *testing.T) {
	page := newFakePage("Tom went to Tom's party.")
	page.searchErr = map[string]error{"Tom": errors.New("search failed")}
	r := NewResolver(DefaultOptions())

	res := r.ResolvePage(0, page, rules([]string{"Tom", "party"}, nil), PageRegions{})
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "party", res.Accepted[0].Trigger)
	assert.Len(t, res.Warnings, 1)
}

func TestResolvePage_ManualRegionsUnconditional(t *testing.T) {
	page := newFakePage("Tom went to Tom's party.")
	manual := geom.NewRect(0, 100, 50, 112)
	regions := PageRegions{
		Redact:  []geom.Rect{manual},
		Protect: []geom.Rect{geom.NewRect(0, 0, 612, 792)},
		Exclude: []geom.Rect{geom.NewRect(10, 10, 20, 20)},
	}
	r := NewResolver(DefaultOptions())

	res := r.ResolvePage(0, page, rules([]string{"Tom"}, []string{"went"}), regions)

	assert.Empty(t, res.Accepted)
	assert.Equal(t, []geom.Rect{manual}, res.Boxes)
	assert.Equal(t, regions.Exclude, res.Exclude, "exclude regions are reported for preview only")
}

func TestResolvePage_ExcludeRegionsDoNotSuppress(t *testing.T) {
	page := newFakePage("Tom went home")
	tom := page.charRect(0).Union(page.charRect(2))
	r := NewResolver(DefaultOptions())

	res := r.ResolvePage(0, page, rules([]string{"Tom"}, nil), PageRegions{Exclude: []geom.Rect{tom}})
	assert.Equal(t, []geom.Rect{tom}, res.Boxes)
}

func TestResolvePage_DuplicateTriggers(t *testing.T) {
	page := newFakePage("Tom went home")
	r := NewResolver(DefaultOptions())

	res := r.ResolvePage(0, page, patterns.Rules{
		Patterns: patterns.PatternSet{Keywords: []string{"Tom", ""}, Passages: []string{"tom\n\n"}},
	}, PageRegions{})

	require.Len(t, res.Boxes, 2)
	assert.Equal(t, res.Boxes[0], res.Boxes[1])
}

func TestResolvePage_Regex(t *testing.T) {
	page := newFakePage("Call 555-123-4567 or write to jane@example.org. ref 555-123-4567")
	presets := patterns.BuiltinPresets()
	rl := patterns.Rules{Regex: presets[patterns.PresetPersonal].Regex}
	r := NewResolver(DefaultOptions())

	res := r.ResolvePage(0, page, rl, PageRegions{})

	var triggers []string
	for _, c := range res.Accepted {
		assert.Equal(t, SourceRegex, c.Source)
		triggers = append(triggers, c.Trigger)
	}
	// The repeated phone number is searched once and found twice.
	assert.Equal(t, []string{"555-123-4567", "555-123-4567", "jane@example.org"}, triggers)
}

func TestResolvePage_RegexHonoursContextExclusions(t *testing.T) {
	page := newFakePage("MRN: 4471 for test patient")
	rl := patterns.Rules{
		Regex:      []string{`MRN[\s:]*\d+`},
		Exclusions: patterns.ExclusionSet{Keywords: []string{"test patient"}},
	}
	r := NewResolver(Options{ContextMargin: 40})

	res := r.ResolvePage(0, page, rl, PageRegions{})
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Suppressed, 1)
	assert.Equal(t, metrics.ReasonContextExcluded, res.Suppressed[0].Reason)
}

func TestResolvePage_InvalidRegexAndMissingText(t *testing.T) {
	page := newFakePage("MRN 12")
	page.textErr = errors.New("no text layer")
	r := NewResolver(DefaultOptions())

	res := r.ResolvePage(0, page, patterns.Rules{Regex: []string{`(`, `MRN \d+`}}, PageRegions{})
	assert.Empty(t, res.Accepted)
	assert.Len(t, res.Warnings, 2)
}

func TestResolvePage_Idempotent(t *testing.T) {
	words := []string{"Tom", "party", "went", "to", "home", "Tom's party", "x"}
	rapid.Check(t, func(rt *rapid.T) {
		text := strings.Join(rapid.SliceOfN(rapid.SampledFrom(words), 1, 12).Draw(rt, "words"), " ")
		keywords := rapid.SliceOfN(rapid.SampledFrom(words), 0, 4).Draw(rt, "keywords")
		exclusions := rapid.SliceOfN(rapid.SampledFrom(words), 0, 2).Draw(rt, "exclusions")

		page := newFakePage(text)
		rl := rules(keywords, exclusions)
		regions := PageRegions{Protect: []geom.Rect{geom.NewRect(0, 100, 20, 112)}}
		r := NewResolver(DefaultOptions())

		first := r.ResolvePage(0, page, rl, regions)
		second := r.ResolvePage(0, page, rl, regions)
		assert.Equal(rt, first, second)
	})
}

func TestResolvePage_SelfExcludedNeverRedacts(t *testing.T) {
	words := []string{"alpha", "beta", "gamma", "alpha beta", "beta gamma"}
	rapid.Check(t, func(rt *rapid.T) {
		text := strings.Join(rapid.SliceOfN(rapid.SampledFrom(words), 1, 10).Draw(rt, "words"), " ")
		keywords := rapid.SliceOfN(rapid.SampledFrom(words), 1, 4).Draw(rt, "keywords")
		exclusion := rapid.SampledFrom(words).Draw(rt, "exclusion")

		res := NewResolver(DefaultOptions()).ResolvePage(0, newFakePage(text), rules(keywords, []string{exclusion}), PageRegions{})
		for _, c := range res.Accepted {
			if strings.Contains(strings.ToLower(c.Trigger), exclusion) {
				rt.Fatalf("trigger %q contains exclusion %q but was redacted", c.Trigger, exclusion)
			}
		}
	})
}

type fakeDoc struct {
	pages   []*fakePage
	failOn  map[int]error
	onPage  func(page int)
	visited []int
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) PageText(page int) (PageText, error) {
	d.visited = append(d.visited, page)
	if d.onPage != nil {
		d.onPage(page)
	}
	if err := d.failOn[page]; err != nil {
		return nil, err
	}
	return d.pages[page], nil
}

func TestResolveDocument(t *testing.T) {
	doc := &fakeDoc{
		pages:  []*fakePage{newFakePage("Tom"), newFakePage("unreadable"), newFakePage("no match")},
		failOn: map[int]error{1: errors.New("bad page")},
	}
	manual := geom.NewRect(1, 1, 30, 30)
	regionsFor := func(page int) PageRegions {
		if page == 1 {
			return PageRegions{Redact: []geom.Rect{manual}}
		}
		return PageRegions{}
	}

	results, err := NewResolver(DefaultOptions()).ResolveDocument(context.Background(), doc, rules([]string{"tom"}, nil), regionsFor)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Len(t, results[0].Boxes, 1)
	assert.Equal(t, []geom.Rect{manual}, results[1].Boxes)
	assert.NotEmpty(t, results[1].Warnings)
	assert.Empty(t, results[2].Boxes)

	summary := Summarize(results)
	assert.Equal(t, Summary{Pages: 3, Boxes: 2, Accepted: 1, Manual: 1}, summary)
}

func TestResolveDocument_CancelBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	doc := &fakeDoc{pages: []*fakePage{newFakePage("a"), newFakePage("b"), newFakePage("c")}}
	doc.onPage = func(page int) {
		if page == 0 {
			cancel()
		}
	}

	results, err := NewResolver(DefaultOptions()).ResolveDocument(ctx, doc, rules([]string{"a"}, nil), nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, results, 1, "the page in progress completes")
	assert.Equal(t, []int{0}, doc.visited)
}

type recordingBurner struct {
	pages []int
	err   error
}

func (b *recordingBurner) ApplyRedactions(page int, boxes []geom.Rect) error {
	if b.err != nil {
		return b.err
	}
	b.pages = append(b.pages, page)
	return nil
}

func TestBurn(t *testing.T) {
	results := []PageResult{
		{Page: 0, Boxes: []geom.Rect{geom.NewRect(0, 0, 1, 1)}},
		{Page: 1},
		{Page: 2, Boxes: []geom.Rect{geom.NewRect(0, 0, 1, 1)}},
	}

	b := &recordingBurner{}
	require.NoError(t, Burn(context.Background(), b, results))
	assert.Equal(t, []int{0, 2}, b.pages)

	failing := &recordingBurner{err: errors.New("disk full")}
	err := Burn(context.Background(), failing, results)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 0")
}

func TestParseProtection(t *testing.T) {
	p, err := ParseProtection("intersect")
	require.NoError(t, err)
	assert.Equal(t, ProtectIntersect, p)
	assert.Equal(t, "intersect", p.String())

	p, err = ParseProtection("")
	require.NoError(t, err)
	assert.Equal(t, ProtectContain, p)

	_, err = ParseProtection("overlap")
	assert.Error(t, err)
}
