package pdf

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
)

// Glyph is a run of text with its box in document space: origin at the top
// left of the page, y growing downwards.
type Glyph struct {
	S   string
	Box geom.Rect
}

type placedRune struct {
	r   rune
	low rune
	box geom.Rect
}

type textLine struct {
	runes []placedRune
}

// TextLayout is the positioned text of one page. It answers literal searches
// and region text queries and is safe for concurrent reads.
type TextLayout struct {
	bounds geom.Rect
	lines  []textLine
}

// spaceGapRatio is the horizontal gap, relative to glyph height, above which
// a space is inferred between two glyphs on a line.
const spaceGapRatio = 0.15

// NewTextLayout groups glyphs into lines by vertical centre and orders each
// line left to right. Whitespace-only glyphs are kept as separators.
func NewTextLayout(bounds geom.Rect, glyphs []Glyph) *TextLayout {
	type item struct {
		g      Glyph
		cy     float64
		height float64
	}
	items := make([]item, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		g.Box = g.Box.Normalize()
		_, cy := g.Box.Center()
		items = append(items, item{g: g, cy: cy, height: g.Box.Height()})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].cy != items[j].cy {
			return items[i].cy < items[j].cy
		}
		return items[i].g.Box.X0 < items[j].g.Box.X0
	})

	var groups [][]item
	var lineCY, lineH float64
	for _, it := range items {
		if len(groups) > 0 && math.Abs(it.cy-lineCY) <= math.Max(lineH, it.height)/2 {
			groups[len(groups)-1] = append(groups[len(groups)-1], it)
			continue
		}
		groups = append(groups, []item{it})
		lineCY, lineH = it.cy, it.height
	}

	layout := &TextLayout{bounds: bounds}
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool { return group[i].g.Box.X0 < group[j].g.Box.X0 })

		var line textLine
		for _, it := range group {
			if n := len(line.runes); n > 0 {
				prev := line.runes[n-1]
				gap := it.g.Box.X0 - prev.box.X1
				if gap > spaceGapRatio*it.height && !unicode.IsSpace(prev.r) && !startsWithSpace(it.g.S) {
					line.runes = append(line.runes, placedRune{
						r:   ' ',
						low: ' ',
						box: geom.Rect{X0: prev.box.X1, Y0: it.g.Box.Y0, X1: it.g.Box.X0, Y1: it.g.Box.Y1},
					})
				}
			}
			line.runes = append(line.runes, splitGlyph(it.g)...)
		}
		layout.lines = append(layout.lines, line)
	}
	return layout
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

// splitGlyph divides a glyph's width evenly across its runes.
func splitGlyph(g Glyph) []placedRune {
	n := utf8.RuneCountInString(g.S)
	step := g.Box.Width() / float64(n)
	out := make([]placedRune, 0, n)
	i := 0
	for _, r := range g.S {
		x0 := g.Box.X0 + float64(i)*step
		out = append(out, placedRune{
			r:   r,
			low: unicode.ToLower(r),
			box: geom.Rect{X0: x0, Y0: g.Box.Y0, X1: x0 + step, Y1: g.Box.Y1},
		})
		i++
	}
	return out
}

// Bounds returns the page box.
func (l *TextLayout) Bounds() geom.Rect {
	return l.bounds
}

// Text returns the page text, one line per row.
func (l *TextLayout) Text() (string, error) {
	lines := make([]string, len(l.lines))
	for i, line := range l.lines {
		var b strings.Builder
		for _, pr := range line.runes {
			b.WriteRune(pr.r)
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n"), nil
}

// Search returns one box per case-insensitive, non-overlapping occurrence of
// needle. Occurrences do not span lines.
func (l *TextLayout) Search(needle string) ([]geom.Rect, error) {
	if strings.TrimSpace(needle) == "" {
		return nil, nil
	}
	want := make([]rune, 0, len(needle))
	for _, r := range needle {
		want = append(want, unicode.ToLower(r))
	}

	var out []geom.Rect
	for _, line := range l.lines {
		for i := 0; i+len(want) <= len(line.runes); {
			if matchAt(line.runes, i, want) {
				box := line.runes[i].box
				for _, pr := range line.runes[i+1 : i+len(want)] {
					box = box.Union(pr.box)
				}
				out = append(out, box)
				i += len(want)
				continue
			}
			i++
		}
	}
	return out, nil
}

func matchAt(runes []placedRune, at int, want []rune) bool {
	for j, r := range want {
		if runes[at+j].low != r {
			return false
		}
	}
	return true
}

// TextIn returns the characters whose centre lies inside rect, with a
// newline between lines. A rectangle outside the page yields "".
func (l *TextLayout) TextIn(rect geom.Rect) (string, error) {
	rect = rect.Normalize()
	var lines []string
	for _, line := range l.lines {
		var b strings.Builder
		for _, pr := range line.runes {
			if rect.ContainsPoint(pr.box.Center()) {
				b.WriteRune(pr.r)
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Lines returns the number of text lines on the page.
func (l *TextLayout) Lines() int {
	return len(l.lines)
}
