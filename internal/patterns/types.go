// Package patterns holds the redaction triggers (keywords and passages), the
// exclusions that suppress them, the preset catalogue and the process-wide
// manager that owns the current configuration.
package patterns

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// PatternSet holds the strings that trigger redaction. Passages are never
// matched as a block: every non-blank line is a trigger of its own.
type PatternSet struct {
	Keywords []string `json:"keywords"`
	Passages []string `json:"passages"`
}

// Triggers flattens the set into trigger strings: keywords first, then the
// non-blank lines of every passage, in order. Duplicates are kept.
func (p PatternSet) Triggers() []string {
	return flatten(p.Keywords, p.Passages)
}

// Clone returns a deep copy.
func (p PatternSet) Clone() PatternSet {
	return PatternSet{
		Keywords: cloneStrings(p.Keywords),
		Passages: cloneStrings(p.Passages),
	}
}

// IsEmpty reports whether the set has no triggers.
func (p PatternSet) IsEmpty() bool {
	return len(p.Triggers()) == 0
}

// ExclusionSet holds strings that suppress pattern matches occurring in the
// same textual neighbourhood. Exclusions never add redactions.
type ExclusionSet struct {
	Keywords []string `json:"keywords"`
	Passages []string `json:"passages"`
}

// Strings flattens the set the same way PatternSet.Triggers does.
func (e ExclusionSet) Strings() []string {
	return flatten(e.Keywords, e.Passages)
}

// Clone returns a deep copy.
func (e ExclusionSet) Clone() ExclusionSet {
	return ExclusionSet{
		Keywords: cloneStrings(e.Keywords),
		Passages: cloneStrings(e.Passages),
	}
}

// UnmarshalJSON accepts either a flat list of strings or an object with
// keywords and passages.
func (e *ExclusionSet) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("exclusions: %w", err)
		}
		*e = ExclusionSet{Keywords: list}
		return nil
	}

	type plain ExclusionSet
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("exclusions: %w", err)
	}
	*e = ExclusionSet(obj)
	return nil
}

// Rules is an immutable view of the configuration handed to the resolution
// engine on every call.
type Rules struct {
	Patterns   PatternSet   `json:"patterns"`
	Exclusions ExclusionSet `json:"exclusions"`
	Regex      []string     `json:"regex_patterns,omitempty"`
	Preset     string       `json:"preset,omitempty"`
}

// Triggers returns the flattened literal trigger strings.
func (r Rules) Triggers() []string {
	return r.Patterns.Triggers()
}

// ExclusionStrings returns the flattened exclusion strings.
func (r Rules) ExclusionStrings() []string {
	return r.Exclusions.Strings()
}

// Clone returns a deep copy.
func (r Rules) Clone() Rules {
	return Rules{
		Patterns:   r.Patterns.Clone(),
		Exclusions: r.Exclusions.Clone(),
		Regex:      cloneStrings(r.Regex),
		Preset:     r.Preset,
	}
}

// CompileRegex compiles the regex patterns case-insensitively. Patterns that
// fail to compile are reported and skipped.
func (r Rules) CompileRegex() ([]*regexp.Regexp, []error) {
	var (
		compiled []*regexp.Regexp
		errs     []error
	)
	for _, expr := range r.Regex {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid regex pattern %q: %w", expr, err))
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled, errs
}

// PassageLines splits a passage into its non-blank, trimmed lines.
func PassageLines(passage string) []string {
	var lines []string
	for _, line := range strings.Split(passage, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func flatten(keywords, passages []string) []string {
	out := make([]string, 0, len(keywords)+len(passages))
	for _, kw := range keywords {
		if strings.TrimSpace(kw) != "" {
			out = append(out, kw)
		}
	}
	for _, passage := range passages {
		out = append(out, PassageLines(passage)...)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
