package patterns

import (
	"sort"
	"time"
)

// Preset is a named bundle of triggers and regex patterns an operator can
// apply in one step.
type Preset struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Patterns    PatternSet `json:"patterns"`
	Regex       []string   `json:"regex_patterns"`
	Created     *time.Time `json:"created,omitempty"`
	BuiltIn     bool       `json:"-"`
}

// Clone returns a deep copy.
func (p Preset) Clone() Preset {
	out := p
	out.Patterns = p.Patterns.Clone()
	out.Regex = cloneStrings(p.Regex)
	if p.Created != nil {
		created := *p.Created
		out.Created = &created
	}
	return out
}

// Built-in preset names.
const (
	PresetPersonal  = "Personal Information"
	PresetFinancial = "Financial Data"
	PresetMedical   = "Medical Records"
	PresetLegal     = "Legal Documents"
)

// BuiltinPresets returns fresh copies of the presets that ship with the
// redactor. They cannot be deleted or overwritten.
func BuiltinPresets() map[string]Preset {
	builtins := []Preset{
		{
			Name:        PresetPersonal,
			Description: "Social security numbers, phone numbers, email addresses and ZIP codes",
			Patterns:    PatternSet{Keywords: []string{}, Passages: []string{}},
			Regex: []string{
				`\b\d{3}-\d{2}-\d{4}\b`,
				`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`,
				`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`,
				`\b\d{5}(?:-\d{4})?\b`,
			},
		},
		{
			Name:        PresetFinancial,
			Description: "Card numbers, account numbers and currency amounts",
			Patterns: PatternSet{
				Keywords: []string{"account", "balance", "credit card", "bank"},
				Passages: []string{},
			},
			Regex: []string{
				`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`,
				`\$[\d,]+\.?\d*`,
				`\b\d{8,17}\b`,
			},
		},
		{
			Name:        PresetMedical,
			Description: "Medical record numbers, dates of birth and clinical terms",
			Patterns: PatternSet{
				Keywords: []string{"patient", "diagnosis", "treatment", "medication"},
				Passages: []string{},
			},
			Regex: []string{
				`MRN[\s:]*\d+`,
				`DOB[\s:]*\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`,
			},
		},
		{
			Name:        PresetLegal,
			Description: "Case numbers, party names and privilege markers",
			Patterns: PatternSet{
				Keywords: []string{"confidential", "attorney-client", "privileged"},
				Passages: []string{},
			},
			Regex: []string{
				`Case\s*No\.?\s*:?\s*\d+`,
				`\b(?:Plaintiff|Defendant|Witness)\s*:?\s*[A-Z][a-z]+\s+[A-Z][a-z]+`,
			},
		},
	}

	out := make(map[string]Preset, len(builtins))
	for _, p := range builtins {
		p.BuiltIn = true
		out[p.Name] = p
	}
	return out
}

// IsBuiltin reports whether name is one of the shipped presets.
func IsBuiltin(name string) bool {
	_, ok := BuiltinPresets()[name]
	return ok
}

func sortedPresets(presets map[string]Preset) []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BuiltIn != out[j].BuiltIn {
			return out[i].BuiltIn
		}
		return out[i].Name < out[j].Name
	})
	return out
}
