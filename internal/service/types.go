package service

import (
	"time"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/redact"
	"github.com/a3tai/mcp-pdf-redactor/internal/regions"
)

// PlanPurpose names plan artifacts in the snapshot directory.
const PlanPurpose = "plan"

// DocumentInfo describes an open session
type DocumentInfo struct {
	SessionID   string    `json:"session_id"`
	Path        string    `json:"path"`
	Stem        string    `json:"stem"`
	DocumentID  string    `json:"document_id"`
	Pages       int       `json:"pages"`
	Size        int64     `json:"size"`
	Encrypted   bool      `json:"encrypted"`
	Regions     int       `json:"regions"`
	LoadedFrom  string    `json:"loaded_from,omitempty"`
	LoadWarning string    `json:"load_warning,omitempty"`
	Opened      time.Time `json:"opened"`
}

// RegionRequest addresses a region, or the place for a new one
type RegionRequest struct {
	SessionID string       `json:"session_id"`
	Page      int          `json:"page"`
	Index     int          `json:"index"`
	BBox      geom.Rect    `json:"bbox"`
	Kind      regions.Kind `json:"kind"`
}

// RegionsResult lists regions of one page or of the whole document
type RegionsResult struct {
	SessionID string           `json:"session_id"`
	Regions   []regions.Region `json:"regions"`
	CanUndo   bool             `json:"can_undo"`
	CanRedo   bool             `json:"can_redo"`
	Status    string           `json:"status"`
}

// PlanPage is the set of boxes to burn on one page
type PlanPage struct {
	Page  int         `json:"page"`
	Boxes []geom.Rect `json:"boxes"`
}

// Plan is the resolved redaction of a whole document, written for an
// external burner.
type Plan struct {
	Document      string         `json:"document"`
	Pages         int            `json:"pages"`
	Created       time.Time      `json:"created"`
	ContextMargin float64        `json:"context_margin"`
	Protection    string         `json:"protection"`
	Preset        string         `json:"preset,omitempty"`
	Summary       redact.Summary `json:"summary"`
	Redactions    []PlanPage     `json:"redactions"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// PlanResult is a written plan
type PlanResult struct {
	Path string `json:"path"`
	Plan Plan   `json:"plan"`
}
