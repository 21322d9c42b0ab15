package mcp

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-redactor/internal/descriptions"
	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/patterns"
	"github.com/a3tai/mcp-pdf-redactor/internal/redact"
	"github.com/a3tai/mcp-pdf-redactor/internal/service"
)

func formatDocumentInfo(info *service.DocumentInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", info.SessionID)
	fmt.Fprintf(&b, "Document: %s\n", info.Path)
	fmt.Fprintf(&b, "Pages: %d\n", info.Pages)
	fmt.Fprintf(&b, "Size: %d bytes\n", info.Size)
	if info.Encrypted {
		b.WriteString("Encrypted: yes\n")
	}
	fmt.Fprintf(&b, "Regions: %d\n", info.Regions)
	if info.DocumentID != info.Stem {
		fmt.Fprintf(&b, "Saved as: %s\n", info.DocumentID)
	}
	if info.LoadedFrom != "" {
		fmt.Fprintf(&b, "Regions loaded from: %s\n", info.LoadedFrom)
	}
	if info.LoadWarning != "" {
		fmt.Fprintf(&b, "Warning: %s\n", info.LoadWarning)
	}
	return b.String()
}

func formatRegions(result *service.RegionsResult) string {
	var b strings.Builder
	if len(result.Regions) == 0 {
		b.WriteString("No regions\n")
	} else {
		fmt.Fprintf(&b, "%d region(s):\n", len(result.Regions))
		for _, r := range result.Regions {
			fmt.Fprintf(&b, "- page %d %s #%d: %s\n", r.Page, r.Kind, r.Index, r.BBox)
		}
	}
	fmt.Fprintf(&b, "\nStatus: %s (undo: %t, redo: %t)\n", result.Status, result.CanUndo, result.CanRedo)
	return b.String()
}

func writeBoxes(b *strings.Builder, title string, boxes []geom.Rect) {
	if len(boxes) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(boxes))
	for _, box := range boxes {
		fmt.Fprintf(b, "  %s\n", box)
	}
}

func formatPageResult(res *redact.PageResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page %d: %d box(es) to redact\n", res.Page, len(res.Boxes))

	if len(res.Accepted) > 0 {
		fmt.Fprintf(&b, "Accepted matches (%d):\n", len(res.Accepted))
		for _, c := range res.Accepted {
			fmt.Fprintf(&b, "  %q [%s] %s\n", c.Trigger, c.Source, c.BBox)
		}
	}
	if len(res.Suppressed) > 0 {
		fmt.Fprintf(&b, "Suppressed matches (%d):\n", len(res.Suppressed))
		for _, c := range res.Suppressed {
			fmt.Fprintf(&b, "  %q [%s] %s: %s\n", c.Trigger, c.Source, c.BBox, c.Reason)
			if c.Context != "" {
				fmt.Fprintf(&b, "    context: %q\n", c.Context)
			}
		}
	}
	if len(res.SelfExcluded) > 0 {
		fmt.Fprintf(&b, "Self-excluded triggers: %s\n", strings.Join(res.SelfExcluded, ", "))
	}
	writeBoxes(&b, "Manual regions", res.Manual)
	writeBoxes(&b, "Exclude regions (preview only)", res.Exclude)
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	return b.String()
}

func formatPlan(result *service.PlanResult) string {
	p := result.Plan
	var b strings.Builder
	fmt.Fprintf(&b, "Redaction plan written to %s\n", result.Path)
	fmt.Fprintf(&b, "Document: %s (%d pages)\n", p.Document, p.Pages)
	if p.Preset != "" {
		fmt.Fprintf(&b, "Preset: %s\n", p.Preset)
	}
	fmt.Fprintf(&b, "Boxes: %d on %d page(s)\n", p.Summary.Boxes, len(p.Redactions))
	fmt.Fprintf(&b, "Accepted: %d, suppressed: %d, manual: %d\n", p.Summary.Accepted, p.Summary.Suppressed, p.Summary.Manual)
	for _, w := range p.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(items))
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func formatRules(r patterns.Rules) string {
	var b strings.Builder
	if r.Preset != "" {
		fmt.Fprintf(&b, "Preset: %s\n", r.Preset)
	}
	writeList(&b, "Keywords", r.Patterns.Keywords)
	writeList(&b, "Passages", r.Patterns.Passages)
	writeList(&b, "Regex patterns", r.Regex)
	writeList(&b, "Excluded keywords", r.Exclusions.Keywords)
	writeList(&b, "Excluded passages", r.Exclusions.Passages)
	return b.String()
}

func formatPresets(presets []patterns.Preset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d preset(s):\n", len(presets))
	for _, p := range presets {
		origin := "user"
		if p.BuiltIn {
			origin = "built-in"
		}
		fmt.Fprintf(&b, "- %s (%s): %d trigger(s), %d regex", p.Name, origin, len(p.Patterns.Triggers()), len(p.Regex))
		if p.Description != "" {
			fmt.Fprintf(&b, " - %s", p.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Server) formatServerInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server: %s %s\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&b, "PDF directory: %s\n", s.config.PDFDirectory)
	fmt.Fprintf(&b, "Data directory: %s\n", s.service.Snapshots().Dir())
	fmt.Fprintf(&b, "Context margin: %.1f pt\n", s.config.ContextMargin)
	fmt.Fprintf(&b, "Protection: %s\n", s.config.Protection)
	fmt.Fprintf(&b, "Minimum region size: %.1f pt\n", s.config.MinRegionSize)
	fmt.Fprintf(&b, "History depth: %d\n", s.config.HistoryDepth)
	fmt.Fprintf(&b, "Autosave interval: %s\n", s.config.AutosaveInterval)

	docs := s.service.Documents()
	fmt.Fprintf(&b, "\nOpen sessions (%d):\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s: %s (%d pages, %d regions)\n", d.SessionID, d.Path, d.Pages, d.Regions)
	}

	names := descriptions.GetAllToolNames()
	fmt.Fprintf(&b, "\nTools (%d):\n", len(names))
	for _, name := range names {
		desc := descriptions.GetToolDescription(name)
		if i := strings.IndexByte(desc, '\n'); i >= 0 {
			desc = desc[:i]
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, desc)
	}
	return b.String()
}
