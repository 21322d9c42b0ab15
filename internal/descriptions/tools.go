package descriptions

import "sort"

// Tool names
const (
	ToolListDocuments = "redact_list_documents"
	ToolOpenDocument  = "redact_open_document"
	ToolCloseDocument = "redact_close_document"
	ToolAddRegion     = "redact_add_region"
	ToolUpdateRegion  = "redact_update_region"
	ToolRemoveRegion  = "redact_remove_region"
	ToolClearRegions  = "redact_clear_regions"
	ToolListRegions   = "redact_list_regions"
	ToolUndo          = "redact_undo"
	ToolRedo          = "redact_redo"
	ToolSaveRegions   = "redact_save_regions"
	ToolResolvePage   = "redact_resolve_page"
	ToolExportPlan    = "redact_export_plan"
	ToolGetRules      = "redact_get_rules"
	ToolAddPattern    = "redact_add_pattern"
	ToolAddExclusion  = "redact_add_exclusion"
	ToolApplyPreset   = "redact_apply_preset"
	ToolListPresets   = "redact_list_presets"
	ToolSavePreset    = "redact_save_preset"
	ToolDeletePreset  = "redact_delete_preset"
	ToolSaveRules     = "redact_save_rules"
	ToolExportRules   = "redact_export_rules"
	ToolImportRules   = "redact_import_rules"
	ToolUndoRules     = "redact_undo_rules"
	ToolRedoRules     = "redact_redo_rules"
	ToolServerInfo    = "redact_server_info"
)

// Detailed descriptions of the workflow tools, with practical examples

const (
	OpenDocumentDescription = `Open a PDF from the configured directory and start a redaction session.

**When to use:** Before drawing regions, previewing or exporting anything for a document.

**Why it's useful:** Returns a session id used by every other document tool and restores the regions saved for this document the last time it was edited (the autosave file wins over older snapshots).

**Examples:**
• Start work on a letter: "Open letters/Letter 005.pdf"
• Resume an interrupted session: opening the same file again returns the regions drawn before

**Common workflows:**
1. Review: open → resolve_page for each page → adjust regions and rules → export_plan
2. Batch: list_documents → open each → export_plan → close

**Best practices:** Paths may be relative to the configured directory. Close the session when done so the final autosave is written.`

	AddRegionDescription = `Draw a rectangle on a page.

**When to use:** To black out an area no text pattern catches (signatures, stamps, images), to protect an area from pattern matches, or to mark an area for preview only.

**Kinds:**
• redact: always burned in
• protect: pattern matches inside it are never burned in
• exclude: shown in previews only, never affects the result

**Examples:**
• Hide a signature: page 0, box [380, 650, 560, 720], kind redact
• Keep the letterhead: page 0, box [0, 0, 612, 90], kind protect

**Best practices:** Coordinates are PDF points with the origin at the top-left of the page. Boxes must be larger than the configured minimum on both sides. Every change can be undone.`

	ResolvePageDescription = `Preview exactly what would be redacted on one page, and why.

**When to use:** After changing rules or regions, to check the outcome before exporting.

**What you get:** accepted matches with their boxes, matches suppressed because they are protected or because an exclusion appears in their surrounding text, triggers dropped because they contain an exclusion themselves, drawn redact regions, exclude regions for display, and the final list of boxes.

**Examples:**
• "Why is Tom's name not hidden on page 2?" → resolve page 2 and read the suppressed list

**Best practices:** Resolution never changes regions or rules; call it as often as needed.`

	ExportPlanDescription = `Resolve every page and write the boxes to burn in as a JSON plan.

**When to use:** When the review is finished and the document is ready for burn-in by an external tool.

**Why it's useful:** The plan is written atomically next to the region snapshots as <document>_plan_<timestamp>.json, with per-page boxes, totals and any warnings.

**Common workflows:**
1. Final check: resolve_page on sensitive pages → export_plan → hand the plan to the burner

**Best practices:** Save rules first if they should survive a restart; the plan records the active preset name.`

	AddPatternDescription = `Add a redaction trigger shared by all documents.

**Types:**
• keyword: a literal string, matched case-insensitively
• passage: a multi-line block; every non-blank line becomes its own trigger

**Examples:**
• Add a name: value "Tom", type keyword
• Add an address block: value "12 Main Street\nSpringfield", type passage

**Best practices:** A trigger that itself contains an exclusion string is never searched. Rule changes are autosaved and can be undone with undo_rules; save rules to keep a timestamped copy.`

	AddExclusionDescription = `Add an exclusion shared by all documents.

**When to use:** A trigger also appears in phrases that must stay readable, e.g. the name "Tom" inside "Tom's party".

**How it works:** Each match is widened to the left and right by the configured margin; if the text found there contains an exclusion, that match is not redacted.

**Best practices:** Prefer short distinctive phrases. Use the passage type to add several lines at once.`

	ApplyPresetDescription = `Replace the current patterns with a preset's keywords and regex patterns.

**Built-in presets:** Personal Information, Financial Data, Medical Records, Legal Documents.

**Best practices:** Exclusions are kept. Use list_presets to see user presets saved earlier.`

	ServerInfoDescription = `Get server information, open sessions, configuration and the list of tools.

**When to use:** At the start of a conversation to learn the directory, limits and available tools.`
)

// shortDescriptions cover tools that need no extended help
var shortDescriptions = map[string]string{
	ToolListDocuments: "List PDF files in the configured directory, optionally filtered by a fuzzy name query",
	ToolCloseDocument: "Close a redaction session, writing a final autosave of its regions",
	ToolUpdateRegion:  "Replace the box of an existing region",
	ToolRemoveRegion:  "Remove a region by page, kind and index",
	ToolClearRegions:  "Remove all regions of one page, or of the whole document when no page is given",
	ToolListRegions:   "List the regions of one page or of the whole document, with undo/redo availability",
	ToolUndo:          "Undo the last region change of a session",
	ToolRedo:          "Redo the last undone region change of a session",
	ToolSaveRegions:   "Write a timestamped snapshot of a session's regions",
	ToolGetRules:      "Show the current patterns, exclusions, regex patterns and active preset",
	ToolListPresets:   "List built-in and user presets",
	ToolSavePreset:    "Save the current patterns and regex patterns as a user preset",
	ToolDeletePreset:  "Delete a user preset; built-in presets cannot be deleted",
	ToolSaveRules:     "Write timestamped snapshots of the current patterns and exclusions",
	ToolExportRules:   "Export patterns, exclusions and regex patterns as one JSON document",
	ToolImportRules:   "Import a patterns file, an exclusions file or an exported configuration",
	ToolUndoRules:     "Undo the last change to patterns, exclusions or regex patterns",
	ToolRedoRules:     "Redo the last undone change to patterns, exclusions or regex patterns",
}

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = func() map[string]string {
	m := map[string]string{
		ToolOpenDocument: OpenDocumentDescription,
		ToolAddRegion:    AddRegionDescription,
		ToolResolvePage:  ResolvePageDescription,
		ToolExportPlan:   ExportPlanDescription,
		ToolAddPattern:   AddPatternDescription,
		ToolAddExclusion: AddExclusionDescription,
		ToolApplyPreset:  ApplyPresetDescription,
		ToolServerInfo:   ServerInfoDescription,
	}
	for name, desc := range shortDescriptions {
		m[name] = desc
	}
	return m
}()

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all tool names, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
