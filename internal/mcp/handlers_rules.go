package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) handleGetRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatRules(s.service.Rules().Current())), nil
}

// addRule dispatches value to the keyword or passage adder
func addRule(request mcp.CallToolRequest, what string, keyword, passage func(string) bool) (*mcp.CallToolResult, error) {
	value, err := request.RequireString("value")
	if err != nil {
		return errorResult(err), nil
	}

	kind := strings.ToLower(optionalString(request.GetArguments(), "type"))
	var added bool
	switch kind {
	case "", "keyword":
		kind = "keyword"
		added = keyword(value)
	case "passage":
		added = passage(value)
	default:
		return errorResult(fmt.Errorf("unknown %s type %q (must be keyword or passage)", what, kind)), nil
	}

	if !added {
		return errorResult(fmt.Errorf("%s cannot be empty", what)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added %s %s: %s", what, kind, strings.TrimSpace(value))), nil
}

func (s *Server) handleAddPattern(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := s.service.Rules()
	return addRule(request, "pattern", rules.AddKeyword, rules.AddPassage)
}

func (s *Server) handleAddExclusion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := s.service.Rules()
	return addRule(request, "exclusion", rules.AddExclusion, rules.AddExcludedPassage)
}

func (s *Server) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatPresets(s.service.Rules().Presets())), nil
}

func (s *Server) handleApplyPreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err), nil
	}

	rules, err := s.service.Rules().ApplyPreset(name)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Applied preset %q\n\n%s", name, formatRules(rules))), nil
}

func (s *Server) handleSavePreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err), nil
	}
	description := optionalString(request.GetArguments(), "description")

	preset, err := s.service.Rules().SaveAsPreset(name, description)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved preset %q with %d trigger(s) and %d regex pattern(s)",
		preset.Name, len(preset.Patterns.Triggers()), len(preset.Regex))), nil
}

func (s *Server) handleDeletePreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err), nil
	}
	if err := s.service.Rules().DeletePreset(name); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted preset %q", name)), nil
}

func (s *Server) handleSaveRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patternsPath, exclusionsPath, err := s.service.Rules().Save()
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Patterns saved to %s\nExclusions saved to %s", patternsPath, exclusionsPath)), nil
}

func (s *Server) handleUndoRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.service.Rules().Undo() {
		return mcp.NewToolResultText("Nothing to undo"), nil
	}
	return mcp.NewToolResultText("Undid the last rules change\n\n" + formatRules(s.service.Rules().Current())), nil
}

func (s *Server) handleRedoRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.service.Rules().Redo() {
		return mcp.NewToolResultText("Nothing to redo"), nil
	}
	return mcp.NewToolResultText("Redid the last undone rules change\n\n" + formatRules(s.service.Rules().Current())), nil
}

func (s *Server) handleExportRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.service.Rules().Export(), "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("failed to encode rules: %w", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleImportRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := request.RequireString("data")
	if err != nil {
		return errorResult(err), nil
	}

	kind, err := s.service.Rules().Import([]byte(data))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Imported %s configuration\n\n%s", kind, formatRules(s.service.Rules().Current()))), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}
