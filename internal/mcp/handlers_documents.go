package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-redactor/internal/service"
)

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	limit, err := integer(args, "limit", 0)
	if err != nil {
		return errorResult(err), nil
	}
	query := optionalString(args, "query")

	files, err := s.service.ListDocuments(query, limit)
	if err != nil {
		return errorResult(err), nil
	}

	if len(files) == 0 {
		text := fmt.Sprintf("No PDF files found in directory: %s", s.config.PDFDirectory)
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}

	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", len(files), s.config.PDFDirectory)
	if query != "" {
		text += fmt.Sprintf("Search query: %s\n", query)
	}
	text += "\nFiles:\n"
	for i, f := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, f.Name)
		text += fmt.Sprintf("   Path: %s\n", f.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", f.Size)
		text += fmt.Sprintf("   Modified: %s\n", f.Modified.Format("2006-01-02 15:04:05"))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleOpenDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return errorResult(err), nil
	}

	info, err := s.service.OpenDocument(path)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(formatDocumentInfo(info)), nil
}

func (s *Server) handleCloseDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}
	if err := s.service.CloseDocument(id); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Closed session %s; regions autosaved", id)), nil
}

func (s *Server) handleAddRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := regionRequest(request, false)
	if err != nil {
		return errorResult(err), nil
	}

	region, err := s.service.AddRegion(req)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added %s region #%d on page %d: %s",
		region.Kind, region.Index, region.Page, region.BBox)), nil
}

func (s *Server) handleUpdateRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := regionRequest(request, true)
	if err != nil {
		return errorResult(err), nil
	}

	ok, err := s.service.UpdateRegion(req)
	if err != nil {
		return errorResult(err), nil
	}
	if !ok {
		return mcp.NewToolResultText(noRegion(req)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated %s region #%d on page %d: %s",
		req.Kind, req.Index, req.Page, req.BBox.Normalize())), nil
}

func (s *Server) handleRemoveRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}
	args := request.GetArguments()
	req := service.RegionRequest{SessionID: id}
	if req.Page, err = requireInteger(args, "page"); err != nil {
		return errorResult(err), nil
	}
	if req.Index, err = requireInteger(args, "index"); err != nil {
		return errorResult(err), nil
	}
	if req.Kind, err = kindArg(args); err != nil {
		return errorResult(err), nil
	}

	ok, err := s.service.RemoveRegion(req)
	if err != nil {
		return errorResult(err), nil
	}
	if !ok {
		return mcp.NewToolResultText(noRegion(req)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %s region #%d on page %d", req.Kind, req.Index, req.Page)), nil
}

// regionRequest reads session, page, kind, box and, for updates, index
func regionRequest(request mcp.CallToolRequest, withIndex bool) (service.RegionRequest, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return service.RegionRequest{}, err
	}
	args := request.GetArguments()

	req := service.RegionRequest{SessionID: id}
	if req.Page, err = requireInteger(args, "page"); err != nil {
		return req, err
	}
	if withIndex {
		if req.Index, err = requireInteger(args, "index"); err != nil {
			return req, err
		}
	}
	if req.Kind, err = kindArg(args); err != nil {
		return req, err
	}
	if req.BBox, err = boxArg(args); err != nil {
		return req, err
	}
	return req, nil
}

func noRegion(req service.RegionRequest) string {
	return fmt.Sprintf("No %s region #%d on page %d; nothing changed", req.Kind, req.Index, req.Page)
}

func (s *Server) handleClearRegions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}
	page, err := integer(request.GetArguments(), "page", -1)
	if err != nil {
		return errorResult(err), nil
	}

	ok, err := s.service.ClearRegions(id, page)
	if err != nil {
		return errorResult(err), nil
	}

	scope := "the document"
	if page >= 0 {
		scope = fmt.Sprintf("page %d", page)
	}
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("No regions on %s", scope)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared all regions on %s", scope)), nil
}

func (s *Server) handleListRegions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}
	page, err := integer(request.GetArguments(), "page", -1)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.service.ListRegions(id, page)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(formatRegions(result)), nil
}

func (s *Server) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}
	ok, err := s.service.Undo(id)
	if err != nil {
		return errorResult(err), nil
	}
	if !ok {
		return mcp.NewToolResultText("Nothing to undo"), nil
	}
	return mcp.NewToolResultText("Undid the last region change"), nil
}

func (s *Server) handleRedo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}
	ok, err := s.service.Redo(id)
	if err != nil {
		return errorResult(err), nil
	}
	if !ok {
		return mcp.NewToolResultText("Nothing to redo"), nil
	}
	return mcp.NewToolResultText("Redid the last undone region change"), nil
}

func (s *Server) handleSaveRegions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}
	path, err := s.service.SaveRegions(id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Regions saved to %s", path)), nil
}

func (s *Server) handleResolvePage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}
	page, err := requireInteger(request.GetArguments(), "page")
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.service.ResolvePage(id, page)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(formatPageResult(result)), nil
}

func (s *Server) handleExportPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.service.ExportPlan(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(formatPlan(result)), nil
}
