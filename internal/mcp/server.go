package mcp

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-redactor/internal/config"
	"github.com/a3tai/mcp-pdf-redactor/internal/descriptions"
	"github.com/a3tai/mcp-pdf-redactor/internal/service"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *service.Service
	mcpServer *server.MCPServer
	log       zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool list never changes at runtime
	)

	s := &Server{
		config:    cfg,
		service:   svc,
		mcpServer: mcpServer,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()

	return s, nil
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id returned by redact_open_document"),
	)
}

func pageParam(required bool) mcp.ToolOption {
	if required {
		return mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("Page number, starting at 0"),
		)
	}
	return mcp.WithNumber("page",
		mcp.Description("Page number, starting at 0; omit for the whole document"),
	)
}

func kindParam(required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{
		mcp.Description("Region kind: redact, protect or exclude"),
		mcp.Enum("redact", "protect", "exclude"),
	}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithString("kind", opts...)
}

func boxParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("x0", mcp.Required(), mcp.Description("Left edge in points")),
		mcp.WithNumber("y0", mcp.Required(), mcp.Description("Top edge in points, measured from the top of the page")),
		mcp.WithNumber("x1", mcp.Required(), mcp.Description("Right edge in points")),
		mcp.WithNumber("y1", mcp.Required(), mcp.Description("Bottom edge in points, measured from the top of the page")),
	}
}

func newTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(descriptions.GetToolDescription(name))}, opts...)...)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Documents
	s.mcpServer.AddTool(newTool(descriptions.ToolListDocuments,
		mcp.WithString("query", mcp.Description("Optional fuzzy file name query")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of files to return")),
	), s.handleListDocuments)
	s.mcpServer.AddTool(newTool(descriptions.ToolOpenDocument,
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF path, absolute or relative to the configured directory"),
		),
	), s.handleOpenDocument)
	s.mcpServer.AddTool(newTool(descriptions.ToolCloseDocument, sessionParam()), s.handleCloseDocument)

	// Regions
	s.mcpServer.AddTool(newTool(descriptions.ToolAddRegion,
		append([]mcp.ToolOption{sessionParam(), pageParam(true), kindParam(false)}, boxParams()...)...,
	), s.handleAddRegion)
	s.mcpServer.AddTool(newTool(descriptions.ToolUpdateRegion,
		append([]mcp.ToolOption{
			sessionParam(), pageParam(true), kindParam(true),
			mcp.WithNumber("index", mcp.Required(), mcp.Description("Region index within the page and kind")),
		}, boxParams()...)...,
	), s.handleUpdateRegion)
	s.mcpServer.AddTool(newTool(descriptions.ToolRemoveRegion,
		sessionParam(), pageParam(true), kindParam(true),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Region index within the page and kind")),
	), s.handleRemoveRegion)
	s.mcpServer.AddTool(newTool(descriptions.ToolClearRegions, sessionParam(), pageParam(false)), s.handleClearRegions)
	s.mcpServer.AddTool(newTool(descriptions.ToolListRegions, sessionParam(), pageParam(false)), s.handleListRegions)
	s.mcpServer.AddTool(newTool(descriptions.ToolUndo, sessionParam()), s.handleUndo)
	s.mcpServer.AddTool(newTool(descriptions.ToolRedo, sessionParam()), s.handleRedo)
	s.mcpServer.AddTool(newTool(descriptions.ToolSaveRegions, sessionParam()), s.handleSaveRegions)

	// Resolution
	s.mcpServer.AddTool(newTool(descriptions.ToolResolvePage, sessionParam(), pageParam(true)), s.handleResolvePage)
	s.mcpServer.AddTool(newTool(descriptions.ToolExportPlan, sessionParam()), s.handleExportPlan)

	// Rules
	valueType := func(what string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithString("value", mcp.Required(), mcp.Description("The "+what+" text")),
			mcp.WithString("type",
				mcp.Description("keyword (default) or passage; passage lines become separate entries"),
				mcp.Enum("keyword", "passage"),
			),
		}
	}
	s.mcpServer.AddTool(newTool(descriptions.ToolGetRules), s.handleGetRules)
	s.mcpServer.AddTool(newTool(descriptions.ToolAddPattern, valueType("pattern")...), s.handleAddPattern)
	s.mcpServer.AddTool(newTool(descriptions.ToolAddExclusion, valueType("exclusion")...), s.handleAddExclusion)
	s.mcpServer.AddTool(newTool(descriptions.ToolListPresets), s.handleListPresets)
	s.mcpServer.AddTool(newTool(descriptions.ToolApplyPreset,
		mcp.WithString("name", mcp.Required(), mcp.Description("Preset name")),
	), s.handleApplyPreset)
	s.mcpServer.AddTool(newTool(descriptions.ToolSavePreset,
		mcp.WithString("name", mcp.Required(), mcp.Description("Preset name")),
		mcp.WithString("description", mcp.Description("Optional description")),
	), s.handleSavePreset)
	s.mcpServer.AddTool(newTool(descriptions.ToolDeletePreset,
		mcp.WithString("name", mcp.Required(), mcp.Description("User preset name")),
	), s.handleDeletePreset)
	s.mcpServer.AddTool(newTool(descriptions.ToolSaveRules), s.handleSaveRules)
	s.mcpServer.AddTool(newTool(descriptions.ToolUndoRules), s.handleUndoRules)
	s.mcpServer.AddTool(newTool(descriptions.ToolRedoRules), s.handleRedoRules)
	s.mcpServer.AddTool(newTool(descriptions.ToolExportRules), s.handleExportRules)
	s.mcpServer.AddTool(newTool(descriptions.ToolImportRules,
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON document to import")),
	), s.handleImportRules)

	s.mcpServer.AddTool(newTool(descriptions.ToolServerInfo), s.handleServerInfo)
}

// Run serves MCP over stdin/stdout until stdin closes or ctx is done
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP over the given streams
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.Info().
		Str("directory", s.config.PDFDirectory).
		Str("data", s.config.DataDirectory).
		Msg("serving MCP over stdio")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(s.log, "", 0))

	if err := stdio.Listen(ctx, in, out); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
