package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-redactor/internal/config"
	"github.com/a3tai/mcp-pdf-redactor/internal/logger"
	"github.com/a3tai/mcp-pdf-redactor/internal/mcp"
	"github.com/a3tai/mcp-pdf-redactor/internal/service"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the process logger. Logs always go to stderr so that
// they never interleave with the MCP stream on stdout.
func setupLogging(cfg *config.Config, out io.Writer) zerolog.Logger {
	return logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogFormat == config.LogFormatConsole,
		Output: out,
	})
}

// runStdioMode serves MCP until stdin closes, ctx is cancelled or a signal
// arrives. Pattern files are watched for the lifetime of the server.
func runStdioMode(ctx context.Context, cfg *config.Config, svc *service.Service, log zerolog.Logger) error {
	server, err := mcp.NewServer(cfg, svc, mcp.WithLogger(logger.Component(log, "mcp")))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	go func() {
		if err := svc.WatchRules(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("pattern file watcher stopped")
		}
	}()

	err = server.Run(ctx)
	if err != nil && ctx.Err() != nil {
		log.Info().Err(err).Msg("shutdown requested")
		return nil
	}
	return err
}

// runPlanMode resolves one document and writes its redaction plan without
// serving MCP. The plan path is printed to out.
func runPlanMode(ctx context.Context, cfg *config.Config, svc *service.Service, out io.Writer) error {
	result, err := svc.ExportPlanForPath(ctx, cfg.Input)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, result.Path)
	return nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, out io.Writer) error {
	svc, err := service.New(cfg, service.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create redaction service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close sessions")
		}
	}()

	if cfg.IsPlanMode() {
		return runPlanMode(ctx, cfg, svc, out)
	}
	return runStdioMode(ctx, cfg, svc, log)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	log := setupLogging(cfg, os.Stderr)
	log.Debug().Str("config", cfg.String()).Msg("starting")

	if err := run(context.Background(), cfg, log, os.Stdout); err != nil {
		log.Error().Err(err).Msg("redactor failed")
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Redactor\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
