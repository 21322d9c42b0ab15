package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio = "stdio"
	ModePlan  = "plan"

	// Log formats
	LogFormatJSON    = "json"
	LogFormatConsole = "console"

	// Protection modes
	ProtectContain   = "contain"
	ProtectIntersect = "intersect"

	// Default values
	DefaultLogLevel         = "info"
	DefaultLogFormat        = LogFormatJSON
	DefaultMaxFileSize      = 100 * 1024 * 1024 // 100MB
	DefaultHistoryDepth     = 50
	DefaultAutosaveInterval = 5 * time.Second
	DefaultContextMargin    = 20.0
	DefaultProtection       = ProtectContain
	DefaultMinRegionSize    = 5.0
	DefaultDataDirName      = ".redactor"

	// Autosave bounds
	MinAutosaveInterval = time.Second
	MaxAutosaveInterval = 5 * time.Minute

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "PDF_REDACT"
)

// Config holds all configuration for the redactor
type Config struct {
	Mode string // "stdio" or "plan"

	// Directories
	PDFDirectory  string
	DataDirectory string // snapshots; defaults to <PDFDirectory>/.redactor

	// Plan mode input document
	Input string

	// Resolution
	ContextMargin float64
	Protection    string
	MinRegionSize float64

	// Region store
	HistoryDepth     int
	AutosaveInterval time.Duration

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	LogFormat   string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:             ModeStdio,
		PDFDirectory:     currentDir,
		ContextMargin:    DefaultContextMargin,
		Protection:       DefaultProtection,
		MinRegionSize:    DefaultMinRegionSize,
		HistoryDepth:     DefaultHistoryDepth,
		AutosaveInterval: DefaultAutosaveInterval,
		Version:          "1.0.0",
		ServerName:       "mcp-pdf-redactor",
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		MaxFileSize:      DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flagKeys lists every key shared by flags, env and viper.
var flagKeys = []string{
	"mode", "dir", "data", "input", "loglevel", "logformat", "maxfilesize",
	"history", "autosave", "margin", "protect", "minregion",
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("data", cfg.DataDirectory)
	viper.SetDefault("input", cfg.Input)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logformat", cfg.LogFormat)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("history", cfg.HistoryDepth)
	viper.SetDefault("autosave", cfg.AutosaveInterval)
	viper.SetDefault("margin", cfg.ContextMargin)
	viper.SetDefault("protect", cfg.Protection)
	viper.SetDefault("minregion", cfg.MinRegionSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' serves MCP tools, 'plan' resolves --input once")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF files; documents must live inside it")
	pflag.String("data", cfg.DataDirectory, "Directory for region, rule and plan snapshots (default <dir>/.redactor)")
	pflag.String("input", cfg.Input, "PDF to resolve in plan mode")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logformat", cfg.LogFormat, "Log format (json, console)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Int("history", cfg.HistoryDepth, "Undo history depth per document")
	pflag.Duration("autosave", cfg.AutosaveInterval, "Autosave cadence for dirty region stores (1s..5m)")
	pflag.Float64("margin", cfg.ContextMargin, "Horizontal margin, in points, used to read the text around a match")
	pflag.String("protect", cfg.Protection, "Protect region test: 'contain' or 'intersect'")
	pflag.Float64("minregion", cfg.MinRegionSize, "Minimum width and height of a drawn region, in points")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Redactor - resolve what gets blacked out in a PDF\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                     # MCP tools over stdio, current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs                 # MCP tools over stdio, custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=plan --input=letter.pdf      # write a redaction plan and exit\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range flagKeys {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", envPrefix, strings.ToUpper(key))
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.DataDirectory = viper.GetString("data")
	cfg.Input = viper.GetString("input")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFormat = viper.GetString("logformat")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.HistoryDepth = viper.GetInt("history")
	cfg.AutosaveInterval = viper.GetDuration("autosave")
	cfg.ContextMargin = viper.GetFloat64("margin")
	cfg.Protection = viper.GetString("protect")
	cfg.MinRegionSize = viper.GetFloat64("minregion")
}

// expandPaths makes directories absolute and fills in the data directory
func (c *Config) expandPaths() {
	if c.PDFDirectory != "" {
		if abs, err := filepath.Abs(c.PDFDirectory); err == nil {
			c.PDFDirectory = abs
		}
	}
	if c.DataDirectory == "" && c.PDFDirectory != "" {
		c.DataDirectory = filepath.Join(c.PDFDirectory, DefaultDataDirName)
	}
	if c.DataDirectory != "" {
		if abs, err := filepath.Abs(c.DataDirectory); err == nil {
			c.DataDirectory = abs
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModePlan {
		return errors.New("mode must be either 'stdio' or 'plan'")
	}
	if c.Mode == ModePlan && strings.TrimSpace(c.Input) == "" {
		return errors.New("plan mode requires an input PDF")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if err := ensureDir(c.PDFDirectory, "PDF"); err != nil {
		return err
	}
	if c.DataDirectory == "" {
		c.DataDirectory = filepath.Join(c.PDFDirectory, DefaultDataDirName)
	}
	if err := ensureDir(c.DataDirectory, "data"); err != nil {
		return err
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.HistoryDepth <= 0 {
		return errors.New("history depth must be positive")
	}
	if c.AutosaveInterval < MinAutosaveInterval || c.AutosaveInterval > MaxAutosaveInterval {
		return fmt.Errorf("autosave interval %s out of range (%s..%s)",
			c.AutosaveInterval, MinAutosaveInterval, MaxAutosaveInterval)
	}
	if c.ContextMargin < 0 {
		return errors.New("context margin cannot be negative")
	}
	if c.MinRegionSize < 0 {
		return errors.New("minimum region size cannot be negative")
	}
	if c.Protection != ProtectContain && c.Protection != ProtectIntersect {
		return fmt.Errorf("invalid protect mode: %s (must be one of: contain, intersect)", c.Protection)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFormat != LogFormatJSON && c.LogFormat != LogFormatConsole {
		return fmt.Errorf("invalid log format: %s (must be one of: json, console)", c.LogFormat)
	}

	return nil
}

// ensureDir creates dir if it does not exist yet
func ensureDir(dir, label string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create %s directory %s: %w", label, dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access %s directory %s: %w", label, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s directory %s is not a directory", label, dir)
	}
	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsPlanMode returns true for one-shot plan runs
func (c *Config) IsPlanMode() bool {
	return c.Mode == ModePlan
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, PDFDirectory: %s, DataDirectory: %s, Input: %s, LogLevel: %s, "+
		"MaxFileSize: %d, History: %d, Autosave: %s, Margin: %g, Protect: %s, MinRegion: %g}",
		c.Mode, c.PDFDirectory, c.DataDirectory, c.Input, c.LogLevel,
		c.MaxFileSize, c.HistoryDepth, c.AutosaveInterval, c.ContextMargin, c.Protection, c.MinRegionSize)
}
