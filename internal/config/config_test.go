package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, "mcp-pdf-redactor", cfg.ServerName)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, 50, cfg.HistoryDepth)
	assert.Equal(t, 5*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, 20.0, cfg.ContextMargin)
	assert.Equal(t, ProtectContain, cfg.Protection)
	assert.Equal(t, 5.0, cfg.MinRegionSize)
	assert.Empty(t, cfg.DataDirectory)

	currentDir, _ := os.Getwd()
	assert.Equal(t, currentDir, cfg.PDFDirectory)
}

// validConfig returns defaults rooted in a temporary directory.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PDFDirectory = t.TempDir()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "plan mode with input", mutate: func(c *Config) { c.Mode = ModePlan; c.Input = "a.pdf" }},
		{name: "intersect protection", mutate: func(c *Config) { c.Protection = ProtectIntersect }},
		{name: "zero margin", mutate: func(c *Config) { c.ContextMargin = 0 }},
		{name: "console logs", mutate: func(c *Config) { c.LogFormat = LogFormatConsole }},
		{name: "autosave lower bound", mutate: func(c *Config) { c.AutosaveInterval = time.Second }},
		{name: "autosave upper bound", mutate: func(c *Config) { c.AutosaveInterval = 5 * time.Minute }},
		{name: "invalid mode", mutate: func(c *Config) { c.Mode = "server" }, wantErr: "mode must be"},
		{name: "plan mode without input", mutate: func(c *Config) { c.Mode = ModePlan }, wantErr: "requires an input"},
		{name: "empty directory", mutate: func(c *Config) { c.PDFDirectory = "" }, wantErr: "cannot be empty"},
		{name: "zero file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "file size"},
		{name: "zero history", mutate: func(c *Config) { c.HistoryDepth = 0 }, wantErr: "history depth"},
		{name: "autosave too fast", mutate: func(c *Config) { c.AutosaveInterval = 500 * time.Millisecond }, wantErr: "autosave"},
		{name: "autosave too slow", mutate: func(c *Config) { c.AutosaveInterval = 6 * time.Minute }, wantErr: "autosave"},
		{name: "negative margin", mutate: func(c *Config) { c.ContextMargin = -1 }, wantErr: "margin"},
		{name: "negative min region", mutate: func(c *Config) { c.MinRegionSize = -1 }, wantErr: "region size"},
		{name: "unknown protect", mutate: func(c *Config) { c.Protection = "overlap" }, wantErr: "protect mode"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "log level"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigValidate_CreatesDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.PDFDirectory = filepath.Join(root, "pdfs")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(root, "pdfs", DefaultDataDirName), cfg.DataDirectory)
	assert.DirExists(t, cfg.PDFDirectory)
	assert.DirExists(t, cfg.DataDirectory)
}

func TestConfigValidate_DirectoryIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	cfg := DefaultConfig()
	cfg.PDFDirectory = file
	assert.ErrorContains(t, cfg.Validate(), "is not a directory")
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsStdioMode())
	assert.False(t, cfg.IsPlanMode())
	assert.False(t, cfg.IsDebug())

	cfg.Mode = ModePlan
	cfg.LogLevel = "debug"
	assert.True(t, cfg.IsPlanMode())
	assert.True(t, cfg.IsDebug())

	s := cfg.String()
	assert.Contains(t, s, "Mode: plan")
	assert.Contains(t, s, "Protect: contain")
	assert.Contains(t, s, "Autosave: 5s")
}
