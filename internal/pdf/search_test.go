package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Find(t *testing.T) {
	catalog := NewCatalog(1024 * 1024) // 1MB limit

	tempDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "nested"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, ".redactor"), 0o755))

	testFiles := map[string][]byte{
		"document1.pdf":               make([]byte, 1024),
		"research_paper.pdf":          make([]byte, 2048),
		"machine_learning.pdf":        make([]byte, 512),
		"nested/Letter 005.PDF":       make([]byte, 10),
		".redactor/hidden_plan.pdf":   make([]byte, 10),
		"report.txt":                  []byte("not a pdf"),
		"empty.pdf":                   {},
		"large.pdf":                   make([]byte, 2*1024*1024),
	}
	for name, content := range testFiles {
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, name), content, 0o644))
	}

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{
			name: "all documents",
			want: []string{"document1.pdf", "machine_learning.pdf", "Letter 005.PDF", "research_paper.pdf"},
		},
		{name: "substring", query: "machine", want: []string{"machine_learning.pdf"}},
		{name: "case insensitive", query: "RESEARCH", want: []string{"research_paper.pdf"}},
		{name: "word match", query: "paper research", want: []string{"research_paper.pdf"}},
		{name: "nested", query: "letter", want: []string{"Letter 005.PDF"}},
		{name: "no match", query: "invoice"},
		{name: "limit", limit: 2, want: []string{"document1.pdf", "machine_learning.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := catalog.Find(tempDir, tt.query, tt.limit)
			require.NoError(t, err)

			var names []string
			for _, f := range files {
				names = append(names, f.Name)
				assert.True(t, filepath.IsAbs(f.Path))
				assert.Positive(t, f.Size)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestCatalog_FindErrors(t *testing.T) {
	catalog := NewCatalog(0)

	_, err := catalog.Find("", "", 0)
	assert.ErrorContains(t, err, "directory cannot be empty")

	_, err = catalog.Find(filepath.Join(t.TempDir(), "missing"), "", 0)
	assert.ErrorContains(t, err, "does not exist")
}

func TestMatchesQuery(t *testing.T) {
	tests := []struct {
		filename string
		query    string
		want     bool
	}{
		{"machine_learning.pdf", "", true},
		{"machine_learning.pdf", "learn", true},
		{"machine_learning.pdf", "learning machine", true},
		{"machine_learning.pdf", "deep learning", false},
		{"Annual-Report (2024).pdf", "report 2024", true},
		{"notes.pdf", "pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.filename+"/"+tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesQuery(tt.filename, tt.query))
		})
	}
}
