package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSearchFixture(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "2023"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, ".hidden"), 0o755))

	files := map[string][]byte{
		"PGDASD-12345678000199-202301.pdf":      make([]byte, 1024),
		"PGDASD-12345678000199-202302.pdf":      make([]byte, 1024),
		"2023/pgdas_acme_comercio_dezembro.pdf": make([]byte, 512),
		".hidden/ignored.pdf":                   make([]byte, 512),
		"notes.txt":                             []byte("not a pdf"),
		"empty.pdf":                             {},
		"large.pdf":                             make([]byte, 4096),
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, name), content, 0o644))
	}

	return tempDir
}

func TestSearch_SearchDirectory(t *testing.T) {
	tempDir := createSearchFixture(t)
	search := NewSearch(2048)

	tests := []struct {
		name          string
		query         string
		expectedNames []string
	}{
		{
			name:  "all valid pdfs",
			query: "",
			expectedNames: []string{
				"pgdas_acme_comercio_dezembro.pdf",
				"PGDASD-12345678000199-202301.pdf",
				"PGDASD-12345678000199-202302.pdf",
			},
		},
		{
			name:          "substring match is case insensitive",
			query:         "202302",
			expectedNames: []string{"PGDASD-12345678000199-202302.pdf"},
		},
		{
			name:          "word match",
			query:         "acme dezembro",
			expectedNames: []string{"pgdas_acme_comercio_dezembro.pdf"},
		},
		{
			name:          "no match",
			query:         "invoice",
			expectedNames: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := search.SearchDirectory(PDFSearchDirectoryRequest{Directory: tempDir, Query: tt.query})
			require.NoError(t, err)

			names := make([]string, 0, len(result.Files))
			for _, f := range result.Files {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.expectedNames, names)
			assert.Equal(t, len(tt.expectedNames), result.TotalCount)
			assert.Equal(t, tt.query, result.SearchQuery)
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	search := NewSearch(2048)

	_, err := search.SearchDirectory(PDFSearchDirectoryRequest{})
	assert.Error(t, err)

	_, err = search.SearchDirectory(PDFSearchDirectoryRequest{Directory: "/non/existent/dir"})
	assert.Error(t, err)
}

func TestSearch_FindPDFsInDirectoryLimited(t *testing.T) {
	tempDir := createSearchFixture(t)
	search := NewSearch(2048)

	files, err := search.FindPDFsInDirectoryLimited(tempDir, 2)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = search.FindPDFsInDirectoryLimited(tempDir, 0)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestMatchesQuery(t *testing.T) {
	tests := []struct {
		filename string
		query    string
		want     bool
	}{
		{filename: "PGDASD-2023.pdf", query: "pgdasd", want: true},
		{filename: "PGDASD-2023.pdf", query: "2023 pgdas", want: true},
		{filename: "PGDASD-2023.pdf", query: "2024", want: false},
		{filename: "relatorio (final).pdf", query: "final", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.filename+"/"+tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesQuery(tt.filename, tt.query))
		})
	}
}
