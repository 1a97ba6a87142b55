package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/mcp-pgdas-reader/internal/pdf/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReader(t *testing.T) {
	reader := NewReader(1024)

	assert.Equal(t, int64(1024), reader.maxFileSize)
	assert.Equal(t, DefaultMaxTextSize, reader.maxTextSize)
}

func TestReader_ReadFile(t *testing.T) {
	tempDir := t.TempDir()

	declaration := filepath.Join(tempDir, "declaration.pdf")
	pdftest.Write(t, declaration,
		"CNPJ Matriz: 12.345.678/0001-99\nNome empresarial: ACME COMERCIO LTDA",
		"Total do Debito Exigivel (R$)")

	blank := filepath.Join(tempDir, "blank.pdf")
	pdftest.Write(t, blank, "")

	textFile := filepath.Join(tempDir, "notes.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("not a pdf"), 0o644))

	emptyFile := filepath.Join(tempDir, "empty.pdf")
	require.NoError(t, os.WriteFile(emptyFile, nil, 0o644))

	largeFile := filepath.Join(tempDir, "large.pdf")
	require.NoError(t, os.WriteFile(largeFile, make([]byte, 2048), 0o644))

	corrupt := filepath.Join(tempDir, "corrupt.pdf")
	require.NoError(t, os.WriteFile(corrupt, []byte("this is not really a pdf"), 0o644))

	reader := NewReader(1024 * 1024)
	reader.maxFileSize = 1024

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "empty path", path: "", wantErr: ErrEmptyPath},
		{name: "non-existent file", path: filepath.Join(tempDir, "missing.pdf"), wantErr: ErrNotExist},
		{name: "directory", path: tempDir, wantErr: ErrIsDirectory},
		{name: "not a pdf", path: textFile, wantErr: ErrNotPDF},
		{name: "empty file", path: emptyFile, wantErr: ErrEmptyFile},
		{name: "too large", path: largeFile, wantErr: ErrFileTooLarge},
		{name: "corrupt pdf", path: corrupt, wantErr: ErrInvalidPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := reader.ReadFile(PDFReadFileRequest{Path: tt.path})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
		})
	}

	t.Run("declaration text", func(t *testing.T) {
		reader := NewReader(1024 * 1024)

		result, err := reader.ReadFile(PDFReadFileRequest{Path: declaration})
		require.NoError(t, err)

		assert.Equal(t, declaration, result.Path)
		assert.Equal(t, 2, result.Pages)
		assert.False(t, result.Truncated)
		assert.Contains(t, result.Content, "12.345.678/0001-99")
		assert.Contains(t, result.Content, "Total do Debito Exigivel (R$)")
		assert.Less(t, strings.Index(result.Content, "ACME"), strings.Index(result.Content, "Total do Debito"),
			"pages must be concatenated in order")
	})

	t.Run("no extractable text", func(t *testing.T) {
		reader := NewReader(1024 * 1024)

		_, err := reader.ReadFile(PDFReadFileRequest{Path: blank})
		assert.ErrorIs(t, err, ErrNoText)
	})
}

func TestReader_ReadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "declaration.pdf")
	pdftest.Write(t, path, "Periodo de Apuracao: 01/2023")

	text, err := NewReader(1024 * 1024).ReadText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "01/2023")
}

func TestReader_TextCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.pdf")
	pdftest.Write(t, path, strings.Repeat("A", 200), strings.Repeat("B", 200))

	reader := NewReader(1024 * 1024)
	reader.maxTextSize = 250

	result, err := reader.ReadFile(PDFReadFileRequest{Path: path})
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.LessOrEqual(t, len(result.Content), 250)
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{name: "shorter than limit", s: "abc", n: 10, want: "abc"},
		{name: "ascii cut", s: "abcdef", n: 3, want: "abc"},
		{name: "does not split rune", s: "aé", n: 2, want: "a"},
		{name: "whole rune fits", s: "aéb", n: 3, want: "aé"},
		{name: "zero", s: "abc", n: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateUTF8(tt.s, tt.n))
		})
	}
}
