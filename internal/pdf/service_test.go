package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/a3tai/mcp-pgdas-reader/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pgdas-reader/internal/pdf/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	tempDir := t.TempDir()

	service, err := NewService(1024*1024, tempDir)
	require.NoError(t, err)
	return service, tempDir
}

func TestNewService(t *testing.T) {
	service, tempDir := newTestService(t)

	assert.Equal(t, int64(1024*1024), service.GetMaxFileSize())
	assert.Equal(t, tempDir, service.Directory())
	assert.NotNil(t, service.reader)
	assert.NotNil(t, service.validator)
	assert.NotNil(t, service.search)

	_, err := NewService(1024, "")
	assert.Error(t, err)
}

func TestService_ReadText(t *testing.T) {
	service, tempDir := newTestService(t)
	pdftest.Write(t, filepath.Join(tempDir, "declaration.pdf"), "CNPJ Matriz: 12.345.678/0001-99")

	outside := filepath.Join(t.TempDir(), "outside.pdf")
	pdftest.Write(t, outside, "CNPJ Matriz: 98.765.432/0001-10")

	tests := []struct {
		name        string
		path        string
		wantContent string
		wantOutside bool
	}{
		{name: "absolute path", path: filepath.Join(tempDir, "declaration.pdf"), wantContent: "12.345.678/0001-99"},
		{name: "relative path", path: "declaration.pdf", wantContent: "12.345.678/0001-99"},
		{name: "outside configured directory", path: outside, wantOutside: true},
		{name: "traversal", path: "../outside.pdf", wantOutside: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := service.ReadText(tt.path)
			if tt.wantOutside {
				assert.ErrorIs(t, err, security.ErrOutsideDirectory)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, text, tt.wantContent)
		})
	}
}

func TestService_PDFValidateFile(t *testing.T) {
	service, tempDir := newTestService(t)
	pdftest.Write(t, filepath.Join(tempDir, "valid.pdf"), "one", "two")

	result, err := service.PDFValidateFile(PDFValidateFileRequest{Path: "valid.pdf"})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, filepath.Join(tempDir, "valid.pdf"), result.Path)

	_, err = service.PDFValidateFile(PDFValidateFileRequest{Path: "/etc/passwd"})
	assert.Error(t, err)

	assert.True(t, service.IsValidPDF("valid.pdf"))
	assert.False(t, service.IsValidPDF("/etc/passwd"))
}

func TestService_PDFSearchDirectory(t *testing.T) {
	service, tempDir := newTestService(t)
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "2023"), 0o755))
	pdftest.Write(t, filepath.Join(tempDir, "a.pdf"), "a")
	pdftest.Write(t, filepath.Join(tempDir, "2023", "b.pdf"), "b")

	result, err := service.PDFSearchDirectory(PDFSearchDirectoryRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, tempDir, result.Directory)

	result, err = service.PDFSearchDirectory(PDFSearchDirectoryRequest{Directory: "2023"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)

	_, err = service.PDFSearchDirectory(PDFSearchDirectoryRequest{Directory: filepath.Dir(tempDir)})
	assert.Error(t, err)

	files, err := service.ListPDFs(1)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
