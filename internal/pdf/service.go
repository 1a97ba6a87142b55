package pdf

import (
	"fmt"

	"github.com/a3tai/mcp-pgdas-reader/internal/pdf/security"
)

// Service exposes the PDF operations used by the tools and the HTTP API.
// Every path is checked against the configured directory first.
type Service struct {
	maxFileSize   int64
	reader        *Reader
	validator     *Validator
	search        *Search
	pathValidator *security.PathValidator
}

// NewService creates a new PDF service with all components
func NewService(maxFileSize int64, configuredDirectory string) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		reader:        NewReader(maxFileSize),
		validator:     NewValidator(maxFileSize),
		search:        NewSearch(maxFileSize),
		pathValidator: pathValidator,
	}, nil
}

// PDFReadFile reads the text content of a PDF file
func (s *Service) PDFReadFile(req PDFReadFileRequest) (*PDFReadFileResult, error) {
	path, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.reader.ReadFile(req)
}

// ReadText returns the text of the PDF at path. Relative paths are resolved
// against the configured directory.
func (s *Service) ReadText(path string) (string, error) {
	result, err := s.PDFReadFile(PDFReadFileRequest{Path: path})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// PDFValidateFile performs validation on a PDF file
func (s *Service) PDFValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	path, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.validator.ValidateFile(req)
}

// PDFSearchDirectory searches for PDF files in a directory
func (s *Service) PDFSearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		req.Directory = s.pathValidator.Directory()
	}

	directory, err := s.pathValidator.ResolveDirectory(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Directory = directory

	return s.search.SearchDirectory(req)
}

// ListPDFs returns up to limit PDFs from the configured directory.
func (s *Service) ListPDFs(limit int) ([]FileInfo, error) {
	return s.search.FindPDFsInDirectoryLimited(s.pathValidator.Directory(), limit)
}

// IsValidPDF performs a quick validation check on a file
func (s *Service) IsValidPDF(filePath string) bool {
	path, err := s.pathValidator.Resolve(filePath)
	if err != nil {
		return false
	}
	return s.validator.IsValidPDF(path)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Directory returns the configured directory
func (s *Service) Directory() string {
	return s.pathValidator.Directory()
}
