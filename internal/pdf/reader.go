package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxTextSize caps the text pulled out of a single document.
const DefaultMaxTextSize = 10 * 1024 * 1024

// Reader handles PDF text extraction
type Reader struct {
	maxFileSize int64
	maxTextSize int
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxTextSize: DefaultMaxTextSize,
	}
}

// ReadFile extracts the plain text of every page of a PDF file
func (r *Reader) ReadFile(req PDFReadFileRequest) (*PDFReadFileResult, error) {
	fileInfo, err := checkFile(req.Path, r.maxFileSize)
	if err != nil {
		return nil, err
	}

	f, pdfReader, err := pdf.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w: %w", ErrInvalidPDF, err)
	}
	defer f.Close()

	content, truncated := r.extractTextContent(pdfReader)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, req.Path)
	}

	return &PDFReadFileResult{
		Content:   content,
		Path:      req.Path,
		Pages:     pdfReader.NumPage(),
		Size:      fileInfo.Size(),
		Truncated: truncated,
	}, nil
}

// ReadText returns only the document text.
func (r *Reader) ReadText(path string) (string, error) {
	result, err := r.ReadFile(PDFReadFileRequest{Path: path})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// extractTextContent joins page texts with "\n". Pages that fail to decode
// are skipped.
func (r *Reader) extractTextContent(pdfReader *pdf.Reader) (string, bool) {
	var builder strings.Builder
	numPages := pdfReader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		content, err := pageText(pdfReader, pageNum)
		if err != nil {
			continue
		}

		if builder.Len() > 0 {
			builder.WriteString("\n")
		}

		if builder.Len()+len(content) > r.maxTextSize {
			remaining := r.maxTextSize - builder.Len()
			if remaining > 0 {
				builder.WriteString(truncateUTF8(content, remaining))
			}
			return builder.String(), true
		}

		builder.WriteString(content)
	}

	return builder.String(), false
}

// pageText decodes one page. Malformed content streams can make the decoder
// panic; that is reported as an error for the page.
func pageText(pdfReader *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while decoding page %d: %v", pageNum, r)
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("invalid page %d", pageNum)
	}
	return page.GetPlainText(nil)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// checkFile performs the stat based checks shared by the reader and validator.
func checkFile(filePath string, maxFileSize int64) (os.FileInfo, error) {
	if filePath == "" {
		return nil, ErrEmptyPath
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := checkFileInfo(filePath, fileInfo, maxFileSize); err != nil {
		return nil, err
	}
	return fileInfo, nil
}

func checkFileInfo(filePath string, fileInfo os.FileInfo, maxFileSize int64) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, filePath)
	}

	if !isPDFFile(filePath) {
		return fmt.Errorf("%w: %s", ErrNotPDF, filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, filePath)
	}

	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrFileTooLarge, fileInfo.Size(), maxFileSize)
	}

	return nil
}

func isPDFFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
