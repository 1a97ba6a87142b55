// Package httpapi serves the upload and query endpoints of the server mode.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/a3tai/mcp-pgdas-reader/internal/logger"
	"github.com/a3tai/mcp-pgdas-reader/internal/pdf"
	"github.com/a3tai/mcp-pgdas-reader/internal/report"
	"github.com/a3tai/mcp-pgdas-reader/internal/store"
)

const (
	// UploadField is the multipart form field holding the declaration.
	UploadField = "document"

	// HealthMessage is the body of GET /.
	HealthMessage = "PGDAS reader API is running"

	multipartMemory = 1 << 20
	uploadFilePerm  = 0o600
)

// Handler implements the HTTP endpoints on top of the report service.
type Handler struct {
	reports       *report.Service
	uploadDir     string
	maxUploadSize int64
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRateLimit limits the whole API to rps requests per second with the
// given burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(h *Handler) {
		if rps <= 0 || burst <= 0 {
			h.limiter = nil
			return
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHandler creates a handler. Uploads are staged in uploadDir, which must
// be inside the directory the report service's text source reads from.
func NewHandler(reports *report.Service, uploadDir string, maxUploadSize int64, opts ...Option) *Handler {
	h := &Handler{
		reports:       reports,
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSize,
		logger:        logger.L,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the endpoints wrapped in the global middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHealth)
	mux.HandleFunc("POST /upload", h.handleUpload)
	mux.HandleFunc("GET /data/{id}", h.handleGetData)
	mux.HandleFunc("GET /documents", h.handleListDocuments)
	mux.HandleFunc("GET /documents/by-cnpj/{cnpj...}", h.handleListByTaxpayer)

	return requestID(h.logRequests(cors(h.rateLimit(mux))))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, HealthMessage)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With("request_id", RequestIDFromContext(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		log.Warn("Failed to parse multipart form or request too large", "error", err, "limit", h.maxUploadSize)
		sendJSONError(w, log, fmt.Sprintf("failed to parse form or request too large (max %d bytes)", h.maxUploadSize),
			http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fileHeader, err := r.FormFile(UploadField)
	if err != nil {
		log.Warn("Failed to retrieve file from request", "error", err)
		sendJSONError(w, log, fmt.Sprintf("no file uploaded, use the %q field", UploadField), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadSize {
		sendJSONError(w, log, fmt.Sprintf("file too large (max %d bytes)", h.maxUploadSize), http.StatusBadRequest)
		return
	}

	path, err := h.stage(file)
	if err != nil {
		log.Error("Failed to stage upload", "error", err)
		sendJSONError(w, log, "failed to process document", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove staged upload", "path", path, "error", err)
		}
	}()

	log.Info("Processing upload", "filename", fileHeader.Filename, "size", fileHeader.Size)
	result, err := h.reports.ProcessFile(r.Context(), path)
	if err != nil {
		status, message := uploadError(err)
		if status == http.StatusInternalServerError {
			log.Error("Upload processing failed", "filename", fileHeader.Filename, "error", err)
		}
		sendJSONError(w, log, message, status)
		return
	}

	resp := uploadResponse{
		Success:   result.Success,
		Duplicate: result.Duplicate,
		RecordID:  result.RecordID,
		Message:   result.Message,
	}
	if result.Duplicate {
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// stage copies the upload to a uniquely named file in the upload directory.
func (h *Handler) stage(src io.Reader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	path := filepath.Join(h.uploadDir, "upload-"+uuid.NewString()+".pdf")
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, uploadFilePerm)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return path, nil
}

// uploadError maps a processing error to a status and a client message.
func uploadError(err error) (int, string) {
	switch {
	case errors.Is(err, report.ErrUnsupportedDocument),
		errors.Is(err, pdf.ErrNoText),
		errors.Is(err, pdf.ErrInvalidPDF):
		return http.StatusUnprocessableEntity, report.MessageUnsupported
	case errors.Is(err, pdf.ErrEmptyFile):
		return http.StatusBadRequest, pdf.ErrEmptyFile.Error()
	case errors.Is(err, pdf.ErrFileTooLarge):
		return http.StatusBadRequest, pdf.ErrFileTooLarge.Error()
	default:
		return http.StatusInternalServerError, "failed to process document"
	}
}

func (h *Handler) handleGetData(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With("request_id", RequestIDFromContext(r.Context()))

	id, err := report.ParseID(r.PathValue("id"))
	if err != nil {
		sendJSONError(w, log, err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := h.reports.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		sendJSONError(w, log, "data not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error("Failed to fetch report", "id", id, "error", err)
		sendJSONError(w, log, "failed to fetch data", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: rep})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.reports.ListReports(r.Context())
	h.writeDocuments(w, r, summaries, err)
}

func (h *Handler) handleListByTaxpayer(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.reports.ListReportsByTaxpayer(r.Context(), r.PathValue("cnpj"))
	h.writeDocuments(w, r, summaries, err)
}

func (h *Handler) writeDocuments(w http.ResponseWriter, r *http.Request, summaries []store.Summary, err error) {
	if err != nil {
		log := h.logger.With("request_id", RequestIDFromContext(r.Context()))
		log.Error("Failed to list reports", "error", err)
		sendJSONError(w, log, "failed to list documents", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Success: true, Documents: summaries})
}
