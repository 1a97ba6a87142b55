// Package report turns declaration PDFs into stored reports: it reads the
// text, runs the extraction engine, rejects documents that are not PGDAS
// declarations and persists the rest once per taxpayer and filing period.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/a3tai/mcp-pgdas-reader/internal/logger"
	"github.com/a3tai/mcp-pgdas-reader/internal/pgdas"
	"github.com/a3tai/mcp-pgdas-reader/internal/store"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	ckReport = "report_%d"

	// MessageDuplicate is reported when the declaration was stored before.
	MessageDuplicate = "document already processed"
	// MessageUnsupported is the user facing text of ErrUnsupportedDocument.
	MessageUnsupported = "unsupported or invalid document"
)

// ErrUnsupportedDocument is returned when the taxpayer id or the filing
// period cannot be found in the text.
var ErrUnsupportedDocument = errors.New(MessageUnsupported)

// TextSource produces the plain text of a document.
type TextSource interface {
	ReadText(path string) (string, error)
}

// Repository persists reports.
type Repository interface {
	FindByTaxpayerAndPeriod(ctx context.Context, taxpayerID, period string) (int64, bool, error)
	Create(ctx context.Context, rec pgdas.Record) (int64, error)
	FindByID(ctx context.Context, id int64) (*store.Report, error)
	FindAll(ctx context.Context) ([]store.Summary, error)
	FindAllByTaxpayer(ctx context.Context, taxpayerID string) ([]store.Summary, error)
}

// ProcessResult describes the outcome of an import.
type ProcessResult struct {
	Success   bool          `json:"success"`
	Duplicate bool          `json:"duplicate,omitempty"`
	RecordID  int64         `json:"recordId"`
	Message   string        `json:"message,omitempty"`
	Record    *pgdas.Record `json:"record,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger. It defaults to logger.L.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCacheTTL sets how long fetched reports stay cached. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// WithExtractor replaces the default extraction engine.
func WithExtractor(e *pgdas.Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// Service coordinates text extraction and persistence.
type Service struct {
	source    TextSource
	repo      Repository
	extractor *pgdas.Extractor
	cache     *cache.Cache
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewService creates a report service reading documents from source and
// storing them in repo.
func NewService(source TextSource, repo Repository, opts ...Option) *Service {
	s := &Service{
		source:    source,
		repo:      repo,
		extractor: pgdas.NewExtractor(),
		cacheTTL:  DefaultCacheExpiration,
		logger:    logger.L,
	}
	for _, o := range opts {
		o(s)
	}
	s.cache = cache.New(s.cacheTTL, CacheCleanupInterval)
	return s
}

// Preview extracts the declaration at path without storing it.
func (s *Service) Preview(ctx context.Context, path string) (pgdas.Record, error) {
	text, err := s.readText(ctx, path)
	if err != nil {
		return pgdas.Record{}, err
	}
	return s.extractor.Extract(text), nil
}

// ProcessFile imports the declaration at path.
func (s *Service) ProcessFile(ctx context.Context, path string) (*ProcessResult, error) {
	text, err := s.readText(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.ProcessText(ctx, text)
}

// ProcessText imports a declaration from its already decoded text. A
// declaration that was stored before is not an error: the result carries
// Duplicate and the id of the stored report.
func (s *Service) ProcessText(ctx context.Context, text string) (*ProcessResult, error) {
	start := time.Now()
	rec := s.extractor.Extract(text)

	if rec.TaxpayerID == "" || rec.FilingPeriod == "" {
		s.logger.Warn("Rejected document without taxpayer id or filing period",
			"taxpayer_found", rec.Found.TaxpayerID, "period_found", rec.Found.FilingPeriod)
		return nil, ErrUnsupportedDocument
	}

	if id, found, err := s.repo.FindByTaxpayerAndPeriod(ctx, rec.TaxpayerID, rec.FilingPeriod); err != nil {
		return nil, fmt.Errorf("check existing report: %w", err)
	} else if found {
		return s.duplicate(id, rec), nil
	}

	id, err := s.repo.Create(ctx, rec)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent import of the same declaration.
		existing, found, findErr := s.repo.FindByTaxpayerAndPeriod(ctx, rec.TaxpayerID, rec.FilingPeriod)
		if findErr != nil || !found {
			return nil, fmt.Errorf("save report: %w", err)
		}
		return s.duplicate(existing, rec), nil
	}
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	s.logger.Info("Report saved", "id", id, "cnpj", rec.TaxpayerID, "period", rec.FilingPeriod,
		"tax_table_found", rec.Found.TaxTable, "revenue_block_found", rec.Found.RevenueBlock,
		"duration", time.Since(start))

	return &ProcessResult{Success: true, RecordID: id, Record: &rec}, nil
}

func (s *Service) duplicate(id int64, rec pgdas.Record) *ProcessResult {
	s.logger.Info("Duplicate declaration", "id", id, "cnpj", rec.TaxpayerID, "period", rec.FilingPeriod)
	return &ProcessResult{
		Success:   false,
		Duplicate: true,
		RecordID:  id,
		Message:   MessageDuplicate,
		Record:    &rec,
	}
}

// GetReport returns a stored report, serving repeated lookups from cache.
// Every call returns its own copy, so callers may modify the result.
func (s *Service) GetReport(ctx context.Context, id int64) (*store.Report, error) {
	cacheKey := fmt.Sprintf(ckReport, id)
	if cached, found := s.cache.Get(cacheKey); found {
		s.logger.Debug("Cache hit for report", "id", id)
		return cached.(*store.Report).Clone(), nil
	}

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheTTL > 0 {
		s.cache.Set(cacheKey, r.Clone(), s.cacheTTL)
	}
	return r, nil
}

// ListReports lists every stored report, newest first.
func (s *Service) ListReports(ctx context.Context) ([]store.Summary, error) {
	return s.repo.FindAll(ctx)
}

// ListReportsByTaxpayer lists the reports of one taxpayer, latest period first.
func (s *Service) ListReportsByTaxpayer(ctx context.Context, taxpayerID string) ([]store.Summary, error) {
	return s.repo.FindAllByTaxpayer(ctx, taxpayerID)
}

// ParseID parses a report id from its decimal text.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid report id: %q", raw)
	}
	return id, nil
}

func (s *Service) readText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := s.source.ReadText(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return text, nil
}
