// Package store persists extracted PGDAS declarations in a local SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/a3tai/mcp-pgdas-reader/internal/logger"
	"github.com/a3tai/mcp-pgdas-reader/internal/pgdas"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicate is returned by Create when a report for the same
	// taxpayer and filing period already exists.
	ErrDuplicate = errors.New("report already exists for taxpayer and period")

	// ErrNotFound is returned when no report has the requested id.
	ErrNotFound = errors.New("report not found")
)

// Report is a stored declaration.
type Report struct {
	ID                     int64                `json:"id"`
	TaxpayerID             string               `json:"taxpayer_id"`
	LegalName              string               `json:"legal_name"`
	FilingPeriod           string               `json:"filing_period"`
	AccumulatedRevenue12m  float64              `json:"accumulated_revenue_12m"`
	AccumulatedRevenueYear float64              `json:"accumulated_revenue_year"`
	DomesticRevenue        *pgdas.RevenueSeries `json:"domestic_revenue"`
	ForeignRevenue         *pgdas.RevenueSeries `json:"foreign_revenue"`
	Taxes                  pgdas.TaxTable       `json:"taxes"`
	CreatedAt              time.Time            `json:"created_at"`
}

// Clone returns a deep copy of r. The revenue series of the copy share no
// storage with r.
func (r *Report) Clone() *Report {
	c := *r
	if r.DomesticRevenue != nil {
		c.DomesticRevenue = r.DomesticRevenue.Clone()
	}
	if r.ForeignRevenue != nil {
		c.ForeignRevenue = r.ForeignRevenue.Clone()
	}
	return &c
}

// Summary is the listing view of a stored declaration.
type Summary struct {
	ID           int64     `json:"id"`
	TaxpayerID   string    `json:"taxpayer_id"`
	LegalName    string    `json:"legal_name"`
	FilingPeriod string    `json:"filing_period"`
	CreatedAt    time.Time `json:"created_at"`
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Store is the SQLite backed report repository.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// New opens the SQLite file at dbPath. All access goes through a single
// connection so concurrent writers never see SQLITE_BUSY.
func New(dbPath string, opts ...StoreOption) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger.Discard(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("store: opened", "path", dbPath)
	return s, nil
}

// Init creates the reports table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS pgdas_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cnpj TEXT NOT NULL,
		nome_empresarial TEXT,
		periodo_apuracao TEXT NOT NULL,
		receita_bruta_acumulada REAL NOT NULL DEFAULT 0,
		receita_bruta_ano REAL NOT NULL DEFAULT 0,
		receitas_mercado_interno TEXT NOT NULL DEFAULT '{}',
		receitas_mercado_externo TEXT NOT NULL DEFAULT '{}',
		valor_total_debito REAL NOT NULL DEFAULT 0,
		irpj REAL NOT NULL DEFAULT 0,
		csll REAL NOT NULL DEFAULT 0,
		cofins REAL NOT NULL DEFAULT 0,
		pis_pasep REAL NOT NULL DEFAULT 0,
		inss_cpp REAL NOT NULL DEFAULT 0,
		icms REAL NOT NULL DEFAULT 0,
		ipi REAL NOT NULL DEFAULT 0,
		iss REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		UNIQUE(cnpj, periodo_apuracao)
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_pgdas_reports_created_at ON pgdas_reports(created_at)`)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.logger.Debug("store: init completed")
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindByTaxpayerAndPeriod returns the id of the report stored for the pair.
func (s *Store) FindByTaxpayerAndPeriod(ctx context.Context, taxpayerID, period string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM pgdas_reports WHERE cnpj = ? AND periodo_apuracao = ?`,
		taxpayerID, period).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find report by taxpayer and period: %w", err)
	}
	return id, true, nil
}

// Create stores rec and returns the new id.
func (s *Store) Create(ctx context.Context, rec pgdas.Record) (int64, error) {
	domestic, err := encodeSeries(rec.DomesticRevenue)
	if err != nil {
		return 0, err
	}
	foreign, err := encodeSeries(rec.ForeignRevenue)
	if err != nil {
		return 0, err
	}

	taxes := rec.Taxes
	res, err := s.db.ExecContext(ctx, `INSERT INTO pgdas_reports (
			cnpj, nome_empresarial, periodo_apuracao, receita_bruta_acumulada,
			receita_bruta_ano, receitas_mercado_interno, receitas_mercado_externo,
			valor_total_debito, irpj, csll, cofins, pis_pasep, inss_cpp, icms, ipi, iss,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TaxpayerID, nullString(rec.LegalName), rec.FilingPeriod,
		rec.AccumulatedRevenue12m, rec.AccumulatedRevenueYear, domestic, foreign,
		taxes.TotalDue, taxes.IRPJ, taxes.CSLL, taxes.COFINS, taxes.PISPasep, taxes.INSSCPP,
		taxes.ICMS, taxes.IPI, taxes.ISS,
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s %s", ErrDuplicate, rec.TaxpayerID, rec.FilingPeriod)
		}
		return 0, fmt.Errorf("insert report: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}

	s.logger.Debug("store: report created", "id", id, "cnpj", rec.TaxpayerID, "period", rec.FilingPeriod)
	return id, nil
}

// FindByID returns the full report or ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id int64) (*Report, error) {
	var (
		r                 Report
		legalName         sql.NullString
		domestic, foreign string
		createdAt         int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT
			id, cnpj, nome_empresarial, periodo_apuracao, receita_bruta_acumulada,
			receita_bruta_ano, receitas_mercado_interno, receitas_mercado_externo,
			valor_total_debito, irpj, csll, cofins, pis_pasep, inss_cpp, icms, ipi, iss,
			created_at
		FROM pgdas_reports WHERE id = ?`, id).Scan(
		&r.ID, &r.TaxpayerID, &legalName, &r.FilingPeriod, &r.AccumulatedRevenue12m,
		&r.AccumulatedRevenueYear, &domestic, &foreign,
		&r.Taxes.TotalDue, &r.Taxes.IRPJ, &r.Taxes.CSLL, &r.Taxes.COFINS, &r.Taxes.PISPasep,
		&r.Taxes.INSSCPP, &r.Taxes.ICMS, &r.Taxes.IPI, &r.Taxes.ISS,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find report %d: %w", id, err)
	}

	r.LegalName = legalName.String
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	if r.DomesticRevenue, err = decodeSeries(domestic); err != nil {
		return nil, fmt.Errorf("decode domestic revenue of report %d: %w", id, err)
	}
	if r.ForeignRevenue, err = decodeSeries(foreign); err != nil {
		return nil, fmt.Errorf("decode foreign revenue of report %d: %w", id, err)
	}

	return &r, nil
}

// FindAll lists every report, newest first.
func (s *Store) FindAll(ctx context.Context) ([]Summary, error) {
	return s.listSummaries(ctx, `SELECT id, cnpj, nome_empresarial, periodo_apuracao, created_at
		FROM pgdas_reports ORDER BY created_at DESC, id DESC`)
}

// FindAllByTaxpayer lists the reports of one taxpayer, latest filing period
// first. Periods are compared by year, then by the full period text.
func (s *Store) FindAllByTaxpayer(ctx context.Context, taxpayerID string) ([]Summary, error) {
	return s.listSummaries(ctx, `SELECT id, cnpj, nome_empresarial, periodo_apuracao, created_at
		FROM pgdas_reports WHERE cnpj = ?
		ORDER BY substr(periodo_apuracao, -4) DESC, periodo_apuracao DESC, id DESC`, taxpayerID)
}

func (s *Store) listSummaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var (
			sum       Summary
			legalName sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.TaxpayerID, &legalName, &sum.FilingPeriod, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		sum.LegalName = legalName.String
		sum.CreatedAt = time.UnixMilli(createdAt).UTC()
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	s.logger.Debug("store: reports listed", "count", len(summaries), "duration", time.Since(start))
	return summaries, nil
}

func encodeSeries(series *pgdas.RevenueSeries) (string, error) {
	if series == nil {
		return "{}", nil
	}
	data, err := json.Marshal(series)
	if err != nil {
		return "", fmt.Errorf("encode revenue series: %w", err)
	}
	return string(data), nil
}

func decodeSeries(data string) (*pgdas.RevenueSeries, error) {
	series := pgdas.NewRevenueSeries()
	if data == "" {
		return series, nil
	}
	if err := json.Unmarshal([]byte(data), series); err != nil {
		return nil, err
	}
	return series, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
