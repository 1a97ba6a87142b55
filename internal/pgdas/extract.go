// Package pgdas extracts the fiscal data of a PGDAS-D declaration from the
// linear text of its rendered PDF.
//
// Extraction is a pure function of the input text: it performs no I/O, keeps no
// state between calls and never fails. Labels or sections that cannot be found
// leave zero values behind, and the Found flags of the record tell the caller
// which ones were present.
package pgdas

import "golang.org/x/text/unicode/norm"

// Anchors delimiting the revenue block and its two market sub-sections.
const (
	RevenueBlockStart = "2.2) Receitas Brutas Anteriores"
	RevenueBlockEnd   = "2.3) Folha de Salários Anteriores"
	DomesticMarket    = "Mercado Interno"
	ForeignMarket     = "Mercado Externo"
)

// Provenance records which parts of a declaration were located.
type Provenance struct {
	TaxpayerID             bool `json:"taxpayer_id"`
	LegalName              bool `json:"legal_name"`
	FilingPeriod           bool `json:"filing_period"`
	AccumulatedRevenue12m  bool `json:"accumulated_revenue_12m"`
	AccumulatedRevenueYear bool `json:"accumulated_revenue_year"`
	TaxTable               bool `json:"tax_table"`
	RevenueBlock           bool `json:"revenue_block"`
}

// Record is the structured content of one declaration.
type Record struct {
	TaxpayerID             string         `json:"taxpayer_id"`
	LegalName              string         `json:"legal_name,omitempty"`
	FilingPeriod           string         `json:"filing_period"`
	AccumulatedRevenue12m  float64        `json:"accumulated_revenue_12m"`
	AccumulatedRevenueYear float64        `json:"accumulated_revenue_year"`
	Taxes                  TaxTable       `json:"taxes"`
	DomesticRevenue        *RevenueSeries `json:"domestic_revenue"`
	ForeignRevenue         *RevenueSeries `json:"foreign_revenue"`
	Found                  Provenance     `json:"found"`
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRevenueStrategy selects how monthly revenue amounts are paired with periods.
func WithRevenueStrategy(strategy RevenueStrategy) Option {
	return func(e *Extractor) { e.strategy = strategy }
}

// Extractor turns declaration text into a Record. It is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	strategy RevenueStrategy
}

// NewExtractor returns an Extractor using the segment strategy unless configured otherwise.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{strategy: StrategySegment}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the configured revenue strategy.
func (e *Extractor) Strategy() RevenueStrategy {
	return e.strategy
}

var defaultExtractor = NewExtractor()

// Extract runs the default Extractor over rawText.
func Extract(rawText string) Record {
	return defaultExtractor.Extract(rawText)
}

// Extract builds the record of one declaration. It always returns a fully
// populated record; whether it is usable downstream is the caller's decision.
func (e *Extractor) Extract(rawText string) Record {
	// PDF text layers may carry decomposed accents; the anchors are composed.
	text := norm.NFC.String(rawText)

	headers := ExtractHeaders(text)
	taxes, taxesFound := ExtractTaxTable(text)
	domestic, foreign, blockFound := e.extractRevenueBlock(text)

	return Record{
		TaxpayerID:             headers.TaxpayerID.Value,
		LegalName:              headers.LegalName.Value,
		FilingPeriod:           headers.FilingPeriod.Value,
		AccumulatedRevenue12m:  headers.AccumulatedRevenue12m.Value,
		AccumulatedRevenueYear: headers.AccumulatedRevenueYear.Value,
		Taxes:                  taxes,
		DomesticRevenue:        domestic,
		ForeignRevenue:         foreign,
		Found: Provenance{
			TaxpayerID:             headers.TaxpayerID.Found,
			LegalName:              headers.LegalName.Found,
			FilingPeriod:           headers.FilingPeriod.Found,
			AccumulatedRevenue12m:  headers.AccumulatedRevenue12m.Found,
			AccumulatedRevenueYear: headers.AccumulatedRevenueYear.Found,
			TaxTable:               taxesFound,
			RevenueBlock:           blockFound,
		},
	}
}

func (e *Extractor) extractRevenueBlock(text string) (*RevenueSeries, *RevenueSeries, bool) {
	block, ok := LocateSection(text, RevenueBlockStart, RevenueBlockEnd)
	if !ok {
		return NewRevenueSeries(), NewRevenueSeries(), false
	}

	domestic, foreign := SplitSection(NormalizeBlock(block), DomesticMarket, ForeignMarket)
	return extractRevenues(domestic, e.strategy), extractRevenues(foreign, e.strategy), true
}
