package pgdas

// TaxTableAnchor precedes the value row of the tax table. The phrase can also
// appear earlier as a column header, so only its last occurrence is used.
const TaxTableAnchor = "Total do Débito Exigível (R$)"

// TaxTableWindow is the number of characters after the anchor scanned for the
// nine values. This is a layout assumption of the current PGDAS rendering and
// needs revisiting if the document format changes.
const TaxTableWindow = 400

var taxTableAnchorRegex = anchorRegex(TaxTableAnchor)

// TaxKind names one component of the tax table.
type TaxKind string

const (
	KindIRPJ     TaxKind = "irpj"
	KindCSLL     TaxKind = "csll"
	KindCOFINS   TaxKind = "cofins"
	KindPISPasep TaxKind = "pisPasep"
	KindINSSCPP  TaxKind = "inssCpp"
	KindICMS     TaxKind = "icms"
	KindIPI      TaxKind = "ipi"
	KindISS      TaxKind = "iss"
	KindTotalDue TaxKind = "totalDue"
)

// taxKindOrder is the column order of the value row.
var taxKindOrder = []TaxKind{
	KindIRPJ, KindCSLL, KindCOFINS, KindPISPasep, KindINSSCPP,
	KindICMS, KindIPI, KindISS, KindTotalDue,
}

// TaxKinds returns the tax kinds in table column order, total last.
func TaxKinds() []TaxKind {
	kinds := make([]TaxKind, len(taxKindOrder))
	copy(kinds, taxKindOrder)
	return kinds
}

// TaxTable is the fixed set of tax components plus the total due.
// Every kind is always present; zero is the default.
type TaxTable struct {
	IRPJ     float64 `json:"irpj"`
	CSLL     float64 `json:"csll"`
	COFINS   float64 `json:"cofins"`
	PISPasep float64 `json:"pisPasep"`
	INSSCPP  float64 `json:"inssCpp"`
	ICMS     float64 `json:"icms"`
	IPI      float64 `json:"ipi"`
	ISS      float64 `json:"iss"`
	TotalDue float64 `json:"totalDue"`
}

// Get returns the value bound to kind, or 0 for an unknown kind.
func (t TaxTable) Get(kind TaxKind) float64 {
	if p := t.field(kind); p != nil {
		return *p
	}
	return 0
}

// Map returns the table keyed by tax kind.
func (t TaxTable) Map() map[TaxKind]float64 {
	m := make(map[TaxKind]float64, len(taxKindOrder))
	for _, kind := range taxKindOrder {
		m[kind] = t.Get(kind)
	}
	return m
}

func (t *TaxTable) field(kind TaxKind) *float64 {
	switch kind {
	case KindIRPJ:
		return &t.IRPJ
	case KindCSLL:
		return &t.CSLL
	case KindCOFINS:
		return &t.COFINS
	case KindPISPasep:
		return &t.PISPasep
	case KindINSSCPP:
		return &t.INSSCPP
	case KindICMS:
		return &t.ICMS
	case KindIPI:
		return &t.IPI
	case KindISS:
		return &t.ISS
	case KindTotalDue:
		return &t.TotalDue
	}
	return nil
}

// ExtractTaxTable binds the first nine amounts after the last tax table anchor
// to the tax kinds by position. It reports false, with an all-zero table, when
// the anchor is missing or fewer than nine amounts follow it.
func ExtractTaxTable(text string) (TaxTable, bool) {
	matches := taxTableAnchorRegex.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return TaxTable{}, false
	}
	end := matches[len(matches)-1][1]
	return BindTaxValues(leadingRunes(text[end:], TaxTableWindow))
}

// BindTaxValues binds the monetary amounts of window to the tax kinds in column
// order. Amounts beyond the ninth are ignored; fewer than nine leave the table
// unlocated since the position of the total can no longer be trusted.
func BindTaxValues(window string) (TaxTable, bool) {
	amounts := FindAmounts(window)
	if len(amounts) < len(taxKindOrder) {
		return TaxTable{}, false
	}

	var table TaxTable
	for i, kind := range taxKindOrder {
		*table.field(kind) = ParseAmount(amounts[i])
	}
	return table, true
}

// leadingRunes returns at most n characters from the start of s.
func leadingRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
