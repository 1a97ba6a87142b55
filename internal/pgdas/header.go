package pgdas

import (
	"regexp"
	"strings"
)

// Header labels of the declaration. The single-line fields stop at the first
// line break; the two accumulated revenue labels may have their value pushed to
// a following line by the document layout.
var (
	taxpayerIDRegex   = regexp.MustCompile(`CNPJ Matriz:[ \t]*([\d./\-][\d./\- \t]*)`)
	legalNameRegex    = regexp.MustCompile(`Nome empresarial:[ \t]*([^\r\n]+)`)
	filingPeriodRegex = regexp.MustCompile(`Período de Apuração:[ \t]*([^\r\n]+)`)
	revenue12mRegex   = regexp.MustCompile(
		`Receita bruta acumulada nos doze meses anteriores\s+ao PA \(RBT12\)`)
	revenueYearRegex = regexp.MustCompile(
		`Receita bruta acumulada no ano-calendário corrente\s+\(RBA\)`)

	// labelValueRegex captures the value run that follows an amount label.
	labelValueRegex = regexp.MustCompile(`^\s+([0-9.,]+)`)
)

// TextField is a captured label value and whether its label was found.
type TextField struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// AmountField is a parsed label value and whether its label was found.
// Value is 0 both when the label is missing and when the capture is malformed.
type AmountField struct {
	Value float64 `json:"value"`
	Found bool    `json:"found"`
}

// Headers holds the singleton fields of a declaration.
type Headers struct {
	TaxpayerID             TextField   `json:"taxpayer_id"`
	LegalName              TextField   `json:"legal_name"`
	FilingPeriod           TextField   `json:"filing_period"`
	AccumulatedRevenue12m  AmountField `json:"accumulated_revenue_12m"`
	AccumulatedRevenueYear AmountField `json:"accumulated_revenue_year"`
}

// ExtractHeaders matches every header label independently against the whole text.
func ExtractHeaders(text string) Headers {
	return Headers{
		TaxpayerID:             captureText(taxpayerIDRegex, text),
		LegalName:              captureText(legalNameRegex, text),
		FilingPeriod:           captureText(filingPeriodRegex, text),
		AccumulatedRevenue12m:  captureAmount(revenue12mRegex, text),
		AccumulatedRevenueYear: captureAmount(revenueYearRegex, text),
	}
}

func captureText(re *regexp.Regexp, text string) TextField {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return TextField{}
	}
	value := strings.TrimSpace(m[1])
	if value == "" {
		return TextField{}
	}
	return TextField{Value: value, Found: true}
}

// captureAmount reports the label as found even when no numeric value follows it.
func captureAmount(label *regexp.Regexp, text string) AmountField {
	loc := label.FindStringIndex(text)
	if loc == nil {
		return AmountField{}
	}
	field := AmountField{Found: true}
	if m := labelValueRegex.FindStringSubmatch(text[loc[1]:]); m != nil {
		field.Value = ParseAmount(m[1])
	}
	return field
}
