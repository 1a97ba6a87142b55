package pgdas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindTaxValues(t *testing.T) {
	tests := []struct {
		name      string
		window    string
		want      TaxTable
		wantFound bool
	}{
		{
			name:   "nine values bound by position",
			window: "1,00 2,00 3,00 4,00 5,00 6,00 7,00 8,00 36,00",
			want: TaxTable{
				IRPJ: 1, CSLL: 2, COFINS: 3, PISPasep: 4, INSSCPP: 5,
				ICMS: 6, IPI: 7, ISS: 8, TotalDue: 36,
			},
			wantFound: true,
		},
		{
			name:   "extra values are ignored",
			window: "1,00 2,00 3,00 4,00 5,00 6,00 7,00 8,00 36,00 99,99 12,34",
			want: TaxTable{
				IRPJ: 1, CSLL: 2, COFINS: 3, PISPasep: 4, INSSCPP: 5,
				ICMS: 6, IPI: 7, ISS: 8, TotalDue: 36,
			},
			wantFound: true,
		},
		{
			name:      "eight values leave the table unlocated",
			window:    "1,00 2,00 3,00 4,00 5,00 6,00 7,00 8,00",
			want:      TaxTable{},
			wantFound: false,
		},
		{
			name:      "no values",
			window:    "IRPJ CSLL COFINS",
			want:      TaxTable{},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := BindTaxValues(tt.window)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTaxTable_UsesLastAnchor(t *testing.T) {
	text := TaxTableAnchor + " 9,99 9,99 9,99 9,99 9,99 9,99 9,99 9,99 9,99\n" +
		"IRPJ CSLL COFINS PIS/Pasep INSS/CPP ICMS IPI ISS Total\n" +
		TaxTableAnchor + "\n10,00 20,00 30,00 40,00 1.050,00 60,00 0,00 0,00 1.210,00"

	table, found := ExtractTaxTable(text)
	require.True(t, found)
	assert.Equal(t, 10.0, table.IRPJ)
	assert.Equal(t, 1050.0, table.INSSCPP)
	assert.Equal(t, 1210.0, table.TotalDue)
}

func TestExtractTaxTable_AnchorToleratesWhitespace(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
	}{
		{name: "double space", anchor: "Total do Débito Exigível  (R$)"},
		{name: "line break", anchor: "Total do Débito\nExigível (R$)"},
		{name: "words glued", anchor: "Total do DébitoExigível(R$)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, found := ExtractTaxTable(tt.anchor + "\n1,00 2,00 3,00 4,00 5,00 6,00 7,00 8,00 36,00")
			require.True(t, found)
			assert.Equal(t, 36.0, table.TotalDue)
		})
	}
}

func TestExtractTaxTable_WindowLimit(t *testing.T) {
	values := "1,00 2,00 3,00 4,00 5,00 6,00 7,00 8,00 36,00"

	inside := TaxTableAnchor + strings.Repeat(" ", TaxTableWindow-len(values)) + values
	_, found := ExtractTaxTable(inside)
	assert.True(t, found, "values ending exactly at the window edge must be seen")

	outside := TaxTableAnchor + strings.Repeat(" ", TaxTableWindow) + values
	table, found := ExtractTaxTable(outside)
	assert.False(t, found, "values beyond the window must be ignored")
	assert.Equal(t, TaxTable{}, table)
}

func TestExtractTaxTable_WindowCountsCharacters(t *testing.T) {
	values := "1,00 2,00 3,00 4,00 5,00 6,00 7,00 8,00 36,00"
	// Multi-byte padding must count as one character each.
	padding := strings.Repeat("é", TaxTableWindow-len(values))

	_, found := ExtractTaxTable(TaxTableAnchor + padding + values)
	assert.True(t, found)
}

func TestExtractTaxTable_MissingAnchor(t *testing.T) {
	table, found := ExtractTaxTable("1,00 2,00 3,00 4,00 5,00 6,00 7,00 8,00 36,00")
	assert.False(t, found)
	assert.Equal(t, TaxTable{}, table)
}

func TestTaxTable_MapHasEveryKind(t *testing.T) {
	m := TaxTable{}.Map()
	require.Len(t, m, 9)
	for _, kind := range TaxKinds() {
		v, ok := m[kind]
		assert.True(t, ok, "missing kind %s", kind)
		assert.Zero(t, v)
	}
}

func TestTaxTable_Get(t *testing.T) {
	table := TaxTable{ICMS: 12.5, TotalDue: 12.5}
	assert.Equal(t, 12.5, table.Get(KindICMS))
	assert.Equal(t, 12.5, table.Get(KindTotalDue))
	assert.Zero(t, table.Get(KindISS))
	assert.Zero(t, table.Get(TaxKind("unknown")))
}

func TestTaxKinds_Order(t *testing.T) {
	assert.Equal(t, []TaxKind{
		KindIRPJ, KindCSLL, KindCOFINS, KindPISPasep, KindINSSCPP,
		KindICMS, KindIPI, KindISS, KindTotalDue,
	}, TaxKinds())
}
