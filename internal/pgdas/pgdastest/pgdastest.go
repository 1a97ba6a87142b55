// Package pgdastest provides declaration texts for tests of the packages
// built on top of the extraction engine.
package pgdastest

import "fmt"

// Taxpayer and period of Declaration's default values.
const (
	TaxpayerID   = "12.345.678/0001-99"
	LegalName    = "ACME COMERCIO LTDA"
	FilingPeriod = "01/2023"
	TotalDue     = 2850.0
)

// Declaration returns the text of a PGDAS-D statement for the given taxpayer
// id and filing period, laid out the way PDF text extraction produces it.
func Declaration(taxpayerID, period string) string {
	return fmt.Sprintf(`MINISTÉRIO DA FAZENDA
Programa Gerador do Documento de Arrecadação do Simples Nacional - Declaratório
Período de Apuração: %s
CNPJ Matriz: %s
Nome empresarial: %s
2.1) Discriminativo de Receitas
Receita bruta acumulada nos doze meses anteriores
ao PA (RBT12)
1.234.567,89
Receita bruta acumulada no ano-calendário corrente
(RBA)
98.765,43
2.2) Receitas Brutas Anteriores (R$)
2.2.1) Mercado Interno
01/2022
100.000,00
02/2022
102.500,50
2.2.2) Mercado Externo
01/2022
1.000,00
2.3) Folha de Salários Anteriores (R$)
01/2022
5.000,00
Total do Débito Exigível (R$)
100,00
200,00
300,00
50,00
1.500,00
700,00
0,00
0,00
2.850,00
`, period, taxpayerID, LegalName)
}

// Default returns Declaration(TaxpayerID, FilingPeriod).
func Default() string {
	return Declaration(TaxpayerID, FilingPeriod)
}

// Unsupported returns a text without a taxpayer id.
func Unsupported() string {
	return "Nota Fiscal de Serviços Eletrônica\nValor total: 1.000,00\n"
}
