package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Declaration tools
	PGDASExtractFileDescription = `Extract the structured data of a PGDAS-D (Simples Nacional) declaration PDF without saving it.

**When to use:** Need to look at what a declaration contains, or check that a file is really a PGDAS-D statement, before importing it.

**What you get:** CNPJ, legal name, filing period (PA), RBT12 and RBA, the nine tax values of the "Total do Débito Exigível" table (IRPJ, CSLL, COFINS, PIS/Pasep, INSS/CPP, ICMS, IPI, ISS and total) and the previous monthly revenues split into domestic (Mercado Interno) and foreign (Mercado Externo) markets, in document order. The "found" object tells which fields were located in the text; a missing field is reported as empty or zero.

**Examples:**
• "What is the total tax due in PGDASD-202301.pdf?"
• "Show the monthly domestic revenues declared in 2023/janeiro.pdf"

**Best practices:** Amounts are in reais with the Brazilian comma decimal separator already converted. Use pgdas_import_file to store the declaration once the preview looks right.`

	PGDASImportFileDescription = `Extract a PGDAS-D declaration PDF and store it.

**When to use:** Building the history of a company's Simples Nacional filings.

**Behavior:**
• Documents without a CNPJ or filing period are rejected as unsupported.
• A declaration is stored once per CNPJ and filing period. Importing the same declaration again reports it as already processed and returns the id of the stored report.

**Common workflows:**
1. pdf_search_directory → pgdas_import_file for each declaration → pgdas_list_reports
2. pgdas_extract_file to preview → pgdas_import_file to save

**Best practices:** Paths may be absolute or relative to the configured directory.`

	PGDASGetReportDescription = `Fetch a stored declaration by its numeric id.

**When to use:** After an import or a listing, to get the full data of one report including taxes and monthly revenues.

**Examples:**
• "Show report 12"
• "Compare the ICMS of reports 3 and 4"`

	PGDASListReportsDescription = `List stored declarations.

**When to use:** Discover what has been imported. Without a CNPJ the newest imports come first; with a CNPJ only that company's reports are listed, latest filing period first.

**Examples:**
• "Which declarations have been imported?"
• "List the reports of CNPJ 12.345.678/0001-99"`

	// PDF tools
	PDFReadFileDescription = `Return the plain text of a PDF exactly as the declaration extractor sees it.

**When to use:** A declaration is missing fields after extraction and you want to inspect the raw text, for example to see whether the layout differs from the usual PGDAS-D statement.

**Best practices:** Pages are joined with a newline. Scanned PDFs have no text layer and return an error.`

	PDFValidateFileDescription = `Verify that a file is a structurally valid, readable PDF and report its page count.

**When to use:** Before importing files of unknown origin.

**Best practices:** Validation does not check that the PDF is a PGDAS-D declaration; use pgdas_extract_file for that.`

	PDFSearchDirectoryDescription = `Find PDF files in the configured directory or one of its subdirectories.

**When to use:** Locate declarations to import.

**Examples:**
• "Find all declarations" (no query)
• "Find the 2023 declarations" (query: "2023")

**Best practices:** The query matches words of the file name, case-insensitively. Hidden directories are skipped.`

	PGDASServerInfoDescription = `Get server information, the available tools, the configured directory and a sample of its PDF files.

**When to use:** Start of a session, to learn what the server can do and where it looks for files.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pgdas_extract_file":   PGDASExtractFileDescription,
	"pgdas_import_file":    PGDASImportFileDescription,
	"pgdas_get_report":     PGDASGetReportDescription,
	"pgdas_list_reports":   PGDASListReportsDescription,
	"pdf_read_file":        PDFReadFileDescription,
	"pdf_validate_file":    PDFValidateFileDescription,
	"pdf_search_directory": PDFSearchDirectoryDescription,
	"pgdas_server_info":    PGDASServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
