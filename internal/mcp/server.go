package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/a3tai/mcp-pgdas-reader/internal/config"
	"github.com/a3tai/mcp-pgdas-reader/internal/descriptions"
	"github.com/a3tai/mcp-pgdas-reader/internal/logger"
	"github.com/a3tai/mcp-pgdas-reader/internal/pdf"
	"github.com/a3tai/mcp-pgdas-reader/internal/pgdas"
	"github.com/a3tai/mcp-pgdas-reader/internal/report"
	"github.com/a3tai/mcp-pgdas-reader/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// serverInfoFileLimit caps the directory listing of pgdas_server_info.
const serverInfoFileLimit = 100

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	reports    *report.Service
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, reports *report.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if reports == nil {
		return nil, fmt.Errorf("report service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool list never changes at runtime
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		reports:    reports,
		mcpServer:  mcpServer,
		logger:     logger.L,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	pathParam := mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the PDF file, absolute or relative to the configured directory"),
	)

	s.mcpServer.AddTool(mcp.NewTool("pgdas_extract_file",
		mcp.WithDescription(descriptions.GetToolDescription("pgdas_extract_file")),
		pathParam,
	), s.handleExtractFile)

	s.mcpServer.AddTool(mcp.NewTool("pgdas_import_file",
		mcp.WithDescription(descriptions.GetToolDescription("pgdas_import_file")),
		pathParam,
	), s.handleImportFile)

	s.mcpServer.AddTool(mcp.NewTool("pgdas_get_report",
		mcp.WithDescription(descriptions.GetToolDescription("pgdas_get_report")),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Id of the stored report"),
		),
	), s.handleGetReport)

	s.mcpServer.AddTool(mcp.NewTool("pgdas_list_reports",
		mcp.WithDescription(descriptions.GetToolDescription("pgdas_list_reports")),
		mcp.WithString("cnpj",
			mcp.Description("Optional CNPJ, formatted as in the declaration (e.g. 12.345.678/0001-99)"),
		),
	), s.handleListReports)

	s.mcpServer.AddTool(mcp.NewTool("pdf_read_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_read_file")),
		pathParam,
	), s.handlePDFReadFile)

	s.mcpServer.AddTool(mcp.NewTool("pdf_validate_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_file")),
		pathParam,
	), s.handlePDFValidateFile)

	s.mcpServer.AddTool(mcp.NewTool("pdf_search_directory",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_search_directory")),
		mcp.WithString("directory",
			mcp.Description("Directory to search (uses the configured directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query matched against file names"),
		),
	), s.handlePDFSearchDirectory)

	s.mcpServer.AddTool(mcp.NewTool("pgdas_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pgdas_server_info")),
	), s.handleServerInfo)
}

// Handler functions
func (s *Server) handleExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.reports.Preview(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Extracted PGDAS declaration: %s\n", path)
	responseText += formatRecordSummary(rec)
	if rec.TaxpayerID == "" || rec.FilingPeriod == "" {
		responseText += "\n⚠️  WARNING: CNPJ or filing period not found. This does not look like a PGDAS-D declaration " +
			"and pgdas_import_file will reject it.\n"
	}

	return jsonResult(responseText, rec)
}

func (s *Server) handleImportFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.reports.ProcessFile(ctx, path)
	if err != nil {
		s.logger.Warn("Import failed", "path", path, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Duplicate {
		responseText = fmt.Sprintf("Declaration %s was not saved: %s (report id %d)\n", path, result.Message, result.RecordID)
	} else {
		responseText = fmt.Sprintf("Declaration %s saved as report id %d\n", path, result.RecordID)
	}
	if result.Record != nil {
		responseText += formatRecordSummary(*result.Record)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := reportID(request.GetArguments()["id"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := s.reports.GetReport(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("report %d not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Report %d (imported %s)\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	return jsonResult(responseText, r)
}

func (s *Server) handleListReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	cnpj := ""
	if c, ok := args["cnpj"].(string); ok {
		cnpj = strings.TrimSpace(c)
	}

	var (
		summaries []store.Summary
		err       error
	)
	if cnpj == "" {
		summaries, err = s.reports.ListReports(ctx)
	} else {
		summaries, err = s.reports.ListReportsByTaxpayer(ctx, cnpj)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(summaries) == 0 {
		if cnpj != "" {
			return mcp.NewToolResultText(fmt.Sprintf("No reports stored for CNPJ %s", cnpj)), nil
		}
		return mcp.NewToolResultText("No reports stored yet"), nil
	}

	return mcp.NewToolResultText(formatSummaries(summaries)), nil
}

func (s *Server) handlePDFReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFReadFile(pdf.PDFReadFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Successfully read PDF: %s\n", result.Path)
	responseText += fmt.Sprintf("Pages: %d\n", result.Pages)
	responseText += fmt.Sprintf("Size: %d bytes\n", result.Size)
	if result.Truncated {
		responseText += "\n⚠️  WARNING: text was truncated at the size limit.\n"
	}
	responseText += "\nContent:\n"
	responseText += result.Content

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFValidateFile(pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d pages)", result.Path, result.Pages)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFSearchDirectory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	args := request.GetArguments()

	directory := ""
	if dir, ok := args["directory"].(string); ok {
		directory = dir
	}

	query := ""
	if q, ok := args["query"].(string); ok {
		query = q
	}

	result, err := s.pdfService.PDFSearchDirectory(pdf.PDFSearchDirectoryRequest{
		Directory: directory,
		Query:     query,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No PDF files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
	} else {
		responseText = formatPDFSearchDirectoryResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.pdfService.ListPDFs(serverInfoFileLimit)
	if err != nil {
		// An unreadable directory still leaves the rest of the info useful
		files = nil
	}

	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Directory: %s\n", s.pdfService.Directory())
	text += fmt.Sprintf("🗄️  Database: %s\n", s.config.DatabasePath)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.pdfService.GetMaxFileSize()/(1024*1024))
	text += fmt.Sprintf("🧮 Revenue pairing: %s\n\n", s.config.RevenueStrategy)

	if len(files) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(files))
		for i, file := range files {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(files)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		text += fmt.Sprintf("\n• %s\n", name)
		text += fmt.Sprintf("  %s\n", firstLine(descriptions.GetToolDescription(name)))
	}

	text += "\nTypical workflow: pdf_search_directory → pgdas_extract_file → pgdas_import_file → pgdas_list_reports\n"

	return mcp.NewToolResultText(text), nil
}

// Formatting helpers

func formatRecordSummary(rec pgdas.Record) string {
	text := fmt.Sprintf("CNPJ: %s\n", orMissing(rec.TaxpayerID))
	text += fmt.Sprintf("Legal name: %s\n", orMissing(rec.LegalName))
	text += fmt.Sprintf("Filing period: %s\n", orMissing(rec.FilingPeriod))
	text += fmt.Sprintf("RBT12: %.2f\n", rec.AccumulatedRevenue12m)
	text += fmt.Sprintf("RBA: %.2f\n", rec.AccumulatedRevenueYear)
	text += fmt.Sprintf("Total due: %.2f\n", rec.Taxes.TotalDue)
	text += fmt.Sprintf("Monthly revenues: %d domestic, %d foreign\n",
		rec.DomesticRevenue.Len(), rec.ForeignRevenue.Len())
	return text
}

func formatSummaries(summaries []store.Summary) string {
	text := fmt.Sprintf("Found %d report(s)\n\n", len(summaries))
	for _, sum := range summaries {
		text += fmt.Sprintf("#%d  %s  %s  %s  (imported %s)\n",
			sum.ID, sum.FilingPeriod, sum.TaxpayerID, orMissing(sum.LegalName),
			sum.CreatedAt.Format("2006-01-02 15:04"))
	}
	return text
}

func formatPDFSearchDirectoryResult(result *pdf.PDFSearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

// jsonResult appends the indented JSON form of v to a text header.
func jsonResult(header string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(header + "\nData:\n" + string(data)), nil
}

// reportID accepts the id as a JSON number or a decimal string.
func reportID(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) || v <= 0 {
			return 0, fmt.Errorf("invalid report id: %v", v)
		}
		return int64(v), nil
	case string:
		return report.ParseID(v)
	case nil:
		return 0, fmt.Errorf("required argument \"id\" not found")
	default:
		return 0, fmt.Errorf("invalid report id: %v", v)
	}
}

func orMissing(s string) string {
	if s == "" {
		return "(not found)"
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Run serves the tools over standard I/O until the client disconnects or
// the process is signalled.
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("Starting PGDAS MCP server in stdio mode",
		"directory", s.pdfService.Directory(), "database", s.config.DatabasePath)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

