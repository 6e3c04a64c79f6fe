package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

const (
	summarySheet = "Summary"
	issuesSheet  = "Issues"
	reviewsSheet = "Reviews"
)

// Exporter renders a combined report as an xlsx workbook with one sheet per
// report section.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(report *domain.CombinedReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("export report: report is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummary(f, report); err != nil {
		return nil, err
	}
	if err := writeIssues(f, report.IssuesFound); err != nil {
		return nil, err
	}
	if err := writeReviews(f, report.Reviews); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, report *domain.CombinedReport) error {
	rows := [][]any{
		{"Process", report.Process},
		{"Documents uploaded", report.DocumentsUploaded},
		{"Documents required", report.RequiredDocuments},
		{"Missing documents", strings.Join(report.MissingDocuments, "; ")},
		{"Issues found", len(report.IssuesFound)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func writeIssues(f *excelize.File, issues []domain.IssueEntry) error {
	if _, err := f.NewSheet(issuesSheet); err != nil {
		return fmt.Errorf("create issues sheet: %w", err)
	}
	header := []any{"Document", "Filename", "Section", "Issue", "Severity", "Suggestion"}
	if err := f.SetSheetRow(issuesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write issues header: %w", err)
	}
	for i, issue := range issues {
		row := []any{issue.Document, issue.Filename, issue.Section, issue.Issue, string(issue.Severity), issue.Suggestion}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("issues cell: %w", err)
		}
		if err := f.SetSheetRow(issuesSheet, cell, &row); err != nil {
			return fmt.Errorf("write issue row: %w", err)
		}
	}
	return nil
}

func writeReviews(f *excelize.File, reviews []domain.ReviewEntry) error {
	if _, err := f.NewSheet(reviewsSheet); err != nil {
		return fmt.Errorf("create reviews sheet: %w", err)
	}
	header := []any{"Document", "Filename", "Summary", "Recommendations"}
	if err := f.SetSheetRow(reviewsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write reviews header: %w", err)
	}
	for i, review := range reviews {
		row := []any{review.Document, review.Filename, review.Summary, strings.Join(review.Recommendations, "; ")}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("reviews cell: %w", err)
		}
		if err := f.SetSheetRow(reviewsSheet, cell, &row); err != nil {
			return fmt.Errorf("write review row: %w", err)
		}
	}
	return nil
}
