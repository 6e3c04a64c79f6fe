package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

// ReviewBatchUseCase drives the full pipeline over one uploaded batch:
// parse, classify, review, assess compliance and annotate each document,
// then infer the filing process and build the combined report. Per-document
// failures are isolated to their slot; the batch itself only fails on
// unrecoverable preconditions.
type ReviewBatchUseCase struct {
	parsers    []ports.DocumentParser
	annotators map[domain.DocumentFormat]ports.DocumentAnnotator
	analyzer   *DocumentAnalyzer
	locator    *SemanticLocator
	checklist  *ChecklistEngine
	observer   ports.AnalysisObserver
	logger     *slog.Logger
}

func NewReviewBatchUseCase(
	parsers []ports.DocumentParser,
	annotators map[domain.DocumentFormat]ports.DocumentAnnotator,
	analyzer *DocumentAnalyzer,
	locator *SemanticLocator,
	checklist *ChecklistEngine,
	observer ports.AnalysisObserver,
	logger *slog.Logger,
) *ReviewBatchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewBatchUseCase{
		parsers:    parsers,
		annotators: annotators,
		analyzer:   analyzer,
		locator:    locator,
		checklist:  checklist,
		observer:   observer,
		logger:     logger,
	}
}

type documentResult struct {
	parsed   *domain.ParsedDocument
	label    string
	review   domain.ReviewResult
	issues   []domain.ComplianceIssue
	outcome  domain.Outcome
	parseErr error
}

// Run analyzes the batch in input order and returns one annotated copy per
// upload plus the combined report. Output order matches input order.
func (uc *ReviewBatchUseCase) Run(ctx context.Context, uploads []domain.Upload) ([]domain.AnnotatedDocument, *domain.CombinedReport, error) {
	if len(uploads) == 0 {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "review batch", fmt.Errorf("no documents uploaded"))
	}

	results := make([]documentResult, 0, len(uploads))
	detected := make([]string, 0, len(uploads))

	for _, upload := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		result := uc.analyzeDocument(ctx, upload)
		if uc.observer != nil {
			uc.observer.ObserveDocumentOutcome(result.outcome)
		}
		results = append(results, result)
		detected = append(detected, result.label)
	}

	inference := uc.checklist.InferProcess(ctx, detected)

	report := &domain.CombinedReport{
		Process:           inference.Process,
		DocumentsUploaded: len(uploads),
		RequiredDocuments: len(inference.Required),
		MissingDocuments:  inference.Missing,
		IssuesFound:       []domain.IssueEntry{},
		Reviews:           []domain.ReviewEntry{},
	}

	annotated := make([]domain.AnnotatedDocument, 0, len(uploads))
	for _, result := range results {
		for _, issue := range result.issues {
			report.IssuesFound = append(report.IssuesFound, domain.IssueEntry{
				Document:   result.label,
				Filename:   result.parsed.Filename,
				Section:    issue.Section,
				Issue:      issue.Issue,
				Severity:   issue.Severity,
				Suggestion: issue.Suggestion,
			})
		}
		report.Reviews = append(report.Reviews, domain.ReviewEntry{
			Document:        result.label,
			Filename:        result.parsed.Filename,
			Summary:         result.review.Summary,
			Recommendations: result.review.Recommendations,
		})

		annotated = append(annotated, domain.AnnotatedDocument{
			Filename: result.parsed.Filename,
			Content:  uc.annotateDocument(ctx, result),
		})
	}

	return annotated, report, nil
}

// analyzeDocument runs the per-document stages. A parse failure records an
// empty paragraph set and degraded results instead of surfacing.
func (uc *ReviewBatchUseCase) analyzeDocument(ctx context.Context, upload domain.Upload) documentResult {
	parsed, err := uc.parse(upload)
	if err != nil {
		uc.logger.Warn("document parse failed", "filename", upload.Filename, "error", err)
		return documentResult{
			parsed: &domain.ParsedDocument{
				Filename: upload.Filename,
				Format:   domain.FormatText,
				Raw:      upload.Content,
			},
			label: domain.ClassificationErrorLabel,
			review: domain.ReviewResult{
				Summary:         fmt.Sprintf("Document could not be parsed: %v", err),
				Recommendations: []string{},
				Outcome:         domain.OutcomeFailed,
			},
			issues:   []domain.ComplianceIssue{},
			outcome:  domain.OutcomeFailed,
			parseErr: err,
		}
	}

	fullText := strings.Join(parsed.Paragraphs, "\n")

	classification := uc.analyzer.Classify(ctx, fullText)
	if classification.Outcome != domain.OutcomeOK {
		uc.logger.Warn("classification degraded", "filename", parsed.Filename, "outcome", classification.Outcome)
	}

	review := uc.analyzer.Review(ctx, classification.Label, fullText)
	if review.Outcome != domain.OutcomeOK {
		uc.logger.Warn("review degraded", "filename", parsed.Filename, "outcome", review.Outcome)
	}

	issues, issuesOutcome := uc.analyzer.AssessCompliance(ctx, classification.Label, fullText)
	if issuesOutcome != domain.OutcomeOK {
		uc.logger.Warn("compliance assessment degraded", "filename", parsed.Filename, "outcome", issuesOutcome)
	}

	overall := worseOutcome(classification.Outcome, review.Outcome)
	overall = worseOutcome(overall, issuesOutcome)

	return documentResult{
		parsed:  parsed,
		label:   classification.Label,
		review:  review,
		issues:  issues,
		outcome: overall,
	}
}

// worseOutcome orders failed > degraded > ok so a document's overall outcome
// reflects its weakest analysis stage.
func worseOutcome(a, b domain.Outcome) domain.Outcome {
	rank := func(o domain.Outcome) int {
		switch o {
		case domain.OutcomeFailed:
			return 2
		case domain.OutcomeDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func (uc *ReviewBatchUseCase) parse(upload domain.Upload) (*domain.ParsedDocument, error) {
	for _, parser := range uc.parsers {
		if !parser.Supports(upload.Filename) {
			continue
		}
		parsed, err := parser.Parse(upload.Filename, upload.Content)
		if err != nil {
			return nil, domain.WrapError(domain.ErrUnparsable, "parse document", err)
		}
		return parsed, nil
	}
	return nil, domain.WrapError(domain.ErrUnparsable, "parse document", fmt.Errorf("no parser for %s", upload.Filename))
}

// annotateDocument renders the annotated copy. When the document could not
// be parsed there is nothing to anchor comments to, so the original bytes
// come back unchanged; the report entry still records the failure.
func (uc *ReviewBatchUseCase) annotateDocument(ctx context.Context, result documentResult) []byte {
	if result.parseErr != nil {
		return append([]byte(nil), result.parsed.Raw...)
	}

	annotator, ok := uc.annotators[result.parsed.Format]
	if !ok {
		uc.logger.Warn("no annotator for format", "filename", result.parsed.Filename, "format", result.parsed.Format)
		return append([]byte(nil), result.parsed.Raw...)
	}

	content, err := annotator.Annotate(result.parsed, uc.buildAnnotation(ctx, result))
	if err != nil {
		uc.logger.Warn("annotation failed", "filename", result.parsed.Filename, "error", err)
		return append([]byte(nil), result.parsed.Raw...)
	}
	return content
}

// buildAnnotation places each issue comment: the section identifier is
// tried first, then the issue text, then the guaranteed first-paragraph
// anchor. A comment is never dropped.
func (uc *ReviewBatchUseCase) buildAnnotation(ctx context.Context, result documentResult) domain.Annotation {
	summary := domain.SummaryBlock{
		DocumentType:    result.label,
		Summary:         result.review.Summary,
		Recommendations: result.review.Recommendations,
	}
	for _, issue := range result.issues {
		summary.Issues = append(summary.Issues, issue.Issue)
	}

	comments := make([]domain.PlacedComment, 0, len(result.issues))
	for _, issue := range result.issues {
		index := 0
		if issue.Section != "" && issue.Section != domain.SectionNotApplicable {
			if i, ok := uc.locate(ctx, result.parsed, issue.Section); ok {
				index = i
				comments = append(comments, domain.PlacedComment{Index: index, Text: commentText(issue)})
				continue
			}
		}
		if i, ok := uc.locate(ctx, result.parsed, issue.Issue); ok {
			index = i
		}
		comments = append(comments, domain.PlacedComment{Index: index, Text: commentText(issue)})
	}

	return domain.Annotation{Summary: summary, Comments: comments}
}

func (uc *ReviewBatchUseCase) locate(ctx context.Context, parsed *domain.ParsedDocument, target string) (int, bool) {
	index, ok, err := uc.locator.Locate(ctx, parsed.Paragraphs, target)
	if err != nil {
		uc.logger.Warn("locate failed", "filename", parsed.Filename, "error", err)
		return 0, false
	}
	return index, ok
}

func commentText(issue domain.ComplianceIssue) string {
	return fmt.Sprintf("%s | Suggestion: %s", issue.Issue, issue.Suggestion)
}
