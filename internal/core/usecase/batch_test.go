package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

// seqCompleter answers classification prompts from a queue so each document
// in a batch can receive its own label.
type seqCompleter struct {
	classifications []string
	review          string
	compliance      string
	err             error
}

func (s *seqCompleter) Complete(_ context.Context, prompt string, _ float64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	switch {
	case strings.Contains(prompt, "document classifier"):
		if len(s.classifications) == 0 {
			return "Unknown Document Type", nil
		}
		next := s.classifications[0]
		s.classifications = s.classifications[1:]
		return next, nil
	case strings.Contains(prompt, "document reviewer"):
		return s.review, nil
	case strings.Contains(prompt, "compliance assistant"):
		return s.compliance, nil
	}
	return "", nil
}

func newReviewUseCase(completer ports.Completer, embedder *stubEmbedder) *ReviewBatchUseCase {
	analyzer := NewDocumentAnalyzer(embedder, &stubIndex{}, completer, AnalyzerConfig{})
	locator := NewSemanticLocator(embedder, 0.4)
	checklist := NewChecklistEngine(testMapping, embedder, 0.75)
	return NewReviewBatchUseCase(
		[]ports.DocumentParser{linesParser{}},
		map[domain.DocumentFormat]ports.DocumentAnnotator{domain.FormatText: markerAnnotator{}},
		analyzer,
		locator,
		checklist,
		nil,
		nil,
	)
}

// recordingObserver collects per-document outcomes in arrival order.
type recordingObserver struct {
	outcomes []domain.Outcome
}

func (o *recordingObserver) ObserveDocumentOutcome(outcome domain.Outcome) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestRunProducesCombinedReportForTwoDocuments(t *testing.T) {
	completer := &seqCompleter{
		classifications: []string{"Articles of Association", "Memorandum of Association"},
		review:          `{"summary": "Reviewed.", "recommendations": ["Tighten clause 2"]}`,
		compliance:      `[{"section": "Clause 2. Courts", "issue": "Wrong jurisdiction", "severity": "High", "suggestion": "Use ADGM Courts"}]`,
	}
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"Clause 2. Courts":                  {0, 1, 0, 0},
			"Incorporation Application Form":    {0, 0, 1, 0},
			"UBO Declaration Form":              {0, 0, 0, 1},
			"Register of Members and Directors": {0, 1, 1, 0},
		},
		def: []float32{1, 0, 0, 0},
	}
	uc := newReviewUseCase(completer, embedder)

	uploads := []domain.Upload{
		{Filename: "aoa.txt", Content: []byte("Clause 1. Name\nClause 2. Courts")},
		{Filename: "moa.txt", Content: []byte("Object of the company")},
	}
	annotated, report, err := uc.Run(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Process != "Company Incorporation" {
		t.Fatalf("process = %q", report.Process)
	}
	if report.DocumentsUploaded != 2 || report.RequiredDocuments != 5 {
		t.Fatalf("counts = %d/%d", report.DocumentsUploaded, report.RequiredDocuments)
	}
	if len(report.MissingDocuments) != 3 {
		t.Fatalf("missing = %v", report.MissingDocuments)
	}

	if len(report.IssuesFound) != 2 {
		t.Fatalf("issues = %+v", report.IssuesFound)
	}
	first := report.IssuesFound[0]
	if first.Document != "Articles of Association" || first.Filename != "aoa.txt" {
		t.Fatalf("issue attribution = %+v", first)
	}
	if first.Severity != domain.SeverityHigh {
		t.Fatalf("severity = %s", first.Severity)
	}

	if len(report.Reviews) != 2 {
		t.Fatalf("reviews = %+v", report.Reviews)
	}
	if report.Reviews[0].Filename != "aoa.txt" || report.Reviews[1].Filename != "moa.txt" {
		t.Fatalf("review order = %+v", report.Reviews)
	}

	if len(annotated) != 2 {
		t.Fatalf("annotated = %d", len(annotated))
	}
	content := string(annotated[0].Content)
	if !strings.Contains(content, "annotated:aoa.txt") {
		t.Fatalf("annotated content = %q", content)
	}
	if !strings.Contains(content, "comment@Wrong jurisdiction | Suggestion: Use ADGM Courts") {
		t.Fatalf("comment text missing: %q", content)
	}
	if !strings.Contains(content, "type:Articles of Association") {
		t.Fatalf("summary type missing: %q", content)
	}
}

func TestRunSurvivesTotalInferenceFailure(t *testing.T) {
	completer := &seqCompleter{err: errors.New("model down")}
	uc := newReviewUseCase(completer, &stubEmbedder{})

	uploads := []domain.Upload{
		{Filename: "a.txt", Content: []byte("alpha")},
		{Filename: "b.txt", Content: []byte("beta")},
	}
	annotated, report, err := uc.Run(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Run() error = %v, batch must absorb analysis failures", err)
	}

	if len(annotated) != 2 {
		t.Fatalf("annotated = %d", len(annotated))
	}
	for _, review := range report.Reviews {
		if review.Document != domain.ClassificationErrorLabel {
			t.Fatalf("label = %q, want sentinel", review.Document)
		}
	}
	// One synthetic Low issue per document.
	if len(report.IssuesFound) != 2 {
		t.Fatalf("issues = %+v", report.IssuesFound)
	}
	for _, issue := range report.IssuesFound {
		if issue.Severity != domain.SeverityLow || issue.Section != domain.SectionNotApplicable {
			t.Fatalf("synthetic issue = %+v", issue)
		}
	}
	if report.Process == "" {
		t.Fatalf("process inference must still run")
	}
}

func TestRunKeepsUnparsableDocumentBytes(t *testing.T) {
	completer := &seqCompleter{
		classifications: []string{"Articles of Association"},
		review:          `{"summary": "Reviewed.", "recommendations": []}`,
		compliance:      "[]",
	}
	uc := newReviewUseCase(completer, &stubEmbedder{})

	original := []byte{0x25, 0x50, 0x44, 0x46, 0x00}
	uploads := []domain.Upload{
		{Filename: "scan.bin", Content: original},
		{Filename: "aoa.txt", Content: []byte("Clause 1. Name")},
	}
	annotated, report, err := uc.Run(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !bytes.Equal(annotated[0].Content, original) {
		t.Fatalf("unparsable document must pass through unchanged")
	}
	if report.Reviews[0].Document != domain.ClassificationErrorLabel {
		t.Fatalf("label = %q", report.Reviews[0].Document)
	}
	if !strings.Contains(report.Reviews[0].Summary, "could not be parsed") {
		t.Fatalf("summary = %q", report.Reviews[0].Summary)
	}
	if report.Reviews[1].Document != "Articles of Association" {
		t.Fatalf("healthy document mislabeled: %q", report.Reviews[1].Document)
	}
}

func TestRunYieldsIdenticalReportForIdenticalInput(t *testing.T) {
	newFixture := func() *ReviewBatchUseCase {
		completer := &seqCompleter{
			classifications: []string{"Articles of Association", "Memorandum of Association"},
			review:          `{"summary": "Reviewed.", "recommendations": ["Tighten clause 2"]}`,
			compliance:      `[{"section": "Clause 2. Courts", "issue": "Wrong jurisdiction", "severity": "High", "suggestion": "Use ADGM Courts"}]`,
		}
		embedder := &stubEmbedder{
			vectors: map[string][]float32{
				"Clause 2. Courts":                  {0, 1, 0, 0},
				"Incorporation Application Form":    {0, 0, 1, 0},
				"UBO Declaration Form":              {0, 0, 0, 1},
				"Register of Members and Directors": {0, 1, 1, 0},
			},
			def: []float32{1, 0, 0, 0},
		}
		return newReviewUseCase(completer, embedder)
	}
	uploads := func() []domain.Upload {
		return []domain.Upload{
			{Filename: "aoa.txt", Content: []byte("Clause 1. Name\nClause 2. Courts")},
			{Filename: "moa.txt", Content: []byte("Object of the company")},
		}
	}

	annotatedA, reportA, err := newFixture().Run(context.Background(), uploads())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	annotatedB, reportB, err := newFixture().Run(context.Background(), uploads())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	jsonA, err := json.Marshal(reportA)
	if err != nil {
		t.Fatalf("marshal first report: %v", err)
	}
	jsonB, err := json.Marshal(reportB)
	if err != nil {
		t.Fatalf("marshal second report: %v", err)
	}
	if !bytes.Equal(jsonA, jsonB) {
		t.Fatalf("reports differ:\n%s\n%s", jsonA, jsonB)
	}

	if len(annotatedA) != len(annotatedB) {
		t.Fatalf("annotated counts differ: %d vs %d", len(annotatedA), len(annotatedB))
	}
	for i := range annotatedA {
		if !bytes.Equal(annotatedA[i].Content, annotatedB[i].Content) {
			t.Fatalf("annotated %q differs between runs", annotatedA[i].Filename)
		}
	}
}

func TestRunReportsPerDocumentOutcomes(t *testing.T) {
	completer := &seqCompleter{
		classifications: []string{"Articles of Association"},
		review:          `{"summary": "Reviewed.", "recommendations": []}`,
		compliance:      "[]",
	}
	observer := &recordingObserver{}
	analyzer := NewDocumentAnalyzer(&stubEmbedder{}, &stubIndex{}, completer, AnalyzerConfig{})
	uc := NewReviewBatchUseCase(
		[]ports.DocumentParser{linesParser{}},
		map[domain.DocumentFormat]ports.DocumentAnnotator{domain.FormatText: markerAnnotator{}},
		analyzer,
		NewSemanticLocator(&stubEmbedder{}, 0.4),
		NewChecklistEngine(testMapping, &stubEmbedder{}, 0.75),
		observer,
		nil,
	)

	uploads := []domain.Upload{
		{Filename: "aoa.txt", Content: []byte("Clause 1. Name")},
		{Filename: "scan.bin", Content: []byte{0x00, 0x01}},
	}
	if _, _, err := uc.Run(context.Background(), uploads); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []domain.Outcome{domain.OutcomeOK, domain.OutcomeFailed}
	if len(observer.outcomes) != len(want) {
		t.Fatalf("outcomes = %v", observer.outcomes)
	}
	for i, outcome := range want {
		if observer.outcomes[i] != outcome {
			t.Fatalf("outcome[%d] = %s, want %s", i, observer.outcomes[i], outcome)
		}
	}
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	uc := newReviewUseCase(&seqCompleter{}, &stubEmbedder{})

	_, _, err := uc.Run(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
