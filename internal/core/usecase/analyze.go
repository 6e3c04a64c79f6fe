package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
	"github.com/kirillkom/corporate-agent/internal/jsonx"
)

// Completions run at zero temperature so identical input yields identical
// reports.
const deterministicTemperature = 0

type AnalyzerConfig struct {
	ClassifyTopK   int
	ReviewTopK     int
	ComplianceTopK int

	ClassifySnippetChars int
	ReviewSnippetChars   int

	CallTimeout time.Duration
}

func (c AnalyzerConfig) normalize() AnalyzerConfig {
	out := c
	if out.ClassifyTopK <= 0 {
		out.ClassifyTopK = 3
	}
	if out.ReviewTopK <= 0 {
		out.ReviewTopK = 2
	}
	if out.ComplianceTopK <= 0 {
		out.ComplianceTopK = 4
	}
	if out.ClassifySnippetChars <= 0 {
		out.ClassifySnippetChars = 2000
	}
	if out.ReviewSnippetChars <= 0 {
		out.ReviewSnippetChars = 4000
	}
	if out.CallTimeout <= 0 {
		out.CallTimeout = 90 * time.Second
	}
	return out
}

// DocumentAnalyzer runs the three retrieval-augmented operations. Every
// operation absorbs transport and parse failures into a typed fallback so
// a single flaky call can never abort a batch.
type DocumentAnalyzer struct {
	embedder  ports.Embedder
	index     ports.SimilarityIndex
	completer ports.Completer
	cfg       AnalyzerConfig
}

func NewDocumentAnalyzer(
	embedder ports.Embedder,
	index ports.SimilarityIndex,
	completer ports.Completer,
	cfg AnalyzerConfig,
) *DocumentAnalyzer {
	return &DocumentAnalyzer{
		embedder:  embedder,
		index:     index,
		completer: completer,
		cfg:       cfg.normalize(),
	}
}

func (a *DocumentAnalyzer) Classify(ctx context.Context, text string) domain.Classification {
	snippet := truncate(text, a.cfg.ClassifySnippetChars)

	raw, err := a.completeWithContext(ctx, snippet, a.cfg.ClassifyTopK, func(passages []domain.Passage) string {
		return buildClassifyPrompt(passages, snippet)
	})
	if err != nil {
		return domain.Classification{Label: domain.ClassificationErrorLabel, Outcome: domain.OutcomeFailed}
	}

	label := cleanClassificationLabel(raw)
	if label == "" {
		return domain.Classification{Label: domain.ClassificationErrorLabel, Outcome: domain.OutcomeFailed}
	}
	return domain.Classification{Label: label, Outcome: domain.OutcomeOK}
}

func (a *DocumentAnalyzer) Review(ctx context.Context, docType, text string) domain.ReviewResult {
	snippet := truncate(text, a.cfg.ReviewSnippetChars)

	raw, err := a.completeWithContext(ctx, snippet, a.cfg.ReviewTopK, func(passages []domain.Passage) string {
		return buildReviewPrompt(passages, docType, snippet)
	})
	if err != nil {
		return domain.ReviewResult{
			Summary:         fmt.Sprintf("Error generating review: %v", err),
			Recommendations: []string{},
			Outcome:         domain.OutcomeFailed,
		}
	}

	var review domain.ReviewResult
	if err := jsonx.Unmarshal(raw, &review); err != nil || strings.TrimSpace(review.Summary) == "" {
		// A parse that yields no summary (e.g. a bare "{}") is as useless
		// as an unparsable one; fall back to the raw completion text.
		return domain.ReviewResult{
			Summary:         raw,
			Recommendations: []string{},
			Outcome:         domain.OutcomeDegraded,
		}
	}
	if review.Recommendations == nil {
		review.Recommendations = []string{}
	}
	review.Outcome = domain.OutcomeOK
	return review
}

func (a *DocumentAnalyzer) AssessCompliance(ctx context.Context, docType, text string) ([]domain.ComplianceIssue, domain.Outcome) {
	snippet := truncate(text, a.cfg.ReviewSnippetChars)

	raw, err := a.completeWithContext(ctx, snippet, a.cfg.ComplianceTopK, func(passages []domain.Passage) string {
		return buildCompliancePrompt(passages, docType, snippet)
	})
	if err != nil {
		return []domain.ComplianceIssue{{
			Section:  domain.SectionNotApplicable,
			Issue:    fmt.Sprintf("Compliance check failed: %v", err),
			Severity: domain.SeverityLow,
		}}, domain.OutcomeFailed
	}

	var issues []domain.ComplianceIssue
	if err := jsonx.Unmarshal(raw, &issues); err != nil {
		return []domain.ComplianceIssue{{
			Section:  domain.SectionNotApplicable,
			Issue:    raw,
			Severity: domain.SeverityLow,
		}}, domain.OutcomeDegraded
	}
	if issues == nil {
		issues = []domain.ComplianceIssue{}
	}
	for i := range issues {
		if issues[i].Section == "" {
			issues[i].Section = domain.SectionNotApplicable
		}
		if issues[i].Severity == "" {
			issues[i].Severity = domain.SeverityLow
		}
	}
	return issues, domain.OutcomeOK
}

// completeWithContext is the shared retrieval shape: embed the query, fetch
// top-k reference passages, compose the operation prompt and run one
// deterministic completion under the per-call timeout.
func (a *DocumentAnalyzer) completeWithContext(
	ctx context.Context,
	query string,
	topK int,
	buildPrompt func([]domain.Passage) string,
) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	vector, err := a.embedder.EmbedQuery(callCtx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	passages, err := a.index.Query(callCtx, vector, topK)
	if err != nil {
		return "", fmt.Errorf("query similarity index: %w", err)
	}

	raw, err := a.completer.Complete(callCtx, buildPrompt(passages), deterministicTemperature)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return raw, nil
}

// cleanClassificationLabel strips quotes and, when the engine ignored the
// output contract and answered with JSON, digs the label out of the usual
// wrapper keys.
func cleanClassificationLabel(raw string) string {
	if value, err := jsonx.Extract(raw); err == nil {
		var wrapper map[string]any
		if err := json.Unmarshal(value, &wrapper); err == nil {
			for _, key := range []string{"result", "answer", "type", "label"} {
				if s, ok := wrapper[key].(string); ok && strings.TrimSpace(s) != "" {
					raw = s
					break
				}
			}
		}
	}
	label := strings.TrimSpace(raw)
	label = strings.Trim(label, `"`)
	// Models occasionally prefix the answer; keep the first line only.
	if idx := strings.IndexByte(label, '\n'); idx > 0 {
		label = strings.TrimSpace(label[:idx])
	}
	return label
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit]
}
