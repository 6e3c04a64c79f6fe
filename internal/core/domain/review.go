package domain

import (
	"encoding/json"
	"strings"
)

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// UnmarshalJSON normalizes whatever casing the model returns. Unknown
// values fall back to Low so a sloppy response never drops an issue.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	default:
		*s = SeverityLow
	}
	return nil
}

// Outcome tags how an analysis result was produced, so the fallback policy
// is carried by the value instead of scattered error handling.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// Classification is a single document-type label. A failed classification
// is represented by the sentinel label, never dropped.
type Classification struct {
	Label   string  `json:"label"`
	Outcome Outcome `json:"outcome"`
}

// ClassificationErrorLabel marks a document whose type could not be
// determined.
const ClassificationErrorLabel = "Classification Error"

// ReviewResult is the structured completeness/correctness review. In the
// degraded form Summary holds the raw model text and Recommendations is
// empty.
type ReviewResult struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Outcome         Outcome  `json:"-"`
}

// ComplianceIssue is one finding from the compliance assessment. An empty
// issue list means "no issues found", not "not checked".
type ComplianceIssue struct {
	Section    string   `json:"section"`
	Issue      string   `json:"issue"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion"`
	Citation   string   `json:"citation_if_any,omitempty"`
}

const SectionNotApplicable = "N/A"
