package domain

// IssueEntry is a compliance issue flattened into the combined report and
// tagged with its originating file.
type IssueEntry struct {
	Document   string   `json:"document"`
	Filename   string   `json:"filename"`
	Section    string   `json:"section"`
	Issue      string   `json:"issue"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion"`
}

// ReviewEntry is a per-document review tagged with its originating file.
type ReviewEntry struct {
	Document        string   `json:"document"`
	Filename        string   `json:"filename"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// CombinedReport aggregates the process inference with every issue and
// review from the batch. Built fresh per batch, immutable once returned.
type CombinedReport struct {
	Process           string        `json:"process"`
	DocumentsUploaded int           `json:"documents_uploaded"`
	RequiredDocuments int           `json:"required_documents"`
	MissingDocuments  []string      `json:"missing_documents"`
	IssuesFound       []IssueEntry  `json:"issues_found"`
	Reviews           []ReviewEntry `json:"reviews"`
}
