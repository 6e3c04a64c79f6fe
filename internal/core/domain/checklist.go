package domain

// ChecklistMapping maps a filing-process name to its ordered list of
// required document-type labels. Loaded once at startup, read-only after.
type ChecklistMapping map[string][]string

// ProcessInference is the checklist engine's verdict for one batch.
type ProcessInference struct {
	Process  string   `json:"process"`
	Required []string `json:"required_documents"`
	Uploaded []string `json:"uploaded_documents"`
	Missing  []string `json:"missing_documents"`
}
