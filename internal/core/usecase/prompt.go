package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

func renderContext(passages []domain.Passage) string {
	var b strings.Builder
	for i, p := range passages {
		b.WriteString(fmt.Sprintf("[%d] source=%s\n%s\n\n", i+1, p.Source, p.Text))
	}
	return b.String()
}

func buildClassifyPrompt(passages []domain.Passage, snippet string) string {
	return fmt.Sprintf(`You are an ADGM corporate document classifier.
Given the reference context and the document snippet, return ONLY the document type as a short name.
Known types: Articles of Association, Memorandum of Association, Incorporation Application Form, UBO Declaration Form, Register of Members and Directors.
If not sure, return "Unknown Document Type".
Return the type only, nothing else.

Context:
%s
Document snippet:
%s`, renderContext(passages), snippet)
}

func buildReviewPrompt(passages []domain.Passage, docType, snippet string) string {
	return fmt.Sprintf(`You are an ADGM legal document reviewer.
Given the reference context, evaluate the document's completeness and correctness.

Return ONLY a strict JSON object with the keys:
- "summary": (string) concise summary of the document's overall compliance status.
- "recommendations": (array of strings) specific suggestions to improve compliance, fix issues, or clarify clauses.

Do not add any text outside the JSON object. No markdown, no explanations.

Context:
%s
Review the following %s for completeness and correctness:
%s`, renderContext(passages), docType, snippet)
}

func buildCompliancePrompt(passages []domain.Passage, docType, snippet string) string {
	return fmt.Sprintf(`You are an ADGM legal compliance assistant.
Use the reference context to check whether the document is compliant with ADGM regulations.

Return your answer ONLY as a strict JSON array. Each element must have the keys:
- "section" (string, section or clause identifier, or "N/A")
- "issue" (string, short description of the problem)
- "severity" (string, one of: Low, Medium, High)
- "suggestion" (string, suggested fix)
- "citation_if_any" (string, legal reference if applicable, else "")

If there are no issues, return [].
Do not add any explanations or commentary outside the JSON.

Context:
%s
Check compliance for %s:
%s`, renderContext(passages), docType, snippet)
}
