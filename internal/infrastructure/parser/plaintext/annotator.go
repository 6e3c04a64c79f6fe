package plaintext

import (
	"fmt"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

const commentPrefix = "[AI COMMENT] "

// Annotator renders the annotated copy of a text-format document (plain
// text and PDF transcripts) with the same comment-placement semantics as
// the DOCX annotator.
type Annotator struct{}

func NewAnnotator() *Annotator {
	return &Annotator{}
}

func (a *Annotator) Annotate(doc *domain.ParsedDocument, annotation domain.Annotation) ([]byte, error) {
	commentsByIndex := make(map[int][]string)
	for _, comment := range annotation.Comments {
		index := comment.Index
		if index < 0 || index >= len(doc.Paragraphs) {
			index = 0
		}
		commentsByIndex[index] = append(commentsByIndex[index], comment.Text)
	}

	var b strings.Builder
	for i, paragraph := range doc.Paragraphs {
		for _, text := range commentsByIndex[i] {
			b.WriteString(commentPrefix)
			b.WriteString(text)
			b.WriteByte('\n')
		}
		b.WriteString(paragraph)
		b.WriteByte('\n')
	}

	b.WriteString("\n=== AI REVIEW SUMMARY ===\n")
	fmt.Fprintf(&b, "Document Type: %s\n", annotation.Summary.DocumentType)
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- %s\n", annotation.Summary.Summary)
	fmt.Fprintf(&b, "Issues Found (%d):\n", len(annotation.Summary.Issues))
	for i, issue := range annotation.Summary.Issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
	}
	if len(annotation.Summary.Recommendations) > 0 {
		b.WriteString("Recommendations:\n")
		for _, rec := range annotation.Summary.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	return []byte(b.String()), nil
}
