package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

const commentPrefix = "[AI COMMENT] "

// Annotator produces an annotated copy of a DOCX document: a review
// summary block appended to the body plus styled inline comments inserted
// immediately before the paragraphs they refer to. The input bytes are
// never modified.
type Annotator struct{}

func NewAnnotator() *Annotator {
	return &Annotator{}
}

func (a *Annotator) Annotate(doc *domain.ParsedDocument, annotation domain.Annotation) ([]byte, error) {
	source, err := readDocumentPart(doc.Raw)
	if err != nil {
		return nil, err
	}
	model, err := scanDocument(source)
	if err != nil {
		return nil, err
	}

	rewritten := rewriteDocumentXML(model, annotation)
	return rewriteArchive(doc.Raw, rewritten)
}

// rewriteDocumentXML splices the comment paragraphs and the summary block
// into word/document.xml. Inline comments land directly before their
// target paragraph, preserving input order when several share one anchor;
// the summary block goes at the end of the body.
func rewriteDocumentXML(model *docModel, annotation domain.Annotation) []byte {
	commentsByIndex := make(map[int][]string)
	order := make([]int, 0, len(annotation.Comments))
	for _, comment := range annotation.Comments {
		index := comment.Index
		if index < 0 || index >= len(model.Paragraphs) {
			index = 0
		}
		if _, seen := commentsByIndex[index]; !seen {
			order = append(order, index)
		}
		commentsByIndex[index] = append(commentsByIndex[index], comment.Text)
	}
	sort.Ints(order)

	var out bytes.Buffer
	out.Grow(len(model.Source) + 1024)

	cursor := int64(0)
	for _, index := range order {
		span := model.Paragraphs[index]
		out.Write(model.Source[cursor:span.Start])
		for _, text := range commentsByIndex[index] {
			out.WriteString(commentParagraphXML(commentPrefix + text))
		}
		cursor = span.Start
	}
	out.Write(model.Source[cursor:model.BodyInsert])
	out.WriteString(summaryBlockXML(annotation.Summary))
	out.Write(model.Source[model.BodyInsert:])

	return out.Bytes()
}

func summaryBlockXML(summary domain.SummaryBlock) string {
	var b strings.Builder
	b.WriteString(boldParagraphXML("=== AI REVIEW SUMMARY ==="))
	b.WriteString(plainParagraphXML(fmt.Sprintf("Document Type: %s", summary.DocumentType)))
	b.WriteString(plainParagraphXML("Summary:"))
	b.WriteString(plainParagraphXML(fmt.Sprintf("- %s", summary.Summary)))
	b.WriteString(plainParagraphXML(fmt.Sprintf("Issues Found (%d):", len(summary.Issues))))
	for i, issue := range summary.Issues {
		b.WriteString(plainParagraphXML(fmt.Sprintf("%d. %s", i+1, issue)))
	}
	if len(summary.Recommendations) > 0 {
		b.WriteString(plainParagraphXML("Recommendations:"))
		for _, rec := range summary.Recommendations {
			b.WriteString(plainParagraphXML(fmt.Sprintf("- %s", rec)))
		}
	}
	return b.String()
}

func plainParagraphXML(text string) string {
	return fmt.Sprintf(`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escapeXML(text))
}

func boldParagraphXML(text string) string {
	return fmt.Sprintf(`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escapeXML(text))
}

// commentParagraphXML renders an inline comment: italic, 9pt, blue.
func commentParagraphXML(text string) string {
	return fmt.Sprintf(
		`<w:p><w:r><w:rPr><w:i/><w:color w:val="0066CC"/><w:sz w:val="18"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		escapeXML(text),
	)
}

func escapeXML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// rewriteArchive copies every entry of the original ZIP, substituting the
// rewritten word/document.xml.
func rewriteArchive(original, documentXML []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(original), int64(len(original)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	var out bytes.Buffer
	writer := zip.NewWriter(&out)

	for _, f := range reader.File {
		header := f.FileHeader
		w, err := writer.CreateHeader(&header)
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("writing ZIP entry %s: %w", f.Name, err)
		}
		if f.Name == documentPart {
			if _, err := w.Write(documentXML); err != nil {
				writer.Close()
				return nil, fmt.Errorf("writing %s: %w", documentPart, err)
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("reading ZIP entry %s: %w", f.Name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			writer.Close()
			return nil, fmt.Errorf("copying ZIP entry %s: %w", f.Name, err)
		}
		rc.Close()
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing ZIP archive: %w", err)
	}
	return out.Bytes(), nil
}
