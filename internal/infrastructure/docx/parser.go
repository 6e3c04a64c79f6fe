package docx

import (
	"fmt"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// Parser extracts the ordered body paragraphs of a DOCX file.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Supports(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".docx")
}

func (p *Parser) Parse(filename string, content []byte) (*domain.ParsedDocument, error) {
	source, err := readDocumentPart(content)
	if err != nil {
		return nil, err
	}
	model, err := scanDocument(source)
	if err != nil {
		return nil, err
	}
	if len(model.Paragraphs) == 0 {
		return nil, fmt.Errorf("document has no paragraphs")
	}

	paragraphs := make([]string, 0, len(model.Paragraphs))
	for _, span := range model.Paragraphs {
		paragraphs = append(paragraphs, span.Text)
	}

	return &domain.ParsedDocument{
		Filename:   filename,
		Format:     domain.FormatDOCX,
		Raw:        content,
		Paragraphs: paragraphs,
	}, nil
}
