// Package pdftext extracts paragraph text from PDF uploads.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Supports(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func (p *Parser) Parse(filename string, content []byte) (*domain.ParsedDocument, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var paragraphs []string
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract text from page %d: %w", pageNum, err)
		}
		for _, line := range strings.Split(text, "\n") {
			paragraphs = append(paragraphs, strings.TrimRight(line, " \t"))
		}
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("pdf has no extractable text")
	}

	return &domain.ParsedDocument{
		Filename:   filename,
		Format:     domain.FormatPDF,
		Raw:        content,
		Paragraphs: paragraphs,
	}, nil
}
