// Package plaintext treats UTF-8 text uploads as one paragraph per line.
package plaintext

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Supports(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".md")
}

func (p *Parser) Parse(filename string, content []byte) (*domain.ParsedDocument, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("not valid UTF-8 text: %s", filename)
	}
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document is empty")
	}

	return &domain.ParsedDocument{
		Filename:   filename,
		Format:     domain.FormatText,
		Raw:        content,
		Paragraphs: strings.Split(text, "\n"),
	}, nil
}
