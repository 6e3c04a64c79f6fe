package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// stubEmbedder returns a fixed vector per known text and a shared default
// for everything else.
type stubEmbedder struct {
	vectors map[string][]float32
	def     []float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, s.vector(text))
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector(text), nil
}

func (s *stubEmbedder) vector(text string) []float32 {
	if vec, ok := s.vectors[text]; ok {
		return vec
	}
	if s.def != nil {
		return s.def
	}
	return []float32{1, 0, 0}
}

type stubIndex struct {
	passages []domain.Passage
	err      error
	gotK     []int
}

func (s *stubIndex) Query(_ context.Context, _ []float32, k int) ([]domain.Passage, error) {
	s.gotK = append(s.gotK, k)
	if s.err != nil {
		return nil, s.err
	}
	return s.passages, nil
}

// scriptedCompleter dispatches on prompt content so one fake serves all
// three analysis operations.
type scriptedCompleter struct {
	classify   string
	review     string
	compliance string
	err        error
	prompts    []string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string, _ float64) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	switch {
	case strings.Contains(prompt, "document classifier"):
		return s.classify, nil
	case strings.Contains(prompt, "document reviewer"):
		return s.review, nil
	case strings.Contains(prompt, "compliance assistant"):
		return s.compliance, nil
	}
	return "", nil
}

// linesParser treats any .txt upload as newline-separated paragraphs.
type linesParser struct{}

func (linesParser) Supports(filename string) bool {
	return strings.HasSuffix(filename, ".txt")
}

func (linesParser) Parse(filename string, content []byte) (*domain.ParsedDocument, error) {
	return &domain.ParsedDocument{
		Filename:   filename,
		Format:     domain.FormatText,
		Raw:        content,
		Paragraphs: strings.Split(string(content), "\n"),
	}, nil
}

// markerAnnotator renders a deterministic textual annotation for assertions.
type markerAnnotator struct{}

func (markerAnnotator) Annotate(doc *domain.ParsedDocument, annotation domain.Annotation) ([]byte, error) {
	var b strings.Builder
	b.WriteString("annotated:" + doc.Filename + "\n")
	for _, comment := range annotation.Comments {
		b.WriteString("comment@")
		b.WriteString(strings.TrimSpace(comment.Text))
		b.WriteString("\n")
	}
	b.WriteString("type:" + annotation.Summary.DocumentType)
	return []byte(b.String()), nil
}
