// Package docx reads and annotates DOCX (Office Open XML) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const documentPart = "word/document.xml"

const wordMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// paragraphSpan is one body-level paragraph: its byte range inside
// word/document.xml plus its extracted text. Paragraphs nested in tables
// are not part of the body-level sequence.
type paragraphSpan struct {
	Start int64
	End   int64
	Text  string
}

// docModel is the parsed view of word/document.xml used by both the parser
// and the annotator, so paragraph indices always agree between them.
type docModel struct {
	Source     []byte
	Paragraphs []paragraphSpan
	// BodyInsert is where appended paragraphs go: before the body-level
	// sectPr when present, otherwise before </w:body>.
	BodyInsert int64
}

func readDocumentPart(content []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	for _, f := range reader.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", documentPart, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing required file: %s", documentPart)
}

// scanDocument walks word/document.xml once, recording the byte range and
// text of every body-level paragraph and the body append point.
func scanDocument(source []byte) (*docModel, error) {
	model := &docModel{Source: source, BodyInsert: -1}

	dec := xml.NewDecoder(bytes.NewReader(source))
	inBody := false
	bodyDepth := 0
	depth := 0

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if isWordML(t.Name, "body") {
				inBody = true
				bodyDepth = depth
				continue
			}
			if !inBody || depth != bodyDepth+1 {
				continue
			}
			switch {
			case isWordML(t.Name, "p"):
				text, err := collectParagraphText(dec)
				if err != nil {
					return nil, fmt.Errorf("parsing paragraph: %w", err)
				}
				depth--
				model.Paragraphs = append(model.Paragraphs, paragraphSpan{
					Start: offset,
					End:   dec.InputOffset(),
					Text:  text,
				})
			case isWordML(t.Name, "sectPr"):
				if model.BodyInsert < 0 {
					model.BodyInsert = offset
				}
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("skipping sectPr: %w", err)
				}
				depth--
			}
		case xml.EndElement:
			if inBody && depth == bodyDepth && isWordML(t.Name, "body") {
				if model.BodyInsert < 0 {
					model.BodyInsert = offset
				}
				inBody = false
			}
			depth--
		}
	}

	if model.BodyInsert < 0 {
		return nil, fmt.Errorf("%s has no body element", documentPart)
	}
	return model, nil
}

// collectParagraphText consumes tokens up to the paragraph's end element,
// concatenating run text and mapping tabs and breaks the way the document
// renders them.
func collectParagraphText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	inText := false

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case isWordML(t.Name, "t"):
				inText = true
			case isWordML(t.Name, "tab"):
				b.WriteByte('\t')
			case isWordML(t.Name, "br"):
				b.WriteByte('\n')
			}
		case xml.EndElement:
			depth--
			if isWordML(t.Name, "t") {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func isWordML(name xml.Name, local string) bool {
	if name.Local != local {
		return false
	}
	return name.Space == wordMLNamespace || name.Space == ""
}
