package domain

type DocumentFormat string

const (
	FormatDOCX DocumentFormat = "docx"
	FormatPDF  DocumentFormat = "pdf"
	FormatText DocumentFormat = "text"
)

// Upload is one raw input file. Filename is used only for labeling the
// report; it is never parsed for semantics.
type Upload struct {
	Filename string
	MimeType string
	Content  []byte
}

// ParsedDocument holds the ordered paragraph view of an upload. Paragraph
// order is preserved from source through annotation. The struct is owned
// exclusively by the batch item processing it.
type ParsedDocument struct {
	Filename   string
	Format     DocumentFormat
	Raw        []byte
	Paragraphs []string
}

// PlacedComment is an inline review comment anchored before the paragraph
// at Index. Index always points into the parsed paragraph sequence.
type PlacedComment struct {
	Index int
	Text  string
}

// SummaryBlock is the review summary appended at the end of an annotated
// document.
type SummaryBlock struct {
	DocumentType    string
	Summary         string
	Issues          []string
	Recommendations []string
}

// Annotation is everything a format-specific annotator needs to render an
// annotated copy: the summary block plus inline comments in input order.
type Annotation struct {
	Summary  SummaryBlock
	Comments []PlacedComment
}

// AnnotatedDocument is a modified, independent copy of an upload.
type AnnotatedDocument struct {
	Filename string
	Content  []byte
}
