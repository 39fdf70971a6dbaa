// Package pdf turns race-card PDF files into plain text, one line per visual
// row, which is the form the race-card extractor expects.
package pdf

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned for PDFs without an extractable text layer.
var ErrNoText = errors.New("no text content could be extracted from PDF")

// Reader handles PDF text extraction
type Reader struct {
	validator   *Validator
	maxTextSize int
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		validator:   NewValidator(maxFileSize),
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// ReadText validates the file and returns its text, pages joined by a newline
func (r *Reader) ReadText(path string) (string, error) {
	if _, err := r.validator.Validate(path); err != nil {
		return "", err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	return r.extractTextContent(pdfReader)
}

// extractTextContent walks the pages in order. A page that cannot be read
// is skipped; the rest of the document still counts.
func (r *Reader) extractTextContent(pdfReader *pdf.Reader) (string, error) {
	var builder strings.Builder

	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content := pageText(page)
		if content == "" {
			continue
		}

		if builder.Len()+len(content)+1 > r.maxTextSize {
			break
		}
		if builder.Len() > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(content)
	}

	if strings.TrimSpace(builder.String()) == "" {
		return "", ErrNoText
	}
	return builder.String(), nil
}

// pageText rebuilds the visual lines of a page. Falls back to the plain text
// stream when the row layout cannot be computed.
func pageText(page pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		plain, err := page.GetPlainText(nil)
		if err != nil {
			return ""
		}
		return plain
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if line := rowText(row.Content); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// rowText joins the glyph runs of one row left to right, inserting a space
// where the horizontal gap is wider than a fraction of the font size.
func rowText(runs pdf.TextHorizontal) string {
	sorted := append(pdf.TextHorizontal(nil), runs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	end := 0.0
	for i, t := range sorted {
		if t.S == "" {
			continue
		}
		if i > 0 && b.Len() > 0 && t.X-end > t.FontSize*0.2 && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		end = t.X + t.W
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
