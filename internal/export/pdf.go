package export

import (
	"bytes"
	"fmt"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/jung-kurt/gofpdf"
)

type PDFFormatter struct{}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{}
}

// Format uses the core Helvetica font; text is translated to cp1252 so
// accented characters survive.
func (f *PDFFormatter) Format(session *domain.Session, messages []*domain.Message) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title(session), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title(session)), "", "", false)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, tr("Started "+stamp(session.CreatedAt)))
	pdf.Ln(10)

	for _, m := range messages {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s (%s)", speaker(m.Role), stamp(m.CreatedAt))))
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, tr(m.Content), "", "", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, tr(disclaimer), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *PDFFormatter) ContentType() string {
	return "application/pdf"
}

func (f *PDFFormatter) FileExtension() string {
	return ".pdf"
}
