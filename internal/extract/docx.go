package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/document"
)

// SetOfficeLicense registers a metered UniDoc key for the docx reader and
// writer. Empty keys are ignored.
func SetOfficeLicense(key string) error {
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set unidoc license: %w", err)
	}
	return nil
}

// DOCX returns the paragraph and table text of a Word document, one
// paragraph per line.
func DOCX(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for _, p := range doc.Paragraphs() {
		writeParagraph(&b, p)
	}
	for _, t := range doc.Tables() {
		for _, row := range t.Rows() {
			cells := make([]string, 0, len(row.Cells()))
			for _, cell := range row.Cells() {
				var cb strings.Builder
				for _, p := range cell.Paragraphs() {
					for _, r := range p.Runs() {
						cb.WriteString(r.Text())
					}
				}
				cells = append(cells, strings.TrimSpace(cb.String()))
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func writeParagraph(b *strings.Builder, p document.Paragraph) {
	for _, r := range p.Runs() {
		b.WriteString(r.Text())
	}
	b.WriteByte('\n')
}
