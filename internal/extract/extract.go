// Package extract turns uploaded document bytes into plain text.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/msassist/internal/domain"
)

// Text extracts the plain text of data according to its format.
// The result has normalized line endings and trimmed surrounding whitespace.
func Text(format domain.DocumentFormat, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case domain.FormatText, domain.FormatMarkdown:
		text, err = plain(data)
	case domain.FormatPDF:
		text, err = PDF(data)
	case domain.FormatDOCX:
		text, err = DOCX(data)
	case domain.FormatRTF:
		text, err = RTF(data)
	case domain.FormatCSV:
		text, err = Delimited(data, ',')
	case domain.FormatTSV:
		text, err = Delimited(data, '\t')
	case domain.FormatJSON:
		text, err = JSON(data)
	default:
		return "", domain.WithCause(domain.ErrUnsupportedFormat, fmt.Errorf("format %q", format))
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	return normalize(text), nil
}

func plain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text is not valid UTF-8")
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}
