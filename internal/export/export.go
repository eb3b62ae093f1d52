// Package export renders a chat session transcript as markdown, PDF or DOCX.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
)

// Format is a transcript file format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

const timeLayout = "2006-01-02 15:04 MST"

// Formatter renders one transcript.
type Formatter interface {
	Format(session *domain.Session, messages []*domain.Message) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// New returns the formatter for format.
func New(format Format) (Formatter, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatMarkdown, "":
		return NewMarkdownFormatter(), nil
	case FormatPDF:
		return NewPDFFormatter(), nil
	case FormatDOCX:
		return NewDOCXFormatter(), nil
	default:
		return nil, domain.WithCause(domain.ErrInvalidExportFormat, fmt.Errorf("unsupported format: %s", format))
	}
}

func title(session *domain.Session) string {
	if strings.TrimSpace(session.Title) != "" {
		return session.Title
	}
	return domain.DefaultSessionTitle
}

func speaker(role domain.Role) string {
	if role == domain.RoleAssistant {
		return "Assistant"
	}
	return "You"
}

func stamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const disclaimer = "This transcript was produced by an AI assistant and is not medical advice. Discuss any concerns with your neurologist or MS care team."
