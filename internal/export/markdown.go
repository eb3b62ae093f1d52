package export

import (
	"bytes"
	"fmt"

	"github.com/cloo-solutions/msassist/internal/domain"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (f *MarkdownFormatter) Format(session *domain.Session, messages []*domain.Message) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n_Started %s_\n", title(session), stamp(session.CreatedAt))
	for _, m := range messages {
		fmt.Fprintf(&buf, "\n**%s** (%s)\n\n%s\n", speaker(m.Role), stamp(m.CreatedAt), m.Content)
	}
	fmt.Fprintf(&buf, "\n---\n\n_%s_\n", disclaimer)
	return buf.Bytes(), nil
}

func (f *MarkdownFormatter) ContentType() string {
	return "text/markdown; charset=utf-8"
}

func (f *MarkdownFormatter) FileExtension() string {
	return ".md"
}
