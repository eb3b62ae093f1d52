package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/unidoc/unioffice/document"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (f *DOCXFormatter) Format(session *domain.Session, messages []*domain.Message) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	heading := doc.AddParagraph()
	heading.SetStyle("Heading1")
	heading.AddRun().AddText(title(session))

	started := doc.AddParagraph().AddRun()
	started.Properties().SetItalic(true)
	started.AddText("Started " + stamp(session.CreatedAt))

	for _, m := range messages {
		label := doc.AddParagraph().AddRun()
		label.Properties().SetBold(true)
		label.AddText(fmt.Sprintf("%s (%s)", speaker(m.Role), stamp(m.CreatedAt)))

		body := doc.AddParagraph().AddRun()
		for i, line := range strings.Split(m.Content, "\n") {
			if i > 0 {
				body.AddBreak()
			}
			body.AddText(line)
		}
	}

	note := doc.AddParagraph().AddRun()
	note.Properties().SetItalic(true)
	note.AddText(disclaimer)

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to render docx: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *DOCXFormatter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (f *DOCXFormatter) FileExtension() string {
	return ".docx"
}
