package resume

import (
	"github.com/allanpk716/docx_filler/internal/engine"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// Placeholders 简历模板常用的占位符
func Placeholders() []string {
	return []string{
		"{{NAME}}",
		"{{PHONE}}",
		"{{EMAIL}}",
		"{{LINKEDIN}}",
		"{{PROFESSIONAL_SUMMARY}}",
		"{{TECHNICAL_SKILLS}}",
		"{{PROFESSIONAL_EXPERIENCE}}",
		"{{PROJECTS}}",
		"{{EDUCATION}}",
		"{{CURRENT_DATE}}",
	}
}

// Template 生成带占位符的简历模板
func Template(e *engine.Engine) (*docx.File, error) {
	f := docx.New()
	doc := f.Document

	lines := []struct {
		text  string
		style string
	}{
		{"{{NAME}}", "Heading 1"},
		{"Phone: {{PHONE}} | Email: {{EMAIL}} | LinkedIn: {{LINKEDIN}}", ""},
		{"PROFESSIONAL SUMMARY", "Heading 2"},
		{"{{PROFESSIONAL_SUMMARY}}", ""},
		{"TECHNICAL SKILLS", "Heading 2"},
		{"{{TECHNICAL_SKILLS}}", ""},
		{"PROFESSIONAL EXPERIENCE", "Heading 2"},
		{"{{PROFESSIONAL_EXPERIENCE}}", ""},
		{"PROJECTS", "Heading 2"},
		{"{{PROJECTS}}", ""},
		{"EDUCATION", "Heading 2"},
		{"{{EDUCATION}}", ""},
		{"Generated on {{CURRENT_DATE}}", ""},
	}
	for _, l := range lines {
		if _, err := e.AddParagraph(doc, l.text, l.style); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Sample 生成包含多种格式和一个表格的示例文档
func Sample(e *engine.Engine) (*docx.File, error) {
	f := docx.New()
	doc := f.Document

	if _, err := e.AddParagraph(doc, "Sample Document", "Heading 1"); err != nil {
		return nil, err
	}

	p := docx.NewParagraph("")
	p.AddRun("This is a ", docx.Formatting{})
	p.AddRun("bold", docx.Formatting{Bold: docx.Some(true)})
	p.AddRun(" word in a sentence.", docx.Formatting{})
	doc.AppendParagraph(p)

	p = docx.NewParagraph("")
	p.AddRun("This paragraph has some ", docx.Formatting{})
	p.AddRun("italic text", docx.Formatting{Italic: docx.Some(true)})
	p.AddRun(" and some ", docx.Formatting{})
	p.AddRun("underlined text", docx.Formatting{Underline: docx.Some(true)})
	p.AddRun(".", docx.Formatting{})
	doc.AppendParagraph(p)

	t := doc.AddTable(2, 2)
	for i, text := range []string{"Name", "Value", "Sample Item", "Sample Value"} {
		t.Cell(i/2, i%2).Paragraphs()[0].AddRun(text, docx.Formatting{})
	}

	if _, err := e.AddParagraph(doc, "This is a paragraph that can be modified during testing.", ""); err != nil {
		return nil, err
	}
	return f, nil
}
