package resume

import (
	"testing"
	"time"

	"github.com/allanpk716/docx_filler/internal/datatree"
	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/engine"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/internal/placeholder"
	"github.com/allanpk716/docx_filler/pkg/docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resumeYAML = `
name: Ada Lovelace
contact:
  phone: "555-0100"
  email: ada@example.com
  linkedin: linkedin.com/in/ada
professional_summary: Analytical engine programmer.
technical_skills: [Go, SQL]
professional_experience:
  - company: Acme
    title: Engineer
    location: Remote
    duration: 2020-2023
    highlights: [Built X, Led Y]
  - company: Beta
    title: Lead
    location: NYC
    duration: 2023-
projects:
  - name: Engine
    highlights: [Fast]
education:
  - degree: BSc
    institution: MIT
    duration: 2016-2020
highlights1: [First, Second]
`

func loadResume(t *testing.T) *datatree.Tree {
	t.Helper()
	tree, err := datatree.Parse([]byte(resumeYAML), datatree.FormatYAML)
	require.NoError(t, err)
	return tree
}

func docOf(lines ...string) *docx.Document {
	d := docx.NewDocument()
	for _, l := range lines {
		d.AppendParagraph(docx.NewParagraph(l))
	}
	return d
}

func texts(d *docx.Document) []string {
	var out []string
	for _, p := range d.Paragraphs() {
		out = append(out, p.Text())
	}
	return out
}

func fixedFiller(opts ...Option) *Filler {
	clock := func() time.Time { return time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC) }
	opts = append([]Option{WithExpander(placeholder.NewExpander(placeholder.WithClock(clock)))}, opts...)
	return NewFiller(opts...)
}

func TestRenderSections(t *testing.T) {
	tree := loadResume(t)

	exp, _ := tree.Resolve("professional_experience")
	assert.Equal(t, "Acme - Engineer\nRemote | 2020-2023\n• Built X\n• Led Y\n\nBeta - Lead\nNYC | 2023-", RenderExperience(exp.Items()))

	projects, _ := tree.Resolve("projects")
	assert.Equal(t, "Engine\n• Fast", RenderProjects(projects.Items()))

	edu, _ := tree.Resolve("education")
	assert.Equal(t, "BSc - MIT\n2016-2020", RenderEducation(edu.Items()))

	assert.Equal(t, "", RenderProjects(nil))
}

func TestFillSections(t *testing.T) {
	d := docOf("Experience", "{{PROFESSIONAL_EXPERIENCE}}", "{{EDUCATION}}", "{{PROJECTS}}")

	report, err := fixedFiller().FillSections(d, loadResume(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Experience",
		"Acme - Engineer",
		"Remote | 2020-2023",
		"• Built X",
		"• Led Y",
		"Beta - Lead",
		"NYC | 2023-",
		"BSc - MIT\n2016-2020",
		"Engine",
		"• Fast",
	}, texts(d))

	paragraphs := d.Paragraphs()
	assert.Equal(t, engine.DefaultBulletLayout(), paragraphs[3].Layout())
	assert.True(t, paragraphs[2].Layout().IsZero())

	assert.Equal(t, 1, report.Counts[domain.CategoryExperience])
	assert.Equal(t, 1, report.Counts[domain.CategoryProjects])
	assert.Equal(t, 1, report.Counts[domain.CategoryEducation])
	assert.Equal(t, 3, report.Total())
}

func TestFillSections_SkipsNonMappingLists(t *testing.T) {
	tree := datatree.MustNew(map[string]any{"projects": []any{"just", "names"}})
	d := docOf("{{PROJECTS}}")

	report, err := NewFiller().FillSections(d, tree)
	require.NoError(t, err)
	assert.Equal(t, "{{PROJECTS}}", d.Text())
	assert.Equal(t, 0, report.Total())

	_, err = NewFiller().FillSections(nil, tree)
	assert.ErrorIs(t, err, domain.ErrNoDocumentLoaded)
}

func TestFill_Template(t *testing.T) {
	f, err := Template(engine.New())
	require.NoError(t, err)

	report, err := fixedFiller().Fill(f.Document, loadResume(t))
	require.NoError(t, err)

	assert.Empty(t, matcher.FindPlaceholders(f.FullText()))
	assert.Empty(t, report.Unresolved)
	assert.Equal(t, 3, report.Counts[domain.CategoryContact])
	assert.Equal(t, 1, report.Counts[domain.CategorySkills])
	assert.Equal(t, 3, report.Counts[domain.CategoryBasic])
	assert.Equal(t, 10, report.Total())

	all := texts(f.Document)
	assert.Equal(t, "Ada Lovelace", all[0])
	assert.Equal(t, "Heading 1", f.Paragraphs()[0].Style())
	assert.Contains(t, all, "Phone: 555-0100 | Email: ada@example.com | LinkedIn: linkedin.com/in/ada")
	assert.Contains(t, all, "Go, SQL")
	assert.Contains(t, all, "• Built X")
	assert.Equal(t, "Generated on March 2024", all[len(all)-1])

	// 保存后重新读取，结果一致
	data, err := f.Bytes()
	require.NoError(t, err)
	loaded, err := docx.Load(data)
	require.NoError(t, err)
	assert.Equal(t, all, texts(loaded.Document))
}

func TestFill_RemovesTemplateBullets(t *testing.T) {
	d := docOf("Highlights", "{{highlights1}}", "• Add highlights with this style.")

	report, err := fixedFiller(WithTemplateRemoval(true)).Fill(d, loadResume(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Highlights", "• First", "• Second"}, texts(d))
	assert.Equal(t, 2, report.Total())

	d = docOf("{{highlights1}}", "• Add highlights with this style.")
	_, err = fixedFiller().Fill(d, loadResume(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"• First", "• Second", "• Add highlights with this style."}, texts(d))
}

func TestFillContent(t *testing.T) {
	d := docOf("John Smith, john@old.com")
	report, err := NewFiller().FillContent(d, loadResume(t), []placeholder.ContentMapping{
		{Text: "john smith", Path: "name"},
		{Text: "john@old.com", Path: "contact.email"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace, ada@example.com", d.Text())
	assert.Equal(t, 2, report.Counts[domain.CategoryContent])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]any
		valid    bool
		errors   []string
		warnings []string
	}{
		{
			name: "complete",
			data: map[string]any{
				"name":                 "Ada",
				"contact":              map[string]any{"phone": "1", "email": "a@b"},
				"professional_summary": "x",
				"technical_skills":     []any{"Go"},
			},
			valid: true,
		},
		{
			name: "missing fields",
			data: map[string]any{"contact": map[string]any{"email": "a@b"}},
			errors: []string{
				"缺少必填字段: name",
				"缺少必填字段: professional_summary",
			},
			warnings: []string{"缺少联系方式字段: phone"},
		},
		{
			name: "wrong list type",
			data: map[string]any{
				"name":                 "Ada",
				"contact":              map[string]any{"phone": "1", "email": "a@b"},
				"professional_summary": "x",
				"projects":             "none",
				"education":            map[string]any{"degree": "BSc"},
			},
			errors: []string{"字段 projects 应为列表", "字段 education 应为列表"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(datatree.MustNew(tt.data))
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.errors, res.Errors)
			assert.Equal(t, tt.warnings, res.Warnings)
		})
	}

	assert.False(t, Validate(nil).Valid)
	assert.False(t, Validate(datatree.MustNew([]any{"x"})).Valid)
}

func TestTemplateAndSample(t *testing.T) {
	e := engine.New()

	f, err := Template(e)
	require.NoError(t, err)
	assert.Len(t, f.Paragraphs(), 13)
	assert.Equal(t, "Heading 2", f.Paragraphs()[2].Style())
	for _, token := range Placeholders() {
		assert.Contains(t, f.FullText(), token)
	}

	s, err := Sample(e)
	require.NoError(t, err)
	data, err := s.Bytes()
	require.NoError(t, err)
	loaded, err := docx.Load(data)
	require.NoError(t, err)

	require.Len(t, loaded.Tables, 1)
	assert.Equal(t, "Sample Value", loaded.Tables[0].Cell(1, 1).Text())
	assert.Equal(t, "Sample Document", loaded.Paragraphs()[0].Text())
	runs := loaded.Paragraphs()[1].Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, docx.Some(true), runs[1].Formatting.Bold)
	assert.Equal(t, "This is a paragraph that can be modified during testing.", loaded.Paragraphs()[3].Text())
}
