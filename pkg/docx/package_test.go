package docx

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="Heading 1"/></w:style>
<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/></w:style>
<w:style w:type="character" w:styleId="Strong"><w:name w:val="Strong"/></w:style>
</w:styles>`

// buildDocx 用给定的 body 内容构造内存中的 docx
func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	files := []struct{ name, content string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `<w:sectPr/></w:body></w:document>`},
		{"word/styles.xml", testStylesXML},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func reload(t *testing.T, f *File) *File {
	t.Helper()
	data, err := f.Bytes()
	require.NoError(t, err)
	out, err := Load(data)
	require.NoError(t, err)
	return out
}

func documentPart(t *testing.T, f *File) string {
	t.Helper()
	data, ok := f.part(partDocument)
	require.True(t, ok)
	return string(data)
}

func TestLoad_ParsesRunsAndFormatting(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr>`+
		`<w:r><w:rPr><w:rFonts w:ascii="Arial" w:hAnsi="Arial"/><w:b/><w:sz w:val="28"/><w:color w:val="FF0000"/></w:rPr><w:t xml:space="preserve">Hello </w:t></w:r>`+
		`<w:r><w:rPr><w:i w:val="0"/><w:u w:val="single"/></w:rPr><w:t>World</w:t></w:r></w:p>`))
	require.NoError(t, err)

	paras := f.Paragraphs()
	require.Len(t, paras, 1)
	p := paras[0]
	assert.Equal(t, "Hello World", p.Text())
	assert.Equal(t, "Heading 1", p.Style())

	runs := p.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, Formatting{
		Bold:     Some(true),
		FontName: Some("Arial"),
		FontSize: Some(14.0),
		Color:    Some(RGB{R: 0xFF}),
	}, runs[0].Formatting)
	assert.Equal(t, Formatting{Italic: Some(false), Underline: Some(true)}, runs[1].Formatting)
	assert.False(t, p.Modified())
}

func TestLoad_SpecialRunContent(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r>`+
		`<w:r><w:br w:type="page"/></w:r><w:r><w:drawing/></w:r></w:p>`))
	require.NoError(t, err)

	p := f.Paragraphs()[0]
	assert.Equal(t, "a\tb\nc", p.Text())
	assert.Len(t, p.Runs(), 1)
}

func TestLoad_TablesAndBookmarks(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p><w:r><w:t>Dear </w:t></w:r><w:bookmarkStart w:id="0" w:name="greeting"/>`+
		`<w:bookmarkEnd w:id="0"/><w:bookmarkStart w:id="1" w:name="_GoBack"/><w:r><w:t>friend</w:t></w:r></w:p>`+
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>A1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>B1</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>B1-2</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`))
	require.NoError(t, err)

	require.Len(t, f.Paragraphs(), 1)
	assert.Equal(t, []Bookmark{{Name: "greeting", Offset: 5}}, f.Paragraphs()[0].Bookmarks)

	require.Len(t, f.Tables, 1)
	assert.Equal(t, "A1", f.Tables[0].Cell(0, 0).Text())
	assert.Equal(t, "B1\nB1-2", f.Tables[0].Cell(0, 1).Text())
	assert.Nil(t, f.Tables[0].Cell(1, 0))

	all := f.AllParagraphs()
	require.Len(t, all, 4)
	assert.Equal(t, "Dear friend\nA1\nB1\nB1-2", f.FullText())
	assert.Equal(t, "Dear friend", f.Text())
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load([]byte("not a zip"))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("readme.txt")
	w.Write([]byte("hello"))
	require.NoError(t, zw.Close())
	_, err = Load(buf.Bytes())
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Open(filepath.Join(t.TempDir(), "missing.docx"))
	assert.Error(t, err)
}

func TestWrite_UntouchedDocumentKeepsRuns(t *testing.T) {
	body := `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Keep</w:t></w:r></w:p>`
	f, err := Load(buildDocx(t, body))
	require.NoError(t, err)

	out := reload(t, f)
	assert.Contains(t, documentPart(t, out), body)
}

func TestWrite_RewritesModifiedRuns(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p><w:r><w:rPr><w:b/><w:lang w:val="en-US"/></w:rPr><w:t>Old</w:t></w:r>`+
		`<w:r><w:drawing/></w:r><w:r><w:t>Tail</w:t></w:r></w:p>`))
	require.NoError(t, err)

	p := f.Paragraphs()[0]
	first := p.Runs()[0]
	italic := first.Derive(" New\tline\nnext")
	italic.Formatting.Italic = Some(true)
	p.SetRuns([]*Run{first, italic})

	out := reload(t, f)
	q := out.Paragraphs()[0]
	assert.Equal(t, "Old New\tline\nnext", q.Text())
	require.Len(t, q.Runs(), 2)
	assert.Equal(t, Formatting{Bold: Some(true)}, q.Runs()[0].Formatting)
	assert.Equal(t, Formatting{Bold: Some(true), Italic: Some(true)}, q.Runs()[1].Formatting)

	xml := documentPart(t, out)
	assert.Contains(t, xml, "<w:drawing/>")
	assert.Contains(t, xml, `<w:lang w:val="en-US"/>`)
	assert.NotContains(t, xml, "Tail")
	// rPr 子元素保持 schema 顺序
	assert.Contains(t, xml, `<w:rPr><w:b/><w:i/><w:lang w:val="en-US"/></w:rPr>`)
}

func TestWrite_SplitsRunsAtAnchors(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p><w:r><w:t xml:space="preserve">Hello </w:t></w:r>`+
		`<w:bookmarkStart w:id="0" w:name="bm"/><w:r><w:t>World</w:t></w:r><w:bookmarkEnd w:id="0"/>`+
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r><w:r><w:t>!</w:t></w:r></w:p>`))
	require.NoError(t, err)

	p := f.Paragraphs()[0]
	assert.Equal(t, "Hello World!", p.Text())
	first := p.Runs()[0]
	p.SetRuns([]*Run{first.Derive("Hello World!")})

	out := reload(t, f)
	q := out.Paragraphs()[0]
	assert.Equal(t, "Hello World!", q.Text())
	assert.Equal(t, []Bookmark{{Name: "bm", Offset: 6}}, q.Bookmarks)
	require.Len(t, q.Runs(), 3)
	assert.Equal(t, []string{"Hello ", "World", "!"}, []string{q.Runs()[0].Text, q.Runs()[1].Text, q.Runs()[2].Text})

	xml := documentPart(t, out)
	order := []string{">Hello <", "<w:bookmarkStart", ">World<", "<w:bookmarkEnd", "<w:fldChar", ">!<"}
	for i := 1; i < len(order); i++ {
		assert.Less(t, strings.Index(xml, order[i-1]), strings.Index(xml, order[i]), order[i])
	}
}

func TestWrite_MovesBookmarkWithShiftedOffset(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p><w:r><w:t xml:space="preserve">ab </w:t></w:r>`+
		`<w:bookmarkStart w:id="0" w:name="bm"/><w:r><w:t>cd</w:t></w:r></w:p>`))
	require.NoError(t, err)

	p := f.Paragraphs()[0]
	p.ShiftAnchors(0, 2, 4)
	p.SetRuns([]*Run{p.Runs()[0].Derive("wxyz cd")})
	assert.Equal(t, []Bookmark{{Name: "bm", Offset: 5}}, p.Bookmarks)

	out := reload(t, f)
	assert.Equal(t, []Bookmark{{Name: "bm", Offset: 5}}, out.Paragraphs()[0].Bookmarks)

	// 偏移超出文本时书签落在段尾
	q := out.Paragraphs()[0]
	q.Bookmarks[0].Offset = 99
	q.SetRuns([]*Run{q.Runs()[0].Derive("x")})
	again := reload(t, out)
	assert.Equal(t, []Bookmark{{Name: "bm", Offset: 1}}, again.Paragraphs()[0].Bookmarks)
}

func TestParagraph_ShiftAnchors(t *testing.T) {
	tests := []struct {
		name          string
		offset        int
		start, end, n int
		want          int
	}{
		{name: "before", offset: 2, start: 4, end: 6, n: 1, want: 2},
		{name: "at start", offset: 4, start: 4, end: 6, n: 1, want: 4},
		{name: "at end", offset: 6, start: 4, end: 6, n: 1, want: 5},
		{name: "after grows", offset: 9, start: 4, end: 6, n: 5, want: 12},
		{name: "inside shrink", offset: 8, start: 4, end: 10, n: 2, want: 6},
		{name: "inside grow", offset: 5, start: 4, end: 6, n: 3, want: 5},
		{name: "insertion", offset: 4, start: 4, end: 4, n: 3, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParagraph("")
			p.Bookmarks = []Bookmark{{Name: "b", Offset: tt.offset}}
			p.ShiftAnchors(tt.start, tt.end, tt.n)
			assert.Equal(t, tt.want, p.Bookmarks[0].Offset)
		})
	}
}

func TestRun_SameProps(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p>`+
		`<w:r><w:rPr><w:b/><w:rFonts w:ascii="Arial"/><w:vertAlign w:val="superscript"/></w:rPr><w:t>a</w:t></w:r>`+
		`<w:r><w:rPr><w:vertAlign w:val="superscript"/><w:i/></w:rPr><w:t>b</w:t></w:r>`+
		`<w:r><w:rPr><w:rStyle w:val="Strong"/></w:rPr><w:t>c</w:t></w:r>`+
		`<w:r><w:t>d</w:t></w:r></w:p>`))
	require.NoError(t, err)

	runs := f.Paragraphs()[0].Runs()
	require.Len(t, runs, 4)
	assert.True(t, runs[0].SameProps(runs[1]))
	assert.False(t, runs[1].SameProps(runs[2]))
	assert.False(t, runs[2].SameProps(runs[3]))
	assert.True(t, runs[3].SameProps(NewRun("e", Formatting{})))
	assert.True(t, runs[2].SameProps(runs[2].Derive("x")))
}

func TestWrite_InsertAndRemoveParagraphs(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p><w:r><w:t>one</w:t></w:r></w:p><w:p><w:r><w:t>two</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>three</w:t></w:r></w:p>`))
	require.NoError(t, err)

	body := f.Body
	first := body.Paragraphs()[0]
	assert.True(t, body.InsertAfter(first, NewParagraph("one-b")))
	body.Insert(0, NewParagraph("zero"))
	assert.True(t, body.Remove(body.Paragraphs()[3]))
	f.AppendParagraph(NewParagraph("four"))
	assert.False(t, body.InsertAfter(NewParagraph("stray"), NewParagraph("x")))

	out := reload(t, f)
	assert.Equal(t, "zero\none\none-b\nthree\nfour", out.Text())
	// 新段落位于 sectPr 之前
	xml := documentPart(t, out)
	assert.Less(t, strings.Index(xml, "four"), strings.Index(xml, "<w:sectPr"))
}

func TestWrite_StyleAndLayout(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p><w:r><w:t>item</w:t></w:r></w:p>`))
	require.NoError(t, err)

	p := f.Paragraphs()[0]
	p.SetStyle("List Paragraph")
	p.SetLayout(ParagraphLayout{
		LeftIndent:      Some(Inches(0.5)),
		FirstLineIndent: Some(-Inches(0.25)),
		SpaceAfter:      Some(Pt(3)),
		LineSpacing:     Some(1.15),
	})

	out := reload(t, f)
	q := out.Paragraphs()[0]
	assert.Equal(t, "List Paragraph", q.Style())
	l := q.Layout()
	assert.Equal(t, Some(Length(720)), l.LeftIndent)
	assert.Equal(t, Some(Length(-360)), l.FirstLineIndent)
	assert.Equal(t, Some(Length(60)), l.SpaceAfter)
	assert.InDelta(t, 1.15, l.LineSpacing.OrElse(0), 0.001)
	assert.Contains(t, documentPart(t, out), `<w:pStyle w:val="ListParagraph"/>`)
}

func TestNew_BuildsDocument(t *testing.T) {
	f := New()
	assert.Empty(t, f.Paragraphs())
	assert.True(t, f.Styles.Has("List Paragraph"))
	assert.True(t, f.Styles.Has("Heading 1"))
	assert.False(t, f.Styles.Has("Strong"))

	title := NewParagraph("")
	title.AddRun("Title", Formatting{Bold: Some(true), FontSize: Some(16.0)})
	title.SetStyle("Title")
	f.AppendParagraph(title)
	tbl := f.AddTable(2, 2)
	tbl.Cell(1, 1).Paragraphs()[0].AddRun("cell", Formatting{})
	f.AppendParagraph(NewParagraph("after"))

	path := filepath.Join(t.TempDir(), "new.docx")
	require.NoError(t, f.Save(path))
	out, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, "Title\nafter", out.Text())
	require.Len(t, out.Tables, 1)
	assert.Equal(t, "cell", out.Tables[0].Cell(1, 1).Text())
	assert.Equal(t, "Title", out.Paragraphs()[0].Style())
	assert.Equal(t, Some(16.0), out.Paragraphs()[0].Runs()[0].Formatting.FontSize)
}

func TestStyles_ParsesParagraphStylesOnly(t *testing.T) {
	f, err := Load(buildDocx(t, `<w:p/>`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Heading 1", "List Paragraph", "Normal"}, f.Styles.Names())
	assert.Equal(t, 3, f.Styles.Len())
	st, ok := f.Styles.Lookup("Heading 1")
	assert.True(t, ok)
	assert.Equal(t, "Heading1", st.ID)
}

func TestDocument_Locate(t *testing.T) {
	d := NewDocument()
	p := NewParagraph("a")
	d.AppendParagraph(p)
	tbl := d.AddTable(1, 1)
	cellPara := tbl.Cell(0, 0).Paragraphs()[0]

	s, i := d.Locate(p)
	assert.Same(t, d.Body, s)
	assert.Equal(t, 0, i)

	s, i = d.Locate(cellPara)
	assert.Same(t, &tbl.Cell(0, 0).Story, s)
	assert.Equal(t, 0, i)

	s, i = d.Locate(NewParagraph("x"))
	assert.Nil(t, s)
	assert.Equal(t, -1, i)
}

func TestParseRGB(t *testing.T) {
	c, err := ParseRGB("#1F4E79")
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 0x1F, G: 0x4E, B: 0x79}, c)
	assert.Equal(t, "1F4E79", c.Hex())

	_, err = ParseRGB("auto")
	assert.Error(t, err)
}

func TestOption(t *testing.T) {
	var unset Option[bool]
	assert.False(t, unset.IsSet())
	assert.True(t, unset.OrElse(true))
	assert.Equal(t, "unset", unset.String())
	assert.NotEqual(t, unset, Some(false))
	assert.Equal(t, Some(false), Some(false))
}
