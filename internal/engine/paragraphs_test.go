package engine

import (
	"testing"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/pkg/docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddParagraph(t *testing.T) {
	e := New()
	d := docWith(para("first", plain))

	p, err := e.AddParagraph(d, "Heading text", "Heading 1")
	require.NoError(t, err)
	assert.Equal(t, "Heading 1", p.Style())

	p, err = e.AddParagraph(d, "no style", "Does Not Exist")
	require.NoError(t, err)
	assert.Equal(t, "", p.Style())

	assert.Equal(t, []string{"first", "Heading text", "no style"}, texts(d.Paragraphs()))

	_, err = e.AddParagraph(nil, "x", "")
	assert.ErrorIs(t, err, domain.ErrNoDocumentLoaded)
}

func TestInsertAtAnchor(t *testing.T) {
	e := New()
	p := para("Dear ", plain, "friend", bold)
	p.Bookmarks = []docx.Bookmark{{Name: "start", Offset: 0}, {Name: "greeting", Offset: 5}, {Name: "end", Offset: 11}}
	d := docWith(p)

	require.NoError(t, e.InsertAtAnchor(d, "greeting", "old "))
	assert.Equal(t, "Dear old friend", p.Text())
	assert.Equal(t, []runView{{"Dear old ", plain}, {"friend", bold}}, runsOf(p))
	assert.Equal(t, 15, p.Bookmarks[2].Offset)

	require.NoError(t, e.InsertAtAnchor(d, "start", ">>"))
	assert.Equal(t, []runView{{">>Dear old ", plain}, {"friend", bold}}, runsOf(p))

	require.NoError(t, e.InsertAtAnchor(d, "end", "!"))
	assert.Equal(t, []runView{{">>Dear old ", plain}, {"friend!", bold}}, runsOf(p))

	err := e.InsertAtAnchor(d, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrBookmarkNotFound)
}

func TestInsertAtAnchor_EmptyParagraph(t *testing.T) {
	p := docx.NewParagraph("")
	p.Bookmarks = []docx.Bookmark{{Name: "here"}}
	d := docWith(p)

	require.NoError(t, New().InsertAtAnchor(d, "here", "text"))
	assert.Equal(t, []runView{{"text", plain}}, runsOf(p))
}

func TestInfo(t *testing.T) {
	p := para("Hello {{NAME}}", plain)
	p.Bookmarks = []docx.Bookmark{{Name: "greeting", Offset: 6}}
	d := docWith(p, para("{{EMAIL}} {{NAME}}", plain))
	d.AddTable(1, 1).Cell(0, 0).Paragraphs()[0].AddRun("{{PHONE}}", plain)

	info, err := New().Info(d)
	require.NoError(t, err)
	assert.Equal(t, 2, info.ParagraphCount)
	assert.Equal(t, 1, info.TableCount)
	assert.Equal(t, []string{"NAME", "EMAIL", "PHONE"}, info.Placeholders)
	assert.Equal(t, []string{"greeting"}, info.Bookmarks)
	assert.Contains(t, info.Styles, "List Paragraph")
}
