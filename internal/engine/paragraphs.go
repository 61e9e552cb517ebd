package engine

import (
	"fmt"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// AddParagraph 在文档末尾追加段落。样式只有在文档样式表中存在时才会应用
func (e *Engine) AddParagraph(doc *docx.Document, text, style string) (*docx.Paragraph, error) {
	if doc == nil {
		return nil, domain.ErrNoDocumentLoaded
	}
	p := docx.NewParagraph(text)
	if style != "" {
		if doc.Styles.Has(style) {
			p.SetStyle(style)
		} else {
			e.logger.Warn("样式不存在，已忽略", "style", style)
		}
	}
	doc.AppendParagraph(p)
	return p, nil
}

// InsertAtAnchor 在书签位置插入文本。插入的字符继承书签前一个字符的格式，
// 书签位于段首时继承其后字符的格式
func (e *Engine) InsertAtAnchor(doc *docx.Document, bookmark, text string) error {
	if doc == nil {
		return domain.ErrNoDocumentLoaded
	}
	for _, p := range doc.AllParagraphs() {
		for _, b := range p.Bookmarks {
			if b.Name != bookmark {
				continue
			}
			if text == "" {
				return nil
			}
			idx := BuildRunIndex(p)
			at := min(max(b.Offset, 0), len(idx))

			var from CharFormat
			switch {
			case at > 0:
				from = idx[at-1]
			case len(idx) > 0:
				from = idx[0]
			}
			// 书签本身保持在插入文本之前，其后的锚点顺延
			Rebuild(p, splice(p, idx, at, at, text, from))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrBookmarkNotFound, bookmark)
}

// Info 汇总文档信息
func (e *Engine) Info(doc *docx.Document) (domain.DocumentInfo, error) {
	if doc == nil {
		return domain.DocumentInfo{}, domain.ErrNoDocumentLoaded
	}
	info := domain.DocumentInfo{
		ParagraphCount: len(doc.Paragraphs()),
		TableCount:     len(doc.Tables),
		Styles:         doc.Styles.Names(),
	}
	var texts []string
	for _, p := range doc.AllParagraphs() {
		texts = append(texts, p.Text())
		for _, b := range p.Bookmarks {
			info.Bookmarks = append(info.Bookmarks, b.Name)
		}
	}
	info.Placeholders = matcher.FindPlaceholders(texts...)
	return info, nil
}
