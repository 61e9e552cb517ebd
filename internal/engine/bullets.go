package engine

import (
	"strings"
	"unicode"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// ExpandBullets 将文档中第一次出现的 token 展开为项目符号列表。
// token 替换为 "• items[0]"，其余条目作为新段落依次插入其后。
// 返回渲染的条目数，未找到 token 时返回 0。
func (e *Engine) ExpandBullets(doc *docx.Document, token string, items []string) (int, error) {
	if doc == nil {
		return 0, domain.ErrNoDocumentLoaded
	}
	if token == "" || len(items) == 0 {
		return 0, nil
	}

	template, _ := e.TemplateBulletFormatting(doc)
	p, err := e.ReplaceFirst(doc, token, bulletText(items[0]))
	if err != nil || p == nil {
		return 0, err
	}
	e.ApplyBulletLayout(doc, p)

	story, at := doc.Locate(p)
	for i, item := range items[1:] {
		np := docx.NewParagraph("")
		np.AddRun(bulletText(item), template)
		e.ApplyBulletLayout(doc, np)
		story.Insert(at+1+i, np)
	}

	e.logger.Debug("项目符号展开完成", "token", token, "items", len(items))
	return len(items), nil
}

func bulletText(item string) string {
	return BulletGlyph + " " + item
}

// ApplyBulletLayout 为段落设置项目符号排版，文档中存在 List Paragraph 样式时一并应用
func (e *Engine) ApplyBulletLayout(doc *docx.Document, p *docx.Paragraph) {
	if doc != nil && doc.Styles.Has(ListParagraphStyle) {
		p.SetStyle(ListParagraphStyle)
	}
	p.SetLayout(e.bulletLayout)
}

// isTemplateBullet 以项目符号开头且包含标记短语的段落
func (e *Engine) isTemplateBullet(p *docx.Paragraph, phrase string) bool {
	text := strings.TrimSpace(p.Text())
	return strings.HasPrefix(text, BulletGlyph) &&
		strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}

// TemplateBulletFormatting 返回模板项目符号段落首个 run 的格式
func (e *Engine) TemplateBulletFormatting(doc *docx.Document) (docx.Formatting, bool) {
	for _, p := range doc.AllParagraphs() {
		if e.isTemplateBullet(p, e.markerPhrase) && len(p.Runs()) > 0 {
			return p.Runs()[0].Formatting, true
		}
	}
	return docx.Formatting{}, false
}

// RemoveTemplateBullets 删除模板项目符号段落，phrase 为空时使用引擎的标记短语
func (e *Engine) RemoveTemplateBullets(doc *docx.Document, phrase string) (int, error) {
	if doc == nil {
		return 0, domain.ErrNoDocumentLoaded
	}
	if phrase == "" {
		phrase = e.markerPhrase
	}
	phrase = strings.TrimRight(strings.TrimSpace(phrase), ".")

	removed := 0
	for _, story := range doc.Stories() {
		var targets []*docx.Paragraph
		for _, p := range story.Paragraphs() {
			if e.isTemplateBullet(p, phrase) {
				targets = append(targets, p)
			}
		}
		for _, p := range targets {
			if story.Remove(p) {
				removed++
			}
		}
	}
	if removed > 0 {
		e.logger.Debug("已删除模板项目符号", "count", removed)
	}
	return removed, nil
}

// NormalizeBullets 整理项目符号：包含项目符号的多行段落按行拆分为独立段落，
// 以项目符号开头的行（以及原本就以项目符号开头的单行段落）应用项目符号排版。
// 返回被拆分或设置排版的段落数。
func (e *Engine) NormalizeBullets(doc *docx.Document) (int, error) {
	if doc == nil {
		return 0, domain.ErrNoDocumentLoaded
	}

	touched := 0
	for _, story := range doc.Stories() {
		// 快照，拆分时序列会变化
		paragraphs := append([]*docx.Paragraph(nil), story.Paragraphs()...)
		for _, p := range paragraphs {
			text := p.Text()
			switch {
			case strings.Contains(text, BulletGlyph) && strings.Contains(text, "\n"):
				e.splitLines(doc, story, p)
				touched++
			case strings.HasPrefix(strings.TrimSpace(text), BulletGlyph):
				if p.Layout() != e.bulletLayout {
					e.ApplyBulletLayout(doc, p)
					touched++
				}
			}
		}
	}
	return touched, nil
}

// splitLines 按换行拆分段落，每行保留原字符格式，空行丢弃
func (e *Engine) splitLines(doc *docx.Document, story *docx.Story, p *docx.Paragraph) {
	var lines []RunIndex
	idx := BuildRunIndex(p)
	start := 0
	for i, c := range idx {
		if c.Char == '\n' {
			lines = append(lines, idx[start:i])
			start = i + 1
		}
	}
	lines = append(lines, idx[start:])

	at := story.Index(p)
	for i, line := range lines {
		if i == 0 {
			lead := 0
			for lead < len(line) && unicode.IsSpace(line[lead].Char) {
				lead++
			}
			// 锚点留在原段落，第一行之后的锚点落到段尾
			p.ShiftAnchors(0, lead, 0)
		}
		line = trimIndex(line)
		if i == 0 {
			// 原段落保留第一行，即使为空
			Rebuild(p, line)
			if strings.HasPrefix(line.Text(), BulletGlyph) {
				e.ApplyBulletLayout(doc, p)
			}
			continue
		}
		if len(line) == 0 {
			continue
		}
		np := docx.NewParagraph("")
		Rebuild(np, line)
		if strings.HasPrefix(line.Text(), BulletGlyph) {
			e.ApplyBulletLayout(doc, np)
		}
		at++
		story.Insert(at, np)
	}
}

func trimIndex(idx RunIndex) RunIndex {
	for len(idx) > 0 && unicode.IsSpace(idx[0].Char) {
		idx = idx[1:]
	}
	for len(idx) > 0 && unicode.IsSpace(idx[len(idx)-1].Char) {
		idx = idx[:len(idx)-1]
	}
	return idx
}
