package engine

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// ReplaceLiteral 在全部段落（正文及表格单元格）中替换字面量，返回替换总次数。
// 返回 0 表示未找到，不视为错误；单个段落的失败被收集后继续处理其余段落。
func (e *Engine) ReplaceLiteral(doc *docx.Document, search, replacement string, opts domain.ReplaceOptions) (int, error) {
	stats, err := e.ReplaceLiteralStats(doc, search, replacement, opts)
	return stats.Occurrences, err
}

// ReplaceLiteralStats 与 ReplaceLiteral 相同，并区分正文段落与表格中的替换次数
func (e *Engine) ReplaceLiteralStats(doc *docx.Document, search, replacement string, opts domain.ReplaceOptions) (domain.ReplacementStats, error) {
	stats := domain.ReplacementStats{Keyword: search}
	if doc == nil {
		return stats, domain.ErrNoDocumentLoaded
	}
	if search == "" {
		return stats, nil
	}

	var errs []error
	for si, story := range doc.Stories() {
		for pi, p := range story.Paragraphs() {
			n, err := e.replaceInParagraph(p, search, replacement, opts)
			if err != nil {
				errs = append(errs, fmt.Errorf("序列 %d 段落 %d: %w", si, pi, err))
				continue
			}
			if n == 0 {
				continue
			}
			if si == 0 {
				stats.InParagraphs += n
			} else {
				stats.InTables += n
			}
			e.logger.Debug("段落替换完成", "search", search, "count", n, "story", si, "paragraph", pi)
		}
	}
	stats.Occurrences = stats.InParagraphs + stats.InTables
	return stats, errors.Join(errs...)
}

// replaceInParagraph 处理单个段落。段落要么整体重建，要么保持不变
func (e *Engine) replaceInParagraph(p *docx.Paragraph, search, replacement string, opts domain.ReplaceOptions) (int, error) {
	if len(p.Runs()) == 0 {
		return 0, nil
	}
	text := p.Text()
	if !e.matcher.Contains(text, search, opts.CaseSensitive) {
		return 0, nil
	}
	if !utf8.ValidString(text) {
		return 0, domain.ErrMalformedParagraph
	}

	if !opts.PreserveFormatting {
		matches := e.matcher.FindAll(text, search, opts.CaseSensitive)
		newText, n := e.matcher.Replace(text, search, replacement, opts.CaseSensitive)
		if newText != text {
			size := utf8.RuneCountInString(replacement)
			for i := len(matches) - 1; i >= 0; i-- {
				p.ShiftAnchors(matches[i].Start, matches[i].End, size)
			}
			p.SetRuns([]*docx.Run{docx.NewRun(newText, docx.Formatting{})})
		}
		return n, nil
	}

	matches := e.matcher.FindAll(text, search, opts.CaseSensitive)
	if len(matches) == 0 {
		return 0, nil
	}

	idx := BuildRunIndex(p)
	changed := false
	// 从右向左处理，避免长度变化使前面的偏移失效
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if idx[m.Start:m.End].Text() == replacement {
			continue
		}
		idx = splice(p, idx, m.Start, m.End, replacement, idx[m.Start])
		changed = true
	}
	if changed {
		Rebuild(p, idx)
	}
	return len(matches), nil
}

// ReplaceFirst 只替换首个包含 search 的段落中的第一次出现，返回被修改的段落
func (e *Engine) ReplaceFirst(doc *docx.Document, search, replacement string) (*docx.Paragraph, error) {
	if doc == nil {
		return nil, domain.ErrNoDocumentLoaded
	}
	if search == "" {
		return nil, nil
	}
	for _, p := range doc.AllParagraphs() {
		text := p.Text()
		if !e.matcher.Contains(text, search, true) {
			continue
		}
		if !utf8.ValidString(text) {
			return nil, domain.ErrMalformedParagraph
		}
		m := e.matcher.FindAll(text, search, true)[0]
		idx := BuildRunIndex(p)
		Rebuild(p, splice(p, idx, m.Start, m.End, replacement, idx[m.Start]))
		return p, nil
	}
	return nil, nil
}
