package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/allanpk716/docx_filler/pkg/docx"
)

// CharFormat 段落中一个字符及其来源 run 的格式
type CharFormat struct {
	Char       rune
	Formatting docx.Formatting
	Source     *docx.Run
}

// RunIndex 段落的逐字符格式映射，只在一次替换操作内有效
type RunIndex []CharFormat

// BuildRunIndex 为段落建立逐字符映射，跳过空 run
func BuildRunIndex(p *docx.Paragraph) RunIndex {
	var idx RunIndex
	for _, r := range p.Runs() {
		for _, c := range r.Text {
			idx = append(idx, CharFormat{Char: c, Formatting: r.Formatting, Source: r})
		}
	}
	return idx
}

// Text 返回映射对应的文本
func (idx RunIndex) Text() string {
	var sb strings.Builder
	for _, c := range idx {
		sb.WriteRune(c.Char)
	}
	return sb.String()
}

// Splice 将 [start, end) 替换为 text，新字符继承 from 位置字符的格式
func (idx RunIndex) Splice(start, end int, text string, from CharFormat) RunIndex {
	repl := make(RunIndex, 0, len(text))
	for _, c := range text {
		repl = append(repl, CharFormat{Char: c, Formatting: from.Formatting, Source: from.Source})
	}
	out := make(RunIndex, 0, len(idx)-(end-start)+len(repl))
	out = append(out, idx[:start]...)
	out = append(out, repl...)
	return append(out, idx[end:]...)
}

// splice 在映射上执行 Splice，并同步顺延段落中书签等锚点的位置
func splice(p *docx.Paragraph, idx RunIndex, start, end int, text string, from CharFormat) RunIndex {
	p.ShiftAnchors(start, end, utf8.RuneCountInString(text))
	return idx.Splice(start, end, text, from)
}

// Rebuild 将映射重新组合为最少的 run 序列：相邻且格式相同的字符合并为一个 run。
// 来源 run 的未建模属性（高亮、删除线等）不同时不合并
func Rebuild(p *docx.Paragraph, idx RunIndex) {
	var runs []*docx.Run
	var sb strings.Builder
	var cur *CharFormat

	flush := func() {
		if cur == nil || sb.Len() == 0 {
			return
		}
		var r *docx.Run
		if cur.Source != nil {
			r = cur.Source.Derive(sb.String())
			r.Formatting = cur.Formatting
		} else {
			r = docx.NewRun(sb.String(), cur.Formatting)
		}
		runs = append(runs, r)
		sb.Reset()
	}

	for i := range idx {
		c := &idx[i]
		if cur == nil || c.Formatting != cur.Formatting ||
			(c.Source != cur.Source && !c.Source.SameProps(cur.Source)) {
			flush()
			cur = c
		}
		sb.WriteRune(c.Char)
	}
	flush()
	p.SetRuns(runs)
}
