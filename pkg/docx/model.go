package docx

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Option 可选值。未设置与设置为零值是两种不同状态，且可以直接用 == 比较
type Option[T comparable] struct {
	value T
	set   bool
}

// Some 返回一个已设置的可选值
func Some[T comparable](v T) Option[T] {
	return Option[T]{value: v, set: true}
}

// Get 返回值以及是否已设置
func (o Option[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet 检查是否已设置
func (o Option[T]) IsSet() bool {
	return o.set
}

// OrElse 未设置时返回 def
func (o Option[T]) OrElse(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

func (o Option[T]) String() string {
	if !o.set {
		return "unset"
	}
	return fmt.Sprint(o.value)
}

// RGB 文字颜色
type RGB struct {
	R, G, B uint8
}

// ParseRGB 解析 "RRGGBB" 形式的十六进制颜色
func ParseRGB(hex string) (RGB, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("颜色格式无效: %q", hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("颜色格式无效: %q: %w", hex, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex 返回 "RRGGBB" 形式
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// Formatting 描述一个文本块（run）的视觉属性。
// 所有字段都可以处于"未设置"状态；两个 Formatting 当且仅当全部字段相等时相等。
type Formatting struct {
	Bold      Option[bool]
	Italic    Option[bool]
	Underline Option[bool]
	FontName  Option[string]
	FontSize  Option[float64] // 磅
	Color     Option[RGB]
}

// IsZero 检查是否没有设置任何属性
func (f Formatting) IsZero() bool {
	return f == Formatting{}
}

// Length 以 twip（1/20 磅）为单位的长度
type Length int

// Inches 英寸转换为 Length
func Inches(v float64) Length {
	return Length(math.Round(v * 1440))
}

// Pt 磅转换为 Length
func Pt(v float64) Length {
	return Length(math.Round(v * 20))
}

// Inches 返回英寸值
func (l Length) Inches() float64 {
	return float64(l) / 1440
}

// Points 返回磅值
func (l Length) Points() float64 {
	return float64(l) / 20
}

// ParagraphLayout 段落级排版属性
type ParagraphLayout struct {
	LeftIndent      Option[Length]
	FirstLineIndent Option[Length] // 负值表示悬挂缩进
	SpaceAfter      Option[Length]
	LineSpacing     Option[float64] // 行距倍数
}

// IsZero 检查是否没有设置任何排版属性
func (l ParagraphLayout) IsZero() bool {
	return l == ParagraphLayout{}
}

// Run 是具有统一格式的最小文本单元
type Run struct {
	Text       string
	Formatting Formatting

	node     *etree.Element // 来源 <w:r>，新建的 run 为 nil
	props    *etree.Element // 来源 <w:rPr>，写回时在其副本上应用 Formatting
	parsed   Formatting
	origText string

	key   string
	keyed bool
}

// NewRun 创建一个新的 run
func NewRun(text string, f Formatting) *Run {
	return &Run{Text: text, Formatting: f}
}

// Derive 以相同的格式（包括未建模的原始属性）创建一个文本不同的新 run
func (r *Run) Derive(text string) *Run {
	return &Run{
		Text:       text,
		Formatting: r.Formatting,
		props:      r.props,
		parsed:     r.parsed,
		key:        r.key,
		keyed:      r.keyed,
	}
}

// SameProps 检查两个 run 未建模的原始属性（高亮、删除线、字符样式等）是否相同
func (r *Run) SameProps(o *Run) bool {
	return r.propsKey() == o.propsKey()
}

// modelledProps 已由 Formatting 表达的 rPr 子元素
var modelledProps = map[string]bool{"b": true, "i": true, "u": true, "sz": true, "color": true}

func (r *Run) propsKey() string {
	if r == nil || r.props == nil {
		return ""
	}
	if !r.keyed {
		var parts []string
		for _, c := range r.props.ChildElements() {
			if modelledProps[c.Tag] {
				continue
			}
			var sb strings.Builder
			writeCanonical(&sb, c, c.Tag == "rFonts")
			if c.Tag == "rFonts" && sb.String() == "<rFonts>" {
				continue
			}
			parts = append(parts, sb.String())
		}
		sort.Strings(parts)
		r.key, r.keyed = strings.Join(parts, ""), true
	}
	return r.key
}

// writeCanonical 以属性排序后的形式输出元素，fontNames 为 true 时忽略已建模的字体名
func writeCanonical(sb *strings.Builder, el *etree.Element, fontNames bool) {
	attrs := make([]string, 0, len(el.Attr))
	for _, a := range el.Attr {
		if fontNames && (a.Key == "ascii" || a.Key == "hAnsi") {
			continue
		}
		attrs = append(attrs, a.Key+"="+a.Value)
	}
	sort.Strings(attrs)
	sb.WriteString("<" + el.Tag)
	for _, a := range attrs {
		sb.WriteString(" " + a)
	}
	sb.WriteString(">")
	for _, c := range el.ChildElements() {
		writeCanonical(sb, c, false)
	}
}

func (r *Run) changed() bool {
	return r.node == nil || r.Text != r.origText || r.Formatting != r.parsed
}

// Bookmark 段落内的书签，Offset 为书签在段落文本中的字符（rune）位置
type Bookmark struct {
	Name   string
	Offset int
}

// anchor 段落中不参与建模的子元素（书签标记、图片 run、域等）及其字符位置
type anchor struct {
	node     *etree.Element
	offset   int
	bookmark string
}

// Paragraph 由有序的 run 组成的段落
type Paragraph struct {
	Bookmarks []Bookmark

	anchors []anchor
	runs    []*Run
	style  string
	layout ParagraphLayout

	node        *etree.Element
	origRuns    []*etree.Element
	runsDirty   bool
	styleDirty  bool
	layoutDirty bool
}

// NewParagraph 创建一个段落，text 非空时包含一个默认格式的 run
func NewParagraph(text string) *Paragraph {
	p := &Paragraph{}
	if text != "" {
		p.AddRun(text, Formatting{})
	}
	return p
}

// Runs 返回段落的 run 序列（插入顺序即渲染顺序）
func (p *Paragraph) Runs() []*Run {
	return p.runs
}

// SetRuns 用新的序列替换全部 run
func (p *Paragraph) SetRuns(runs []*Run) {
	p.runs = runs
	p.runsDirty = true
}

// AddRun 在段落末尾追加一个 run
func (p *Paragraph) AddRun(text string, f Formatting) *Run {
	r := NewRun(text, f)
	p.runs = append(p.runs, r)
	p.runsDirty = true
	return r
}

// ShiftAnchors 在文本 [start, end) 被替换为 n 个字符之后调整书签及其他锚点的位置。
// 位于 start 及之前的锚点不动，位于被替换区间内的锚点落在替换文本内的相同位置（不超过其末尾）
func (p *Paragraph) ShiftAnchors(start, end, n int) {
	for i := range p.Bookmarks {
		p.Bookmarks[i].Offset = shiftOffset(p.Bookmarks[i].Offset, start, end, n)
	}
	for i := range p.anchors {
		p.anchors[i].offset = shiftOffset(p.anchors[i].offset, start, end, n)
	}
}

func shiftOffset(off, start, end, n int) int {
	switch {
	case off <= start:
		return off
	case off >= end:
		return off + n - (end - start)
	default:
		return start + min(off-start, n)
	}
}

// Clear 删除所有 run，保留段落属性
func (p *Paragraph) Clear() {
	p.SetRuns(nil)
}

// Text 返回所有 run 文本的拼接
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Style 返回段落样式名称
func (p *Paragraph) Style() string {
	return p.style
}

// SetStyle 按名称设置段落样式
func (p *Paragraph) SetStyle(name string) {
	p.style = name
	p.styleDirty = true
}

// Layout 返回段落排版属性
func (p *Paragraph) Layout() ParagraphLayout {
	return p.layout
}

// SetLayout 设置段落排版属性
func (p *Paragraph) SetLayout(l ParagraphLayout) {
	p.layout = l
	p.layoutDirty = true
}

// Modified 检查段落自加载后是否被修改
func (p *Paragraph) Modified() bool {
	if p.node == nil || p.runsDirty || p.styleDirty || p.layoutDirty {
		return true
	}
	for _, r := range p.runs {
		if r.changed() {
			return true
		}
	}
	return false
}

// Story 是段落的有序归属序列：文档正文或一个表格单元格。
// 段落的插入以"在序列中的位置"表达，段落本身不持有父节点引用。
type Story struct {
	paragraphs []*Paragraph

	node    *etree.Element
	removed []*etree.Element
	tail    []block
}

// block 追加到序列末尾、尚未写入 XML 的块（段落或表格）
type block interface {
	element() *etree.Element
}

// Paragraphs 返回序列中的段落
func (s *Story) Paragraphs() []*Paragraph {
	return s.paragraphs
}

// Len 返回段落数量
func (s *Story) Len() int {
	return len(s.paragraphs)
}

// Index 返回段落在序列中的位置，不存在时返回 -1
func (s *Story) Index(p *Paragraph) int {
	for i, q := range s.paragraphs {
		if q == p {
			return i
		}
	}
	return -1
}

// Insert 在位置 k 插入段落
func (s *Story) Insert(k int, p *Paragraph) {
	if k < 0 {
		k = 0
	}
	if k >= len(s.paragraphs) {
		s.paragraphs = append(s.paragraphs, p)
		return
	}
	s.paragraphs = append(s.paragraphs, nil)
	copy(s.paragraphs[k+1:], s.paragraphs[k:])
	s.paragraphs[k] = p
}

// InsertAfter 在 anchor 之后插入段落，anchor 不在序列中时返回 false
func (s *Story) InsertAfter(anchor, p *Paragraph) bool {
	i := s.Index(anchor)
	if i < 0 {
		return false
	}
	s.Insert(i+1, p)
	return true
}

// Append 在序列末尾追加段落
func (s *Story) Append(p *Paragraph) {
	s.paragraphs = append(s.paragraphs, p)
	if p.node == nil {
		s.tail = append(s.tail, p)
	}
}

// Remove 从序列中删除段落
func (s *Story) Remove(p *Paragraph) bool {
	i := s.Index(p)
	if i < 0 {
		return false
	}
	s.paragraphs = append(s.paragraphs[:i], s.paragraphs[i+1:]...)
	if p.node != nil {
		s.removed = append(s.removed, p.node)
		p.node = nil
		return true
	}
	for j, b := range s.tail {
		if b == block(p) {
			s.tail = append(s.tail[:j], s.tail[j+1:]...)
			break
		}
	}
	return true
}

// Cell 表格单元格，拥有自己的段落序列
type Cell struct {
	Story
}

// Text 返回单元格内全部段落文本，段落之间以换行分隔
func (c *Cell) Text() string {
	texts := make([]string, 0, len(c.paragraphs))
	for _, p := range c.paragraphs {
		texts = append(texts, p.Text())
	}
	return strings.Join(texts, "\n")
}

// Row 表格行
type Row struct {
	Cells []*Cell

	node *etree.Element
}

// Table 表格
type Table struct {
	Rows []*Row

	node *etree.Element
}

// Cell 返回指定位置的单元格，越界时返回 nil
func (t *Table) Cell(row, col int) *Cell {
	if row < 0 || row >= len(t.Rows) {
		return nil
	}
	cells := t.Rows[row].Cells
	if col < 0 || col >= len(cells) {
		return nil
	}
	return cells[col]
}

// Document 文档：有序的顶层段落以及有序的表格
type Document struct {
	Body   *Story
	Tables []*Table
	Styles *StyleSheet
}

// NewDocument 创建一个空文档，使用默认样式表
func NewDocument() *Document {
	return &Document{
		Body:   &Story{},
		Styles: DefaultStyleSheet(),
	}
}

// Paragraphs 返回顶层段落
func (d *Document) Paragraphs() []*Paragraph {
	return d.Body.paragraphs
}

// Stories 按文档顺序返回全部段落序列：先正文，再每个表格的每个单元格
func (d *Document) Stories() []*Story {
	stories := []*Story{d.Body}
	for _, t := range d.Tables {
		for _, row := range t.Rows {
			for _, cell := range row.Cells {
				stories = append(stories, &cell.Story)
			}
		}
	}
	return stories
}

// AllParagraphs 按文档顺序返回全部段落，每个段落恰好出现一次
func (d *Document) AllParagraphs() []*Paragraph {
	var all []*Paragraph
	for _, s := range d.Stories() {
		all = append(all, s.paragraphs...)
	}
	return all
}

// Locate 返回段落所属的序列以及位置
func (d *Document) Locate(p *Paragraph) (*Story, int) {
	for _, s := range d.Stories() {
		if i := s.Index(p); i >= 0 {
			return s, i
		}
	}
	return nil, -1
}

// AppendParagraph 在文档末尾追加段落
func (d *Document) AppendParagraph(p *Paragraph) {
	d.Body.Append(p)
}

// AddTable 在文档末尾追加一个 rows x cols 的空表格，每个单元格含一个空段落
func (d *Document) AddTable(rows, cols int) *Table {
	t := &Table{}
	for i := 0; i < rows; i++ {
		row := &Row{}
		for j := 0; j < cols; j++ {
			cell := &Cell{}
			cell.paragraphs = []*Paragraph{NewParagraph("")}
			row.Cells = append(row.Cells, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	d.Tables = append(d.Tables, t)
	d.Body.tail = append(d.Body.tail, t)
	return t
}

// Text 返回顶层段落文本，以换行分隔
func (d *Document) Text() string {
	texts := make([]string, 0, len(d.Body.paragraphs))
	for _, p := range d.Body.paragraphs {
		texts = append(texts, p.Text())
	}
	return strings.Join(texts, "\n")
}

// FullText 返回全部段落（含表格）文本，以换行分隔
func (d *Document) FullText() string {
	all := d.AllParagraphs()
	texts := make([]string, 0, len(all))
	for _, p := range all {
		texts = append(texts, p.Text())
	}
	return strings.Join(texts, "\n")
}
