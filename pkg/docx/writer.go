package docx

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
)

// rPr 子元素的规范顺序（CT_RPr），未列出的元素排在末尾
var runPropsOrder = rankOf("rStyle", "rFonts", "b", "bCs", "i", "iCs", "caps", "smallCaps",
	"strike", "dstrike", "outline", "shadow", "emboss", "imprint", "noProof", "snapToGrid",
	"vanish", "webHidden", "color", "spacing", "w", "kern", "position", "sz", "szCs",
	"highlight", "u", "effect", "bdr", "shd", "fitText", "vertAlign", "rtl", "cs", "em",
	"lang", "eastAsianLayout", "specVanish", "oMath")

// pPr 子元素的规范顺序（CT_PPr）
var paragraphPropsOrder = rankOf("pStyle", "keepNext", "keepLines", "pageBreakBefore",
	"framePr", "widowControl", "numPr", "suppressLineNumbers", "pBdr", "shd", "tabs",
	"suppressAutoHyphens", "kinsoku", "wordWrap", "overflowPunct", "topLinePunct",
	"autoSpaceDE", "autoSpaceDN", "bidi", "adjustRightInd", "snapToGrid", "spacing", "ind",
	"contextualSpacing", "mirrorIndents", "suppressOverlap", "jc", "textDirection",
	"textAlignment", "textboxTightWrap", "outlineLvl", "divId", "cnfStyle", "rPr", "sectPr",
	"pPrChange")

func rankOf(tags ...string) map[string]int {
	m := make(map[string]int, len(tags))
	for i, t := range tags {
		m[t] = i
	}
	return m
}

func (p *Paragraph) element() *etree.Element { return p.node }
func (t *Table) element() *etree.Element     { return t.node }

// syncDocument 将文档模型的修改写回 XML 树，未修改的段落保持原样
func syncDocument(d *Document) {
	body := d.Body.node
	for _, b := range d.Body.tail {
		switch v := b.(type) {
		case *Paragraph:
			v.materialize()
			appendBeforeSectPr(body, v.node)
		case *Table:
			buildTable(v)
			appendBeforeSectPr(body, v.node)
		}
	}
	d.Body.tail = nil

	for _, s := range d.Stories() {
		s.sync(d.Styles)
	}
}

func (s *Story) sync(styles *StyleSheet) {
	for _, n := range s.removed {
		if parent := n.Parent(); parent != nil {
			parent.RemoveChild(n)
		}
	}
	s.removed = nil

	for _, b := range s.tail {
		if p, ok := b.(*Paragraph); ok {
			p.materialize()
			appendBeforeSectPr(s.node, p.node)
		}
	}
	s.tail = nil

	for i, p := range s.paragraphs {
		if p.node == nil {
			p.materialize()
			s.place(i, p)
		}
		writeParagraph(p, styles)
	}
}

// materialize 为尚未写入的段落创建节点，并标记全部内容需要写出
func (p *Paragraph) materialize() {
	p.node = etree.NewElement("w:p")
	p.origRuns = nil
	p.anchors = nil
	p.runsDirty = true
	p.styleDirty = p.style != ""
	p.layoutDirty = !p.layout.IsZero()
}

// place 将新段落的节点放在前一个（或后一个）兄弟段落旁边
func (s *Story) place(i int, p *Paragraph) {
	for j := i - 1; j >= 0; j-- {
		if prev := s.paragraphs[j].node; prev != nil && prev.Parent() != nil {
			prev.Parent().InsertChildAt(prev.Index()+1, p.node)
			return
		}
	}
	for j := i + 1; j < len(s.paragraphs); j++ {
		if next := s.paragraphs[j].node; next != nil && next.Parent() != nil {
			next.Parent().InsertChildAt(next.Index(), p.node)
			return
		}
	}
	appendBeforeSectPr(s.node, p.node)
}

func appendBeforeSectPr(parent, child *etree.Element) {
	if sect := parent.SelectElement("sectPr"); sect != nil {
		parent.InsertChildAt(sect.Index(), child)
		return
	}
	parent.AddChild(child)
}

// buildTable 为新建的表格生成 XML
func buildTable(t *Table) {
	t.node = etree.NewElement("w:tbl")
	tblPr := t.node.CreateElement("w:tblPr")
	w := tblPr.CreateElement("w:tblW")
	w.CreateAttr("w:w", "0")
	w.CreateAttr("w:type", "auto")
	borders := tblPr.CreateElement("w:tblBorders")
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		b := borders.CreateElement("w:" + side)
		b.CreateAttr("w:val", "single")
		b.CreateAttr("w:sz", "4")
		b.CreateAttr("w:space", "0")
		b.CreateAttr("w:color", "auto")
	}
	cols := 0
	for _, row := range t.Rows {
		if len(row.Cells) > cols {
			cols = len(row.Cells)
		}
	}
	grid := t.node.CreateElement("w:tblGrid")
	for i := 0; i < cols; i++ {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", strconv.Itoa(9000/max(cols, 1)))
	}
	for _, row := range t.Rows {
		row.node = t.node.CreateElement("w:tr")
		for _, cell := range row.Cells {
			cell.node = row.node.CreateElement("w:tc")
			tcPr := cell.node.CreateElement("w:tcPr")
			tcW := tcPr.CreateElement("w:tcW")
			tcW.CreateAttr("w:w", "0")
			tcW.CreateAttr("w:type", "auto")
		}
	}
}

// writeParagraph 将段落的修改写回其 <w:p> 节点
func writeParagraph(p *Paragraph, styles *StyleSheet) {
	if p.styleDirty || p.layoutDirty {
		writeParagraphProps(p, styles)
		p.styleDirty, p.layoutDirty = false, false
	}
	if !p.runsChanged() {
		return
	}

	total := 0
	for _, r := range p.runs {
		total += utf8.RuneCountInString(r.Text)
	}
	anchors := p.placeAnchors(total)

	for _, n := range p.origRuns {
		if n.Parent() == p.node {
			p.node.RemoveChild(n)
		}
	}
	for _, a := range anchors {
		if a.node.Parent() == p.node {
			p.node.RemoveChild(a.node)
		}
	}

	// 按字符位置交错写回 run 与锚点，跨越锚点的 run 在锚点处拆分
	pos, next := 0, 0
	flushAnchors := func() {
		for next < len(anchors) && anchors[next].offset <= pos {
			p.node.AddChild(anchors[next].node)
			next++
		}
	}
	p.origRuns = p.origRuns[:0]
	for _, r := range p.runs {
		text := []rune(r.Text)
		r.node = nil
		for {
			flushAnchors()
			n := len(text)
			if next < len(anchors) && anchors[next].offset-pos < n {
				n = anchors[next].offset - pos
			}
			el := buildRun(r, string(text[:n]))
			p.node.AddChild(el)
			p.origRuns = append(p.origRuns, el)
			if r.node == nil {
				r.node = el
			}
			pos += n
			text = text[n:]
			if len(text) == 0 {
				break
			}
		}
		r.origText = r.Text
		r.parsed = r.Formatting
		if rpr := r.node.SelectElement("rPr"); rpr != nil {
			r.props = rpr.Copy()
		} else {
			r.props = nil
		}
		r.keyed = false
	}
	flushAnchors()
	p.runsDirty = false
}

// placeAnchors 确定锚点的写回位置：书签以 Bookmarks 中的位置为准，超出文本的锚点放在段尾
func (p *Paragraph) placeAnchors(total int) []anchor {
	for i := range p.anchors {
		a := &p.anchors[i]
		if a.bookmark != "" {
			for _, b := range p.Bookmarks {
				if b.Name == a.bookmark {
					a.offset = b.Offset
					break
				}
			}
		}
		a.offset = min(max(a.offset, 0), total)
	}
	sort.SliceStable(p.anchors, func(i, j int) bool {
		return p.anchors[i].offset < p.anchors[j].offset
	})
	return p.anchors
}

func (p *Paragraph) runsChanged() bool {
	if p.runsDirty || len(p.runs) != len(p.origRuns) {
		return true
	}
	for _, r := range p.runs {
		if r.changed() {
			return true
		}
	}
	return false
}

func writeParagraphProps(p *Paragraph, styles *StyleSheet) {
	ppr := p.node.SelectElement("pPr")
	if ppr == nil {
		ppr = etree.NewElement("w:pPr")
		p.node.InsertChildAt(0, ppr)
	}

	if p.styleDirty {
		removeChildren(ppr, "pStyle")
		if p.style != "" {
			ppr.CreateElement("w:pStyle").CreateAttr("w:val", styles.idForName(p.style))
		}
	}

	if p.layoutDirty {
		l := p.layout
		if l.LeftIndent.IsSet() || l.FirstLineIndent.IsSet() {
			ind := childOrCreate(ppr, "ind")
			if v, ok := l.LeftIndent.Get(); ok {
				ind.RemoveAttr("w:start")
				ind.CreateAttr("w:left", strconv.Itoa(int(v)))
			}
			if v, ok := l.FirstLineIndent.Get(); ok {
				ind.RemoveAttr("w:firstLine")
				ind.RemoveAttr("w:hanging")
				if v < 0 {
					ind.CreateAttr("w:hanging", strconv.Itoa(int(-v)))
				} else {
					ind.CreateAttr("w:firstLine", strconv.Itoa(int(v)))
				}
			}
		}
		if l.SpaceAfter.IsSet() || l.LineSpacing.IsSet() {
			sp := childOrCreate(ppr, "spacing")
			if v, ok := l.SpaceAfter.Get(); ok {
				sp.CreateAttr("w:after", strconv.Itoa(int(v)))
			}
			if v, ok := l.LineSpacing.Get(); ok {
				sp.CreateAttr("w:line", strconv.Itoa(int(math.Round(v*240))))
				sp.CreateAttr("w:lineRule", "auto")
			}
		}
	}
	sortChildren(ppr, paragraphPropsOrder)
}

// buildRun 以 r 的格式生成承载 text 的 <w:r>，换行写为 <w:br/>，制表符写为 <w:tab/>
func buildRun(r *Run, text string) *etree.Element {
	el := etree.NewElement("w:r")
	if rpr := buildRunProps(r); len(rpr.ChildElements()) > 0 {
		el.AddChild(rpr)
	}

	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		t := el.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(buf.String())
		buf.Reset()
	}
	for _, c := range text {
		switch c {
		case '\t':
			flush()
			el.CreateElement("w:tab")
		case '\n':
			flush()
			el.CreateElement("w:br")
		default:
			buf.WriteRune(c)
		}
	}
	flush()
	return el
}

func buildRunProps(r *Run) *etree.Element {
	var rpr *etree.Element
	if r.props != nil {
		rpr = r.props.Copy()
		if r.Formatting == r.parsed {
			return rpr
		}
	} else {
		rpr = etree.NewElement("w:rPr")
	}

	f := r.Formatting
	setToggle(rpr, "b", f.Bold)
	setToggle(rpr, "i", f.Italic)

	removeChildren(rpr, "u")
	if v, ok := f.Underline.Get(); ok {
		val := "none"
		if v {
			val = "single"
		}
		rpr.CreateElement("w:u").CreateAttr("w:val", val)
	}

	if name, ok := f.FontName.Get(); ok {
		fonts := childOrCreate(rpr, "rFonts")
		fonts.CreateAttr("w:ascii", name)
		fonts.CreateAttr("w:hAnsi", name)
	} else if fonts := rpr.SelectElement("rFonts"); fonts != nil {
		fonts.RemoveAttr("w:ascii")
		fonts.RemoveAttr("w:hAnsi")
		if len(fonts.Attr) == 0 {
			rpr.RemoveChild(fonts)
		}
	}

	removeChildren(rpr, "sz")
	if v, ok := f.FontSize.Get(); ok {
		rpr.CreateElement("w:sz").CreateAttr("w:val", strconv.Itoa(int(math.Round(v*2))))
	}

	removeChildren(rpr, "color")
	if c, ok := f.Color.Get(); ok {
		rpr.CreateElement("w:color").CreateAttr("w:val", c.Hex())
	}

	sortChildren(rpr, runPropsOrder)
	return rpr
}

func setToggle(rpr *etree.Element, tag string, v Option[bool]) {
	removeChildren(rpr, tag)
	if on, ok := v.Get(); ok {
		el := rpr.CreateElement("w:" + tag)
		if !on {
			el.CreateAttr("w:val", "0")
		}
	}
}

func removeChildren(parent *etree.Element, tag string) {
	for _, c := range parent.SelectElements(tag) {
		parent.RemoveChild(c)
	}
}

func childOrCreate(parent *etree.Element, tag string) *etree.Element {
	if c := parent.SelectElement(tag); c != nil {
		return c
	}
	return parent.CreateElement("w:" + tag)
}

// sortChildren 按 schema 顺序重排子元素，保持同类元素的相对顺序
func sortChildren(parent *etree.Element, order map[string]int) {
	children := parent.ChildElements()
	rank := func(e *etree.Element) int {
		if r, ok := order[e.Tag]; ok {
			return r
		}
		return len(order)
	}
	sorted := sort.SliceIsSorted(children, func(i, j int) bool {
		return rank(children[i]) < rank(children[j])
	})
	if sorted {
		return
	}
	sort.SliceStable(children, func(i, j int) bool {
		return rank(children[i]) < rank(children[j])
	})
	for _, c := range children {
		parent.RemoveChild(c)
	}
	for _, c := range children {
		parent.AddChild(c)
	}
}
