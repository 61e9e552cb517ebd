package docx

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
)

const (
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// parseDocument 将 word/document.xml 的根元素解析为文档模型
func parseDocument(root *etree.Element, styles *StyleSheet) *Document {
	doc := &Document{Body: &Story{}, Styles: styles}
	body := root.SelectElement("body")
	if body == nil {
		body = root.CreateElement("w:body")
	}
	doc.Body.node = body

	for _, el := range body.ChildElements() {
		switch el.Tag {
		case "p":
			doc.Body.paragraphs = append(doc.Body.paragraphs, parseParagraph(el, styles))
		case "tbl":
			doc.Tables = append(doc.Tables, parseTable(el, styles))
		}
	}
	return doc
}

// parseTable 解析 <w:tbl>，只处理单元格的直接子段落
func parseTable(el *etree.Element, styles *StyleSheet) *Table {
	t := &Table{node: el}
	for _, tr := range el.SelectElements("tr") {
		row := &Row{node: tr}
		for _, tc := range tr.SelectElements("tc") {
			cell := &Cell{}
			cell.node = tc
			for _, p := range tc.SelectElements("p") {
				cell.paragraphs = append(cell.paragraphs, parseParagraph(p, styles))
			}
			row.Cells = append(row.Cells, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// parseParagraph 解析 <w:p>。只有包含文本内容的直接子 <w:r> 会成为 Run，
// 其余子元素（书签标记、图片、域代码等）作为锚点记录其字符位置，写回时放回原位
func parseParagraph(el *etree.Element, styles *StyleSheet) *Paragraph {
	p := &Paragraph{node: el}
	offset := 0
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "pPr":
			parseParagraphProps(p, child, styles)
		case "bookmarkStart":
			a := anchor{node: child, offset: offset}
			if name := child.SelectAttrValue("name", ""); name != "" && name != "_GoBack" {
				p.Bookmarks = append(p.Bookmarks, Bookmark{Name: name, Offset: offset})
				a.bookmark = name
			}
			p.anchors = append(p.anchors, a)
		case "r":
			text, ok := runText(child)
			if !ok {
				p.anchors = append(p.anchors, anchor{node: child, offset: offset})
				continue
			}
			r := &Run{Text: text, node: child, origText: text}
			if rpr := child.SelectElement("rPr"); rpr != nil {
				r.props = rpr.Copy()
				r.Formatting = parseRunProps(rpr)
			}
			r.parsed = r.Formatting
			p.runs = append(p.runs, r)
			p.origRuns = append(p.origRuns, child)
			offset += utf8.RuneCountInString(text)
		default:
			p.anchors = append(p.anchors, anchor{node: child, offset: offset})
		}
	}
	return p
}

// runText 提取 run 的文本，第二个返回值表示该 run 是否承载文本
func runText(r *etree.Element) (string, bool) {
	var sb strings.Builder
	hasText := false
	for _, c := range r.ChildElements() {
		switch c.Tag {
		case "t":
			sb.WriteString(c.Text())
			hasText = true
		case "tab":
			sb.WriteByte('\t')
			hasText = true
		case "br", "cr":
			if t := c.SelectAttrValue("type", "textWrapping"); t != "textWrapping" {
				continue
			}
			sb.WriteByte('\n')
			hasText = true
		case "noBreakHyphen":
			sb.WriteByte('-')
			hasText = true
		}
	}
	return sb.String(), hasText
}

func parseParagraphProps(p *Paragraph, ppr *etree.Element, styles *StyleSheet) {
	if ps := ppr.SelectElement("pStyle"); ps != nil {
		p.style = styles.nameForID(ps.SelectAttrValue("val", ""))
	}
	if ind := ppr.SelectElement("ind"); ind != nil {
		left := ind.SelectAttrValue("left", ind.SelectAttrValue("start", ""))
		if v, err := strconv.Atoi(left); err == nil {
			p.layout.LeftIndent = Some(Length(v))
		}
		if v, err := strconv.Atoi(ind.SelectAttrValue("hanging", "")); err == nil {
			p.layout.FirstLineIndent = Some(Length(-v))
		} else if v, err := strconv.Atoi(ind.SelectAttrValue("firstLine", "")); err == nil {
			p.layout.FirstLineIndent = Some(Length(v))
		}
	}
	if sp := ppr.SelectElement("spacing"); sp != nil {
		if v, err := strconv.Atoi(sp.SelectAttrValue("after", "")); err == nil {
			p.layout.SpaceAfter = Some(Length(v))
		}
		if rule := sp.SelectAttrValue("lineRule", "auto"); rule == "auto" {
			if v, err := strconv.Atoi(sp.SelectAttrValue("line", "")); err == nil {
				p.layout.LineSpacing = Some(float64(v) / 240)
			}
		}
	}
}

// parseRunProps 从 <w:rPr> 提取 Formatting
func parseRunProps(rpr *etree.Element) Formatting {
	var f Formatting
	if b := rpr.SelectElement("b"); b != nil {
		f.Bold = Some(onOff(b))
	}
	if i := rpr.SelectElement("i"); i != nil {
		f.Italic = Some(onOff(i))
	}
	if u := rpr.SelectElement("u"); u != nil {
		f.Underline = Some(u.SelectAttrValue("val", "single") != "none")
	}
	if fonts := rpr.SelectElement("rFonts"); fonts != nil {
		name := fonts.SelectAttrValue("ascii", fonts.SelectAttrValue("hAnsi", ""))
		if name != "" {
			f.FontName = Some(name)
		}
	}
	if sz := rpr.SelectElement("sz"); sz != nil {
		if v, err := strconv.Atoi(sz.SelectAttrValue("val", "")); err == nil {
			f.FontSize = Some(float64(v) / 2)
		}
	}
	if c := rpr.SelectElement("color"); c != nil {
		if rgb, err := ParseRGB(c.SelectAttrValue("val", "auto")); err == nil {
			f.Color = Some(rgb)
		}
	}
	return f
}

// onOff 解析 ST_OnOff 类型的开关属性，缺省为 true
func onOff(el *etree.Element) bool {
	switch el.SelectAttrValue("val", "true") {
	case "false", "0", "off":
		return false
	default:
		return true
	}
}
