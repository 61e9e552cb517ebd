package docx

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Style 段落样式
type Style struct {
	ID   string
	Name string
}

// StyleSheet 文档的段落样式表，加载时填充一次，按名称引用样式
type StyleSheet struct {
	byName map[string]Style
	byID   map[string]Style
}

// NewStyleSheet 创建空样式表
func NewStyleSheet() *StyleSheet {
	return &StyleSheet{
		byName: make(map[string]Style),
		byID:   make(map[string]Style),
	}
}

// DefaultStyleSheet 返回新建文档使用的样式
func DefaultStyleSheet() *StyleSheet {
	s := NewStyleSheet()
	for _, st := range defaultStyles {
		s.Add(st)
	}
	return s
}

var defaultStyles = []Style{
	{ID: "Normal", Name: "Normal"},
	{ID: "Title", Name: "Title"},
	{ID: "Heading1", Name: "Heading 1"},
	{ID: "Heading2", Name: "Heading 2"},
	{ID: "ListParagraph", Name: "List Paragraph"},
}

// Add 添加样式
func (s *StyleSheet) Add(st Style) {
	if st.Name == "" {
		st.Name = st.ID
	}
	s.byName[st.Name] = st
	s.byID[st.ID] = st
}

// Lookup 按名称查找样式
func (s *StyleSheet) Lookup(name string) (Style, bool) {
	if s == nil {
		return Style{}, false
	}
	st, ok := s.byName[name]
	return st, ok
}

// Has 检查样式是否存在
func (s *StyleSheet) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Names 返回按名称排序的样式名
func (s *StyleSheet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 返回样式数量
func (s *StyleSheet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byName)
}

func (s *StyleSheet) nameForID(id string) string {
	if s != nil {
		if st, ok := s.byID[id]; ok {
			return st.Name
		}
	}
	return id
}

func (s *StyleSheet) idForName(name string) string {
	if st, ok := s.Lookup(name); ok {
		return st.ID
	}
	return strings.ReplaceAll(name, " ", "")
}

// parseStyles 解析 word/styles.xml 中的段落样式
func parseStyles(data []byte) (*StyleSheet, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	sheet := NewStyleSheet()
	root := doc.Root()
	if root == nil {
		return sheet, nil
	}
	for _, el := range root.SelectElements("style") {
		if t := el.SelectAttrValue("type", "paragraph"); t != "paragraph" {
			continue
		}
		st := Style{ID: el.SelectAttrValue("styleId", "")}
		if name := el.SelectElement("name"); name != nil {
			st.Name = name.SelectAttrValue("val", "")
		}
		if st.ID == "" {
			continue
		}
		sheet.Add(st)
	}
	return sheet, nil
}

// stylesXML 生成新建文档的 styles.xml
func stylesXML() []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", nsW)
	for _, st := range defaultStyles {
		el := root.CreateElement("w:style")
		el.CreateAttr("w:type", "paragraph")
		el.CreateAttr("w:styleId", st.ID)
		if st.ID == "Normal" {
			el.CreateAttr("w:default", "1")
		}
		el.CreateElement("w:name").CreateAttr("w:val", st.Name)
		if st.ID != "Normal" {
			el.CreateElement("w:basedOn").CreateAttr("w:val", "Normal")
		}
		switch st.ID {
		case "Title", "Heading1":
			rpr := el.CreateElement("w:rPr")
			rpr.CreateElement("w:b")
			rpr.CreateElement("w:sz").CreateAttr("w:val", "32")
		case "Heading2":
			rpr := el.CreateElement("w:rPr")
			rpr.CreateElement("w:b")
			rpr.CreateElement("w:sz").CreateAttr("w:val", "26")
		case "ListParagraph":
			el.CreateElement("w:pPr").CreateElement("w:ind").CreateAttr("w:left", "720")
		}
	}
	data, _ := doc.WriteToBytes()
	return data
}
