package docx

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/beevik/etree"
)

const (
	nsCustomProps = "http://schemas.openxmlformats.org/officeDocument/2006/custom-properties"
	nsVTypes      = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"

	customPropsFmtID       = "{D5CDD505-2E9C-101B-9397-08002B2CF9AE}"
	customPropsPart        = "docProps/custom.xml"
	customPropsContentType = "application/vnd.openxmlformats-officedocument.custom-properties+xml"
	customPropsRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/custom-properties"
)

// CustomProperties 文档自定义属性（docProps/custom.xml）
type CustomProperties struct {
	Properties []CustomProperty
	modified   bool
}

// CustomProperty 单个字符串类型的自定义属性
type CustomProperty struct {
	FmtID string
	PID   int
	Name  string
	Value string
}

// ParseCustomProperties 解析自定义属性 XML，内容为空时返回空集合
func ParseCustomProperties(data []byte) (*CustomProperties, error) {
	props := &CustomProperties{}
	if len(data) == 0 {
		return props, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("解析自定义属性XML失败: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return props, nil
	}
	for _, el := range root.SelectElements("property") {
		pid, _ := strconv.Atoi(el.SelectAttrValue("pid", ""))
		prop := CustomProperty{
			FmtID: el.SelectAttrValue("fmtid", customPropsFmtID),
			PID:   pid,
			Name:  el.SelectAttrValue("name", ""),
		}
		// 非字符串类型的值按文本读取
		if children := el.ChildElements(); len(children) > 0 {
			prop.Value = children[0].Text()
		}
		props.Properties = append(props.Properties, prop)
	}
	return props, nil
}

// Get 按名称获取属性值
func (cp *CustomProperties) Get(name string) (string, bool) {
	for _, p := range cp.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Set 设置属性值，不存在时以下一个可用 PID 新增
func (cp *CustomProperties) Set(name, value string) {
	cp.modified = true
	for i, p := range cp.Properties {
		if p.Name == name {
			cp.Properties[i].Value = value
			return
		}
	}
	cp.Properties = append(cp.Properties, CustomProperty{
		FmtID: customPropsFmtID,
		PID:   cp.nextPID(),
		Name:  name,
		Value: value,
	})
}

// Delete 删除属性
func (cp *CustomProperties) Delete(name string) bool {
	for i, p := range cp.Properties {
		if p.Name == name {
			cp.Properties = append(cp.Properties[:i], cp.Properties[i+1:]...)
			cp.modified = true
			return true
		}
	}
	return false
}

// Names 返回排序后的属性名
func (cp *CustomProperties) Names() []string {
	names := make([]string, 0, len(cp.Properties))
	for _, p := range cp.Properties {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Len 返回属性数量
func (cp *CustomProperties) Len() int {
	return len(cp.Properties)
}

// Modified 检查自加载后是否有修改
func (cp *CustomProperties) Modified() bool {
	return cp.modified
}

// nextPID PID 从 2 开始
func (cp *CustomProperties) nextPID() int {
	maxPID := 1
	for _, p := range cp.Properties {
		if p.PID > maxPID {
			maxPID = p.PID
		}
	}
	return maxPID + 1
}

// XML 生成自定义属性 XML
func (cp *CustomProperties) XML() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("Properties")
	root.CreateAttr("xmlns", nsCustomProps)
	root.CreateAttr("xmlns:vt", nsVTypes)
	for _, p := range cp.Properties {
		el := root.CreateElement("property")
		el.CreateAttr("fmtid", p.FmtID)
		el.CreateAttr("pid", strconv.Itoa(p.PID))
		el.CreateAttr("name", p.Name)
		el.CreateElement("vt:lpwstr").SetText(p.Value)
	}
	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("生成自定义属性XML失败: %w", err)
	}
	return data, nil
}
