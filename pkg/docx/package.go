package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrInvalidDocument 输入不是可读取的 docx 文档
var ErrInvalidDocument = errors.New("无效的docx文档")

const (
	partContentTypes = "[Content_Types].xml"
	partRootRels     = "_rels/.rels"
	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"
	partStyles       = "word/styles.xml"

	nsPackageRels = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentType = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// File 一个已打开的 docx 包：文档模型加上包内的其他部件。
// 未被模型覆盖的部件按原样写回。
type File struct {
	*Document

	parts  []part
	docXML *etree.Document
	custom *CustomProperties
}

type part struct {
	name string
	data []byte
}

// Open 打开 docx 文件
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文档失败: %w", err)
	}
	f, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Read 从 reader 读取 docx
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取文档失败: %w", err)
	}
	return Load(data)
}

// Load 从内存中的 docx 字节加载
func Load(data []byte) (*File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	f := &File{}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		content, err := readZipFile(zf)
		if err != nil {
			return nil, fmt.Errorf("%w: 读取 %s 失败: %v", ErrInvalidDocument, zf.Name, err)
		}
		f.parts = append(f.parts, part{name: zf.Name, data: content})
	}

	docData, ok := f.part(partDocument)
	if !ok {
		return nil, fmt.Errorf("%w: 缺少 %s", ErrInvalidDocument, partDocument)
	}
	f.docXML = etree.NewDocument()
	if err := f.docXML.ReadFromBytes(docData); err != nil {
		return nil, fmt.Errorf("%w: 解析 %s 失败: %v", ErrInvalidDocument, partDocument, err)
	}
	root := f.docXML.Root()
	if root == nil || root.Tag != "document" {
		return nil, fmt.Errorf("%w: %s 根元素不是 w:document", ErrInvalidDocument, partDocument)
	}

	styles := NewStyleSheet()
	if data, ok := f.part(partStyles); ok {
		if styles, err = parseStyles(data); err != nil {
			return nil, fmt.Errorf("%w: 解析 %s 失败: %v", ErrInvalidDocument, partStyles, err)
		}
	}
	f.Document = parseDocument(root, styles)

	customData, _ := f.part(customPropsPart)
	if f.custom, err = ParseCustomProperties(customData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return f, nil
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (f *File) part(name string) ([]byte, bool) {
	for _, p := range f.parts {
		if p.name == name {
			return p.data, true
		}
	}
	return nil, false
}

func (f *File) setPart(name string, data []byte) {
	for i, p := range f.parts {
		if p.name == name {
			f.parts[i].data = data
			return
		}
	}
	f.parts = append(f.parts, part{name: name, data: data})
}

// CustomProperties 返回文档自定义属性，修改后随文档一起保存
func (f *File) CustomProperties() *CustomProperties {
	return f.custom
}

// PartNames 返回包内部件名称
func (f *File) PartNames() []string {
	names := make([]string, 0, len(f.parts))
	for _, p := range f.parts {
		names = append(names, p.name)
	}
	return names
}

// Save 保存到指定路径
func (f *File) Save(path string) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("保存文档失败: %w", err)
	}
	return nil
}

// Bytes 返回序列化后的 docx
func (f *File) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write 将模型的修改写回 XML 并输出 docx 包
func (f *File) Write(w io.Writer) error {
	syncDocument(f.Document)
	docData, err := f.docXML.WriteToBytes()
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", partDocument, err)
	}
	f.setPart(partDocument, docData)

	if f.custom.Modified() {
		if err := f.writeCustomProperties(); err != nil {
			return err
		}
	}

	zw := zip.NewWriter(w)
	for _, p := range f.parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("写入 %s 失败: %w", p.name, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("关闭docx包失败: %w", err)
	}
	return nil
}

// writeCustomProperties 写入 custom.xml，并确保内容类型和包关系已注册
func (f *File) writeCustomProperties() error {
	data, err := f.custom.XML()
	if err != nil {
		return err
	}
	f.setPart(customPropsPart, data)

	if err := f.editPart(partContentTypes, func(root *etree.Element) bool {
		for _, o := range root.SelectElements("Override") {
			if o.SelectAttrValue("PartName", "") == "/"+customPropsPart {
				return false
			}
		}
		o := root.CreateElement("Override")
		o.CreateAttr("PartName", "/"+customPropsPart)
		o.CreateAttr("ContentType", customPropsContentType)
		return true
	}); err != nil {
		return err
	}

	return f.editPart(partRootRels, func(root *etree.Element) bool {
		rels := root.SelectElements("Relationship")
		for _, r := range rels {
			if r.SelectAttrValue("Type", "") == customPropsRelType {
				return false
			}
		}
		rel := root.CreateElement("Relationship")
		rel.CreateAttr("Id", nextRelID(rels))
		rel.CreateAttr("Type", customPropsRelType)
		rel.CreateAttr("Target", customPropsPart)
		return true
	})
}

// editPart 对一个 XML 部件执行修改，edit 返回 true 时写回
func (f *File) editPart(name string, edit func(root *etree.Element) bool) error {
	data, ok := f.part(name)
	if !ok {
		return fmt.Errorf("%w: 缺少 %s", ErrInvalidDocument, name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("%w: 解析 %s 失败: %v", ErrInvalidDocument, name, err)
	}
	if doc.Root() == nil || !edit(doc.Root()) {
		return nil
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", name, err)
	}
	f.setPart(name, out)
	return nil
}

func nextRelID(rels []*etree.Element) string {
	maxID := 0
	for _, r := range rels {
		id := strings.TrimPrefix(r.SelectAttrValue("Id", ""), "rId")
		if n, err := strconv.Atoi(id); err == nil && n > maxID {
			maxID = n
		}
	}
	return "rId" + strconv.Itoa(maxID+1)
}

// New 创建一个只包含正文和默认样式的空白 docx
func New() *File {
	f, err := Load(blankPackage())
	if err != nil {
		// 空白包由本包生成，解析失败属于程序错误
		panic(err)
	}
	return f
}

func blankPackage() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range []part{
		{partContentTypes, contentTypesXML()},
		{partRootRels, relsXML([][2]string{
			{"http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument", partDocument},
		})},
		{partDocument, documentXML()},
		{partDocumentRels, relsXML([][2]string{
			{"http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles", "styles.xml"},
		})},
		{partStyles, stylesXML()},
	} {
		fw, _ := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate})
		fw.Write(p.data)
	}
	zw.Close()
	return buf.Bytes()
}

func newXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func contentTypesXML() []byte {
	doc := newXMLDocument()
	root := doc.CreateElement("Types")
	root.CreateAttr("xmlns", nsContentType)
	for _, d := range [][2]string{
		{"rels", "application/vnd.openxmlformats-package.relationships+xml"},
		{"xml", "application/xml"},
	} {
		el := root.CreateElement("Default")
		el.CreateAttr("Extension", d[0])
		el.CreateAttr("ContentType", d[1])
	}
	for _, o := range [][2]string{
		{"/" + partDocument, "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"},
		{"/" + partStyles, "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"},
	} {
		el := root.CreateElement("Override")
		el.CreateAttr("PartName", o[0])
		el.CreateAttr("ContentType", o[1])
	}
	data, _ := doc.WriteToBytes()
	return data
}

func relsXML(rels [][2]string) []byte {
	doc := newXMLDocument()
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsPackageRels)
	for i, r := range rels {
		el := root.CreateElement("Relationship")
		el.CreateAttr("Id", "rId"+strconv.Itoa(i+1))
		el.CreateAttr("Type", r[0])
		el.CreateAttr("Target", r[1])
	}
	data, _ := doc.WriteToBytes()
	return data
}

func documentXML() []byte {
	doc := newXMLDocument()
	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsW)
	root.CreateAttr("xmlns:r", nsR)
	sect := root.CreateElement("w:body").CreateElement("w:sectPr")
	pgSz := sect.CreateElement("w:pgSz")
	pgSz.CreateAttr("w:w", "12240")
	pgSz.CreateAttr("w:h", "15840")
	pgMar := sect.CreateElement("w:pgMar")
	for _, side := range []string{"top", "right", "bottom", "left"} {
		pgMar.CreateAttr("w:"+side, "1440")
	}
	data, _ := doc.WriteToBytes()
	return data
}
