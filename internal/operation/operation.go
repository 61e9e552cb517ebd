// Package operation 定义可序列化的文档编辑操作：替换、追加段落、在书签处插入。
package operation

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/engine"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// Kind 操作类型
type Kind string

const (
	KindReplace        Kind = "replace"
	KindAddParagraph   Kind = "add_paragraph"
	KindInsertAtAnchor Kind = "insert"
)

// Operation 编辑操作。只有本包中的类型实现该接口
type Operation interface {
	Kind() Kind
	apply(e *engine.Engine, doc *docx.Document) (int, error)
}

// Replace 字面量替换
type Replace struct {
	Search             string
	Replace            string
	PreserveFormatting bool
	CaseSensitive      bool
}

// AddParagraph 在文档末尾追加段落
type AddParagraph struct {
	Text  string
	Style string
}

// InsertAtAnchor 在书签位置插入文本
type InsertAtAnchor struct {
	Bookmark string
	Text     string
}

func (Replace) Kind() Kind        { return KindReplace }
func (AddParagraph) Kind() Kind   { return KindAddParagraph }
func (InsertAtAnchor) Kind() Kind { return KindInsertAtAnchor }

func (op Replace) apply(e *engine.Engine, doc *docx.Document) (int, error) {
	n, err := e.ReplaceLiteral(doc, op.Search, op.Replace, domain.ReplaceOptions{
		PreserveFormatting: op.PreserveFormatting,
		CaseSensitive:      op.CaseSensitive,
	})
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrTextNotFound, op.Search)
	}
	return n, nil
}

func (op AddParagraph) apply(e *engine.Engine, doc *docx.Document) (int, error) {
	if _, err := e.AddParagraph(doc, op.Text, op.Style); err != nil {
		return 0, err
	}
	return 0, nil
}

func (op InsertAtAnchor) apply(e *engine.Engine, doc *docx.Document) (int, error) {
	return 0, e.InsertAtAnchor(doc, op.Bookmark, op.Text)
}

// Result 批量执行结果
type Result struct {
	Performed    int
	Replacements int
	Errors       []error
}

// Err 合并全部错误
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// Summary 转换为编辑摘要
func (r Result) Summary() *domain.EditSummary {
	return &domain.EditSummary{
		Replacements: r.Replacements,
		Categories:   map[domain.Category]int{domain.CategoryTotal: r.Replacements},
		Errors:       append([]error(nil), r.Errors...),
	}
}

// Apply 按顺序执行操作。单个操作失败时记录错误并继续
func Apply(e *engine.Engine, doc *docx.Document, ops []Operation) Result {
	var res Result
	if doc == nil {
		res.Errors = append(res.Errors, domain.ErrNoDocumentLoaded)
		return res
	}
	for i, op := range ops {
		n, err := op.apply(e, doc)
		res.Replacements += n
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("操作 %d (%s): %w", i+1, op.Kind(), err))
			continue
		}
		res.Performed++
	}
	return res
}

// record 操作文件中的一条记录
type record struct {
	Type               string  `yaml:"type"`
	OperationType      string  `yaml:"operation_type"`
	SearchText         string  `yaml:"search_text"`
	ReplaceText        *string `yaml:"replace_text"`
	NewText            string  `yaml:"new_text"`
	PreserveFormatting *bool   `yaml:"preserve_formatting"`
	CaseSensitive      *bool   `yaml:"case_sensitive"`
	BookmarkName       string  `yaml:"bookmark_name"`
	StyleName          string  `yaml:"style_name"`
}

func (r record) kind() string {
	if r.Type != "" {
		return r.Type
	}
	return r.OperationType
}

func (r record) operation() (Operation, error) {
	switch Kind(r.kind()) {
	case KindReplace:
		if r.SearchText == "" || r.ReplaceText == nil {
			return nil, errors.New("replace 操作需要 search_text 和 replace_text")
		}
		return Replace{
			Search:             r.SearchText,
			Replace:            *r.ReplaceText,
			PreserveFormatting: boolOr(r.PreserveFormatting, true),
			CaseSensitive:      boolOr(r.CaseSensitive, true),
		}, nil
	case KindAddParagraph:
		if r.NewText == "" {
			return nil, errors.New("add_paragraph 操作需要 new_text")
		}
		return AddParagraph{Text: r.NewText, Style: r.StyleName}, nil
	case KindInsertAtAnchor, "insert_at_anchor":
		if r.BookmarkName == "" || r.NewText == "" {
			return nil, errors.New("insert 操作需要 bookmark_name 和 new_text")
		}
		return InsertAtAnchor{Bookmark: r.BookmarkName, Text: r.NewText}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownOperation, r.kind())
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Parse 解析操作列表。接受 YAML 或 JSON，顶层为列表或含 operations 键的映射
func Parse(data []byte) ([]Operation, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("解析操作文件失败: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var records []record
	node := root.Content[0]
	switch node.Kind {
	case yaml.MappingNode:
		var wrapper struct {
			Operations []record `yaml:"operations"`
		}
		if err := node.Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("解析操作文件失败: %w", err)
		}
		records = wrapper.Operations
	case yaml.SequenceNode:
		if err := node.Decode(&records); err != nil {
			return nil, fmt.Errorf("解析操作文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("解析操作文件失败: 第 %d 行不是列表或映射", node.Line)
	}

	ops := make([]Operation, 0, len(records))
	for i, r := range records {
		op, err := r.operation()
		if err != nil {
			return nil, fmt.Errorf("操作 %d: %w", i+1, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// ParseFile 读取并解析操作文件
func ParseFile(path string) ([]Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取操作文件失败: %w", err)
	}
	return Parse(data)
}
