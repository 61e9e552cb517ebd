package domain

import (
	"context"
	"time"

	"github.com/allanpk716/docx_filler/pkg/docx"
)

// DocumentProcessor 文档处理器接口
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, inputPath, outputPath string, edit EditFunc) (*ProcessResult, error)
	ValidateDocument(inputPath string) error
}

// EditFunc 对已打开文档执行的一次编辑，返回结果摘要
type EditFunc func(ctx context.Context, f *docx.File) (*EditSummary, error)

// PatternMatcher 字面量匹配器接口
type PatternMatcher interface {
	// FindAll 返回全部不重叠的匹配（从左到右，最左优先）
	FindAll(text, search string, caseSensitive bool) []Match
	Contains(text, search string, caseSensitive bool) bool
	// Replace 整段字符串替换，返回新文本和替换次数
	Replace(text, search, replacement string, caseSensitive bool) (string, int)
}

// TextReplacer 保留格式的文本替换器接口
type TextReplacer interface {
	ReplaceLiteral(doc *docx.Document, search, replacement string, opts ReplaceOptions) (int, error)
	ReplaceLiteralStats(doc *docx.Document, search, replacement string, opts ReplaceOptions) (ReplacementStats, error)
}

// Match 表示一个匹配项，位置以字符（rune）为单位，区间为 [Start, End)
type Match struct {
	Start int
	End   int
}

// Len 返回匹配的字符数
func (m Match) Len() int {
	return m.End - m.Start
}

// ReplaceOptions 字面量替换选项
type ReplaceOptions struct {
	PreserveFormatting bool
	CaseSensitive      bool
}

// DefaultReplaceOptions 默认保留格式并区分大小写
func DefaultReplaceOptions() ReplaceOptions {
	return ReplaceOptions{PreserveFormatting: true, CaseSensitive: true}
}

// EditSummary 一次编辑的结果
type EditSummary struct {
	Replacements int
	Categories   map[Category]int
	Unresolved   []string
	Errors       []error
}

// ProcessResult 处理结果
type ProcessResult struct {
	InputPath  string
	OutputPath string
	Success    bool
	Summary    EditSummary
	Leftover   []string // 保存后仍残留的占位符
	Duration   time.Duration
}

// BatchResult 批量处理结果
type BatchResult struct {
	ProcessedFiles int
	FailedFiles    int
	Replacements   int
	Results        []*ProcessResult
	Errors         []error
}

// DocumentInfo 文档信息
type DocumentInfo struct {
	Path           string
	Size           int64
	ParagraphCount int
	TableCount     int
	Styles         []string
	Placeholders   []string
	Bookmarks      []string
}

// ReplacementStats 替换统计信息
type ReplacementStats struct {
	Keyword      string
	Occurrences  int
	InTables     int
	InParagraphs int
}

// Category 占位符分类
type Category string

const (
	CategoryContact    Category = "contact_fields"
	CategorySkills     Category = "technical_skills"
	CategoryExperience Category = "professional_experience"
	CategoryProjects   Category = "projects"
	CategoryEducation  Category = "education"
	CategoryBasic      Category = "basic_fields"
	CategoryContent    Category = "content_replacements"
	CategoryTotal      Category = "total_replacements"
)

// Categories 返回占位符分类，不含汇总项
func Categories() []Category {
	return []Category{
		CategoryContact,
		CategorySkills,
		CategoryExperience,
		CategoryProjects,
		CategoryEducation,
		CategoryBasic,
	}
}
