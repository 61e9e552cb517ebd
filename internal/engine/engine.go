// Package engine 实现保留格式的文本替换：逐字符格式映射、匹配、段落重建以及项目符号展开。
package engine

import (
	"log/slog"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

const (
	// BulletGlyph 项目符号字符
	BulletGlyph = "•"
	// DefaultMarkerPhrase 模板项目符号段落中的标记短语
	DefaultMarkerPhrase = "add highlights with this style"
	// ListParagraphStyle 项目符号段落使用的样式（文档中存在时）
	ListParagraphStyle = "List Paragraph"
)

// DefaultBulletLayout 项目符号段落排版：左缩进 0.5 英寸，悬挂 0.25 英寸，段后 3 磅，1.15 倍行距
func DefaultBulletLayout() docx.ParagraphLayout {
	return docx.ParagraphLayout{
		LeftIndent:      docx.Some(docx.Inches(0.5)),
		FirstLineIndent: docx.Some(-docx.Inches(0.25)),
		SpaceAfter:      docx.Some(docx.Pt(3)),
		LineSpacing:     docx.Some(1.15),
	}
}

// Engine 替换引擎。不持有文档状态，可在多个文档间复用
type Engine struct {
	matcher      domain.PatternMatcher
	logger       *slog.Logger
	bulletLayout docx.ParagraphLayout
	markerPhrase string
}

// Option 引擎选项
type Option func(*Engine)

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMatcher 设置匹配器
func WithMatcher(m domain.PatternMatcher) Option {
	return func(e *Engine) {
		if m != nil {
			e.matcher = m
		}
	}
}

// WithBulletLayout 设置项目符号段落排版
func WithBulletLayout(l docx.ParagraphLayout) Option {
	return func(e *Engine) {
		e.bulletLayout = l
	}
}

// WithMarkerPhrase 设置模板项目符号的标记短语
func WithMarkerPhrase(phrase string) Option {
	return func(e *Engine) {
		if phrase != "" {
			e.markerPhrase = phrase
		}
	}
}

// New 创建替换引擎
func New(opts ...Option) *Engine {
	e := &Engine{
		matcher:      matcher.NewLiteralMatcher(),
		logger:       slog.Default(),
		bulletLayout: DefaultBulletLayout(),
		markerPhrase: DefaultMarkerPhrase,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Matcher 返回引擎使用的匹配器
func (e *Engine) Matcher() domain.PatternMatcher {
	return e.matcher
}

var _ domain.TextReplacer = (*Engine)(nil)
