// Package resume 简历填充：分节渲染、数据校验以及模板生成。
package resume

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/allanpk716/docx_filler/internal/datatree"
	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/engine"
	"github.com/allanpk716/docx_filler/internal/placeholder"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// Section 以多行文本整体渲染的简历分节
type Section struct {
	Token  string
	Path   string
	Render func(items []datatree.Value) string
}

// Sections 分节占位符，先于普通占位符处理
func Sections() []Section {
	return []Section{
		{Token: "PROFESSIONAL_EXPERIENCE", Path: "professional_experience", Render: RenderExperience},
		{Token: "PROJECTS", Path: "projects", Render: RenderProjects},
		{Token: "EDUCATION", Path: "education", Render: RenderEducation},
	}
}

func field(v datatree.Value, key string) string {
	f, ok := v.Get(key)
	if !ok {
		return ""
	}
	return f.String()
}

func bullets(v datatree.Value, key string) []string {
	f, ok := v.Get(key)
	if !ok || !f.IsList() {
		return nil
	}
	lines := make([]string, 0, f.Len())
	for _, item := range f.Strings() {
		lines = append(lines, engine.BulletGlyph+" "+item)
	}
	return lines
}

// RenderExperience 每段经历为 "公司 - 职位"、"地点 | 时间" 以及各条要点，经历之间空一行
func RenderExperience(items []datatree.Value) string {
	var lines []string
	for _, exp := range items {
		lines = append(lines,
			field(exp, "company")+" - "+field(exp, "title"),
			field(exp, "location")+" | "+field(exp, "duration"),
		)
		lines = append(lines, bullets(exp, "highlights")...)
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// RenderProjects 每个项目为名称及其要点
func RenderProjects(items []datatree.Value) string {
	var lines []string
	for _, project := range items {
		lines = append(lines, field(project, "name"))
		lines = append(lines, bullets(project, "highlights")...)
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// RenderEducation 每条为 "学位 - 学校" 与时间
func RenderEducation(items []datatree.Value) string {
	var b strings.Builder
	for _, edu := range items {
		b.WriteString(field(edu, "degree") + " - " + field(edu, "institution") + "\n")
		b.WriteString(field(edu, "duration") + "\n\n")
	}
	return strings.TrimSpace(b.String())
}

// sectionItems 分节数据必须是映射组成的列表
func sectionItems(tree *datatree.Tree, path string) ([]datatree.Value, bool) {
	v, ok := tree.Resolve(path)
	if !ok || !v.IsList() {
		return nil, false
	}
	items := v.Items()
	for _, item := range items {
		if !item.IsMapping() {
			return nil, false
		}
	}
	return items, true
}

// Filler 简历填充器
type Filler struct {
	expander       *placeholder.Expander
	aliases        *placeholder.AliasTable
	logger         *slog.Logger
	removeTemplate bool
	normalize      bool
}

// Option 填充器选项
type Option func(*Filler)

// WithExpander 设置占位符展开器
func WithExpander(x *placeholder.Expander) Option {
	return func(f *Filler) {
		if x != nil {
			f.expander = x
		}
	}
}

// WithAliases 设置别名表
func WithAliases(a *placeholder.AliasTable) Option {
	return func(f *Filler) {
		if a != nil {
			f.aliases = a
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTemplateRemoval 填充后删除模板项目符号段落
func WithTemplateRemoval(remove bool) Option {
	return func(f *Filler) {
		f.removeTemplate = remove
	}
}

// WithNormalize 填充后整理项目符号段落
func WithNormalize(normalize bool) Option {
	return func(f *Filler) {
		f.normalize = normalize
	}
}

// NewFiller 创建简历填充器，默认使用内置别名并整理项目符号
func NewFiller(opts ...Option) *Filler {
	f := &Filler{
		aliases:   placeholder.DefaultAliases(),
		logger:    slog.Default(),
		normalize: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.expander == nil {
		f.expander = placeholder.NewExpander(placeholder.WithLogger(f.logger))
	}
	return f
}

// Expander 返回填充器使用的占位符展开器
func (f *Filler) Expander() *placeholder.Expander {
	return f.expander
}

// FillSections 渲染分节占位符。数据不是映射列表时跳过，交由普通占位符处理
func (f *Filler) FillSections(doc *docx.Document, tree *datatree.Tree) (*placeholder.Report, error) {
	if doc == nil {
		return nil, domain.ErrNoDocumentLoaded
	}
	e := f.expander.Engine()
	report := placeholder.NewReport()
	var errs []error
	rendered := false

	for _, s := range Sections() {
		items, ok := sectionItems(tree, s.Path)
		if !ok {
			continue
		}
		text := s.Render(items)
		n, err := e.ReplaceLiteral(doc, "{{"+s.Token+"}}", text, domain.ReplaceOptions{
			PreserveFormatting: true,
			CaseSensitive:      false,
		})
		if err != nil {
			errs = append(errs, err)
		}
		if n == 0 {
			continue
		}
		rendered = true
		report.Record(placeholder.TokenResult{
			Token:    s.Token,
			Path:     s.Path,
			Value:    text,
			Count:    n,
			Category: placeholder.Categorize(s.Token, s.Path),
		})
		f.logger.Info("分节已渲染", "section", s.Token, "entries", len(items), "count", n)
	}

	if rendered {
		if _, err := e.NormalizeBullets(doc); err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// Fill 完整填充：分节、普通占位符，然后按选项清理模板项目符号并整理项目符号段落
func (f *Filler) Fill(doc *docx.Document, tree *datatree.Tree) (*placeholder.Report, error) {
	if doc == nil {
		return nil, domain.ErrNoDocumentLoaded
	}
	var errs []error

	report, err := f.FillSections(doc, tree)
	if err != nil {
		errs = append(errs, err)
	}
	expanded, err := f.expander.Expand(doc, tree, f.aliases)
	if err != nil {
		errs = append(errs, err)
	}
	report.Merge(expanded)

	e := f.expander.Engine()
	if f.removeTemplate {
		n, err := e.RemoveTemplateBullets(doc, "")
		if err != nil {
			errs = append(errs, err)
		}
		if n > 0 {
			f.logger.Info("已删除模板项目符号", "count", n)
		}
	}
	if f.normalize {
		if _, err := e.NormalizeBullets(doc); err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// FillContent 替换文档中已有的文本，见 placeholder.Expander.ReplaceContent
func (f *Filler) FillContent(doc *docx.Document, tree *datatree.Tree, mappings []placeholder.ContentMapping) (*placeholder.Report, error) {
	return f.expander.ReplaceContent(doc, tree, mappings)
}
