// Package placeholder 将文档中的 {{token}} 占位符替换为数据树中的值。
package placeholder

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/allanpk716/docx_filler/internal/datatree"
	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/engine"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// TokenResult 单个占位符的处理结果
type TokenResult struct {
	Token    string
	Path     string
	Value    string
	Count    int
	Category domain.Category
	Bullets  bool
}

// Report 一次展开的结果：分类计数（含 total_replacements）、无法解析的占位符以及逐项明细
type Report struct {
	Counts     map[domain.Category]int
	Unresolved []string
	Tokens     []TokenResult
}

// NewReport 创建计数全部为 0 的报告
func NewReport() *Report {
	counts := make(map[domain.Category]int, len(domain.Categories())+2)
	for _, c := range domain.Categories() {
		counts[c] = 0
	}
	counts[domain.CategoryTotal] = 0
	return &Report{Counts: counts}
}

// Total 替换总数
func (r *Report) Total() int {
	return r.Counts[domain.CategoryTotal]
}

// Record 记录单个占位符的结果并累计计数
func (r *Report) Record(res TokenResult) {
	r.Tokens = append(r.Tokens, res)
	if res.Count == 0 {
		return
	}
	r.Counts[res.Category] += res.Count
	r.Counts[domain.CategoryTotal] += res.Count
}

// Merge 合并另一份报告
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	for c, n := range other.Counts {
		r.Counts[c] += n
	}
	r.Unresolved = append(r.Unresolved, other.Unresolved...)
	r.Tokens = append(r.Tokens, other.Tokens...)
}

// Summary 转换为编辑摘要
func (r *Report) Summary() *domain.EditSummary {
	counts := make(map[domain.Category]int, len(r.Counts))
	for c, n := range r.Counts {
		counts[c] = n
	}
	return &domain.EditSummary{
		Replacements: r.Total(),
		Categories:   counts,
		Unresolved:   append([]string(nil), r.Unresolved...),
	}
}

// Expander 占位符展开器
type Expander struct {
	engine *engine.Engine
	logger *slog.Logger
	now    func() time.Time
}

// Option 展开器选项
type Option func(*Expander)

// WithEngine 设置替换引擎
func WithEngine(e *engine.Engine) Option {
	return func(x *Expander) {
		if e != nil {
			x.engine = e
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(x *Expander) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithClock 设置当前时间来源
func WithClock(now func() time.Time) Option {
	return func(x *Expander) {
		if now != nil {
			x.now = now
		}
	}
}

// NewExpander 创建占位符展开器
func NewExpander(opts ...Option) *Expander {
	x := &Expander{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(x)
	}
	if x.engine == nil {
		x.engine = engine.New(engine.WithLogger(x.logger))
	}
	return x
}

// Engine 返回展开器使用的替换引擎
func (x *Expander) Engine() *engine.Engine {
	return x.engine
}

// Tokens 文档中出现的不重复占位符主体，按首次出现顺序
func Tokens(doc *docx.Document) []string {
	if doc == nil {
		return nil
	}
	var texts []string
	for _, p := range doc.AllParagraphs() {
		texts = append(texts, p.Text())
	}
	return matcher.FindPlaceholders(texts...)
}

// Expand 替换文档中的全部占位符。查找顺序为别名表、内置占位符、数据路径；
// 无法解析的占位符保持原样并记录在报告中。段落级错误被收集后一并返回
func (x *Expander) Expand(doc *docx.Document, tree *datatree.Tree, aliases *AliasTable) (*Report, error) {
	if doc == nil {
		return nil, domain.ErrNoDocumentLoaded
	}
	report := NewReport()
	var errs []error

	for _, body := range Tokens(doc) {
		key := strings.TrimSpace(body)
		token := "{{" + body + "}}"
		// 不区分大小写的替换可能已经处理了同名的其他写法
		if !x.present(doc, token) {
			continue
		}

		path, value, ok := x.resolve(tree, aliases, key)
		if !ok {
			x.logger.Warn("占位符无法解析", "token", token, "path", path)
			report.Unresolved = append(report.Unresolved, key)
			continue
		}

		res := TokenResult{Token: key, Path: path, Category: Categorize(key, path)}
		var err error
		if value.IsList() && IsItemized(key) {
			items := value.Strings()
			res.Bullets = true
			res.Value = strings.Join(items, "\n")
			res.Count, err = x.engine.ExpandBullets(doc, token, items)
		} else {
			res.Value = FormatValue(value)
			res.Count, err = x.engine.ReplaceLiteral(doc, token, res.Value, domain.ReplaceOptions{
				PreserveFormatting: true,
				CaseSensitive:      false,
			})
		}
		if err != nil {
			errs = append(errs, err)
		}
		report.Record(res)
		if res.Count > 0 {
			x.logger.Info("占位符已替换", "token", token, "path", path, "count", res.Count, "category", res.Category)
		}
	}
	return report, errors.Join(errs...)
}

func (x *Expander) present(doc *docx.Document, token string) bool {
	for _, p := range doc.AllParagraphs() {
		if x.engine.Matcher().Contains(p.Text(), token, false) {
			return true
		}
	}
	return false
}

// resolve 解析占位符的值，返回实际使用的路径
func (x *Expander) resolve(tree *datatree.Tree, aliases *AliasTable, key string) (string, datatree.Value, bool) {
	if path, ok := aliases.Lookup(key); ok {
		v, found := tree.Resolve(path)
		return path, v, found
	}
	if strings.EqualFold(key, CurrentDateToken) {
		v := datatree.MustNew(FormatDate(x.now())).Root()
		return CurrentDateToken, v, true
	}
	v, found := tree.Resolve(key)
	return key, v, found
}

// ContentMapping 文档中已有的文本及替换它的数据路径
type ContentMapping struct {
	Text string `mapstructure:"text" json:"text" yaml:"text"`
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

// ReplaceContent 将文档中已有的文本替换为数据树中的值（不区分大小写，保留格式），
// 计入 content_replacements。路径无值或值为空时跳过；没有映射时不做任何修改
func (x *Expander) ReplaceContent(doc *docx.Document, tree *datatree.Tree, mappings []ContentMapping) (*Report, error) {
	if doc == nil {
		return nil, domain.ErrNoDocumentLoaded
	}
	report := NewReport()
	var errs []error
	for _, m := range mappings {
		v, ok := tree.Resolve(m.Path)
		if !ok || FormatValue(v) == "" {
			x.logger.Warn("内容映射无法解析", "text", m.Text, "path", m.Path)
			report.Unresolved = append(report.Unresolved, m.Path)
			continue
		}
		res := TokenResult{Token: m.Text, Path: m.Path, Value: FormatValue(v), Category: domain.CategoryContent}
		var err error
		res.Count, err = x.engine.ReplaceLiteral(doc, m.Text, res.Value, domain.ReplaceOptions{
			PreserveFormatting: true,
			CaseSensitive:      false,
		})
		if err != nil {
			errs = append(errs, err)
		}
		report.Record(res)
	}
	return report, errors.Join(errs...)
}
