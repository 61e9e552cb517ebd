package processor

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	ndocx "github.com/nguyenthenguyen/docx"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/engine"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// Processor 文件级处理流程：打开、编辑、保存、校验
type Processor struct {
	logger *slog.Logger
	engine *engine.Engine
	verify bool
}

// Option 处理器选项
type Option func(*Processor)

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEngine 设置用于统计文档信息的引擎
func WithEngine(e *engine.Engine) Option {
	return func(p *Processor) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithVerify 保存后是否重新读取输出并检查残留占位符
func WithVerify(verify bool) Option {
	return func(p *Processor) {
		p.verify = verify
	}
}

// New 创建处理器
func New(opts ...Option) *Processor {
	p := &Processor{
		logger: slog.Default(),
		verify: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		p.engine = engine.New(engine.WithLogger(p.logger))
	}
	return p
}

var _ domain.DocumentProcessor = (*Processor)(nil)

// ProcessDocument 处理单个文档。编辑失败时不写输出文件
func (p *Processor) ProcessDocument(ctx context.Context, inputPath, outputPath string, edit domain.EditFunc) (*domain.ProcessResult, error) {
	start := time.Now()
	result := &domain.ProcessResult{InputPath: inputPath, OutputPath: outputPath}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if outputPath == "" {
		return result, errors.New("输出路径不能为空")
	}
	if edit == nil {
		return result, errors.New("未指定编辑操作")
	}
	if sameFile(inputPath, outputPath) {
		return result, fmt.Errorf("输出文件不能覆盖输入文件: %s", outputPath)
	}

	p.logger.Debug("开始处理文档", "input", inputPath)
	f, err := p.open(inputPath)
	if err != nil {
		return result, err
	}

	summary, err := edit(ctx, f)
	if summary != nil {
		result.Summary = *summary
	}
	if err != nil {
		return result, fmt.Errorf("编辑文档失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return result, fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := f.Save(outputPath); err != nil {
		return result, err
	}

	if p.verify {
		leftover, err := Verify(outputPath)
		if err != nil {
			return result, fmt.Errorf("校验输出文档失败: %w", err)
		}
		result.Leftover = leftover
		if len(leftover) > 0 {
			p.logger.Warn("输出文档仍有未替换的占位符", "output", outputPath, "placeholders", leftover)
		}
	}

	result.Success = true
	result.Duration = time.Since(start)
	p.logger.Info("文档处理完成", "output", outputPath, "replacements", result.Summary.Replacements, "duration", result.Duration)
	return result, nil
}

// ValidateDocument 验证输入文件是可读取的 docx
func (p *Processor) ValidateDocument(inputPath string) error {
	_, err := p.open(inputPath)
	return err
}

func (p *Processor) open(inputPath string) (*docx.File, error) {
	if inputPath == "" {
		return nil, errors.New("输入路径不能为空")
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("输入文件不存在: %s", inputPath)
		}
		return nil, fmt.Errorf("无法访问输入文件: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("输入路径是目录: %s", inputPath)
	}
	if !IsDocx(inputPath) {
		return nil, fmt.Errorf("输入文件必须是docx格式: %s", inputPath)
	}
	f, err := docx.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("无法打开文档: %w", err)
	}
	return f, nil
}

// Inspect 读取文档信息
func (p *Processor) Inspect(inputPath string) (*domain.DocumentInfo, error) {
	f, err := p.open(inputPath)
	if err != nil {
		return nil, err
	}
	info, err := p.engine.Info(f.Document)
	if err != nil {
		return nil, err
	}
	info.Path = inputPath
	if st, err := os.Stat(inputPath); err == nil {
		info.Size = st.Size()
	}
	return &info, nil
}

// Text 读取文档全文，段落之间以换行分隔
func (p *Processor) Text(inputPath string) (string, error) {
	f, err := p.open(inputPath)
	if err != nil {
		return "", err
	}
	return f.FullText(), nil
}

var (
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag       = regexp.MustCompile(`<[^>]*>`)
)

// Verify 用独立的 docx 读取器重新读取输出文件，返回仍残留的占位符
func Verify(path string) ([]string, error) {
	r, err := ndocx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文档失败: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = html.UnescapeString(xmlTag.ReplaceAllString(content, ""))
	return matcher.FindPlaceholders(strings.Split(content, "\n")...), nil
}

// IsDocx 扩展名是否为 .docx
func IsDocx(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".docx")
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
