package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// BatchOptions 批量处理选项
type BatchOptions struct {
	InputDir        string
	OutputDir       string
	Suffix          string
	ExcludePatterns []string
	Concurrency     int
}

// FindDocuments 递归查找目录中的 docx 文件，跳过 ~$ 临时文件和匹配排除模式的文件
func FindDocuments(root string, exclude []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsDocx(path) {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "~$") || excluded(name, exclude) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("扫描文件夹失败: %w", err)
	}
	return files, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// OutputPath 按输入文件相对输入目录的位置生成输出路径，文件名追加后缀
func OutputPath(inputDir, outputDir, file, suffix string) (string, error) {
	rel, err := filepath.Rel(inputDir, file)
	if err != nil {
		return "", fmt.Errorf("计算相对路径失败: %w", err)
	}
	ext := filepath.Ext(rel)
	name := strings.TrimSuffix(filepath.Base(rel), ext) + suffix + ext
	return filepath.Join(outputDir, filepath.Dir(rel), name), nil
}

// ProcessBatch 并发处理目录中的全部文档。每个文件独立打开，单个文件失败不影响其他文件
func (p *Processor) ProcessBatch(ctx context.Context, opts BatchOptions, edit domain.EditFunc) (*domain.BatchResult, error) {
	if info, err := os.Stat(opts.InputDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("输入文件夹不存在: %s", opts.InputDir)
	}
	if opts.OutputDir == "" {
		return nil, errors.New("输出文件夹不能为空")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出文件夹失败: %w", err)
	}

	files, err := FindDocuments(opts.InputDir, opts.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	p.logger.Info("找到待处理文档", "dir", opts.InputDir, "count", len(files))

	results := make([]*domain.ProcessResult, len(files))
	errs := make([]error, len(files))

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			out, err := OutputPath(opts.InputDir, opts.OutputDir, file, opts.Suffix)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", file, err)
				return nil
			}
			res, err := p.ProcessDocument(gctx, file, out, edit)
			results[i] = res
			if err != nil {
				p.logger.Error("处理文件失败", "file", file, "error", err)
				errs[i] = fmt.Errorf("%s: %w", file, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := &domain.BatchResult{}
	for i := range files {
		if results[i] != nil {
			batch.Results = append(batch.Results, results[i])
		}
		if errs[i] != nil {
			batch.FailedFiles++
			batch.Errors = append(batch.Errors, errs[i])
			continue
		}
		batch.ProcessedFiles++
		batch.Replacements += results[i].Summary.Replacements
	}
	return batch, ctx.Err()
}
