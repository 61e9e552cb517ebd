package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/processor"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	labelColor   = color.New(color.FgCyan)
)

// process 按参数执行单文件或批量处理并输出摘要
func (a *app) process(cmd *cobra.Command, target *ioFlags, edit domain.EditFunc) error {
	if err := target.validate(a.cfg.Processing.OutputSuffix); err != nil {
		return err
	}
	p := a.newProcessor()
	out := cmd.OutOrStdout()

	if !target.batch() {
		a.logger.Info("处理文件", "input", target.InputFile, "output", target.OutputFile)
		res, err := p.ProcessDocument(cmd.Context(), target.InputFile, target.OutputFile, edit)
		if err != nil {
			return fmt.Errorf("处理文件失败: %w", err)
		}
		printResult(out, res)
		return nil
	}

	res, err := p.ProcessBatch(cmd.Context(), processor.BatchOptions{
		InputDir:        target.InputDir,
		OutputDir:       target.OutputDir,
		Suffix:          a.cfg.Processing.OutputSuffix,
		ExcludePatterns: a.cfg.Processing.ExcludePatterns,
		Concurrency:     a.cfg.Processing.MaxConcurrentFiles,
	}, edit)
	if err != nil {
		return err
	}
	printBatch(out, res)
	if res.FailedFiles > 0 {
		return fmt.Errorf("%d 个文件处理失败", res.FailedFiles)
	}
	return nil
}

func printResult(w io.Writer, res *domain.ProcessResult) {
	successColor.Fprintf(w, "✓ 处理完成: %s\n", res.OutputPath)
	fmt.Fprintf(w, "  替换次数: %d\n", res.Summary.Replacements)
	printCategories(w, res.Summary.Categories)
	if len(res.Summary.Unresolved) > 0 {
		warnColor.Fprintf(w, "  未处理: %s\n", strings.Join(res.Summary.Unresolved, ", "))
	}
	if len(res.Leftover) > 0 {
		warnColor.Fprintf(w, "  残留占位符: %s\n", strings.Join(res.Leftover, ", "))
	}
	for _, err := range res.Summary.Errors {
		errorColor.Fprintf(w, "  错误: %v\n", err)
	}
}

func printCategories(w io.Writer, counts map[domain.Category]int) {
	categories := append(domain.Categories(), domain.CategoryContent)
	for _, c := range categories {
		if n := counts[c]; n > 0 {
			fmt.Fprintf(w, "    %s: %d\n", labelColor.Sprint(c), n)
		}
	}
}

func printBatch(w io.Writer, res *domain.BatchResult) {
	for _, r := range res.Results {
		if r.Success {
			printResult(w, r)
		}
	}
	for _, err := range res.Errors {
		errorColor.Fprintf(w, "✗ %v\n", err)
	}
	total := res.ProcessedFiles + res.FailedFiles
	c := successColor
	if res.FailedFiles > 0 {
		c = warnColor
	}
	c.Fprintf(w, "\n批量处理完成! 成功处理 %d/%d 个文件，共替换 %d 处\n", res.ProcessedFiles, total, res.Replacements)
}
