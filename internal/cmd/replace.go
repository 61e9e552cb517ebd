package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/audit"
	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

type replacePair struct {
	search string
	value  string
}

func newReplaceCommand(a *app) *cobra.Command {
	var (
		target     ioFlags
		search     string
		value      string
		ignoreCase bool
		noPreserve bool
	)

	cmd := &cobra.Command{
		Use:   "replace",
		Short: "字面量文本替换",
		Long: `替换文档中的字面量文本，保留原有格式。
指定 --search 时只替换这一项，否则使用配置文件中启用的关键词。`,
		Example: `  docx-filler replace -i in.docx -o out.docx --search 公司名称 --replace 示例公司
  docx-filler replace -c config.yaml --input-dir docs --output-dir out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var pairs []replacePair
			if search != "" {
				pairs = append(pairs, replacePair{search: search, value: value})
			} else {
				for _, k := range a.cfg.EnabledKeywords() {
					pairs = append(pairs, replacePair{search: k.SearchText(), value: k.Value})
				}
			}
			if len(pairs) == 0 {
				return errors.New("没有找到有效的关键词")
			}

			opts := a.cfg.ReplaceOptions()
			if cmd.Flags().Changed("ignore-case") {
				opts.CaseSensitive = !ignoreCase
			}
			if cmd.Flags().Changed("no-preserve") {
				opts.PreserveFormatting = !noPreserve
			}
			return a.process(cmd, &target, a.replaceEdit(pairs, opts))
		},
	}

	target.register(cmd)
	cmd.Flags().StringVarP(&search, "search", "s", "", "要查找的文本")
	cmd.Flags().StringVarP(&value, "replace", "r", "", "替换后的文本")
	cmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "不区分大小写")
	cmd.Flags().BoolVar(&noPreserve, "no-preserve", false, "不保留格式，替换后的段落使用首个文本段的格式")
	return cmd
}

// replaceEdit 依次替换各关键词。单个段落的失败记入摘要，不影响其他替换
func (a *app) replaceEdit(pairs []replacePair, opts domain.ReplaceOptions) domain.EditFunc {
	return func(ctx context.Context, f *docx.File) (*domain.EditSummary, error) {
		e := a.newEngine()
		summary := &domain.EditSummary{Categories: make(map[domain.Category]int)}
		tracker := audit.NewTracker(a.cfg.Audit)
		tracker.Load(f.CustomProperties())

		for _, p := range pairs {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			stats, err := e.ReplaceLiteralStats(f.Document, p.search, p.value, opts)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Errorf("替换关键词 '%s' 失败: %w", p.search, err))
			}
			if stats.Occurrences == 0 {
				a.logger.Debug("未找到关键词", "keyword", p.search)
				summary.Unresolved = append(summary.Unresolved, p.search)
				continue
			}
			a.logger.Info("替换关键词", "keyword", p.search, "count", stats.Occurrences,
				"paragraphs", stats.InParagraphs, "tables", stats.InTables)
			summary.Replacements += stats.Occurrences
			summary.Categories[domain.CategoryContent] += stats.Occurrences
			tracker.Track(p.search, p.value, stats.Occurrences)
		}
		summary.Categories[domain.CategoryTotal] = summary.Replacements

		if err := tracker.Save(f.CustomProperties()); err != nil {
			return summary, fmt.Errorf("保存替换记录失败: %w", err)
		}
		return summary, nil
	}
}
