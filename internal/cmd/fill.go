package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/audit"
	"github.com/allanpk716/docx_filler/internal/datatree"
	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/resume"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

func newFillCommand(a *app) *cobra.Command {
	var (
		target         ioFlags
		dataFile       string
		removeTemplate bool
		validate       bool
	)

	cmd := &cobra.Command{
		Use:   "fill",
		Short: "按数据文件填充 {{占位符}}",
		Long: `读取 JSON 或 YAML 数据文件，替换文档中的 {{占位符}}。
占位符先按别名表查找数据路径，找不到时把占位符本身当作路径；
highlights/responsibilities 类占位符的列表值展开为项目符号段落。
PROFESSIONAL_EXPERIENCE、PROJECTS、EDUCATION 渲染为多行分节。`,
		Example: `  docx-filler fill -d resume.yaml -i template.docx -o resume.docx
  docx-filler fill -d data.json --input-dir templates --output-dir out --remove-template`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := datatree.ParseFile(dataFile)
			if err != nil {
				return err
			}
			if validate {
				if res := resume.Validate(tree); !res.Valid {
					printValidation(cmd.OutOrStdout(), res)
					return fmt.Errorf("数据校验失败: %d 个错误", len(res.Errors))
				}
			}
			return a.process(cmd, &target, a.fillEdit(tree, removeTemplate))
		},
	}

	target.register(cmd)
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "数据文件路径（JSON 或 YAML）")
	cmd.Flags().BoolVar(&removeTemplate, "remove-template", false, "删除模板中的示例项目符号段落")
	cmd.Flags().BoolVar(&validate, "validate", false, "填充前按简历数据规则校验")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// fillEdit 数据树只读，可在并发处理的多个文档间共享
func (a *app) fillEdit(tree *datatree.Tree, removeTemplate bool) domain.EditFunc {
	return func(ctx context.Context, f *docx.File) (*domain.EditSummary, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		filler := a.newFiller(removeTemplate)
		var errs []error

		report, err := filler.Fill(f.Document, tree)
		if err != nil {
			errs = append(errs, err)
		}
		if len(a.cfg.ContentMappings) > 0 {
			content, err := filler.FillContent(f.Document, tree, a.cfg.ContentMappings)
			if err != nil {
				errs = append(errs, err)
			}
			report.Merge(content)
		}

		tracker := audit.NewTracker(a.cfg.Audit)
		tracker.Load(f.CustomProperties())
		tracker.TrackReport(report)
		if err := tracker.Save(f.CustomProperties()); err != nil {
			return report.Summary(), fmt.Errorf("保存替换记录失败: %w", err)
		}

		summary := report.Summary()
		summary.Errors = errs
		return summary, nil
	}
}
