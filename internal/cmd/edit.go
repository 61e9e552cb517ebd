package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/operation"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

func newEditCommand(a *app) *cobra.Command {
	var (
		target  ioFlags
		opsFile string
	)

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "按操作文件编辑文档",
		Long: `按顺序执行操作文件中的操作。支持的操作类型：
  replace          search_text / replace_text / preserve_formatting / case_sensitive
  add_paragraph    new_text / style_name
  insert           bookmark_name / new_text
单个操作失败时记录错误并继续执行后续操作。`,
		Example: `  docx-filler edit --ops ops.yaml -i in.docx -o out.docx`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := operation.ParseFile(opsFile)
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				return errors.New("操作文件中没有操作")
			}
			return a.process(cmd, &target, a.operationEdit(ops))
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&opsFile, "ops", "", "操作文件路径（JSON 或 YAML）")
	_ = cmd.MarkFlagRequired("ops")
	return cmd
}

func (a *app) operationEdit(ops []operation.Operation) domain.EditFunc {
	return func(ctx context.Context, f *docx.File) (*domain.EditSummary, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := operation.Apply(a.newEngine(), f.Document, ops)
		a.logger.Info("操作执行完成", "performed", res.Performed, "total", len(ops), "replacements", res.Replacements)
		for _, err := range res.Errors {
			a.logger.Warn("操作失败", "error", err)
		}
		return res.Summary(), nil
	}
}
