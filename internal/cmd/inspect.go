package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/datatree"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/internal/resume"
)

func newInfoCommand(a *app) *cobra.Command {
	var showText bool

	cmd := &cobra.Command{
		Use:   "info <file.docx>",
		Short: "显示文档信息",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.newProcessor()
			info, err := p.Inspect(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			labelColor.Fprintln(w, "文档信息")
			fmt.Fprintf(w, "  路径: %s\n", info.Path)
			fmt.Fprintf(w, "  大小: %d 字节\n", info.Size)
			fmt.Fprintf(w, "  段落数: %d\n", info.ParagraphCount)
			fmt.Fprintf(w, "  表格数: %d\n", info.TableCount)
			fmt.Fprintf(w, "  样式: %s\n", strings.Join(info.Styles, ", "))
			if len(info.Bookmarks) > 0 {
				fmt.Fprintf(w, "  书签: %s\n", strings.Join(info.Bookmarks, ", "))
			}
			fmt.Fprintf(w, "  占位符: %d\n", len(info.Placeholders))

			if showText {
				text, err := p.Text(args[0])
				if err != nil {
					return err
				}
				labelColor.Fprintln(w, "\n全文")
				fmt.Fprintln(w, text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showText, "text", false, "同时输出文档全文")
	return cmd
}

func newPlaceholdersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "placeholders <file.docx>",
		Short: "列出文档中的 {{占位符}}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.newProcessor().Inspect(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(info.Placeholders) == 0 {
				warnColor.Fprintln(w, "未找到占位符")
				return nil
			}
			table := a.cfg.AliasTable()
			for _, token := range info.Placeholders {
				if path, ok := table.Lookup(token); ok && path != token {
					fmt.Fprintf(w, "%s -> %s\n", matcher.FormatPlaceholder(token), path)
					continue
				}
				fmt.Fprintln(w, matcher.FormatPlaceholder(token))
			}
			return nil
		},
	}
}

func newValidateDataCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-data <data-file>",
		Short: "校验简历数据文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := datatree.ParseFile(args[0])
			if err != nil {
				return err
			}
			res := resume.Validate(tree)
			printValidation(cmd.OutOrStdout(), res)
			if !res.Valid {
				return fmt.Errorf("数据校验失败: %d 个错误", len(res.Errors))
			}
			return nil
		},
	}
}

func printValidation(w io.Writer, res resume.Validation) {
	if res.Valid {
		successColor.Fprintln(w, "✓ 数据有效")
	} else {
		errorColor.Fprintln(w, "✗ 数据无效")
	}
	for _, e := range res.Errors {
		errorColor.Fprintf(w, "  错误: %s\n", e)
	}
	for _, warn := range res.Warnings {
		warnColor.Fprintf(w, "  警告: %s\n", warn)
	}
}
