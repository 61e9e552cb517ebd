package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/config"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/internal/resume"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

func newSampleCommand(a *app) *cobra.Command {
	var resumeTemplate bool

	cmd := &cobra.Command{
		Use:   "sample <output.docx>",
		Short: "生成示例文档或简历模板",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := a.newEngine()
			var (
				f   *docx.File
				err error
			)
			if resumeTemplate {
				f, err = resume.Template(e)
			} else {
				f, err = resume.Sample(e)
			}
			if err != nil {
				return err
			}
			if err := writeDocument(f, args[0]); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			successColor.Fprintf(w, "✓ 已生成: %s\n", args[0])
			if resumeTemplate {
				for _, token := range resume.Placeholders() {
					fmt.Fprintf(w, "  %s\n", matcher.FormatPlaceholder(token))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&resumeTemplate, "resume", false, "生成带占位符的简历模板")
	return cmd
}

func writeDocument(f *docx.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	return f.Save(path)
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件管理",
	}

	var (
		template string
		force    bool
	)
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "生成配置文件模板（basic 或 resume）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("配置文件已存在: %s（使用 --force 覆盖）", path)
			}
			m := config.NewManager(a.logger)
			cfg, err := m.GenerateTemplate(template)
			if err != nil {
				return err
			}
			if err := m.Save(cfg, path); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✓ 配置模板已生成: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&template, "template", "t", "basic", "模板类型: basic | resume")
	initCmd.Flags().BoolVar(&force, "force", false, "覆盖已有文件")

	checkCmd := &cobra.Command{
		Use:   "check <path>",
		Short: "加载并校验配置文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewManager(a.logger).Load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			successColor.Fprintf(w, "✓ 配置有效: %s\n", cfg.ProjectName)
			fmt.Fprintf(w, "  版本: %s\n", cfg.Version)
			fmt.Fprintf(w, "  关键词: %d（启用 %d）\n", len(cfg.Keywords), len(cfg.EnabledKeywords()))
			fmt.Fprintf(w, "  别名: %d\n", cfg.AliasTable().Len())
			fmt.Fprintf(w, "  内容映射: %d\n", len(cfg.ContentMappings))
			fmt.Fprintf(w, "  最大并发文件数: %d\n", cfg.Processing.MaxConcurrentFiles)
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", AppName, AppVersion)
		},
	}
}
