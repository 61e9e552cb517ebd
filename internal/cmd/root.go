// Package cmd 命令行入口：子命令、参数校验和批量处理编排。
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/config"
	"github.com/allanpk716/docx_filler/internal/engine"
	"github.com/allanpk716/docx_filler/internal/placeholder"
	"github.com/allanpk716/docx_filler/internal/processor"
	"github.com/allanpk716/docx_filler/internal/resume"
)

const (
	AppName    = "docx-filler"
	AppVersion = "2.0.0"
)

// globalFlags 所有子命令共用的参数
type globalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

// app 一次命令执行的共享状态
type app struct {
	flags  globalFlags
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand 创建命令树
func NewRootCommand() *cobra.Command {
	a := &app{cfg: config.DefaultConfig(), logger: slog.Default()}

	root := &cobra.Command{
		Use:   AppName,
		Short: "DOCX 文档占位符填充与文本替换工具",
		Long: `docx-filler 在保留原有格式的前提下替换 DOCX 文档中的文本：
  - 字面量替换（命令行参数或配置文件中的关键词）
  - 按 JSON/YAML 数据填充 {{占位符}}，列表展开为项目符号段落
  - 按操作文件执行替换、追加段落、书签插入`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.flags.ConfigFile, "config", "c", "", "配置文件路径（JSON 或 YAML）")
	root.PersistentFlags().BoolVarP(&a.flags.Verbose, "verbose", "v", false, "详细输出")
	root.PersistentFlags().BoolVarP(&a.flags.Quiet, "quiet", "q", false, "只输出警告和错误")

	root.AddCommand(
		newReplaceCommand(a),
		newFillCommand(a),
		newEditCommand(a),
		newInfoCommand(a),
		newPlaceholdersCommand(a),
		newValidateDataCommand(a),
		newSampleCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute 执行命令，收到中断信号时取消上下文
func Execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// setup 初始化日志并加载配置
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.flags.Verbose && a.flags.Quiet {
		return errors.New("--verbose 和 --quiet 不能同时使用")
	}
	a.logger = newLogger(cmd, a.flags.Verbose, a.flags.Quiet)

	// 这些命令不需要配置文件
	switch cmd.Name() {
	case "version", "init", "help":
		return nil
	}

	cfg, err := config.NewManager(a.logger).LoadWithDefaults(a.flags.ConfigFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.Processing.EnableDetailedLogging && !a.flags.Quiet {
		a.logger = newLogger(cmd, true, false)
	}
	if a.flags.ConfigFile != "" {
		a.logger.Info("成功加载配置文件", "path", a.flags.ConfigFile, "project", cfg.ProjectName, "keywords", len(cfg.Keywords))
	}
	return nil
}

func newLogger(cmd *cobra.Command, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// newEngine 按配置创建替换引擎
func (a *app) newEngine() *engine.Engine {
	return engine.New(
		engine.WithLogger(a.logger),
		engine.WithBulletLayout(a.cfg.Bullets.Layout()),
		engine.WithMarkerPhrase(a.cfg.Bullets.MarkerPhrase),
	)
}

// newFiller 按配置创建简历填充器
func (a *app) newFiller(removeTemplate bool) *resume.Filler {
	expander := placeholder.NewExpander(
		placeholder.WithEngine(a.newEngine()),
		placeholder.WithLogger(a.logger),
	)
	return resume.NewFiller(
		resume.WithExpander(expander),
		resume.WithAliases(a.cfg.AliasTable()),
		resume.WithLogger(a.logger),
		resume.WithTemplateRemoval(removeTemplate || a.cfg.Bullets.RemoveTemplate),
		resume.WithNormalize(a.cfg.Bullets.Normalize),
	)
}

func (a *app) newProcessor() *processor.Processor {
	return processor.New(
		processor.WithLogger(a.logger),
		processor.WithEngine(a.newEngine()),
		processor.WithVerify(a.cfg.Processing.Verify),
	)
}
