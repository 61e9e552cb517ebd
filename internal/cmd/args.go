package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// ioFlags 单文件或批量处理的输入输出参数
type ioFlags struct {
	InputFile  string
	OutputFile string
	InputDir   string
	OutputDir  string
}

func (f *ioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.InputFile, "input", "i", "", "输入 DOCX 文件路径")
	cmd.Flags().StringVarP(&f.OutputFile, "output", "o", "", "输出 DOCX 文件路径")
	cmd.Flags().StringVar(&f.InputDir, "input-dir", "", "输入目录路径（批量处理）")
	cmd.Flags().StringVar(&f.OutputDir, "output-dir", "", "输出目录路径（批量处理）")
}

// batch 是否为批量模式，需先调用 validate
func (f *ioFlags) batch() bool {
	return f.InputDir != ""
}

// validate 检查参数组合并补全默认输出路径
func (f *ioFlags) validate(suffix string) error {
	hasSingleFile := f.InputFile != "" || f.OutputFile != ""
	hasBatchMode := f.InputDir != "" || f.OutputDir != ""

	if !hasSingleFile && !hasBatchMode {
		return errors.New("必须指定输入文件或输入目录")
	}
	if hasSingleFile && hasBatchMode {
		return errors.New("不能同时指定单文件和批量处理模式")
	}

	if hasSingleFile {
		if f.InputFile == "" {
			return errors.New("单文件模式下必须指定输入文件")
		}
		if f.OutputFile == "" {
			f.OutputFile = outputFileName(f.InputFile, suffix)
		}
		return nil
	}

	if f.InputDir == "" {
		return errors.New("批量模式下必须指定输入目录")
	}
	if f.OutputDir == "" {
		f.OutputDir = filepath.Clean(f.InputDir) + "_processed"
	}
	return nil
}

// outputFileName 在扩展名前追加后缀
func outputFileName(inputFile, suffix string) string {
	if suffix == "" {
		suffix = "_processed"
	}
	ext := filepath.Ext(inputFile)
	return strings.TrimSuffix(inputFile, ext) + suffix + ext
}
