package main

import (
	"context"
	"os"

	"github.com/fatih/color"

	"github.com/allanpk716/docx_filler/internal/cmd"
)

func main() {
	if err := cmd.Execute(context.Background(), os.Args[1:]); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
