package processor

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/allanpk716/docx_filler/pkg/docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDocuments(t *testing.T) {
	dir := t.TempDir()
	writeDocx(t, filepath.Join(dir, "a.docx"), "a")
	writeDocx(t, filepath.Join(dir, "sub", "b.DOCX"), "b")
	writeDocx(t, filepath.Join(dir, "~$a.docx"), "lock")
	writeDocx(t, filepath.Join(dir, "draft_old.docx"), "old")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	files, err := FindDocuments(dir, []string{"draft_*"})
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.docx"),
		filepath.Join(dir, "sub", "b.DOCX"),
	}, files)

	_, err = FindDocuments(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		suffix string
		want   string
	}{
		{"top level", "/in/a.docx", "_processed", "/out/a_processed.docx"},
		{"nested", "/in/x/y/b.docx", "", "/out/x/y/b.docx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OutputPath("/in", "/out", filepath.FromSlash(tt.file), tt.suffix)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestProcessBatch(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeDocx(t, filepath.Join(in, "one.docx"), "Hi {{NAME}}")
	writeDocx(t, filepath.Join(in, "nested", "two.docx"), "{{NAME}} and {{NAME}}")
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.docx"), []byte("nope"), 0644))

	opts := BatchOptions{InputDir: in, OutputDir: out, Suffix: "_done", Concurrency: 2}
	res, err := New().ProcessBatch(context.Background(), opts, replaceEdit("{{NAME}}", "Ada"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.ProcessedFiles)
	assert.Equal(t, 1, res.FailedFiles)
	assert.Equal(t, 3, res.Replacements)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], docx.ErrInvalidDocument)

	f, err := docx.Open(filepath.Join(out, "nested", "two_done.docx"))
	require.NoError(t, err)
	assert.Equal(t, "Ada and Ada", f.Text())
	assert.FileExists(t, filepath.Join(out, "one_done.docx"))
}

func TestProcessBatch_InvalidDirs(t *testing.T) {
	p := New()
	edit := replaceEdit("a", "b")

	_, err := p.ProcessBatch(context.Background(), BatchOptions{InputDir: filepath.Join(t.TempDir(), "missing"), OutputDir: t.TempDir()}, edit)
	assert.ErrorContains(t, err, "输入文件夹不存在")

	_, err = p.ProcessBatch(context.Background(), BatchOptions{InputDir: t.TempDir()}, edit)
	assert.ErrorContains(t, err, "输出文件夹不能为空")

	res, err := p.ProcessBatch(context.Background(), BatchOptions{InputDir: t.TempDir(), OutputDir: t.TempDir()}, edit)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ProcessedFiles)
}
