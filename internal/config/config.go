package config

import (
	"strings"
	"time"

	"github.com/allanpk716/docx_filler/internal/audit"
	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/engine"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/internal/placeholder"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// CurrentVersion 当前配置格式版本
const CurrentVersion = "2.0"

// Keyword 字面量替换项。Key 未带 #...# 或 {{...}} 时按 {{Key}} 查找
type Keyword struct {
	Key        string `mapstructure:"key" json:"key" yaml:"key"`
	Value      string `mapstructure:"value" json:"value" yaml:"value"`
	SourceFile string `mapstructure:"source_file" json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Enabled    *bool  `mapstructure:"enabled" json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Category   string `mapstructure:"category" json:"category,omitempty" yaml:"category,omitempty"`
}

// IsEnabled 未设置时默认启用
func (k Keyword) IsEnabled() bool {
	return k.Enabled == nil || *k.Enabled
}

// SearchText 文档中要查找的文本
func (k Keyword) SearchText() string {
	key := strings.TrimSpace(k.Key)
	if isHashKey(key) || matcher.IsPlaceholder(key) {
		return key
	}
	return matcher.FormatPlaceholder(key)
}

func isHashKey(key string) bool {
	return len(key) > 2 && strings.HasPrefix(key, "#") && strings.HasSuffix(key, "#")
}

// ReplaceConfig 字面量替换的默认选项
type ReplaceConfig struct {
	PreserveFormatting bool `mapstructure:"preserve_formatting" json:"preserve_formatting" yaml:"preserve_formatting"`
	CaseSensitive      bool `mapstructure:"case_sensitive" json:"case_sensitive" yaml:"case_sensitive"`
}

// BulletConfig 项目符号配置
type BulletConfig struct {
	MarkerPhrase        string  `mapstructure:"marker_phrase" json:"marker_phrase" yaml:"marker_phrase"`
	RemoveTemplate      bool    `mapstructure:"remove_template" json:"remove_template" yaml:"remove_template"`
	Normalize           bool    `mapstructure:"normalize" json:"normalize" yaml:"normalize"`
	LeftIndentInches    float64 `mapstructure:"left_indent_inches" json:"left_indent_inches" yaml:"left_indent_inches"`
	HangingIndentInches float64 `mapstructure:"hanging_indent_inches" json:"hanging_indent_inches" yaml:"hanging_indent_inches"`
	SpaceAfterPt        float64 `mapstructure:"space_after_pt" json:"space_after_pt" yaml:"space_after_pt"`
	LineSpacing         float64 `mapstructure:"line_spacing" json:"line_spacing" yaml:"line_spacing"`
}

// Layout 转换为段落排版
func (b BulletConfig) Layout() docx.ParagraphLayout {
	return docx.ParagraphLayout{
		LeftIndent:      docx.Some(docx.Inches(b.LeftIndentInches)),
		FirstLineIndent: docx.Some(-docx.Inches(b.HangingIndentInches)),
		SpaceAfter:      docx.Some(docx.Pt(b.SpaceAfterPt)),
		LineSpacing:     docx.Some(b.LineSpacing),
	}
}

// ProcessingConfig 处理配置
type ProcessingConfig struct {
	EnableDetailedLogging bool     `mapstructure:"enable_detailed_logging" json:"enable_detailed_logging" yaml:"enable_detailed_logging"`
	MaxConcurrentFiles    int      `mapstructure:"max_concurrent_files" json:"max_concurrent_files" yaml:"max_concurrent_files"`
	OutputSuffix          string   `mapstructure:"output_suffix" json:"output_suffix" yaml:"output_suffix"`
	ExcludePatterns       []string `mapstructure:"exclude_patterns" json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty"`
	Verify                bool     `mapstructure:"verify" json:"verify" yaml:"verify"`
}

// Config 完整配置
type Config struct {
	ProjectName     string                       `mapstructure:"project_name" json:"project_name" yaml:"project_name"`
	Version         string                       `mapstructure:"version" json:"version,omitempty" yaml:"version,omitempty"`
	Keywords        []Keyword                    `mapstructure:"keywords" json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Aliases         []placeholder.Binding        `mapstructure:"aliases" json:"aliases,omitempty" yaml:"aliases,omitempty"`
	ContentMappings []placeholder.ContentMapping `mapstructure:"content_mappings" json:"content_mappings,omitempty" yaml:"content_mappings,omitempty"`
	Replace         ReplaceConfig                `mapstructure:"replace" json:"replace" yaml:"replace"`
	Bullets         BulletConfig                 `mapstructure:"bullets" json:"bullets" yaml:"bullets"`
	Processing      ProcessingConfig             `mapstructure:"processing" json:"processing" yaml:"processing"`
	Audit           audit.Config                 `mapstructure:"audit" json:"audit" yaml:"audit"`
	CreatedAt       *time.Time                   `mapstructure:"created_at" json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt       *time.Time                   `mapstructure:"updated_at" json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	layout := engine.DefaultBulletLayout()
	return &Config{
		ProjectName: "docx-filler",
		Version:     CurrentVersion,
		Replace:     ReplaceConfig{PreserveFormatting: true, CaseSensitive: true},
		Bullets: BulletConfig{
			MarkerPhrase:        engine.DefaultMarkerPhrase,
			RemoveTemplate:      false,
			Normalize:           true,
			LeftIndentInches:    layout.LeftIndent.OrElse(0).Inches(),
			HangingIndentInches: -layout.FirstLineIndent.OrElse(0).Inches(),
			SpaceAfterPt:        layout.SpaceAfter.OrElse(0).Points(),
			LineSpacing:         layout.LineSpacing.OrElse(1),
		},
		Processing: ProcessingConfig{
			MaxConcurrentFiles: 1,
			OutputSuffix:       "_processed",
			ExcludePatterns:    []string{"~$*", "*.tmp"},
			Verify:             true,
		},
		Audit: audit.Config{
			Enabled:        false,
			PropertyPrefix: audit.DefaultPropertyPrefix,
		},
	}
}

// EnabledKeywords 按配置顺序返回启用的替换项
func (c *Config) EnabledKeywords() []Keyword {
	if c == nil {
		return nil
	}
	var out []Keyword
	for _, k := range c.Keywords {
		if k.IsEnabled() {
			out = append(out, k)
		}
	}
	return out
}

// KeywordsByCategory 按类别筛选替换项
func (c *Config) KeywordsByCategory(category string) []Keyword {
	if c == nil {
		return nil
	}
	var out []Keyword
	for _, k := range c.Keywords {
		if k.Category == category {
			out = append(out, k)
		}
	}
	return out
}

// AliasTable 内置别名与配置中别名合并后的别名表
func (c *Config) AliasTable() *placeholder.AliasTable {
	if c == nil {
		return placeholder.DefaultAliases()
	}
	return placeholder.DefaultAliases().With(c.Aliases...)
}

// ReplaceOptions 字面量替换选项
func (c *Config) ReplaceOptions() domain.ReplaceOptions {
	return domain.ReplaceOptions{
		PreserveFormatting: c.Replace.PreserveFormatting,
		CaseSensitive:      c.Replace.CaseSensitive,
	}
}
