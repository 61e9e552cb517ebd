package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MigrationHandler 配置迁移处理器
type MigrationHandler func(*Config) error

// Manager 配置管理器：加载、迁移、校验、保存
type Manager struct {
	logger     *slog.Logger
	migrations map[string]MigrationHandler
}

// NewManager 创建配置管理器
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		logger:     logger,
		migrations: make(map[string]MigrationHandler),
	}
	m.migrations["1.0"] = m.migrateFromV1ToV2
	return m
}

func configType(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("配置文件必须是 JSON 或 YAML 格式，当前文件: %s", ext)
	}
}

// setDefaults 把默认配置注册为 viper 默认值，文件中未出现的项使用默认值
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("replace.preserve_formatting", d.Replace.PreserveFormatting)
	v.SetDefault("replace.case_sensitive", d.Replace.CaseSensitive)
	v.SetDefault("bullets.marker_phrase", d.Bullets.MarkerPhrase)
	v.SetDefault("bullets.remove_template", d.Bullets.RemoveTemplate)
	v.SetDefault("bullets.normalize", d.Bullets.Normalize)
	v.SetDefault("bullets.left_indent_inches", d.Bullets.LeftIndentInches)
	v.SetDefault("bullets.hanging_indent_inches", d.Bullets.HangingIndentInches)
	v.SetDefault("bullets.space_after_pt", d.Bullets.SpaceAfterPt)
	v.SetDefault("bullets.line_spacing", d.Bullets.LineSpacing)
	v.SetDefault("processing.max_concurrent_files", d.Processing.MaxConcurrentFiles)
	v.SetDefault("processing.output_suffix", d.Processing.OutputSuffix)
	v.SetDefault("processing.exclude_patterns", d.Processing.ExcludePatterns)
	v.SetDefault("processing.verify", d.Processing.Verify)
	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.property_prefix", d.Audit.PropertyPrefix)
}

// Load 从文件加载配置，旧版本配置自动迁移
func (m *Manager) Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径不能为空")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", path)
	}
	typ, err := configType(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(typ)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := m.Migrate(&cfg); err != nil {
		return nil, fmt.Errorf("配置迁移失败: %w", err)
	}
	if err := m.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	now := time.Now()
	if cfg.CreatedAt == nil {
		cfg.CreatedAt = &now
	}
	cfg.UpdatedAt = &now
	return &cfg, nil
}

// LoadWithDefaults 路径为空时返回默认配置
func (m *Manager) LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return m.Load(path)
}

// Migrate 依次执行迁移直到当前版本。没有版本号的配置视为 1.0
func (m *Manager) Migrate(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	for cfg.Version != CurrentVersion {
		handler, ok := m.migrations[cfg.Version]
		if !ok {
			return fmt.Errorf("不支持的配置版本: %s", cfg.Version)
		}
		from := cfg.Version
		if err := handler(cfg); err != nil {
			return err
		}
		m.logger.Info("配置已迁移", "from", from, "to", cfg.Version)
	}
	return nil
}

// migrateFromV1ToV2 1.0 的关键词以 #key# 形式出现在文档中
func (m *Manager) migrateFromV1ToV2(cfg *Config) error {
	for i := range cfg.Keywords {
		key := strings.TrimSpace(cfg.Keywords[i].Key)
		if key != "" && !isHashKey(key) {
			cfg.Keywords[i].Key = "#" + key + "#"
		}
		if cfg.Keywords[i].Enabled == nil {
			enabled := true
			cfg.Keywords[i].Enabled = &enabled
		}
	}
	cfg.Version = "2.0"
	return nil
}

// Validate 校验配置
func (m *Manager) Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("配置不能为空")
	}
	if strings.TrimSpace(cfg.ProjectName) == "" {
		return errors.New("项目名称不能为空")
	}

	keySet := make(map[string]bool)
	for i, k := range cfg.Keywords {
		if strings.TrimSpace(k.Key) == "" {
			return fmt.Errorf("第 %d 个关键词的 key 不能为空", i+1)
		}
		if k.Value == "" {
			return fmt.Errorf("第 %d 个关键词的 value 不能为空", i+1)
		}
		if keySet[k.Key] {
			return fmt.Errorf("关键词重复: %s", k.Key)
		}
		keySet[k.Key] = true
	}

	for i, a := range cfg.Aliases {
		if strings.TrimSpace(a.Token) == "" || strings.TrimSpace(a.Path) == "" {
			return fmt.Errorf("第 %d 个别名的 token 和 path 不能为空", i+1)
		}
	}
	for i, c := range cfg.ContentMappings {
		if c.Text == "" || strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("第 %d 个内容映射的 text 和 path 不能为空", i+1)
		}
	}

	if err := validateBullets(cfg.Bullets); err != nil {
		return fmt.Errorf("项目符号配置无效: %w", err)
	}
	if err := validateProcessing(cfg.Processing); err != nil {
		return fmt.Errorf("处理配置无效: %w", err)
	}
	if strings.TrimSpace(cfg.Audit.PropertyPrefix) == "" && cfg.Audit.Enabled {
		return errors.New("追踪配置无效: 属性前缀不能为空")
	}
	return nil
}

func validateBullets(b BulletConfig) error {
	if b.LeftIndentInches < 0 || b.HangingIndentInches < 0 || b.SpaceAfterPt < 0 {
		return errors.New("缩进和段后间距不能为负数")
	}
	if b.LineSpacing <= 0 || b.LineSpacing > 10 {
		return errors.New("行距必须在 0-10 之间")
	}
	return nil
}

func validateProcessing(pc ProcessingConfig) error {
	if pc.MaxConcurrentFiles < 1 || pc.MaxConcurrentFiles > 50 {
		return errors.New("最大并发文件数必须在1-50之间")
	}
	for _, pattern := range pc.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("排除模式无效 %q: %w", pattern, err)
		}
	}
	return nil
}

// Save 按扩展名保存为 JSON 或 YAML
func (m *Manager) Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("配置不能为空")
	}
	typ, err := configType(path)
	if err != nil {
		return err
	}
	now := time.Now()
	cfg.UpdatedAt = &now
	if err := m.Validate(cfg); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	var data []byte
	if typ == "json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

// GenerateTemplate 生成配置模板：basic 为字面量替换，resume 为简历占位符填充
func (m *Manager) GenerateTemplate(kind string) (*Config, error) {
	enabled := true
	cfg := DefaultConfig()
	now := time.Now()
	cfg.CreatedAt = &now

	switch kind {
	case "basic":
		cfg.ProjectName = "示例项目"
		cfg.Keywords = []Keyword{
			{Key: "产品名称", Value: "示例产品", Enabled: &enabled, Category: "基础信息"},
			{Key: "公司名称", Value: "示例公司", Enabled: &enabled, Category: "基础信息"},
			{Key: "版本号", Value: "v1.0", Enabled: &enabled, Category: "版本信息"},
		}
	case "resume":
		cfg.ProjectName = "简历填充"
		cfg.Aliases = cfg.AliasTable().Bindings()
		cfg.Bullets.RemoveTemplate = true
		cfg.Audit.Enabled = true
	default:
		return nil, fmt.Errorf("未知的模板类型: %s", kind)
	}
	return cfg, nil
}
