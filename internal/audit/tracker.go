// Package audit 记录每个占位符的替换情况，并保存到 docx 的自定义文档属性中。
package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allanpk716/docx_filler/internal/placeholder"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// DefaultPropertyPrefix 自定义属性名前缀
const DefaultPropertyPrefix = "DocxFiller"

// Record 单个占位符的替换记录
type Record struct {
	Token        string    `json:"token"`
	LastValue    string    `json:"last_value"`
	ReplaceCount int       `json:"replace_count"`
	LastModified time.Time `json:"last_modified"`
}

// Config 追踪配置
type Config struct {
	Enabled        bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	PropertyPrefix string `mapstructure:"property_prefix" json:"property_prefix" yaml:"property_prefix"`
}

// Tracker 单个文档的替换追踪器，不可并发使用
type Tracker struct {
	records map[string]*Record
	enabled bool
	prefix  string
	runID   string
	now     func() time.Time
}

// NewTracker 创建追踪器，每个追踪器有唯一的运行标识
func NewTracker(cfg Config) *Tracker {
	prefix := strings.TrimSpace(cfg.PropertyPrefix)
	if prefix == "" {
		prefix = DefaultPropertyPrefix
	}
	return &Tracker{
		records: make(map[string]*Record),
		enabled: cfg.Enabled,
		prefix:  prefix,
		runID:   uuid.NewString(),
		now:     time.Now,
	}
}

// IsEnabled 是否启用追踪
func (t *Tracker) IsEnabled() bool {
	return t.enabled
}

// RunID 本次运行的标识
func (t *Tracker) RunID() string {
	return t.runID
}

func (t *Tracker) recordName(token string) string {
	return t.prefix + ":" + token
}

func (t *Tracker) runIDName() string {
	return t.prefix + "_RunID"
}

// Track 添加或更新记录，替换次数累加
func (t *Tracker) Track(token, value string, count int) {
	if !t.enabled || count <= 0 {
		return
	}
	if existing, ok := t.records[token]; ok {
		existing.LastValue = value
		existing.ReplaceCount += count
		existing.LastModified = t.now()
		return
	}
	t.records[token] = &Record{
		Token:        token,
		LastValue:    value,
		ReplaceCount: count,
		LastModified: t.now(),
	}
}

// TrackReport 记录一次展开中全部发生了替换的占位符
func (t *Tracker) TrackReport(r *placeholder.Report) {
	if r == nil {
		return
	}
	for _, res := range r.Tokens {
		t.Track(res.Token, res.Value, res.Count)
	}
}

// Get 获取记录
func (t *Tracker) Get(token string) (*Record, bool) {
	if !t.enabled {
		return nil, false
	}
	r, ok := t.records[token]
	return r, ok
}

// Count 记录数
func (t *Tracker) Count() int {
	if !t.enabled {
		return 0
	}
	return len(t.records)
}

// Records 按名称排序的全部记录
func (t *Tracker) Records() []*Record {
	if !t.enabled {
		return nil
	}
	out := make([]*Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Load 从自定义属性中读取已有记录，无法解析的属性被忽略。返回读取的记录数
func (t *Tracker) Load(props *docx.CustomProperties) int {
	if !t.enabled || props == nil {
		return 0
	}
	loaded := 0
	for _, name := range props.Names() {
		token, ok := strings.CutPrefix(name, t.prefix+":")
		if !ok {
			continue
		}
		value, _ := props.Get(name)
		var r Record
		if err := json.Unmarshal([]byte(value), &r); err != nil {
			continue
		}
		r.Token = token
		t.records[token] = &r
		loaded++
	}
	return loaded
}

// Cleanup 删除不在 active 中的记录，返回删除数
func (t *Tracker) Cleanup(active []string) int {
	if !t.enabled {
		return 0
	}
	keep := make(map[string]bool, len(active))
	for _, token := range active {
		keep[token] = true
	}
	removed := 0
	for token := range t.records {
		if !keep[token] {
			delete(t.records, token)
			removed++
		}
	}
	return removed
}

// Save 将记录和运行标识写入自定义属性，已删除的记录同时从属性中移除
func (t *Tracker) Save(props *docx.CustomProperties) error {
	if !t.enabled {
		return nil
	}
	if props == nil {
		return fmt.Errorf("自定义属性为空")
	}
	for _, name := range props.Names() {
		if token, ok := strings.CutPrefix(name, t.prefix+":"); ok {
			if _, exists := t.records[token]; !exists {
				props.Delete(name)
			}
		}
	}
	for _, r := range t.Records() {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("序列化替换记录失败: %w", err)
		}
		props.Set(t.recordName(r.Token), string(data))
	}
	props.Set(t.runIDName(), t.runID)
	return nil
}

// LastRunID 读取文档中保存的运行标识
func LastRunID(props *docx.CustomProperties, prefix string) (string, bool) {
	if props == nil {
		return "", false
	}
	if prefix == "" {
		prefix = DefaultPropertyPrefix
	}
	return props.Get(prefix + "_RunID")
}
