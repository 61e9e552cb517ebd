// Package datatree 解析填充数据（JSON/YAML）并按点分路径取值。
package datatree

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// Format 数据文件格式
type Format int

const (
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "auto"
	}
}

// DetectFormat 根据扩展名判断格式
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// Tree 只读的数据树。节点为 string、int64、float64、bool、nil、[]any 或 map[string]any，
// 解析后不再修改，可在多个 goroutine 间共享
type Tree struct {
	root any
}

// ParseFile 读取并解析数据文件
func ParseFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件失败: %w", err)
	}
	tree, err := Parse(data, DetectFormat(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// Parse 解析数据。支持 UTF-8/UTF-16 BOM，字符串统一为 NFC 形式
func Parse(data []byte, format Format) (*Tree, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("%w: 解码失败: %v", domain.ErrMalformedDataTree, err)
	}
	if strings.TrimSpace(string(decoded)) == "" {
		return nil, fmt.Errorf("%w: 内容为空", domain.ErrMalformedDataTree)
	}

	if format == FormatAuto {
		format = sniff(decoded)
	}

	var root any
	switch format {
	case FormatJSON:
		root, err = oj.Parse(decoded)
	default:
		err = yaml.Unmarshal(decoded, &root)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedDataTree, format, err)
	}

	root, err = normalize(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDataTree, err)
	}
	return &Tree{root: root}, nil
}

// New 从内存中的值构造数据树
func New(v any) (*Tree, error) {
	root, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDataTree, err)
	}
	return &Tree{root: root}, nil
}

// MustNew 与 New 相同，失败时 panic，用于测试与内置数据
func MustNew(v any) *Tree {
	t, err := New(v)
	if err != nil {
		panic(err)
	}
	return t
}

func sniff(data []byte) Format {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return FormatJSON
	}
	return FormatYAML
}

// normalize 统一节点类型
func normalize(v any) (any, error) {
	switch tv := v.(type) {
	case nil, bool, int64, float64:
		return tv, nil
	case string:
		return norm.NFC.String(tv), nil
	case int:
		return int64(tv), nil
	case int32:
		return int64(tv), nil
	case uint:
		return normalize(uint64(tv))
	case uint64:
		// 超出 int64 的整数保留十进制文本
		if tv > math.MaxInt64 {
			return strconv.FormatUint(tv, 10), nil
		}
		return int64(tv), nil
	case float32:
		return float64(tv), nil
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = norm.NFC.String(item)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[norm.NFC.String(k)] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[norm.NFC.String(fmt.Sprint(k))] = n
		}
		return out, nil
	case time.Time:
		if tv.Hour() == 0 && tv.Minute() == 0 && tv.Second() == 0 && tv.Nanosecond() == 0 {
			return tv.Format("2006-01-02"), nil
		}
		return tv.Format(time.RFC3339), nil
	case fmt.Stringer:
		return tv.String(), nil
	default:
		return nil, fmt.Errorf("不支持的数据类型 %T", v)
	}
}

// Root 返回根节点
func (t *Tree) Root() Value {
	return Value{v: t.root}
}

// Resolve 按点分路径取值。非负整数段对列表取下标，其余段对映射取键；
// 任意一步不存在时返回 false，不会出错。null 值视为不存在
func (t *Tree) Resolve(path string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	expr, ok := compilePath(path)
	if !ok {
		return Value{}, false
	}
	results := expr.Get(t.root)
	if len(results) == 0 || results[0] == nil {
		return Value{}, false
	}
	return Value{v: results[0]}, true
}

// compilePath 将点分路径转换为 JSONPath 表达式
func compilePath(path string) (jp.Expr, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	expr := jp.R()
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil, false
		}
		if isIndex(seg) {
			n, err := strconv.Atoi(seg)
			if err != nil {
				return nil, false
			}
			expr = expr.N(n)
			continue
		}
		expr = expr.C(seg)
	}
	return expr, true
}

func isIndex(seg string) bool {
	for _, c := range seg {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Value 数据树中的一个节点
type Value struct {
	v any
}

// IsList 是否为列表
func (v Value) IsList() bool {
	_, ok := v.v.([]any)
	return ok
}

// IsMapping 是否为映射
func (v Value) IsMapping() bool {
	_, ok := v.v.(map[string]any)
	return ok
}

// IsScalar 是否为标量（含 null）
func (v Value) IsScalar() bool {
	return !v.IsList() && !v.IsMapping()
}

// IsNull 是否为 null
func (v Value) IsNull() bool {
	return v.v == nil
}

// Len 列表或映射的长度
func (v Value) Len() int {
	switch tv := v.v.(type) {
	case []any:
		return len(tv)
	case map[string]any:
		return len(tv)
	}
	return 0
}

// Index 列表下标取值
func (v Value) Index(i int) (Value, bool) {
	list, ok := v.v.([]any)
	if !ok || i < 0 || i >= len(list) {
		return Value{}, false
	}
	return Value{v: list[i]}, true
}

// Get 映射取值
func (v Value) Get(key string) (Value, bool) {
	m, ok := v.v.(map[string]any)
	if !ok {
		return Value{}, false
	}
	item, ok := m[key]
	if !ok {
		return Value{}, false
	}
	return Value{v: item}, true
}

// Keys 映射的键，已排序
func (v Value) Keys() []string {
	m, ok := v.v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items 列表元素
func (v Value) Items() []Value {
	list, ok := v.v.([]any)
	if !ok {
		return nil
	}
	items := make([]Value, len(list))
	for i, item := range list {
		items[i] = Value{v: item}
	}
	return items
}

// Strings 列表元素的字符串形式
func (v Value) Strings() []string {
	items := v.Items()
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.String()
	}
	return out
}

// Interface 返回底层值
func (v Value) Interface() any {
	return v.v
}

// String 标量直接转换为字符串；列表以 ", " 连接；映射输出调试形式
func (v Value) String() string {
	switch tv := v.v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case bool:
		return strconv.FormatBool(tv)
	case int64:
		return strconv.FormatInt(tv, 10)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case []any:
		return strings.Join(v.Strings(), ", ")
	default:
		return fmt.Sprintf("%v", tv)
	}
}
