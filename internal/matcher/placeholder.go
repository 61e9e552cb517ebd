package matcher

import (
	"regexp"
	"strings"
)

// placeholderPattern 占位符语法：{{ 加一个或多个非 } 字符加 }}
var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// FindPlaceholders 返回各段文本中出现的不重复占位符主体，按首次出现顺序。
// 占位符不跨越段落
func FindPlaceholders(texts ...string) []string {
	var bodies []string
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			body := m[1]
			if seen[body] {
				continue
			}
			seen[body] = true
			bodies = append(bodies, body)
		}
	}
	return bodies
}

// IsPlaceholder 验证是否为完整的 {{key}} 格式
func IsPlaceholder(s string) bool {
	loc := placeholderPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// PlaceholderBody 从 {{key}} 格式中提取主体
func PlaceholderBody(s string) string {
	if !IsPlaceholder(s) {
		return s
	}
	return s[2 : len(s)-2]
}

// FormatPlaceholder 将主体格式化为 {{key}} 格式
func FormatPlaceholder(body string) string {
	if IsPlaceholder(body) {
		return body
	}
	return "{{" + body + "}}"
}

// NormalizeKey 用于别名查找和分类的键：去掉括号和空白并转为小写
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(PlaceholderBody(strings.TrimSpace(s))))
}
