package matcher

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// literalMatcher 字面量匹配器实现
type literalMatcher struct {
	mu           sync.Mutex
	patternCache map[string]*regexp.Regexp
}

// NewLiteralMatcher 创建新的字面量匹配器
func NewLiteralMatcher() domain.PatternMatcher {
	return &literalMatcher{
		patternCache: make(map[string]*regexp.Regexp),
	}
}

// FindAll 查找所有不重叠的匹配，位置转换为字符偏移
func (lm *literalMatcher) FindAll(text, search string, caseSensitive bool) []domain.Match {
	// 空字符串不匹配任何位置
	if search == "" {
		return nil
	}

	indexes := lm.getOrCreatePattern(search, caseSensitive).FindAllStringIndex(text, -1)
	if len(indexes) == 0 {
		return nil
	}

	matches := make([]domain.Match, 0, len(indexes))
	bytePos, runePos := 0, 0
	for _, index := range indexes {
		runePos += utf8.RuneCountInString(text[bytePos:index[0]])
		start := runePos
		runePos += utf8.RuneCountInString(text[index[0]:index[1]])
		bytePos = index[1]
		matches = append(matches, domain.Match{Start: start, End: runePos})
	}
	return matches
}

// Contains 检查文本中是否存在匹配
func (lm *literalMatcher) Contains(text, search string, caseSensitive bool) bool {
	if search == "" {
		return false
	}
	if caseSensitive {
		return strings.Contains(text, search)
	}
	return lm.getOrCreatePattern(search, false).MatchString(text)
}

// Replace 替换所有匹配，计数方式与 FindAll 一致
func (lm *literalMatcher) Replace(text, search, replacement string, caseSensitive bool) (string, int) {
	if search == "" {
		return text, 0
	}
	pattern := lm.getOrCreatePattern(search, caseSensitive)
	indexes := pattern.FindAllStringIndex(text, -1)
	if len(indexes) == 0 {
		return text, 0
	}

	var sb strings.Builder
	last := 0
	for _, index := range indexes {
		sb.WriteString(text[last:index[0]])
		sb.WriteString(replacement)
		last = index[1]
	}
	sb.WriteString(text[last:])
	return sb.String(), len(indexes)
}

// getOrCreatePattern 获取或创建正则表达式模式，搜索串按字面量转义。
// 不区分大小写时使用 (?i)，即 Unicode 简单大小写折叠（ſ 与 s、K 与 k 视为相同）
func (lm *literalMatcher) getOrCreatePattern(search string, caseSensitive bool) *regexp.Regexp {
	key := regexp.QuoteMeta(search)
	if !caseSensitive {
		key = "(?i)" + key
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if pattern, exists := lm.patternCache[key]; exists {
		return pattern
	}

	pattern := regexp.MustCompile(key)
	lm.patternCache[key] = pattern
	return pattern
}

// CountMatches 统计各搜索串的匹配次数
func CountMatches(m domain.PatternMatcher, text string, searches []string, caseSensitive bool) map[string]int {
	stats := make(map[string]int, len(searches))
	for _, search := range searches {
		stats[search] = len(m.FindAll(text, search, caseSensitive))
	}
	return stats
}
