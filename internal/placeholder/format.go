package placeholder

import (
	"strings"
	"time"

	"github.com/allanpk716/docx_filler/internal/datatree"
	"github.com/allanpk716/docx_filler/internal/domain"
)

const (
	// CurrentDateToken 内置的当前日期占位符
	CurrentDateToken = "CURRENT_DATE"
	// CurrentDateLayout 当前日期的格式，例如 "January 2006"
	CurrentDateLayout = "January 2006"
)

// itemizedTerms 名称中含有这些词的列表占位符展开为项目符号段落
var itemizedTerms = []string{"highlights", "responsibilities"}

// IsItemized 占位符是否表示逐条列出的字段
func IsItemized(token string) bool {
	lower := strings.ToLower(token)
	for _, term := range itemizedTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// FormatValue 将数据节点格式化为插入文档的文本：
// 标量直接转换，标量列表以 ", " 连接，映射输出调试形式
func FormatValue(v datatree.Value) string {
	return v.String()
}

// FormatDate 当前日期占位符的文本
func FormatDate(t time.Time) string {
	return t.Format(CurrentDateLayout)
}

// Categorize 根据占位符名称归类，名称无法归类时再看数据路径
func Categorize(token, path string) domain.Category {
	if c := categorize(token); c != domain.CategoryBasic {
		return c
	}
	return categorize(path)
}

func categorize(name string) domain.Category {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "contact", "phone", "email", "linkedin"):
		return domain.CategoryContact
	case strings.Contains(lower, "technical_skills"):
		return domain.CategorySkills
	case strings.Contains(lower, "professional_experience"):
		return domain.CategoryExperience
	case strings.Contains(lower, "project"):
		return domain.CategoryProjects
	case strings.Contains(lower, "education"):
		return domain.CategoryEducation
	default:
		return domain.CategoryBasic
	}
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
