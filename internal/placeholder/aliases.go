package placeholder

import (
	"sort"
	"strings"

	"github.com/allanpk716/docx_filler/internal/matcher"
)

// Binding 占位符别名：模板中的短名称对应数据树中的路径
type Binding struct {
	Token string `mapstructure:"token" json:"token" yaml:"token"`
	Path  string `mapstructure:"path" json:"path" yaml:"path"`
}

// AliasTable 别名表，查找不区分大小写。创建后只读
type AliasTable struct {
	entries map[string]Binding
}

// NewAliasTable 创建别名表，后出现的同名绑定覆盖先前的
func NewAliasTable(bindings ...Binding) *AliasTable {
	a := &AliasTable{entries: make(map[string]Binding, len(bindings))}
	a.add(bindings)
	return a
}

// DefaultAliases 内置的简历模板别名
func DefaultAliases() *AliasTable {
	return NewAliasTable(
		Binding{Token: "NAME", Path: "name"},
		Binding{Token: "PHONE", Path: "contact.phone"},
		Binding{Token: "EMAIL", Path: "contact.email"},
		Binding{Token: "LINKEDIN", Path: "contact.linkedin"},
		Binding{Token: "PROFESSIONAL_SUMMARY", Path: "professional_summary"},
		Binding{Token: "TECHNICAL_SKILLS", Path: "technical_skills"},
		Binding{Token: "highlights1", Path: "highlights1"},
		Binding{Token: "highlights2", Path: "highlights2"},
		Binding{Token: "highlights3", Path: "highlights3"},
		Binding{Token: "projects1", Path: "projects1"},
		Binding{Token: "projects2", Path: "projects2"},
		Binding{Token: "project1_highlights", Path: "project1_highlights"},
		Binding{Token: "project2_highlights", Path: "project2_highlights"},
		Binding{Token: "education", Path: "education"},
	)
}

// With 返回合并了新绑定的副本，新绑定优先
func (a *AliasTable) With(bindings ...Binding) *AliasTable {
	out := NewAliasTable()
	if a != nil {
		for k, b := range a.entries {
			out.entries[k] = b
		}
	}
	out.add(bindings)
	return out
}

func (a *AliasTable) add(bindings []Binding) {
	for _, b := range bindings {
		key := matcher.NormalizeKey(b.Token)
		if key == "" || strings.TrimSpace(b.Path) == "" {
			continue
		}
		a.entries[key] = Binding{Token: matcher.PlaceholderBody(strings.TrimSpace(b.Token)), Path: strings.TrimSpace(b.Path)}
	}
}

// Lookup 查找占位符主体对应的路径，主体可带或不带 {{ }}
func (a *AliasTable) Lookup(token string) (string, bool) {
	if a == nil {
		return "", false
	}
	b, ok := a.entries[matcher.NormalizeKey(token)]
	return b.Path, ok
}

// Bindings 按名称排序的全部绑定
func (a *AliasTable) Bindings() []Binding {
	if a == nil {
		return nil
	}
	out := make([]Binding, 0, len(a.entries))
	for _, b := range a.entries {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Token) < strings.ToLower(out[j].Token)
	})
	return out
}

// Len 绑定数量
func (a *AliasTable) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}
