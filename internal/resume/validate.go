package resume

import (
	"fmt"

	"github.com/allanpk716/docx_filler/internal/datatree"
)

var (
	requiredFields = []string{"name", "contact", "professional_summary"}
	contactFields  = []string{"phone", "email"}
	listFields     = []string{"technical_skills", "professional_experience", "projects", "education"}
)

// Validation 简历数据校验结果。Errors 非空时数据不可用，Warnings 仅供提示
type Validation struct {
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors" yaml:"errors"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

// Validate 校验简历数据结构
func Validate(tree *datatree.Tree) Validation {
	if tree == nil {
		return Validation{Errors: []string{"未提供简历数据"}}
	}
	root := tree.Root()
	if !root.IsMapping() {
		return Validation{Errors: []string{"简历数据的顶层必须是映射"}}
	}

	var res Validation
	for _, name := range requiredFields {
		if _, ok := root.Get(name); !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("缺少必填字段: %s", name))
		}
	}

	if contact, ok := root.Get("contact"); ok {
		for _, name := range contactFields {
			if _, ok := contact.Get(name); !ok {
				res.Warnings = append(res.Warnings, fmt.Sprintf("缺少联系方式字段: %s", name))
			}
		}
	}

	for _, name := range listFields {
		if v, ok := root.Get(name); ok && !v.IsList() {
			res.Errors = append(res.Errors, fmt.Sprintf("字段 %s 应为列表", name))
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}
