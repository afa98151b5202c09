package redact

import (
	"fmt"
	"strings"
)

// Validation 规则文本校验结果
type Validation struct {
	Valid  bool
	Lines  []string
	Errors []string
}

// ValidateRules 按行校验规则文本，空行被忽略，行号按非空行计数
func ValidateRules(text string) Validation {
	res := Validation{Lines: make([]string, 0)}
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			res.Lines = append(res.Lines, l)
		}
	}
	for i, l := range res.Lines {
		if _, err := ParseRule(l); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Line %d: %v", i+1, err))
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}
