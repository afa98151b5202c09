// Package redact 基于正则规则对摘要与头部做尽力而为的脱敏
package redact

import (
	"regexp"
	"strings"

	"tddebugger/internal/regexutil"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/errx"
	"tddebugger/pkg/jsonv"
)

// 脱敏标记
const (
	EmailMarker   = "***@***"
	TokenMarker   = "****"
	DefaultMarker = "[REDACTED]"
	// MarkerSeparator 自定义规则中分隔正则与标记的符号
	MarkerSeparator = "=>"
)

// Rule 脱敏规则
type Rule struct {
	Source      string
	Pattern     *regexp.Regexp
	Replacement string
}

var builtinRules = []Rule{
	{
		Source:      "email",
		Pattern:     regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`),
		Replacement: EmailMarker,
	},
	{
		Source:      "token",
		Pattern:     regexp.MustCompile(`\b([A-F0-9]{32,}|[A-Za-z0-9_\-]{24,})\b`),
		Replacement: TokenMarker,
	},
}

var ruleCache = regexutil.New(0)

// Redactor 脱敏器，内置规则始终生效，自定义规则按顺序在其后执行
type Redactor struct {
	custom []Rule
}

// New 编译自定义规则，无法编译的规则被静默丢弃
func New(customRules []string) *Redactor {
	r := &Redactor{}
	for _, line := range customRules {
		rule, err := ParseRule(line)
		if err != nil {
			continue
		}
		r.custom = append(r.custom, rule)
	}
	return r
}

// ParseRule 解析单条规则，格式为 `pattern` 或 `pattern => marker`
func ParseRule(line string) (Rule, error) {
	line = strings.TrimSpace(line)
	pattern, marker := line, DefaultMarker
	if i := strings.LastIndex(line, " "+MarkerSeparator); i >= 0 {
		pattern = strings.TrimSpace(line[:i])
		if m := strings.TrimSpace(line[i+len(MarkerSeparator)+1:]); m != "" {
			marker = m
		}
	}
	if pattern == "" {
		return Rule{}, errx.New(errx.CodeInvalidRule, "empty pattern")
	}
	re, err := ruleCache.Get(pattern)
	if err != nil {
		return Rule{}, errx.Wrap(errx.CodeInvalidRule, err, "invalid pattern")
	}
	return Rule{Source: line, Pattern: re, Replacement: marker}, nil
}

// Rules 返回全部生效规则，内置规则在前
func (r *Redactor) Rules() []Rule {
	out := make([]Rule, 0, len(builtinRules)+len(r.custom))
	out = append(out, builtinRules...)
	return append(out, r.custom...)
}

// CustomCount 返回生效的自定义规则数量
func (r *Redactor) CustomCount() int {
	return len(r.custom)
}

// RedactString 对字符串依次应用全部规则
func (r *Redactor) RedactString(s string) string {
	for _, rule := range builtinRules {
		s = rule.Pattern.ReplaceAllLiteralString(s, rule.Replacement)
	}
	return r.applyCustom(s)
}

func (r *Redactor) applyCustom(s string) string {
	for _, rule := range r.custom {
		s = rule.Pattern.ReplaceAllLiteralString(s, rule.Replacement)
	}
	return s
}

// Redact 递归脱敏字符串叶子节点，返回新的值树
func (r *Redactor) Redact(v jsonv.Value) jsonv.Value {
	switch t := v.(type) {
	case jsonv.String:
		return jsonv.String(r.RedactString(string(t)))
	case jsonv.Array:
		out := make(jsonv.Array, len(t))
		for i, item := range t {
			out[i] = r.Redact(item)
		}
		return out
	case *jsonv.Object:
		if t == nil {
			return jsonv.Null{}
		}
		out := jsonv.NewObject()
		t.Range(func(k string, item jsonv.Value) bool {
			out.Set(k, r.Redact(item))
			return true
		})
		return out
	}
	return v
}

// RedactEntry 返回脱敏后的条目副本
func (r *Redactor) RedactEntry(e domain.Entry) domain.Entry {
	out := e
	out.Parsed = r.Redact(e.Parsed)
	out.RequestHeaders = r.RedactHeaders(e.RequestHeaders)
	out.ResponseHeaders = r.RedactHeaders(e.ResponseHeaders)
	return out
}
