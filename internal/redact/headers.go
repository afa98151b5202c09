package redact

import (
	"strings"
	"unicode/utf8"

	"tddebugger/pkg/domain"
)

// MaskedSuffix 凭证截断后的后缀
const MaskedSuffix = "… (masked)"

// visibleTokenChars 凭证保留的可见字符数
const visibleTokenChars = 8

// MaskAuthorization 保留认证方案与凭证前 8 个字符
// 无法拆分出方案与凭证时返回 ****
func MaskAuthorization(v string) string {
	if v == "" {
		return v
	}
	parts := strings.Fields(v)
	if len(parts) < 2 {
		return TokenMarker
	}
	token := strings.Join(parts[1:], " ")
	if utf8.RuneCountInString(token) > visibleTokenChars {
		token = string([]rune(token)[:visibleTokenChars])
	}
	return parts[0] + " " + token + MaskedSuffix
}

// RedactHeaders 返回脱敏后的头部副本
// Authorization 先做掩码，然后只应用自定义规则
func (r *Redactor) RedactHeaders(h domain.Headers) domain.Headers {
	if h == nil {
		return nil
	}
	out := make(domain.Headers, len(h))
	for i, hd := range h {
		value := hd.Value
		if strings.EqualFold(hd.Name, "authorization") {
			value = MaskAuthorization(value)
		}
		out[i] = domain.Header{Name: hd.Name, Value: r.applyCustom(value)}
	}
	return out
}

var importantHeaders = map[string]struct{}{
	"authorization":                    {},
	"access-control-allow-origin":      {},
	"access-control-allow-credentials": {},
	"access-control-allow-methods":     {},
	"access-control-allow-headers":     {},
	"cache-control":                    {},
	"content-type":                     {},
	"set-cookie":                       {},
	"cookie":                           {},
}

// IsImportantHeader 判断是否为需要高亮的头部
func IsImportantHeader(name string) bool {
	_, ok := importantHeaders[strings.ToLower(name)]
	return ok
}
