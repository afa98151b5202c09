package transformer

import (
	"regexp"
	"strings"
)

var plusJSON = regexp.MustCompile(`(?i)\+json\b`)

// IsJSONLike 判断内容类型是否为 JSON 类（application/json、text/json、*+json）
func IsJSONLike(contentType string) bool {
	if contentType == "" {
		return false
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/json") || strings.Contains(ct, "text/json") {
		return true
	}
	return plusJSON.MatchString(ct)
}

// IsFormURLEncoded 判断是否为表单编码
func IsFormURLEncoded(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/x-www-form-urlencoded")
}

// IsBinaryContentType 判断是否为二进制内容类型
func IsBinaryContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	binaryPrefixes := []string{"image/", "video/", "audio/", "application/octet-stream", "font/"}
	for _, prefix := range binaryPrefixes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}
