package transformer

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// FormPair 表单键值对
type FormPair struct {
	Key   string
	Value string
}

// ParseForm 解析 x-www-form-urlencoded 文本，保留参数出现顺序
// 非法的百分号编码按原文保留，不返回错误
func ParseForm(body string) []FormPair {
	body = strings.TrimPrefix(body, "?")
	pairs := make([]FormPair, 0)
	for _, part := range strings.Split(body, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		pairs = append(pairs, FormPair{Key: unescapeForm(key), Value: unescapeForm(value)})
	}
	return pairs
}

func unescapeForm(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "+", " ")
}

// DecodeBody 根据编码方式解码，base64Encoded 为 false 时原样返回
func DecodeBody(input string, base64Encoded bool) (string, error) {
	if !base64Encoded {
		return input, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
