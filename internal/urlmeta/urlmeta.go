// Package urlmeta 从请求 URL 与请求头中提取 TD 路由元数据
package urlmeta

import (
	"net/url"
	"strings"

	"tddebugger/internal/transformer"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"
)

// DefaultVendorPrefix 默认厂商请求头前缀
const DefaultVendorPrefix = "x-td-"

// Metadata URL 路由元数据，零值表示 URL 无法解析
type Metadata struct {
	Host     string
	Pathname string
	// Query 按首次出现顺序保存查询参数，重复参数取最后一个值
	Query    *jsonv.Object
	Database string
	Table    string
	Region   string
	Edge     string
	// Headers 白名单请求头，键为小写名称；无匹配时为 nil
	Headers *jsonv.Object
}

// Extract 解析 URL 与请求头，解析失败返回零值
func Extract(rawURL string, headers domain.Headers, vendorPrefix string) Metadata {
	u, ok := parseURL(rawURL)
	if !ok {
		return Metadata{}
	}

	m := Metadata{
		Host:     u.Host,
		Pathname: u.EscapedPath(),
		Query:    jsonv.NewObject(),
	}
	if m.Pathname == "" {
		m.Pathname = "/"
	}

	for _, p := range transformer.ParseForm(u.RawQuery) {
		m.Query.Set(p.Key, jsonv.String(p.Value))
	}

	segments := make([]string, 0, 2)
	for _, s := range strings.Split(m.Pathname, "/") {
		if s != "" {
			segments = append(segments, s)
		}
		if len(segments) == 2 {
			break
		}
	}
	if len(segments) > 0 {
		m.Database = segments[0]
	}
	if len(segments) > 1 {
		m.Table = segments[1]
	}

	if labels := strings.Split(u.Hostname(), "."); len(labels) >= 4 {
		m.Region = labels[0]
		m.Edge = labels[1]
	}

	m.Headers = allowListed(headers, vendorPrefix)
	return m
}

func parseURL(rawURL string) (*url.URL, bool) {
	if rawURL == "" {
		return nil, false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	return u, true
}

func allowListed(headers domain.Headers, vendorPrefix string) *jsonv.Object {
	var out *jsonv.Object
	for _, h := range headers {
		name := strings.ToLower(h.Name)
		if !IsAllowListedHeader(name, vendorPrefix) {
			continue
		}
		if out == nil {
			out = jsonv.NewObject()
		}
		out.Set(name, jsonv.String(h.Value))
	}
	return out
}

// IsAllowListedHeader 判断请求头是否进入元数据
func IsAllowListedHeader(name, vendorPrefix string) bool {
	if vendorPrefix == "" {
		vendorPrefix = DefaultVendorPrefix
	}
	name = strings.ToLower(name)
	switch name {
	case "content-type", "accept", "origin":
		return true
	}
	return strings.HasPrefix(name, strings.ToLower(vendorPrefix))
}

// IsTDRequest 判断 URL 主机是否以任一配置主机结尾
func IsTDRequest(rawURL string, hosts []string) bool {
	u, ok := parseURL(rawURL)
	if !ok {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}

// IsPreflight 判断是否为 CORS 预检请求
func IsPreflight(method string, headers domain.Headers) bool {
	return method == "OPTIONS" && headers.Has("Access-Control-Request-Method")
}

// Summary 生成只包含非空字段的元数据摘要
func Summary(m Metadata) *jsonv.Object {
	out := jsonv.NewObject()
	setString := func(key, v string) {
		if v != "" {
			out.Set(key, jsonv.String(v))
		}
	}
	setString("database", m.Database)
	setString("table", m.Table)
	setString("region", m.Region)
	setString("edge", m.Edge)
	if m.Query.Len() > 0 {
		out.Set("query", m.Query)
	}
	setString("path", m.Pathname)
	if m.Headers.Len() > 0 {
		out.Set("headers", m.Headers)
	}
	return out
}

// Merge 合并元数据摘要与载荷摘要
// 两者均为对象时浅合并且载荷优先；仅一方为对象时取该对象；均非对象时取 meta
func Merge(meta, body jsonv.Value) jsonv.Value {
	mo, metaIsObj := jsonv.AsObject(meta)
	bo, bodyIsObj := jsonv.AsObject(body)
	switch {
	case metaIsObj && bodyIsObj:
		out := jsonv.NewObject()
		mo.Range(func(k string, v jsonv.Value) bool {
			out.Set(k, v)
			return true
		})
		bo.Range(func(k string, v jsonv.Value) bool {
			out.Set(k, v)
			return true
		})
		return out
	case metaIsObj:
		return mo
	case bodyIsObj:
		return bo
	}
	return meta
}
