package domain

import (
	"strings"
	"time"

	"tddebugger/pkg/jsonv"
)

// SessionID 捕获会话ID
type SessionID string

// TargetID 浏览器目标ID
type TargetID string

// Header 单个头部字段
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Headers 有序头部列表，保留捕获时的原始顺序与大小写
type Headers []Header

// Get 不区分大小写获取首个同名头部
func (h Headers) Get(name string) (string, bool) {
	for _, hd := range h {
		if strings.EqualFold(hd.Name, name) {
			return hd.Value, true
		}
	}
	return "", false
}

// Has 判断头部是否存在
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Clone 复制头部列表
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Entry 一次已捕获的请求/响应交换
type Entry struct {
	Index           int64       `json:"idx"`
	Timestamp       int64       `json:"time"` // 捕获时间（毫秒）
	Method          string      `json:"method"`
	URL             string      `json:"url"`
	Status          int         `json:"status,omitempty"` // 0 表示尚无状态码
	ContentType     string      `json:"contentType"`
	Parsed          jsonv.Value `json:"parsed"`
	IsPreflight     bool        `json:"preflight"`
	RequestHeaders  Headers     `json:"requestHeaders"`
	ResponseHeaders Headers     `json:"responseHeaders"`
}

// HasStatus 判断是否已有状态码
func (e *Entry) HasStatus() bool {
	return e.Status > 0
}

// Time 返回捕获时间
func (e *Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// ParsedObject 以对象形式返回摘要
func (e *Entry) ParsedObject() (*jsonv.Object, bool) {
	return jsonv.AsObject(e.Parsed)
}

// Database 返回摘要中的 database 字段
func (e *Entry) Database() string {
	obj, ok := e.ParsedObject()
	if !ok {
		return ""
	}
	db, _ := obj.GetString("database")
	return db
}
