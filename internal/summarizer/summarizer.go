// Package summarizer 递归截断任意 JSON 值，生成可安全展示的摘要
package summarizer

import (
	"strconv"
	"unicode/utf8"

	"tddebugger/pkg/jsonv"
)

const (
	// TruncationMarker 字符串截断标记
	TruncationMarker = " …"
	// MoreKey 数组、对象省略标记键
	MoreKey = "__more__"
)

// 默认截断上限
const (
	DefaultMaxString     = 500
	DefaultMaxArrayItems = 3
	DefaultMaxObjectKeys = 20
)

// Caps 各层级独立生效的截断上限
type Caps struct {
	MaxString     int
	MaxArrayItems int
	MaxObjectKeys int
}

// DefaultCaps 返回默认上限
func DefaultCaps() Caps {
	return Caps{
		MaxString:     DefaultMaxString,
		MaxArrayItems: DefaultMaxArrayItems,
		MaxObjectKeys: DefaultMaxObjectKeys,
	}
}

// normalize 负数视为未配置
func (c Caps) normalize() Caps {
	if c.MaxString < 0 {
		c.MaxString = DefaultMaxString
	}
	if c.MaxArrayItems < 0 {
		c.MaxArrayItems = DefaultMaxArrayItems
	}
	if c.MaxObjectKeys < 0 {
		c.MaxObjectKeys = DefaultMaxObjectKeys
	}
	return c
}

// Summarize 递归截断值，返回新的值树，不修改输入
func Summarize(v jsonv.Value, caps Caps) jsonv.Value {
	return summarize(v, caps.normalize())
}

func summarize(v jsonv.Value, caps Caps) jsonv.Value {
	switch t := v.(type) {
	case jsonv.String:
		return TruncateString(string(t), caps.MaxString)
	case jsonv.Array:
		n := min(len(t), caps.MaxArrayItems)
		out := make(jsonv.Array, 0, n+1)
		for _, item := range t[:n] {
			out = append(out, summarize(item, caps))
		}
		if len(t) > caps.MaxArrayItems {
			more := jsonv.NewObject()
			more.Set(MoreKey, jsonv.Int(len(t)-caps.MaxArrayItems))
			out = append(out, more)
		}
		return out
	case *jsonv.Object:
		if t == nil {
			return jsonv.Null{}
		}
		out := jsonv.NewObject()
		i := 0
		t.Range(func(k string, item jsonv.Value) bool {
			if i >= caps.MaxObjectKeys {
				return false
			}
			out.Set(k, summarize(item, caps))
			i++
			return true
		})
		if t.Len() > caps.MaxObjectKeys {
			out.Set(MoreKey, jsonv.String("+"+strconv.Itoa(t.Len()-caps.MaxObjectKeys)+" keys"))
		}
		return out
	}
	return v
}

// TruncateString 超过 limit 个字符时截断并追加标记
func TruncateString(s string, limit int) jsonv.String {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return jsonv.String(s)
	}
	n := 0
	for i := range s {
		if n == limit {
			return jsonv.String(s[:i] + TruncationMarker)
		}
		n++
	}
	return jsonv.String(s)
}
