package jsonv

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON 输入不是合法 JSON
var ErrInvalidJSON = errors.New("invalid json")

// Parse 解析 JSON 文本，对象键保持文档顺序
func Parse(data string) (Value, error) {
	if !gjson.Valid(data) {
		return nil, ErrInvalidJSON
	}
	return FromResult(gjson.Parse(data)), nil
}

// ParseBytes 解析 JSON 字节
func ParseBytes(data []byte) (Value, error) {
	return Parse(string(data))
}

// FromResult 将 gjson 结果转换为 Value
// 重复键按 JSON.parse 语义处理：位置取首次出现，值取最后一次
func FromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null{}
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(r.Raw)
	case gjson.String:
		return String(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			arr := make(Array, 0)
			r.ForEach(func(_, v gjson.Result) bool {
				arr = append(arr, FromResult(v))
				return true
			})
			return arr
		}
		obj := NewObject()
		r.ForEach(func(k, v gjson.Result) bool {
			obj.Set(k.String(), FromResult(v))
			return true
		})
		return obj
	}
	return Null{}
}

// Marshal 序列化为紧凑 JSON，不转义 HTML 字符
func Marshal(v Value) []byte {
	var buf bytes.Buffer
	write(&buf, v)
	return buf.Bytes()
}

// MarshalString 序列化为字符串
func MarshalString(v Value) string {
	return string(Marshal(v))
}

// MarshalJSON 实现 json.Marshaler
func (o *Object) MarshalJSON() ([]byte, error) { return Marshal(o), nil }

// MarshalJSON 实现 json.Marshaler
func (a Array) MarshalJSON() ([]byte, error) { return Marshal(a), nil }

// MarshalJSON 实现 json.Marshaler
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON 实现 json.Marshaler
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	return []byte(n), nil
}

func write(buf *bytes.Buffer, v Value) {
	switch t := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if t == "" {
			buf.WriteByte('0')
			return
		}
		buf.WriteString(string(t))
	case String:
		writeString(buf, string(t))
	case Array:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			write(buf, item)
		}
		buf.WriteByte(']')
	case *Object:
		if t == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			write(buf, t.vals[k])
		}
		buf.WriteByte('}')
	}
}

const hexDigits = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			var tmp [utf8.UTFMax]byte
			n := utf8.EncodeRune(tmp[:], r)
			buf.Write(tmp[:n])
		}
	}
	buf.WriteByte('"')
}
