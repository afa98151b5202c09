// Package jsonv 定义摘要与脱敏流程使用的 JSON 值类型
// 对象保留键的插入顺序，保证摘要输出稳定
package jsonv

import (
	"strconv"
)

// Value JSON 值，取值范围为 Null、Bool、Number、String、Array、*Object
// nil 接口值等价于 Null
type Value interface {
	isValue()
}

// Null JSON null
type Null struct{}

// Bool JSON 布尔值
type Bool bool

// Number JSON 数字，保存原始字面量
type Number string

// String JSON 字符串
type String string

// Array JSON 数组
type Array []Value

func (Null) isValue()    {}
func (Bool) isValue()    {}
func (Number) isValue()  {}
func (String) isValue()  {}
func (Array) isValue()   {}
func (*Object) isValue() {}

// Int 构造整数 Number
func Int(n int) Number {
	return Number(strconv.Itoa(n))
}

// Int 返回整数值，小数部分截断
func (n Number) Int() (int, bool) {
	if i, err := strconv.Atoi(string(n)); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// IsNull 判断是否为 null（含 nil 接口）
func IsNull(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	}
	return false
}

// AsObject 断言为对象
func AsObject(v Value) (*Object, bool) {
	o, ok := v.(*Object)
	return o, ok && o != nil
}

// AsArray 断言为数组
func AsArray(v Value) (Array, bool) {
	a, ok := v.(Array)
	return a, ok
}

// Object 有序 JSON 对象
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject 创建空对象
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Set 设置键值，已存在的键保持原位置
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get 获取键值
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has 判断键是否存在
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Len 返回键数量
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys 返回键的副本，按插入顺序
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Range 按插入顺序遍历，fn 返回 false 时停止
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// GetString 获取字符串字段
func (o *Object) GetString(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}
