package jsonv_test

import (
	"testing"

	"tddebugger/pkg/jsonv"
)

func TestParse_KeepsKeyOrder(t *testing.T) {
	v, err := jsonv.Parse(`{"z":1,"a":2,"m":{"y":true,"b":null}}`)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	obj, ok := jsonv.AsObject(v)
	if !ok {
		t.Fatalf("期望对象，实际 %T", v)
	}
	keys := obj.Keys()
	want := []string{"z", "a", "m"}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("键顺序错误: got %v, want %v", keys, want)
		}
	}
	if got := jsonv.MarshalString(v); got != `{"z":1,"a":2,"m":{"y":true,"b":null}}` {
		t.Errorf("序列化结果不一致: %s", got)
	}
}

func TestParse_DuplicateKeys(t *testing.T) {
	v, err := jsonv.Parse(`{"a":1,"b":2,"a":3}`)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if got := jsonv.MarshalString(v); got != `{"a":3,"b":2}` {
		t.Errorf("got %s", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{"", "{", "not json", `{"a":}`, "[1,2"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := jsonv.Parse(in); err == nil {
				t.Errorf("期望解析失败: %q", in)
			}
		})
	}
}

func TestParse_Primitives(t *testing.T) {
	tests := []struct {
		in   string
		want jsonv.Value
	}{
		{"123", jsonv.Number("123")},
		{"-1.5e3", jsonv.Number("-1.5e3")},
		{"true", jsonv.Bool(true)},
		{"null", jsonv.Null{}},
		{`"hi"`, jsonv.String("hi")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := jsonv.Parse(tt.in)
			if err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMarshal_Escaping(t *testing.T) {
	obj := jsonv.NewObject()
	obj.Set("html", jsonv.String("<a href=\"x\">&</a>"))
	obj.Set("ctrl", jsonv.String("line\nnext\ttab\x01"))
	obj.Set("uni", jsonv.String("héllo …"))

	got := jsonv.MarshalString(obj)
	want := `{"html":"<a href=\"x\">&</a>","ctrl":"line\nnext\ttab\u0001","uni":"héllo …"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMarshal_NilValues(t *testing.T) {
	arr := jsonv.Array{nil, jsonv.Null{}, jsonv.Int(7)}
	if got := jsonv.MarshalString(arr); got != `[null,null,7]` {
		t.Errorf("got %s", got)
	}
	if got := jsonv.MarshalString(nil); got != "null" {
		t.Errorf("got %s", got)
	}
}

func TestNumber_Int(t *testing.T) {
	tests := []struct {
		in     jsonv.Number
		want   int
		wantOK bool
	}{
		{"3", 3, true},
		{"2.9", 2, true},
		{"1e2", 100, true},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, ok := tt.in.Int()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("got (%d,%v), want (%d,%v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestObject_SetKeepsPosition(t *testing.T) {
	obj := jsonv.NewObject()
	obj.Set("a", jsonv.Int(1))
	obj.Set("b", jsonv.Int(2))
	obj.Set("a", jsonv.Int(3))

	if got := jsonv.MarshalString(obj); got != `{"a":3,"b":2}` {
		t.Errorf("got %s", got)
	}
	if obj.Len() != 2 {
		t.Errorf("Len() = %d, want 2", obj.Len())
	}
}
