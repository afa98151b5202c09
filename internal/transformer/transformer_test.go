package transformer_test

import (
	"encoding/base64"
	"testing"

	"tddebugger/internal/transformer"
)

func TestIsJSONLike(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		want bool
	}{
		{"标准 JSON", "application/json", true},
		{"带字符集", "application/json; charset=utf-8", true},
		{"大写", "Application/JSON", true},
		{"text/json", "text/json", true},
		{"vnd+json", "application/vnd.api+json", true},
		{"+json 带参数", "application/problem+json;q=1", true},
		{"+jsonx 不算", "application/foo+jsonx", false},
		{"纯文本", "text/plain", false},
		{"空", "", false},
		{"表单", "application/x-www-form-urlencoded", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transformer.IsJSONLike(tt.ct); got != tt.want {
				t.Errorf("IsJSONLike(%q) = %v, want %v", tt.ct, got, tt.want)
			}
		})
	}
}

func TestIsFormURLEncoded(t *testing.T) {
	if !transformer.IsFormURLEncoded("application/x-www-form-urlencoded; charset=UTF-8") {
		t.Error("应识别表单编码")
	}
	if transformer.IsFormURLEncoded("application/json") {
		t.Error("JSON 不是表单编码")
	}
}

func TestIsBinaryContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"image/png", true},
		{"VIDEO/mp4", true},
		{"application/octet-stream", true},
		{"font/woff2", true},
		{"application/json", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.ct, func(t *testing.T) {
			if got := transformer.IsBinaryContentType(tt.ct); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseForm(t *testing.T) {
	got := transformer.ParseForm("b=2&a=hello+world&c=%7B%22x%22%3A1%7D&&flag&bad=%zz")
	want := []transformer.FormPair{
		{"b", "2"},
		{"a", "hello world"},
		{"c", `{"x":1}`},
		{"flag", ""},
		{"bad", "%zz"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d pairs, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseForm_Empty(t *testing.T) {
	if got := transformer.ParseForm(""); len(got) != 0 {
		t.Errorf("空输入应返回空列表: %v", got)
	}
}

func TestDecodeBody(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte(`{"a":1}`))
	got, err := transformer.DecodeBody(enc, true)
	if err != nil || got != `{"a":1}` {
		t.Errorf("got %q, %v", got, err)
	}

	got, err = transformer.DecodeBody("plain", false)
	if err != nil || got != "plain" {
		t.Errorf("got %q, %v", got, err)
	}

	if _, err := transformer.DecodeBody("!!!", true); err == nil {
		t.Error("非法 base64 应返回错误")
	}
}
