package compare_test

import (
	"math"
	"strings"
	"testing"

	"tddebugger/internal/compare"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"
)

func entry(method string, status int, url, parsed string) domain.Entry {
	v, _ := jsonv.Parse(parsed)
	return domain.Entry{Method: method, Status: status, URL: url, Parsed: v}
}

func TestDiff(t *testing.T) {
	base := entry("POST", 200, "https://in.treasuredata.com/web/pv", `{"a":1}`)

	tests := []struct {
		name string
		b    domain.Entry
		want []string
	}{
		{"完全一致", base, nil},
		{"方法不同", entry("GET", 200, base.URL, `{"a":1}`), []string{compare.MethodDiffers}},
		{"状态码不同", entry("POST", 0, base.URL, `{"a":1}`), []string{compare.StatusDiffers}},
		{"URL不同", entry("POST", 200, base.URL+"?x=1", `{"a":1}`), []string{compare.URLDiffers}},
		{"载荷键顺序不同", entry("POST", 200, base.URL, `{"b":2,"a":1}`), []string{compare.PayloadDiffers}},
		{"全部不同", entry("GET", 500, "x", `null`), []string{
			compare.MethodDiffers, compare.StatusDiffers, compare.URLDiffers, compare.PayloadDiffers,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compare.Diff(base, tt.b)
			if strings.Join(res.Differences, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Differences = %v, want %v", res.Differences, tt.want)
			}
			if res.Identical() != (len(tt.want) == 0) {
				t.Errorf("Identical = %v", res.Identical())
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "abd", 2.0 / 3.0},
		{"abc", "", 0},
		{"日本語", "日本", 2.0 / 3.0},
	}
	for _, tt := range tests {
		if got := compare.Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q,%q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDiff_SimilarityOfPayloads(t *testing.T) {
	a := entry("POST", 200, "u", `{"a":1}`)
	b := entry("POST", 200, "u", `{"a":2}`)
	res := compare.Diff(a, b)
	if res.Similarity <= 0.8 || res.Similarity >= 1 {
		t.Errorf("Similarity = %v", res.Similarity)
	}
	if compare.Diff(a, a).Similarity != 1 {
		t.Error("相同条目相似度应为 1")
	}
}
