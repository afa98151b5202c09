// Package compare 比较两个已捕获条目
package compare

import (
	"unicode/utf8"

	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"

	"github.com/agnivade/levenshtein"
)

// 差异说明
const (
	MethodDiffers  = "Method differs"
	StatusDiffers  = "Status code differs"
	URLDiffers     = "URL differs"
	PayloadDiffers = "Payload differs"
)

// MaxSimilarityRunes 计算相似度时每侧参与比较的最大字符数
const MaxSimilarityRunes = 4096

// Result 比较结果
type Result struct {
	Differences []string `json:"differences"`
	// Similarity 摘要 JSON 文本的相似度，取值 [0, 1]
	Similarity float64 `json:"similarity"`
}

// Identical 是否完全一致
func (r Result) Identical() bool {
	return len(r.Differences) == 0
}

// Diff 比较方法、状态码、URL 与摘要
func Diff(a, b domain.Entry) Result {
	res := Result{Differences: make([]string, 0)}
	if a.Method != b.Method {
		res.Differences = append(res.Differences, MethodDiffers)
	}
	if a.Status != b.Status {
		res.Differences = append(res.Differences, StatusDiffers)
	}
	if a.URL != b.URL {
		res.Differences = append(res.Differences, URLDiffers)
	}

	pa, pb := jsonv.MarshalString(a.Parsed), jsonv.MarshalString(b.Parsed)
	if pa != pb {
		res.Differences = append(res.Differences, PayloadDiffers)
		res.Similarity = Similarity(pa, pb)
	} else {
		res.Similarity = 1
	}
	return res
}

// Similarity 基于编辑距离的相似度，1 表示相同
func Similarity(a, b string) float64 {
	a, b = head(a, MaxSimilarityRunes), head(b, MaxSimilarityRunes)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func head(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
