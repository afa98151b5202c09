package extractor

import (
	"tddebugger/internal/summarizer"
	"tddebugger/pkg/errx"
	"tddebugger/pkg/jsonv"

	"github.com/tidwall/gjson"
)

// DefaultCountKey 路径提取器默认计数字段
const DefaultCountKey = "item_count"

// PathSpec 声明式提取器定义，Match 与 Items 为 gjson 路径
type PathSpec struct {
	Name     string `json:"name"`
	Match    string `json:"match"`
	Items    string `json:"items,omitempty"`
	CountKey string `json:"countKey,omitempty"`
}

// pathExtractor 由 PathSpec 构造的提取器
type pathExtractor struct {
	spec PathSpec
}

// NewPathExtractor 根据声明创建提取器
func NewPathExtractor(spec PathSpec) (Extractor, error) {
	if spec.Name == "" {
		return nil, errx.New(errx.CodeInvalidRule, "提取器名称不能为空")
	}
	if spec.Match == "" {
		return nil, errx.Newf(errx.CodeInvalidRule, "提取器 %s 缺少 match 路径", spec.Name)
	}
	if spec.Items == "" {
		spec.Items = spec.Match
	}
	if spec.CountKey == "" {
		spec.CountKey = DefaultCountKey
	}
	return &pathExtractor{spec: spec}, nil
}

func (p *pathExtractor) Name() string { return p.spec.Name }

func (p *pathExtractor) Match(ctx *Context) bool {
	if _, ok := ctx.BodyObject(); !ok {
		return false
	}
	r := gjson.Get(jsonv.MarshalString(ctx.Body), p.spec.Match)
	return r.Exists() && r.Type != gjson.Null
}

func (p *pathExtractor) Summarize(ctx *Context) (jsonv.Value, error) {
	cfg := ctx.Config(p.spec.Name)
	r := gjson.Get(jsonv.MarshalString(ctx.Body), p.spec.Items)

	items := jsonv.Array{}
	if v := jsonv.FromResult(r); r.Exists() {
		if arr, ok := jsonv.AsArray(v); ok {
			items = arr
		} else {
			items = jsonv.Array{v}
		}
	}

	n := clampSamples(cfg.Samples(), len(items))
	sample := make(jsonv.Array, 0, n)
	for _, item := range items[:n] {
		if cfg.Structural() {
			sample = append(sample, summarizer.BuildObject(item, cfg.Projection(), cfg.Caps()))
		} else {
			sample = append(sample, summarizer.Summarize(item, cfg.Caps()))
		}
	}

	out := jsonv.NewObject()
	out.Set(p.spec.CountKey, jsonv.Int(len(items)))
	out.Set("sample", sample)
	return out, nil
}

// ParsePathSpecs 解析 customExtractors 文档（PathSpec 数组）
// 缺少必填字段的条目被跳过，并在返回的错误列表中说明
func ParsePathSpecs(doc string) ([]Extractor, []error) {
	if doc == "" {
		return nil, nil
	}
	if !gjson.Valid(doc) {
		return nil, []error{errx.New(errx.CodeInvalidJSON, "customExtractors 不是合法 JSON")}
	}
	root := gjson.Parse(doc)
	if !root.IsArray() {
		return nil, []error{errx.New(errx.CodeInvalidJSON, "customExtractors 必须是数组")}
	}

	var (
		out  []Extractor
		errs []error
	)
	root.ForEach(func(_, v gjson.Result) bool {
		e, err := NewPathExtractor(PathSpec{
			Name:     v.Get("name").String(),
			Match:    v.Get("match").String(),
			Items:    v.Get("items").String(),
			CountKey: v.Get("countKey").String(),
		})
		if err != nil {
			errs = append(errs, err)
			return true
		}
		out = append(out, e)
		return true
	})
	return out, errs
}
