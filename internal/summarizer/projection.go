package summarizer

import "tddebugger/pkg/jsonv"

// Projection 字段投影配置
type Projection struct {
	// Keys 始终包含的字段，按声明顺序输出
	Keys []string
	// Exclude 在 IncludeAll 时排除的字段
	Exclude []string
	// IncludeAll 是否追加其余字段
	IncludeAll bool
}

// BuildObject 按投影规则构造对象，非对象输入视为空对象
func BuildObject(raw jsonv.Value, p Projection, caps Caps) *jsonv.Object {
	caps = caps.normalize()
	out := jsonv.NewObject()
	obj, ok := jsonv.AsObject(raw)
	if !ok {
		return out
	}

	for _, k := range p.Keys {
		if out.Has(k) {
			continue
		}
		if v, ok := obj.Get(k); ok {
			out.Set(k, summarize(v, caps))
		}
	}

	if p.IncludeAll {
		excluded := make(map[string]struct{}, len(p.Exclude))
		for _, k := range p.Exclude {
			excluded[k] = struct{}{}
		}
		obj.Range(func(k string, v jsonv.Value) bool {
			if _, skip := excluded[k]; skip || out.Has(k) {
				return true
			}
			out.Set(k, summarize(v, caps))
			return true
		})
	}
	return out
}
