package extractor

import (
	"tddebugger/internal/summarizer"
	"tddebugger/pkg/jsonv"
)

// 内置提取器名称
const (
	NameTDEvents  = "td-events"
	NameTDRecords = "td-records"
	NameTDRecord  = "td-record"
	NameGeneric   = "generic"
)

type funcExtractor struct {
	name      string
	match     func(ctx *Context) bool
	summarize func(ctx *Context) (jsonv.Value, error)
}

func (f *funcExtractor) Name() string                                { return f.name }
func (f *funcExtractor) Match(ctx *Context) bool                     { return f.match(ctx) }
func (f *funcExtractor) Summarize(ctx *Context) (jsonv.Value, error) { return f.summarize(ctx) }

// arrayField 读取载荷对象中的数组字段
func arrayField(ctx *Context, key string) (jsonv.Array, bool) {
	obj, ok := ctx.BodyObject()
	if !ok {
		return nil, false
	}
	v, _ := obj.Get(key)
	return jsonv.AsArray(v)
}

// TDEvents 匹配 {"events": [...]}
// 配置了 keys 或 includeAll 时按字段投影采样，否则递归截断；非对象事件视为空对象
func TDEvents() Extractor {
	return &funcExtractor{
		name: NameTDEvents,
		match: func(ctx *Context) bool {
			_, ok := arrayField(ctx, "events")
			return ok
		},
		summarize: func(ctx *Context) (jsonv.Value, error) {
			cfg := ctx.Config(NameTDEvents)
			events, _ := arrayField(ctx, "events")
			caps := cfg.Caps()
			n := clampSamples(cfg.Samples(), len(events))
			sample := make(jsonv.Array, 0, n)
			for _, ev := range events[:n] {
				if _, isObj := jsonv.AsObject(ev); !isObj {
					sample = append(sample, jsonv.NewObject())
					continue
				}
				if cfg.Structural() {
					sample = append(sample, summarizer.BuildObject(ev, cfg.Projection(), caps))
				} else {
					sample = append(sample, summarizer.Summarize(ev, caps))
				}
			}
			out := jsonv.NewObject()
			out.Set("event_count", jsonv.Int(len(events)))
			out.Set("sample", sample)
			return out, nil
		},
	}
}

// TDRecords 匹配 {"records": [...]}
func TDRecords() Extractor {
	return &funcExtractor{
		name: NameTDRecords,
		match: func(ctx *Context) bool {
			_, ok := arrayField(ctx, "records")
			return ok
		},
		summarize: func(ctx *Context) (jsonv.Value, error) {
			cfg := ctx.Config(NameTDRecords)
			records, _ := arrayField(ctx, "records")
			n := clampSamples(cfg.Samples(), len(records))
			sample := make(jsonv.Array, 0, n)
			for _, rec := range records[:n] {
				sample = append(sample, sampleItem(rec, cfg))
			}
			out := jsonv.NewObject()
			out.Set("record_count", jsonv.Int(len(records)))
			out.Set("sample", sample)
			return out, nil
		},
	}
}

// TDRecord 匹配 {"record": {...}}
func TDRecord() Extractor {
	return &funcExtractor{
		name: NameTDRecord,
		match: func(ctx *Context) bool {
			obj, ok := ctx.BodyObject()
			if !ok {
				return false
			}
			switch v, _ := obj.Get("record"); v.(type) {
			case *jsonv.Object, jsonv.Array:
				return true
			}
			return false
		},
		summarize: func(ctx *Context) (jsonv.Value, error) {
			cfg := ctx.Config(NameTDRecord)
			obj, _ := ctx.BodyObject()
			rec, _ := obj.Get("record")
			out := jsonv.NewObject()
			out.Set("record_count", jsonv.Int(1))
			out.Set("sample", jsonv.Array{sampleItem(rec, cfg)})
			return out, nil
		},
	}
}

// Generic 兜底提取器，对整个载荷做递归截断
func Generic() Extractor {
	return &funcExtractor{
		name:  NameGeneric,
		match: func(*Context) bool { return true },
		summarize: func(ctx *Context) (jsonv.Value, error) {
			return summarizer.Summarize(ctx.Body, ctx.Config(NameGeneric).Caps()), nil
		},
	}
}

// sampleItem 配置了投影时按字段投影，否则递归截断
func sampleItem(v jsonv.Value, cfg Config) jsonv.Value {
	if cfg.Structural() {
		return summarizer.BuildObject(v, cfg.Projection(), cfg.Caps())
	}
	return summarizer.Summarize(v, cfg.Caps())
}

func clampSamples(want, total int) int {
	if want < 0 {
		return 0
	}
	return min(want, total)
}
