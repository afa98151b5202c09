package extractor

import (
	"math"

	"tddebugger/internal/summarizer"
	"tddebugger/pkg/errx"

	"github.com/tidwall/gjson"
)

// DefaultSampleCount 默认采样数量
const DefaultSampleCount = 3

// Config 单个提取器的字段配置，指针字段为 nil 表示未配置
type Config struct {
	// Keys 始终包含的字段；nil 表示未配置
	Keys          []string
	Exclude       []string
	IncludeAll    bool
	SampleCount   *int
	MaxString     *int
	MaxArrayItems *int
	MaxObjectKeys *int
}

// Caps 解析截断上限，未配置项取默认值
func (c Config) Caps() summarizer.Caps {
	caps := summarizer.DefaultCaps()
	if c.MaxString != nil {
		caps.MaxString = *c.MaxString
	}
	if c.MaxArrayItems != nil {
		caps.MaxArrayItems = *c.MaxArrayItems
	}
	if c.MaxObjectKeys != nil {
		caps.MaxObjectKeys = *c.MaxObjectKeys
	}
	return caps
}

// Samples 返回采样数量
func (c Config) Samples() int {
	if c.SampleCount != nil {
		return *c.SampleCount
	}
	return DefaultSampleCount
}

// Projection 返回字段投影配置
func (c Config) Projection() summarizer.Projection {
	return summarizer.Projection{Keys: c.Keys, Exclude: c.Exclude, IncludeAll: c.IncludeAll}
}

// Structural 是否配置了结构化投影（keys 或 includeAll）
func (c Config) Structural() bool {
	return c.Keys != nil || c.IncludeAll
}

// ParseConfigs 解析 customFields 文档，键为提取器名称
// 非对象的条目被忽略；数值项必须为非负数字，否则视为未配置
func ParseConfigs(doc string) (map[string]Config, error) {
	out := make(map[string]Config)
	if doc == "" {
		return out, nil
	}
	if !gjson.Valid(doc) {
		return out, errx.New(errx.CodeInvalidJSON, "customFields 不是合法 JSON")
	}
	root := gjson.Parse(doc)
	if !root.IsObject() {
		return out, errx.New(errx.CodeInvalidJSON, "customFields 必须是对象")
	}
	root.ForEach(func(name, v gjson.Result) bool {
		if v.IsObject() {
			out[name.String()] = parseConfig(v)
		}
		return true
	})
	return out, nil
}

func parseConfig(v gjson.Result) Config {
	var cfg Config
	if keys := v.Get("keys"); keys.Exists() && keys.Type != gjson.Null && keys.Type != gjson.False {
		cfg.Keys = stringList(keys)
	}
	cfg.Exclude = stringList(v.Get("exclude"))
	cfg.IncludeAll = truthy(v.Get("includeAll"))
	cfg.SampleCount = optInt(v.Get("sampleCount"))
	cfg.MaxString = optInt(v.Get("maxString"))
	cfg.MaxArrayItems = optInt(v.Get("maxArrayItems"))
	cfg.MaxObjectKeys = optInt(v.Get("maxObjectKeys"))
	return cfg
}

func stringList(v gjson.Result) []string {
	out := make([]string, 0)
	if !v.IsArray() {
		return out
	}
	for _, item := range v.Array() {
		if item.Type == gjson.String {
			out = append(out, item.Str)
		}
	}
	return out
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.JSON:
		return true
	}
	return false
}

func optInt(v gjson.Result) *int {
	if v.Type != gjson.Number || v.Num < 0 || math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
		return nil
	}
	n := int(math.Min(v.Num, math.MaxInt32))
	return &n
}
