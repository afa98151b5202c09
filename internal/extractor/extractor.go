// Package extractor 按载荷形状选择提取器并生成摘要
package extractor

import (
	"fmt"
	"sync"

	"tddebugger/internal/logger"
	"tddebugger/pkg/jsonv"
)

// Context 提取上下文
type Context struct {
	Body         jsonv.Value
	CustomFields map[string]Config
}

// Config 返回指定提取器的配置，未配置时为零值
func (c *Context) Config(name string) Config {
	if c == nil || c.CustomFields == nil {
		return Config{}
	}
	return c.CustomFields[name]
}

// BodyObject 返回对象形式的载荷
func (c *Context) BodyObject() (*jsonv.Object, bool) {
	if c == nil {
		return nil, false
	}
	return jsonv.AsObject(c.Body)
}

// Extractor 针对某种载荷形状的匹配与摘要
type Extractor interface {
	Name() string
	Match(ctx *Context) bool
	Summarize(ctx *Context) (jsonv.Value, error)
}

// Registry 有序提取器列表，首个匹配者负责摘要，generic 始终位于末尾
type Registry struct {
	mu         sync.RWMutex
	extractors []Extractor
	log        logger.Logger
}

// NewRegistry 创建注册表，custom 排在内置提取器之前
func NewRegistry(l logger.Logger, custom ...Extractor) *Registry {
	if l == nil {
		l = logger.NewNop()
	}
	r := &Registry{log: l}
	r.Replace(custom)
	return r
}

// Replace 替换自定义提取器列表
func (r *Registry) Replace(custom []Extractor) {
	list := make([]Extractor, 0, len(custom)+4)
	for _, e := range custom {
		if e != nil {
			list = append(list, e)
		}
	}
	list = append(list, TDEvents(), TDRecords(), TDRecord(), Generic())

	r.mu.Lock()
	r.extractors = list
	r.mu.Unlock()
}

// Extractors 返回当前提取器列表的快照
func (r *Registry) Extractors() []Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extractor, len(r.extractors))
	copy(out, r.extractors)
	return out
}

// Names 返回提取器名称
func (r *Registry) Names() []string {
	list := r.Extractors()
	names := make([]string, len(list))
	for i, e := range list {
		names[i] = e.Name()
	}
	return names
}

// SelectAndSummarize 选择首个匹配的提取器生成摘要，返回摘要与提取器名称
// 摘要失败时返回原始载荷，不会 panic
func (r *Registry) SelectAndSummarize(body jsonv.Value, customFields map[string]Config) (jsonv.Value, string) {
	ctx := &Context{Body: body, CustomFields: customFields}
	list := r.Extractors()

	chosen := list[len(list)-1]
	for _, e := range list[:len(list)-1] {
		if r.safeMatch(e, ctx) {
			chosen = e
			break
		}
	}

	out, err := r.safeSummarize(chosen, ctx)
	if err != nil {
		r.log.Warn("提取器摘要失败，返回原始载荷", "extractor", chosen.Name(), "error", err.Error())
		return body, chosen.Name()
	}
	return out, chosen.Name()
}

func (r *Registry) safeMatch(e Extractor, ctx *Context) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Debug("提取器匹配异常", "extractor", e.Name(), "panic", fmt.Sprint(rec))
			ok = false
		}
	}()
	return e.Match(ctx)
}

func (r *Registry) safeSummarize(e Extractor, ctx *Context) (out jsonv.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("extractor %s panic: %v", e.Name(), rec)
		}
	}()
	return e.Summarize(ctx)
}
