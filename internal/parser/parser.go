// Package parser 按内容类型选择解析策略，并交给提取器注册表生成摘要
package parser

import (
	"context"
	"fmt"
	"strings"

	"tddebugger/internal/extractor"
	"tddebugger/internal/logger"
	"tddebugger/internal/summarizer"
	"tddebugger/internal/transformer"
	"tddebugger/pkg/jsonv"
)

const (
	// OpaquePreviewChars 无法解析时保留的字符数
	OpaquePreviewChars = 500
	// RawPreviewChars 错误标记中的原文预览长度
	RawPreviewChars = 200

	ErrorKey      = "__error__"
	RawPreviewKey = "__raw_preview__"
)

// FieldConfigLoader 提取器字段配置来源
type FieldConfigLoader interface {
	LoadCustomFieldConfig(ctx context.Context) (map[string]extractor.Config, error)
}

// Strategy 单个解析策略，返回 false 表示交给下一个策略
type Strategy struct {
	Name  string
	Parse func(ctx context.Context, contentType, raw string) (jsonv.Value, bool)
}

// Parser 载荷解析器
type Parser struct {
	registry   *extractor.Registry
	fields     FieldConfigLoader
	log        logger.Logger
	strategies []Strategy
}

// New 创建解析器，fields 为 nil 时使用空配置
func New(registry *extractor.Registry, fields FieldConfigLoader, l logger.Logger) *Parser {
	if l == nil {
		l = logger.NewNop()
	}
	if registry == nil {
		registry = extractor.NewRegistry(l)
	}
	p := &Parser{registry: registry, fields: fields, log: l}
	p.strategies = []Strategy{
		{Name: "json", Parse: p.parseJSON},
		{Name: "form", Parse: p.parseForm},
		{Name: "ndjson", Parse: p.parseNDJSON},
	}
	return p
}

// Registry 返回使用的提取器注册表
func (p *Parser) Registry() *extractor.Registry {
	return p.registry
}

// Parse 解析载荷，空文本返回 nil，所有策略失败时返回截断后的原文
func (p *Parser) Parse(ctx context.Context, contentType, raw string) jsonv.Value {
	if raw == "" {
		return nil
	}
	for _, s := range p.strategies {
		if v, ok := p.run(ctx, s, contentType, raw); ok {
			return v
		}
	}
	return summarizer.TruncateString(raw, OpaquePreviewChars)
}

func (p *Parser) run(ctx context.Context, s Strategy, contentType, raw string) (v jsonv.Value, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Warn("解析策略异常", "strategy", s.Name, "contentType", contentType, "panic", fmt.Sprint(rec))
			v, ok = nil, false
		}
	}()
	return s.Parse(ctx, contentType, raw)
}

func (p *Parser) parseJSON(ctx context.Context, contentType, raw string) (jsonv.Value, bool) {
	if !transformer.IsJSONLike(contentType) {
		return nil, false
	}
	body, err := jsonv.Parse(raw)
	if err != nil {
		return nil, false
	}
	return p.summarize(ctx, body), true
}

func (p *Parser) parseForm(ctx context.Context, contentType, raw string) (jsonv.Value, bool) {
	if !transformer.IsFormURLEncoded(contentType) {
		return nil, false
	}
	obj := jsonv.NewObject()
	for _, pair := range transformer.ParseForm(raw) {
		if v, err := jsonv.Parse(pair.Value); err == nil {
			obj.Set(pair.Key, v)
		} else {
			obj.Set(pair.Key, jsonv.String(pair.Value))
		}
	}
	return p.summarize(ctx, obj), true
}

func (p *Parser) parseNDJSON(ctx context.Context, _, raw string) (jsonv.Value, bool) {
	if !strings.Contains(raw, "\n") {
		return nil, false
	}
	first := ""
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			first = line
			break
		}
	}
	body, err := jsonv.Parse(first)
	if err != nil {
		return nil, false
	}
	return p.summarize(ctx, body), true
}

func (p *Parser) summarize(ctx context.Context, body jsonv.Value) jsonv.Value {
	out, _ := p.registry.SelectAndSummarize(body, p.loadFields(ctx))
	return out
}

func (p *Parser) loadFields(ctx context.Context) map[string]extractor.Config {
	if p.fields == nil {
		return nil
	}
	cfgs, err := p.fields.LoadCustomFieldConfig(ctx)
	if err != nil {
		p.log.Err(err, "加载自定义字段配置失败，使用空配置")
		return nil
	}
	return cfgs
}

// ErrorMarker 构造解析失败标记
func ErrorMarker(err error, raw string) *jsonv.Object {
	out := jsonv.NewObject()
	out.Set(ErrorKey, jsonv.String("Parse failed: "+errMessage(err)))
	out.Set(RawPreviewKey, jsonv.String(prefix(raw, RawPreviewChars)))
	return out
}

// ProcessingFailure 构造整体处理失败标记
func ProcessingFailure(err error) *jsonv.Object {
	out := jsonv.NewObject()
	out.Set(ErrorKey, jsonv.String("Processing failed: "+errMessage(err)))
	return out
}

func errMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
