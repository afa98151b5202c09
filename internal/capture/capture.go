// Package capture 处理捕获源的回调，生成条目并写入会话
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tddebugger/internal/logger"
	"tddebugger/internal/parser"
	"tddebugger/internal/pool"
	"tddebugger/internal/session"
	"tddebugger/internal/urlmeta"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"
)

// DefaultHost 默认 TD 主机
const DefaultHost = "in.treasuredata.com"

// Exchange 捕获源交付的一次已完成交换
type Exchange struct {
	URL             string
	Method          string
	Status          int
	RequestHeaders  domain.Headers
	ResponseHeaders domain.Headers
	// RequestBody 请求体文本，空串表示没有请求体
	RequestBody string
}

// BodyFunc 获取响应体，仅在没有请求体时调用
type BodyFunc func(ctx context.Context) (string, error)

// Sink 条目完成回调，可能在任意 worker 协程中调用
type Sink func(domain.Entry)

// Options 捕获过滤选项
type Options struct {
	Hosts         []string
	ShowNonTD     bool
	ShowPreflight bool
	VendorPrefix  string
}

// DefaultOptions 返回默认选项
func DefaultOptions() Options {
	return Options{Hosts: []string{DefaultHost}, VendorPrefix: urlmeta.DefaultVendorPrefix}
}

// OptionsLoader 捕获选项来源
type OptionsLoader interface {
	LoadCaptureOptions(ctx context.Context) (Options, error)
}

// Pipeline 捕获处理流水线
type Pipeline struct {
	sess   *session.Session
	parser *parser.Parser
	pool   *pool.Pool
	sink   Sink
	log    logger.Logger
	now    func() time.Time

	mu   sync.RWMutex
	opts Options
}

// Config 流水线依赖
type Config struct {
	Session *session.Session
	Parser  *parser.Parser
	// Pool 为 nil 时每个交换使用独立协程
	Pool    *pool.Pool
	Sink    Sink
	Logger  logger.Logger
	Options Options
	// Now 时间来源，测试时可替换
	Now func() time.Time
}

// New 创建流水线
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		sess:   cfg.Session,
		parser: cfg.Parser,
		pool:   cfg.Pool,
		sink:   cfg.Sink,
		log:    cfg.Logger,
		now:    cfg.Now,
	}
	if p.log == nil {
		p.log = logger.NewNop()
	}
	if p.sess == nil {
		p.sess = session.New("")
	}
	if p.parser == nil {
		p.parser = parser.New(nil, nil, p.log)
	}
	if p.pool == nil {
		p.pool = pool.New(0, 0, p.log)
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.SetOptions(cfg.Options)
	return p
}

// Session 返回会话
func (p *Pipeline) Session() *session.Session {
	return p.sess
}

// SetOptions 替换捕获选项，主机列表为空时使用默认主机
func (p *Pipeline) SetOptions(o Options) {
	if len(o.Hosts) == 0 {
		o.Hosts = []string{DefaultHost}
	}
	if o.VendorPrefix == "" {
		o.VendorPrefix = urlmeta.DefaultVendorPrefix
	}
	p.mu.Lock()
	p.opts = o
	p.mu.Unlock()
}

// Options 返回当前捕获选项
func (p *Pipeline) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

// Reload 从配置来源重新加载选项，失败时保留原选项
func (p *Pipeline) Reload(ctx context.Context, src OptionsLoader) error {
	o, err := src.LoadCaptureOptions(ctx)
	if err != nil {
		p.log.Err(err, "加载捕获选项失败，保留当前选项")
		return err
	}
	p.SetOptions(o)
	return nil
}

// Accept 判断交换是否需要记录
func (p *Pipeline) Accept(ex Exchange) bool {
	o := p.Options()
	if !urlmeta.IsTDRequest(ex.URL, o.Hosts) && !o.ShowNonTD {
		return false
	}
	if urlmeta.IsPreflight(ex.Method, ex.RequestHeaders) && !o.ShowPreflight {
		return false
	}
	return true
}

// OnRequestFinished 捕获源回调
// 序号在返回前同步分配，解析与追加在后台任务中完成；被过滤时返回 false
func (p *Pipeline) OnRequestFinished(ctx context.Context, ex Exchange, body BodyFunc) (int64, bool) {
	if !p.Accept(ex) {
		return 0, false
	}

	idx := p.sess.Next()
	base := domain.Entry{
		Index:           idx,
		Timestamp:       p.now().UnixMilli(),
		Method:          ex.Method,
		URL:             ex.URL,
		Status:          ex.Status,
		ContentType:     ResolveContentType(ex.RequestHeaders, ex.ResponseHeaders),
		IsPreflight:     urlmeta.IsPreflight(ex.Method, ex.RequestHeaders),
		RequestHeaders:  ex.RequestHeaders.Clone(),
		ResponseHeaders: ex.ResponseHeaders.Clone(),
	}
	meta := urlmeta.Extract(ex.URL, ex.RequestHeaders, p.Options().VendorPrefix)

	p.pool.Submit(func() {
		p.finalize(ctx, base, meta, ex.RequestBody, body)
	})
	return idx, true
}

// Wait 等待所有后台任务完成
func (p *Pipeline) Wait() {
	p.pool.Wait()
}

func (p *Pipeline) finalize(ctx context.Context, e domain.Entry, meta urlmeta.Metadata, raw string, body BodyFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%v", rec)
			p.log.Err(err, "条目处理失败", "url", e.URL)
			e.Parsed = parser.ProcessingFailure(err)
			p.emit(e)
		}
	}()

	if raw == "" && body != nil {
		text, err := body(ctx)
		if err != nil {
			p.log.Debug("获取响应体失败", "url", e.URL, "error", err.Error())
		}
		raw = text
	}

	parsed, err := p.parse(ctx, e.ContentType, raw)
	if err != nil {
		p.log.Err(err, "载荷解析失败", "url", e.URL, "contentType", e.ContentType)
		parsed = parser.ErrorMarker(err, raw)
	}

	e.Parsed = urlmeta.Merge(urlmeta.Summary(meta), parsed)
	p.emit(e)
}

func (p *Pipeline) parse(ctx context.Context, contentType, raw string) (v jsonv.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, errors.New(fmt.Sprint(rec))
		}
	}()
	return p.parser.Parse(ctx, contentType, raw), nil
}

func (p *Pipeline) emit(e domain.Entry) {
	p.sess.Append(e)
	if p.sink == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("条目回调异常", "idx", e.Index, "panic", fmt.Sprint(rec))
		}
	}()
	p.sink(e)
}

// ResolveContentType 优先取请求的内容类型，其次为响应的内容类型
func ResolveContentType(req, resp domain.Headers) string {
	if ct, ok := req.Get("Content-Type"); ok && ct != "" {
		return ct
	}
	if ct, ok := resp.Get("Content-Type"); ok {
		return ct
	}
	return ""
}
