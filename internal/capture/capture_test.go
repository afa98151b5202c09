package capture_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tddebugger/internal/capture"
	"tddebugger/internal/extractor"
	"tddebugger/internal/parser"
	"tddebugger/internal/pool"
	"tddebugger/internal/session"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"
)

type collector struct {
	mu      sync.Mutex
	entries []domain.Entry
}

func (c *collector) sink(e domain.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func newPipeline(t *testing.T, opts capture.Options) (*capture.Pipeline, *collector) {
	t.Helper()
	c := &collector{}
	p := pool.New(2, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	t.Cleanup(func() {
		p.Close()
		cancel()
	})
	fixed := time.UnixMilli(1700000000000)
	pl := capture.New(capture.Config{
		Session: session.New("test"),
		Parser:  parser.New(extractor.NewRegistry(nil), nil, nil),
		Pool:    p,
		Sink:    c.sink,
		Options: opts,
		Now:     func() time.Time { return fixed },
	})
	return pl, c
}

func jsonHeaders() domain.Headers {
	return domain.Headers{{Name: "Content-Type", Value: "application/json"}}
}

func TestOnRequestFinished_TDEvents(t *testing.T) {
	pl, c := newPipeline(t, capture.DefaultOptions())
	ex := capture.Exchange{
		URL:            "https://eu01.records.in.treasuredata.com/mydb/mytable?x=1",
		Method:         "POST",
		Status:         200,
		RequestHeaders: jsonHeaders(),
		RequestBody:    `{"events":[{"a":1},{"a":2},{"a":3},{"a":4}]}`,
	}
	var bodyCalls int32
	idx, ok := pl.OnRequestFinished(context.Background(), ex, func(context.Context) (string, error) {
		atomic.AddInt32(&bodyCalls, 1)
		return "", nil
	})
	if !ok || idx != 1 {
		t.Fatalf("OnRequestFinished() = %d, %v", idx, ok)
	}
	pl.Wait()

	if atomic.LoadInt32(&bodyCalls) != 0 {
		t.Error("有请求体时不应获取响应体")
	}
	if c.len() != 1 {
		t.Fatalf("sink 收到 %d 个条目", c.len())
	}
	e := c.entries[0]
	want := `{"database":"mydb","table":"mytable","region":"eu01","edge":"records","query":{"x":"1"},"path":"/mydb/mytable","headers":{"content-type":"application/json"},"event_count":4,"sample":[{"a":1},{"a":2},{"a":3}]}`
	if got := jsonv.MarshalString(e.Parsed); got != want {
		t.Errorf("parsed = %s\nwant     %s", got, want)
	}
	if e.Timestamp != 1700000000000 || e.ContentType != "application/json" || e.IsPreflight {
		t.Errorf("条目字段错误: %+v", e)
	}
	if pl.Session().Len() != 1 {
		t.Error("条目未写入会话")
	}
}

func TestOnRequestFinished_ResponseBody(t *testing.T) {
	pl, c := newPipeline(t, capture.DefaultOptions())
	ex := capture.Exchange{
		URL:             "https://in.treasuredata.com/js/v3/event",
		Method:          "GET",
		Status:          200,
		ResponseHeaders: jsonHeaders(),
	}
	pl.OnRequestFinished(context.Background(), ex, func(context.Context) (string, error) {
		return `{"ok":true}`, nil
	})
	pl.Wait()

	if got := jsonv.MarshalString(c.entries[0].Parsed); got != `{"database":"js","table":"v3","path":"/js/v3/event","ok":true}` {
		t.Errorf("parsed = %s", got)
	}
}

func TestOnRequestFinished_BodyError(t *testing.T) {
	pl, c := newPipeline(t, capture.DefaultOptions())
	ex := capture.Exchange{URL: "https://in.treasuredata.com/", Method: "GET"}
	pl.OnRequestFinished(context.Background(), ex, func(context.Context) (string, error) {
		return "", errors.New("no resource with given identifier")
	})
	pl.Wait()

	if got := jsonv.MarshalString(c.entries[0].Parsed); got != `{"path":"/"}` {
		t.Errorf("响应体获取失败时只保留元数据: %s", got)
	}
}

func TestOnRequestFinished_ProcessingFailure(t *testing.T) {
	pl, c := newPipeline(t, capture.DefaultOptions())
	ex := capture.Exchange{URL: "https://in.treasuredata.com/db/t", Method: "GET", Status: 500}
	pl.OnRequestFinished(context.Background(), ex, func(context.Context) (string, error) {
		panic("devtools detached")
	})
	pl.Wait()

	if c.len() != 1 {
		t.Fatalf("处理失败时仍应产出条目, got %d", c.len())
	}
	if got := jsonv.MarshalString(c.entries[0].Parsed); got != `{"__error__":"Processing failed: devtools detached"}` {
		t.Errorf("parsed = %s", got)
	}
}

func TestOnRequestFinished_Gating(t *testing.T) {
	preflight := domain.Headers{{Name: "Access-Control-Request-Method", Value: "POST"}}
	tests := []struct {
		name string
		opts capture.Options
		ex   capture.Exchange
		want bool
	}{
		{"非 TD 默认丢弃", capture.Options{}, capture.Exchange{URL: "https://example.com/a", Method: "GET"}, false},
		{"非 TD 开启显示", capture.Options{ShowNonTD: true}, capture.Exchange{URL: "https://example.com/a", Method: "GET"}, true},
		{"预检默认丢弃", capture.Options{}, capture.Exchange{URL: "https://in.treasuredata.com/a", Method: "OPTIONS", RequestHeaders: preflight}, false},
		{"预检开启显示", capture.Options{ShowPreflight: true}, capture.Exchange{URL: "https://in.treasuredata.com/a", Method: "OPTIONS", RequestHeaders: preflight}, true},
		{"无 ACRM 的 OPTIONS 不算预检", capture.Options{}, capture.Exchange{URL: "https://in.treasuredata.com/a", Method: "OPTIONS"}, true},
		{"自定义主机", capture.Options{Hosts: []string{"api.example.com"}}, capture.Exchange{URL: "https://api.example.com/a", Method: "GET"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl, c := newPipeline(t, tt.opts)
			_, ok := pl.OnRequestFinished(context.Background(), tt.ex, nil)
			pl.Wait()
			if ok != tt.want || (c.len() == 1) != tt.want {
				t.Errorf("accepted=%v entries=%d, want %v", ok, c.len(), tt.want)
			}
		})
	}
}

func TestOnRequestFinished_IndexAssignedSynchronously(t *testing.T) {
	pl, c := newPipeline(t, capture.DefaultOptions())
	release := make(chan struct{})
	slow := func(context.Context) (string, error) {
		<-release
		return `{"slow":true}`, nil
	}
	fast := func(context.Context) (string, error) { return `{"fast":true}`, nil }

	ex := capture.Exchange{URL: "https://in.treasuredata.com/db/t", Method: "GET", ResponseHeaders: jsonHeaders()}
	first, _ := pl.OnRequestFinished(context.Background(), ex, slow)
	second, _ := pl.OnRequestFinished(context.Background(), ex, fast)
	if first != 1 || second != 2 {
		t.Fatalf("序号 = %d, %d", first, second)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	pl.Wait()

	if c.entries[0].Index != 2 || c.entries[1].Index != 1 {
		t.Errorf("追加顺序应为完成顺序: %d, %d", c.entries[0].Index, c.entries[1].Index)
	}
	sorted := pl.Session().Entries()
	if sorted[0].Index != 1 || sorted[1].Index != 2 {
		t.Error("Session.Entries 应按序号排序")
	}
}

type staticOptions struct {
	opts capture.Options
	err  error
}

func (s staticOptions) LoadCaptureOptions(context.Context) (capture.Options, error) {
	return s.opts, s.err
}

func TestReload(t *testing.T) {
	pl, _ := newPipeline(t, capture.Options{})
	if err := pl.Reload(context.Background(), staticOptions{opts: capture.Options{ShowNonTD: true, Hosts: []string{"a.com"}}}); err != nil {
		t.Fatalf("Reload 失败: %v", err)
	}
	if o := pl.Options(); !o.ShowNonTD || o.Hosts[0] != "a.com" || o.VendorPrefix != "x-td-" {
		t.Errorf("options = %+v", o)
	}

	if err := pl.Reload(context.Background(), staticOptions{err: errors.New("offline")}); err == nil {
		t.Error("期望返回错误")
	}
	if !pl.Options().ShowNonTD {
		t.Error("加载失败时应保留原选项")
	}
}

func TestResolveContentType(t *testing.T) {
	req := domain.Headers{{Name: "content-type", Value: ""}}
	resp := domain.Headers{{Name: "Content-Type", Value: "text/plain"}}
	if got := capture.ResolveContentType(req, resp); got != "text/plain" {
		t.Errorf("got %q", got)
	}
	if got := capture.ResolveContentType(nil, nil); got != "" {
		t.Errorf("got %q", got)
	}
}
