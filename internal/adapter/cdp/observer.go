package cdp

import (
	"context"
	"errors"
	"time"

	"tddebugger/internal/capture"
	"tddebugger/internal/logger"
	"tddebugger/internal/tracker"
	"tddebugger/internal/transformer"
	"tddebugger/pkg/errx"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/network"
)

// BodyFetcher 按请求 ID 获取正文
type BodyFetcher interface {
	ResponseBody(ctx context.Context, id network.RequestID) (string, error)
	RequestPostData(ctx context.Context, id network.RequestID) (string, error)
}

// clientFetcher 基于 CDP 客户端的正文获取
type clientFetcher struct {
	client *cdp.Client
}

// NewBodyFetcher 创建基于 CDP 客户端的正文获取器
func NewBodyFetcher(c *cdp.Client) BodyFetcher {
	return &clientFetcher{client: c}
}

func (f *clientFetcher) ResponseBody(ctx context.Context, id network.RequestID) (string, error) {
	reply, err := f.client.Network.GetResponseBody(ctx, network.NewGetResponseBodyArgs(id))
	if err != nil {
		return "", err
	}
	return transformer.DecodeBody(reply.Body, reply.Base64Encoded)
}

func (f *clientFetcher) RequestPostData(ctx context.Context, id network.RequestID) (string, error) {
	reply, err := f.client.Network.GetRequestPostData(ctx, network.NewGetRequestPostDataArgs(id))
	if err != nil {
		return "", err
	}
	return reply.PostData, nil
}

// Observer 被动观察 Network 域事件，请求完成后交给捕获流水线
type Observer struct {
	pipeline *capture.Pipeline
	log      logger.Logger
	pending  *tracker.Tracker[pendingRequest]
}

// NewObserver 创建观察器，ttl 为未完成请求的保留时间
func NewObserver(p *capture.Pipeline, ttl time.Duration, l logger.Logger) *Observer {
	if l == nil {
		l = logger.NewNop()
	}
	return &Observer{
		pipeline: p,
		log:      l,
		pending:  tracker.New[pendingRequest](ttl, l),
	}
}

// Pending 返回未完成的请求数量
func (o *Observer) Pending() int {
	return o.pending.Len()
}

// Close 停止未完成请求的清理协程
func (o *Observer) Close() {
	o.pending.Stop()
}

// Run 开启 Network 域并消费事件，直到 ctx 结束或连接断开
func (o *Observer) Run(ctx context.Context, client *cdp.Client) error {
	if err := client.Network.Enable(ctx, network.NewEnableArgs()); err != nil {
		return errx.Wrap(errx.CodeCaptureFailed, err, "开启 Network 域失败")
	}

	sent, err := client.Network.RequestWillBeSent(ctx)
	if err != nil {
		return errx.Wrap(errx.CodeCaptureFailed, err, "订阅 requestWillBeSent 失败")
	}
	defer sent.Close()
	received, err := client.Network.ResponseReceived(ctx)
	if err != nil {
		return errx.Wrap(errx.CodeCaptureFailed, err, "订阅 responseReceived 失败")
	}
	defer received.Close()
	finished, err := client.Network.LoadingFinished(ctx)
	if err != nil {
		return errx.Wrap(errx.CodeCaptureFailed, err, "订阅 loadingFinished 失败")
	}
	defer finished.Close()
	failed, err := client.Network.LoadingFailed(ctx)
	if err != nil {
		return errx.Wrap(errx.CodeCaptureFailed, err, "订阅 loadingFailed 失败")
	}
	defer failed.Close()

	// 保证各事件流按到达顺序交付
	if err := cdp.Sync(sent, received, finished, failed); err != nil {
		return errx.Wrap(errx.CodeCaptureFailed, err, "同步事件流失败")
	}

	fetcher := NewBodyFetcher(client)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sent.Ready():
			ev, err := sent.Recv()
			if err != nil {
				return o.streamErr(ctx, err)
			}
			o.HandleRequestWillBeSent(ev)
		case <-received.Ready():
			ev, err := received.Recv()
			if err != nil {
				return o.streamErr(ctx, err)
			}
			o.HandleResponseReceived(ev)
		case <-finished.Ready():
			ev, err := finished.Recv()
			if err != nil {
				return o.streamErr(ctx, err)
			}
			o.HandleLoadingFinished(ctx, ev, fetcher)
		case <-failed.Ready():
			ev, err := failed.Recv()
			if err != nil {
				return o.streamErr(ctx, err)
			}
			o.HandleLoadingFailed(ev)
		}
	}
}

func (o *Observer) streamErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	o.log.Err(err, "接收网络事件失败")
	return errx.Wrap(errx.CodeCaptureFailed, err, "接收网络事件失败")
}

// HandleRequestWillBeSent 记录新请求，重定向时覆盖同 ID 的旧请求
func (o *Observer) HandleRequestWillBeSent(ev *network.RequestWillBeSentReply) {
	o.pending.Set(string(ev.RequestID), newPending(ev.Request))
}

// HandleResponseReceived 补充状态码与响应头
func (o *Observer) HandleResponseReceived(ev *network.ResponseReceivedReply) {
	o.pending.Update(string(ev.RequestID), func(p *pendingRequest) {
		p.Status = ev.Response.Status
		p.MimeType = ev.Response.MimeType
		p.ResponseHeaders = ToHeaders(ev.Response.Headers)
	})
}

// HandleLoadingFailed 丢弃失败的请求
func (o *Observer) HandleLoadingFailed(ev *network.LoadingFailedReply) {
	o.pending.Delete(string(ev.RequestID))
}

// HandleLoadingFinished 请求完成，交给流水线；二进制响应不获取正文
func (o *Observer) HandleLoadingFinished(ctx context.Context, ev *network.LoadingFinishedReply, fetcher BodyFetcher) (int64, bool) {
	p, ok := o.pending.Get(string(ev.RequestID))
	if !ok {
		return 0, false
	}
	id := ev.RequestID
	body := func(ctx context.Context) (string, error) {
		if p.HasPostData {
			if data, err := fetcher.RequestPostData(ctx, id); err == nil && data != "" {
				return data, nil
			}
		}
		if transformer.IsBinaryContentType(p.MimeType) {
			return "", nil
		}
		return fetcher.ResponseBody(ctx, id)
	}
	return o.pipeline.OnRequestFinished(ctx, p.toExchange(), body)
}
