package cdp

import (
	"tddebugger/internal/capture"
	"tddebugger/pkg/domain"

	"github.com/mafredri/cdp/protocol/network"
	"github.com/tidwall/gjson"
)

// ToHeaders 将 CDP 头部对象转换为有序头部列表，保留原始顺序
func ToHeaders(h network.Headers) domain.Headers {
	if len(h) == 0 {
		return nil
	}
	r := gjson.ParseBytes(h)
	if !r.IsObject() {
		return nil
	}
	out := make(domain.Headers, 0)
	r.ForEach(func(k, v gjson.Result) bool {
		out = append(out, domain.Header{Name: k.String(), Value: v.String()})
		return true
	})
	return out
}

// pendingRequest 尚未完成的请求
type pendingRequest struct {
	URL             string
	Method          string
	Status          int
	MimeType        string
	RequestHeaders  domain.Headers
	ResponseHeaders domain.Headers
	PostData        string
	HasPostData     bool
}

func newPending(req network.Request) pendingRequest {
	p := pendingRequest{
		URL:            req.URL,
		Method:         req.Method,
		RequestHeaders: ToHeaders(req.Headers),
	}
	if req.PostData != nil {
		p.PostData = *req.PostData
	}
	if req.HasPostData != nil {
		p.HasPostData = *req.HasPostData
	}
	return p
}

// toExchange 转换为捕获流水线的交换
func (p pendingRequest) toExchange() capture.Exchange {
	return capture.Exchange{
		URL:             p.URL,
		Method:          p.Method,
		Status:          p.Status,
		RequestHeaders:  p.RequestHeaders,
		ResponseHeaders: p.ResponseHeaders,
		RequestBody:     p.PostData,
	}
}
