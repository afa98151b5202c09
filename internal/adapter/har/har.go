// Package har 读取 HAR 归档并将其中的交换回放到捕获流水线
package har

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"

	"tddebugger/internal/capture"
	"tddebugger/internal/transformer"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/errx"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// NameValue HAR 头部与查询参数
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PostData HAR 请求体
type PostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// Request HAR 请求
type Request struct {
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Headers  []NameValue `json:"headers"`
	PostData *PostData   `json:"postData,omitempty"`
}

// Content HAR 响应内容
type Content struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding,omitempty"`
}

// Response HAR 响应
type Response struct {
	Status  int         `json:"status"`
	Headers []NameValue `json:"headers"`
	Content Content     `json:"content"`
}

// Entry HAR 条目
type Entry struct {
	StartedDateTime string   `json:"startedDateTime"`
	Request         Request  `json:"request"`
	Response        Response `json:"response"`
}

// Log HAR 日志
type Log struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

type archive struct {
	Log *Log `json:"log"`
}

// Load 读取 HAR 文档，自动识别 gzip 与 zstd 压缩
func Load(r io.Reader) (*Log, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errx.Wrap(errx.CodeHARInvalid, err, "gzip 解压失败")
		}
		defer zr.Close()
		src = zr
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, errx.Wrap(errx.CodeHARInvalid, err, "zstd 解压失败")
		}
		defer zr.Close()
		src = zr
	}

	var a archive
	if err := json.NewDecoder(src).Decode(&a); err != nil {
		return nil, errx.Wrap(errx.CodeHARInvalid, err, "HAR 解析失败")
	}
	if a.Log == nil {
		return nil, errx.Wrap(errx.CodeHARInvalid, domain.ErrInvalidHAR, "缺少 log 字段")
	}
	return a.Log, nil
}

// LoadFile 读取 HAR 文件
func LoadFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errx.Wrap(errx.CodeHARInvalid, err, "打开 HAR 文件失败")
	}
	defer f.Close()
	return Load(f)
}

func toHeaders(in []NameValue) domain.Headers {
	if len(in) == 0 {
		return nil
	}
	out := make(domain.Headers, 0, len(in))
	for _, h := range in {
		out = append(out, domain.Header{Name: h.Name, Value: h.Value})
	}
	return out
}

// Exchange 转换为捕获流水线的交换
func (e Entry) Exchange() capture.Exchange {
	ex := capture.Exchange{
		URL:             e.Request.URL,
		Method:          e.Request.Method,
		Status:          e.Response.Status,
		RequestHeaders:  toHeaders(e.Request.Headers),
		ResponseHeaders: toHeaders(e.Response.Headers),
	}
	if e.Request.PostData != nil {
		ex.RequestBody = e.Request.PostData.Text
	}
	return ex
}

// Body 返回响应正文，二进制内容返回空串
func (e Entry) Body(_ context.Context) (string, error) {
	c := e.Response.Content
	if transformer.IsBinaryContentType(c.MimeType) {
		return "", nil
	}
	return transformer.DecodeBody(c.Text, c.Encoding == "base64")
}

// Replay 依次回放全部条目，返回被接受的条目数
func Replay(ctx context.Context, p *capture.Pipeline, l *Log) int {
	accepted := 0
	for _, e := range l.Entries {
		if ctx.Err() != nil {
			break
		}
		if _, ok := p.OnRequestFinished(ctx, e.Exchange(), e.Body); ok {
			accepted++
		}
	}
	return accepted
}
