// Package export 将条目输出为终端表格、CSV 与 JSON
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"tddebugger/internal/filter"
	"tddebugger/internal/redact"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// 默认导出文件名
const (
	CSVFileName  = "td-debugger.csv"
	JSONFileName = "td-debugger.json"
)

// CSVColumns CSV 列
var CSVColumns = []string{
	"idx", "time", "method", "status", "url",
	"database", "table", "td_client_id", "td_global_id", "td_ecomm_event_type",
}

// isoTime 毫秒精度的 UTC ISO-8601 时间
func isoTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

func statusText(status int) string {
	if status <= 0 {
		return ""
	}
	return strconv.Itoa(status)
}

// cell 按 JavaScript 真值规则输出单元格，假值输出空串
func cell(v jsonv.Value) string {
	switch t := v.(type) {
	case jsonv.String:
		return string(t)
	case jsonv.Number:
		if f, err := strconv.ParseFloat(string(t), 64); err == nil && f == 0 {
			return ""
		}
		return string(t)
	case jsonv.Bool:
		if t {
			return "true"
		}
		return ""
	case jsonv.Array, *jsonv.Object:
		return jsonv.MarshalString(t)
	}
	return ""
}

// CSVRow 生成单个条目的 CSV 行
// 客户端字段取自摘要 sample 数组的第一项
func CSVRow(e domain.Entry) []string {
	p, ok := e.ParsedObject()
	if !ok {
		p = jsonv.NewObject()
	}
	s := jsonv.NewObject()
	if v, ok := p.Get("sample"); ok {
		if arr, ok := jsonv.AsArray(v); ok && len(arr) > 0 {
			if first, ok := jsonv.AsObject(arr[0]); ok {
				s = first
			}
		}
	}
	field := func(o *jsonv.Object, key string) string {
		v, _ := o.Get(key)
		return cell(v)
	}
	return []string{
		strconv.FormatInt(e.Index, 10),
		isoTime(e.Timestamp),
		e.Method,
		statusText(e.Status),
		e.URL,
		field(p, "database"),
		field(p, "table"),
		field(s, "td_client_id"),
		field(s, "td_global_id"),
		field(s, "td_ecomm_event_type"),
	}
}

// WriteCSV 输出 CSV，首行为列名
// 含逗号、引号或换行的字段加引号，内部引号写成两个
func WriteCSV(w io.Writer, entries []domain.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write(CSVRow(e)); err != nil {
			return fmt.Errorf("write CSV row %d: %w", e.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON 输出缩进的 JSON 数组，red 不为 nil 时先脱敏
func WriteJSON(w io.Writer, entries []domain.Entry, red *redact.Redactor) error {
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		if red != nil {
			e = red.RedactEntry(e)
		}
		out[i] = e
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// TableOptions 终端表格选项
type TableOptions struct {
	Redactor *redact.Redactor
	// SummaryWidth 摘要列最大宽度，<=0 时为 80
	SummaryWidth int
	Color        bool
}

// WriteTable 以表格形式输出一页条目
func WriteTable(w io.Writer, page filter.Page, opts TableOptions) {
	width := opts.SummaryWidth
	if width <= 0 {
		width = 80
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Time", "Method", "Status", "Database", "Table", "Summary"})
	if opts.Color {
		t.SetRowPainter(statusRowPainter(3))
	}

	for _, e := range page.Items {
		if opts.Redactor != nil {
			e = opts.Redactor.RedactEntry(e)
		}
		p, ok := e.ParsedObject()
		if !ok {
			p = jsonv.NewObject()
		}
		db, _ := p.GetString("database")
		tbl, _ := p.GetString("table")
		t.AppendRow(table.Row{
			e.Index,
			time.UnixMilli(e.Timestamp).Format("15:04:05.000"),
			e.Method,
			statusText(e.Status),
			db,
			tbl,
			text.Trim(jsonv.MarshalString(e.Parsed), width),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "",
		fmt.Sprintf("page %d/%d, %d entries", page.Index+1, max(page.Pages, 1), page.Total)})
	t.Render()
}

// statusRowPainter 按状态码类别着色
func statusRowPainter(col int) table.RowPainter {
	return func(row table.Row) text.Colors {
		if col >= len(row) {
			return nil
		}
		s, _ := row[col].(string)
		switch {
		case s == "":
			return text.Colors{text.FgHiBlack}
		case s[0] == '2':
			return text.Colors{text.FgGreen}
		case s[0] == '3':
			return text.Colors{text.FgCyan}
		case s[0] == '4':
			return text.Colors{text.FgYellow}
		case s[0] == '5':
			return text.Colors{text.FgRed}
		}
		return nil
	}
}

// WriteHeaders 输出条目的请求头与响应头，重要头部以 * 标记
func WriteHeaders(w io.Writer, e domain.Entry, red *redact.Redactor, importantOnly bool) {
	if red != nil {
		e.RequestHeaders = red.RedactHeaders(e.RequestHeaders)
		e.ResponseHeaders = red.RedactHeaders(e.ResponseHeaders)
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "Direction", "Name", "Value"})
	add := func(dir string, hs domain.Headers) {
		for _, h := range hs {
			important := redact.IsImportantHeader(h.Name)
			if importantOnly && !important {
				continue
			}
			mark := ""
			if important {
				mark = "*"
			}
			t.AppendRow(table.Row{mark, dir, h.Name, h.Value})
		}
	}
	add("request", e.RequestHeaders)
	add("response", e.ResponseHeaders)
	t.Render()
}
