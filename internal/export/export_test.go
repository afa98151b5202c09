package export_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"tddebugger/internal/export"
	"tddebugger/internal/filter"
	"tddebugger/internal/redact"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"

	"github.com/tidwall/gjson"
)

func sampleEntry(t *testing.T) domain.Entry {
	t.Helper()
	parsed, err := jsonv.Parse(`{"database":"web","table":"pageviews","event_count":2,` +
		`"sample":[{"td_client_id":"cid","td_global_id":0,"td_ecomm_event_type":true,"email":"a@b.com"}]}`)
	if err != nil {
		t.Fatal(err)
	}
	return domain.Entry{
		Index:          7,
		Timestamp:      1704067200000,
		Method:         "POST",
		URL:            "https://in.treasuredata.com/web/pageviews?a=1,2",
		Status:         200,
		Parsed:         parsed,
		RequestHeaders: domain.Headers{{Name: "Authorization", Value: "TD1 1234567890abcdef"}, {Name: "X-Other", Value: "v"}},
	}
}

func TestCSVRow(t *testing.T) {
	row := export.CSVRow(sampleEntry(t))
	want := []string{"7", "2024-01-01T00:00:00.000Z", "POST", "200",
		"https://in.treasuredata.com/web/pageviews?a=1,2", "web", "pageviews", "cid", "", "true"}
	if len(row) != len(want) {
		t.Fatalf("列数 = %d", len(row))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("第 %d 列 = %v, want %q", i, row[i], want[i])
		}
	}
}

func TestCSVRow_PendingAndNonObject(t *testing.T) {
	row := export.CSVRow(domain.Entry{Index: 1, Parsed: jsonv.String("raw")})
	if row[3] != "" || row[5] != "" || row[7] != "" {
		t.Errorf("缺失字段应为空: %v", row)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, []domain.Entry{sampleEntry(t)}); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("行数 = %d: %s", len(lines), buf.String())
	}
	if !strings.EqualFold(lines[0], strings.Join(export.CSVColumns, ",")) {
		t.Errorf("表头 = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"https://in.treasuredata.com/web/pageviews?a=1,2"`) {
		t.Errorf("含逗号的字段应加引号: %s", lines[1])
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	parsed, err := jsonv.Parse(`{"database":"web","sample":[{"td_client_id":"a\"b\nc","td_global_id":"g,1"}]}`)
	if err != nil {
		t.Fatal(err)
	}
	entries := []domain.Entry{
		sampleEntry(t),
		{Index: 8, Timestamp: 1704067200000, Method: "GET", URL: `https://x/a,b?q="1"`, Parsed: parsed},
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, entries); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("标准 CSV 读取失败: %v\n%s", err, buf.String())
	}
	if len(records) != 3 {
		t.Fatalf("记录数 = %d", len(records))
	}
	for i, e := range entries {
		want := export.CSVRow(e)
		got := records[i+1]
		if len(got) != len(want) {
			t.Fatalf("第 %d 行列数 = %d", i+1, len(got))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("第 %d 行第 %d 列 = %q, want %q", i+1, j, got[j], want[j])
			}
		}
	}
	if records[2][4] != `https://x/a,b?q="1"` || records[2][7] != "a\"b\nc" {
		t.Errorf("特殊字符未还原: %q", records[2])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, []domain.Entry{sampleEntry(t)}, redact.New(nil)); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	out := buf.String()
	doc := gjson.Parse(out)
	if doc.Get("0.idx").Int() != 7 || doc.Get("0.parsed.database").String() != "web" {
		t.Errorf("JSON 内容错误: %s", out)
	}
	if doc.Get("0.parsed.sample.0.email").String() != "***@***" {
		t.Errorf("邮箱未脱敏: %s", doc.Get("0.parsed.sample.0.email").Raw)
	}
	if !strings.HasPrefix(doc.Get("0.requestHeaders.0.value").String(), "TD1 12345678") {
		t.Errorf("Authorization 未遮蔽: %s", doc.Get("0.requestHeaders.0.value").String())
	}
	if !strings.Contains(out, "\n  {") {
		t.Errorf("应为缩进格式: %s", out)
	}

	buf.Reset()
	_ = export.WriteJSON(&buf, []domain.Entry{sampleEntry(t)}, nil)
	if gjson.Get(buf.String(), "0.parsed.sample.0.email").String() != "a@b.com" {
		t.Error("未启用脱敏时应保留原值")
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	page := filter.Paginate([]domain.Entry{sampleEntry(t)}, 0, 10)
	export.WriteTable(&buf, page, export.TableOptions{SummaryWidth: 20})
	// 表头与表尾会被样式转为大写
	out := strings.ToLower(buf.String())
	for _, want := range []string{"post", "web", "pageviews", "page 1/1, 1 entries"} {
		if !strings.Contains(out, want) {
			t.Errorf("表格缺少 %q:\n%s", want, out)
		}
	}
}

func TestWriteHeaders(t *testing.T) {
	var buf bytes.Buffer
	export.WriteHeaders(&buf, sampleEntry(t), redact.New(nil), true)
	out := buf.String()
	if !strings.Contains(out, "Authorization") || strings.Contains(out, "X-Other") {
		t.Errorf("仅应输出重要头部:\n%s", out)
	}
	if strings.Contains(out, "1234567890abcdef") {
		t.Errorf("Authorization 未遮蔽:\n%s", out)
	}
}
