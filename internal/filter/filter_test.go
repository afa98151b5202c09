package filter_test

import (
	"testing"

	"tddebugger/internal/filter"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"
)

func entry(t *testing.T, idx int64, status int, url, parsed string) domain.Entry {
	t.Helper()
	var v jsonv.Value
	if parsed != "" {
		var err error
		if v, err = jsonv.Parse(parsed); err != nil {
			t.Fatalf("解析失败: %v", err)
		}
	}
	return domain.Entry{Index: idx, Status: status, URL: url, Parsed: v}
}

func TestMatches(t *testing.T) {
	m := filter.NewMatcher()
	e := entry(t, 1, 200, "https://in.treasuredata.com/mydb/events", `{"database":"mydb","sample":[{"td_client_id":"ABC-123"}]}`)

	tests := []struct {
		name  string
		query string
		opts  filter.Options
		want  bool
	}{
		{"空查询", "", filter.Options{}, true},
		{"子串不区分大小写", "abc-123", filter.Options{}, true},
		{"URL 子串", "TREASUREDATA", filter.Options{}, true},
		{"子串不存在", "missing", filter.Options{}, false},
		{"状态类别匹配", "", filter.Options{StatusClass: "2xx"}, true},
		{"状态类别不匹配", "", filter.Options{StatusClass: "4xx"}, false},
		{"未知状态类别忽略", "", filter.Options{StatusClass: "9xx"}, true},
		{"数据库匹配", "", filter.Options{Database: "mydb"}, true},
		{"数据库不匹配", "", filter.Options{Database: "other"}, false},
		{"正则", `client_id":"abc-\d+`, filter.Options{UseRegex: true}, true},
		{"正则不匹配", `^zzz`, filter.Options{UseRegex: true}, false},
		{"非法正则不匹配", `(unclosed`, filter.Options{UseRegex: true}, false},
		{"组合条件", "events", filter.Options{StatusClass: "2xx", Database: "mydb"}, true},
		{"组合条件之一失败", "events", filter.Options{StatusClass: "5xx", Database: "mydb"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(&e, tt.query, tt.opts); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_EmptyQueryMatchesAll(t *testing.T) {
	m := filter.NewMatcher()
	entries := []domain.Entry{
		entry(t, 1, 0, "", ""),
		entry(t, 2, 404, "https://x.com", `"text"`),
		entry(t, 3, 201, "https://y.com", `[1,2]`),
	}
	for i := range entries {
		if !m.Matches(&entries[i], "", filter.Options{}) {
			t.Errorf("entry %d 应匹配空查询", entries[i].Index)
		}
	}
}

func TestMatches_PendingStatus(t *testing.T) {
	m := filter.NewMatcher()
	e := entry(t, 1, 0, "https://x.com", "")
	if m.Matches(&e, "", filter.Options{StatusClass: "2xx"}) {
		t.Error("无状态码的条目不应匹配状态类别")
	}
	if m.Matches(nil, "", filter.Options{}) {
		t.Error("nil 条目不应匹配")
	}
}

func TestApplyAndDatabases(t *testing.T) {
	m := filter.NewMatcher()
	entries := []domain.Entry{
		entry(t, 1, 200, "https://a/1", `{"database":"b_db"}`),
		entry(t, 2, 500, "https://a/2", `{"database":"a_db"}`),
		entry(t, 3, 200, "https://a/3", `{"database":"b_db"}`),
		entry(t, 4, 200, "https://a/4", `"plain"`),
	}

	got := m.Apply(entries, "", filter.Options{StatusClass: "2xx"})
	if len(got) != 3 || got[0].Index != 1 || got[2].Index != 4 {
		t.Errorf("Apply 结果错误: %v", got)
	}

	dbs := filter.Databases(entries)
	if len(dbs) != 2 || dbs[0] != "a_db" || dbs[1] != "b_db" {
		t.Errorf("Databases = %v", dbs)
	}
}

func TestPaginate(t *testing.T) {
	entries := make([]domain.Entry, 7)
	for i := range entries {
		entries[i].Index = int64(i + 1)
	}

	tests := []struct {
		name      string
		index     int
		size      int
		wantIndex int
		wantLen   int
		wantPages int
		wantFirst int64
	}{
		{"第一页", 0, 3, 0, 3, 3, 1},
		{"最后一页", 2, 3, 2, 1, 3, 7},
		{"越界取最后一页", 9, 3, 2, 1, 3, 7},
		{"负页码", -1, 3, 0, 3, 3, 1},
		{"默认页大小", 0, 0, 0, 7, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filter.Paginate(entries, tt.index, tt.size)
			if p.Index != tt.wantIndex || len(p.Items) != tt.wantLen || p.Pages != tt.wantPages {
				t.Fatalf("got index=%d len=%d pages=%d", p.Index, len(p.Items), p.Pages)
			}
			if p.Items[0].Index != tt.wantFirst {
				t.Errorf("first = %d, want %d", p.Items[0].Index, tt.wantFirst)
			}
		})
	}

	empty := filter.Paginate(nil, 0, 10)
	if empty.Pages != 0 || len(empty.Items) != 0 || empty.HasNext() || empty.HasPrev() {
		t.Errorf("空列表分页错误: %+v", empty)
	}
}

func TestPreset_Options(t *testing.T) {
	p := filter.Preset{Text: "x", Status: "4xx", Database: "db", Regex: true}
	want := filter.Options{StatusClass: "4xx", Database: "db", UseRegex: true}
	if p.Options() != want {
		t.Errorf("got %+v", p.Options())
	}
}
