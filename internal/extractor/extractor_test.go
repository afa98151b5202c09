package extractor_test

import (
	"errors"
	"testing"

	"tddebugger/internal/extractor"
	"tddebugger/pkg/errx"
	"tddebugger/pkg/jsonv"
)

func mustParse(t *testing.T, s string) jsonv.Value {
	t.Helper()
	v, err := jsonv.Parse(s)
	if err != nil {
		t.Fatalf("解析 %q 失败: %v", s, err)
	}
	return v
}

func mustConfigs(t *testing.T, doc string) map[string]extractor.Config {
	t.Helper()
	cfgs, err := extractor.ParseConfigs(doc)
	if err != nil {
		t.Fatalf("解析配置失败: %v", err)
	}
	return cfgs
}

func TestSelectAndSummarize_EventsSampleCount(t *testing.T) {
	r := extractor.NewRegistry(nil)
	body := mustParse(t, `{"events":[{"a":1},{"a":2},{"a":3}]}`)
	cfgs := mustConfigs(t, `{"td-events":{"sampleCount":2}}`)

	got, name := r.SelectAndSummarize(body, cfgs)
	if name != extractor.NameTDEvents {
		t.Errorf("extractor = %s", name)
	}
	if s := jsonv.MarshalString(got); s != `{"event_count":3,"sample":[{"a":1},{"a":2}]}` {
		t.Errorf("got %s", s)
	}
}

func TestSelectAndSummarize_EventsCountProperty(t *testing.T) {
	r := extractor.NewRegistry(nil)
	tests := []struct {
		body        string
		sampleCount string
		wantCount   int
		wantSample  int
	}{
		{`{"events":[]}`, `{}`, 0, 0},
		{`{"events":[1,2,3,4,5]}`, `{}`, 5, 3},
		{`{"events":[null,{"x":1}]}`, `{"td-events":{"sampleCount":10}}`, 2, 2},
		{`{"events":[1,2]}`, `{"td-events":{"sampleCount":0}}`, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got, _ := r.SelectAndSummarize(mustParse(t, tt.body), mustConfigs(t, tt.sampleCount))
			obj, ok := jsonv.AsObject(got)
			if !ok {
				t.Fatalf("期望对象: %s", jsonv.MarshalString(got))
			}
			count, _ := obj.Get("event_count")
			if n, _ := count.(jsonv.Number).Int(); n != tt.wantCount {
				t.Errorf("event_count = %d, want %d", n, tt.wantCount)
			}
			sample, _ := obj.Get("sample")
			if arr, _ := jsonv.AsArray(sample); len(arr) != tt.wantSample {
				t.Errorf("sample 长度 = %d, want %d", len(arr), tt.wantSample)
			}
		})
	}
}

func TestSelectAndSummarize_EventsWithoutProjection(t *testing.T) {
	r := extractor.NewRegistry(nil)
	got, _ := r.SelectAndSummarize(mustParse(t, `{"events":[{"a":1},"str"]}`), nil)
	if s := jsonv.MarshalString(got); s != `{"event_count":2,"sample":[{"a":1},{}]}` {
		t.Errorf("未配置 keys 时对象事件应递归截断，非对象事件为空对象: %s", s)
	}
}

func TestSelectAndSummarize_EventsProjection(t *testing.T) {
	r := extractor.NewRegistry(nil)
	body := mustParse(t, `{"events":[{"td_client_id":"c1","td_url":"u","secret":"s"},null]}`)
	cfgs := mustConfigs(t, `{"td-events":{"keys":["td_url"],"exclude":["secret"],"includeAll":true}}`)

	got, _ := r.SelectAndSummarize(body, cfgs)
	if s := jsonv.MarshalString(got); s != `{"event_count":2,"sample":[{"td_url":"u","td_client_id":"c1"},{}]}` {
		t.Errorf("got %s", s)
	}
}

func TestSelectAndSummarize_Records(t *testing.T) {
	r := extractor.NewRegistry(nil)
	body := mustParse(t, `{"records":[{"id":1,"name":"abcdefgh"},{"id":2}]}`)

	got, name := r.SelectAndSummarize(body, mustConfigs(t, `{"td-records":{"maxString":3}}`))
	if name != extractor.NameTDRecords {
		t.Errorf("extractor = %s", name)
	}
	if s := jsonv.MarshalString(got); s != `{"record_count":2,"sample":[{"id":1,"name":"abc …"},{"id":2}]}` {
		t.Errorf("got %s", s)
	}

	got, _ = r.SelectAndSummarize(body, mustConfigs(t, `{"td-records":{"keys":["name"]}}`))
	if s := jsonv.MarshalString(got); s != `{"record_count":2,"sample":[{"name":"abcdefgh"},{}]}` {
		t.Errorf("got %s", s)
	}
}

func TestSelectAndSummarize_Record(t *testing.T) {
	r := extractor.NewRegistry(nil)
	got, name := r.SelectAndSummarize(mustParse(t, `{"record":{"k":"v"}}`), nil)
	if name != extractor.NameTDRecord {
		t.Errorf("extractor = %s", name)
	}
	if s := jsonv.MarshalString(got); s != `{"record_count":1,"sample":[{"k":"v"}]}` {
		t.Errorf("got %s", s)
	}

	_, name = r.SelectAndSummarize(mustParse(t, `{"record":"scalar"}`), nil)
	if name != extractor.NameGeneric {
		t.Errorf("record 为字符串时应回落到 generic，实际 %s", name)
	}
}

func TestSelectAndSummarize_Generic(t *testing.T) {
	r := extractor.NewRegistry(nil)
	got, name := r.SelectAndSummarize(mustParse(t, `[1,2,3,4,5]`), mustConfigs(t, `{"generic":{"maxArrayItems":1}}`))
	if name != extractor.NameGeneric {
		t.Errorf("extractor = %s", name)
	}
	if s := jsonv.MarshalString(got); s != `[1,{"__more__":4}]` {
		t.Errorf("got %s", s)
	}
}

type panicky struct {
	name         string
	panicMatch   bool
	failSummary  bool
	panicSummary bool
}

func (p *panicky) Name() string { return p.name }

func (p *panicky) Match(*extractor.Context) bool {
	if p.panicMatch {
		panic("match boom")
	}
	return true
}

func (p *panicky) Summarize(*extractor.Context) (jsonv.Value, error) {
	if p.panicSummary {
		panic("summarize boom")
	}
	if p.failSummary {
		return nil, errors.New("summarize failed")
	}
	return jsonv.String("custom"), nil
}

func TestSelectAndSummarize_Recovery(t *testing.T) {
	body := mustParse(t, `{"events":[1]}`)

	tests := []struct {
		name     string
		custom   *panicky
		wantName string
		want     string
	}{
		{"match panic 视为不匹配", &panicky{name: "p", panicMatch: true}, extractor.NameTDEvents, `{"event_count":1,"sample":[{}]}`},
		{"summarize 返回错误", &panicky{name: "p", failSummary: true}, "p", `{"events":[1]}`},
		{"summarize panic", &panicky{name: "p", panicSummary: true}, "p", `{"events":[1]}`},
		{"自定义提取器优先", &panicky{name: "p"}, "p", `"custom"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := extractor.NewRegistry(nil, tt.custom)
			got, name := r.SelectAndSummarize(body, nil)
			if name != tt.wantName {
				t.Errorf("extractor = %s, want %s", name, tt.wantName)
			}
			if s := jsonv.MarshalString(got); s != tt.want {
				t.Errorf("got %s, want %s", s, tt.want)
			}
		})
	}
}

func TestRegistry_ReplaceKeepsGenericLast(t *testing.T) {
	r := extractor.NewRegistry(nil)
	r.Replace([]extractor.Extractor{&panicky{name: "a"}, nil})

	names := r.Names()
	want := []string{"a", extractor.NameTDEvents, extractor.NameTDRecords, extractor.NameTDRecord, extractor.NameGeneric}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names = %v, want %v", names, want)
		}
	}
}

func TestParseConfigs(t *testing.T) {
	cfgs := mustConfigs(t, `{
		"td-events": {"keys":["a",1,"b"],"exclude":["x"],"includeAll":true,"sampleCount":"5","maxString":-1,"maxArrayItems":2.7},
		"generic": "not an object"
	}`)

	ev, ok := cfgs["td-events"]
	if !ok {
		t.Fatal("缺少 td-events 配置")
	}
	if len(ev.Keys) != 2 || ev.Keys[0] != "a" || ev.Keys[1] != "b" {
		t.Errorf("keys = %v", ev.Keys)
	}
	if !ev.IncludeAll || len(ev.Exclude) != 1 {
		t.Errorf("includeAll/exclude 解析错误: %+v", ev)
	}
	if ev.SampleCount != nil || ev.Samples() != extractor.DefaultSampleCount {
		t.Error("字符串形式的 sampleCount 应视为未配置")
	}
	caps := ev.Caps()
	if caps.MaxString != 500 || caps.MaxArrayItems != 2 || caps.MaxObjectKeys != 20 {
		t.Errorf("caps = %+v", caps)
	}
	if _, ok := cfgs["generic"]; ok {
		t.Error("非对象配置应被忽略")
	}
}

func TestParseConfigs_Invalid(t *testing.T) {
	for _, doc := range []string{"{", "[1,2]"} {
		if _, err := extractor.ParseConfigs(doc); !errx.Is(err, errx.CodeInvalidJSON) {
			t.Errorf("%q: 期望 INVALID_JSON，实际 %v", doc, err)
		}
	}
	if cfgs, err := extractor.ParseConfigs(""); err != nil || len(cfgs) != 0 {
		t.Errorf("空文档应返回空配置: %v %v", cfgs, err)
	}
}

func TestParseConfigs_KeysPresence(t *testing.T) {
	cfgs := mustConfigs(t, `{"a":{"keys":[]},"b":{"keys":null},"c":{}}`)
	if !cfgs["a"].Structural() {
		t.Error("空 keys 数组也视为已配置")
	}
	if cfgs["b"].Structural() || cfgs["c"].Structural() {
		t.Error("null 或缺失的 keys 视为未配置")
	}
}
