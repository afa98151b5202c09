package prefs

import (
	"context"

	"tddebugger/internal/storage/model"
	"tddebugger/pkg/errx"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ExportFileName 导出设置的默认文件名
const ExportFileName = "td-debugger-settings.json"

// exportKeys 可导出与导入的偏好键，顺序即导出顺序
var exportKeys = []string{
	model.SettingKeyCustomFields,
	model.SettingKeyRedactionRules,
	model.SettingKeyHosts,
	model.SettingKeyShowNonTD,
	model.SettingKeyShowPreflight,
	model.SettingKeyFilter,
	model.SettingKeyRedact,
	model.SettingKeyCustomExtractors,
}

// Export 导出设置文档（缩进 JSON），只包含已保存的键
func (s *Store) Export(ctx context.Context) (string, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return "", err
	}
	doc := "{}"
	for _, key := range exportKeys {
		raw, ok := all[key]
		if !ok || !gjson.Valid(raw) {
			continue
		}
		if doc, err = sjson.SetRaw(doc, key, raw); err != nil {
			return "", err
		}
	}
	return gjson.Get(doc, "@pretty").Raw, nil
}

// Import 导入设置文档，仅接受白名单内且类型合法的键
// 返回实际写入的键
func (s *Store) Import(ctx context.Context, data string) ([]string, error) {
	if !gjson.Valid(data) {
		return nil, errx.New(errx.CodeInvalidJSON, "设置文件不是合法 JSON")
	}
	root := gjson.Parse(data)
	if !root.IsObject() {
		return nil, errx.New(errx.CodeInvalidJSON, "设置文件必须是对象")
	}

	allowed := make(map[string]string)
	if v := root.Get(model.SettingKeyCustomFields); truthy(v) {
		allowed[model.SettingKeyCustomFields] = v.Raw
	}
	if v := root.Get(model.SettingKeyRedactionRules); truthy(v) {
		if v.IsArray() {
			allowed[model.SettingKeyRedactionRules] = v.Raw
		} else {
			allowed[model.SettingKeyRedactionRules] = "[]"
		}
	}
	if v := root.Get(model.SettingKeyHosts); truthy(v) {
		allowed[model.SettingKeyHosts] = v.Raw
	}
	for _, key := range []string{model.SettingKeyShowNonTD, model.SettingKeyShowPreflight, model.SettingKeyRedact} {
		if v := root.Get(key); v.IsBool() {
			allowed[key] = v.Raw
		}
	}
	if v := root.Get(model.SettingKeyFilter); v.Type == gjson.String {
		allowed[model.SettingKeyFilter] = v.Raw
	}
	if v := root.Get(model.SettingKeyCustomExtractors); v.IsArray() {
		allowed[model.SettingKeyCustomExtractors] = v.Raw
	}

	if err := s.repo.SetMultiple(ctx, allowed); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(allowed))
	for _, key := range exportKeys {
		if _, ok := allowed[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// truthy 按 JavaScript 真值规则判断
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	}
	return false
}
