// Package prefs 基于设置表的用户偏好存储
// 每个偏好以 JSON 文本保存，与浏览器扩展导出的设置文件格式一致
package prefs

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"tddebugger/internal/capture"
	"tddebugger/internal/config"
	"tddebugger/internal/extractor"
	"tddebugger/internal/filter"
	"tddebugger/internal/logger"
	"tddebugger/internal/redact"
	"tddebugger/internal/storage/model"
	"tddebugger/internal/storage/repo"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/errx"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Loader 核心流程需要的配置来源
type Loader interface {
	LoadCustomFieldConfig(ctx context.Context) (map[string]extractor.Config, error)
	LoadRedactionRuleStrings(ctx context.Context) ([]string, error)
	LoadHostAllowList(ctx context.Context) ([]string, error)
}

// Prefs 常规偏好
type Prefs struct {
	Hosts         []string `json:"tdHosts"`
	ShowNonTD     bool     `json:"showNonTD"`
	ShowPreflight bool     `json:"showPreflight"`
	Filter        string   `json:"tdFilter"`
	Redact        bool     `json:"tdRedact"`
}

// Store 偏好存储
type Store struct {
	repo     *repo.SettingsRepo
	log      logger.Logger
	defaults config.DefaultSettings
}

// New 创建偏好存储
func New(r *repo.SettingsRepo, l logger.Logger) *Store {
	if l == nil {
		l = logger.NewNop()
	}
	return &Store{repo: r, log: l, defaults: config.GetDefaultSettings()}
}

// raw 读取原始 JSON 文本，不存在时返回空串
func (s *Store) raw(ctx context.Context, key string) (string, error) {
	v, err := s.repo.Get(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (s *Store) setRaw(ctx context.Context, key, raw string) error {
	if !gjson.Valid(raw) {
		return errx.Newf(errx.CodeInvalidJSON, "%s 不是合法 JSON", key)
	}
	return s.repo.Set(ctx, key, raw)
}

// Load 读取常规偏好，缺失项取默认值
func (s *Store) Load(ctx context.Context) (Prefs, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return Prefs{}, err
	}
	p := Prefs{
		Hosts:         hostList(all[model.SettingKeyHosts]),
		ShowNonTD:     s.defaults.ShowNonTD,
		ShowPreflight: s.defaults.ShowPreflight,
		Redact:        s.defaults.Redact,
	}
	if len(p.Hosts) == 0 {
		p.Hosts = append([]string(nil), s.defaults.Hosts...)
	}
	if v, ok := all[model.SettingKeyShowNonTD]; ok {
		p.ShowNonTD = gjson.Parse(v).Bool()
	}
	if v, ok := all[model.SettingKeyShowPreflight]; ok {
		p.ShowPreflight = gjson.Parse(v).Bool()
	}
	if v, ok := all[model.SettingKeyRedact]; ok {
		p.Redact = gjson.Parse(v).Bool()
	}
	if v, ok := all[model.SettingKeyFilter]; ok {
		p.Filter = gjson.Parse(v).String()
	}
	return p, nil
}

// Save 保存常规偏好，主机列表为空时保存默认主机
func (s *Store) Save(ctx context.Context, p Prefs) error {
	hosts := cleanHosts(p.Hosts)
	if len(hosts) == 0 {
		hosts = s.defaults.Hosts
	}
	hostsDoc, err := stringArray(hosts)
	if err != nil {
		return err
	}
	filterDoc, err := sjson.Set("", "v", p.Filter)
	if err != nil {
		return err
	}
	return s.repo.SetMultiple(ctx, map[string]string{
		model.SettingKeyHosts:         hostsDoc,
		model.SettingKeyShowNonTD:     strconv.FormatBool(p.ShowNonTD),
		model.SettingKeyShowPreflight: strconv.FormatBool(p.ShowPreflight),
		model.SettingKeyFilter:        gjson.Get(filterDoc, "v").Raw,
		model.SettingKeyRedact:        strconv.FormatBool(p.Redact),
	})
}

// SaveHosts 仅更新主机白名单，输入为逗号分隔
func (s *Store) SaveHosts(ctx context.Context, csv string) ([]string, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	p.Hosts = cleanHosts(strings.Split(csv, ","))
	if len(p.Hosts) == 0 {
		p.Hosts = s.defaults.Hosts
	}
	return p.Hosts, s.Save(ctx, p)
}

// LoadHostAllowList 读取主机白名单
func (s *Store) LoadHostAllowList(ctx context.Context) ([]string, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return p.Hosts, nil
}

// LoadCaptureOptions 读取捕获过滤选项
func (s *Store) LoadCaptureOptions(ctx context.Context) (capture.Options, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return capture.Options{}, err
	}
	return capture.Options{
		Hosts:         p.Hosts,
		ShowNonTD:     p.ShowNonTD,
		ShowPreflight: p.ShowPreflight,
	}, nil
}

// LoadCustomFieldConfig 读取字段配置
func (s *Store) LoadCustomFieldConfig(ctx context.Context) (map[string]extractor.Config, error) {
	doc, err := s.raw(ctx, model.SettingKeyCustomFields)
	if err != nil {
		return map[string]extractor.Config{}, err
	}
	return extractor.ParseConfigs(doc)
}

// SaveCustomFields 校验后保存字段配置文档
func (s *Store) SaveCustomFields(ctx context.Context, doc string) error {
	if _, err := extractor.ParseConfigs(doc); err != nil {
		return err
	}
	return s.setRaw(ctx, model.SettingKeyCustomFields, doc)
}

// LoadCustomExtractors 读取路径提取器，无效条目记录日志后跳过
func (s *Store) LoadCustomExtractors(ctx context.Context) ([]extractor.Extractor, error) {
	doc, err := s.raw(ctx, model.SettingKeyCustomExtractors)
	if err != nil {
		return nil, err
	}
	exts, errs := extractor.ParsePathSpecs(doc)
	for _, e := range errs {
		s.log.Warn("忽略无效的自定义提取器", "error", e.Error())
	}
	return exts, nil
}

// SaveCustomExtractors 保存路径提取器文档，存在无效条目时拒绝
func (s *Store) SaveCustomExtractors(ctx context.Context, doc string) error {
	if _, errs := extractor.ParsePathSpecs(doc); len(errs) > 0 {
		return errs[0]
	}
	return s.setRaw(ctx, model.SettingKeyCustomExtractors, doc)
}

// LoadRedactionRuleStrings 读取自定义脱敏规则
func (s *Store) LoadRedactionRuleStrings(ctx context.Context) ([]string, error) {
	doc, err := s.raw(ctx, model.SettingKeyRedactionRules)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	gjson.Parse(doc).ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String {
			out = append(out, v.Str)
		}
		return true
	})
	return out, nil
}

// SaveRedactionRules 校验规则文本并保存非空行
// 任一行无效时不保存，返回的校验结果包含错误明细
func (s *Store) SaveRedactionRules(ctx context.Context, text string) (redact.Validation, error) {
	res := redact.ValidateRules(text)
	if !res.Valid {
		return res, errx.New(errx.CodeInvalidRule, strings.Join(res.Errors, "; "))
	}
	doc, err := stringArray(res.Lines)
	if err != nil {
		return res, err
	}
	return res, s.repo.Set(ctx, model.SettingKeyRedactionRules, doc)
}

// Redactor 按已保存的规则构造脱敏器
func (s *Store) Redactor(ctx context.Context) (*redact.Redactor, error) {
	rules, err := s.LoadRedactionRuleStrings(ctx)
	if err != nil {
		return redact.New(nil), err
	}
	return redact.New(rules), nil
}

// LoadPresets 读取全部过滤预设
func (s *Store) LoadPresets(ctx context.Context) (map[string]filter.Preset, error) {
	doc, err := s.raw(ctx, model.SettingKeyFilterPresets)
	if err != nil {
		return nil, err
	}
	out := make(map[string]filter.Preset)
	gjson.Parse(doc).ForEach(func(k, v gjson.Result) bool {
		if v.IsObject() {
			out[k.String()] = filter.Preset{
				Text:     v.Get("text").String(),
				Status:   v.Get("status").String(),
				Database: v.Get("database").String(),
				Regex:    v.Get("regex").Bool(),
			}
		}
		return true
	})
	return out, nil
}

// PresetNames 返回排序后的预设名
func (s *Store) PresetNames(ctx context.Context) ([]string, error) {
	presets, err := s.LoadPresets(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Preset 获取指定预设
func (s *Store) Preset(ctx context.Context, name string) (filter.Preset, bool, error) {
	presets, err := s.LoadPresets(ctx)
	if err != nil {
		return filter.Preset{}, false, err
	}
	p, ok := presets[strings.TrimSpace(name)]
	return p, ok, nil
}

// SavePreset 保存预设，同名覆盖
func (s *Store) SavePreset(ctx context.Context, name string, p filter.Preset) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errx.Wrap(errx.CodeSettingsInvalid, domain.ErrInvalidSettings, "预设名不能为空")
	}
	doc, err := s.raw(ctx, model.SettingKeyFilterPresets)
	if err != nil {
		return err
	}
	if !gjson.Parse(doc).IsObject() {
		doc = "{}"
	}
	if doc, err = sjson.Set(doc, gjson.Escape(name), p); err != nil {
		return err
	}
	return s.repo.Set(ctx, model.SettingKeyFilterPresets, doc)
}

// DeletePreset 删除预设，返回是否存在
func (s *Store) DeletePreset(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	doc, err := s.raw(ctx, model.SettingKeyFilterPresets)
	if err != nil {
		return false, err
	}
	path := gjson.Escape(name)
	if !gjson.Get(doc, path).Exists() {
		return false, nil
	}
	if doc, err = sjson.Delete(doc, path); err != nil {
		return false, err
	}
	return true, s.repo.Set(ctx, model.SettingKeyFilterPresets, doc)
}

func stringArray(items []string) (string, error) {
	doc := "[]"
	for _, it := range items {
		var err error
		if doc, err = sjson.Set(doc, "-1", it); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func hostList(raw string) []string {
	r := gjson.Parse(raw)
	if !r.IsArray() {
		return nil
	}
	hosts := make([]string, 0)
	for _, v := range r.Array() {
		if v.Type == gjson.String {
			hosts = append(hosts, v.Str)
		}
	}
	return cleanHosts(hosts)
}

func cleanHosts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, h := range in {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
