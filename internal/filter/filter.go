// Package filter 按状态码、数据库与文本查询筛选条目
package filter

import (
	"sort"
	"strconv"
	"strings"

	"tddebugger/internal/regexutil"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"
)

// Options 附加筛选条件，零值表示不限制
type Options struct {
	// StatusClass 状态码类别，如 2xx
	StatusClass string
	Database    string
	UseRegex    bool
}

// Matcher 条目匹配器，缓存编译过的查询正则
type Matcher struct {
	cache *regexutil.Cache
}

// NewMatcher 创建匹配器
func NewMatcher() *Matcher {
	return &Matcher{cache: regexutil.New(0)}
}

// Matches 判断条目是否满足全部条件
// 非法正则不匹配任何条目
func (m *Matcher) Matches(e *domain.Entry, query string, opts Options) bool {
	if e == nil {
		return false
	}
	if !matchStatusClass(e.Status, opts.StatusClass) {
		return false
	}
	if opts.Database != "" && e.Database() != opts.Database {
		return false
	}
	if query == "" {
		return true
	}

	hay := Haystack(e)
	if opts.UseRegex {
		re, err := m.cache.GetFold(query)
		if err != nil {
			return false
		}
		return re.MatchString(hay)
	}
	return strings.Contains(hay, strings.ToLower(query))
}

// Haystack 返回文本查询的检索内容：小写的 URL 与摘要 JSON
func Haystack(e *domain.Entry) string {
	return strings.ToLower(e.URL + " " + jsonv.MarshalString(e.Parsed))
}

// matchStatusClass 比较状态码首位数字，无法识别的类别不做限制
func matchStatusClass(status int, class string) bool {
	if len(class) != 3 || !strings.HasSuffix(strings.ToLower(class), "xx") {
		return true
	}
	d := class[0]
	if d < '1' || d > '5' {
		return true
	}
	s := strconv.Itoa(status)
	return s[0] == d
}

// Apply 返回满足条件的条目，保持输入顺序
func (m *Matcher) Apply(entries []domain.Entry, query string, opts Options) []domain.Entry {
	out := make([]domain.Entry, 0, len(entries))
	for i := range entries {
		if m.Matches(&entries[i], query, opts) {
			out = append(out, entries[i])
		}
	}
	return out
}

// Databases 返回条目中出现过的数据库名，按字典序
func Databases(entries []domain.Entry) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range entries {
		db := entries[i].Database()
		if db == "" {
			continue
		}
		if _, ok := seen[db]; ok {
			continue
		}
		seen[db] = struct{}{}
		out = append(out, db)
	}
	sort.Strings(out)
	return out
}
