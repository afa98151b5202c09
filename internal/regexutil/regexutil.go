// Package regexutil 提供带并发安全缓存的正则表达式编译工具
package regexutil

import (
	"regexp"
	"sync"
)

// DefaultMaxEntries 默认缓存容量
const DefaultMaxEntries = 256

type entry struct {
	re  *regexp.Regexp
	err error
}

// Cache 正则编译缓存，编译失败的结果同样缓存
// 过滤框中逐字输入的查询会产生大量一次性表达式，超出容量时整体清空
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	max     int
}

// New 创建正则缓存，maxEntries <= 0 时使用默认容量
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{entries: make(map[string]entry), max: maxEntries}
}

// Get 获取编译后的正则表达式
func (c *Cache) Get(p string) (*regexp.Regexp, error) {
	c.mu.RLock()
	e, ok := c.entries[p]
	c.mu.RUnlock()
	if ok {
		return e.re, e.err
	}

	re, err := regexp.Compile(p)

	c.mu.Lock()
	if len(c.entries) >= c.max {
		clear(c.entries)
	}
	c.entries[p] = entry{re: re, err: err}
	c.mu.Unlock()
	return re, err
}

// GetFold 获取不区分大小写的正则表达式
func (c *Cache) GetFold(p string) (*regexp.Regexp, error) {
	return c.Get("(?i)" + p)
}

// Len 返回缓存条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
