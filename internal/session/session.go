// Package session 保存一次捕获会话的条目序列与序号计数器
package session

import (
	"sort"
	"sync"
	"sync/atomic"

	"tddebugger/pkg/domain"

	"github.com/google/uuid"
)

// Session 捕获会话
// 序号在回调入口同步分配，条目按异步完成顺序追加
type Session struct {
	ID domain.SessionID

	counter atomic.Int64

	mu      sync.RWMutex
	entries []domain.Entry
	targets map[domain.TargetID]struct{} // 已附加的浏览器目标
}

// New 创建会话，id 为空时生成随机 ID
func New(id domain.SessionID) *Session {
	if id == "" {
		id = domain.SessionID(uuid.NewString())
	}
	return &Session{
		ID:      id,
		targets: make(map[domain.TargetID]struct{}),
	}
}

// Next 分配下一个条目序号，从 1 开始，清空后不重置
func (s *Session) Next() int64 {
	return s.counter.Add(1)
}

// Append 追加条目
func (s *Session) Append(e domain.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Entries 返回按序号排序的条目副本
func (s *Session) Entries() []domain.Entry {
	s.mu.RLock()
	out := make([]domain.Entry, len(s.entries))
	copy(out, s.entries)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Get 按序号查找条目
func (s *Session) Get(index int64) (domain.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Index == index {
			return e, true
		}
	}
	return domain.Entry{}, false
}

// Len 返回条目数量
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear 丢弃全部条目，序号计数器保持不变
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// AddTarget 关联一个浏览器目标
func (s *Session) AddTarget(id domain.TargetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[id] = struct{}{}
}

// RemoveTarget 移除关联
func (s *Session) RemoveTarget(id domain.TargetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, id)
}

// GetTargets 获取所有关联的目标 ID
func (s *Session) GetTargets() []domain.TargetID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.TargetID, 0, len(s.targets))
	for id := range s.targets {
		ids = append(ids, id)
	}
	return ids
}
