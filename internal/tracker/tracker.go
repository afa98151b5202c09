// Package tracker 按请求 ID 暂存尚未完成的网络交换，超时自动清理
package tracker

import (
	"sync"
	"time"

	"tddebugger/internal/logger"
)

// DefaultTTL 默认过期时间
const DefaultTTL = 60 * time.Second

type item[T any] struct {
	startTime time.Time
	data      T
}

// Tracker 事务追踪器
type Tracker[T any] struct {
	mu      sync.Mutex
	items   map[string]*item[T]
	timeout time.Duration
	log     logger.Logger
	done    chan struct{}
	once    sync.Once
}

// New 创建追踪器并启动后台清理
func New[T any](timeout time.Duration, l logger.Logger) *Tracker[T] {
	if timeout <= 0 {
		timeout = DefaultTTL
	}
	if l == nil {
		l = logger.NewNop()
	}
	t := &Tracker[T]{
		items:   make(map[string]*item[T]),
		timeout: timeout,
		log:     l,
		done:    make(chan struct{}),
	}
	go t.cleanupLoop(interval(timeout))
	return t
}

func interval(timeout time.Duration) time.Duration {
	if d := timeout / 2; d < 30*time.Second {
		return max(d, 10*time.Millisecond)
	}
	return 30 * time.Second
}

// Set 存入数据，覆盖同 ID 的旧数据
func (t *Tracker[T]) Set(id string, data T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[id] = &item[T]{startTime: time.Now(), data: data}
}

// Update 修改已存在的数据，ID 不存在时返回 false
func (t *Tracker[T]) Update(id string, fn func(data *T)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	it, ok := t.items[id]
	if !ok {
		return false
	}
	fn(&it.data)
	return true
}

// Get 获取并移除数据
func (t *Tracker[T]) Get(id string) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	it, ok := t.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(t.items, id)
	return it.data, true
}

// Peek 获取数据但不移除
func (t *Tracker[T]) Peek(id string) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	it, ok := t.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return it.data, true
}

// Delete 删除数据
func (t *Tracker[T]) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, id)
}

// Len 返回当前数量
func (t *Tracker[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Stop 停止后台清理
func (t *Tracker[T]) Stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *Tracker[T]) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.expire(time.Now())
		}
	}
}

func (t *Tracker[T]) expire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, it := range t.items {
		if now.Sub(it.startTime) > t.timeout {
			delete(t.items, id)
			t.log.Debug("清理过期事务数据", "id", id, "startTime", it.startTime)
		}
	}
}
