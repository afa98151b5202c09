package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tddebugger/internal/logger"
)

// Pool 固定 worker 数的任务池
// 队列已满时任务溢出到独立协程执行，任何提交的任务都不会被丢弃
type Pool struct {
	size     int
	queue    chan func()
	queueCap int
	log      logger.Logger

	inflight sync.WaitGroup // 已提交未完成的任务
	workers  sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	submitted atomic.Int64
	spilled   atomic.Int64

	startOnce   sync.Once
	closeOnce   sync.Once
	stopMonitor chan struct{}
}

// New 创建任务池
// size: worker 数，<=0 时每个任务独立协程执行；queueCap: 队列容量（<=0 时为 size * 8）
func New(size, queueCap int, l logger.Logger) *Pool {
	if l == nil {
		l = logger.NewNop()
	}
	p := &Pool{size: size, log: l, stopMonitor: make(chan struct{})}
	if size <= 0 {
		return p
	}
	if queueCap <= 0 {
		queueCap = size * 8
	}
	p.queue = make(chan func(), queueCap)
	p.queueCap = queueCap
	return p
}

// Start 启动 worker 与状态监控，重复调用无效
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.size; i++ {
			p.workers.Add(1)
			go p.worker()
		}
		go p.monitor(ctx)
	})
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for fn := range p.queue {
		fn()
	}
}

// monitor 定期输出任务池状态
func (p *Pool) monitor(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopMonitor:
			return
		case <-ticker.C:
			s := p.Stats()
			if s.Submitted > 0 {
				p.log.Info("任务池状态监控", "queueLen", s.QueueLen, "queueCap", s.QueueCap,
					"submitted", s.Submitted, "spilled", s.Spilled,
					"spillRate", fmt.Sprintf("%.2f%%", float64(s.Spilled)/float64(s.Submitted)*100))
			}
		}
	}
}

// Submit 提交任务，返回 false 表示任务未进入队列而是溢出到独立协程
func (p *Pool) Submit(fn func()) bool {
	p.submitted.Add(1)
	p.inflight.Add(1)
	task := p.wrap(fn)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.queue == nil || p.closed {
		go task()
		return p.queue == nil
	}
	select {
	case p.queue <- task:
		return true
	default:
		n := p.spilled.Add(1)
		p.log.Warn("任务池队列已满，任务溢出到独立协程", "queueCap", p.queueCap, "spilled", n)
		go task()
		return false
	}
}

func (p *Pool) wrap(fn func()) func() {
	return func() {
		defer p.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				p.log.Error("任务执行异常", "panic", fmt.Sprint(rec))
			}
		}()
		fn()
	}
}

// Wait 等待所有已提交任务完成
func (p *Pool) Wait() {
	p.inflight.Wait()
}

// Close 停止接收队列任务并等待 worker 退出，已入队任务仍会执行
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		if p.queue != nil {
			close(p.queue)
		}
		p.mu.Unlock()
		close(p.stopMonitor)
		p.workers.Wait()
	})
}

// Stats 任务池统计信息
type Stats struct {
	QueueLen  int
	QueueCap  int
	Submitted int64
	Spilled   int64
}

// Stats 返回统计信息
func (p *Pool) Stats() Stats {
	return Stats{
		QueueLen:  len(p.queue),
		QueueCap:  p.queueCap,
		Submitted: p.submitted.Load(),
		Spilled:   p.spilled.Load(),
	}
}

// IsEnabled 是否启用了并发限制
func (p *Pool) IsEnabled() bool {
	return p.queue != nil
}
