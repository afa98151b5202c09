// Package cdp 通过 Chrome DevTools Protocol 被动观察页面网络流量
package cdp

import (
	"context"
	"sync"

	"tddebugger/internal/logger"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/errx"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/rpcc"
)

// TargetInfo 浏览器页面目标
type TargetInfo struct {
	ID        domain.TargetID `json:"id"`
	Type      string          `json:"type"`
	URL       string          `json:"url"`
	Title     string          `json:"title"`
	IsCurrent bool            `json:"isCurrent"`
}

// TargetSession 代表一个已附着的浏览器目标会话
type TargetSession struct {
	ID     domain.TargetID
	URL    string
	Client *cdp.Client
	Conn   *rpcc.Conn
	Ctx    context.Context    // 会话级上下文
	Cancel context.CancelFunc // 取消函数
}

// ClientManager 负责管理与浏览器的 CDP 连接
type ClientManager struct {
	devtoolsURL string
	log         logger.Logger
	mu          sync.RWMutex
	sessions    map[domain.TargetID]*TargetSession
}

// NewClientManager 创建 CDP 客户端管理器
func NewClientManager(url string, l logger.Logger) *ClientManager {
	if l == nil {
		l = logger.NewNop()
	}
	return &ClientManager{
		devtoolsURL: url,
		log:         l,
		sessions:    make(map[domain.TargetID]*TargetSession),
	}
}

// ListTargets 获取浏览器当前所有的标签页目标（仅返回 type == "page"）
func (m *ClientManager) ListTargets(ctx context.Context) ([]TargetInfo, error) {
	targets, err := devtool.New(m.devtoolsURL).List(ctx)
	if err != nil {
		return nil, errx.Wrap(errx.CodeTargetAttach, err, "获取目标列表失败")
	}

	res := make([]TargetInfo, 0)
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range targets {
		if t == nil || t.Type != devtool.Page {
			continue
		}
		id := domain.TargetID(t.ID)
		_, attached := m.sessions[id]
		res = append(res, TargetInfo{
			ID:        id,
			Type:      string(t.Type),
			URL:       t.URL,
			Title:     t.Title,
			IsCurrent: attached,
		})
	}
	return res, nil
}

// AttachTarget 附着到指定目标，id 为空时选择第一个页面目标
func (m *ClientManager) AttachTarget(ctx context.Context, id domain.TargetID) (*TargetSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok && id != "" {
		m.log.Info("Target 已存在，复用现有会话", "targetID", string(id))
		return s, nil
	}

	targets, err := devtool.New(m.devtoolsURL).List(ctx)
	if err != nil {
		m.log.Err(err, "获取 Target 列表失败")
		return nil, errx.Wrap(errx.CodeTargetAttach, err, "获取目标列表失败")
	}

	var target *devtool.Target
	for _, t := range targets {
		if t == nil || t.Type != devtool.Page {
			continue
		}
		if id == "" || t.ID == string(id) {
			target = t
			break
		}
	}
	if target == nil {
		m.log.Warn("Target 未找到", "targetID", string(id))
		return nil, errx.Wrap(errx.CodeTargetAttach, domain.ErrTargetNotFound, string(id))
	}
	id = domain.TargetID(target.ID)
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	sessionCtx, sessionCancel := context.WithCancel(ctx)
	conn, err := rpcc.DialContext(sessionCtx, target.WebSocketDebuggerURL,
		rpcc.WithWriteBufferSize(16*1024*1024),
		rpcc.WithCompression())
	if err != nil {
		sessionCancel()
		m.log.Err(err, "CDP 连接建立失败", "targetID", string(id), "wsURL", target.WebSocketDebuggerURL)
		return nil, errx.Wrap(errx.CodeTargetAttach, err, "连接目标失败")
	}

	s := &TargetSession{
		ID:     id,
		URL:    target.URL,
		Client: cdp.NewClient(conn),
		Conn:   conn,
		Ctx:    sessionCtx,
		Cancel: sessionCancel,
	}
	m.sessions[id] = s
	m.log.Info("Target 附着成功", "targetID", string(id), "url", target.URL)
	return s, nil
}

// DetachTarget 断开与目标的连接
func (m *ClientManager) DetachTarget(id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrNoTargetAttached
	}
	delete(m.sessions, id)
	// 先取消 context，再关闭连接
	if s.Cancel != nil {
		s.Cancel()
	}
	if s.Conn != nil {
		return s.Conn.Close()
	}
	return nil
}

// Close 断开全部目标
func (m *ClientManager) Close() {
	m.mu.RLock()
	ids := make([]domain.TargetID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.DetachTarget(id); err != nil {
			m.log.Err(err, "断开目标失败", "targetID", string(id))
		}
	}
}
