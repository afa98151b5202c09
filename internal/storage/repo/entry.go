package repo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tddebugger/internal/logger"
	"tddebugger/internal/storage/model"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/jsonv"

	"gorm.io/gorm"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	defaultQueryLimit    = 100
	maxQueryLimit        = 1000
	defaultRetentionDays = 7
)

// EntryRepoOptions 条目仓库配置
type EntryRepoOptions struct {
	BatchSize     int
	FlushInterval time.Duration
	Logger        logger.Logger
}

// EntryRepo 已捕获条目仓库，写入经缓冲后异步批量落库
type EntryRepo struct {
	BaseRepository[model.EntryRecord]
	log       logger.Logger
	buffer    []*model.EntryRecord
	bufferMu  sync.Mutex
	batchSize int
	flushCh   chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewEntryRepo 创建条目仓库并启动异步写入协程
func NewEntryRepo(db *gorm.DB, opts EntryRepoOptions) *EntryRepo {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	r := &EntryRepo{
		BaseRepository: *NewBaseRepository[model.EntryRecord](db),
		log:            opts.Logger,
		buffer:         make([]*model.EntryRecord, 0, opts.BatchSize),
		batchSize:      opts.BatchSize,
		flushCh:        make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}
	r.wg.Add(1)
	go r.asyncWriter(opts.FlushInterval)
	return r
}

func (r *EntryRepo) asyncWriter(interval time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.Flush(context.Background())
			return
		case <-ticker.C:
			r.Flush(context.Background())
		case <-r.flushCh:
			r.Flush(context.Background())
		}
	}
}

// Flush 立即把缓冲区写入数据库
func (r *EntryRepo) Flush(ctx context.Context) {
	r.bufferMu.Lock()
	if len(r.buffer) == 0 {
		r.bufferMu.Unlock()
		return
	}
	toWrite := r.buffer
	r.buffer = make([]*model.EntryRecord, 0, r.batchSize)
	r.bufferMu.Unlock()

	if err := r.CreateBatch(ctx, toWrite, 100); err != nil {
		r.log.Err(err, "写入捕获条目失败", "count", len(toWrite))
	}
}

// Stop 停止异步写入，剩余缓冲会先落库
func (r *EntryRepo) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}

// Record 记录一条捕获条目（异步写入）
func (r *EntryRepo) Record(sessionID domain.SessionID, e domain.Entry) {
	record := ToRecord(sessionID, e)

	r.bufferMu.Lock()
	r.buffer = append(r.buffer, record)
	needFlush := len(r.buffer) >= r.batchSize
	r.bufferMu.Unlock()

	if needFlush {
		select {
		case r.flushCh <- struct{}{}:
		default:
		}
	}
}

// ToRecord 把条目转换为数据库记录
func ToRecord(sessionID domain.SessionID, e domain.Entry) *model.EntryRecord {
	reqHeaders, _ := json.Marshal(e.RequestHeaders)
	respHeaders, _ := json.Marshal(e.ResponseHeaders)
	return &model.EntryRecord{
		SessionID:           string(sessionID),
		Idx:                 e.Index,
		Timestamp:           e.Timestamp,
		Method:              e.Method,
		URL:                 e.URL,
		Status:              e.Status,
		ContentType:         e.ContentType,
		Database:            e.Database(),
		Preflight:           e.IsPreflight,
		ParsedJSON:          jsonv.MarshalString(e.Parsed),
		RequestHeadersJSON:  string(reqHeaders),
		ResponseHeadersJSON: string(respHeaders),
		CreatedAt:           time.Now(),
	}
}

// ToEntry 把数据库记录还原为条目，损坏的摘要还原为 null
func ToEntry(rec *model.EntryRecord) domain.Entry {
	e := domain.Entry{
		Index:       rec.Idx,
		Timestamp:   rec.Timestamp,
		Method:      rec.Method,
		URL:         rec.URL,
		Status:      rec.Status,
		ContentType: rec.ContentType,
		IsPreflight: rec.Preflight,
		Parsed:      jsonv.Null{},
	}
	if v, err := jsonv.Parse(rec.ParsedJSON); err == nil {
		e.Parsed = v
	}
	_ = json.Unmarshal([]byte(rec.RequestHeadersJSON), &e.RequestHeaders)
	_ = json.Unmarshal([]byte(rec.ResponseHeadersJSON), &e.ResponseHeaders)
	return e
}

// EntryQuery 历史查询条件
type EntryQuery struct {
	SessionID string
	Database  string
	URL       string // 子串匹配
	Method    string
	StartTime int64
	EndTime   int64
	Offset    int
	Limit     int
}

// Apply 实现 Filter
func (q EntryQuery) Apply(db *gorm.DB) *gorm.DB {
	if q.SessionID != "" {
		db = db.Where("session_id = ?", q.SessionID)
	}
	if q.Database != "" {
		db = db.Where("db_name = ?", q.Database)
	}
	if q.URL != "" {
		db = db.Where("url LIKE ?", "%"+q.URL+"%")
	}
	if q.Method != "" {
		db = db.Where("method = ?", q.Method)
	}
	if q.StartTime > 0 {
		db = db.Where("timestamp >= ?", q.StartTime)
	}
	if q.EndTime > 0 {
		db = db.Where("timestamp <= ?", q.EndTime)
	}
	return db
}

// Query 查询历史条目，按会话与序号升序返回
func (r *EntryRepo) Query(ctx context.Context, q EntryQuery) ([]*model.EntryRecord, int64, error) {
	total, err := r.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	records := make([]*model.EntryRecord, 0)
	err = q.Apply(r.Db.WithContext(ctx).Model(&model.EntryRecord{})).
		Order("session_id ASC").
		Order("idx ASC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}

// SessionSummary 历史会话概览
type SessionSummary struct {
	SessionID string `json:"sessionId"`
	Count     int64  `json:"count"`
	FirstSeen int64  `json:"firstSeen"`
	LastSeen  int64  `json:"lastSeen"`
}

// Sessions 列出保存过的会话，最近的在前
func (r *EntryRepo) Sessions(ctx context.Context) ([]SessionSummary, error) {
	out := make([]SessionSummary, 0)
	err := r.Db.WithContext(ctx).Model(&model.EntryRecord{}).
		Select("session_id, COUNT(*) AS count, MIN(timestamp) AS first_seen, MAX(timestamp) AS last_seen").
		Group("session_id").
		Order("last_seen DESC").
		Scan(&out).Error
	return out, err
}

// DeleteBySession 删除指定会话的条目
func (r *EntryRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	return r.DeleteWhere(ctx, EntryQuery{SessionID: sessionID})
}

// DeleteBefore 删除早于指定时间戳（毫秒）的条目
func (r *EntryRepo) DeleteBefore(ctx context.Context, beforeTimestamp int64) (int64, error) {
	return r.DeleteWhere(ctx, FilterFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where("timestamp < ?", beforeTimestamp)
	}))
}

// CleanupOld 根据保留天数清理旧条目，retentionDays 非正时按 7 天
func (r *EntryRepo) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	return r.DeleteBefore(ctx, cutoff)
}

// ClearAll 清空所有条目
func (r *EntryRepo) ClearAll(ctx context.Context) error {
	_, err := r.DeleteWhere(ctx, nil)
	return err
}
