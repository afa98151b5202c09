// Package app 组装存储、偏好与捕获流水线，供命令行各子命令共用
package app

import (
	"context"
	"time"

	"tddebugger/internal/capture"
	"tddebugger/internal/config"
	"tddebugger/internal/extractor"
	"tddebugger/internal/logger"
	"tddebugger/internal/parser"
	"tddebugger/internal/pool"
	"tddebugger/internal/prefs"
	"tddebugger/internal/session"
	"tddebugger/internal/storage/db"
	"tddebugger/internal/storage/model"
	"tddebugger/internal/storage/repo"
	"tddebugger/pkg/domain"

	"gorm.io/gorm"
	gl "gorm.io/gorm/logger"
)

// App 持有数据库、仓库与偏好存储
type App struct {
	Config   *config.Config
	Log      logger.Logger
	gdb      *gorm.DB
	Settings *repo.SettingsRepo
	Entries  *repo.EntryRepo
	Prefs    *prefs.Store
}

// Open 初始化数据库与仓库
func Open(cfg *config.Config, l logger.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if l == nil {
		l = logger.NewNop()
	}

	gormLogger := db.NewLogger(l)
	if cfg.Log.Level == "debug" {
		gormLogger.LogLevel = gl.Info
	}
	gdb, err := db.New(db.Options{
		Name:   cfg.Sqlite.Db,
		Prefix: cfg.Sqlite.Prefix,
		Logger: gormLogger,
	})
	if err != nil {
		l.Err(err, "数据库初始化失败")
		return nil, err
	}
	if err := db.Migrate(gdb, model.All()...); err != nil {
		l.Err(err, "数据库迁移失败")
		_ = db.Close(gdb)
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Log:      l,
		gdb:      gdb,
		Settings: repo.NewSettingsRepo(gdb),
	}
	a.Entries = repo.NewEntryRepo(gdb, repo.EntryRepoOptions{Logger: l})
	a.Prefs = prefs.New(a.Settings, l)
	l.Debug("数据持久化层初始化完成", "db", cfg.Sqlite.Db)
	return a, nil
}

// Close 刷新历史缓冲并关闭数据库
func (a *App) Close() {
	if a.Entries != nil {
		a.Entries.Stop()
	}
	if a.gdb != nil {
		if err := db.Close(a.gdb); err != nil {
			a.Log.Err(err, "关闭数据库失败")
		}
	}
}

// PipelineOptions 流水线构造选项
type PipelineOptions struct {
	// Sink 每个完成的条目都会回调
	Sink capture.Sink
	// Save 为 true 时条目同时写入历史
	Save bool
}

// Capture 一次捕获所需的流水线及其资源
type Capture struct {
	Pipeline *capture.Pipeline
	pool     *pool.Pool
}

// Wait 等待所有条目处理完毕
func (c *Capture) Wait() {
	c.Pipeline.Wait()
}

// Close 等待处理完毕并停止任务池
func (c *Capture) Close() {
	c.Pipeline.Wait()
	c.pool.Close()
}

// NewCapture 按当前偏好组装捕获流水线
func (a *App) NewCapture(ctx context.Context, opts PipelineOptions) (*Capture, error) {
	custom, err := a.Prefs.LoadCustomExtractors(ctx)
	if err != nil {
		return nil, err
	}
	capOpts, err := a.Prefs.LoadCaptureOptions(ctx)
	if err != nil {
		return nil, err
	}
	capOpts.VendorPrefix = a.Config.Capture.VendorHeaderPrefix

	registry := extractor.NewRegistry(a.Log, custom...)
	p := pool.New(a.Config.Capture.Concurrency, a.Config.Capture.QueueCapacity, a.Log)
	p.Start(ctx)

	sess := session.New("")
	sink := opts.Sink
	if opts.Save {
		sink = a.recordingSink(sess.ID, sink)
	}

	pl := capture.New(capture.Config{
		Session: sess,
		Parser:  parser.New(registry, a.Prefs, a.Log),
		Pool:    p,
		Sink:    sink,
		Logger:  a.Log,
		Options: capOpts,
	})
	a.Log.Info("捕获流水线已就绪", "session", string(sess.ID), "hosts", capOpts.Hosts,
		"extractors", registry.Names(), "save", opts.Save)
	return &Capture{Pipeline: pl, pool: p}, nil
}

func (a *App) recordingSink(id domain.SessionID, next capture.Sink) capture.Sink {
	return func(e domain.Entry) {
		a.Entries.Record(id, e)
		if next != nil {
			next(e)
		}
	}
}

// PendingTTL 未完成请求的保留时间
func (a *App) PendingTTL() time.Duration {
	if s := a.Config.Capture.PendingTTLSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 0
}
