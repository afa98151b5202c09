package logger_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"tddebugger/internal/config"
	"tddebugger/internal/logger"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, "warn")

	l.Debug("调试信息", "k", 1)
	l.Info("普通信息")
	if buf.Len() != 0 {
		t.Fatalf("warn 级别下不应输出 debug/info: %s", buf.String())
	}

	l.Warn("队列已满", "queueCap", 8)
	out := buf.String()
	if !strings.Contains(out, "队列已满") || !strings.Contains(out, `"queueCap":8`) {
		t.Errorf("warn 输出缺少字段: %s", out)
	}
}

func TestErr_IncludesError(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, "debug")
	l.Err(errors.New("boom"), "解析失败", "url", "https://a.com")

	out := buf.String()
	for _, want := range []string{"boom", "解析失败", "https://a.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("输出缺少 %q: %s", want, out)
		}
	}
}

func TestNew_NoWriters(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Log.Writer = nil
	l := logger.New(cfg)
	// 无输出目标时退化为空日志，调用不应 panic
	l.Info("noop")
	l.Err(errors.New("x"), "noop")
}

func TestNew_NilConfig(t *testing.T) {
	var l logger.Logger = logger.New(nil)
	l.Debug("noop")
}

func TestLogPath(t *testing.T) {
	path, err := logger.LogPath()
	if err != nil {
		t.Fatalf("获取日志路径失败: %v", err)
	}
	if !strings.Contains(path, config.AppName) || !strings.HasSuffix(path, "app.log") {
		t.Errorf("日志路径异常: %s", path)
	}
}
