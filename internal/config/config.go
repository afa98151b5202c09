package config

import (
	"os"

	"tddebugger/pkg/domain"
	"tddebugger/pkg/errx"

	"gopkg.in/yaml.v3"
)

// Config 配置文件结构体
type Config struct {
	Version string        `yaml:"version"`
	Sqlite  SqliteConfig  `yaml:"sqlite"`
	Log     LogConfig     `yaml:"log"`
	Capture CaptureConfig `yaml:"capture"`
}

// SqliteConfig 设置存储数据库
type SqliteConfig struct {
	Db     string `yaml:"db"`
	Prefix string `yaml:"prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string   `yaml:"level"`
	Writer []string `yaml:"writer"`
}

// CaptureConfig 捕获流水线配置
type CaptureConfig struct {
	DevToolsURL        string `yaml:"devtoolsURL"`
	VendorHeaderPrefix string `yaml:"vendorHeaderPrefix"` // 需要保留的厂商头部前缀
	Concurrency        int    `yaml:"concurrency"`        // 解析工作协程数
	QueueCapacity      int    `yaml:"queueCapacity"`      // 0 表示 concurrency * 8
	PendingTTLSeconds  int    `yaml:"pendingTTLSeconds"`  // 未完成请求的保留时间
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Sqlite: SqliteConfig{
			Db:     "settings.db",
			Prefix: "tddebugger_",
		},
		Log: LogConfig{
			Level: "info",
			// file需要在console之前，控制台不可写时不影响文件日志
			Writer: []string{"file", "console"},
		},
		Capture: CaptureConfig{
			DevToolsURL:        "http://localhost:9222",
			VendorHeaderPrefix: "x-td-",
			Concurrency:        4,
			PendingTTLSeconds:  120,
		},
	}
}

// Load 读取 YAML 配置文件，未出现的字段保留默认值
// path 为空时直接返回默认配置
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errx.Wrap(errx.CodeSettingsInvalid, err, "读取配置文件失败")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errx.Wrap(errx.CodeSettingsInvalid, err, "解析配置文件失败")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errx.Wrap(errx.CodeSettingsInvalid, domain.ErrInvalidConfig, "未知日志级别: "+c.Log.Level)
	}
	if c.Capture.Concurrency < 0 || c.Capture.QueueCapacity < 0 {
		return errx.Wrap(errx.CodeSettingsInvalid, domain.ErrInvalidConfig, "并发参数不能为负数")
	}
	return nil
}
