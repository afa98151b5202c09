package domain

import "errors"

// 会话相关错误
var (
	ErrSessionNotFound = errors.New("session not found")
)

// 目标相关错误
var (
	ErrNoTargetAttached = errors.New("no target attached")
	ErrTargetNotFound   = errors.New("target not found")
)

// 连接相关错误
var (
	ErrDevToolsUnreachable = errors.New("devtools unreachable")
)

// 配置相关错误
var (
	ErrInvalidConfig   = errors.New("invalid config")
	ErrInvalidSettings = errors.New("invalid settings")
)

// 数据库相关错误
var (
	ErrRecordNotFound = errors.New("record not found")
)

// 捕获文件相关错误
var (
	ErrInvalidHAR = errors.New("invalid har")
)
