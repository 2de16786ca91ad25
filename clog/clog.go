// Package clog 为 snowgen 提供基于 slog 的结构化日志组件。
//
// 组件通过 Logger 接口记录日志，不直接依赖 slog；未注入时使用 Discard()。
// 子 Logger 由 With（预设字段）和 WithNamespace（层级命名空间）派生，
// 派生出的 Logger 共享同一个 handler，因此 SetLevel 对整棵树生效。
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"})
//	logger.Info("snowflake generator created", clog.Int64("worker_id", 1))
//
// 关联链路：
//
//	logger, _ := clog.New(cfg, clog.WithTraceContext())
//	logger.ErrorContext(c.Request.Context(), "generate id failed", clog.Error(err))
//	// 输出中带有 trace_id、span_id
package clog

import (
	"context"
	"fmt"
)

// Logger 结构化日志接口
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// 带 Context 的版本会附加 WithContextField / WithTraceContext 配置的字段
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	// With 派生带有预设字段的子 Logger
	//
	//	allocLogger := logger.With(clog.String("driver", "redis"))
	With(fields ...Field) Logger

	// WithNamespace 派生扩展命名空间的子 Logger，多级以 "." 连接
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，配置热更新时调用
	SetLevel(level Level) error

	// Flush 输出到文件时同步落盘
	Flush()
}

// New 创建 Logger，config 为 nil 时使用开发环境默认配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("")
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := applyOptions(opts...)
	h, err := newHandler(config, o)
	if err != nil {
		return nil, err
	}
	return &logger{handler: h, opts: o}, nil
}

// Must 类似 New，出错时 panic。仅用于初始化阶段。
func Must(config *Config, opts ...Option) Logger {
	l, err := New(config, opts...)
	if err != nil {
		panic(fmt.Sprintf("clog: %v", err))
	}
	return l
}
