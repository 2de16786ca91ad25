package clog

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// NamespaceKey 是日志中命名空间的字段名
const NamespaceKey = "namespace"

type logger struct {
	handler   *handler
	opts      *options
	namespace string
	attrs     []slog.Attr
}

func (l *logger) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields)
}

func (l *logger) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields)
}

func (l *logger) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields)
}

func (l *logger) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields)
}

func (l *logger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *logger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *logger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *logger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *logger) With(fields ...Field) Logger {
	// 新切片，兄弟 Logger 之间不共享底层数组
	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, fields...)

	child := *l
	child.attrs = attrs
	return &child
}

func (l *logger) WithNamespace(parts ...string) Logger {
	if len(parts) == 0 {
		return l
	}
	ns := strings.Join(parts, ".")
	if l.namespace != "" {
		ns = l.namespace + "." + ns
	}

	child := *l
	child.namespace = ns
	return &child
}

func (l *logger) SetLevel(level Level) error {
	return l.handler.setLevel(level)
}

func (l *logger) Flush() {
	l.handler.flush()
}

// log 按 预设字段 -> 调用字段 -> context 字段 -> 命名空间 的顺序组装记录
func (l *logger) log(ctx context.Context, level Level, msg string, fields []Field) {
	if !l.handler.Enabled(ctx, level.slogLevel()) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields)+4)
	attrs = append(attrs, l.attrs...)
	for _, f := range fields {
		if f.Key != "" {
			attrs = append(attrs, f)
		}
	}
	attrs = l.opts.appendContext(ctx, attrs)
	if ns := l.namespaceOf(); ns != "" {
		attrs = append(attrs, slog.String(NamespaceKey, ns))
	}

	// 跳过 runtime.Callers、log 以及 Info 等导出方法
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level.slogLevel(), msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, r)
}

func (l *logger) namespaceOf() string {
	root := strings.Join(l.opts.namespace, ".")
	switch {
	case root == "":
		return l.namespace
	case l.namespace == "":
		return root
	default:
		return root + "." + l.namespace
	}
}
