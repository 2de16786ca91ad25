package clog

import (
	"bytes"
	"context"
	"log/slog"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// 链路字段名
const (
	TraceIDKey = "trace_id"
	SpanIDKey  = "span_id"
)

// ContextField 从 Context 中提取字段的规则
type ContextField struct {
	Key       any    // Context 中存储的键
	FieldName string // 日志中的字段名
}

// Option 函数式选项，用于配置 Logger 实例
type Option func(*options)

type options struct {
	namespace     []string
	contextFields []ContextField
	traceContext  bool
	buffer        *bytes.Buffer // Output="buffer" 时使用，仅测试
}

// WithNamespace 设置根命名空间
//
//	clog.New(cfg, clog.WithNamespace("snowgen"))
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespace = append(o.namespace, parts...)
	}
}

// WithContextField 按 key 从 Context 取值，以 fieldName 输出
func WithContextField(key any, fieldName string) Option {
	return func(o *options) {
		o.contextFields = append(o.contextFields, ContextField{Key: key, FieldName: fieldName})
	}
}

// WithTraceContext 从 Context 中的 OpenTelemetry span 提取 trace_id 与 span_id
func WithTraceContext() Option {
	return func(o *options) {
		o.traceContext = true
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) appendContext(ctx context.Context, attrs []slog.Attr) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	for _, cf := range o.contextFields {
		if val := ctx.Value(cf.Key); val != nil {
			attrs = append(attrs, slog.Any(cf.FieldName, val))
		}
	}
	if o.traceContext {
		if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs,
				slog.String(TraceIDKey, sc.TraceID().String()),
				slog.String(SpanIDKey, sc.SpanID().String()),
			)
		}
	}
	return attrs
}
