// Package trace 初始化 OpenTelemetry 链路追踪，并提供 Gin 中间件与 span 辅助函数。
//
//	shutdown, err := trace.Init(&cfg.Trace)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//
//	r.Use(trace.GinMiddleware("snowgen"))
//
// 关闭导出时 (enabled: false) 仍然安装 TracerProvider 与 W3C 传播器，
// 上游传入的 traceparent 会延续到日志与错误响应中。
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/snowgen/xerrors"
)

// ShutdownFunc 刷新并关闭 TracerProvider
type ShutdownFunc func(context.Context) error

const (
	instrumentationName = "github.com/ceyewan/snowgen"
	exportTimeout       = 5 * time.Second
)

// Init 按配置安装全局 TracerProvider，cfg.Enabled 为 false 时等价于 Discard。
func Init(cfg *Config) (ShutdownFunc, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return Discard(cfg.ServiceName)
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(exportTimeout),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create otlp exporter")
	}

	export := sdktrace.WithBatcher(exporter)
	if cfg.Batcher == "simple" {
		export = sdktrace.WithSyncer(exporter)
	}
	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Sampler))
	return install(cfg.ServiceName, sdktrace.WithSampler(sampler), export)
}

// Discard 安装不导出的 TracerProvider：照常生成 TraceID，只是不上报。
func Discard(serviceName string) (ShutdownFunc, error) {
	return install(serviceName, sdktrace.WithSampler(sdktrace.AlwaysSample()))
}

// install 创建 Provider 并设置为全局，传播格式为 W3C TraceContext + Baggage
func install(serviceName string, opts ...sdktrace.TracerProviderOption) (ShutdownFunc, error) {
	var attrs []resource.Option
	if serviceName != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	}
	res, err := resource.New(context.Background(), attrs...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create resource")
	}

	tp := sdktrace.NewTracerProvider(append(opts, sdktrace.WithResource(res))...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// Start 在 ctx 下开启一个 internal span，调用方负责 End
//
//	ctx, span := trace.Start(ctx, "idgen.next_ids", attribute.Int("idgen.count", n))
//	defer span.End()
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// Fail 在 span 上记录错误并标记为失败
func Fail(span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "config is required")
	}
	if !cfg.Enabled {
		return nil
	}
	switch {
	case cfg.ServiceName == "":
		return xerrors.Wrap(xerrors.ErrInvalidInput, "service_name is required")
	case cfg.Endpoint == "":
		return xerrors.Wrap(xerrors.ErrInvalidInput, "endpoint is required")
	case cfg.Sampler < 0 || cfg.Sampler > 1:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "sampler must be between 0 and 1, got %v", cfg.Sampler)
	case cfg.Batcher != "" && cfg.Batcher != "batch" && cfg.Batcher != "simple":
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "batcher must be \"batch\" or \"simple\", got %q", cfg.Batcher)
	}
	return nil
}
