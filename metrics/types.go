// Package metrics 为 snowgen 提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，通过 Prometheus Exporter 暴露 Counter、Gauge、Histogram 指标。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "snowgen",
//	    Version:     "v1.0.0",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("idgen_snowflake_generated_total", "已生成的 ID 总数")
//	counter.Inc(ctx, metrics.L("worker_id", "1"))
//
//	// 挂载 Prometheus 采集端点
//	router.GET("/metrics", gin.WrapH(metrics.Handler(meter)))
//
// 未启用时 New 返回 noop 实现，组件未注入 Meter 时使用 Discard()。
package metrics

import "context"

// Label 指标的一个维度。值应取自有限集合，ID 本身、请求 ID 之类不能作为标签值。
type Label struct {
	Key   string
	Value string
}

// L 创建一个 Label
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// Counter 计数器，只增不减的累计值，例如已生成 ID 数、时钟回拨次数
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值，负数会被监控系统忽略
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘，可以任意增减的瞬时值，例如当前持有的节点槽位
//
// 使用示例：
//
//	gauge, _ := meter.Gauge("idgen_allocator_slot", "当前持有的节点槽位")
//	gauge.Set(ctx, 37, metrics.L("driver", "redis"))
type Gauge interface {
	// Set 将 gauge 设置为给定的值
	Set(ctx context.Context, val float64, labels ...Label)

	// Inc 将 gauge 增加 1
	Inc(ctx context.Context, labels ...Label)

	// Dec 将 gauge 减少 1
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图，记录值的分布，例如请求耗时、单次批量生成数量
type Histogram interface {
	// Record 在直方图中记录一个值
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂。创建的指标是并发安全的。
type Meter interface {
	// Counter 创建计数器，name 应符合 Prometheus 命名规范（如 http_requests_total）
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)

	// Gauge 创建仪表盘
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)

	// Histogram 创建直方图，可通过 WithBuckets 指定桶边界
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Shutdown 刷新并关闭 Meter，通常在程序退出时调用
	Shutdown(ctx context.Context) error
}

// MetricOption 指标配置选项
type MetricOption func(*MetricOptions)

// MetricOptions 创建指标时使用的选项
type MetricOptions struct {
	// Unit 指标单位，建议使用 UCUM 单位代码，如 "s"、"By"、"{id}"
	Unit string

	// Buckets 直方图的显式桶边界，仅对 Histogram 生效
	Buckets []float64
}

// WithUnit 设置指标的单位
//
//	histogram, _ := meter.Histogram("http_server_request_duration_seconds", "请求耗时", metrics.WithUnit("s"))
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图的桶边界
func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = append([]float64(nil), buckets...)
	}
}

func applyMetricOptions(opts ...MetricOption) *MetricOptions {
	o := &MetricOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
