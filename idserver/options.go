package idserver

import (
	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/metrics"
	"github.com/ceyewan/snowgen/ratelimit"
)

// Option 组件初始化选项
type Option func(*options)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	limiter ratelimit.Limiter
}

// WithLogger 设置 Logger，自动附加 component=idserver 字段
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.With(clog.String("component", "idserver"))
		}
	}
}

// WithMeter 设置 Meter，同时用于 RED 指标与 /metrics 端点
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithRateLimiter 为 /v1/ids 启用按客户端 IP 的限流，规则取自 Config.RateLimit
func WithRateLimiter(limiter ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}
