package ratelimit

import (
	"context"

	"github.com/ceyewan/snowgen/metrics"
	"github.com/ceyewan/snowgen/xerrors"
)

// Metrics 指标常量定义
const (
	// MetricAllowed 允许通过的请求数 (Counter)
	MetricAllowed = "ratelimit_allowed_total"

	// MetricDenied 被拒绝的请求数 (Counter)
	MetricDenied = "ratelimit_denied_total"

	// LabelMode 模式标签 (standalone/distributed)
	LabelMode = "mode"
)

type limiterMetrics struct {
	allowed metrics.Counter
	denied  metrics.Counter
	mode    metrics.Label
}

func newLimiterMetrics(meter metrics.Meter, mode string) (*limiterMetrics, error) {
	allowed, err := meter.Counter(MetricAllowed, "Number of requests allowed by the rate limiter.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create allowed counter")
	}
	denied, err := meter.Counter(MetricDenied, "Number of requests denied by the rate limiter.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create denied counter")
	}
	return &limiterMetrics{allowed: allowed, denied: denied, mode: metrics.L(LabelMode, mode)}, nil
}

func (m *limiterMetrics) record(ctx context.Context, allowed bool) {
	if allowed {
		m.allowed.Inc(ctx, m.mode)
		return
	}
	m.denied.Inc(ctx, m.mode)
}
