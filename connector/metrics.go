package connector

import (
	"context"

	"github.com/ceyewan/snowgen/metrics"
	"github.com/ceyewan/snowgen/xerrors"
)

// 连接器指标名称
const (
	MetricConnectAttempts = "connector_connect_attempts_total"
	MetricUp              = "connector_up"
)

// connMetrics 连接尝试计数与连接状态
type connMetrics struct {
	attempts metrics.Counter
	up       metrics.Gauge
	labels   []metrics.Label
}

func newConnMetrics(meter metrics.Meter, kind, name string) (*connMetrics, error) {
	attempts, err := meter.Counter(MetricConnectAttempts, "Number of connector connect attempts.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create connect attempts counter")
	}
	up, err := meter.Gauge(MetricUp, "Whether the connector is currently healthy (1) or not (0).")
	if err != nil {
		return nil, xerrors.Wrap(err, "create connector up gauge")
	}
	return &connMetrics{
		attempts: attempts,
		up:       up,
		labels:   []metrics.Label{metrics.L("connector", kind), metrics.L("name", name)},
	}, nil
}

func (m *connMetrics) attempt(ctx context.Context, err error) {
	result := metrics.OutcomeSuccess
	if err != nil {
		result = metrics.OutcomeError
	}
	m.attempts.Inc(ctx, append(m.labels, metrics.L(metrics.LabelOutcome, result))...)
}

func (m *connMetrics) setUp(ctx context.Context, healthy bool) {
	val := 0.0
	if healthy {
		val = 1
	}
	m.up.Set(ctx, val, m.labels...)
}
