package idgen

import (
	"context"
	"strconv"

	"github.com/ceyewan/snowgen/metrics"
	"github.com/ceyewan/snowgen/xerrors"
)

// 指标名称
const (
	// MetricSnowflakeGenerated 已生成的 ID 总数 (Counter)
	MetricSnowflakeGenerated = "idgen_snowflake_generated_total"

	// MetricClockBackwards 因时钟回拨被拒绝的次数 (Counter)
	MetricClockBackwards = "idgen_clock_backwards_total"

	// MetricSequenceExhausted 单毫秒序列号耗尽、等待下一毫秒的次数 (Counter)
	MetricSequenceExhausted = "idgen_sequence_exhausted_total"

	// MetricAllocatorSlot 当前持有的节点槽位 (Gauge)
	MetricAllocatorSlot = "idgen_allocator_slot"

	// MetricLeaseLost 租约丢失次数 (Counter)
	MetricLeaseLost = "idgen_lease_lost_total"
)

type snowflakeMetrics struct {
	generated metrics.Counter
	backwards metrics.Counter
	exhausted metrics.Counter
	leaseLost metrics.Counter
	labels    []metrics.Label
}

func newSnowflakeMetrics(meter metrics.Meter, datacenterID, workerID int64) (*snowflakeMetrics, error) {
	generated, err := meter.Counter(MetricSnowflakeGenerated, "Total number of snowflake ids generated.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create generated counter")
	}
	backwards, err := meter.Counter(MetricClockBackwards, "Number of id requests refused because the clock moved backwards.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create clock backwards counter")
	}
	exhausted, err := meter.Counter(MetricSequenceExhausted, "Number of times the per-millisecond sequence was exhausted.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create sequence exhausted counter")
	}
	leaseLost, err := meter.Counter(MetricLeaseLost, "Number of node slot leases lost.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create lease lost counter")
	}

	return &snowflakeMetrics{
		generated: generated,
		backwards: backwards,
		exhausted: exhausted,
		leaseLost: leaseLost,
		labels: []metrics.Label{
			metrics.L("datacenter_id", strconv.FormatInt(datacenterID, 10)),
			metrics.L("worker_id", strconv.FormatInt(workerID, 10)),
		},
	}, nil
}

func (m *snowflakeMetrics) incGenerated() { m.generated.Inc(context.Background(), m.labels...) }
func (m *snowflakeMetrics) incBackwards() { m.backwards.Inc(context.Background(), m.labels...) }
func (m *snowflakeMetrics) incExhausted() { m.exhausted.Inc(context.Background(), m.labels...) }
func (m *snowflakeMetrics) incLeaseLost() { m.leaseLost.Inc(context.Background(), m.labels...) }
