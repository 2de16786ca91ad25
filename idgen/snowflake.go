package idgen

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/xerrors"
)

// Snowflake 雪花算法生成器
//
// 同一实例上的 NextID 互斥执行：读时钟、比较、更新序列号、必要时自旋等待下一毫秒，
// 全程持有同一把锁。不同实例之间不共享任何状态。
type Snowflake struct {
	mu            sync.Mutex
	lastTimestamp int64 // -1 表示尚未生成过
	sequence      int64

	workerID     int64
	datacenterID int64
	epoch        int64
	clock        func() int64

	logger  clog.Logger
	metrics *snowflakeMetrics

	// 租约熔断，仅由 NewFromAllocator 创建的实例使用
	leaseLost atomic.Bool
	release   func()
	closeOnce sync.Once
}

// NewSnowflake 创建 Snowflake 生成器
//
// 参数:
//   - workerID: 工作节点 ID [0, 31]
//   - datacenterID: 数据中心 ID [0, 31]
//   - opts: WithEpoch / WithClock / WithLogger / WithMeter
//
// 越界时返回 *ConfigError（errors.Is(err, ErrInvalidInput) 成立），不返回实例。
// 纪元必须满足 0 <= epoch <= 当前时钟。
//
// 使用示例:
//
//	sf, err := idgen.NewSnowflake(1, 1, idgen.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	id, err := sf.NextID()
func NewSnowflake(workerID, datacenterID int64, opts ...Option) (*Snowflake, error) {
	o := applyOptions(opts...)

	if err := checkRange("worker_id", CodeWorkerIDOutOfRange, workerID, 0, MaxWorkerID); err != nil {
		return nil, err
	}
	if err := checkRange("datacenter_id", CodeDatacenterIDOutOfRange, datacenterID, 0, MaxDatacenterID); err != nil {
		return nil, err
	}
	if err := checkRange("epoch", CodeEpochInvalid, o.epoch, 0, o.clock()); err != nil {
		return nil, err
	}

	m, err := newSnowflakeMetrics(o.meter, datacenterID, workerID)
	if err != nil {
		return nil, err
	}

	sf := &Snowflake{
		lastTimestamp: -1,
		workerID:      workerID,
		datacenterID:  datacenterID,
		epoch:         o.epoch,
		clock:         o.clock,
		logger:        o.logger,
		metrics:       m,
	}

	sf.logger.Info("snowflake generator created",
		clog.Int64("worker_id", workerID),
		clog.Int64("datacenter_id", datacenterID),
		clog.Int64("epoch", o.epoch),
	)
	return sf, nil
}

// NextID 生成下一个 ID
//
// 同一毫秒内序列号耗尽时阻塞到时钟前进；时钟回拨时返回 *ClockBackwardsError，
// 此时不修改任何状态，时钟追上后可以继续生成。
func (s *Snowflake) NextID() (ID, error) {
	if s.leaseLost.Load() {
		return 0, xerrors.WithCode(ErrLeaseExpired, CodeLeaseExpired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if now < s.lastTimestamp {
		return 0, s.refuseBackwards(s.lastTimestamp, now)
	}

	sequence := int64(0)
	if now == s.lastTimestamp {
		sequence = (s.sequence + 1) & MaxSequence
		if sequence == 0 {
			s.metrics.incExhausted()
			s.logger.Debug("sequence exhausted, waiting for next millisecond",
				clog.Int64("timestamp", s.lastTimestamp))
			now = s.tilNextMillis(s.lastTimestamp)
		}
	}

	delta := now - s.epoch
	if delta < 0 {
		// 首次生成前时钟被拨到纪元之前
		return 0, s.refuseBackwards(s.epoch, now)
	}
	if delta > MaxTimestamp {
		return 0, xerrors.WithCode(
			xerrors.Wrapf(ErrTimestampOverflow, "delta %d exceeds %d bits", delta, TimestampBits),
			CodeTimestampOverflow)
	}

	s.sequence = sequence
	s.lastTimestamp = now
	s.metrics.incGenerated()

	return pack(delta, s.datacenterID, s.workerID, sequence), nil
}

// MustNextID 类似 NextID，出错时 panic
func (s *Snowflake) MustNextID() ID {
	return xerrors.Must(s.NextID())
}

func (s *Snowflake) refuseBackwards(last, now int64) error {
	err := &ClockBackwardsError{Last: last, Now: now}
	s.metrics.incBackwards()
	s.logger.Warn("clock moved backwards, refusing to generate id",
		clog.Int64("last_timestamp", last),
		clog.Int64("now", now),
		clog.Duration("drift", err.Drift()),
	)
	return xerrors.WithCode(err, CodeClockBackwards)
}

// tilNextMillis 自旋直到时钟严格大于 last，轮询间让出处理器
func (s *Snowflake) tilNextMillis(last int64) int64 {
	now := s.clock()
	for now <= last {
		runtime.Gosched()
		now = s.clock()
	}
	return now
}

// WorkerID 返回工作节点 ID
func (s *Snowflake) WorkerID() int64 { return s.workerID }

// DatacenterID 返回数据中心 ID
func (s *Snowflake) DatacenterID() int64 { return s.datacenterID }

// Epoch 返回纪元 (Unix 毫秒)
func (s *Snowflake) Epoch() int64 { return s.epoch }

// Decode 使用本实例的纪元解码 ID
func (s *Snowflake) Decode(id ID) Parts { return Decode(id, s.epoch) }

// Healthy 租约是否仍然有效；静态构造的实例始终为 true
func (s *Snowflake) Healthy() bool { return !s.leaseLost.Load() }

// Close 停止租约保活并释放节点槽位，可重复调用
func (s *Snowflake) Close() error {
	s.closeOnce.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
	return nil
}
