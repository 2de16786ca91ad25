package idgen

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/metrics"
	"github.com/ceyewan/snowgen/xerrors"
)

// ========================================
// Allocator 接口 (Node Slot Allocation)
// ========================================

// Allocator 节点槽位分配器，用于在集群中为每个实例分配互不相同的 [0, 1024) 槽位
type Allocator interface {
	// Allocate 分配槽位
	Allocate(ctx context.Context) (int64, error)

	// KeepAlive 在后台保持租约。保活失败时向通道发送一个错误；
	// 保活正常结束（ctx 取消或 Stop）时通道被关闭。
	KeepAlive(ctx context.Context) <-chan error

	// Stop 停止保活并释放槽位，可重复调用
	Stop()
}

// NewAllocator 根据 cfg.Driver 创建分配器
//
// 使用示例:
//
//	alloc, _ := idgen.NewAllocator(&idgen.AllocatorConfig{
//	    Driver: "redis",
//	    MaxID:  512,
//	}, idgen.WithRedisConnector(redisConn))
//
//	slot, _ := alloc.Allocate(ctx)
//	defer alloc.Stop()
//
//	go func() {
//	    for err := range alloc.KeepAlive(ctx) {
//	        // 租约丢失
//	    }
//	}()
func NewAllocator(cfg *AllocatorConfig, opts ...Option) (Allocator, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, CodeConfigNil)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts...)
	base, err := newAllocatorBase(cfg, o)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverStatic:
		return newStaticAllocator(cfg.Slot, base), nil
	case DriverIP:
		return newIPAllocator(cfg.MaxID, base), nil
	case DriverRedis:
		if o.redisConn == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		return newRedisAllocator(cfg, o.redisConn, base), nil
	case DriverEtcd:
		if o.etcdConn == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "etcd_connector_required")
		}
		return newEtcdAllocator(cfg, o.etcdConn, base), nil
	default:
		return nil, xerrors.WithCode(ErrInvalidInput, CodeUnsupportedDriver)
	}
}

// ========================================
// 公共部分
// ========================================

// allocatorBase 各驱动共享的日志、指标与停止信号
type allocatorBase struct {
	driver string
	logger clog.Logger
	slotG  metrics.Gauge
	token  string

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newAllocatorBase(cfg *AllocatorConfig, o *options) (*allocatorBase, error) {
	slotG, err := o.meter.Gauge(MetricAllocatorSlot, "Node slot currently held by this instance, -1 when released.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create allocator slot gauge")
	}
	token := uuid.NewString()
	return &allocatorBase{
		driver: cfg.Driver,
		logger: o.logger.With(clog.String("driver", cfg.Driver), clog.String("token", token)),
		slotG:  slotG,
		token:  token,
		stopCh: make(chan struct{}),
	}, nil
}

func (b *allocatorBase) recordSlot(slot int64) {
	b.slotG.Set(context.Background(), float64(slot), metrics.L("driver", b.driver))
	dc, worker := SplitNodeID(slot)
	b.logger.Info("node slot allocated",
		clog.Int64("slot", slot),
		clog.Int64("datacenter_id", dc),
		clog.Int64("worker_id", worker),
	)
}

// releaseSlot 释放后将同一 driver 序列置为 -1
func (b *allocatorBase) releaseSlot() {
	b.slotG.Set(context.Background(), -1, metrics.L("driver", b.driver))
}

// stop 关闭停止信号，返回是否为首次调用
func (b *allocatorBase) stop() bool {
	first := false
	b.stopOnce.Do(func() {
		close(b.stopCh)
		first = true
	})
	return first
}

// stopped Stop 已被调用或 ctx 已取消
func (b *allocatorBase) stopped(ctx context.Context) bool {
	select {
	case <-b.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// idle 无需保活的驱动使用：等待 ctx 取消或 Stop 后关闭通道
func (b *allocatorBase) idle(ctx context.Context) <-chan error {
	errCh := make(chan error)
	go func() {
		defer close(errCh)
		select {
		case <-ctx.Done():
		case <-b.stopCh:
		}
	}()
	return errCh
}

// slotKey 返回槽位在 Redis / Etcd 中的键
func slotKey(prefix string, slot int64) string {
	return prefix + ":" + strconv.FormatInt(slot, 10)
}

// ========================================
// Static 实现
// ========================================

// staticAllocator 返回固定槽位，无需保活
type staticAllocator struct {
	*allocatorBase
	slot int64
}

func newStaticAllocator(slot int64, base *allocatorBase) *staticAllocator {
	return &staticAllocator{allocatorBase: base, slot: slot}
}

func (a *staticAllocator) Allocate(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	a.recordSlot(a.slot)
	return a.slot, nil
}

func (a *staticAllocator) KeepAlive(ctx context.Context) <-chan error {
	return a.idle(ctx)
}

func (a *staticAllocator) Stop() {
	if a.stop() {
		a.releaseSlot()
	}
}
