package idgen

import (
	"context"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/xerrors"
)

// NewFromAllocator 通过分配器获取节点槽位并创建生成器
//
// 槽位高 5 位作为数据中心 ID，低 5 位作为工作节点 ID。创建成功后在后台保活，
// 保活失败时生成器熔断：此后 NextID 返回 ErrLeaseExpired，避免与接手该槽位的
// 实例产生重复 ID。Close 停止保活并释放槽位。
//
// ctx 只约束分配过程，保活的生命周期由 Close 控制。
//
// 使用示例:
//
//	sf, err := idgen.NewFromAllocator(ctx, alloc, idgen.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer sf.Close()
func NewFromAllocator(ctx context.Context, alloc Allocator, opts ...Option) (*Snowflake, error) {
	if alloc == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, CodeConfigNil)
	}

	slot, err := alloc.Allocate(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "allocate node slot")
	}

	datacenterID, workerID := SplitNodeID(slot)
	sf, err := NewSnowflake(workerID, datacenterID, opts...)
	if err != nil {
		alloc.Stop()
		return nil, err
	}

	kaCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	errCh := alloc.KeepAlive(kaCtx)
	go sf.watchLease(errCh)

	sf.release = func() {
		cancel()
		alloc.Stop()
	}
	return sf, nil
}

// watchLease 消费保活错误，任一错误都会使生成器熔断
func (s *Snowflake) watchLease(errCh <-chan error) {
	for err := range errCh {
		if s.leaseLost.Swap(true) {
			continue
		}
		s.metrics.incLeaseLost()
		s.logger.Error("node slot lease lost, generator disabled",
			clog.Error(err),
			clog.Int64("datacenter_id", s.datacenterID),
			clog.Int64("worker_id", s.workerID),
		)
	}
}
