// Package idgen 提供 64 位 Snowflake ID 生成能力。
//
// 位布局：1 bit 符号位（恒为 0）+ 41 bit 相对纪元的毫秒增量 + 5 bit 数据中心 ID
// + 5 bit 工作节点 ID + 12 bit 毫秒内序列号。同一实例生成的 ID 严格递增，
// (datacenterID, workerID) 不同的实例之间无需协调即可保证不冲突。
//
// 节点 ID 的来源由调用方决定：静态配置，或通过 Allocator 从 Redis / Etcd 抢占
// [0, 1024) 中的一个槽位，槽位高 5 位为数据中心 ID，低 5 位为工作节点 ID。
//
// 基本使用：
//
//	sf, err := idgen.New(&idgen.Config{WorkerID: 1, DatacenterID: 1},
//	    idgen.WithLogger(logger), idgen.WithMeter(meter))
//	if err != nil {
//	    return err
//	}
//	id, err := sf.NextID()
//
// 使用分配器：
//
//	alloc, _ := idgen.NewAllocator(&idgen.AllocatorConfig{Driver: "redis"},
//	    idgen.WithRedisConnector(redisConn))
//	sf, err := idgen.NewFromAllocator(ctx, alloc, idgen.WithLogger(logger))
//	defer sf.Close()
package idgen

import "github.com/ceyewan/snowgen/xerrors"

// Generator ID 生成器接口，*Snowflake 实现了该接口
type Generator interface {
	// NextID 生成下一个 ID
	NextID() (ID, error)
}

var _ Generator = (*Snowflake)(nil)

// New 根据配置创建 Snowflake 生成器，opts 中的 WithEpoch 会覆盖 cfg.Epoch
func New(cfg *Config, opts ...Option) (*Snowflake, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, CodeConfigNil)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts = append([]Option{WithEpoch(cfg.Epoch)}, opts...)
	return NewSnowflake(cfg.WorkerID, cfg.DatacenterID, opts...)
}
