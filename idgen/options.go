package idgen

import (
	"time"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/connector"
	"github.com/ceyewan/snowgen/metrics"
)

// Option 组件初始化选项
type Option func(*options)

type options struct {
	epoch  int64
	clock  func() int64
	logger clog.Logger
	meter  metrics.Meter

	redisConn connector.RedisConnector
	etcdConn  connector.EtcdConnector
}

func defaultOptions() *options {
	return &options{
		epoch:  DefaultEpoch,
		clock:  wallClock,
		logger: clog.Discard(),
		meter:  metrics.Discard(),
	}
}

func applyOptions(opts ...Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// wallClock 当前墙上时间 (Unix 毫秒)
func wallClock() int64 {
	return time.Now().UnixMilli()
}

// WithEpoch 设置纪元 (Unix 毫秒)，默认 DefaultEpoch
func WithEpoch(epoch int64) Option {
	return func(o *options) {
		o.epoch = epoch
	}
}

// WithClock 替换毫秒时钟，主要用于测试
func WithClock(clock func() int64) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger 设置 Logger，自动附加 component=idgen 字段
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.With(clog.String("component", "idgen"))
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithRedisConnector 设置 Redis 连接器 (driver=redis 时必需)
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = conn
	}
}

// WithEtcdConnector 设置 Etcd 连接器 (driver=etcd 时必需)
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *options) {
		o.etcdConn = conn
	}
}
