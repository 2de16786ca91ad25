// Package ratelimit 提供令牌桶限流，支持单机和分布式两种模式。
//
//   - 单机模式：基于 golang.org/x/time/rate 的内存限流，按 key 维护独立的令牌桶
//   - 分布式模式：基于 Redis + Lua 的令牌桶，多个实例共享同一配额
//
// 在 snowgen 中用于保护 ID 发号接口：批量请求 count=N 消耗 N 个令牌。
//
// 基本使用：
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{Mode: "standalone"},
//	    ratelimit.WithLogger(logger), ratelimit.WithMeter(meter))
//	defer limiter.Close()
//
//	allowed, _ := limiter.AllowN(ctx, "ip:10.0.0.1", ratelimit.Limit{Rate: 100, Burst: 200}, 10)
//	if !allowed {
//	    // 请求被限流
//	}
//
// 分布式模式：
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{Mode: "distributed", Prefix: "snowgen:ratelimit:"},
//	    ratelimit.WithRedisConnector(redisConn))
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/xerrors"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Limit 令牌桶规则
type Limit struct {
	Rate  float64 `json:"rate" yaml:"rate" mapstructure:"rate"`    // 每秒生成的令牌数
	Burst int     `json:"burst" yaml:"burst" mapstructure:"burst"` // 桶容量，即突发上限
}

// Valid 规则是否有效，无效规则视为不限流
func (l Limit) Valid() bool {
	return l.Rate > 0 && l.Burst > 0
}

// Limiter 限流器
type Limiter interface {
	// Allow 尝试获取 1 个令牌（非阻塞）
	Allow(ctx context.Context, key string, limit Limit) (bool, error)

	// AllowN 尝试获取 n 个令牌（非阻塞），n 超过 Burst 时必然被拒绝
	AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error)

	// Close 释放资源
	Close() error
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// 限流模式
const (
	ModeStandalone  = "standalone"
	ModeDistributed = "distributed"
)

// Config 限流器配置
type Config struct {
	// Mode "standalone" | "distributed"，默认 "standalone"
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Prefix 分布式模式下的 Redis Key 前缀，默认 "snowgen:ratelimit:"
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// CleanupInterval 单机模式清理空闲令牌桶的间隔，默认 1 分钟
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" mapstructure:"cleanup_interval"`

	// IdleTimeout 单机模式令牌桶空闲超时，默认 5 分钟
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// BreakerFailures 分布式模式下 Redis 连续失败多少次后熔断，默认 5
	BreakerFailures uint32 `json:"breaker_failures" yaml:"breaker_failures" mapstructure:"breaker_failures"`

	// BreakerTimeout 熔断持续时间，到期后放行一次探测请求，默认 10 秒
	BreakerTimeout time.Duration `json:"breaker_timeout" yaml:"breaker_timeout" mapstructure:"breaker_timeout"`
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = ModeStandalone
	}
	if c.Prefix == "" {
		c.Prefix = "snowgen:ratelimit:"
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 10 * time.Second
	}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 根据 cfg.Mode 创建限流器，cfg 为 nil 时使用单机模式默认配置
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	o := applyOptions(opts...)
	m, err := newLimiterMetrics(o.meter, cfg.Mode)
	if err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case ModeStandalone:
		o.logger.Info("creating standalone rate limiter",
			clog.Duration("cleanup_interval", cfg.CleanupInterval),
			clog.Duration("idle_timeout", cfg.IdleTimeout))
		return newStandalone(cfg, o.logger, m), nil
	case ModeDistributed:
		if o.redisConn == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		o.logger.Info("creating distributed rate limiter", clog.String("prefix", cfg.Prefix))
		return newDistributed(cfg, o.redisConn, o.logger, m), nil
	default:
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "ratelimit: unsupported mode %q", cfg.Mode)
	}
}

// checkArgs 两种模式共用的参数校验
func checkArgs(key string, limit Limit, n int) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if !limit.Valid() {
		return ErrInvalidLimit
	}
	if n <= 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "ratelimit: n must be positive, got %d", n)
	}
	return nil
}
