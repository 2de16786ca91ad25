package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/connector"
	"github.com/ceyewan/snowgen/xerrors"
)

// tokenBucketScript 以"下一次可放行时间"表示令牌桶状态
//
//	KEYS[1]: 限流键
//	ARGV[1]: rate，每秒令牌数
//	ARGV[2]: burst，桶容量
//	ARGV[3]: now，秒（浮点）
//	ARGV[4]: 本次消耗的令牌数
//
// 返回 {allowed, remaining}
var tokenBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local interval = 1 / rate
local fill_time = capacity * interval

local last = tonumber(redis.call("GET", KEYS[1]))
if last == nil then
  last = now
end

local next_available = math.max(last, now)
local new_next = next_available + requested * interval
local allow_at_most = now + fill_time

if new_next <= allow_at_most then
  redis.call("SET", KEYS[1], new_next, "EX", math.ceil(fill_time * 2))
  return {1, math.floor((allow_at_most - new_next) / interval)}
end
return {0, math.floor((allow_at_most - next_available) / interval)}
`)

// distributedLimiter 分布式限流器，连接由 Connector 管理。
// Redis 连续失败 BreakerFailures 次后熔断，BreakerTimeout 内直接返回 ErrBreakerOpen。
type distributedLimiter struct {
	client  *redis.Client
	prefix  string
	logger  clog.Logger
	metrics *limiterMetrics
	breaker *gobreaker.CircuitBreaker[[]int64]
}

func newDistributed(cfg *Config, redisConn connector.RedisConnector, logger clog.Logger, m *limiterMetrics) *distributedLimiter {
	return newDistributedWithClient(cfg, redisConn.GetClient(), logger, m)
}

func newDistributedWithClient(cfg *Config, client *redis.Client, logger clog.Logger, m *limiterMetrics) *distributedLimiter {
	l := &distributedLimiter{
		client:  client,
		prefix:  cfg.Prefix,
		logger:  logger,
		metrics: m,
	}
	l.breaker = gobreaker.NewCircuitBreaker[[]int64](gobreaker.Settings{
		Name:        "ratelimit-redis",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("rate limit breaker state changed",
				clog.String("breaker", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
	})
	return l
}

func (l *distributedLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *distributedLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if err := checkArgs(key, limit, n); err != nil {
		return false, err
	}

	now := float64(time.Now().UnixNano()) / 1e9
	res, err := l.breaker.Execute(func() ([]int64, error) {
		return tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key}, limit.Rate, limit.Burst, now, n).Int64Slice()
	})
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, xerrors.Wrap(ErrBreakerOpen, err.Error())
	}
	if err != nil {
		l.logger.Error("rate limit script failed", clog.String("key", key), clog.Error(err))
		return false, xerrors.Wrap(err, "ratelimit: execute token bucket script")
	}
	if len(res) != 2 {
		return false, xerrors.New("ratelimit: invalid token bucket script result")
	}

	allowed := res[0] == 1
	l.metrics.record(ctx, allowed)
	l.logger.Debug("rate limit check",
		clog.String("key", key),
		clog.Bool("allowed", allowed),
		clog.Int64("remaining", res[1]),
		clog.Int("requested", n))

	return allowed, nil
}

func (l *distributedLimiter) Close() error {
	return nil
}
