package idgen

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/connector"
	"github.com/ceyewan/snowgen/xerrors"
)

// allocateScript 从 offset 开始环形遍历，SET NX EX 抢占第一个空闲槽位
var allocateScript = redis.NewScript(`
local prefix = KEYS[1]
local token = ARGV[1]
local ttl = tonumber(ARGV[2])
local max_id = tonumber(ARGV[3])
local offset = tonumber(ARGV[4])

for i = 0, max_id - 1 do
	local id = (offset + i) % max_id
	if redis.call("SET", prefix .. ":" .. id, token, "NX", "EX", ttl) then
		return id
	end
end
return -1
`)

// renewScript 仅当槽位仍归本实例所有时续期，返回 0 表示租约已丢失
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript 仅当槽位仍归本实例所有时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisAllocator Redis 实现的槽位分配器
type redisAllocator struct {
	*allocatorBase
	redis connector.RedisConnector
	cfg   *AllocatorConfig

	mu   sync.Mutex
	slot int64
	key  string
}

func newRedisAllocator(cfg *AllocatorConfig, conn connector.RedisConnector, base *allocatorBase) *redisAllocator {
	return &redisAllocator{allocatorBase: base, redis: conn, cfg: cfg, slot: -1}
}

// Allocate 使用随机起点减少并发实例之间的冲突
func (a *redisAllocator) Allocate(ctx context.Context) (int64, error) {
	offset := rand.Int64N(int64(a.cfg.MaxID))
	result, err := allocateScript.Run(ctx, a.redis.GetClient(),
		[]string{a.cfg.KeyPrefix}, a.token, a.cfg.TTL, a.cfg.MaxID, offset).Int64()
	if err != nil {
		a.logger.Error("redis allocate script failed", clog.Error(err), clog.String("key_prefix", a.cfg.KeyPrefix))
		return 0, xerrors.Wrap(err, "redis allocate node slot")
	}
	if result < 0 {
		return 0, xerrors.WithCode(ErrWorkerIDExhausted, CodeNoAvailableWorkerID)
	}

	a.mu.Lock()
	a.slot = result
	a.key = slotKey(a.cfg.KeyPrefix, result)
	a.mu.Unlock()

	a.recordSlot(result)
	return result, nil
}

func (a *redisAllocator) currentKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.key
}

// KeepAlive 每 TTL/3 续期一次，续期失败或槽位被他人占用时发送错误并退出
func (a *redisAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	key := a.currentKey()
	if key == "" {
		errCh <- xerrors.Wrap(ErrInvalidInput, "keep alive called before allocate")
		close(errCh)
		return errCh
	}

	ttl := time.Duration(a.cfg.TTL) * time.Second
	go func() {
		defer close(errCh)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				renewed, err := renewScript.Run(ctx, a.redis.GetClient(), []string{key}, a.token, a.cfg.TTL).Int64()
				if err != nil {
					a.logger.Error("keep alive failed", clog.Error(err), clog.String("key", key))
					errCh <- xerrors.Wrap(err, "redis keep alive")
					return
				}
				if renewed == 0 {
					a.logger.Error("node slot lease lost", clog.String("key", key))
					errCh <- xerrors.WithCode(ErrLeaseExpired, CodeLeaseExpired)
					return
				}
			}
		}
	}()

	return errCh
}

// Stop 停止保活并删除仍归本实例所有的槽位键
func (a *redisAllocator) Stop() {
	if !a.stop() {
		return
	}
	key := a.currentKey()
	if key == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, a.redis.GetClient(), []string{key}, a.token).Err(); err != nil {
		a.logger.Warn("release node slot failed", clog.Error(err), clog.String("key", key))
		return
	}
	a.releaseSlot()
	a.logger.Info("node slot released", clog.String("key", key))
}
