package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/snowgen/clog"
)

// limiterWrapper 包装 rate.Limiter 并记录最后访问时间
type limiterWrapper struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

// standaloneLimiter 单机限流器
type standaloneLimiter struct {
	cfg      *Config
	logger   clog.Logger
	metrics  *limiterMetrics
	limiters sync.Map // map[string]*limiterWrapper

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newStandalone(cfg *Config, logger clog.Logger, m *limiterMetrics) *standaloneLimiter {
	l := &standaloneLimiter{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		stopCh:  make(chan struct{}),
	}
	go l.cleanup(cfg.CleanupInterval, cfg.IdleTimeout)
	return l
}

func (l *standaloneLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *standaloneLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if err := checkArgs(key, limit, n); err != nil {
		return false, err
	}

	w := l.getLimiter(key, limit)

	now := time.Now()
	w.mu.Lock()
	allowed := w.limiter.AllowN(now, n)
	w.lastSeen = now
	w.mu.Unlock()

	l.metrics.record(ctx, allowed)
	l.logger.Debug("rate limit check",
		clog.String("key", key),
		clog.Bool("allowed", allowed),
		clog.Float64("rate", limit.Rate),
		clog.Int("burst", limit.Burst),
		clog.Int("requested", n))

	return allowed, nil
}

// getLimiter 获取或创建 key 对应的令牌桶，规则不同的同名 key 互不影响
func (l *standaloneLimiter) getLimiter(key string, limit Limit) *limiterWrapper {
	cacheKey := fmt.Sprintf("%s:%v:%d", key, limit.Rate, limit.Burst)

	if v, ok := l.limiters.Load(cacheKey); ok {
		return v.(*limiterWrapper)
	}

	w := &limiterWrapper{
		limiter:  rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.limiters.LoadOrStore(cacheKey, w)
	return actual.(*limiterWrapper)
}

// cleanup 定期清理空闲的令牌桶
func (l *standaloneLimiter) cleanup(interval, idleTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep(time.Now(), idleTimeout)
		case <-l.stopCh:
			return
		}
	}
}

func (l *standaloneLimiter) sweep(now time.Time, idleTimeout time.Duration) int {
	count := 0
	l.limiters.Range(func(key, value any) bool {
		w := value.(*limiterWrapper)
		w.mu.Lock()
		idle := now.Sub(w.lastSeen)
		w.mu.Unlock()

		if idle > idleTimeout {
			l.limiters.Delete(key)
			count++
		}
		return true
	})
	if count > 0 {
		l.logger.Debug("cleaned up idle limiters", clog.Int("count", count))
	}
	return count
}

// Close 停止清理 goroutine，可重复调用
func (l *standaloneLimiter) Close() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	return nil
}
