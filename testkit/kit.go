// Package testkit 提供测试共用的依赖构造：logger、meter、外部连接器和唯一 ID。
//
// 需要 Redis/Etcd 的测试通过 GetRedisConnector / GetEtcdConnector 获取连接，
// 后端不可达时自动 Skip，默认地址可通过环境变量覆盖：
//
//	SNOWGEN_TEST_REDIS_ADDR=127.0.0.1:6379
//	SNOWGEN_TEST_ETCD_ENDPOINTS=127.0.0.1:2379,127.0.0.1:22379
package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包，Meter 在测试结束时关闭
func NewKit(t *testing.T) *Kit {
	t.Helper()
	meter := NewMeter()
	t.Cleanup(func() {
		_ = meter.Shutdown(context.Background())
	})
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回一个用于测试的 logger，输出 warn 及以上级别到 stderr
func NewLogger() clog.Logger {
	logger, err := clog.New(&clog.Config{Level: "warn", Format: "console", Output: "stderr"}, clog.WithTraceContext())
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，创建失败时退化为 Discard
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("snowgen-test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回一个带有超时的测试上下文，超时在测试结束时释放
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)，用于生成互不冲突的 Key 前缀
func NewID() string {
	return uuid.New().String()[0:8]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
