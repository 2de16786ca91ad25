package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/snowgen/connector"
)

// GetRedisConfig 返回 Redis 测试配置，使用 DB 1 避免与默认 DB 冲突
func GetRedisConfig() *connector.RedisConfig {
	return &connector.RedisConfig{
		Name:        "test-redis",
		Addr:        envOr("SNOWGEN_TEST_REDIS_ADDR", "localhost:6379"),
		DB:          1,
		PoolSize:    10,
		DialTimeout: time.Second,
	}
}

// GetRedisConnector 获取已连接的 Redis 连接器，Redis 不可达时跳过测试
func GetRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	conn, err := connector.NewRedis(GetRedisConfig(), connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create redis connector: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return conn
}

// GetRedisClient 获取原生 Redis 客户端
func GetRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	return GetRedisConnector(t).GetClient()
}

// CleanRedisPrefix 删除指定前缀下的所有 key，通常注册在 t.Cleanup 中
func CleanRedisPrefix(t *testing.T, client *redis.Client, prefix string) {
	t.Helper()
	ctx := context.Background()
	iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = client.Del(ctx, iter.Val()).Err()
	}
	if err := iter.Err(); err != nil {
		t.Logf("clean redis prefix %s: %v", prefix, err)
	}
}
