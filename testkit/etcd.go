package testkit

import (
	"context"
	"strings"
	"testing"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/snowgen/connector"
)

// GetEtcdConfig 返回 Etcd 测试配置
func GetEtcdConfig() *connector.EtcdConfig {
	return &connector.EtcdConfig{
		Name:        "test-etcd",
		Endpoints:   strings.Split(envOr("SNOWGEN_TEST_ETCD_ENDPOINTS", "localhost:2379"), ","),
		DialTimeout: time.Second,
	}
}

// GetEtcdConnector 获取已连接的 Etcd 连接器，Etcd 不可达时跳过测试
func GetEtcdConnector(t *testing.T) connector.EtcdConnector {
	t.Helper()
	conn, err := connector.NewEtcd(GetEtcdConfig(), connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create etcd connector: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	return conn
}

// GetEtcdClient 获取原生 Etcd 客户端
func GetEtcdClient(t *testing.T) *clientv3.Client {
	t.Helper()
	return GetEtcdConnector(t).GetClient()
}

// CleanEtcdPrefix 删除指定前缀下的所有 key
func CleanEtcdPrefix(t *testing.T, client *clientv3.Client, prefix string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Delete(ctx, prefix, clientv3.WithPrefix()); err != nil {
		t.Logf("clean etcd prefix %s: %v", prefix, err)
	}
}
