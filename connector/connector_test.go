package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/metrics"
	"github.com/ceyewan/snowgen/xerrors"
)

// unreachableAddr 本地不会有服务监听的地址
const unreachableAddr = "127.0.0.1:1"

func TestRedisConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *RedisConfig
		wantErr bool
	}{
		{name: "defaults", cfg: &RedisConfig{Addr: "localhost:6379"}},
		{name: "custom", cfg: &RedisConfig{Name: "ids", Addr: "localhost:6379", DB: 1, PoolSize: 20, MinIdleConns: 5}},
		{name: "empty addr", cfg: &RedisConfig{}, wantErr: true},
		{name: "negative db", cfg: &RedisConfig{Addr: "localhost:6379", DB: -1}, wantErr: true},
		{name: "idle above pool", cfg: &RedisConfig{Addr: "localhost:6379", PoolSize: 2, MinIdleConns: 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.setDefaults()
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tt.cfg.Name)
			assert.Greater(t, tt.cfg.PoolSize, 0)
			assert.Equal(t, 5*time.Second, tt.cfg.DialTimeout)
		})
	}
}

func TestEtcdConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *EtcdConfig
		wantErr bool
	}{
		{name: "defaults", cfg: &EtcdConfig{Endpoints: []string{"localhost:2379"}}},
		{name: "with auth", cfg: &EtcdConfig{Endpoints: []string{"localhost:2379"}, Username: "root", Password: "pw"}},
		{name: "no endpoints", cfg: &EtcdConfig{}, wantErr: true},
		{name: "empty endpoint", cfg: &EtcdConfig{Endpoints: []string{""}}, wantErr: true},
		{name: "username only", cfg: &EtcdConfig{Endpoints: []string{"localhost:2379"}, Username: "root"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.setDefaults()
			err := tt.cfg.validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "default", tt.cfg.Name)
			assert.Equal(t, 10*time.Second, tt.cfg.KeepAliveTime)
		})
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := NewRedis(nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewEtcd(nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRedisConnectorUnreachable(t *testing.T) {
	conn, err := NewRedis(&RedisConfig{
		Name:        "unreachable",
		Addr:        unreachableAddr,
		DialTimeout: 200 * time.Millisecond,
	}, WithLogger(clog.Discard()), WithMeter(metrics.Discard()))
	require.NoError(t, err)
	assert.Equal(t, "unreachable", conn.Name())
	assert.NotNil(t, conn.GetClient())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = conn.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, conn.IsHealthy())

	err = conn.HealthCheck(ctx)
	assert.ErrorIs(t, err, ErrHealthCheck)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Connect(ctx), ErrClosed)
}

func TestRedisConnectorTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	conn, err := NewRedis(&RedisConfig{
		Addr:          unreachableAddr,
		DialTimeout:   200 * time.Millisecond,
		EnableTracing: true,
	})
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, conn.Connect(ctx))

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "ping")
}

func TestEtcdConnectorUnreachable(t *testing.T) {
	conn, err := NewEtcd(&EtcdConfig{
		Endpoints:   []string{unreachableAddr},
		DialTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = conn.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, conn.IsHealthy())
}

func TestConnectorRecordsMetrics(t *testing.T) {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("connector-test"))
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	conn, err := NewRedis(&RedisConfig{Addr: unreachableAddr, DialTimeout: 100 * time.Millisecond}, WithMeter(meter))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, conn.Connect(ctx))
}

func TestWrapErr(t *testing.T) {
	cause := xerrors.New("dial tcp: refused")
	err := wrapErr(ErrConnection, cause, "redis connector[%s]", "ids")

	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "redis connector[ids]")
}
