package connector

import (
	"time"

	"github.com/ceyewan/snowgen/xerrors"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"` // 连接器名称 (默认: "default")

	// 核心配置
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`             // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `json:"password" yaml:"password" mapstructure:"password"` // [可选] 认证密码
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`                   // [可选] 数据库编号 (默认: 0)

	// 高级配置
	PoolSize     int           `json:"pool_size" yaml:"pool_size" mapstructure:"pool_size"`                // 连接池大小 (默认: 10)
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" mapstructure:"min_idle_conns"` // 最小空闲连接数
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" mapstructure:"dial_timeout"`       // 连接超时 (默认: 5s)
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`       // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`    // 写入超时 (默认: 3s)

	// EnableTracing 为每条命令创建 OpenTelemetry span（使用全局 TracerProvider）
	EnableTracing bool `json:"enable_tracing" yaml:"enable_tracing" mapstructure:"enable_tracing"`
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	if c.Addr == "" {
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	}
	if c.DB < 0 {
		return xerrors.Wrapf(ErrConfig, "redis db %d must not be negative", c.DB)
	}
	if c.MinIdleConns < 0 || c.MinIdleConns > c.PoolSize {
		return xerrors.Wrapf(ErrConfig, "redis min_idle_conns %d must be in [0, pool_size]", c.MinIdleConns)
	}
	return nil
}

// EtcdConfig Etcd 连接配置
type EtcdConfig struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"` // 连接器名称 (默认: "default")

	// 核心配置
	Endpoints []string `json:"endpoints" yaml:"endpoints" mapstructure:"endpoints"` // [必填] 连接地址列表
	Username  string   `json:"username" yaml:"username" mapstructure:"username"`    // [可选] 认证用户
	Password  string   `json:"password" yaml:"password" mapstructure:"password"`    // [可选] 认证密码

	// 高级配置
	DialTimeout      time.Duration `json:"dial_timeout" yaml:"dial_timeout" mapstructure:"dial_timeout"`                   // 连接超时 (默认: 5s)
	KeepAliveTime    time.Duration `json:"keep_alive_time" yaml:"keep_alive_time" mapstructure:"keep_alive_time"`          // 心跳间隔 (默认: 10s)
	KeepAliveTimeout time.Duration `json:"keep_alive_timeout" yaml:"keep_alive_timeout" mapstructure:"keep_alive_timeout"` // 心跳超时 (默认: 3s)
}

func (c *EtcdConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.KeepAliveTime == 0 {
		c.KeepAliveTime = 10 * time.Second
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = 3 * time.Second
	}
}

func (c *EtcdConfig) validate() error {
	if len(c.Endpoints) == 0 {
		return xerrors.Wrap(ErrConfig, "etcd endpoints are required")
	}
	for _, ep := range c.Endpoints {
		if ep == "" {
			return xerrors.Wrap(ErrConfig, "etcd endpoint must not be empty")
		}
	}
	if (c.Username == "") != (c.Password == "") {
		return xerrors.Wrap(ErrConfig, "etcd username and password must be set together")
	}
	return nil
}
