package idserver

import (
	"time"

	"github.com/ceyewan/snowgen/ratelimit"
	"github.com/ceyewan/snowgen/xerrors"
)

// Config HTTP 服务配置
//
//	server:
//	  addr: ":8080"
//	  service_name: "snowgen"
//	  max_count: 1000
//	  rate_limit:
//	    rate: 1000
//	    burst: 2000
type Config struct {
	// Addr 监听地址，默认 ":8080"
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// ServiceName 用于 HTTP 指标的 service 标签，默认 "snowgen"
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// MaxCount 单次批量请求的最大 ID 数量，默认 1000
	MaxCount int `json:"max_count" yaml:"max_count" mapstructure:"max_count"`

	// RateLimit 每个客户端 IP 的令牌桶，批量请求按 count 消耗令牌。
	// 仅在通过 WithRateLimiter 注入限流器时生效，零值表示不限流
	RateLimit ratelimit.Limit `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// ReadHeaderTimeout 默认 5s
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" mapstructure:"read_header_timeout"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ServiceName == "" {
		c.ServiceName = "snowgen"
	}
	if c.MaxCount <= 0 {
		c.MaxCount = 1000
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if c.MaxCount > 4096 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "max_count %d exceeds 4096", c.MaxCount)
	}
	if c.RateLimit.Valid() && c.RateLimit.Burst < c.MaxCount {
		return xerrors.Wrapf(xerrors.ErrInvalidInput,
			"rate_limit.burst %d must not be less than max_count %d", c.RateLimit.Burst, c.MaxCount)
	}
	return nil
}
