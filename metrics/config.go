package metrics

import (
	"strings"

	"github.com/ceyewan/snowgen/xerrors"
)

// Config 指标系统配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "snowgen"
//	  version: "v1.0.0"
//	  port: 0          # 大于 0 时启动独立的 Prometheus HTTP 服务器
//	  path: "/metrics"
//	  runtime_metrics: true
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// Version 作为 OpenTelemetry Resource 的 service.version
	Version string `json:"version" yaml:"version" mapstructure:"version"`

	// Port 独立 Prometheus HTTP 服务器端口，0 表示不启动
	Port int `json:"port" yaml:"port" mapstructure:"port"`

	// Path Prometheus 采集路径，必须以 "/" 开头
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// RuntimeMetrics 导出 Go 运行时指标 (goroutine 数、堆内存、GC 目标等)
	RuntimeMetrics bool `json:"runtime_metrics" yaml:"runtime_metrics" mapstructure:"runtime_metrics"`
}

// NewDevDefaultConfig 开发环境默认配置：启用指标，不启动独立服务器
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "snowgen"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "metrics port %d out of range", c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "metrics path %q must start with /", c.Path)
	}
	return nil
}
