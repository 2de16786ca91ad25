package config

import (
	"context"
	"strings"

	"github.com/ceyewan/snowgen/xerrors"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "SNOWGEN"

// Config 配置加载器自身的配置
type Config struct {
	Name      string   // 配置文件名称（不含扩展名），默认 "config"
	Paths     []string // 配置文件搜索路径，默认 [".", "./config"]
	FileType  string   // 配置文件类型 (yaml, json, etc.)
	EnvPrefix string   // 环境变量前缀，默认 "SNOWGEN"
}

// validate 设置默认值并验证配置
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = DefaultEnvPrefix
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)

	if strings.ContainsAny(c.Name, `/\`) {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "config name %q must not contain path separators", c.Name)
	}
	return nil
}

// New 创建配置加载器，cfg 为 nil 时使用默认配置。
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newLoader(cfg, opts...), nil
}

// MustLoad 创建并加载配置，失败时 panic。仅用于程序初始化。
func MustLoad(cfg *Config, opts ...Option) Loader {
	loader := xerrors.Must(New(cfg, opts...))
	if err := loader.Load(context.Background()); err != nil {
		panic(err)
	}
	return loader
}
