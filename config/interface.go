// Package config 为 snowgen 提供统一的配置加载能力，基于 Viper 实现。
//
// 配置优先级（高 -> 低）：
//
//	环境变量 > .env 文件 > config.<env>.yaml > config.yaml
//
// 环境变量使用统一前缀（默认 SNOWGEN），key 中的 "." 映射为 "_"，
// 例如 idgen.worker_id 对应 SNOWGEN_IDGEN_WORKER_ID。
// 环境名由 <PREFIX>_ENV 指定，例如 SNOWGEN_ENV=prod 会合并 config.prod.yaml。
//
// 基本使用：
//
//	loader := config.MustLoad(&config.Config{Paths: []string{"./config"}})
//
//	var cfg idgen.Config
//	if err := loader.UnmarshalKey("idgen", &cfg); err != nil {
//		panic(err)
//	}
//
//	// 监听日志级别变化
//	ch, _ := loader.Watch(ctx, "clog.level")
//	for event := range ch {
//		if level, err := clog.ParseLevel(fmt.Sprint(event.Value)); err == nil {
//			_ = logger.SetLevel(level)
//		}
//	}
package config

import (
	"context"
	"time"
)

// Loader 定义配置加载器的核心行为
type Loader interface {
	// Load 加载配置并启动文件监听
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，通过 context 取消监听
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string // 配置 key
	Value     any    // 新值
	OldValue  any    // 旧值
	Source    string // "file"
	Timestamp time.Time
}
