package ratelimit

import "github.com/ceyewan/snowgen/xerrors"

// 错误定义
var (
	// ErrConnectorNil 分布式模式缺少 Redis 连接器
	ErrConnectorNil = xerrors.New("ratelimit: connector is nil")

	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.New("ratelimit: key is empty")

	// ErrInvalidLimit 限流规则无效
	ErrInvalidLimit = xerrors.New("ratelimit: invalid limit")

	// ErrBreakerOpen Redis 熔断期间拒绝执行限流脚本
	ErrBreakerOpen = xerrors.New("ratelimit: redis breaker open")
)
