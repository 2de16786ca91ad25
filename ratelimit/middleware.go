package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MiddlewareConfig Gin 限流中间件配置
type MiddlewareConfig struct {
	// KeyFunc 提取限流键，默认 "ip:" + 客户端 IP；返回空字符串时放行
	KeyFunc func(*gin.Context) string

	// LimitFunc 返回本次请求的限流规则，无效规则放行
	LimitFunc func(*gin.Context) Limit

	// CostFunc 返回本次请求消耗的令牌数，默认 1
	CostFunc func(*gin.Context) int
}

// GinMiddleware 创建 Gin 限流中间件，被限流时返回 429。
// 限流器出错时放行，限流器故障不影响发号。
//
// 使用示例:
//
//	r.GET("/v1/ids", ratelimit.GinMiddleware(limiter, ratelimit.MiddlewareConfig{
//	    LimitFunc: func(*gin.Context) ratelimit.Limit { return ratelimit.Limit{Rate: 100, Burst: 1000} },
//	    CostFunc:  countFromQuery,
//	}), handler)
func GinMiddleware(limiter Limiter, cfg MiddlewareConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string {
			return "ip:" + c.ClientIP()
		}
	}
	costFunc := cfg.CostFunc
	if costFunc == nil {
		costFunc = func(*gin.Context) int { return 1 }
	}

	return func(c *gin.Context) {
		if limiter == nil || cfg.LimitFunc == nil {
			c.Next()
			return
		}

		key := keyFunc(c)
		limit := cfg.LimitFunc(c)
		if key == "" || !limit.Valid() {
			c.Next()
			return
		}

		cost := costFunc(c)
		if cost < 1 {
			cost = 1
		}

		c.Header("X-RateLimit-Limit", formatLimit(limit))
		allowed, err := limiter.AllowN(c.Request.Context(), key, limit, cost)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "rate_limited",
			})
			return
		}

		c.Next()
	}
}

// formatLimit 格式化限流规则
func formatLimit(limit Limit) string {
	return fmt.Sprintf("rate=%.2f, burst=%d", limit.Rate, limit.Burst)
}
