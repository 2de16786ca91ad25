// Package idserver 通过 HTTP 对外提供 Snowflake ID。
//
// 路由：
//
//	GET /v1/ids            返回一个 ID: {"id":"4194439168"}
//	GET /v1/ids?count=N    返回 N 个 ID (1 <= N <= MaxCount): {"ids":["...", ...]}
//	                       注入限流器时按客户端 IP 限流，count=N 消耗 N 个令牌，超限返回 429
//	GET /healthz           生成器可用时返回 200，租约丢失时返回 503
//	GET /metrics           Prometheus 指标
//
// ID 一律以十进制字符串返回，避免 JavaScript 客户端丢失精度。
package idserver

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/idgen"
	"github.com/ceyewan/snowgen/metrics"
	"github.com/ceyewan/snowgen/ratelimit"
	"github.com/ceyewan/snowgen/trace"
	"github.com/ceyewan/snowgen/xerrors"
)

// Server ID 生成 HTTP 服务
type Server struct {
	cfg     *Config
	gen     idgen.Generator
	logger  clog.Logger
	meter   metrics.Meter
	limiter ratelimit.Limiter

	engine *gin.Engine
	srv    *http.Server
}

// New 创建 HTTP 服务，gen 通常是 *idgen.Snowflake
//
// 使用示例:
//
//	srv, err := idserver.New(&idserver.Config{Addr: ":8080"}, sf,
//	    idserver.WithLogger(logger), idserver.WithMeter(meter))
//	go srv.Start()
//	defer srv.Shutdown(ctx)
func New(cfg *Config, gen idgen.Generator, opts ...Option) (*Server, error) {
	if gen == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "generator is nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(o.meter, cfg.ServiceName)
	if err != nil {
		return nil, xerrors.Wrap(err, "create http metrics")
	}

	s := &Server{
		cfg:     cfg,
		gen:     gen,
		logger:  o.logger,
		meter:   o.meter,
		limiter: o.limiter,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(trace.GinMiddleware(cfg.ServiceName))
	engine.Use(httpMetrics.Middleware())
	s.routes(engine)
	s.engine = engine

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s, nil
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler(s.meter)))

	v1 := r.Group("/v1")
	v1.GET("/ids", ratelimit.GinMiddleware(s.limiter, ratelimit.MiddlewareConfig{
		LimitFunc: func(*gin.Context) ratelimit.Limit { return s.cfg.RateLimit },
		CostFunc:  s.requestedCount,
	}), s.handleIDs)
}

// Handler 返回路由，便于嵌入其他服务或测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 阻塞监听，Shutdown 后返回 nil
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return xerrors.Wrapf(err, "listen %s", s.cfg.Addr)
	}
	return s.Serve(ln)
}

// Serve 在给定 listener 上提供服务，Shutdown 后返回 nil
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("id server listening", clog.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !xerrors.Is(err, http.ErrServerClosed) {
		s.logger.Error("id server stopped", clog.Error(err))
		return err
	}
	return nil
}

// Shutdown 优雅关闭，等待进行中的请求完成
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("id server shutting down")
	return s.srv.Shutdown(ctx)
}
