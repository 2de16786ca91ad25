package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/snowgen/xerrors"
)

// HTTP 请求指标名称
const (
	MetricHTTPRequests        = "http_server_requests_total"
	MetricHTTPRequestDuration = "http_server_request_duration_seconds"
	MetricHTTPInFlight        = "http_server_active_requests"
)

// 各组件共用的标签键
const (
	LabelService     = "service"
	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
	LabelOutcome     = "outcome"
)

// outcome 标签取值
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// UnknownRoute 未命中路由的请求统一使用的 route 值
const UnknownRoute = "unknown"

// 取号请求通常在亚毫秒级完成，桶边界向低端倾斜
var httpDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}

// HTTPMetrics 一组 HTTP 服务端 RED 指标：请求数、耗时与在途请求数。
type HTTPMetrics struct {
	service  Label
	requests Counter
	duration Histogram
	inFlight Gauge
}

// NewHTTPMetrics 在 m 上注册 HTTP 服务端指标，service 为空时记为 unknown。
func NewHTTPMetrics(m Meter, service string) (*HTTPMetrics, error) {
	if m == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "meter is nil")
	}
	if service == "" {
		service = "unknown"
	}

	requests, err := m.Counter(MetricHTTPRequests, "Total number of HTTP requests.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}
	duration, err := m.Histogram(MetricHTTPRequestDuration, "HTTP request duration in seconds.",
		WithUnit("s"), WithBuckets(httpDurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http duration histogram")
	}
	inFlight, err := m.Gauge(MetricHTTPInFlight, "Number of in-flight HTTP requests.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http in-flight gauge")
	}

	return &HTTPMetrics{
		service:  L(LabelService, service),
		requests: requests,
		duration: duration,
		inFlight: inFlight,
	}, nil
}

// Observe 记录一次已完成的请求。route 必须是路由模板，不能是原始路径。
func (h *HTTPMetrics) Observe(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if h == nil {
		return
	}
	if route == "" {
		route = UnknownRoute
	}
	labels := []Label{
		h.service,
		L(LabelMethod, method),
		L(LabelRoute, route),
		L(LabelStatusClass, StatusClass(status)),
		L(LabelOutcome, Outcome(status)),
	}
	h.requests.Inc(ctx, labels...)
	h.duration.Record(ctx, elapsed.Seconds(), labels...)
}

// Middleware 返回记录 RED 指标的 Gin 中间件，nil 接收者返回直通中间件。
//
//	engine.Use(httpMetrics.Middleware())
func (h *HTTPMetrics) Middleware() gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		h.inFlight.Inc(ctx, h.service)
		c.Next()
		h.inFlight.Dec(ctx, h.service)

		h.Observe(ctx, c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// StatusClass 返回状态码的类别标签：2xx、4xx 等，非法状态码为 unknown。
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Outcome 将 HTTP 状态码归为 success 或 error
func Outcome(status int) string {
	if status >= 200 && status < 400 {
		return OutcomeSuccess
	}
	return OutcomeError
}
