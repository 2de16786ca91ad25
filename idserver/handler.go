package idserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/idgen"
	"github.com/ceyewan/snowgen/trace"
	"github.com/ceyewan/snowgen/xerrors"
)

// CodeInvalidCount count 参数非法
const CodeInvalidCount = "invalid_count"

type idResponse struct {
	ID idgen.ID `json:"id"`
}

type idsResponse struct {
	IDs []idgen.ID `json:"ids"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// healthChecker 由 *idgen.Snowflake 实现
type healthChecker interface {
	Healthy() bool
}

func (s *Server) handleHealth(c *gin.Context) {
	if hc, ok := s.gen.(healthChecker); ok && !hc.Healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleIDs(c *gin.Context) {
	count := 1
	raw, batch := c.GetQuery("count")
	if batch {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > s.cfg.MaxCount {
			c.JSON(http.StatusBadRequest, errorResponse{
				Error: "count must be an integer in [1, " + strconv.Itoa(s.cfg.MaxCount) + "]",
				Code:  CodeInvalidCount,
			})
			return
		}
		count = n
	}

	ctx, span := trace.Start(c.Request.Context(), "idgen.next_ids", attribute.Int("idgen.count", count))
	defer span.End()

	ids := make([]idgen.ID, 0, count)
	for range count {
		id, err := s.gen.NextID()
		if err != nil {
			trace.Fail(span, err)
			s.fail(ctx, c, err)
			return
		}
		ids = append(ids, id)
	}

	if batch {
		c.JSON(http.StatusOK, idsResponse{IDs: ids})
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: ids[0]})
}

// requestedCount 本次请求消耗的令牌数，count 非法时按 1 计，由 handleIDs 返回 400
func (s *Server) requestedCount(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("count"))
	if err != nil || n < 1 || n > s.cfg.MaxCount {
		return 1
	}
	return n
}

// fail 将生成错误映射为 HTTP 状态码：
// 时钟回拨与租约丢失是暂时性的，返回 503 提示客户端重试
func (s *Server) fail(ctx context.Context, c *gin.Context, err error) {
	code := xerrors.GetCode(err)
	status := http.StatusInternalServerError
	if xerrors.Is(err, idgen.ErrClockBackwards) || xerrors.Is(err, idgen.ErrLeaseExpired) {
		status = http.StatusServiceUnavailable
	}

	s.logger.ErrorContext(ctx, "generate id failed",
		clog.ErrorWithCode(err, code),
		clog.Int("status", status),
	)
	c.JSON(status, errorResponse{Error: err.Error(), Code: code, TraceID: trace.TraceID(ctx)})
}
