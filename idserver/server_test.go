package idserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/snowgen/idgen"
	"github.com/ceyewan/snowgen/ratelimit"
	"github.com/ceyewan/snowgen/testkit"
	"github.com/ceyewan/snowgen/trace"
	"github.com/ceyewan/snowgen/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeGenerator 依次返回递增 ID，err 非空时返回错误
type fakeGenerator struct {
	next    atomic.Uint64
	err     error
	healthy bool
}

func (g *fakeGenerator) NextID() (idgen.ID, error) {
	if g.err != nil {
		return 0, g.err
	}
	return idgen.ID(g.next.Add(1)), nil
}

func (g *fakeGenerator) Healthy() bool { return g.healthy }

func newTestServer(t *testing.T, gen idgen.Generator) *Server {
	t.Helper()
	kit := testkit.NewKit(t)
	srv, err := New(&Config{ServiceName: "snowgen-test", MaxCount: 10}, gen,
		WithLogger(kit.Logger), WithMeter(kit.Meter))
	require.NoError(t, err)
	return srv
}

func doGet(srv *Server, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = New(&Config{MaxCount: 5000}, &fakeGenerator{})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	cfg := &Config{}
	_, err = New(cfg, &fakeGenerator{})
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 1000, cfg.MaxCount)
	assert.Equal(t, 5*time.Second, cfg.ReadHeaderTimeout)
}

func TestGetID(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{healthy: true})

	w := doGet(srv, "/v1/ids")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"1"}`, w.Body.String())
}

func TestGetIDs_Batch(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{healthy: true})

	w := doGet(srv, "/v1/ids?count=3")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"1", "2", "3"}, resp.IDs)
}

func TestGetIDs_InvalidCount(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{healthy: true})

	for _, q := range []string{"0", "-1", "11", "abc", ""} {
		w := doGet(srv, "/v1/ids?count="+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, "count=%q", q)
		assert.Contains(t, w.Body.String(), CodeInvalidCount)
	}
}

func TestGetID_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "clock backwards",
			err:    xerrors.WithCode(&idgen.ClockBackwardsError{Last: 10, Now: 5}, idgen.CodeClockBackwards),
			status: http.StatusServiceUnavailable,
			code:   idgen.CodeClockBackwards,
		},
		{
			name:   "lease expired",
			err:    xerrors.WithCode(idgen.ErrLeaseExpired, idgen.CodeLeaseExpired),
			status: http.StatusServiceUnavailable,
			code:   idgen.CodeLeaseExpired,
		},
		{
			name:   "overflow",
			err:    xerrors.WithCode(idgen.ErrTimestampOverflow, idgen.CodeTimestampOverflow),
			status: http.StatusInternalServerError,
			code:   idgen.CodeTimestampOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeGenerator{err: tt.err})

			for _, target := range []string{"/v1/ids", "/v1/ids?count=2"} {
				w := doGet(srv, target)
				assert.Equal(t, tt.status, w.Code)

				var resp errorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.code, resp.Code)
			}
		})
	}
}

func TestErrorCarriesTraceID(t *testing.T) {
	shutdown, err := trace.Discard("snowgen-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	srv := newTestServer(t, &fakeGenerator{err: xerrors.WithCode(idgen.ErrClockBackwards, idgen.CodeClockBackwards)})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/ids", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", resp.TraceID)
}

func TestHealthz(t *testing.T) {
	gen := &fakeGenerator{healthy: true}
	srv := newTestServer(t, gen)

	assert.Equal(t, http.StatusOK, doGet(srv, "/healthz").Code)

	gen.healthy = false
	assert.Equal(t, http.StatusServiceUnavailable, doGet(srv, "/healthz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{healthy: true})
	doGet(srv, "/v1/ids")

	w := doGet(srv, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_server_requests_total")
}

func TestWithSnowflake(t *testing.T) {
	sf, err := idgen.NewSnowflake(1, 1)
	require.NoError(t, err)
	srv := newTestServer(t, sf)

	w := doGet(srv, "/v1/ids?count=10")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		IDs []idgen.ID `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.IDs, 10)
	for i := 1; i < len(resp.IDs); i++ {
		assert.Greater(t, resp.IDs[i], resp.IDs[i-1])
	}
	assert.True(t, strings.HasPrefix(doGet(srv, "/healthz").Body.String(), `{"status":"ok"`))
}

func TestServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{healthy: true})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/v1/ids")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

func TestRateLimit(t *testing.T) {
	kit := testkit.NewKit(t)
	limiter, err := ratelimit.New(nil, ratelimit.WithLogger(kit.Logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	srv, err := New(&Config{MaxCount: 10, RateLimit: ratelimit.Limit{Rate: 0.001, Burst: 12}},
		&fakeGenerator{healthy: true}, WithRateLimiter(limiter))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doGet(srv, "/v1/ids?count=10").Code)
	// 超出 MaxCount 的请求按 1 个令牌计，返回 400
	assert.Equal(t, http.StatusBadRequest, doGet(srv, "/v1/ids?count=11").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(srv, "/v1/ids?count=3").Code)
	assert.Equal(t, http.StatusOK, doGet(srv, "/v1/ids").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(srv, "/v1/ids").Code)

	// 健康检查不受限流影响
	assert.Equal(t, http.StatusOK, doGet(srv, "/healthz").Code)

	_, err = New(&Config{MaxCount: 10, RateLimit: ratelimit.Limit{Rate: 1, Burst: 5}}, &fakeGenerator{})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}
