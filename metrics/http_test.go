package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/snowgen/xerrors"
)

type recordingCounter struct {
	mu      sync.Mutex
	records [][]Label
}

func (c *recordingCounter) Inc(_ context.Context, labels ...Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, append([]Label(nil), labels...))
}

func (c *recordingCounter) Add(ctx context.Context, _ float64, labels ...Label) {
	c.Inc(ctx, labels...)
}

type recordingHistogram struct {
	values []float64
}

func (h *recordingHistogram) Record(_ context.Context, val float64, _ ...Label) {
	h.values = append(h.values, val)
}

type peakGauge struct {
	value, peak float64
}

func (g *peakGauge) Set(_ context.Context, val float64, _ ...Label) { g.value = val }
func (g *peakGauge) Inc(_ context.Context, _ ...Label) {
	g.value++
	g.peak = max(g.peak, g.value)
}
func (g *peakGauge) Dec(_ context.Context, _ ...Label) { g.value-- }

func labelValue(labels []Label, key string) string {
	for _, l := range labels {
		if l.Key == key {
			return l.Value
		}
	}
	return ""
}

func newRecordingRouter() (*gin.Engine, *recordingCounter, *recordingHistogram, *peakGauge) {
	gin.SetMode(gin.TestMode)
	counter := &recordingCounter{}
	histogram := &recordingHistogram{}
	gauge := &peakGauge{}
	hm := &HTTPMetrics{
		service:  L(LabelService, "snowgen"),
		requests: counter,
		duration: histogram,
		inFlight: gauge,
	}
	router := gin.New()
	router.Use(hm.Middleware())
	return router, counter, histogram, gauge
}

func TestHTTPMetrics_RouteTemplate(t *testing.T) {
	router, counter, histogram, gauge := newRecordingRouter()
	router.GET("/v1/ids", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": "1"}) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ids?count=3", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, counter.records, 1)
	require.Len(t, histogram.values, 1)

	labels := counter.records[0]
	assert.Equal(t, "/v1/ids", labelValue(labels, LabelRoute))
	assert.Equal(t, http.MethodGet, labelValue(labels, LabelMethod))
	assert.Equal(t, "2xx", labelValue(labels, LabelStatusClass))
	assert.Equal(t, OutcomeSuccess, labelValue(labels, LabelOutcome))
	assert.Equal(t, "snowgen", labelValue(labels, LabelService))

	assert.Equal(t, float64(1), gauge.peak)
	assert.Zero(t, gauge.value)
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	router, counter, _, _ := newRecordingRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ids/7311234567890123", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Len(t, counter.records, 1)
	assert.Equal(t, UnknownRoute, labelValue(counter.records[0], LabelRoute))
	assert.Equal(t, OutcomeError, labelValue(counter.records[0], LabelOutcome))
}

func TestHTTPMetrics_NilPassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var hm *HTTPMetrics
	router := gin.New()
	router.Use(hm.Middleware())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	hm.Observe(context.Background(), http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
}

func TestNewHTTPMetrics(t *testing.T) {
	meter, err := New(NewDevDefaultConfig("snowgen-test"))
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	hm, err := NewHTTPMetrics(meter, "")
	require.NoError(t, err)
	assert.Equal(t, "unknown", hm.service.Value)
	hm.Observe(context.Background(), http.MethodGet, "/v1/ids", http.StatusOK, 300*time.Microsecond)

	_, err = NewHTTPMetrics(nil, "snowgen")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestStatusClassAndOutcome(t *testing.T) {
	tests := []struct {
		status  int
		class   string
		outcome string
	}{
		{http.StatusOK, "2xx", OutcomeSuccess},
		{http.StatusFound, "3xx", OutcomeSuccess},
		{http.StatusTooManyRequests, "4xx", OutcomeError},
		{http.StatusServiceUnavailable, "5xx", OutcomeError},
		{42, "unknown", OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.class, StatusClass(tt.status), "status %d", tt.status)
		assert.Equal(t, tt.outcome, Outcome(tt.status), "status %d", tt.status)
	}
}
