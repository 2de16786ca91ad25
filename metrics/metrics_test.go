package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/xerrors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		wantErr  bool
		wantNoop bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "disabled", cfg: &Config{Enabled: false}, wantNoop: true},
		{name: "dev default", cfg: NewDevDefaultConfig("snowgen-test")},
		{name: "invalid path", cfg: &Config{Enabled: true, Path: "metrics"}, wantErr: true},
		{name: "invalid port", cfg: &Config{Enabled: true, Port: 70000}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter, err := New(tt.cfg, WithLogger(clog.Discard()))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			defer meter.Shutdown(context.Background())

			_, isNoop := meter.(noopMeter)
			assert.Equal(t, tt.wantNoop, isNoop)
		})
	}
}

func TestMeterExportsPrometheus(t *testing.T) {
	meter, err := New(NewDevDefaultConfig("snowgen-test"))
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	ctx := context.Background()
	counter, err := meter.Counter("idgen_test_generated_total", "generated ids")
	require.NoError(t, err)
	counter.Inc(ctx, L("worker_id", "1"))
	counter.Add(ctx, 4, L("worker_id", "1"))

	gauge, err := meter.Gauge("idgen_test_slot", "held slot")
	require.NoError(t, err)
	gauge.Set(ctx, 37)
	gauge.Inc(ctx)

	histogram, err := meter.Histogram("idgen_test_batch_size", "batch size", WithBuckets([]float64{1, 10, 100}))
	require.NoError(t, err)
	histogram.Record(ctx, 8)

	server := httptest.NewServer(Handler(meter))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "idgen_test_generated_total")
	assert.Contains(t, text, `worker_id="1"`)
	assert.Contains(t, text, "idgen_test_slot")
	assert.Contains(t, text, "idgen_test_batch_size")
	assert.True(t, strings.Contains(text, " 5") || strings.Contains(text, "} 5"), "counter 应累计为 5")
}

func TestRuntimeMetrics(t *testing.T) {
	cfg := NewDevDefaultConfig("snowgen-test")
	cfg.RuntimeMetrics = true
	meter, err := New(cfg)
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	w := httptest.NewRecorder()
	Handler(meter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutine")
}

func TestHandlerForDiscard(t *testing.T) {
	w := httptest.NewRecorder()
	Handler(Discard()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	meter := Discard()

	counter, err := meter.Counter("c", "c")
	require.NoError(t, err)
	counter.Inc(ctx)

	gauge, err := meter.Gauge("g", "g")
	require.NoError(t, err)
	gauge.Dec(ctx)

	histogram, err := meter.Histogram("h", "h", WithUnit("s"))
	require.NoError(t, err)
	histogram.Record(ctx, 1)

	assert.NoError(t, meter.Shutdown(ctx))
}

func TestMetricOptions(t *testing.T) {
	buckets := []float64{0.1, 1}
	o := applyMetricOptions(WithUnit("s"), WithBuckets(buckets))
	assert.Equal(t, "s", o.Unit)
	assert.Equal(t, buckets, o.Buckets)

	// 修改原切片不影响已设置的桶
	buckets[0] = 99
	assert.Equal(t, 0.1, o.Buckets[0])
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "", labelKey(nil))
	assert.Equal(t, "a=1|b=2", labelKey([]Label{L("a", "1"), L("b", "2")}))
	assert.Nil(t, toAttributes(nil))
}
