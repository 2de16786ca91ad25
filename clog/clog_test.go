package clog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// decodeLines 将缓冲区中的 json 日志逐行解析
func decodeLines(t *testing.T, s string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("无法解析日志行 %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid config", config: &Config{Level: "info", Format: "console", Output: "stdout"}},
		{name: "nil config", config: nil},
		{name: "empty config uses defaults", config: &Config{}},
		{name: "invalid level", config: &Config{Level: "verbose", Format: "json"}, wantErr: true},
		{name: "invalid format", config: &Config{Level: "info", Format: "xml"}, wantErr: true},
		{name: "buffer without option", config: &Config{Level: "info", Format: "json", Output: "buffer"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() 返回 nil logger")
			}
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	logger, buf, err := newBufferLogger("info")
	if err != nil {
		t.Fatalf("newBufferLogger: %v", err)
	}

	logger.Info("generator created", Int64("worker_id", 3), String("component", "idgen"))

	lines := decodeLines(t, buf.String())
	if len(lines) != 1 {
		t.Fatalf("日志行数 = %d，期望 1", len(lines))
	}
	entry := lines[0]
	if entry["msg"] != "generator created" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v，期望 INFO", entry["level"])
	}
	if entry["worker_id"] != float64(3) {
		t.Errorf("worker_id = %v，期望 3", entry["worker_id"])
	}
	if entry["component"] != "idgen" {
		t.Errorf("component = %v，期望 idgen", entry["component"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf, err := newBufferLogger("warn")
	if err != nil {
		t.Fatalf("newBufferLogger: %v", err)
	}

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	lines := decodeLines(t, buf.String())
	if len(lines) != 2 {
		t.Fatalf("日志行数 = %d，期望 2", len(lines))
	}
	if lines[0]["level"] != "WARN" || lines[1]["level"] != "ERROR" {
		t.Errorf("级别 = %v, %v", lines[0]["level"], lines[1]["level"])
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf, err := newBufferLogger("error")
	if err != nil {
		t.Fatalf("newBufferLogger: %v", err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("error 级别下不应输出 info 日志: %s", buf.String())
	}

	if err := logger.SetLevel(DebugLevel); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("SetLevel(Debug) 后 debug 日志未输出")
	}

	if err := logger.SetLevel(Level(100)); err == nil {
		t.Error("SetLevel(非法级别) 应返回错误")
	}
}

func TestLogger_WithIsolation(t *testing.T) {
	logger, buf, err := newBufferLogger("info")
	if err != nil {
		t.Fatalf("newBufferLogger: %v", err)
	}

	base := logger.With(String("service", "snowgen"))
	a := base.With(Int("slot", 1))
	b := base.With(Int("slot", 2))

	a.Info("a")
	b.Info("b")
	base.Info("base")

	lines := decodeLines(t, buf.String())
	if len(lines) != 3 {
		t.Fatalf("日志行数 = %d，期望 3", len(lines))
	}
	if lines[0]["slot"] != float64(1) || lines[1]["slot"] != float64(2) {
		t.Errorf("slot = %v, %v，期望 1, 2", lines[0]["slot"], lines[1]["slot"])
	}
	if _, ok := lines[2]["slot"]; ok {
		t.Error("父 Logger 不应带有子 Logger 的字段")
	}
	for i, line := range lines {
		if line["service"] != "snowgen" {
			t.Errorf("第 %d 行 service = %v", i, line["service"])
		}
	}
}

func TestLogger_Namespace(t *testing.T) {
	logger, buf, err := newBufferLogger("info", WithNamespace("snowgen"))
	if err != nil {
		t.Fatalf("newBufferLogger: %v", err)
	}

	logger.WithNamespace("idgen", "allocator").Info("slot acquired")
	logger.Info("root")

	lines := decodeLines(t, buf.String())
	if lines[0][NamespaceKey] != "snowgen.idgen.allocator" {
		t.Errorf("namespace = %v", lines[0][NamespaceKey])
	}
	if lines[1][NamespaceKey] != "snowgen" {
		t.Errorf("namespace = %v，期望 snowgen", lines[1][NamespaceKey])
	}
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf, err := newBufferLogger("info", WithContextField(ctxKey("tenant"), "tenant"))
	if err != nil {
		t.Fatalf("newBufferLogger: %v", err)
	}

	ctx := context.WithValue(context.Background(), ctxKey("tenant"), "acme")
	logger.InfoContext(ctx, "ids served")
	logger.InfoContext(context.Background(), "no tenant")

	lines := decodeLines(t, buf.String())
	if lines[0]["tenant"] != "acme" {
		t.Errorf("tenant = %v", lines[0]["tenant"])
	}
	if _, ok := lines[1]["tenant"]; ok {
		t.Error("context 中不存在的字段不应输出")
	}
}

func TestLogger_TraceContext(t *testing.T) {
	logger, buf, err := newBufferLogger("info", WithTraceContext())
	if err != nil {
		t.Fatalf("newBufferLogger: %v", err)
	}

	traceID, _ := oteltrace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := oteltrace.SpanIDFromHex("00f067aa0ba902b7")
	sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: oteltrace.FlagsSampled,
	})
	ctx := oteltrace.ContextWithSpanContext(context.Background(), sc)

	logger.ErrorContext(ctx, "generate id failed")
	logger.Info("outside span")

	lines := decodeLines(t, buf.String())
	if lines[0][TraceIDKey] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", lines[0][TraceIDKey])
	}
	if lines[0][SpanIDKey] != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", lines[0][SpanIDKey])
	}
	if _, ok := lines[1][TraceIDKey]; ok {
		t.Error("无 span 时不应输出 trace_id")
	}
}

type ctxKey string

func TestErrorFields(t *testing.T) {
	logger, buf, err := newBufferLogger("info")
	if err != nil {
		t.Fatalf("newBufferLogger: %v", err)
	}

	cause := errors.New("clock moved backwards")
	logger.Warn("refused", Error(cause))
	logger.Warn("refused", ErrorWithCode(cause, "clock_moved_backwards"))
	logger.Warn("nil error", Error(nil))

	lines := decodeLines(t, buf.String())
	if lines[0]["err_msg"] != "clock moved backwards" {
		t.Errorf("err_msg = %v", lines[0]["err_msg"])
	}
	group, ok := lines[1]["error"].(map[string]any)
	if !ok {
		t.Fatalf("error 字段类型 = %T，期望对象", lines[1]["error"])
	}
	if group["code"] != "clock_moved_backwards" || group["msg"] != "clock moved backwards" {
		t.Errorf("error group = %v", group)
	}
	if _, ok := lines[2]["err_msg"]; ok {
		t.Error("Error(nil) 不应输出 err_msg")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{" Error ", ErrorLevel, false},
		{"fatal", 0, true},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v，期望 %v", tt.in, got, tt.want)
		}
	}
}

func TestTrimSourcePath(t *testing.T) {
	if got := trimSourcePath("/home/u/snowgen/idgen/snowflake.go", ""); got != "snowgen/idgen/snowflake.go" {
		t.Errorf("trimSourcePath = %q", got)
	}
	if got := trimSourcePath("/src/app/idgen/snowflake.go", "/src/app"); got != "idgen/snowflake.go" {
		t.Errorf("trimSourcePath(sourceRoot) = %q", got)
	}
	if got := trimSourcePath("/other/main.go", "/src/app"); got != "/other/main.go" {
		t.Errorf("trimSourcePath(外部路径) = %q", got)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("nothing")
	logger.With(String("k", "v")).WithNamespace("x").Error("nothing")
	if err := logger.SetLevel(DebugLevel); err != nil {
		t.Errorf("Discard().SetLevel() = %v", err)
	}
	logger.Flush()
}
