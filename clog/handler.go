package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// handler 在 slog.Handler 之上提供动态级别与文件落盘
type handler struct {
	slog.Handler
	level *slog.LevelVar
	file  *os.File
}

func newHandler(config *Config, o *options) (*handler, error) {
	var buf io.Writer
	if o.buffer != nil {
		buf = o.buffer
	}
	w, file, err := openOutput(config.Output, buf)
	if err != nil {
		return nil, err
	}

	level, _ := ParseLevel(config.Level)
	lv := new(slog.LevelVar)
	lv.Set(level.slogLevel())

	hopts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       lv,
		ReplaceAttr: replaceAttr(config.SourceRoot),
	}

	h := &handler{level: lv, file: file}
	if strings.EqualFold(config.Format, "json") {
		h.Handler = slog.NewJSONHandler(w, hopts)
	} else {
		h.Handler = slog.NewTextHandler(w, hopts)
	}
	return h, nil
}

// openOutput 解析 stdout / stderr / buffer / 文件路径
func openOutput(output string, buf io.Writer) (io.Writer, *os.File, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	case "buffer":
		if buf == nil {
			return nil, nil, fmt.Errorf("buffer output requires a buffer")
		}
		return buf, nil, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// replaceAttr 级别大写、时间毫秒精度、调用位置输出为 caller=file:line
func replaceAttr(sourceRoot string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.LevelKey:
			if level, ok := a.Value.Any().(slog.Level); ok {
				a.Value = slog.StringValue(strings.ToUpper(Level(level).String()))
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if src, ok := a.Value.Any().(*slog.Source); ok {
				return slog.String("caller", fmt.Sprintf("%s:%d", trimSourcePath(src.File, sourceRoot), src.Line))
			}
		}
		return a
	}
}

// trimSourcePath 优先相对 sourceRoot，其次从 snowgen 目录开始截取
func trimSourcePath(file, sourceRoot string) string {
	if sourceRoot != "" {
		if rel, err := filepath.Rel(sourceRoot, file); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	if idx := strings.Index(file, "snowgen"); idx != -1 {
		return file[idx:]
	}
	return file
}

func (h *handler) setLevel(level Level) error {
	if !level.valid() {
		return fmt.Errorf("invalid log level: %d", int(level))
	}
	h.level.Set(level.slogLevel())
	return nil
}

func (h *handler) flush() {
	if h.file != nil {
		_ = h.file.Sync()
	}
}
