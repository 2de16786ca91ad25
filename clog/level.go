package clog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，数值与 slog.Level 一致
type Level int

const (
	DebugLevel = Level(slog.LevelDebug)
	InfoLevel  = Level(slog.LevelInfo)
	WarnLevel  = Level(slog.LevelWarn) // 时钟回拨、槽位续约失败等
	ErrorLevel = Level(slog.LevelError)
)

var levelNames = map[Level]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) slogLevel() slog.Level {
	return slog.Level(l)
}

func (l Level) valid() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel 将 debug/info/warn/error 解析为 Level，不区分大小写。
func ParseLevel(s string) (Level, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == want {
			return l, nil
		}
	}
	return InfoLevel, fmt.Errorf("unknown log level: %q", s)
}
