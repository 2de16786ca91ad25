package clog

import "bytes"

// withBuffer 测试专用选项，将日志输出写入指定缓冲区，需配合 Output="buffer"
func withBuffer(buf *bytes.Buffer) Option {
	return func(o *options) {
		o.buffer = buf
	}
}

// newBufferLogger 创建输出到缓冲区的 json Logger
func newBufferLogger(level string, opts ...Option) (Logger, *bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	opts = append(opts, withBuffer(buf))
	logger, err := New(&Config{Level: level, Format: "json", Output: "buffer"}, opts...)
	return logger, buf, err
}
