// Package xerrors 提供 snowgen 统一的错误处理工具。
//
// 约定：
//   - 组件对外暴露哨兵错误，调用方用 Is 判断类别
//   - 需要机器可读分类时用 WithCode 包装，GetCode 从错误链中提取；
//     idserver 将错误码原样写入响应体
//   - 需要携带结构化细节时定义具体错误类型，并通过 Unwrap 指向哨兵错误
//
// 示例：
//
//	err := xerrors.WithCode(xerrors.Wrapf(ErrInvalidInput, "worker id %d", id), "worker_id_out_of_range")
//	xerrors.Is(err, xerrors.ErrInvalidInput) // true
//	xerrors.GetCode(err)                     // "worker_id_out_of_range"
package xerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput 参数或配置无效
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("not found")
)

// 标准库函数再导出，调用方无需同时导入 errors
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Wrap 为 err 添加上下文，err 为 nil 时返回 nil
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 同 Wrap，上下文由格式串生成
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// codedError 在错误链上挂一个错误码
type codedError struct {
	code  string
	cause error
}

func (e *codedError) Error() string {
	return "[" + e.code + "] " + e.cause.Error()
}

func (e *codedError) Unwrap() error {
	return e.cause
}

// WithCode 为 err 附加机器可读的错误码，err 为 nil 时返回 nil
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, cause: err}
}

// GetCode 返回错误链上最外层的错误码，没有时返回空串
func GetCode(err error) string {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return ""
}

// Combine 丢弃 nil 后合并错误：全部为 nil 返回 nil，只剩一个时原样返回
func Combine(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return errors.Join(kept...)
	}
}

// Must 在 err 非 nil 时 panic，仅用于初始化阶段
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}
