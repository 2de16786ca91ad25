package idgen

import (
	"fmt"
	"time"

	"github.com/ceyewan/snowgen/xerrors"
)

var (
	// ErrInvalidInput 参数或配置无效，与 xerrors.ErrInvalidInput 为同一个哨兵
	ErrInvalidInput = xerrors.ErrInvalidInput

	// ErrClockBackwards 时钟回拨，拒绝生成
	ErrClockBackwards = xerrors.New("idgen: clock moved backwards")

	// ErrTimestampOverflow 时间戳增量超出 41 bit
	ErrTimestampOverflow = xerrors.New("idgen: timestamp overflow")

	// ErrLeaseExpired 节点槽位租约丢失，生成器已熔断
	ErrLeaseExpired = xerrors.New("idgen: lease expired")

	// ErrConnectorNil 分配器缺少连接器
	ErrConnectorNil = xerrors.New("idgen: connector is nil")

	// ErrWorkerIDExhausted 所有节点槽位都已被占用
	ErrWorkerIDExhausted = xerrors.New("idgen: no available worker id")
)

// 错误码，通过 xerrors.GetCode 获取
const (
	CodeWorkerIDOutOfRange     = "worker_id_out_of_range"
	CodeDatacenterIDOutOfRange = "datacenter_id_out_of_range"
	CodeEpochInvalid           = "epoch_invalid"
	CodeClockBackwards         = "clock_moved_backwards"
	CodeTimestampOverflow      = "timestamp_overflow"
	CodeLeaseExpired           = "lease_expired"
	CodeInvalidID              = "invalid_id"
	CodeConfigNil              = "config_nil"
	CodeUnsupportedDriver      = "unsupported_driver"
	CodeNoAvailableWorkerID    = "no_available_worker_id"
)

// ConfigError 构造参数越界
type ConfigError struct {
	Field string
	Value int64
	Min   int64
	Max   int64
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("idgen: %s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}

// ClockBackwardsError 当前时钟早于上一次生成 ID 的时间戳
type ClockBackwardsError struct {
	Last int64 // 上一次生成使用的毫秒时间戳
	Now  int64 // 本次读取到的毫秒时间戳
}

// Drift 回拨的幅度
func (e *ClockBackwardsError) Drift() time.Duration {
	return time.Duration(e.Last-e.Now) * time.Millisecond
}

func (e *ClockBackwardsError) Error() string {
	return fmt.Sprintf("idgen: clock moved backwards, refusing to generate id for %d milliseconds", e.Last-e.Now)
}

func (e *ClockBackwardsError) Unwrap() error {
	return ErrClockBackwards
}

// checkRange 范围校验，越界时返回带错误码的 ConfigError
func checkRange(field, code string, value, lo, hi int64) error {
	if value < lo || value > hi {
		return xerrors.WithCode(&ConfigError{Field: field, Value: value, Min: lo, Max: hi}, code)
	}
	return nil
}

// codedErr 包装哨兵错误并附加错误码
func codedErr(sentinel error, code, format string, args ...any) error {
	return xerrors.WithCode(xerrors.Wrapf(sentinel, format, args...), code)
}
