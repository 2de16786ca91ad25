package connector

import "github.com/ceyewan/snowgen/xerrors"

// 连接器专用的哨兵错误
var (
	ErrConnection  = xerrors.New("connector: connection failed")
	ErrConfig      = xerrors.New("connector: invalid config")
	ErrHealthCheck = xerrors.New("connector: health check failed")
	ErrClosed      = xerrors.New("connector: already closed")
)

// wrapErr 同时保留底层错误与连接器哨兵错误
func wrapErr(sentinel, cause error, format string, args ...any) error {
	return xerrors.Wrapf(xerrors.Join(sentinel, cause), format, args...)
}
