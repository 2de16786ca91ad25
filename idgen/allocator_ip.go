package idgen

import (
	"context"
	"net"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/xerrors"
)

// ipAllocator 取本机 IPv4 地址的低 10 位对 maxID 取模作为槽位，
// maxID 为 1024 时同一 /22 网段内的实例互不冲突，无需保活
type ipAllocator struct {
	*allocatorBase
	maxID int64
	addrs func() ([]net.Addr, error)
}

func newIPAllocator(maxID int, base *allocatorBase) *ipAllocator {
	return &ipAllocator{allocatorBase: base, maxID: int64(maxID), addrs: net.InterfaceAddrs}
}

func (a *ipAllocator) Allocate(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ip, err := a.localIPv4()
	if err != nil {
		a.logger.Error("get local ip failed", clog.Error(err))
		return 0, err
	}

	slot := (int64(ip[2]&0x03)<<8 | int64(ip[3])) % a.maxID
	a.logger.Debug("slot derived from ip", clog.String("ip", ip.String()))
	a.recordSlot(slot)
	return slot, nil
}

func (a *ipAllocator) KeepAlive(ctx context.Context) <-chan error {
	return a.idle(ctx)
}

func (a *ipAllocator) Stop() {
	if a.stop() {
		a.releaseSlot()
	}
}

// localIPv4 优先返回第一个私有 IPv4 地址，没有时退回第一个全局单播 IPv4；
// loopback 与 169.254.0.0/16 链路本地地址不参与选择
func (a *ipAllocator) localIPv4() (net.IP, error) {
	addrs, err := a.addrs()
	if err != nil {
		return nil, xerrors.Wrap(err, "list interface addrs")
	}
	var fallback net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || !ip.IsGlobalUnicast() {
			continue
		}
		if ip.IsPrivate() {
			return ip, nil
		}
		if fallback == nil {
			fallback = ip
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, xerrors.Wrap(xerrors.ErrNotFound, "no usable ipv4 address")
}
