package idgen

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/connector"
	"github.com/ceyewan/snowgen/xerrors"
)

// keepAliveFunc 与 clientv3.Lease.KeepAlive 同签名
type keepAliveFunc func(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error)

// etcdAllocator Etcd 实现的槽位分配器，槽位键绑定在租约上
type etcdAllocator struct {
	*allocatorBase
	client    *clientv3.Client
	cfg       *AllocatorConfig
	keepAlive keepAliveFunc

	mu       sync.Mutex
	leaseID  clientv3.LeaseID
	leaseTTL time.Duration
	slot     int64
	key      string
}

func newEtcdAllocator(cfg *AllocatorConfig, conn connector.EtcdConnector, base *allocatorBase) *etcdAllocator {
	client := conn.GetClient()
	return &etcdAllocator{allocatorBase: base, client: client, cfg: cfg, keepAlive: client.KeepAlive, slot: -1}
}

// Allocate 申请租约后从随机起点开始用事务 CAS 抢占槽位
func (a *etcdAllocator) Allocate(ctx context.Context) (int64, error) {
	lease, err := a.client.Grant(ctx, int64(a.cfg.TTL))
	if err != nil {
		a.logger.Error("etcd grant lease failed", clog.Error(err))
		return 0, xerrors.Wrap(err, "etcd grant lease")
	}

	offset := rand.Int64N(int64(a.cfg.MaxID))
	for i := int64(0); i < int64(a.cfg.MaxID); i++ {
		slot := (offset + i) % int64(a.cfg.MaxID)
		key := slotKey(a.cfg.KeyPrefix, slot)

		resp, err := a.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, a.token, clientv3.WithLease(lease.ID))).
			Commit()
		if err != nil {
			a.revoke(lease.ID)
			a.logger.Error("etcd txn failed", clog.Error(err), clog.String("key", key))
			return 0, xerrors.Wrap(err, "etcd allocate node slot")
		}
		if !resp.Succeeded {
			continue
		}

		a.mu.Lock()
		a.leaseID = lease.ID
		a.leaseTTL = time.Duration(lease.TTL) * time.Second
		a.slot = slot
		a.key = key
		a.mu.Unlock()

		a.recordSlot(slot)
		return slot, nil
	}

	a.revoke(lease.ID)
	return 0, xerrors.WithCode(ErrWorkerIDExhausted, CodeNoAvailableWorkerID)
}

func (a *etcdAllocator) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := a.client.Revoke(ctx, id); err != nil {
		a.logger.Warn("etcd revoke lease failed", clog.Error(err))
	}
}

// KeepAlive 依赖 etcd 客户端的租约续期。
// 客户端要到租约到期后才关闭续期通道，此时槽位可能已被其他实例抢占，
// 因此距上次成功续期超过 TTL/2 即视为租约丢失。
func (a *etcdAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	a.mu.Lock()
	leaseID, ttl := a.leaseID, a.leaseTTL
	a.mu.Unlock()
	if ttl <= 0 {
		ttl = time.Duration(a.cfg.TTL) * time.Second
	}
	if leaseID == 0 {
		errCh <- xerrors.Wrap(ErrInvalidInput, "keep alive called before allocate")
		close(errCh)
		return errCh
	}

	kaCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(errCh)
		defer cancel()

		kaCh, err := a.keepAlive(kaCtx, leaseID)
		if err != nil {
			if a.stopped(ctx) {
				return
			}
			a.logger.Error("etcd keep alive failed", clog.Error(err), clog.Int64("lease_id", int64(leaseID)))
			errCh <- xerrors.Wrap(err, "etcd keep alive")
			return
		}

		maxSilence := ttl / 2
		lastRenew := time.Now()
		check := time.NewTicker(maxSilence / 4)
		defer check.Stop()

		lost := func(reason string) {
			a.logger.Error("node slot lease lost",
				clog.Int64("lease_id", int64(leaseID)),
				clog.String("reason", reason),
				clog.Duration("since_last_renew", time.Since(lastRenew)))
			errCh <- xerrors.WithCode(ErrLeaseExpired, CodeLeaseExpired)
		}

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case <-check.C:
				if time.Since(lastRenew) > maxSilence {
					lost("renew overdue")
					return
				}
			case ka, ok := <-kaCh:
				if ok && ka != nil {
					lastRenew = time.Now()
					if ka.TTL > 0 {
						maxSilence = time.Duration(ka.TTL) * time.Second / 2
					}
					continue
				}
				// 通道关闭时区分主动停止与租约过期
				if a.stopped(ctx) {
					return
				}
				lost("keep alive channel closed")
				return
			}
		}
	}()

	return errCh
}

// Stop 撤销租约，绑定的槽位键随之删除
func (a *etcdAllocator) Stop() {
	if !a.stop() {
		return
	}

	a.mu.Lock()
	leaseID, key := a.leaseID, a.key
	a.mu.Unlock()
	if leaseID == 0 {
		return
	}

	a.revoke(leaseID)
	a.releaseSlot()
	a.logger.Info("node slot released", clog.String("key", key), clog.Int64("lease_id", int64(leaseID)))
}
