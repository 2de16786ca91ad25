package connector

import (
	"context"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/xerrors"
)

type etcdConnector struct {
	cfg     *EtcdConfig
	client  *clientv3.Client
	logger  clog.Logger
	metrics *connMetrics
	healthy atomic.Bool
	closed  atomic.Bool
}

// NewEtcd 创建 Etcd 连接器。客户端以非阻塞方式创建，Connect 时才验证可用性。
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid etcd config")
	}

	o := applyOptions(opts...)
	m, err := newConnMetrics(o.meter, "etcd", cfg.Name)
	if err != nil {
		return nil, err
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            cfg.Endpoints,
		Username:             cfg.Username,
		Password:             cfg.Password,
		DialTimeout:          cfg.DialTimeout,
		DialKeepAliveTime:    cfg.KeepAliveTime,
		DialKeepAliveTimeout: cfg.KeepAliveTimeout,
	})
	if err != nil {
		return nil, wrapErr(ErrConnection, err, "etcd connector[%s]: create client", cfg.Name)
	}

	return &etcdConnector{
		cfg:     cfg,
		client:  client,
		logger:  o.logger.With(clog.String("connector", "etcd"), clog.String("name", cfg.Name)),
		metrics: m,
	}, nil
}

// probe 对第一个 endpoint 执行 Status 请求
func (c *etcdConnector) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	_, err := c.client.Status(probeCtx, c.cfg.Endpoints[0])
	return err
}

func (c *etcdConnector) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.logger.Info("attempting to connect to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	err := c.probe(ctx)
	c.metrics.attempt(ctx, err)
	if err != nil {
		c.healthy.Store(false)
		c.metrics.setUp(ctx, false)
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return wrapErr(ErrConnection, err, "etcd connector[%s]", c.cfg.Name)
	}

	c.healthy.Store(true)
	c.metrics.setUp(ctx, true)
	c.logger.Info("connected to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

func (c *etcdConnector) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.healthy.Store(false)
	c.metrics.setUp(context.Background(), false)

	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.probe(ctx); err != nil {
		c.healthy.Store(false)
		c.metrics.setUp(ctx, false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return wrapErr(ErrHealthCheck, err, "etcd connector[%s]", c.cfg.Name)
	}

	c.healthy.Store(true)
	c.metrics.setUp(ctx, true)
	return nil
}

func (c *etcdConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *etcdConnector) Name() string {
	return c.cfg.Name
}

func (c *etcdConnector) GetClient() *clientv3.Client {
	return c.client
}
