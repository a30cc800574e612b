package discovery

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const leaseTTL = 30

// etcdClient is the part of *clientv3.Client the registry uses.
type etcdClient interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Close() error
}

// Registry announces this process in etcd under a kept-alive lease.
type Registry struct {
	client etcdClient
	config *config.EtcdConfig
	logger *zap.Logger
	lease  clientv3.LeaseID
}

type ServiceInstance struct {
	Name string
	Host string
	Port int
}

func (i *ServiceInstance) Addr() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

func instanceKey(prefix string, i *ServiceInstance) string {
	return fmt.Sprintf("%s%s/%s", prefix, i.Name, i.Addr())
}

func NewRegistry(cfg *config.EtcdConfig, logger *zap.Logger) (*Registry, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return newRegistry(cli, cfg, logger), nil
}

func newRegistry(client etcdClient, cfg *config.EtcdConfig, logger *zap.Logger) *Registry {
	return &Registry{client: client, config: cfg, logger: logger}
}

// Register puts instances under one lease and keeps it alive until ctx ends.
func (r *Registry) Register(ctx context.Context, instances ...*ServiceInstance) error {
	lease, err := r.client.Grant(ctx, leaseTTL)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}
	r.lease = lease.ID

	for _, i := range instances {
		if _, err := r.client.Put(ctx, instanceKey(r.config.Prefix, i), i.Addr(), clientv3.WithLease(lease.ID)); err != nil {
			return fmt.Errorf("failed to register %s: %w", i.Name, err)
		}
		r.logger.Info("Registered in etcd", zap.String("service", i.Name), zap.String("address", i.Addr()))
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}
	go func() {
		for range ch {
		}
		r.logger.Info("etcd lease keep-alive stopped")
	}()
	return nil
}

// Deregister revokes the lease, removing every key registered with it.
func (r *Registry) Deregister(ctx context.Context) error {
	if r.lease == 0 {
		return nil
	}
	if _, err := r.client.Revoke(ctx, r.lease); err != nil {
		return fmt.Errorf("failed to deregister: %w", err)
	}
	r.lease = 0
	return nil
}

func (r *Registry) Close() error {
	return r.client.Close()
}
