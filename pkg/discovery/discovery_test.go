package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

type fakeEtcd struct {
	mu        sync.Mutex
	nextLease clientv3.LeaseID
	keys      map[string]clientv3.LeaseID
	granted   []int64
	kept      []clientv3.LeaseID
	revoked   []clientv3.LeaseID
	keepDone  chan struct{}
	grantErr  error
	putErr    error
}

func newFakeEtcd() *fakeEtcd {
	return &fakeEtcd{nextLease: 100, keys: map[string]clientv3.LeaseID{}, keepDone: make(chan struct{})}
}

func (f *fakeEtcd) Grant(_ context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		return nil, f.grantErr
	}
	f.nextLease++
	f.granted = append(f.granted, ttl)
	return &clientv3.LeaseGrantResponse{ID: f.nextLease, TTL: ttl}, nil
}

func (f *fakeEtcd) Put(_ context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	if len(opts) == 0 {
		return nil, errors.New("put without lease")
	}
	f.keys[key] = f.nextLease
	return &clientv3.PutResponse{}, nil
}

// KeepAlive ticks until ctx ends, then closes the channel like the real client.
func (f *fakeEtcd) KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error) {
	f.mu.Lock()
	f.kept = append(f.kept, id)
	f.mu.Unlock()

	ch := make(chan *clientv3.LeaseKeepAliveResponse)
	go func() {
		defer close(f.keepDone)
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ch <- &clientv3.LeaseKeepAliveResponse{ID: id, TTL: leaseTTL}:
				time.Sleep(time.Millisecond)
			}
		}
	}()
	return ch, nil
}

func (f *fakeEtcd) Revoke(_ context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	for k, lease := range f.keys {
		if lease == id {
			delete(f.keys, k)
		}
	}
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (f *fakeEtcd) Close() error { return nil }

func (f *fakeEtcd) snapshot() map[string]clientv3.LeaseID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]clientv3.LeaseID, len(f.keys))
	for k, v := range f.keys {
		out[k] = v
	}
	return out
}

var etcdConfig = &config.EtcdConfig{Prefix: "/services/"}

func TestInstanceKey(t *testing.T) {
	i := &ServiceInstance{Name: "storefront-http", Host: "10.0.0.5", Port: 8000}

	assert.Equal(t, "10.0.0.5:8000", i.Addr())
	assert.Equal(t, "/services/storefront-http/10.0.0.5:8000", instanceKey("/services/", i))
}

func TestRegisterAndDeregister(t *testing.T) {
	etcd := newFakeEtcd()
	r := newRegistry(etcd, etcdConfig, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := r.Register(ctx,
		&ServiceInstance{Name: "storefront", Host: "10.0.0.5", Port: 50051},
		&ServiceInstance{Name: "storefront-http", Host: "10.0.0.5", Port: 8000},
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]clientv3.LeaseID{
		"/services/storefront/10.0.0.5:50051":     101,
		"/services/storefront-http/10.0.0.5:8000": 101,
	}, etcd.snapshot())
	assert.Equal(t, []int64{leaseTTL}, etcd.granted)
	assert.Equal(t, []clientv3.LeaseID{101}, etcd.kept)

	require.NoError(t, r.Deregister(context.Background()))
	assert.Empty(t, etcd.snapshot())
	assert.Equal(t, []clientv3.LeaseID{101}, etcd.revoked)

	// A second call has no lease left to revoke.
	require.NoError(t, r.Deregister(context.Background()))
	assert.Len(t, etcd.revoked, 1)

	cancel()
	select {
	case <-etcd.keepDone:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not stop after the context ended")
	}
	require.NoError(t, r.Close())
}

func TestRegisterErrors(t *testing.T) {
	etcd := newFakeEtcd()
	etcd.grantErr = errors.New("etcd unavailable")
	r := newRegistry(etcd, etcdConfig, zap.NewNop())

	err := r.Register(context.Background(), &ServiceInstance{Name: "storefront", Host: "h", Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create lease")
	require.NoError(t, r.Deregister(context.Background()))
	assert.Empty(t, etcd.revoked)

	etcd = newFakeEtcd()
	etcd.putErr = errors.New("put rejected")
	r = newRegistry(etcd, etcdConfig, zap.NewNop())
	err = r.Register(context.Background(), &ServiceInstance{Name: "storefront", Host: "h", Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register storefront")
	assert.Empty(t, etcd.kept)
}
