package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/example/storefront/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestProbe(t *testing.T) {
	var dbErr error
	h := NewHealthServer(config.ServerConfig{Name: "storefront"}, map[string]Check{
		"mysql": func(context.Context) error { return dbErr },
		"redis": func(context.Context) error { return nil },
	}, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Probe(ctx))
	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{Service: "storefront"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	dbErr = errors.New("connection refused")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, h.Probe(ctx))
	resp, err = h.health.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
