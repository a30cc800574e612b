package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check probes one dependency; a non-nil error marks the service not serving.
type Check func(ctx context.Context) error

// HealthServer exposes the standard gRPC health service for the storefront.
type HealthServer struct {
	config  config.ServerConfig
	server  *grpc.Server
	health  *health.Server
	checks  map[string]Check
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthServer(cfg config.ServerConfig, checks map[string]Check, logger *zap.Logger) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		config:  cfg,
		server:  srv,
		health:  hs,
		checks:  checks,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Probe runs every check and publishes the result for the overall ("") and
// the named service.
func (h *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := check(cctx)
		cancel()
		if err != nil {
			h.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(h.config.Name, status)
	return status
}

// Watch probes every interval until ctx ends.
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	h.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

func (h *HealthServer) Start() error {
	addr := fmt.Sprintf("%s:%d", h.config.Host, h.config.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	h.logger.Info("gRPC health server started", zap.String("address", addr))
	return h.server.Serve(lis)
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
