package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/account"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/logger"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/order"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/session"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("STOREFRONT_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(cfg.Log, cfg.Server.Name)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting storefront",
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("grpc_port", cfg.Server.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := repository.NewMySQL(&cfg.MySQL)
	if err != nil {
		log.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal("Failed to migrate", zap.Error(err))
	}

	// Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(ctx); err != nil {
		log.Warn("Redis connection failed", zap.Error(err))
	} else {
		log.Info("Redis connected successfully")
	}

	// MongoDB audit trail is optional
	var auditor repository.AuditLogger = repository.NopAuditLogger{}
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			log.Warn("Failed to connect to MongoDB, audit trail disabled", zap.Error(err))
		} else {
			defer mongoRepo.Close(context.Background())
			auditor = mongoRepo
		}
	}

	m := metrics.New()

	dispatcher, err := notify.NewDispatcher(
		notify.NewMailer(cfg.Mail, log.Named("mail")),
		cfg.Mail.OperatorAddress(),
		auditor, m, log.Named("notify"))
	if err != nil {
		log.Fatal("Failed to start notification dispatcher", zap.Error(err))
	}

	var provider payment.Provider
	if cfg.Payment.Configured() {
		provider = payment.NewRazorpay(cfg.Payment)
	} else {
		log.Warn("Payment credentials not configured, checkout payments are disabled")
	}

	sessions := session.NewStore(redisRepo, cfg.Session.TTL)
	services := gateway.Services{
		Catalog:  catalog.NewService(db, redisRepo, cfg.Catalog.FeaturedCacheTTL, log.Named("catalog")),
		Cart:     cart.NewService(db, log.Named("cart")),
		Orders:   order.NewService(db, cfg.Payment, provider, dispatcher, auditor, m, log.Named("order")),
		Accounts: account.NewService(db, sessions, dispatcher, log.Named("account")),
	}

	pingMySQL := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	gw := gateway.NewGateway(cfg, services, m, map[string]gateway.HealthCheck{
		"mysql": pingMySQL,
		"redis": redisRepo.Ping,
	}, log.Named("http"))
	gw.SetupRoutes()

	health := grpc.NewHealthServer(cfg.Server, map[string]grpc.Check{
		"mysql": pingMySQL,
		"redis": redisRepo.Ping,
	}, log.Named("grpc"))
	go health.Watch(ctx, 10*time.Second)

	serverErr := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := health.Start(); err != nil {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()

	// Service discovery
	var registry *discovery.Registry
	if cfg.Etcd.Enabled {
		registry, err = discovery.NewRegistry(&cfg.Etcd, log.Named("discovery"))
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			err = registry.Register(ctx,
				&discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.Server.Port},
				&discovery.ServiceInstance{Name: cfg.Server.Name + "-http", Host: cfg.HTTP.Host, Port: cfg.HTTP.Port},
			)
			if err != nil {
				log.Warn("Failed to register service", zap.Error(err))
			}
		}
	}

	log.Info("Storefront started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("Server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if registry != nil {
		if err := registry.Deregister(shutdownCtx); err != nil {
			log.Error("Failed to deregister service", zap.Error(err))
		}
		registry.Close()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}
	health.Stop()
	cancel()
	if err := dispatcher.Close(); err != nil {
		log.Error("Failed to drain notifications", zap.Error(err))
	}

	log.Info("Storefront stopped")
}
