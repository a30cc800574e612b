package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/example/storefront/docs"
	"github.com/example/storefront/pkg/account"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/order"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency for GET /health.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Catalog  *catalog.Service
	Cart     *cart.Service
	Orders   *order.Service
	Accounts *account.Service
}

type Gateway struct {
	config   *config.Config
	services Services
	metrics  *metrics.Metrics
	checks   map[string]HealthCheck
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
}

func NewGateway(cfg *config.Config, services Services, m *metrics.Metrics, checks map[string]HealthCheck, logger *zap.Logger) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(logger))
	if m != nil {
		router.Use(m.Middleware())
	}
	if len(cfg.HTTP.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.HTTP.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-CSRFToken", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	return &Gateway{
		config:   cfg,
		services: services,
		metrics:  m,
		checks:   checks,
		logger:   logger,
		router:   router,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)
	if g.metrics != nil {
		g.router.GET("/metrics", gin.WrapH(g.metrics.Handler()))
	}

	api := g.router.Group("/api")
	{
		api.GET("/categories", g.listCategories)
		api.GET("/categories/:slug", g.getCategory)

		products := api.Group("/products")
		{
			products.GET("", g.listProducts)
			products.GET("/featured", g.featuredProducts)
			products.GET("/:slug", g.getProduct)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/register", g.register)
			auth.POST("/login", g.login)
			auth.POST("/logout", g.logout)
		}

		api.POST("/newsletter/subscribe", g.subscribeNewsletter)

		private := api.Group("", g.requireUser)
		{
			private.GET("/cart", g.listCart)
			private.POST("/cart", g.addToCart)
			private.GET("/cart/total", g.cartTotal)
			private.PATCH("/cart/:id", g.updateCartLine)
			private.DELETE("/cart/:id", g.removeCartLine)

			private.GET("/orders", g.listOrders)
			private.POST("/orders", g.createOrder)
			private.GET("/orders/:id", g.getOrder)
			private.POST("/orders/:id/create_payment", g.createPayment)
			private.POST("/orders/:id/verify_payment", g.verifyPayment)

			private.GET("/users/me", g.me)
			private.PUT("/users/me", g.updateMe)
			private.PATCH("/users/me", g.updateMe)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	g.logger.Info("HTTP server starting", zap.String("address", g.server.Addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

func (g *Gateway) health(c *gin.Context) {
	failed := gin.H{}
	for name, check := range g.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
		cancel()
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
}
