// Package http provides the HTTP servers shared by the order and customer APIs.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/orderflow/internal/config"
	customerHTTP "github.com/allisson/orderflow/internal/customer/http"
	"github.com/allisson/orderflow/internal/metrics"
	orderHTTP "github.com/allisson/orderflow/internal/order/http"
)

// Server is the public HTTP server of either the order or the customer API.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a Server. Call one of the Setup*Router methods before Start.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// newBaseRouter builds the engine with the middleware and probes common to both APIs.
func (s *Server) newBaseRouter(
	cfg *config.Config,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) *gin.Engine {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	return router
}

// SetupOrderRouter registers the order API routes.
func (s *Server) SetupOrderRouter(
	cfg *config.Config,
	orderHandler *orderHTTP.OrderHandler,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	router := s.newBaseRouter(cfg, metricsProvider, metricsNamespace)

	createMiddlewares := []gin.HandlerFunc{}
	if cfg.RateLimitEnabled {
		createMiddlewares = append(
			createMiddlewares,
			RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger),
		)
	}
	createMiddlewares = append(createMiddlewares, orderHandler.CreateHandler)

	v1 := router.Group("/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", createMiddlewares...)
			orders.GET("", orderHandler.ListHandler)
			orders.GET("/:id", orderHandler.GetHandler)
		}
	}

	s.router = router
}

// SetupCustomerRouter registers the internal customer API routes.
func (s *Server) SetupCustomerRouter(
	cfg *config.Config,
	customerHandler *customerHTTP.CustomerHandler,
	apiKeyMiddleware gin.HandlerFunc,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	router := s.newBaseRouter(cfg, metricsProvider, metricsNamespace)

	customers := router.Group("/customers")
	customers.Use(apiKeyMiddleware)
	{
		customers.GET("/:id", customerHandler.GetHandler)
	}

	s.router = router
}

// GetHandler returns the configured router.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves requests until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router is not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
