// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/orderflow/internal/circuitbreaker"
	"github.com/allisson/orderflow/internal/config"
	customerHTTP "github.com/allisson/orderflow/internal/customer/http"
	customerUseCase "github.com/allisson/orderflow/internal/customer/usecase"
	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/http"
	"github.com/allisson/orderflow/internal/messaging/rabbitmq"
	"github.com/allisson/orderflow/internal/metrics"
	orderHTTP "github.com/allisson/orderflow/internal/order/http"
	"github.com/allisson/orderflow/internal/order/service"
	orderUseCase "github.com/allisson/orderflow/internal/order/usecase"
	outboxUseCase "github.com/allisson/orderflow/internal/outbox/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	breakers        *circuitbreaker.Manager

	// Managers
	txManager database.TxManager

	// Repositories
	orderRepository               orderUseCase.OrderRepository
	idempotencyKeyRepository      orderUseCase.IdempotencyKeyRepository
	outboxRepository              outboxUseCase.OutboxEventRepository
	customerRepository            customerUseCase.CustomerRepository
	processedOrderEventRepository customerUseCase.ProcessedOrderEventRepository

	// Services
	customerClient *service.CustomerClient
	publisher      *rabbitmq.Publisher
	internalAPIKey string

	// Use Cases
	orderUseCase    orderUseCase.OrderUseCase
	relayUseCase    outboxUseCase.RelayUseCase
	customerUseCase customerUseCase.CustomerUseCase

	// Handlers
	orderHandler    *orderHTTP.OrderHandler
	customerHandler *customerHTTP.CustomerHandler

	// Servers and Workers
	orderServer    *http.Server
	customerServer *http.Server
	metricsServer  *http.MetricsServer
	relayRunner    *outboxUseCase.Runner
	consumer       *rabbitmq.Consumer

	// Initialization flags and mutex for thread-safety
	mu                                sync.Mutex
	loggerInit                        sync.Once
	dbInit                            sync.Once
	metricsProviderInit               sync.Once
	businessMetricsInit               sync.Once
	breakersInit                      sync.Once
	txManagerInit                     sync.Once
	orderRepositoryInit               sync.Once
	idempotencyKeyRepositoryInit      sync.Once
	outboxRepositoryInit              sync.Once
	customerRepositoryInit            sync.Once
	processedOrderEventRepositoryInit sync.Once
	customerClientInit                sync.Once
	publisherInit                     sync.Once
	internalAPIKeyInit                sync.Once
	orderUseCaseInit                  sync.Once
	relayUseCaseInit                  sync.Once
	customerUseCaseInit               sync.Once
	orderHandlerInit                  sync.Once
	customerHandlerInit               sync.Once
	orderServerInit                   sync.Once
	customerServerInit                sync.Once
	metricsServerInit                 sync.Once
	relayRunnerInit                   sync.Once
	consumerInit                      sync.Once
	initErrors                        map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// CircuitBreakers returns the breaker manager. Transitions are counted when metrics are enabled.
func (c *Container) CircuitBreakers() (*circuitbreaker.Manager, error) {
	var err error
	c.breakersInit.Do(func() {
		c.breakers, err = c.initCircuitBreakers()
		if err != nil {
			c.initErrors["breakers"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["breakers"]; exists {
		return nil, storedErr
	}
	return c.breakers, nil
}

// MetricsServer returns the server exposing /metrics on the metrics port.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.orderServer != nil {
		if err := c.orderServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("order server shutdown: %w", err))
		}
	}

	if c.customerServer != nil {
		if err := c.customerServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("customer server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	if _, err := database.Dialect(c.config.DBDriver); err != nil {
		return nil, err
	}

	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

func (c *Container) initCircuitBreakers() (*circuitbreaker.Manager, error) {
	manager := circuitbreaker.NewManager(c.Logger())

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for circuit breakers: %w", err)
	}

	breakerMetrics := metrics.NewNoOpBreakerMetrics()
	if provider != nil {
		breakerMetrics, err = metrics.NewBreakerMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create breaker metrics: %w", err)
		}
	}
	manager.RegisterStateChangeListener(circuitbreaker.NewMetricsListener(breakerMetrics))

	return manager, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}

// dialect resolves the SQL dialect of the configured driver for repository selection.
func (c *Container) dialect() (string, error) {
	return database.Dialect(c.config.DBDriver)
}
