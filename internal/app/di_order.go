package app

import (
	"fmt"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/http"
	orderHTTP "github.com/allisson/orderflow/internal/order/http"
	orderRepository "github.com/allisson/orderflow/internal/order/repository"
	"github.com/allisson/orderflow/internal/order/service"
	orderUseCase "github.com/allisson/orderflow/internal/order/usecase"
)

// OrderRepository returns the order repository based on database driver.
func (c *Container) OrderRepository() (orderUseCase.OrderRepository, error) {
	var err error
	c.orderRepositoryInit.Do(func() {
		c.orderRepository, err = c.initOrderRepository()
		if err != nil {
			c.initErrors["orderRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderRepository"]; exists {
		return nil, storedErr
	}
	return c.orderRepository, nil
}

// IdempotencyKeyRepository returns the idempotency key repository based on database driver.
func (c *Container) IdempotencyKeyRepository() (orderUseCase.IdempotencyKeyRepository, error) {
	var err error
	c.idempotencyKeyRepositoryInit.Do(func() {
		c.idempotencyKeyRepository, err = c.initIdempotencyKeyRepository()
		if err != nil {
			c.initErrors["idempotencyKeyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["idempotencyKeyRepository"]; exists {
		return nil, storedErr
	}
	return c.idempotencyKeyRepository, nil
}

// CustomerClient returns the resilient customer service client.
func (c *Container) CustomerClient() (*service.CustomerClient, error) {
	var err error
	c.customerClientInit.Do(func() {
		c.customerClient, err = c.initCustomerClient()
		if err != nil {
			c.initErrors["customerClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["customerClient"]; exists {
		return nil, storedErr
	}
	return c.customerClient, nil
}

// OrderUseCase returns the order use case.
func (c *Container) OrderUseCase() (orderUseCase.OrderUseCase, error) {
	var err error
	c.orderUseCaseInit.Do(func() {
		c.orderUseCase, err = c.initOrderUseCase()
		if err != nil {
			c.initErrors["orderUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderUseCase"]; exists {
		return nil, storedErr
	}
	return c.orderUseCase, nil
}

// OrderHandler returns the HTTP handler for orders.
func (c *Container) OrderHandler() (*orderHTTP.OrderHandler, error) {
	var err error
	c.orderHandlerInit.Do(func() {
		c.orderHandler, err = c.initOrderHandler()
		if err != nil {
			c.initErrors["orderHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderHandler"]; exists {
		return nil, storedErr
	}
	return c.orderHandler, nil
}

// OrderServer returns the order API server with its routes configured.
func (c *Container) OrderServer() (*http.Server, error) {
	var err error
	c.orderServerInit.Do(func() {
		c.orderServer, err = c.initOrderServer()
		if err != nil {
			c.initErrors["orderServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderServer"]; exists {
		return nil, storedErr
	}
	return c.orderServer, nil
}

func (c *Container) initOrderRepository() (orderUseCase.OrderRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for order repository: %w", err)
	}

	dialect, err := c.dialect()
	if err != nil {
		return nil, err
	}

	switch dialect {
	case database.DriverMySQL:
		return orderRepository.NewMySQLOrderRepository(db), nil
	default:
		return orderRepository.NewPostgreSQLOrderRepository(db), nil
	}
}

func (c *Container) initIdempotencyKeyRepository() (orderUseCase.IdempotencyKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for idempotency key repository: %w", err)
	}

	dialect, err := c.dialect()
	if err != nil {
		return nil, err
	}

	switch dialect {
	case database.DriverMySQL:
		return orderRepository.NewMySQLIdempotencyKeyRepository(db), nil
	default:
		return orderRepository.NewPostgreSQLIdempotencyKeyRepository(db), nil
	}
}

func (c *Container) initCustomerClient() (*service.CustomerClient, error) {
	breakers, err := c.CircuitBreakers()
	if err != nil {
		return nil, fmt.Errorf("failed to get circuit breakers for customer client: %w", err)
	}

	apiKey, err := c.InternalAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve internal api key for customer client: %w", err)
	}

	return service.NewCustomerClient(service.CustomerClientConfig{
		BaseURL:          c.config.CustomerServiceURL,
		APIKey:           apiKey,
		ConnectTimeout:   c.config.CustomerClientConnectTimeout,
		ReadTimeout:      c.config.CustomerClientReadTimeout,
		MaxRetries:       c.config.CustomerClientMaxRetries,
		RetryBase:        c.config.CustomerClientRetryBase,
		BreakerThreshold: c.config.CustomerClientBreakerThreshold,
		BreakerCooldown:  c.config.CustomerClientBreakerCooldown,
	}, breakers, c.Logger()), nil
}

func (c *Container) initOrderUseCase() (orderUseCase.OrderUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for order use case: %w", err)
	}

	orderRepo, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for order use case: %w", err)
	}

	keyRepo, err := c.IdempotencyKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key repository for order use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for order use case: %w", err)
	}

	customerClient, err := c.CustomerClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get customer client for order use case: %w", err)
	}

	baseUseCase := orderUseCase.NewOrderUseCase(txManager, orderRepo, keyRepo, outboxRepo, customerClient)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for order use case: %w", err)
		}
		return orderUseCase.NewOrderUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initOrderHandler() (*orderHTTP.OrderHandler, error) {
	useCase, err := c.OrderUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get order use case for order handler: %w", err)
	}

	return orderHTTP.NewOrderHandler(useCase, c.Logger()), nil
}

func (c *Container) initOrderServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for order server: %w", err)
	}

	handler, err := c.OrderHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get order handler for order server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for order server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupOrderRouter(c.config, handler, provider, c.config.MetricsNamespace)

	return server, nil
}
