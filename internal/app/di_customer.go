package app

import (
	"context"
	"fmt"

	"github.com/allisson/orderflow/internal/credentials"
	customerHTTP "github.com/allisson/orderflow/internal/customer/http"
	customerRepository "github.com/allisson/orderflow/internal/customer/repository"
	customerUseCase "github.com/allisson/orderflow/internal/customer/usecase"
	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/http"
)

// CustomerRepository returns the customer repository based on database driver.
func (c *Container) CustomerRepository() (customerUseCase.CustomerRepository, error) {
	var err error
	c.customerRepositoryInit.Do(func() {
		c.customerRepository, err = c.initCustomerRepository()
		if err != nil {
			c.initErrors["customerRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["customerRepository"]; exists {
		return nil, storedErr
	}
	return c.customerRepository, nil
}

// ProcessedOrderEventRepository returns the processed event repository based on database driver.
func (c *Container) ProcessedOrderEventRepository() (customerUseCase.ProcessedOrderEventRepository, error) {
	var err error
	c.processedOrderEventRepositoryInit.Do(func() {
		c.processedOrderEventRepository, err = c.initProcessedOrderEventRepository()
		if err != nil {
			c.initErrors["processedOrderEventRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["processedOrderEventRepository"]; exists {
		return nil, storedErr
	}
	return c.processedOrderEventRepository, nil
}

// CustomerUseCase returns the customer use case.
func (c *Container) CustomerUseCase() (customerUseCase.CustomerUseCase, error) {
	var err error
	c.customerUseCaseInit.Do(func() {
		c.customerUseCase, err = c.initCustomerUseCase()
		if err != nil {
			c.initErrors["customerUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["customerUseCase"]; exists {
		return nil, storedErr
	}
	return c.customerUseCase, nil
}

// CustomerHandler returns the HTTP handler for customers.
func (c *Container) CustomerHandler() (*customerHTTP.CustomerHandler, error) {
	var err error
	c.customerHandlerInit.Do(func() {
		c.customerHandler, err = c.initCustomerHandler()
		if err != nil {
			c.initErrors["customerHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["customerHandler"]; exists {
		return nil, storedErr
	}
	return c.customerHandler, nil
}

// CustomerServer returns the internal customer API server with its routes configured.
func (c *Container) CustomerServer() (*http.Server, error) {
	var err error
	c.customerServerInit.Do(func() {
		c.customerServer, err = c.initCustomerServer()
		if err != nil {
			c.initErrors["customerServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["customerServer"]; exists {
		return nil, storedErr
	}
	return c.customerServer, nil
}

// InternalAPIKey returns the key shared by both services, decrypting the configured
// ciphertext when one is set.
func (c *Container) InternalAPIKey() (string, error) {
	var err error
	c.internalAPIKeyInit.Do(func() {
		c.internalAPIKey, err = credentials.Resolve(context.Background(), credentials.Source{
			Plaintext:  c.config.InternalAPIKey,
			Ciphertext: c.config.InternalAPIKeyCiphertext,
			KeeperURL:  c.config.SecretsKeeperURL,
		})
		if err != nil {
			c.initErrors["internalAPIKey"] = err
		}
	})
	if err != nil {
		return "", err
	}
	if storedErr, exists := c.initErrors["internalAPIKey"]; exists {
		return "", storedErr
	}
	return c.internalAPIKey, nil
}

// apiKeyVerifier checks presented keys against INTERNAL_API_KEY_HASH when it is set, so the
// customer service can run without the plaintext key.
func (c *Container) apiKeyVerifier() (credentials.KeyVerifier, error) {
	if c.config.InternalAPIKeyHash != "" {
		return credentials.NewKeyVerifier(c.config.InternalAPIKeyHash, "")
	}

	apiKey, err := c.InternalAPIKey()
	if err != nil {
		return nil, err
	}
	return credentials.NewKeyVerifier("", apiKey)
}

func (c *Container) initCustomerRepository() (customerUseCase.CustomerRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for customer repository: %w", err)
	}

	dialect, err := c.dialect()
	if err != nil {
		return nil, err
	}

	switch dialect {
	case database.DriverMySQL:
		return customerRepository.NewMySQLCustomerRepository(db), nil
	default:
		return customerRepository.NewPostgreSQLCustomerRepository(db), nil
	}
}

func (c *Container) initProcessedOrderEventRepository() (customerUseCase.ProcessedOrderEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for processed order event repository: %w", err)
	}

	dialect, err := c.dialect()
	if err != nil {
		return nil, err
	}

	switch dialect {
	case database.DriverMySQL:
		return customerRepository.NewMySQLProcessedOrderEventRepository(db), nil
	default:
		return customerRepository.NewPostgreSQLProcessedOrderEventRepository(db), nil
	}
}

func (c *Container) initCustomerUseCase() (customerUseCase.CustomerUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for customer use case: %w", err)
	}

	customerRepo, err := c.CustomerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get customer repository for customer use case: %w", err)
	}

	eventRepo, err := c.ProcessedOrderEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get processed order event repository for customer use case: %w", err)
	}

	baseUseCase := customerUseCase.NewCustomerUseCase(txManager, customerRepo, eventRepo)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for customer use case: %w", err)
		}
		return customerUseCase.NewCustomerUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initCustomerHandler() (*customerHTTP.CustomerHandler, error) {
	useCase, err := c.CustomerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get customer use case for customer handler: %w", err)
	}

	return customerHTTP.NewCustomerHandler(useCase, c.Logger()), nil
}

func (c *Container) initCustomerServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for customer server: %w", err)
	}

	handler, err := c.CustomerHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get customer handler for customer server: %w", err)
	}

	verifier, err := c.apiKeyVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve internal api key for customer server: %w", err)
	}
	if verifier == nil {
		c.Logger().Warn("internal api key is empty, every customer request will be rejected")
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for customer server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupCustomerRouter(
		c.config,
		handler,
		customerHTTP.APIKeyMiddleware(verifier, c.Logger()),
		provider,
		c.config.MetricsNamespace,
	)

	return server, nil
}
