package app

import (
	"context"
	"fmt"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/metrics"
	outboxRepository "github.com/allisson/orderflow/internal/outbox/repository"
	outboxUseCase "github.com/allisson/orderflow/internal/outbox/usecase"
)

// OutboxRepository returns the outbox event repository based on database driver.
func (c *Container) OutboxRepository() (outboxUseCase.OutboxEventRepository, error) {
	var err error
	c.outboxRepositoryInit.Do(func() {
		c.outboxRepository, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepository"]; exists {
		return nil, storedErr
	}
	return c.outboxRepository, nil
}

// RelayUseCase returns the outbox relay use case.
func (c *Container) RelayUseCase() (outboxUseCase.RelayUseCase, error) {
	var err error
	c.relayUseCaseInit.Do(func() {
		c.relayUseCase, err = c.initRelayUseCase()
		if err != nil {
			c.initErrors["relayUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["relayUseCase"]; exists {
		return nil, storedErr
	}
	return c.relayUseCase, nil
}

// RelayRunner returns the worker driving the relay and the stuck-event reaper. With metrics
// enabled it also registers the outbox backlog gauge.
func (c *Container) RelayRunner() (*outboxUseCase.Runner, error) {
	var err error
	c.relayRunnerInit.Do(func() {
		c.relayRunner, err = c.initRelayRunner()
		if err != nil {
			c.initErrors["relayRunner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["relayRunner"]; exists {
		return nil, storedErr
	}
	return c.relayRunner, nil
}

// RelayConfig returns the relay settings from configuration.
func (c *Container) RelayConfig() outboxUseCase.Config {
	return outboxUseCase.Config{
		Interval:       c.config.OutboxRelayInterval,
		BatchSize:      c.config.OutboxRelayBatchSize,
		StuckThreshold: c.config.OutboxStuckThreshold,
		ReaperInterval: c.config.OutboxReaperInterval,
	}
}

func (c *Container) initOutboxRepository() (outboxUseCase.OutboxEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	dialect, err := c.dialect()
	if err != nil {
		return nil, err
	}

	switch dialect {
	case database.DriverMySQL:
		return outboxRepository.NewMySQLOutboxEventRepository(db), nil
	default:
		return outboxRepository.NewPostgreSQLOutboxEventRepository(db), nil
	}
}

func (c *Container) initRelayUseCase() (outboxUseCase.RelayUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for relay use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for relay use case: %w", err)
	}

	baseUseCase := outboxUseCase.NewRelayUseCase(
		c.RelayConfig(),
		txManager,
		outboxRepo,
		c.Publisher(),
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for relay use case: %w", err)
		}
		return outboxUseCase.NewRelayUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initRelayRunner() (*outboxUseCase.Runner, error) {
	relay, err := c.RelayUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get relay use case for relay runner: %w", err)
	}

	if err := c.registerOutboxBacklog(); err != nil {
		return nil, err
	}

	return outboxUseCase.NewRunner(relay, c.RelayConfig(), c.Logger()), nil
}

// registerOutboxBacklog exposes the per-status outbox counts as a gauge read at scrape time.
func (c *Container) registerOutboxBacklog() error {
	provider, err := c.MetricsProvider()
	if err != nil {
		return fmt.Errorf("failed to get metrics provider for outbox backlog: %w", err)
	}
	if provider == nil {
		return nil
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return fmt.Errorf("failed to get outbox repository for outbox backlog: %w", err)
	}

	counter := func(ctx context.Context) (map[string]int64, error) {
		counts, err := outboxRepo.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		result := make(map[string]int64, len(counts))
		for status, count := range counts {
			result[string(status)] = count
		}
		return result, nil
	}

	if _, err := metrics.RegisterOutboxBacklog(provider.MeterProvider(), c.config.MetricsNamespace, counter); err != nil {
		return fmt.Errorf("failed to register outbox backlog gauge: %w", err)
	}
	return nil
}
