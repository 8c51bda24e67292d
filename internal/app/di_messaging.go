package app

import (
	"fmt"

	"github.com/allisson/orderflow/internal/customer/consumer"
	"github.com/allisson/orderflow/internal/messaging/rabbitmq"
)

// Publisher returns the RabbitMQ publisher used by the outbox relay.
func (c *Container) Publisher() *rabbitmq.Publisher {
	c.publisherInit.Do(func() {
		c.publisher = rabbitmq.NewPublisher(rabbitmq.PublisherConfig{
			URL:         c.config.RabbitMQURL,
			Exchange:    c.config.RabbitMQExchange,
			MaxAttempts: c.config.RabbitMQPublishMaxAttempts,
			BaseDelay:   c.config.RabbitMQPublishBaseDelay,
		}, c.Logger())
	})
	return c.publisher
}

// Topology returns the exchange and queue names from configuration.
func (c *Container) Topology() rabbitmq.Topology {
	return rabbitmq.Topology{
		Exchange:           c.config.RabbitMQExchange,
		Queue:              c.config.RabbitMQQueue,
		BindingKey:         c.config.RabbitMQBindingKey,
		DeadLetterEnabled:  c.config.RabbitMQDeadLetterEnabled,
		DeadLetterExchange: c.config.RabbitMQDeadLetterExchange,
		DeadLetterQueue:    c.config.RabbitMQDeadLetterQueue,
	}
}

// Consumer returns the order.created consumer of the customer side.
func (c *Container) Consumer() (*rabbitmq.Consumer, error) {
	var err error
	c.consumerInit.Do(func() {
		c.consumer, err = c.initConsumer()
		if err != nil {
			c.initErrors["consumer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["consumer"]; exists {
		return nil, storedErr
	}
	return c.consumer, nil
}

func (c *Container) initConsumer() (*rabbitmq.Consumer, error) {
	useCase, err := c.CustomerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get customer use case for consumer: %w", err)
	}

	handler := consumer.NewOrderCreatedHandler(useCase, c.Logger())

	return rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         c.config.RabbitMQURL,
		Topology:    c.Topology(),
		Prefetch:    c.config.RabbitMQPrefetch,
		ConsumerTag: "customer_service",
	}, handler, c.Logger()), nil
}
