package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/allisson/orderflow/internal/backoff"
)

// ErrMalformedMessage marks a delivery that can never be processed. With dead-lettering
// enabled such deliveries are rejected without requeue.
var ErrMalformedMessage = errors.New("malformed message")

var errDeliveriesClosed = errors.New("delivery channel closed")

const (
	defaultPrefetch          = 1
	defaultReconnectBase     = time.Second
	defaultReconnectMaxDelay = 30 * time.Second
)

// Handler applies one delivery body. Returning nil acknowledges the delivery.
type Handler interface {
	Handle(ctx context.Context, body []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, body []byte) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, body []byte) error {
	return f(ctx, body)
}

// ConsumeChannel is the subset of *amqp.Channel used by the consumer.
type ConsumeChannel interface {
	TopologyChannel
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// ConsumeConnector opens the connection and channel for one consumer session.
type ConsumeConnector func(ctx context.Context) (io.Closer, ConsumeChannel, error)

// DialConsumeConnector returns a ConsumeConnector dialing url.
func DialConsumeConnector(url string) ConsumeConnector {
	return func(ctx context.Context) (io.Closer, ConsumeChannel, error) {
		conn, ch, err := dial(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return conn, ch, nil
	}
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	URL               string
	Topology          Topology
	Prefetch          int
	ConsumerTag       string
	ReconnectBase     time.Duration
	ReconnectMaxDelay time.Duration
}

// ConsumerOption customizes a Consumer.
type ConsumerOption func(*Consumer)

// WithConsumeConnector replaces the AMQP dialer.
func WithConsumeConnector(connector ConsumeConnector) ConsumerOption {
	return func(c *Consumer) {
		if connector != nil {
			c.connect = connector
		}
	}
}

// WithReconnectSleep replaces the wait between reconnection attempts.
func WithReconnectSleep(sleep func(ctx context.Context, d time.Duration) error) ConsumerOption {
	return func(c *Consumer) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// Consumer delivers messages from a durable queue to a Handler with manual acknowledgement.
type Consumer struct {
	config  ConsumerConfig
	handler Handler
	connect ConsumeConnector
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(config ConsumerConfig, handler Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	if config.Prefetch <= 0 {
		config.Prefetch = defaultPrefetch
	}
	if config.ReconnectBase <= 0 {
		config.ReconnectBase = defaultReconnectBase
	}
	if config.ReconnectMaxDelay <= 0 {
		config.ReconnectMaxDelay = defaultReconnectMaxDelay
	}

	c := &Consumer{
		config:  config,
		handler: handler,
		connect: DialConsumeConnector(config.URL),
		sleep:   backoff.SleepWithContext,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is cancelled. Lost connections and channels are re-established
// with exponential backoff; the backoff resets once a session starts consuming.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("starting consumer",
		slog.String("queue", c.config.Topology.Queue),
		slog.String("binding_key", c.config.Topology.BindingKey),
		slog.Int("prefetch", c.config.Prefetch),
	)

	failures := 0
	for {
		err := c.session(ctx, func() { failures = 0 })
		if ctx.Err() != nil {
			c.logger.Info("stopping consumer")
			return nil
		}

		delay := min(backoff.Exponential(c.config.ReconnectBase, failures), c.config.ReconnectMaxDelay)
		failures++

		c.logger.Warn("consumer session ended, reconnecting",
			slog.Int("attempt", failures),
			slog.Duration("retry_in", delay),
			slog.Any("error", err),
		)

		if err := c.sleep(ctx, delay); err != nil {
			c.logger.Info("stopping consumer")
			return nil
		}
	}
}

// session runs one connection until it fails or ctx is done. ready is called once the
// subscription is active.
func (c *Consumer) session(ctx context.Context, ready func()) error {
	conn, ch, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeQuietly(ch, conn); err != nil {
			c.logger.Debug("failed to release rabbitmq consumer resources", slog.Any("error", err))
		}
	}()

	if err := DeclareConsumerTopology(ch, c.config.Topology); err != nil {
		return err
	}

	if err := ch.Qos(c.config.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	deliveries, err := ch.Consume(c.config.Topology.Queue, c.config.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %q: %w", c.config.Topology.Queue, err)
	}

	ready()

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if ok && amqpErr != nil {
				return fmt.Errorf("channel closed: %w", amqpErr)
			}
			return errDeliveriesClosed
		case delivery, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.handle(ctx, delivery)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	logger := c.logger.With(
		slog.String("message_id", delivery.MessageId),
		slog.String("routing_key", delivery.RoutingKey),
		slog.Bool("redelivered", delivery.Redelivered),
	)

	err := c.handler.Handle(ctx, delivery.Body)
	if err == nil {
		if ackErr := delivery.Ack(false); ackErr != nil {
			logger.Error("failed to ack delivery", slog.Any("error", ackErr))
		}
		return
	}

	requeue := !(c.config.Topology.DeadLetterEnabled && errors.Is(err, ErrMalformedMessage))
	if requeue {
		logger.Warn("delivery failed, requeueing", slog.Any("error", err))
	} else {
		logger.Error("delivery is malformed, dead-lettering", slog.Any("error", err))
	}

	if nackErr := delivery.Nack(false, requeue); nackErr != nil {
		logger.Error("failed to nack delivery", slog.Any("error", nackErr))
	}
}
