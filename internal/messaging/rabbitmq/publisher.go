package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/allisson/orderflow/internal/backoff"
)

// Publisher errors.
var (
	ErrPublishFailed  = errors.New("rabbitmq publish failed")
	ErrPublishNacked  = errors.New("message was nacked by broker")
	ErrConfirmTimeout = errors.New("publisher confirmation timed out")
	ErrConfirmClosed  = errors.New("channel closed before confirmation")
)

const (
	defaultMaxAttempts    = 5
	defaultBaseDelay      = time.Second
	defaultConfirmTimeout = 5 * time.Second
	defaultDialTimeout    = 5 * time.Second
)

// PublishChannel is the subset of *amqp.Channel used by the publisher.
type PublishChannel interface {
	ExchangeDeclarer
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connector opens a fresh connection and channel for one publish attempt.
type Connector func(ctx context.Context) (io.Closer, PublishChannel, error)

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	URL            string
	Exchange       string
	MaxAttempts    int
	BaseDelay      time.Duration
	ConfirmTimeout time.Duration
}

// PublisherOption customizes a Publisher.
type PublisherOption func(*Publisher)

// WithConnector replaces the AMQP dialer.
func WithConnector(connector Connector) PublisherOption {
	return func(p *Publisher) {
		if connector != nil {
			p.connect = connector
		}
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) PublisherOption {
	return func(p *Publisher) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// Publisher publishes persistent JSON messages to a durable topic exchange with publisher
// confirms. Every attempt uses its own connection, and a failed attempt is retried from the
// dial with base * 2^(attempt-1) between attempts.
type Publisher struct {
	config  PublisherConfig
	connect Connector
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

// NewPublisher creates a Publisher. Zero config values take the defaults (5 attempts, 1s
// base delay, 5s confirm timeout).
func NewPublisher(config PublisherConfig, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = defaultBaseDelay
	}
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = defaultConfirmTimeout
	}

	p := &Publisher{
		config:  config,
		connect: DialConnector(config.URL),
		sleep:   backoff.SleepWithContext,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DialConnector returns a Connector dialing url.
func DialConnector(url string) Connector {
	return func(ctx context.Context) (io.Closer, PublishChannel, error) {
		conn, ch, err := dial(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return conn, ch, nil
	}
}

// dial opens a connection and a channel. The TCP dial is bound to ctx and the handshake to
// defaultDialTimeout.
func dial(ctx context.Context, url string) (*amqp.Connection, *amqp.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	conn, err := amqp.DialConfig(url, amqp.Config{Dial: contextDialer(ctx, defaultDialTimeout)})
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	return conn, ch, nil
}

// contextDialer mirrors amqp.DefaultDial but aborts the TCP dial when ctx is cancelled. The
// deadline set here is cleared by amqp091 once the handshake completes.
func contextDialer(ctx context.Context, timeout time.Duration) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// Publish sends payload with routingKey. It returns an error wrapping ErrPublishFailed and
// the last attempt's error once every attempt failed or ctx was cancelled.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	messageID := uuid.NewString()

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		attempts = attempt
		lastErr = p.publishOnce(ctx, routingKey, messageID, payload)
		if lastErr == nil {
			return nil
		}

		if attempt == p.config.MaxAttempts || ctx.Err() != nil {
			break
		}

		delay := backoff.Exponential(p.config.BaseDelay, attempt-1)
		p.logger.Warn("rabbitmq publish attempt failed",
			slog.String("routing_key", routingKey),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.Any("error", lastErr),
		)

		if err := p.sleep(ctx, delay); err != nil {
			break
		}
	}

	return fmt.Errorf("%w after %d attempt(s): %w", ErrPublishFailed, attempts, lastErr)
}

func (p *Publisher) publishOnce(ctx context.Context, routingKey, messageID string, payload []byte) error {
	conn, ch, err := p.connect(ctx)
	if err != nil {
		return err
	}
	// A close failure after a confirmed publish must not trigger a retry.
	defer func() {
		if err := closeQuietly(ch, conn); err != nil {
			p.logger.Warn("failed to release rabbitmq publish resources", slog.Any("error", err))
		}
	}()

	if err := DeclareExchange(ch, p.config.Exchange); err != nil {
		return err
	}

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable publisher confirms: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}
	if err := ch.PublishWithContext(ctx, p.config.Exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	timer := time.NewTimer(p.config.ConfirmTimeout)
	defer timer.Stop()

	select {
	case confirm, ok := <-confirms:
		if !ok {
			return ErrConfirmClosed
		}
		if !confirm.Ack {
			return ErrPublishNacked
		}
		return nil
	case <-timer.C:
		return ErrConfirmTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closeQuietly closes the channel and then the connection. Errors from closing an
// already-closed resource are ignored.
func closeQuietly(ch, conn io.Closer) error {
	var errs []error
	if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	return errors.Join(errs...)
}
