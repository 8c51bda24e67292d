// Package service provides the order service's outbound clients.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/allisson/orderflow/internal/backoff"
	"github.com/allisson/orderflow/internal/circuitbreaker"
	apperrors "github.com/allisson/orderflow/internal/errors"
	"github.com/allisson/orderflow/internal/order/domain"
)

// CustomerServiceBreaker is the circuit breaker name of the customer service dependency.
const CustomerServiceBreaker = "customer_service"

// InternalAPIKeyHeader carries the shared key between services.
const InternalAPIKeyHeader = "X-Internal-Api-Key"

// maxBodySize caps the customer response read into memory.
const maxBodySize = 1 << 20

// CustomerClientConfig configures CustomerClient.
type CustomerClientConfig struct {
	BaseURL          string
	APIKey           string
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	MaxRetries       int
	RetryBase        time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// CustomerClientOption customizes a CustomerClient.
type CustomerClientOption func(*CustomerClient)

// WithHTTPClient replaces the HTTP client built from the configured timeouts.
func WithHTTPClient(client *http.Client) CustomerClientOption {
	return func(c *CustomerClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetrySleep replaces the wait between retries.
func WithRetrySleep(sleep func(ctx context.Context, d time.Duration) error) CustomerClientOption {
	return func(c *CustomerClient) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// CustomerClient validates customers against the customer service. Calls are retried with
// exponential backoff and full jitter, and every attempt goes through the customer_service
// circuit breaker.
type CustomerClient struct {
	config     CustomerClientConfig
	httpClient *http.Client
	breakers   *circuitbreaker.Manager
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// NewCustomerClient creates a CustomerClient and registers its breaker with breakers.
func NewCustomerClient(
	config CustomerClientConfig,
	breakers *circuitbreaker.Manager,
	logger *slog.Logger,
	opts ...CustomerClientOption,
) *CustomerClient {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	breakerConfig := circuitbreaker.DefaultConfig()
	if config.BreakerThreshold > 0 {
		breakerConfig.ConsecutiveFailures = uint32(config.BreakerThreshold) // #nosec G115 -- bounded by config
	}
	if config.BreakerCooldown > 0 {
		breakerConfig.Cooldown = config.BreakerCooldown
	}
	breakerConfig.IsFailure = countsAsBreakerFailure
	breakers.Register(CustomerServiceBreaker, breakerConfig)

	c := &CustomerClient{
		config:     config,
		httpClient: newHTTPClient(config.ConnectTimeout, config.ReadTimeout),
		breakers:   breakers,
		sleep:      backoff.SleepWithContext,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext

	return &http.Client{
		Transport: transport,
		Timeout:   readTimeout,
	}
}

// Not-found and rejected credentials are answers from a healthy service.
func countsAsBreakerFailure(err error) bool {
	return !errors.Is(err, domain.ErrCustomerNotFound) &&
		!errors.Is(err, domain.ErrCustomerUnauthorized) &&
		!errors.Is(err, context.Canceled)
}

// ValidateCustomer fetches the customer and returns its metadata.
//
// Errors: ErrCustomerNotFound, ErrCustomerUnauthorized, ErrCustomerServiceUnavailable (also
// when the breaker is open) and ErrInvalidInput when no base URL is configured.
func (c *CustomerClient) ValidateCustomer(ctx context.Context, customerID int64) (*domain.CustomerMetadata, error) {
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "customer service url is not configured")
	}

	endpoint, err := url.JoinPath(c.config.BaseURL, "customers", strconv.FormatInt(customerID, 10))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid customer service url: %v", err)
	}

	for attempt := 0; ; attempt++ {
		metadata, err := c.attempt(ctx, endpoint)
		if err == nil {
			return metadata, nil
		}

		if !c.retryable(ctx, err) || attempt >= c.config.MaxRetries {
			return nil, err
		}

		delay := backoff.ExponentialWithJitter(c.config.RetryBase, attempt)
		c.logger.Warn("customer service call failed, retrying",
			slog.Int64("customer_id", customerID),
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_in", delay),
			slog.Any("error", err),
		)

		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, err
		}
	}
}

func (c *CustomerClient) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	return errors.Is(err, domain.ErrCustomerServiceUnavailable)
}

func (c *CustomerClient) attempt(ctx context.Context, endpoint string) (*domain.CustomerMetadata, error) {
	result, err := c.breakers.Execute(CustomerServiceBreaker, func() (any, error) {
		return c.fetch(ctx, endpoint)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("%w: %w", domain.ErrCustomerServiceUnavailable, err)
		}
		return nil, err
	}
	return result.(*domain.CustomerMetadata), nil
}

type customerResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	OrdersCount *int   `json:"orders_count"`
}

func (c *CustomerClient) fetch(ctx context.Context, endpoint string) (*domain.CustomerMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCustomerServiceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(InternalAPIKeyHeader, c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCustomerServiceUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodeCustomer(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrCustomerNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, domain.ErrCustomerUnauthorized
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrCustomerServiceUnavailable, resp.StatusCode)
	}
}

func decodeCustomer(body io.Reader) (*domain.CustomerMetadata, error) {
	var payload customerResponse
	if err := json.NewDecoder(io.LimitReader(body, maxBodySize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrCustomerServiceUnavailable, err)
	}

	metadata := &domain.CustomerMetadata{
		ID:      payload.ID,
		Name:    payload.Name,
		Address: payload.Address,
	}
	if payload.OrdersCount != nil {
		metadata.OrdersCount = *payload.OrdersCount
	}
	return metadata, nil
}
