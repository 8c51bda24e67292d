//go:build integration

// Package integration runs the order service, outbox relay and customer consumer end to end
// against a real database and RabbitMQ broker.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcrabbit "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/allisson/orderflow/internal/app"
	"github.com/allisson/orderflow/internal/config"
	customerHTTP "github.com/allisson/orderflow/internal/customer/http"
	"github.com/allisson/orderflow/internal/messaging/rabbitmq"
	orderHTTP "github.com/allisson/orderflow/internal/order/http"
	"github.com/allisson/orderflow/internal/order/http/dto"
	"github.com/allisson/orderflow/internal/testutil"
)

const testAPIKey = "integration-internal-key"

// flowContext holds both service containers sharing one database.
type flowContext struct {
	db                *sql.DB
	dbDriver          string
	orderContainer    *app.Container
	customerContainer *app.Container
	orderServer       *httptest.Server
	customerServer    *httptest.Server
}

func setupRabbitMQ(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcrabbit.Run(ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)
	return url
}

func baseConfig(dbDriver, dsn, amqpURL string) config.Config {
	return config.Config{
		DBDriver:                       dbDriver,
		DBConnectionString:             dsn,
		DBMaxOpenConnections:           10,
		DBMaxIdleConnections:           5,
		DBConnMaxLifetime:              time.Hour,
		ServerHost:                     "localhost",
		ServerPort:                     8080,
		LogLevel:                       "error",
		InternalAPIKey:                 testAPIKey,
		CustomerClientConnectTimeout:   time.Second,
		CustomerClientReadTimeout:      2 * time.Second,
		CustomerClientMaxRetries:       2,
		CustomerClientRetryBase:        10 * time.Millisecond,
		CustomerClientBreakerThreshold: 3,
		CustomerClientBreakerCooldown:  time.Second,
		RabbitMQURL:                    amqpURL,
		RabbitMQExchange:               "orders.v1",
		RabbitMQQueue:                  "customer_service.order.created",
		RabbitMQBindingKey:             "order.created",
		RabbitMQPrefetch:               1,
		RabbitMQPublishMaxAttempts:     3,
		RabbitMQPublishBaseDelay:       50 * time.Millisecond,
		RabbitMQDeadLetterEnabled:      true,
		RabbitMQDeadLetterExchange:     "orders.v1.dlx",
		RabbitMQDeadLetterQueue:        "customer_service.order.created.dlq",
		OutboxRelayInterval:            100 * time.Millisecond,
		OutboxRelayBatchSize:           10,
		OutboxStuckThreshold:           time.Minute,
	}
}

func setupFlow(t *testing.T, dbDriver string) *flowContext {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		db = testutil.SetupPostgresDB(t)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		db = testutil.SetupMySQLDB(t)
		dsn = testutil.GetMySQLTestDSN()
	}
	amqpURL := setupRabbitMQ(t)

	customerCfg := baseConfig(dbDriver, dsn, amqpURL)
	customerContainer := app.NewContainer(&customerCfg)
	customerSrv, err := customerContainer.CustomerServer()
	require.NoError(t, err)
	customerServer := httptest.NewServer(customerSrv.GetHandler())

	orderCfg := baseConfig(dbDriver, dsn, amqpURL)
	orderCfg.CustomerServiceURL = customerServer.URL
	orderContainer := app.NewContainer(&orderCfg)
	orderSrv, err := orderContainer.OrderServer()
	require.NoError(t, err)
	orderServer := httptest.NewServer(orderSrv.GetHandler())

	declareTopology(t, amqpURL, customerContainer.Topology())

	fc := &flowContext{
		db:                db,
		dbDriver:          dbDriver,
		orderContainer:    orderContainer,
		customerContainer: customerContainer,
		orderServer:       orderServer,
		customerServer:    customerServer,
	}
	t.Cleanup(func() { teardownFlow(t, fc) })
	return fc
}

func teardownFlow(t *testing.T, fc *flowContext) {
	t.Helper()

	fc.orderServer.Close()
	fc.customerServer.Close()
	for _, container := range []*app.Container{fc.orderContainer, fc.customerContainer} {
		if err := container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}
	testutil.TeardownDB(t, fc.db)
}

func declareTopology(t *testing.T, url string, topology rabbitmq.Topology) {
	t.Helper()

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	require.NoError(t, err)
	require.NoError(t, rabbitmq.DeclareConsumerTopology(ch, topology))
}

func (fc *flowContext) startConsumer(t *testing.T) {
	t.Helper()

	consumer, err := fc.customerContainer.Consumer()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func (fc *flowContext) createOrder(
	t *testing.T,
	idempotencyKey string,
	body map[string]any,
) (*http.Response, dto.OrderResponse) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, fc.orderServer.URL+"/v1/orders", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(orderHTTP.IdempotencyKeyHeader, idempotencyKey)
	}

	resp, respBody := doRequest(t, req)

	var order dto.OrderResponse
	if resp.StatusCode < 300 {
		require.NoError(t, json.Unmarshal(respBody, &order), string(respBody))
	}
	return resp, order
}

func (fc *flowContext) ordersCount(t *testing.T, customerID int64) int64 {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/customers/%d", fc.customerServer.URL, customerID), nil)
	require.NoError(t, err)
	req.Header.Set(customerHTTP.InternalAPIKeyHeader, testAPIKey)

	resp, body := doRequest(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var customer struct {
		OrdersCount int64 `json:"orders_count"`
	}
	require.NoError(t, json.Unmarshal(body, &customer))
	return customer.OrdersCount
}

func doRequest(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func TestOrderFlow(t *testing.T) {
	for _, dbDriver := range []string{"postgres", "mysql"} {
		t.Run(dbDriver, func(t *testing.T) {
			fc := setupFlow(t, dbDriver)
			fc.startConsumer(t)
			ctx := context.Background()

			customerID := testutil.CreateTestCustomer(t, fc.db, dbDriver, "Ada")
			key := uuid.NewString()
			body := map[string]any{
				"customer_id":  customerID,
				"product_name": "Keyboard",
				"quantity":     2,
				"price":        "49.90",
			}

			t.Run("create order writes the outbox event", func(t *testing.T) {
				resp, order := fc.createOrder(t, key, body)

				require.Equal(t, http.StatusCreated, resp.StatusCode)
				assert.Equal(t, customerID, order.CustomerID)
				assert.Equal(t, "49.90", order.Price)
				assert.Equal(t, 1, testutil.CountRows(t, fc.db, "outbox_events"))
			})

			t.Run("replay with the same key returns the stored order", func(t *testing.T) {
				resp, order := fc.createOrder(t, key, body)

				require.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, customerID, order.CustomerID)
				assert.Equal(t, 1, testutil.CountRows(t, fc.db, "orders"))
				assert.Equal(t, 1, testutil.CountRows(t, fc.db, "outbox_events"))
			})

			t.Run("unknown customer is rejected", func(t *testing.T) {
				resp, _ := fc.createOrder(t, uuid.NewString(), map[string]any{
					"customer_id":  customerID + 1000,
					"product_name": "Mouse",
					"quantity":     1,
					"price":        "10.00",
				})

				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
				assert.Equal(t, 1, testutil.CountRows(t, fc.db, "orders"))
			})

			t.Run("relay publishes and the consumer applies once", func(t *testing.T) {
				relay, err := fc.orderContainer.RelayUseCase()
				require.NoError(t, err)

				processed, err := relay.RunOnce(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, processed)

				require.Eventually(t, func() bool {
					return fc.ordersCount(t, customerID) == 1
				}, 15*time.Second, 100*time.Millisecond)
				assert.Equal(t, 1, testutil.CountRows(t, fc.db, "processed_order_events"))
			})

			t.Run("redelivered event is skipped", func(t *testing.T) {
				var payload string
				require.NoError(t, fc.db.QueryRow("SELECT payload FROM outbox_events").Scan(&payload))

				require.NoError(t, fc.orderContainer.Publisher().Publish(ctx, "order.created", []byte(payload)))

				// The duplicate reaches the consumer and leaves the counter untouched.
				time.Sleep(time.Second)
				assert.Equal(t, int64(1), fc.ordersCount(t, customerID))
				assert.Equal(t, 1, testutil.CountRows(t, fc.db, "processed_order_events"))
			})

			t.Run("outbox stats report the processed event", func(t *testing.T) {
				relay, err := fc.orderContainer.RelayUseCase()
				require.NoError(t, err)

				stats, err := relay.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, int64(1), stats["processed"])
				assert.Equal(t, int64(0), stats["pending"])
			})
		})
	}
}
