package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/orderflow/internal/customer/domain"
	"github.com/allisson/orderflow/internal/customer/http/dto"
	"github.com/allisson/orderflow/internal/customer/http/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestHandler(t *testing.T) (*CustomerHandler, *mocks.MockCustomerUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockCustomerUseCase{}
	t.Cleanup(func() { mockUseCase.AssertExpectations(t) })

	return NewCustomerHandler(mockUseCase, testLogger()), mockUseCase
}

func getCustomer(handler *CustomerHandler, id string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/customers/"+id, nil)
	c.Params = gin.Params{{Key: "id", Value: id}}

	handler.GetHandler(c)
	return w
}

func TestCustomerHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		mockUseCase.On("Get", mock.Anything, int64(7)).Return(&domain.Customer{
			ID:          7,
			Name:        "Ada",
			Address:     "12 Analytical St",
			OrdersCount: 2,
			CreatedAt:   created,
			UpdatedAt:   created,
		}, nil).Once()

		w := getCustomer(handler, "7")

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.CustomerResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(7), response.ID)
		assert.Equal(t, 2, response.OrdersCount)
		assert.Equal(t, "2026-03-01T12:00:00.000Z", response.CreatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("Get", mock.Anything, int64(8)).Return(nil, domain.ErrCustomerNotFound).Once()

		w := getCustomer(handler, "8")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not_found")
	})

	t.Run("invalid id", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		w := getCustomer(handler, "abc")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("Get", mock.Anything, int64(9)).Return(nil, errors.New("db down")).Once()

		w := getCustomer(handler, "9")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})
}
