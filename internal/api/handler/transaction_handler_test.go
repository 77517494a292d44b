package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
	engine "github.com/meridian-ledger/internal/engine/service"
)

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) ProcessTransaction(ctx context.Context, request *shared.ProcessRequest) (*engine.Result, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Result), args.Error(1)
}

func (m *MockTransactionService) GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*transaction.Transaction), args.Get(1).(int64), args.Error(2)
}

func newTestRouter(handler *TransactionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/transactions", handler.Create)
	router.GET("/transactions/:id", handler.GetByID)
	router.GET("/accounts/:id/transactions", handler.GetByAccountID)
	return router
}

func processBody(t *testing.T, overrides map[string]interface{}) *bytes.Buffer {
	t.Helper()
	body := map[string]interface{}{
		"operation":    "credit",
		"account_id":   uuid.NewString(),
		"amount":       100000,
		"currency":     "USD",
		"reference_id": "TXN-42",
	}
	for k, v := range overrides {
		body[k] = v
	}
	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewBuffer(jsonBody)
}

func dataField(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var topLevel map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevel))
	data, ok := topLevel["data"].(map[string]interface{})
	require.True(t, ok, "'data' field should be a map")
	return data
}

func completedResult(t *testing.T, balance int64) *engine.Result {
	t.Helper()
	acc, err := account.NewAccount("", 0, 0, "USD")
	require.NoError(t, err)
	acc.Balance = balance

	txn, err := transaction.New("TXN-42", shared.OperationCredit, 100000, "USD", acc.ID, nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, txn.MarkCompleted())

	return &engine.Result{Transaction: txn, Account: acc}
}

func TestTransactionHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("FreshOutcomeResponds201", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		result := completedResult(t, 100000)
		mockService.On("ProcessTransaction", mock.Anything, mock.MatchedBy(func(req *shared.ProcessRequest) bool {
			return req.Operation == "credit" && req.Amount == 100000 && req.ReferenceID == "TXN-42"
		})).Return(result, nil)

		req, _ := http.NewRequest(http.MethodPost, "/transactions", processBody(t, nil))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		data := dataField(t, rr)
		assert.Equal(t, result.Transaction.ID.String(), data["transaction_id"])
		assert.Equal(t, "success", data["status"])
		assert.Equal(t, float64(100000), data["balance"])
		assert.Equal(t, float64(0), data["reserved_balance"])
		assert.Equal(t, float64(100000), data["available_balance"])
		mockService.AssertExpectations(t)
	})

	t.Run("IdempotentReplayResponds200", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		result := completedResult(t, 100000)
		result.Replayed = true
		mockService.On("ProcessTransaction", mock.Anything, mock.Anything).Return(result, nil)

		req, _ := http.NewRequest(http.MethodPost, "/transactions", processBody(t, nil))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		data := dataField(t, rr)
		assert.Equal(t, result.Transaction.ID.String(), data["transaction_id"])
	})

	t.Run("BusinessFailureResponds201WithFailedStatus", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		acc, err := account.NewAccount("", 1000, 0, "USD")
		require.NoError(t, err)
		txn, err := transaction.New("TXN-42", shared.OperationDebit, 100000, "USD", acc.ID, nil, nil, "")
		require.NoError(t, err)
		require.NoError(t, txn.MarkFailed(string(shared.FailureReasonInsufficientFunds)))

		mockService.On("ProcessTransaction", mock.Anything, mock.Anything).
			Return(&engine.Result{Transaction: txn, Account: acc}, nil)

		req, _ := http.NewRequest(http.MethodPost, "/transactions", processBody(t, map[string]interface{}{"operation": "debit"}))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		data := dataField(t, rr)
		assert.Equal(t, "failed", data["status"])
		assert.Equal(t, string(shared.FailureReasonInsufficientFunds), data["error_message"])
	})

	t.Run("ValidationFailureResponds400", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		mockService.On("ProcessTransaction", mock.Anything, mock.Anything).
			Return(nil, shared.ErrInvalidOperation)

		req, _ := http.NewRequest(http.MethodPost, "/transactions", processBody(t, map[string]interface{}{"operation": "withdraw"}))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("AccountNotFoundResponds404", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		mockService.On("ProcessTransaction", mock.Anything, mock.Anything).
			Return(nil, account.ErrAccountNotFound{AccountID: uuid.New()})

		req, _ := http.NewRequest(http.MethodPost, "/transactions", processBody(t, nil))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("TargetNotFoundResponds404", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		mockService.On("ProcessTransaction", mock.Anything, mock.Anything).
			Return(nil, engine.ErrTargetAccountNotFound)

		req, _ := http.NewRequest(http.MethodPost, "/transactions", processBody(t, map[string]interface{}{
			"operation":         "transfer",
			"target_account_id": uuid.NewString(),
		}))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InfrastructureFailureResponds500", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		mockService.On("ProcessTransaction", mock.Anything, mock.Anything).
			Return(nil, errors.New("storage unreachable"))

		req, _ := http.NewRequest(http.MethodPost, "/transactions", processBody(t, nil))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("MalformedBodyResponds400", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		req, _ := http.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString(`{"invalid`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ProcessTransaction", mock.Anything, mock.Anything)
	})
}

func TestTransactionHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Found", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		txn, err := transaction.New("TXN-42", shared.OperationCredit, 5000, "USD", uuid.New(), nil, nil, "")
		require.NoError(t, err)
		require.NoError(t, txn.MarkCompleted())
		require.NoError(t, txn.MarkReversed())

		mockService.On("GetTransactionByID", mock.Anything, txn.ID).Return(txn, nil)

		req, _ := http.NewRequest(http.MethodGet, "/transactions/"+txn.ID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		data := dataField(t, rr)
		// A reversed transaction reads back as a success-terminal state.
		assert.Equal(t, "success", data["status"])
		assert.Equal(t, "TXN-42", data["reference_id"])
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		id := uuid.New()
		mockService.On("GetTransactionByID", mock.Anything, id).Return(nil, nil)

		req, _ := http.NewRequest(http.MethodGet, "/transactions/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		req, _ := http.NewRequest(http.MethodGet, "/transactions/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestTransactionHandler_GetByAccountID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("PaginatedList", func(t *testing.T) {
		mockService := new(MockTransactionService)
		handler := NewTransactionHandler(logger, mockService)
		router := newTestRouter(handler)

		accountID := uuid.New()
		txn, err := transaction.New("TXN-1", shared.OperationCredit, 5000, "USD", accountID, nil, nil, "")
		require.NoError(t, err)
		require.NoError(t, txn.MarkCompleted())

		mockService.On("GetTransactionsByAccountID", mock.Anything, accountID, 1, 10).
			Return([]*transaction.Transaction{txn}, int64(1), nil)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+accountID.String()+"/transactions", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevel map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevel))
		meta, ok := topLevel["meta"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(1), meta["total_items"])
	})
}
