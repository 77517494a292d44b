package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/api/middleware"
	"github.com/meridian-ledger/internal/api/service"
	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
	engine "github.com/meridian-ledger/internal/engine/service"
)

// TransactionHandler handles HTTP requests for transaction operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// Create processes a money-movement request synchronously. A fresh outcome
// responds 201; an idempotent replay of a known reference responds 200 with
// the original transaction id and the account's current balances. A business
// failure still responds 201 with status "failed" - the record was created.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req ProcessTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request := &shared.ProcessRequest{
		Operation:             req.Operation,
		AccountID:             req.AccountID,
		Amount:                req.Amount,
		Currency:              req.Currency,
		ReferenceID:           req.ReferenceID,
		TargetAccountID:       req.TargetAccountID,
		OriginalTransactionID: req.OriginalTransactionID,
		Metadata:              req.Metadata,
		CorrelationID:         middleware.GetCorrelationID(c),
		Timestamp:             time.Now(),
	}

	result, err := h.transactionService.ProcessTransaction(c.Request.Context(), request)
	if err != nil {
		h.respondProcessingError(c, err)
		return
	}

	response := mapResultToResponse(result)
	if result.Replayed {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// GetByID retrieves transaction details by its ID, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.transactionService.GetTransactionByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get transaction", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if txn == nil {
		RespondNotFound(c, "Transaction not found")
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// GetByAccountID retrieves paginated transaction history for an account
func (h *TransactionHandler) GetByAccountID(c *gin.Context) {
	accountIDParam := c.Param("id")
	accountID, err := uuid.Parse(accountIDParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "account_id", accountIDParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.transactionService.GetTransactionsByAccountID(
		c.Request.Context(),
		accountID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to get transactions", "account_id", accountIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	var transactions []TransactionResponse
	for _, entry := range entries {
		transactions = append(transactions, mapTransactionToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, transactions, pagination.Page, pagination.PerPage, int(total))
}

// respondProcessingError maps engine rejections onto HTTP semantics:
// malformed requests are 400, missing accounts or originals are 404,
// everything else is a 500
func (h *TransactionHandler) respondProcessingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidOperation),
		errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, transaction.ErrEmptyReferenceID),
		errors.Is(err, transaction.ErrMissingTargetAccount),
		errors.Is(err, transaction.ErrMissingOriginalTransaction),
		errors.Is(err, engine.ErrInvalidOriginalTransactionID),
		errors.Is(err, account.ErrInvalidCurrencyFormat):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, account.ErrAccountNotFound{}),
		errors.Is(err, transaction.ErrTransactionNotFound{}),
		errors.Is(err, engine.ErrTargetAccountNotFound):
		RespondNotFound(c, err.Error())
	default:
		h.logger.Error("Failed to process transaction", "error", err)
		RespondInternalError(c)
	}
}

// mapResultToResponse maps an engine result to the processing response DTO
func mapResultToResponse(result *engine.Result) ProcessTransactionResponse {
	txn := result.Transaction
	response := ProcessTransactionResponse{
		TransactionID: txn.ID.String(),
		Status:        shared.StatusLabel(txn.Status),
		ErrorMessage:  txn.FailureReason,
		Timestamp:     txn.CreatedAt.UTC().Format(time.RFC3339),
	}
	if txn.ProcessedAt != nil {
		response.Timestamp = txn.ProcessedAt.UTC().Format(time.RFC3339)
	}

	if result.Account != nil {
		response.Balance = result.Account.Balance
		response.ReservedBalance = result.Account.ReservedBalance
		response.AvailableBalance = result.Account.AvailableBalance()
	}

	return response
}

// mapTransactionToResponse maps a transaction record to a response DTO
func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	response := TransactionResponse{
		TransactionID: txn.ID.String(),
		ReferenceID:   txn.ReferenceID,
		Operation:     string(txn.Operation),
		AccountID:     txn.AccountID.String(),
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Status:        shared.StatusLabel(txn.Status),
		ErrorMessage:  txn.FailureReason,
		CreatedAt:     txn.CreatedAt.UTC().Format(time.RFC3339),
	}

	if txn.TargetAccountID != nil {
		response.TargetAccountID = txn.TargetAccountID.String()
	}
	if txn.OriginalTransactionID != nil {
		response.OriginalTransactionID = txn.OriginalTransactionID.String()
	}
	if txn.ProcessedAt != nil {
		response.ProcessedAt = txn.ProcessedAt.UTC().Format(time.RFC3339)
	}

	return response
}
