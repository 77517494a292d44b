package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/api/service"
	"github.com/meridian-ledger/internal/domain/account"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create handles creation of a new account, validating the request and
// checking for duplicate external identities
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), req.ExternalID, req.InitialBalance, req.CreditLimit, req.Currency)
	if err != nil {
		var duplicateExternalIDErr account.ErrDuplicateExternalID
		if errors.As(err, &duplicateExternalIDErr) {
			h.logger.Warn("Attempt to create account with duplicate external ID", "external_id", duplicateExternalIDErr.ExternalID)
			RespondBadRequest(c, "Account with this external ID already exists")
			return
		}
		if errors.Is(err, account.ErrInvalidCurrencyFormat) || errors.Is(err, account.ErrNegativeBalance) || errors.Is(err, account.ErrNegativeCreditLimit) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create account", "error", err)
		RespondInternalError(c)
		return
	}

	response := mapAccountToResponse(acc)
	RespondCreated(c, response)
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		var accNotFound account.ErrAccountNotFound
		if errors.As(err, &accNotFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	response := mapAccountToResponse(acc)
	RespondOK(c, response)
}

// UpdateStatus changes the account lifecycle status. Suspended and closed
// accounts reject every money operation until reactivated.
func (h *AccountHandler) UpdateStatus(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req UpdateAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.UpdateAccountStatus(c.Request.Context(), id, account.Status(req.Status))
	if err != nil {
		var accNotFound account.ErrAccountNotFound
		if errors.As(err, &accNotFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to update account status", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:               acc.ID.String(),
		ExternalID:       acc.ExternalID,
		Balance:          acc.Balance,
		ReservedBalance:  acc.ReservedBalance,
		AvailableBalance: acc.AvailableBalance(),
		CreditLimit:      acc.CreditLimit,
		Currency:         acc.Currency,
		Status:           string(acc.Status),
		CreatedAt:        acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        acc.UpdatedAt.Format(time.RFC3339),
	}
}
