package components

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
	"github.com/meridian-ledger/internal/engine/service"
)

type RequestValidatorImpl struct {
	logger *slog.Logger
}

func NewRequestValidator(logger *slog.Logger) service.RequestValidator {
	return &RequestValidatorImpl{
		logger: logger,
	}
}

// Validate checks the request against the operation vocabulary and linkage
// rules. It runs before any persistence: a validation failure never leaves a
// transaction record behind.
func (v *RequestValidatorImpl) Validate(request *shared.ProcessRequest) (shared.OperationType, error) {
	op, err := shared.ParseOperation(request.Operation)
	if err != nil {
		v.logger.Warn("Unknown operation", "operation", request.Operation, "reference_id", request.ReferenceID)
		return "", err
	}

	if request.ReferenceID == "" {
		return "", transaction.ErrEmptyReferenceID
	}

	if request.Amount <= 0 {
		v.logger.Warn("Invalid amount", "reference_id", request.ReferenceID, "amount", request.Amount)
		return "", transaction.ErrInvalidAmount
	}

	if op == shared.OperationTransfer && request.TargetAccountID == "" {
		return "", transaction.ErrMissingTargetAccount
	}

	if op == shared.OperationReversal {
		if request.OriginalTransactionID == "" {
			return "", transaction.ErrMissingOriginalTransaction
		}
		if _, parseErr := uuid.Parse(request.OriginalTransactionID); parseErr != nil {
			return "", service.ErrInvalidOriginalTransactionID
		}
	}

	return op, nil
}
