package shared

import (
	"time"
)

// ProcessRequest carries one inbound money-movement request into the engine.
// AccountID and TargetAccountID are the raw client identifiers: either an
// opaque account id (uuid) or an external identity string. Amount is in
// integer minor units.
type ProcessRequest struct {
	Operation             string    `json:"operation"`
	AccountID             string    `json:"account_id"`
	Amount                int64     `json:"amount"`
	Currency              string    `json:"currency"`
	ReferenceID           string    `json:"reference_id"`
	TargetAccountID       string    `json:"target_account_id,omitempty"`
	OriginalTransactionID string    `json:"original_transaction_id,omitempty"`
	Metadata              string    `json:"metadata,omitempty"`
	CorrelationID         string    `json:"correlation_id,omitempty"`
	Timestamp             time.Time `json:"timestamp"`
}
