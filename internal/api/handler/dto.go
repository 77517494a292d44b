package handler

// CreateAccountRequest represents a request to create a new account.
// Money fields are integer minor units.
type CreateAccountRequest struct {
	ExternalID     string `json:"external_id,omitempty"`
	InitialBalance int64  `json:"initial_balance" binding:"min=0"`
	CreditLimit    int64  `json:"credit_limit" binding:"min=0"`
	Currency       string `json:"currency" binding:"required,len=3"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID               string `json:"id"`
	ExternalID       string `json:"external_id,omitempty"`
	Balance          int64  `json:"balance"`
	ReservedBalance  int64  `json:"reserved_balance"`
	AvailableBalance int64  `json:"available_balance"`
	CreditLimit      int64  `json:"credit_limit"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// UpdateAccountStatusRequest represents an account status change
type UpdateAccountStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE SUSPENDED CLOSED"`
}

// ProcessTransactionRequest represents a money-movement request.
// Amount is in integer minor units; operation matching is case-insensitive.
type ProcessTransactionRequest struct {
	Operation             string `json:"operation" binding:"required"`
	AccountID             string `json:"account_id" binding:"required"`
	Amount                int64  `json:"amount" binding:"required,gt=0"`
	Currency              string `json:"currency" binding:"required,len=3"`
	ReferenceID           string `json:"reference_id" binding:"required"`
	TargetAccountID       string `json:"target_account_id,omitempty"`
	OriginalTransactionID string `json:"original_transaction_id,omitempty"`
	Metadata              string `json:"metadata,omitempty"`
}

// ProcessTransactionResponse carries the authoritative post-operation
// balances of the primary account, in minor units
type ProcessTransactionResponse struct {
	TransactionID    string `json:"transaction_id"`
	Status           string `json:"status"`
	Balance          int64  `json:"balance"`
	ReservedBalance  int64  `json:"reserved_balance"`
	AvailableBalance int64  `json:"available_balance"`
	Timestamp        string `json:"timestamp"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

// TransactionResponse represents a stored transaction record in API responses
type TransactionResponse struct {
	TransactionID         string `json:"transaction_id"`
	ReferenceID           string `json:"reference_id"`
	Operation             string `json:"operation"`
	AccountID             string `json:"account_id"`
	TargetAccountID       string `json:"target_account_id,omitempty"`
	OriginalTransactionID string `json:"original_transaction_id,omitempty"`
	Amount                int64  `json:"amount"`
	Currency              string `json:"currency"`
	Status                string `json:"status"`
	ErrorMessage          string `json:"error_message,omitempty"`
	CreatedAt             string `json:"created_at"`
	ProcessedAt           string `json:"processed_at,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
