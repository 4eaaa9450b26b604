package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transfers
// ============================================================

// TransferStatusCompleted is the only status written by reconciliation.
const TransferStatusCompleted = "completed"

// Transfer links the two legs of an inter-wallet movement.
type Transfer struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id,omitempty"`
	FromWalletID string          `json:"from_wallet_id"`
	ToWalletID   string          `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// TransferInput is the row written to the transfer store.
// Omit lists optional columns to leave out of the insert.
type TransferInput struct {
	UserID       string
	FromWalletID string
	ToWalletID   string
	Amount       decimal.Decimal
	Status       string
	Notes        string
	CompletedAt  time.Time
	Omit         []string
}

// Omits reports whether column is excluded from the insert.
func (in *TransferInput) Omits(column string) bool {
	for _, c := range in.Omit {
		if c == column {
			return true
		}
	}
	return false
}

// TransferRequest is what the caller supplies once both wallets are chosen.
type TransferRequest struct {
	TransactionID string          `json:"transaction_id" validate:"required"`
	FromWalletID  string          `json:"from_wallet_id" validate:"required"`
	ToWalletID    string          `json:"to_wallet_id" validate:"required,nefield=FromWalletID"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes" validate:"max=200"`
}

// Transfer outcome statuses.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
)

// TransferOutcome reports how far a transfer got. Success is true when the
// transfer row and the original transaction update both committed; Status
// is "partial" when a best-effort step failed afterwards.
type TransferOutcome struct {
	Success             bool     `json:"success"`
	Status              string   `json:"status"`
	TransferID          string   `json:"transfer_id,omitempty"`
	ShadowTransactionID string   `json:"shadow_transaction_id,omitempty"`
	Failures            []string `json:"failures,omitempty"`
}

// RecordFailure notes a failed step without changing Success.
func (o *TransferOutcome) RecordFailure(step string) {
	o.Failures = append(o.Failures, step)
}

// Finish derives Status from Success and the recorded failures.
func (o *TransferOutcome) Finish() *TransferOutcome {
	switch {
	case !o.Success:
		o.Status = OutcomeFailed
	case len(o.Failures) > 0:
		o.Status = OutcomePartial
	default:
		o.Status = OutcomeCompleted
	}
	return o
}
