package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Wallets
// ============================================================

// WalletType classifies where the money is held.
type WalletType string

const (
	WalletBank  WalletType = "bank"
	WalletMomo  WalletType = "momo"
	WalletCash  WalletType = "cash"
	WalletOther WalletType = "other"
)

// Valid reports whether t is one of the known wallet types.
func (t WalletType) Valid() bool {
	switch t {
	case WalletBank, WalletMomo, WalletCash, WalletOther:
		return true
	}
	return false
}

// Wallet is a named money container with a running balance.
// Wallets are soft-deleted by clearing IsActive.
type Wallet struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id,omitempty"`
	Name           string          `json:"name"`
	Type           WalletType      `json:"type"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at,omitempty"`
}
