package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions
// ============================================================

// Direction is the normalised polarity of a transaction. Rows in the store
// use either the debit/credit or the expense/income vocabulary.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionDebit
	DirectionCredit
)

// ParseDirection accepts both external spellings, case-insensitively.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit", "expense":
		return DirectionDebit
	case "credit", "income":
		return DirectionCredit
	}
	return DirectionUnknown
}

// IsCredit reports whether money flows into the wallet.
func (d Direction) IsCredit() bool { return d == DirectionCredit }

// IsDebit reports whether money flows out of the wallet.
func (d Direction) IsDebit() bool { return d == DirectionDebit }

// Opposite flips debit and credit. Unknown stays unknown.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionDebit:
		return DirectionCredit
	case DirectionCredit:
		return DirectionDebit
	}
	return DirectionUnknown
}

func (d Direction) String() string {
	switch d {
	case DirectionDebit:
		return "debit"
	case DirectionCredit:
		return "credit"
	}
	return "unknown"
}

// LedgerType returns the expense/income spelling written on
// system-generated rows.
func (d Direction) LedgerType() string {
	if d == DirectionCredit {
		return "income"
	}
	return "expense"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	*d = ParseDirection(string(b))
	return nil
}

// TransferSide marks which leg of a transfer a transaction is.
type TransferSide string

const (
	SideFrom TransferSide = "from"
	SideTo   TransferSide = "to"
)

// Opposite returns the other leg.
func (s TransferSide) Opposite() TransferSide {
	if s == SideFrom {
		return SideTo
	}
	return SideFrom
}

// Transaction sources.
const (
	SourceManual   = "manual"
	SourceSMS      = "sms"
	SourceTransfer = "transfer"
)

// Transaction is a single monetary movement. Amount is always a positive
// magnitude; the sign is carried by Type.
type Transaction struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id,omitempty"`
	Description     string           `json:"description"`
	Amount          decimal.Decimal  `json:"amount"`
	Type            Direction        `json:"type"`
	Category        *string          `json:"category"`
	WalletID        *string          `json:"wallet_id"`
	TransactionDate time.Time        `json:"transaction_date"`
	IsTransfer      bool             `json:"is_transfer"`
	TransferID      *string          `json:"transfer_id"`
	TransferSide    *TransferSide    `json:"transfer_side"`
	BalanceSnapshot *decimal.Decimal `json:"balance_snapshot"`
	Source          string           `json:"source,omitempty"`
}

// IsUnmatched reports whether the transaction still awaits a wallet.
func (t *Transaction) IsUnmatched() bool {
	return t.WalletID == nil || *t.WalletID == ""
}

// HasCategory reports whether a category is already set.
func (t *Transaction) HasCategory() bool {
	return t.Category != nil && *t.Category != ""
}

// SignedAmount returns the amount with debits negative and credits positive.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (t *Transaction) String() string {
	return fmt.Sprintf("%s %s %s", t.ID, t.Type, FormatAmount(t.Amount))
}
