package domain

import "github.com/shopspring/decimal"

// ============================================================
// Reconciliation views
// ============================================================

// TransferInfo is the advisory output of transfer detection.
type TransferInfo struct {
	IsTransferLikely    bool             `json:"is_transfer_likely"`
	SuggestedSourceType *WalletType      `json:"suggested_source_type"`
	SuggestedDestType   *WalletType      `json:"suggested_dest_type"`
	BalanceSnapshot     *decimal.Decimal `json:"balance_snapshot"`
}

// UnmatchedItem is one entry of the reconciliation inbox: a transaction
// without a wallet, plus everything the client needs to resolve it.
type UnmatchedItem struct {
	Transaction       Transaction  `json:"transaction"`
	Detection         TransferInfo `json:"detection"`
	SuggestedCategory Category     `json:"suggested_category"`
	SourceCandidates  []Wallet     `json:"source_candidates,omitempty"`
	DestCandidates    []Wallet     `json:"dest_candidates,omitempty"`
}

// AssignRequest is the body of an assignment call.
type AssignRequest struct {
	WalletID string `json:"wallet_id" validate:"required"`
}

// SuggestRequest asks for a category suggestion.
type SuggestRequest struct {
	Description string `json:"description" validate:"max=1000"`
	Type        string `json:"type" validate:"required,oneof=debit expense credit income DEBIT EXPENSE CREDIT INCOME"`
}

// DetectRequest asks for transfer detection on a description.
type DetectRequest struct {
	Description string `json:"description" validate:"required,max=1000"`
}
