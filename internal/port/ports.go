// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the reconciliation
// service from the concrete table store and session mechanism.
package port

import (
	"context"

	"github.com/cedisense/cedisense-bfa/internal/domain"
)

// WalletStore reads and updates wallets.
type WalletStore interface {
	GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error)
	ListWallets(ctx context.Context, userID string, activeOnly bool) ([]domain.Wallet, error)
	UpdateWallet(ctx context.Context, walletID string, fields map[string]any) error
}

// TransactionStore reads, updates and inserts transactions.
type TransactionStore interface {
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, transactionID string, fields map[string]any) error
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	ListUnmatched(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// TransferStore records transfers.
type TransferStore interface {
	InsertTransfer(ctx context.Context, in *domain.TransferInput) (*domain.Transfer, error)
}

// ReconcileStore is everything reconciliation reads from and writes to.
// Implemented by the Supabase adapter and the in-memory store.
type ReconcileStore interface {
	WalletStore
	TransactionStore
	TransferStore
}

// SessionResolver resolves the acting user from the request context.
type SessionResolver interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
