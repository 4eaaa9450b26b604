// Package memstore is an in-memory implementation of port.ReconcileStore.
// It backs local development when Supabase is not configured and drives
// the service and integration tests. Data is lost on restart.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is safe for concurrent use. Values are copied in and out so
// callers never share memory with the store.
type Store struct {
	mu           sync.RWMutex
	wallets      map[string]domain.Wallet
	transactions map[string]domain.Transaction
	transfers    map[string]domain.Transfer
	now          func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		wallets:      make(map[string]domain.Wallet),
		transactions: make(map[string]domain.Transaction),
		transfers:    make(map[string]domain.Transfer),
		now:          time.Now,
	}
}

// PutWallet inserts or replaces a wallet.
func (s *Store) PutWallet(w domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now()
	}
	s.wallets[w.ID] = w
}

// PutTransaction inserts or replaces a transaction.
func (s *Store) PutTransaction(tx domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = copyTransaction(tx)
}

// Transactions returns every stored transaction ordered by id.
func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, copyTransaction(tx))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Transfers returns every stored transfer.
func (s *Store) Transfers() []domain.Transfer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		out = append(out, t)
	}
	return out
}

// ============================================================
// Wallets
// ============================================================

func (s *Store) GetWallet(_ context.Context, walletID string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "wallet", ID: walletID}
	}
	return &w, nil
}

func (s *Store) ListWallets(_ context.Context, userID string, activeOnly bool) ([]domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Wallet{}
	for _, w := range s.wallets {
		if userID != "" && w.UserID != userID {
			continue
		}
		if activeOnly && !w.IsActive {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateWallet(_ context.Context, walletID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		// PostgREST PATCH matching nothing is not an error either.
		return nil
	}
	for k, v := range fields {
		switch k {
		case "current_balance":
			d, err := toDecimal(v)
			if err != nil {
				return err
			}
			w.CurrentBalance = d
		case "is_active":
			w.IsActive, _ = v.(bool)
		case "name":
			w.Name, _ = v.(string)
		default:
			return &domain.ErrSchemaMismatch{Table: "wallets", Column: k}
		}
	}
	s.wallets[walletID] = w
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) GetTransaction(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	out := copyTransaction(tx)
	return &out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, transactionID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "wallet_id":
			tx.WalletID = toStringPtr(v)
		case "category":
			tx.Category = toStringPtr(v)
		case "transfer_id":
			tx.TransferID = toStringPtr(v)
		case "transfer_side":
			if p := toStringPtr(v); p != nil {
				side := domain.TransferSide(*p)
				tx.TransferSide = &side
			} else {
				tx.TransferSide = nil
			}
		case "is_transfer":
			tx.IsTransfer, _ = v.(bool)
		default:
			return &domain.ErrSchemaMismatch{Table: "transactions", Column: k}
		}
	}
	s.transactions[transactionID] = tx
	return nil
}

func (s *Store) InsertTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := copyTransaction(*tx)
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.TransactionDate.IsZero() {
		row.TransactionDate = s.now()
	}
	if _, dup := s.transactions[row.ID]; dup {
		return nil, &domain.ErrConstraintViolation{Table: "transactions", Code: "23505", Message: "duplicate id " + row.ID}
	}
	s.transactions[row.ID] = row

	out := copyTransaction(row)
	return &out, nil
}

func (s *Store) ListUnmatched(_ context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Transaction{}
	for _, tx := range s.transactions {
		if !tx.IsUnmatched() {
			continue
		}
		if userID != "" && tx.UserID != userID {
			continue
		}
		out = append(out, copyTransaction(tx))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionDate.After(out[j].TransactionDate) })
	return out, nil
}

// ============================================================
// Transfers
// ============================================================

func (s *Store) InsertTransfer(_ context.Context, in *domain.TransferInput) (*domain.Transfer, error) {
	if in.UserID == "" {
		return nil, &domain.ErrConstraintViolation{Table: "transfers", Code: "23502", Message: "null value in column \"user_id\""}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := domain.Transfer{
		ID:           uuid.New().String(),
		UserID:       in.UserID,
		FromWalletID: in.FromWalletID,
		ToWalletID:   in.ToWalletID,
		Amount:       in.Amount,
		Status:       in.Status,
	}
	if !in.Omits("notes") {
		t.Notes = in.Notes
	}
	if !in.Omits("completed_at") {
		at := in.CompletedAt
		t.CompletedAt = &at
	}
	s.transfers[t.ID] = t
	return &t, nil
}

// ============================================================
// helpers
// ============================================================

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case float64:
		return decimal.NewFromFloat(d), nil
	case int:
		return decimal.NewFromInt(int64(d)), nil
	case string:
		return decimal.NewFromString(d)
	}
	return decimal.Zero, fmt.Errorf("memstore: unsupported balance type %T", v)
}

func toStringPtr(v any) *string {
	switch s := v.(type) {
	case string:
		return &s
	case *string:
		if s == nil {
			return nil
		}
		c := *s
		return &c
	case domain.TransferSide:
		c := string(s)
		return &c
	}
	return nil
}

func copyTransaction(tx domain.Transaction) domain.Transaction {
	tx.Category = clonePtr(tx.Category)
	tx.WalletID = clonePtr(tx.WalletID)
	tx.TransferID = clonePtr(tx.TransferID)
	tx.TransferSide = clonePtr(tx.TransferSide)
	tx.BalanceSnapshot = clonePtr(tx.BalanceSnapshot)
	return tx
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
