package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/infra/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WalletRoundTrip(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	s.PutWallet(domain.Wallet{ID: "w1", UserID: "u1", Type: domain.WalletBank, CurrentBalance: decimal.NewFromInt(10), IsActive: true})
	s.PutWallet(domain.Wallet{ID: "w2", UserID: "u1", Type: domain.WalletCash, IsActive: false})
	s.PutWallet(domain.Wallet{ID: "w3", UserID: "u2", Type: domain.WalletMomo, IsActive: true})

	active, err := s.ListWallets(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "w1", active[0].ID)

	require.NoError(t, s.UpdateWallet(ctx, "w1", map[string]any{"current_balance": decimal.NewFromInt(42)}))
	w, err := s.GetWallet(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, w.CurrentBalance.Equal(decimal.NewFromInt(42)))

	_, err = s.GetWallet(ctx, "nope")
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestStore_UnknownColumnIsSchemaMismatch(t *testing.T) {
	s := memstore.New()
	s.PutWallet(domain.Wallet{ID: "w1"})

	err := s.UpdateWallet(context.Background(), "w1", map[string]any{"colour": "red"})
	var sm *domain.ErrSchemaMismatch
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, "colour", sm.Column)
}

func TestStore_UnmatchedAndUpdates(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.PutTransaction(domain.Transaction{ID: "t1", TransactionDate: old})
	s.PutTransaction(domain.Transaction{ID: "t2", TransactionDate: old.Add(time.Hour)})

	unmatched, err := s.ListUnmatched(ctx, "")
	require.NoError(t, err)
	require.Len(t, unmatched, 2)
	assert.Equal(t, "t2", unmatched[0].ID, "newest first")

	require.NoError(t, s.UpdateTransaction(ctx, "t1", map[string]any{
		"wallet_id":     "w1",
		"transfer_side": domain.SideFrom,
		"is_transfer":   true,
	}))

	tx, err := s.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, tx.IsUnmatched())
	assert.Equal(t, domain.SideFrom, *tx.TransferSide)
	assert.True(t, tx.IsTransfer)

	unmatched, _ = s.ListUnmatched(ctx, "")
	assert.Len(t, unmatched, 1)
}

func TestStore_InsertTransferHonoursOmit(t *testing.T) {
	s := memstore.New()

	tr, err := s.InsertTransfer(context.Background(), &domain.TransferInput{
		UserID: "user-1", FromWalletID: "a", ToWalletID: "b", Notes: "rent", CompletedAt: time.Now(),
		Omit: []string{"notes", "completed_at"},
	})
	require.NoError(t, err)
	assert.Empty(t, tr.Notes)
	assert.Nil(t, tr.CompletedAt)
	assert.Len(t, s.Transfers(), 1)
}

func TestStore_InsertTransferRequiresOwner(t *testing.T) {
	s := memstore.New()

	_, err := s.InsertTransfer(context.Background(), &domain.TransferInput{FromWalletID: "a", ToWalletID: "b"})

	var cv *domain.ErrConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "23502", cv.Code)
	assert.Empty(t, s.Transfers())
}
