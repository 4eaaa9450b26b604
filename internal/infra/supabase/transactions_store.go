package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Transactions: read, partial update, insert via PostgREST
// ============================================================

const transactionsTable = "transactions"

// unmatchedLimit caps the reconciliation inbox page.
const unmatchedLimit = 200

// transactionRow maps the transactions table. transaction_date may be a
// date or a timestamptz column depending on the deployment.
type transactionRow struct {
	ID              string           `json:"id"`
	UserID          *string          `json:"user_id"`
	Description     *string          `json:"description"`
	Amount          decimal.Decimal  `json:"amount"`
	Type            domain.Direction `json:"type"`
	Category        *string          `json:"category"`
	WalletID        *string          `json:"wallet_id"`
	TransactionDate string           `json:"transaction_date"`
	IsTransfer      *bool            `json:"is_transfer"`
	TransferID      *string          `json:"transfer_id"`
	TransferSide    *string          `json:"transfer_side"`
	BalanceSnapshot *decimal.Decimal `json:"balance_snapshot"`
	Source          *string          `json:"source"`
}

func (r *transactionRow) toDomain() domain.Transaction {
	t, _ := time.Parse(time.RFC3339, r.TransactionDate)
	if t.IsZero() {
		t, _ = time.Parse("2006-01-02", r.TransactionDate)
	}

	tx := domain.Transaction{
		ID:              r.ID,
		UserID:          deref(r.UserID),
		Description:     deref(r.Description),
		Amount:          r.Amount.Abs(),
		Type:            r.Type,
		Category:        r.Category,
		WalletID:        r.WalletID,
		TransactionDate: t,
		IsTransfer:      r.IsTransfer != nil && *r.IsTransfer,
		TransferID:      r.TransferID,
		BalanceSnapshot: r.BalanceSnapshot,
		Source:          deref(r.Source),
	}
	if r.TransferSide != nil && *r.TransferSide != "" {
		side := domain.TransferSide(*r.TransferSide)
		tx.TransferSide = &side
	}
	return tx
}

func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	path := fmt.Sprintf("transactions?id=eq.%s&limit=1", url.QueryEscape(transactionID))
	body, err := c.doGet(ctx, transactionsTable, path)
	if err != nil {
		return nil, err
	}

	var rows []transactionRow
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	tx := rows[0].toDomain()
	return &tx, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, transactionID string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	return c.doPatch(ctx, transactionsTable, fmt.Sprintf("transactions?id=eq.%s", url.QueryEscape(transactionID)), fields)
}

// InsertTransaction writes a new row. Rows written by the BFA use the
// expense/income vocabulary for type.
func (c *Client) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTransaction")
	defer span.End()

	id := tx.ID
	if id == "" {
		id = uuid.New().String()
	}
	date := tx.TransactionDate
	if date.IsZero() {
		date = time.Now()
	}

	row := map[string]any{
		"id":               id,
		"description":      tx.Description,
		"amount":           tx.Amount,
		"type":             tx.Type.LedgerType(),
		"category":         tx.Category,
		"wallet_id":        tx.WalletID,
		"transaction_date": date.Format(time.RFC3339),
		"is_transfer":      tx.IsTransfer,
		"transfer_id":      tx.TransferID,
		"transfer_side":    tx.TransferSide,
	}
	if tx.UserID != "" {
		row["user_id"] = tx.UserID
	}
	if tx.Source != "" {
		row["source"] = tx.Source
	}

	body, err := c.doPost(ctx, transactionsTable, row)
	if err != nil {
		return nil, err
	}

	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode transaction insert: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result returned from transactions insert")
	}
	created := rows[0].toDomain()
	return &created, nil
}

// ListUnmatched returns transactions with no wallet, newest first.
func (c *Client) ListUnmatched(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUnmatched")
	defer span.End()

	q := url.Values{}
	q.Set("wallet_id", "is.null")
	q.Set("order", "transaction_date.desc")
	q.Set("limit", fmt.Sprint(unmatchedLimit))
	if userID != "" {
		q.Set("user_id", "eq."+userID)
	}

	body, err := c.doGet(ctx, transactionsTable, "transactions?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var rows []transactionRow
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode transactions: %w", err)
		}
	}

	out := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
