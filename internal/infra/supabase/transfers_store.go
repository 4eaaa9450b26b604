package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// Transfers: insert
// ============================================================

const transfersTable = "transfers"

// InsertTransfer writes a transfer row, leaving out any column listed in
// in.Omit so callers can retry against an older schema.
func (c *Client) InsertTransfer(ctx context.Context, in *domain.TransferInput) (*domain.Transfer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTransfer")
	defer span.End()

	row := map[string]any{
		"id":             uuid.New().String(),
		"from_wallet_id": in.FromWalletID,
		"to_wallet_id":   in.ToWalletID,
		"amount":         in.Amount,
		"status":         in.Status,
		"notes":          in.Notes,
		"completed_at":   in.CompletedAt.Format(time.RFC3339),
	}
	if in.UserID != "" {
		row["user_id"] = in.UserID
	}
	for _, col := range in.Omit {
		delete(row, col)
	}

	body, err := c.doPost(ctx, transfersTable, row)
	if err != nil {
		return nil, err
	}

	var results []domain.Transfer
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decode transfer: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no result returned from transfers insert")
	}
	return &results[0], nil
}
