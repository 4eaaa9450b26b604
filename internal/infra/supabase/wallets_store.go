package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cedisense/cedisense-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Wallets: read + partial update via PostgREST
// ============================================================

const walletsTable = "wallets"

func (c *Client) GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetWallet")
	defer span.End()
	span.SetAttributes(attribute.String("wallet.id", walletID))

	path := fmt.Sprintf("wallets?id=eq.%s&limit=1", url.QueryEscape(walletID))
	body, err := c.doGet(ctx, walletsTable, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.Wallet
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode wallet: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "wallet", ID: walletID}
	}
	return &rows[0], nil
}

// ListWallets lists a user's wallets oldest first. An empty userID lists
// every wallet the service key can see.
func (c *Client) ListWallets(ctx context.Context, userID string, activeOnly bool) ([]domain.Wallet, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListWallets")
	defer span.End()

	q := url.Values{}
	q.Set("order", "created_at.asc")
	if userID != "" {
		q.Set("user_id", "eq."+userID)
	}
	if activeOnly {
		q.Set("is_active", "eq.true")
	}

	body, err := c.doGet(ctx, walletsTable, "wallets?"+q.Encode())
	if err != nil {
		return nil, err
	}

	rows := []domain.Wallet{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode wallets: %w", err)
		}
	}
	return rows, nil
}

func (c *Client) UpdateWallet(ctx context.Context, walletID string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateWallet")
	defer span.End()
	span.SetAttributes(attribute.String("wallet.id", walletID))

	return c.doPatch(ctx, walletsTable, fmt.Sprintf("wallets?id=eq.%s", url.QueryEscape(walletID)), fields)
}
