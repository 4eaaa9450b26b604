package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/catalog"
	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/handler"
	"github.com/cedisense/cedisense-bfa/internal/infra/cache"
	"github.com/cedisense/cedisense-bfa/internal/infra/observability"
	"github.com/cedisense/cedisense-bfa/internal/infra/resilience"
	"github.com/cedisense/cedisense-bfa/internal/infra/session"
	"github.com/cedisense/cedisense-bfa/internal/infra/supabase"
	"github.com/cedisense/cedisense-bfa/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const jwtSecret = "integration-secret"

// postgrest is a tiny stand-in for Supabase's REST endpoint: rows are kept
// as decoded JSON maps and filtered with eq./is.null operators.
type postgrest struct {
	mu      sync.Mutex
	tables  map[string][]map[string]any
	missing map[string]bool // "table.column" pairs the schema lacks
	posts   map[string]int
}

func newPostgrest() *postgrest {
	return &postgrest{
		tables:  map[string][]map[string]any{},
		missing: map[string]bool{},
		posts:   map[string]int{},
	}
}

func (p *postgrest) seed(table string, row map[string]any) {
	// round trip through JSON so values look like decoded request bodies
	raw, _ := json.Marshal(row)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	p.tables[table] = append(p.tables[table], decoded)
}

func (p *postgrest) rows(table string) []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]any(nil), p.tables[table]...)
}

func (p *postgrest) postCount(table string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.posts[table]
}

func (p *postgrest) dropColumn(table, column string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missing[table+"."+column] = true
}

func (p *postgrest) row(table, id string) map[string]any {
	for _, r := range p.rows(table) {
		if r["id"] == id {
			return r
		}
	}
	return nil
}

func matches(row map[string]any, q map[string][]string) bool {
	for k, vs := range q {
		switch k {
		case "order", "limit", "select":
			continue
		}
		v := vs[0]
		switch {
		case v == "is.null":
			if row[k] != nil {
				return false
			}
		case strings.HasPrefix(v, "eq."):
			if row[k] == nil || fmt.Sprint(row[k]) != strings.TrimPrefix(v, "eq.") {
				return false
			}
		}
	}
	return true
}

func (p *postgrest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		out := []map[string]any{}
		for _, row := range p.tables[table] {
			if matches(row, q) {
				out = append(out, row)
			}
		}
		json.NewEncoder(w).Encode(out)

	case http.MethodPost:
		var row map[string]any
		json.NewDecoder(r.Body).Decode(&row)
		p.posts[table]++
		for col := range row {
			if p.missing[table+"."+col] {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, `{"code":"PGRST204","message":"Could not find the '%s' column of '%s' in the schema cache"}`, col, table)
				return
			}
		}
		if table == "transfers" && row["user_id"] == nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":"23502","message":"null value in column \"user_id\" violates not-null constraint"}`)
			return
		}
		p.tables[table] = append(p.tables[table], row)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]any{row})

	case http.MethodPatch:
		var fields map[string]any
		json.NewDecoder(r.Body).Decode(&fields)
		for _, row := range p.tables[table] {
			if matches(row, q) {
				for k, v := range fields {
					row[k] = v
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type stack struct {
	db     *postgrest
	api    *httptest.Server
	client *http.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := newPostgrest()
	db.seed("wallets", map[string]any{"id": "bank", "user_id": "user-1", "name": "GCB", "type": "bank", "current_balance": "200.00", "is_active": true})
	db.seed("wallets", map[string]any{"id": "momo", "user_id": "user-1", "name": "MTN MoMo", "type": "momo", "current_balance": "50.00", "is_active": true})
	db.seed("transactions", map[string]any{
		"id": "t1", "user_id": "user-1", "description": "Transfer to account 1234",
		"amount": 75, "type": "expense", "wallet_id": nil, "transaction_date": "2024-03-01",
	})
	db.seed("transactions", map[string]any{
		"id": "t2", "user_id": "user-1", "description": "Payment for KFC. Current Balance: GHS 480.00",
		"amount": 20, "type": "debit", "wallet_id": nil, "transaction_date": "2024-03-02T10:00:00Z",
	})
	supa := httptest.NewServer(db)
	t.Cleanup(supa.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	client := supabase.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		supa.URL, "anon", "service",
		resilience.NewCircuitBreaker("integration"), cfg, logger,
	)

	wallets := cache.New[[]domain.Wallet](time.Minute)
	t.Cleanup(wallets.Stop)
	svc := service.NewReconciliationService(client, catalog.Default(), session.Resolver{}, wallets, metrics, logger)
	api := httptest.NewServer(handler.NewRouter(svc, client, session.NewVerifier(jwtSecret), metrics, logger))
	t.Cleanup(api.Close)

	return &stack{db: db, api: api, client: api.Client()}
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	claims := session.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func (s *stack) call(t *testing.T, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.api.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func balanceOf(t *testing.T, db *postgrest, walletID string) decimal.Decimal {
	t.Helper()
	row := db.row("wallets", walletID)
	require.NotNil(t, row)
	d, err := decimal.NewFromString(fmt.Sprint(row["current_balance"]))
	require.NoError(t, err)
	return d
}

// TestIntegration_InboxThenTransfer walks the reconciliation flow over HTTP
// against a fake PostgREST.
func TestIntegration_InboxThenTransfer(t *testing.T) {
	s := newStack(t)
	token := bearer(t, "user-1")

	// --- health ---
	resp, _ := s.call(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// --- inbox ---
	resp, body := s.call(t, http.MethodGet, "/v1/transactions/unmatched", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var items []domain.UnmatchedItem
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 2)

	var transferItem *domain.UnmatchedItem
	for i := range items {
		if items[i].Transaction.ID == "t1" {
			transferItem = &items[i]
		}
	}
	require.NotNil(t, transferItem)
	assert.True(t, transferItem.Detection.IsTransferLikely)
	require.Len(t, transferItem.SourceCandidates, 1)
	assert.Equal(t, "momo", transferItem.SourceCandidates[0].ID)

	// --- transfer ---
	resp, body = s.call(t, http.MethodPost, "/v1/transactions/t1/transfer", map[string]any{
		"from_wallet_id": "bank",
		"to_wallet_id":   "momo",
		"amount":         "75",
		"notes":          "Savings",
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out domain.TransferOutcome
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.Equal(t, domain.OutcomeCompleted, out.Status)

	assert.True(t, balanceOf(t, s.db, "bank").Equal(decimal.NewFromInt(125)))
	assert.True(t, balanceOf(t, s.db, "momo").Equal(decimal.NewFromInt(125)))

	orig := s.db.row("transactions", "t1")
	assert.Equal(t, "bank", orig["wallet_id"])
	assert.Equal(t, "from", orig["transfer_side"])
	assert.Equal(t, out.TransferID, orig["transfer_id"])
	assert.Equal(t, true, orig["is_transfer"])

	shadow := s.db.row("transactions", out.ShadowTransactionID)
	require.NotNil(t, shadow)
	assert.Equal(t, "momo", shadow["wallet_id"])
	assert.Equal(t, "to", shadow["transfer_side"])
	assert.Equal(t, "income", shadow["type"])
	assert.Equal(t, "transfer", shadow["source"])
	assert.Equal(t, "Transfer from Savings", shadow["description"])

	transfers := s.db.rows("transfers")
	require.Len(t, transfers, 1)
	assert.Equal(t, "user-1", transfers[0]["user_id"])
	assert.Equal(t, "completed", transfers[0]["status"])
}

func TestIntegration_AssignUsesSnapshot(t *testing.T) {
	s := newStack(t)

	resp, body := s.call(t, http.MethodPost, "/v1/transactions/t2/assign", map[string]any{"wallet_id": "momo"}, bearer(t, "user-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	assert.True(t, balanceOf(t, s.db, "momo").Equal(decimal.NewFromInt(480)))
	row := s.db.row("transactions", "t2")
	assert.Equal(t, "momo", row["wallet_id"])
	assert.Equal(t, "food", row["category"])
}

func TestIntegration_TransferRetriesWithoutMissingColumn(t *testing.T) {
	s := newStack(t)
	s.db.dropColumn("transfers", "notes")

	resp, body := s.call(t, http.MethodPost, "/v1/transactions/t1/transfer", map[string]any{
		"from_wallet_id": "bank",
		"to_wallet_id":   "momo",
		"amount":         "75",
		"notes":          "Savings",
	}, bearer(t, "user-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	assert.Equal(t, 2, s.db.postCount("transfers"))
	transfers := s.db.rows("transfers")
	require.Len(t, transfers, 1)
	_, hasNotes := transfers[0]["notes"]
	assert.False(t, hasNotes)
}

func TestIntegration_AnonymousTransferRejectedByStore(t *testing.T) {
	s := newStack(t)

	resp, body := s.call(t, http.MethodPost, "/v1/transactions/t1/transfer", map[string]any{
		"from_wallet_id": "bank",
		"to_wallet_id":   "momo",
		"amount":         "75",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"error":"could not reconcile transaction, try again"}`, string(body))

	assert.Equal(t, 1, s.db.postCount("transfers"))
	assert.Nil(t, s.db.row("transactions", "t1")["wallet_id"])
	assert.True(t, balanceOf(t, s.db, "bank").Equal(decimal.NewFromInt(200)))
}

func TestIntegration_Metrics(t *testing.T) {
	s := newStack(t)
	s.call(t, http.MethodPost, "/v1/transactions/t2/assign", map[string]any{"wallet_id": "momo"}, bearer(t, "user-1"))

	resp, body := s.call(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "bfa_reconcile_total")
}
