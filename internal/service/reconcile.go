// Package service provides the business logic layer (use cases).
//
// ReconciliationService attaches unmatched transactions to wallets and
// turns them into two-legged transfers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/catalog"
	"github.com/cedisense/cedisense-bfa/internal/detect"
	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/infra/observability"
	"github.com/cedisense/cedisense-bfa/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var reconTracer = otel.Tracer("service/reconciliation")

// Columns of the transfers table that older schemas may lack.
var optionalTransferColumns = []string{"notes", "completed_at"}

// Transfer steps, used in outcomes, logs and metrics.
const (
	StepAuthorize         = "authorize"
	StepCreateTransfer    = "create_transfer"
	StepLoadTransaction   = "load_transaction"
	StepUpdateTransaction = "update_transaction"
	StepShadowTransaction = "shadow_transaction"
	StepDebitSource       = "debit_source"
	StepCreditDestination = "credit_destination"
)

const walletCacheName = "wallets"

// ReconciliationService orchestrates wallet assignment and transfers.
type ReconciliationService struct {
	store   port.ReconcileStore
	catalog *catalog.Catalog
	session port.SessionResolver
	wallets port.Cache[[]domain.Wallet]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewReconciliationService creates a new reconciliation service.
func NewReconciliationService(
	store port.ReconcileStore,
	cat *catalog.Catalog,
	session port.SessionResolver,
	wallets port.Cache[[]domain.Wallet],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		store:   store,
		catalog: cat,
		session: session,
		wallets: wallets,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *ReconciliationService) log(ctx context.Context) *zap.Logger {
	return observability.WithTrace(ctx, s.logger)
}

// ============================================================
// Single-wallet assignment
// ============================================================

// AssignTransactionToWallet attaches a transaction to one wallet and moves
// the wallet balance. A balance snapshot, stored or found in the description,
// sets the balance outright; otherwise the amount is added for credits and
// subtracted for everything else. Calling it twice applies the delta twice.
//
// The caller must be signed in, and records owned by another user are
// treated as missing.
func (s *ReconciliationService) AssignTransactionToWallet(ctx context.Context, transactionID, walletID string) bool {
	ctx, span := reconTracer.Start(ctx, "ReconciliationService.AssignTransactionToWallet")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction.id", transactionID),
		attribute.String("wallet.id", walletID),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("assign_wallet", time.Since(start)) }()

	logger := s.log(ctx).With(
		zap.String("transaction_id", transactionID),
		zap.String("wallet_id", walletID),
	)

	err := s.assign(ctx, transactionID, walletID, logger)
	if err != nil {
		span.RecordError(err)
		s.countExternal(err)
		logger.Error("wallet assignment failed", zap.Error(err))
		s.metrics.IncrReconcile(observability.OpAssign, domain.OutcomeFailed)
		return false
	}

	s.metrics.IncrReconcile(observability.OpAssign, domain.OutcomeCompleted)
	return true
}

func (s *ReconciliationService) assign(ctx context.Context, transactionID, walletID string, logger *zap.Logger) error {
	userID, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return &domain.ErrUnauthorized{Message: "sign in to assign transactions"}
	}

	tx, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("loading transaction: %w", err)
	}
	if !ownedBy(userID, tx.UserID) {
		return &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}

	wallet, err := s.store.GetWallet(ctx, walletID)
	if err != nil {
		return fmt.Errorf("loading wallet: %w", err)
	}
	if !ownedBy(userID, wallet.UserID) {
		return &domain.ErrNotFound{Resource: "wallet", ID: walletID}
	}

	newBalance := wallet.CurrentBalance.Add(tx.SignedAmount())
	snapshot := tx.BalanceSnapshot
	if snapshot == nil {
		snapshot = detect.ExtractBalanceSnapshot(tx.Description)
	}
	if snapshot != nil {
		newBalance = *snapshot
	}

	category := s.catalog.SuggestID(tx.Description, tx.Type)
	if tx.HasCategory() {
		category = *tx.Category
	}

	if err := s.store.UpdateTransaction(ctx, transactionID, map[string]any{
		"wallet_id": walletID,
		"category":  category,
	}); err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	if err := s.store.UpdateWallet(ctx, walletID, map[string]any{
		"current_balance": newBalance,
	}); err != nil {
		// The transaction already points at the wallet; the balance is stale.
		return &domain.ErrPartialFailure{Operation: "assign", Step: "update_wallet_balance", Err: err}
	}
	s.invalidateWallets(ctx, wallet.UserID)

	logger.Info("transaction assigned to wallet",
		zap.String("category", category),
		zap.String("previous_balance", wallet.CurrentBalance.StringFixed(2)),
		zap.String("new_balance", newBalance.StringFixed(2)),
		zap.Bool("from_snapshot", snapshot != nil),
	)
	return nil
}

// ============================================================
// Transfers
// ============================================================

// ProcessTransfer records a transfer between two wallets from one unmatched
// transaction. Success requires the transfer row and the original
// transaction update; the shadow leg and the two balance moves are best
// effort and only turn Status into "partial" when they fail.
//
// With a session user, the transaction and both wallets must belong to that
// user before anything is written. Without one the transfer row carries no
// owner and the store is left to reject it.
func (s *ReconciliationService) ProcessTransfer(ctx context.Context, req domain.TransferRequest) *domain.TransferOutcome {
	ctx, span := reconTracer.Start(ctx, "ReconciliationService.ProcessTransfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction.id", req.TransactionID),
		attribute.String("from_wallet.id", req.FromWalletID),
		attribute.String("to_wallet.id", req.ToWalletID),
		attribute.String("amount", req.Amount.String()),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("process_transfer", time.Since(start)) }()

	logger := s.log(ctx).With(
		zap.String("transaction_id", req.TransactionID),
		zap.String("from_wallet_id", req.FromWalletID),
		zap.String("to_wallet_id", req.ToWalletID),
		zap.String("amount", req.Amount.StringFixed(2)),
	)

	out := s.transfer(ctx, req, logger).Finish()

	s.metrics.IncrReconcile(observability.OpTransfer, out.Status)
	switch out.Status {
	case domain.OutcomeFailed:
		logger.Error("transfer failed", zap.Strings("failed_steps", out.Failures))
	case domain.OutcomePartial:
		logger.Warn("transfer recorded with partial failures",
			zap.String("transfer_id", out.TransferID),
			zap.Strings("failed_steps", out.Failures),
		)
	default:
		logger.Info("transfer completed",
			zap.String("transfer_id", out.TransferID),
			zap.String("shadow_transaction_id", out.ShadowTransactionID),
		)
	}
	return out
}

func (s *ReconciliationService) transfer(ctx context.Context, req domain.TransferRequest, logger *zap.Logger) *domain.TransferOutcome {
	out := &domain.TransferOutcome{}

	if req.TransactionID == "" || req.FromWalletID == "" || req.ToWalletID == "" || !req.Amount.IsPositive() {
		logger.Warn("transfer rejected: incomplete request")
		out.RecordFailure(StepCreateTransfer)
		return out
	}

	// ── 1. Owner ──
	userID, ok := s.session.CurrentUserID(ctx)
	if !ok {
		logger.Warn("no session user, attempting transfer without owner")
	} else if step, err := s.authorize(ctx, userID, req); err != nil {
		logger.Warn("transfer rejected before any write", zap.String("step", step), zap.Error(err))
		s.countExternal(err)
		out.RecordFailure(step)
		return out
	}

	// ── 2. Transfer row ──
	transfer, err := s.insertTransfer(ctx, &domain.TransferInput{
		UserID:       userID,
		FromWalletID: req.FromWalletID,
		ToWalletID:   req.ToWalletID,
		Amount:       req.Amount,
		Status:       domain.TransferStatusCompleted,
		Notes:        req.Notes,
		CompletedAt:  s.now().UTC(),
	}, logger)
	if err != nil {
		logger.Error("failed to create transfer", zap.Error(err))
		s.countExternal(err)
		out.RecordFailure(StepCreateTransfer)
		return out
	}
	out.TransferID = transfer.ID
	logger = logger.With(zap.String("transfer_id", transfer.ID))

	// The transfer exists; finish the legs even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	// ── 3. Reload and classify ──
	tx, err := s.store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		logger.Error("failed to reload transaction for transfer", zap.Error(err))
		s.countExternal(err)
		out.RecordFailure(StepLoadTransaction)
		return out
	}
	if ok && !ownedBy(userID, tx.UserID) {
		logger.Error("transaction changed owner during transfer",
			zap.Error(&domain.ErrNotFound{Resource: "transaction", ID: tx.ID}))
		out.RecordFailure(StepLoadTransaction)
		return out
	}
	side := domain.SideTo
	if tx.Type.IsDebit() {
		side = domain.SideFrom
	}
	ownWallet, otherWallet := req.ToWalletID, req.FromWalletID
	if side == domain.SideFrom {
		ownWallet, otherWallet = req.FromWalletID, req.ToWalletID
	}

	// ── 4. Original leg ──
	if err := s.store.UpdateTransaction(ctx, tx.ID, map[string]any{
		"wallet_id":     ownWallet,
		"transfer_id":   transfer.ID,
		"transfer_side": string(side),
		"is_transfer":   true,
	}); err != nil {
		logger.Error("failed to update original transaction", zap.Error(err))
		s.countExternal(err)
		out.RecordFailure(StepUpdateTransaction)
		return out
	}
	out.Success = true

	// ── 5. Shadow leg ──
	shadow, err := s.store.InsertTransaction(ctx, s.shadowOf(tx, side, otherWallet, transfer.ID, req, userID))
	if err != nil {
		logger.Error("failed to create shadow transaction", zap.Error(err))
		s.partial(out, StepShadowTransaction, err)
	} else {
		out.ShadowTransactionID = shadow.ID
	}

	// ── 6. Balances ──
	if err := s.adjustBalance(ctx, req.FromWalletID, req.Amount.Neg()); err != nil {
		logger.Error("failed to debit source wallet", zap.Error(err))
		s.partial(out, StepDebitSource, err)
	}
	if err := s.adjustBalance(ctx, req.ToWalletID, req.Amount); err != nil {
		logger.Error("failed to credit destination wallet", zap.Error(err))
		s.partial(out, StepCreditDestination, err)
	}

	return out
}

// authorize loads the transaction and both wallets for userID. Records owned
// by someone else come back as not found, along with the step to report.
func (s *ReconciliationService) authorize(ctx context.Context, userID string, req domain.TransferRequest) (string, error) {
	tx, err := s.store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return StepLoadTransaction, err
	}
	if !ownedBy(userID, tx.UserID) {
		return StepAuthorize, &domain.ErrNotFound{Resource: "transaction", ID: req.TransactionID}
	}
	for _, id := range []string{req.FromWalletID, req.ToWalletID} {
		w, err := s.store.GetWallet(ctx, id)
		if err != nil {
			return StepAuthorize, err
		}
		if !ownedBy(userID, w.UserID) {
			return StepAuthorize, &domain.ErrNotFound{Resource: "wallet", ID: id}
		}
	}
	return "", nil
}

// ownedBy reports whether userID may touch a row owned by owner. Rows
// without an owner are shared.
func ownedBy(userID, owner string) bool {
	return owner == "" || owner == userID
}

// insertTransfer writes the transfer row. When the store reports that an
// optional column does not exist the write is retried once without it.
func (s *ReconciliationService) insertTransfer(ctx context.Context, in *domain.TransferInput, logger *zap.Logger) (*domain.Transfer, error) {
	transfer, err := s.store.InsertTransfer(ctx, in)
	if err == nil {
		return transfer, nil
	}

	var schemaErr *domain.ErrSchemaMismatch
	if !errors.As(err, &schemaErr) {
		return nil, err
	}
	omit := retryColumns(schemaErr.Column)
	if len(omit) == 0 {
		return nil, err
	}

	logger.Warn("transfers table lacks optional column, retrying without it",
		zap.String("column", schemaErr.Column),
		zap.Strings("omitted", omit),
	)
	retry := *in
	retry.Omit = omit
	return s.store.InsertTransfer(ctx, &retry)
}

// retryColumns picks what to drop for the schema retry. An unnamed column
// drops every optional one.
func retryColumns(column string) []string {
	if column == "" {
		return optionalTransferColumns
	}
	for _, c := range optionalTransferColumns {
		if strings.EqualFold(c, column) {
			return []string{c}
		}
	}
	return nil
}

func (s *ReconciliationService) shadowOf(orig *domain.Transaction, side domain.TransferSide, walletID, transferID string, req domain.TransferRequest, userID string) *domain.Transaction {
	label := req.Notes
	if strings.TrimSpace(label) == "" {
		label = "Wallet"
	}

	shadowSide := side.Opposite()
	direction := domain.DirectionDebit
	desc := "Transfer to " + label
	if side == domain.SideFrom {
		direction = domain.DirectionCredit
		desc = "Transfer from " + label
	}

	date := orig.TransactionDate
	if date.IsZero() {
		date = s.now().UTC()
	}
	owner := orig.UserID
	if owner == "" {
		owner = userID
	}
	category := domain.CategoryTransfer
	tid := transferID

	return &domain.Transaction{
		UserID:          owner,
		Description:     desc,
		Amount:          req.Amount,
		Type:            direction,
		Category:        &category,
		WalletID:        &walletID,
		TransactionDate: date,
		IsTransfer:      true,
		TransferID:      &tid,
		TransferSide:    &shadowSide,
		Source:          domain.SourceTransfer,
	}
}

// adjustBalance reads the wallet and writes balance+delta back. There is no
// compare-and-swap; a concurrent writer in between is lost.
func (s *ReconciliationService) adjustBalance(ctx context.Context, walletID string, delta decimal.Decimal) error {
	wallet, err := s.store.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateWallet(ctx, walletID, map[string]any{
		"current_balance": wallet.CurrentBalance.Add(delta),
	}); err != nil {
		return err
	}
	s.invalidateWallets(ctx, wallet.UserID)
	return nil
}

func (s *ReconciliationService) partial(out *domain.TransferOutcome, step string, err error) {
	out.RecordFailure(step)
	s.metrics.IncrPartialFailure(step)
	s.countExternal(err)
}

// countExternal feeds bfa_external_errors_total for store outages.
func (s *ReconciliationService) countExternal(err error) {
	var external *domain.ErrExternalService
	var open *domain.ErrCircuitOpen
	switch {
	case errors.As(err, &external):
		s.metrics.IncrExternalError(external.Service)
	case errors.As(err, &open):
		s.metrics.IncrExternalError(open.Service)
	}
}

// ============================================================
// Wallets and the reconciliation inbox
// ============================================================

// ListActiveWallets returns the session user's active wallets, cached until
// the next balance write.
func (s *ReconciliationService) ListActiveWallets(ctx context.Context) ([]domain.Wallet, error) {
	ctx, span := reconTracer.Start(ctx, "ReconciliationService.ListActiveWallets")
	defer span.End()

	userID, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "sign in to list wallets"}
	}

	if cached, ok := s.wallets.Get(userID); ok {
		s.metrics.IncrCacheHit(walletCacheName)
		return cached, nil
	}
	s.metrics.IncrCacheMiss(walletCacheName)

	wallets, err := s.store.ListWallets(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	s.wallets.Set(userID, wallets)
	return wallets, nil
}

// ListUnmatched builds the reconciliation inbox for the session user: every
// transaction without a wallet, with its detection result, a suggested
// category and the wallets matching the suggested transfer ends.
func (s *ReconciliationService) ListUnmatched(ctx context.Context) ([]domain.UnmatchedItem, error) {
	ctx, span := reconTracer.Start(ctx, "ReconciliationService.ListUnmatched")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("list_unmatched", time.Since(start)) }()

	userID, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "sign in to list transactions"}
	}

	var (
		wallets []domain.Wallet
		txs     []domain.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		wallets, err = s.ListActiveWallets(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.store.ListUnmatched(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.countExternal(err)
		s.log(ctx).Error("failed to load reconciliation inbox",
			zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	items := make([]domain.UnmatchedItem, 0, len(txs))
	for _, tx := range txs {
		info := detect.Detect(tx.Description)
		items = append(items, domain.UnmatchedItem{
			Transaction:       tx,
			Detection:         info,
			SuggestedCategory: s.catalog.Suggest(tx.Description, tx.Type),
			SourceCandidates:  walletsOfType(wallets, info.SuggestedSourceType),
			DestCandidates:    walletsOfType(wallets, info.SuggestedDestType),
		})
	}
	span.SetAttributes(attribute.Int("unmatched.count", len(items)))
	return items, nil
}

func walletsOfType(wallets []domain.Wallet, t *domain.WalletType) []domain.Wallet {
	if t == nil {
		return nil
	}
	var out []domain.Wallet
	for _, w := range wallets {
		if w.Type == *t {
			out = append(out, w)
		}
	}
	return out
}

func (s *ReconciliationService) invalidateWallets(ctx context.Context, owner string) {
	if owner != "" {
		s.wallets.Delete(owner)
	}
	if userID, ok := s.session.CurrentUserID(ctx); ok && userID != owner {
		s.wallets.Delete(userID)
	}
}

// ============================================================
// Catalog and detection
// ============================================================

func (s *ReconciliationService) Categories() []domain.Category {
	return s.catalog.All()
}

// Category resolves an id, falling back to a display name.
func (s *ReconciliationService) Category(idOrName string) (domain.Category, error) {
	c, ok := s.catalog.ByIDOrName(idOrName)
	if !ok {
		return domain.Category{}, &domain.ErrNotFound{Resource: "category", ID: idOrName}
	}
	return c, nil
}

func (s *ReconciliationService) SuggestCategory(description string, dir domain.Direction) domain.Category {
	return s.catalog.Suggest(description, dir)
}

func (s *ReconciliationService) DetectTransfer(description string) domain.TransferInfo {
	return detect.Detect(description)
}
