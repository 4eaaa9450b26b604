package handler

import (
	"net/http"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// reconcileFailedMsg is all the client learns when a reconciliation fails;
// the details are in the logs.
const reconcileFailedMsg = "could not reconcile transaction, try again"

func listWalletsHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/wallets")
		defer span.End()

		wallets, err := svc.ListActiveWallets(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, wallets)
	}
}

func listUnmatchedHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/unmatched")
		defer span.End()

		items, err := svc.ListUnmatched(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func assignHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{id}/assign")
		defer span.End()

		transactionID := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", transactionID))

		var req domain.AssignRequest
		if err := decodeAndValidate(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if !svc.AssignTransactionToWallet(ctx, transactionID, req.WalletID) {
			writeError(w, http.StatusUnprocessableEntity, reconcileFailedMsg)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"transaction_id": transactionID,
			"wallet_id":      req.WalletID,
		})
	}
}

func transferHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{id}/transfer")
		defer span.End()

		var req domain.TransferRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req.TransactionID = chi.URLParam(r, "id")
		if err := validateStruct(&req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if !req.Amount.IsPositive() {
			handleServiceError(w, &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}, logger)
			return
		}
		span.SetAttributes(attribute.String("transaction.id", req.TransactionID))

		out := svc.ProcessTransfer(ctx, req)
		if !out.Success {
			writeError(w, http.StatusUnprocessableEntity, reconcileFailedMsg)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
