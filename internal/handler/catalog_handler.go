package handler

import (
	"net/http"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Category catalog and transfer detection
// ============================================================

func listCategoriesHandler(svc *service.ReconciliationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Categories())
	}
}

func getCategoryHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, err := svc.Category(chi.URLParam(r, "idOrName"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, category)
	}
}

func suggestCategoryHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/categories/suggest")
		defer span.End()

		var req domain.SuggestRequest
		if err := decodeAndValidate(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		category := svc.SuggestCategory(req.Description, domain.ParseDirection(req.Type))
		span.SetAttributes(attribute.String("category.id", category.ID))
		writeJSON(w, http.StatusOK, category)
	}
}

func detectTransferHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.DetectRequest
		if err := decodeAndValidate(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, svc.DetectTransfer(req.Description))
	}
}
