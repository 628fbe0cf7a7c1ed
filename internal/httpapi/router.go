// Package httpapi wires the two HTTP endpoints described in spec.md §6
// onto the Ingestion Handler and Summary Service, mapping internal error
// kinds (internal/apperr) to response codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/paymentdispatch/intermediary/internal/apperr"
	"github.com/paymentdispatch/intermediary/internal/ingestion"
	"github.com/paymentdispatch/intermediary/internal/summary"
)

// NewRouter builds the full HTTP surface.
func NewRouter(ingest *ingestion.Service, summarySvc *summary.Service, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()

	h := &handlers{ingest: ingest, summary: summarySvc, logger: logger}
	router.HandleFunc("/payments", h.postPayments).Methods(http.MethodPost)
	router.HandleFunc("/payments-summary", h.getSummary).Methods(http.MethodGet)
	router.HandleFunc("/health", h.getHealth).Methods(http.MethodGet)

	return router
}

type handlers struct {
	ingest  *ingestion.Service
	summary *summary.Service
	logger  *zap.Logger
}

func (h *handlers) postPayments(w http.ResponseWriter, r *http.Request) {
	var req ingestion.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed_body")
		return
	}

	if err := h.ingest.Accept(r.Context(), req); err != nil {
		h.writeIngestionError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) writeIngestionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		kind := apperr.Kind(err)
		if kind == "" {
			kind = "validation_error"
		}
		writeError(w, http.StatusUnprocessableEntity, kind)
	case errors.Is(err, apperr.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
	default:
		h.logger.Error("unexpected ingestion error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (h *handlers) getSummary(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	result, err := h.summary.Get(r.Context(), from, to)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, "invalid_window")
		case errors.Is(err, apperr.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		default:
			h.logger.Error("unexpected summary error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(result))
}

func (h *handlers) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind string) {
	writeJSON(w, status, errorResponse{Kind: kind})
}
