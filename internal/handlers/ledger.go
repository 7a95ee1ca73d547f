package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/funlifew/push-notify-api/internal/repository"
)

type LedgerHandler struct {
	repo   repository.LedgerRepository
	logger zerolog.Logger
}

func NewLedgerHandler(repo repository.LedgerRepository, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		repo:   repo,
		logger: logger.With().Str("handler", "ledger").Logger(),
	}
}

func limitParam(r *http.Request) int {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

func (h *LedgerHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.ListRecent(r.Context(), limitParam(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list ledger entries")
		http.Error(w, "Failed to list ledger entries", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *LedgerHandler) ListBySubscription(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["subscriptionID"])
	if err != nil {
		http.Error(w, "Invalid subscription ID", http.StatusBadRequest)
		return
	}

	entries, err := h.repo.ListBySubscription(r.Context(), id, limitParam(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list ledger entries")
		http.Error(w, "Failed to list ledger entries", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
