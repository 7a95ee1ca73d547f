package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/funlifew/push-notify-api/internal/repository"
)

type SubscriptionHandler struct {
	repo   repository.SubscriptionRepository
	logger zerolog.Logger
}

func NewSubscriptionHandler(repo repository.SubscriptionRepository, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		repo:   repo,
		logger: logger.With().Str("handler", "subscription").Logger(),
	}
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID    *uuid.UUID `json:"user_id"`
		Endpoint  string     `json:"endpoint"`
		AuthKey   string     `json:"auth_key"`
		P256dhKey string     `json:"p256dh_key"`
		Device    string     `json:"device"`
		OS        string     `json:"os"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Endpoint == "" || payload.AuthKey == "" || payload.P256dhKey == "" {
		http.Error(w, "endpoint, auth_key and p256dh_key are required", http.StatusBadRequest)
		return
	}

	// Registering an already known endpoint refreshes it instead of
	// creating a duplicate.
	if existing, err := h.repo.GetByEndpoint(r.Context(), payload.Endpoint); err == nil {
		if err := h.repo.TouchLastUsed(r.Context(), existing.ID); err != nil {
			h.logger.Warn().Err(err).Str("subscription_id", existing.ID.String()).Msg("failed to touch subscription")
		}
		writeJSON(w, http.StatusOK, existing)
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error().Err(err).Msg("failed to look up subscription by endpoint")
		http.Error(w, "Failed to create subscription", http.StatusInternalServerError)
		return
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	sub, err := h.repo.Create(r.Context(), repository.CreateSubscriptionParams{
		UserID:    payload.UserID,
		Endpoint:  payload.Endpoint,
		AuthKey:   payload.AuthKey,
		P256dhKey: payload.P256dhKey,
		Device:    payload.Device,
		OS:        payload.OS,
		IPAddress: ip,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create subscription")
		http.Error(w, "Failed to create subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list subscriptions")
		http.Error(w, "Failed to list subscriptions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["subscriptionID"])
	if err != nil {
		http.Error(w, "Invalid subscription ID", http.StatusBadRequest)
		return
	}

	sub, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Subscription not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to get subscription")
		http.Error(w, "Failed to get subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Delete removes a subscription; topic memberships and ledger rows cascade.
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["subscriptionID"])
	if err != nil {
		http.Error(w, "Invalid subscription ID", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Subscription not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to delete subscription")
		http.Error(w, "Failed to delete subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
