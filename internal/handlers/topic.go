package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/funlifew/push-notify-api/internal/repository"
)

type TopicHandler struct {
	repo   repository.TopicRepository
	logger zerolog.Logger
}

func NewTopicHandler(repo repository.TopicRepository, logger zerolog.Logger) *TopicHandler {
	return &TopicHandler{
		repo:   repo,
		logger: logger.With().Str("handler", "topic").Logger(),
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func (h *TopicHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		http.Error(w, "Topic name is required", http.StatusBadRequest)
		return
	}
	if payload.Slug == "" {
		payload.Slug = slugify(payload.Name)
	}

	if _, err := h.repo.GetBySlug(r.Context(), payload.Slug); err == nil {
		http.Error(w, "A topic with this slug already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error().Err(err).Msg("failed to look up topic by slug")
		http.Error(w, "Failed to create topic", http.StatusInternalServerError)
		return
	}

	topic, err := h.repo.Create(r.Context(), payload.Name, payload.Slug)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create topic")
		http.Error(w, "Failed to create topic", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	topics, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list topics")
		http.Error(w, "Failed to list topics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

func (h *TopicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["topicID"])
	if err != nil {
		http.Error(w, "Invalid topic ID", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Topic not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to delete topic")
		http.Error(w, "Failed to delete topic", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Subscribe adds a subscription to the topic's membership set.
func (h *TopicHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	topicID, err := uuid.Parse(mux.Vars(r)["topicID"])
	if err != nil {
		http.Error(w, "Invalid topic ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		SubscriptionID uuid.UUID `json:"subscription_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.SubscriptionID == uuid.Nil {
		http.Error(w, "subscription_id is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.AddSubscription(r.Context(), topicID, payload.SubscriptionID); err != nil {
		h.logger.Error().Err(err).Msg("failed to add topic subscription")
		http.Error(w, "Failed to add subscription to topic", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TopicHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	topicID, err := uuid.Parse(mux.Vars(r)["topicID"])
	if err != nil {
		http.Error(w, "Invalid topic ID", http.StatusBadRequest)
		return
	}
	subscriptionID, err := uuid.Parse(mux.Vars(r)["subscriptionID"])
	if err != nil {
		http.Error(w, "Invalid subscription ID", http.StatusBadRequest)
		return
	}

	if err := h.repo.RemoveSubscription(r.Context(), topicID, subscriptionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Membership not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to remove topic subscription")
		http.Error(w, "Failed to remove subscription from topic", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
