package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/funlifew/push-notify-api/internal/models"
	"github.com/funlifew/push-notify-api/internal/repository"
)

// Sender is the slice of the dispatcher the schedule handler needs for
// immediate and forced sends.
type Sender interface {
	SendNow(ctx context.Context, id uuid.UUID) (models.ScheduledNotification, error)
}

type ScheduleHandler struct {
	repo   repository.ScheduleRepository
	sender Sender
	logger zerolog.Logger
}

func NewScheduleHandler(repo repository.ScheduleRepository, sender Sender, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		repo:   repo,
		sender: sender,
		logger: logger.With().Str("handler", "schedule").Logger(),
	}
}

type schedulePayload struct {
	SubscriptionID *uuid.UUID `json:"subscription_id"`
	TopicID        *uuid.UUID `json:"topic_id"`
	SendToAll      bool       `json:"send_to_all"`

	TemplateID *uuid.UUID `json:"template_id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	URL        string     `json:"url"`
	IconPath   string     `json:"icon_path"`

	ScheduledAt *time.Time `json:"scheduled_at"`
	CreatedBy   *uuid.UUID `json:"created_by"`
}

// Create schedules a notification. Without a scheduled_at timestamp the
// notification is dispatched immediately through the same pipeline the due
// scan uses.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload schedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	recipient, err := models.NewRecipient(payload.SubscriptionID, payload.TopicID, payload.SendToAll)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	content, err := models.NewContent(payload.TemplateID, models.Payload{
		Title:    payload.Title,
		Body:     payload.Body,
		URL:      payload.URL,
		IconPath: payload.IconPath,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := models.ScheduleRequest{
		Recipient: recipient,
		Content:   content,
		SendAt:    payload.ScheduledAt,
		CreatedBy: payload.CreatedBy,
	}

	notification, err := h.repo.Create(r.Context(), req, req.ScheduledAtOr(time.Now()))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create scheduled notification")
		http.Error(w, "Failed to create scheduled notification", http.StatusInternalServerError)
		return
	}

	if payload.ScheduledAt == nil {
		sent, err := h.sender.SendNow(r.Context(), notification.ID)
		if err != nil {
			h.logger.Warn().Err(err).Str("notification_id", notification.ID.String()).Msg("immediate send failed")
			writeJSON(w, http.StatusBadGateway, sent)
			return
		}
		writeJSON(w, http.StatusCreated, sent)
		return
	}

	writeJSON(w, http.StatusCreated, notification)
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list scheduled notifications")
		http.Error(w, "Failed to list scheduled notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["notificationID"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	notification, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Notification not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to get scheduled notification")
		http.Error(w, "Failed to get scheduled notification", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, notification)
}

// Cancel deletes a notification while it is not claimed. Canceling a
// processing or sent row is rejected.
func (h *ScheduleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["notificationID"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			http.Error(w, "Notification not found", http.StatusNotFound)
		case errors.Is(err, repository.ErrNotCancelable):
			http.Error(w, "Notification cannot be canceled in its current state", http.StatusConflict)
		default:
			h.logger.Error().Err(err).Msg("failed to cancel scheduled notification")
			http.Error(w, "Failed to cancel scheduled notification", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendNow force-dispatches a notification out of band, bypassing the
// schedule check.
func (h *ScheduleHandler) SendNow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["notificationID"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	notification, err := h.sender.SendNow(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			http.Error(w, "Notification not found", http.StatusNotFound)
		case errors.Is(err, repository.ErrClaimConflict):
			http.Error(w, "Notification is already being processed or was sent", http.StatusConflict)
		default:
			h.logger.Warn().Err(err).Str("notification_id", id.String()).Msg("forced send failed")
			writeJSON(w, http.StatusBadGateway, notification)
		}
		return
	}
	writeJSON(w, http.StatusOK, notification)
}
