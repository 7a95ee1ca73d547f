package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/funlifew/push-notify-api/internal/repository"
)

type TemplateHandler struct {
	repo   repository.TemplateRepository
	logger zerolog.Logger
}

func NewTemplateHandler(repo repository.TemplateRepository, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		repo:   repo,
		logger: logger.With().Str("handler", "template").Logger(),
	}
}

type templatePayload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	URL      string `json:"url"`
	IconPath string `json:"icon_path"`
}

func (p templatePayload) validate() error {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Body) == "" {
		return errors.New("title and body are required")
	}
	return nil
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload templatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := payload.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tpl, err := h.repo.Create(r.Context(), repository.TemplateParams{
		Title:    payload.Title,
		Body:     payload.Body,
		URL:      payload.URL,
		IconPath: payload.IconPath,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create template")
		http.Error(w, "Failed to create template", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list templates")
		http.Error(w, "Failed to list templates", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["templateID"])
	if err != nil {
		http.Error(w, "Invalid template ID", http.StatusBadRequest)
		return
	}

	tpl, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to get template")
		http.Error(w, "Failed to get template", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["templateID"])
	if err != nil {
		http.Error(w, "Invalid template ID", http.StatusBadRequest)
		return
	}

	var payload templatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := payload.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tpl, err := h.repo.Update(r.Context(), id, repository.TemplateParams{
		Title:    payload.Title,
		Body:     payload.Body,
		URL:      payload.URL,
		IconPath: payload.IconPath,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to update template")
		http.Error(w, "Failed to update template", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["templateID"])
	if err != nil {
		http.Error(w, "Invalid template ID", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to delete template")
		http.Error(w, "Failed to delete template", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
