package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"eventhub/internal/models"
	"eventhub/internal/services"
)

// RuleHandler handles HTTP requests for rule management and the firing
// audit log.
type RuleHandler struct {
	rules      services.RuleServiceProvider
	executions services.ExecutionServiceProvider
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(rules services.RuleServiceProvider, executions services.ExecutionServiceProvider) *RuleHandler {
	return &RuleHandler{rules: rules, executions: executions}
}

// GetAll handles GET /rules.
func (h *RuleHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.GetAll(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve rules")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve rules")
		return
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// Create handles POST /rules.
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.rules.Create(r.Context(), rule)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /rules/{id}.
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, err := h.rules.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// Update handles PUT /rules/{id}.
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	updated, err := h.rules.Update(r.Context(), chi.URLParam(r, "id"), rule)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /rules/{id}.
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles PATCH /rules/{id}/toggle.
func (h *RuleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	rule, err := h.rules.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// GetExecutions handles GET /rules/{id}/executions.
func (h *RuleHandler) GetExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// 404 for unknown rule ids, even though the audit query itself would
	// just come back empty.
	if _, err := h.rules.GetByID(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	execs, err := h.executions.ListByRule(r.Context(), id, intParam(r.URL.Query().Get("limit")))
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve rule executions")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve rule executions")
		return
	}
	if execs == nil {
		execs = []models.RuleExecution{}
	}
	writeJSON(w, http.StatusOK, execs)
}

// GetRecentExecutions handles GET /rules/executions/recent.
func (h *RuleHandler) GetRecentExecutions(w http.ResponseWriter, r *http.Request) {
	execs, err := h.executions.ListRecent(r.Context(), intParam(r.URL.Query().Get("limit")))
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve recent executions")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve recent executions")
		return
	}
	if execs == nil {
		execs = []models.RuleExecution{}
	}
	writeJSON(w, http.StatusOK, execs)
}
