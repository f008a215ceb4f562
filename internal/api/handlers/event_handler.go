package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"eventhub/internal/models"
	"eventhub/internal/services"
)

// EventHandler handles HTTP requests for event ingestion and queries.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

type submitEventRequest struct {
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
}

// Submit handles POST /events.
func (h *EventHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var payload map[string]interface{}
	if len(req.Payload) > 0 {
		// Lists, scalars and strings are rejected; only an object (or an
		// omitted/null payload) is a valid payload.
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "payload must be an object")
			return
		}
	}

	event, err := h.service.Submit(r.Context(), req.EventType, req.Source, payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// Query handles GET /events.
func (h *EventHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.EventFilter{
		EventType:       q.Get("event_type"),
		Source:          q.Get("source"),
		EventTypePrefix: q.Get("event_type_prefix"),
		Limit:           intParam(q.Get("limit")),
		Offset:          intParam(q.Get("offset")),
	}

	events, err := h.service.Query(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query events")
		writeError(w, http.StatusInternalServerError, "Failed to query events")
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
