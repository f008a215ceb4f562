package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"eventhub/internal/metrics"
	"eventhub/internal/models"
)

// Publisher pushes a stored event onto the stream transport.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) (string, error)
}

// EventFilter narrows a Query. All fields are optional and ANDed.
type EventFilter struct {
	EventType       string
	Source          string
	EventTypePrefix string
	Limit           int
	Offset          int
}

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 500
)

// EventServiceProvider defines the interface for event ingestion and queries.
type EventServiceProvider interface {
	Submit(ctx context.Context, eventType, source string, payload map[string]interface{}) (models.Event, error)
	Query(ctx context.Context, filter EventFilter) ([]models.Event, error)
	CountsBySource(ctx context.Context, since time.Time) (map[string]int, error)
	CountsByType(ctx context.Context, since time.Time) (map[string]int, error)
}

// EventService provides business logic for event management.
type EventService struct {
	db        *sql.DB
	publisher Publisher
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, publisher Publisher) *EventService {
	return &EventService{db: db, publisher: publisher}
}

// Submit validates, persists and publishes a new event. The write-then-publish
// order is deliberate: a publish failure leaves a queryable but undelivered
// event, never a delivered-but-unrecorded one.
func (s *EventService) Submit(ctx context.Context, eventType, source string, payload map[string]interface{}) (models.Event, error) {
	if eventType == "" {
		return models.Event{}, models.NewValidationError("event_type must not be empty")
	}
	if source == "" {
		return models.Event{}, models.NewValidationError("source must not be empty")
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return models.Event{}, models.NewValidationError("payload is not serializable: " + err.Error())
	}

	event := models.Event{
		EventType: eventType,
		Source:    source,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO events (event_type, source, payload_json, created_at) VALUES (?, ?, ?, ?)",
		event.EventType, event.Source, string(payloadJSON), event.CreatedAt)
	if err != nil {
		return models.Event{}, err
	}
	event.ID, err = res.LastInsertId()
	if err != nil {
		return models.Event{}, err
	}
	metrics.EventsIngested.Inc()

	if _, err := s.publisher.Publish(ctx, event); err != nil {
		// The event is durable; delivery just didn't happen.
		log.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to publish event to stream")
	}
	return event, nil
}

// Query retrieves events matching the filter, newest first.
func (s *EventService) Query(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	query := "SELECT id, event_type, source, payload_json, created_at FROM events WHERE 1=1"
	var args []interface{}

	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, filter.EventType)
	}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}
	if filter.EventTypePrefix != "" {
		query += " AND event_type LIKE ?"
		args = append(args, filter.EventTypePrefix+"%")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		var payloadJSON string
		if err := rows.Scan(&event.ID, &event.EventType, &event.Source, &payloadJSON, &event.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadJSON), &event.Payload); err != nil {
			event.Payload = map[string]interface{}{}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountsBySource returns event counts grouped by source since the given time.
func (s *EventService) CountsBySource(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.counts(ctx, "source", since)
}

// CountsByType returns event counts grouped by event type since the given time.
func (s *EventService) CountsByType(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.counts(ctx, "event_type", since)
}

func (s *EventService) counts(ctx context.Context, column string, since time.Time) (map[string]int, error) {
	// column is one of the two fixed callers above, never user input.
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM events WHERE created_at >= ? GROUP BY "+column, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
