package actions

import (
	"context"

	"github.com/rs/zerolog/log"

	"eventhub/internal/models"
)

// LoggingTracker is the default PipelineTracker: it records what was
// forwarded without talking to an external pipeline service.
type LoggingTracker struct{}

// Track logs the forwarded event and returns a summary of what was sent.
func (LoggingTracker) Track(_ context.Context, event models.Event) (map[string]interface{}, error) {
	log.Info().
		Str("event_type", event.EventType).
		Str("source", event.Source).
		Msg("Pipeline track")
	return map[string]interface{}{
		"tracked":    true,
		"event_type": event.EventType,
	}, nil
}

// LoggingPusher is the default ResumePusher analogue of LoggingTracker.
type LoggingPusher struct{}

// Push logs the push request and returns its summary.
func (LoggingPusher) Push(_ context.Context, event models.Event) (map[string]interface{}, error) {
	log.Info().
		Str("event_type", event.EventType).
		Str("source", event.Source).
		Msg("Resume push")
	return map[string]interface{}{
		"pushed":     true,
		"event_type": event.EventType,
	}, nil
}
