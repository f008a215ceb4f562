package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eventhub/internal/models"
)

func TestInterpolate(t *testing.T) {
	ev := models.Event{
		ID:        7,
		EventType: "deploy.finished",
		Source:    "ci",
		Payload: map[string]interface{}{
			"service": "api",
			"count":   float64(10),
		},
	}

	assert.Equal(t, "ci finished api", Interpolate("{source} finished {payload.service}", ev))
	assert.Equal(t, "count=10", Interpolate("count={payload.count}", ev))
	assert.Equal(t, "type deploy.finished id 7", Interpolate("type {event_type} id {id}", ev))
	// Unresolvable placeholders stay visible.
	assert.Equal(t, "{payload.missing}", Interpolate("{payload.missing}", ev))
	assert.Equal(t, "no placeholders", Interpolate("no placeholders", ev))
}

func TestInterpolateMapRecursive(t *testing.T) {
	ev := models.Event{
		EventType: "deploy.finished",
		Source:    "ci",
		Payload:   map[string]interface{}{"service": "api"},
	}

	template := map[string]interface{}{
		"service": "{payload.service}",
		"nested": map[string]interface{}{
			"origin": "{source}",
		},
		"list":  []interface{}{"{event_type}", float64(1)},
		"fixed": true,
	}

	got := InterpolateMap(template, ev)
	assert.Equal(t, "api", got["service"])
	assert.Equal(t, map[string]interface{}{"origin": "ci"}, got["nested"])
	assert.Equal(t, []interface{}{"deploy.finished", float64(1)}, got["list"])
	assert.Equal(t, true, got["fixed"])
}
