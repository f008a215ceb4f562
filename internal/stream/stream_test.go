package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFromValues(t *testing.T) {
	event, err := eventFromValues(map[string]interface{}{
		"event_id":   "42",
		"event_type": "deploy.finished",
		"source":     "ci",
		"payload":    `{"service":"api","exit_code":0}`,
		"created_at": "2026-08-25T10:00:00.5Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), event.ID)
	assert.Equal(t, "deploy.finished", event.EventType)
	assert.Equal(t, "ci", event.Source)
	assert.Equal(t, "api", event.Payload["service"])
	assert.Equal(t, float64(0), event.Payload["exit_code"])
	assert.Equal(t, 2026, event.CreatedAt.Year())
}

func TestEventFromValuesEmptyPayload(t *testing.T) {
	event, err := eventFromValues(map[string]interface{}{
		"event_id":   "1",
		"event_type": "tick",
		"source":     "timer",
		"payload":    "{}",
	})
	require.NoError(t, err)
	assert.NotNil(t, event.Payload)
	assert.Empty(t, event.Payload)
}

func TestEventFromValuesMalformed(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]interface{}
	}{
		{"missing event_id", map[string]interface{}{"event_type": "a", "source": "b"}},
		{"bad event_id", map[string]interface{}{"event_id": "abc", "event_type": "a", "source": "b"}},
		{"missing event_type", map[string]interface{}{"event_id": "1", "source": "b"}},
		{"empty source", map[string]interface{}{"event_id": "1", "event_type": "a", "source": ""}},
		{"bad payload", map[string]interface{}{"event_id": "1", "event_type": "a", "source": "b", "payload": "[1,2]"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eventFromValues(tc.values)
			assert.Error(t, err)
		})
	}
}
