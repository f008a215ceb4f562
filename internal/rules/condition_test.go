package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eventhub/internal/models"
)

func testEvent(payload map[string]interface{}) models.Event {
	return models.Event{
		ID:        1,
		EventType: "deploy.finished",
		Source:    "ci",
		Payload:   payload,
	}
}

func TestResolvePath(t *testing.T) {
	ev := testEvent(map[string]interface{}{
		"service": "api",
		"nested":  map[string]interface{}{"exit_code": float64(0)},
	})

	assert.Equal(t, "deploy.finished", resolvePath(ev, "event_type"))
	assert.Equal(t, "ci", resolvePath(ev, "source"))
	assert.Equal(t, "api", resolvePath(ev, "payload.service"))
	assert.Equal(t, float64(0), resolvePath(ev, "payload.nested.exit_code"))
	assert.Nil(t, resolvePath(ev, "payload.missing"))
	assert.Nil(t, resolvePath(ev, "payload.service.deeper"))
	assert.Nil(t, resolvePath(ev, "unknown"))
}

func TestMatchCondition(t *testing.T) {
	cases := []struct {
		name    string
		cond    map[string]interface{}
		payload map[string]interface{}
		want    bool
	}{
		{
			name:    "plain equality match",
			cond:    map[string]interface{}{"payload.service": "api"},
			payload: map[string]interface{}{"service": "api"},
			want:    true,
		},
		{
			name:    "plain equality mismatch",
			cond:    map[string]interface{}{"payload.service": "api"},
			payload: map[string]interface{}{"service": "web"},
			want:    false,
		},
		{
			name:    "numeric equality across types",
			cond:    map[string]interface{}{"payload.exit_code": 0},
			payload: map[string]interface{}{"exit_code": float64(0)},
			want:    true,
		},
		{
			name:    "gt matches",
			cond:    map[string]interface{}{"payload.count": map[string]interface{}{"$gt": float64(5)}},
			payload: map[string]interface{}{"count": float64(10)},
			want:    true,
		},
		{
			name:    "gt rejects smaller",
			cond:    map[string]interface{}{"payload.count": map[string]interface{}{"$gt": float64(5)}},
			payload: map[string]interface{}{"count": float64(3)},
			want:    false,
		},
		{
			name:    "gt rejects missing path",
			cond:    map[string]interface{}{"payload.count": map[string]interface{}{"$gt": float64(5)}},
			payload: map[string]interface{}{},
			want:    false,
		},
		{
			name:    "lt matches",
			cond:    map[string]interface{}{"payload.count": map[string]interface{}{"$lt": float64(5)}},
			payload: map[string]interface{}{"count": float64(3)},
			want:    true,
		},
		{
			name:    "ne matches",
			cond:    map[string]interface{}{"payload.status": map[string]interface{}{"$ne": "failed"}},
			payload: map[string]interface{}{"status": "passed"},
			want:    true,
		},
		{
			name:    "eq operator form",
			cond:    map[string]interface{}{"payload.status": map[string]interface{}{"$eq": "passed"}},
			payload: map[string]interface{}{"status": "passed"},
			want:    true,
		},
		{
			name:    "contains matches substring",
			cond:    map[string]interface{}{"payload.branch": map[string]interface{}{"$contains": "feature"}},
			payload: map[string]interface{}{"branch": "feature/login"},
			want:    true,
		},
		{
			name:    "not_contains rejects substring",
			cond:    map[string]interface{}{"payload.branch": map[string]interface{}{"$not_contains": "feature"}},
			payload: map[string]interface{}{"branch": "feature/login"},
			want:    false,
		},
		{
			name: "in matches member",
			cond: map[string]interface{}{
				"payload.env": map[string]interface{}{"$in": []interface{}{"staging", "prod"}},
			},
			payload: map[string]interface{}{"env": "prod"},
			want:    true,
		},
		{
			name: "in rejects non-member",
			cond: map[string]interface{}{
				"payload.env": map[string]interface{}{"$in": []interface{}{"staging", "prod"}},
			},
			payload: map[string]interface{}{"env": "dev"},
			want:    false,
		},
		{
			name: "conditions are ANDed",
			cond: map[string]interface{}{
				"payload.service": "api",
				"payload.count":   map[string]interface{}{"$gt": float64(5)},
			},
			payload: map[string]interface{}{"service": "api", "count": float64(1)},
			want:    false,
		},
		{
			name:    "event field condition",
			cond:    map[string]interface{}{"source": "ci"},
			payload: map[string]interface{}{},
			want:    true,
		},
		{
			name:    "unknown operator never matches",
			cond:    map[string]interface{}{"payload.count": map[string]interface{}{"$near": float64(5)}},
			payload: map[string]interface{}{"count": float64(5)},
			want:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := matchCondition(tc.cond, testEvent(tc.payload))
			assert.Equal(t, tc.want, got)
		})
	}
}
