package rules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/models"
)

type fakeLister struct {
	rules []models.Rule
}

func (f *fakeLister) ListEnabled(_ context.Context) ([]models.Rule, error) {
	return f.rules, nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	fired []string
}

func (f *fakeDispatcher) Fire(rule models.Rule, _ models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, rule.Name)
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fired)
}

func newTestEngine(t *testing.T, rules ...models.Rule) (*Engine, *fakeDispatcher) {
	t.Helper()
	d := &fakeDispatcher{}
	e := NewEngine(&fakeLister{rules: rules}, d)
	n, err := e.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(rules), n)
	return e, d
}

func waitForFires(t *testing.T, d *fakeDispatcher, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return d.count() == want },
		time.Second, 5*time.Millisecond)
}

func deployEvent(eventType string) models.Event {
	return models.Event{ID: 1, EventType: eventType, Source: "ci", Payload: map[string]interface{}{}}
}

func TestEvaluateGlobMatch(t *testing.T) {
	e, d := newTestEngine(t, models.Rule{ID: "r1", Name: "notify", EventType: "deploy.*", Enabled: true})

	e.Evaluate(deployEvent("deploy.started"))
	waitForFires(t, d, 1)
	e.Evaluate(deployEvent("deploy.finished"))
	waitForFires(t, d, 2)

	// Glob, not substring: rollback events do not match.
	e.Evaluate(deployEvent("rollback.started"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, d.count())
}

func TestEvaluateSourceFilter(t *testing.T) {
	e, d := newTestEngine(t, models.Rule{ID: "r1", Name: "ci-only", EventType: "*", Source: "ci", Enabled: true})

	e.Evaluate(models.Event{EventType: "deploy.finished", Source: "manual"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.count())

	e.Evaluate(models.Event{EventType: "deploy.finished", Source: "ci"})
	waitForFires(t, d, 1)
}

func TestEvaluateCondition(t *testing.T) {
	e, d := newTestEngine(t, models.Rule{
		ID:        "r1",
		Name:      "high-count",
		EventType: "*",
		Condition: map[string]interface{}{"payload.count": map[string]interface{}{"$gt": float64(5)}},
		Enabled:   true,
	})

	e.Evaluate(models.Event{EventType: "tick", Source: "ci", Payload: map[string]interface{}{"count": float64(3)}})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.count())

	e.Evaluate(models.Event{EventType: "tick", Source: "ci", Payload: map[string]interface{}{"count": float64(10)}})
	waitForFires(t, d, 1)
}

func TestEvaluateCooldown(t *testing.T) {
	e, d := newTestEngine(t, models.Rule{
		ID: "r1", Name: "throttled", EventType: "deploy.*", CooldownSeconds: 60, Enabled: true,
	})

	now := time.Now()
	e.now = func() time.Time { return now }

	e.Evaluate(deployEvent("deploy.finished"))
	waitForFires(t, d, 1)

	// 10s later: still inside the cooldown window.
	now = now.Add(10 * time.Second)
	e.Evaluate(deployEvent("deploy.finished"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.count())

	// 65s after the first fire: the window has passed.
	now = now.Add(55 * time.Second)
	e.Evaluate(deployEvent("deploy.finished"))
	waitForFires(t, d, 2)
}

func TestEvaluateMultipleRulesFireIndependently(t *testing.T) {
	e, d := newTestEngine(t,
		models.Rule{ID: "r1", Name: "first", EventType: "deploy.*", Enabled: true},
		models.Rule{ID: "r2", Name: "second", EventType: "*.finished", Enabled: true},
	)

	e.Evaluate(deployEvent("deploy.finished"))
	waitForFires(t, d, 2)
}

func TestLoadReplacesSnapshot(t *testing.T) {
	lister := &fakeLister{rules: []models.Rule{{ID: "r1", Name: "old", EventType: "*", Enabled: true}}}
	d := &fakeDispatcher{}
	e := NewEngine(lister, d)

	_, err := e.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, e.Rules(), 1)

	lister.rules = []models.Rule{
		{ID: "r2", Name: "new-a", EventType: "*", Enabled: true},
		{ID: "r3", Name: "new-b", EventType: "*", Enabled: true},
	}
	n, err := e.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, e.Rules(), 2)
	assert.Equal(t, "new-a", e.Rules()[0].Name)
}
