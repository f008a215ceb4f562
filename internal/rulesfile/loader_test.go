package rulesfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/models"
)

const sampleFile = `
rules:
  - name: notify-deploys
    event_type: "deploy.*"
    source: ci
    condition:
      payload.exit_code:
        $eq: 0
    action:
      type: log
      message: "{source} deployed {payload.service}"
    cooldown_seconds: 60
  - name: forward-alerts
    event_type: "alert.fired"
    enabled: false
    action:
      type: webhook
      url: https://hooks.example.com/alerts
      headers:
        X-Origin: "{source}"
      body:
        event: "{event_type}"
`

func TestParse(t *testing.T) {
	rules, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	first := rules[0]
	assert.Equal(t, "notify-deploys", first.Name)
	assert.Equal(t, "deploy.*", first.EventType)
	assert.Equal(t, "ci", first.Source)
	assert.True(t, first.Enabled)
	assert.Equal(t, 60, first.CooldownSeconds)
	assert.Equal(t, models.ActionLog, first.Action.Type)
	assert.Equal(t, "{source} deployed {payload.service}", first.Action.Message)
	cond, ok := first.Condition["payload.exit_code"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0, cond["$eq"])

	second := rules[1]
	assert.False(t, second.Enabled)
	assert.Equal(t, models.ActionWebhook, second.Action.Type)
	assert.Equal(t, "https://hooks.example.com/alerts", second.Action.URL)
	assert.Equal(t, "{source}", second.Action.Headers["X-Origin"])
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("rules: [unclosed"))
	assert.Error(t, err)
}

type fakeUpserter struct {
	seen  []models.Rule
	known map[string]bool
}

func (f *fakeUpserter) UpsertByName(_ context.Context, rule models.Rule) (models.Rule, bool, error) {
	f.seen = append(f.seen, rule)
	if f.known == nil {
		f.known = map[string]bool{}
	}
	isNew := !f.known[rule.Name]
	f.known[rule.Name] = true
	rule.ID = "id-" + rule.Name
	return rule, isNew, nil
}

func TestSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o644))

	store := &fakeUpserter{}
	reloads := 0
	loader := NewLoader(path, store, func() { reloads++ })

	n, err := loader.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, loader.Count())
	assert.Equal(t, 1, reloads)
	require.Len(t, store.seen, 2)
	assert.Equal(t, "notify-deploys", store.seen[0].Name)

	// A second sync upserts the same rules again without creating new ones.
	_, err = loader.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reloads)
}

func TestSyncMissingFile(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"), &fakeUpserter{}, nil)
	_, err := loader.Sync(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, loader.Count())
}
