package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/database"
	"eventhub/internal/models"
)

func newTestExecutionService(t *testing.T) *ExecutionService {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewExecutionService(db)
}

func TestRecordAndList(t *testing.T) {
	svc := newTestExecutionService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := svc.Record(ctx, models.RuleExecution{
			RuleID:       "rule-a",
			EventType:    "deploy.finished",
			EventPayload: map[string]interface{}{"n": float64(i)},
			ActionResult: map[string]interface{}{"message": fmt.Sprintf("fired %d", i)},
			Success:      true,
		})
		require.NoError(t, err)
	}
	err := svc.Record(ctx, models.RuleExecution{
		RuleID:       "rule-b",
		EventType:    "deploy.finished",
		ActionResult: map[string]interface{}{"error": "boom"},
		Success:      false,
	})
	require.NoError(t, err)

	byRule, err := svc.ListByRule(ctx, "rule-a", 0)
	require.NoError(t, err)
	require.Len(t, byRule, 3)
	for _, exec := range byRule {
		assert.Equal(t, "rule-a", exec.RuleID)
		assert.True(t, exec.Success)
		assert.NotEmpty(t, exec.ID)
		assert.False(t, exec.CreatedAt.IsZero())
	}

	recent, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)

	// Nil maps round-trip as empty objects.
	failed, err := svc.ListByRule(ctx, "rule-b", 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.NotNil(t, failed[0].EventPayload)
	assert.Equal(t, "boom", failed[0].ActionResult["error"])
}

func TestListByRuleLimit(t *testing.T) {
	svc := newTestExecutionService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(ctx, models.RuleExecution{
			RuleID:    "rule-a",
			EventType: "tick",
			Success:   true,
		}))
	}

	execs, err := svc.ListByRule(ctx, "rule-a", 2)
	require.NoError(t, err)
	assert.Len(t, execs, 2)
}
