package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"eventhub/internal/models"
)

// ExecutionServiceProvider defines the interface for the rule firing audit log.
type ExecutionServiceProvider interface {
	Record(ctx context.Context, exec models.RuleExecution) error
	ListByRule(ctx context.Context, ruleID string, limit int) ([]models.RuleExecution, error)
	ListRecent(ctx context.Context, limit int) ([]models.RuleExecution, error)
}

// ExecutionService persists and queries RuleExecution audit records.
type ExecutionService struct {
	db *sql.DB
}

// NewExecutionService creates a new ExecutionService.
func NewExecutionService(db *sql.DB) *ExecutionService {
	return &ExecutionService{db: db}
}

// Record writes one audit row for a rule firing.
func (s *ExecutionService) Record(ctx context.Context, exec models.RuleExecution) error {
	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}
	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = time.Now().UTC()
	}
	payloadJSON, err := json.Marshal(orEmpty(exec.EventPayload))
	if err != nil {
		return err
	}
	resultJSON, err := json.Marshal(orEmpty(exec.ActionResult))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rule_executions (id, rule_id, event_type, event_payload_json, action_result_json, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.RuleID, exec.EventType, string(payloadJSON), string(resultJSON), exec.Success, exec.CreatedAt)
	return err
}

// ListByRule retrieves the most recent executions of one rule.
func (s *ExecutionService) ListByRule(ctx context.Context, ruleID string, limit int) ([]models.RuleExecution, error) {
	rows, err := s.db.QueryContext(ctx,
		selectExecutions+" WHERE rule_id = ? ORDER BY created_at DESC LIMIT ?", ruleID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// ListRecent retrieves the most recent executions across all rules.
func (s *ExecutionService) ListRecent(ctx context.Context, limit int) ([]models.RuleExecution, error) {
	rows, err := s.db.QueryContext(ctx,
		selectExecutions+" ORDER BY created_at DESC LIMIT ?", clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExecutions(rows)
}

const selectExecutions = "SELECT id, rule_id, event_type, event_payload_json, action_result_json, success, created_at FROM rule_executions"

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func scanExecutions(rows *sql.Rows) ([]models.RuleExecution, error) {
	var execs []models.RuleExecution
	for rows.Next() {
		var exec models.RuleExecution
		var payloadJSON, resultJSON string
		if err := rows.Scan(&exec.ID, &exec.RuleID, &exec.EventType, &payloadJSON, &resultJSON, &exec.Success, &exec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadJSON), &exec.EventPayload); err != nil {
			exec.EventPayload = map[string]interface{}{}
		}
		if err := json.Unmarshal([]byte(resultJSON), &exec.ActionResult); err != nil {
			exec.ActionResult = map[string]interface{}{}
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}
