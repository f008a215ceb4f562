package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventhub/internal/models"
)

// RuleServiceProvider defines the interface for rule management.
type RuleServiceProvider interface {
	Create(ctx context.Context, rule models.Rule) (models.Rule, error)
	GetAll(ctx context.Context) ([]models.Rule, error)
	GetByID(ctx context.Context, id string) (models.Rule, error)
	Update(ctx context.Context, id string, rule models.Rule) (models.Rule, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (models.Rule, error)
	ListEnabled(ctx context.Context) ([]models.Rule, error)
	UpsertByName(ctx context.Context, rule models.Rule) (models.Rule, bool, error)
}

// RuleService provides business logic for rule management. Every mutation
// invokes the onMutate hook so the in-memory rule cache tracks the store.
type RuleService struct {
	db       *sql.DB
	onMutate func()
}

// NewRuleService creates a new RuleService.
func NewRuleService(db *sql.DB) *RuleService {
	return &RuleService{db: db, onMutate: func() {}}
}

// OnMutate registers a hook called after every successful mutation.
func (s *RuleService) OnMutate(fn func()) {
	s.onMutate = fn
}

func validateRule(rule models.Rule) error {
	if rule.Name == "" {
		return models.NewValidationError("name must not be empty")
	}
	if rule.EventType == "" {
		return models.NewValidationError("event_type must not be empty")
	}
	if rule.Action.Type == "" {
		return models.NewValidationError("action.type must not be empty")
	}
	if rule.CooldownSeconds < 0 {
		return models.NewValidationError("cooldown_seconds must not be negative")
	}
	return nil
}

// Create inserts a new rule. Fails with ErrConflict if the name is taken.
func (s *RuleService) Create(ctx context.Context, rule models.Rule) (models.Rule, error) {
	if err := validateRule(rule); err != nil {
		return models.Rule{}, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM rules WHERE name = ?)", rule.Name).Scan(&exists); err != nil {
		return models.Rule{}, err
	}
	if exists {
		return models.Rule{}, fmt.Errorf("rule name %q already exists: %w", rule.Name, models.ErrConflict)
	}

	rule.ID = uuid.New().String()
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if err := s.insert(ctx, rule); err != nil {
		return models.Rule{}, err
	}
	s.onMutate()
	return s.GetByID(ctx, rule.ID)
}

func (s *RuleService) insert(ctx context.Context, rule models.Rule) error {
	conditionJSON, actionJSON, err := marshalRule(rule)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules (id, name, event_type, source, condition_json, action_json, enabled, cooldown_seconds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.EventType, rule.Source, conditionJSON, actionJSON,
		rule.Enabled, rule.CooldownSeconds, rule.CreatedAt, rule.UpdatedAt)
	return err
}

// GetAll retrieves all rules, newest first.
func (s *RuleService) GetAll(ctx context.Context) ([]models.Rule, error) {
	rows, err := s.db.QueryContext(ctx, selectRules+" ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// GetByID retrieves a single rule. Fails with ErrNotFound for unknown ids.
func (s *RuleService) GetByID(ctx context.Context, id string) (models.Rule, error) {
	row := s.db.QueryRowContext(ctx, selectRules+" WHERE id = ?", id)
	return scanRule(row)
}

// Update replaces an existing rule's definition.
func (s *RuleService) Update(ctx context.Context, id string, rule models.Rule) (models.Rule, error) {
	if err := validateRule(rule); err != nil {
		return models.Rule{}, err
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Rule{}, err
	}

	// Renaming onto another rule's name is a conflict.
	if rule.Name != existing.Name {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM rules WHERE name = ? AND id != ?)", rule.Name, id).Scan(&exists); err != nil {
			return models.Rule{}, err
		}
		if exists {
			return models.Rule{}, fmt.Errorf("rule name %q already exists: %w", rule.Name, models.ErrConflict)
		}
	}

	conditionJSON, actionJSON, err := marshalRule(rule)
	if err != nil {
		return models.Rule{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE rules
		SET name = ?, event_type = ?, source = ?, condition_json = ?, action_json = ?, enabled = ?, cooldown_seconds = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name, rule.EventType, rule.Source, conditionJSON, actionJSON,
		rule.Enabled, rule.CooldownSeconds, time.Now().UTC(), id)
	if err != nil {
		return models.Rule{}, err
	}
	s.onMutate()
	return s.GetByID(ctx, id)
}

// Delete removes a rule. Its execution history is kept.
func (s *RuleService) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, models.ErrNotFound)
	}
	s.onMutate()
	return nil
}

// Toggle flips a rule's enabled flag without touching its definition.
func (s *RuleService) Toggle(ctx context.Context, id string) (models.Rule, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE rules SET enabled = NOT enabled, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return models.Rule{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Rule{}, err
	}
	if affected == 0 {
		return models.Rule{}, fmt.Errorf("rule %s: %w", id, models.ErrNotFound)
	}
	s.onMutate()
	return s.GetByID(ctx, id)
}

// ListEnabled retrieves all enabled rules in creation order. This is the
// rule cache's load path.
func (s *RuleService) ListEnabled(ctx context.Context) ([]models.Rule, error) {
	rows, err := s.db.QueryContext(ctx, selectRules+" WHERE enabled = TRUE ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// UpsertByName creates the rule or updates the existing rule with the same
// name. Used when seeding from the static rules file. The second return
// reports whether a new rule was created.
func (s *RuleService) UpsertByName(ctx context.Context, rule models.Rule) (models.Rule, bool, error) {
	if err := validateRule(rule); err != nil {
		return models.Rule{}, false, err
	}

	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM rules WHERE name = ?", rule.Name).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		created, err := s.Create(ctx, rule)
		return created, true, err
	case err != nil:
		return models.Rule{}, false, err
	default:
		updated, err := s.Update(ctx, id, rule)
		return updated, false, err
	}
}

const selectRules = "SELECT id, name, event_type, source, condition_json, action_json, enabled, cooldown_seconds, created_at, updated_at FROM rules"

func marshalRule(rule models.Rule) (conditionJSON, actionJSON string, err error) {
	condition := rule.Condition
	if condition == nil {
		condition = map[string]interface{}{}
	}
	cb, err := json.Marshal(condition)
	if err != nil {
		return "", "", err
	}
	ab, err := json.Marshal(rule.Action)
	if err != nil {
		return "", "", err
	}
	return string(cb), string(ab), nil
}

func scanRules(rows *sql.Rows) ([]models.Rule, error) {
	var rules []models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(scanner interface{ Scan(...interface{}) error }) (models.Rule, error) {
	var rule models.Rule
	var conditionJSON, actionJSON string
	err := scanner.Scan(
		&rule.ID,
		&rule.Name,
		&rule.EventType,
		&rule.Source,
		&conditionJSON,
		&actionJSON,
		&rule.Enabled,
		&rule.CooldownSeconds,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Rule{}, models.ErrNotFound
		}
		return models.Rule{}, err
	}
	if err := json.Unmarshal([]byte(conditionJSON), &rule.Condition); err != nil {
		rule.Condition = map[string]interface{}{}
	}
	if err := json.Unmarshal([]byte(actionJSON), &rule.Action); err != nil {
		return models.Rule{}, fmt.Errorf("rule %s has malformed action: %w", rule.ID, err)
	}
	return rule, nil
}
