package models

import "time"

// ActionType tags the variant of an Action.
type ActionType string

const (
	ActionLog           ActionType = "log"
	ActionEmit          ActionType = "emit"
	ActionWebhook       ActionType = "webhook"
	ActionPipelineTrack ActionType = "pipeline_track"
	ActionResumePush    ActionType = "resume_push"
)

// Action is a tagged union: Type selects which of the remaining fields apply.
// String templates may contain {dotted.path} placeholders resolved against the
// matched event.
type Action struct {
	Type ActionType `json:"type"`

	// log
	Message string `json:"message,omitempty"`

	// emit
	EventType string                 `json:"event_type,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`

	// webhook
	URL     string                 `json:"url,omitempty"`
	Method  string                 `json:"method,omitempty"` // defaults to POST
	Headers map[string]string      `json:"headers,omitempty"`
	Body    map[string]interface{} `json:"body,omitempty"`
}

// Rule is a named policy: an event-type glob plus optional source and
// condition filters, paired with one action.
type Rule struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	EventType       string                 `json:"event_type"` // glob pattern, e.g. "deploy.*"
	Source          string                 `json:"source,omitempty"`
	Condition       map[string]interface{} `json:"condition"`
	Action          Action                 `json:"action"`
	Enabled         bool                   `json:"enabled"`
	CooldownSeconds int                    `json:"cooldown_seconds"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// RuleExecution is the immutable audit record of one action firing.
type RuleExecution struct {
	ID           string                 `json:"id"`
	RuleID       string                 `json:"rule_id"`
	EventType    string                 `json:"event_type"`
	EventPayload map[string]interface{} `json:"event_payload"`
	ActionResult map[string]interface{} `json:"action_result"`
	Success      bool                   `json:"success"`
	CreatedAt    time.Time              `json:"created_at"`
}
