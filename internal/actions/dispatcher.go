package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"eventhub/internal/metrics"
	"eventhub/internal/models"
	"eventhub/internal/rules"
)

// Emitter persists and publishes events produced by emit actions, exactly
// like the ingress API does.
type Emitter interface {
	Submit(ctx context.Context, eventType, source string, payload map[string]interface{}) (models.Event, error)
}

// Recorder writes rule execution audit rows.
type Recorder interface {
	Record(ctx context.Context, exec models.RuleExecution) error
}

// PipelineTracker is the external pipeline-state collaborator.
type PipelineTracker interface {
	Track(ctx context.Context, event models.Event) (map[string]interface{}, error)
}

// ResumePusher is the external push-integration collaborator.
type ResumePusher interface {
	Push(ctx context.Context, event models.Event) (map[string]interface{}, error)
}

// Dispatcher executes one rule's action and records the outcome. Fire never
// returns an error and never panics: every failure ends up as a
// success=false audit row, so a misbehaving action cannot reach back into
// the rules engine or the consumer loop.
type Dispatcher struct {
	emitter  Emitter
	recorder Recorder
	tracker  PipelineTracker
	pusher   ResumePusher
	client   *http.Client
}

// NewDispatcher creates a Dispatcher. tracker and pusher may be nil; the
// corresponding action types then fail with a recorded configuration error.
func NewDispatcher(emitter Emitter, recorder Recorder, tracker PipelineTracker, pusher ResumePusher) *Dispatcher {
	return &Dispatcher{
		emitter:  emitter,
		recorder: recorder,
		tracker:  tracker,
		pusher:   pusher,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Fire executes the rule's action against the event and writes exactly one
// RuleExecution row.
func (d *Dispatcher) Fire(rule models.Rule, event models.Event) {
	ctx := context.Background()

	result, err := d.run(ctx, rule, event)
	if result == nil {
		result = map[string]interface{}{}
	}
	success := err == nil
	status := "success"
	if err != nil {
		status = "error"
		result["error"] = err.Error()
		log.Warn().
			Err(err).
			Str("rule", rule.Name).
			Str("action_type", string(rule.Action.Type)).
			Msg("Action failed")
	}
	metrics.ActionsExecuted.WithLabelValues(string(rule.Action.Type), status).Inc()

	exec := models.RuleExecution{
		ID:           uuid.New().String(),
		RuleID:       rule.ID,
		EventType:    event.EventType,
		EventPayload: event.Payload,
		ActionResult: result,
		Success:      success,
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.recorder.Record(ctx, exec); err != nil {
		log.Error().Err(err).Str("rule", rule.Name).Msg("Failed to record rule execution")
	}
}

// run guards execute against panics so a buggy action cannot kill the
// process.
func (d *Dispatcher) run(ctx context.Context, rule models.Rule, event models.Event) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return d.execute(ctx, rule, event)
}

func (d *Dispatcher) execute(ctx context.Context, rule models.Rule, event models.Event) (map[string]interface{}, error) {
	action := rule.Action
	switch action.Type {
	case models.ActionLog:
		return d.executeLog(rule, event)
	case models.ActionEmit:
		return d.executeEmit(ctx, rule, event)
	case models.ActionWebhook:
		return d.executeWebhook(ctx, rule, event)
	case models.ActionPipelineTrack:
		return d.executePipelineTrack(ctx, event)
	case models.ActionResumePush:
		return d.executeResumePush(ctx, event)
	default:
		return nil, fmt.Errorf("unknown action type %q", action.Type)
	}
}

func (d *Dispatcher) executeLog(rule models.Rule, event models.Event) (map[string]interface{}, error) {
	message := rules.Interpolate(rule.Action.Message, event)
	log.Info().
		Str("rule", rule.Name).
		Str("event_type", event.EventType).
		Msg(message)
	return map[string]interface{}{"message": message}, nil
}

func (d *Dispatcher) executeEmit(ctx context.Context, rule models.Rule, event models.Event) (map[string]interface{}, error) {
	action := rule.Action
	eventType := rules.Interpolate(action.EventType, event)
	source := rules.Interpolate(action.Source, event)
	if source == "" {
		source = "rule:" + rule.Name
	}
	payload := rules.InterpolateMap(action.Payload, event)

	// No cycle detection: an emitted event may itself match further rules.
	emitted, err := d.emitter.Submit(ctx, eventType, source, payload)
	if err != nil {
		return map[string]interface{}{"event_type": eventType}, err
	}
	return map[string]interface{}{
		"event_id":   emitted.ID,
		"event_type": emitted.EventType,
		"source":     emitted.Source,
	}, nil
}

func (d *Dispatcher) executeWebhook(ctx context.Context, rule models.Rule, event models.Event) (map[string]interface{}, error) {
	action := rule.Action
	url := rules.Interpolate(action.URL, event)
	method := action.Method
	if method == "" {
		method = http.MethodPost
	}

	body := rules.InterpolateMap(action.Body, event)
	if body == nil {
		body = map[string]interface{}{}
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return map[string]interface{}{"url": url}, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyJSON))
	if err != nil {
		return map[string]interface{}{"url": url}, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range action.Headers {
		req.Header.Set(k, rules.Interpolate(v, event))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return map[string]interface{}{"url": url, "method": method}, err
	}
	defer resp.Body.Close()

	result := map[string]interface{}{
		"url":         url,
		"method":      method,
		"status_code": resp.StatusCode,
	}
	// A 4xx/5xx marks the firing failed but is never retried.
	if resp.StatusCode >= 400 {
		return result, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return result, nil
}

func (d *Dispatcher) executePipelineTrack(ctx context.Context, event models.Event) (map[string]interface{}, error) {
	if d.tracker == nil {
		return nil, fmt.Errorf("no pipeline tracker configured")
	}
	summary, err := d.tracker.Track(ctx, event)
	if err != nil {
		return summary, err
	}
	return map[string]interface{}{
		"forwarded_event_type": event.EventType,
		"summary":              summary,
	}, nil
}

func (d *Dispatcher) executeResumePush(ctx context.Context, event models.Event) (map[string]interface{}, error) {
	if d.pusher == nil {
		return nil, fmt.Errorf("no resume pusher configured")
	}
	summary, err := d.pusher.Push(ctx, event)
	if err != nil {
		return summary, err
	}
	return map[string]interface{}{
		"forwarded_event_type": event.EventType,
		"summary":              summary,
	}, nil
}
