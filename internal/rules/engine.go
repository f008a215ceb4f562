package rules

import (
	"context"
	"path"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"eventhub/internal/metrics"
	"eventhub/internal/models"
)

// RuleLister loads the enabled rule set from the durable store.
type RuleLister interface {
	ListEnabled(ctx context.Context) ([]models.Rule, error)
}

// Dispatcher executes a matched rule's action. Implementations own their
// error handling; Fire never reports back to the engine.
type Dispatcher interface {
	Fire(rule models.Rule, event models.Event)
}

// Engine matches events against an in-memory snapshot of enabled rules.
//
// The snapshot is replaced atomically on reload, never mutated in place, so
// Evaluate always sees a consistent rule list. The cooldown map is touched
// only by the single consumer goroutine that calls Evaluate and therefore
// needs no lock.
type Engine struct {
	store      RuleLister
	dispatcher Dispatcher

	snapshot  atomic.Pointer[[]models.Rule]
	lastFired map[string]time.Time

	// now is swappable in tests.
	now func() time.Time
}

// NewEngine creates an Engine with an empty rule snapshot. Call Load before
// feeding events.
func NewEngine(store RuleLister, dispatcher Dispatcher) *Engine {
	e := &Engine{
		store:      store,
		dispatcher: dispatcher,
		lastFired:  make(map[string]time.Time),
		now:        time.Now,
	}
	empty := []models.Rule{}
	e.snapshot.Store(&empty)
	return e
}

// Load replaces the rule snapshot with all enabled rules from the store.
// Full-replace semantics: no incremental diffing.
func (e *Engine) Load(ctx context.Context) (int, error) {
	rules, err := e.store.ListEnabled(ctx)
	if err != nil {
		return 0, err
	}
	e.snapshot.Store(&rules)
	log.Info().Int("count", len(rules)).Msg("Rule cache reloaded")
	return len(rules), nil
}

// Rules returns the current snapshot.
func (e *Engine) Rules() []models.Rule {
	return *e.snapshot.Load()
}

// Evaluate matches the event against every cached rule and fires matches.
// Firing is fire-and-forget: each dispatch runs in its own goroutine so a
// slow action cannot stall evaluation of the next rule or the next event.
func (e *Engine) Evaluate(event models.Event) {
	for _, rule := range *e.snapshot.Load() {
		if !e.matches(rule, event) {
			continue
		}
		if rule.CooldownSeconds > 0 {
			cooldown := time.Duration(rule.CooldownSeconds) * time.Second
			if last, ok := e.lastFired[rule.ID]; ok && e.now().Sub(last) < cooldown {
				log.Debug().
					Str("rule", rule.Name).
					Str("event_type", event.EventType).
					Msg("Cooldown active, skipping fire")
				continue
			}
		}
		// Record the firing time before dispatching so a slow action cannot
		// open a window for a burst of re-fires.
		e.lastFired[rule.ID] = e.now()
		metrics.RulesFired.WithLabelValues(rule.Name).Inc()
		log.Info().
			Str("rule", rule.Name).
			Str("event_type", event.EventType).
			Int64("event_id", event.ID).
			Msg("Rule matched")
		go e.dispatcher.Fire(rule, event)
	}
}

// matches applies the glob, source and condition gates in order,
// short-circuiting on the first failure.
func (e *Engine) matches(rule models.Rule, event models.Event) bool {
	ok, err := path.Match(rule.EventType, event.EventType)
	if err != nil || !ok {
		return false
	}
	if rule.Source != "" && rule.Source != event.Source {
		return false
	}
	if len(rule.Condition) > 0 && !matchCondition(rule.Condition, event) {
		return false
	}
	return true
}
