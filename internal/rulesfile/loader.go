package rulesfile

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"eventhub/internal/models"
)

// RuleUpserter writes seeded rules into the durable store.
type RuleUpserter interface {
	UpsertByName(ctx context.Context, rule models.Rule) (models.Rule, bool, error)
}

// Loader seeds rules from a static YAML file into the store and keeps them
// in sync when the file changes. Rules created via the CRUD API are left
// untouched; the file only owns the rules it names.
type Loader struct {
	path  string
	store RuleUpserter

	// reload is invoked after every successful sync (rule cache refresh).
	reload func()

	mu    sync.RWMutex
	count int
}

// NewLoader creates a Loader. reload may be nil.
func NewLoader(path string, store RuleUpserter, reload func()) *Loader {
	if reload == nil {
		reload = func() {}
	}
	return &Loader{path: path, store: store, reload: reload}
}

// Count returns the number of entries loaded from the file on the last
// successful sync.
func (l *Loader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Sync reads the file and upserts every rule it defines, then refreshes the
// rule cache. Returns the number of entries in the file.
func (l *Loader) Sync(ctx context.Context) (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, fmt.Errorf("read rules file %s: %w", l.path, err)
	}
	ruleSet, err := Parse(data)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, rule := range ruleSet {
		_, isNew, err := l.store.UpsertByName(ctx, rule)
		if err != nil {
			return 0, fmt.Errorf("upsert rule %q: %w", rule.Name, err)
		}
		if isNew {
			created++
		}
	}

	l.mu.Lock()
	l.count = len(ruleSet)
	l.mu.Unlock()

	log.Info().
		Int("total", len(ruleSet)).
		Int("created", created).
		Str("path", l.path).
		Msg("Static rules synced")
	l.reload()
	return len(ruleSet), nil
}

// Watch starts a background goroutine that re-syncs whenever the file is
// rewritten. Call the returned stop function to clean up.
func (l *Loader) Watch(ctx context.Context) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("rules watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("rules watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Sync(ctx); err != nil {
						// Keep the previous rules on a bad edit.
						log.Warn().Err(err).Msg("Rules file reload skipped")
					}
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }, nil
}

// fileRule mirrors models.Rule with YAML field names.
type fileRule struct {
	Name            string                 `yaml:"name"`
	EventType       string                 `yaml:"event_type"`
	Source          string                 `yaml:"source"`
	Condition       map[string]interface{} `yaml:"condition"`
	Action          fileAction             `yaml:"action"`
	Enabled         *bool                  `yaml:"enabled"`
	CooldownSeconds int                    `yaml:"cooldown_seconds"`
}

type fileAction struct {
	Type      string                 `yaml:"type"`
	Message   string                 `yaml:"message"`
	EventType string                 `yaml:"event_type"`
	Source    string                 `yaml:"source"`
	Payload   map[string]interface{} `yaml:"payload"`
	URL       string                 `yaml:"url"`
	Method    string                 `yaml:"method"`
	Headers   map[string]string      `yaml:"headers"`
	Body      map[string]interface{} `yaml:"body"`
}

type fileRoot struct {
	Rules []fileRule `yaml:"rules"`
}

// Parse decodes the YAML rules file.
func Parse(data []byte) ([]models.Rule, error) {
	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	rules := make([]models.Rule, 0, len(root.Rules))
	for _, fr := range root.Rules {
		enabled := true
		if fr.Enabled != nil {
			enabled = *fr.Enabled
		}
		rules = append(rules, models.Rule{
			Name:            fr.Name,
			EventType:       fr.EventType,
			Source:          fr.Source,
			Condition:       fr.Condition,
			Enabled:         enabled,
			CooldownSeconds: fr.CooldownSeconds,
			Action: models.Action{
				Type:      models.ActionType(fr.Action.Type),
				Message:   fr.Action.Message,
				EventType: fr.Action.EventType,
				Source:    fr.Action.Source,
				Payload:   fr.Action.Payload,
				URL:       fr.Action.URL,
				Method:    fr.Action.Method,
				Headers:   fr.Action.Headers,
				Body:      fr.Action.Body,
			},
		})
	}
	return rules, nil
}
