package monitoring

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"eventhub/internal/rules"
	"eventhub/internal/stream"
)

// Maintenance runs periodic housekeeping: a safety-net rule cache reload
// (the cache is normally refreshed synchronously after CRUD mutations) and
// an explicit trim of the stream transport's retained log.
type Maintenance struct {
	cron   *cron.Cron
	engine *rules.Engine
	stream *stream.Stream
}

// NewMaintenance creates a Maintenance job on the given cron spec
// (e.g. "@hourly").
func NewMaintenance(spec string, engine *rules.Engine, st *stream.Stream) (*Maintenance, error) {
	m := &Maintenance{
		cron:   cron.New(),
		engine: engine,
		stream: st,
	}
	if _, err := m.cron.AddFunc(spec, m.run); err != nil {
		return nil, err
	}
	return m, nil
}

// Start begins the schedule.
func (m *Maintenance) Start() {
	log.Info().Msg("Starting maintenance schedule")
	m.cron.Start()
}

// Stop halts the schedule; a running job finishes first.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Maintenance schedule stopped")
}

func (m *Maintenance) run() {
	ctx := context.Background()
	if count, err := m.engine.Load(ctx); err != nil {
		log.Error().Err(err).Msg("Maintenance: rule cache reload failed")
	} else {
		log.Debug().Int("count", count).Msg("Maintenance: rule cache reloaded")
	}
	if err := m.stream.Trim(ctx); err != nil {
		log.Warn().Err(err).Msg("Maintenance: stream trim failed")
	}
}
