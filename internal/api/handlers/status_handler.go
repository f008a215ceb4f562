package handlers

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"

	"eventhub/internal/rules"
	"eventhub/internal/services"
	"eventhub/internal/stream"
)

// statusWindow bounds the "recent" event count aggregation.
const statusWindow = 24 * time.Hour

// StatusHandler serves the status summary and the detailed health endpoint.
type StatusHandler struct {
	events      services.EventServiceProvider
	engine      *rules.Engine
	staticCount func() int
	db          *sql.DB
	stream      *stream.Stream
	startedAt   time.Time
}

// NewStatusHandler creates a new StatusHandler. staticCount reports the
// number of loaded static configuration entries (may be nil).
func NewStatusHandler(events services.EventServiceProvider, engine *rules.Engine, staticCount func() int, db *sql.DB, st *stream.Stream) *StatusHandler {
	if staticCount == nil {
		staticCount = func() int { return 0 }
	}
	return &StatusHandler{
		events:      events,
		engine:      engine,
		staticCount: staticCount,
		db:          db,
		stream:      st,
		startedAt:   time.Now(),
	}
}

// GetStatus handles GET /status: recent event counts by source and by type.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-statusWindow)

	bySource, err := h.events.CountsBySource(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("Failed to aggregate events by source")
		writeError(w, http.StatusInternalServerError, "Failed to aggregate events")
		return
	}
	byType, err := h.events.CountsByType(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("Failed to aggregate events by type")
		writeError(w, http.StatusInternalServerError, "Failed to aggregate events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window_hours":     int(statusWindow.Hours()),
		"events_by_source": bySource,
		"events_by_type":   byType,
	})
}

// GetHealth handles GET /health: uptime, loaded static config entries and
// dependency liveness.
func (h *StatusHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := h.db.PingContext(r.Context()); err != nil {
		dbStatus = err.Error()
	}
	streamStatus := "ok"
	if err := h.stream.Ping(r.Context()); err != nil {
		streamStatus = err.Error()
	}

	health := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"static_rules":   h.staticCount(),
		"active_rules":   len(h.engine.Rules()),
		"database":       dbStatus,
		"stream":         streamStatus,
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		procInfo := map[string]interface{}{}
		if cpu, err := proc.CPUPercent(); err == nil {
			procInfo["cpu_percent"] = cpu
		}
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			procInfo["memory_rss_bytes"] = mem.RSS
		}
		health["process"] = procInfo
	}

	status := http.StatusOK
	if dbStatus != "ok" || streamStatus != "ok" {
		health["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
