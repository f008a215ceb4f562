package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventhub_events_ingested_total",
		Help: "Total number of events accepted by the ingress API.",
	})

	EventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventhub_events_consumed_total",
		Help: "Total number of events delivered to the consumer loop.",
	})

	StreamMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventhub_stream_malformed_total",
		Help: "Total number of stream messages skipped as malformed.",
	})

	StreamRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventhub_stream_retries_total",
		Help: "Total number of consumer loop retries after transport errors.",
	})

	RulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_rules_fired_total",
		Help: "Total number of rule firings, labelled by rule name.",
	}, []string{"rule"})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_actions_executed_total",
		Help: "Total number of actions executed, labelled by type and status.",
	}, []string{"action_type", "status"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventhub_live_clients",
		Help: "Number of currently connected live feed subscribers.",
	})
)
