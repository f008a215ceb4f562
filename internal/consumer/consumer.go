package consumer

import (
	"context"

	"github.com/rs/zerolog/log"

	"eventhub/internal/metrics"
	"eventhub/internal/models"
	"eventhub/internal/rules"
	"eventhub/internal/stream"
	"eventhub/internal/websocket"
)

// Consumer runs the single background loop that reads the stream transport,
// evaluates each event against the rules engine, fans it out to live
// subscribers and acknowledges it. It is the sole reader of the consumer
// group for this process.
type Consumer struct {
	stream *stream.Stream
	engine *rules.Engine
	hub    *websocket.Hub

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Consumer.
func New(st *stream.Stream, engine *rules.Engine, hub *websocket.Hub) *Consumer {
	return &Consumer{
		stream: st,
		engine: engine,
		hub:    hub,
		done:   make(chan struct{}),
	}
}

// Start ensures the consumer group exists and launches the loop.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.stream.EnsureGroup(ctx); err != nil {
		return err
	}
	ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		defer close(c.done)
		log.Info().Msg("Starting consumer loop")
		c.stream.Consume(ctx, c.handle)
		log.Info().Msg("Consumer loop stopped")
	}()
	return nil
}

// Stop cancels the loop and waits for the in-flight batch to finish.
// Actions already dispatched as detached goroutines are not awaited.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *Consumer) handle(event models.Event) {
	metrics.EventsConsumed.Inc()
	c.engine.Evaluate(event)
	c.hub.BroadcastEvent(event)
}
