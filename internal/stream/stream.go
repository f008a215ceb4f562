package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"eventhub/internal/metrics"
	"eventhub/internal/models"
)

const (
	readBatchSize = 10
	readBlock     = 1 * time.Second
	retryBackoff  = 2 * time.Second
)

// Stream wraps a Redis stream with single-consumer-group semantics. Delivery
// is at least once: a crash between processing and ack causes redelivery.
type Stream struct {
	rdb      *redis.Client
	key      string
	group    string
	consumer string
	maxLen   int64
}

// New creates a Stream over the given Redis client.
func New(rdb *redis.Client, key, group, consumer string, maxLen int64) *Stream {
	return &Stream{
		rdb:      rdb,
		key:      key,
		group:    group,
		consumer: consumer,
		maxLen:   maxLen,
	}
}

// EnsureGroup creates the consumer group, creating the stream if needed.
// Idempotent: an already-existing group is not an error.
func (s *Stream) EnsureGroup(ctx context.Context) error {
	err := s.rdb.XGroupCreateMkStream(ctx, s.key, s.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create consumer group %s: %w", s.group, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

// Publish appends the event to the stream, trimming to roughly maxLen.
// Returns the stream message id.
func (s *Stream) Publish(ctx context.Context, event models.Event) (string, error) {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return "", err
	}
	id, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.EventType,
			"source":     event.Source,
			"payload":    string(payloadJSON),
			"created_at": event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish event %d: %w", event.ID, err)
	}
	return id, nil
}

// Trim bounds the stream length. The trim is approximate; the store remains
// the durable record.
func (s *Stream) Trim(ctx context.Context) error {
	return s.rdb.XTrimMaxLenApprox(ctx, s.key, s.maxLen, 0).Err()
}

// Ping reports transport liveness.
func (s *Stream) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Consume reads batches for the consumer group and invokes fn per message,
// acknowledging after fn returns. Malformed messages are logged and skipped
// without ack. Transport errors are retried with a fixed backoff. The loop
// exits when ctx is cancelled.
func (s *Stream) Consume(ctx context.Context, fn func(models.Event)) {
	for {
		if ctx.Err() != nil {
			return
		}
		streams, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{s.key, ">"},
			Count:    readBatchSize,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // block timeout, nothing new
			}
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			metrics.StreamRetries.Inc()
			log.Warn().Err(err).Dur("backoff", retryBackoff).Msg("Stream read failed, retrying")
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, str := range streams {
			for _, msg := range str.Messages {
				event, err := eventFromValues(msg.Values)
				if err != nil {
					// Not acked: it will be redelivered and skipped again.
					metrics.StreamMalformed.Inc()
					log.Error().Err(err).Str("message_id", msg.ID).Msg("Skipping malformed stream message")
					continue
				}
				fn(event)
				if err := s.rdb.XAck(ctx, s.key, s.group, msg.ID).Err(); err != nil {
					log.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to ack stream message")
				}
			}
		}
	}
}

// eventFromValues rebuilds an Event from the stream wire fields.
func eventFromValues(values map[string]interface{}) (models.Event, error) {
	event := models.Event{Payload: map[string]interface{}{}}

	idStr, ok := values["event_id"].(string)
	if !ok {
		return models.Event{}, errors.New("missing event_id")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return models.Event{}, fmt.Errorf("bad event_id %q: %w", idStr, err)
	}
	event.ID = id

	if event.EventType, ok = values["event_type"].(string); !ok || event.EventType == "" {
		return models.Event{}, errors.New("missing event_type")
	}
	if event.Source, ok = values["source"].(string); !ok || event.Source == "" {
		return models.Event{}, errors.New("missing source")
	}

	if payloadStr, ok := values["payload"].(string); ok && payloadStr != "" {
		if err := json.Unmarshal([]byte(payloadStr), &event.Payload); err != nil {
			return models.Event{}, fmt.Errorf("bad payload: %w", err)
		}
	}
	if createdStr, ok := values["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, createdStr); err == nil {
			event.CreatedAt = t
		}
	}
	return event, nil
}
