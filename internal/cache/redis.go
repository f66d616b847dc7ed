// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/config"
	"github.com/jason-s-yu/tripeaks/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// publishTimeout bounds a single RPush.
const publishTimeout = 2 * time.Second

// EventRecord holds the minimal info needed by the historian microservice.
type EventRecord struct {
	GameID    uuid.UUID       `json:"game_id"`
	Seq       int             `json:"seq"`
	EventType string          `json:"event_type"`
	Value     *int            `json:"value,omitempty"`
	Payload   json.RawMessage `json:"payload"` // the full event as emitted
	Timestamp int64           `json:"timestamp"`
}

// Terminal reports whether the record ends its game.
func (r EventRecord) Terminal() bool {
	return game.GameEventType(r.EventType).Terminal()
}

// NewRecord converts an engine event, stamping it with the current time.
func NewRecord(ev game.GameEvent) EventRecord {
	return EventRecord{
		GameID:    ev.GameID,
		Seq:       ev.Seq,
		EventType: string(ev.Type),
		Value:     ev.Value,
		Payload:   game.EventBytes(ev),
		Timestamp: time.Now().UnixMilli(),
	}
}

// ConnectRedis builds a client from cfg and checks it with a PING.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// PublishEvent serializes the given record to JSON, then pushes it to the Redis queue.
func PublishEvent(ctx context.Context, rdb redis.Cmdable, queue string, record EventRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal EventRecord: %w", err)
	}

	if err := rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// Publisher is an engine listener that forwards every event to a Redis list.
// Pushes happen on one background goroutine so the engine never waits on the
// network, and records keep their emission order.
type Publisher struct {
	rdb    redis.Cmdable
	queue  string
	log    *logrus.Logger
	events chan EventRecord
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPublisher starts the push goroutine. Call Close to drain and stop it.
func NewPublisher(rdb redis.Cmdable, queue string, logger *logrus.Logger) *Publisher {
	if queue == "" {
		queue = config.DefaultQueueName
	}
	p := &Publisher{
		rdb:    rdb,
		queue:  queue,
		log:    logger,
		events: make(chan EventRecord, 256),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

func (p *Publisher) loop() {
	defer p.wg.Done()
	for rec := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := PublishEvent(ctx, p.rdb, p.queue, rec); err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{
				"game_id": rec.GameID,
				"seq":     rec.Seq,
			}).Error("error publishing game event")
		}
		cancel()
	}
}

// OnEvent queues ev for publishing. When the queue is full the event is
// dropped and a warning logged.
func (p *Publisher) OnEvent(ev game.GameEvent) {
	select {
	case p.events <- NewRecord(ev):
	default:
		p.log.WithFields(logrus.Fields{
			"game_id": ev.GameID,
			"seq":     ev.Seq,
			"event":   ev.Type,
		}).Warn("publish queue full, dropping game event")
	}
}

// Close stops accepting events and waits for queued pushes to finish.
// OnEvent must not be called after Close.
func (p *Publisher) Close() {
	p.once.Do(func() { close(p.events) })
	p.wg.Wait()
}
