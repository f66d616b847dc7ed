// Package historian moves game event records into durable storage. Service
// pops them from the Redis queue the cache publisher fills; Recorder takes them
// straight from an engine in the same process.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/cache"
	"github.com/jason-s-yu/tripeaks/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sink is durable storage for event records.
type Sink interface {
	WriteBatch(ctx context.Context, records []cache.EventRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// popTimeout bounds each BLPOP so cancellation is noticed.
const popTimeout = 3 * time.Second

// Service encapsulates the Redis + sink logic for capturing game events
// and marking games abandoned when a certain inactivity threshold is reached.
type Service struct {
	rdb        *redis.Client
	queue      string
	sink       Sink
	log        *logrus.Logger
	batchSize  int
	flushDelay time.Duration
	inactivity time.Duration
	sweepEvery time.Duration

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time

	// flushMu keeps sink writes in batch order; batchMu only guards batch.
	flushMu sync.Mutex
	batchMu sync.Mutex
	batch   []cache.EventRecord
}

// NewService builds a service. rdb may be nil when records are fed through
// Ingest instead of the queue.
func NewService(rdb *redis.Client, sink Sink, cfg *config.Config, logger *logrus.Logger) *Service {
	batchSize := cfg.Historian.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Service{
		rdb:          rdb,
		queue:        cfg.Redis.Queue,
		sink:         sink,
		log:          logger,
		batchSize:    batchSize,
		flushDelay:   cfg.Historian.FlushDelay(),
		inactivity:   cfg.Historian.InactivityTimeout(),
		sweepEvery:   time.Minute,
		lastActivity: make(map[uuid.UUID]time.Time),
		batch:        make([]cache.EventRecord, 0, batchSize),
	}
}

// Run starts the two main loops and blocks until ctx is cancelled:
//  1. A loop that reads from the Redis queue, accumulates records in a batch, and flushes them.
//  2. A periodic check for inactivity to mark games as abandoned.
//
// Whatever is still batched is flushed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	s.log.WithField("queue", s.queue).Info("tripeaks-historian service started")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(ctx) })
	g.Go(func() error { return s.flushLoop(ctx) })
	g.Go(func() error { return s.inactivityLoop(ctx) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := s.Flush(flushCtx); ferr != nil {
		s.log.WithError(ferr).Error("final flush failed")
	}

	s.log.Info("tripeaks-historian shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLoop continuously uses BLPop to retrieve records from the Redis queue.
func (s *Service) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.rdb.BLPop(ctx, popTimeout, s.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.WithError(err).Error("BLPop failed")
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		// res[0] is the queue name and res[1] the payload.
		var rec cache.EventRecord
		if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
			s.log.WithError(err).Warn("invalid event record")
			continue
		}
		s.Ingest(ctx, rec)
	}
}

func (s *Service) flushLoop(ctx context.Context) error {
	if s.flushDelay <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.log.WithError(err).Error("flush failed")
			}
		}
	}
}

// inactivityLoop periodically marks games idle longer than the threshold as abandoned.
func (s *Service) inactivityLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.SweepInactive(ctx, now)
		}
	}
}

// Ingest records activity for rec's game and batches it, flushing when the
// batch is full. Terminal records end activity tracking for their game.
func (s *Service) Ingest(ctx context.Context, rec cache.EventRecord) {
	s.activityMu.Lock()
	if rec.Terminal() {
		delete(s.lastActivity, rec.GameID)
	} else {
		s.lastActivity[rec.GameID] = time.Now()
	}
	s.activityMu.Unlock()

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()

	if full {
		if err := s.Flush(ctx); err != nil {
			s.log.WithError(err).Error("flush failed")
		}
	}
}

// Flush writes the current batch to the sink in one call. Ingest keeps
// batching while the write runs. On failure the records are put back at the
// front of the batch.
func (s *Service) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.batchMu.Lock()
	pending := s.batch
	s.batch = make([]cache.EventRecord, 0, s.batchSize)
	s.batchMu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if err := s.sink.WriteBatch(ctx, pending); err != nil {
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return err
	}
	s.log.WithField("count", len(pending)).Debug("flushed events")
	return nil
}

// Pending returns the number of batched records not yet handed to the sink.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// SweepInactive marks every game whose last record is older than the
// inactivity threshold at now as abandoned. Pending records are flushed
// first so the game row exists.
func (s *Service) SweepInactive(ctx context.Context, now time.Time) {
	var stale []uuid.UUID
	s.activityMu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	if len(stale) == 0 {
		return
	}
	if err := s.Flush(ctx); err != nil {
		s.log.WithError(err).Error("flush before sweep failed")
	}
	for _, id := range stale {
		if err := s.sink.MarkAbandoned(ctx, id); err != nil {
			s.log.WithError(err).WithField("game_id", id).Error("failed to mark game abandoned")
			continue
		}
		s.log.WithField("game_id", id).Info("marked game as abandoned due to inactivity")
	}
}
