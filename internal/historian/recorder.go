package historian

import (
	"context"

	"github.com/jason-s-yu/tripeaks/internal/cache"
	"github.com/jason-s-yu/tripeaks/internal/config"
	"github.com/jason-s-yu/tripeaks/internal/game"
	"github.com/sirupsen/logrus"
)

// Recorder is an engine listener that writes events to a sink without Redis.
// Records are batched and flushed when a game ends, the batch fills, or Close
// is called.
type Recorder struct {
	svc *Service
}

// NewRecorder batches into sink using the historian batch size from cfg.
func NewRecorder(sink Sink, cfg *config.Config, logger *logrus.Logger) *Recorder {
	return &Recorder{svc: NewService(nil, sink, cfg, logger)}
}

// OnEvent records ev.
func (r *Recorder) OnEvent(ev game.GameEvent) {
	ctx := context.Background()
	r.svc.Ingest(ctx, cache.NewRecord(ev))
	if ev.Type.Terminal() {
		if err := r.svc.Flush(ctx); err != nil {
			r.svc.log.WithError(err).WithField("game_id", ev.GameID).Error("failed to record finished game")
		}
	}
}

// Close flushes anything still batched.
func (r *Recorder) Close(ctx context.Context) error {
	return r.svc.Flush(ctx)
}
