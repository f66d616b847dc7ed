// internal/middleware/logging.go

package middleware

import (
	"time"

	"github.com/jason-s-yu/tripeaks/internal/game"
	"github.com/sirupsen/logrus"
)

// LogEvents is a listener middleware that logs every event delivered to next
// using Logrus. Logs the type, sequence number, and how long next took.
func LogEvents(logger *logrus.Logger, name string, next game.Listener) game.Listener {
	return game.ListenerFunc(func(ev game.GameEvent) {
		start := time.Now()

		next.OnEvent(ev)

		duration := time.Since(start)
		entry := logger.WithFields(logrus.Fields{
			"listener": name,
			"game_id":  ev.GameID,
			"event":    ev.Type,
			"seq":      ev.Seq,
			"duration": duration,
		})
		if ev.Type.Terminal() {
			entry.Info("event delivered")
			return
		}
		entry.Debug("event delivered")
	})
}

// LogSubscribe logs a message when a listener is attached to an engine.
func LogSubscribe(logger *logrus.Logger, name string) {
	logger.WithField("listener", name).Info("listener subscribed")
}

// LogUnsubscribe logs a message when a listener is detached, with the error
// that ended it if there was one.
func LogUnsubscribe(logger *logrus.Logger, name string, err error) {
	fields := logrus.Fields{
		"listener": name,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("listener unsubscribed")
}
