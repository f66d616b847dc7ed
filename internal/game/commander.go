// internal/game/commander.go
package game

import (
	"context"
	"errors"
)

// ErrCommanderStopped is returned by Do once Run has exited.
var ErrCommanderStopped = errors.New("game commander stopped")

// Commander serializes access to one Engine from many goroutines. Every
// command, and every listener it triggers, runs on the goroutine calling Run.
type Commander struct {
	engine *Engine
	cmds   chan command
	done   chan struct{}
}

type command struct {
	fn  func(*Engine)
	ack chan struct{}
}

// NewCommander wraps e. Nothing else may touch e while Run is active.
func NewCommander(e *Engine) *Commander {
	return &Commander{
		engine: e,
		cmds:   make(chan command),
		done:   make(chan struct{}),
	}
}

// Run applies queued commands until ctx is cancelled. It must be called once.
func (c *Commander) Run(ctx context.Context) error {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.cmds:
			c.apply(cmd)
		}
	}
}

func (c *Commander) apply(cmd command) {
	defer close(cmd.ack)
	defer func() {
		if r := recover(); r != nil {
			c.engine.log.WithField("panic", r).Error("game command panicked")
		}
	}()
	cmd.fn(c.engine)
}

// Do queues fn and waits until it has run.
func (c *Commander) Do(ctx context.Context, fn func(*Engine)) error {
	cmd := command{fn: fn, ack: make(chan struct{})}

	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrCommanderStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query runs fn through the queue and returns its result.
func Query[T any](ctx context.Context, c *Commander, fn func(*Engine) T) (T, error) {
	var out T
	if err := c.Do(ctx, func(e *Engine) { out = fn(e) }); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
