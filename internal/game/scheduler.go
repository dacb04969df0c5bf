// internal/game/scheduler.go
package game

import (
	"context"
	"sync"
	"time"
)

// drawScheduler draws one number per interval for a single running game.
// Ticks run sequentially on one goroutine, so a draw is fully applied and
// broadcast before the next one starts.
type drawScheduler struct {
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func startDrawScheduler(r *Room, interval time.Duration) *drawScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &drawScheduler{cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, r, interval)
	return s
}

func (s *drawScheduler) run(ctx context.Context, r *Room, interval time.Duration) {
	defer close(s.done)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("draw scheduler panicked, stopping draws: %v", rec)
			s.Stop()
			r.abortGame(s, "draw scheduler fault")
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.drawTick(ctx) {
				return
			}
		}
	}
}

// Stop cancels the scheduler. Safe to call more than once and from within a
// tick, since it never waits for the goroutine.
func (s *drawScheduler) Stop() {
	s.stopOnce.Do(s.cancel)
}

// Done is closed once the scheduler goroutine has exited.
func (s *drawScheduler) Done() <-chan struct{} {
	return s.done
}
