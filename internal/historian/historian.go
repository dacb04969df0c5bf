// internal/historian/historian.go
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/cache"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued room actions. Pop returns (nil, nil) on timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*models.RoomAction, error)
}

// Sink persists room actions.
type Sink interface {
	InsertRoomActions(ctx context.Context, batch []models.RoomAction) error
	MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Config tunes batching and abandonment detection.
type Config struct {
	BatchSize       int
	FlushInterval   time.Duration
	PopTimeout      time.Duration
	Inactivity      time.Duration // a game with no actions for this long is abandoned
	InactivityCheck time.Duration
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 500 * time.Millisecond
	}
	if c.PopTimeout <= 0 {
		c.PopTimeout = 3 * time.Second
	}
	if c.Inactivity <= 0 {
		c.Inactivity = 10 * time.Minute
	}
	if c.InactivityCheck <= 0 {
		c.InactivityCheck = time.Minute
	}
}

// Service drains the action queue into the database in batches and marks games
// abandoned when their room went quiet without finishing.
type Service struct {
	source Source
	sink   Sink
	cfg    Config
	logger *logrus.Logger

	flushMu      sync.Mutex // serializes flushes so batches land in queue order
	batchMu      sync.Mutex
	batch        []models.RoomAction
	lastActivity sync.Map // map[uuid.UUID]time.Time, keyed by game id
}

func New(source Source, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	cfg.applyDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		source: source,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		batch:  make([]models.RoomAction, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("historian started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.readLoop(ctx)
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.logger.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		action, err := s.source.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, cache.ErrMalformedAction) {
				s.logger.Warnf("dropping queue entry: %v", err)
				continue
			}
			s.logger.Errorf("pop: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if action == nil {
			continue
		}
		s.Track(*action)
		if s.appendToBatch(*action) {
			s.Flush(ctx)
		}
	}
}

// Track records activity for the action's game. Finished games stop being tracked.
func (s *Service) Track(action models.RoomAction) {
	if action.GameID == uuid.Nil {
		return
	}
	if action.ActionType == "game_finished" {
		s.lastActivity.Delete(action.GameID)
		return
	}
	s.lastActivity.Store(action.GameID, time.Now())
}

// appendToBatch reports whether the batch reached its flush threshold.
func (s *Service) appendToBatch(action models.RoomAction) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, action)
	return len(s.batch) >= s.cfg.BatchSize
}

// Flush writes the pending batch in one transaction. A failed batch is put back
// at the front so it is retried with the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := s.batch
	s.batch = make([]models.RoomAction, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	if err := s.sink.InsertRoomActions(ctx, pending); err != nil {
		s.logger.Errorf("flush %d actions: %v", len(pending), err)
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.logger.Debugf("flushed %d actions", len(pending))
}

// Pending returns the number of buffered actions.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.InactivityCheck)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepInactive(ctx, now)
		}
	}
}

// sweepInactive marks every game idle for longer than the threshold as abandoned.
func (s *Service) sweepInactive(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.cfg.Inactivity {
			return true
		}
		if err := s.sink.MarkGameAbandoned(ctx, gameID); err != nil {
			s.logger.Errorf("failed to mark game %v abandoned: %v", gameID, err)
			return true
		}
		s.lastActivity.Delete(gameID)
		s.logger.Infof("marked game %v abandoned after %s of inactivity", gameID, s.cfg.Inactivity)
		return true
	})
}
