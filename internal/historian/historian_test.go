// internal/historian/historian_test.go
package historian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/cache"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu        sync.Mutex
	actions   []models.RoomAction
	batches   int
	abandoned []uuid.UUID
	failNext  bool
}

func (m *memSink) InsertRoomActions(_ context.Context, batch []models.RoomAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("db unavailable")
	}
	m.batches++
	m.actions = append(m.actions, batch...)
	return nil
}

func (m *memSink) MarkGameAbandoned(_ context.Context, gameID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, gameID)
	return nil
}

func (m *memSink) stored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actions)
}

func TestHistorianDrainsQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	queue := cache.NewActionQueue(client, "")

	ctx := context.Background()
	roomID := uuid.New()
	for i := 1; i <= 5; i++ {
		require.NoError(t, queue.PublishRoomAction(ctx, models.RoomAction{
			RoomID: roomID, ActionIndex: i, ActionType: "number_drawn", Timestamp: time.Now().UnixMilli(),
		}))
	}
	_, err := mr.Push(cache.DefaultQueueName, "garbage")
	require.NoError(t, err)

	sink := &memSink{}
	svc := New(queue, sink, Config{BatchSize: 2, FlushInterval: 20 * time.Millisecond, PopTimeout: 50 * time.Millisecond}, nil)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		svc.Run(runCtx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sink.stored() == 5 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("historian did not stop")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i, a := range sink.actions {
		assert.Equal(t, i+1, a.ActionIndex, "actions keep queue order")
	}
}

func TestHistorianRetriesFailedFlush(t *testing.T) {
	sink := &memSink{failNext: true}
	svc := New(nil, sink, Config{BatchSize: 10}, nil)

	svc.appendToBatch(models.RoomAction{ActionIndex: 1})
	svc.appendToBatch(models.RoomAction{ActionIndex: 2})

	svc.Flush(context.Background())
	assert.Equal(t, 0, sink.stored())
	assert.Equal(t, 2, svc.Pending())

	svc.appendToBatch(models.RoomAction{ActionIndex: 3})
	svc.Flush(context.Background())
	require.Equal(t, 3, sink.stored())
	assert.Equal(t, 0, svc.Pending())
	assert.Equal(t, 1, sink.actions[0].ActionIndex)
	assert.Equal(t, 3, sink.actions[2].ActionIndex)
}

func TestHistorianAbandonsIdleGames(t *testing.T) {
	sink := &memSink{}
	svc := New(nil, sink, Config{Inactivity: time.Minute}, nil)

	idle := uuid.New()
	finished := uuid.New()
	active := uuid.New()
	svc.Track(models.RoomAction{GameID: idle, ActionType: "number_drawn"})
	svc.Track(models.RoomAction{GameID: finished, ActionType: "number_drawn"})
	svc.Track(models.RoomAction{GameID: finished, ActionType: "game_finished"})
	svc.Track(models.RoomAction{GameID: uuid.Nil, ActionType: "player_join"})

	svc.sweepInactive(context.Background(), time.Now().Add(2*time.Minute))
	svc.Track(models.RoomAction{GameID: active, ActionType: "mark_cell"})
	svc.sweepInactive(context.Background(), time.Now())

	assert.Equal(t, []uuid.UUID{idle}, sink.abandoned)
}
