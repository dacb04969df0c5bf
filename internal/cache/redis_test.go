// internal/cache/redis_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupQueue(t *testing.T) (*ActionQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := ConnectRedis(context.Background(), mr.Addr(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewActionQueue(client, ""), mr
}

func TestActionQueuePublishAndPop(t *testing.T) {
	q, mr := setupQueue(t)
	assert.Equal(t, DefaultQueueName, q.Name())
	ctx := context.Background()

	action := models.RoomAction{
		RoomID:        uuid.New(),
		GameID:        uuid.New(),
		ActionIndex:   3,
		ActorPlayerID: uuid.New(),
		ActionType:    "mark_cell",
		ActionPayload: map[string]interface{}{"row": float64(1), "col": float64(2)},
		Timestamp:     time.Now().UnixMilli(),
	}
	require.NoError(t, q.PublishRoomAction(ctx, action))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	raw, err := mr.Lpop(DefaultQueueName)
	require.NoError(t, err)
	assert.Contains(t, raw, `"action_type":"mark_cell"`)

	require.NoError(t, q.PublishRoomAction(ctx, action))
	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, action, *got)
}

func TestActionQueuePopMalformed(t *testing.T) {
	q, mr := setupQueue(t)
	_, err := mr.Push(DefaultQueueName, "{not json")
	require.NoError(t, err)

	got, err := q.Pop(context.Background(), time.Second)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrMalformedAction)
}

func TestConnectRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), addr, 0)
	assert.Error(t, err)
}

func TestActionQueueCustomName(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewActionQueue(client, "custom")
	require.NoError(t, q.PublishRoomAction(context.Background(), models.RoomAction{ActionType: "chat"}))
	assert.True(t, mr.Exists("custom"))
	assert.False(t, mr.Exists(DefaultQueueName))
}
