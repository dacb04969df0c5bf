// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for room action logs.
const DefaultQueueName = "bingo_actions"

// ConnectRedis opens a client and verifies it with a ping.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionQueue is the Redis list shared by the game server (producer) and the
// historian (consumer).
type ActionQueue struct {
	client *redis.Client
	name   string
}

func NewActionQueue(client *redis.Client, name string) *ActionQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &ActionQueue{client: client, name: name}
}

// Name returns the list key.
func (q *ActionQueue) Name() string {
	return q.name
}

// PublishRoomAction serializes the record to JSON and appends it to the queue.
func (q *ActionQueue) PublishRoomAction(ctx context.Context, action models.RoomAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomAction: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// ErrMalformedAction is returned by Pop for queue entries that are not valid
// RoomAction JSON. The entry has already been removed from the queue.
var ErrMalformedAction = errors.New("malformed room action")

// Pop blocks up to timeout for the next action. It returns (nil, nil) when the
// timeout elapses with the queue empty.
func (q *ActionQueue) Pop(ctx context.Context, timeout time.Duration) (*models.RoomAction, error) {
	res, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	if len(res) < 2 {
		return nil, nil
	}

	// res[0] is the queue name and res[1] the payload.
	var action models.RoomAction
	if err := json.Unmarshal([]byte(res[1]), &action); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	return &action, nil
}

// Len returns the number of queued actions.
func (q *ActionQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}
