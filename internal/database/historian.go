// internal/database/historian.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/bingo/internal/models"
)

// ActionStore persists room actions drained from the action queue.
type ActionStore struct{}

// InsertRoomActions writes a batch of actions in one transaction. A game_start
// action also opens the game row so abandoned games can be detected later.
func (ActionStore) InsertRoomActions(ctx context.Context, batch []models.RoomAction) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batch {
			if err := insertRoomActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d of room %s: %w", rec.ActionIndex, rec.RoomID, err)
			}
		}
		return nil
	})
}

func insertRoomActionTx(ctx context.Context, tx pgx.Tx, rec models.RoomAction) error {
	if rec.ActionType == "game_start" && rec.GameID != uuid.Nil {
		upsertGameQ := `
			INSERT INTO games (id, room_id, status, start_time)
			VALUES ($1, $2, 'in_progress', $3)
			ON CONFLICT (id) DO NOTHING
		`
		if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, rec.RoomID, time.UnixMilli(rec.Timestamp)); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO room_actions (room_id, action_index, game_id, actor_player_id, action_type, action_payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (room_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, q,
		rec.RoomID, rec.ActionIndex, nullUUID(rec.GameID), nullUUID(rec.ActorPlayerID),
		rec.ActionType, payload, time.UnixMilli(rec.Timestamp),
	)
	return err
}

// MarkGameAbandoned closes a game that never reported a result.
func (ActionStore) MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error {
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, gameID)
		return e
	})
}
