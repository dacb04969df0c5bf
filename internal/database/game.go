// internal/database/game.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/bingo/internal/models"
)

// GameRecorder writes finished games to the games and game_results tables.
type GameRecorder struct{}

// RecordGameResult upserts the game row as completed and one result row per
// player, in a single transaction.
func (GameRecorder) RecordGameResult(ctx context.Context, res models.GameResult) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, room_id, mode, status, start_time, end_time, total_drawn, winner_player_id)
			VALUES ($1, $2, $3, 'completed', $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET status = 'completed', end_time = EXCLUDED.end_time,
			    total_drawn = EXCLUDED.total_drawn, winner_player_id = EXCLUDED.winner_player_id,
			    mode = EXCLUDED.mode
		`
		if _, e := tx.Exec(ctx, upsertGame,
			res.GameID, res.RoomID, res.Mode, res.StartedAt, res.StartedAt.Add(res.Duration),
			res.TotalDrawn, nullUUID(res.WinnerID),
		); e != nil {
			return fmt.Errorf("upsert game: %w", e)
		}

		for _, p := range res.Players {
			tiers := p.Tiers
			if tiers == nil {
				tiers = []string{}
			}
			q := `
				INSERT INTO game_results (game_id, player_id, user_id, player_name, score, completed_lines, tiers, did_win)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET score = $5, completed_lines = $6, tiers = $7, did_win = $8
			`
			if _, e := tx.Exec(ctx, q,
				res.GameID, p.PlayerID, nullUUID(p.UserID), p.Name, p.Score, p.CompletedLines,
				tiers, p.PlayerID == res.WinnerID,
			); e != nil {
				return fmt.Errorf("insert result for %s: %w", p.PlayerID, e)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record game %s: %w", res.GameID, err)
	}
	return nil
}
