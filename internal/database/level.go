// internal/database/level.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/bingo/internal/level"
)

// ExperienceStore persists experience awards in Postgres.
type ExperienceStore struct{}

// AddExperience locks the user row, adds amount, recomputes the level and
// records the award, all in one transaction.
func (ExperienceStore) AddExperience(ctx context.Context, userID uuid.UUID, tier string, amount int) (before, after int, err error) {
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if e := tx.QueryRow(ctx, `SELECT experience FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&before); e != nil {
			return fmt.Errorf("lock user: %w", e)
		}
		after = before + amount

		if _, e := tx.Exec(ctx, `UPDATE users SET experience = $1, level = $2 WHERE id = $3`,
			after, level.For(after), userID); e != nil {
			return fmt.Errorf("update experience: %w", e)
		}
		if _, e := tx.Exec(ctx, `INSERT INTO experience_awards (user_id, tier, amount) VALUES ($1, $2, $3)`,
			userID, tier, amount); e != nil {
			return fmt.Errorf("insert award: %w", e)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return before, after, nil
}
