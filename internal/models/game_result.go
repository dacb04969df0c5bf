package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerResult is one player's line in a finished game.
type PlayerResult struct {
	PlayerID       uuid.UUID `json:"playerId"`
	UserID         uuid.UUID `json:"userId"` // uuid.Nil for guests
	Name           string    `json:"name"`
	Score          int       `json:"score"`
	CompletedLines int       `json:"completedLines"`
	Tiers          []string  `json:"tiers"`
}

// GameResult is handed to the statistics store once a game is finished.
type GameResult struct {
	RoomID     uuid.UUID      `json:"roomId"`
	GameID     uuid.UUID      `json:"gameId"`
	Mode       string         `json:"mode"`
	Players    []PlayerResult `json:"players"`
	StartedAt  time.Time      `json:"startedAt"`
	Duration   time.Duration  `json:"duration"`
	WinnerID   uuid.UUID      `json:"winnerId"` // first player to reach any tier, or uuid.Nil
	TotalDrawn int            `json:"totalDrawn"`
}

// Winner returns the winning player's result, if any.
func (r GameResult) Winner() (PlayerResult, bool) {
	if r.WinnerID == uuid.Nil {
		return PlayerResult{}, false
	}
	for _, p := range r.Players {
		if p.PlayerID == r.WinnerID {
			return p, true
		}
	}
	return PlayerResult{}, false
}
