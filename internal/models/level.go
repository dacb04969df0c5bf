package models

import "github.com/google/uuid"

// LevelInfo is the level snapshot returned after experience changes.
type LevelInfo struct {
	UserID      uuid.UUID `json:"userId"`
	Experience  int       `json:"experience"`
	Level       int       `json:"level"`
	NextLevelAt int       `json:"nextLevelAt"`
	LeveledUp   bool      `json:"leveledUp"`
}
