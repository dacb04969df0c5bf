// internal/level/level.go
package level

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
)

// xpPerLevelUnit scales the level curve: level n starts at 100*(n-1)^2 experience.
const xpPerLevelUnit = 100

// For returns the level reached with the given experience total.
func For(experience int) int {
	if experience <= 0 {
		return 1
	}
	return 1 + int(math.Floor(math.Sqrt(float64(experience)/xpPerLevelUnit)))
}

// NextThreshold is the experience total at which the level after lvl begins.
func NextThreshold(lvl int) int {
	if lvl < 1 {
		lvl = 1
	}
	return xpPerLevelUnit * lvl * lvl
}

// Info builds the level view for a user holding the given experience.
func Info(userID uuid.UUID, experience int) models.LevelInfo {
	lvl := For(experience)
	return models.LevelInfo{
		UserID:      userID,
		Experience:  experience,
		Level:       lvl,
		NextLevelAt: NextThreshold(lvl),
	}
}

// Store persists experience. AddExperience must apply the increment atomically and
// return the totals before and after it.
type Store interface {
	AddExperience(ctx context.Context, userID uuid.UUID, tier string, amount int) (before, after int, err error)
}

// Service credits experience and reports level changes.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// AwardExperience adds amount to the user's total and reports whether the user
// crossed into a new level.
func (s *Service) AwardExperience(ctx context.Context, userID uuid.UUID, tier string, amount int) (models.LevelInfo, error) {
	if userID == uuid.Nil {
		return models.LevelInfo{}, fmt.Errorf("cannot award experience to a guest")
	}
	if amount <= 0 {
		return models.LevelInfo{}, fmt.Errorf("invalid experience amount %d", amount)
	}

	before, after, err := s.store.AddExperience(ctx, userID, tier, amount)
	if err != nil {
		return models.LevelInfo{}, fmt.Errorf("add experience for %s: %w", userID, err)
	}

	info := Info(userID, after)
	info.LeveledUp = info.Level > For(before)
	return info, nil
}
