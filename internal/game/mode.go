// internal/game/mode.go
package game

import (
	"math/rand"
	"strings"
)

// GameMode pairs a card layout with the win evaluator that reads it.
type GameMode interface {
	Name() string
	MaxNumber() int
	NewCard(rng *rand.Rand) *Card
	Evaluate(card *Card) WinResult
	// TopTier is the tier that completes the card.
	TopTier() Tier
}

const (
	ModeClassic75 = "75"
	ModeTiered90  = "90"
)

type classicMode struct{}

func (classicMode) Name() string                  { return ModeClassic75 }
func (classicMode) MaxNumber() int                { return 75 }
func (classicMode) NewCard(rng *rand.Rand) *Card  { return GenerateClassicCard(rng) }
func (classicMode) Evaluate(card *Card) WinResult { return EvaluateFullPattern(card) }
func (classicMode) TopTier() Tier                 { return TierBingo }

type tieredMode struct{}

func (tieredMode) Name() string                  { return ModeTiered90 }
func (tieredMode) MaxNumber() int                { return 90 }
func (tieredMode) NewCard(rng *rand.Rand) *Card  { return GenerateTieredCard(rng) }
func (tieredMode) Evaluate(card *Card) WinResult { return EvaluateTieredLines(card) }
func (tieredMode) TopTier() Tier                 { return TierBingo }

var (
	Classic75 GameMode = classicMode{}
	Tiered90  GameMode = tieredMode{}
)

// ParseMode resolves a mode name. Accepts "75"/"classic" and "90"/"tiered".
func ParseMode(name string) (GameMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ModeClassic75, "classic", "75-ball":
		return Classic75, nil
	case ModeTiered90, "tiered", "90-ball":
		return Tiered90, nil
	}
	return nil, ErrUnknownMode
}
