// internal/game/win_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markRow(card *Card, r int) {
	for c := range card.Cells[r] {
		if !card.Cells[r][c].Free {
			card.Cells[r][c].Marked = true
		}
	}
}

func TestEvaluateFullPattern(t *testing.T) {
	t.Run("nothing marked", func(t *testing.T) {
		card := GenerateClassicCard(rand.New(rand.NewSource(1)))
		res := EvaluateFullPattern(card)
		assert.False(t, res.Won())
		assert.Nil(t, res.Pattern)
	})

	t.Run("row", func(t *testing.T) {
		card := GenerateClassicCard(rand.New(rand.NewSource(1)))
		markRow(card, 3)
		res := EvaluateFullPattern(card)
		require.True(t, res.Won())
		assert.Equal(t, TierBingo, res.Tier)
		assert.Equal(t, Pattern{Kind: PatternRow, Index: 3}, *res.Pattern)
		assert.Equal(t, 1, res.Lines)
	})

	t.Run("column through free center", func(t *testing.T) {
		card := GenerateClassicCard(rand.New(rand.NewSource(1)))
		for r := 0; r < 5; r++ {
			card.Cells[r][2].Marked = true
		}
		res := EvaluateFullPattern(card)
		require.True(t, res.Won())
		assert.Equal(t, Pattern{Kind: PatternColumn, Index: 2}, *res.Pattern)
	})

	t.Run("anti diagonal needs only four marks", func(t *testing.T) {
		card := GenerateClassicCard(rand.New(rand.NewSource(1)))
		for i := 0; i < 5; i++ {
			if i != 2 {
				card.Toggle(i, 4-i)
			}
		}
		res := EvaluateFullPattern(card)
		require.True(t, res.Won())
		assert.Equal(t, Pattern{Kind: PatternDiagonal, Index: 1}, *res.Pattern)
	})

	t.Run("first pattern wins, all lines counted", func(t *testing.T) {
		card := GenerateClassicCard(rand.New(rand.NewSource(1)))
		markRow(card, 4)
		for r := 0; r < 5; r++ {
			card.Cells[r][0].Marked = true
		}
		res := EvaluateFullPattern(card)
		assert.Equal(t, Pattern{Kind: PatternRow, Index: 4}, *res.Pattern)
		assert.Equal(t, 2, res.Lines)
	})
}

func TestEvaluateTieredLines(t *testing.T) {
	card := GenerateTieredCard(rand.New(rand.NewSource(7)))
	assert.Equal(t, WinResult{}, EvaluateTieredLines(card))

	markRow(card, 1)
	res := EvaluateTieredLines(card)
	assert.Equal(t, TierLine, res.Tier)
	assert.Equal(t, 1, res.Lines)

	markRow(card, 0)
	res = EvaluateTieredLines(card)
	assert.Equal(t, TierDoubleLine, res.Tier)
	assert.Equal(t, 2, res.Lines)

	markRow(card, 2)
	res = EvaluateTieredLines(card)
	assert.Equal(t, TierBingo, res.Tier)
	assert.Equal(t, 3, res.Lines)

	// unmarking one cell drops back a tier
	for c := range card.Cells[2] {
		if !card.Cells[2][c].Free {
			card.Toggle(2, c)
			break
		}
	}
	assert.Equal(t, TierDoubleLine, EvaluateTieredLines(card).Tier)
}

func TestTierExperience(t *testing.T) {
	assert.Equal(t, 0, TierNone.Experience())
	assert.Equal(t, 50, TierLine.Experience())
	assert.Equal(t, 100, TierDoubleLine.Experience())
	assert.Equal(t, 200, TierBingo.Experience())
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"75", "classic", " Classic ", "75-ball"} {
		m, err := ParseMode(name)
		require.NoError(t, err, name)
		assert.Equal(t, Classic75, m)
	}
	for _, name := range []string{"90", "tiered", "90-BALL"} {
		m, err := ParseMode(name)
		require.NoError(t, err, name)
		assert.Equal(t, Tiered90, m)
	}
	_, err := ParseMode("80")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
