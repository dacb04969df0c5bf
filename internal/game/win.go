// internal/game/win.go
package game

// Tier is a named win threshold.
type Tier string

const (
	TierNone       Tier = ""
	TierLine       Tier = "line"
	TierDoubleLine Tier = "double line"
	TierBingo      Tier = "bingo"
)

// tierExperience is the experience credited once per (player, tier) per game.
var tierExperience = map[Tier]int{
	TierLine:       50,
	TierDoubleLine: 100,
	TierBingo:      200,
}

// tierOrder lists the tiers from lowest to highest.
var tierOrder = []Tier{TierLine, TierDoubleLine, TierBingo}

// Experience returns the experience value of the tier, 0 for TierNone.
func (t Tier) Experience() int {
	return tierExperience[t]
}

// PatternKind identifies which kind of line completed a full-pattern win.
type PatternKind string

const (
	PatternRow      PatternKind = "row"
	PatternColumn   PatternKind = "column"
	PatternDiagonal PatternKind = "diagonal"
)

// Pattern is a completed line on a 5x5 card. Diagonal 0 runs top-left to
// bottom-right, diagonal 1 top-right to bottom-left.
type Pattern struct {
	Kind  PatternKind `json:"kind"`
	Index int         `json:"index"`
}

// WinResult is what an evaluator reports for a card.
type WinResult struct {
	Tier    Tier     `json:"tier"`
	Lines   int      `json:"lines"`
	Pattern *Pattern `json:"pattern,omitempty"`
}

// Won reports whether the result reaches any tier.
func (w WinResult) Won() bool {
	return w.Tier != TierNone
}

// EvaluateFullPattern scans rows, columns, then both diagonals and returns the
// first complete one. Lines counts every complete line on the card.
func EvaluateFullPattern(card *Card) WinResult {
	var first *Pattern
	lines := 0
	found := func(p Pattern) {
		lines++
		if first == nil {
			first = &p
		}
	}

	for r := 0; r < card.Rows; r++ {
		if rowComplete(card, r) {
			found(Pattern{Kind: PatternRow, Index: r})
		}
	}
	for c := 0; c < card.Cols; c++ {
		complete := true
		for r := 0; r < card.Rows; r++ {
			if !card.Cells[r][c].Marked {
				complete = false
				break
			}
		}
		if complete {
			found(Pattern{Kind: PatternColumn, Index: c})
		}
	}
	if card.Rows == card.Cols {
		main, anti := true, true
		n := card.Rows
		for i := 0; i < n; i++ {
			if !card.Cells[i][i].Marked {
				main = false
			}
			if !card.Cells[i][n-1-i].Marked {
				anti = false
			}
		}
		if main {
			found(Pattern{Kind: PatternDiagonal, Index: 0})
		}
		if anti {
			found(Pattern{Kind: PatternDiagonal, Index: 1})
		}
	}

	if first == nil {
		return WinResult{}
	}
	return WinResult{Tier: TierBingo, Lines: lines, Pattern: first}
}

// EvaluateTieredLines counts fully marked rows: one is a line, two a double
// line, three a bingo.
func EvaluateTieredLines(card *Card) WinResult {
	lines := 0
	for r := 0; r < card.Rows; r++ {
		if rowComplete(card, r) {
			lines++
		}
	}
	res := WinResult{Lines: lines}
	switch {
	case lines >= 3:
		res.Tier = TierBingo
	case lines == 2:
		res.Tier = TierDoubleLine
	case lines == 1:
		res.Tier = TierLine
	}
	return res
}

func rowComplete(card *Card, r int) bool {
	for _, cell := range card.Cells[r] {
		if !cell.Marked {
			return false
		}
	}
	return true
}
