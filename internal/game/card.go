// internal/game/card.go
package game

import (
	"math/rand"
	"sort"
)

// Cell is a single square of a card. Free cells are always marked and count
// toward every line that passes through them.
type Cell struct {
	Number int  `json:"number,omitempty"`
	Free   bool `json:"free,omitempty"`
	Marked bool `json:"marked"`
}

// Card is a player's grid, indexed [row][col].
type Card struct {
	Rows  int      `json:"rows"`
	Cols  int      `json:"cols"`
	Cells [][]Cell `json:"cells"`
}

func newCard(rows, cols int) *Card {
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
	}
	return &Card{Rows: rows, Cols: cols, Cells: cells}
}

// InBounds reports whether (row, col) addresses a cell of the card.
func (c *Card) InBounds(row, col int) bool {
	return row >= 0 && row < c.Rows && col >= 0 && col < c.Cols
}

// Numbers returns every number on the card in row-major order.
func (c *Card) Numbers() []int {
	var out []int
	for _, row := range c.Cells {
		for _, cell := range row {
			if !cell.Free {
				out = append(out, cell.Number)
			}
		}
	}
	return out
}

// Contains reports whether n is printed on the card.
func (c *Card) Contains(n int) bool {
	for _, row := range c.Cells {
		for _, cell := range row {
			if !cell.Free && cell.Number == n {
				return true
			}
		}
	}
	return false
}

// Toggle flips the mark on a number cell and returns the new state. Free cells
// are left marked.
func (c *Card) Toggle(row, col int) bool {
	cell := &c.Cells[row][col]
	if cell.Free {
		return true
	}
	cell.Marked = !cell.Marked
	return cell.Marked
}

// ClearMarks unmarks every number cell, used when a new game starts in a room.
func (c *Card) ClearMarks() {
	for r := range c.Cells {
		for col := range c.Cells[r] {
			if !c.Cells[r][col].Free {
				c.Cells[r][col].Marked = false
			}
		}
	}
}

// Clone returns a deep copy safe to hand out of the room lock.
func (c *Card) Clone() *Card {
	cp := newCard(c.Rows, c.Cols)
	for r := range c.Cells {
		copy(cp.Cells[r], c.Cells[r])
	}
	return cp
}

const (
	classicSize      = 5
	classicBandWidth = 15
	classicCenter    = 2
	classicRetries   = 64

	tieredRows        = 3
	tieredCols        = 9
	tieredPerRow      = 5
	tieredPerCol      = 2
	tieredNumbers     = tieredRows * tieredPerRow
	tieredBandWidth   = 10
	tieredMaxAttempts = 5000
)

// GenerateClassicCard builds a 5x5 card. Column c holds numbers from
// [15c+1, 15c+15] and the center cell is free.
func GenerateClassicCard(rng *rand.Rand) *Card {
	card := newCard(classicSize, classicSize)
	for col := 0; col < classicSize; col++ {
		lo := col*classicBandWidth + 1
		used := make(map[int]bool, classicSize)
		for row := 0; row < classicSize; row++ {
			if row == classicCenter && col == classicCenter {
				card.Cells[row][col] = Cell{Free: true, Marked: true}
				continue
			}
			n := 0
			for try := 0; try < classicRetries; try++ {
				candidate := lo + rng.Intn(classicBandWidth)
				if !used[candidate] {
					n = candidate
					break
				}
			}
			if n == 0 {
				// retries exhausted, take the smallest free value in the band
				for candidate := lo; candidate < lo+classicBandWidth; candidate++ {
					if !used[candidate] {
						n = candidate
						break
					}
				}
			}
			used[n] = true
			card.Cells[row][col] = Cell{Number: n}
		}
	}
	return card
}

// tieredBand returns the inclusive number range of a 3x9 column.
func tieredBand(col int) (lo, hi int) {
	return col*tieredBandWidth + 1, col*tieredBandWidth + tieredBandWidth
}

// tieredFallbackShape is a valid placement (5 per row, at most 2 per column)
// used when random placement fails to converge.
var tieredFallbackShape = [tieredRows][]int{
	{0, 1, 2, 3, 4},
	{4, 5, 6, 7, 8},
	{0, 1, 2, 3, 8},
}

// GenerateTieredCard builds a 3x9 card with 15 numbers, 5 per row and at most
// 2 per column, numbers in a column ascending from top to bottom.
func GenerateTieredCard(rng *rand.Rand) *Card {
	card := newCard(tieredRows, tieredCols)
	if !placeTieredRandom(card, rng) {
		card = newCard(tieredRows, tieredCols)
		placeTieredFallback(card, rng)
	}
	for r := range card.Cells {
		for c := range card.Cells[r] {
			if card.Cells[r][c].Number == 0 {
				card.Cells[r][c] = Cell{Free: true, Marked: true}
			}
		}
	}
	sortTieredColumns(card)
	return card
}

func placeTieredRandom(card *Card, rng *rand.Rand) bool {
	var rowCount [tieredRows]int
	var colCount [tieredCols]int
	used := make(map[int]bool, tieredNumbers)
	placed := 0

	for attempt := 0; attempt < tieredMaxAttempts && placed < tieredNumbers; attempt++ {
		row := rng.Intn(tieredRows)
		col := rng.Intn(tieredCols)
		if card.Cells[row][col].Number != 0 || rowCount[row] >= tieredPerRow || colCount[col] >= tieredPerCol {
			continue
		}
		lo, _ := tieredBand(col)
		n := lo + rng.Intn(tieredBandWidth)
		if used[n] {
			continue
		}
		used[n] = true
		card.Cells[row][col].Number = n
		rowCount[row]++
		colCount[col]++
		placed++
	}
	return placed == tieredNumbers
}

func placeTieredFallback(card *Card, rng *rand.Rand) {
	used := make(map[int]bool, tieredNumbers)
	for row, cols := range tieredFallbackShape {
		for _, col := range cols {
			lo, _ := tieredBand(col)
			n := lo + rng.Intn(tieredBandWidth)
			for used[n] {
				n = lo + (n-lo+1)%tieredBandWidth
			}
			used[n] = true
			card.Cells[row][col].Number = n
		}
	}
}

// sortTieredColumns reorders the numbers of each column so they ascend by row,
// keeping the placement of number and free cells unchanged.
func sortTieredColumns(card *Card) {
	for col := 0; col < card.Cols; col++ {
		var rows, nums []int
		for row := 0; row < card.Rows; row++ {
			if !card.Cells[row][col].Free {
				rows = append(rows, row)
				nums = append(nums, card.Cells[row][col].Number)
			}
		}
		sort.Ints(nums)
		for i, row := range rows {
			card.Cells[row][col].Number = nums[i]
		}
	}
}
