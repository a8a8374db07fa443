package stats

import (
	"fmt"
	"regexp"
	"strconv"
)

// Source is the random source rolls draw from. *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// Dice is parsed dice notation: Count dice with Sides faces plus Bonus.
type Dice struct {
	Count int
	Sides int
	Bonus int
}

// diceNotationRegex matches dice notation like "1d6", "2d4+1", "1d8-2"
var diceNotationRegex = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// ParseNotation parses dice notation.
// Supports formats: "1d6", "2d4", "1d8+2", "2d6-1"
func ParseNotation(notation string) (Dice, error) {
	matches := diceNotationRegex.FindStringSubmatch(notation)
	if matches == nil {
		return Dice{}, fmt.Errorf("invalid dice notation %q", notation)
	}

	count, _ := strconv.Atoi(matches[1])
	sides, _ := strconv.Atoi(matches[2])

	bonus := 0
	if matches[3] != "" {
		bonus, _ = strconv.Atoi(matches[3])
	}

	return Dice{Count: count, Sides: sides, Bonus: bonus}, nil
}

// Roll rolls the dice and adds the bonus.
func (d Dice) Roll(r Source) int {
	return Roll(r, d.Count, d.Sides) + d.Bonus
}

// String returns the dice in notation form.
func (d Dice) String() string {
	switch {
	case d.Bonus > 0:
		return fmt.Sprintf("%dd%d+%d", d.Count, d.Sides, d.Bonus)
	case d.Bonus < 0:
		return fmt.Sprintf("%dd%d%d", d.Count, d.Sides, d.Bonus)
	}
	return fmt.Sprintf("%dd%d", d.Count, d.Sides)
}

// Roll rolls n dice with the specified number of sides and returns the total.
// A die with fewer than one side rolls zero.
func Roll(r Source, n, sides int) int {
	if sides < 1 {
		return 0
	}
	total := 0
	for i := 0; i < n; i++ {
		total += r.Intn(sides) + 1
	}
	return total
}

// Chance returns true with the given percent probability.
func Chance(r Source, percent float64) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return r.Float64()*100 < percent
}
