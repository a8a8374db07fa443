package ledger

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/entity"
)

// MaxComboPoints is the most points a caster can hold.
const MaxComboPoints = 5

type comboState struct {
	target entity.ID
	points int
}

// Combo tracks combo points per caster, bound to one target.
type Combo struct {
	casters map[entity.ID]*comboState
}

// NewCombo creates an empty combo ledger.
func NewCombo() *Combo {
	return &Combo{casters: make(map[entity.ID]*comboState)}
}

// Add grants points on target. Switching targets discards the old points.
func (c *Combo) Add(caster, target entity.ID, n int) int {
	st, ok := c.casters[caster]
	if !ok || st.target != target {
		st = &comboState{target: target}
		c.casters[caster] = st
	}
	st.points += n
	if st.points > MaxComboPoints {
		st.points = MaxComboPoints
	}
	if st.points < 0 {
		st.points = 0
	}
	return st.points
}

// Points returns the caster's points on target.
func (c *Combo) Points(caster, target entity.ID) int {
	st, ok := c.casters[caster]
	if !ok || st.target != target {
		return 0
	}
	return st.points
}

// Target returns the unit the caster's points are bound to.
func (c *Combo) Target(caster entity.ID) (entity.ID, bool) {
	st, ok := c.casters[caster]
	if !ok || st.points == 0 {
		return 0, false
	}
	return st.target, true
}

// Clear spends all of the caster's points.
func (c *Combo) Clear(caster entity.ID) {
	delete(c.casters, caster)
}

// Ledgers bundles the per-unit ledgers a cast manager needs.
type Ledgers struct {
	Cooldowns   *Cooldowns
	Diminishing *Diminishing
	Combo       *Combo
}

// New creates a fresh set of ledgers.
func New(drReset time.Duration) *Ledgers {
	return &Ledgers{
		Cooldowns:   NewCooldowns(),
		Diminishing: NewDiminishing(drReset),
		Combo:       NewCombo(),
	}
}

// Forget drops everything recorded for a unit, as when it leaves the world.
func (l *Ledgers) Forget(unit entity.ID) {
	l.Cooldowns.Forget(unit)
	l.Diminishing.Forget(unit)
	l.Combo.Clear(unit)
	for caster, st := range l.Combo.casters {
		if st.target == unit {
			delete(l.Combo.casters, caster)
		}
	}
}
