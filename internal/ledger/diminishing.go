package ledger

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// DRLevel is how many times a group has recently been applied to a unit.
type DRLevel uint8

const (
	DRLevelNone DRLevel = iota
	DRLevelHalf
	DRLevelQuarter
	DRLevelImmune
)

// Factor returns the duration multiplier for the level.
func (l DRLevel) Factor() float64 {
	switch l {
	case DRLevelNone:
		return 1
	case DRLevelHalf:
		return 0.5
	case DRLevelQuarter:
		return 0.25
	}
	return 0
}

type drKey struct {
	unit  entity.ID
	group spells.DRGroup
}

type drState struct {
	level   DRLevel
	resetAt time.Duration
}

// Diminishing tracks diminishing returns per unit and group.
type Diminishing struct {
	reset  time.Duration
	states map[drKey]*drState
}

// NewDiminishing creates a ledger whose levels decay after reset without a new application.
func NewDiminishing(reset time.Duration) *Diminishing {
	return &Diminishing{reset: reset, states: make(map[drKey]*drState)}
}

// Level returns the level the next application of group to unit will use.
func (d *Diminishing) Level(unit entity.ID, group spells.DRGroup, now time.Duration) DRLevel {
	if group == spells.DRNone {
		return DRLevelNone
	}
	st, ok := d.states[drKey{unit, group}]
	if !ok || now >= st.resetAt {
		return DRLevelNone
	}
	return st.level
}

// Apply records an application and returns the level it was applied at.
func (d *Diminishing) Apply(unit entity.ID, group spells.DRGroup, now time.Duration) DRLevel {
	if group == spells.DRNone {
		return DRLevelNone
	}
	key := drKey{unit, group}
	level := d.Level(unit, group, now)
	next := level
	if next < DRLevelImmune {
		next++
	}
	d.states[key] = &drState{level: next, resetAt: now + d.reset}
	return level
}

// Scale shrinks a duration by level and caps it. A zero result means the aura is discarded.
func Scale(duration time.Duration, level DRLevel, limit time.Duration) time.Duration {
	if limit > 0 && duration > limit {
		duration = limit
	}
	return time.Duration(float64(duration) * level.Factor())
}

// Forget drops every group recorded for a unit.
func (d *Diminishing) Forget(unit entity.ID) {
	for k := range d.states {
		if k.unit == unit {
			delete(d.states, k)
		}
	}
}
