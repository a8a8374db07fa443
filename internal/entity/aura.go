package entity

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/spells"
)

// Aura is a lasting effect held by a unit.
type Aura struct {
	Spell     spells.ID
	Caster    ID
	Effect    int
	Type      spells.AuraType
	Amount    int
	MiscValue int
	Mechanic  spells.Mechanic
	School    spells.School
	Positive  bool

	// Duration of zero means the aura is permanent.
	Duration  time.Duration
	Remaining time.Duration
	Period    time.Duration
	tick      time.Duration

	// Charges of zero means unlimited.
	Charges  int
	reserved int

	ProcFlags    spells.ProcFlags
	ProcChance   int
	TriggerSpell spells.ID
}

// AuraTick is one periodic application reported by UpdateAuras.
type AuraTick struct {
	Spell  spells.ID
	Caster ID
	Target ID
	Type   spells.AuraType
	Amount int
}

// Matches returns true if the aura was created by the given spell, caster and effect.
func (a *Aura) Matches(spell spells.ID, caster ID, effect int) bool {
	return a.Spell == spell && a.Caster == caster && a.Effect == effect
}

// Available returns the number of charges not held by an in-flight cast,
// or -1 for an aura without charges.
func (a *Aura) Available() int {
	if a.Charges == 0 {
		return -1
	}
	return a.Charges - a.reserved
}

// Reserve holds one charge for a cast that has not finished yet.
func (a *Aura) Reserve() bool {
	if a.Charges == 0 {
		return true
	}
	if a.Charges-a.reserved <= 0 {
		return false
	}
	a.reserved++
	return true
}

// Release returns a reserved charge.
func (a *Aura) Release() {
	if a.reserved > 0 {
		a.reserved--
	}
}

// Commit spends a reserved charge. It returns true when the aura has no charges left.
func (a *Aura) Commit() bool {
	if a.Charges == 0 {
		return false
	}
	if a.reserved > 0 {
		a.reserved--
	}
	a.Charges--
	return a.Charges <= 0
}

// ConsumeCharge spends an unreserved charge, as procs do.
// It returns true when the aura has no charges left.
func (a *Aura) ConsumeCharge() bool {
	if a.Charges == 0 {
		return false
	}
	a.Charges--
	return a.Charges <= 0
}

// Reserved returns the number of charges held by in-flight casts.
func (a *Aura) Reserved() int {
	return a.reserved
}
