package entity

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/spells"
)

// UnitState is a set of conditions derived from a unit's auras.
type UnitState uint16

const (
	StateStunned UnitState = 1 << iota
	StateRooted
	StateSilenced
	StatePacified
	StateFeared
	StateConfused
	StateStealthed
)

var auraStates = map[spells.AuraType]UnitState{
	spells.AuraStun:       StateStunned,
	spells.AuraRoot:       StateRooted,
	spells.AuraSilence:    StateSilenced,
	spells.AuraPacify:     StatePacified,
	spells.AuraFear:       StateFeared,
	spells.AuraConfuse:    StateConfused,
	spells.AuraModStealth: StateStealthed,
}

// Unit is a player, creature, pet or summon.
type Unit struct {
	GUID   ID
	Entry  uint32 // creature template entry, 0 for players
	Name   string
	Player bool
	Owner  ID // set for pets and summons

	Key      MapKey
	Pos      Position
	Zone     uint32
	Outdoors bool

	Level     int
	Health    int
	MaxHealth int
	Power     [spells.PowerCount]int
	MaxPower  [spells.PowerCount]int

	Team     uint8
	Type     spells.CreatureType
	Form     spells.Form
	InCombat bool
	Moving   bool

	AuraStates     spells.AuraStateMask
	SchoolImmune   spells.School
	MechanicImmune spells.MechanicMask

	// Combat table percentages.
	MissChance     float64
	DodgeChance    float64
	ParryChance    float64
	CritChance     float64
	ResistChance   float64
	ReflectChance  float64
	PushbackResist float64

	WeaponDamage int
	SpellPower   int

	Group    []ID // raid members, including the unit itself
	Subgroup uint8
	Pets     []ID
	Equipped []ID

	Bag      map[uint32]int // item entry -> count
	BagSlots int            // distinct stacks the bag holds, 0 for unlimited

	auras  []*Aura
	states UnitState
}

// NewUnit creates a living unit with full health.
func NewUnit(name string, level, health int) *Unit {
	return &Unit{
		Name:       name,
		Level:      level,
		Health:     health,
		MaxHealth:  health,
		Outdoors:   true,
		MissChance: 5,
		Bag:        make(map[uint32]int),
	}
}

// ID returns the unit's identifier.
func (u *Unit) ID() ID {
	return u.GUID
}

// IsAlive returns true if the unit has health left.
func (u *Unit) IsAlive() bool {
	return u.Health > 0
}

// IsHostileTo returns true if o belongs to another team.
func (u *Unit) IsHostileTo(o *Unit) bool {
	return u.Team != o.Team
}

// IsFriendlyTo returns true if o belongs to the same team.
func (u *Unit) IsFriendlyTo(o *Unit) bool {
	return u.Team == o.Team
}

// InGroupWith returns true if o is in u's raid.
func (u *Unit) InGroupWith(o *Unit) bool {
	if u.GUID == o.GUID {
		return true
	}
	for _, id := range u.Group {
		if id == o.GUID {
			return true
		}
	}
	return false
}

// InPartyWith returns true if o is in u's raid and subgroup.
func (u *Unit) InPartyWith(o *Unit) bool {
	return u.InGroupWith(o) && u.Subgroup == o.Subgroup
}

// HasState returns true if every bit in s is set.
func (u *Unit) HasState(s UnitState) bool {
	return u.states&s == s
}

// States returns the unit's derived state bits.
func (u *Unit) States() UnitState {
	return u.states
}

// CurrentForm returns the form of the latest shapeshift aura, or the unit's base form.
func (u *Unit) CurrentForm() spells.Form {
	for i := len(u.auras) - 1; i >= 0; i-- {
		if u.auras[i].Type == spells.AuraModShapeshift {
			return spells.Form(u.auras[i].MiscValue)
		}
	}
	return u.Form
}

// HasAuraState returns true if the unit currently satisfies s.
// Health based states are computed on demand.
func (u *Unit) HasAuraState(s spells.AuraState) bool {
	switch s {
	case spells.AuraStateNone:
		return true
	case spells.AuraStateHealthLess20:
		return u.Health*100 < u.MaxHealth*20
	case spells.AuraStateHealthLess35:
		return u.Health*100 < u.MaxHealth*35
	case spells.AuraStateHealthAbove75:
		return u.Health*100 > u.MaxHealth*75
	}
	return u.AuraStates.Has(s)
}

// ModifyHealth changes health within [0, MaxHealth] and returns the applied delta.
func (u *Unit) ModifyHealth(delta int) int {
	before := u.Health
	u.Health += delta
	if u.Health < 0 {
		u.Health = 0
	}
	if u.Health > u.MaxHealth {
		u.Health = u.MaxHealth
	}
	return u.Health - before
}

// Kill sets health to zero and drops every aura.
func (u *Unit) Kill() {
	u.Health = 0
	u.auras = nil
	u.recompute()
}

// PowerOf returns the current amount of a power type. PowerHealth reports health.
func (u *Unit) PowerOf(pt spells.PowerType) int {
	if pt == spells.PowerHealth {
		return u.Health
	}
	if pt >= spells.PowerCount {
		return 0
	}
	return u.Power[pt]
}

// MaxPowerOf returns the maximum of a power type.
func (u *Unit) MaxPowerOf(pt spells.PowerType) int {
	if pt == spells.PowerHealth {
		return u.MaxHealth
	}
	if pt >= spells.PowerCount {
		return 0
	}
	return u.MaxPower[pt]
}

// ModifyPower changes a power within [0, max] and returns the applied delta.
func (u *Unit) ModifyPower(pt spells.PowerType, delta int) int {
	if pt == spells.PowerHealth {
		return u.ModifyHealth(delta)
	}
	if pt >= spells.PowerCount {
		return 0
	}
	before := u.Power[pt]
	u.Power[pt] += delta
	if u.Power[pt] < 0 {
		u.Power[pt] = 0
	}
	if u.Power[pt] > u.MaxPower[pt] {
		u.Power[pt] = u.MaxPower[pt]
	}
	return u.Power[pt] - before
}

// HasItem returns true if the bag holds count of entry.
func (u *Unit) HasItem(entry uint32, count int) bool {
	return u.Bag[entry] >= count
}

// RemoveItem takes count of entry from the bag.
func (u *Unit) RemoveItem(entry uint32, count int) bool {
	if u.Bag[entry] < count {
		return false
	}
	u.Bag[entry] -= count
	if u.Bag[entry] == 0 {
		delete(u.Bag, entry)
	}
	return true
}

// CanStore returns true if the bag has room for entry.
func (u *Unit) CanStore(entry uint32) bool {
	if _, ok := u.Bag[entry]; ok || u.BagSlots == 0 {
		return true
	}
	return len(u.Bag) < u.BagSlots
}

// AddItem puts count of entry in the bag. It returns false if the bag is full.
func (u *Unit) AddItem(entry uint32, count int) bool {
	if !u.CanStore(entry) {
		return false
	}
	if u.Bag == nil {
		u.Bag = make(map[uint32]int)
	}
	u.Bag[entry] += count
	return true
}

// AddAura applies an aura, replacing one from the same spell, caster and effect.
func (u *Unit) AddAura(a *Aura) {
	if a.Remaining == 0 {
		a.Remaining = a.Duration
	}
	for i, existing := range u.auras {
		if existing.Matches(a.Spell, a.Caster, a.Effect) {
			u.auras[i] = a
			u.recompute()
			return
		}
	}
	u.auras = append(u.auras, a)
	u.recompute()
}

// FindAura returns the aura from the given spell, caster and effect.
func (u *Unit) FindAura(spell spells.ID, caster ID, effect int) *Aura {
	for _, a := range u.auras {
		if a.Matches(spell, caster, effect) {
			return a
		}
	}
	return nil
}

// Auras returns a copy of the unit's aura list.
func (u *Unit) Auras() []*Aura {
	out := make([]*Aura, len(u.auras))
	copy(out, u.auras)
	return out
}

// AurasOfType returns the unit's auras of type t in application order.
func (u *Unit) AurasOfType(t spells.AuraType) []*Aura {
	var out []*Aura
	for _, a := range u.auras {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// RemoveAura removes a single aura instance.
func (u *Unit) RemoveAura(a *Aura) bool {
	for i, existing := range u.auras {
		if existing == a {
			u.auras = append(u.auras[:i], u.auras[i+1:]...)
			u.recompute()
			return true
		}
	}
	return false
}

// RemoveAurasOfType removes every aura of type t and returns how many were removed.
func (u *Unit) RemoveAurasOfType(t spells.AuraType) int {
	kept := u.auras[:0]
	removed := 0
	for _, a := range u.auras {
		if a.Type == t {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	u.auras = kept
	if removed > 0 {
		u.recompute()
	}
	return removed
}

// IsImmuneToSchool returns true if every school in s is blocked.
func (u *Unit) IsImmuneToSchool(s spells.School) bool {
	if s == 0 {
		return false
	}
	immune := u.SchoolImmune
	for _, a := range u.auras {
		if a.Type == spells.AuraSchoolImmunity {
			immune |= spells.School(a.MiscValue)
		}
	}
	return immune&s == s
}

// IsImmuneToMechanic returns true if mechanic m is blocked.
func (u *Unit) IsImmuneToMechanic(m spells.Mechanic) bool {
	if m == spells.MechanicNone {
		return false
	}
	if u.MechanicImmune.Has(m) {
		return true
	}
	for _, a := range u.auras {
		if a.Type == spells.AuraMechanicImmunity && spells.MechanicMask(a.MiscValue).Has(m) {
			return true
		}
	}
	return false
}

// TotalReflectChance returns the base reflect chance plus reflect auras.
func (u *Unit) TotalReflectChance() float64 {
	c := u.ReflectChance
	for _, a := range u.auras {
		if a.Type == spells.AuraReflectSpells {
			c += float64(a.Amount)
		}
	}
	return c
}

// TotalPushbackResist returns the base pushback resistance plus auras.
func (u *Unit) TotalPushbackResist() float64 {
	c := u.PushbackResist
	for _, a := range u.auras {
		if a.Type == spells.AuraModPushbackResist {
			c += float64(a.Amount)
		}
	}
	return c
}

// UpdateAuras advances aura timers, applies periodic damage and healing,
// and drops expired auras.
func (u *Unit) UpdateAuras(diff time.Duration) []AuraTick {
	var ticks []AuraTick
	kept := u.auras[:0]
	changed := false
	for _, a := range u.auras {
		if a.Period > 0 && u.IsAlive() {
			elapsed := diff
			if a.Duration > 0 && elapsed > a.Remaining {
				elapsed = a.Remaining
			}
			a.tick += elapsed
			for a.tick >= a.Period {
				a.tick -= a.Period
				if t, ok := u.periodic(a); ok {
					ticks = append(ticks, t)
				}
			}
		}
		if a.Duration > 0 {
			a.Remaining -= diff
			if a.Remaining <= 0 {
				changed = true
				continue
			}
		}
		kept = append(kept, a)
	}
	u.auras = kept
	if changed || !u.IsAlive() {
		if !u.IsAlive() {
			u.auras = nil
		}
		u.recompute()
	}
	return ticks
}

func (u *Unit) periodic(a *Aura) (AuraTick, bool) {
	var applied int
	switch a.Type {
	case spells.AuraPeriodicDamage:
		if u.IsImmuneToSchool(a.School) {
			return AuraTick{}, false
		}
		applied = -u.ModifyHealth(-a.Amount)
	case spells.AuraPeriodicHeal:
		applied = u.ModifyHealth(a.Amount)
	default:
		return AuraTick{}, false
	}
	return AuraTick{Spell: a.Spell, Caster: a.Caster, Target: u.GUID, Type: a.Type, Amount: applied}, true
}

func (u *Unit) recompute() {
	var s UnitState
	for _, a := range u.auras {
		s |= auraStates[a.Type]
	}
	u.states = s
}
