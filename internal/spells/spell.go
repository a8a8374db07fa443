// Package spells provides spell templates, the static definitions every cast is built from.
package spells

import (
	"fmt"
	"time"
)

// ID identifies a spell template.
type ID uint32

// MaxEffects is the number of effect slots a template may declare.
const MaxEffects = 3

// School is a bitmask of magic schools.
type School uint8

const (
	SchoolPhysical School = 1 << iota
	SchoolHoly
	SchoolFire
	SchoolNature
	SchoolFrost
	SchoolShadow
	SchoolArcane

	SchoolMagic = SchoolHoly | SchoolFire | SchoolNature | SchoolFrost | SchoolShadow | SchoolArcane
	SchoolAll   = SchoolPhysical | SchoolMagic
)

// Has returns true if any school in other is also in s.
func (s School) Has(other School) bool {
	return s&other != 0
}

// DamageClass decides which hit table a spell rolls against.
type DamageClass uint8

const (
	DamageClassNone DamageClass = iota
	DamageClassMagic
	DamageClassMelee
	DamageClassRanged
)

// Mechanic classifies crowd control and similar effects for immunities.
type Mechanic uint8

const (
	MechanicNone Mechanic = iota
	MechanicCharm
	MechanicDisorient
	MechanicDisarm
	MechanicFear
	MechanicRoot
	MechanicSilence
	MechanicSleep
	MechanicSnare
	MechanicStun
	MechanicFreeze
	MechanicKnockout
	MechanicBleed
	MechanicPolymorph
	MechanicBanish
	MechanicShield
	MechanicHorror
	MechanicInterrupt
)

// MechanicMask is a set of mechanics.
type MechanicMask uint32

// Mask returns the single-bit mask for m.
func (m Mechanic) Mask() MechanicMask {
	if m == MechanicNone {
		return 0
	}
	return 1 << (m - 1)
}

// Has returns true if m is in the mask.
func (mm MechanicMask) Has(m Mechanic) bool {
	return m != MechanicNone && mm&m.Mask() != 0
}

// PowerType is the resource a spell costs.
type PowerType uint8

const (
	PowerMana PowerType = iota
	PowerRage
	PowerFocus
	PowerEnergy
	PowerCount

	// PowerHealth marks a spell paid with health instead of a power pool.
	PowerHealth PowerType = 0xFE
)

// Form is a shapeshift form or stance. FormNone is the caster's normal shape.
type Form uint8

const (
	FormNone Form = iota
	FormCat
	FormBear
	FormTravel
	FormMoonkin
	FormBattleStance
	FormDefensiveStance
	FormBerserkerStance
	FormShadow
	FormStealth
)

// FormMask is a set of forms. Bit 0 is FormNone.
type FormMask uint32

// Has returns true if f is in the mask.
func (m FormMask) Has(f Form) bool {
	return m&(1<<f) != 0
}

// AuraState is a transient unit condition some spells require.
type AuraState uint8

const (
	AuraStateNone AuraState = iota
	AuraStateDefense
	AuraStateHealthLess20
	AuraStateBerserking
	AuraStateFrozen
	AuraStateJudgement
	AuraStateHunterParry
	AuraStateHealthLess35
	AuraStateHealthAbove75
)

// AuraStateMask is a set of aura states.
type AuraStateMask uint32

// Has returns true if s is in the mask.
func (m AuraStateMask) Has(s AuraState) bool {
	return s != AuraStateNone && m&(1<<(s-1)) != 0
}

// With returns the mask with s added.
func (m AuraStateMask) With(s AuraState) AuraStateMask {
	if s == AuraStateNone {
		return m
	}
	return m | 1<<(s-1)
}

// CreatureType is a unit's creature family.
type CreatureType uint8

const (
	CreatureTypeNone CreatureType = iota
	CreatureTypeBeast
	CreatureTypeDragonkin
	CreatureTypeDemon
	CreatureTypeElemental
	CreatureTypeGiant
	CreatureTypeUndead
	CreatureTypeHumanoid
	CreatureTypeCritter
	CreatureTypeMechanical
)

// CreatureTypeMask is a set of creature types. Zero means any.
type CreatureTypeMask uint32

// Allows returns true if the mask is empty or contains t.
func (m CreatureTypeMask) Allows(t CreatureType) bool {
	if m == 0 {
		return true
	}
	if t == CreatureTypeNone {
		return false
	}
	return m&(1<<(t-1)) != 0
}

// DRGroup groups crowd control auras that share diminishing returns.
type DRGroup uint8

const (
	DRNone DRGroup = iota
	DRStun
	DRRoot
	DRFear
	DRSilence
	DRIncapacitate
	DRDisorient
)

// Attr is the attribute flag set of a template.
type Attr uint64

const (
	AttrPassive Attr = 1 << iota
	AttrChanneled
	AttrAutoRepeat
	AttrNextSwing
	AttrBreaksStealth
	AttrNotInCombat
	AttrOnlyOutdoors
	AttrOnlyIndoors
	AttrOnlyStealthed
	AttrCastableWhileDead
	AttrIgnoreLineOfSight
	AttrCantBeReflected
	AttrImpossibleDodgeParry
	AttrCantCrit
	AttrUsableWhileStunned
	AttrUsableWhileFeared
	AttrUsableWhileConfused
	AttrFinishingMove
	AttrRequireFacing
	AttrIncludePets
	AttrNegative
	AttrRequireDeadTarget
	AttrAllowDeadTarget
	AttrIgnoreImmunity
	AttrNoProcs
)

// InterruptFlags control what interrupts a spell during its cast time.
type InterruptFlags uint8

const (
	InterruptMovement InterruptFlags = 1 << iota
	InterruptPushback
	InterruptStun
)

// ChannelInterruptFlags control what interrupts a channel.
type ChannelInterruptFlags uint8

const (
	ChannelInterruptMovement ChannelInterruptFlags = 1 << iota
	ChannelInterruptDelay
	ChannelInterruptTurning
)

// ProcFlags describe the situations an event happened in, from one side of it.
type ProcFlags uint32

const (
	ProcKilled ProcFlags = 1 << iota
	ProcKill
	ProcDoneMeleeSpell
	ProcTakenMeleeSpell
	ProcDoneRangedSpell
	ProcTakenRangedSpell
	ProcDonePositiveSpell
	ProcTakenPositiveSpell
	ProcDoneNegativeSpell
	ProcTakenNegativeSpell
	ProcDonePeriodic
	ProcTakenPeriodic
	ProcTakenDamage
)

// ProcEx describes the outcome that produced an event.
type ProcEx uint32

const (
	ProcExNormalHit ProcEx = 1 << iota
	ProcExCriticalHit
	ProcExMiss
	ProcExResist
	ProcExDodge
	ProcExParry
	ProcExImmune
	ProcExReflect
)

// Reagent is an item consumed by a cast.
type Reagent struct {
	Item  uint32
	Count int
}

// Effect is one of the up to three independent sub-effects of a template.
type Effect struct {
	Type           EffectType
	BasePoints     int
	DiceCount      int
	DieSides       int
	PointsPerLevel float64
	PointsPerCombo int
	TargetA        Target
	TargetB        Target
	Radius         float64
	ChainTargets   int
	ChainAmplitude float64 // value multiplier per chain hop, 0 means no falloff
	Aura           AuraType
	Period         int // ms; periodic aura tick or channel tick
	MiscValue      int // power type, creature entry, lock type, enchant id, form
	Mechanic       Mechanic
	TriggerSpell   ID
	ItemType       uint32
}

// Template is the immutable definition of a castable ability.
type Template struct {
	ID          ID
	Name        string
	Description string

	School      School
	DamageClass DamageClass
	Mechanic    Mechanic
	Attributes  Attr

	InterruptFlags        InterruptFlags
	ChannelInterruptFlags ChannelInterruptFlags

	CastTime int     // ms
	Duration int     // ms; aura duration or channel length
	Speed    float64 // yards per second, 0 = instant hit

	Recovery         int // ms
	CategoryRecovery int // ms
	Category         uint32
	GlobalCooldown   int // ms
	GCDCategory      uint32

	PowerType    PowerType
	PowerCost    int
	PowerCostPct int // percent of max power

	MinRange float64
	MaxRange float64

	MaxTargets     int
	MaxTargetLevel int
	RequiredZone   uint32
	ConeAngle      float64 // degrees, full angle

	Reagents   []Reagent
	Tools      []uint32
	SpellFocus uint32

	Stances    FormMask
	StancesNot FormMask

	CasterAuraState     AuraState
	TargetAuraState     AuraState
	TargetCreatureTypes CreatureTypeMask

	ItemClass        int // -1 means no requirement
	ItemSubclassMask uint32

	DiminishingGroup DRGroup

	ProcFlags   ProcFlags
	ProcChance  int
	ProcCharges int

	ScriptName string

	Effects []Effect
}

// HasAttr returns true if every flag in a is set.
func (t *Template) HasAttr(a Attr) bool {
	return t.Attributes&a == a
}

// IsChanneled returns true if the spell is channeled.
func (t *Template) IsChanneled() bool {
	return t.HasAttr(AttrChanneled)
}

// IsPassive returns true for passive spells, which are never cast.
func (t *Template) IsPassive() bool {
	return t.HasAttr(AttrPassive)
}

// IsDelayed returns true if the spell travels to its targets.
func (t *Template) IsDelayed() bool {
	return t.Speed > 0
}

// CastDuration returns the base cast time.
func (t *Template) CastDuration() time.Duration {
	return time.Duration(t.CastTime) * time.Millisecond
}

// AuraDuration returns the aura or channel duration.
func (t *Template) AuraDuration() time.Duration {
	return time.Duration(t.Duration) * time.Millisecond
}

// HasEffect returns true if the spell has an effect of the given type.
func (t *Template) HasEffect(et EffectType) bool {
	for _, e := range t.Effects {
		if e.Type == et {
			return true
		}
	}
	return false
}

// IsPositiveEffect returns true if effect i helps its target.
func (t *Template) IsPositiveEffect(i int) bool {
	if t.HasAttr(AttrNegative) || i < 0 || i >= len(t.Effects) {
		return false
	}
	e := t.Effects[i]
	switch e.Type {
	case EffectSchoolDamage, EffectWeaponDamage, EffectInstaKill, EffectPowerDrain, EffectInterruptCast:
		return false
	case EffectApplyAura:
		if e.Aura.IsNegative() {
			return false
		}
	}
	if TargetInfoOf(e.TargetA).Check == CheckEnemy || TargetInfoOf(e.TargetB).Check == CheckEnemy {
		return false
	}
	return true
}

// IsPositive returns true if every effect of the spell is positive.
func (t *Template) IsPositive() bool {
	for i := range t.Effects {
		if !t.IsPositiveEffect(i) {
			return false
		}
	}
	return true
}

// EffectMask returns the mask with a bit for every declared effect.
func (t *Template) EffectMask() uint8 {
	var m uint8
	for i, e := range t.Effects {
		if e.Type != EffectNone {
			m |= 1 << i
		}
	}
	return m
}

// NeedsExplicitUnit returns true if some effect targets the explicitly supplied unit.
func (t *Template) NeedsExplicitUnit() bool {
	for _, e := range t.Effects {
		for _, tm := range []Target{e.TargetA, e.TargetB} {
			info := TargetInfoOf(tm)
			if info.Object == ObjectUnit && info.Reference == RefTarget {
				return true
			}
		}
	}
	return false
}

// NeedsExplicitDest returns true if some effect needs a ground point from the requester.
func (t *Template) NeedsExplicitDest() bool {
	for _, e := range t.Effects {
		if e.TargetA == TargetDestDest || e.TargetB == TargetDestDest {
			return true
		}
	}
	return false
}

// ChannelPeriod returns the shortest channel tick among periodic effects, or 0.
func (t *Template) ChannelPeriod() time.Duration {
	var p int
	for _, e := range t.Effects {
		if e.Period > 0 && (p == 0 || e.Period < p) {
			p = e.Period
		}
	}
	return time.Duration(p) * time.Millisecond
}

// Validate reports template definition errors.
func (t *Template) Validate() []error {
	var errs []error
	if t.ID == 0 {
		errs = append(errs, fmt.Errorf("spell %q: missing id", t.Name))
	}
	if len(t.Effects) == 0 && !t.IsPassive() {
		errs = append(errs, fmt.Errorf("spell %d: no effects", t.ID))
	}
	if len(t.Effects) > MaxEffects {
		errs = append(errs, fmt.Errorf("spell %d: %d effects, max %d", t.ID, len(t.Effects), MaxEffects))
	}
	if t.MinRange > t.MaxRange && t.MaxRange > 0 {
		errs = append(errs, fmt.Errorf("spell %d: min range %.1f above max range %.1f", t.ID, t.MinRange, t.MaxRange))
	}
	if t.IsChanneled() && t.Duration <= 0 {
		errs = append(errs, fmt.Errorf("spell %d: channeled without duration", t.ID))
	}
	for i, e := range t.Effects {
		if _, ok := targetTable[e.TargetA]; !ok {
			errs = append(errs, fmt.Errorf("spell %d effect %d: unknown target_a %d", t.ID, i, e.TargetA))
		}
		if _, ok := targetTable[e.TargetB]; !ok {
			errs = append(errs, fmt.Errorf("spell %d effect %d: unknown target_b %d", t.ID, i, e.TargetB))
		}
		if e.Type == EffectApplyAura && e.Aura == AuraNone {
			errs = append(errs, fmt.Errorf("spell %d effect %d: apply_aura without aura", t.ID, i))
		}
		if e.Type == EffectTriggerSpell && e.TriggerSpell == 0 {
			errs = append(errs, fmt.Errorf("spell %d effect %d: trigger_spell without spell", t.ID, i))
		}
		if e.Type == EffectCreateItem && e.ItemType == 0 {
			errs = append(errs, fmt.Errorf("spell %d effect %d: create_item without item", t.ID, i))
		}
		areaMode := TargetInfoOf(e.TargetA).Selection.NeedsRadius() || TargetInfoOf(e.TargetB).Selection.NeedsRadius()
		if areaMode && e.Radius <= 0 {
			errs = append(errs, fmt.Errorf("spell %d effect %d: area target without radius", t.ID, i))
		}
	}
	return errs
}
