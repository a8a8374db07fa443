package casting

import (
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
	"github.com/lawnchairsociety/castcore/internal/stats"
)

// Crit multipliers per hit table.
const (
	spellCritMultiplier = 1.5
	meleeCritMultiplier = 2.0
)

// harmful returns true if any effect slot in mask is negative.
func harmful(t *spells.Template, mask uint8) bool {
	for i := range t.Effects {
		if mask&(1<<i) != 0 && !t.IsPositiveEffect(i) {
			return true
		}
	}
	return false
}

// rollHit decides how a harmful spell lands on victim. Helpful spells and
// self casts always hit.
func (m *Manager) rollHit(t *spells.Template, mask uint8, attacker, victim *entity.Unit) HitOutcome {
	if attacker.GUID == victim.GUID || !harmful(t, mask) {
		return HitNormal
	}
	if immune(t, victim) {
		return HitImmune
	}
	switch t.DamageClass {
	case spells.DamageClassMelee, spells.DamageClassRanged:
		return m.rollMelee(t, attacker, victim)
	}
	return m.rollMagic(attacker, victim)
}

// immune returns true if the victim blocks the spell's school or mechanic.
func immune(t *spells.Template, victim *entity.Unit) bool {
	if t.HasAttr(spells.AttrIgnoreImmunity) {
		return false
	}
	return victim.IsImmuneToSchool(t.School) || victim.IsImmuneToMechanic(t.Mechanic)
}

// magicHitChance is the chance in percent for a spell to land on a target of
// the given level relative to the caster. Higher level targets get much harder
// to hit past a two level gap, players less so than creatures.
func magicHitChance(attackerLevel, victimLevel int, victimIsPlayer bool) float64 {
	diff := victimLevel - attackerLevel
	penalty := 11
	if victimIsPlayer {
		penalty = 7
	}
	var chance int
	if diff < 3 {
		chance = 96 - diff
	} else {
		chance = 94 - (diff-2)*penalty
	}
	if chance < 1 {
		chance = 1
	}
	if chance > 100 {
		chance = 100
	}
	return float64(chance)
}

func (m *Manager) rollMagic(attacker, victim *entity.Unit) HitOutcome {
	resist := 100 - magicHitChance(attacker.Level, victim.Level, victim.Player) + victim.ResistChance
	if stats.Chance(m.rand, resist) {
		return HitResist
	}
	return HitNormal
}

// rollMelee walks a single roll through the miss, dodge and parry bands.
func (m *Manager) rollMelee(t *spells.Template, attacker, victim *entity.Unit) HitOutcome {
	roll := m.rand.Float64() * 100
	band := victim.MissChance
	if roll < band {
		return HitMiss
	}
	if t.HasAttr(spells.AttrImpossibleDodgeParry) || t.DamageClass == spells.DamageClassRanged {
		return HitNormal
	}
	band += victim.DodgeChance
	if roll < band {
		return HitDodge
	}
	if victim.Pos.InFront(attacker.Pos) {
		band += victim.ParryChance
		if roll < band {
			return HitParry
		}
	}
	return HitNormal
}

// rollReflect returns true if a magic spell bounces back off the victim.
func (m *Manager) rollReflect(t *spells.Template, attacker, victim *entity.Unit) bool {
	if t.DamageClass != spells.DamageClassMagic || t.HasAttr(spells.AttrCantBeReflected) ||
		attacker.GUID == victim.GUID {
		return false
	}
	return stats.Chance(m.rand, victim.TotalReflectChance())
}

func (m *Manager) rollCrit(t *spells.Template, attacker *entity.Unit) bool {
	if t.HasAttr(spells.AttrCantCrit) {
		return false
	}
	return stats.Chance(m.rand, attacker.CritChance)
}

func critMultiplier(t *spells.Template) float64 {
	if t.DamageClass == spells.DamageClassMelee || t.DamageClass == spells.DamageClassRanged {
		return meleeCritMultiplier
	}
	return spellCritMultiplier
}

// procEx maps a hit outcome to the proc outcome flags.
func procEx(o HitOutcome, crit, reflected bool) spells.ProcEx {
	var ex spells.ProcEx
	switch o {
	case HitNormal:
		if crit {
			ex = spells.ProcExCriticalHit
		} else {
			ex = spells.ProcExNormalHit
		}
	case HitMiss:
		ex = spells.ProcExMiss
	case HitResist:
		ex = spells.ProcExResist
	case HitDodge:
		ex = spells.ProcExDodge
	case HitParry:
		ex = spells.ProcExParry
	case HitImmune:
		ex = spells.ProcExImmune
	}
	if reflected {
		ex |= spells.ProcExReflect
	}
	return ex
}
