package casting

import (
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
	"github.com/lawnchairsociety/castcore/internal/stats"
)

// procFlags returns the attacker and victim flags for a hit of t with the given slots.
func procFlags(t *spells.Template, mask uint8) (done, taken spells.ProcFlags) {
	switch {
	case t.DamageClass == spells.DamageClassMelee:
		return spells.ProcDoneMeleeSpell, spells.ProcTakenMeleeSpell
	case t.DamageClass == spells.DamageClassRanged:
		return spells.ProcDoneRangedSpell, spells.ProcTakenRangedSpell
	case harmful(t, mask):
		return spells.ProcDoneNegativeSpell, spells.ProcTakenNegativeSpell
	}
	return spells.ProcDonePositiveSpell, spells.ProcTakenPositiveSpell
}

// emitProcs reports one hit from both sides and fires proc auras it satisfies.
func (m *Manager) emitProcs(c *Cast, attacker, victim *entity.Unit, mask uint8, ex spells.ProcEx, dealt int, killed bool) {
	if c.Spell.HasAttr(spells.AttrNoProcs) {
		return
	}
	done, taken := procFlags(c.Spell, mask)
	m.fireProcs(c.Spell.ID, attacker, victim, done, taken, ex, dealt, killed, c.ByAura)
}

// emitPeriodicProcs reports a channel tick or an aura tick.
func (m *Manager) emitPeriodicProcs(spell spells.ID, attacker, victim *entity.Unit, dealt int, killed, positive bool) {
	ex := spells.ProcExNormalHit
	done, taken := spells.ProcDonePeriodic, spells.ProcTakenPeriodic
	if positive {
		done |= spells.ProcDonePositiveSpell
		taken |= spells.ProcTakenPositiveSpell
	}
	m.fireProcs(spell, attacker, victim, done, taken, ex, dealt, killed, false)
}

func (m *Manager) fireProcs(spell spells.ID, attacker, victim *entity.Unit, done, taken spells.ProcFlags, ex spells.ProcEx, dealt int, killed, byAura bool) {
	if dealt > 0 {
		taken |= spells.ProcTakenDamage
	}
	if killed {
		done |= spells.ProcKill
		taken |= spells.ProcKilled
	}
	if m.combat != nil {
		m.combat.Proc(ProcEvent{Actor: attacker.GUID, Other: victim.GUID, Spell: spell, Flags: done, Ex: ex, Amount: dealt})
		m.combat.Proc(ProcEvent{Actor: victim.GUID, Other: attacker.GUID, Spell: spell, Flags: taken, Ex: ex, Amount: dealt})
	}
	// casts started by a proc never start more procs
	if byAura {
		return
	}
	m.procAuras(attacker, victim, done, ex)
	if victim.GUID != attacker.GUID {
		m.procAuras(victim, attacker, taken, ex)
	}
}

// procAuras fires the proc trigger auras of owner matching flags.
func (m *Manager) procAuras(owner, other *entity.Unit, flags spells.ProcFlags, ex spells.ProcEx) {
	if flags&(spells.ProcKill|spells.ProcKilled) == 0 &&
		ex&(spells.ProcExNormalHit|spells.ProcExCriticalHit) == 0 {
		return
	}
	for _, a := range owner.AurasOfType(spells.AuraProcTriggerSpell) {
		if a.ProcFlags&flags == 0 || a.TriggerSpell == 0 || a.Available() == 0 {
			continue
		}
		chance := float64(a.ProcChance)
		if chance == 0 {
			chance = 100
		}
		if !stats.Chance(m.rand, chance) {
			continue
		}
		if a.ConsumeCharge() {
			owner.RemoveAura(a)
		}
		target := other.GUID
		if t, ok := m.content.Spell(a.TriggerSpell); ok && t.IsPositive() {
			target = owner.GUID
		}
		m.trigger(nil, owner.GUID, a.TriggerSpell, UnitTarget(target), true)
	}
}

// OnAuraTicks reports periodic aura damage and healing, dealt during the map
// update, to combat listeners, proc auras and pushback.
func (m *Manager) OnAuraTicks(ticks []entity.AuraTick) {
	for _, t := range ticks {
		victim, ok := m.lookup.FindUnit(t.Target)
		if !ok {
			continue
		}
		attacker, ok := m.lookup.FindUnit(t.Caster)
		if !ok {
			attacker = victim
		}
		damage := t.Type == spells.AuraPeriodicDamage
		dealt := 0
		if damage {
			dealt = t.Amount
		}
		killed := damage && !victim.IsAlive()
		m.emitPeriodicProcs(t.Spell, attacker, victim, dealt, killed, !damage)
		if dealt > 0 {
			m.OnDamageTaken(victim.GUID, dealt)
		}
	}
	m.flush()
}
