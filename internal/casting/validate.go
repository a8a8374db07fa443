package casting

import (
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// spellFocusRange is how close a spell focus object must be.
const spellFocusRange = 10.0

// Validate checks whether a cast may begin (strict) or complete (relaxed).
// It has no side effects. Triggered casts skip the checks that only guard a
// player's own intent: cooldowns, costs, reagents and caster restrictions.
func (m *Manager) Validate(c *Cast, strict bool) CastFailureReason {
	t := c.Spell
	caster, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		return FailCasterGone
	}
	if !c.Triggered {
		if r := m.checkCooldowns(c, caster, strict); r.Failed() {
			return r
		}
		if r := checkRestrictions(t, caster); r.Failed() {
			return r
		}
		if r := checkCasterState(c, caster, strict); r.Failed() {
			return r
		}
		if r := m.checkCost(c, caster); r.Failed() {
			return r
		}
		if r := m.checkReagents(t, caster); r.Failed() {
			return r
		}
	} else if !caster.IsAlive() && !t.HasAttr(spells.AttrCastableWhileDead) {
		return FailCasterDead
	}

	if r := m.checkTargets(c, caster, strict); r.Failed() {
		return r
	}
	return m.checkItems(c, caster)
}

func (m *Manager) checkCooldowns(c *Cast, caster *entity.Unit, strict bool) CastFailureReason {
	t := c.Spell
	if !m.ledgers.Cooldowns.Ready(caster.GUID, t, m.now) {
		return FailNotReady
	}
	if strict && hasGCD(t) && m.ledgers.Cooldowns.GCDActive(caster.GUID, t.GCDCategory, m.now) {
		return FailNotReady
	}
	return FailNone
}

func hasGCD(t *spells.Template) bool {
	return t.GlobalCooldown > 0 || t.GCDCategory != 0
}

// checkRestrictions covers combat, zone, shapeshift and stealth requirements.
func checkRestrictions(t *spells.Template, caster *entity.Unit) CastFailureReason {
	if t.HasAttr(spells.AttrNotInCombat) && caster.InCombat {
		return FailAffectingCombat
	}
	if t.HasAttr(spells.AttrOnlyOutdoors) && !caster.Outdoors {
		return FailOnlyOutdoors
	}
	if t.HasAttr(spells.AttrOnlyIndoors) && caster.Outdoors {
		return FailOnlyIndoors
	}

	form := caster.CurrentForm()
	if t.StancesNot.Has(form) {
		return FailNotShapeshift
	}
	if t.Stances != 0 && !t.Stances.Has(form) {
		if form == spells.FormNone {
			return FailOnlyShapeshift
		}
		return FailNotShapeshift
	}

	if t.HasAttr(spells.AttrOnlyStealthed) && !caster.HasState(entity.StateStealthed) {
		return FailOnlyStealthed
	}
	return FailNone
}

// grantsImmunity returns true if the spell itself removes the mechanic, which
// makes it usable while under that mechanic.
func grantsImmunity(t *spells.Template, mech spells.Mechanic) bool {
	for _, e := range t.Effects {
		if e.Type == spells.EffectApplyAura && e.Aura == spells.AuraMechanicImmunity &&
			spells.MechanicMask(e.MiscValue).Has(mech) {
			return true
		}
	}
	return false
}

func checkCasterState(c *Cast, caster *entity.Unit, strict bool) CastFailureReason {
	t := c.Spell
	if !caster.IsAlive() && !t.HasAttr(spells.AttrCastableWhileDead) {
		return FailCasterDead
	}
	if r := incapacitated(t, caster); r.Failed() {
		return r
	}
	if t.CasterAuraState != spells.AuraStateNone && !caster.HasAuraState(t.CasterAuraState) {
		return FailCasterAuraState
	}
	if strict && caster.Moving && c.CastTime > 0 && t.InterruptFlags&spells.InterruptMovement != 0 {
		return FailMoving
	}
	return FailNone
}

// incapacitated reports the crowd control state that prevents the caster from using t.
func incapacitated(t *spells.Template, caster *entity.Unit) CastFailureReason {
	switch {
	case caster.HasState(entity.StateStunned) && !t.HasAttr(spells.AttrUsableWhileStunned) &&
		!grantsImmunity(t, spells.MechanicStun):
		return FailStunned
	case caster.HasState(entity.StateFeared) && !t.HasAttr(spells.AttrUsableWhileFeared) &&
		!grantsImmunity(t, spells.MechanicFear):
		return FailFleeing
	case caster.HasState(entity.StateConfused) && !t.HasAttr(spells.AttrUsableWhileConfused) &&
		!grantsImmunity(t, spells.MechanicDisorient):
		return FailConfused
	case caster.HasState(entity.StateSilenced) && t.DamageClass == spells.DamageClassMagic &&
		!grantsImmunity(t, spells.MechanicSilence):
		return FailSilenced
	case caster.HasState(entity.StatePacified) &&
		(t.DamageClass == spells.DamageClassMelee || t.DamageClass == spells.DamageClassRanged):
		return FailPacified
	}
	return FailNone
}

// powerCost returns the resource a cast of t costs caster.
func powerCost(t *spells.Template, caster *entity.Unit) int {
	cost := t.PowerCost
	if t.PowerCostPct > 0 {
		cost += caster.MaxPowerOf(t.PowerType) * t.PowerCostPct / 100
	}
	return cost
}

func (m *Manager) checkCost(c *Cast, caster *entity.Unit) CastFailureReason {
	t := c.Spell
	cost := powerCost(t, caster)
	if t.PowerType == spells.PowerHealth {
		if cost > 0 && caster.Health <= cost {
			return FailNoPower
		}
	} else if caster.PowerOf(t.PowerType) < cost {
		return FailNoPower
	}
	if t.HasAttr(spells.AttrFinishingMove) {
		target := c.Explicit.Unit
		if target == 0 || m.ledgers.Combo.Points(caster.GUID, target) == 0 {
			return FailNoComboPoints
		}
	}
	return FailNone
}

func (m *Manager) checkReagents(t *spells.Template, caster *entity.Unit) CastFailureReason {
	for _, r := range t.Reagents {
		if !caster.HasItem(r.Item, r.Count) {
			return FailReagents
		}
	}
	for _, tool := range t.Tools {
		if !caster.HasItem(tool, 1) {
			return FailTotems
		}
	}
	if t.SpellFocus != 0 && !m.focusNearby(caster, t.SpellFocus) {
		return FailRequiresSpellFocus
	}
	return FailNone
}

func (m *Manager) focusNearby(caster *entity.Unit, focus uint32) bool {
	for _, id := range m.lookup.QueryObjects(entity.Query{Center: caster.Pos, Radius: spellFocusRange}) {
		if o, ok := m.lookup.FindObject(id); ok && o.FocusID == focus {
			return true
		}
	}
	return false
}

// missing tells apart a target that is gone from one owned by another partition.
func (m *Manager) missing(id entity.ID) CastFailureReason {
	if k, ok := m.lookup.Locate(id); ok && k != m.key {
		return FailTargetNotInPartition
	}
	return FailBadTargets
}

func (m *Manager) checkTargets(c *Cast, caster *entity.Unit, strict bool) CastFailureReason {
	t := c.Spell
	if t.RequiredZone != 0 && caster.Zone != t.RequiredZone {
		return FailIncorrectArea
	}

	slack := 0.0
	if !strict {
		slack = m.cfg.RangeSlack(t.MaxRange)
	}

	if c.Explicit.Unit != 0 || t.NeedsExplicitUnit() {
		if c.Explicit.Unit == 0 {
			return FailBadTargets
		}
		target, ok := m.lookup.FindUnit(c.Explicit.Unit)
		if !ok {
			return m.missing(c.Explicit.Unit)
		}
		if r := m.checkUnitTarget(c, caster, target, slack); r.Failed() {
			return r
		}
	}

	if t.NeedsExplicitDest() {
		if !c.Explicit.HasDest {
			return FailBadTargets
		}
		if r := m.checkPoint(t, caster, c.Explicit.Dest, slack); r.Failed() {
			return r
		}
	}

	if c.Explicit.Object != 0 {
		o, ok := m.lookup.FindObject(c.Explicit.Object)
		if !ok {
			return m.missing(c.Explicit.Object)
		}
		if r := m.checkPoint(t, caster, o.Pos, slack); r.Failed() {
			return r
		}
		if t.HasEffect(spells.EffectOpenLock) && o.Open {
			return FailAlreadyOpen
		}
	}
	return FailNone
}

func (m *Manager) checkPoint(t *spells.Template, caster *entity.Unit, p entity.Position, slack float64) CastFailureReason {
	d := caster.Pos.Distance(p)
	if t.MaxRange > 0 && d > t.MaxRange+slack {
		return FailOutOfRange
	}
	if d < t.MinRange {
		return FailTooClose
	}
	if !t.HasAttr(spells.AttrIgnoreLineOfSight) && !m.lookup.InLineOfSight(caster.Pos, p) {
		return FailLineOfSight
	}
	return FailNone
}

// checkUnitTarget checks the explicit unit against every effect that targets it.
func (m *Manager) checkUnitTarget(c *Cast, caster, target *entity.Unit, slack float64) CastFailureReason {
	t := c.Spell
	self := target.GUID == caster.GUID

	if !self && !t.TargetCreatureTypes.Allows(target.Type) {
		return FailBadTargets
	}
	switch {
	case t.HasAttr(spells.AttrRequireDeadTarget):
		if target.IsAlive() {
			return FailTargetNotDead
		}
	case !target.IsAlive() && !t.HasAttr(spells.AttrAllowDeadTarget):
		return FailTargetsDead
	}

	for i, e := range t.Effects {
		for _, mode := range [2]spells.Target{e.TargetA, e.TargetB} {
			info := spells.TargetInfoOf(mode)
			if info.Object != spells.ObjectUnit || info.Reference != spells.RefTarget {
				continue
			}
			if r := relation(info.Check, t.IsPositiveEffect(i), caster, target); r.Failed() {
				return r
			}
		}
	}

	if !self {
		if r := m.checkPoint(t, caster, target.Pos, slack); r.Failed() {
			return r
		}
		if t.HasAttr(spells.AttrRequireFacing) && !caster.Pos.InFront(target.Pos) {
			return FailNotInfront
		}
	}
	if t.MaxTargetLevel > 0 && target.Level > t.MaxTargetLevel {
		return FailHighLevel
	}
	if t.TargetAuraState != spells.AuraStateNone && !target.HasAuraState(t.TargetAuraState) {
		return FailTargetAuraState
	}
	return FailNone
}

// relation applies a target mode's friend or foe policy to the explicit target.
func relation(check spells.Check, positive bool, caster, target *entity.Unit) CastFailureReason {
	self := caster.GUID == target.GUID
	switch check {
	case spells.CheckEnemy:
		if self || caster.IsFriendlyTo(target) {
			return FailTargetFriendly
		}
	case spells.CheckAlly:
		if caster.IsHostileTo(target) {
			return FailTargetEnemy
		}
	case spells.CheckParty:
		if !caster.InPartyWith(target) {
			return FailBadTargets
		}
	case spells.CheckRaid:
		if !caster.InGroupWith(target) {
			return FailBadTargets
		}
	case spells.CheckAny:
		if positive && caster.IsHostileTo(target) {
			return FailTargetEnemy
		}
		if !positive && self {
			return FailTargetFriendly
		}
	}
	return FailNone
}

// checkItems covers equipped item requirements and explicit item targets.
func (m *Manager) checkItems(c *Cast, caster *entity.Unit) CastFailureReason {
	t := c.Spell
	if t.ItemClass >= 0 && !m.hasEquipped(caster, t.ItemClass, t.ItemSubclassMask) {
		return FailEquippedItemClass
	}

	needsItem := false
	for _, e := range t.Effects {
		if e.TargetA == spells.TargetItem || e.TargetB == spells.TargetItem {
			needsItem = true
		}
	}
	if needsItem || c.Explicit.Item != 0 {
		if c.Explicit.Item == 0 {
			return FailItemGone
		}
		it, ok := m.lookup.FindItem(c.Explicit.Item)
		if !ok {
			return FailItemGone
		}
		if it.NotReady {
			return FailItemNotReady
		}
		if t.HasEffect(spells.EffectDisenchant) {
			proto, ok := m.content.ItemPrototype(it.Entry)
			if !ok || !proto.Disenchantable() {
				return FailCantBeDisenchanted
			}
			if !caster.CanStore(proto.DisenchantInto) {
				return FailInventoryFull
			}
		}
	}

	for _, e := range t.Effects {
		if e.Type == spells.EffectCreateItem && !caster.CanStore(e.ItemType) {
			return FailInventoryFull
		}
	}
	return FailNone
}

func (m *Manager) hasEquipped(caster *entity.Unit, class int, subclassMask uint32) bool {
	for _, id := range caster.Equipped {
		it, ok := m.lookup.FindItem(id)
		if !ok || it.Class != class {
			continue
		}
		if subclassMask == 0 || subclassMask&(1<<uint(it.Subclass)) != 0 {
			return true
		}
	}
	return false
}
