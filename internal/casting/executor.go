package casting

import (
	"sort"
	"time"

	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// ApplyTarget applies every effect slot of the entry that has not landed yet.
func (m *Manager) ApplyTarget(c *Cast, e *TargetEntry) {
	m.applyUnit(c, e, e.Mask)
}

// Apply applies effect slot i to the entry. Applying a slot twice is a no-op.
func (m *Manager) Apply(c *Cast, e *TargetEntry, i int) {
	if i < 0 || i >= spells.MaxEffects {
		return
	}
	m.applyUnit(c, e, 1<<i)
}

// guard recovers a panic raised while applying effects to one target, so the
// rest of the cast and the partition keep going.
func (m *Manager) guard(c *Cast, target entity.ID, done func()) {
	if r := recover(); r != nil {
		m.log.Error("recovered panic applying spell", "spell", c.Spell.ID, "caster", c.Caster, "target", target, "panic", r)
		done()
	}
}

// drop gives up on an entry and reports every slot it still owed as failed.
func (m *Manager) drop(c *Cast, e *TargetEntry, mask uint8, reason CastFailureReason) {
	e.Processed = true
	e.Dropped = true
	e.Failure = reason
	m.log.Debug("dropped cast target", "spell", c.Spell.ID, "caster", c.Caster, "target", e.Target, "reason", reason)
	for i := range c.Spell.Effects {
		if mask&(1<<i) == 0 {
			continue
		}
		m.notify.EffectApplied(EffectApplied{
			Handle:  c.Handle,
			Spell:   c.Spell.ID,
			Caster:  c.Caster,
			Target:  e.Target,
			Effect:  i,
			Type:    c.Spell.Effects[i].Type,
			Failure: reason,
		})
	}
}

func (m *Manager) applyUnit(c *Cast, e *TargetEntry, mask uint8) {
	if e.Processed {
		return
	}
	mask &= e.Mask &^ e.applied
	if mask == 0 {
		if e.applied == e.Mask {
			e.Processed = true
		}
		return
	}
	defer m.guard(c, e.Target, func() {
		e.applied |= mask
		e.Processed = e.applied == e.Mask
	})

	t := c.Spell
	caster, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		m.drop(c, e, mask, FailCasterGone)
		return
	}
	target, ok := m.lookup.FindUnit(e.Target)
	if !ok {
		m.drop(c, e, mask, m.missing(e.Target))
		return
	}
	if !target.IsAlive() && !landsOnDead(t, caster, target) {
		m.drop(c, e, mask, FailTargetsDead)
		return
	}
	if t.IsDelayed() && target.GUID != caster.GUID && !t.HasAttr(spells.AttrIgnoreLineOfSight) &&
		!m.lookup.InLineOfSight(caster.Pos, target.Pos) {
		m.drop(c, e, mask, FailLineOfSight)
		return
	}

	outcome, victim := e.Miss, target
	if e.Reflect {
		outcome, victim = e.ReflectMiss, caster
	}
	if outcome == HitNormal && harmful(t, mask) && victim.GUID != caster.GUID && immune(t, victim) {
		outcome = HitImmune
	}

	hit := &effectCtx{m: m, cast: c, caster: caster, target: victim, hop: e.Hop, crit: e.Crit, dest: c.Dest}
	for i := range t.Effects {
		bit := uint8(1) << i
		if mask&bit == 0 {
			continue
		}
		e.applied |= bit
		m.applyEffect(hit, i, outcome, e.Reflect)
	}
	e.Processed = e.applied == e.Mask

	switch {
	case e.Reflect:
		// the reflecting unit reports the reflect, the bounced copy fires nothing of its own
		m.emitProcs(c, caster, target, mask, procEx(HitNormal, false, true), 0, false)
	case outcome == HitNormal || !harmful(t, mask):
		m.emitProcs(c, caster, target, mask, procEx(outcome, e.Crit, false), hit.dealt, hit.killed)
	default:
		m.emitProcs(c, caster, target, mask, procEx(outcome, false, false), 0, false)
	}
}

// landsOnDead returns true if t still applies to target once it has died.
func landsOnDead(t *spells.Template, caster, target *entity.Unit) bool {
	if t.HasAttr(spells.AttrAllowDeadTarget) || t.HasAttr(spells.AttrRequireDeadTarget) {
		return true
	}
	return target.GUID == caster.GUID && t.HasAttr(spells.AttrCastableWhileDead)
}

// applyEffect runs slot i against the unit in x unless the hit roll stopped it.
func (m *Manager) applyEffect(x *effectCtx, i int, outcome HitOutcome, reflected bool) {
	c := x.cast
	x.index = i
	x.effect = &c.Spell.Effects[i]
	ev := EffectApplied{
		Handle:    c.Handle,
		Spell:     c.Spell.ID,
		Caster:    c.Caster,
		Target:    x.targetID(),
		Effect:    i,
		Type:      x.effect.Type,
		Outcome:   outcome,
		Reflected: reflected,
	}
	// a miss only stops the harmful part of a mixed spell
	if outcome != HitNormal && !c.Spell.IsPositiveEffect(i) {
		m.notify.EffectApplied(ev)
		return
	}
	ev.Outcome = HitNormal
	amount, fail := x.run()
	if fail == FailImmune {
		ev.Outcome = HitImmune
	} else {
		ev.Failure = fail
	}
	ev.Amount = amount
	ev.Crit = x.crit && amount > 0
	m.notify.EffectApplied(ev)
}

func (m *Manager) applyObject(c *Cast, o *ObjectEntry) {
	mask := o.Mask &^ o.applied
	if o.Processed || mask == 0 {
		o.Processed = true
		return
	}
	defer m.guard(c, o.Target, func() {
		o.applied = o.Mask
		o.Processed = true
	})
	o.applied = o.Mask
	o.Processed = true

	caster, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		return
	}
	obj, ok := m.lookup.FindObject(o.Target)
	if !ok {
		m.log.Debug("dropped cast object", "spell", c.Spell.ID, "object", o.Target)
		return
	}
	x := &effectCtx{m: m, cast: c, caster: caster, object: obj, dest: c.Dest}
	m.applyMasked(x, mask, o.Target)
}

func (m *Manager) applyItem(c *Cast, it *ItemEntry) {
	mask := it.Mask &^ it.applied
	if it.Processed || mask == 0 {
		it.Processed = true
		return
	}
	defer m.guard(c, it.Target, func() {
		it.applied = it.Mask
		it.Processed = true
	})
	it.applied = it.Mask
	it.Processed = true

	caster, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		return
	}
	item, _ := m.lookup.FindItem(it.Target)
	x := &effectCtx{m: m, cast: c, caster: caster, item: item, dest: c.Dest}
	m.applyMasked(x, mask, it.Target)
}

// applyDest runs the effect slots that only need a point.
func (m *Manager) applyDest(c *Cast) {
	if c.destApplied || c.destMask == 0 {
		return
	}
	c.destApplied = true
	defer m.guard(c, 0, func() {})

	caster, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		return
	}
	dest := c.Dest
	if !c.HasDest {
		dest = caster.Pos
	}
	x := &effectCtx{m: m, cast: c, caster: caster, dest: dest}
	m.applyMasked(x, c.destMask, 0)
}

func (m *Manager) applyMasked(x *effectCtx, mask uint8, target entity.ID) {
	c := x.cast
	for i := range c.Spell.Effects {
		if mask&(1<<i) == 0 {
			continue
		}
		x.index = i
		x.effect = &c.Spell.Effects[i]
		amount, fail := x.run()
		ev := EffectApplied{
			Handle: c.Handle,
			Spell:  c.Spell.ID,
			Caster: c.Caster,
			Target: target,
			Effect: i,
			Type:   x.effect.Type,
			Amount: amount,
		}
		if fail == FailImmune {
			ev.Outcome = HitImmune
		} else {
			ev.Failure = fail
		}
		m.notify.EffectApplied(ev)
	}
}

// applyDue applies everything whose travel time has run out, nearest first,
// and returns how many targets are still pending.
func (m *Manager) applyDue(c *Cast, until time.Duration, all bool) int {
	c.Executing = true
	defer func() { c.Executing = false }()

	units := make([]*TargetEntry, len(c.Units))
	copy(units, c.Units)
	sort.SliceStable(units, func(i, j int) bool { return units[i].Delay < units[j].Delay })
	for _, e := range units {
		if !e.Processed && (all || e.Delay <= until) {
			m.ApplyTarget(c, e)
		}
	}
	for _, o := range c.Objects {
		if !o.Processed && (all || o.Delay <= until) {
			m.applyObject(c, o)
		}
	}
	for _, it := range c.Items {
		m.applyItem(c, it)
	}
	if all || c.destDelay <= until {
		m.applyDest(c)
	}
	return c.Pending()
}

// channelTick applies the periodic slots of a channel to every living target.
// Ticks never mark an entry processed.
func (m *Manager) channelTick(c *Cast) {
	caster, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		return
	}
	t := c.Spell
	for _, e := range c.Units {
		mask := e.Mask & c.periodicMask
		if e.Dropped || mask == 0 || e.Miss != HitNormal || e.Reflect {
			continue
		}
		target, ok := m.lookup.FindUnit(e.Target)
		if !ok || !target.IsAlive() {
			continue
		}
		if harmful(t, mask) && target.GUID != caster.GUID && immune(t, target) {
			continue
		}
		x := &effectCtx{m: m, cast: c, caster: caster, target: target, hop: e.Hop, dest: c.Dest}
		for i := range t.Effects {
			if mask&(1<<i) == 0 {
				continue
			}
			x.index = i
			x.effect = &t.Effects[i]
			amount := m.tickEffect(x)
			m.notify.EffectApplied(EffectApplied{
				Handle:   c.Handle,
				Spell:    t.ID,
				Caster:   c.Caster,
				Target:   target.GUID,
				Effect:   i,
				Type:     x.effect.Type,
				Amount:   amount,
				Periodic: true,
			})
		}
		m.emitPeriodicProcs(c.Spell.ID, caster, target, x.dealt, x.killed, !harmful(t, mask))
	}
}

// tickEffect applies one channel tick. Periodic aura slots act directly on the
// target instead of leaving an aura behind.
func (m *Manager) tickEffect(x *effectCtx) int {
	e := x.effect
	if e.Type == spells.EffectApplyAura {
		switch e.Aura {
		case spells.AuraPeriodicDamage:
			if x.target.IsImmuneToSchool(x.cast.Spell.School) {
				return 0
			}
			return x.damage(x.value())
		case spells.AuraPeriodicHeal:
			return x.target.ModifyHealth(x.value())
		}
	}
	amount, _ := x.run()
	return amount
}

// finishChannel applies the non-periodic slots once the channel has run its course.
func (m *Manager) finishChannel(c *Cast) {
	for _, e := range c.Units {
		e.applied |= e.Mask & c.periodicMask
		m.ApplyTarget(c, e)
	}
	for _, o := range c.Objects {
		m.applyObject(c, o)
	}
	for _, it := range c.Items {
		m.applyItem(c, it)
	}
	m.applyDest(c)
}
