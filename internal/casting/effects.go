package casting

import (
	"math"
	"sort"
	"time"

	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/ledger"
	"github.com/lawnchairsociety/castcore/internal/spells"
	"github.com/lawnchairsociety/castcore/internal/stats"
)

// effectCtx is one effect slot landing on one target.
type effectCtx struct {
	m      *Manager
	cast   *Cast
	index  int
	effect *spells.Effect

	caster *entity.Unit
	target *entity.Unit
	object *entity.GameObject
	item   *entity.Item
	dest   entity.Position

	hop  int
	crit bool

	dealt  int
	killed bool
}

type effectHandler func(x *effectCtx) (int, CastFailureReason)

var effectHandlers map[spells.EffectType]effectHandler

func init() {
	effectHandlers = map[spells.EffectType]effectHandler{
		spells.EffectInstaKill:          effectInstaKill,
		spells.EffectSchoolDamage:       effectSchoolDamage,
		spells.EffectWeaponDamage:       effectWeaponDamage,
		spells.EffectDummy:              effectDummy,
		spells.EffectHeal:               effectHeal,
		spells.EffectHealPercent:        effectHealPercent,
		spells.EffectApplyAura:          effectApplyAura,
		spells.EffectEnergize:           effectEnergize,
		spells.EffectPowerDrain:         effectPowerDrain,
		spells.EffectTriggerSpell:       effectTriggerSpell,
		spells.EffectOpenLock:           effectOpenLock,
		spells.EffectEnchantItem:        effectEnchantItem,
		spells.EffectDisenchant:         effectDisenchant,
		spells.EffectCreateItem:         effectCreateItem,
		spells.EffectSummon:             effectSummon,
		spells.EffectPersistentAreaAura: effectPersistentArea,
		spells.EffectAddComboPoints:     effectAddComboPoints,
		spells.EffectInterruptCast:      effectInterruptCast,
	}
}

// run dispatches to the handler for the effect type.
func (x *effectCtx) run() (int, CastFailureReason) {
	h, ok := effectHandlers[x.effect.Type]
	if !ok {
		x.m.log.Warn("no handler for effect", "spell", x.cast.Spell.ID, "effect", x.index, "type", x.effect.Type)
		return 0, FailNone
	}
	return h(x)
}

// value computes the effect's amount for this target.
func (x *effectCtx) value() int {
	e := x.effect
	v := e.BasePoints + stats.Roll(x.m.rand, e.DiceCount, e.DieSides)
	if e.PointsPerLevel != 0 {
		v += int(e.PointsPerLevel * float64(x.caster.Level))
	}
	v += e.PointsPerCombo * x.cast.combo
	if x.hop > 0 && e.ChainAmplitude > 0 {
		v = int(float64(v) * math.Pow(e.ChainAmplitude, float64(x.hop)))
	}
	return v
}

func (x *effectCtx) critical(amount int) int {
	if !x.crit {
		return amount
	}
	return int(float64(amount) * critMultiplier(x.cast.Spell))
}

func (x *effectCtx) targetID() entity.ID {
	if x.target == nil {
		return 0
	}
	return x.target.GUID
}

// damage takes health from the target and records what happened for procs and pushback.
func (x *effectCtx) damage(amount int) int {
	if x.target == nil || amount <= 0 || !x.target.IsAlive() {
		return 0
	}
	dealt := -x.target.ModifyHealth(-amount)
	x.dealt += dealt
	x.caster.InCombat = true
	x.target.InCombat = true
	if !x.target.IsAlive() {
		x.target.Kill()
		x.killed = true
	}
	if dealt > 0 {
		victim := x.target.GUID
		x.m.later(func() { x.m.OnDamageTaken(victim, dealt) })
	}
	return dealt
}

func effectInstaKill(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil || !x.target.IsAlive() {
		return 0, FailNone
	}
	return x.damage(x.target.Health), FailNone
}

func effectSchoolDamage(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil {
		return 0, FailNone
	}
	return x.damage(x.critical(x.value() + x.caster.SpellPower)), FailNone
}

func effectWeaponDamage(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil {
		return 0, FailNone
	}
	return x.damage(x.critical(x.caster.WeaponDamage + x.value())), FailNone
}

func effectHeal(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil || !x.target.IsAlive() {
		return 0, FailNone
	}
	return x.target.ModifyHealth(x.critical(x.value() + x.caster.SpellPower)), FailNone
}

func effectHealPercent(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil || !x.target.IsAlive() {
		return 0, FailNone
	}
	return x.target.ModifyHealth(x.target.MaxHealth * x.value() / 100), FailNone
}

func effectApplyAura(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil || !x.target.IsAlive() {
		return 0, FailNone
	}
	t, e := x.cast.Spell, x.effect
	positive := t.IsPositiveEffect(x.index)
	mech := e.Mechanic
	if mech == spells.MechanicNone {
		mech = t.Mechanic
	}
	if !positive && !t.HasAttr(spells.AttrIgnoreImmunity) && x.target.IsImmuneToMechanic(mech) {
		return 0, FailImmune
	}

	duration := t.AuraDuration()
	if !positive && duration > 0 && t.DiminishingGroup != spells.DRNone &&
		(x.target.Player || x.m.cfg.DRCreatures) {
		level := x.m.ledgers.Diminishing.Apply(x.target.GUID, t.DiminishingGroup, x.m.now)
		var limit time.Duration
		if x.target.Player && x.caster.Player {
			limit = x.m.cfg.DRPvPCap()
		}
		duration = ledger.Scale(duration, level, limit)
		if duration <= 0 {
			return 0, FailImmune
		}
	}

	a := &entity.Aura{
		Spell:        t.ID,
		Caster:       x.caster.GUID,
		Effect:       x.index,
		Type:         e.Aura,
		Amount:       x.value(),
		MiscValue:    e.MiscValue,
		Mechanic:     mech,
		School:       t.School,
		Positive:     positive,
		Duration:     duration,
		Period:       time.Duration(e.Period) * time.Millisecond,
		Charges:      t.ProcCharges,
		ProcFlags:    t.ProcFlags,
		ProcChance:   t.ProcChance,
		TriggerSpell: e.TriggerSpell,
	}
	x.target.AddAura(a)
	if !positive && x.target.GUID != x.caster.GUID {
		x.caster.InCombat = true
		x.target.InCombat = true
	}
	return a.Amount, FailNone
}

func effectEnergize(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil || !x.target.IsAlive() {
		return 0, FailNone
	}
	return x.target.ModifyPower(spells.PowerType(x.effect.MiscValue), x.value()), FailNone
}

func effectPowerDrain(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil || !x.target.IsAlive() {
		return 0, FailNone
	}
	pt := spells.PowerType(x.effect.MiscValue)
	drained := -x.target.ModifyPower(pt, -x.value())
	if x.target.GUID != x.caster.GUID {
		x.caster.ModifyPower(pt, drained)
	}
	return drained, FailNone
}

func effectDummy(x *effectCtx) (int, CastFailureReason) {
	t := x.cast.Spell
	if x.m.scripts == nil || t.ScriptName == "" {
		return 0, FailNone
	}
	call := ScriptCall{
		Script: t.ScriptName,
		Spell:  t.ID,
		Effect: x.index,
		Caster: x.caster.GUID,
		Target: x.targetID(),
		Value:  x.value(),
	}
	if err := x.m.scripts.Dummy(call, &scriptHost{m: x.m, cast: x.cast}); err != nil {
		x.m.log.Error("dummy script failed", "spell", t.ID, "script", t.ScriptName, "error", err)
	}
	return call.Value, FailNone
}

func effectTriggerSpell(x *effectCtx) (int, CastFailureReason) {
	e := x.effect
	if e.TriggerSpell == 0 {
		return 0, FailNone
	}
	targets := DestTarget(x.dest)
	if x.target != nil {
		targets = UnitTarget(x.target.GUID)
	}
	x.m.trigger(x.cast, x.caster.GUID, e.TriggerSpell, targets, false)
	return 0, FailNone
}

func effectAddComboPoints(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil {
		return 0, FailNone
	}
	return x.m.ledgers.Combo.Add(x.caster.GUID, x.target.GUID, x.value()), FailNone
}

func effectInterruptCast(x *effectCtx) (int, CastFailureReason) {
	if x.target == nil || x.target.GUID == x.caster.GUID {
		return 0, FailNone
	}
	victim := x.target.GUID
	x.m.later(func() { x.m.InterruptUnit(victim, FailInterrupted) })
	return 0, FailNone
}

func effectSummon(x *effectCtx) (int, CastFailureReason) {
	spawner, ok := x.m.lookup.(entity.Spawner)
	if !ok {
		return 0, FailNone
	}
	entry := uint32(x.effect.MiscValue)
	tmpl, ok := x.m.content.Creature(entry)
	if !ok {
		x.m.log.Error("summon of unknown creature", "spell", x.cast.Spell.ID, "entry", entry)
		return 0, FailNone
	}
	u := tmpl.NewUnit()
	u.Owner = x.caster.GUID
	u.Team = x.caster.Team
	u.Pos = x.dest
	u.Zone = x.caster.Zone
	id := spawner.SpawnUnit(u)
	x.caster.Pets = append(x.caster.Pets, id)
	return 1, FailNone
}

func effectPersistentArea(x *effectCtx) (int, CastFailureReason) {
	spawner, ok := x.m.lookup.(entity.Spawner)
	if !ok {
		return 0, FailNone
	}
	t, e := x.cast.Spell, x.effect
	a := &entity.AreaEffect{
		Spell:     t.ID,
		Caster:    x.caster.GUID,
		Team:      x.caster.Team,
		Pos:       x.dest,
		Radius:    e.Radius,
		Remaining: t.AuraDuration(),
		Period:    time.Duration(e.Period) * time.Millisecond,
		Amount:    x.value(),
		School:    t.School,
		Heal:      t.IsPositiveEffect(x.index),
	}
	spawner.SpawnArea(a)
	return a.Amount, FailNone
}

func effectOpenLock(x *effectCtx) (int, CastFailureReason) {
	o := x.object
	if o == nil {
		return 0, FailNone
	}
	if o.Open {
		return 0, FailAlreadyOpen
	}
	if o.LockID != 0 && o.LockID != uint32(x.effect.MiscValue) {
		return 0, FailBadTargets
	}
	o.Open = true

	entries := make([]uint32, 0, len(o.Loot))
	for entry := range o.Loot {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })
	looted := 0
	for _, entry := range entries {
		if !x.caster.AddItem(entry, o.Loot[entry]) {
			return looted, FailInventoryFull
		}
		looted += o.Loot[entry]
		delete(o.Loot, entry)
	}
	return looted, FailNone
}

func effectEnchantItem(x *effectCtx) (int, CastFailureReason) {
	if x.item == nil {
		return 0, FailItemGone
	}
	x.item.Enchantment = uint32(x.effect.MiscValue)
	return int(x.item.Enchantment), FailNone
}

func effectDisenchant(x *effectCtx) (int, CastFailureReason) {
	if x.item == nil {
		return 0, FailItemGone
	}
	proto, ok := x.m.content.ItemPrototype(x.item.Entry)
	if !ok || !proto.Disenchantable() {
		return 0, FailCantBeDisenchanted
	}
	if !x.caster.CanStore(proto.DisenchantInto) {
		return 0, FailInventoryFull
	}
	if remover, ok := x.m.lookup.(interface{ RemoveItem(entity.ID) bool }); ok {
		remover.RemoveItem(x.item.GUID)
	}
	count := proto.DisenchantCount
	if count < 1 {
		count = 1
	}
	x.caster.AddItem(proto.DisenchantInto, count)
	return count, FailNone
}

func effectCreateItem(x *effectCtx) (int, CastFailureReason) {
	to := x.target
	if to == nil {
		to = x.caster
	}
	n := x.value()
	if n < 1 {
		n = 1
	}
	if !to.AddItem(x.effect.ItemType, n) {
		return 0, FailInventoryFull
	}
	return n, FailNone
}

// scriptHost exposes the world to dummy scripts of one cast.
type scriptHost struct {
	m    *Manager
	cast *Cast
}

func (h *scriptHost) Unit(id entity.ID) (*entity.Unit, bool) {
	return h.m.lookup.FindUnit(id)
}

func (h *scriptHost) Damage(target entity.ID, amount int) int {
	u, ok := h.m.lookup.FindUnit(target)
	if !ok || amount <= 0 || !u.IsAlive() {
		return 0
	}
	dealt := -u.ModifyHealth(-amount)
	if !u.IsAlive() {
		u.Kill()
	}
	if dealt > 0 {
		h.m.later(func() { h.m.OnDamageTaken(target, dealt) })
	}
	return dealt
}

func (h *scriptHost) Heal(target entity.ID, amount int) int {
	u, ok := h.m.lookup.FindUnit(target)
	if !ok || amount <= 0 || !u.IsAlive() {
		return 0
	}
	return u.ModifyHealth(amount)
}

func (h *scriptHost) Trigger(caster, target entity.ID, spell spells.ID) CastFailureReason {
	if _, ok := h.m.content.Spell(spell); !ok {
		return FailUnknownSpell
	}
	h.m.trigger(h.cast, caster, spell, UnitTarget(target), false)
	return FailNone
}
