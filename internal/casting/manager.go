package casting

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/lawnchairsociety/castcore/internal/config"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/ledger"
	"github.com/lawnchairsociety/castcore/internal/logger"
	"github.com/lawnchairsociety/castcore/internal/spells"
	"github.com/oklog/ulid/v2"
)

// maxTriggerDepth bounds chains of casts triggered by other casts.
const maxTriggerDepth = 8

// Deps are the collaborators of a Manager. Lookup, Content and Ledgers are
// required; the rest fall back to no-op or default implementations.
type Deps struct {
	Key      entity.MapKey
	Lookup   entity.Lookup
	Content  Content
	Ledgers  *ledger.Ledgers
	Notifier Notifier
	Combat   CombatListener
	Scripts  Scripts
	Rand     Rand
	Logger   *slog.Logger
}

type slotKey struct {
	caster entity.ID
	slot   Slot
}

// Manager runs every cast of one partition.
type Manager struct {
	cfg     config.CastingConfig
	key     entity.MapKey
	lookup  entity.Lookup
	content Content
	ledgers *ledger.Ledgers
	notify  Notifier
	combat  CombatListener
	scripts Scripts
	rand    Rand
	log     *slog.Logger
	entropy io.Reader

	now   time.Duration
	casts map[Handle]*Cast
	order []Handle
	slots map[slotKey]Handle

	deferred []func()
	flushing bool
}

// NewManager creates a manager for one partition.
func NewManager(cfg config.CastingConfig, deps Deps) *Manager {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	m := &Manager{
		cfg:     cfg,
		key:     deps.Key,
		lookup:  deps.Lookup,
		content: deps.Content,
		ledgers: deps.Ledgers,
		notify:  deps.Notifier,
		combat:  deps.Combat,
		scripts: deps.Scripts,
		rand:    deps.Rand,
		log:     deps.Logger,
		casts:   make(map[Handle]*Cast),
		slots:   make(map[slotKey]Handle),
		// handles draw from their own stream so they never shift gameplay rolls
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
	if m.notify == nil {
		m.notify = NopNotifier{}
	}
	if m.rand == nil {
		m.rand = rand.New(rand.NewSource(seed + 1))
	}
	if m.log == nil {
		m.log = logger.Component("casting")
	}
	if m.ledgers == nil {
		m.ledgers = ledger.New(cfg.DRReset())
	}
	return m
}

// Now returns the manager's clock, the sum of all elapsed time passed to Update.
func (m *Manager) Now() time.Duration {
	return m.now
}

// Active returns the number of casts that have not finished.
func (m *Manager) Active() int {
	n := 0
	for _, c := range m.casts {
		if !c.finished() {
			n++
		}
	}
	return n
}

// Cast returns a tracked cast. Finished casts stay visible until the next Update.
func (m *Manager) Cast(h Handle) (*Cast, bool) {
	c, ok := m.casts[h]
	return c, ok
}

// State returns the lifecycle state of a tracked cast.
func (m *Manager) State(h Handle) (State, error) {
	c, ok := m.casts[h]
	if !ok {
		return 0, ErrUnknownHandle
	}
	return c.State(), nil
}

// IsTriggered returns true if the cast was started by another spell or an aura.
func (m *Manager) IsTriggered(h Handle) (bool, error) {
	c, ok := m.casts[h]
	if !ok {
		return false, ErrUnknownHandle
	}
	return c.Triggered, nil
}

// BeginCast starts a player or creature initiated cast. A failure reason means
// no cast instance was created; the failure has already been reported to the notifier.
func (m *Manager) BeginCast(caster entity.ID, spell spells.ID, targets Targets) (Handle, CastFailureReason) {
	defer m.flush()

	t, ok := m.content.Spell(spell)
	if !ok {
		return m.refuse(caster, spell, FailUnknownSpell)
	}
	if t.IsPassive() {
		return m.refuse(caster, spell, FailPassive)
	}
	u, ok := m.lookup.FindUnit(caster)
	if !ok {
		return m.refuse(caster, spell, FailCasterGone)
	}

	slot := slotFor(t)
	if m.slotBusy(caster, slot) {
		return m.refuse(caster, spell, FailSpellInProgress)
	}

	c := m.newCast(u, t, targets, slot)
	c.CastTime = t.CastDuration()
	if r := m.Validate(c, true); r.Failed() {
		return m.refuse(caster, spell, r)
	}
	m.replaceSlot(caster, slot)
	c.CastTime = m.reserveMods(c, u)
	c.machine = m.newMachine(c)
	m.startGCD(c)
	m.track(c)
	m.log.Debug("cast started", "spell", t.ID, "caster", caster, "handle", c.Handle, "cast_time", c.CastTime)
	m.drive(c, c.machine.start())
	return c.Handle, FailNone
}

// BeginTriggered starts a cast on behalf of another spell or script. It skips
// cooldowns, costs and caster restrictions and occupies no slot.
func (m *Manager) BeginTriggered(caster entity.ID, spell spells.ID, targets Targets) (Handle, CastFailureReason) {
	defer m.flush()
	return m.beginTriggered(caster, spell, targets, caster, false, 0)
}

func (m *Manager) beginTriggered(caster entity.ID, spell spells.ID, targets Targets, origin entity.ID, byAura bool, depth int) (Handle, CastFailureReason) {
	t, ok := m.content.Spell(spell)
	if !ok {
		m.log.Error("triggered cast failed", "caster", caster, "error", fmt.Errorf("spell %d: %w", spell, ErrUnknownSpell))
		return Handle{}, FailUnknownSpell
	}
	if depth > maxTriggerDepth {
		m.log.Warn("triggered cast chain too deep", "spell", spell, "caster", caster, "origin", origin, "depth", depth)
		return Handle{}, FailInterrupted
	}
	u, ok := m.lookup.FindUnit(caster)
	if !ok {
		return Handle{}, FailCasterGone
	}

	c := m.newCast(u, t, targets, SlotNone)
	c.Triggered = true
	c.ByAura = byAura
	c.Origin = origin
	c.depth = depth
	if r := m.Validate(c, true); r.Failed() {
		m.log.Debug("triggered cast refused", "spell", spell, "caster", caster, "reason", r)
		m.notify.CastResult(CastResult{Spell: spell, Caster: caster, Reason: r})
		return Handle{}, r
	}
	c.machine = m.newMachine(c)
	m.track(c)
	m.drive(c, c.machine.start())
	return c.Handle, FailNone
}

// trigger queues a triggered cast to start once the current application is done.
func (m *Manager) trigger(from *Cast, caster entity.ID, spell spells.ID, targets Targets, byAura bool) {
	origin, depth := caster, 0
	if from != nil {
		origin, depth = from.Origin, from.depth+1
		byAura = byAura || from.ByAura
	}
	m.later(func() { m.beginTriggered(caster, spell, targets, origin, byAura, depth) })
}

func (m *Manager) refuse(caster entity.ID, spell spells.ID, r CastFailureReason) (Handle, CastFailureReason) {
	m.log.Debug("cast refused", "spell", spell, "caster", caster, "reason", r)
	m.notify.CastResult(CastResult{Spell: spell, Caster: caster, Reason: r})
	return Handle{}, r
}

func (m *Manager) newCast(u *entity.Unit, t *spells.Template, targets Targets, slot Slot) *Cast {
	// helpful spells without a target land on the caster
	if targets.Unit == 0 && t.NeedsExplicitUnit() && t.IsPositive() {
		targets.Unit = u.GUID
	}
	return &Cast{
		Handle:   Handle(ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy)),
		Caster:   u.GUID,
		Origin:   u.GUID,
		Spell:    t,
		Explicit: targets,
		Slot:     slot,
	}
}

func (m *Manager) newMachine(c *Cast) *machine {
	t := c.Spell
	return newMachine(timing{
		castTime:     c.CastTime,
		duration:     t.AuraDuration(),
		period:       t.ChannelPeriod(),
		channeled:    t.IsChanneled(),
		delayed:      t.IsDelayed(),
		pushbackBy:   m.cfg.Pushback(),
		maxPushbacks: m.cfg.MaxPushbacks,
	})
}

// slotBusy returns true if a generic or channeled cast already holds the
// caster's slot. Each slot is independent of the others.
func (m *Manager) slotBusy(caster entity.ID, slot Slot) bool {
	if slot != SlotGeneric && slot != SlotChanneled {
		return false
	}
	c, ok := m.inSlot(caster, slot)
	return ok && !c.finished()
}

// replaceSlot cancels the melee or autorepeat cast a new one of the same kind replaces.
func (m *Manager) replaceSlot(caster entity.ID, slot Slot) {
	if slot != SlotMelee && slot != SlotAutoRepeat {
		return
	}
	if c, ok := m.inSlot(caster, slot); ok && !c.finished() {
		m.drive(c, c.machine.handle(event{kind: evCancel, reason: FailInterrupted}))
	}
}

func (m *Manager) inSlot(caster entity.ID, slot Slot) (*Cast, bool) {
	h, ok := m.slots[slotKey{caster, slot}]
	if !ok {
		return nil, false
	}
	c, ok := m.casts[h]
	return c, ok
}

func (m *Manager) track(c *Cast) {
	m.casts[c.Handle] = c
	m.order = append(m.order, c.Handle)
	if c.Slot != SlotNone {
		m.slots[slotKey{c.Caster, c.Slot}] = c.Handle
	}
}

func (m *Manager) release(c *Cast) {
	k := slotKey{c.Caster, c.Slot}
	if h, ok := m.slots[k]; ok && h == c.Handle {
		delete(m.slots, k)
	}
}

func (m *Manager) startGCD(c *Cast) {
	t := c.Spell
	if !hasGCD(t) {
		return
	}
	d := time.Duration(t.GlobalCooldown) * time.Millisecond
	if d == 0 {
		d = m.cfg.DefaultGCD()
	}
	m.ledgers.Cooldowns.StartGCD(c.Caster, t.GCDCategory, d, m.now)
}

// Cancel stops a cast. Cancelling a finished cast does nothing.
func (m *Manager) Cancel(h Handle) error {
	c, ok := m.casts[h]
	if !ok {
		return ErrUnknownHandle
	}
	defer m.flush()
	m.drive(c, c.machine.handle(event{kind: evCancel, reason: FailInterrupted}))
	return nil
}

// Tick advances a single cast. Update is the usual way to drive casts.
func (m *Manager) Tick(h Handle, elapsed time.Duration) error {
	c, ok := m.casts[h]
	if !ok {
		return ErrUnknownHandle
	}
	defer m.flush()
	m.drive(c, c.machine.advance(elapsed))
	return nil
}

// Update advances the clock and every active cast in the order they began.
// Casts that finished before the call are forgotten first.
func (m *Manager) Update(elapsed time.Duration) {
	m.reap()
	if elapsed > 0 {
		m.now += elapsed
	}
	for _, h := range append([]Handle(nil), m.order...) {
		c, ok := m.casts[h]
		if !ok || c.finished() {
			continue
		}
		m.drive(c, c.machine.advance(elapsed))
	}
	m.flush()
}

func (m *Manager) reap() {
	kept := m.order[:0]
	for _, h := range m.order {
		c, ok := m.casts[h]
		if !ok {
			continue
		}
		if c.finished() {
			delete(m.casts, h)
			continue
		}
		kept = append(kept, h)
	}
	m.order = kept
}

// OnDamageTaken pushes back the victim's cast or channel.
func (m *Manager) OnDamageTaken(victim entity.ID, amount int) {
	if amount <= 0 {
		return
	}
	u, ok := m.lookup.FindUnit(victim)
	if !ok {
		return
	}
	for _, slot := range []Slot{SlotGeneric, SlotChanneled} {
		c, ok := m.inSlot(victim, slot)
		if !ok || c.finished() {
			continue
		}
		t := c.Spell
		switch c.machine.state {
		case StatePreparing:
			if t.InterruptFlags&spells.InterruptPushback == 0 {
				continue
			}
		case StateCasting:
			if t.ChannelInterruptFlags&spells.ChannelInterruptDelay == 0 {
				continue
			}
		default:
			continue
		}
		if resist := u.TotalPushbackResist(); resist > 0 && m.rand.Float64()*100 < resist {
			continue
		}
		m.drive(c, c.machine.handle(event{kind: evPushback}))
	}
	m.flush()
}

// InterruptUnit interrupts the unit's cast and channel if they are in progress
// and returns how many were stopped.
func (m *Manager) InterruptUnit(unit entity.ID, reason CastFailureReason) int {
	n := 0
	for _, slot := range []Slot{SlotGeneric, SlotChanneled} {
		c, ok := m.inSlot(unit, slot)
		if !ok || c.finished() {
			continue
		}
		if s := c.machine.state; s != StatePreparing && s != StateCasting {
			continue
		}
		m.drive(c, c.machine.handle(event{kind: evInterrupt, reason: reason}))
		n++
	}
	m.flush()
	return n
}

// Forget stops every cast of a unit leaving the partition and drops its ledgers.
func (m *Manager) Forget(unit entity.ID) {
	for _, h := range m.order {
		c, ok := m.casts[h]
		if !ok || c.finished() || c.Caster != unit {
			continue
		}
		m.drive(c, c.machine.handle(event{kind: evInterrupt, reason: FailCasterGone}))
	}
	m.ledgers.Forget(unit)
	m.flush()
}

func (m *Manager) later(fn func()) {
	m.deferred = append(m.deferred, fn)
}

// flush runs queued work, such as triggered casts, once the caller is done
// with the cast that queued it.
func (m *Manager) flush() {
	if m.flushing {
		return
	}
	m.flushing = true
	defer func() { m.flushing = false }()
	for len(m.deferred) > 0 {
		fn := m.deferred[0]
		m.deferred = m.deferred[1:]
		fn()
	}
}

// drive carries out machine commands in order. Follow-up commands produced by
// an event run before the rest of the batch, and commands issued in a state
// the cast has since left are skipped.
func (m *Manager) drive(c *Cast, cmds []command) {
	queue := cmds
	for len(queue) > 0 {
		cmd := queue[0]
		queue = queue[1:]
		if cmd.state != c.machine.state {
			continue
		}
		ev, ok := m.exec(c, cmd)
		if !ok {
			continue
		}
		queue = append(c.machine.handle(ev), queue...)
	}
}

func (m *Manager) exec(c *Cast, cmd command) (event, bool) {
	t := c.Spell
	switch cmd.kind {
	case cmdNotifyStart:
		m.notify.CastStarted(CastStarted{
			Handle:    c.Handle,
			Spell:     t.ID,
			Caster:    c.Caster,
			Target:    c.Explicit.Unit,
			CastTime:  c.CastTime,
			Triggered: c.Triggered,
		})

	case cmdCheckCaster:
		if r := m.checkCaster(c); r.Failed() {
			return event{kind: evInterrupt, reason: r}, true
		}

	case cmdRevalidate:
		return event{kind: evValidated, reason: m.Validate(c, false)}, true

	case cmdLaunch:
		return event{kind: evLaunched, reason: m.launch(c)}, true

	case cmdApply:
		if _, ok := m.lookup.FindUnit(c.Caster); !ok {
			return event{kind: evInterrupt, reason: FailCasterGone}, true
		}
		return event{kind: evApplied, pending: m.applyDue(c, cmd.until, cmd.all)}, true

	case cmdChannelStart, cmdChannelUpdate:
		m.notify.ChannelUpdate(ChannelUpdate{Handle: c.Handle, Spell: t.ID, Caster: c.Caster, Remaining: c.machine.remaining})

	case cmdChannelTick:
		m.channelTick(c)

	case cmdFinishChannel:
		m.finishChannel(c)
		return event{kind: evApplied}, true

	case cmdDelayed:
		m.notify.CastDelayed(CastDelayed{Handle: c.Handle, Spell: t.ID, Caster: c.Caster, Delay: cmd.delay})

	case cmdRollback:
		m.rollback(c)

	case cmdResult:
		reason := cmd.reason
		if reason == FailNone {
			reason = c.landed()
		}
		c.result = reason
		m.log.Debug("cast finished", "spell", t.ID, "caster", c.Caster, "handle", c.Handle, "result", reason)
		m.notify.CastResult(CastResult{Handle: c.Handle, Spell: t.ID, Caster: c.Caster, Reason: reason})

	case cmdRelease:
		m.release(c)
	}
	return event{}, false
}

// checkCaster decides whether the caster can keep casting this tick.
func (m *Manager) checkCaster(c *Cast) CastFailureReason {
	u, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		return FailCasterGone
	}
	t := c.Spell
	if !u.IsAlive() && !t.HasAttr(spells.AttrCastableWhileDead) {
		return FailCasterDead
	}
	if c.Triggered {
		return FailNone
	}
	if r := incapacitated(t, u); r.Failed() {
		return FailInterrupted
	}
	switch c.machine.state {
	case StatePreparing:
		if u.Moving && t.InterruptFlags&spells.InterruptMovement != 0 {
			return FailInterrupted
		}
	case StateCasting:
		if u.Moving && t.ChannelInterruptFlags&spells.ChannelInterruptMovement != 0 {
			return FailInterrupted
		}
		if t.ChannelInterruptFlags&spells.ChannelInterruptTurning != 0 && c.Explicit.Unit != 0 && c.Explicit.Unit != c.Caster {
			if target, ok := m.lookup.FindUnit(c.Explicit.Unit); ok && !u.Pos.InFront(target.Pos) {
				return FailNotInfront
			}
		}
	}
	return FailNone
}

// rollback undoes what a cast reserved but never spent.
func (m *Manager) rollback(c *Cast) {
	m.releaseMods(c)
	if !c.launched && !c.Triggered && hasGCD(c.Spell) {
		m.ledgers.Cooldowns.CancelGCD(c.Caster, c.Spell.GCDCategory)
	}
	if c.Executing {
		return
	}
	// delayed casts drop whatever is still in flight
	for _, e := range c.Units {
		if !e.Processed {
			e.Processed = true
			e.Dropped = true
		}
	}
	for _, o := range c.Objects {
		o.Processed = true
	}
	for _, it := range c.Items {
		it.Processed = true
	}
	c.destApplied = true
}

// launch pays for the cast, selects its targets and rolls their outcomes.
func (m *Manager) launch(c *Cast) CastFailureReason {
	u, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		return FailCasterGone
	}
	t := c.Spell
	cost := 0
	if !c.Triggered {
		cost = powerCost(t, u)
	}
	m.selectTargets(c, u)
	if t.NeedsExplicitUnit() {
		if _, ok := c.UnitEntry(c.Explicit.Unit); !ok {
			return FailNoValidTargets
		}
	}

	if !c.Triggered {
		if cost > 0 {
			u.ModifyPower(t.PowerType, -cost)
		}
		for _, r := range t.Reagents {
			u.RemoveItem(r.Item, r.Count)
		}
		m.ledgers.Cooldowns.Start(u.GUID, t, m.now)
	}
	if t.HasAttr(spells.AttrFinishingMove) {
		c.combo = m.ledgers.Combo.Points(u.GUID, c.Explicit.Unit)
		m.ledgers.Combo.Clear(u.GUID)
	}
	m.commitMods(c, u)
	if t.HasAttr(spells.AttrBreaksStealth) || harmful(t, t.EffectMask()) {
		u.RemoveAurasOfType(spells.AuraModStealth)
	}
	c.launched = true
	return FailNone
}

type groupKey struct {
	a, b   spells.Target
	radius float64
	chain  int
}

// selectTargets resolves every effect slot. Slots with identical targeting
// share one resolution so they land on the same units.
func (m *Manager) selectTargets(c *Cast, caster *entity.Unit) {
	t := c.Spell
	type group struct {
		key   groupKey
		mask  uint8
		first int
	}
	var groups []*group
	for i := range t.Effects {
		e := &t.Effects[i]
		if e.Type == spells.EffectNone {
			continue
		}
		bit := uint8(1) << i
		if e.Period > 0 && t.IsChanneled() {
			c.periodicMask |= bit
		}
		if !producesTargets(e) {
			m.Resolve(c, i)
			c.destMask |= bit
			continue
		}
		key := groupKey{e.TargetA, e.TargetB, e.Radius, e.ChainTargets}
		var g *group
		for _, existing := range groups {
			if existing.key == key {
				g = existing
				break
			}
		}
		if g == nil {
			g = &group{key: key, first: i}
			groups = append(groups, g)
		}
		g.mask |= bit
	}

	for _, g := range groups {
		res := m.Resolve(c, g.first)
		chained := isChain(&t.Effects[g.first])
		for n, id := range res.Units {
			hop := 0
			if chained {
				hop = n
			}
			m.addUnit(c, caster, id, g.mask, hop)
		}
		for _, id := range res.Objects {
			m.addObject(c, caster, id, g.mask)
		}
		if res.Item != 0 {
			m.addItem(c, res.Item, g.mask)
		}
	}

	if c.destMask != 0 && t.IsDelayed() && c.HasDest {
		c.destDelay = m.travel(t, caster.Pos.Distance(c.Dest))
	}
}

func isChain(e *spells.Effect) bool {
	return chains(e, spells.TargetInfoOf(e.TargetA)) || chains(e, spells.TargetInfoOf(e.TargetB))
}

// addUnit records a unit and rolls its hit, reflect and crit once.
func (m *Manager) addUnit(c *Cast, caster *entity.Unit, id entity.ID, mask uint8, hop int) {
	if e, ok := c.UnitEntry(id); ok {
		e.Mask |= mask
		return
	}
	target, ok := m.lookup.FindUnit(id)
	if !ok {
		return
	}
	t := c.Spell
	e := &TargetEntry{Target: id, Mask: mask, Hop: hop}
	e.Miss = m.rollHit(t, mask, caster, target)
	if e.Miss == HitNormal && harmful(t, mask) && m.rollReflect(t, caster, target) {
		e.Reflect = true
		e.ReflectMiss = m.rollHit(t, mask, target, caster)
	}
	e.Crit = e.Miss == HitNormal && m.rollCrit(t, caster)
	if t.IsDelayed() && id != caster.GUID {
		e.Delay = m.travel(t, caster.Pos.Distance(target.Pos))
		if e.Reflect {
			e.Delay = time.Duration(float64(e.Delay) * m.cfg.ReflectDelayMultiplier)
		}
	}
	c.Units = append(c.Units, e)
}

func (m *Manager) addObject(c *Cast, caster *entity.Unit, id entity.ID, mask uint8) {
	for _, o := range c.Objects {
		if o.Target == id {
			o.Mask |= mask
			return
		}
	}
	o := &ObjectEntry{Target: id, Mask: mask}
	if obj, ok := m.lookup.FindObject(id); ok && c.Spell.IsDelayed() {
		o.Delay = m.travel(c.Spell, caster.Pos.Distance(obj.Pos))
	}
	c.Objects = append(c.Objects, o)
}

func (m *Manager) addItem(c *Cast, id entity.ID, mask uint8) {
	for _, it := range c.Items {
		if it.Target == id {
			it.Mask |= mask
			return
		}
	}
	c.Items = append(c.Items, &ItemEntry{Target: id, Mask: mask})
}

// travel returns the flight time of t over dist yards.
func (m *Manager) travel(t *spells.Template, dist float64) time.Duration {
	if t.Speed <= 0 {
		return 0
	}
	if dist < m.cfg.MinTravelDistance {
		dist = m.cfg.MinTravelDistance
	}
	return time.Duration(dist / t.Speed * float64(time.Second))
}
