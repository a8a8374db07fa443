package casting

import (
	"math"
	"sort"

	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// Resolution is what one effect slot selected.
type Resolution struct {
	Units   []entity.ID
	Objects []entity.ID
	Item    entity.ID
	Dest    entity.Position
	HasDest bool
}

// selectCtx carries everything a selector needs for one target mode.
type selectCtx struct {
	m      *Manager
	c      *Cast
	caster *entity.Unit
	effect *spells.Effect
	index  int
	info   spells.TargetInfo
}

type unitSelector func(sc *selectCtx) []entity.ID

// unitSelectors maps each selection strategy to its implementation.
var unitSelectors map[spells.Selection]unitSelector

func init() {
	unitSelectors = map[spells.Selection]unitSelector{
		spells.SelectDefault: selectDefault,
		spells.SelectPet:     selectPet,
		spells.SelectNearby:  selectNearby,
		spells.SelectArea:    selectArea,
		spells.SelectCone:    selectCone,
		spells.SelectLine:    selectLine,
		spells.SelectChain:   selectChain,
		spells.SelectParty:   selectGroup,
		spells.SelectRaid:    selectGroup,
	}
}

// effectModes returns the target modes of an effect. An effect without modes
// applies to its caster.
func effectModes(e *spells.Effect) []spells.Target {
	if e.TargetA == spells.TargetNone && e.TargetB == spells.TargetNone {
		return []spells.Target{spells.TargetCaster}
	}
	var modes []spells.Target
	for _, t := range [2]spells.Target{e.TargetA, e.TargetB} {
		if t != spells.TargetNone {
			modes = append(modes, t)
		}
	}
	return modes
}

// chains returns true if the mode hops from the explicit target to nearby units.
// A single target mode with chain targets set chains as well.
func chains(e *spells.Effect, info spells.TargetInfo) bool {
	if info.Selection == spells.SelectChain {
		return true
	}
	return info.Selection == spells.SelectDefault && info.Reference == spells.RefTarget && e.ChainTargets > 1
}

// producesTargets returns true if some mode of the effect selects units, objects or items.
func producesTargets(e *spells.Effect) bool {
	for _, t := range effectModes(e) {
		switch spells.TargetInfoOf(t).Object {
		case spells.ObjectUnit, spells.ObjectGameObject, spells.ObjectItem:
			return true
		}
	}
	return false
}

// Resolve selects the targets of effect slot i. Source and destination points
// chosen by the effect are stored on the cast for later slots.
func (m *Manager) Resolve(c *Cast, i int) Resolution {
	var res Resolution
	if i < 0 || i >= len(c.Spell.Effects) {
		return res
	}
	caster, ok := m.lookup.FindUnit(c.Caster)
	if !ok {
		return res
	}
	if !c.hasSrc {
		c.Src, c.hasSrc = caster.Pos, true
	}
	if !c.HasDest && c.Explicit.HasDest {
		c.Dest, c.HasDest = c.Explicit.Dest, true
	}

	e := &c.Spell.Effects[i]
	for _, mode := range effectModes(e) {
		sc := &selectCtx{m: m, c: c, caster: caster, effect: e, index: i, info: spells.TargetInfoOf(mode)}
		switch sc.info.Object {
		case spells.ObjectSrc:
			if p, ok := sc.reference(); ok {
				c.Src = p
			}
		case spells.ObjectDest:
			if p, ok := sc.reference(); ok {
				c.Dest, c.HasDest = p, true
			}
		case spells.ObjectUnit:
			sel, ok := unitSelectors[sc.info.Selection]
			if chains(e, sc.info) {
				sel = selectChain
			}
			if !ok {
				m.log.Warn("no selector for target mode", "spell", c.Spell.ID, "effect", i, "mode", mode)
				continue
			}
			res.Units = append(res.Units, sel(sc)...)
		case spells.ObjectGameObject:
			res.Objects = append(res.Objects, selectObjects(sc)...)
		case spells.ObjectItem:
			if c.Explicit.Item != 0 {
				res.Item = c.Explicit.Item
			}
		}
	}

	res.Units = dedup(res.Units)
	res.Objects = dedup(res.Objects)
	res.Units = m.filterScript(c, caster, i, res.Units)
	if limit := c.Spell.MaxTargets; limit > 0 && len(res.Units) > limit {
		res.Units = prune(res.Units, c.Explicit.Unit, limit, m.rand)
	}
	res.Dest, res.HasDest = c.Dest, c.HasDest
	return res
}

// reference returns the position a target mode measures from.
func (sc *selectCtx) reference() (entity.Position, bool) {
	switch sc.info.Reference {
	case spells.RefCaster:
		return sc.caster.Pos, true
	case spells.RefTarget:
		if u, ok := sc.explicitUnit(); ok {
			return u.Pos, true
		}
		if o, ok := sc.m.lookup.FindObject(sc.c.Explicit.Object); ok && sc.c.Explicit.Object != 0 {
			return o.Pos, true
		}
		return entity.Position{}, false
	case spells.RefSrc:
		return sc.c.Src, true
	case spells.RefDest:
		if sc.c.HasDest {
			return sc.c.Dest, true
		}
		return sc.caster.Pos, true
	}
	return sc.caster.Pos, true
}

// anchor returns the unit a mode is relative to: the caster or the explicit target.
func (sc *selectCtx) anchor() (*entity.Unit, bool) {
	if sc.info.Reference == spells.RefTarget {
		return sc.explicitUnit()
	}
	return sc.caster, true
}

func (sc *selectCtx) explicitUnit() (*entity.Unit, bool) {
	id := sc.c.Explicit.Unit
	if id == 0 {
		return nil, false
	}
	if id == sc.caster.GUID {
		return sc.caster, true
	}
	return sc.m.lookup.FindUnit(id)
}

// accepts applies the mode's relationship check and the spell's general target rules.
func (sc *selectCtx) accepts(u *entity.Unit, anchor *entity.Unit) bool {
	t := sc.c.Spell
	switch {
	case t.HasAttr(spells.AttrRequireDeadTarget):
		if u.IsAlive() {
			return false
		}
	case !u.IsAlive() && !t.HasAttr(spells.AttrAllowDeadTarget) && sc.info.Check != spells.CheckEntry:
		return false
	}
	if u.GUID != sc.caster.GUID && !t.TargetCreatureTypes.Allows(u.Type) {
		return false
	}
	switch sc.info.Check {
	case spells.CheckEnemy:
		return u.GUID != sc.caster.GUID && sc.caster.IsHostileTo(u)
	case spells.CheckAlly:
		return sc.caster.IsFriendlyTo(u)
	case spells.CheckEntry:
		return sc.matchesEntry(u)
	case spells.CheckParty:
		return anchor != nil && anchor.InPartyWith(u)
	case spells.CheckRaid:
		return anchor != nil && anchor.InGroupWith(u)
	}
	return true
}

// matchesEntry checks a unit against the spell's script target entries.
// A spell without entries accepts any unit of the right liveness.
func (sc *selectCtx) matchesEntry(u *entity.Unit) bool {
	entries := sc.m.content.ScriptTargets(sc.c.Spell.ID)
	if len(entries) == 0 {
		return u.IsAlive()
	}
	for _, st := range entries {
		switch st.Type {
		case spells.ScriptTargetCreature:
			if u.Entry == st.Entry && u.IsAlive() {
				return true
			}
		case spells.ScriptTargetDeadCreature:
			if u.Entry == st.Entry && !u.IsAlive() {
				return true
			}
		}
	}
	return false
}

func (sc *selectCtx) radius() float64 {
	if sc.effect.Radius > 0 {
		return sc.effect.Radius
	}
	return sc.c.Spell.MaxRange
}

// candidate is a unit with its distance from the selection center.
type candidate struct {
	unit *entity.Unit
	dist float64
}

// gather returns the units within radius of center that pass the check and the
// extra filter, ordered by distance then ID. With los set, units out of sight
// of the center are skipped.
func (sc *selectCtx) gather(center entity.Position, radius float64, los bool, keep func(*entity.Unit) bool) []candidate {
	anchor, _ := sc.anchor()
	var out []candidate
	for _, id := range sc.m.lookup.QueryUnits(entity.Query{Center: center, Radius: radius}) {
		u, ok := sc.m.lookup.FindUnit(id)
		if !ok || !sc.accepts(u, anchor) {
			continue
		}
		if keep != nil && !keep(u) {
			continue
		}
		if los && !sc.c.Spell.HasAttr(spells.AttrIgnoreLineOfSight) && !sc.m.lookup.InLineOfSight(center, u.Pos) {
			continue
		}
		out = append(out, candidate{unit: u, dist: center.Distance(u.Pos)})
	}
	sortCandidates(out)
	return out
}

func sortCandidates(cs []candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].dist != cs[j].dist {
			return cs[i].dist < cs[j].dist
		}
		return cs[i].unit.GUID < cs[j].unit.GUID
	})
}

func ids(cs []candidate) []entity.ID {
	out := make([]entity.ID, len(cs))
	for i, c := range cs {
		out[i] = c.unit.GUID
	}
	return out
}

func selectDefault(sc *selectCtx) []entity.ID {
	if sc.info.Reference == spells.RefCaster {
		return []entity.ID{sc.caster.GUID}
	}
	u, ok := sc.explicitUnit()
	if !ok {
		return nil
	}
	if u.GUID != sc.caster.GUID && !sc.accepts(u, sc.caster) {
		return nil
	}
	return []entity.ID{u.GUID}
}

func selectPet(sc *selectCtx) []entity.ID {
	for _, id := range sc.caster.Pets {
		if u, ok := sc.m.lookup.FindUnit(id); ok && u.IsAlive() {
			return []entity.ID{id}
		}
	}
	return nil
}

func selectNearby(sc *selectCtx) []entity.ID {
	found := sc.gather(sc.caster.Pos, sc.radius(), true, func(u *entity.Unit) bool {
		return u.GUID != sc.caster.GUID || sc.info.Check == spells.CheckAlly
	})
	if len(found) == 0 {
		return nil
	}
	return []entity.ID{found[0].unit.GUID}
}

func selectArea(sc *selectCtx) []entity.ID {
	center, ok := sc.reference()
	if !ok {
		return nil
	}
	return ids(sc.gather(center, sc.effect.Radius, true, nil))
}

// coneAngle returns the full arc of a cone in radians. Templates carry the
// full angle, the configured fallback is a half-angle.
func (sc *selectCtx) coneAngle() float64 {
	deg := sc.c.Spell.ConeAngle
	if deg <= 0 {
		deg = 2 * sc.m.cfg.ConeHalfAngle
	}
	return deg * math.Pi / 180
}

func selectCone(sc *selectCtx) []entity.ID {
	arc := sc.coneAngle()
	origin := sc.caster.Pos
	return ids(sc.gather(origin, sc.effect.Radius, true, func(u *entity.Unit) bool {
		return u.GUID != sc.caster.GUID && origin.HasInArc(arc, u.Pos)
	}))
}

func selectLine(sc *selectCtx) []entity.ID {
	origin := sc.caster.Pos
	width := sc.m.cfg.LineWidth
	return ids(sc.gather(origin, sc.effect.Radius, true, func(u *entity.Unit) bool {
		return u.GUID != sc.caster.GUID && origin.InLine(u.Pos, width)
	}))
}

// jumpRadius is the chain hop distance for the spell's damage class.
func (sc *selectCtx) jumpRadius() float64 {
	switch sc.c.Spell.DamageClass {
	case spells.DamageClassMelee:
		return sc.m.cfg.ChainRadiusMelee
	case spells.DamageClassRanged:
		return sc.m.cfg.ChainRadiusRanged
	}
	return sc.m.cfg.ChainRadiusMagic
}

// selectChain starts at the explicit target and repeatedly hops to the unit
// nearest the previous hop, within jump radius and in sight of it.
func selectChain(sc *selectCtx) []entity.ID {
	first, ok := sc.explicitUnit()
	if !ok || !sc.accepts(first, sc.caster) {
		return nil
	}
	limit := sc.effect.ChainTargets
	if limit <= 0 {
		limit = 1
	}
	jump := sc.jumpRadius()
	heal := sc.effect.Type == spells.EffectHeal || sc.effect.Type == spells.EffectHealPercent

	pool := sc.gather(first.Pos, jump*float64(limit), false, func(u *entity.Unit) bool {
		return u.GUID != first.GUID && (!heal || u.Health < u.MaxHealth)
	})
	chain := []entity.ID{first.GUID}
	focus := first
	for len(chain) < limit && len(pool) > 0 {
		for i := range pool {
			pool[i].dist = focus.Pos.Distance(pool[i].unit.Pos)
		}
		sortCandidates(pool)
		next := -1
		for i, c := range pool {
			if c.dist > jump {
				break
			}
			if sc.c.Spell.HasAttr(spells.AttrIgnoreLineOfSight) || sc.m.lookup.InLineOfSight(focus.Pos, c.unit.Pos) {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		focus = pool[next].unit
		chain = append(chain, focus.GUID)
		pool = append(pool[:next], pool[next+1:]...)
	}
	return chain
}

// selectGroup expands the anchor's party or raid, with pets when the spell asks for them.
func selectGroup(sc *selectCtx) []entity.ID {
	anchor, ok := sc.anchor()
	if !ok {
		return nil
	}
	members := anchor.Group
	if len(members) == 0 {
		members = []entity.ID{anchor.GUID}
	}
	radius := sc.radius()
	withPets := sc.c.Spell.HasAttr(spells.AttrIncludePets)

	var out []candidate
	add := func(u *entity.Unit) {
		if !u.IsAlive() && !sc.c.Spell.HasAttr(spells.AttrAllowDeadTarget) {
			return
		}
		d := anchor.Pos.Distance(u.Pos)
		if radius > 0 && d > radius {
			return
		}
		out = append(out, candidate{unit: u, dist: d})
	}
	for _, id := range members {
		u, ok := sc.m.lookup.FindUnit(id)
		if !ok {
			continue
		}
		if sc.info.Selection == spells.SelectParty && !anchor.InPartyWith(u) {
			continue
		}
		add(u)
		if withPets {
			for _, pid := range u.Pets {
				if pet, ok := sc.m.lookup.FindUnit(pid); ok {
					add(pet)
				}
			}
		}
	}
	sortCandidates(out)
	return ids(out)
}

// selectObjects handles game object modes: the explicit object or objects around a point.
func selectObjects(sc *selectCtx) []entity.ID {
	if sc.info.Selection != spells.SelectArea {
		if sc.c.Explicit.Object == 0 {
			return nil
		}
		if _, ok := sc.m.lookup.FindObject(sc.c.Explicit.Object); !ok {
			return nil
		}
		return []entity.ID{sc.c.Explicit.Object}
	}

	center, ok := sc.reference()
	if !ok {
		return nil
	}
	var entries []uint32
	for _, st := range sc.m.content.ScriptTargets(sc.c.Spell.ID) {
		if st.Type == spells.ScriptTargetGameObject {
			entries = append(entries, st.Entry)
		}
	}
	type objCandidate struct {
		id   entity.ID
		dist float64
	}
	var found []objCandidate
	for _, id := range sc.m.lookup.QueryObjects(entity.Query{Center: center, Radius: sc.effect.Radius}) {
		o, ok := sc.m.lookup.FindObject(id)
		if !ok {
			continue
		}
		if len(entries) > 0 && !containsEntry(entries, o.Entry) {
			continue
		}
		found = append(found, objCandidate{id: id, dist: center.Distance(o.Pos)})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].id < found[j].id
	})
	out := make([]entity.ID, len(found))
	for i, f := range found {
		out[i] = f.id
	}
	return out
}

func containsEntry(entries []uint32, entry uint32) bool {
	for _, e := range entries {
		if e == entry {
			return true
		}
	}
	return false
}

// dedup removes repeated IDs, keeping the first occurrence.
func dedup(in []entity.ID) []entity.ID {
	if len(in) < 2 {
		return in
	}
	seen := make(map[entity.ID]struct{}, len(in))
	out := in[:0]
	for _, id := range in {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// prune randomly removes entries until limit remain. The explicit target is never removed.
// The surviving entries keep their order.
func prune(in []entity.ID, keep entity.ID, limit int, r Rand) []entity.ID {
	out := append([]entity.ID(nil), in...)
	for len(out) > limit {
		var removable []int
		for i, id := range out {
			if id != keep {
				removable = append(removable, i)
			}
		}
		if len(removable) == 0 {
			break
		}
		idx := removable[r.Intn(len(removable))]
		out = append(out[:idx], out[idx+1:]...)
	}
	return out
}

// filterScript lets a spell script narrow the selection.
func (m *Manager) filterScript(c *Cast, caster *entity.Unit, i int, units []entity.ID) []entity.ID {
	if m.scripts == nil || c.Spell.ScriptName == "" || len(units) == 0 {
		return units
	}
	call := ScriptCall{Script: c.Spell.ScriptName, Spell: c.Spell.ID, Effect: i, Caster: caster.GUID, Target: c.Explicit.Unit}
	filtered, err := m.scripts.FilterTargets(call, units)
	if err != nil {
		m.log.Error("target filter script failed", "spell", c.Spell.ID, "script", c.Spell.ScriptName, "error", err)
		return units
	}
	allowed := make(map[entity.ID]struct{}, len(filtered))
	for _, id := range filtered {
		allowed[id] = struct{}{}
	}
	// keep the selection order, whatever order the script returned
	out := units[:0]
	for _, id := range units {
		if _, ok := allowed[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
