package entity

import (
	"math"
	"sort"
	"time"

	"github.com/lawnchairsociety/castcore/internal/spells"
)

// Obstacle is a vertical cylinder that blocks line of sight.
type Obstacle struct {
	X      float64
	Y      float64
	Radius float64
}

// Map is the in-memory state of one partition. It is owned by a single
// goroutine; only the shared Directory is safe for concurrent use.
type Map struct {
	key       MapKey
	dir       *Directory
	units     map[ID]*Unit
	objects   map[ID]*GameObject
	items     map[ID]*Item
	areas     map[ID]*AreaEffect
	unitGrid  *grid
	objGrid   *grid
	obstacles []Obstacle
}

// NewMap creates an empty partition registered in dir.
func NewMap(key MapKey, dir *Directory) *Map {
	if dir == nil {
		dir = NewDirectory()
	}
	return &Map{
		key:      key,
		dir:      dir,
		units:    make(map[ID]*Unit),
		objects:  make(map[ID]*GameObject),
		items:    make(map[ID]*Item),
		areas:    make(map[ID]*AreaEffect),
		unitGrid: newGrid(DefaultCellSize),
		objGrid:  newGrid(DefaultCellSize),
	}
}

// Key returns the partition key.
func (m *Map) Key() MapKey {
	return m.key
}

// Directory returns the shared directory.
func (m *Map) Directory() *Directory {
	return m.dir
}

// AddUnit places a unit in the partition, allocating an ID if it has none.
func (m *Map) AddUnit(u *Unit) ID {
	if u.GUID == 0 {
		u.GUID = m.dir.NextID()
	}
	if u.Bag == nil {
		u.Bag = make(map[uint32]int)
	}
	u.Key = m.key
	m.units[u.GUID] = u
	m.unitGrid.upsert(u.GUID, u.Pos)
	m.dir.set(u.GUID, m.key)
	return u.GUID
}

// RemoveUnit takes a unit out of the partition.
func (m *Map) RemoveUnit(id ID) (*Unit, bool) {
	u, ok := m.units[id]
	if !ok {
		return nil, false
	}
	delete(m.units, id)
	m.unitGrid.remove(id)
	m.dir.clear(id, m.key)
	return u, true
}

// Transfer moves a unit into another partition.
func (m *Map) Transfer(id ID, to *Map) bool {
	u, ok := m.RemoveUnit(id)
	if !ok {
		return false
	}
	to.AddUnit(u)
	return true
}

// MoveUnit updates a unit's position.
func (m *Map) MoveUnit(id ID, pos Position) bool {
	u, ok := m.units[id]
	if !ok {
		return false
	}
	u.Pos = pos
	m.unitGrid.upsert(id, pos)
	return true
}

// AddObject places a game object in the partition.
func (m *Map) AddObject(o *GameObject) ID {
	if o.GUID == 0 {
		o.GUID = m.dir.NextID()
	}
	o.Key = m.key
	m.objects[o.GUID] = o
	m.objGrid.upsert(o.GUID, o.Pos)
	m.dir.set(o.GUID, m.key)
	return o.GUID
}

// RemoveObject takes a game object out of the partition.
func (m *Map) RemoveObject(id ID) bool {
	if _, ok := m.objects[id]; !ok {
		return false
	}
	delete(m.objects, id)
	m.objGrid.remove(id)
	m.dir.clear(id, m.key)
	return true
}

// AddItem registers an item instance owned by a unit of this partition.
func (m *Map) AddItem(it *Item) ID {
	if it.GUID == 0 {
		it.GUID = m.dir.NextID()
	}
	m.items[it.GUID] = it
	m.dir.set(it.GUID, m.key)
	return it.GUID
}

// RemoveItem destroys an item instance.
func (m *Map) RemoveItem(id ID) bool {
	if _, ok := m.items[id]; !ok {
		return false
	}
	delete(m.items, id)
	m.dir.clear(id, m.key)
	return true
}

// AddObstacle adds a line of sight blocker.
func (m *Map) AddObstacle(o Obstacle) {
	m.obstacles = append(m.obstacles, o)
}

// Units returns every unit ordered by ID.
func (m *Map) Units() []*Unit {
	out := make([]*Unit, 0, len(m.units))
	for _, u := range m.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out
}

// Areas returns every persistent area effect ordered by ID.
func (m *Map) Areas() []*AreaEffect {
	out := make([]*AreaEffect, 0, len(m.areas))
	for _, a := range m.areas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out
}

// FindUnit implements Lookup.
func (m *Map) FindUnit(id ID) (*Unit, bool) {
	u, ok := m.units[id]
	return u, ok
}

// FindObject implements Lookup.
func (m *Map) FindObject(id ID) (*GameObject, bool) {
	o, ok := m.objects[id]
	return o, ok
}

// FindItem implements Lookup.
func (m *Map) FindItem(id ID) (*Item, bool) {
	it, ok := m.items[id]
	return it, ok
}

// QueryUnits implements Lookup. Results are ordered by ID.
func (m *Map) QueryUnits(q Query) []ID {
	var out []ID
	for _, id := range m.unitGrid.candidates(q.Center, q.Radius) {
		if u := m.units[id]; u != nil && u.Pos.Distance(q.Center) <= q.Radius {
			out = append(out, id)
		}
	}
	return out
}

// QueryObjects implements Lookup. Results are ordered by ID.
func (m *Map) QueryObjects(q Query) []ID {
	var out []ID
	for _, id := range m.objGrid.candidates(q.Center, q.Radius) {
		if o := m.objects[id]; o != nil && o.Pos.Distance(q.Center) <= q.Radius {
			out = append(out, id)
		}
	}
	return out
}

// InLineOfSight implements Lookup. Obstacles block the 2D segment between the points.
func (m *Map) InLineOfSight(from, to Position) bool {
	for _, o := range m.obstacles {
		if segmentDistance(from.X, from.Y, to.X, to.Y, o.X, o.Y) < o.Radius {
			return false
		}
	}
	return true
}

// Locate implements Lookup.
func (m *Map) Locate(id ID) (MapKey, bool) {
	return m.dir.Locate(id)
}

// SpawnUnit implements Spawner.
func (m *Map) SpawnUnit(u *Unit) ID {
	return m.AddUnit(u)
}

// SpawnArea implements Spawner.
func (m *Map) SpawnArea(a *AreaEffect) ID {
	if a.GUID == 0 {
		a.GUID = m.dir.NextID()
	}
	m.areas[a.GUID] = a
	return a.GUID
}

// Update advances aura timers on every unit and ticks persistent area effects.
func (m *Map) Update(diff time.Duration) []AuraTick {
	var ticks []AuraTick
	for _, u := range m.Units() {
		ticks = append(ticks, u.UpdateAuras(diff)...)
	}
	for _, a := range m.Areas() {
		ticks = append(ticks, m.updateArea(a, diff)...)
	}
	return ticks
}

func (m *Map) updateArea(a *AreaEffect, diff time.Duration) []AuraTick {
	elapsed := diff
	if elapsed > a.Remaining {
		elapsed = a.Remaining
	}
	a.Remaining -= diff
	var ticks []AuraTick
	if a.Period > 0 {
		a.tick += elapsed
		for a.tick >= a.Period {
			a.tick -= a.Period
			for _, id := range m.QueryUnits(Query{Center: a.Pos, Radius: a.Radius}) {
				u := m.units[id]
				if !u.IsAlive() || (u.Team == a.Team) != a.Heal {
					continue
				}
				var applied int
				kind := spells.AuraPeriodicDamage
				if a.Heal {
					kind = spells.AuraPeriodicHeal
					applied = u.ModifyHealth(a.Amount)
				} else {
					if u.IsImmuneToSchool(a.School) {
						continue
					}
					applied = -u.ModifyHealth(-a.Amount)
				}
				ticks = append(ticks, AuraTick{Spell: a.Spell, Caster: a.Caster, Target: id, Type: kind, Amount: applied})
			}
		}
	}
	if a.Remaining <= 0 {
		delete(m.areas, a.GUID)
	}
	return ticks
}

// segmentDistance returns the distance from point (px, py) to segment (ax, ay)-(bx, by).
func segmentDistance(ax, ay, bx, by, px, py float64) float64 {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}
