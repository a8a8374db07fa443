package entity

import (
	"sync"
	"sync/atomic"
)

// Query selects entities within Radius of Center.
type Query struct {
	Center Position
	Radius float64
}

// Lookup resolves identifiers to live entities of one partition.
// A miss means the entity is gone or lives in another partition; Locate tells which.
type Lookup interface {
	FindUnit(id ID) (*Unit, bool)
	FindObject(id ID) (*GameObject, bool)
	FindItem(id ID) (*Item, bool)
	QueryUnits(q Query) []ID
	QueryObjects(q Query) []ID
	InLineOfSight(from, to Position) bool
	Locate(id ID) (MapKey, bool)
}

// Spawner creates new entities in a partition. Lookups that cannot spawn
// simply do not implement it.
type Spawner interface {
	SpawnUnit(u *Unit) ID
	SpawnArea(a *AreaEffect) ID
}

// Directory records which partition owns each entity. It is shared by every
// partition and safe for concurrent use.
type Directory struct {
	mu    sync.RWMutex
	where map[ID]MapKey
	next  atomic.Uint64
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{where: make(map[ID]MapKey)}
}

// NextID allocates a fresh entity identifier.
func (d *Directory) NextID() ID {
	return ID(d.next.Add(1))
}

// Locate returns the partition that owns id.
func (d *Directory) Locate(id ID) (MapKey, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	k, ok := d.where[id]
	return k, ok
}

func (d *Directory) set(id ID, k MapKey) {
	d.mu.Lock()
	d.where[id] = k
	d.mu.Unlock()
}

// clear forgets id if it is still owned by k.
func (d *Directory) clear(id ID, k MapKey) {
	d.mu.Lock()
	if d.where[id] == k {
		delete(d.where, id)
	}
	d.mu.Unlock()
}
