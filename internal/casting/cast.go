// Package casting turns cast requests into validated, targeted and timed effect applications.
//
// A Manager owns every cast of one partition. It is not safe for concurrent use:
// the partition goroutine is the only caller.
package casting

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
	"github.com/oklog/ulid/v2"
)

// Handle identifies a cast instance.
type Handle ulid.ULID

// String returns the handle in its canonical text form.
func (h Handle) String() string {
	return ulid.ULID(h).String()
}

// IsZero returns true for the zero handle, which never names a cast.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// ParseHandle parses a handle from its text form.
func ParseHandle(s string) (Handle, error) {
	id, err := ulid.Parse(s)
	return Handle(id), err
}

// State is the lifecycle state of a cast.
type State uint8

const (
	StatePreparing State = iota
	StateCasting
	StateDelayed
	StateImmediate
	StateFinished
)

var stateNames = [...]string{
	StatePreparing: "preparing",
	StateCasting:   "casting",
	StateDelayed:   "delayed",
	StateImmediate: "immediate",
	StateFinished:  "finished",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Slot is the execution slot a cast occupies on its caster.
type Slot uint8

const (
	SlotGeneric Slot = iota
	SlotMelee
	SlotChanneled
	SlotAutoRepeat
	SlotNone // triggered casts occupy nothing
)

func slotFor(t *spells.Template) Slot {
	switch {
	case t.HasAttr(spells.AttrAutoRepeat):
		return SlotAutoRepeat
	case t.HasAttr(spells.AttrNextSwing):
		return SlotMelee
	case t.IsChanneled():
		return SlotChanneled
	}
	return SlotGeneric
}

// Targets are the explicit targets supplied with a cast request.
type Targets struct {
	Unit    entity.ID
	Object  entity.ID
	Item    entity.ID
	Dest    entity.Position
	HasDest bool
}

// UnitTarget returns targets naming a single unit.
func UnitTarget(id entity.ID) Targets {
	return Targets{Unit: id}
}

// DestTarget returns targets naming a ground point.
func DestTarget(p entity.Position) Targets {
	return Targets{Dest: p, HasDest: true}
}

// HitOutcome is the result of the hit roll against one target.
type HitOutcome uint8

const (
	HitNormal HitOutcome = iota
	HitMiss
	HitResist
	HitDodge
	HitParry
	HitImmune
)

var hitNames = [...]string{
	HitNormal: "hit",
	HitMiss:   "miss",
	HitResist: "resist",
	HitDodge:  "dodge",
	HitParry:  "parry",
	HitImmune: "immune",
}

func (o HitOutcome) String() string {
	if int(o) < len(hitNames) {
		return hitNames[o]
	}
	return "unknown"
}

// TargetEntry is one unit selected by a cast.
type TargetEntry struct {
	Target entity.ID
	Mask   uint8 // effect slots that selected the unit
	Hop    int   // chain position, 0 for the first target

	Miss        HitOutcome
	Crit        bool
	Reflect     bool
	ReflectMiss HitOutcome // outcome of the reflected copy against the caster

	Delay     time.Duration
	Processed bool
	Dropped   bool              // removed without effect, e.g. out of sight on arrival
	Failure   CastFailureReason // why the entry was dropped

	applied uint8
}

// Applied returns the effect slots already applied to the entry.
func (e *TargetEntry) Applied() uint8 {
	return e.applied
}

// ObjectEntry is one game object selected by a cast.
type ObjectEntry struct {
	Target    entity.ID
	Mask      uint8
	Delay     time.Duration
	Processed bool
	applied   uint8
}

// ItemEntry is one item selected by a cast.
type ItemEntry struct {
	Target    entity.ID
	Mask      uint8
	Processed bool
	applied   uint8
}

// Cast is one cast instance. It refers to every entity by ID only.
type Cast struct {
	Handle   Handle
	Caster   entity.ID
	Origin   entity.ID // unit whose action led to the cast; differs from Caster for procs
	Spell    *spells.Template
	Explicit Targets
	Slot     Slot

	Triggered bool
	ByAura    bool
	Executing bool

	CastTime time.Duration

	Units   []*TargetEntry
	Objects []*ObjectEntry
	Items   []*ItemEntry

	Src     entity.Position
	Dest    entity.Position
	HasDest bool
	hasSrc  bool

	destMask    uint8
	destApplied bool
	destDelay   time.Duration

	periodicMask uint8
	combo        int
	depth        int
	mods         []*entity.Aura
	launched     bool

	machine *machine
	result  CastFailureReason
}

// State returns the cast's lifecycle state.
func (c *Cast) State() State {
	return c.machine.state
}

// Result returns the outcome of a finished cast.
func (c *Cast) Result() CastFailureReason {
	return c.result
}

// landed returns FailTargetsDead when every unit of an explicit unit spell
// died before the hit reached it.
func (c *Cast) landed() CastFailureReason {
	if !c.Spell.NeedsExplicitUnit() || len(c.Units) == 0 {
		return FailNone
	}
	for _, e := range c.Units {
		if !e.Dropped || e.Failure != FailTargetsDead {
			return FailNone
		}
	}
	return FailTargetsDead
}

// Remaining returns the time left in the current timed state.
func (c *Cast) Remaining() time.Duration {
	return c.machine.remaining
}

// Pushbacks returns how many pushbacks the cast has received.
func (c *Cast) Pushbacks() int {
	return c.machine.pushbacks
}

// UnitEntry returns the entry for a unit, if it was selected.
func (c *Cast) UnitEntry(id entity.ID) (*TargetEntry, bool) {
	for _, e := range c.Units {
		if e.Target == id {
			return e, true
		}
	}
	return nil, false
}

// Pending returns the number of targets not yet processed.
func (c *Cast) Pending() int {
	n := 0
	for _, e := range c.Units {
		if !e.Processed {
			n++
		}
	}
	for _, o := range c.Objects {
		if !o.Processed {
			n++
		}
	}
	for _, it := range c.Items {
		if !it.Processed {
			n++
		}
	}
	if c.destMask != 0 && !c.destApplied {
		n++
	}
	return n
}

func (c *Cast) finished() bool {
	return c.machine.state == StateFinished
}

func (c *Cast) explicitTarget() entity.ID {
	if c.Explicit.Unit != 0 {
		return c.Explicit.Unit
	}
	return c.Caster
}
