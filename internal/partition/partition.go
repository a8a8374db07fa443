// Package partition runs one map instance: a request queue drained on every
// tick, followed by aura updates and the cast manager update. Everything a
// partition owns is touched only from its Run goroutine.
package partition

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lawnchairsociety/castcore/internal/casting"
	"github.com/lawnchairsociety/castcore/internal/config"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/logger"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

var (
	// ErrPartitionBusy is returned by Submit when the request queue is full.
	ErrPartitionBusy = errors.New("partition request queue is full")

	// ErrUnknownUnit is returned when a request names a unit the partition does not hold.
	ErrUnknownUnit = errors.New("unit not in partition")
)

// Kind is what a request asks the partition to do.
type Kind uint8

const (
	KindCast Kind = iota
	KindCancel
	KindMove
	KindStop
	KindSpawn
	KindDespawn
)

var kindNames = [...]string{"cast", "cancel", "move", "stop", "spawn", "despawn"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Request is one unit of work submitted from outside the partition goroutine.
type Request struct {
	Kind Kind

	// Unit is the caster, mover or unit to despawn.
	Unit entity.ID

	Spell   spells.ID
	Targets casting.Targets
	Handle  casting.Handle
	Pos     entity.Position

	// Spawn is the unit to add for KindSpawn.
	Spawn *entity.Unit

	// Reply, when set, receives exactly one Reply. It must be buffered;
	// a full channel drops the reply rather than stall the partition.
	Reply chan<- Reply
}

// Reply reports the outcome of a request.
type Reply struct {
	Handle casting.Handle
	Unit   entity.ID
	Reason casting.CastFailureReason
	Err    error
}

// Partition owns a map and the cast manager that runs on it.
type Partition struct {
	world    *entity.Map
	casts    *casting.Manager
	requests chan Request
	tick     time.Duration
	log      *slog.Logger
}

// New creates a partition for the map. The manager must have been built with
// the map as its lookup.
func New(cfg config.PartitionConfig, world *entity.Map, casts *casting.Manager) *Partition {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	key := world.Key()
	return &Partition{
		world:    world,
		casts:    casts,
		requests: make(chan Request, size),
		tick:     cfg.Tick(),
		log:      logger.Component("partition").With("map", key.Map, "instance", key.Instance),
	}
}

// Key returns the partition key.
func (p *Partition) Key() entity.MapKey {
	return p.world.Key()
}

// Submit queues a request without blocking.
func (p *Partition) Submit(req Request) error {
	select {
	case p.requests <- req:
		return nil
	default:
		return ErrPartitionBusy
	}
}

// Run drives the partition until ctx is cancelled.
func (p *Partition) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	p.log.Info("Partition started", "tick", p.tick)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Partition stopped", "active_casts", p.casts.Active())
			return nil
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			p.Drain()
			p.Step(elapsed)
		}
	}
}

// Drain handles every queued request and returns how many there were.
func (p *Partition) Drain() int {
	n := 0
	for {
		select {
		case req := <-p.requests:
			p.handle(req)
			n++
		default:
			return n
		}
	}
}

// Step advances auras, persistent areas and casts by elapsed.
func (p *Partition) Step(elapsed time.Duration) {
	ticks := p.world.Update(elapsed)
	if len(ticks) > 0 {
		p.casts.OnAuraTicks(ticks)
	}
	p.casts.Update(elapsed)
}

func (p *Partition) handle(req Request) {
	var r Reply
	switch req.Kind {
	case KindCast:
		r.Handle, r.Reason = p.casts.BeginCast(req.Unit, req.Spell, req.Targets)
		if r.Reason.Failed() {
			p.log.Debug("Cast refused", "caster", req.Unit, "spell", req.Spell, "reason", r.Reason)
		}
	case KindCancel:
		r.Handle = req.Handle
		r.Err = p.casts.Cancel(req.Handle)
	case KindMove:
		r.Err = p.move(req.Unit, req.Pos, true)
	case KindStop:
		r.Err = p.move(req.Unit, req.Pos, false)
	case KindSpawn:
		if req.Spawn == nil {
			r.Err = ErrUnknownUnit
			break
		}
		r.Unit = p.world.AddUnit(req.Spawn)
		p.log.Debug("Unit spawned", "unit", r.Unit, "name", req.Spawn.Name)
	case KindDespawn:
		p.casts.Forget(req.Unit)
		if _, ok := p.world.RemoveUnit(req.Unit); !ok {
			r.Err = ErrUnknownUnit
		}
		r.Unit = req.Unit
	default:
		p.log.Warn("Unknown request kind", "kind", req.Kind)
		return
	}

	if req.Reply == nil {
		return
	}
	select {
	case req.Reply <- r:
	default:
		p.log.Warn("Reply dropped", "kind", req.Kind, "unit", req.Unit)
	}
}

// move relocates a unit. Moving units interrupt casts and channels that
// cannot be performed on the move at the next update.
func (p *Partition) move(id entity.ID, pos entity.Position, moving bool) error {
	u, ok := p.world.FindUnit(id)
	if !ok {
		return ErrUnknownUnit
	}
	p.world.MoveUnit(id, pos)
	u.Moving = moving
	return nil
}
