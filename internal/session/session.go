// Package session turns msgpack request frames from websocket clients into
// partition requests and answers each with a response or error frame.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lawnchairsociety/castcore/internal/casting"
	"github.com/lawnchairsociety/castcore/internal/config"
	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/logger"
	"github.com/lawnchairsociety/castcore/internal/notify"
	"github.com/lawnchairsociety/castcore/internal/partition"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// Request frame types.
const (
	FrameCast    = "cast"
	FrameCancel  = "cancel"
	FrameMove    = "move"
	FrameStop    = "stop"
	FrameSpawn   = "spawn"
	FrameDespawn = "despawn"
)

var (
	ErrUnknownFrame    = errors.New("unknown frame type")
	ErrUnknownCreature = errors.New("unknown creature")
	ErrNoReply         = errors.New("partition did not reply in time")
	ErrLockedOut       = errors.New("too many rejected requests")
)

// Point is a position on the wire.
type Point struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
	Z float64 `msgpack:"z"`
	O float64 `msgpack:"o,omitempty"`
}

func (p Point) position() entity.Position {
	return entity.Position{X: p.X, Y: p.Y, Z: p.Z, O: p.O}
}

// CastBody asks a unit to cast a spell. Dest, when present, is the ground target.
type CastBody struct {
	Unit   uint64 `msgpack:"unit"`
	Spell  uint32 `msgpack:"spell"`
	Target uint64 `msgpack:"target,omitempty"`
	Object uint64 `msgpack:"object,omitempty"`
	Item   uint64 `msgpack:"item,omitempty"`
	Dest   *Point `msgpack:"dest,omitempty"`
}

// CancelBody cancels one of the unit's casts.
type CancelBody struct {
	Unit   uint64 `msgpack:"unit"`
	Handle string `msgpack:"handle"`
}

// MoveBody moves a unit. Stop frames use it too.
type MoveBody struct {
	Unit uint64 `msgpack:"unit"`
	Pos  Point  `msgpack:"pos"`
}

// SpawnBody places a creature on a map instance.
type SpawnBody struct {
	Map      uint32 `msgpack:"map"`
	Instance uint32 `msgpack:"instance,omitempty"`
	Creature uint32 `msgpack:"creature"`
	Team     uint8  `msgpack:"team,omitempty"`
	Pos      Point  `msgpack:"pos"`
}

// DespawnBody removes a unit.
type DespawnBody struct {
	Unit uint64 `msgpack:"unit"`
}

// Response answers a request frame that reached its partition.
type Response struct {
	Seq    uint64 `msgpack:"seq"`
	Kind   string `msgpack:"kind"`
	Handle string `msgpack:"handle,omitempty"`
	Unit   uint64 `msgpack:"unit,omitempty"`
	Reason string `msgpack:"reason,omitempty"`
	Failed bool   `msgpack:"failed"`
}

// Submitter queues requests on partitions; *partition.Router implements it.
type Submitter interface {
	Submit(req partition.Request) error
	SubmitTo(key entity.MapKey, req partition.Request) error
}

// Creatures looks up creature templates for spawn frames.
type Creatures interface {
	Creature(entry uint32) (*content.Creature, bool)
}

// Intake decodes client frames and forwards them to partitions.
type Intake struct {
	parts     Submitter
	creatures Creatures
	timeout   time.Duration
	throttle  *throttle
	log       *slog.Logger
}

// New creates an intake. creatures may be nil, which refuses spawn frames.
func New(cfg config.SessionConfig, parts Submitter, creatures Creatures) *Intake {
	return &Intake{
		parts:     parts,
		creatures: creatures,
		timeout:   cfg.ReplyTimeout(),
		throttle:  newThrottle(cfg),
		log:       logger.Component("session"),
	}
}

// Run forgets idle clients every minute until ctx is cancelled.
func (in *Intake) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := in.throttle.sweep(10 * time.Minute); n > 0 {
				in.log.Debug("Forgot idle clients", "count", n)
			}
		}
	}
}

// Handle implements notify.Handler.
func (in *Intake) Handle(ctx context.Context, client uuid.UUID, data []byte) []byte {
	if locked, left := in.throttle.locked(client); locked {
		return errorFrame(0, oops.In("session").With("retry_in", left.Round(time.Second)).Wrap(ErrLockedOut))
	}

	env, err := notify.Decode(data)
	if err != nil {
		return in.reject(client, 0, oops.In("session").Code("bad_frame").Wrapf(err, "decode frame"))
	}

	resp, err := in.dispatch(ctx, env)
	if err != nil {
		return in.reject(client, env.Seq, err)
	}
	resp.Seq = env.Seq
	frame, err := notify.Encode(notify.FrameResponse, 0, resp)
	if err != nil {
		in.log.Error("Failed to encode response", "client", client, "error", err)
		return nil
	}
	return frame
}

func (in *Intake) reject(client uuid.UUID, seq uint64, err error) []byte {
	in.log.Debug("Request rejected", "client", client, "seq", seq, "error", err)
	if locked, d := in.throttle.strike(client); locked {
		in.log.Warn("Client locked out", "client", client, "duration", d)
	}
	return errorFrame(seq, err)
}

func errorFrame(seq uint64, err error) []byte {
	frame, _ := notify.Encode(notify.FrameError, 0, notify.ErrorBody{Seq: seq, Message: err.Error()})
	return frame
}

func (in *Intake) dispatch(ctx context.Context, env notify.RawEnvelope) (Response, error) {
	errb := oops.In("session").With("type", env.Type, "seq", env.Seq)

	var req partition.Request
	var spawnAt *entity.MapKey
	switch env.Type {
	case FrameCast:
		var b CastBody
		if err := msgpack.Unmarshal(env.Body, &b); err != nil {
			return Response{}, errb.Code("bad_frame").Wrapf(err, "decode cast")
		}
		req = partition.Request{
			Kind:  partition.KindCast,
			Unit:  entity.ID(b.Unit),
			Spell: spells.ID(b.Spell),
			Targets: casting.Targets{
				Unit:   entity.ID(b.Target),
				Object: entity.ID(b.Object),
				Item:   entity.ID(b.Item),
			},
		}
		if b.Dest != nil {
			req.Targets.Dest = b.Dest.position()
			req.Targets.HasDest = true
		}
	case FrameCancel:
		var b CancelBody
		if err := msgpack.Unmarshal(env.Body, &b); err != nil {
			return Response{}, errb.Code("bad_frame").Wrapf(err, "decode cancel")
		}
		h, err := casting.ParseHandle(b.Handle)
		if err != nil {
			return Response{}, errb.Code("bad_frame").Wrapf(err, "parse handle")
		}
		req = partition.Request{Kind: partition.KindCancel, Unit: entity.ID(b.Unit), Handle: h}
	case FrameMove, FrameStop:
		var b MoveBody
		if err := msgpack.Unmarshal(env.Body, &b); err != nil {
			return Response{}, errb.Code("bad_frame").Wrapf(err, "decode %s", env.Type)
		}
		kind := partition.KindMove
		if env.Type == FrameStop {
			kind = partition.KindStop
		}
		req = partition.Request{Kind: kind, Unit: entity.ID(b.Unit), Pos: b.Pos.position()}
	case FrameSpawn:
		var b SpawnBody
		if err := msgpack.Unmarshal(env.Body, &b); err != nil {
			return Response{}, errb.Code("bad_frame").Wrapf(err, "decode spawn")
		}
		if in.creatures == nil {
			return Response{}, errb.With("creature", b.Creature).Wrap(ErrUnknownCreature)
		}
		tmpl, ok := in.creatures.Creature(b.Creature)
		if !ok {
			return Response{}, errb.With("creature", b.Creature).Wrap(ErrUnknownCreature)
		}
		u := tmpl.NewUnit()
		u.Team = b.Team
		u.Pos = b.Pos.position()
		req = partition.Request{Kind: partition.KindSpawn, Spawn: u}
		spawnAt = &entity.MapKey{Map: b.Map, Instance: b.Instance}
	case FrameDespawn:
		var b DespawnBody
		if err := msgpack.Unmarshal(env.Body, &b); err != nil {
			return Response{}, errb.Code("bad_frame").Wrapf(err, "decode despawn")
		}
		req = partition.Request{Kind: partition.KindDespawn, Unit: entity.ID(b.Unit)}
	default:
		return Response{}, errb.Wrap(ErrUnknownFrame)
	}

	reply := make(chan partition.Reply, 1)
	req.Reply = reply
	var err error
	if spawnAt != nil {
		err = in.parts.SubmitTo(*spawnAt, req)
	} else {
		err = in.parts.Submit(req)
	}
	if err != nil {
		return Response{}, errb.With("unit", req.Unit).Wrap(err)
	}

	timer := time.NewTimer(in.timeout)
	defer timer.Stop()
	select {
	case r := <-reply:
		if r.Err != nil {
			return Response{}, errb.With("unit", req.Unit).Wrap(r.Err)
		}
		resp := Response{Kind: req.Kind.String(), Unit: uint64(r.Unit)}
		if r.Reason.Failed() {
			resp.Reason = r.Reason.String()
			resp.Failed = true
		}
		if !r.Handle.IsZero() {
			resp.Handle = r.Handle.String()
		}
		return resp, nil
	case <-timer.C:
		return Response{}, errb.Wrap(ErrNoReply)
	case <-ctx.Done():
		return Response{}, errb.Wrap(ctx.Err())
	}
}
