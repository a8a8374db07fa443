// Package notify delivers cast events to observers: structured logs, and
// websocket subscribers receiving msgpack frames.
package notify

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lawnchairsociety/castcore/internal/casting"
)

// Frame types sent to subscribers.
const (
	FrameWelcome  = "welcome"
	FrameStarted  = "cast_started"
	FrameResult   = "cast_result"
	FrameEffect   = "effect_applied"
	FrameChannel  = "channel_update"
	FrameDelayed  = "cast_delayed"
	FrameError    = "error"
	FrameResponse = "response"
)

// Envelope wraps every outbound frame. Seq increases by one per frame
// broadcast by a hub; direct replies carry zero.
type Envelope struct {
	Type string `msgpack:"type"`
	Seq  uint64 `msgpack:"seq"`
	Body any    `msgpack:"body"`
}

// RawEnvelope is Envelope with the body left encoded, for consumers that
// switch on Type before decoding.
type RawEnvelope struct {
	Type string             `msgpack:"type"`
	Seq  uint64             `msgpack:"seq"`
	Body msgpack.RawMessage `msgpack:"body"`
}

// Welcome is the first frame a subscriber receives.
type Welcome struct {
	Client string `msgpack:"client"`
	Unit   uint64 `msgpack:"unit,omitempty"`
}

// Started mirrors casting.CastStarted.
type Started struct {
	Handle     string `msgpack:"handle"`
	Spell      uint32 `msgpack:"spell"`
	Caster     uint64 `msgpack:"caster"`
	Target     uint64 `msgpack:"target,omitempty"`
	CastTimeMS int64  `msgpack:"cast_time_ms"`
	Triggered  bool   `msgpack:"triggered,omitempty"`
}

// Result mirrors casting.CastResult.
type Result struct {
	Handle string `msgpack:"handle"`
	Spell  uint32 `msgpack:"spell"`
	Caster uint64 `msgpack:"caster"`
	Reason string `msgpack:"reason"`
	Failed bool   `msgpack:"failed"`
}

// Effect mirrors casting.EffectApplied.
type Effect struct {
	Handle    string `msgpack:"handle"`
	Spell     uint32 `msgpack:"spell"`
	Caster    uint64 `msgpack:"caster"`
	Target    uint64 `msgpack:"target"`
	Slot      int    `msgpack:"slot"`
	Type      string `msgpack:"type"`
	Outcome   string `msgpack:"outcome"`
	Amount    int    `msgpack:"amount"`
	Crit      bool   `msgpack:"crit,omitempty"`
	Reflected bool   `msgpack:"reflected,omitempty"`
	Periodic  bool   `msgpack:"periodic,omitempty"`
	Failure   string `msgpack:"failure,omitempty"`
}

// Channel mirrors casting.ChannelUpdate.
type Channel struct {
	Handle      string `msgpack:"handle"`
	Spell       uint32 `msgpack:"spell"`
	Caster      uint64 `msgpack:"caster"`
	RemainingMS int64  `msgpack:"remaining_ms"`
}

// Delayed mirrors casting.CastDelayed.
type Delayed struct {
	Handle  string `msgpack:"handle"`
	Spell   uint32 `msgpack:"spell"`
	Caster  uint64 `msgpack:"caster"`
	DelayMS int64  `msgpack:"delay_ms"`
}

// ErrorBody reports a rejected inbound frame. Seq echoes the frame's seq.
type ErrorBody struct {
	Seq     uint64 `msgpack:"seq,omitempty"`
	Message string `msgpack:"message"`
}

// Encode marshals a frame.
func Encode(typ string, seq uint64, body any) ([]byte, error) {
	return msgpack.Marshal(&Envelope{Type: typ, Seq: seq, Body: body})
}

// Decode unmarshals a frame, leaving its body encoded.
func Decode(data []byte) (RawEnvelope, error) {
	var env RawEnvelope
	err := msgpack.Unmarshal(data, &env)
	return env, err
}

func startedBody(ev casting.CastStarted) Started {
	return Started{
		Handle:     ev.Handle.String(),
		Spell:      uint32(ev.Spell),
		Caster:     uint64(ev.Caster),
		Target:     uint64(ev.Target),
		CastTimeMS: ev.CastTime.Milliseconds(),
		Triggered:  ev.Triggered,
	}
}

func resultBody(ev casting.CastResult) Result {
	return Result{
		Handle: ev.Handle.String(),
		Spell:  uint32(ev.Spell),
		Caster: uint64(ev.Caster),
		Reason: ev.Reason.String(),
		Failed: ev.Reason.Failed(),
	}
}

func effectBody(ev casting.EffectApplied) Effect {
	e := Effect{
		Handle:    ev.Handle.String(),
		Spell:     uint32(ev.Spell),
		Caster:    uint64(ev.Caster),
		Target:    uint64(ev.Target),
		Slot:      ev.Effect,
		Type:      ev.Type.String(),
		Outcome:   ev.Outcome.String(),
		Amount:    ev.Amount,
		Crit:      ev.Crit,
		Reflected: ev.Reflected,
		Periodic:  ev.Periodic,
	}
	if ev.Failure.Failed() {
		e.Failure = ev.Failure.String()
	}
	return e
}

func channelBody(ev casting.ChannelUpdate) Channel {
	return Channel{
		Handle:      ev.Handle.String(),
		Spell:       uint32(ev.Spell),
		Caster:      uint64(ev.Caster),
		RemainingMS: ev.Remaining.Milliseconds(),
	}
}

func delayedBody(ev casting.CastDelayed) Delayed {
	return Delayed{
		Handle:  ev.Handle.String(),
		Spell:   uint32(ev.Spell),
		Caster:  uint64(ev.Caster),
		DelayMS: ev.Delay.Milliseconds(),
	}
}
