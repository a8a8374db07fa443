package notify

import (
	"log/slog"

	"github.com/lawnchairsociety/castcore/internal/casting"
	"github.com/lawnchairsociety/castcore/internal/logger"
)

// Log writes cast events to a structured logger. Failed casts are logged at
// info, everything else at debug.
type Log struct {
	log *slog.Logger
}

// NewLog creates a log notifier. A nil logger uses the "cast" component logger.
func NewLog(l *slog.Logger) *Log {
	if l == nil {
		l = logger.Component("cast")
	}
	return &Log{log: l}
}

func (n *Log) CastStarted(ev casting.CastStarted) {
	n.log.Debug("Cast started",
		"handle", ev.Handle,
		"spell", ev.Spell,
		"caster", ev.Caster,
		"target", ev.Target,
		"cast_time", ev.CastTime,
		"triggered", ev.Triggered)
}

func (n *Log) CastResult(ev casting.CastResult) {
	if ev.Reason.Failed() {
		n.log.Info("Cast failed", "handle", ev.Handle, "spell", ev.Spell, "caster", ev.Caster, "reason", ev.Reason)
		return
	}
	n.log.Debug("Cast finished", "handle", ev.Handle, "spell", ev.Spell, "caster", ev.Caster)
}

func (n *Log) EffectApplied(ev casting.EffectApplied) {
	n.log.Debug("Effect applied",
		"handle", ev.Handle,
		"spell", ev.Spell,
		"target", ev.Target,
		"effect", ev.Type,
		"outcome", ev.Outcome,
		"amount", ev.Amount,
		"crit", ev.Crit)
}

func (n *Log) ChannelUpdate(ev casting.ChannelUpdate) {
	n.log.Debug("Channel update", "handle", ev.Handle, "spell", ev.Spell, "remaining", ev.Remaining)
}

func (n *Log) CastDelayed(ev casting.CastDelayed) {
	n.log.Debug("Cast delayed", "handle", ev.Handle, "spell", ev.Spell, "delay", ev.Delay)
}

// Multi sends every event to each notifier in order.
type Multi []casting.Notifier

func (m Multi) CastStarted(ev casting.CastStarted) {
	for _, n := range m {
		n.CastStarted(ev)
	}
}

func (m Multi) CastResult(ev casting.CastResult) {
	for _, n := range m {
		n.CastResult(ev)
	}
}

func (m Multi) EffectApplied(ev casting.EffectApplied) {
	for _, n := range m {
		n.EffectApplied(ev)
	}
}

func (m Multi) ChannelUpdate(ev casting.ChannelUpdate) {
	for _, n := range m {
		n.ChannelUpdate(ev)
	}
}

func (m Multi) CastDelayed(ev casting.CastDelayed) {
	for _, n := range m {
		n.CastDelayed(ev)
	}
}
