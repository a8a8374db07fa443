package casting

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
	"github.com/lawnchairsociety/castcore/internal/stats"
)

// Content is the read-only template store a manager consults.
type Content interface {
	Spell(id spells.ID) (*spells.Template, bool)
	Creature(entry uint32) (*content.Creature, bool)
	ItemPrototype(entry uint32) (*content.ItemPrototype, bool)
	ScriptTargets(id spells.ID) []spells.ScriptTarget
}

// Rand is the random source for hit rolls, effect values and over-cap pruning.
type Rand = stats.Source

// CastStarted is sent when a cast enters its cast time.
type CastStarted struct {
	Handle    Handle
	Spell     spells.ID
	Caster    entity.ID
	Target    entity.ID
	CastTime  time.Duration
	Triggered bool
}

// CastResult is sent once when a cast finishes, successfully or not.
type CastResult struct {
	Handle Handle
	Spell  spells.ID
	Caster entity.ID
	Reason CastFailureReason
}

// EffectApplied is sent for every effect that reached a target.
type EffectApplied struct {
	Handle    Handle
	Spell     spells.ID
	Caster    entity.ID
	Target    entity.ID
	Effect    int
	Type      spells.EffectType
	Outcome   HitOutcome
	Amount    int
	Crit      bool
	Reflected bool
	Periodic  bool

	// Failure is set when an object or item effect could not be carried out.
	Failure CastFailureReason
}

// ChannelUpdate is sent when a channel starts or its remaining time changes.
type ChannelUpdate struct {
	Handle    Handle
	Spell     spells.ID
	Caster    entity.ID
	Remaining time.Duration
}

// CastDelayed is sent when pushback extends a cast time.
type CastDelayed struct {
	Handle Handle
	Spell  spells.ID
	Caster entity.ID
	Delay  time.Duration
}

// Notifier receives cast events. Calls are fire and forget and must not block.
type Notifier interface {
	CastStarted(ev CastStarted)
	CastResult(ev CastResult)
	EffectApplied(ev EffectApplied)
	ChannelUpdate(ev ChannelUpdate)
	CastDelayed(ev CastDelayed)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) CastStarted(CastStarted) {}
func (NopNotifier) CastResult(CastResult) {}
func (NopNotifier) EffectApplied(EffectApplied) {}
func (NopNotifier) ChannelUpdate(ChannelUpdate) {}
func (NopNotifier) CastDelayed(CastDelayed) {}

// ProcEvent describes one side of a hit for combat log and threat consumers.
type ProcEvent struct {
	Actor  entity.ID
	Other  entity.ID
	Spell  spells.ID
	Flags  spells.ProcFlags
	Ex     spells.ProcEx
	Amount int
}

// CombatListener receives attacker and victim proc events.
type CombatListener interface {
	Proc(ev ProcEvent)
}

// ScriptCall describes one scripted hook invocation.
type ScriptCall struct {
	Script string
	Spell  spells.ID
	Effect int
	Caster entity.ID
	Target entity.ID
	Value  int
}

// ScriptHost is what scripts may do to the world while a hook runs.
type ScriptHost interface {
	Unit(id entity.ID) (*entity.Unit, bool)
	Damage(target entity.ID, amount int) int
	Heal(target entity.ID, amount int) int
	Trigger(caster, target entity.ID, spell spells.ID) CastFailureReason
}

// Scripts runs per-spell hooks for dummy effects and target filtering.
type Scripts interface {
	Dummy(call ScriptCall, host ScriptHost) error
	FilterTargets(call ScriptCall, targets []entity.ID) ([]entity.ID, error)
}
