package casting

import "errors"

// CastFailureReason is the client visible reason a cast did not happen or did not finish.
type CastFailureReason uint8

const (
	FailNone CastFailureReason = iota
	FailNotReady
	FailAffectingCombat
	FailOnlyOutdoors
	FailOnlyIndoors
	FailNotShapeshift
	FailOnlyShapeshift
	FailOnlyStealthed
	FailCasterDead
	FailStunned
	FailSilenced
	FailPacified
	FailFleeing
	FailConfused
	FailCasterAuraState
	FailNoPower
	FailNoComboPoints
	FailReagents
	FailTotems
	FailRequiresSpellFocus
	FailBadTargets
	FailTargetsDead
	FailTargetNotDead
	FailTargetFriendly
	FailTargetEnemy
	FailOutOfRange
	FailTooClose
	FailLineOfSight
	FailHighLevel
	FailIncorrectArea
	FailTargetNotInPartition
	FailTargetAuraState
	FailEquippedItemClass
	FailItemGone
	FailItemNotReady
	FailNoValidTargets
	FailSpellInProgress
	FailInterrupted
	FailMoving
	FailNotInfront
	FailCasterGone
	FailUnknownSpell
	FailInventoryFull
	FailImmune
	FailAlreadyOpen
	FailCantBeDisenchanted
	FailPassive
)

var failureNames = [...]string{
	FailNone:                 "none",
	FailNotReady:             "not_ready",
	FailAffectingCombat:      "affecting_combat",
	FailOnlyOutdoors:         "only_outdoors",
	FailOnlyIndoors:          "only_indoors",
	FailNotShapeshift:        "not_shapeshift",
	FailOnlyShapeshift:       "only_shapeshift",
	FailOnlyStealthed:        "only_stealthed",
	FailCasterDead:           "caster_dead",
	FailStunned:              "stunned",
	FailSilenced:             "silenced",
	FailPacified:             "pacified",
	FailFleeing:              "fleeing",
	FailConfused:             "confused",
	FailCasterAuraState:      "caster_aura_state",
	FailNoPower:              "no_power",
	FailNoComboPoints:        "no_combo_points",
	FailReagents:             "reagents",
	FailTotems:               "totems",
	FailRequiresSpellFocus:   "requires_spell_focus",
	FailBadTargets:           "bad_targets",
	FailTargetsDead:          "targets_dead",
	FailTargetNotDead:        "target_not_dead",
	FailTargetFriendly:       "target_friendly",
	FailTargetEnemy:          "target_enemy",
	FailOutOfRange:           "out_of_range",
	FailTooClose:             "too_close",
	FailLineOfSight:          "line_of_sight",
	FailHighLevel:            "high_level",
	FailIncorrectArea:        "incorrect_area",
	FailTargetNotInPartition: "target_not_in_partition",
	FailTargetAuraState:      "target_aura_state",
	FailEquippedItemClass:    "equipped_item_class",
	FailItemGone:             "item_gone",
	FailItemNotReady:         "item_not_ready",
	FailNoValidTargets:       "no_valid_targets",
	FailSpellInProgress:      "spell_in_progress",
	FailInterrupted:          "interrupted",
	FailMoving:               "moving",
	FailNotInfront:           "not_infront",
	FailCasterGone:           "caster_gone",
	FailUnknownSpell:         "unknown_spell",
	FailInventoryFull:        "inventory_full",
	FailImmune:               "immune",
	FailAlreadyOpen:          "already_open",
	FailCantBeDisenchanted:   "cant_be_disenchanted",
	FailPassive:              "passive",
}

func (r CastFailureReason) String() string {
	if int(r) < len(failureNames) {
		return failureNames[r]
	}
	return "unknown"
}

// Failed returns true for any reason other than FailNone.
func (r CastFailureReason) Failed() bool {
	return r != FailNone
}

var (
	// ErrUnknownHandle is returned for a handle the manager does not track.
	ErrUnknownHandle = errors.New("unknown cast handle")

	// ErrUnknownSpell is returned when a triggered cast names a missing template.
	ErrUnknownSpell = errors.New("unknown spell")
)
