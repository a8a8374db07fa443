package spells

import (
	"fmt"
	"sort"
)

var effectNames = map[string]EffectType{
	"none":                 EffectNone,
	"instakill":            EffectInstaKill,
	"school_damage":        EffectSchoolDamage,
	"dummy":                EffectDummy,
	"heal":                 EffectHeal,
	"heal_percent":         EffectHealPercent,
	"apply_aura":           EffectApplyAura,
	"energize":             EffectEnergize,
	"power_drain":          EffectPowerDrain,
	"weapon_damage":        EffectWeaponDamage,
	"trigger_spell":        EffectTriggerSpell,
	"open_lock":            EffectOpenLock,
	"enchant_item":         EffectEnchantItem,
	"disenchant":           EffectDisenchant,
	"create_item":          EffectCreateItem,
	"summon":               EffectSummon,
	"persistent_area_aura": EffectPersistentAreaAura,
	"add_combo_points":     EffectAddComboPoints,
	"interrupt_cast":       EffectInterruptCast,
}

var targetNames = map[string]Target{
	"none":                 TargetNone,
	"caster":               TargetCaster,
	"enemy":                TargetEnemy,
	"ally":                 TargetAlly,
	"any":                  TargetAny,
	"pet":                  TargetPet,
	"nearby_enemy":         TargetNearbyEnemy,
	"nearby_ally":          TargetNearbyAlly,
	"nearby_entry":         TargetNearbyEntry,
	"chain_heal_ally":      TargetChainHealAlly,
	"src_caster":           TargetSrcCaster,
	"dest_caster":          TargetDestCaster,
	"dest_target":          TargetDestTarget,
	"dest_dest":            TargetDestDest,
	"src_area_enemy":       TargetSrcAreaEnemy,
	"src_area_ally":        TargetSrcAreaAlly,
	"src_area_entry":       TargetSrcAreaEntry,
	"dest_area_enemy":      TargetDestAreaEnemy,
	"dest_area_ally":       TargetDestAreaAlly,
	"dest_area_entry":      TargetDestAreaEntry,
	"cone_enemy":           TargetConeEnemy,
	"cone_ally":            TargetConeAlly,
	"cone_entry":           TargetConeEntry,
	"line_enemy":           TargetLineEnemy,
	"caster_party":         TargetCasterParty,
	"caster_raid":          TargetCasterRaid,
	"target_party":         TargetTargetParty,
	"target_raid":          TargetTargetRaid,
	"gameobject":           TargetGameObject,
	"gameobject_src_area":  TargetGameObjectSrcArea,
	"gameobject_dest_area": TargetGameObjectDestArea,
	"item":                 TargetItem,
}

var auraNames = map[string]AuraType{
	"none":                AuraNone,
	"stun":                AuraStun,
	"root":                AuraRoot,
	"silence":             AuraSilence,
	"fear":                AuraFear,
	"confuse":             AuraConfuse,
	"pacify":              AuraPacify,
	"mod_stealth":         AuraModStealth,
	"periodic_damage":     AuraPeriodicDamage,
	"periodic_heal":       AuraPeriodicHeal,
	"school_immunity":     AuraSchoolImmunity,
	"mechanic_immunity":   AuraMechanicImmunity,
	"mod_shapeshift":      AuraModShapeshift,
	"proc_trigger_spell":  AuraProcTriggerSpell,
	"mod_cast_time":       AuraModCastTime,
	"reflect_spells":      AuraReflectSpells,
	"mod_pushback_resist": AuraModPushbackResist,
	"dummy":               AuraDummy,
}

var schoolNames = map[string]School{
	"physical": SchoolPhysical,
	"holy":     SchoolHoly,
	"fire":     SchoolFire,
	"nature":   SchoolNature,
	"frost":    SchoolFrost,
	"shadow":   SchoolShadow,
	"arcane":   SchoolArcane,
	"magic":    SchoolMagic,
	"all":      SchoolAll,
}

var damageClassNames = map[string]DamageClass{
	"none":   DamageClassNone,
	"magic":  DamageClassMagic,
	"melee":  DamageClassMelee,
	"ranged": DamageClassRanged,
}

var mechanicNames = map[string]Mechanic{
	"none":      MechanicNone,
	"charm":     MechanicCharm,
	"disorient": MechanicDisorient,
	"disarm":    MechanicDisarm,
	"fear":      MechanicFear,
	"root":      MechanicRoot,
	"silence":   MechanicSilence,
	"sleep":     MechanicSleep,
	"snare":     MechanicSnare,
	"stun":      MechanicStun,
	"freeze":    MechanicFreeze,
	"knockout":  MechanicKnockout,
	"bleed":     MechanicBleed,
	"polymorph": MechanicPolymorph,
	"banish":    MechanicBanish,
	"shield":    MechanicShield,
	"horror":    MechanicHorror,
	"interrupt": MechanicInterrupt,
}

var powerNames = map[string]PowerType{
	"mana":   PowerMana,
	"rage":   PowerRage,
	"focus":  PowerFocus,
	"energy": PowerEnergy,
	"health": PowerHealth,
}

var formNames = map[string]Form{
	"none":             FormNone,
	"cat":              FormCat,
	"bear":             FormBear,
	"travel":           FormTravel,
	"moonkin":          FormMoonkin,
	"battle_stance":    FormBattleStance,
	"defensive_stance": FormDefensiveStance,
	"berserker_stance": FormBerserkerStance,
	"shadow":           FormShadow,
	"stealth":          FormStealth,
}

var auraStateNames = map[string]AuraState{
	"none":            AuraStateNone,
	"defense":         AuraStateDefense,
	"health_less_20":  AuraStateHealthLess20,
	"berserking":      AuraStateBerserking,
	"frozen":          AuraStateFrozen,
	"judgement":       AuraStateJudgement,
	"hunter_parry":    AuraStateHunterParry,
	"health_less_35":  AuraStateHealthLess35,
	"health_above_75": AuraStateHealthAbove75,
}

var creatureTypeNames = map[string]CreatureType{
	"none":       CreatureTypeNone,
	"beast":      CreatureTypeBeast,
	"dragonkin":  CreatureTypeDragonkin,
	"demon":      CreatureTypeDemon,
	"elemental":  CreatureTypeElemental,
	"giant":      CreatureTypeGiant,
	"undead":     CreatureTypeUndead,
	"humanoid":   CreatureTypeHumanoid,
	"critter":    CreatureTypeCritter,
	"mechanical": CreatureTypeMechanical,
}

var drGroupNames = map[string]DRGroup{
	"none":         DRNone,
	"stun":         DRStun,
	"root":         DRRoot,
	"fear":         DRFear,
	"silence":      DRSilence,
	"incapacitate": DRIncapacitate,
	"disorient":    DRDisorient,
}

var attrNames = map[string]Attr{
	"passive":                AttrPassive,
	"channeled":              AttrChanneled,
	"auto_repeat":            AttrAutoRepeat,
	"next_swing":             AttrNextSwing,
	"breaks_stealth":         AttrBreaksStealth,
	"not_in_combat":          AttrNotInCombat,
	"only_outdoors":          AttrOnlyOutdoors,
	"only_indoors":           AttrOnlyIndoors,
	"only_stealthed":         AttrOnlyStealthed,
	"castable_while_dead":    AttrCastableWhileDead,
	"ignore_line_of_sight":   AttrIgnoreLineOfSight,
	"cant_be_reflected":      AttrCantBeReflected,
	"impossible_dodge_parry": AttrImpossibleDodgeParry,
	"cant_crit":              AttrCantCrit,
	"usable_while_stunned":   AttrUsableWhileStunned,
	"usable_while_feared":    AttrUsableWhileFeared,
	"usable_while_confused":  AttrUsableWhileConfused,
	"finishing_move":         AttrFinishingMove,
	"require_facing":         AttrRequireFacing,
	"include_pets":           AttrIncludePets,
	"negative":               AttrNegative,
	"require_dead_target":    AttrRequireDeadTarget,
	"allow_dead_target":      AttrAllowDeadTarget,
	"ignore_immunity":        AttrIgnoreImmunity,
	"no_procs":               AttrNoProcs,
}

var interruptNames = map[string]InterruptFlags{
	"movement": InterruptMovement,
	"pushback": InterruptPushback,
	"stun":     InterruptStun,
}

var channelInterruptNames = map[string]ChannelInterruptFlags{
	"movement": ChannelInterruptMovement,
	"delay":    ChannelInterruptDelay,
	"turning":  ChannelInterruptTurning,
}

var procNames = map[string]ProcFlags{
	"killed":               ProcKilled,
	"kill":                 ProcKill,
	"done_melee_spell":     ProcDoneMeleeSpell,
	"taken_melee_spell":    ProcTakenMeleeSpell,
	"done_ranged_spell":    ProcDoneRangedSpell,
	"taken_ranged_spell":   ProcTakenRangedSpell,
	"done_positive_spell":  ProcDonePositiveSpell,
	"taken_positive_spell": ProcTakenPositiveSpell,
	"done_negative_spell":  ProcDoneNegativeSpell,
	"taken_negative_spell": ProcTakenNegativeSpell,
	"done_periodic":        ProcDonePeriodic,
	"taken_periodic":       ProcTakenPeriodic,
	"taken_damage":         ProcTakenDamage,
}

// lookupName resolves a YAML name. The empty string maps to the zero value.
func lookupName[T any](kind string, names map[string]T, s string) (T, error) {
	var zero T
	if s == "" {
		return zero, nil
	}
	v, ok := names[s]
	if !ok {
		return zero, fmt.Errorf("unknown %s %q", kind, s)
	}
	return v, nil
}

// nameOf returns the YAML name of v, or "" if it has none.
func nameOf[T comparable](names map[string]T, v T) string {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if names[k] == v {
			return k
		}
	}
	return ""
}

// maskOf ORs the named flags together.
func maskOf[T ~uint8 | ~uint32 | ~uint64](kind string, names map[string]T, list []string) (T, error) {
	var m T
	for _, s := range list {
		v, ok := names[s]
		if !ok {
			return 0, fmt.Errorf("unknown %s %q", kind, s)
		}
		m |= v
	}
	return m, nil
}

func (e EffectType) String() string {
	if n := nameOf(effectNames, e); n != "" {
		return n
	}
	return fmt.Sprintf("effect(%d)", uint8(e))
}

func (t Target) String() string {
	if n := nameOf(targetNames, t); n != "" {
		return n
	}
	return fmt.Sprintf("target(%d)", uint8(t))
}

func (a AuraType) String() string {
	if n := nameOf(auraNames, a); n != "" {
		return n
	}
	return fmt.Sprintf("aura(%d)", uint8(a))
}

func (m Mechanic) String() string {
	if n := nameOf(mechanicNames, m); n != "" {
		return n
	}
	return fmt.Sprintf("mechanic(%d)", uint8(m))
}

// ParseEffectType converts a YAML name to an EffectType.
func ParseEffectType(s string) (EffectType, error) {
	return lookupName("effect type", effectNames, s)
}

// ParseTarget converts a YAML name to a Target.
func ParseTarget(s string) (Target, error) {
	return lookupName("target", targetNames, s)
}

// ParseAuraType converts a YAML name to an AuraType.
func ParseAuraType(s string) (AuraType, error) {
	return lookupName("aura", auraNames, s)
}

// ParseCreatureType converts a YAML name to a CreatureType.
func ParseCreatureType(s string) (CreatureType, error) {
	return lookupName("creature type", creatureTypeNames, s)
}

// ParseSchool converts a YAML name to a School.
func ParseSchool(s string) (School, error) {
	return lookupName("school", schoolNames, s)
}

// ParseMechanic converts a YAML name to a Mechanic.
func ParseMechanic(s string) (Mechanic, error) {
	return lookupName("mechanic", mechanicNames, s)
}

// ParseSchoolMask ORs school names together.
func ParseSchoolMask(list []string) (School, error) {
	return maskOf("school", schoolNames, list)
}

// ParseMechanicMask builds a mechanic mask from names.
func ParseMechanicMask(list []string) (MechanicMask, error) {
	var m MechanicMask
	for _, s := range list {
		mech, err := ParseMechanic(s)
		if err != nil {
			return 0, err
		}
		m |= mech.Mask()
	}
	return m, nil
}
