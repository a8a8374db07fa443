package spells

// Target is an implicit targeting mode. Each effect carries an A and a B mode.
type Target uint8

const (
	TargetNone Target = iota
	TargetCaster
	TargetEnemy
	TargetAlly
	TargetAny
	TargetPet
	TargetNearbyEnemy
	TargetNearbyAlly
	TargetNearbyEntry
	TargetChainHealAlly
	TargetSrcCaster
	TargetDestCaster
	TargetDestTarget
	TargetDestDest
	TargetSrcAreaEnemy
	TargetSrcAreaAlly
	TargetSrcAreaEntry
	TargetDestAreaEnemy
	TargetDestAreaAlly
	TargetDestAreaEntry
	TargetConeEnemy
	TargetConeAlly
	TargetConeEntry
	TargetLineEnemy
	TargetCasterParty
	TargetCasterRaid
	TargetTargetParty
	TargetTargetRaid
	TargetGameObject
	TargetGameObjectSrcArea
	TargetGameObjectDestArea
	TargetItem
)

// ObjectKind is what a target mode produces.
type ObjectKind uint8

const (
	ObjectNone ObjectKind = iota
	ObjectSrc
	ObjectDest
	ObjectUnit
	ObjectGameObject
	ObjectItem
)

// Reference is the anchor a target mode measures from.
type Reference uint8

const (
	RefNone Reference = iota
	RefCaster
	RefTarget
	RefSrc
	RefDest
)

// Selection is the geometric strategy of a target mode.
type Selection uint8

const (
	SelectDefault Selection = iota
	SelectNearby
	SelectArea
	SelectCone
	SelectLine
	SelectChain
	SelectParty
	SelectRaid
	SelectPet
)

// NeedsRadius returns true if the selection uses the effect radius.
func (s Selection) NeedsRadius() bool {
	switch s {
	case SelectArea, SelectCone, SelectLine:
		return true
	}
	return false
}

// Check is the relationship filter of a target mode.
type Check uint8

const (
	CheckDefault Check = iota
	CheckEnemy
	CheckAlly
	CheckEntry
	CheckParty
	CheckRaid
	CheckAny
)

// TargetInfo is the static description of a target mode.
type TargetInfo struct {
	Object    ObjectKind
	Reference Reference
	Selection Selection
	Check     Check
}

var targetTable = map[Target]TargetInfo{
	TargetNone:               {},
	TargetCaster:             {ObjectUnit, RefCaster, SelectDefault, CheckDefault},
	TargetEnemy:              {ObjectUnit, RefTarget, SelectDefault, CheckEnemy},
	TargetAlly:               {ObjectUnit, RefTarget, SelectDefault, CheckAlly},
	TargetAny:                {ObjectUnit, RefTarget, SelectDefault, CheckAny},
	TargetPet:                {ObjectUnit, RefCaster, SelectPet, CheckDefault},
	TargetNearbyEnemy:        {ObjectUnit, RefCaster, SelectNearby, CheckEnemy},
	TargetNearbyAlly:         {ObjectUnit, RefCaster, SelectNearby, CheckAlly},
	TargetNearbyEntry:        {ObjectUnit, RefCaster, SelectNearby, CheckEntry},
	TargetChainHealAlly:      {ObjectUnit, RefTarget, SelectChain, CheckAlly},
	TargetSrcCaster:          {ObjectSrc, RefCaster, SelectDefault, CheckDefault},
	TargetDestCaster:         {ObjectDest, RefCaster, SelectDefault, CheckDefault},
	TargetDestTarget:         {ObjectDest, RefTarget, SelectDefault, CheckDefault},
	TargetDestDest:           {ObjectDest, RefDest, SelectDefault, CheckDefault},
	TargetSrcAreaEnemy:       {ObjectUnit, RefSrc, SelectArea, CheckEnemy},
	TargetSrcAreaAlly:        {ObjectUnit, RefSrc, SelectArea, CheckAlly},
	TargetSrcAreaEntry:       {ObjectUnit, RefSrc, SelectArea, CheckEntry},
	TargetDestAreaEnemy:      {ObjectUnit, RefDest, SelectArea, CheckEnemy},
	TargetDestAreaAlly:       {ObjectUnit, RefDest, SelectArea, CheckAlly},
	TargetDestAreaEntry:      {ObjectUnit, RefDest, SelectArea, CheckEntry},
	TargetConeEnemy:          {ObjectUnit, RefCaster, SelectCone, CheckEnemy},
	TargetConeAlly:           {ObjectUnit, RefCaster, SelectCone, CheckAlly},
	TargetConeEntry:          {ObjectUnit, RefCaster, SelectCone, CheckEntry},
	TargetLineEnemy:          {ObjectUnit, RefCaster, SelectLine, CheckEnemy},
	TargetCasterParty:        {ObjectUnit, RefCaster, SelectParty, CheckParty},
	TargetCasterRaid:         {ObjectUnit, RefCaster, SelectRaid, CheckRaid},
	TargetTargetParty:        {ObjectUnit, RefTarget, SelectParty, CheckParty},
	TargetTargetRaid:         {ObjectUnit, RefTarget, SelectRaid, CheckRaid},
	TargetGameObject:         {ObjectGameObject, RefTarget, SelectDefault, CheckDefault},
	TargetGameObjectSrcArea:  {ObjectGameObject, RefSrc, SelectArea, CheckEntry},
	TargetGameObjectDestArea: {ObjectGameObject, RefDest, SelectArea, CheckEntry},
	TargetItem:               {ObjectItem, RefTarget, SelectDefault, CheckDefault},
}

// TargetInfoOf returns the table entry for t. Unknown modes describe nothing.
func TargetInfoOf(t Target) TargetInfo {
	return targetTable[t]
}

// EffectType is what an effect does to its targets.
type EffectType uint8

const (
	EffectNone EffectType = iota
	EffectInstaKill
	EffectSchoolDamage
	EffectDummy
	EffectHeal
	EffectHealPercent
	EffectApplyAura
	EffectEnergize
	EffectPowerDrain
	EffectWeaponDamage
	EffectTriggerSpell
	EffectOpenLock
	EffectEnchantItem
	EffectDisenchant
	EffectCreateItem
	EffectSummon
	EffectPersistentAreaAura
	EffectAddComboPoints
	EffectInterruptCast
	effectTypeCount
)

// AuraType is the kind of aura an apply_aura effect creates.
type AuraType uint8

const (
	AuraNone AuraType = iota
	AuraStun
	AuraRoot
	AuraSilence
	AuraFear
	AuraConfuse
	AuraPacify
	AuraModStealth
	AuraPeriodicDamage
	AuraPeriodicHeal
	AuraSchoolImmunity
	AuraMechanicImmunity
	AuraModShapeshift
	AuraProcTriggerSpell
	AuraModCastTime
	AuraReflectSpells
	AuraModPushbackResist
	AuraDummy
)

// IsNegative returns true for auras that harm their holder.
func (a AuraType) IsNegative() bool {
	switch a {
	case AuraStun, AuraRoot, AuraSilence, AuraFear, AuraConfuse, AuraPacify, AuraPeriodicDamage:
		return true
	}
	return false
}
