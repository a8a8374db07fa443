package entity

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/spells"
)

// GameObjectType is the behavior class of a game object.
type GameObjectType uint8

const (
	GameObjectGeneric GameObjectType = iota
	GameObjectDoor
	GameObjectChest
	GameObjectSpellFocus
	GameObjectTrap
)

// GameObject is a static interactive world object.
type GameObject struct {
	GUID    ID
	Entry   uint32
	Type    GameObjectType
	Key     MapKey
	Pos     Position
	LockID  uint32 // lock type an open_lock effect must match, 0 for unlocked
	FocusID uint32 // spell focus this object provides
	Open    bool
	Loot    map[uint32]int // item entry -> count handed out when opened
}

// Item is an item instance in some unit's possession.
type Item struct {
	GUID        ID
	Entry       uint32
	Owner       ID
	Class       int
	Subclass    int
	Enchantment uint32
	NotReady    bool // on its own use cooldown
}

// AreaEffect is a persistent ground effect left by a spell.
type AreaEffect struct {
	GUID      ID
	Spell     spells.ID
	Caster    ID
	Team      uint8
	Pos       Position
	Radius    float64
	Remaining time.Duration
	Period    time.Duration
	Amount    int
	School    spells.School
	Heal      bool
	tick      time.Duration
}
