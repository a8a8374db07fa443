// Package content holds the read-only rule templates: spells, creatures and item prototypes.
package content

import (
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// Creature is a creature template used when summoning.
type Creature struct {
	Entry          uint32
	Name           string
	Level          int
	MaxHealth      int
	MaxMana        int
	Type           spells.CreatureType
	SchoolImmune   spells.School
	MechanicImmune spells.MechanicMask
	WeaponDamage   int
}

// NewUnit builds a unit from the template.
func (c *Creature) NewUnit() *entity.Unit {
	u := entity.NewUnit(c.Name, c.Level, c.MaxHealth)
	u.Entry = c.Entry
	u.Type = c.Type
	u.SchoolImmune = c.SchoolImmune
	u.MechanicImmune = c.MechanicImmune
	u.WeaponDamage = c.WeaponDamage
	u.MaxPower[spells.PowerMana] = c.MaxMana
	u.Power[spells.PowerMana] = c.MaxMana
	return u
}

// ItemPrototype is an item template.
type ItemPrototype struct {
	Entry    uint32
	Name     string
	Class    int
	Subclass int
	Quality  int
	MaxStack int

	// DisenchantInto and DisenchantCount describe the material a disenchant yields.
	// Zero DisenchantInto means the item cannot be disenchanted.
	DisenchantInto  uint32
	DisenchantCount int
}

// Disenchantable returns true if the item breaks down into materials.
func (p *ItemPrototype) Disenchantable() bool {
	return p.DisenchantInto != 0 && p.DisenchantCount > 0
}

// Store is an in-memory content set. It satisfies the cast pipeline's content interface.
type Store struct {
	Spells    *spells.Registry
	creatures map[uint32]*Creature
	items     map[uint32]*ItemPrototype
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		Spells:    spells.NewRegistry(),
		creatures: make(map[uint32]*Creature),
		items:     make(map[uint32]*ItemPrototype),
	}
}

// Spell returns a spell template.
func (s *Store) Spell(id spells.ID) (*spells.Template, bool) {
	return s.Spells.Spell(id)
}

// ScriptTargets returns the script target entries of a spell.
func (s *Store) ScriptTargets(id spells.ID) []spells.ScriptTarget {
	return s.Spells.ScriptTargets(id)
}

// Creature returns a creature template.
func (s *Store) Creature(entry uint32) (*Creature, bool) {
	c, ok := s.creatures[entry]
	return c, ok
}

// ItemPrototype returns an item template.
func (s *Store) ItemPrototype(entry uint32) (*ItemPrototype, bool) {
	p, ok := s.items[entry]
	return p, ok
}

// AddCreature registers a creature template.
func (s *Store) AddCreature(c *Creature) {
	s.creatures[c.Entry] = c
}

// AddItem registers an item template.
func (s *Store) AddItem(p *ItemPrototype) {
	s.items[p.Entry] = p
}

// Creatures returns the number of creature templates.
func (s *Store) Creatures() int {
	return len(s.creatures)
}

// Items returns the number of item templates.
func (s *Store) Items() int {
	return len(s.items)
}

// EachCreature calls fn for every creature template.
func (s *Store) EachCreature(fn func(*Creature)) {
	for _, c := range s.creatures {
		fn(c)
	}
}

// EachItem calls fn for every item template.
func (s *Store) EachItem(fn func(*ItemPrototype)) {
	for _, p := range s.items {
		fn(p)
	}
}
