package content

import (
	"os"

	"github.com/lawnchairsociety/castcore/internal/spells"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// CreatureDefinition represents a creature template in the YAML file.
type CreatureDefinition struct {
	Name           string   `yaml:"name"`
	Level          int      `yaml:"level"`
	Health         int      `yaml:"health"`
	Mana           int      `yaml:"mana,omitempty"`
	Type           string   `yaml:"type,omitempty"`
	SchoolImmune   []string `yaml:"school_immune,omitempty"`
	MechanicImmune []string `yaml:"mechanic_immune,omitempty"`
	WeaponDamage   int      `yaml:"weapon_damage,omitempty"`
}

// ItemDefinition represents an item template in the YAML file.
type ItemDefinition struct {
	Name            string `yaml:"name"`
	Class           int    `yaml:"class"`
	Subclass        int    `yaml:"subclass"`
	Quality         int    `yaml:"quality,omitempty"`
	MaxStack        int    `yaml:"max_stack,omitempty"`
	DisenchantInto  uint32 `yaml:"disenchant_into,omitempty"`
	DisenchantCount int    `yaml:"disenchant_count,omitempty"`
}

type creaturesFile struct {
	Creatures map[uint32]CreatureDefinition `yaml:"creatures"`
}

type itemsFile struct {
	Items map[uint32]ItemDefinition `yaml:"items"`
}

func readYAML(filename string, out any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return oops.In("content").With("file", filename).Wrapf(err, "failed to read content file")
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return oops.In("content").With("file", filename).Wrapf(err, "failed to parse content YAML")
	}
	return nil
}

// LoadCreatures loads creature templates from a YAML file into the store.
func (s *Store) LoadCreatures(filename string) error {
	var f creaturesFile
	if err := readYAML(filename, &f); err != nil {
		return err
	}
	for entry, def := range f.Creatures {
		c, err := creatureFromDefinition(entry, def)
		if err != nil {
			return oops.In("content").With("file", filename, "creature", entry).Wrap(err)
		}
		s.AddCreature(c)
	}
	return nil
}

func creatureFromDefinition(entry uint32, def CreatureDefinition) (*Creature, error) {
	ct, err := spells.ParseCreatureType(def.Type)
	if err != nil {
		return nil, err
	}
	schools, err := spells.ParseSchoolMask(def.SchoolImmune)
	if err != nil {
		return nil, err
	}
	mechanics, err := spells.ParseMechanicMask(def.MechanicImmune)
	if err != nil {
		return nil, err
	}
	return &Creature{
		Entry:          entry,
		Name:           def.Name,
		Level:          def.Level,
		MaxHealth:      def.Health,
		MaxMana:        def.Mana,
		Type:           ct,
		SchoolImmune:   schools,
		MechanicImmune: mechanics,
		WeaponDamage:   def.WeaponDamage,
	}, nil
}

// LoadItems loads item templates from a YAML file into the store.
func (s *Store) LoadItems(filename string) error {
	var f itemsFile
	if err := readYAML(filename, &f); err != nil {
		return err
	}
	for entry, def := range f.Items {
		s.AddItem(&ItemPrototype{
			Entry:           entry,
			Name:            def.Name,
			Class:           def.Class,
			Subclass:        def.Subclass,
			Quality:         def.Quality,
			MaxStack:        def.MaxStack,
			DisenchantInto:  def.DisenchantInto,
			DisenchantCount: def.DisenchantCount,
		})
	}
	return nil
}

// LoadYAML builds a store from the three template files. Empty paths are skipped.
func LoadYAML(spellsFile, creaturesFile, itemsFile string) (*Store, error) {
	s := NewStore()
	if spellsFile != "" {
		if err := s.Spells.LoadFromYAML(spellsFile); err != nil {
			return nil, err
		}
	}
	if creaturesFile != "" {
		if err := s.LoadCreatures(creaturesFile); err != nil {
			return nil, err
		}
	}
	if itemsFile != "" {
		if err := s.LoadItems(itemsFile); err != nil {
			return nil, err
		}
	}
	return s, nil
}
