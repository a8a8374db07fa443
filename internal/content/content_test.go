package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/castcore/internal/spells"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	spellsPath := writeFile(t, dir, "spells.yaml", `
spells:
  1:
    name: Summon Imp
    effects:
      - type: summon
        target_a: dest_caster
        misc_value: 416
`)
	creaturesPath := writeFile(t, dir, "creatures.yaml", `
creatures:
  416:
    name: Imp
    level: 10
    health: 120
    mana: 200
    type: demon
    school_immune: [fire]
    mechanic_immune: [fear]
`)
	itemsPath := writeFile(t, dir, "items.yaml", `
items:
  2589:
    name: Linen Cloth
    class: 7
    subclass: 5
    max_stack: 20
  7076:
    name: Glowing Sword
    class: 2
    subclass: 7
    quality: 2
    disenchant_into: 10940
    disenchant_count: 2
`)

	s, err := LoadYAML(spellsPath, creaturesPath, itemsPath)
	if err != nil {
		t.Fatalf("LoadYAML() error = %v", err)
	}

	if _, ok := s.Spell(1); !ok {
		t.Error("Expected spell 1")
	}

	imp, ok := s.Creature(416)
	if !ok {
		t.Fatal("Expected creature 416")
	}
	if imp.Type != spells.CreatureTypeDemon || imp.SchoolImmune != spells.SchoolFire {
		t.Errorf("Unexpected imp template %+v", imp)
	}
	if !imp.MechanicImmune.Has(spells.MechanicFear) {
		t.Error("Expected imp to be fear immune")
	}

	u := imp.NewUnit()
	if u.Entry != 416 || u.Health != 120 || u.PowerOf(spells.PowerMana) != 200 {
		t.Errorf("Unexpected unit from template %+v", u)
	}

	cloth, _ := s.ItemPrototype(2589)
	if cloth.Disenchantable() {
		t.Error("Cloth should not be disenchantable")
	}
	sword, _ := s.ItemPrototype(7076)
	if !sword.Disenchantable() {
		t.Error("Sword should be disenchantable")
	}
	if s.Creatures() != 1 || s.Items() != 2 {
		t.Errorf("Unexpected counts: %d creatures, %d items", s.Creatures(), s.Items())
	}
}

func TestLoadCreaturesErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown type", "creatures:\n  1:\n    name: x\n    type: robot\n"},
		{"unknown school", "creatures:\n  1:\n    name: x\n    school_immune: [plasma]\n"},
		{"bad yaml", "creatures: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "creatures.yaml", tt.content)
			if err := NewStore().LoadCreatures(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	if err := NewStore().LoadItems(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing items file")
	}
}
