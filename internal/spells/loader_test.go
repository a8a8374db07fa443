package spells

import (
	"os"
	"path/filepath"
	"testing"
)

const testSpellsYAML = `
spells:
  100:
    name: Frost Bolt
    school: [frost]
    damage_class: magic
    cast_time: 2500
    speed: 28
    max_range: 30
    power_type: mana
    power_cost: 65
    global_cooldown: 1500
    interrupt_flags: [movement, pushback]
    effects:
      - type: school_damage
        target_a: enemy
        dice: 2d6+20
      - type: apply_aura
        target_a: enemy
        aura: root
        mechanic: root
  200:
    name: Tranquil Hymn
    school: [holy]
    attributes: [channeled]
    duration: 6000
    channel_interrupt_flags: [movement, delay]
    effects:
      - type: heal
        target_a: caster_party
        radius: 30
        base_points: 50
        period: 2000
  300:
    name: Blessed Ground
    school: [holy]
    script: blessed_ground
    script_targets:
      - type: creature
        entry: 4001
    effects:
      - type: dummy
        target_a: src_caster
        target_b: src_area_entry
        radius: 10
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestRegistryLoadFromYAML(t *testing.T) {
	path := writeTemp(t, "spells.yaml", testSpellsYAML)

	r := NewRegistry()
	if err := r.LoadFromYAML(path); err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("Expected 3 spells, got %d", r.Len())
	}

	bolt, ok := r.Spell(100)
	if !ok {
		t.Fatal("Expected spell 100 to exist")
	}
	if bolt.School != SchoolFrost {
		t.Errorf("Expected frost school, got %v", bolt.School)
	}
	if bolt.DamageClass != DamageClassMagic {
		t.Errorf("Expected magic damage class, got %v", bolt.DamageClass)
	}
	if bolt.InterruptFlags != InterruptMovement|InterruptPushback {
		t.Errorf("Unexpected interrupt flags %b", bolt.InterruptFlags)
	}
	if !bolt.IsDelayed() {
		t.Error("Expected frost bolt to travel")
	}
	if bolt.ItemClass != -1 {
		t.Errorf("Expected no item class requirement, got %d", bolt.ItemClass)
	}
	dmg := bolt.Effects[0]
	if dmg.DiceCount != 2 || dmg.DieSides != 6 || dmg.BasePoints != 20 {
		t.Errorf("Unexpected dice: %dd%d+%d", dmg.DiceCount, dmg.DieSides, dmg.BasePoints)
	}
	if bolt.Effects[1].Aura != AuraRoot || bolt.Effects[1].Mechanic != MechanicRoot {
		t.Errorf("Unexpected root effect %+v", bolt.Effects[1])
	}

	hymn, _ := r.Spell(200)
	if !hymn.IsChanneled() {
		t.Error("Expected hymn to be channeled")
	}
	if hymn.ChannelInterruptFlags&ChannelInterruptMovement == 0 {
		t.Error("Expected hymn to break on movement")
	}

	targets := r.ScriptTargets(300)
	if len(targets) != 1 || targets[0].Entry != 4001 || targets[0].Type != ScriptTargetCreature {
		t.Errorf("Unexpected script targets %+v", targets)
	}

	all := r.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("All() not ordered by id: %d before %d", all[i-1].ID, all[i].ID)
		}
	}
}

func TestRegistryLoadFromYAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown effect", "spells:\n  1:\n    name: x\n    effects:\n      - type: explode\n        target_a: enemy\n"},
		{"unknown target", "spells:\n  1:\n    name: x\n    effects:\n      - type: heal\n        target_a: everyone\n"},
		{"bad dice", "spells:\n  1:\n    name: x\n    effects:\n      - type: heal\n        target_a: caster\n        dice: lots\n"},
		{"invalid yaml", "spells: [\n"},
		{"fails validation", "spells:\n  1:\n    name: x\n    attributes: [channeled]\n    effects:\n      - type: heal\n        target_a: caster\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "spells.yaml", tt.content)
			if err := NewRegistry().LoadFromYAML(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseNames(t *testing.T) {
	tests := []struct {
		input string
		want  EffectType
	}{
		{"heal", EffectHeal},
		{"school_damage", EffectSchoolDamage},
		{"", EffectNone},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEffectType(tt.input)
			if err != nil {
				t.Fatalf("ParseEffectType(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseEffectType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseEffectType("bogus"); err == nil {
		t.Error("Expected error for unknown effect type")
	}
	if EffectHeal.String() != "heal" {
		t.Errorf("EffectHeal.String() = %q", EffectHeal.String())
	}
}
