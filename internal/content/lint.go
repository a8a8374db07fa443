package content

import (
	"fmt"
	"sort"

	"github.com/lawnchairsociety/castcore/internal/spells"
)

// Issue is one problem found in a spells file.
type Issue struct {
	Spell   spells.ID
	Effect  int // -1 when the issue is not tied to an effect
	Message string
}

func (i Issue) String() string {
	if i.Effect < 0 {
		return fmt.Sprintf("spell %d: %s", i.Spell, i.Message)
	}
	return fmt.Sprintf("spell %d effect %d: %s", i.Spell, i.Effect, i.Message)
}

// Lint checks every definition in f and the references between templates.
// Creature and item references are checked against refs only when refs holds
// creatures or items; script names only when scripts is non-nil.
// Issues are ordered by spell and effect.
func Lint(f *spells.File, refs *Store, scripts map[string]bool) []Issue {
	var issues []Issue
	add := func(id spells.ID, effect int, format string, args ...any) {
		issues = append(issues, Issue{Spell: id, Effect: effect, Message: fmt.Sprintf(format, args...)})
	}
	checkCreatures := refs != nil && refs.Creatures() > 0
	checkItems := refs != nil && refs.Items() > 0

	for id, def := range f.Spells {
		t, err := spells.FromDefinition(id, def)
		if err != nil {
			add(id, -1, "%v", err)
			continue
		}
		for _, err := range t.Validate() {
			add(id, -1, "%v", err)
		}

		if t.ScriptName != "" && scripts != nil && !scripts[t.ScriptName] {
			add(id, -1, "script %q not found", t.ScriptName)
		}
		if checkItems {
			for _, r := range t.Reagents {
				if _, ok := refs.ItemPrototype(r.Item); !ok {
					add(id, -1, "reagent %d is not a known item", r.Item)
				}
			}
			for _, tool := range t.Tools {
				if _, ok := refs.ItemPrototype(tool); !ok {
					add(id, -1, "tool %d is not a known item", tool)
				}
			}
		}

		for i, e := range t.Effects {
			if e.TriggerSpell != 0 {
				if _, ok := f.Spells[e.TriggerSpell]; !ok {
					add(id, i, "triggers unknown spell %d", e.TriggerSpell)
				}
				if e.TriggerSpell == id && e.Type == spells.EffectTriggerSpell {
					add(id, i, "triggers itself")
				}
			}
			switch e.Type {
			case spells.EffectSummon:
				if checkCreatures {
					if _, ok := refs.Creature(uint32(e.MiscValue)); !ok {
						add(id, i, "summons unknown creature %d", e.MiscValue)
					}
				}
			case spells.EffectCreateItem:
				if checkItems && e.ItemType != 0 {
					if _, ok := refs.ItemPrototype(e.ItemType); !ok {
						add(id, i, "creates unknown item %d", e.ItemType)
					}
				}
			}
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Spell != issues[j].Spell {
			return issues[i].Spell < issues[j].Spell
		}
		if issues[i].Effect != issues[j].Effect {
			return issues[i].Effect < issues[j].Effect
		}
		return issues[i].Message < issues[j].Message
	})
	return issues
}
