package casting

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

func itemSpell(id spells.ID, e spells.Effect) *spells.Template {
	return &spells.Template{
		ID:        id,
		Name:      "Utility",
		MaxRange:  5,
		ItemClass: -1,
		Effects:   []spells.Effect{e},
	}
}

func TestObjectAndItemEffects(t *testing.T) {
	chest := func(lock uint32, open bool, loot map[uint32]int) func(*testWorld, *entity.Unit) Targets {
		return func(w *testWorld, _ *entity.Unit) Targets {
			id := w.m.AddObject(&entity.GameObject{Pos: entity.Position{X: 2}, LockID: lock, Open: open, Loot: loot})
			return Targets{Object: id}
		}
	}
	sword := func(w *testWorld, _ *entity.Unit) Targets {
		return Targets{Item: w.m.AddItem(&entity.Item{Entry: 25, Class: 2})}
	}
	junk := func(w *testWorld, _ *entity.Unit) Targets {
		return Targets{Item: w.m.AddItem(&entity.Item{Entry: 26, Class: 2})}
	}
	fullBag := func(w *testWorld, caster *entity.Unit) Targets {
		caster.BagSlots = 1
		caster.AddItem(6948, 1)
		return Targets{}
	}

	tests := []struct {
		name    string
		effect  spells.Effect
		setup   func(*testWorld, *entity.Unit) Targets
		begin   CastFailureReason
		failure CastFailureReason
		amount  int
		check   func(t *testing.T, w *testWorld, caster *entity.Unit, targets Targets)
	}{
		{
			name:   "open lock",
			effect: spells.Effect{Type: spells.EffectOpenLock, MiscValue: 1, TargetA: spells.TargetGameObject},
			setup:  chest(1, false, map[uint32]int{2589: 2, 2592: 1}),
			amount: 3,
			check: func(t *testing.T, w *testWorld, caster *entity.Unit, targets Targets) {
				o, _ := w.m.FindObject(targets.Object)
				if !o.Open || len(o.Loot) != 0 {
					t.Errorf("object open = %v loot = %v, want open and emptied", o.Open, o.Loot)
				}
				if caster.Bag[2589] != 2 || caster.Bag[2592] != 1 {
					t.Errorf("bag = %v, want the loot", caster.Bag)
				}
			},
		},
		{
			name:    "open lock with the wrong key",
			effect:  spells.Effect{Type: spells.EffectOpenLock, MiscValue: 1, TargetA: spells.TargetGameObject},
			setup:   chest(2, false, map[uint32]int{2589: 2}),
			failure: FailBadTargets,
			check: func(t *testing.T, w *testWorld, caster *entity.Unit, targets Targets) {
				if o, _ := w.m.FindObject(targets.Object); o.Open {
					t.Error("Expected the lock to hold")
				}
			},
		},
		{
			name:   "open lock into a full bag",
			effect: spells.Effect{Type: spells.EffectOpenLock, MiscValue: 1, TargetA: spells.TargetGameObject},
			setup: func(w *testWorld, caster *entity.Unit) Targets {
				fullBag(w, caster)
				return chest(1, false, map[uint32]int{2589: 2})(w, caster)
			},
			failure: FailInventoryFull,
			check: func(t *testing.T, w *testWorld, caster *entity.Unit, targets Targets) {
				if o, _ := w.m.FindObject(targets.Object); o.Loot[2589] != 2 {
					t.Errorf("loot = %v, want it left in the chest", o.Loot)
				}
			},
		},
		{
			name:   "open lock on an open chest",
			effect: spells.Effect{Type: spells.EffectOpenLock, MiscValue: 1, TargetA: spells.TargetGameObject},
			setup:  chest(1, true, nil),
			begin:  FailAlreadyOpen,
		},
		{
			name:   "enchant item",
			effect: spells.Effect{Type: spells.EffectEnchantItem, MiscValue: 2504, TargetA: spells.TargetItem},
			setup:  sword,
			amount: 2504,
			check: func(t *testing.T, w *testWorld, caster *entity.Unit, targets Targets) {
				if it, _ := w.m.FindItem(targets.Item); it.Enchantment != 2504 {
					t.Errorf("enchantment = %d, want 2504", it.Enchantment)
				}
			},
		},
		{
			name:   "enchant without an item",
			effect: spells.Effect{Type: spells.EffectEnchantItem, MiscValue: 2504, TargetA: spells.TargetItem},
			setup:  func(*testWorld, *entity.Unit) Targets { return Targets{} },
			begin:  FailItemGone,
		},
		{
			name:   "disenchant",
			effect: spells.Effect{Type: spells.EffectDisenchant, TargetA: spells.TargetItem},
			setup:  sword,
			amount: 2,
			check: func(t *testing.T, w *testWorld, caster *entity.Unit, targets Targets) {
				if _, ok := w.m.FindItem(targets.Item); ok {
					t.Error("Expected the disenchanted item to be destroyed")
				}
				if caster.Bag[10940] != 2 {
					t.Errorf("bag = %v, want two dust", caster.Bag)
				}
			},
		},
		{
			name:   "disenchant junk",
			effect: spells.Effect{Type: spells.EffectDisenchant, TargetA: spells.TargetItem},
			setup:  junk,
			begin:  FailCantBeDisenchanted,
		},
		{
			name:   "create item",
			effect: spells.Effect{Type: spells.EffectCreateItem, ItemType: 5512, BasePoints: 2},
			setup:  func(*testWorld, *entity.Unit) Targets { return Targets{} },
			amount: 2,
			check: func(t *testing.T, w *testWorld, caster *entity.Unit, targets Targets) {
				if caster.Bag[5512] != 2 {
					t.Errorf("bag = %v, want two stones", caster.Bag)
				}
			},
		},
		{
			name:   "create item into a full bag",
			effect: spells.Effect{Type: spells.EffectCreateItem, ItemType: 5512, BasePoints: 1},
			setup:  fullBag,
			begin:  FailInventoryFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, itemSpell(800, tt.effect))
			w.store.AddItem(&content.ItemPrototype{Entry: 25, Name: "Sword", Class: 2, DisenchantInto: 10940, DisenchantCount: 2})
			w.store.AddItem(&content.ItemPrototype{Entry: 26, Name: "Broken Sword", Class: 2})
			caster := w.unit("enchanter", 1, 0, 0)
			targets := tt.setup(w, caster)

			_, r := w.mgr.BeginCast(caster.GUID, 800, targets)
			if r != tt.begin {
				t.Fatalf("BeginCast() = %s, want %s", r, tt.begin)
			}
			if r.Failed() {
				return
			}
			evs := w.rec.effectsOf(tt.effect.Type)
			if len(evs) != 1 {
				t.Fatalf("effect notifications = %d, want 1", len(evs))
			}
			if evs[0].Failure != tt.failure || evs[0].Amount != tt.amount {
				t.Errorf("effect failure = %s amount = %d, want %s and %d", evs[0].Failure, evs[0].Amount, tt.failure, tt.amount)
			}
			if tt.check != nil {
				tt.check(t, w, caster, targets)
			}
		})
	}
}

func TestItemGoneBeforeApplication(t *testing.T) {
	enchant := itemSpell(800, spells.Effect{Type: spells.EffectEnchantItem, MiscValue: 2504, TargetA: spells.TargetItem})

	t.Run("during the cast", func(t *testing.T) {
		tmpl := *enchant
		tmpl.CastTime = 1000
		w := newTestWorld(t, &tmpl)
		caster := w.unit("enchanter", 1, 0, 0)
		item := w.m.AddItem(&entity.Item{Entry: 25})

		h := w.begin(t, caster, 800, Targets{Item: item})
		w.m.RemoveItem(item)
		w.mgr.Update(time.Second)

		c, _ := w.mgr.Cast(h)
		if c.State() != StateFinished || c.Result() != FailItemGone {
			t.Errorf("state = %s result = %s, want finished item_gone", c.State(), c.Result())
		}
		if n := len(w.rec.effectsOf(spells.EffectEnchantItem)); n != 0 {
			t.Errorf("enchant notifications = %d, want 0", n)
		}
	})

	t.Run("at application", func(t *testing.T) {
		w := newTestWorld(t, enchant)
		caster := w.unit("enchanter", 1, 0, 0)
		item := w.m.AddItem(&entity.Item{Entry: 25})
		h := w.begin(t, caster, 800, Targets{Item: item})
		c, _ := w.mgr.Cast(h)

		w.m.RemoveItem(item)
		w.mgr.applyItem(c, &ItemEntry{Target: item, Mask: 1})
		evs := w.rec.effectsOf(spells.EffectEnchantItem)
		if last := evs[len(evs)-1]; last.Failure != FailItemGone || last.Target != item {
			t.Errorf("last enchant notification = %+v, want item_gone for the removed item", last)
		}
	})
}
