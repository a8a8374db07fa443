package casting

import (
	"testing"

	"github.com/lawnchairsociety/castcore/internal/config"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

func sameIDs(got []entity.ID, want ...entity.ID) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func chainSpell() *spells.Template {
	t := damageSpell(100, 30)
	t.Effects[0].ChainTargets = 3
	return t
}

func TestResolveChain(t *testing.T) {
	tests := []struct {
		name     string
		obstacle bool
		order    []string
	}{
		{"nearest hop", false, []string{"first", "a", "b"}},
		{"hop around obstacle", true, []string{"first", "c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, chainSpell())
			caster := w.unit("shaman", 1, 0, 0)
			units := map[string]*entity.Unit{
				"first": w.unit("first", 2, 10, 0),
				"a":     w.unit("a", 2, 13, 0),
				"b":     w.unit("b", 2, 17, 0),
				"c":     w.unit("c", 2, 10, 8),
				"d":     w.unit("d", 2, 25, 0),
			}
			w.unit("friend", 1, 12, 0)
			if tt.obstacle {
				w.m.AddObstacle(entity.Obstacle{X: 11.5, Y: 0, Radius: 0.5})
			}

			tmpl, _ := w.store.Spell(100)
			c := &Cast{Caster: caster.GUID, Spell: tmpl, Explicit: UnitTarget(units["first"].GUID)}
			res := w.mgr.Resolve(c, 0)

			want := make([]entity.ID, len(tt.order))
			for i, name := range tt.order {
				want[i] = units[name].GUID
			}
			if !sameIDs(res.Units, want...) {
				t.Errorf("Resolve() units = %v, want %v", res.Units, want)
			}
		})
	}
}

func TestResolveChainStopsWithoutHops(t *testing.T) {
	w := newTestWorld(t, chainSpell())
	caster := w.unit("shaman", 1, 0, 0)
	first := w.unit("first", 2, 10, 0)
	w.unit("far", 2, 30, 0)

	tmpl, _ := w.store.Spell(100)
	c := &Cast{Caster: caster.GUID, Spell: tmpl, Explicit: UnitTarget(first.GUID)}
	if res := w.mgr.Resolve(c, 0); !sameIDs(res.Units, first.GUID) {
		t.Errorf("Resolve() units = %v, want only the first target", res.Units)
	}
}

func TestResolveCone(t *testing.T) {
	cone := &spells.Template{
		ID:        110,
		Name:      "Cone of Cold",
		School:    spells.SchoolFrost,
		ItemClass: -1,
		Effects: []spells.Effect{
			{Type: spells.EffectSchoolDamage, BasePoints: 10, TargetA: spells.TargetConeEnemy, Radius: 20},
		},
	}
	w := newTestWorld(t, cone)
	caster := w.unit("mage", 1, 0, 0)
	front := w.unit("front", 2, 10, 0)
	edge := w.unit("edge", 2, 10, 9)
	wide := w.unit("wide", 2, 5, 10)
	w.unit("behind", 2, -10, 0)
	w.unit("far", 2, 25, 0)
	w.unit("ally", 1, 8, 0)

	c := &Cast{Caster: caster.GUID, Spell: cone}
	res := w.mgr.Resolve(c, 0)
	if !sameIDs(res.Units, front.GUID, edge.GUID) {
		t.Errorf("Resolve() units = %v, want front and edge", res.Units)
	}

	// the configured angle is a half-angle, wide sits about 63 degrees off the facing
	cfg := config.DefaultConfig().Casting
	cfg.ConeHalfAngle = 70
	mgr := w.manager(cfg)
	c = &Cast{Caster: caster.GUID, Spell: cone}
	if res := mgr.Resolve(c, 0); !sameIDs(res.Units, front.GUID, wide.GUID, edge.GUID) {
		t.Errorf("Resolve() with a 70 degree half-angle = %v, want front, wide and edge", res.Units)
	}

	caster.Pos.O = 3.14159
	c = &Cast{Caster: caster.GUID, Spell: cone}
	if res := w.mgr.Resolve(c, 0); len(res.Units) != 1 {
		t.Errorf("Expected only the unit behind after turning around, got %v", res.Units)
	}
}

func TestResolveAreaCenters(t *testing.T) {
	blizzard := &spells.Template{
		ID:        120,
		Name:      "Blizzard",
		School:    spells.SchoolFrost,
		MaxRange:  30,
		ItemClass: -1,
		Effects: []spells.Effect{
			{Type: spells.EffectSchoolDamage, BasePoints: 10, TargetA: spells.TargetDestAreaEnemy, Radius: 5},
		},
	}
	w := newTestWorld(t, blizzard)
	caster := w.unit("mage", 1, 0, 0)
	near := w.unit("near", 2, 3, 0)
	inside := w.unit("inside", 2, 20, 2)
	w.unit("outside", 2, 20, 8)

	c := &Cast{Caster: caster.GUID, Spell: blizzard, Explicit: DestTarget(entity.Position{X: 20})}
	res := w.mgr.Resolve(c, 0)
	if !sameIDs(res.Units, inside.GUID) {
		t.Errorf("Resolve() units = %v, want only the unit at the destination", res.Units)
	}
	if !res.HasDest || res.Dest.X != 20 {
		t.Errorf("Resolve() dest = %+v, want the explicit point", res.Dest)
	}
	for _, id := range res.Units {
		if id == near.GUID {
			t.Error("Expected units near the caster to be left out")
		}
	}
}

func TestResolvePruneKeepsExplicitTarget(t *testing.T) {
	multi := &spells.Template{
		ID:         130,
		Name:       "Multi Shot",
		School:     spells.SchoolPhysical,
		MaxRange:   30,
		MaxTargets: 2,
		ItemClass:  -1,
		Effects: []spells.Effect{
			{Type: spells.EffectSchoolDamage, BasePoints: 10, TargetA: spells.TargetEnemy, TargetB: spells.TargetDestAreaEnemy, Radius: 10},
		},
	}
	w := newTestWorld(t, multi)
	caster := w.unit("hunter", 1, 0, 0)
	var enemies []*entity.Unit
	for i := 0; i < 4; i++ {
		enemies = append(enemies, w.unit("boar", 2, 10+float64(i), 0))
	}
	explicit := enemies[2]

	c := &Cast{Caster: caster.GUID, Spell: multi, Explicit: Targets{Unit: explicit.GUID, Dest: explicit.Pos, HasDest: true}}
	res := w.mgr.Resolve(c, 0)
	if len(res.Units) != 2 {
		t.Fatalf("Resolve() units = %v, want 2", res.Units)
	}
	if res.Units[0] != explicit.GUID {
		t.Errorf("Expected the explicit target to survive pruning first, got %v", res.Units)
	}
}

func TestPrune(t *testing.T) {
	in := []entity.ID{1, 2, 3, 4, 5}
	r := &fixedRand{}

	got := prune(in, 1, 3, r)
	if !sameIDs(got, 1, 4, 5) {
		t.Errorf("prune() = %v, want [1 4 5]", got)
	}
	if !sameIDs(in, 1, 2, 3, 4, 5) {
		t.Errorf("prune() modified its input: %v", in)
	}
	if got := prune([]entity.ID{7, 7, 7}, 7, 1, r); len(got) != 3 {
		t.Errorf("Expected prune to stop when only the kept target remains, got %v", got)
	}
}

func TestDedup(t *testing.T) {
	if got := dedup([]entity.ID{3, 1, 3, 2, 1}); !sameIDs(got, 3, 1, 2) {
		t.Errorf("dedup() = %v, want [3 1 2]", got)
	}
}

func TestResolveGroup(t *testing.T) {
	tests := []struct {
		name string
		mode spells.Target
		pets bool
		want []string
	}{
		{"party", spells.TargetCasterParty, false, []string{"priest", "warrior"}},
		{"party with pets", spells.TargetCasterParty, true, []string{"priest", "warrior", "wolf"}},
		{"raid", spells.TargetCasterRaid, false, []string{"priest", "warrior", "rogue"}},
		{"raid with pets", spells.TargetCasterRaid, true, []string{"priest", "warrior", "wolf", "rogue"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buff := &spells.Template{
				ID:        140,
				Name:      "Fortitude",
				School:    spells.SchoolHoly,
				ItemClass: -1,
				Effects: []spells.Effect{
					{Type: spells.EffectApplyAura, Aura: spells.AuraDummy, BasePoints: 5, TargetA: tt.mode, Radius: 30},
				},
			}
			if tt.pets {
				buff.Attributes = spells.AttrIncludePets
			}
			w := newTestWorld(t, buff)
			units := map[string]*entity.Unit{
				"priest":   w.unit("priest", 1, 0, 0),
				"warrior":  w.unit("warrior", 1, 5, 0),
				"wolf":     w.unit("wolf", 1, 6, 0),
				"rogue":    w.unit("rogue", 1, 10, 0),
				"dead":     w.unit("dead", 1, 3, 0),
				"far":      w.unit("far", 1, 50, 0),
				"stranger": w.unit("stranger", 1, 2, 0),
			}
			caster := units["priest"]
			units["wolf"].Owner = units["warrior"].GUID
			units["warrior"].Pets = []entity.ID{units["wolf"].GUID}
			units["rogue"].Subgroup = 2
			units["dead"].Health = 0
			caster.Group = []entity.ID{caster.GUID, units["warrior"].GUID, units["rogue"].GUID, units["dead"].GUID, units["far"].GUID}

			c := &Cast{Caster: caster.GUID, Spell: buff}
			res := w.mgr.Resolve(c, 0)

			want := make([]entity.ID, len(tt.want))
			for i, name := range tt.want {
				want[i] = units[name].GUID
			}
			if !sameIDs(res.Units, want...) {
				t.Errorf("Resolve() units = %v, want %v", res.Units, want)
			}
		})
	}
}

func TestResolveLine(t *testing.T) {
	line := &spells.Template{
		ID:        150,
		Name:      "Shockwave",
		School:    spells.SchoolPhysical,
		ItemClass: -1,
		Effects: []spells.Effect{
			{Type: spells.EffectSchoolDamage, BasePoints: 10, TargetA: spells.TargetLineEnemy, Radius: 20},
		},
	}
	w := newTestWorld(t, line)
	caster := w.unit("warrior", 1, 0, 0)
	ahead := w.unit("ahead", 2, 10, 0)
	edge := w.unit("edge", 2, 15, 1.5)
	w.unit("aside", 2, 10, 3)
	w.unit("behind", 2, -5, 0)
	w.unit("far", 2, 25, 0)
	w.unit("ally", 1, 5, 0)

	c := &Cast{Caster: caster.GUID, Spell: line}
	if res := w.mgr.Resolve(c, 0); !sameIDs(res.Units, ahead.GUID, edge.GUID) {
		t.Errorf("Resolve() units = %v, want ahead and edge", res.Units)
	}

	w.m.AddObstacle(entity.Obstacle{X: 12.5, Y: 0.75, Radius: 0.6})
	c = &Cast{Caster: caster.GUID, Spell: line}
	if res := w.mgr.Resolve(c, 0); !sameIDs(res.Units, ahead.GUID) {
		t.Errorf("Resolve() units = %v, want only the unit in sight", res.Units)
	}
}

func TestResolveHealChainSkipsFullHealth(t *testing.T) {
	heal := &spells.Template{
		ID:          160,
		Name:        "Chain Heal",
		School:      spells.SchoolNature,
		DamageClass: spells.DamageClassMagic,
		MaxRange:    40,
		ItemClass:   -1,
		Effects: []spells.Effect{
			{Type: spells.EffectHeal, BasePoints: 20, TargetA: spells.TargetChainHealAlly, ChainTargets: 3},
		},
	}
	w := newTestWorld(t, heal)
	caster := w.unit("shaman", 1, 0, 0)
	tank := w.unit("tank", 1, 10, 0)
	w.unit("healthy", 1, 12, 0)
	hurt := w.unit("hurt", 1, 14, 0)
	bleeding := w.unit("bleeding", 1, 17, 0)
	enemy := w.unit("enemy", 2, 11, 0)
	tank.Health = 50
	hurt.Health = 60
	bleeding.Health = 70
	enemy.Health = 10

	c := &Cast{Caster: caster.GUID, Spell: heal, Explicit: UnitTarget(tank.GUID)}
	if res := w.mgr.Resolve(c, 0); !sameIDs(res.Units, tank.GUID, hurt.GUID, bleeding.GUID) {
		t.Errorf("Resolve() units = %v, want tank, hurt and bleeding", res.Units)
	}

	// a healthy first target still starts the chain
	tank.Health = 100
	c = &Cast{Caster: caster.GUID, Spell: heal, Explicit: UnitTarget(tank.GUID)}
	if res := w.mgr.Resolve(c, 0); len(res.Units) == 0 || res.Units[0] != tank.GUID {
		t.Errorf("Resolve() units = %v, want the chain to start at the tank", res.Units)
	}
}
