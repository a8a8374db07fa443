package entity

import (
	"math"
	"testing"
	"time"

	"github.com/lawnchairsociety/castcore/internal/spells"
)

func TestPositionArcs(t *testing.T) {
	origin := Position{X: 0, Y: 0, O: 0} // facing +X

	tests := []struct {
		name    string
		target  Position
		inFront bool
		inCone  bool // 90 degree cone
		inLine  bool // width 2
	}{
		{"straight ahead", Position{X: 10}, true, true, true},
		{"slightly left", Position{X: 10, Y: 0.5}, true, true, true},
		{"diagonal", Position{X: 10, Y: 8}, true, true, false},
		{"wide left", Position{X: 1, Y: 10}, true, false, false},
		{"behind", Position{X: -10}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := origin.InFront(tt.target); got != tt.inFront {
				t.Errorf("InFront() = %v, want %v", got, tt.inFront)
			}
			if got := origin.HasInArc(math.Pi/2, tt.target); got != tt.inCone {
				t.Errorf("HasInArc(pi/2) = %v, want %v", got, tt.inCone)
			}
			if got := origin.InLine(tt.target, 2); got != tt.inLine {
				t.Errorf("InLine() = %v, want %v", got, tt.inLine)
			}
		})
	}

	if !origin.HasInArc(2*math.Pi, Position{X: -5}) {
		t.Error("full circle arc should contain everything")
	}
}

func TestUnitAuraStates(t *testing.T) {
	u := NewUnit("target", 10, 100)

	u.AddAura(&Aura{Spell: 1, Caster: 2, Type: spells.AuraStun, Duration: time.Second})
	if !u.HasState(StateStunned) {
		t.Fatal("Expected unit to be stunned")
	}

	u.AddAura(&Aura{Spell: 3, Caster: 2, Type: spells.AuraModShapeshift, MiscValue: int(spells.FormBear)})
	if u.CurrentForm() != spells.FormBear {
		t.Errorf("Expected bear form, got %d", u.CurrentForm())
	}

	u.UpdateAuras(1500 * time.Millisecond)
	if u.HasState(StateStunned) {
		t.Error("Expected stun to expire")
	}
	if u.CurrentForm() != spells.FormBear {
		t.Error("Expected permanent shapeshift to remain")
	}
}

func TestUnitAuraReplace(t *testing.T) {
	u := NewUnit("target", 10, 100)
	u.AddAura(&Aura{Spell: 1, Caster: 2, Type: spells.AuraRoot, Duration: time.Second})
	u.AddAura(&Aura{Spell: 1, Caster: 2, Type: spells.AuraRoot, Duration: 3 * time.Second})
	if n := len(u.AurasOfType(spells.AuraRoot)); n != 1 {
		t.Fatalf("Expected 1 root aura, got %d", n)
	}
	if a := u.FindAura(1, 2, 0); a == nil || a.Remaining != 3*time.Second {
		t.Errorf("Expected refreshed aura, got %+v", a)
	}
}

func TestUnitPeriodicAuras(t *testing.T) {
	u := NewUnit("target", 10, 100)
	u.AddAura(&Aura{
		Spell:    7,
		Caster:   9,
		Type:     spells.AuraPeriodicDamage,
		Amount:   10,
		School:   spells.SchoolShadow,
		Duration: 3 * time.Second,
		Period:   time.Second,
	})

	var total int
	for i := 0; i < 5; i++ {
		for _, tick := range u.UpdateAuras(time.Second) {
			total += tick.Amount
		}
	}
	if total != 30 {
		t.Errorf("Expected 30 periodic damage, got %d", total)
	}
	if u.Health != 70 {
		t.Errorf("Expected 70 health, got %d", u.Health)
	}
	if len(u.Auras()) != 0 {
		t.Error("Expected aura to expire")
	}
}

func TestUnitImmunity(t *testing.T) {
	u := NewUnit("target", 10, 100)
	u.SchoolImmune = spells.SchoolFire
	if !u.IsImmuneToSchool(spells.SchoolFire) {
		t.Error("Expected fire immunity")
	}
	if u.IsImmuneToSchool(spells.SchoolFire | spells.SchoolFrost) {
		t.Error("Partial immunity should not block a mixed school")
	}

	u.AddAura(&Aura{Spell: 1, Type: spells.AuraMechanicImmunity, MiscValue: int(spells.MechanicStun.Mask())})
	if !u.IsImmuneToMechanic(spells.MechanicStun) {
		t.Error("Expected stun immunity from aura")
	}
	if u.IsImmuneToMechanic(spells.MechanicRoot) {
		t.Error("Did not expect root immunity")
	}
}

func TestAuraCharges(t *testing.T) {
	a := &Aura{Charges: 1}
	if !a.Reserve() {
		t.Fatal("Expected first reservation to succeed")
	}
	if a.Reserve() {
		t.Error("Expected second reservation to fail")
	}
	a.Release()
	if a.Available() != 1 {
		t.Errorf("Expected charge back after release, got %d", a.Available())
	}
	a.Reserve()
	if !a.Commit() {
		t.Error("Expected commit to deplete the aura")
	}

	unlimited := &Aura{}
	if !unlimited.Reserve() || unlimited.Commit() || unlimited.Available() != -1 {
		t.Error("Aura without charges should never deplete")
	}
}

func TestUnitBag(t *testing.T) {
	u := NewUnit("crafter", 10, 100)
	u.BagSlots = 1
	if !u.AddItem(100, 2) {
		t.Fatal("Expected first stack to fit")
	}
	if !u.AddItem(100, 1) {
		t.Error("Expected existing stack to grow")
	}
	if u.AddItem(200, 1) {
		t.Error("Expected full bag to refuse a new stack")
	}
	if !u.RemoveItem(100, 3) || u.HasItem(100, 1) {
		t.Error("Expected stack to be consumed")
	}
}

func TestMapQueries(t *testing.T) {
	m := NewMap(MapKey{Map: 1}, nil)

	near := NewUnit("near", 1, 10)
	near.Pos = Position{X: 5}
	far := NewUnit("far", 1, 10)
	far.Pos = Position{X: 100}
	edge := NewUnit("edge", 1, 10)
	edge.Pos = Position{X: -33}

	nearID := m.AddUnit(near)
	m.AddUnit(far)
	edgeID := m.AddUnit(edge)

	got := m.QueryUnits(Query{Center: Position{}, Radius: 40})
	if len(got) != 2 || got[0] != nearID || got[1] != edgeID {
		t.Errorf("QueryUnits() = %v, want [%d %d]", got, nearID, edgeID)
	}

	m.MoveUnit(nearID, Position{X: 200})
	got = m.QueryUnits(Query{Center: Position{}, Radius: 40})
	if len(got) != 1 || got[0] != edgeID {
		t.Errorf("after move QueryUnits() = %v, want [%d]", got, edgeID)
	}
}

func TestMapLineOfSight(t *testing.T) {
	m := NewMap(MapKey{Map: 1}, nil)
	m.AddObstacle(Obstacle{X: 10, Y: 0, Radius: 2})

	if m.InLineOfSight(Position{}, Position{X: 20}) {
		t.Error("Expected pillar to block line of sight")
	}
	if !m.InLineOfSight(Position{}, Position{X: 20, Y: 10}) {
		t.Error("Expected clear line of sight around the pillar")
	}
}

func TestMapDirectory(t *testing.T) {
	dir := NewDirectory()
	a := NewMap(MapKey{Map: 1}, dir)
	b := NewMap(MapKey{Map: 2}, dir)

	u := NewUnit("traveler", 1, 10)
	id := a.AddUnit(u)
	if !a.Transfer(id, b) {
		t.Fatal("Expected transfer to succeed")
	}
	if _, ok := a.FindUnit(id); ok {
		t.Error("Expected unit to leave the first map")
	}
	key, ok := a.Locate(id)
	if !ok || key != b.Key() {
		t.Errorf("Locate() = %v, %v; want %v", key, ok, b.Key())
	}
}

func TestMapAreaEffects(t *testing.T) {
	m := NewMap(MapKey{Map: 1}, nil)
	enemy := NewUnit("enemy", 1, 100)
	enemy.Team = 2
	ally := NewUnit("ally", 1, 100)
	ally.Team = 1
	m.AddUnit(enemy)
	m.AddUnit(ally)

	m.SpawnArea(&AreaEffect{
		Spell:     5,
		Team:      1,
		Radius:    10,
		Remaining: 2 * time.Second,
		Period:    time.Second,
		Amount:    15,
		School:    spells.SchoolFire,
	})

	m.Update(time.Second)
	m.Update(time.Second)
	m.Update(time.Second)

	if enemy.Health != 70 {
		t.Errorf("Expected enemy at 70 health, got %d", enemy.Health)
	}
	if ally.Health != 100 {
		t.Errorf("Expected ally untouched, got %d", ally.Health)
	}
	if len(m.Areas()) != 0 {
		t.Error("Expected area to expire")
	}
}
