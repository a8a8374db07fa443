package ledger

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/castcore/internal/spells"
)

func TestCooldowns(t *testing.T) {
	c := NewCooldowns()
	bolt := &spells.Template{ID: 1, Recovery: 8000, Category: 5, CategoryRecovery: 10000}
	other := &spells.Template{ID: 2, Category: 5}

	if !c.Ready(7, bolt, 0) {
		t.Fatal("Expected fresh caster to be ready")
	}
	c.Start(7, bolt, 0)

	tests := []struct {
		name  string
		tmpl  *spells.Template
		now   time.Duration
		ready bool
	}{
		{"spell recovering", bolt, 5 * time.Second, false},
		{"category shared", other, 9 * time.Second, false},
		{"category over", other, 10 * time.Second, true},
		{"spell over", bolt, 10 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Ready(7, tt.tmpl, tt.now); got != tt.ready {
				t.Errorf("Ready() at %v = %v, want %v", tt.now, got, tt.ready)
			}
		})
	}

	if got := c.Remaining(7, bolt, 4*time.Second); got != 6*time.Second {
		t.Errorf("Remaining() = %v, want 6s", got)
	}
	if !c.Ready(8, bolt, time.Second) {
		t.Error("Cooldowns should be per caster")
	}

	c.Forget(7)
	if !c.Ready(7, bolt, time.Second) {
		t.Error("Expected Forget to clear cooldowns")
	}
}

func TestGlobalCooldown(t *testing.T) {
	c := NewCooldowns()
	c.StartGCD(1, 0, 1500*time.Millisecond, 0)

	if !c.GCDActive(1, 0, time.Second) {
		t.Error("Expected GCD active at 1s")
	}
	if c.GCDActive(1, 133, time.Second) {
		t.Error("Expected other GCD category to be free")
	}
	if c.GCDActive(1, 0, 1500*time.Millisecond) {
		t.Error("Expected GCD over at 1.5s")
	}
}

func TestGlobalCooldownCategoriesInterleave(t *testing.T) {
	c := NewCooldowns()
	c.StartGCD(1, 1, 1500*time.Millisecond, 0)
	c.StartGCD(1, 2, 1000*time.Millisecond, 100*time.Millisecond)

	tests := []struct {
		name     string
		category uint32
		at       time.Duration
		want     bool
	}{
		{"first category still running", 1, 200 * time.Millisecond, true},
		{"second category running", 2, 200 * time.Millisecond, true},
		{"second category over", 2, 1100 * time.Millisecond, false},
		{"first category outlives second", 1, 1200 * time.Millisecond, true},
		{"first category over", 1, 1500 * time.Millisecond, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.GCDActive(1, tt.category, tt.at); got != tt.want {
				t.Errorf("GCDActive(%d, %v) = %v, want %v", tt.category, tt.at, got, tt.want)
			}
		})
	}

	c.CancelGCD(1, 2)
	if !c.GCDActive(1, 1, 200*time.Millisecond) {
		t.Error("Cancelling one category should leave the other running")
	}
}

func TestDiminishingReturns(t *testing.T) {
	d := NewDiminishing(15 * time.Second)

	want := []DRLevel{DRLevelNone, DRLevelHalf, DRLevelQuarter, DRLevelImmune, DRLevelImmune}
	for i, w := range want {
		if got := d.Apply(1, spells.DRStun, time.Duration(i)*time.Second); got != w {
			t.Errorf("application %d level = %d, want %d", i, got, w)
		}
	}

	if got := d.Level(1, spells.DRRoot, 0); got != DRLevelNone {
		t.Errorf("Groups should be independent, got %d", got)
	}
	if got := d.Level(1, spells.DRStun, 19*time.Second); got != DRLevelNone {
		t.Errorf("Expected level to reset after 15s, got %d", got)
	}
	if got := d.Apply(1, spells.DRNone, 0); got != DRLevelNone {
		t.Errorf("DRNone never diminishes, got %d", got)
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		level    DRLevel
		limit    time.Duration
		want     time.Duration
	}{
		{"full", 8 * time.Second, DRLevelNone, 0, 8 * time.Second},
		{"half", 8 * time.Second, DRLevelHalf, 0, 4 * time.Second},
		{"quarter", 8 * time.Second, DRLevelQuarter, 0, 2 * time.Second},
		{"immune", 8 * time.Second, DRLevelImmune, 0, 0},
		{"pvp capped", 20 * time.Second, DRLevelHalf, 10 * time.Second, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scale(tt.duration, tt.level, tt.limit); got != tt.want {
				t.Errorf("Scale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCombo(t *testing.T) {
	c := NewCombo()
	c.Add(1, 10, 2)
	c.Add(1, 10, 2)
	if got := c.Points(1, 10); got != 4 {
		t.Errorf("Points() = %d, want 4", got)
	}
	c.Add(1, 10, 3)
	if got := c.Points(1, 10); got != MaxComboPoints {
		t.Errorf("Points() = %d, want cap %d", got, MaxComboPoints)
	}

	c.Add(1, 11, 1)
	if got := c.Points(1, 10); got != 0 {
		t.Errorf("Switching target should drop points, got %d", got)
	}
	if target, ok := c.Target(1); !ok || target != 11 {
		t.Errorf("Target() = %d, %v; want 11", target, ok)
	}

	c.Clear(1)
	if got := c.Points(1, 11); got != 0 {
		t.Errorf("Clear() left %d points", got)
	}
}

func TestLedgersForget(t *testing.T) {
	l := New(15 * time.Second)
	tmpl := &spells.Template{ID: 1, Recovery: 1000}
	l.Cooldowns.Start(1, tmpl, 0)
	l.Diminishing.Apply(1, spells.DRFear, 0)
	l.Combo.Add(2, 1, 3)

	l.Forget(1)

	if !l.Cooldowns.Ready(1, tmpl, 0) {
		t.Error("Expected cooldowns forgotten")
	}
	if l.Diminishing.Level(1, spells.DRFear, 0) != DRLevelNone {
		t.Error("Expected diminishing returns forgotten")
	}
	if l.Combo.Points(2, 1) != 0 {
		t.Error("Expected combo points on the forgotten unit to be dropped")
	}
}
