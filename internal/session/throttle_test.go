package session

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lawnchairsociety/castcore/internal/config"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }
func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestThrottle(cfg config.SessionConfig) (*throttle, *clock) {
	c := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	t := newThrottle(cfg)
	t.now = c.Now
	return t, c
}

func TestThrottleBackoff(t *testing.T) {
	th, clk := newTestThrottle(config.SessionConfig{MaxStrikes: 2, LockoutSeconds: 10, MaxLockoutSeconds: 30})
	id := uuid.New()

	if locked, _ := th.strike(id); locked {
		t.Fatal("First strike should not lock out")
	}
	locked, d := th.strike(id)
	if !locked || d != 10*time.Second {
		t.Fatalf("strike() = %v, %v, want a 10s lockout", locked, d)
	}
	if locked, left := th.locked(id); !locked || left != 10*time.Second {
		t.Errorf("locked() = %v, %v", locked, left)
	}

	// strikes during a lockout do not extend it
	clk.advance(4 * time.Second)
	if locked, left := th.strike(id); !locked || left != 6*time.Second {
		t.Errorf("strike() while locked = %v, %v, want 6s left", locked, left)
	}

	want := []time.Duration{20 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		clk.advance(time.Minute)
		if locked, _ := th.locked(id); locked {
			t.Fatalf("Round %d: still locked", i)
		}
		th.strike(id)
		if _, d := th.strike(id); d != w {
			t.Errorf("Round %d: lockout = %v, want %v", i, d, w)
		}
	}
}

func TestThrottleDefaults(t *testing.T) {
	th := newThrottle(config.SessionConfig{})
	if th.maxStrikes != 10 || th.lockout != 5*time.Second || th.maxLockout != 5*time.Second {
		t.Errorf("defaults = %d, %v, %v", th.maxStrikes, th.lockout, th.maxLockout)
	}
}

func TestThrottleSweep(t *testing.T) {
	th, clk := newTestThrottle(config.SessionConfig{MaxStrikes: 5})
	idle, busy := uuid.New(), uuid.New()
	th.strike(idle)
	clk.advance(20 * time.Minute)
	th.strike(busy)

	if n := th.sweep(10 * time.Minute); n != 1 {
		t.Errorf("sweep() = %d, want 1", n)
	}
	if _, ok := th.clients[busy]; !ok {
		t.Error("Recently active client should be kept")
	}
	if _, ok := th.clients[idle]; ok {
		t.Error("Idle client should be forgotten")
	}
}
