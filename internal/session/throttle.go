package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lawnchairsociety/castcore/internal/config"
)

// throttle locks out clients that keep sending frames the intake rejects.
type throttle struct {
	mu         sync.Mutex
	clients    map[uuid.UUID]*strikes
	maxStrikes int
	lockout    time.Duration
	maxLockout time.Duration
	now        func() time.Time
}

type strikes struct {
	count       int
	lockedUntil time.Time
	lockouts    int // doubles the next lockout
	last        time.Time
}

func newThrottle(cfg config.SessionConfig) *throttle {
	t := &throttle{
		clients:    make(map[uuid.UUID]*strikes),
		maxStrikes: cfg.MaxStrikes,
		lockout:    time.Duration(cfg.LockoutSeconds) * time.Second,
		maxLockout: time.Duration(cfg.MaxLockoutSeconds) * time.Second,
		now:        time.Now,
	}
	if t.maxStrikes <= 0 {
		t.maxStrikes = 10
	}
	if t.lockout <= 0 {
		t.lockout = 5 * time.Second
	}
	if t.maxLockout < t.lockout {
		t.maxLockout = t.lockout
	}
	return t
}

// locked reports whether the client is locked out and for how much longer.
func (t *throttle) locked(id uuid.UUID) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.clients[id]
	if !ok {
		return false, 0
	}
	if now := t.now(); now.Before(s.lockedUntil) {
		return true, s.lockedUntil.Sub(now)
	}
	return false, 0
}

// strike records a rejected frame and returns true when it starts a lockout.
func (t *throttle) strike(id uuid.UUID) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s, ok := t.clients[id]
	if !ok {
		s = &strikes{}
		t.clients[id] = s
	}
	s.last = now
	if now.Before(s.lockedUntil) {
		return true, s.lockedUntil.Sub(now)
	}

	s.count++
	if s.count < t.maxStrikes {
		return false, 0
	}

	s.lockouts++
	d := t.lockout
	for i := 1; i < s.lockouts; i++ {
		if d >= t.maxLockout/2 {
			d = t.maxLockout
			break
		}
		d *= 2
	}
	if d > t.maxLockout {
		d = t.maxLockout
	}
	s.lockedUntil = now.Add(d)
	s.count = 0
	return true, d
}

// sweep forgets clients idle for longer than idle.
func (t *throttle) sweep(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-idle)
	n := 0
	for id, s := range t.clients {
		if s.last.Before(cutoff) && s.lockedUntil.Before(cutoff) {
			delete(t.clients, id)
			n++
		}
	}
	return n
}
