// Package ledger keeps per-unit bookkeeping that outlives a single cast:
// cooldowns, diminishing returns and combo points. Times are simulation
// time as kept by the cast manager.
package ledger

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

type casterCooldowns struct {
	spells     map[spells.ID]time.Duration
	categories map[uint32]time.Duration
	gcd        map[uint32]time.Duration
}

// Cooldowns tracks when each caster may use a spell again.
type Cooldowns struct {
	casters map[entity.ID]*casterCooldowns
}

// NewCooldowns creates an empty cooldown ledger.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{casters: make(map[entity.ID]*casterCooldowns)}
}

func (c *Cooldowns) get(caster entity.ID) *casterCooldowns {
	cc, ok := c.casters[caster]
	if !ok {
		cc = &casterCooldowns{
			spells:     make(map[spells.ID]time.Duration),
			categories: make(map[uint32]time.Duration),
			gcd:        make(map[uint32]time.Duration),
		}
		c.casters[caster] = cc
	}
	return cc
}

// Ready returns true if neither the spell nor its category is recovering.
func (c *Cooldowns) Ready(caster entity.ID, t *spells.Template, now time.Duration) bool {
	return c.Remaining(caster, t, now) == 0
}

// Remaining returns the longer of the spell and category recovery left.
func (c *Cooldowns) Remaining(caster entity.ID, t *spells.Template, now time.Duration) time.Duration {
	cc, ok := c.casters[caster]
	if !ok {
		return 0
	}
	var left time.Duration
	if until, ok := cc.spells[t.ID]; ok && until > now {
		left = until - now
	}
	if t.Category != 0 {
		if until, ok := cc.categories[t.Category]; ok && until-now > left {
			left = until - now
		}
	}
	return left
}

// Start begins the spell's recovery and its category recovery.
func (c *Cooldowns) Start(caster entity.ID, t *spells.Template, now time.Duration) {
	if t.Recovery <= 0 && (t.Category == 0 || t.CategoryRecovery <= 0) {
		return
	}
	cc := c.get(caster)
	if t.Recovery > 0 {
		cc.spells[t.ID] = now + time.Duration(t.Recovery)*time.Millisecond
	}
	if t.Category != 0 && t.CategoryRecovery > 0 {
		cc.categories[t.Category] = now + time.Duration(t.CategoryRecovery)*time.Millisecond
	}
}

// Reset clears a spell's recovery.
func (c *Cooldowns) Reset(caster entity.ID, id spells.ID) {
	if cc, ok := c.casters[caster]; ok {
		delete(cc.spells, id)
	}
}

// GCDActive returns true if the caster's global cooldown blocks a spell of the given category.
// Each category runs its own global cooldown; category zero is the default one.
func (c *Cooldowns) GCDActive(caster entity.ID, category uint32, now time.Duration) bool {
	cc, ok := c.casters[caster]
	if !ok {
		return false
	}
	return cc.gcd[category] > now
}

// StartGCD starts the caster's global cooldown for a category. Other
// categories keep whatever they are already running.
func (c *Cooldowns) StartGCD(caster entity.ID, category uint32, d, now time.Duration) {
	if d <= 0 {
		return
	}
	c.get(caster).gcd[category] = now + d
}

// CancelGCD ends a category's global cooldown early, as when the cast that started it is interrupted.
func (c *Cooldowns) CancelGCD(caster entity.ID, category uint32) {
	if cc, ok := c.casters[caster]; ok {
		delete(cc.gcd, category)
	}
}

// Forget drops everything recorded for a caster.
func (c *Cooldowns) Forget(caster entity.ID) {
	delete(c.casters, caster)
}
