package casting

import (
	"time"

	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// reserveMods holds the cast time modifiers that apply to c and returns the
// modified cast time. Charges stay reserved until launch or rollback.
func (m *Manager) reserveMods(c *Cast, caster *entity.Unit) time.Duration {
	base := c.Spell.CastDuration()
	if base <= 0 || c.Triggered {
		return base
	}
	pct := 0
	for _, a := range caster.AurasOfType(spells.AuraModCastTime) {
		if a.MiscValue != 0 && !spells.School(a.MiscValue).Has(c.Spell.School) {
			continue
		}
		if !a.Reserve() {
			continue
		}
		pct += a.Amount
		c.mods = append(c.mods, a)
	}
	d := base * time.Duration(100+pct) / 100
	if d < 0 {
		d = 0
	}
	return d
}

// commitMods spends the reserved charges, removing auras that run out.
func (m *Manager) commitMods(c *Cast, caster *entity.Unit) {
	for _, a := range c.mods {
		if a.Commit() {
			caster.RemoveAura(a)
		}
	}
	c.mods = nil
}

// releaseMods hands reserved charges back.
func (m *Manager) releaseMods(c *Cast) {
	for _, a := range c.mods {
		a.Release()
	}
	c.mods = nil
}
