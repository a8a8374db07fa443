package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var spellColumns = []string{
	"id", "name", "description", "school", "damage_class", "mechanic", "attributes",
	"interrupt_flags", "channel_interrupt_flags", "cast_time", "duration", "speed",
	"recovery", "category_recovery", "category", "global_cooldown", "gcd_category",
	"power_type", "power_cost", "power_cost_pct", "min_range", "max_range",
	"max_targets", "max_target_level", "required_zone", "cone_angle", "spell_focus",
	"stances", "stances_not", "caster_aura_state", "target_aura_state", "target_creature_types",
	"item_class", "item_subclass_mask", "diminishing_group",
	"proc_flags", "proc_chance", "proc_charges", "script_name",
}

var effectColumns = []string{
	"spell_id", "slot", "type", "base_points", "dice_count", "die_sides",
	"points_per_level", "points_per_combo", "target_a", "target_b", "radius",
	"chain_targets", "chain_amplitude", "aura", "period", "misc_value",
	"mechanic", "trigger_spell", "item_type",
}

var creatureColumns = []string{
	"entry", "name", "level", "max_health", "max_mana", "type",
	"school_immune", "mechanic_immune", "weapon_damage",
}

var itemColumns = []string{
	"entry", "name", "class", "subclass", "quality", "max_stack",
	"disenchant_into", "disenchant_count",
}

// spellChildTables are deleted before their parent row, so replacing a
// spell does not depend on the driver enforcing ON DELETE CASCADE.
var spellChildTables = []string{"spell_effect", "spell_reagent", "spell_tool", "spell_script_target"}

func spellArgs(t *spells.Template) []any {
	return []any{
		int64(t.ID), t.Name, t.Description, int64(t.School), int64(t.DamageClass), int64(t.Mechanic), int64(t.Attributes),
		int64(t.InterruptFlags), int64(t.ChannelInterruptFlags), int64(t.CastTime), int64(t.Duration), t.Speed,
		int64(t.Recovery), int64(t.CategoryRecovery), int64(t.Category), int64(t.GlobalCooldown), int64(t.GCDCategory),
		int64(t.PowerType), int64(t.PowerCost), int64(t.PowerCostPct), t.MinRange, t.MaxRange,
		int64(t.MaxTargets), int64(t.MaxTargetLevel), int64(t.RequiredZone), t.ConeAngle, int64(t.SpellFocus),
		int64(t.Stances), int64(t.StancesNot), int64(t.CasterAuraState), int64(t.TargetAuraState), int64(t.TargetCreatureTypes),
		int64(t.ItemClass), int64(t.ItemSubclassMask), int64(t.DiminishingGroup),
		int64(t.ProcFlags), int64(t.ProcChance), int64(t.ProcCharges), t.ScriptName,
	}
}

func effectArgs(id spells.ID, slot int, e spells.Effect) []any {
	return []any{
		int64(id), int64(slot), int64(e.Type), int64(e.BasePoints), int64(e.DiceCount), int64(e.DieSides),
		e.PointsPerLevel, int64(e.PointsPerCombo), int64(e.TargetA), int64(e.TargetB), e.Radius,
		int64(e.ChainTargets), e.ChainAmplitude, int64(e.Aura), int64(e.Period), int64(e.MiscValue),
		int64(e.Mechanic), int64(e.TriggerSpell), int64(e.ItemType),
	}
}

// InsertSpell stores a new spell template with its script targets.
// It returns ErrDuplicate if the id is already taken.
func (d *Database) InsertSpell(ctx context.Context, t *spells.Template, targets []spells.ScriptTarget) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		return d.insertSpell(ctx, tx, t, targets)
	})
}

// SaveSpell stores a spell template, replacing any previous version.
func (d *Database) SaveSpell(ctx context.Context, t *spells.Template, targets []spells.ScriptTarget) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := d.deleteSpell(ctx, tx, t.ID); err != nil {
			return err
		}
		return d.insertSpell(ctx, tx, t, targets)
	})
}

func (d *Database) deleteSpell(ctx context.Context, ex execer, id spells.ID) error {
	for _, table := range append(spellChildTables, "spell_template") {
		col := "spell_id"
		if table == "spell_template" {
			col = "id"
		}
		if _, err := ex.ExecContext(ctx, d.qb.Build("DELETE FROM "+table+" WHERE "+col+" = ?"), int64(id)); err != nil {
			return oops.In("database").With("spell", id, "table", table).Wrapf(err, "failed to delete spell")
		}
	}
	return nil
}

func (d *Database) insertSpell(ctx context.Context, ex execer, t *spells.Template, targets []spells.ScriptTarget) error {
	if errs := t.Validate(); len(errs) > 0 {
		return oops.In("database").With("spell", t.ID).Wrapf(errors.Join(errs...), "refusing invalid spell %q", t.Name)
	}

	_, err := ex.ExecContext(ctx, d.qb.Insert("spell_template", spellColumns), spellArgs(t)...)
	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			return oops.In("database").With("spell", t.ID).Wrap(ErrDuplicate)
		}
		return oops.In("database").With("spell", t.ID).Wrapf(err, "failed to insert spell")
	}

	insertEffect := d.qb.Insert("spell_effect", effectColumns)
	for slot, e := range t.Effects {
		if _, err := ex.ExecContext(ctx, insertEffect, effectArgs(t.ID, slot, e)...); err != nil {
			return oops.In("database").With("spell", t.ID, "slot", slot).Wrapf(err, "failed to insert effect")
		}
	}

	insertReagent := d.qb.Insert("spell_reagent", []string{"spell_id", "item", "count"})
	for _, r := range t.Reagents {
		if _, err := ex.ExecContext(ctx, insertReagent, int64(t.ID), int64(r.Item), int64(r.Count)); err != nil {
			return oops.In("database").With("spell", t.ID, "item", r.Item).Wrapf(err, "failed to insert reagent")
		}
	}

	insertTool := d.qb.Insert("spell_tool", []string{"spell_id", "item"})
	for _, item := range t.Tools {
		if _, err := ex.ExecContext(ctx, insertTool, int64(t.ID), int64(item)); err != nil {
			return oops.In("database").With("spell", t.ID, "item", item).Wrapf(err, "failed to insert tool")
		}
	}

	insertTarget := d.qb.Insert("spell_script_target", []string{"spell_id", "type", "entry"})
	for _, st := range targets {
		if _, err := ex.ExecContext(ctx, insertTarget, int64(t.ID), int64(st.Type), int64(st.Entry)); err != nil {
			return oops.In("database").With("spell", t.ID, "entry", st.Entry).Wrapf(err, "failed to insert script target")
		}
	}
	return nil
}

// SaveCreature stores a creature template, replacing any previous version.
func (d *Database) SaveCreature(ctx context.Context, c *content.Creature) error {
	return d.saveCreature(ctx, d.db, c)
}

func (d *Database) saveCreature(ctx context.Context, ex execer, c *content.Creature) error {
	if _, err := ex.ExecContext(ctx, d.qb.Build("DELETE FROM creature_template WHERE entry = ?"), int64(c.Entry)); err != nil {
		return oops.In("database").With("creature", c.Entry).Wrapf(err, "failed to replace creature")
	}
	_, err := ex.ExecContext(ctx, d.qb.Insert("creature_template", creatureColumns),
		int64(c.Entry), c.Name, int64(c.Level), int64(c.MaxHealth), int64(c.MaxMana), int64(c.Type),
		int64(c.SchoolImmune), int64(c.MechanicImmune), int64(c.WeaponDamage),
	)
	if err != nil {
		return oops.In("database").With("creature", c.Entry).Wrapf(err, "failed to insert creature")
	}
	return nil
}

// SaveItem stores an item template, replacing any previous version.
func (d *Database) SaveItem(ctx context.Context, p *content.ItemPrototype) error {
	return d.saveItem(ctx, d.db, p)
}

func (d *Database) saveItem(ctx context.Context, ex execer, p *content.ItemPrototype) error {
	if _, err := ex.ExecContext(ctx, d.qb.Build("DELETE FROM item_template WHERE entry = ?"), int64(p.Entry)); err != nil {
		return oops.In("database").With("item", p.Entry).Wrapf(err, "failed to replace item")
	}
	_, err := ex.ExecContext(ctx, d.qb.Insert("item_template", itemColumns),
		int64(p.Entry), p.Name, int64(p.Class), int64(p.Subclass), int64(p.Quality), int64(p.MaxStack),
		int64(p.DisenchantInto), int64(p.DisenchantCount),
	)
	if err != nil {
		return oops.In("database").With("item", p.Entry).Wrapf(err, "failed to insert item")
	}
	return nil
}

// ImportStats counts the templates written by SaveContent.
type ImportStats struct {
	Spells    int
	Creatures int
	Items     int
}

func (s ImportStats) String() string {
	return fmt.Sprintf("%d spells, %d creatures, %d items", s.Spells, s.Creatures, s.Items)
}

// SaveContent writes every template of the store in a single transaction.
// With replace false an already stored spell aborts the import with ErrDuplicate.
func (d *Database) SaveContent(ctx context.Context, store *content.Store, replace bool) (ImportStats, error) {
	var stats ImportStats
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range store.Spells.All() {
			if replace {
				if err := d.deleteSpell(ctx, tx, t.ID); err != nil {
					return err
				}
			}
			if err := d.insertSpell(ctx, tx, t, store.ScriptTargets(t.ID)); err != nil {
				return err
			}
			stats.Spells++
		}

		var err error
		store.EachCreature(func(c *content.Creature) {
			if err == nil {
				err = d.saveCreature(ctx, tx, c)
				stats.Creatures++
			}
		})
		if err != nil {
			return err
		}
		store.EachItem(func(p *content.ItemPrototype) {
			if err == nil {
				err = d.saveItem(ctx, tx, p)
				stats.Items++
			}
		})
		return err
	})
	if err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}

// LoadContent reads every stored template into a new content store.
// Spells that fail validation abort the load.
func (d *Database) LoadContent(ctx context.Context) (*content.Store, error) {
	store := content.NewStore()
	if err := d.loadSpells(ctx, store); err != nil {
		return nil, err
	}
	if err := d.loadCreatures(ctx, store); err != nil {
		return nil, err
	}
	if err := d.loadItems(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

func (d *Database) loadSpells(ctx context.Context, store *content.Store) error {
	rows, err := d.db.QueryContext(ctx, "SELECT "+strings.Join(spellColumns, ", ")+" FROM spell_template ORDER BY id")
	if err != nil {
		return oops.In("database").Wrapf(err, "failed to query spells")
	}
	defer rows.Close()

	byID := make(map[spells.ID]*spells.Template)
	for rows.Next() {
		t := &spells.Template{}
		err := rows.Scan(
			&t.ID, &t.Name, &t.Description, &t.School, &t.DamageClass, &t.Mechanic, &t.Attributes,
			&t.InterruptFlags, &t.ChannelInterruptFlags, &t.CastTime, &t.Duration, &t.Speed,
			&t.Recovery, &t.CategoryRecovery, &t.Category, &t.GlobalCooldown, &t.GCDCategory,
			&t.PowerType, &t.PowerCost, &t.PowerCostPct, &t.MinRange, &t.MaxRange,
			&t.MaxTargets, &t.MaxTargetLevel, &t.RequiredZone, &t.ConeAngle, &t.SpellFocus,
			&t.Stances, &t.StancesNot, &t.CasterAuraState, &t.TargetAuraState, &t.TargetCreatureTypes,
			&t.ItemClass, &t.ItemSubclassMask, &t.DiminishingGroup,
			&t.ProcFlags, &t.ProcChance, &t.ProcCharges, &t.ScriptName,
		)
		if err != nil {
			return oops.In("database").Wrapf(err, "failed to scan spell")
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return oops.In("database").Wrapf(err, "failed to read spells")
	}
	rows.Close()

	if err := d.loadEffects(ctx, byID); err != nil {
		return err
	}
	if err := d.loadReagents(ctx, byID); err != nil {
		return err
	}
	if err := d.loadScriptTargets(ctx, store); err != nil {
		return err
	}

	for id, t := range byID {
		if errs := t.Validate(); len(errs) > 0 {
			return oops.In("database").With("spell", id).Wrapf(errors.Join(errs...), "stored spell failed validation")
		}
		store.Spells.Add(t)
	}
	return nil
}

func (d *Database) loadEffects(ctx context.Context, byID map[spells.ID]*spells.Template) error {
	rows, err := d.db.QueryContext(ctx, "SELECT "+strings.Join(effectColumns, ", ")+" FROM spell_effect ORDER BY spell_id, slot")
	if err != nil {
		return oops.In("database").Wrapf(err, "failed to query effects")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   spells.ID
			slot int
			e    spells.Effect
		)
		err := rows.Scan(
			&id, &slot, &e.Type, &e.BasePoints, &e.DiceCount, &e.DieSides,
			&e.PointsPerLevel, &e.PointsPerCombo, &e.TargetA, &e.TargetB, &e.Radius,
			&e.ChainTargets, &e.ChainAmplitude, &e.Aura, &e.Period, &e.MiscValue,
			&e.Mechanic, &e.TriggerSpell, &e.ItemType,
		)
		if err != nil {
			return oops.In("database").Wrapf(err, "failed to scan effect")
		}
		t, ok := byID[id]
		if !ok {
			continue
		}
		t.Effects = append(t.Effects, e)
	}
	return rows.Err()
}

func (d *Database) loadReagents(ctx context.Context, byID map[spells.ID]*spells.Template) error {
	rows, err := d.db.QueryContext(ctx, "SELECT spell_id, item, count FROM spell_reagent ORDER BY spell_id, item")
	if err != nil {
		return oops.In("database").Wrapf(err, "failed to query reagents")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id spells.ID
			r  spells.Reagent
		)
		if err := rows.Scan(&id, &r.Item, &r.Count); err != nil {
			return oops.In("database").Wrapf(err, "failed to scan reagent")
		}
		if t, ok := byID[id]; ok {
			t.Reagents = append(t.Reagents, r)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	tools, err := d.db.QueryContext(ctx, "SELECT spell_id, item FROM spell_tool ORDER BY spell_id, item")
	if err != nil {
		return oops.In("database").Wrapf(err, "failed to query tools")
	}
	defer tools.Close()

	for tools.Next() {
		var (
			id   spells.ID
			item uint32
		)
		if err := tools.Scan(&id, &item); err != nil {
			return oops.In("database").Wrapf(err, "failed to scan tool")
		}
		if t, ok := byID[id]; ok {
			t.Tools = append(t.Tools, item)
		}
	}
	return tools.Err()
}

func (d *Database) loadScriptTargets(ctx context.Context, store *content.Store) error {
	rows, err := d.db.QueryContext(ctx, "SELECT spell_id, type, entry FROM spell_script_target ORDER BY spell_id, type, entry")
	if err != nil {
		return oops.In("database").Wrapf(err, "failed to query script targets")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id spells.ID
			st spells.ScriptTarget
		)
		if err := rows.Scan(&id, &st.Type, &st.Entry); err != nil {
			return oops.In("database").Wrapf(err, "failed to scan script target")
		}
		store.Spells.AddScriptTarget(id, st)
	}
	return rows.Err()
}

func (d *Database) loadCreatures(ctx context.Context, store *content.Store) error {
	rows, err := d.db.QueryContext(ctx, "SELECT "+strings.Join(creatureColumns, ", ")+" FROM creature_template")
	if err != nil {
		return oops.In("database").Wrapf(err, "failed to query creatures")
	}
	defer rows.Close()

	for rows.Next() {
		c := &content.Creature{}
		err := rows.Scan(&c.Entry, &c.Name, &c.Level, &c.MaxHealth, &c.MaxMana, &c.Type,
			&c.SchoolImmune, &c.MechanicImmune, &c.WeaponDamage)
		if err != nil {
			return oops.In("database").Wrapf(err, "failed to scan creature")
		}
		store.AddCreature(c)
	}
	return rows.Err()
}

func (d *Database) loadItems(ctx context.Context, store *content.Store) error {
	rows, err := d.db.QueryContext(ctx, "SELECT "+strings.Join(itemColumns, ", ")+" FROM item_template")
	if err != nil {
		return oops.In("database").Wrapf(err, "failed to query items")
	}
	defer rows.Close()

	for rows.Next() {
		p := &content.ItemPrototype{}
		err := rows.Scan(&p.Entry, &p.Name, &p.Class, &p.Subclass, &p.Quality, &p.MaxStack,
			&p.DisenchantInto, &p.DisenchantCount)
		if err != nil {
			return oops.In("database").Wrapf(err, "failed to scan item")
		}
		store.AddItem(p)
	}
	return rows.Err()
}
