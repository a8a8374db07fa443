package spells

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/lawnchairsociety/castcore/internal/stats"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// EffectDefinition represents a spell effect in the YAML file.
type EffectDefinition struct {
	Type           string  `yaml:"type"`
	TargetA        string  `yaml:"target_a"`
	TargetB        string  `yaml:"target_b,omitempty"`
	BasePoints     int     `yaml:"base_points"`
	Dice           string  `yaml:"dice,omitempty"` // Dice notation e.g. "1d6", "2d4+2"
	PointsPerLevel float64 `yaml:"points_per_level,omitempty"`
	PointsPerCombo int     `yaml:"points_per_combo,omitempty"`
	Radius         float64 `yaml:"radius,omitempty"`
	ChainTargets   int     `yaml:"chain_targets,omitempty"`
	ChainAmplitude float64 `yaml:"chain_amplitude,omitempty"`
	Aura           string  `yaml:"aura,omitempty"`
	Period         int     `yaml:"period,omitempty"`
	MiscValue      int     `yaml:"misc_value,omitempty"`
	Mechanic       string  `yaml:"mechanic,omitempty"`
	TriggerSpell   ID      `yaml:"trigger_spell,omitempty"`
	ItemType       uint32  `yaml:"item_type,omitempty"`
}

// ReagentDefinition represents a reagent requirement in the YAML file.
type ReagentDefinition struct {
	Item  uint32 `yaml:"item"`
	Count int    `yaml:"count"`
}

// Definition represents a spell definition from the YAML file.
type Definition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	School      []string `yaml:"school,omitempty"`
	DamageClass string   `yaml:"damage_class,omitempty"`
	Mechanic    string   `yaml:"mechanic,omitempty"`
	Attributes  []string `yaml:"attributes,omitempty"`

	InterruptFlags        []string `yaml:"interrupt_flags,omitempty"`
	ChannelInterruptFlags []string `yaml:"channel_interrupt_flags,omitempty"`

	CastTime int     `yaml:"cast_time,omitempty"`
	Duration int     `yaml:"duration,omitempty"`
	Speed    float64 `yaml:"speed,omitempty"`

	Recovery         int    `yaml:"recovery,omitempty"`
	CategoryRecovery int    `yaml:"category_recovery,omitempty"`
	Category         uint32 `yaml:"category,omitempty"`
	GlobalCooldown   int    `yaml:"global_cooldown,omitempty"`
	GCDCategory      uint32 `yaml:"gcd_category,omitempty"`

	PowerType    string `yaml:"power_type,omitempty"`
	PowerCost    int    `yaml:"power_cost,omitempty"`
	PowerCostPct int    `yaml:"power_cost_pct,omitempty"`

	MinRange float64 `yaml:"min_range,omitempty"`
	MaxRange float64 `yaml:"max_range,omitempty"`

	MaxTargets     int     `yaml:"max_targets,omitempty"`
	MaxTargetLevel int     `yaml:"max_target_level,omitempty"`
	RequiredZone   uint32  `yaml:"required_zone,omitempty"`
	ConeAngle      float64 `yaml:"cone_angle,omitempty"`

	Reagents   []ReagentDefinition `yaml:"reagents,omitempty"`
	Tools      []uint32            `yaml:"tools,omitempty"`
	SpellFocus uint32              `yaml:"spell_focus,omitempty"`

	Stances    []string `yaml:"stances,omitempty"`
	StancesNot []string `yaml:"stances_not,omitempty"`

	CasterAuraState     string   `yaml:"caster_aura_state,omitempty"`
	TargetAuraState     string   `yaml:"target_aura_state,omitempty"`
	TargetCreatureTypes []string `yaml:"target_creature_types,omitempty"`

	ItemClass        *int   `yaml:"item_class,omitempty"`
	ItemSubclassMask uint32 `yaml:"item_subclass_mask,omitempty"`

	DiminishingGroup string `yaml:"diminishing_group,omitempty"`

	ProcFlags   []string `yaml:"proc_flags,omitempty"`
	ProcChance  int      `yaml:"proc_chance,omitempty"`
	ProcCharges int      `yaml:"proc_charges,omitempty"`

	ScriptName    string                   `yaml:"script,omitempty"`
	ScriptTargets []ScriptTargetDefinition `yaml:"script_targets,omitempty"`

	Effects []EffectDefinition `yaml:"effects"`
}

// ScriptTargetDefinition represents a script target entry in the YAML file.
type ScriptTargetDefinition struct {
	Type  string `yaml:"type"`
	Entry uint32 `yaml:"entry"`
}

// File represents the structure of a spells YAML file.
type File struct {
	Spells map[ID]Definition `yaml:"spells"`
}

// ScriptTargetType is the kind of entity a script target entry names.
type ScriptTargetType uint8

const (
	ScriptTargetCreature ScriptTargetType = iota
	ScriptTargetDeadCreature
	ScriptTargetGameObject
)

var scriptTargetNames = map[string]ScriptTargetType{
	"creature":      ScriptTargetCreature,
	"dead_creature": ScriptTargetDeadCreature,
	"gameobject":    ScriptTargetGameObject,
}

// ScriptTarget restricts "entry" target modes of a spell to specific creature or object entries.
type ScriptTarget struct {
	Type  ScriptTargetType
	Entry uint32
}

// Registry holds all loaded spell templates and provides lookup.
type Registry struct {
	spells        map[ID]*Template
	scriptTargets map[ID][]ScriptTarget
}

// NewRegistry creates a new empty spell registry.
func NewRegistry() *Registry {
	return &Registry{
		spells:        make(map[ID]*Template),
		scriptTargets: make(map[ID][]ScriptTarget),
	}
}

// LoadFile reads and parses a spells YAML file.
func LoadFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, oops.In("spells").With("file", filename).Wrapf(err, "failed to read spells file")
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.In("spells").With("file", filename).Wrapf(err, "failed to parse spells YAML")
	}

	return &f, nil
}

// FromDefinition converts a YAML definition into a template.
func FromDefinition(id ID, def Definition) (*Template, error) {
	t := &Template{
		ID:               id,
		Name:             def.Name,
		Description:      def.Description,
		CastTime:         def.CastTime,
		Duration:         def.Duration,
		Speed:            def.Speed,
		Recovery:         def.Recovery,
		CategoryRecovery: def.CategoryRecovery,
		Category:         def.Category,
		GlobalCooldown:   def.GlobalCooldown,
		GCDCategory:      def.GCDCategory,
		PowerCost:        def.PowerCost,
		PowerCostPct:     def.PowerCostPct,
		MinRange:         def.MinRange,
		MaxRange:         def.MaxRange,
		MaxTargets:       def.MaxTargets,
		MaxTargetLevel:   def.MaxTargetLevel,
		RequiredZone:     def.RequiredZone,
		ConeAngle:        def.ConeAngle,
		Tools:            def.Tools,
		SpellFocus:       def.SpellFocus,
		ItemClass:        -1,
		ItemSubclassMask: def.ItemSubclassMask,
		ProcChance:       def.ProcChance,
		ProcCharges:      def.ProcCharges,
		ScriptName:       def.ScriptName,
	}
	if def.ItemClass != nil {
		t.ItemClass = *def.ItemClass
	}
	for _, r := range def.Reagents {
		t.Reagents = append(t.Reagents, Reagent{Item: r.Item, Count: r.Count})
	}

	var err error
	var errs []error
	collect := func(e error) {
		if e != nil {
			errs = append(errs, e)
		}
	}

	t.School, err = maskOf("school", schoolNames, def.School)
	collect(err)
	if t.School == 0 {
		t.School = SchoolPhysical
	}
	t.DamageClass, err = lookupName("damage class", damageClassNames, def.DamageClass)
	collect(err)
	t.Mechanic, err = ParseMechanic(def.Mechanic)
	collect(err)
	t.Attributes, err = maskOf("attribute", attrNames, def.Attributes)
	collect(err)
	t.InterruptFlags, err = maskOf("interrupt flag", interruptNames, def.InterruptFlags)
	collect(err)
	t.ChannelInterruptFlags, err = maskOf("channel interrupt flag", channelInterruptNames, def.ChannelInterruptFlags)
	collect(err)
	t.PowerType, err = lookupName("power type", powerNames, def.PowerType)
	collect(err)
	t.Stances, err = formMask(def.Stances)
	collect(err)
	t.StancesNot, err = formMask(def.StancesNot)
	collect(err)
	t.CasterAuraState, err = lookupName("aura state", auraStateNames, def.CasterAuraState)
	collect(err)
	t.TargetAuraState, err = lookupName("aura state", auraStateNames, def.TargetAuraState)
	collect(err)
	for _, name := range def.TargetCreatureTypes {
		ct, err := ParseCreatureType(name)
		collect(err)
		if ct != CreatureTypeNone {
			t.TargetCreatureTypes |= 1 << (ct - 1)
		}
	}
	t.DiminishingGroup, err = lookupName("diminishing group", drGroupNames, def.DiminishingGroup)
	collect(err)
	t.ProcFlags, err = maskOf("proc flag", procNames, def.ProcFlags)
	collect(err)

	for i, ed := range def.Effects {
		e, err := effectFromDefinition(ed)
		if err != nil {
			errs = append(errs, fmt.Errorf("effect %d: %w", i, err))
			continue
		}
		t.Effects = append(t.Effects, e)
	}

	if len(errs) > 0 {
		return nil, oops.In("spells").With("spell", id).Wrapf(errors.Join(errs...), "invalid spell %q", def.Name)
	}
	return t, nil
}

func effectFromDefinition(ed EffectDefinition) (Effect, error) {
	e := Effect{
		BasePoints:     ed.BasePoints,
		PointsPerLevel: ed.PointsPerLevel,
		PointsPerCombo: ed.PointsPerCombo,
		Radius:         ed.Radius,
		ChainTargets:   ed.ChainTargets,
		ChainAmplitude: ed.ChainAmplitude,
		Period:         ed.Period,
		MiscValue:      ed.MiscValue,
		TriggerSpell:   ed.TriggerSpell,
		ItemType:       ed.ItemType,
	}
	var err error
	if e.Type, err = ParseEffectType(ed.Type); err != nil {
		return e, err
	}
	if e.TargetA, err = ParseTarget(ed.TargetA); err != nil {
		return e, err
	}
	if e.TargetB, err = ParseTarget(ed.TargetB); err != nil {
		return e, err
	}
	if e.Aura, err = ParseAuraType(ed.Aura); err != nil {
		return e, err
	}
	if e.Mechanic, err = ParseMechanic(ed.Mechanic); err != nil {
		return e, err
	}
	if ed.Dice != "" {
		d, err := stats.ParseNotation(ed.Dice)
		if err != nil {
			return e, err
		}
		e.DiceCount = d.Count
		e.DieSides = d.Sides
		e.BasePoints += d.Bonus
	}
	return e, nil
}

func formMask(names []string) (FormMask, error) {
	var m FormMask
	for _, name := range names {
		f, err := lookupName("form", formNames, name)
		if err != nil {
			return 0, err
		}
		m |= 1 << f
	}
	return m, nil
}

// LoadFromYAML loads spells from a YAML file into the registry.
// Templates that fail to parse or validate abort the load.
func (r *Registry) LoadFromYAML(filename string) error {
	f, err := LoadFile(filename)
	if err != nil {
		return err
	}

	for id, def := range f.Spells {
		t, err := FromDefinition(id, def)
		if err != nil {
			return err
		}
		if errs := t.Validate(); len(errs) > 0 {
			return oops.In("spells").With("file", filename).Wrapf(errors.Join(errs...), "spell %d failed validation", id)
		}
		r.spells[id] = t

		for _, st := range def.ScriptTargets {
			typ, err := lookupName("script target type", scriptTargetNames, st.Type)
			if err != nil {
				return oops.In("spells").With("spell", id).Wrap(err)
			}
			r.scriptTargets[id] = append(r.scriptTargets[id], ScriptTarget{Type: typ, Entry: st.Entry})
		}
	}

	return nil
}

// Add registers a template, replacing any previous one with the same ID.
func (r *Registry) Add(t *Template) {
	r.spells[t.ID] = t
}

// AddScriptTarget registers a script target entry for a spell.
func (r *Registry) AddScriptTarget(id ID, st ScriptTarget) {
	r.scriptTargets[id] = append(r.scriptTargets[id], st)
}

// Spell returns a template by its ID.
func (r *Registry) Spell(id ID) (*Template, bool) {
	t, ok := r.spells[id]
	return t, ok
}

// ScriptTargets returns the script target entries for a spell.
func (r *Registry) ScriptTargets(id ID) []ScriptTarget {
	return r.scriptTargets[id]
}

// All returns every template ordered by ID.
func (r *Registry) All() []*Template {
	out := make([]*Template, 0, len(r.spells))
	for _, t := range r.spells {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	return len(r.spells)
}
