package spells

import (
	"testing"
	"time"
)

func TestIsPositiveEffect(t *testing.T) {
	tests := []struct {
		name   string
		effect Effect
		attrs  Attr
		want   bool
	}{
		{"heal on ally", Effect{Type: EffectHeal, TargetA: TargetAlly}, 0, true},
		{"damage", Effect{Type: EffectSchoolDamage, TargetA: TargetEnemy}, 0, false},
		{"stun aura", Effect{Type: EffectApplyAura, Aura: AuraStun, TargetA: TargetEnemy}, 0, false},
		{"hot aura on caster", Effect{Type: EffectApplyAura, Aura: AuraPeriodicHeal, TargetA: TargetCaster}, 0, true},
		{"dummy on enemy area", Effect{Type: EffectDummy, TargetA: TargetSrcCaster, TargetB: TargetSrcAreaEnemy}, 0, false},
		{"forced negative", Effect{Type: EffectHeal, TargetA: TargetAny}, AttrNegative, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := &Template{ID: 1, Attributes: tt.attrs, Effects: []Effect{tt.effect}}
			if got := tmpl.IsPositiveEffect(0); got != tt.want {
				t.Errorf("IsPositiveEffect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTemplateEffectMask(t *testing.T) {
	tmpl := &Template{Effects: []Effect{
		{Type: EffectSchoolDamage},
		{Type: EffectNone},
		{Type: EffectApplyAura, Aura: AuraRoot},
	}}
	if got := tmpl.EffectMask(); got != 0b101 {
		t.Errorf("EffectMask() = %03b, want 101", got)
	}
}

func TestNeedsExplicitUnit(t *testing.T) {
	tests := []struct {
		name    string
		effects []Effect
		want    bool
	}{
		{"single target", []Effect{{Type: EffectSchoolDamage, TargetA: TargetEnemy}}, true},
		{"self buff", []Effect{{Type: EffectApplyAura, Aura: AuraModStealth, TargetA: TargetCaster}}, false},
		{"ground area", []Effect{{Type: EffectSchoolDamage, TargetA: TargetDestDest, TargetB: TargetDestAreaEnemy, Radius: 8}}, false},
		{"raid around target", []Effect{{Type: EffectHeal, TargetA: TargetTargetRaid, Radius: 30}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := &Template{Effects: tt.effects}
			if got := tmpl.NeedsExplicitUnit(); got != tt.want {
				t.Errorf("NeedsExplicitUnit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChannelPeriod(t *testing.T) {
	tmpl := &Template{Effects: []Effect{
		{Type: EffectHeal, Period: 1000},
		{Type: EffectEnergize, Period: 500},
		{Type: EffectDummy},
	}}
	if got := tmpl.ChannelPeriod(); got != 500*time.Millisecond {
		t.Errorf("ChannelPeriod() = %v, want 500ms", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    Template
		wantErr bool
	}{
		{
			name: "valid bolt",
			tmpl: Template{ID: 10, MaxRange: 30, Effects: []Effect{{Type: EffectSchoolDamage, TargetA: TargetEnemy}}},
		},
		{
			name:    "missing id",
			tmpl:    Template{Effects: []Effect{{Type: EffectHeal, TargetA: TargetCaster}}},
			wantErr: true,
		},
		{
			name: "too many effects",
			tmpl: Template{ID: 11, Effects: []Effect{
				{Type: EffectDummy}, {Type: EffectDummy}, {Type: EffectDummy}, {Type: EffectDummy},
			}},
			wantErr: true,
		},
		{
			name:    "channel without duration",
			tmpl:    Template{ID: 12, Attributes: AttrChanneled, Effects: []Effect{{Type: EffectHeal, TargetA: TargetCaster}}},
			wantErr: true,
		},
		{
			name:    "aura effect without aura",
			tmpl:    Template{ID: 13, Effects: []Effect{{Type: EffectApplyAura, TargetA: TargetEnemy}}},
			wantErr: true,
		},
		{
			name:    "area without radius",
			tmpl:    Template{ID: 14, Effects: []Effect{{Type: EffectSchoolDamage, TargetA: TargetSrcCaster, TargetB: TargetSrcAreaEnemy}}},
			wantErr: true,
		},
		{
			name:    "min range above max",
			tmpl:    Template{ID: 15, MinRange: 10, MaxRange: 5, Effects: []Effect{{Type: EffectSchoolDamage, TargetA: TargetEnemy}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.tmpl.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestTargetTableCoversEveryMode(t *testing.T) {
	for tm := TargetNone; tm <= TargetItem; tm++ {
		if _, ok := targetTable[tm]; !ok {
			t.Errorf("target mode %d missing from table", tm)
		}
		if tm.String() == "" {
			t.Errorf("target mode %d has no name", tm)
		}
	}
}

func TestMasks(t *testing.T) {
	if !FormMask(1 << FormCat).Has(FormCat) {
		t.Error("FormMask should contain cat")
	}
	if FormMask(1 << FormCat).Has(FormNone) {
		t.Error("FormMask should not contain none")
	}
	if !MechanicStun.Mask().Has(MechanicStun) || MechanicStun.Mask().Has(MechanicRoot) {
		t.Error("mechanic mask mismatch")
	}
	if !CreatureTypeMask(0).Allows(CreatureTypeBeast) {
		t.Error("empty creature type mask should allow everything")
	}
	if CreatureTypeMask(1 << (CreatureTypeUndead - 1)).Allows(CreatureTypeBeast) {
		t.Error("undead mask should not allow beasts")
	}
	var s AuraStateMask
	s = s.With(AuraStateDefense)
	if !s.Has(AuraStateDefense) || s.Has(AuraStateFrozen) {
		t.Error("aura state mask mismatch")
	}
}
