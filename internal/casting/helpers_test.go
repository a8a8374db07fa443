package casting

import (
	"io"
	"log/slog"
	"testing"

	"github.com/lawnchairsociety/castcore/internal/config"
	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/ledger"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// recorder keeps every notification in order.
type recorder struct {
	started  []CastStarted
	results  []CastResult
	effects  []EffectApplied
	channels []ChannelUpdate
	delays   []CastDelayed
}

func (r *recorder) CastStarted(ev CastStarted) { r.started = append(r.started, ev) }
func (r *recorder) CastResult(ev CastResult) { r.results = append(r.results, ev) }
func (r *recorder) EffectApplied(ev EffectApplied) { r.effects = append(r.effects, ev) }
func (r *recorder) ChannelUpdate(ev ChannelUpdate) { r.channels = append(r.channels, ev) }
func (r *recorder) CastDelayed(ev CastDelayed) { r.delays = append(r.delays, ev) }

func (r *recorder) effectsOf(t spells.EffectType) []EffectApplied {
	var out []EffectApplied
	for _, ev := range r.effects {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) lastResult() CastResult {
	if len(r.results) == 0 {
		return CastResult{Reason: CastFailureReason(255)}
	}
	return r.results[len(r.results)-1]
}

type procRecorder struct {
	events []ProcEvent
}

func (p *procRecorder) Proc(ev ProcEvent) { p.events = append(p.events, ev) }

// fixedRand always rolls the same value. The default of 0.99 makes every
// percentage check below 99 fail, so nothing misses, resists or crits.
type fixedRand struct {
	f float64
}

func (r *fixedRand) Intn(n int) int { return 0 }
func (r *fixedRand) Float64() float64 { return r.f }

type testWorld struct {
	m     *entity.Map
	store *content.Store
	rec   *recorder
	procs *procRecorder
	rand  *fixedRand
	mgr   *Manager
}

func newTestWorld(t *testing.T, templates ...*spells.Template) *testWorld {
	t.Helper()
	w := &testWorld{
		m:     entity.NewMap(entity.MapKey{Map: 1}, nil),
		store: content.NewStore(),
		rec:   &recorder{},
		procs: &procRecorder{},
		rand:  &fixedRand{f: 0.99},
	}
	for _, tmpl := range templates {
		w.store.Spells.Add(tmpl)
	}
	w.mgr = w.manager(config.DefaultConfig().Casting)
	return w
}

func (w *testWorld) manager(cfg config.CastingConfig) *Manager {
	cfg.Seed = 1
	return NewManager(cfg, Deps{
		Key:      w.m.Key(),
		Lookup:   w.m,
		Content:  w.store,
		Ledgers:  ledger.New(cfg.DRReset()),
		Notifier: w.rec,
		Combat:   w.procs,
		Rand:     w.rand,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// unit adds a level 10 unit with 100 health and 100 mana, facing east.
func (w *testWorld) unit(name string, team uint8, x, y float64) *entity.Unit {
	u := entity.NewUnit(name, 10, 100)
	u.Team = team
	u.Pos = entity.Position{X: x, Y: y}
	u.MaxPower[spells.PowerMana] = 100
	u.Power[spells.PowerMana] = 100
	w.m.AddUnit(u)
	return u
}

func (w *testWorld) begin(t *testing.T, caster *entity.Unit, spell spells.ID, targets Targets) Handle {
	t.Helper()
	h, r := w.mgr.BeginCast(caster.GUID, spell, targets)
	if r.Failed() {
		t.Fatalf("BeginCast(%d) failed: %s", spell, r)
	}
	return h
}

func (w *testWorld) state(t *testing.T, h Handle) State {
	t.Helper()
	s, err := w.mgr.State(h)
	if err != nil {
		t.Fatalf("State() error: %v", err)
	}
	return s
}

// damageSpell is an instant single target fire spell.
func damageSpell(id spells.ID, base int) *spells.Template {
	return &spells.Template{
		ID:          id,
		Name:        "Firebolt",
		School:      spells.SchoolFire,
		DamageClass: spells.DamageClassMagic,
		MaxRange:    30,
		PowerType:   spells.PowerMana,
		PowerCost:   10,
		ItemClass:   -1,
		Effects: []spells.Effect{
			{Type: spells.EffectSchoolDamage, BasePoints: base, TargetA: spells.TargetEnemy},
		},
	}
}
