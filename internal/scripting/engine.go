// Package scripting runs per-spell Lua hooks. Each <name>.lua file in the
// scripts directory is one script, loaded into its own environment, and may
// define two functions:
//
//	function dummy(call, host) end
//	function filter_targets(call, targets) return targets end
//
// call carries script, spell, effect, caster, target and value. host exposes
// unit(id), damage(id, amount), heal(id, amount) and trigger(caster, target, spell).
package scripting

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/lawnchairsociety/castcore/internal/casting"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/logger"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

// ErrUnknownScript is returned when a spell names a script that was not loaded.
var ErrUnknownScript = errors.New("unknown script")

const (
	hookDummy  = "dummy"
	hookFilter = "filter_targets"
)

// Engine holds one Lua state. It is not safe for concurrent use; every
// partition gets its own engine.
type Engine struct {
	vm      *lua.LState
	scripts map[string]*lua.LTable
	log     *slog.Logger
}

// NewEngine creates an engine and loads every .lua file in dir. A missing
// directory yields an engine with no scripts.
func NewEngine(dir string) (*Engine, error) {
	e := &Engine{
		vm:      lua.NewState(),
		scripts: make(map[string]*lua.LTable),
		log:     logger.Component("scripting"),
	}
	e.vm.SetGlobal("API_VERSION", lua.LNumber(1))

	if err := e.loadDir(dir); err != nil {
		e.vm.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return oops.In("scripting").With("dir", dir).Wrapf(err, "read scripts")
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.LoadFile(path); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads one script, named after the file without its extension.
// Loading a name twice replaces the earlier script.
func (e *Engine) LoadFile(path string) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	fn, err := e.vm.LoadFile(path)
	if err != nil {
		return oops.In("scripting").With("file", path).Wrapf(err, "compile script")
	}
	return e.install(name, fn, path)
}

// LoadString loads a script from source.
func (e *Engine) LoadString(name, source string) error {
	fn, err := e.vm.Load(strings.NewReader(source), name)
	if err != nil {
		return oops.In("scripting").With("script", name).Wrapf(err, "compile script")
	}
	return e.install(name, fn, name)
}

// install runs a compiled chunk in a fresh environment that falls back to the globals.
func (e *Engine) install(name string, fn *lua.LFunction, origin string) error {
	env := e.vm.NewTable()
	meta := e.vm.NewTable()
	meta.RawSetString("__index", e.vm.G.Global)
	e.vm.SetMetatable(env, meta)
	e.vm.SetFEnv(fn, env)

	e.vm.Push(fn)
	if err := e.vm.PCall(0, 0, nil); err != nil {
		return oops.In("scripting").With("script", name).Wrapf(err, "run script")
	}
	e.scripts[name] = env
	e.log.Debug("Loaded lua script", "script", name, "origin", origin)
	return nil
}

// Has reports whether a script is loaded.
func (e *Engine) Has(name string) bool {
	_, ok := e.scripts[name]
	return ok
}

// Len returns the number of loaded scripts.
func (e *Engine) Len() int {
	return len(e.scripts)
}

// Close releases the Lua state.
func (e *Engine) Close() {
	e.vm.Close()
}

func (e *Engine) hook(script, name string) (*lua.LFunction, error) {
	env, ok := e.scripts[script]
	if !ok {
		return nil, oops.In("scripting").With("script", script).Wrap(ErrUnknownScript)
	}
	fn, _ := env.RawGetString(name).(*lua.LFunction)
	return fn, nil
}

// Dummy runs the script's dummy hook. Scripts without one do nothing.
func (e *Engine) Dummy(call casting.ScriptCall, host casting.ScriptHost) error {
	fn, err := e.hook(call.Script, hookDummy)
	if err != nil || fn == nil {
		return err
	}
	err = e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, e.callTable(call), e.hostTable(host))
	if err != nil {
		return oops.In("scripting").With("script", call.Script, "spell", call.Spell).Wrapf(err, "dummy hook")
	}
	return nil
}

// FilterTargets runs the script's filter_targets hook. The hook returns the
// ids to keep; ids it returns that were not offered are ignored.
func (e *Engine) FilterTargets(call casting.ScriptCall, targets []entity.ID) ([]entity.ID, error) {
	fn, err := e.hook(call.Script, hookFilter)
	if err != nil || fn == nil {
		return targets, err
	}

	in := e.vm.CreateTable(len(targets), 0)
	offered := make(map[entity.ID]bool, len(targets))
	for _, id := range targets {
		in.Append(lua.LNumber(id))
		offered[id] = true
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, e.callTable(call), in); err != nil {
		return targets, oops.In("scripting").With("script", call.Script, "spell", call.Spell).Wrapf(err, "filter_targets hook")
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	out, ok := ret.(*lua.LTable)
	if !ok {
		return targets, oops.In("scripting").With("script", call.Script, "returned", ret.Type().String()).
			Errorf("filter_targets must return a table")
	}
	kept := make([]entity.ID, 0, out.Len())
	out.ForEach(func(_, v lua.LValue) {
		n, ok := v.(lua.LNumber)
		if !ok {
			return
		}
		if id := entity.ID(n); offered[id] {
			kept = append(kept, id)
			delete(offered, id)
		}
	})
	return kept, nil
}

func (e *Engine) callTable(call casting.ScriptCall) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("script", lua.LString(call.Script))
	t.RawSetString("spell", lua.LNumber(call.Spell))
	t.RawSetString("effect", lua.LNumber(call.Effect))
	t.RawSetString("caster", lua.LNumber(call.Caster))
	t.RawSetString("target", lua.LNumber(call.Target))
	t.RawSetString("value", lua.LNumber(call.Value))
	return t
}

func (e *Engine) hostTable(host casting.ScriptHost) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("unit", e.vm.NewFunction(func(L *lua.LState) int {
		u, ok := host.Unit(entity.ID(L.CheckNumber(1)))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(unitTable(L, u))
		return 1
	}))
	t.RawSetString("damage", e.vm.NewFunction(func(L *lua.LState) int {
		dealt := host.Damage(entity.ID(L.CheckNumber(1)), L.CheckInt(2))
		L.Push(lua.LNumber(dealt))
		return 1
	}))
	t.RawSetString("heal", e.vm.NewFunction(func(L *lua.LState) int {
		healed := host.Heal(entity.ID(L.CheckNumber(1)), L.CheckInt(2))
		L.Push(lua.LNumber(healed))
		return 1
	}))
	t.RawSetString("trigger", e.vm.NewFunction(func(L *lua.LState) int {
		reason := host.Trigger(entity.ID(L.CheckNumber(1)), entity.ID(L.CheckNumber(2)), spells.ID(L.CheckInt(3)))
		L.Push(lua.LString(reason.String()))
		return 1
	}))
	return t
}

func unitTable(L *lua.LState, u *entity.Unit) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("guid", lua.LNumber(u.GUID))
	t.RawSetString("entry", lua.LNumber(u.Entry))
	t.RawSetString("name", lua.LString(u.Name))
	t.RawSetString("level", lua.LNumber(u.Level))
	t.RawSetString("health", lua.LNumber(u.Health))
	t.RawSetString("max_health", lua.LNumber(u.MaxHealth))
	t.RawSetString("team", lua.LNumber(u.Team))
	t.RawSetString("player", lua.LBool(u.Player))
	t.RawSetString("alive", lua.LBool(u.IsAlive()))
	t.RawSetString("type", lua.LNumber(u.Type))
	return t
}
