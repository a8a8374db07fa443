// Package smoke runs end-to-end scenarios against a live castd: it spawns
// its own units over the websocket endpoint, casts with them, checks the
// frames that come back and despawns them again.
package smoke

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lawnchairsociety/castcore/internal/session"
	"github.com/lawnchairsociety/castcore/internal/testclient"
)

// Creature entries and spells the scenarios rely on. They match the stock
// data/creatures.yaml and data/spells.yaml.
const (
	CreatureApprentice uint32 = 1
	CreatureWolf       uint32 = 299

	SpellFireball uint32 = 133
	SpellLifeTap  uint32 = 1454
)

const requestTimeout = 2 * time.Second

// Target is the castd node under test.
type Target struct {
	URL string
	Map uint32
}

// Verbose controls whether detailed logging is shown during scenarios
var Verbose = false

// clientCounter provides unique client names within a single run
var clientCounter uint64

func clientName(base string) string {
	return fmt.Sprintf("%s-%d", base, atomic.AddUint64(&clientCounter, 1))
}

// Result represents the result of a scenario
type Result struct {
	Name    string
	Passed  bool
	Message string
}

func pass(name, msg string) Result {
	return Result{Name: name, Passed: true, Message: msg}
}

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Passed: false, Message: fmt.Sprintf(format, args...)}
}

// logAction logs a scenario action when verbose mode is enabled
func logAction(name, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", name, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(name string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", name, status, detail)
	}
}

// arena is a client plus the units it spawned, removed again by close.
type arena struct {
	client *testclient.TestClient
	target Target
	units  []uint64
}

func openArena(t Target, name string) (*arena, error) {
	c, err := testclient.Dial(clientName(name), t.URL, 0)
	if err != nil {
		return nil, err
	}
	return &arena{client: c, target: t}, nil
}

func (a *arena) spawn(creature uint32, team uint8, x float64) (uint64, error) {
	r, err := a.client.Request(session.FrameSpawn, session.SpawnBody{
		Map:      a.target.Map,
		Creature: creature,
		Team:     team,
		Pos:      session.Point{X: x},
	}, requestTimeout)
	if err != nil {
		return 0, err
	}
	a.units = append(a.units, r.Unit)
	return r.Unit, nil
}

// duel spawns an apprentice at the origin and a hostile wolf ten yards away.
func (a *arena) duel() (mage, wolf uint64, err error) {
	if mage, err = a.spawn(CreatureApprentice, 1, 0); err != nil {
		return 0, 0, err
	}
	if wolf, err = a.spawn(CreatureWolf, 2, 10); err != nil {
		return 0, 0, err
	}
	return mage, wolf, nil
}

func (a *arena) close() {
	for _, u := range a.units {
		a.client.Request(session.FrameDespawn, session.DespawnBody{Unit: u}, requestTimeout)
	}
	a.client.Close()
}

// scenario holds a scenario function and its name
type scenario struct {
	Name string
	Func func(Target) Result
}

// all returns every scenario in order
func all() []scenario {
	return []scenario{
		{"Connection", TestConnection},
		{"Rejected Frame", TestRejectedFrame},
		{"Spawn And Despawn", TestSpawnAndDespawn},
		{"Instant Cast", TestInstantCast},
		{"Timed Cast", TestTimedCast},
		{"Cast In Progress", TestCastInProgress},
		{"Movement Interrupt", TestMovementInterrupt},
		{"Cancel Cast", TestCancelCast},
		{"Unit Subscription", TestUnitSubscription},
	}
}

// Names returns the names of all available scenarios
func Names() []string {
	list := all()
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	return names
}

// Run runs the scenarios whose names contain filter (case-insensitive). An
// empty filter runs them all.
func Run(t Target, filter string) []Result {
	results := make([]Result, 0)
	filter = strings.ToLower(filter)

	for _, s := range all() {
		if strings.Contains(strings.ToLower(s.Name), filter) {
			results = append(results, s.Func(t))
		}
	}

	return results
}

// PrintResults prints all scenario results in a formatted way
func PrintResults(results []Result) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("castd Smoke Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}
