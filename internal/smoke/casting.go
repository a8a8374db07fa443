package smoke

import (
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/lawnchairsociety/castcore/internal/notify"
	"github.com/lawnchairsociety/castcore/internal/session"
	"github.com/lawnchairsociety/castcore/internal/testclient"
)

// TestConnection checks that a client is welcomed with an id
func TestConnection(t Target) Result {
	const name = "Connection"

	logAction(name, "Connecting...")
	c, err := testclient.Dial(clientName("conn"), t.URL, 0)
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer c.Close()

	logResult(name, c.ID() != "", "Welcome frame carries a client id")
	if c.ID() == "" {
		return fail(name, "Welcome frame had no client id")
	}
	return pass(name, "Connected as "+c.ID())
}

// TestRejectedFrame checks that an unknown frame type is answered with an error frame
func TestRejectedFrame(t Target) Result {
	const name = "Rejected Frame"

	c, err := testclient.Dial(clientName("reject"), t.URL, 0)
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer c.Close()

	logAction(name, "Sending a frame of unknown type...")
	_, err = c.Request("dance", nil, requestTimeout)
	if err == nil || !strings.Contains(err.Error(), session.ErrUnknownFrame.Error()) {
		return fail(name, "Expected an unknown frame error, got %v", err)
	}
	return pass(name, "Unknown frame rejected")
}

// TestSpawnAndDespawn checks the unit lifecycle requests
func TestSpawnAndDespawn(t Target) Result {
	const name = "Spawn And Despawn"

	a, err := openArena(t, "spawn")
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer a.client.Close()

	logAction(name, "Spawning a wolf...")
	r, err := a.client.Request(session.FrameSpawn, session.SpawnBody{Map: t.Map, Creature: CreatureWolf, Team: 2}, requestTimeout)
	if err != nil {
		return fail(name, "Spawn failed: %v", err)
	}
	if r.Unit == 0 {
		return fail(name, "Spawn response has no unit: %+v", r)
	}

	logAction(name, "Despawning it twice...")
	if _, err := a.client.Request(session.FrameDespawn, session.DespawnBody{Unit: r.Unit}, requestTimeout); err != nil {
		return fail(name, "Despawn failed: %v", err)
	}
	if _, err := a.client.Request(session.FrameDespawn, session.DespawnBody{Unit: r.Unit}, requestTimeout); err == nil {
		return fail(name, "Second despawn of unit %d succeeded", r.Unit)
	}

	logAction(name, "Spawning an unknown creature...")
	if _, err := a.client.Request(session.FrameSpawn, session.SpawnBody{Map: t.Map, Creature: 999999}, requestTimeout); err == nil {
		return fail(name, "Spawning an unknown creature succeeded")
	}
	return pass(name, "Spawn, despawn and unknown creatures handled")
}

// TestInstantCast checks that an instant spell finishes before its response arrives
func TestInstantCast(t Target) Result {
	const name = "Instant Cast"

	a, err := openArena(t, "instant")
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer a.close()

	mage, err := a.spawn(CreatureApprentice, 1, 0)
	if err != nil {
		return fail(name, "Spawn failed: %v", err)
	}

	logAction(name, "Casting Life Tap...")
	r, err := a.client.Request(session.FrameCast, session.CastBody{Unit: mage, Spell: SpellLifeTap}, requestTimeout)
	if err != nil {
		return fail(name, "Cast request failed: %v", err)
	}
	if r.Failed {
		return fail(name, "Cast refused: %s", r.Reason)
	}

	res, ok := a.client.WaitForResult(r.Handle, 0)
	logResult(name, ok, "Result frame arrived with the response")
	if !ok {
		return fail(name, "No cast_result for %s before its response", r.Handle)
	}
	if res.Failed {
		return fail(name, "Cast failed: %s", res.Reason)
	}
	return pass(name, "Instant cast resolved synchronously")
}

// TestTimedCast checks a cast with a cast time and a travel delay
func TestTimedCast(t Target) Result {
	const name = "Timed Cast"

	a, err := openArena(t, "timed")
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer a.close()

	mage, wolf, err := a.duel()
	if err != nil {
		return fail(name, "Spawn failed: %v", err)
	}

	logAction(name, "Casting Fireball at the wolf...")
	start := time.Now()
	r, err := a.client.Request(session.FrameCast, session.CastBody{Unit: mage, Spell: SpellFireball, Target: wolf}, requestTimeout)
	if err != nil {
		return fail(name, "Cast request failed: %v", err)
	}
	if r.Failed {
		return fail(name, "Cast refused: %s", r.Reason)
	}

	res, ok := a.client.WaitForResult(r.Handle, 4*time.Second)
	if !ok {
		return fail(name, "No cast_result for %s", r.Handle)
	}
	if res.Failed {
		return fail(name, "Cast failed: %s", res.Reason)
	}
	took := time.Since(start)
	logResult(name, took >= time.Second, "Cast took "+took.Round(time.Millisecond).String())
	if took < time.Second {
		return fail(name, "Fireball resolved after %v, before its cast time", took)
	}

	_, hit := a.client.WaitForMatch(notify.FrameEffect, 2*time.Second, func(env notify.RawEnvelope) bool {
		var e notify.Effect
		return msgpack.Unmarshal(env.Body, &e) == nil && e.Handle == r.Handle && e.Target == wolf
	})
	if !hit {
		return fail(name, "No effect_applied on the wolf")
	}
	return pass(name, "Fireball cast, travelled and hit")
}

// TestCastInProgress checks that a second cast is refused while the first is casting
func TestCastInProgress(t Target) Result {
	const name = "Cast In Progress"

	a, err := openArena(t, "busy")
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer a.close()

	mage, wolf, err := a.duel()
	if err != nil {
		return fail(name, "Spawn failed: %v", err)
	}

	first, err := a.client.Request(session.FrameCast, session.CastBody{Unit: mage, Spell: SpellFireball, Target: wolf}, requestTimeout)
	if err != nil || first.Failed {
		return fail(name, "First cast failed: %v %+v", err, first)
	}

	logAction(name, "Casting again while the first cast is running...")
	second, err := a.client.Request(session.FrameCast, session.CastBody{Unit: mage, Spell: SpellFireball, Target: wolf}, requestTimeout)
	if err != nil {
		return fail(name, "Second cast request failed: %v", err)
	}
	if !second.Failed {
		return fail(name, "Second cast was accepted: %+v", second)
	}
	return pass(name, "Second cast refused with "+second.Reason)
}

// TestMovementInterrupt checks that moving interrupts a cast
func TestMovementInterrupt(t Target) Result {
	const name = "Movement Interrupt"

	a, err := openArena(t, "move")
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer a.close()

	mage, wolf, err := a.duel()
	if err != nil {
		return fail(name, "Spawn failed: %v", err)
	}

	r, err := a.client.Request(session.FrameCast, session.CastBody{Unit: mage, Spell: SpellFireball, Target: wolf}, requestTimeout)
	if err != nil || r.Failed {
		return fail(name, "Cast failed: %v %+v", err, r)
	}

	logAction(name, "Moving the caster...")
	if _, err := a.client.Request(session.FrameMove, session.MoveBody{Unit: mage, Pos: session.Point{X: -2}}, requestTimeout); err != nil {
		return fail(name, "Move failed: %v", err)
	}

	res, ok := a.client.WaitForResult(r.Handle, 3*time.Second)
	if !ok {
		return fail(name, "No cast_result for %s", r.Handle)
	}
	if !res.Failed {
		return fail(name, "Cast finished despite movement")
	}
	return pass(name, "Cast interrupted with "+res.Reason)
}

// TestCancelCast checks that a client can cancel a cast by handle
func TestCancelCast(t Target) Result {
	const name = "Cancel Cast"

	a, err := openArena(t, "cancel")
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer a.close()

	mage, wolf, err := a.duel()
	if err != nil {
		return fail(name, "Spawn failed: %v", err)
	}

	r, err := a.client.Request(session.FrameCast, session.CastBody{Unit: mage, Spell: SpellFireball, Target: wolf}, requestTimeout)
	if err != nil || r.Failed {
		return fail(name, "Cast failed: %v %+v", err, r)
	}

	logAction(name, "Cancelling "+r.Handle+"...")
	if _, err := a.client.Request(session.FrameCancel, session.CancelBody{Unit: mage, Handle: r.Handle}, requestTimeout); err != nil {
		return fail(name, "Cancel failed: %v", err)
	}

	res, ok := a.client.WaitForResult(r.Handle, time.Second)
	if !ok || !res.Failed {
		return fail(name, "Expected a failed cast_result, got %+v", res)
	}
	return pass(name, "Cast cancelled")
}

// TestUnitSubscription checks that unit-filtered subscribers only see their unit's events
func TestUnitSubscription(t Target) Result {
	const name = "Unit Subscription"

	a, err := openArena(t, "sub")
	if err != nil {
		return fail(name, "Connection failed: %v", err)
	}
	defer a.close()

	mage, wolf, err := a.duel()
	if err != nil {
		return fail(name, "Spawn failed: %v", err)
	}

	watcher, err := testclient.Dial(clientName("watch-mage"), t.URL, mage)
	if err != nil {
		return fail(name, "Watcher connection failed: %v", err)
	}
	defer watcher.Close()
	bystander, err := testclient.Dial(clientName("watch-wolf"), t.URL, wolf)
	if err != nil {
		return fail(name, "Bystander connection failed: %v", err)
	}
	defer bystander.Close()

	logAction(name, "Casting Life Tap with the mage...")
	r, err := a.client.Request(session.FrameCast, session.CastBody{Unit: mage, Spell: SpellLifeTap}, requestTimeout)
	if err != nil || r.Failed {
		return fail(name, "Cast failed: %v %+v", err, r)
	}

	if _, ok := watcher.WaitForResult(r.Handle, time.Second); !ok {
		return fail(name, "Mage subscriber missed the cast_result")
	}
	if _, ok := bystander.WaitForResult(r.Handle, 200*time.Millisecond); ok {
		return fail(name, "Wolf subscriber received the mage's cast_result")
	}
	return pass(name, "Events filtered by unit")
}
