package casting

import (
	"testing"
	"time"
)

func kinds(cmds []command) []commandKind {
	out := make([]commandKind, len(cmds))
	for i, c := range cmds {
		out[i] = c.kind
	}
	return out
}

func sameKinds(got []command, want ...commandKind) bool {
	k := kinds(got)
	if len(k) != len(want) {
		return false
	}
	for i := range k {
		if k[i] != want[i] {
			return false
		}
	}
	return true
}

func TestMachineCastTime(t *testing.T) {
	m := newMachine(timing{castTime: time.Second, pushbackBy: 500 * time.Millisecond, maxPushbacks: 2})

	if cmds := m.start(); !sameKinds(cmds, cmdNotifyStart) {
		t.Fatalf("start() = %v, want notify only", kinds(cmds))
	}
	if cmds := m.advance(500 * time.Millisecond); !sameKinds(cmds, cmdCheckCaster) {
		t.Fatalf("advance(500ms) = %v", kinds(cmds))
	}
	if cmds := m.advance(600 * time.Millisecond); !sameKinds(cmds, cmdCheckCaster, cmdRevalidate) {
		t.Fatalf("advance(600ms) = %v", kinds(cmds))
	}
	if m.remaining != 0 {
		t.Errorf("remaining = %v, want 0", m.remaining)
	}
	if cmds := m.advance(time.Second); cmds != nil {
		t.Errorf("Expected no commands once the timer ran out, got %v", kinds(cmds))
	}

	cmds := m.handle(event{kind: evValidated})
	if m.state != StateImmediate || !sameKinds(cmds, cmdLaunch) {
		t.Fatalf("after validation state = %s cmds = %v", m.state, kinds(cmds))
	}
	cmds = m.handle(event{kind: evLaunched})
	if !sameKinds(cmds, cmdApply) || !cmds[0].all {
		t.Fatalf("after launch cmds = %v", kinds(cmds))
	}
	cmds = m.handle(event{kind: evApplied})
	if m.state != StateFinished || !sameKinds(cmds, cmdResult, cmdRelease) {
		t.Fatalf("after apply state = %s cmds = %v", m.state, kinds(cmds))
	}
	if cmds[0].reason != FailNone {
		t.Errorf("result reason = %s, want none", cmds[0].reason)
	}
	if cmds := m.handle(event{kind: evCancel}); cmds != nil {
		t.Errorf("Expected finished machine to ignore events, got %v", kinds(cmds))
	}
}

func TestMachineFailures(t *testing.T) {
	tests := []struct {
		name string
		ev   event
		want CastFailureReason
	}{
		{"cancel", event{kind: evCancel}, FailInterrupted},
		{"interrupt", event{kind: evInterrupt, reason: FailCasterDead}, FailCasterDead},
		{"validation", event{kind: evValidated, reason: FailOutOfRange}, FailOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(timing{castTime: time.Second})
			cmds := m.handle(tt.ev)
			if m.state != StateFinished {
				t.Fatalf("state = %s, want finished", m.state)
			}
			if !sameKinds(cmds, cmdRollback, cmdResult, cmdRelease) {
				t.Fatalf("cmds = %v", kinds(cmds))
			}
			if cmds[1].reason != tt.want {
				t.Errorf("reason = %s, want %s", cmds[1].reason, tt.want)
			}
		})
	}
}

func TestMachineChannel(t *testing.T) {
	m := newMachine(timing{channeled: true, duration: 3 * time.Second, period: time.Second})

	if cmds := m.start(); !sameKinds(cmds, cmdNotifyStart, cmdRevalidate) {
		t.Fatalf("start() = %v", kinds(cmds))
	}
	m.handle(event{kind: evValidated})
	if m.state != StateCasting {
		t.Fatalf("state = %s, want casting", m.state)
	}
	if cmds := m.handle(event{kind: evLaunched}); !sameKinds(cmds, cmdChannelStart) {
		t.Fatalf("launch cmds = %v", kinds(cmds))
	}
	if m.remaining != 3*time.Second {
		t.Errorf("remaining = %v, want 3s", m.remaining)
	}

	if cmds := m.advance(2500 * time.Millisecond); !sameKinds(cmds, cmdCheckCaster, cmdChannelTick, cmdChannelTick) {
		t.Errorf("advance(2.5s) = %v", kinds(cmds))
	}
	if cmds := m.advance(time.Second); !sameKinds(cmds, cmdCheckCaster, cmdChannelTick, cmdFinishChannel) {
		t.Errorf("advance(1s) = %v", kinds(cmds))
	}
}

func TestMachineDelayed(t *testing.T) {
	m := newMachine(timing{delayed: true})
	m.handle(event{kind: evValidated})
	if m.state != StateDelayed {
		t.Fatalf("state = %s, want delayed", m.state)
	}
	if cmds := m.handle(event{kind: evLaunched}); !sameKinds(cmds, cmdApply) || cmds[0].all {
		t.Fatalf("launch cmds = %v", kinds(cmds))
	}
	if cmds := m.handle(event{kind: evApplied, pending: 2}); cmds != nil {
		t.Errorf("Expected delayed cast to wait for pending targets, got %v", kinds(cmds))
	}

	m.advance(time.Second)
	cmds := m.advance(500 * time.Millisecond)
	if !sameKinds(cmds, cmdApply) || cmds[0].until != 1500*time.Millisecond {
		t.Errorf("advance cmds = %v until %v, want apply until 1.5s", kinds(cmds), cmds[0].until)
	}
}

func TestMachinePushback(t *testing.T) {
	m := newMachine(timing{castTime: 2 * time.Second, pushbackBy: 500 * time.Millisecond, maxPushbacks: 2})
	m.advance(time.Second)

	cmds := m.handle(event{kind: evPushback})
	if !sameKinds(cmds, cmdDelayed) || cmds[0].delay != 500*time.Millisecond {
		t.Fatalf("first pushback = %v", kinds(cmds))
	}
	m.handle(event{kind: evPushback})
	if m.remaining != 2*time.Second {
		t.Errorf("remaining = %v, want 2s", m.remaining)
	}
	if cmds := m.handle(event{kind: evPushback}); cmds != nil {
		t.Errorf("Expected third pushback to be ignored, got %v", kinds(cmds))
	}
	if m.pushbacks != 2 {
		t.Errorf("pushbacks = %d, want 2", m.pushbacks)
	}
}

func TestMachinePushbackCappedAtFullTimer(t *testing.T) {
	m := newMachine(timing{castTime: 2 * time.Second, pushbackBy: 500 * time.Millisecond, maxPushbacks: 2})
	m.advance(200 * time.Millisecond)

	cmds := m.handle(event{kind: evPushback})
	if !sameKinds(cmds, cmdDelayed) || cmds[0].delay != 200*time.Millisecond {
		t.Fatalf("pushback = %v, want a 200ms delay", kinds(cmds))
	}
	if m.remaining != 2*time.Second {
		t.Errorf("remaining = %v, want 2s", m.remaining)
	}
}

func TestMachineChannelPushback(t *testing.T) {
	m := newMachine(timing{channeled: true, duration: 3 * time.Second, period: time.Second,
		pushbackBy: 500 * time.Millisecond, maxPushbacks: 2})
	m.handle(event{kind: evValidated})
	m.handle(event{kind: evLaunched})
	m.advance(time.Second)

	if cmds := m.handle(event{kind: evPushback}); !sameKinds(cmds, cmdChannelUpdate) {
		t.Fatalf("channel pushback = %v", kinds(cmds))
	}
	if m.remaining != 2500*time.Millisecond {
		t.Errorf("remaining = %v, want 2.5s", m.remaining)
	}
}
