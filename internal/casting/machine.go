package casting

import (
	"context"
	"time"

	"github.com/looplab/fsm"
)

// The machine holds the timers of one cast and decides what happens next.
// It never touches the world: every input returns the commands the manager
// must carry out, and the manager feeds the outcome of some commands back in
// as events.

type commandKind uint8

const (
	cmdNotifyStart commandKind = iota
	cmdCheckCaster
	cmdRevalidate
	cmdLaunch
	cmdApply
	cmdChannelStart
	cmdChannelTick
	cmdFinishChannel
	cmdDelayed
	cmdChannelUpdate
	cmdRollback
	cmdResult
	cmdRelease
)

type command struct {
	kind   commandKind
	state  State // state the command was issued in
	reason CastFailureReason
	until  time.Duration
	all    bool
	delay  time.Duration
}

type eventKind uint8

const (
	evCasterOK eventKind = iota
	evInterrupt
	evValidated
	evLaunched
	evApplied
	evCancel
	evPushback
)

type event struct {
	kind    eventKind
	reason  CastFailureReason
	pending int
}

const (
	fsmChannel = "channel"
	fsmLaunch  = "launch"
	fsmResolve = "resolve"
	fsmFinish  = "finish"
)

var fsmStates = map[string]State{
	StatePreparing.String(): StatePreparing,
	StateCasting.String():   StateCasting,
	StateDelayed.String():   StateDelayed,
	StateImmediate.String(): StateImmediate,
	StateFinished.String():  StateFinished,
}

type timing struct {
	castTime     time.Duration
	duration     time.Duration // channel length
	period       time.Duration // channel tick
	channeled    bool
	delayed      bool
	pushbackBy   time.Duration
	maxPushbacks int
}

type machine struct {
	fsm   *fsm.FSM
	state State
	timing

	remaining time.Duration
	tick      time.Duration
	flight    time.Duration
	pushbacks int
}

func newMachine(t timing) *machine {
	m := &machine{timing: t, remaining: t.castTime}
	if m.remaining < 0 {
		m.remaining = 0
	}
	m.fsm = fsm.NewFSM(
		StatePreparing.String(),
		fsm.Events{
			{Name: fsmChannel, Src: []string{StatePreparing.String()}, Dst: StateCasting.String()},
			{Name: fsmLaunch, Src: []string{StatePreparing.String()}, Dst: StateDelayed.String()},
			{Name: fsmResolve, Src: []string{StatePreparing.String()}, Dst: StateImmediate.String()},
			{Name: fsmFinish, Src: []string{
				StatePreparing.String(),
				StateCasting.String(),
				StateDelayed.String(),
				StateImmediate.String(),
			}, Dst: StateFinished.String()},
		},
		fsm.Callbacks{},
	)
	return m
}

// to fires an fsm event and mirrors the resulting state.
func (m *machine) to(name string) bool {
	if err := m.fsm.Event(context.Background(), name); err != nil {
		return false
	}
	m.state = fsmStates[m.fsm.Current()]
	return true
}

func (m *machine) cmd(kind commandKind) command {
	return command{kind: kind, state: m.state}
}

func (m *machine) start() []command {
	cmds := []command{m.cmd(cmdNotifyStart)}
	if m.remaining == 0 {
		cmds = append(cmds, m.cmd(cmdRevalidate))
	}
	return cmds
}

// advance moves the timers forward. Each timer reaches zero exactly once.
func (m *machine) advance(elapsed time.Duration) []command {
	if elapsed < 0 {
		elapsed = 0
	}
	switch m.state {
	case StatePreparing:
		if m.remaining == 0 {
			return nil
		}
		m.remaining -= elapsed
		if m.remaining < 0 {
			m.remaining = 0
		}
		cmds := []command{m.cmd(cmdCheckCaster)}
		if m.remaining == 0 {
			cmds = append(cmds, m.cmd(cmdRevalidate))
		}
		return cmds

	case StateCasting:
		if m.remaining == 0 {
			return nil
		}
		step := elapsed
		if step > m.remaining {
			step = m.remaining
		}
		m.remaining -= step
		cmds := []command{m.cmd(cmdCheckCaster)}
		if m.period > 0 {
			m.tick += step
			for m.tick >= m.period {
				m.tick -= m.period
				cmds = append(cmds, m.cmd(cmdChannelTick))
			}
		}
		if m.remaining == 0 {
			cmds = append(cmds, m.cmd(cmdFinishChannel))
		}
		return cmds

	case StateDelayed:
		m.flight += elapsed
		c := m.cmd(cmdApply)
		c.until = m.flight
		return []command{c}
	}
	return nil
}

func (m *machine) handle(ev event) []command {
	if m.state == StateFinished {
		return nil
	}
	switch ev.kind {
	case evInterrupt, evCancel:
		return m.fail(ev.reason)

	case evValidated:
		if m.state != StatePreparing {
			return nil
		}
		if ev.reason.Failed() {
			return m.fail(ev.reason)
		}
		switch {
		case m.channeled:
			m.to(fsmChannel)
		case m.delayed:
			m.to(fsmLaunch)
		default:
			m.to(fsmResolve)
		}
		return []command{m.cmd(cmdLaunch)}

	case evLaunched:
		if ev.reason.Failed() {
			return m.fail(ev.reason)
		}
		switch m.state {
		case StateImmediate:
			c := m.cmd(cmdApply)
			c.all = true
			return []command{c}
		case StateDelayed:
			return []command{m.cmd(cmdApply)}
		case StateCasting:
			m.remaining = m.duration
			m.tick = 0
			if m.remaining == 0 {
				return []command{m.cmd(cmdChannelStart), m.cmd(cmdFinishChannel)}
			}
			return []command{m.cmd(cmdChannelStart)}
		}

	case evApplied:
		if ev.pending > 0 || m.state == StatePreparing {
			return nil
		}
		if !m.to(fsmFinish) {
			return nil
		}
		return []command{m.cmd(cmdResult), m.cmd(cmdRelease)}

	case evPushback:
		return m.pushback()
	}
	return nil
}

func (m *machine) fail(reason CastFailureReason) []command {
	if !m.to(fsmFinish) {
		return nil
	}
	m.remaining = 0
	if reason == FailNone {
		reason = FailInterrupted
	}
	res := m.cmd(cmdResult)
	res.reason = reason
	return []command{m.cmd(cmdRollback), res, m.cmd(cmdRelease)}
}

// pushback extends the running timer, never past its full length.
func (m *machine) pushback() []command {
	if m.pushbacks >= m.maxPushbacks || m.remaining == 0 {
		return nil
	}
	var full time.Duration
	switch m.state {
	case StatePreparing:
		full = m.castTime
	case StateCasting:
		full = m.duration
	default:
		return nil
	}
	m.pushbacks++
	d := m.pushbackBy
	if m.remaining+d > full {
		d = full - m.remaining
	}
	if d <= 0 {
		return nil
	}
	m.remaining += d
	if m.state == StateCasting {
		return []command{m.cmd(cmdChannelUpdate)}
	}
	c := m.cmd(cmdDelayed)
	c.delay = d
	return []command{c}
}
