// Package dispatch tracks the lifecycle of analysis requests:
// idle → pending → {succeeded, failed}, with a generation counter so that a
// superseded request can never overwrite the state of a newer one.
package dispatch

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
)

// State constants for statekit integration.
const (
	StateIdle      = "idle"
	StatePending   = "pending"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

const (
	eventDispatch = "dispatch"
	eventSucceed  = "succeed"
	eventFail     = "fail"
)

// Slot selects which result a dispatch fills.
type Slot int

const (
	SlotPR Slot = iota
	SlotFile
)

func (s Slot) String() string {
	if s == SlotFile {
		return "file"
	}
	return "pr"
}

// Ticket identifies one dispatch. Completions are only applied while the
// ticket's generation is current.
type Ticket struct {
	Generation uint64
	Slot       Slot
}

// State is a snapshot of the UI-facing request state.
type State struct {
	Phase        string
	Loading      bool
	Error        string
	Analysis     *analysis.Result
	FileAnalysis *analysis.Result
	Generation   uint64
}

type machineContext struct{}

// Machine drives State through its transitions. It is not safe for
// concurrent use; callers serialize access.
type Machine struct {
	interpreter *statekit.Interpreter[machineContext]
	state       State
}

func NewMachine() (*Machine, error) {
	builder := statekit.NewMachine[machineContext]("dispatch-machine").
		WithInitial(StateIdle).
		WithContext(machineContext{})

	builder.State(StateIdle).
		On(eventDispatch).Target(StatePending).
		Done()

	builder.State(StatePending).
		On(eventSucceed).Target(StateSucceeded).
		On(eventFail).Target(StateFailed).
		Done()

	builder.State(StateSucceeded).
		On(eventDispatch).Target(StatePending).
		Done()

	builder.State(StateFailed).
		On(eventDispatch).Target(StatePending).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatch machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &Machine{
		interpreter: interpreter,
		state:       State{Phase: StateIdle},
	}, nil
}

// Phase returns the current state name.
func (m *Machine) Phase() string {
	return string(m.interpreter.State().Value)
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	s := m.state
	s.Phase = m.Phase()
	return s
}

// Begin starts a dispatch for slot. Loading is set, the error cleared and
// any earlier ticket is superseded.
func (m *Machine) Begin(slot Slot) Ticket {
	if m.Phase() != StatePending {
		// Every non-pending state accepts dispatch.
		_ = m.transition(eventDispatch)
	}
	m.state.Generation++
	m.state.Loading = true
	m.state.Error = ""
	return Ticket{Generation: m.state.Generation, Slot: slot}
}

// Succeed replaces the ticket's result slot wholesale. It reports false and
// changes nothing when the ticket has been superseded.
func (m *Machine) Succeed(t Ticket, result *analysis.Result) bool {
	if !m.current(t) {
		return false
	}
	switch t.Slot {
	case SlotFile:
		m.state.FileAnalysis = result
	default:
		m.state.Analysis = result
	}
	m.state.Loading = false
	_ = m.transition(eventSucceed)
	return true
}

// Fail records message as the error. Previous results are left untouched.
func (m *Machine) Fail(t Ticket, message string) bool {
	if !m.current(t) {
		return false
	}
	m.state.Error = message
	m.state.Loading = false
	_ = m.transition(eventFail)
	return true
}

// Current reports whether t is the newest ticket.
func (m *Machine) Current(t Ticket) bool {
	return m.current(t)
}

func (m *Machine) current(t Ticket) bool {
	return t.Generation == m.state.Generation && m.Phase() == StatePending
}

func (m *Machine) transition(event string) error {
	before := m.Phase()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.Phase() != before {
		return nil
	}
	return fmt.Errorf("event %q is not allowed in state %q", event, before)
}
