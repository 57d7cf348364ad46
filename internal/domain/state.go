package domain

import (
	"fmt"
	"sync"
)

// StateKind names a pipeline state.
type StateKind string

const (
	StateIdle           StateKind = "idle"
	StateRasterizing    StateKind = "rasterizing"
	StateExtractingPage StateKind = "extracting_page"
	StateDone           StateKind = "done"
	StateFailed         StateKind = "failed"
)

// State is a pipeline state. Page is only meaningful for StateExtractingPage.
type State struct {
	Kind StateKind
	Page int
}

func (s State) String() string {
	if s.Kind == StateExtractingPage {
		return fmt.Sprintf("%s(%d)", s.Kind, s.Page)
	}
	return string(s.Kind)
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s.Kind == StateDone || s.Kind == StateFailed
}

// Stage identifies the step a failure happened in.
type Stage string

const (
	StageRasterize Stage = "rasterize"
	StageLookup    Stage = "lookup"
	StageExtract   Stage = "extract"
	StageCrop      Stage = "crop"
	StageEncode    Stage = "encode"
	StageWrite     Stage = "write"
)

// Machine tracks the Idle → Rasterizing → ExtractingPage(i) → Done lifecycle.
// Failed is reachable from every non-terminal state. Safe for concurrent use.
type Machine struct {
	mu      sync.Mutex
	current State
	failure *Failure
	history []State
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	idle := State{Kind: StateIdle, Page: -1}
	return &Machine{current: idle, history: []State{idle}}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Failure returns the recorded failure, or nil.
func (m *Machine) Failure() *Failure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// History returns every state entered so far, in order.
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.history))
	copy(out, m.history)
	return out
}

// StartRasterizing moves Idle → Rasterizing.
func (m *Machine) StartRasterizing() error {
	return m.transition(State{Kind: StateRasterizing, Page: -1}, func(from State) bool {
		return from.Kind == StateIdle
	})
}

// EnterPage moves to ExtractingPage(page). Pages must be entered in increasing order.
func (m *Machine) EnterPage(page int) error {
	return m.transition(State{Kind: StateExtractingPage, Page: page}, func(from State) bool {
		switch from.Kind {
		case StateRasterizing:
			return true
		case StateExtractingPage:
			return page > from.Page
		}
		return false
	})
}

// Finish moves a running pipeline to Done.
func (m *Machine) Finish() error {
	return m.transition(State{Kind: StateDone, Page: -1}, func(from State) bool {
		return from.Kind == StateRasterizing || from.Kind == StateExtractingPage
	})
}

// Fail moves any non-terminal state to Failed and records f.
func (m *Machine) Fail(f Failure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Terminal() {
		return fmt.Errorf("cannot fail from terminal state %s", m.current)
	}
	m.failure = &f
	m.enter(State{Kind: StateFailed, Page: f.Page})
	return nil
}

func (m *Machine) transition(to State, allowed func(from State) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !allowed(m.current) {
		return fmt.Errorf("illegal transition %s -> %s", m.current, to)
	}
	m.enter(to)
	return nil
}

func (m *Machine) enter(s State) {
	m.current = s
	m.history = append(m.history, s)
}
