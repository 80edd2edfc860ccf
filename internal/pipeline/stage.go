package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// Stage is a step of document processing.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageValidating  Stage = "validating"
	StageExtracting  Stage = "extracting"
	StageSummarizing Stage = "summarizing"
	StageFormatting  Stage = "formatting"
	StageDone        Stage = "done"
	StageError       Stage = "error"
)

// next is the forward path through the stages.
var next = map[Stage]Stage{
	StageIdle:        StageValidating,
	StageValidating:  StageExtracting,
	StageExtracting:  StageSummarizing,
	StageSummarizing: StageFormatting,
	StageFormatting:  StageDone,
}

// Progress is the completion percentage reported on entering s.
func (s Stage) Progress() int {
	switch s {
	case StageValidating:
		return 5
	case StageExtracting:
		return 25
	case StageSummarizing:
		return 45
	case StageFormatting:
		return 95
	case StageDone:
		return 100
	}
	return 0
}

// Active reports whether s is a working stage.
func (s Stage) Active() bool {
	return s != StageIdle && s != StageDone && s != StageError
}

// ErrInvalidTransition is returned for a move the state machine forbids.
var ErrInvalidTransition = errors.New("invalid stage transition")

// Machine tracks one document's stage. Stages advance strictly in order;
// any stage may fail into StageError, from which Retry returns to the
// failed stage and Reset ends the run.
type Machine struct {
	mu     sync.Mutex
	stage  Stage
	failed Stage
}

func NewMachine() *Machine {
	return &Machine{stage: StageIdle}
}

// Stage returns the current stage.
func (m *Machine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Advance moves to to, which must be the next stage in order.
func (m *Machine) Advance(to Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next[m.stage] != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.stage, to)
	}
	m.stage = to
	return nil
}

// Fail moves to StageError and returns the stage that failed.
func (m *Machine) Fail() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageError {
		m.failed = m.stage
		m.stage = StageError
	}
	return m.failed
}

// Retry returns from StageError to the stage that failed.
func (m *Machine) Retry() (Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageError || !m.failed.Active() {
		return m.stage, fmt.Errorf("%w: retry from %s", ErrInvalidTransition, m.stage)
	}
	m.stage = m.failed
	return m.stage, nil
}

// Reset returns a finished or failed run to StageIdle.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage.Active() {
		return fmt.Errorf("%w: reset from %s", ErrInvalidTransition, m.stage)
	}
	m.stage = StageIdle
	m.failed = ""
	return nil
}
