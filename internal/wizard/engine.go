// Package wizard holds the step-by-step flows used to register money
// movements: the generic Engine, the abono Allocator and the concrete flows.
package wizard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type State int

const (
	Editing State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrStepIncomplete   = errors.New("wizard: step incomplete")
	ErrNotOnFinalStep   = errors.New("wizard: submit is only available on the final step")
	ErrSubmitInFlight   = errors.New("wizard: submission already in flight")
	ErrAlreadySubmitted = errors.New("wizard: already submitted")
	ErrClosed           = errors.New("wizard: closed")
	ErrInvalidStep      = errors.New("wizard: invalid step")
)

// Step is one screen. Check returns nil when the step's fields allow moving on;
// otherwise the error is shown to the operator.
type Step struct {
	Title string
	Check func() error
}

// StepError wraps ErrStepIncomplete with the reason reported by the step.
type StepError struct {
	Step   int
	Reason error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("paso %d: %v", e.Step, e.Reason)
}

func (e *StepError) Unwrap() []error { return []error{ErrStepIncomplete, e.Reason} }

// Engine is the step state machine shared by every flow. Steps are 1-based.
// All draft fields live in the flow; the engine never clears them, so a
// Failed submission can be corrected and resubmitted.
type Engine struct {
	mu      sync.Mutex
	id      uuid.UUID
	steps   []Step
	current int
	state   State
	closed  bool
}

func NewEngine(steps ...Step) *Engine {
	return &Engine{id: uuid.New(), steps: steps, current: 1}
}

// ID identifies this wizard instance in logs.
func (e *Engine) ID() uuid.UUID { return e.id }

func (e *Engine) Len() int { return len(e.steps) }

func (e *Engine) Current() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps[e.current-1].Title
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) OnFinalStep() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current == len(e.steps)
}

func (e *Engine) check(step int) error {
	if c := e.steps[step-1].Check; c != nil {
		if err := c(); err != nil {
			return &StepError{Step: step, Reason: err}
		}
	}
	return nil
}

// Next advances one step when the current step is complete.
func (e *Engine) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(); err != nil {
		return err
	}
	if e.current == len(e.steps) {
		return ErrInvalidStep
	}
	if err := e.check(e.current); err != nil {
		return err
	}
	e.current++
	return nil
}

// Back moves one step back. From the first step it reports exit instead.
func (e *Engine) Back() (exit bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Submitting || e.closed {
		return false
	}
	if e.current == 1 || e.state == Succeeded {
		return true
	}
	e.current--
	if e.state == Failed {
		e.state = Editing
	}
	return false
}

// Rewind jumps back to an earlier step, e.g. to fix the amount after a
// conflict. Forward jumps are refused.
func (e *Engine) Rewind(step int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(); err != nil {
		return err
	}
	if step < 1 || step > e.current {
		return ErrInvalidStep
	}
	e.current = step
	e.state = Editing
	return nil
}

func (e *Engine) editable() error {
	switch {
	case e.closed:
		return ErrClosed
	case e.state == Submitting:
		return ErrSubmitInFlight
	case e.state == Succeeded:
		return ErrAlreadySubmitted
	}
	return nil
}

// BeginSubmit moves to Submitting. Every step is re-checked since fields can
// change after the step was left.
func (e *Engine) BeginSubmit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(); err != nil {
		return err
	}
	if e.current != len(e.steps) {
		return ErrNotOnFinalStep
	}
	for i := 1; i < len(e.steps); i++ {
		if err := e.check(i); err != nil {
			return err
		}
	}
	e.state = Submitting
	return nil
}

// Finish records the outcome of the submission started by BeginSubmit. It
// reports false when the wizard was closed meanwhile and the outcome must be
// ignored.
func (e *Engine) Finish(ok bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if e.state != Submitting {
		return false
	}
	if ok {
		e.state = Succeeded
	} else {
		e.state = Failed
	}
	return true
}

// Close marks the wizard as abandoned.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
