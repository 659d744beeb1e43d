package machine

import (
	"fmt"

	"github.com/just-dont/OpenXcom/lang/diag"
)

// DefaultInstructionBudget bounds the number of instructions a single
// Worker.Execute call may run before returning ErrInstructionBudgetExceeded
// (spec.md §5 "A runaway script is bounded by a per-execute instruction
// counter"; see DESIGN.md Open Question (c) for the choice of this value).
const DefaultInstructionBudget = 1_000_000

// ErrInstructionBudgetExceeded is returned by Execute when a script runs
// past its instruction budget (spec.md §7 "Runtime — ...
// InstructionBudgetExceeded").
var ErrInstructionBudgetExceeded = fmt.Errorf("instruction budget exceeded")

// Worker is the per-execution VM state: a register file and a program
// counter (GLOSSARY "Worker"). A Worker is short-lived (spec.md §3
// "Lifecycle"): the lang/scriptapi façades build one per run, while
// lang/events runs a whole chain and BlitWorker a whole blit on one Worker
// before it is discarded. It is not reentrant and must not be shared
// across goroutines (spec.md §5).
type Worker struct {
	rf       RegisterFile
	handlers *HandlerTable
	budget   uint64
}

// NewWorker returns a Worker bound to the given handler table and
// instruction budget. Pass budget == 0 to use DefaultInstructionBudget.
func NewWorker(handlers *HandlerTable, budget uint64) *Worker {
	if budget == 0 {
		budget = DefaultInstructionBudget
	}
	return &Worker{handlers: handlers, budget: budget}
}

// Registers returns the Worker's register file, for use by the
// lang/scriptapi façade when binding host inputs/outputs at the declared
// offsets.
func (w *Worker) Registers() *RegisterFile { return &w.rf }

// Reset zeroes the register file, in preparation for a fresh updateBase
// (spec.md §4.4 "updateBase<Output>(args…) zeroes the register file").
func (w *Worker) Reset() { w.rf.Reset() }

// Execute runs c's bytecode to completion (or until the instruction budget
// is exhausted), per spec.md §4.4's dispatch loop. Effects occur in source
// order (spec.md §5 "Ordering guarantees"); the same handler table and
// register-file contents always produce the same outcome (spec.md §8 P4
// "determinism"), as handlers are expected to be pure beyond the register
// file and whatever host pointers they dereference.
func (w *Worker) Execute(c *Container) error {
	if !c.Valid() {
		return nil
	}

	var pc uint32
	code := c.Code
	var steps uint64
	for {
		steps++
		if steps > w.budget {
			return ErrInstructionBudgetExceeded
		}

		id := ReadHandlerID(code, &pc)
		fn, ok := w.handlers.lookup(id)
		if !ok {
			return fmt.Errorf("machine: no handler registered for id %d", id)
		}

		sig, err := fn(w, code, &pc)
		switch sig {
		case Continue:
			// next iteration
		case End:
			return nil
		case Error:
			return &diag.Error{Kind: diag.HandlerFailure, Message: fmt.Sprintf("handler for id %d: %v", id, err)}
		default:
			return fmt.Errorf("machine: handler for id %d returned invalid signal %d", id, sig)
		}
	}
}
