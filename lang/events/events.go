// Package events implements the priority-ordered events layer described in
// spec.md §4.5: a flat list of named, prioritized scripts registered
// against one "kind" (a host hook point sharing one main script's
// input/output register layout), split at priority 0 into a "before" run
// and an "after" run that flank the main script, with each run prefaced by
// a reset of the read-only input registers.
package events

import (
	"sort"

	"github.com/just-dont/OpenXcom/lang/machine"
)

// OffsetScale is the factor every host-declared priority is multiplied by
// before it is stored; equal priorities keep registration order, tracked
// separately in ScriptEvent.seq (spec.md §4.5 "stored pre-scaled by
// OffsetScale=100").
const OffsetScale = 100

// ScriptEvent is one named event script registered against a kind, paired
// with its compiled Container (spec.md §3 "ContainerEvents ... Containers
// supplied by the events layer").
type ScriptEvent struct {
	Name      string
	Priority  int // host units; stored scaled by OffsetScale
	Container *machine.Container

	seq int // registration order, the stable tiebreak (spec.md §8 P7)
}

// Chain holds every event script registered for one kind. Its events all
// compile against the same symbol table as that kind's main script, so
// they share its input/output register offsets and can run back-to-back
// against a single Worker's register file.
type Chain struct {
	events []ScriptEvent
	seq    int
}

// Register adds an event script at priority (host units, scaled
// internally by OffsetScale per spec.md §4.5).
func (c *Chain) Register(name string, priority int, container *machine.Container) {
	c.events = append(c.events, ScriptEvent{
		Name:      name,
		Priority:  priority * OffsetScale,
		Container: container,
		seq:       c.seq,
	})
	c.seq++
}

// split sorts the chain by (priority, registration order) ascending
// (spec.md §8 P7 "lexicographic on (p1,o1) vs (p2,o2)") and splits it at
// priority 0: a negative-priority event runs before the main script, a
// positive one runs after. An event registered at exactly priority 0 runs
// in neither chain: priority 0 is the main script's own position in the
// ordering, so a zero-priority event has no side of the split to land on
// (spec.md §8 S5 registers one alongside -100/+100 events and excludes it
// from the fired sequence — see DESIGN.md's lang/events entry).
func (c *Chain) split() (before, after []ScriptEvent) {
	sorted := make([]ScriptEvent, len(c.events))
	copy(sorted, c.events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].seq < sorted[j].seq
	})
	for _, e := range sorted {
		switch {
		case e.Priority < 0:
			before = append(before, e)
		case e.Priority > 0:
			after = append(after, e)
		}
	}
	return before, after
}

// Run executes the chain flanking main, per spec.md §4.5's execution
// algorithm:
//
//	for each before-event: reset read-only inputs, run.
//	reset, run the main script.
//	for each after-event: reset read-only inputs, run.
//
// w's register file is never zeroed between scripts — only resetInputs
// re-applies the original input values — so outputs (and any other state
// a script deliberately carries across the chain) survive from one script
// to the next. Copying outputs back to the caller happens once, after Run
// returns, via the caller's own output readback (spec.md §4.5 "copy
// outputs to caller").
func (c *Chain) Run(w *machine.Worker, main *machine.Container, resetInputs func()) error {
	before, after := c.split()
	for _, e := range before {
		resetInputs()
		if err := w.Execute(e.Container); err != nil {
			return err
		}
	}
	resetInputs()
	if err := w.Execute(main); err != nil {
		return err
	}
	for _, e := range after {
		resetInputs()
		if err := w.Execute(e.Container); err != nil {
			return err
		}
	}
	return nil
}

// Registry maps an event kind's name to its Chain, analogous in shape to
// lang/catalog.Catalog: one lookup table a host populates at init and
// treats as append-only afterward.
type Registry struct {
	chains map[string]*Chain
}

// NewRegistry returns an empty event Registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[string]*Chain)}
}

// Chain returns the named kind's Chain, creating an empty one on first
// reference.
func (r *Registry) Chain(name string) *Chain {
	c, ok := r.chains[name]
	if !ok {
		c = &Chain{}
		r.chains[name] = c
	}
	return c
}
