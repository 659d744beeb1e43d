package events_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-dont/OpenXcom/lang/argkind"
	"github.com/just-dont/OpenXcom/lang/catalog"
	"github.com/just-dont/OpenXcom/lang/compiler"
	"github.com/just-dont/OpenXcom/lang/events"
	"github.com/just-dont/OpenXcom/lang/machine"
	"github.com/just-dont/OpenXcom/lang/symtab"
)

const (
	hRecord catalog.HandlerID = machine.FirstUserHandler + iota
	hSetConst
	hSetReg
	hReturn
)

// newEventCatalog builds a tiny catalog shared by every script compiled in
// this file: "record" appends a compile-time tag to order (proving which
// script ran, and in what sequence), "set" writes either a constant or
// another register's value into a register, and "return" halts.
func newEventCatalog(order *[]int64) (*catalog.Catalog, *argkind.Registry, *machine.HandlerTable) {
	reg := argkind.NewRegistry()
	regInt := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}
	constInt := argkind.ArgKind{Base: argkind.Int}

	cat := catalog.New()
	cat.Register(&catalog.ProcDesc{
		Name:      "record",
		Overloads: []catalog.Overload{{Signature: []argkind.ArgKind{regInt, constInt}, Handler: hRecord}},
	})
	cat.Register(&catalog.ProcDesc{
		Name: "set",
		Overloads: []catalog.Overload{
			{Signature: []argkind.ArgKind{regInt, regInt}, Handler: hSetReg},
			{Signature: []argkind.ArgKind{regInt, constInt}, Handler: hSetConst},
		},
	})
	cat.Register(&catalog.ProcDesc{
		Name:      "return",
		Overloads: []catalog.Overload{{Signature: nil, Handler: hReturn}},
	})

	handlers := machine.NewHandlerTable()
	handlers.Register(hRecord, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		machine.ReadRegOffset(code, pc) // dest is unused; "record" only exists to observe ordering
		tag := machine.ReadConstInt(code, pc)
		*order = append(*order, tag)
		return machine.Continue, nil
	})
	handlers.Register(hSetConst, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		dst := machine.ReadRegOffset(code, pc)
		v := machine.ReadConstInt(code, pc)
		machine.RegSet(w.Registers(), dst, v)
		return machine.Continue, nil
	})
	handlers.Register(hSetReg, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		dst := machine.ReadRegOffset(code, pc)
		src := machine.ReadRegOffset(code, pc)
		machine.RegSet(w.Registers(), dst, machine.RegGet[int64](w.Registers(), src))
		return machine.Continue, nil
	})
	handlers.Register(hReturn, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		return machine.End, nil
	})

	return cat, reg, handlers
}

// TestChainRunOrdersBeforeMainAfterByPriority is spec.md §8 S5 verbatim:
// three events at scaled priorities -100, 0, +100 are registered in
// reverse registration order; firing the chain must visit the negative
// one, then main, then the positive one — the zero-priority event runs in
// neither chain (events.Chain.split's documented exclusion).
func TestChainRunOrdersBeforeMainAfterByPriority(t *testing.T) {
	var order []int64
	cat, reg, handlers := newEventCatalog(&order)
	st := symtab.New(reg, machine.Capacity, nil)
	regInt := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}
	_, err := st.DeclareOutput("out", regInt)
	require.NoError(t, err)
	p := compiler.New(cat, st)

	compile := func(tag int64) *machine.Container {
		c, err := p.Parse("e.hs", []byte(`out record `+strconv.FormatInt(tag, 10)+`; return;`))
		require.NoError(t, err)
		return c
	}

	main := compile(1000) // a tag distinct from any event's, marking main's position
	plus100 := compile(100)
	zero := compile(0)
	minus100 := compile(-100)

	chain := &events.Chain{}
	// Registered in reverse priority order; Register itself scales by
	// events.OffsetScale, so passing host units 1, 0, -1 here yields the
	// spec's stored priorities 100, 0, -100.
	chain.Register("plus", 1, plus100)
	chain.Register("zero", 0, zero)
	chain.Register("minus", -1, minus100)

	w := machine.NewWorker(handlers, 0)
	require.NoError(t, chain.Run(w, main, func() {}))

	assert.Equal(t, []int64{-100, 1000, 100}, order)
}

// TestChainRunResetsInputsBeforeEachScript proves the "reset read-only
// inputs" step (spec.md §4.5): a before-event that stomps the input
// register must not leak that mutation into the main script, because Run
// calls resetInputs ahead of every script in the chain.
func TestChainRunResetsInputsBeforeEachScript(t *testing.T) {
	var order []int64
	cat, reg, handlers := newEventCatalog(&order)
	st := symtab.New(reg, machine.Capacity, nil)
	regInt := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}
	_, err := st.DeclareOutput("out", regInt)
	require.NoError(t, err)
	in1 := st.DeclareInput("in1", regInt)
	p := compiler.New(cat, st)

	stomp, err := p.Parse("stomp.hs", []byte(`in1 set 999; return;`))
	require.NoError(t, err)
	main, err := p.Parse("main.hs", []byte(`out set in1; return;`))
	require.NoError(t, err)

	chain := &events.Chain{}
	chain.Register("stomp", -1, stomp)

	w := machine.NewWorker(handlers, 0)
	const originalIn1 = 7
	resetInputs := func() {
		machine.RegSet(w.Registers(), in1.Offset, int64(originalIn1))
	}

	require.NoError(t, chain.Run(w, main, resetInputs))
	assert.EqualValues(t, originalIn1, machine.RegGet[int64](w.Registers(), 0),
		"main must see the reset input, not the before-event's mutation")
}

func TestRegistryChainCreatesAndReusesByName(t *testing.T) {
	r := events.NewRegistry()
	a := r.Chain("onHit")
	b := r.Chain("onHit")
	assert.Same(t, a, b)
}
