package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-dont/OpenXcom/lang/argkind"
	"github.com/just-dont/OpenXcom/lang/catalog"
	"github.com/just-dont/OpenXcom/lang/compiler"
	"github.com/just-dont/OpenXcom/lang/machine"
	"github.com/just-dont/OpenXcom/lang/symtab"
)

const (
	hAdd catalog.HandlerID = machine.FirstUserHandler + iota
	hGt
	hSet
	hReturn
)

// newTestCatalog registers "add" (foldable), "gt", "set", and "return" —
// enough to exercise the "NAME OP_NAME ARG…;" statement grammar, an inline
// "if OP_NAME ARG…;" condition, and constant folding (spec.md §4.3, §8).
func newTestCatalog() (*catalog.Catalog, *argkind.Registry, *machine.HandlerTable) {
	reg := argkind.NewRegistry()
	regInt := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}

	cat := catalog.New()
	cat.Register(&catalog.ProcDesc{
		Name: "add",
		Overloads: []catalog.Overload{
			{
				Signature: []argkind.ArgKind{regInt, regInt, regInt},
				Handler:   hAdd,
				Fold:      func(args []catalog.Arg) (int64, bool) { return args[1].ConstInt + args[2].ConstInt, true },
			},
		},
	})
	cat.Register(&catalog.ProcDesc{
		Name: "gt",
		Overloads: []catalog.Overload{
			{Signature: []argkind.ArgKind{regInt, regInt, regInt}, Handler: hGt},
		},
	})
	cat.Register(&catalog.ProcDesc{
		Name: "set",
		Overloads: []catalog.Overload{
			{Signature: []argkind.ArgKind{regInt, regInt}, Handler: hSet},
		},
	})
	cat.Register(&catalog.ProcDesc{
		Name: "return",
		Overloads: []catalog.Overload{
			{Signature: nil, Handler: hReturn},
		},
	})

	handlers := machine.NewHandlerTable()
	handlers.Register(hAdd, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		dst := machine.ReadRegOffset(code, pc)
		a := machine.ReadRegOffset(code, pc)
		b := machine.ReadRegOffset(code, pc)
		machine.RegSet(w.Registers(), dst, machine.RegGet[int64](w.Registers(), a)+machine.RegGet[int64](w.Registers(), b))
		return machine.Continue, nil
	})
	handlers.Register(hGt, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		dst := machine.ReadRegOffset(code, pc)
		a := machine.ReadRegOffset(code, pc)
		b := machine.ReadRegOffset(code, pc)
		var v int64
		if machine.RegGet[int64](w.Registers(), a) > machine.RegGet[int64](w.Registers(), b) {
			v = 1
		}
		machine.RegSet(w.Registers(), dst, v)
		return machine.Continue, nil
	})
	handlers.Register(hSet, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
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

func TestCompileAndRunArithmeticIfLoop(t *testing.T) {
	cat, reg, handlers := newTestCatalog()
	st := symtab.New(reg, machine.Capacity, nil)
	p := compiler.New(cat, st)

	src := `
var a = 5;
var b = 3;
var sum = 0;
sum add a b;
if gt sum a;
  var sum2 = 0;
  sum2 add sum b;
else
  var sum2 = 0;
end;
loop;
  sum add sum a;
  break;
end;
return;
`
	c, err := p.Parse("test.hs", []byte(src))
	require.NoError(t, err)
	require.True(t, c.Valid())

	w := machine.NewWorker(handlers, 0)
	require.NoError(t, w.Execute(c))

	// "sum" is the third local declared at the top level (a=0, b=8, sum=16).
	const sumOffset = 16
	assert.EqualValues(t, 13, machine.RegGet[int64](w.Registers(), sumOffset))
}

func TestCompileErrorRollsBackSymbolTable(t *testing.T) {
	cat, reg, _ := newTestCatalog()
	st := symtab.New(reg, machine.Capacity, nil)
	p := compiler.New(cat, st)

	_, err := p.Parse("bad.hs", []byte(`var a = 5; a unknown_op a;`))
	require.Error(t, err)

	// A fresh compile of a script reusing the name "a" must succeed: if the
	// failed compile had leaked its local declaration, this would fail with
	// a duplicate-local error instead.
	_, err = p.Parse("ok.hs", []byte(`var a = 1; return;`))
	assert.NoError(t, err)
}

func TestCompileUnknownIdentifier(t *testing.T) {
	cat, reg, _ := newTestCatalog()
	st := symtab.New(reg, machine.Capacity, nil)
	p := compiler.New(cat, st)

	_, err := p.Parse("bad.hs", []byte(`sum add a b; return;`))
	assert.Error(t, err)
}

func TestCompileConstantFoldingSkipsRuntimeHandler(t *testing.T) {
	cat, reg, handlers := newTestCatalog()
	st := symtab.New(reg, machine.Capacity, nil)
	p := compiler.New(cat, st)

	// hAdd is deliberately never reached: folding resolves "add 2 3" to a
	// plain HSetImm at compile time (lang/compiler/compiler.go emitOpCall),
	// so this would pass even if hAdd's handler were never registered.
	c, err := p.Parse("fold.hs", []byte(`var c = 0; c add 2 3; return;`))
	require.NoError(t, err)

	w := machine.NewWorker(handlers, 0)
	require.NoError(t, w.Execute(c))
	assert.EqualValues(t, 5, machine.RegGet[int64](w.Registers(), 0))
}

func TestCompileReturnBindsOutputs(t *testing.T) {
	cat, reg, handlers := newTestCatalog()
	st := symtab.New(reg, machine.Capacity, nil)
	regInt := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}
	_, err := st.DeclareOutput("out", regInt)
	require.NoError(t, err)
	p := compiler.New(cat, st)

	c, err := p.Parse("ret.hs", []byte(`var a = 7; return a;`))
	require.NoError(t, err)

	w := machine.NewWorker(handlers, 0)
	require.NoError(t, w.Execute(c))
	assert.EqualValues(t, 7, machine.RegGet[int64](w.Registers(), 0))
}

func TestCompileBreakOutsideLoop(t *testing.T) {
	cat, reg, _ := newTestCatalog()
	st := symtab.New(reg, machine.Capacity, nil)
	p := compiler.New(cat, st)

	_, err := p.Parse("bad.hs", []byte(`break;`))
	assert.Error(t, err)
}

// TestCompileInlinesRegisteredFunctionAtEachCallSite exercises spec.md
// §4.2's "call (inlined body expansion)": "double" is registered once but
// called twice, each call site getting its own freshly compiled copy of
// the body bound to that call's own arguments — not a single shared
// subroutine with a return address.
func TestCompileInlinesRegisteredFunctionAtEachCallSite(t *testing.T) {
	cat, reg, handlers := newTestCatalog()
	cat.RegisterFunction("double", []string{"dst", "v"}, []byte(`dst add v v;`))

	st := symtab.New(reg, machine.Capacity, nil)
	p := compiler.New(cat, st)

	c, err := p.Parse("fn.hs", []byte(`
var a = 3;
var b = 0;
b double a;
var c = 0;
c double b;
return;
`))
	require.NoError(t, err)

	w := machine.NewWorker(handlers, 0)
	require.NoError(t, w.Execute(c))

	// a=0, b=8, c=16 (three int64 locals at 8-byte offsets).
	assert.EqualValues(t, 6, machine.RegGet[int64](w.Registers(), 8))
	assert.EqualValues(t, 12, machine.RegGet[int64](w.Registers(), 16))
}

func TestCompileFunctionCallArityMismatch(t *testing.T) {
	cat, reg, _ := newTestCatalog()
	cat.RegisterFunction("double", []string{"dst", "v"}, []byte(`dst add v v;`))
	st := symtab.New(reg, machine.Capacity, nil)
	p := compiler.New(cat, st)

	_, err := p.Parse("bad.hs", []byte(`var a = 3; var b = 0; b double a a;`))
	assert.Error(t, err)
}

// TestCompileFunctionRejectsSelfInlining proves a Function that inlines
// itself (directly or transitively) is rejected at compile time rather
// than hanging the compiler: with no call stack, nothing would ever stop
// the expansion (spec.md §3 "Container": one fixed-size frame).
func TestCompileFunctionRejectsSelfInlining(t *testing.T) {
	cat, reg, _ := newTestCatalog()
	cat.RegisterFunction("loopy", []string{"dst"}, []byte(`dst loopy;`))
	st := symtab.New(reg, machine.Capacity, nil)
	p := compiler.New(cat, st)

	_, err := p.Parse("bad.hs", []byte(`var a = 0; a loopy; return;`))
	assert.Error(t, err)
}
