// Package scriptapi provides the fixed-arity generic façades a host uses to
// embed the engine (spec.md §9 "Template-heavy signature erasure": the
// original's variadic template parser is expressed here as a family of
// generic types of increasing arity, since Go generics are not variadic).
// Each ParserN wraps one type-erased compiler.ParserWriter plus the
// machine.HandlerTable needed to run what it compiles, and exposes a typed
// Compile/Run pair so host code never touches register offsets directly.
//
// The arity is capped at 4 because spec.md's own worked examples never
// need more than two inputs; this leaves headroom without open-ended
// variadics.
package scriptapi

import (
	"github.com/just-dont/OpenXcom/lang/argkind"
	"github.com/just-dont/OpenXcom/lang/catalog"
	"github.com/just-dont/OpenXcom/lang/compiler"
	"github.com/just-dont/OpenXcom/lang/events"
	"github.com/just-dont/OpenXcom/lang/machine"
	"github.com/just-dont/OpenXcom/lang/symtab"
)

// base holds the state every ParserN shares: the catalog and symbol table a
// script compiles against, and the handler table its compiled Containers
// run against.
type base struct {
	st       *symtab.SymbolTable
	pw       *compiler.ParserWriter
	handlers *machine.HandlerTable
	budget   uint64
}

func newBase(cat *catalog.Catalog, reg *argkind.Registry, maxRegisterBytes int, handlers *machine.HandlerTable, budget uint64, resolveGlobal symtab.GlobalRefResolver) base {
	st := symtab.New(reg, maxRegisterBytes, resolveGlobal)
	return base{st: st, pw: compiler.New(cat, st), handlers: handlers, budget: budget}
}

// SymbolTable exposes the underlying symbol table, so a host can call
// AddConst/RegisterType before compiling any script (spec.md §6
// "parser.add_const", "register_type").
func (b *base) SymbolTable() *symtab.SymbolTable { return b.st }

// Compile parses src (named filename for diagnostics) into a runnable
// Container.
func (b *base) Compile(filename string, src []byte) (*machine.Container, error) {
	return b.pw.Parse(filename, src)
}

func (b *base) newWorker() *machine.Worker {
	return machine.NewWorker(b.handlers, b.budget)
}

// Parser0 declares a script shape with no inputs and a single output of
// type Out.
type Parser0[Out any] struct {
	base
	outOffset int
}

// NewParser0 declares the single output register (kind outKind, whose
// in-register representation must match Out's size) and returns a ready
// Parser0.
func NewParser0[Out any](cat *catalog.Catalog, reg *argkind.Registry, outKind argkind.ArgKind, maxRegisterBytes int, handlers *machine.HandlerTable, budget uint64) (*Parser0[Out], error) {
	b := newBase(cat, reg, maxRegisterBytes, handlers, budget, nil)
	local, err := b.st.DeclareOutput("out", outKind)
	if err != nil {
		return nil, err
	}
	return &Parser0[Out]{base: b, outOffset: local.Offset}, nil
}

// Run executes c against a fresh Worker and returns its output register.
func (p *Parser0[Out]) Run(c *machine.Container) (Out, error) {
	w := p.newWorker()
	if err := w.Execute(c); err != nil {
		var zero Out
		return zero, err
	}
	return machine.RegGet[Out](w.Registers(), p.outOffset), nil
}

// RunEvents executes c as the main script of chain (spec.md §4.5): every
// negative-priority event first, then c, then every positive-priority
// event, and returns the output register once the whole chain has run.
// Parser0 declares no inputs, so there is nothing for the chain's
// resets to restore between scripts.
func (p *Parser0[Out]) RunEvents(c *machine.Container, chain *events.Chain) (Out, error) {
	w := p.newWorker()
	if err := chain.Run(w, c, func() {}); err != nil {
		var zero Out
		return zero, err
	}
	return machine.RegGet[Out](w.Registers(), p.outOffset), nil
}

// Parser1 additionally declares one input register of type I1.
type Parser1[Out, I1 any] struct {
	base
	outOffset int
	in1Offset int
}

func NewParser1[Out, I1 any](cat *catalog.Catalog, reg *argkind.Registry, outKind, in1Kind argkind.ArgKind, maxRegisterBytes int, handlers *machine.HandlerTable, budget uint64) (*Parser1[Out, I1], error) {
	b := newBase(cat, reg, maxRegisterBytes, handlers, budget, nil)
	out, err := b.st.DeclareOutput("out", outKind)
	if err != nil {
		return nil, err
	}
	in1 := b.st.DeclareInput("in1", in1Kind)
	return &Parser1[Out, I1]{base: b, outOffset: out.Offset, in1Offset: in1.Offset}, nil
}

// Run zeroes the register file (spec.md §4.4 "updateBase<Output>(args…)
// zeroes the register file"), binds in1 at its declared offset, runs c,
// and returns the output register's value.
func (p *Parser1[Out, I1]) Run(c *machine.Container, in1 I1) (Out, error) {
	w := p.newWorker()
	machine.RegSet(w.Registers(), p.in1Offset, in1)
	if err := w.Execute(c); err != nil {
		var zero Out
		return zero, err
	}
	return machine.RegGet[Out](w.Registers(), p.outOffset), nil
}

// RunEvents executes c as the main script of chain, with in1 reset into
// its declared register ahead of every script the chain runs — before-
// events, c itself, and after-events alike (spec.md §4.5 "for each
// before-event: reset read-only inputs, run").
func (p *Parser1[Out, I1]) RunEvents(c *machine.Container, in1 I1, chain *events.Chain) (Out, error) {
	w := p.newWorker()
	resetInputs := func() { machine.RegSet(w.Registers(), p.in1Offset, in1) }
	if err := chain.Run(w, c, resetInputs); err != nil {
		var zero Out
		return zero, err
	}
	return machine.RegGet[Out](w.Registers(), p.outOffset), nil
}

// Parser2 declares two input registers.
type Parser2[Out, I1, I2 any] struct {
	base
	outOffset, in1Offset, in2Offset int
}

func NewParser2[Out, I1, I2 any](cat *catalog.Catalog, reg *argkind.Registry, outKind, in1Kind, in2Kind argkind.ArgKind, maxRegisterBytes int, handlers *machine.HandlerTable, budget uint64) (*Parser2[Out, I1, I2], error) {
	b := newBase(cat, reg, maxRegisterBytes, handlers, budget, nil)
	out, err := b.st.DeclareOutput("out", outKind)
	if err != nil {
		return nil, err
	}
	in1 := b.st.DeclareInput("in1", in1Kind)
	in2 := b.st.DeclareInput("in2", in2Kind)
	return &Parser2[Out, I1, I2]{base: b, outOffset: out.Offset, in1Offset: in1.Offset, in2Offset: in2.Offset}, nil
}

func (p *Parser2[Out, I1, I2]) Run(c *machine.Container, in1 I1, in2 I2) (Out, error) {
	w := p.newWorker()
	machine.RegSet(w.Registers(), p.in1Offset, in1)
	machine.RegSet(w.Registers(), p.in2Offset, in2)
	if err := w.Execute(c); err != nil {
		var zero Out
		return zero, err
	}
	return machine.RegGet[Out](w.Registers(), p.outOffset), nil
}

// Parser3 declares three input registers.
type Parser3[Out, I1, I2, I3 any] struct {
	base
	outOffset, in1Offset, in2Offset, in3Offset int
}

func NewParser3[Out, I1, I2, I3 any](cat *catalog.Catalog, reg *argkind.Registry, outKind, in1Kind, in2Kind, in3Kind argkind.ArgKind, maxRegisterBytes int, handlers *machine.HandlerTable, budget uint64) (*Parser3[Out, I1, I2, I3], error) {
	b := newBase(cat, reg, maxRegisterBytes, handlers, budget, nil)
	out, err := b.st.DeclareOutput("out", outKind)
	if err != nil {
		return nil, err
	}
	in1 := b.st.DeclareInput("in1", in1Kind)
	in2 := b.st.DeclareInput("in2", in2Kind)
	in3 := b.st.DeclareInput("in3", in3Kind)
	return &Parser3[Out, I1, I2, I3]{base: b, outOffset: out.Offset, in1Offset: in1.Offset, in2Offset: in2.Offset, in3Offset: in3.Offset}, nil
}

func (p *Parser3[Out, I1, I2, I3]) Run(c *machine.Container, in1 I1, in2 I2, in3 I3) (Out, error) {
	w := p.newWorker()
	machine.RegSet(w.Registers(), p.in1Offset, in1)
	machine.RegSet(w.Registers(), p.in2Offset, in2)
	machine.RegSet(w.Registers(), p.in3Offset, in3)
	if err := w.Execute(c); err != nil {
		var zero Out
		return zero, err
	}
	return machine.RegGet[Out](w.Registers(), p.outOffset), nil
}

// BlitParser declares the six fixed inputs of spec.md §4.4's blit variant:
// a read-only source pixel pointer, an editable destination pixel
// pointer, and four plain ints (x, y, shade, a half-transform flag). It
// compiles once per script but, unlike the general ParserN family, runs
// through a cached machine.BlitWorker that reuses the same Container for
// every pixel rather than constructing a fresh Worker per call.
type BlitParser struct {
	base
	layout machine.BlitLayout
}

// NewBlitParser declares the blit variant's fixed input layout. srcKind
// and dstKind are the host's pixel pointer kinds (srcKind read-only,
// dstKind editable per spec.md §4.4 "the script itself... through the
// editable dst pointer").
func NewBlitParser(cat *catalog.Catalog, reg *argkind.Registry, srcKind, dstKind argkind.ArgKind, maxRegisterBytes int, handlers *machine.HandlerTable, budget uint64) (*BlitParser, error) {
	b := newBase(cat, reg, maxRegisterBytes, handlers, budget, nil)
	regInt := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}

	src := b.st.DeclareInput("src", srcKind)
	dst := b.st.DeclareInput("dst", dstKind)
	x := b.st.DeclareInput("x", regInt)
	y := b.st.DeclareInput("y", regInt)
	shade := b.st.DeclareInput("shade", regInt)
	half := b.st.DeclareInput("half", regInt)

	return &BlitParser{
		base: b,
		layout: machine.BlitLayout{
			Src: src.Offset, Dst: dst.Offset,
			X: x.Offset, Y: y.Offset,
			Shade: shade.Offset, Half: half.Offset,
		},
	}, nil
}

// NewWorker returns a BlitWorker caching c against p's declared layout, fit
// for repeated per-pixel ExecuteBlit calls over a single blit operation
// (spec.md §4.4 "caches one Container pointer ... reused for every
// pixel").
func (p *BlitParser) NewWorker(c *machine.Container) *machine.BlitWorker {
	return machine.NewBlitWorker(p.handlers, p.budget, &machine.BlitContainer{Container: c, Layout: p.layout})
}

// Parser4 declares four input registers — the widest façade this engine
// offers (spec.md's worked examples never need more than two).
type Parser4[Out, I1, I2, I3, I4 any] struct {
	base
	outOffset, in1Offset, in2Offset, in3Offset, in4Offset int
}

func NewParser4[Out, I1, I2, I3, I4 any](cat *catalog.Catalog, reg *argkind.Registry, outKind, in1Kind, in2Kind, in3Kind, in4Kind argkind.ArgKind, maxRegisterBytes int, handlers *machine.HandlerTable, budget uint64) (*Parser4[Out, I1, I2, I3, I4], error) {
	b := newBase(cat, reg, maxRegisterBytes, handlers, budget, nil)
	out, err := b.st.DeclareOutput("out", outKind)
	if err != nil {
		return nil, err
	}
	in1 := b.st.DeclareInput("in1", in1Kind)
	in2 := b.st.DeclareInput("in2", in2Kind)
	in3 := b.st.DeclareInput("in3", in3Kind)
	in4 := b.st.DeclareInput("in4", in4Kind)
	return &Parser4[Out, I1, I2, I3, I4]{base: b, outOffset: out.Offset, in1Offset: in1.Offset, in2Offset: in2.Offset, in3Offset: in3.Offset, in4Offset: in4.Offset}, nil
}

func (p *Parser4[Out, I1, I2, I3, I4]) Run(c *machine.Container, in1 I1, in2 I2, in3 I3, in4 I4) (Out, error) {
	w := p.newWorker()
	machine.RegSet(w.Registers(), p.in1Offset, in1)
	machine.RegSet(w.Registers(), p.in2Offset, in2)
	machine.RegSet(w.Registers(), p.in3Offset, in3)
	machine.RegSet(w.Registers(), p.in4Offset, in4)
	if err := w.Execute(c); err != nil {
		var zero Out
		return zero, err
	}
	return machine.RegGet[Out](w.Registers(), p.outOffset), nil
}
