// Package catalog implements the operation catalog (spec.md §4.2): the
// mapping from an operation name to its overload set, and the machinery
// used by the compiler to select the best-scoring overload for a call.
package catalog

import (
	"github.com/dolthub/swiss"

	"github.com/just-dont/OpenXcom/lang/argkind"
)

// HandlerID is a small integer handle identifying a concrete VM runtime
// routine (spec.md §9 "Function-pointer dispatch with arbitrary
// immediates": "an opcode table of small integer handles indexing into the
// catalog" rather than a raw function pointer, for ASLR safety and
// bytecode serializability).
type HandlerID uint16

// Writer is the subset of the compiler's bytecode emitter a ParseHook or
// EmitExtra hook is allowed to use (spec.md §4.3 "permitted to emit
// bytecode directly via the writer"). It is implemented by
// lang/compiler.ParserWriter; declared here to avoid an import cycle
// between catalog and compiler.
type Writer interface {
	EmitHandler(h HandlerID)
	EmitRegOffset(offset int)
	EmitConstInt(v int64)
	EmitLabelFixup(name string)
}

// Arg is one resolved call argument: its declared-kind-compatible supplied
// kind, plus whichever of the three representations (register offset,
// constant, label name) applies.
type Arg struct {
	Kind       argkind.ArgKind
	IsConst    bool
	ConstInt   int64
	IsLabel    bool
	LabelName  string
	RegOffset  int
}

// ParseHook is invoked with the winning overload's resolved arguments. It
// may emit bytecode itself (returning handled=true) for operations needing
// variable-length immediates or label fixups, or return handled=false to
// let the compiler fall through to the default emitter (spec.md §4.3
// "Overload dispatch during compile").
type ParseHook func(w Writer, args []Arg) (handled bool, err error)

// EmitExtra, if set, is invoked after the default emitter has written the
// opcode handle and the overload's positional immediates, to append any
// additional immediates the operation needs.
type EmitExtra func(w Writer, args []Arg) error

// ConstFold, if set, evaluates a call at compile time when every argument
// is itself a compile-time constant (spec.md §4.3 "Constant folding"). It
// returns ok=false to decline folding this particular call even though all
// arguments are constant.
type ConstFold func(args []Arg) (result int64, ok bool)

// Overload is one alternative signature accepted by a named operation
// (spec.md §4.2 "a vector of alternative signatures").
type Overload struct {
	Signature []argkind.ArgKind
	Handler   HandlerID
	ParseHook ParseHook // optional
	EmitExtra EmitExtra // optional
	Fold      ConstFold // optional
}

// ProcDesc is the runtime descriptor of one operation name (GLOSSARY):
// its accepted overloads plus the uniform scoring rule used to pick among
// them.
type ProcDesc struct {
	Name      string
	Overloads []Overload
	// Score, if set, overrides the default per-argument compat scorer
	// (spec.md §4.2 "an overload-scorer (may be the default summed-compat
	// scorer)"). Most operations use the default.
	Score func(reg *argkind.Registry, decl, supplied argkind.ArgKind, ordinal int) uint8
}

func defaultScore(reg *argkind.Registry, decl, supplied argkind.ArgKind, ordinal int) uint8 {
	return reg.Compat(decl, supplied, ordinal)
}

// Function is a named, pre-parsed statement body the compiler inlines at
// every call site rather than invoking as a real subroutine (spec.md
// §4.2 "call (inlined body expansion)"): the VM has exactly one
// fixed-size frame and no call stack (spec.md §3 "Container", §4.4), so
// there is no return address to manage or save/restore — each call site
// gets its own freshly compiled copy of Body instead, with Params bound
// to that call site's arguments.
type Function struct {
	Name   string
	Params []string
	Body   []byte // hookscript statement source, reparsed at every call site
}

// Catalog maps operation name to its ProcDesc (spec.md §4.2), plus the
// registered inlinable Functions sharing the same call-site grammar. Built
// during host init and frozen before any parse (spec.md §3 "Lifecycle").
type Catalog struct {
	procs *swiss.Map[string, *ProcDesc]
	funcs *swiss.Map[string, *Function]
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		procs: swiss.NewMap[string, *ProcDesc](16),
		funcs: swiss.NewMap[string, *Function](4),
	}
}

// Register adds or replaces the ProcDesc for name (spec.md §6
// "parser.register_op").
func (c *Catalog) Register(desc *ProcDesc) {
	if desc.Score == nil {
		desc.Score = defaultScore
	}
	c.procs.Put(desc.Name, desc)
}

// Lookup returns the ProcDesc registered under name, if any.
func (c *Catalog) Lookup(name string) (*ProcDesc, bool) {
	return c.procs.Get(name)
}

// RegisterFunction adds a named, inlinable statement body under name,
// sharing the same call-site grammar as a ProcDesc ("NAME OP_NAME ARG…
// ;", spec.md §4.3): params are bound positionally to the call's
// arguments (its first element, conventionally the destination, included)
// for the duration of that one call site's inlining. body is not parsed
// here — catalog has no parser, to avoid an import cycle with
// lang/compiler — so a typo inside body only surfaces as a diagnostic at
// the first call site that actually inlines it.
func (c *Catalog) RegisterFunction(name string, params []string, body []byte) {
	c.funcs.Put(name, &Function{Name: name, Params: params, Body: body})
}

// LookupFunction returns the Function registered under name, if any. The
// compiler checks this before treating name as a ProcDesc's operation
// name, so a Function and a ProcDesc must not share a name.
func (c *Catalog) LookupFunction(name string) (*Function, bool) {
	return c.funcs.Get(name)
}

// Resolution is the outcome of resolving a call's overload set against its
// supplied argument kinds (spec.md §4.1 "Overload Resolution").
type Resolution struct {
	Overload *Overload
	Ordinal  int
	Score    int
}

// Resolve implements spec.md §4.1's overload resolution algorithm: an
// overload is accepted iff every positional argument's compat score is
// > 0; among accepted overloads the one with the highest summed score
// wins. The overload_ordinal tiebreak (earlier declaration wins) is baked
// into the default per-argument compat score itself (it subtracts
// min(ordinal, 8) from 255), so two overloads almost never tie exactly;
// when they do regardless — most likely because a host-supplied Score
// ignores ordinal — the call is rejected as ambiguous rather than silently
// picking one.
//
// It returns ErrNoMatchingOverload if no overload accepts, or
// ErrAmbiguousOverload if two or more tie at the top score.
func (desc *ProcDesc) Resolve(reg *argkind.Registry, supplied []argkind.ArgKind) (Resolution, error) {
	best := Resolution{Score: -1}
	tied := false

candidates:
	for ord, ov := range desc.Overloads {
		if len(ov.Signature) != len(supplied) {
			continue
		}
		total := 0
		for i, declKind := range ov.Signature {
			s := desc.Score(reg, declKind, supplied[i], ord)
			if s == 0 {
				continue candidates
			}
			total += int(s)
		}
		switch {
		case total > best.Score:
			best = Resolution{Overload: &desc.Overloads[ord], Ordinal: ord, Score: total}
			tied = false
		case total == best.Score:
			tied = true
		}
	}

	if best.Overload == nil {
		return Resolution{}, ErrNoMatchingOverload
	}
	if tied {
		return Resolution{}, ErrAmbiguousOverload
	}
	return best, nil
}

var (
	ErrNoMatchingOverload = errNoMatchingOverload{}
	ErrAmbiguousOverload  = errAmbiguousOverload{}
)

type errNoMatchingOverload struct{}

func (errNoMatchingOverload) Error() string { return "no matching overload" }

type errAmbiguousOverload struct{}

func (errAmbiguousOverload) Error() string { return "ambiguous overload" }
