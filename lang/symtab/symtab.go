// Package symtab implements the per-parser symbol table (spec.md §3
// "SymbolTable", §4.3 "Symbol resolution"): interned names, registered
// types, declared output/input registers, named constants, and the scoped
// local variables live during a single compile. The scope-kind enum below
// is grounded on the teacher's resolver.Scope, simplified to the bindings
// this grammar actually has (no closures, no cells, no free variables: the
// VM has exactly one fixed-size frame, spec.md §3 "Container").
package symtab

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/just-dont/OpenXcom/lang/argkind"
)

// Scope indicates where a resolved identifier's binding comes from (spec.md
// §4.3 "Symbol resolution at each statement").
type Scope uint8

const (
	Undefined Scope = iota
	Local
	Const
	Output
	Input
	GlobalRef // a global shared ref (spec.md §4.3: "then in global shared refs")
)

func (s Scope) String() string {
	switch s {
	case Local:
		return "local"
	case Const:
		return "const"
	case Output:
		return "output"
	case Input:
		return "input"
	case GlobalRef:
		return "global"
	default:
		return "undefined"
	}
}

// Binding is what Lookup returns for a resolved identifier.
type Binding struct {
	Scope  Scope
	Kind   argkind.ArgKind
	Offset int // register-file byte offset, valid for Local/Output/Input
	Const  ConstValue
}

// ConstValue is a named compile-time constant (spec.md §3 "named constants
// (name → typed value)").
type ConstValue struct {
	Kind  argkind.ArgKind
	Int   int64
	IsInt bool // true for plain int constants; false reserved for future constant kinds
}

// Local is one declared "var" binding, bump-allocated from the end of the
// input region (spec.md §4.3 "Register allocation").
type Local struct {
	Name   string
	Kind   argkind.ArgKind
	Offset int
}

// scope is one block's worth of locals, released in full when the block
// ends (spec.md §4.3 "When a block ends, its locals are reclaimed"; §5
// "every acquired symbol-table scope during compile is released on all
// exit paths").
type scope struct {
	locals []Local
}

// GlobalRefResolver looks up an identifier in the host's global shared
// registry (spec.md §4.3's third resolution step). It returns ok=false if
// the name is not a global ref.
type GlobalRefResolver func(name string) (kind argkind.ArgKind, offset int, ok bool)

// SymbolTable is the per-parser-instance symbol table (spec.md §3).
type SymbolTable struct {
	registry *argkind.Registry

	Outputs []Local // declared script outputs, ordered, offsets 0..
	Inputs  []Local // declared inputs, following the outputs

	names     map[string]bool // interned identifier names seen so far
	consts    *swiss.Map[string, ConstValue]
	types     *swiss.Map[string, argkind.ArgKind]
	resolveGlobal GlobalRefResolver

	scopes    []*scope
	nextLocal int // bump allocator cursor, reset to len(outputs)+len(inputs) region end

	maxRegisterBytes int
}

// New returns an empty SymbolTable bound to registry, with a byte-size cap
// for the register file (spec.md §4.3 "RegisterFileOverflow").
func New(registry *argkind.Registry, maxRegisterBytes int, resolveGlobal GlobalRefResolver) *SymbolTable {
	if resolveGlobal == nil {
		resolveGlobal = func(string) (argkind.ArgKind, int, bool) { return argkind.ArgKind{}, 0, false }
	}
	return &SymbolTable{
		registry:         registry,
		names:            make(map[string]bool),
		consts:           swiss.NewMap[string, ConstValue](8),
		types:            swiss.NewMap[string, argkind.ArgKind](8),
		resolveGlobal:    resolveGlobal,
		maxRegisterBytes: maxRegisterBytes,
	}
}

// Intern records name as seen during this parser's lifetime. Interning has
// no effect on lookup; it exists so diagnostics and the compiler can share
// stable string storage for the parser's lifetime (spec.md §3).
func (st *SymbolTable) Intern(name string) string {
	st.names[name] = true
	return name
}

// DeclareOutput declares one of up to 4 script output registers (spec.md
// §3 "declared output registers (ordered list, up to 4)").
func (st *SymbolTable) DeclareOutput(name string, kind argkind.ArgKind) (Local, error) {
	if len(st.Outputs) >= 4 {
		return Local{}, fmt.Errorf("at most 4 output registers may be declared")
	}
	offset := 0
	for _, o := range st.Outputs {
		offset += st.slotSize(o.Kind)
	}
	l := Local{Name: name, Kind: kind, Offset: offset}
	st.Outputs = append(st.Outputs, l)
	st.nextLocal = offset + st.slotSize(kind)
	return l, nil
}

// slotSize is the register-file space a binding of kind takes: a pointer
// kind always takes one full 8-byte word, whatever its base type's size.
func (st *SymbolTable) slotSize(kind argkind.ArgKind) int {
	if kind.IsPtr() {
		return 8
	}
	return st.registry.Size(kind.Base)
}

// DeclareInput declares one script input register, placed after the
// outputs and all previously declared inputs (spec.md §4.3 "Declared
// inputs follow").
func (st *SymbolTable) DeclareInput(name string, kind argkind.ArgKind) Local {
	offset := st.nextLocal
	l := Local{Name: name, Kind: kind, Offset: offset}
	st.Inputs = append(st.Inputs, l)
	st.nextLocal = offset + st.slotSize(kind)
	return l
}

// AddConst registers a named compile-time constant, visible to every
// script compiled against this parser (spec.md §6 "parser.add_const").
func (st *SymbolTable) AddConst(name string, c ConstValue) {
	st.consts.Put(name, c)
}

// RegisterType records name as the spelling used in scripts for an ArgKind
// base type (spec.md §4.1 "register_type").
func (st *SymbolTable) RegisterType(name string, kind argkind.ArgKind) {
	st.types.Put(name, kind)
}

// LookupType resolves a script-visible type name.
func (st *SymbolTable) LookupType(name string) (argkind.ArgKind, bool) {
	return st.types.Get(name)
}

// PushScope opens a new local-variable scope (entering a block).
func (st *SymbolTable) PushScope() {
	st.scopes = append(st.scopes, &scope{})
}

// PopScope closes the innermost scope, reclaiming its locals' register
// space (spec.md §4.3 "When a block ends, its locals are reclaimed").
func (st *SymbolTable) PopScope() {
	n := len(st.scopes)
	if n == 0 {
		return
	}
	top := st.scopes[n-1]
	if len(top.locals) > 0 {
		st.nextLocal = top.locals[0].Offset
	}
	st.scopes = st.scopes[:n-1]
}

// DeclareLocal bump-allocates a new "var" local in the innermost open scope.
// It returns an error (DuplicateLocal, the caller attaches the diag.Kind)
// if name is already declared in that same scope.
func (st *SymbolTable) DeclareLocal(name string, kind argkind.ArgKind) (Local, error) {
	if len(st.scopes) == 0 {
		st.PushScope()
	}
	top := st.scopes[len(st.scopes)-1]
	for _, l := range top.locals {
		if l.Name == name {
			return Local{}, fmt.Errorf("duplicate local %q", name)
		}
	}

	size := st.slotSize(kind)
	offset := st.nextLocal
	if offset+size > st.maxRegisterBytes {
		return Local{}, fmt.Errorf("register file overflow declaring %q", name)
	}
	l := Local{Name: name, Kind: kind, Offset: offset}
	top.locals = append(top.locals, l)
	st.nextLocal = offset + size
	return l, nil
}

// Lookup resolves name following spec.md §4.3's chain: locals (innermost
// scope first), then parser constants, then global shared refs. Declared
// outputs and inputs are visible like locals (they occupy the same
// register space and share their lifetime with the whole script).
func (st *SymbolTable) Lookup(name string) (Binding, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		for j := len(st.scopes[i].locals) - 1; j >= 0; j-- {
			l := st.scopes[i].locals[j]
			if l.Name == name {
				return Binding{Scope: Local, Kind: l.Kind, Offset: l.Offset}, true
			}
		}
	}
	for _, o := range st.Outputs {
		if o.Name == name {
			return Binding{Scope: Output, Kind: o.Kind, Offset: o.Offset}, true
		}
	}
	for _, in := range st.Inputs {
		if in.Name == name {
			return Binding{Scope: Input, Kind: in.Kind, Offset: in.Offset}, true
		}
	}
	if c, ok := st.consts.Get(name); ok {
		return Binding{Scope: Const, Kind: c.Kind, Const: c}, true
	}
	if kind, offset, ok := st.resolveGlobal(name); ok {
		return Binding{Scope: GlobalRef, Kind: kind, Offset: offset}, true
	}
	return Binding{}, false
}

// Checkpoint captures enough of the table's mutable state to restore it
// after a failed compile (spec.md §8 P5 "Compile is transactional").
type Checkpoint struct {
	outputs   int
	inputs    int
	nextLocal int
	scopes    int
}

// Snapshot returns a Checkpoint of the table's current state. Only the
// scope/local bookkeeping mutated during a single Parse call needs
// snapshotting; types and consts are only ever added between parses by the
// host, never during a script's own compile.
func (st *SymbolTable) Snapshot() Checkpoint {
	return Checkpoint{
		outputs:   len(st.Outputs),
		inputs:    len(st.Inputs),
		nextLocal: st.nextLocal,
		scopes:    len(st.scopes),
	}
}

// Restore rolls the table back to a previously taken Checkpoint, undoing
// any output/input declarations and local scopes opened since.
func (st *SymbolTable) Restore(cp Checkpoint) {
	st.Outputs = st.Outputs[:cp.outputs]
	st.Inputs = st.Inputs[:cp.inputs]
	st.nextLocal = cp.nextLocal
	st.scopes = st.scopes[:cp.scopes]
}

// MaxRegisterBytes returns the compile-time cap on total register-file
// bytes (spec.md §4.3).
func (st *SymbolTable) MaxRegisterBytes() int { return st.maxRegisterBytes }

// Registry returns the type registry this table resolves ArgKinds against.
func (st *SymbolTable) Registry() *argkind.Registry { return st.registry }
