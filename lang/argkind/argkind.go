// Package argkind implements the host value-kind lattice and overload
// compatibility scorer (spec.md §3 "Argument kind (ArgKind)" and §4.1 "Type
// Registry & Overload Resolver"). It is the bottom layer every other
// package in lang/ builds on: the symbol table stores ArgKinds, the catalog
// declares operation signatures in terms of ArgKinds, and the compiler
// resolves overloads by scoring a declared ArgKind against a supplied one.
package argkind

// BaseType is the opaque identity of a host type: a scalar, a pointer
// target, a tag, a label, or one of the three sentinels every Registry
// pre-declares.
type BaseType uint16

// Sentinel base types, pre-registered by every Registry (spec.md §3).
const (
	Null BaseType = iota
	Int
	Label

	firstUserBase // first id handed out by Registry.RegisterType
)

// Flag is a bit-flag describing the register-ness and pointer-ness of a
// value kind. Flags combine with a BaseType to form an ArgKind.
//
// Invariant (spec.md §3): FlagVar implies FlagRegister; FlagPtrEditable
// implies FlagPtr.
type Flag uint8

const (
	FlagNone Flag = 0

	regFlag         Flag = 1 << iota // register
	varBit
	ptrFlag
	ptrEditableBit

	// FlagRegister marks a value kind as living in a register (as opposed to
	// a plain compile-time constant).
	FlagRegister = regFlag
	// FlagVar marks a declared script-output register; implies FlagRegister.
	FlagVar = varBit | regFlag
	// FlagPtr marks a read-only pointer-to-host-object kind.
	FlagPtr = ptrFlag
	// FlagPtrEditable marks a writable pointer-to-host-object kind; implies
	// FlagPtr.
	FlagPtrEditable = ptrEditableBit | ptrFlag
)

// ArgKind is the (base-type, flags) pair describing a script value's shape
// (GLOSSARY).
type ArgKind struct {
	Base  BaseType
	Flags Flag
}

func (k ArgKind) IsRegister() bool    { return k.Flags&regFlag != 0 }
func (k ArgKind) IsVar() bool         { return k.Flags&varBit != 0 }
func (k ArgKind) IsPtr() bool         { return k.Flags&ptrFlag != 0 }
func (k ArgKind) IsPtrEditable() bool { return k.Flags&ptrEditableBit != 0 }

// typeInfo is what a Registry remembers about one registered host type.
type typeInfo struct {
	name string
	size int // in bytes, as stored in the register file
}

// Registry enumerates host types and answers ArgKind compatibility queries
// (spec.md §4.1). A Registry is built once during host init and frozen
// (by convention; nothing here or in lang/symtab prevents further
// registration).
type Registry struct {
	types []typeInfo // indexed by BaseType - firstUserBase
}

// NewRegistry returns a Registry with the three sentinel base types
// (Null, Int, Label) already registered.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterType declares a new host type of the given name and in-register
// size (bytes) and returns its plain (undecorated) ArgKind.
func (r *Registry) RegisterType(name string, size int) ArgKind {
	id := firstUserBase + BaseType(len(r.types))
	r.types = append(r.types, typeInfo{name: name, size: size})
	return ArgKind{Base: id}
}

// Decorate returns kind's base type combined with the given flags.
func (r *Registry) Decorate(kind ArgKind, flags Flag) ArgKind {
	return ArgKind{Base: kind.Base, Flags: flags}
}

// TypeName returns the registered display name of a base type, or one of
// the three built-in sentinel names.
func (r *Registry) TypeName(base BaseType) string {
	switch base {
	case Null:
		return "null"
	case Int:
		return "int"
	case Label:
		return "label"
	}
	idx := int(base - firstUserBase)
	if idx < 0 || idx >= len(r.types) {
		return "<unknown type>"
	}
	return r.types[idx].name
}

// Size returns the in-register byte size of a base type, as declared to
// RegisterType. Sentinel types have a fixed size of 8 (one machine word).
func (r *Registry) Size(base BaseType) int {
	switch base {
	case Null, Int, Label:
		return 8
	}
	idx := int(base - firstUserBase)
	if idx < 0 || idx >= len(r.types) {
		return 8
	}
	return r.types[idx].size
}

// Compat scores how well a supplied value kind v satisfies a declared
// operation-argument kind decl, per spec.md §3. Higher is better; 0 means
// incompatible. overloadOrdinal is the 0-based position of the candidate
// overload among its siblings, used only as a tiebreaker.
func (r *Registry) Compat(decl, v ArgKind, overloadOrdinal int) uint8 {
	if decl.IsVar() && decl != v {
		return 0
	}
	if decl.Base != v.Base {
		return 0
	}
	if decl.IsRegister() != v.IsRegister() {
		return 0
	}
	if decl.IsPtr() != v.IsPtr() {
		return 0
	}
	if decl.IsPtrEditable() && !v.IsPtrEditable() {
		return 0
	}

	score := 255
	if decl.IsPtrEditable() != v.IsPtrEditable() {
		score -= 128
	}
	if decl.IsVar() != v.IsVar() {
		score -= 64
	}
	penalty := overloadOrdinal
	if penalty > 8 {
		penalty = 8
	}
	score -= penalty
	if score < 0 {
		score = 0
	}
	return uint8(score)
}
