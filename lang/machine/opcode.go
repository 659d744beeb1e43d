package machine

import (
	"encoding/binary"

	"github.com/just-dont/OpenXcom/lang/catalog"
)

// Signal is a handler's verdict for what the dispatch loop should do next
// (spec.md §4.4's "match r: Continue/End/Error").
type Signal uint8

const (
	Continue Signal = iota
	End
	Error
)

// Handler ids reserved for the intrinsics the compiler emits directly: the
// two jumps behind if/else/loop/break/continue, and the SETIMM/COPY
// register moves behind "var", "return" and constant folding (see DESIGN.md's
// lang/compiler entry: label fixups need compile-time bookkeeping a
// generic catalog ParseHook does not carry, so these bypass the catalog).
// Catalog-registered operations (including the "return" pseudo-operation)
// must use handler ids >= FirstUserHandler.
const (
	HJump     catalog.HandlerID = 0 // JMP<addr4>          -   unconditional jump
	HCondJump catalog.HandlerID = 1 // CJMP<addr4><reg2>   -   jump if register == 0
	HSetImm   catalog.HandlerID = 2 // SETIMM<reg2><int8>  -   write a compile-time constant into a register
	HCopy     catalog.HandlerID = 3 // COPY<reg2><reg2>    -   copy one register's word into another

	FirstUserHandler catalog.HandlerID = 16
)

// HandlerFunc is the runtime routine behind one HandlerID (spec.md §4.4
// "Each handler reads its own immediates from code + pc and advances pc
// itself"). code is the full bytecode buffer; *pc points just past the
// handler id, at the start of this instruction's immediates.
type HandlerFunc func(w *Worker, code []byte, pc *uint32) (Signal, error)

// HandlerTable maps HandlerID to the routine that implements it. It is
// built by the host from the same catalog used at compile time, and
// becomes immutable once the host finishes init (spec.md §5 "Shared
// resources").
type HandlerTable struct {
	fns map[catalog.HandlerID]HandlerFunc
}

// NewHandlerTable returns a table pre-populated with the JMP/CJMP/SETIMM/COPY
// intrinsics.
func NewHandlerTable() *HandlerTable {
	t := &HandlerTable{fns: make(map[catalog.HandlerID]HandlerFunc)}
	t.fns[HJump] = jumpHandler
	t.fns[HCondJump] = condJumpHandler
	t.fns[HSetImm] = setImmHandler
	t.fns[HCopy] = copyHandler
	return t
}

// Register binds id to fn. Hosts call this once per catalog.Overload.Handler
// they registered, during init, before freezing.
func (t *HandlerTable) Register(id catalog.HandlerID, fn HandlerFunc) {
	t.fns[id] = fn
}

func (t *HandlerTable) lookup(id catalog.HandlerID) (HandlerFunc, bool) {
	fn, ok := t.fns[id]
	return fn, ok
}

// ReadAddr reads a 4-byte little-endian jump target and advances *pc past
// it.
func ReadAddr(code []byte, pc *uint32) uint32 {
	v := binary.LittleEndian.Uint32(code[*pc:])
	*pc += 4
	return v
}

// ReadRegOffset reads a 2-byte little-endian register offset and advances
// *pc past it.
func ReadRegOffset(code []byte, pc *uint32) int {
	v := binary.LittleEndian.Uint16(code[*pc:])
	*pc += 2
	return int(v)
}

// ReadConstInt reads an 8-byte little-endian constant and advances *pc
// past it.
func ReadConstInt(code []byte, pc *uint32) int64 {
	v := binary.LittleEndian.Uint64(code[*pc:])
	*pc += 8
	return int64(v)
}

// ReadHandlerID reads the 4-byte handler handle at the front of the next
// instruction and advances *pc past it.
func ReadHandlerID(code []byte, pc *uint32) catalog.HandlerID {
	v := binary.LittleEndian.Uint32(code[*pc:])
	*pc += 4
	return catalog.HandlerID(v)
}

func jumpHandler(w *Worker, code []byte, pc *uint32) (Signal, error) {
	target := ReadAddr(code, pc)
	*pc = target
	return Continue, nil
}

func condJumpHandler(w *Worker, code []byte, pc *uint32) (Signal, error) {
	target := ReadAddr(code, pc)
	cond := ReadRegOffset(code, pc)
	if RegGet[int64](&w.rf, cond) == 0 {
		*pc = target
	}
	return Continue, nil
}

// setImmHandler backs the compiler's "var x = <int literal>" form (and a
// constant-folded call's result): like the jumps and COPY it is emitted
// directly by the compiler rather than through the catalog (see DESIGN.md's
// lang/compiler entry), since a local declaration is structural, not a
// domain operation.
func setImmHandler(w *Worker, code []byte, pc *uint32) (Signal, error) {
	dst := ReadRegOffset(code, pc)
	v := ReadConstInt(code, pc)
	RegSet(&w.rf, dst, v)
	return Continue, nil
}

// copyHandler backs "var x = <existing identifier>": a bitwise word copy
// between two registers of the same declared kind.
func copyHandler(w *Worker, code []byte, pc *uint32) (Signal, error) {
	dst := ReadRegOffset(code, pc)
	src := ReadRegOffset(code, pc)
	RegSet(&w.rf, dst, RegGet[int64](&w.rf, src))
	return Continue, nil
}
