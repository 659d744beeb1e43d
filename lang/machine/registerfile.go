// Package machine implements the register-based virtual machine that
// executes compiled Containers (spec.md §4.4 "Virtual Machine (Worker)").
// Much of its dispatch-loop shape — a flat program counter, a watchdog step
// counter, and a switch/table dispatch that decodes one instruction's
// immediates per iteration — is adapted from the teacher's
// lang/machine.run, restructured from a stack machine to a register
// machine per spec.md §4.4.
package machine

import (
	"fmt"
	"unsafe"
)

const (
	// WordSize is the machine-word size used to align and size register
	// slots (spec.md §3 "8-byte-aligned").
	WordSize = 8
	// NumSlots is the register file's capacity, expressed in machine words
	// (spec.md §3: "capacity equal to 64 machine-word sizes is sufficient").
	NumSlots = 64
	// Capacity is the register file's total byte capacity.
	Capacity = NumSlots * WordSize
)

// RegisterFile is a Worker's fixed-capacity, 8-byte-aligned address space
// (spec.md §3 "RegisterFile"). Plain, trivially-copyable host values are
// stored inline in the byte buffer; host pointer values (ArgKind flags Ptr
// or PtrEditable) are stored in a parallel pointer-slot array instead of
// being reinterpreted from raw bytes, so the Go garbage collector keeps
// tracking them (spec.md §9 "Pointer-into-register-file aliasing" — this is
// this reimplementation's answer to that design note).
type RegisterFile struct {
	bytes [Capacity]byte
	ptrs  [NumSlots]unsafe.Pointer
}

// Reset zeroes the entire register file, as required before binding a new
// set of script inputs (spec.md §4.4 "updateBase... zeroes the register
// file").
func (rf *RegisterFile) Reset() {
	rf.bytes = [Capacity]byte{}
	for i := range rf.ptrs {
		rf.ptrs[i] = nil
	}
}

func slot(offset int) int { return offset / WordSize }

// RegGet reinterprets the bytes at offset as a T. T must be a plain,
// trivially-copyable type (spec.md §3); the caller (generated by the
// lang/scriptapi façade, or a catalog-registered handler) is responsible
// for matching T's size to the ArgKind's declared size.
func RegGet[T any](rf *RegisterFile, offset int) T {
	var zero T
	checkBounds(offset, int(unsafe.Sizeof(zero)))
	return *(*T)(unsafe.Pointer(&rf.bytes[offset]))
}

// RegSet writes v into the bytes at offset, per RegGet's constraints.
func RegSet[T any](rf *RegisterFile, offset int, v T) {
	checkBounds(offset, int(unsafe.Sizeof(v)))
	*(*T)(unsafe.Pointer(&rf.bytes[offset])) = v
}

// RegGetPtr returns the pointer stored in the pointer-slot for offset, or
// nil if none was set (spec.md §3 "pointers are always register-sized").
func RegGetPtr[T any](rf *RegisterFile, offset int) *T {
	p := rf.ptrs[slot(offset)]
	if p == nil {
		return nil
	}
	return (*T)(p)
}

// RegSetPtr stores a host pointer in the pointer-slot for offset.
func RegSetPtr[T any](rf *RegisterFile, offset int, v *T) {
	rf.ptrs[slot(offset)] = unsafe.Pointer(v)
}

func checkBounds(offset, size int) {
	if offset < 0 || offset+size > Capacity {
		panic(fmt.Sprintf("machine: register offset %d+%d exceeds capacity %d", offset, size, Capacity))
	}
}
