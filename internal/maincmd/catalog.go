package maincmd

import (
	"github.com/just-dont/OpenXcom/lang/argkind"
	"github.com/just-dont/OpenXcom/lang/catalog"
	"github.com/just-dont/OpenXcom/lang/machine"
)

// demo operation handler ids, for the CLI's built-in catalog only. A real
// host wires its own domain operations starting at machine.FirstUserHandler
// (spec.md §9); this set exists so `hookscript compile`/`hookscript run` can
// exercise scripts without requiring a host.
const (
	hReturn catalog.HandlerID = machine.FirstUserHandler + iota
	hAdd
	hSub
	hMul
	hGt
	hLt
	hLe
	hEq
	hSetReg
	hSetConst
)

// demoCatalog returns the small arithmetic/comparison catalog the compile
// and run commands use to exercise scripts with no host attached: "return",
// "set" (register or constant source), and int add/sub/mul/gt/lt/le/eq, all
// of the fixed-arity (dst, lhs, rhs Int register) shape. The CLI declares no
// script outputs or inputs, so a script works on its own "var" locals, and
// the binary operations accept register operands only, not literals.
func demoCatalog() (*catalog.Catalog, *argkind.Registry, *machine.HandlerTable) {
	reg := argkind.NewRegistry()
	regInt := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}
	constInt := argkind.ArgKind{Base: argkind.Int}

	cat := catalog.New()
	cat.Register(&catalog.ProcDesc{
		Name: "return",
		Overloads: []catalog.Overload{
			{Signature: nil, Handler: hReturn},
		},
	})
	binOp := func(name string, h catalog.HandlerID, fold catalog.ConstFold) {
		cat.Register(&catalog.ProcDesc{
			Name: name,
			Overloads: []catalog.Overload{
				{Signature: []argkind.ArgKind{regInt, regInt, regInt}, Handler: h, Fold: fold},
			},
		})
	}
	binOp("add", hAdd, func(args []catalog.Arg) (int64, bool) { return args[1].ConstInt + args[2].ConstInt, true })
	binOp("sub", hSub, nil)
	binOp("mul", hMul, nil)
	binOp("gt", hGt, nil)
	binOp("lt", hLt, nil)
	binOp("le", hLe, nil)
	binOp("eq", hEq, nil)
	cat.Register(&catalog.ProcDesc{
		Name: "set",
		Overloads: []catalog.Overload{
			{Signature: []argkind.ArgKind{regInt, regInt}, Handler: hSetReg},
			{Signature: []argkind.ArgKind{regInt, constInt}, Handler: hSetConst},
		},
	})
	// "max" is registered as an inlined Function (spec.md §4.2 "call
	// (inlined body expansion)"), not a ProcDesc: "gt"/"set" are already
	// catalog operations, so the demo catalog itself can show a named
	// helper expanding to plain calls against those, rather than needing
	// its own handler.
	cat.RegisterFunction("max", []string{"dst", "a", "b"}, []byte(`
if gt a b;
  dst set a;
else
  dst set b;
end;
`))

	handlers := machine.NewHandlerTable()
	handlers.Register(hReturn, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		return machine.End, nil
	})
	arith := func(f func(a, b int64) int64) machine.HandlerFunc {
		return func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
			dst := machine.ReadRegOffset(code, pc)
			a := machine.ReadRegOffset(code, pc)
			b := machine.ReadRegOffset(code, pc)
			rf := w.Registers()
			machine.RegSet(rf, dst, f(machine.RegGet[int64](rf, a), machine.RegGet[int64](rf, b)))
			return machine.Continue, nil
		}
	}
	boolToInt := func(b bool) int64 {
		if b {
			return 1
		}
		return 0
	}
	handlers.Register(hAdd, arith(func(a, b int64) int64 { return a + b }))
	handlers.Register(hSub, arith(func(a, b int64) int64 { return a - b }))
	handlers.Register(hMul, arith(func(a, b int64) int64 { return a * b }))
	handlers.Register(hGt, arith(func(a, b int64) int64 { return boolToInt(a > b) }))
	handlers.Register(hLt, arith(func(a, b int64) int64 { return boolToInt(a < b) }))
	handlers.Register(hLe, arith(func(a, b int64) int64 { return boolToInt(a <= b) }))
	handlers.Register(hEq, arith(func(a, b int64) int64 { return boolToInt(a == b) }))
	handlers.Register(hSetReg, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		dst := machine.ReadRegOffset(code, pc)
		src := machine.ReadRegOffset(code, pc)
		machine.RegSet(w.Registers(), dst, machine.RegGet[int64](w.Registers(), src))
		return machine.Continue, nil
	})
	handlers.Register(hSetConst, func(w *machine.Worker, code []byte, pc *uint32) (machine.Signal, error) {
		dst := machine.ReadRegOffset(code, pc)
		v := machine.ReadConstInt(code, pc)
		machine.RegSet(w.Registers(), dst, v)
		return machine.Continue, nil
	})

	return cat, reg, handlers
}
