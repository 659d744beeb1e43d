package argkind_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/just-dont/OpenXcom/lang/argkind"
)

func TestCompatExactMatch(t *testing.T) {
	r := argkind.NewRegistry()
	unit := r.RegisterType("unit", 8)

	for _, flags := range []argkind.Flag{
		argkind.FlagNone,
		argkind.FlagRegister,
		argkind.FlagVar,
		argkind.FlagPtr,
		argkind.FlagPtrEditable,
	} {
		k := r.Decorate(unit, flags)
		assert.EqualValues(t, 255, r.Compat(k, k, 0), "flags=%v", flags)
	}
}

func TestCompatDisjointBase(t *testing.T) {
	r := argkind.NewRegistry()
	unit := r.RegisterType("unit", 8)
	item := r.RegisterType("item", 8)

	a := r.Decorate(unit, argkind.FlagNone)
	b := r.Decorate(item, argkind.FlagNone)
	assert.EqualValues(t, 0, r.Compat(a, b, 0))
	assert.EqualValues(t, 0, r.Compat(b, a, 0))
}

func TestCompatMutabilityRelaxation(t *testing.T) {
	r := argkind.NewRegistry()
	unit := r.RegisterType("unit", 8)

	editableDecl := r.Decorate(unit, argkind.FlagPtrEditable)
	readonlyDecl := r.Decorate(unit, argkind.FlagPtr)
	editableSupplied := r.Decorate(unit, argkind.FlagPtrEditable)
	readonlySupplied := r.Decorate(unit, argkind.FlagPtr)

	// exact match beats nothing
	assert.EqualValues(t, 255, r.Compat(editableDecl, editableSupplied, 0))

	// a readonly-accepting overload still accepts an editable pointer, but
	// scores lower than an exact match would.
	gotRelaxed := r.Compat(readonlyDecl, editableSupplied, 0)
	assert.Less(t, gotRelaxed, uint8(255))
	assert.Greater(t, gotRelaxed, uint8(0))

	// an editable-only overload rejects a readonly pointer outright.
	assert.EqualValues(t, 0, r.Compat(editableDecl, readonlySupplied, 0))
}

func TestCompatVarMismatch(t *testing.T) {
	r := argkind.NewRegistry()
	unit := r.RegisterType("unit", 8)

	varDecl := r.Decorate(unit, argkind.FlagVar)
	plainSupplied := r.Decorate(unit, argkind.FlagRegister)

	// FlagVar requires an exact match.
	assert.EqualValues(t, 0, r.Compat(varDecl, plainSupplied, 0))
	assert.EqualValues(t, 255, r.Compat(varDecl, varDecl, 0))
}

func TestCompatOverloadOrdinalTiebreak(t *testing.T) {
	r := argkind.NewRegistry()
	unit := r.RegisterType("unit", 8)

	editableDecl := r.Decorate(unit, argkind.FlagPtrEditable)
	editableSupplied := r.Decorate(unit, argkind.FlagPtrEditable)

	first := r.Compat(editableDecl, editableSupplied, 0)
	second := r.Compat(editableDecl, editableSupplied, 1)
	assert.Greater(t, first, second)
}

func TestSentinelBaseTypes(t *testing.T) {
	r := argkind.NewRegistry()
	assert.Equal(t, "int", r.TypeName(argkind.Int))
	assert.Equal(t, "null", r.TypeName(argkind.Null))
	assert.Equal(t, "label", r.TypeName(argkind.Label))
}
