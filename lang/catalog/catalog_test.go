package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-dont/OpenXcom/lang/argkind"
	"github.com/just-dont/OpenXcom/lang/catalog"
)

// TestOverloadResolution covers spec.md §8 S4: "foo(int)" and
// "foo(ptr T)" overloads, where the supplied kind picks the right one, and
// dropping to an editable-only overload with a readonly pointer fails.
func TestOverloadResolution(t *testing.T) {
	reg := argkind.NewRegistry()
	unitT := reg.RegisterType("unit", 8)

	intKind := argkind.ArgKind{Base: argkind.Int}
	ptrKind := reg.Decorate(unitT, argkind.FlagPtr)
	ptrEditableKind := reg.Decorate(unitT, argkind.FlagPtrEditable)

	cat := catalog.New()
	cat.Register(&catalog.ProcDesc{
		Name: "foo",
		Overloads: []catalog.Overload{
			{Signature: []argkind.ArgKind{intKind}, Handler: 1},
			{Signature: []argkind.ArgKind{ptrKind}, Handler: 2},
		},
	})

	desc, ok := cat.Lookup("foo")
	require.True(t, ok)

	res, err := desc.Resolve(reg, []argkind.ArgKind{intKind})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Overload.Handler)

	res, err = desc.Resolve(reg, []argkind.ArgKind{ptrKind})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Overload.Handler)

	res, err = desc.Resolve(reg, []argkind.ArgKind{ptrEditableKind})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Overload.Handler, "an editable pointer still satisfies a readonly-pointer overload")

	// Now register only the editable-ptr overload: a readonly pointer must
	// fail to resolve.
	editableOnly := catalog.New()
	editableOnly.Register(&catalog.ProcDesc{
		Name: "foo",
		Overloads: []catalog.Overload{
			{Signature: []argkind.ArgKind{ptrEditableKind}, Handler: 3},
		},
	})
	desc2, _ := editableOnly.Lookup("foo")
	_, err = desc2.Resolve(reg, []argkind.ArgKind{ptrKind})
	assert.ErrorIs(t, err, catalog.ErrNoMatchingOverload)
}

func TestResolveNoMatch(t *testing.T) {
	reg := argkind.NewRegistry()
	cat := catalog.New()
	cat.Register(&catalog.ProcDesc{
		Name: "bar",
		Overloads: []catalog.Overload{
			{Signature: []argkind.ArgKind{{Base: argkind.Int}}, Handler: 1},
		},
	})
	desc, _ := cat.Lookup("bar")
	_, err := desc.Resolve(reg, []argkind.ArgKind{{Base: argkind.Label}})
	assert.ErrorIs(t, err, catalog.ErrNoMatchingOverload)
}
