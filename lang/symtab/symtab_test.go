package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-dont/OpenXcom/lang/argkind"
	"github.com/just-dont/OpenXcom/lang/symtab"
)

var regInt = argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}

func TestDeclareLocalAndLookup(t *testing.T) {
	st := symtab.New(argkind.NewRegistry(), 512, nil)

	l, err := st.DeclareLocal("x", regInt)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Offset)

	b, ok := st.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, symtab.Local, b.Scope)
	assert.Equal(t, 0, b.Offset)
}

func TestDeclareLocalDuplicateInSameScope(t *testing.T) {
	st := symtab.New(argkind.NewRegistry(), 512, nil)

	_, err := st.DeclareLocal("x", regInt)
	require.NoError(t, err)
	_, err = st.DeclareLocal("x", regInt)
	assert.Error(t, err)
}

func TestDeclareLocalSameNameInNestedScopeShadows(t *testing.T) {
	st := symtab.New(argkind.NewRegistry(), 512, nil)

	_, err := st.DeclareLocal("x", regInt)
	require.NoError(t, err)

	st.PushScope()
	inner, err := st.DeclareLocal("x", regInt)
	require.NoError(t, err)
	assert.Equal(t, 8, inner.Offset) // distinct register, not reclaimed from the outer "x"

	b, ok := st.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 8, b.Offset) // innermost scope wins

	st.PopScope()
	b, ok = st.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 0, b.Offset) // outer "x" visible again
}

func TestPopScopeReclaimsRegisterSpace(t *testing.T) {
	st := symtab.New(argkind.NewRegistry(), 512, nil)

	st.PushScope()
	_, err := st.DeclareLocal("a", regInt)
	require.NoError(t, err)
	st.PopScope()

	st.PushScope()
	b, err := st.DeclareLocal("b", regInt)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Offset) // "a"'s offset was reclaimed
}

func TestDeclareLocalRegisterFileOverflow(t *testing.T) {
	st := symtab.New(argkind.NewRegistry(), 8, nil)

	_, err := st.DeclareLocal("a", regInt)
	require.NoError(t, err)
	_, err = st.DeclareLocal("b", regInt)
	assert.Error(t, err)
}

func TestDeclareOutputsAndInputsOccupyDistinctRegions(t *testing.T) {
	st := symtab.New(argkind.NewRegistry(), 512, nil)

	out, err := st.DeclareOutput("result", regInt)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Offset)

	in := st.DeclareInput("arg", regInt)
	assert.Equal(t, 8, in.Offset)

	local, err := st.DeclareLocal("tmp", regInt)
	require.NoError(t, err)
	assert.Equal(t, 16, local.Offset)
}

func TestDeclareOutputMoreThanFourFails(t *testing.T) {
	st := symtab.New(argkind.NewRegistry(), 512, nil)
	for i := 0; i < 4; i++ {
		_, err := st.DeclareOutput("o", regInt)
		require.NoError(t, err)
	}
	_, err := st.DeclareOutput("one-too-many", regInt)
	assert.Error(t, err)
}

func TestLookupResolvesConstsAndGlobalRefs(t *testing.T) {
	resolver := func(name string) (argkind.ArgKind, int, bool) {
		if name == "g" {
			return regInt, 7, true
		}
		return argkind.ArgKind{}, 0, false
	}
	st := symtab.New(argkind.NewRegistry(), 512, resolver)
	st.AddConst("k", symtab.ConstValue{Kind: regInt, Int: 42, IsInt: true})

	b, ok := st.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, symtab.Const, b.Scope)
	assert.Equal(t, int64(42), b.Const.Int)

	b, ok = st.Lookup("g")
	require.True(t, ok)
	assert.Equal(t, symtab.GlobalRef, b.Scope)
	assert.Equal(t, 7, b.Offset)

	_, ok = st.Lookup("nope")
	assert.False(t, ok)
}

func TestCheckpointRestoreUndoesDeclarations(t *testing.T) {
	st := symtab.New(argkind.NewRegistry(), 512, nil)
	_, err := st.DeclareLocal("a", regInt)
	require.NoError(t, err)

	cp := st.Snapshot()

	st.PushScope()
	_, err = st.DeclareLocal("b", regInt)
	require.NoError(t, err)
	_, err = st.DeclareOutput("out", regInt)
	require.NoError(t, err)

	st.Restore(cp)

	_, ok := st.Lookup("b")
	assert.False(t, ok)
	assert.Empty(t, st.Outputs)

	_, ok = st.Lookup("a")
	assert.True(t, ok)
}
