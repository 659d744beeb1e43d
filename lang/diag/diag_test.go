package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/just-dont/OpenXcom/lang/diag"
)

func TestErrorFormattingWithTokenAndPosition(t *testing.T) {
	e := &diag.Error{
		Kind:    diag.UnknownIdentifier,
		Script:  "unknown_op.hs",
		Line:    1,
		Col:     5,
		Token:   "a",
		Message: `undefined identifier "a"`,
	}
	assert.Equal(t, `unknown_op.hs:1:5: unknown_identifier: undefined identifier "a" (near "a")`, e.Error())
}

func TestErrorFormattingWithoutToken(t *testing.T) {
	e := &diag.Error{
		Kind:    diag.RegisterFileOverflow,
		Script:  "big.hs",
		Message: "too many locals declared",
	}
	assert.Equal(t, "big.hs: register_file_overflow: too many locals declared", e.Error())
}

func TestErrorsListSingular(t *testing.T) {
	el := diag.Errors{{Kind: diag.Syntax, Message: "bad"}}
	assert.Equal(t, "syntax: bad", el.Error())
}

func TestErrorsListMultiple(t *testing.T) {
	el := diag.Errors{
		{Kind: diag.Syntax, Message: "first"},
		{Kind: diag.Syntax, Message: "second"},
	}
	assert.Equal(t, "syntax: first (and 1 more errors)", el.Error())
}

func TestErrorsUnwrap(t *testing.T) {
	el := diag.Errors{
		{Kind: diag.Syntax, Message: "first"},
		{Kind: diag.Syntax, Message: "second"},
	}
	assert.Len(t, el.Unwrap(), 2)
}

func TestErrorsAdd(t *testing.T) {
	var el diag.Errors
	el.Add(&diag.Error{Kind: diag.Syntax, Message: "oops"})
	assert.Len(t, el, 1)
}
