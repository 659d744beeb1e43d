// Package diag defines the structured diagnostics emitted by the compiler
// and virtual machine (spec.md §6 "Diagnostics", §7 "Error Handling
// Design"). The core never writes to stdout/stderr itself; every failure is
// reported through these types and left for the host (or the cmd/hookscript
// CLI) to render.
package diag

import "fmt"

// Kind identifies one of the error kinds enumerated in spec.md §7.
type Kind string

const (
	// Compile-time kinds (spec.md §4.3, §7).
	Syntax               Kind = "syntax"
	UnknownIdentifier     Kind = "unknown_identifier"
	TypeMismatch          Kind = "type_mismatch"
	NoMatchingOverload    Kind = "no_matching_overload"
	AmbiguousOverload     Kind = "ambiguous_overload"
	DuplicateLocal        Kind = "duplicate_local"
	InvalidLValue         Kind = "invalid_lvalue"
	RegisterFileOverflow  Kind = "register_file_overflow"
	UnresolvedLabel       Kind = "unresolved_label"
	DuplicateDeclaration  Kind = "duplicate_declaration"
	ArityMismatch         Kind = "arity_mismatch"

	// Runtime kinds (spec.md §7).
	InvalidCast              Kind = "invalid_cast"
	InstructionBudgetExceeded Kind = "instruction_budget_exceeded"
	HandlerFailure            Kind = "handler_failure"

	// Configuration kinds (spec.md §7).
	UnknownTagValueType Kind = "unknown_tag_value_type"
	DuplicateTagName    Kind = "duplicate_tag_name"
)

// Error is a single structured diagnostic record (spec.md §6
// "Diagnostics"): kind, source location if any, message, and the parent
// script name for context.
type Error struct {
	Kind     Kind
	Script   string // parent script name, for diagnostics (spec.md §4.3)
	Line     int    // 1-based, 0 if not applicable
	Col      int    // 1-based, 0 if not applicable
	Token    string // offending token text, if any
	Message  string
}

func (e *Error) Error() string {
	loc := ""
	if e.Line > 0 {
		loc = fmt.Sprintf(":%d:%d", e.Line, e.Col)
	}
	if e.Script != "" {
		loc = e.Script + loc
	}
	if loc != "" {
		loc += ": "
	}
	if e.Token != "" {
		return fmt.Sprintf("%s%s: %s (near %q)", loc, e.Kind, e.Message, e.Token)
	}
	return fmt.Sprintf("%s%s: %s", loc, e.Kind, e.Message)
}

// Errors is a list of diagnostics produced by a single compile attempt. It
// implements error and Unwrap() []error, the same contract as the teacher's
// re-exported scanner.ErrorList.
type Errors []*Error

func (el Errors) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", el[0].Error(), len(el)-1)
}

func (el Errors) Unwrap() []error {
	errs := make([]error, len(el))
	for i, e := range el {
		errs[i] = e
	}
	return errs
}

// Add appends a new diagnostic to the list.
func (el *Errors) Add(e *Error) { *el = append(*el, e) }
