// Package compiler implements the single-pass compiler described in
// spec.md §4.3: a ParserWriter that tokenizes and compiles one script
// straight to bytecode in a single walk, with no separate AST or resolve
// phase. Its emitter bookkeeping (label fixups, the block/loop stack) is
// adapted from the teacher's lang/compiler pcomp/fcomp state holders,
// restructured around a flat instruction stream instead of a stack-machine
// CFG, per this grammar's much smaller statement set.
package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/just-dont/OpenXcom/lang/argkind"
	"github.com/just-dont/OpenXcom/lang/catalog"
	"github.com/just-dont/OpenXcom/lang/diag"
	"github.com/just-dont/OpenXcom/lang/machine"
	"github.com/just-dont/OpenXcom/lang/scanner"
	"github.com/just-dont/OpenXcom/lang/symtab"
	"github.com/just-dont/OpenXcom/lang/token"
)

// label is one compile-time jump target: either already placed (defined)
// or still pending, in which case fixups records every code offset that
// needs to be patched once its address is known (spec.md §4.3 "if/else/
// loop/break/continue ... implemented as compiler primitives using label
// fixups").
type label struct {
	addr    uint32
	defined bool
	fixups  []int
}

type loopLabels struct {
	breakLabel, continueLabel string
}

// ParserWriter compiles one script's source text against a fixed Catalog
// and SymbolTable into a machine.Container (spec.md §3 "Lifecycle": a
// ParserWriter instance is built once per declared script shape and reused
// across parses; compile is transactional via SymbolTable.Snapshot/
// Restore, spec.md §8 P5).
type ParserWriter struct {
	cat *catalog.Catalog
	st  *symtab.SymbolTable

	sc   scanner.Scanner
	file *token.File
	tok  token.Token
	val  token.Value

	script string
	code   []byte
	errs   diag.Errors

	labels      map[string]*label
	labelSeq    int
	tempSeq     int
	loopStack   []loopLabels
	localConsts map[string]int64

	// paramStack holds one frame per Function inlining currently in
	// progress (spec.md §4.2 "call (inlined body expansion)"): the
	// innermost frame's bindings shadow localConsts/the symbol table for
	// the duration of that call site's body, then pop away. funcStack
	// tracks the same nesting by name, to reject a function that inlines
	// itself (directly or through another function) instead of looping
	// the compiler forever.
	paramStack []map[string]catalog.Arg
	funcStack  []string
}

// New returns a ParserWriter that resolves operation calls against cat and
// declares/looks up bindings in st.
func New(cat *catalog.Catalog, st *symtab.SymbolTable) *ParserWriter {
	return &ParserWriter{cat: cat, st: st}
}

// Parse compiles src (named filename, for diagnostics) to a Container. On
// any error the SymbolTable is rolled back to its state before this call,
// so a failed script never leaves stray locals or output/input
// declarations behind (spec.md §8 P5).
func (p *ParserWriter) Parse(filename string, src []byte) (*machine.Container, error) {
	p.file = token.NewFile(filename, len(src))
	p.script = filename
	p.code = nil
	p.errs = nil
	p.labels = make(map[string]*label)
	p.labelSeq = 0
	p.tempSeq = 0
	p.loopStack = nil
	p.localConsts = make(map[string]int64)
	p.paramStack = nil
	p.funcStack = nil

	cp := p.st.Snapshot()

	p.sc.Init(p.file, src, p.onScanError)
	p.next()

	p.st.PushScope()
	err := p.parseBlock(token.EOF)
	p.st.PopScope()

	if err == nil && len(p.errs) == 0 {
		for name, l := range p.labels {
			if !l.defined {
				err = p.errorf(diag.UnresolvedLabel, "label %q is referenced but never defined", name)
				break
			}
		}
	}

	if err != nil || len(p.errs) > 0 {
		p.st.Restore(cp)
		if len(p.errs) > 0 {
			return nil, p.errs
		}
		return nil, err
	}
	return &machine.Container{Code: p.code}, nil
}

// -- catalog.Writer implementation --

func (p *ParserWriter) EmitHandler(h catalog.HandlerID) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(h))
	p.code = append(p.code, b[:]...)
}

func (p *ParserWriter) EmitRegOffset(offset int) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(offset))
	p.code = append(p.code, b[:]...)
}

func (p *ParserWriter) EmitConstInt(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	p.code = append(p.code, b[:]...)
}

func (p *ParserWriter) EmitLabelFixup(name string) {
	l := p.label(name)
	if l.defined {
		p.emitAddr(l.addr)
		return
	}
	l.fixups = append(l.fixups, len(p.code))
	p.emitAddr(0)
}

func (p *ParserWriter) emitAddr(addr uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], addr)
	p.code = append(p.code, b[:]...)
}

func (p *ParserWriter) label(name string) *label {
	l, ok := p.labels[name]
	if !ok {
		l = &label{}
		p.labels[name] = l
	}
	return l
}

func (p *ParserWriter) newLabel() string {
	p.labelSeq++
	return fmt.Sprintf("L%d", p.labelSeq)
}

func (p *ParserWriter) defineLabel(name string) {
	l := p.label(name)
	l.addr = uint32(len(p.code))
	l.defined = true
	for _, off := range l.fixups {
		binary.LittleEndian.PutUint32(p.code[off:], l.addr)
	}
	l.fixups = nil
}

// emitJump and emitCondJump emit the two compiler-primitive intrinsics
// directly; they are not catalog operations (DESIGN.md's lang/compiler
// entry explains why: label fixups need compile-time bookkeeping a generic
// ParseHook does not carry).
func (p *ParserWriter) emitJump(target string) {
	p.EmitHandler(machine.HJump)
	p.EmitLabelFixup(target)
}

func (p *ParserWriter) emitCondJumpIfZero(target string, condOffset int) {
	p.EmitHandler(machine.HCondJump)
	p.EmitLabelFixup(target)
	p.EmitRegOffset(condOffset)
}

// -- tokenizer plumbing --

func (p *ParserWriter) next() {
	p.tok = p.sc.Scan(&p.val)
}

func (p *ParserWriter) onScanError(pos token.Position, msg string) {
	p.errs.Add(&diag.Error{Kind: diag.Syntax, Script: p.script, Line: pos.Line, Col: pos.Col, Message: msg})
}

// errorf reports a diagnostic anchored at the current lookahead token. Use
// errorfAt instead when the offending token has already been consumed
// (e.g. an identifier resolved one token after it was read).
func (p *ParserWriter) errorf(kind diag.Kind, format string, args ...any) error {
	return p.errorfAt(p.val.Pos, p.val.Raw, kind, format, args...)
}

func (p *ParserWriter) errorfAt(pos token.Pos, tokenText string, kind diag.Kind, format string, args ...any) error {
	line, col := pos.LineCol()
	e := &diag.Error{
		Kind:    kind,
		Script:  p.script,
		Line:    line,
		Col:     col,
		Token:   tokenText,
		Message: fmt.Sprintf(format, args...),
	}
	p.errs.Add(e)
	return e
}

func (p *ParserWriter) expect(tok token.Token) (token.Value, error) {
	if p.tok != tok {
		return token.Value{}, p.errorf(diag.Syntax, "expected %s, got %s", tok, p.tok)
	}
	v := p.val
	p.next()
	return v, nil
}

// -- statement grammar --

// parseBlock parses statements until the current token is end or EOF.
func (p *ParserWriter) parseBlock(end token.Token) error {
	for p.tok != end && p.tok != token.EOF {
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
	if p.tok != end {
		return p.errorf(diag.Syntax, "expected %s, got end of file", end)
	}
	return nil
}

func (p *ParserWriter) parseStatement() error {
	switch p.tok {
	case token.VAR:
		return p.parseVar()
	case token.CONST:
		return p.parseConst()
	case token.IF:
		return p.parseIf()
	case token.LOOP:
		return p.parseLoop()
	case token.BREAK:
		return p.parseBreak()
	case token.CONTINUE:
		return p.parseContinue()
	case token.RETURN:
		return p.parseReturn()
	case token.IDENT:
		return p.parseCallStatement()
	default:
		return p.errorf(diag.Syntax, "unexpected token %s", p.tok)
	}
}

// parseVar implements "var IDENT = INT ;" and "var IDENT = IDENT ;"
// (spec.md §4.3 "Register allocation"): the declared local's kind is the
// literal's (always Int) or copied from the referenced binding.
func (p *ParserWriter) parseVar() error {
	if _, err := p.expect(token.VAR); err != nil {
		return err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return err
	}

	switch p.tok {
	case token.INT:
		v := p.val.Int
		p.next()
		kind := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}
		local, err := p.st.DeclareLocal(name.Raw, kind)
		if err != nil {
			return p.errorf(diag.DuplicateLocal, "%s", err)
		}
		p.EmitHandler(machine.HSetImm)
		p.EmitRegOffset(local.Offset)
		p.EmitConstInt(v)

	case token.IDENT:
		rhsVal := p.val
		p.next()
		binding, kind, isLocalConst, constVal, err := p.resolveIdent(rhsVal)
		if err != nil {
			return err
		}
		local, declErr := p.st.DeclareLocal(name.Raw, kind)
		if declErr != nil {
			return p.errorf(diag.DuplicateLocal, "%s", declErr)
		}
		switch {
		case isLocalConst:
			p.EmitHandler(machine.HSetImm)
			p.EmitRegOffset(local.Offset)
			p.EmitConstInt(constVal)
		case binding.Scope == symtab.Undefined: // defensive; resolveIdent never returns this with err == nil
			return p.errorfAt(rhsVal.Pos, rhsVal.Raw, diag.UnknownIdentifier, "undefined identifier %q", rhsVal.Raw)
		default:
			p.EmitHandler(machine.HCopy)
			p.EmitRegOffset(local.Offset)
			p.EmitRegOffset(binding.Offset)
		}

	default:
		return p.errorf(diag.Syntax, "expected int literal or identifier, got %s", p.tok)
	}

	_, err = p.expect(token.SEMI)
	return err
}

// parseConst implements "const IDENT = INT ;": a purely compile-time
// substitution local to this script, distinct from the host-registered
// named constants in the symbol table (spec.md §3 "named constants (name →
// typed value)" are declared by the host; this is the script-local form
// the same keyword doubles for).
func (p *ParserWriter) parseConst() error {
	if _, err := p.expect(token.CONST); err != nil {
		return err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return err
	}
	v, err := p.expect(token.INT)
	if err != nil {
		return err
	}
	if _, ok := p.localConsts[name.Raw]; ok {
		return p.errorf(diag.DuplicateDeclaration, "duplicate const %q", name.Raw)
	}
	p.localConsts[name.Raw] = v.Int
	_, err = p.expect(token.SEMI)
	return err
}

// parseIf implements "if COND ; stmts (else stmts)? end ;" (spec.md §4.3).
// COND is either a bare identifier already bound to an Int register, or an
// inline operation call "OP_NAME ARG1 ARG2 …" whose result is computed into
// an anonymous temporary and used as the condition (e.g. "if gt a b;",
// "if le n 0;" — spec.md §8 S2/S3); zero is false, non-zero is true.
func (p *ParserWriter) parseIf() error {
	if _, err := p.expect(token.IF); err != nil {
		return err
	}
	condOffset, err := p.parseCondition()
	if err != nil {
		return err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return err
	}

	elseLabel := p.newLabel()
	endLabel := p.newLabel()
	p.emitCondJumpIfZero(elseLabel, condOffset)

	p.st.PushScope()
	var thenErr error
	for p.tok != token.ELSE && p.tok != token.END && p.tok != token.EOF && thenErr == nil {
		thenErr = p.parseStatement()
	}
	p.st.PopScope()
	if thenErr != nil {
		return thenErr
	}

	hasElse := p.tok == token.ELSE
	if hasElse {
		p.emitJump(endLabel)
		p.defineLabel(elseLabel)
		p.next() // consume ELSE
		p.st.PushScope()
		elseErr := p.parseBlock(token.END)
		p.st.PopScope()
		if elseErr != nil {
			return elseErr
		}
	} else {
		p.defineLabel(elseLabel)
	}

	if _, err := p.expect(token.END); err != nil {
		return err
	}
	if hasElse {
		p.defineLabel(endLabel)
	}
	_, err = p.expect(token.SEMI)
	return err
}

// parseCondition parses the COND in "if COND;" and returns the register
// offset to branch on. The leading identifier is looked up in the catalog
// first: if it names a registered operation, the rest of the condition is
// an inline call (spec.md §8 S2 "if gt a b;", S3 "if le n 0;") whose result
// is written into a fresh anonymous local; otherwise it must be a plain
// identifier already bound to an Int register.
func (p *ParserWriter) parseCondition() (int, error) {
	nameVal, err := p.expect(token.IDENT)
	if err != nil {
		return 0, err
	}
	if _, ok := p.cat.Lookup(nameVal.Raw); ok {
		return p.parseInlineOpCondition(nameVal)
	}
	binding, ok := p.st.Lookup(nameVal.Raw)
	if !ok {
		return 0, p.errorfAt(nameVal.Pos, nameVal.Raw, diag.UnknownIdentifier, "undefined identifier %q", nameVal.Raw)
	}
	if binding.Kind.Base != argkind.Int || !binding.Kind.IsRegister() {
		return 0, p.errorfAt(nameVal.Pos, nameVal.Raw, diag.TypeMismatch, "if condition %q must be a register int, got %s", nameVal.Raw, p.st.Registry().TypeName(binding.Kind.Base))
	}
	return binding.Offset, nil
}

// parseInlineOpCondition parses "OP_NAME ARG1 ARG2 …" as an if-condition:
// it allocates an anonymous temporary register scoped to just this call (so
// the slot is reclaimed for the then/else bodies, never surviving past the
// conditional jump that reads it) and evaluates opName into it exactly like
// an ordinary operation call with that temporary as destination.
func (p *ParserWriter) parseInlineOpCondition(opName token.Value) (int, error) {
	p.st.PushScope()
	defer p.st.PopScope()

	kind := argkind.ArgKind{Base: argkind.Int, Flags: argkind.FlagRegister}
	p.tempSeq++
	tmp, err := p.st.DeclareLocal(fmt.Sprintf("$cond%d", p.tempSeq), kind)
	if err != nil {
		return 0, p.errorf(diag.RegisterFileOverflow, "%s", err)
	}

	args, err := p.parseOpArgs(catalog.Arg{Kind: kind, RegOffset: tmp.Offset})
	if err != nil {
		return 0, err
	}
	if err := p.emitOpCall(opName.Raw, args); err != nil {
		return 0, err
	}
	return tmp.Offset, nil
}

// parseLoop implements "loop ; stmts end ;" with break/continue inside the
// body jumping to the loop's end/start labels respectively.
func (p *ParserWriter) parseLoop() error {
	if _, err := p.expect(token.LOOP); err != nil {
		return err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return err
	}

	startLabel := p.newLabel()
	endLabel := p.newLabel()
	p.defineLabel(startLabel)

	p.loopStack = append(p.loopStack, loopLabels{breakLabel: endLabel, continueLabel: startLabel})
	p.st.PushScope()
	err := p.parseBlock(token.END)
	p.st.PopScope()
	p.loopStack = p.loopStack[:len(p.loopStack)-1]
	if err != nil {
		return err
	}

	p.emitJump(startLabel)
	p.defineLabel(endLabel)

	if _, err := p.expect(token.END); err != nil {
		return err
	}
	_, err = p.expect(token.SEMI)
	return err
}

func (p *ParserWriter) parseBreak() error {
	if _, err := p.expect(token.BREAK); err != nil {
		return err
	}
	if len(p.loopStack) == 0 {
		return p.errorf(diag.Syntax, "break outside of a loop")
	}
	p.emitJump(p.loopStack[len(p.loopStack)-1].breakLabel)
	_, err := p.expect(token.SEMI)
	return err
}

func (p *ParserWriter) parseContinue() error {
	if _, err := p.expect(token.CONTINUE); err != nil {
		return err
	}
	if len(p.loopStack) == 0 {
		return p.errorf(diag.Syntax, "continue outside of a loop")
	}
	p.emitJump(p.loopStack[len(p.loopStack)-1].continueLabel)
	_, err := p.expect(token.SEMI)
	return err
}

// parseReturn implements "return [EXPR…] ;" (spec.md §4.3): each EXPR binds,
// in order, into the next declared output register — the same assignment
// emitted by "var" (HSetImm for a literal, HCopy for an identifier) — after
// which the catalog-registered "return" pseudo-operation halts execution,
// so halting flows through the same dispatch ABI as every other instruction
// (spec.md §4.4; DESIGN.md's lang/compiler entry).
func (p *ParserWriter) parseReturn() error {
	if _, err := p.expect(token.RETURN); err != nil {
		return err
	}

	i := 0
	for p.tok == token.IDENT || p.tok == token.INT {
		if i >= len(p.st.Outputs) {
			return p.errorf(diag.Syntax, "return has more values than the %d declared output(s)", len(p.st.Outputs))
		}
		out := p.st.Outputs[i]
		i++

		switch p.tok {
		case token.INT:
			v := p.val.Int
			p.next()
			p.EmitHandler(machine.HSetImm)
			p.EmitRegOffset(out.Offset)
			p.EmitConstInt(v)
		case token.IDENT:
			nameVal := p.val
			p.next()
			binding, _, isLocalConst, constVal, err := p.resolveIdent(nameVal)
			if err != nil {
				return err
			}
			if isLocalConst {
				p.EmitHandler(machine.HSetImm)
				p.EmitRegOffset(out.Offset)
				p.EmitConstInt(constVal)
			} else {
				p.EmitHandler(machine.HCopy)
				p.EmitRegOffset(out.Offset)
				p.EmitRegOffset(binding.Offset)
			}
		}
	}

	if err := p.emitOpCall("return", nil); err != nil {
		return err
	}
	_, err := p.expect(token.SEMI)
	return err
}

// parseCallStatement implements "NAME OP_NAME (IDENT|INT)* ;" (spec.md
// §4.3 "general operation call"): NAME is an already-declared, writable
// register that receives the call's result and is also passed as the
// operation's first argument (spec.md §8 S1 "out add a b;", S2 "out set
// a;"), OP_NAME is the catalog-registered operation to invoke.
func (p *ParserWriter) parseCallStatement() error {
	destTok, err := p.expect(token.IDENT)
	if err != nil {
		return err
	}
	destArg, err := p.resolveDestArg(destTok)
	if err != nil {
		return err
	}
	opName, err := p.expect(token.IDENT)
	if err != nil {
		return err
	}
	args, err := p.parseOpArgs(destArg)
	if err != nil {
		return err
	}
	if fn, ok := p.cat.LookupFunction(opName.Raw); ok {
		if err := p.inlineFunctionCall(opName, fn, args); err != nil {
			return err
		}
	} else if err := p.emitOpCall(opName.Raw, args); err != nil {
		return err
	}
	_, err = p.expect(token.SEMI)
	return err
}

// inlineFunctionCall implements spec.md §4.2's "call (inlined body
// expansion)": fn.Params are bound positionally to args (dest included,
// as the call site's first argument) as a fresh paramStack frame, then
// fn.Body is compiled fresh against a nested scanner straight into the
// current instruction stream — no call instruction, no return address,
// matching the VM's single fixed-size frame (spec.md §3 "Container").
// Reusing the same label/loop bookkeeping across the swap keeps every
// label spec.md §4.3 generates (loop start/end, if/else) unique across
// however many times a Function gets inlined.
func (p *ParserWriter) inlineFunctionCall(nameTok token.Value, fn *catalog.Function, args []catalog.Arg) error {
	if len(args) != len(fn.Params) {
		return p.errorfAt(nameTok.Pos, nameTok.Raw, diag.ArityMismatch,
			"call to %q: expected %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}
	for _, seen := range p.funcStack {
		if seen == fn.Name {
			return p.errorfAt(nameTok.Pos, nameTok.Raw, diag.ArityMismatch,
				"function %q inlines itself (directly or transitively); the VM has no call stack to unwind", fn.Name)
		}
	}

	frame := make(map[string]catalog.Arg, len(fn.Params))
	for i, name := range fn.Params {
		frame[name] = args[i]
	}
	p.paramStack = append(p.paramStack, frame)
	p.funcStack = append(p.funcStack, fn.Name)
	defer func() {
		p.paramStack = p.paramStack[:len(p.paramStack)-1]
		p.funcStack = p.funcStack[:len(p.funcStack)-1]
	}()

	savedSc, savedFile, savedTok, savedVal, savedScript := p.sc, p.file, p.tok, p.val, p.script
	p.file = token.NewFile(fn.Name, len(fn.Body))
	p.script = fn.Name
	p.sc.Init(p.file, fn.Body, p.onScanError)
	p.next()

	// p.localConsts is a flat, unscoped map (parseConst's own comment notes
	// it is "local to this script"); a Function's own const declarations
	// must not collide across repeated inlinings of the same body, nor
	// leak back into the caller once this call site is done, so it gets
	// the same save/restore treatment as the scanner above.
	savedConsts := p.localConsts
	p.localConsts = make(map[string]int64, len(savedConsts))
	for k, v := range savedConsts {
		p.localConsts[k] = v
	}

	p.st.PushScope()
	err := p.parseBlock(token.EOF)
	p.st.PopScope()

	p.sc, p.file, p.tok, p.val, p.script = savedSc, savedFile, savedTok, savedVal, savedScript
	p.localConsts = savedConsts
	return err
}

// resolveDestArg resolves destTok as the writable NAME that precedes
// OP_NAME in "NAME OP_NAME ARG… ;".
func (p *ParserWriter) resolveDestArg(destTok token.Value) (catalog.Arg, error) {
	binding, kind, isLocalConst, _, err := p.resolveIdent(destTok)
	if err != nil {
		return catalog.Arg{}, err
	}
	if isLocalConst {
		return catalog.Arg{}, p.errorfAt(destTok.Pos, destTok.Raw, diag.InvalidLValue, "cannot use constant %q as an operation destination", destTok.Raw)
	}
	return catalog.Arg{Kind: kind, RegOffset: binding.Offset}, nil
}

// parseOpArgs parses the trailing "ARG1 ARG2 …" of a call, prepending dest
// as the first resolved argument (shared between parseCallStatement's
// destination-first calls and parseInlineOpCondition's destination-less
// inline conditions, which supply an anonymous temporary as dest instead).
func (p *ParserWriter) parseOpArgs(dest catalog.Arg) ([]catalog.Arg, error) {
	args := []catalog.Arg{dest}
	for p.tok == token.IDENT || p.tok == token.INT {
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (p *ParserWriter) parseArg() (catalog.Arg, error) {
	switch p.tok {
	case token.INT:
		v := p.val.Int
		p.next()
		return catalog.Arg{Kind: argkind.ArgKind{Base: argkind.Int}, IsConst: true, ConstInt: v}, nil
	case token.IDENT:
		nameVal := p.val
		p.next()
		binding, kind, isLocalConst, constVal, err := p.resolveIdent(nameVal)
		if err != nil {
			return catalog.Arg{}, err
		}
		if isLocalConst {
			return catalog.Arg{Kind: kind, IsConst: true, ConstInt: constVal}, nil
		}
		return catalog.Arg{Kind: kind, RegOffset: binding.Offset}, nil
	default:
		return catalog.Arg{}, p.errorf(diag.Syntax, "expected argument, got %s", p.tok)
	}
}

// resolveIdent resolves nameVal either as a script-local compile-time const
// (checked first, since it shadows nothing in the symbol table) or via the
// symbol table's own resolution chain (spec.md §4.3 "Symbol resolution at
// each statement": locals, then parser constants, then global shared
// refs). It takes the already-consumed token.Value, not just its text, so
// any diagnostic it reports anchors at the identifier itself rather than
// whatever token follows it.
func (p *ParserWriter) resolveIdent(nameVal token.Value) (binding symtab.Binding, kind argkind.ArgKind, isLocalConst bool, constVal int64, err error) {
	name := nameVal.Raw
	if len(p.paramStack) > 0 {
		if arg, ok := p.paramStack[len(p.paramStack)-1][name]; ok {
			if arg.IsConst {
				return symtab.Binding{}, arg.Kind, true, arg.ConstInt, nil
			}
			return symtab.Binding{Scope: symtab.Local, Kind: arg.Kind, Offset: arg.RegOffset}, arg.Kind, false, 0, nil
		}
	}
	if v, ok := p.localConsts[name]; ok {
		return symtab.Binding{}, argkind.ArgKind{Base: argkind.Int}, true, v, nil
	}
	b, ok := p.st.Lookup(name)
	if !ok {
		return symtab.Binding{}, argkind.ArgKind{}, false, 0, p.errorfAt(nameVal.Pos, name, diag.UnknownIdentifier, "undefined identifier %q", name)
	}
	if b.Scope == symtab.Const {
		return b, b.Kind, true, b.Const.Int, nil
	}
	return b, b.Kind, false, 0, nil
}

// emitOpCall resolves name's overload against args' kinds and emits the
// call, following spec.md §4.3's "Overload dispatch during compile": a
// constant-folded result when every argument is constant and the overload
// declares a folder, otherwise a ParseHook if present, otherwise the
// default emitter (opcode handle followed by each argument's immediate).
func (p *ParserWriter) emitOpCall(name string, args []catalog.Arg) error {
	desc, ok := p.cat.Lookup(name)
	if !ok {
		return p.errorf(diag.UnknownIdentifier, "unknown operation %q", name)
	}

	kinds := make([]argkind.ArgKind, len(args))
	for i, a := range args {
		kinds[i] = a.Kind
	}
	res, err := desc.Resolve(p.st.Registry(), kinds)
	if err == catalog.ErrNoMatchingOverload && len(args) > 1 {
		// Constant operands never match a register-declared argument: retry
		// with them as registers, accepting the winner only if it folds them.
		asRegs, allConst := append([]argkind.ArgKind(nil), kinds...), true
		for i := 1; i < len(args); i++ {
			allConst = allConst && args[i].IsConst
			asRegs[i].Flags |= argkind.FlagRegister
		}
		if r2, err2 := desc.Resolve(p.st.Registry(), asRegs); allConst && err2 == nil && r2.Overload.Fold != nil {
			if _, ok := r2.Overload.Fold(args); ok {
				res, err = r2, nil
			}
		}
	}
	if err != nil {
		kind := diag.NoMatchingOverload
		if err == catalog.ErrAmbiguousOverload {
			kind = diag.AmbiguousOverload
		}
		return p.errorf(kind, "call to %q: %s", name, err)
	}
	ov := res.Overload

	// Constant folding (spec.md §4.3): every call now carries its
	// destination register as args[0] (spec.md §8 "NAME OP_NAME ARG…"), so
	// when every operand in args[1:] is itself a compile-time constant and
	// the overload opts into folding, the folded result is bound straight
	// into the destination with the same HSetImm a "var" assignment would
	// use, skipping the operation's own handler (and the instruction that
	// would otherwise invoke it) entirely.
	if ov.Fold != nil && len(args) > 0 {
		allConst := true
		for _, a := range args[1:] {
			if !a.IsConst {
				allConst = false
				break
			}
		}
		if allConst {
			if result, ok := ov.Fold(args); ok {
				p.EmitHandler(machine.HSetImm)
				p.EmitRegOffset(args[0].RegOffset)
				p.EmitConstInt(result)
				return nil
			}
		}
	}

	if ov.ParseHook != nil {
		handled, err := ov.ParseHook(p, args)
		if err != nil {
			return p.errorf(diag.Syntax, "call to %q: %s", name, err)
		}
		if handled {
			return nil
		}
	}

	p.EmitHandler(ov.Handler)
	for _, a := range args {
		switch {
		case a.IsLabel:
			p.EmitLabelFixup(a.LabelName)
		case a.IsConst:
			p.EmitConstInt(a.ConstInt)
		default:
			p.EmitRegOffset(a.RegOffset)
		}
	}
	if ov.EmitExtra != nil {
		if err := ov.EmitExtra(p, args); err != nil {
			return p.errorf(diag.Syntax, "call to %q: %s", name, err)
		}
	}
	return nil
}
