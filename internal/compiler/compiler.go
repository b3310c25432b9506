// Package compiler lowers type-checked dimcalc statements into the VM's
// bytecode representation, per spec.md §4.4.
package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/gurre/dimcalc/internal/ast"
	"github.com/gurre/dimcalc/internal/ffi"
	"github.com/gurre/dimcalc/internal/prefix"
	"github.com/gurre/dimcalc/internal/typecheck"
	"github.com/gurre/dimcalc/internal/unitreg"
)

// Compiler emits bytecode for statements that have already passed
// *typecheck.Checker. Rather than reading a separate typed-AST tree (see
// DESIGN.md's "no separate typed-AST tree" note), it resolves unit
// identifiers against the checker's unit registry, re-asks the checker for
// the type a "type(x)" call renders, and resolves callees through the FFI
// table and the program's own function chunks.
type Compiler struct {
	checker  *typecheck.Checker
	unitReg  *unitreg.Registry
	ffiTable *ffi.Table

	program *Program

	scalarConst map[float64]int
	unitConst   map[string]int
	boolConst   map[bool]int
	stringConst map[string]int

	globalIdx  map[string]int
	ffiFuncIdx map[string]int
	ffiProcIdx map[string]int

	chunkIdx int
	locals   []string
}

// AnsGlobalSlot and UnderscoreGlobalSlot are the fixed global slots a
// freshly-started program reserves for the "last result" pseudo
// identifiers, so the VM's Return opcode can write them unconditionally
// without a name lookup (spec.md §4.5's "store in 'last result' globals").
const (
	AnsGlobalSlot        = 0
	UnderscoreGlobalSlot = 1
)

// New returns a compiler starting a fresh program, with the "ans" and "_"
// globals pre-reserved at AnsGlobalSlot/UnderscoreGlobalSlot.
func New(checker *typecheck.Checker, ffiTable *ffi.Table) *Compiler {
	c := Resume(checker, ffiTable, NewProgram())
	c.globalSlot("ans")
	c.globalSlot("_")
	return c
}

// Resume returns a compiler that appends to an already-compiled program,
// for REPL sessions where earlier statements' constants, globals, and
// function chunks must stay addressable from later ones.
func Resume(checker *typecheck.Checker, ffiTable *ffi.Table, program *Program) *Compiler {
	c := &Compiler{
		checker:     checker,
		unitReg:     checker.UnitRegistry(),
		ffiTable:    ffiTable,
		program:     program,
		scalarConst: make(map[float64]int),
		unitConst:   make(map[string]int),
		boolConst:   make(map[bool]int),
		stringConst: make(map[string]int),
		globalIdx:   make(map[string]int),
		ffiFuncIdx:  make(map[string]int),
		ffiProcIdx:  make(map[string]int),
	}
	for i, name := range program.Globals {
		c.globalIdx[name] = i
	}
	for i, name := range program.FFIFunctionNames {
		c.ffiFuncIdx[name] = i
	}
	for i, name := range program.FFIProcedureNames {
		c.ffiProcIdx[name] = i
	}
	for i, k := range program.Constants {
		switch v := k.(type) {
		case ScalarConstant:
			c.scalarConst[float64(v)] = i
		case BooleanConstant:
			c.boolConst[bool(v)] = i
		case StringConstant:
			c.stringConst[string(v)] = i
		case UnitConstant:
			for _, f := range v.Unit.Iter() {
				c.unitConst[f.ID] = i
			}
		}
	}
	return c
}

// Program returns the program being built, including everything compiled
// by prior calls to Compile.
func (c *Compiler) Program() *Program { return c.program }

// Compile lowers stmts (already accepted by Checker.CheckStatement, in the
// same order) into chunk 0, recording a StatementStarts entry per
// top-level statement.
func (c *Compiler) Compile(stmts []ast.Stmt) (*Program, error) {
	for _, s := range stmts {
		c.program.StatementStarts = append(c.program.StatementStarts, len(c.chunk().Code))
		if err := c.compileStatement(s); err != nil {
			return nil, err
		}
	}
	return c.program, nil
}

func (c *Compiler) chunk() *Chunk { return &c.program.Chunks[c.chunkIdx] }

func (c *Compiler) emit(op Opcode) {
	c.chunk().Code = append(c.chunk().Code, byte(op))
}

func (c *Compiler) emit1(op Opcode, a uint16) {
	buf := make([]byte, 3)
	buf[0] = byte(op)
	binary.LittleEndian.PutUint16(buf[1:], a)
	c.chunk().Code = append(c.chunk().Code, buf...)
}

func (c *Compiler) emit2(op Opcode, a, b uint16) {
	buf := make([]byte, 5)
	buf[0] = byte(op)
	binary.LittleEndian.PutUint16(buf[1:3], a)
	binary.LittleEndian.PutUint16(buf[3:5], b)
	c.chunk().Code = append(c.chunk().Code, buf...)
}

// emitJump appends op with a placeholder operand and returns the offset of
// the 2-byte operand so patchJump can back-fill it once the jump target is
// known.
func (c *Compiler) emitJump(op Opcode) int {
	c.emit1(op, 0)
	return len(c.chunk().Code) - 2
}

// patchJump fills in operandPos with the relative byte offset from the
// instruction immediately after the jump's operand to the current end of
// the chunk, per spec.md §4.4's "relative byte offsets" rule.
func (c *Compiler) patchJump(operandPos int) {
	target := len(c.chunk().Code)
	offset := target - (operandPos + 2)
	binary.LittleEndian.PutUint16(c.chunk().Code[operandPos:operandPos+2], uint16(offset))
}

func (c *Compiler) scalarConstant(v float64) int {
	if idx, ok := c.scalarConst[v]; ok {
		return idx
	}
	idx := len(c.program.Constants)
	c.program.Constants = append(c.program.Constants, ScalarConstant(v))
	c.scalarConst[v] = idx
	return idx
}

func (c *Compiler) boolConstant(v bool) int {
	if idx, ok := c.boolConst[v]; ok {
		return idx
	}
	idx := len(c.program.Constants)
	c.program.Constants = append(c.program.Constants, BooleanConstant(v))
	c.boolConst[v] = idx
	return idx
}

func (c *Compiler) stringConstant(v string) int {
	if idx, ok := c.stringConst[v]; ok {
		return idx
	}
	idx := len(c.program.Constants)
	c.program.Constants = append(c.program.Constants, StringConstant(v))
	c.stringConst[v] = idx
	return idx
}

func (c *Compiler) unitConstantFor(canonical string) int {
	if idx, ok := c.unitConst[canonical]; ok {
		return idx
	}
	idx := len(c.program.Constants)
	c.program.Constants = append(c.program.Constants, UnitConstant{Unit: unitreg.Single(canonical)})
	c.unitConst[canonical] = idx
	return idx
}

func (c *Compiler) globalSlot(name string) int {
	if idx, ok := c.globalIdx[name]; ok {
		return idx
	}
	idx := len(c.program.Globals)
	c.program.Globals = append(c.program.Globals, name)
	c.globalIdx[name] = idx
	return idx
}

func (c *Compiler) ffiFunctionIdx(name string) int {
	if idx, ok := c.ffiFuncIdx[name]; ok {
		return idx
	}
	idx := len(c.program.FFIFunctionNames)
	c.program.FFIFunctionNames = append(c.program.FFIFunctionNames, name)
	c.ffiFuncIdx[name] = idx
	return idx
}

func (c *Compiler) ffiProcedureIdx(name string) int {
	if idx, ok := c.ffiProcIdx[name]; ok {
		return idx
	}
	idx := len(c.program.FFIProcedureNames)
	c.program.FFIProcedureNames = append(c.program.FFIProcedureNames, name)
	c.ffiProcIdx[name] = idx
	return idx
}

func (c *Compiler) localSlot(name string) (int, bool) {
	for i, n := range c.locals {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// prefixIndex finds e's position in prefix.Table, the index ApplyPrefix's
// operand refers to.
func prefixIndex(e prefix.Entry) int {
	for i, t := range prefix.Table {
		if t == e {
			return i
		}
	}
	return -1
}

func (c *Compiler) compileStatement(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		if err := c.compileExprSimplified(st.Expr); err != nil {
			return err
		}
		c.emit(OpReturn)
		return nil

	case *ast.LetStmt:
		if err := c.compileExprSimplified(st.Value); err != nil {
			return err
		}
		c.emit1(OpSetVariable, uint16(c.globalSlot(st.Name)))
		return nil

	case *ast.DimensionStmt:
		// Dimensions carry no runtime representation; their algebra lives
		// entirely in the type checker's dimension registry.
		return nil

	case *ast.UnitStmt:
		// Both base- and derived-unit definitions emit no bytecode: by the
		// time the compiler sees this statement, Checker.CheckStatement has
		// already registered it (with its fully resolved conversion factor)
		// in the shared *unitreg.Registry the VM will run against, so
		// SetUnitConstant's runtime derivation would only recompute what
		// the type-check pass already computed (see DESIGN.md). References
		// to the unit compile to a LoadConstant of its canonical name,
		// allocated lazily the first time compileIdent sees it.
		return nil

	case *ast.FnStmt:
		return c.compileFnStmt(st)

	case *ast.ProcCallStmt:
		return c.compileProcCall(st)

	default:
		return fmt.Errorf("compiler: unhandled statement type %T", s)
	}
}

func (c *Compiler) compileFnStmt(s *ast.FnStmt) error {
	if s.Body == nil {
		// Foreign function: name + arity already live in the FFI table;
		// nothing to emit.
		return nil
	}

	chunkIdx := len(c.program.Chunks)
	c.program.Chunks = append(c.program.Chunks, Chunk{Name: s.Name})
	c.program.Functions[s.Name] = chunkIdx

	savedChunk, savedLocals := c.chunkIdx, c.locals
	c.chunkIdx = chunkIdx
	c.locals = make([]string, len(s.Params))
	for i, p := range s.Params {
		c.locals[i] = p.Name
	}

	err := c.compileExprSimplified(s.Body)
	if err == nil {
		c.emit(OpReturn)
	}

	c.chunkIdx, c.locals = savedChunk, savedLocals
	return err
}

// compileProcCall mirrors Checker.checkProcCall's dispatch: an FFI
// procedure name (already arity-checked by the checker) is lowered to its
// dedicated opcode, with print of a single string literal emitted as
// PrintString, while any other callee is an ordinary function call used as a
// standalone statement (spec.md §8's "f(3 a)" pattern), compiled exactly
// like an expression statement.
func (c *Compiler) compileProcCall(s *ast.ProcCallStmt) error {
	if !c.ffiTable.HasProcedure(s.Callee) {
		call := &ast.Call{Callee: s.Callee, Args: s.Args, Position: s.Position}
		if err := c.compileExprSimplified(call); err != nil {
			return err
		}
		c.emit(OpReturn)
		return nil
	}

	if s.Callee == "type" {
		if len(s.Args) != 1 {
			return fmt.Errorf("compiler: type() takes exactly one argument")
		}
		t, err := c.checker.CheckExpr(s.Args[0])
		if err != nil {
			return err
		}
		c.emit1(OpPrintString, uint16(c.stringConstant(t.String())))
		return nil
	}

	if s.Callee == "print" && len(s.Args) == 1 {
		if str, ok := s.Args[0].(*ast.StringLit); ok {
			c.emit1(OpPrintString, uint16(c.stringConstant(str.Value)))
			return nil
		}
	}

	for _, a := range s.Args {
		if err := c.compileExprSimplified(a); err != nil {
			return err
		}
	}
	c.emit2(OpFFICallProcedure, uint16(c.ffiProcedureIdx(s.Callee)), uint16(len(s.Args)))
	return nil
}

// needsFullSimplify reports whether e's compiled value should be passed
// through FullSimplify, per spec.md §4.4's exemption list: literal,
// identifier, unit identifier, function call, unary, boolean, conditional,
// and ConvertTo binary expressions are exempt.
func needsFullSimplify(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.ScalarLit, *ast.BoolLit, *ast.StringLit, *ast.Ident, *ast.Negate, *ast.Factorial, *ast.If, *ast.Call:
		return false
	case *ast.Binary:
		return n.Op != ast.ConvertTo
	default:
		return true
	}
}

func (c *Compiler) compileExprSimplified(e ast.Expr) error {
	if err := c.compileExpr(e); err != nil {
		return err
	}
	if needsFullSimplify(e) {
		c.emit(OpFullSimplify)
	}
	return nil
}

func (c *Compiler) compileExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.ScalarLit:
		c.emit1(OpLoadConstant, uint16(c.scalarConstant(n.Value)))
		return nil

	case *ast.BoolLit:
		c.emit1(OpLoadConstant, uint16(c.boolConstant(n.Value)))
		return nil

	case *ast.StringLit:
		c.emit1(OpLoadConstant, uint16(c.stringConstant(n.Value)))
		return nil

	case *ast.Ident:
		return c.compileIdent(n)

	case *ast.Negate:
		if err := c.compileExpr(n.Operand); err != nil {
			return err
		}
		c.emit(OpNegate)
		return nil

	case *ast.Factorial:
		if err := c.compileExpr(n.Operand); err != nil {
			return err
		}
		c.emit(OpFactorial)
		return nil

	case *ast.Binary:
		return c.compileBinary(n)

	case *ast.If:
		return c.compileIf(n)

	case *ast.Call:
		return c.compileCall(n)

	default:
		return fmt.Errorf("compiler: unhandled expression type %T", e)
	}
}

// compileIdent lowers a bare identifier, which may be a local parameter, a
// unit name (possibly via a long/short prefix spelling, re-deriving the
// split the checker also performs independently — see DESIGN.md's "no
// ast.UnitIdent node" note), or an ordinary global variable.
func (c *Compiler) compileIdent(e *ast.Ident) error {
	if slot, ok := c.localSlot(e.Name); ok {
		c.emit1(OpGetLocal, uint16(slot))
		return nil
	}
	if c.unitReg.Has(e.Name) {
		canonical, err := c.unitReg.CanonicalName(e.Name)
		if err != nil {
			return err
		}
		c.emit1(OpLoadConstant, uint16(c.unitConstantFor(canonical)))
		return nil
	}
	if entry, base, ok := prefix.Split(e.Name, c.unitReg.Has); ok {
		canonical, err := c.unitReg.CanonicalName(base)
		if err != nil {
			return err
		}
		c.emit1(OpLoadConstant, uint16(c.unitConstantFor(canonical)))
		c.emit1(OpApplyPrefix, uint16(prefixIndex(entry)))
		return nil
	}
	c.emit1(OpGetVariable, uint16(c.globalSlot(e.Name)))
	return nil
}

var binaryOpcode = map[ast.BinaryOp]Opcode{
	ast.Add:       OpAdd,
	ast.Sub:       OpSub,
	ast.Mul:       OpMul,
	ast.Div:       OpDiv,
	ast.Power:     OpPower,
	ast.ConvertTo: OpConvertTo,
	ast.Lt:        OpLt,
	ast.Gt:        OpGt,
	ast.Le:        OpLe,
	ast.Ge:        OpGe,
	ast.Eq:        OpEq,
	ast.Ne:        OpNe,
}

func (c *Compiler) compileBinary(n *ast.Binary) error {
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	op, ok := binaryOpcode[n.Op]
	if !ok {
		return fmt.Errorf("compiler: unhandled binary operator %v", n.Op)
	}
	c.emit(op)
	return nil
}

func (c *Compiler) compileIf(n *ast.If) error {
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	elseJump := c.emitJump(OpJumpIfFalse)
	if err := c.compileExpr(n.Then); err != nil {
		return err
	}
	endJump := c.emitJump(OpJump)
	c.patchJump(elseJump)
	if err := c.compileExpr(n.Else); err != nil {
		return err
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) compileCall(n *ast.Call) error {
	for _, a := range n.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	if c.ffiTable.HasFunction(n.Callee) {
		c.emit2(OpFFICallFunction, uint16(c.ffiFunctionIdx(n.Callee)), uint16(len(n.Args)))
		return nil
	}
	chunkIdx, ok := c.program.Functions[n.Callee]
	if !ok {
		return fmt.Errorf("compiler: call to unknown function %q", n.Callee)
	}
	c.emit2(OpCall, uint16(chunkIdx), uint16(len(n.Args)))
	return nil
}
