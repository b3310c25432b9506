// Package vm implements the stack machine that executes bytecode produced
// by internal/compiler, per spec.md §4.5.
package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/gurre/dimcalc/internal/compiler"
	"github.com/gurre/dimcalc/internal/ffi"
	"github.com/gurre/dimcalc/internal/prefix"
	"github.com/gurre/dimcalc/internal/quantity"
	"github.com/gurre/dimcalc/internal/unitreg"
)

// Runtime error sentinels, per spec.md §7's "Runtime errors" taxonomy.
var (
	ErrDivisionByZero            = errors.New("vm: division by zero")
	ErrFactorialOfNegativeNumber = errors.New("vm: factorial of a negative number")
	ErrFactorialOfNonInteger     = errors.New("vm: factorial of a non-integer")
	ErrNoStatements              = errors.New("vm: no statements to run")
)

// QuantityError wraps a dimension-mismatch error surfaced from
// internal/quantity during conversion or comparison.
type QuantityError struct {
	Kind string
	Err  error
}

func (e *QuantityError) Error() string { return fmt.Sprintf("vm: %s: %v", e.Kind, e.Err) }
func (e *QuantityError) Unwrap() error { return e.Err }

// UnitRegistryError wraps an error surfaced from the unit registry while
// resolving a unit constant during execution.
type UnitRegistryError struct{ Err error }

func (e *UnitRegistryError) Error() string { return fmt.Sprintf("vm: unit registry: %v", e.Err) }
func (e *UnitRegistryError) Unwrap() error { return e.Err }

// Result is the outcome of running one statement: either side effects
// only, or a produced value, per spec.md §4.5's "Execution result".
type Result struct {
	Quantity quantity.Quantity
	HasValue bool
}

type frame struct {
	chunkIdx int
	ip       int
	fp       int
}

// VM executes a compiled Program against a shared unit registry and FFI
// table. State (constants, globals, call frames) is owned by the VM
// instance and persists across calls to Run, matching spec.md §5's REPL
// re-entry model.
type VM struct {
	program *compiler.Program
	unitReg *unitreg.Registry
	ffi     *ffi.Table
	print   func(string)

	globals    []quantity.Quantity
	haveGlobal []bool

	nextStmt int
	frames   []frame
	operand  []quantity.Quantity
}

// New returns a VM bound to program, reg (the same registry the type
// checker populated while checking the program), the FFI table, and a
// print sink invoked synchronously by PrintString (the print procedure
// writes through the FFI table's own sink instead).
func New(program *compiler.Program, reg *unitreg.Registry, ffiTable *ffi.Table, print func(string)) *VM {
	vm := &VM{
		program: program,
		unitReg: reg,
		ffi:     ffiTable,
		print:   print,
	}
	vm.growGlobals()
	if len(vm.globals) > compiler.UnderscoreGlobalSlot {
		vm.globals[compiler.AnsGlobalSlot] = quantity.Scalar(0)
		vm.globals[compiler.UnderscoreGlobalSlot] = quantity.Scalar(0)
		vm.haveGlobal[compiler.AnsGlobalSlot] = true
		vm.haveGlobal[compiler.UnderscoreGlobalSlot] = true
	}
	return vm
}

// Sync points the VM at a program recompiled (via compiler.Resume) from
// the one it was built with, growing the globals table to match any new
// global slots while preserving previously-assigned values. Use this
// between REPL lines, after compiling the newly typed statements into the
// same *compiler.Program the VM already holds.
func (vm *VM) Sync(program *compiler.Program) {
	vm.program = program
	vm.growGlobals()
}

func (vm *VM) growGlobals() {
	n := len(vm.program.Globals)
	if n <= len(vm.globals) {
		return
	}
	values := make([]quantity.Quantity, n)
	have := make([]bool, n)
	copy(values, vm.globals)
	copy(have, vm.haveGlobal)
	vm.globals = values
	vm.haveGlobal = have
}

// Run executes every statement compiled since the last call to Run (or
// since construction), returning one Result per statement in order. On a
// runtime error, execution stops at the failing statement and the rest of
// the batch is skipped; per spec.md §5's REPL recovery contract, the VM
// clears its operand stack and resets to the root frame so a later Run
// call can continue with the next batch of compiled statements.
func (vm *VM) Run() ([]Result, error) {
	if vm.nextStmt == 0 && len(vm.program.StatementStarts) == 0 {
		return nil, ErrNoStatements
	}
	if vm.nextStmt >= len(vm.program.StatementStarts) {
		return nil, nil
	}
	var results []Result
	for vm.nextStmt < len(vm.program.StatementStarts) {
		start := vm.program.StatementStarts[vm.nextStmt]
		end := len(vm.program.Chunks[0].Code)
		if vm.nextStmt+1 < len(vm.program.StatementStarts) {
			end = vm.program.StatementStarts[vm.nextStmt+1]
		}
		res, err := vm.runStatement(start, end)
		if err != nil {
			vm.recover()
			vm.nextStmt = len(vm.program.StatementStarts)
			return results, err
		}
		results = append(results, res)
		vm.nextStmt++
	}
	return results, nil
}

// recover implements spec.md §5's error-recovery contract: clear the
// operand stack and reset to the root frame so the session can continue.
func (vm *VM) recover() {
	vm.frames = nil
	vm.operand = vm.operand[:0]
}

func (vm *VM) runStatement(start, end int) (Result, error) {
	vm.frames = []frame{{chunkIdx: 0, ip: start, fp: 0}}
	vm.operand = vm.operand[:0]
	return vm.dispatch(end)
}

// CallFunction invokes a user-defined function directly by name, bypassing
// chunk 0 entirely. This backs cmd/dimcalc's "-main" flag, which runs a
// named chunk instead of the file's top-level statements.
func (vm *VM) CallFunction(name string, args []quantity.Quantity) (Result, error) {
	chunkIdx, ok := vm.program.Functions[name]
	if !ok {
		return Result{}, fmt.Errorf("vm: unknown function %q", name)
	}
	vm.frames = []frame{{chunkIdx: chunkIdx, ip: 0, fp: 0}}
	vm.operand = append(vm.operand[:0], args...)
	return vm.dispatch(len(vm.program.Chunks[chunkIdx].Code))
}

func (vm *VM) dispatch(end int) (Result, error) {
	for {
		top := &vm.frames[len(vm.frames)-1]
		if len(vm.frames) == 1 && top.ip >= end {
			return Result{}, nil
		}
		code := vm.program.Chunks[top.chunkIdx].Code
		op := compiler.Opcode(code[top.ip])

		switch op {
		case compiler.OpLoadConstant:
			c := vm.readU16(code, top.ip+1)
			top.ip += 3
			q, err := vm.constantQuantity(int(c))
			if err != nil {
				return Result{}, err
			}
			vm.push(q)

		case compiler.OpSetUnitConstant:
			// Reachable only if a future compiler ever emits it; the
			// current compiler always resolves unit constants at compile
			// time (see DESIGN.md) and never emits this opcode.
			top.ip += 5
			vm.pop()

		case compiler.OpSetVariable:
			g := vm.readU16(code, top.ip+1)
			top.ip += 3
			vm.setGlobal(int(g), vm.pop())

		case compiler.OpGetVariable:
			g := vm.readU16(code, top.ip+1)
			top.ip += 3
			vm.push(vm.getGlobal(int(g)))

		case compiler.OpGetLocal:
			s := vm.readU16(code, top.ip+1)
			top.ip += 3
			vm.push(vm.operand[top.fp+int(s)])

		case compiler.OpApplyPrefix:
			p := vm.readU16(code, top.ip+1)
			top.ip += 3
			q := vm.pop()
			entry := prefix.Table[p]
			vm.push(quantity.New(q.Value*entry.Multiplier, q.Unit))

		case compiler.OpNegate:
			top.ip++
			vm.push(quantity.Negate(vm.pop()))

		case compiler.OpFactorial:
			top.ip++
			q := vm.pop()
			f, err := factorial(q)
			if err != nil {
				return Result{}, err
			}
			vm.push(f)

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpPower, compiler.OpConvertTo:
			top.ip++
			rhs, lhs := vm.pop(), vm.pop()
			q, err := vm.binaryArith(op, lhs, rhs)
			if err != nil {
				return Result{}, err
			}
			vm.push(q)

		case compiler.OpLt, compiler.OpGt, compiler.OpLe, compiler.OpGe, compiler.OpEq, compiler.OpNe:
			top.ip++
			rhs, lhs := vm.pop(), vm.pop()
			b, err := vm.compare(op, lhs, rhs)
			if err != nil {
				return Result{}, err
			}
			vm.push(boolQuantity(b))

		case compiler.OpCall:
			f := vm.readU16(code, top.ip+1)
			n := vm.readU16(code, top.ip+3)
			top.ip += 5
			vm.frames = append(vm.frames, frame{chunkIdx: int(f), ip: 0, fp: len(vm.operand) - int(n)})

		case compiler.OpFFICallFunction:
			f := vm.readU16(code, top.ip+1)
			n := vm.readU16(code, top.ip+3)
			top.ip += 5
			q, err := vm.callFFIFunction(int(f), int(n))
			if err != nil {
				return Result{}, err
			}
			vm.push(q)

		case compiler.OpFFICallProcedure:
			f := vm.readU16(code, top.ip+1)
			n := vm.readU16(code, top.ip+3)
			top.ip += 5
			if err := vm.callFFIProcedure(int(f), int(n)); err != nil {
				return Result{}, err
			}

		case compiler.OpPrintString:
			s := vm.readU16(code, top.ip+1)
			top.ip += 3
			str, err := vm.stringConstant(int(s))
			if err != nil {
				return Result{}, err
			}
			vm.print(str)

		case compiler.OpJump:
			off := vm.readU16(code, top.ip+1)
			top.ip += 3 + int(int16(off))

		case compiler.OpJumpIfFalse:
			off := vm.readU16(code, top.ip+1)
			base := top.ip + 3
			q := vm.pop()
			if isFalse(q) {
				top.ip = base + int(int16(off))
			} else {
				top.ip = base
			}

		case compiler.OpFullSimplify:
			top.ip++
			q, err := quantity.FullSimplify(vm.unitReg, vm.pop())
			if err != nil {
				return Result{}, &UnitRegistryError{Err: err}
			}
			vm.push(q)

		case compiler.OpReturn:
			top.ip++
			if len(vm.frames) == 1 {
				q := vm.pop()
				vm.setGlobal(compiler.AnsGlobalSlot, q)
				vm.setGlobal(compiler.UnderscoreGlobalSlot, q)
				return Result{Quantity: q, HasValue: true}, nil
			}
			ret := vm.pop()
			fp := top.fp
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.operand = vm.operand[:fp]
			vm.push(ret)

		default:
			return Result{}, fmt.Errorf("vm: unknown opcode %d", op)
		}
	}
}

func (vm *VM) readU16(code []byte, at int) uint16 {
	return uint16(code[at]) | uint16(code[at+1])<<8
}

func (vm *VM) push(q quantity.Quantity) { vm.operand = append(vm.operand, q) }

func (vm *VM) pop() quantity.Quantity {
	n := len(vm.operand) - 1
	q := vm.operand[n]
	vm.operand = vm.operand[:n]
	return q
}

func (vm *VM) setGlobal(slot int, q quantity.Quantity) {
	vm.globals[slot] = q
	vm.haveGlobal[slot] = true
}

func (vm *VM) getGlobal(slot int) quantity.Quantity {
	return vm.globals[slot]
}

func (vm *VM) constantQuantity(idx int) (quantity.Quantity, error) {
	switch c := vm.program.Constants[idx].(type) {
	case compiler.ScalarConstant:
		return quantity.Scalar(float64(c)), nil
	case compiler.BooleanConstant:
		return boolQuantity(bool(c)), nil
	case compiler.UnitConstant:
		return quantity.New(1, c.Unit), nil
	case compiler.StringConstant:
		// Strings never reach the operand stack as quantities in practice
		// (PrintString and "type" read the constant pool directly), but a
		// zero-value scalar keeps the stack shape uniform if one ever did.
		return quantity.Scalar(0), nil
	default:
		return quantity.Quantity{}, fmt.Errorf("vm: unknown constant type %T", c)
	}
}

func (vm *VM) stringConstant(idx int) (string, error) {
	s, ok := vm.program.Constants[idx].(compiler.StringConstant)
	if !ok {
		return "", fmt.Errorf("vm: constant %d is not a string", idx)
	}
	return string(s), nil
}

// boolQuantity encodes a boolean as a dimensionless quantity (0 or 1),
// since spec.md's operand stack is uniformly "Quantity" values; the VM's
// own comparison/jump opcodes are the only readers that need to tell a
// boolean quantity apart from an ordinary scalar, via isFalse.
func boolQuantity(b bool) quantity.Quantity {
	if b {
		return quantity.Scalar(1)
	}
	return quantity.Scalar(0)
}

func isFalse(q quantity.Quantity) bool {
	return q.Value == 0
}

func factorial(q quantity.Quantity) (quantity.Quantity, error) {
	if !q.Unit.IsOne() {
		return quantity.Quantity{}, ErrFactorialOfNonInteger
	}
	if q.Value < 0 {
		return quantity.Quantity{}, ErrFactorialOfNegativeNumber
	}
	if q.Value != math.Trunc(q.Value) {
		return quantity.Quantity{}, ErrFactorialOfNonInteger
	}
	n := int64(q.Value)
	result := 1.0
	for i := int64(2); i <= n; i++ {
		result *= float64(i)
	}
	return quantity.Scalar(result), nil
}

func (vm *VM) binaryArith(op compiler.Opcode, lhs, rhs quantity.Quantity) (quantity.Quantity, error) {
	switch op {
	case compiler.OpAdd:
		q, err := quantity.Add(vm.unitReg, lhs, rhs)
		return q, wrapQuantityErr("add", err)
	case compiler.OpSub:
		q, err := quantity.Sub(vm.unitReg, lhs, rhs)
		return q, wrapQuantityErr("subtract", err)
	case compiler.OpMul:
		return quantity.Mul(lhs, rhs), nil
	case compiler.OpDiv:
		q, err := quantity.Div(lhs, rhs)
		if errors.Is(err, quantity.ErrDivisionByZero) {
			return quantity.Quantity{}, ErrDivisionByZero
		}
		return q, err
	case compiler.OpPower:
		q, err := quantity.Pow(lhs, rhs)
		return q, wrapQuantityErr("power", err)
	case compiler.OpConvertTo:
		q, err := quantity.ConvertTo(vm.unitReg, lhs, rhs.Unit)
		if errors.Is(err, quantity.ErrDivisionByZero) {
			return quantity.Quantity{}, ErrDivisionByZero
		}
		return q, wrapQuantityErr("convert_to", err)
	default:
		return quantity.Quantity{}, fmt.Errorf("vm: unhandled arithmetic opcode %d", op)
	}
}

func wrapQuantityErr(kind string, err error) error {
	if err == nil {
		return nil
	}
	return &QuantityError{Kind: kind, Err: err}
}

func (vm *VM) compare(op compiler.Opcode, lhs, rhs quantity.Quantity) (bool, error) {
	cmp, err := quantity.Compare(vm.unitReg, lhs, rhs)
	if err != nil {
		return false, wrapQuantityErr("compare", err)
	}
	switch op {
	case compiler.OpLt:
		return cmp < 0, nil
	case compiler.OpGt:
		return cmp > 0, nil
	case compiler.OpLe:
		return cmp <= 0, nil
	case compiler.OpGe:
		return cmp >= 0, nil
	case compiler.OpEq:
		return cmp == 0, nil
	case compiler.OpNe:
		return cmp != 0, nil
	default:
		return false, fmt.Errorf("vm: unhandled comparison opcode %d", op)
	}
}

func (vm *VM) callFFIFunction(idx, n int) (quantity.Quantity, error) {
	name := vm.program.FFIFunctionNames[idx]
	entry, ok := vm.ffi.Function(name)
	if !ok {
		return quantity.Quantity{}, fmt.Errorf("vm: unknown foreign function %q", name)
	}
	args := vm.popArgs(n)
	return entry.Call(args)
}

func (vm *VM) callFFIProcedure(idx, n int) error {
	name := vm.program.FFIProcedureNames[idx]
	args := vm.popArgs(n)
	if name == "assert_eq" {
		return vm.assertEq(args)
	}
	entry, ok := vm.ffi.Procedure(name)
	if !ok {
		return fmt.Errorf("vm: unknown foreign procedure %q", name)
	}
	return entry.Call(args)
}

// assertEq is handled directly by the VM (rather than inside
// internal/ffi) because only the VM holds the unit registry needed to
// compare two quantities' dimensions and values, as the assert_eq entry in
// ffi.NewTable notes.
func (vm *VM) assertEq(args []quantity.Quantity) error {
	eps := 1e-9
	if len(args) == 3 {
		eps = args[2].Value
	}
	converted, err := quantity.ConvertTo(vm.unitReg, args[1], args[0].Unit)
	if err != nil {
		return wrapQuantityErr("assert_eq", err)
	}
	scale := math.Max(math.Abs(args[0].Value), math.Abs(converted.Value))
	tolerance := eps
	if scale > 1 {
		tolerance *= scale
	}
	if math.Abs(args[0].Value-converted.Value) > tolerance {
		return fmt.Errorf("vm: assert_eq failed: %g != %g", args[0].Value, converted.Value)
	}
	return nil
}

func (vm *VM) popArgs(n int) []quantity.Quantity {
	args := make([]quantity.Quantity, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	return args
}
