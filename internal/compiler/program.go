package compiler

import "github.com/gurre/dimcalc/internal/unitreg"

// Opcode is the one-byte instruction tag for a VM program, per spec.md
// §4.5's dispatch table. Operand counts are fixed per opcode (0, 1, or 2
// little-endian u16 values immediately following the tag byte).
type Opcode byte

const (
	OpLoadConstant Opcode = iota
	OpSetUnitConstant
	OpSetVariable
	OpGetVariable
	OpGetLocal
	OpApplyPrefix
	OpNegate
	OpFactorial
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPower
	OpConvertTo
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNe
	OpCall
	OpFFICallFunction
	OpFFICallProcedure
	OpPrintString
	OpJump
	OpJumpIfFalse
	OpFullSimplify
	OpReturn
)

// Constant is one entry of a program's constant pool: a Scalar, Unit,
// Boolean, or String value, per spec.md §4.5's "constants" state.
type Constant interface{ isConstant() }

// ScalarConstant is a dimensionless numeric literal.
type ScalarConstant float64

func (ScalarConstant) isConstant() {}

// UnitConstant is a single named unit, referenced by LoadConstant for a
// unit identifier (e.g. the "a" in "3 a"). Its conversion factor and
// dimension live in the shared *unitreg.Registry, not here: the type
// checker has already fully resolved every declared unit before the
// compiler runs (see the "SetUnitConstant resolves at compile time" note
// in DESIGN.md), so the constant only needs to carry the algebraic
// product-of-one-factor shape, not a duplicate of the registry entry.
type UnitConstant struct{ Unit unitreg.Unit }

func (UnitConstant) isConstant() {}

// BooleanConstant is a literal true/false.
type BooleanConstant bool

func (BooleanConstant) isConstant() {}

// StringConstant is a literal string (procedure-call arguments only).
type StringConstant string

func (StringConstant) isConstant() {}

// Chunk is one code object: chunk 0 is always "<main>", one additional
// chunk per user-defined function with a body.
type Chunk struct {
	Name string
	Code []byte
}

// Program is everything the VM needs to execute compiled statements.
type Program struct {
	Chunks []Chunk

	Constants []Constant

	// Globals lists every global variable's name by slot index (the
	// "global_identifiers" table of spec.md §4.5), referenced by
	// SetVariable/GetVariable operands.
	Globals []string

	// Functions maps a user-defined function name to its chunk index, for
	// resolving Call operands at compile time.
	Functions map[string]int

	// FFIFunctionNames/FFIProcedureNames list foreign callables by index,
	// referenced by FFICallFunction/FFICallProcedure operands.
	FFIFunctionNames  []string
	FFIProcedureNames []string

	// StatementStarts records, for each top-level statement compiled into
	// chunk 0, the byte offset where its bytecode begins. The VM uses this
	// to know where one statement's execution ends and the next begins,
	// since statements that don't produce a value (let, unit and function
	// definitions, FFI procedure calls including "type") emit no
	// terminating Return.
	StatementStarts []int
}

// NewProgram returns an empty program with chunk 0 ("<main>") allocated.
func NewProgram() *Program {
	return &Program{
		Chunks:    []Chunk{{Name: "<main>"}},
		Functions: make(map[string]int),
	}
}
