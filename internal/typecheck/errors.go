package typecheck

import (
	"fmt"
	"strings"
	"text/scanner"
)

// UnknownIdentifierError is returned when an identifier has no binding in
// scope, optionally carrying a Damerau-Levenshtein-suggested correction.
type UnknownIdentifierError struct {
	Name       string
	Suggestion string
	Pos        scanner.Position
}

func (e *UnknownIdentifierError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%d:%d: unknown identifier %q (did you mean %q?)", e.Pos.Line, e.Pos.Column, e.Name, e.Suggestion)
	}
	return fmt.Sprintf("%d:%d: unknown identifier %q", e.Pos.Line, e.Pos.Column, e.Name)
}

// UnknownCallableError is returned when a call names no function with a
// registered signature (a declared fn, or one seeded via RegisterFunction).
type UnknownCallableError struct {
	Name string
	Pos  scanner.Position
}

func (e *UnknownCallableError) Error() string {
	return fmt.Sprintf("%d:%d: unknown callable %q", e.Pos.Line, e.Pos.Column, e.Name)
}

// IncompatibleDimensionsError is returned when an operation requires equal
// types on two operands (or an annotation against a deduced type) and they
// differ.
type IncompatibleDimensionsError struct {
	Operation string
	Expected  Type
	Actual    Type
	Pos       scanner.Position
}

func (e *IncompatibleDimensionsError) Error() string {
	return fmt.Sprintf("%d:%d: incompatible dimensions in %s: expected %s, got %s",
		e.Pos.Line, e.Pos.Column, e.Operation, e.Expected, e.Actual)
}

// NonScalarExponentError is returned when a power expression's exponent is
// not dimensionless.
type NonScalarExponentError struct {
	Pos scanner.Position
}

func (e *NonScalarExponentError) Error() string {
	return fmt.Sprintf("%d:%d: exponent must be a dimensionless scalar", e.Pos.Line, e.Pos.Column)
}

// NonScalarFactorialArgumentError is returned when `!` is applied to a
// dimensioned operand.
type NonScalarFactorialArgumentError struct {
	Pos scanner.Position
}

func (e *NonScalarFactorialArgumentError) Error() string {
	return fmt.Sprintf("%d:%d: factorial argument must be a dimensionless scalar", e.Pos.Line, e.Pos.Column)
}

// UnsupportedConstEvalExpressionError is returned when const_eval
// encounters an expression form it cannot evaluate.
type UnsupportedConstEvalExpressionError struct {
	Kind string
	Pos  scanner.Position
}

func (e *UnsupportedConstEvalExpressionError) Error() string {
	return fmt.Sprintf("%d:%d: unsupported expression in constant evaluation: %s", e.Pos.Line, e.Pos.Column, e.Kind)
}

// DivisionByZeroInConstEvalError is returned when const_eval divides by a
// divisor that evaluates to zero.
type DivisionByZeroInConstEvalError struct {
	Pos scanner.Position
}

func (e *DivisionByZeroInConstEvalError) Error() string {
	return fmt.Sprintf("%d:%d: division by zero in constant evaluation", e.Pos.Line, e.Pos.Column)
}

// RegistryError wraps a dimension or unit registry error encountered while
// type checking.
type RegistryError struct {
	Inner error
	Pos   scanner.Position
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Inner)
}

func (e *RegistryError) Unwrap() error { return e.Inner }

// WrongArityError is returned when a call's argument count falls outside a
// callable's declared range.
type WrongArityError struct {
	Name     string
	Min, Max int // Max == -1 means unbounded
	Got      int
	Pos      scanner.Position
}

func (e *WrongArityError) Error() string {
	if e.Max == -1 {
		return fmt.Sprintf("%d:%d: %q expects at least %d argument(s), got %d", e.Pos.Line, e.Pos.Column, e.Name, e.Min, e.Got)
	}
	if e.Min == e.Max {
		return fmt.Sprintf("%d:%d: %q expects %d argument(s), got %d", e.Pos.Line, e.Pos.Column, e.Name, e.Min, e.Got)
	}
	return fmt.Sprintf("%d:%d: %q expects %d..=%d argument(s), got %d", e.Pos.Line, e.Pos.Column, e.Name, e.Min, e.Max, e.Got)
}

// TypeParameterNameClashError is returned when a generic function's type
// parameter name collides with an already-registered dimension.
type TypeParameterNameClashError struct {
	Name string
	Pos  scanner.Position
}

func (e *TypeParameterNameClashError) Error() string {
	return fmt.Sprintf("%d:%d: type parameter %q clashes with an existing dimension", e.Pos.Line, e.Pos.Column, e.Name)
}

// CanNotInferTypeParametersError is returned when a generic call leaves
// one or more type parameters unresolved after processing all arguments.
type CanNotInferTypeParametersError struct {
	Function string
	Missing  []string
	Pos      scanner.Position
}

func (e *CanNotInferTypeParametersError) Error() string {
	return fmt.Sprintf("%d:%d: cannot infer type parameter(s) %s of %q",
		e.Pos.Line, e.Pos.Column, strings.Join(e.Missing, ", "), e.Function)
}

// MultipleUnresolvedTypeParametersError is returned when a single
// parameter's substituted type still carries two or more unresolved type
// parameters.
type MultipleUnresolvedTypeParametersError struct {
	Pos scanner.Position
}

func (e *MultipleUnresolvedTypeParametersError) Error() string {
	return fmt.Sprintf("%d:%d: multiple unresolved type parameters in a single argument; reorder parameters so each introduces at most one", e.Pos.Line, e.Pos.Column)
}

// ForeignFunctionNeedsTypeAnnotationsError is returned when a foreign
// (bodyless) function declaration omits a parameter or return annotation.
type ForeignFunctionNeedsTypeAnnotationsError struct {
	Name string
	Pos  scanner.Position
}

func (e *ForeignFunctionNeedsTypeAnnotationsError) Error() string {
	return fmt.Sprintf("%d:%d: foreign function %q needs explicit parameter and return type annotations", e.Pos.Line, e.Pos.Column, e.Name)
}

// UnknownForeignFunctionError is returned when a foreign function
// declaration's name is not present in the FFI table.
type UnknownForeignFunctionError struct {
	Name string
	Pos  scanner.Position
}

func (e *UnknownForeignFunctionError) Error() string {
	return fmt.Sprintf("%d:%d: unknown foreign function %q", e.Pos.Line, e.Pos.Column, e.Name)
}
