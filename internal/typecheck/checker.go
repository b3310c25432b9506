// Package typecheck implements dimcalc's type checker: dimensional
// consistency checking, compile-time exponent evaluation, and generic
// dimension-parameter inference, per spec.md §4.3.
package typecheck

import (
	"fmt"
	"text/scanner"

	"github.com/gurre/dimcalc/internal/ast"
	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/ffi"
	"github.com/gurre/dimcalc/internal/prefix"
	"github.com/gurre/dimcalc/internal/rational"
	"github.com/gurre/dimcalc/internal/unitreg"
)

// FunctionSignature is a registered function's shape: its generic type
// parameters (if any), parameter types, variadic flag, and return type.
type FunctionSignature struct {
	Name           string
	TypeParameters []string
	ParamTypes     []Type
	IsVariadic     bool
	ReturnType     Type
	IsForeign      bool
}

// Checker holds the two identifier/signature tables plus the registries
// they are defined against (spec.md §4.3 "State").
type Checker struct {
	dimReg      *dimension.Registry
	unitReg     *unitreg.Registry
	ffi         *ffi.Table
	identifiers map[string]Type
	functions   map[string]FunctionSignature
}

// NewChecker returns a checker with the "last result" pseudo-identifiers
// ans and _ pre-bound to Scalar, per spec.md §9.
func NewChecker(dimReg *dimension.Registry, unitReg *unitreg.Registry, ffiTable *ffi.Table) *Checker {
	return &Checker{
		dimReg:  dimReg,
		unitReg: unitReg,
		ffi:     ffiTable,
		identifiers: map[string]Type{
			"ans": Scalar,
			"_":   Scalar,
		},
		functions: make(map[string]FunctionSignature),
	}
}

// clone returns a checker for checking a generic function's body: the
// dimension registry is deep-copied (so synthetic type-parameter
// dimensions never leak to the caller) and the identifier table is
// copied (so parameter bindings don't leak), while the unit registry and
// function-signature table are shared (spec.md §9's scoping rule).
func (c *Checker) clone() *Checker {
	identifiers := make(map[string]Type, len(c.identifiers))
	for name, t := range c.identifiers {
		identifiers[name] = t
	}
	return &Checker{
		dimReg:      c.dimReg.Clone(),
		unitReg:     c.unitReg,
		ffi:         c.ffi,
		identifiers: identifiers,
		functions:   c.functions,
	}
}

// RegisterFunction seeds a function signature directly, bypassing the
// fn-statement surface syntax. This is how a prelude bootstraps FFI
// functions whose shape the parser's "fn" grammar cannot express, e.g.
// variadic signatures such as mean's "one parameter type repeated to
// match args.len()" (spec.md §4.3.2 step 1).
func (c *Checker) RegisterFunction(sig FunctionSignature) error {
	if _, exists := c.functions[sig.Name]; exists {
		return fmt.Errorf("typecheck: function %q already registered", sig.Name)
	}
	c.functions[sig.Name] = sig
	return nil
}

// Identifiers exposes the current name -> Type bindings, for collaborators
// (tests, a REPL host) that need to know what is in scope after checking a
// program.
func (c *Checker) Identifiers() map[string]Type {
	return c.identifiers
}

// Functions exposes the current function-signature table.
func (c *Checker) Functions() map[string]FunctionSignature {
	return c.functions
}

// DimensionRegistry exposes the dimension registry the checker consults.
func (c *Checker) DimensionRegistry() *dimension.Registry { return c.dimReg }

// UnitRegistry exposes the unit registry the checker consults.
func (c *Checker) UnitRegistry() *unitreg.Registry { return c.unitReg }

func (c *Checker) knownNames() []string {
	names := make([]string, 0, len(c.identifiers))
	for name := range c.identifiers {
		names = append(names, name)
	}
	return names
}

// Check type-checks every statement in order, threading bindings forward.
// It returns every error encountered, wrapped in a multierror, rather than
// stopping at the first: later independent top-level declarations are
// still worth reporting in one pass (a batch-tooling convenience; runtime
// execution itself remains fail-fast per spec.md §7, since the compiler
// and VM only ever see one statement's worth of typed output at a time).
func (c *Checker) Check(stmts []ast.Stmt) error {
	var errs []error
	for _, stmt := range stmts {
		if err := c.CheckStatement(stmt); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// CheckStatement type-checks a single statement, applying its bindings to
// c on success.
func (c *Checker) CheckStatement(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		t, err := c.CheckExpr(s.Expr)
		if err != nil {
			return err
		}
		c.identifiers["ans"] = t
		c.identifiers["_"] = t
		return nil

	case *ast.LetStmt:
		t, err := c.CheckExpr(s.Value)
		if err != nil {
			return err
		}
		if s.Annotation != nil {
			annotated, err := c.evalDimensionExpr(s.Annotation)
			if err != nil {
				return err
			}
			if !annotated.Equal(t) {
				return &IncompatibleDimensionsError{Operation: "variable definition", Expected: annotated, Actual: t, Pos: s.Pos()}
			}
		}
		c.identifiers[s.Name] = t
		return nil

	case *ast.DimensionStmt:
		if s.Expr == nil {
			if err := c.dimReg.AddBaseDimension(s.Name); err != nil {
				return &RegistryError{Inner: err, Pos: s.Pos()}
			}
			return nil
		}
		expr, err := c.toDimensionExpression(s.Expr)
		if err != nil {
			return err
		}
		if err := c.dimReg.AddDerivedDimension(s.Name, expr); err != nil {
			return &RegistryError{Inner: err, Pos: s.Pos()}
		}
		return nil

	case *ast.UnitStmt:
		return c.checkUnitStmt(s)

	case *ast.FnStmt:
		return c.checkFnStmt(s)

	case *ast.ProcCallStmt:
		return c.checkProcCall(s)

	default:
		return fmt.Errorf("typecheck: unhandled statement type %T", stmt)
	}
}

func (c *Checker) checkUnitStmt(s *ast.UnitStmt) error {
	names := append([]string{s.Name}, s.Aliases...)

	if s.Value == nil {
		var dim dimension.BaseRep
		if s.Annotation != nil {
			var err error
			dim, err = c.evalDimensionRep(s.Annotation)
			if err != nil {
				return err
			}
		} else {
			// Invent a new base dimension from the unit name, per spec.md
			// §4.3's "Define base unit" rule.
			if err := c.dimReg.AddBaseDimension(s.Name); err != nil {
				return &RegistryError{Inner: err, Pos: s.Pos()}
			}
			dim, _ = c.dimReg.BaseRepresentationOf(s.Name)
		}
		if err := c.unitReg.AddBaseUnit(s.Name, dim, s.Aliases...); err != nil {
			return &RegistryError{Inner: err, Pos: s.Pos()}
		}
		c.bindUnitNames(names, DimensionType(dim))
		return nil
	}

	t, err := c.CheckExpr(s.Value)
	if err != nil {
		return err
	}
	if s.Annotation != nil {
		annotated, err := c.evalDimensionExpr(s.Annotation)
		if err != nil {
			return err
		}
		if !annotated.Equal(t) {
			return &IncompatibleDimensionsError{Operation: "unit definition", Expected: annotated, Actual: t, Pos: s.Pos()}
		}
	}
	expr, err := c.toUnitExpression(s.Value)
	if err != nil {
		return err
	}
	if err := c.unitReg.AddDerivedUnit(s.Name, expr, s.Aliases...); err != nil {
		return &RegistryError{Inner: err, Pos: s.Pos()}
	}
	c.bindUnitNames(names, t)
	return nil
}

// bindUnitNames binds every declared alias's unprefixed form, and every
// prefix.Table spelling of each alias, to typ, per spec.md §4.3's
// "identifiers ... with every declared prefix form pre-inserted".
func (c *Checker) bindUnitNames(names []string, typ Type) {
	for _, name := range names {
		c.identifiers[name] = typ
		for _, entry := range prefix.Table {
			c.identifiers[entry.Long+name] = typ
			c.identifiers[entry.Short+name] = typ
		}
	}
}

func (c *Checker) checkFnStmt(s *ast.FnStmt) error {
	body := c.clone()

	for _, tp := range s.TypeParameters {
		if body.dimReg.Has(tp) {
			return &TypeParameterNameClashError{Name: tp, Pos: s.Pos()}
		}
		if err := body.dimReg.AddBaseDimension(tp); err != nil {
			return &RegistryError{Inner: err, Pos: s.Pos()}
		}
	}

	sig := FunctionSignature{Name: s.Name, TypeParameters: s.TypeParameters}

	paramAnnotated := true
	for _, param := range s.Params {
		if param.Type == nil {
			paramAnnotated = false
			continue
		}
		rep, err := body.evalDimensionRep(param.Type)
		if err != nil {
			return err
		}
		sig.ParamTypes = append(sig.ParamTypes, DimensionType(rep))
		body.identifiers[param.Name] = DimensionType(rep)
	}

	var declaredReturn *Type
	if s.ReturnType != nil {
		rep, err := body.evalDimensionRep(s.ReturnType)
		if err != nil {
			return err
		}
		t := DimensionType(rep)
		declaredReturn = &t
	}

	if s.Body == nil {
		// Foreign function: both parameter and return annotations are
		// required, and the name must be a registered FFI function.
		if !paramAnnotated || declaredReturn == nil {
			return &ForeignFunctionNeedsTypeAnnotationsError{Name: s.Name, Pos: s.Pos()}
		}
		if !c.ffi.HasFunction(s.Name) {
			return &UnknownForeignFunctionError{Name: s.Name, Pos: s.Pos()}
		}
		sig.ReturnType = *declaredReturn
		sig.IsForeign = true
		c.functions[s.Name] = sig
		return nil
	}

	bodyType, err := body.CheckExpr(s.Body)
	if err != nil {
		return err
	}
	if declaredReturn != nil && !declaredReturn.Equal(bodyType) {
		return &IncompatibleDimensionsError{Operation: "function return", Expected: *declaredReturn, Actual: bodyType, Pos: s.Pos()}
	}
	if declaredReturn != nil {
		sig.ReturnType = *declaredReturn
	} else {
		sig.ReturnType = bodyType
	}
	c.functions[s.Name] = sig
	return nil
}

// checkProcCall handles a bare call used as a statement. The parser cannot
// tell a procedure call (print, assert_eq, type) from an ordinary function
// call used for its result (e.g. f(3 a) typed at the REPL) — both are the
// same surface syntax — so that distinction is made here: an FFI procedure
// name is checked against its arity range, while anything else falls back
// to ordinary expression-statement checking so the "last result" pseudo
// identifiers still get bound.
func (c *Checker) checkProcCall(s *ast.ProcCallStmt) error {
	entry, ok := c.ffi.Procedure(s.Callee)
	if !ok {
		t, err := c.CheckExpr(&ast.Call{Callee: s.Callee, Args: s.Args, Position: s.Position})
		if err != nil {
			return err
		}
		c.identifiers["ans"] = t
		c.identifiers["_"] = t
		return nil
	}
	if !entry.Arity.Accepts(len(s.Args)) {
		return &WrongArityError{Name: s.Callee, Min: entry.Arity.Min, Max: entry.Arity.Max, Got: len(s.Args), Pos: s.Pos()}
	}
	var argTypes []Type
	for _, arg := range s.Args {
		if _, isString := arg.(*ast.StringLit); isString {
			argTypes = append(argTypes, StringType)
			continue
		}
		t, err := c.CheckExpr(arg)
		if err != nil {
			return err
		}
		argTypes = append(argTypes, t)
	}
	if s.Callee == "assert_eq" && len(argTypes) >= 2 {
		if !argTypes[0].Equal(argTypes[1]) {
			return &IncompatibleDimensionsError{Operation: "assert_eq", Expected: argTypes[0], Actual: argTypes[1], Pos: s.Pos()}
		}
		if len(argTypes) == 3 && !argTypes[2].IsScalar() {
			return &NonScalarExponentError{Pos: s.Pos()}
		}
	}
	return nil
}

// CheckExpr type-checks expr and returns its Type, per spec.md §4.3's
// expression rules.
func (c *Checker) CheckExpr(expr ast.Expr) (Type, error) {
	switch e := expr.(type) {
	case *ast.ScalarLit:
		return Scalar, nil

	case *ast.BoolLit:
		return Boolean, nil

	case *ast.StringLit:
		return StringType, nil

	case *ast.Ident:
		if t, ok := c.identifiers[e.Name]; ok {
			return t, nil
		}
		return Type{}, &UnknownIdentifierError{Name: e.Name, Suggestion: suggest(e.Name, c.knownNames()), Pos: e.Pos()}

	case *ast.Negate:
		return c.CheckExpr(e.Operand)

	case *ast.Factorial:
		t, err := c.CheckExpr(e.Operand)
		if err != nil {
			return Type{}, err
		}
		if !t.IsScalar() {
			return Type{}, &NonScalarFactorialArgumentError{Pos: e.Pos()}
		}
		return Scalar, nil

	case *ast.Binary:
		return c.checkBinary(e)

	case *ast.If:
		condType, err := c.CheckExpr(e.Cond)
		if err != nil {
			return Type{}, err
		}
		if !condType.Equal(Boolean) {
			return Type{}, &IncompatibleDimensionsError{Operation: "if condition", Expected: Boolean, Actual: condType, Pos: e.Pos()}
		}
		thenType, err := c.CheckExpr(e.Then)
		if err != nil {
			return Type{}, err
		}
		elseType, err := c.CheckExpr(e.Else)
		if err != nil {
			return Type{}, err
		}
		if !thenType.Equal(elseType) {
			return Type{}, &IncompatibleDimensionsError{Operation: "if branches", Expected: thenType, Actual: elseType, Pos: e.Pos()}
		}
		return thenType, nil

	case *ast.Call:
		return c.checkCall(e)

	default:
		return Type{}, fmt.Errorf("typecheck: unhandled expression type %T", expr)
	}
}

var comparisonOps = map[ast.BinaryOp]bool{
	ast.Lt: true, ast.Gt: true, ast.Le: true, ast.Ge: true, ast.Eq: true, ast.Ne: true,
}

func (c *Checker) checkBinary(e *ast.Binary) (Type, error) {
	left, err := c.CheckExpr(e.Left)
	if err != nil {
		return Type{}, err
	}
	right, err := c.CheckExpr(e.Right)
	if err != nil {
		return Type{}, err
	}

	switch e.Op {
	case ast.Add, ast.Sub, ast.ConvertTo:
		if !left.Equal(right) {
			return Type{}, &IncompatibleDimensionsError{Operation: opName(e.Op), Expected: left, Actual: right, Pos: e.Pos()}
		}
		return left, nil

	case ast.Mul:
		return left.Multiply(right), nil

	case ast.Div:
		return left.Divide(right), nil

	case ast.Power:
		if !right.IsScalar() {
			return Type{}, &NonScalarExponentError{Pos: e.Pos()}
		}
		if left.IsScalar() {
			// Arbitrary real exponents permitted on scalars; the runtime
			// handles evaluation.
			return Scalar, nil
		}
		r, err := constEval(e.Right)
		if err != nil {
			return Type{}, err
		}
		return left.Power(r), nil

	default:
		if comparisonOps[e.Op] {
			if !left.Equal(right) {
				return Type{}, &IncompatibleDimensionsError{Operation: opName(e.Op), Expected: left, Actual: right, Pos: e.Pos()}
			}
			return Boolean, nil
		}
		return Type{}, fmt.Errorf("typecheck: unhandled binary operator %v", e.Op)
	}
}

func opName(op ast.BinaryOp) string {
	switch op {
	case ast.Add:
		return "addition"
	case ast.Sub:
		return "subtraction"
	case ast.ConvertTo:
		return "convert_to"
	default:
		return op.String()
	}
}

func (c *Checker) checkCall(call *ast.Call) (Type, error) {
	sig, ok := c.functions[call.Callee]
	if !ok {
		return Type{}, &UnknownCallableError{Name: call.Callee, Pos: call.Pos()}
	}

	if sig.IsVariadic {
		if len(call.Args) == 0 {
			return Type{}, &WrongArityError{Name: sig.Name, Min: 1, Max: -1, Got: 0, Pos: call.Pos()}
		}
	} else if len(call.Args) != len(sig.ParamTypes) {
		return Type{}, &WrongArityError{Name: sig.Name, Min: len(sig.ParamTypes), Max: len(sig.ParamTypes), Got: len(call.Args), Pos: call.Pos()}
	}

	argTypes := make([]Type, len(call.Args))
	for i, a := range call.Args {
		t, err := c.CheckExpr(a)
		if err != nil {
			return Type{}, err
		}
		argTypes[i] = t
	}

	return c.inferCall(sig, argTypes, call.Pos())
}

// inferCall implements spec.md §4.3.2's single-unknown-exponent
// unification for generic function calls.
func (c *Checker) inferCall(sig FunctionSignature, argTypes []Type, pos scanner.Position) (Type, error) {
	typeParamSet := make(map[string]bool, len(sig.TypeParameters))
	for _, tp := range sig.TypeParameters {
		typeParamSet[tp] = true
	}
	sigma := make(map[string]dimension.BaseRep)

	paramTypes := sig.ParamTypes
	if sig.IsVariadic && len(paramTypes) == 1 {
		repeated := make([]Type, len(argTypes))
		for i := range repeated {
			repeated[i] = paramTypes[0]
		}
		paramTypes = repeated
	}

	for i, pi := range paramTypes {
		ai := argTypes[i]
		applied := substitute(pi.Dim, sigma)
		unresolved := unresolvedFactors(applied, typeParamSet, sigma)

		switch len(unresolved) {
		case 0:
			if !DimensionType(applied).Equal(ai) {
				return Type{}, &IncompatibleDimensionsError{
					Operation: fmt.Sprintf("argument %d of %s", i+1, sig.Name),
					Expected:  DimensionType(applied),
					Actual:    ai,
					Pos:       pos,
				}
			}
		case 1:
			factor := unresolved[0]
			rest := applied.Divide(dimension.BaseRep{factor.Name: factor.Exponent})
			value := ai.Dim.Divide(rest)
			invAlpha := rational.One.Div(factor.Exponent)
			sigma[factor.Name] = value.Power(invAlpha)

			reapplied := substitute(pi.Dim, sigma)
			if !DimensionType(reapplied).Equal(ai) {
				return Type{}, &IncompatibleDimensionsError{
					Operation: fmt.Sprintf("argument %d of %s", i+1, sig.Name),
					Expected:  DimensionType(reapplied),
					Actual:    ai,
					Pos:       pos,
				}
			}
		default:
			return Type{}, &MultipleUnresolvedTypeParametersError{Pos: pos}
		}
	}

	var missing []string
	for _, tp := range sig.TypeParameters {
		if _, ok := sigma[tp]; !ok {
			missing = append(missing, tp)
		}
	}
	if len(missing) > 0 {
		return Type{}, &CanNotInferTypeParametersError{Function: sig.Name, Missing: missing, Pos: pos}
	}

	if sig.ReturnType.Kind == BooleanKind {
		return Boolean, nil
	}
	return DimensionType(substitute(sig.ReturnType.Dim, sigma)), nil
}

// substitute applies sigma (type-parameter name -> resolved BaseRep) to
// rep, replacing every factor whose name sigma knows with that
// substitution raised to the factor's exponent.
func substitute(rep dimension.BaseRep, sigma map[string]dimension.BaseRep) dimension.BaseRep {
	out := dimension.Empty()
	for _, f := range rep.Iter() {
		if sub, ok := sigma[f.Name]; ok {
			out = out.Multiply(sub.Power(f.Exponent))
		} else {
			out = out.Multiply(dimension.BaseRep{f.Name: f.Exponent})
		}
	}
	return out
}

// unresolvedFactors returns the factors of rep whose base name is a type
// parameter not yet present in sigma.
func unresolvedFactors(rep dimension.BaseRep, typeParams map[string]bool, sigma map[string]dimension.BaseRep) []dimension.Factor {
	var out []dimension.Factor
	for _, f := range rep.Iter() {
		if !typeParams[f.Name] {
			continue
		}
		if _, ok := sigma[f.Name]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// evalDimensionExpr evaluates a surface dimension expression to a Type.
func (c *Checker) evalDimensionExpr(expr ast.DimensionExprNode) (Type, error) {
	rep, err := c.evalDimensionRep(expr)
	if err != nil {
		return Type{}, err
	}
	return DimensionType(rep), nil
}

func (c *Checker) evalDimensionRep(expr ast.DimensionExprNode) (dimension.BaseRep, error) {
	converted, err := c.toDimensionExpression(expr)
	if err != nil {
		return nil, err
	}
	rep, err := c.dimReg.Evaluate(converted)
	if err != nil {
		return nil, &RegistryError{Inner: err}
	}
	return rep, nil
}

// toDimensionExpression converts a surface ast.DimensionExprNode (whose
// PowDim exponent is an ast.Expr needing const-eval) into a
// dimension.Expression the registry can evaluate directly.
func (c *Checker) toDimensionExpression(node ast.DimensionExprNode) (dimension.Expression, error) {
	switch n := node.(type) {
	case ast.UnityDim:
		return dimension.UnityExpr{}, nil
	case ast.NamedDim:
		return dimension.NamedExpr{Name: n.Name}, nil
	case ast.MulDim:
		left, err := c.toDimensionExpression(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.toDimensionExpression(n.Right)
		if err != nil {
			return nil, err
		}
		return dimension.MulExpr{Left: left, Right: right}, nil
	case ast.DivDim:
		left, err := c.toDimensionExpression(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.toDimensionExpression(n.Right)
		if err != nil {
			return nil, err
		}
		return dimension.DivExpr{Left: left, Right: right}, nil
	case ast.PowDim:
		base, err := c.toDimensionExpression(n.Base)
		if err != nil {
			return nil, err
		}
		exp, err := constEval(n.Exponent)
		if err != nil {
			return nil, err
		}
		return dimension.PowExpr{Base: base, Exponent: exp}, nil
	default:
		return nil, fmt.Errorf("typecheck: unhandled dimension expression %T", node)
	}
}

// toUnitExpression converts a typed-checked value expression used as a
// unit's defining quantity (e.g. the "1000 * meter" in "unit km = 1000 *
// meter") into a unitreg.Expression. Only the shapes a defining quantity
// may take are supported: scalars, named unit references, and
// multiply/divide/power composition.
func (c *Checker) toUnitExpression(expr ast.Expr) (unitreg.Expression, error) {
	switch e := expr.(type) {
	case *ast.ScalarLit:
		return unitreg.ScalarExpr{Value: e.Value}, nil
	case *ast.Ident:
		return unitreg.NamedExpr{Name: e.Name}, nil
	case *ast.Negate:
		inner, err := c.toUnitExpression(e.Operand)
		if err != nil {
			return nil, err
		}
		return unitreg.MulExpr{Left: unitreg.ScalarExpr{Value: -1}, Right: inner}, nil
	case *ast.Binary:
		switch e.Op {
		case ast.Mul:
			left, err := c.toUnitExpression(e.Left)
			if err != nil {
				return nil, err
			}
			right, err := c.toUnitExpression(e.Right)
			if err != nil {
				return nil, err
			}
			return unitreg.MulExpr{Left: left, Right: right}, nil
		case ast.Div:
			left, err := c.toUnitExpression(e.Left)
			if err != nil {
				return nil, err
			}
			right, err := c.toUnitExpression(e.Right)
			if err != nil {
				return nil, err
			}
			return unitreg.DivExpr{Left: left, Right: right}, nil
		case ast.Power:
			base, err := c.toUnitExpression(e.Left)
			if err != nil {
				return nil, err
			}
			exp, err := constEval(e.Right)
			if err != nil {
				return nil, err
			}
			return unitreg.PowExpr{Base: base, Exponent: exp}, nil
		}
	}
	return nil, &UnsupportedConstEvalExpressionError{Kind: "unit defining expression", Pos: expr.Pos()}
}
