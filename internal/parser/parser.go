// Package parser implements a recursive-descent parser producing the
// surface syntax tree in internal/ast from a internal/lexer token stream.
package parser

import (
	"fmt"
	"text/scanner"

	"github.com/gurre/dimcalc/internal/ast"
	"github.com/gurre/dimcalc/internal/lexer"
	"github.com/gurre/dimcalc/internal/token"
)

// SyntaxError reports a parse failure at a source position.
type SyntaxError struct {
	Pos     scanner.Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Parser consumes tokens from a Lexer and builds statements.
type Parser struct {
	lex *lexer.Lexer
}

// New returns a parser over the given source text.
func New(source string) (*Parser, error) {
	l, err := lexer.New(source)
	if err != nil {
		return nil, err
	}
	return &Parser{lex: l}, nil
}

// ParseProgram parses a whole program: zero or more statements, each
// optionally terminated by ';'.
func (p *Parser) ParseProgram() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for p.lex.Peek().Kind != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return stmts, err
		}
		stmts = append(stmts, stmt)
		for p.lex.Peek().Kind == token.Semi {
			p.lex.Next()
		}
	}
	return stmts, nil
}

func (p *Parser) peek() token.Token { return p.lex.Peek() }

func (p *Parser) next() token.Token { return p.lex.Next() }

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("expected %v, got %v", kind, tok)}
	}
	return p.next(), nil
}

func (p *Parser) expectIdent() (token.Token, error) {
	tok := p.peek()
	if tok.Kind != token.Identifier {
		return tok, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("expected identifier, got %v", tok)}
	}
	return p.next(), nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.peek().Kind {
	case token.KwLet:
		return p.parseLet()
	case token.KwDimension:
		return p.parseDimension()
	case token.KwUnit:
		return p.parseUnit()
	case token.KwFn:
		return p.parseFn()
	default:
		return p.parseExprOrProcCallStatement()
	}
}

func (p *Parser) parseExprOrProcCallStatement() (ast.Stmt, error) {
	pos := p.peek().Pos
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if call, ok := expr.(*ast.Call); ok {
		return &ast.ProcCallStmt{Callee: call.Callee, Args: call.Args, Position: pos}, nil
	}
	return &ast.ExprStmt{Expr: expr, Position: pos}, nil
}

func (p *Parser) parseLet() (ast.Stmt, error) {
	kw, _ := p.expect(token.KwLet)
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var annotation ast.DimensionExprNode
	if p.peek().Kind == token.Colon {
		p.next()
		annotation, err = p.parseDimensionExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Equal); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.LetStmt{Name: name.Value, Annotation: annotation, Value: value, Position: kw.Pos}, nil
}

func (p *Parser) parseDimension() (ast.Stmt, error) {
	kw, _ := p.expect(token.KwDimension)
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var expr ast.DimensionExprNode
	if p.peek().Kind == token.Equal {
		p.next()
		expr, err = p.parseDimensionExpr()
		if err != nil {
			return nil, err
		}
	}
	return &ast.DimensionStmt{Name: name.Value, Expr: expr, Position: kw.Pos}, nil
}

func (p *Parser) parseUnit() (ast.Stmt, error) {
	kw, _ := p.expect(token.KwUnit)
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt := &ast.UnitStmt{Name: name.Value, Position: kw.Pos}
	for p.peek().Kind == token.Comma {
		p.next()
		alias, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		stmt.Aliases = append(stmt.Aliases, alias.Value)
	}
	if p.peek().Kind == token.Colon {
		p.next()
		stmt.Annotation, err = p.parseDimensionExpr()
		if err != nil {
			return nil, err
		}
	}
	if p.peek().Kind == token.Equal {
		p.next()
		stmt.Value, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseFn() (ast.Stmt, error) {
	kw, _ := p.expect(token.KwFn)
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt := &ast.FnStmt{Name: name.Value, Position: kw.Pos}

	if p.peek().Kind == token.Less {
		p.next()
		for {
			tp, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			stmt.TypeParameters = append(stmt.TypeParameters, tp.Value)
			if p.peek().Kind == token.Comma {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(token.Greater); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	for p.peek().Kind != token.RParen {
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		ptype, err := p.parseDimensionExpr()
		if err != nil {
			return nil, err
		}
		stmt.Params = append(stmt.Params, ast.Param{Name: pname.Value, Type: ptype})
		if p.peek().Kind == token.Comma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	if p.peek().Kind == token.Arrow {
		p.next()
		stmt.ReturnType, err = p.parseDimensionExpr()
		if err != nil {
			return nil, err
		}
	}

	if p.peek().Kind == token.Equal {
		p.next()
		stmt.Body, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseDimensionExpr parses a dimension expression: a product/quotient of
// named dimensions (and the literal "1"), optionally raised to a power
// whose exponent is itself an expression (so const_eval can run on it).
func (p *Parser) parseDimensionExpr() (ast.DimensionExprNode, error) {
	left, err := p.parseDimensionPow()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case token.Star:
			p.next()
			right, err := p.parseDimensionPow()
			if err != nil {
				return nil, err
			}
			left = ast.MulDim{Left: left, Right: right}
		case token.Slash:
			p.next()
			right, err := p.parseDimensionPow()
			if err != nil {
				return nil, err
			}
			left = ast.DivDim{Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseDimensionPow() (ast.DimensionExprNode, error) {
	base, err := p.parseDimensionAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == token.Caret {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.PowDim{Base: base, Exponent: exp}, nil
	}
	return base, nil
}

func (p *Parser) parseDimensionAtom() (ast.DimensionExprNode, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.Number:
		p.next()
		if tok.Value != "1" {
			return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("expected dimension name or 1, got %q", tok.Value)}
		}
		return ast.UnityDim{}, nil
	case token.Identifier:
		p.next()
		return ast.NamedDim{Name: tok.Value}, nil
	case token.LParen:
		p.next()
		inner, err := p.parseDimensionExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("expected dimension expression, got %v", tok)}
	}
}

// --- value expressions ---

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseConvertTo()
}

func (p *Parser) parseConvertTo() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == token.Arrow {
		pos := p.next().Pos
		right, err := p.parseConvertTo() // right-associative
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: ast.ConvertTo, Left: left, Right: right, Position: pos}, nil
	}
	return left, nil
}

var comparisonOps = map[token.Kind]ast.BinaryOp{
	token.Less:      ast.Lt,
	token.Greater:    ast.Gt,
	token.LessEq:     ast.Le,
	token.GreaterEq:  ast.Ge,
	token.EqEq:       ast.Eq,
	token.NotEq:      ast.Ne,
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.peek().Kind]; ok {
		pos := p.next().Pos
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: op, Left: left, Right: right, Position: pos}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case token.Plus:
			pos := p.next().Pos
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: ast.Add, Left: left, Right: right, Position: pos}
		case token.Minus:
			pos := p.next().Pos
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: ast.Sub, Left: left, Right: right, Position: pos}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case token.Star:
			pos := p.next().Pos
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: ast.Mul, Left: left, Right: right, Position: pos}
		case token.Slash:
			pos := p.next().Pos
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: ast.Div, Left: left, Right: right, Position: pos}
		default:
			if p.atImplicitMultiplicand() {
				pos := p.peek().Pos
				right, err := p.parseUnary()
				if err != nil {
					return nil, err
				}
				left = &ast.Binary{Op: ast.Mul, Left: left, Right: right, Position: pos}
				continue
			}
			return left, nil
		}
	}
}

// atImplicitMultiplicand reports whether the upcoming token continues the
// current term as a juxtaposed factor, e.g. the "a" in "3 a" or the "b" in
// "2 a b". This only fires when the candidate token sits on the same
// source line as the token just consumed, so that a bare identifier
// starting the next newline-separated statement (no semicolon) is never
// mistaken for an implicit multiplication (e.g. "let x = 2\nx" must parse
// as two statements, not "2 * x").
func (p *Parser) atImplicitMultiplicand() bool {
	switch p.peek().Kind {
	case token.Number, token.Identifier, token.LParen:
	default:
		return false
	}
	prev := p.lex.Prev()
	return prev.Kind != token.EOF && prev.Pos.Line == p.peek().Pos.Line
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.peek().Kind == token.Minus {
		pos := p.next().Pos
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Negate{Operand: operand, Position: pos}, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (ast.Expr, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == token.Caret {
		pos := p.next().Pos
		exp, err := p.parseUnary() // right-associative, allows "x^-1"
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: ast.Power, Left: base, Right: exp, Position: pos}, nil
	}
	return base, nil
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == token.Bang {
		pos := p.next().Pos
		expr = &ast.Factorial{Operand: expr, Position: pos}
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.Number:
		p.next()
		var value float64
		if _, err := fmt.Sscanf(tok.Value, "%g", &value); err != nil {
			return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("invalid number %q", tok.Value)}
		}
		return &ast.ScalarLit{Value: value, Position: tok.Pos}, nil
	case token.String:
		p.next()
		return &ast.StringLit{Value: tok.Value, Position: tok.Pos}, nil
	case token.KwTrue:
		p.next()
		return &ast.BoolLit{Value: true, Position: tok.Pos}, nil
	case token.KwFalse:
		p.next()
		return &ast.BoolLit{Value: false, Position: tok.Pos}, nil
	case token.KwIf:
		return p.parseIf()
	case token.LParen:
		p.next()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return inner, nil
	case token.Identifier:
		p.next()
		if p.peek().Kind == token.LParen {
			return p.parseCallArgs(tok.Value, tok.Pos)
		}
		return &ast.Ident{Name: tok.Value, Position: tok.Pos}, nil
	default:
		return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected token %v", tok)}
	}
}

func (p *Parser) parseCallArgs(callee string, pos scanner.Position) (ast.Expr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for p.peek().Kind != token.RParen {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().Kind == token.Comma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return &ast.Call{Callee: callee, Args: args, Position: pos}, nil
}

func (p *Parser) parseIf() (ast.Expr, error) {
	kw, _ := p.expect(token.KwIf)
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwThen); err != nil {
		return nil, err
	}
	thenExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwElse); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.If{Cond: cond, Then: thenExpr, Else: elseExpr, Position: kw.Pos}, nil
}
