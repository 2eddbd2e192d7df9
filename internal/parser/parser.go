// Package parser implements the one-token-lookahead recursive-descent
// parser for the rule grammar in spec §4.2.
package parser

import (
	"tradedsl/internal/ast"
	"tradedsl/internal/lexer"
	"tradedsl/internal/langerr"
	"tradedsl/internal/token"
)

// Parser turns a token stream into a *ast.Program. Errors are
// reported by panicking with a *langerr.Error, caught at the Parse
// boundary — recovery mid-parse is not attempted, matching spec §4.2's
// "on mismatch ... terminates the pipeline".
type Parser struct {
	scanner *lexer.Scanner
	current token.Token
}

// New returns a Parser over source, having already primed the first
// lookahead token as spec §4.2 requires ("calls the scanner for the
// first token before any production").
func New(source string) *Parser {
	p := &Parser{scanner: lexer.New(source)}
	p.current = p.scanner.NextToken()
	return p
}

// Parse runs the program production and returns the resulting AST, or
// the first *langerr.Error encountered.
func (p *Parser) Parse() (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*langerr.Error); ok {
				prog, err = nil, e
				return
			}
			panic(r)
		}
	}()
	return p.program(), nil
}

func (p *Parser) program() *ast.Program {
	p.consume(token.Symbol, "Expected 'symbol' at beginning")
	if p.current.Type != token.String {
		p.fail("Expected string literal after 'symbol'")
	}
	symbol := p.current.Lexeme
	p.advance()

	var rules []ast.Rule
	for p.current.Type == token.If {
		rules = append(rules, p.rule())
	}

	if p.current.Type != token.EOF {
		p.fail("Expected end of input")
	}

	return &ast.Program{Symbol: symbol, Rules: rules}
}

func (p *Parser) rule() ast.Rule {
	p.advance() // consume 'if'
	cond := p.expression()
	p.consume(token.Then, "Expected 'then'")
	action := p.action()
	p.consume(token.End, "Expected 'end'")
	return ast.Rule{Condition: cond, Action: action}
}

func (p *Parser) action() ast.Stmt {
	var kind ast.StmtKind
	switch p.current.Type {
	case token.Buy:
		kind = ast.StmtBuy
	case token.Sell:
		kind = ast.StmtSell
	default:
		p.fail("Expected 'buy' or 'sell'")
	}
	p.advance()
	if p.current.Type != token.Number {
		p.fail("Expected number after action")
	}
	qty := int32(p.current.Value)
	p.advance()
	return ast.Stmt{Kind: kind, Qty: qty}
}

// expr := or
func (p *Parser) expression() ast.Expr {
	return p.or()
}

// or := and ("or" and)*
func (p *Parser) or() ast.Expr {
	left := p.and()
	for p.current.Type == token.Or {
		p.advance()
		right := p.and()
		left = &ast.Binary{Op: ast.LogicalOr, Left: left, Right: right}
	}
	return left
}

// and := not ("and" not)*
func (p *Parser) and() ast.Expr {
	left := p.not()
	for p.current.Type == token.And {
		p.advance()
		right := p.not()
		left = &ast.Binary{Op: ast.LogicalAnd, Left: left, Right: right}
	}
	return left
}

// not := "not" not | cmp
func (p *Parser) not() ast.Expr {
	if p.current.Type == token.Not {
		p.advance()
		return &ast.Unary{Op: ast.LogicalNot, Child: p.not()}
	}
	return p.cmp()
}

var comparators = map[token.Type]ast.BinaryOp{
	token.Greater: ast.Gt,
	token.Less:    ast.Lt,
	token.GE:      ast.Ge,
	token.LE:      ast.Le,
	token.EQ:      ast.Eq,
	token.NE:      ast.Ne,
}

// cmp := add (comparator add)?  -- non-associative: at most one comparator.
func (p *Parser) cmp() ast.Expr {
	left := p.add()
	if op, ok := comparators[p.current.Type]; ok {
		p.advance()
		right := p.add()
		return &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left
}

// add := mul (("+"|"-") mul)*
func (p *Parser) add() ast.Expr {
	left := p.mul()
	for p.current.Type == token.Plus || p.current.Type == token.Minus {
		op := ast.Add
		if p.current.Type == token.Minus {
			op = ast.Sub
		}
		p.advance()
		right := p.mul()
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left
}

// mul := primary (("*"|"/") primary)*
func (p *Parser) mul() ast.Expr {
	left := p.primary()
	for p.current.Type == token.Star || p.current.Type == token.Slash {
		op := ast.Mul
		if p.current.Type == token.Slash {
			op = ast.Div
		}
		p.advance()
		right := p.primary()
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left
}

// primary := NUMBER | STRING | IDENT ("(" args? ")")? | "(" expr ")"
func (p *Parser) primary() ast.Expr {
	tok := p.current
	switch tok.Type {
	case token.Number:
		p.advance()
		return &ast.Number{Value: tok.Value}
	case token.String:
		p.advance()
		return &ast.String{Text: tok.Lexeme}
	case token.Ident:
		p.advance()
		if p.current.Type == token.LParen {
			p.advance()
			args := p.args()
			p.consume(token.RParen, "Expected ')' after arguments")
			return &ast.Call{Name: tok.Lexeme, Args: args}
		}
		return &ast.Ident{Name: tok.Lexeme}
	case token.LParen:
		p.advance()
		e := p.expression()
		p.consume(token.RParen, "Expected ')'")
		return e
	}
	p.fail("Expected expression")
	return nil // unreachable, fail always panics
}

// args := expr ("," expr)*
func (p *Parser) args() []ast.Expr {
	var args []ast.Expr
	if p.current.Type == token.RParen {
		return args
	}
	for {
		args = append(args, p.expression())
		if p.current.Type != token.Comma {
			break
		}
		p.advance()
	}
	return args
}

func (p *Parser) advance() {
	p.current = p.scanner.NextToken()
}

func (p *Parser) consume(t token.Type, msg string) {
	if p.current.Type != t {
		p.fail(msg)
	}
	p.advance()
}

// fail reports msg against whatever token is current — including an
// Error token from the scanner, whose Lexeme carries the lexical
// fault text (e.g. "Unterminated string"), matching orig/parser.c's
// error(), which never special-cases TOK_ERROR. When the current
// token is a lex fault, the parse error's Cause chain carries the
// underlying lex error too, so -debug can print both.
func (p *Parser) fail(msg string) {
	err := langerr.NewParseError(msg, p.current.Lexeme)
	if p.current.Type == token.Error {
		err = langerr.Wrap(err, &langerr.Error{Phase: langerr.Lex, Message: p.current.Lexeme})
	}
	panic(err)
}
