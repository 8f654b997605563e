package parser

import (
	"fmt"

	"github.com/xplshn/tacc/pkg/ast"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/token"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
	diags    *diag.Reporter
}

// bailout unwinds the parser after the first syntax error
type bailout struct{}

// NewParser creates and initializes a new Parser from a token stream.
// Directive tokens are consumed while parsing and applied to cfg.
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	p := &Parser{tokens: tokens, pos: -1, cfg: cfg, diags: diag.NewReporter(diag.StageParser)}
	p.advance()
	return p
}

// Diagnostics returns the parser's reporter; it holds at most one error
func (p *Parser) Diagnostics() *diag.Reporter { return p.diags }

// Parse returns the program's top-level declarations. On a syntax error it
// stops and returns what was parsed so far.
func (p *Parser) Parse() (decls []*ast.Node) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
		}
	}()
	for !p.check(token.EOF) {
		decls = append(decls, p.parseDeclaration())
	}
	return decls
}

// Parser helpers
func (p *Parser) advance() {
	p.previous = p.current
	for p.pos+1 < len(p.tokens) {
		p.pos++
		p.current = p.tokens[p.pos]
		if p.current.Type != token.Directive {
			return
		}
		if p.cfg != nil {
			p.cfg.ProcessDirectiveFlags(p.current.Value)
		}
	}
}

func (p *Parser) peek(n int) token.Token {
	i := p.pos
	for n > 0 && i+1 < len(p.tokens) {
		i++
		if p.tokens[i].Type != token.Directive {
			n--
		}
	}
	return p.tokens[i]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.fail(p.current, "%s", message)
	return token.Token{}
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	if tok.Type == token.Illegal {
		p.diags.Errorf(diag.SyntaxError, tok, "Unexpected character: '%s'", tok.Value)
	} else {
		p.diags.Errorf(diag.SyntaxError, tok, format, args...)
	}
	panic(bailout{})
}

// Declarations

func (p *Parser) parseDeclaration() *ast.Node {
	nameTok := p.expect(token.Ident, "Expected a declaration.")
	p.expect(token.Colon, fmt.Sprintf("Expected ':' after '%s'.", nameTok.Value))
	typ := p.parseType()
	p.expect(token.Eq, "Expected '=' after the declared type.")
	init := p.parseExpr()
	p.expect(token.Semi, "Expected ';' after declaration.")

	if init.Type == ast.Function {
		return ast.NewFuncDecl(nameTok, nameTok.Value, typ, init)
	}
	return ast.NewVarDecl(nameTok, nameTok.Value, typ, init)
}

func (p *Parser) parseType() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Int):
		return ast.NewTypeSpec(tok, "int", nil)
	case p.match(token.Bool):
		return ast.NewTypeSpec(tok, "bool", nil)
	case p.match(token.LBracket):
		elem := p.parseType()
		p.expect(token.RBracket, "Expected ']' after array element type.")
		return ast.NewTypeSpec(tok, "array", elem)
	}
	p.fail(tok, "Expected a type.")
	return nil
}

// Statements

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.check(token.Ident) && p.peek(1).Type == token.Colon:
		return p.parseDeclaration()
	case p.match(token.If):
		cond := p.parseExpr()
		p.expect(token.Then, "Expected 'then' after if condition.")
		thenBody := p.parseStmt()
		var elseBody *ast.Node
		if p.match(token.Else) {
			elseBody = p.parseStmt()
		}
		return ast.NewIf(tok, cond, thenBody, elseBody)
	case p.match(token.While):
		cond := p.parseExpr()
		p.expect(token.Do, "Expected 'do' after while condition.")
		body := p.parseStmt()
		return ast.NewWhile(tok, cond, body)
	case p.match(token.Return):
		expr := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after return value.")
		return ast.NewReturn(tok, expr)
	case p.match(token.Break):
		p.expect(token.Semi, "Expected ';' after 'break'.")
		return ast.NewBreak(tok)
	case p.match(token.Continue):
		p.expect(token.Semi, "Expected ';' after 'continue'.")
		return ast.NewContinue(tok)
	case p.check(token.LBrace):
		return p.parseBlock()
	}
	expr := p.parseExpr()
	p.expect(token.Semi, "Expected ';' after expression.")
	return ast.NewExprStmt(tok, expr)
}

func (p *Parser) parseBlock() *ast.Node {
	tok := p.expect(token.LBrace, "Expected '{' to start a block.")
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "Expected '}' after block.")
	return ast.NewBlock(tok, stmts)
}

// Expression Parsing
func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash:
		return 6
	case token.Plus, token.Minus:
		return 5
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 4
	case token.EqEq, token.Neq:
		return 3
	case token.And:
		return 2
	case token.Or:
		return 1
	default:
		return -1
	}
}

func (p *Parser) parseExpr() *ast.Node {
	return p.parseAssignmentExpr()
}

func (p *Parser) parseAssignmentExpr() *ast.Node {
	left := p.parseBinaryExpr(1)
	if p.check(token.Define) {
		tok := p.current
		p.advance()
		right := p.parseAssignmentExpr()
		return ast.NewAssign(tok, left, right)
	}
	return left
}

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op)
		if prec < minPrec {
			break
		}
		opTok := p.current
		p.advance()
		right := p.parseBinaryExpr(prec + 1)
		left = ast.NewBinary(opTok, op, left, right)
	}
	return left
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	if p.match(token.Not) || p.match(token.Minus) || p.match(token.Plus) {
		operand := p.parseUnaryExpr()
		return ast.NewUnary(tok, tok.Type, operand)
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() *ast.Node {
	expr := p.parsePrimaryExpr()
	for {
		tok := p.current
		if p.match(token.LParen) {
			var args []*ast.Node
			if !p.check(token.RParen) {
				for {
					args = append(args, p.parseExpr())
					if !p.match(token.Comma) {
						break
					}
				}
			}
			p.expect(token.RParen, "Expected ')' after function arguments.")
			expr = ast.NewCall(tok, expr, args)
		} else if p.match(token.LBracket) {
			index := p.parseExpr()
			p.expect(token.RBracket, "Expected ']' after array index.")
			expr = ast.NewIndex(tok, expr, index)
		} else {
			break
		}
	}
	return expr
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		return ast.NewInteger(tok, tok.Value)
	case p.match(token.True):
		return ast.NewBoolean(tok, true)
	case p.match(token.False):
		return ast.NewBoolean(tok, false)
	case p.match(token.Ident):
		return ast.NewVariable(tok, tok.Value)
	case p.check(token.LParen) && p.isFunctionStart():
		return p.parseFunction()
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after expression.")
		return expr
	}
	p.fail(tok, "Expected an expression.")
	return nil
}

// isFunctionStart reports whether the '(' under the cursor opens a
// parameter list rather than a parenthesized expression.
func (p *Parser) isFunctionStart() bool {
	next := p.peek(1)
	if next.Type == token.RParen {
		return p.peek(2).Type == token.Arrow
	}
	return next.Type == token.Ident && p.peek(2).Type == token.Colon
}

func (p *Parser) parseFunction() *ast.Node {
	tok := p.expect(token.LParen, "Expected '(' to start a parameter list.")
	var params []*ast.Node
	if !p.check(token.RParen) {
		for {
			nameTok := p.expect(token.Ident, "Expected a parameter name.")
			p.expect(token.Colon, fmt.Sprintf("Expected ':' after parameter '%s'.", nameTok.Value))
			params = append(params, ast.NewParam(nameTok, nameTok.Value, p.parseType()))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after parameters.")
	p.expect(token.Arrow, "Expected '=>' after parameter list.")
	body := p.parseBlock()
	return ast.NewFunction(tok, params, body)
}
