// Package parser implements the Indu language parser.
//
// The parser is responsible for converting a stream of tokens (from the
// lexer) into an Abstract Syntax Tree (AST). It performs syntactic
// analysis to ensure the code follows the grammar rules of the Indu
// language.
//
// Parser Architecture:
//
// The parser uses a recursive descent strategy with precedence climbing
// for expressions:
//  1. Each grammar rule corresponds to a parsing method
//  2. The parser inspects the current token (via cur/check) to decide what to parse
//  3. Methods call each other recursively to handle nested structures
//
// Unlike a streaming parser, this one is handed the complete token slice
// produced by lexer.Scan up front and walks it with an index. This keeps
// lookahead trivial (the current token is just tokens[pos]) at the cost of holding
// the whole token stream in memory — a fine trade for a language with no
// expectation of multi-megabyte source files.
//
// Grammar Overview (Simplified):
//
//	Program     := Statement* EOF
//	Statement   := VarStmt | If | While | For | Function | Return
//	             | Print | Block | ExpressionStmt
//	VarStmt     := "var" IDENT "=" Expression
//	If          := "if" Expression Block ("else" (If | Block))?
//	While       := "while" Expression Block
//	For         := "for" "var" IDENT "=" Expression "," Expression ","
//	               Expression Block
//	Function    := "fun" IDENT "(" Params? ")" Block
//	Return      := "return" Expression
//	Print       := "print" Expression
//	Block       := "{" Statement* "}"
//	Expression  := Assignment
//	Assignment  := IDENT "=" Assignment | LogicOr
//	LogicOr     := LogicAnd ("or" LogicAnd)*
//	LogicAnd    := Equality ("and" Equality)*
//	Equality    := Comparison (("==" | "!=") Comparison)*
//	Comparison  := Term ((">" | ">=" | "<" | "<=") Term)*
//	Term        := Factor (("+" | "-") Factor)*
//	Factor      := Unary (("*" | "/") Unary)*
//	Unary       := ("!" | "-" | "+") Unary | Call
//	Call        := Primary ("(" Arguments? ")")*
//	Primary     := NUMBER | STRING | "true" | "false" | "nil"
//	             | IDENT | "(" Expression ")"
//
// Statement Terminators:
//
// Indu has none. A statement ends wherever its keyword's production or a
// block's closing brace says it ends; the expression grammar is
// unambiguous about where an expression stops (it never needs to look
// past the end of what it can consume), so two statements can sit
// side by side separated only by whitespace, e.g. `print i  i = i + 1`.
// `;` is still a valid lexical token — a stray one simply fails to start
// any statement production and surfaces as a ParserError rather than
// being silently accepted or skipped.
//
// Error Handling:
//
// The parser fails fast: on the first syntax error it returns immediately
// rather than attempting to resynchronize and keep collecting further
// errors. A single precise error beats a cascade of follow-on noise.
package parser

import (
	"fmt"

	"github.com/kristofer/indu/pkg/ast"
	"github.com/kristofer/indu/pkg/ierr"
	"github.com/kristofer/indu/pkg/lexer"
	"github.com/kristofer/indu/pkg/token"
)

// Parser holds the full token stream for one source file and a cursor
// into it. Create a new Parser for each source file or REPL line.
type Parser struct {
	tokens []token.Token
	pos    int
}

// Parse scans and parses source in one step.
func Parse(source string) (*ast.Program, error) {
	tokens, err := lexer.Scan(source)
	if err != nil {
		if lexErr, ok := err.(*lexer.LexerError); ok {
			pos := lexErr.Position
			return nil, ierr.New(ierr.Lexer, lexErr.Message, &pos)
		}
		return nil, ierr.New(ierr.Lexer, err.Error(), nil)
	}
	return New(tokens).Parse()
}

// New creates a Parser over an already-scanned token stream.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the token stream into a Program, stopping at the first
// syntax error.
func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}
	for !p.isAtEnd() {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}
	return program, nil
}

// --- token cursor -----------------------------------------------------

func (p *Parser) cur() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) isAtEnd() bool {
	return p.cur().Kind == token.EOF
}

func (p *Parser) check(kind token.Kind) bool {
	return p.cur().Kind == kind
}

func (p *Parser) advance() token.Token {
	tok := p.cur()
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}

// match advances and returns true if the current token is one of kinds.
func (p *Parser) match(kinds ...token.Kind) bool {
	for _, kind := range kinds {
		if p.check(kind) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes the current token if it has the given kind, otherwise
// returns a ParserError naming what was expected.
func (p *Parser) expect(kind token.Kind, context string) (token.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	pos := p.cur().Position
	return token.Token{}, ierr.New(ierr.Parser,
		fmt.Sprintf("Expected %s %s but found '%s'.", kind, context, p.cur().Lexeme),
		&pos)
}

// --- statements ---------------------------------------------------------

func (p *Parser) statement() (ast.Statement, error) {
	switch {
	case p.check(token.Var):
		return p.varStatement()
	case p.check(token.If):
		return p.ifStatement()
	case p.check(token.While):
		return p.whileStatement()
	case p.check(token.For):
		return p.forStatement()
	case p.check(token.Fun):
		return p.functionStatement()
	case p.check(token.Return):
		return p.returnStatement()
	case p.check(token.Print):
		return p.printStatement()
	case p.check(token.LeftBrace):
		return p.block()
	default:
		return p.expressionStatement()
	}
}

// varStatement parses `var NAME = initializer`. The initializer is
// mandatory: Indu has no notion of an uninitialized binding, and there
// is no trailing terminator to consume.
func (p *Parser) varStatement() (ast.Statement, error) {
	p.advance() // 'var'
	name, err := p.expect(token.Identifier, "as variable name after 'var'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign, "after variable name in 'var' declaration"); err != nil {
		return nil, err
	}
	init, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.VarStatement{Name: name.Lexeme, NamePos: name.Position, Initializer: init}, nil
}

func (p *Parser) ifStatement() (ast.Statement, error) {
	kw := p.advance() // 'if'
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}
	node := &ast.If{KeywordPos: kw.Position, Condition: cond, Then: then}
	if p.match(token.Else) {
		if p.check(token.If) {
			elseIf, err := p.ifStatement()
			if err != nil {
				return nil, err
			}
			node.Else = elseIf.(*ast.If)
		} else {
			elseBlock, err := p.block()
			if err != nil {
				return nil, err
			}
			node.Else = elseBlock
		}
	}
	return node, nil
}

func (p *Parser) whileStatement() (ast.Statement, error) {
	kw := p.advance() // 'while'
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.While{KeywordPos: kw.Position, Condition: cond, Body: body}, nil
}

// forStatement parses `for var IDENT = init , cond , step body` and
// desugars it to
//
//	Block{ var IDENT = init, While{ cond, Block{ body..., step } } }
//
// so the compiler and VM never need to know `for` exists as a distinct
// construct.
func (p *Parser) forStatement() (ast.Statement, error) {
	kw := p.advance() // 'for'

	if !p.check(token.Var) {
		pos := p.cur().Position
		return nil, ierr.New(ierr.Parser, "Expected 'var' to begin a 'for' initializer.", &pos)
	}
	initStmt, err := p.varStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma, "after 'for' initializer"); err != nil {
		return nil, err
	}

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma, "after 'for' condition"); err != nil {
		return nil, err
	}

	step, err := p.expression()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	loopBody := &ast.Block{
		Statements: append(append([]ast.Statement{}, body.Statements...), &ast.ExpressionStatement{Expr: step}),
	}
	whileLoop := &ast.While{KeywordPos: kw.Position, Condition: cond, Body: loopBody}
	return &ast.Block{Statements: []ast.Statement{initStmt, whileLoop}}, nil
}

func (p *Parser) functionStatement() (ast.Statement, error) {
	p.advance() // 'fun'
	name, err := p.expect(token.Identifier, "as function name after 'fun'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LeftParen, "after function name"); err != nil {
		return nil, err
	}
	var params []token.Token
	if !p.check(token.RightParen) {
		for {
			param, err := p.expect(token.Identifier, "as parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if _, err := p.expect(token.RightParen, "after parameters"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.Function{Name: name.Lexeme, NamePos: name.Position, Params: params, Body: body}, nil
}

func (p *Parser) returnStatement() (ast.Statement, error) {
	kw := p.advance() // 'return'
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.Return{KeywordPos: kw.Position, Value: value}, nil
}

func (p *Parser) printStatement() (ast.Statement, error) {
	kw := p.advance() // 'print'
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.Print{KeywordPos: kw.Position, Value: value}, nil
}

func (p *Parser) expressionStatement() (ast.Statement, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Expr: expr}, nil
}

func (p *Parser) block() (*ast.Block, error) {
	if _, err := p.expect(token.LeftBrace, "to start a block"); err != nil {
		return nil, err
	}
	b := &ast.Block{}
	for !p.check(token.RightBrace) && !p.isAtEnd() {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		b.Statements = append(b.Statements, stmt)
	}
	if _, err := p.expect(token.RightBrace, "to close a block"); err != nil {
		return nil, err
	}
	return b, nil
}

// --- expressions (precedence climbing, lowest to highest) -------------

func (p *Parser) expression() (ast.Expression, error) {
	return p.assignment()
}

func (p *Parser) assignment() (ast.Expression, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.check(token.Assign) {
		eq := p.advance()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		variable, ok := expr.(*ast.Variable)
		if !ok {
			return nil, ierr.New(ierr.Parser, "Invalid assignment target.", &eq.Position)
		}
		return &ast.Assignment{Name: variable.Name, Tok: variable.Tok, Value: value}, nil
	}
	return expr, nil
}

func (p *Parser) or() (ast.Expression, error) {
	expr, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.check(token.Or) {
		op := p.advance()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) and() (ast.Expression, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.check(token.And) {
		op := p.advance()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) equality() (ast.Expression, error) {
	expr, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.check(token.Equal) || p.check(token.BangEqual) {
		op := p.advance()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) comparison() (ast.Expression, error) {
	expr, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.check(token.Greater) || p.check(token.GreaterEqual) || p.check(token.Less) || p.check(token.LessEqual) {
		op := p.advance()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) term() (ast.Expression, error) {
	expr, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.check(token.Plus) || p.check(token.Minus) {
		op := p.advance()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) factor() (ast.Expression, error) {
	expr, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.check(token.Star) || p.check(token.Slash) {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) unary() (ast.Expression, error) {
	if p.check(token.Bang) || p.check(token.Minus) || p.check(token.Plus) {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op, Right: right}, nil
	}
	return p.call()
}

func (p *Parser) call() (ast.Expression, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.check(token.LeftParen) {
		p.advance()
		var args []ast.Expression
		if !p.check(token.RightParen) {
			for {
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(token.Comma) {
					break
				}
			}
		}
		if _, err := p.expect(token.RightParen, "after arguments"); err != nil {
			return nil, err
		}
		expr = &ast.Call{Callee: expr, Args: args}
	}
	return expr, nil
}

func (p *Parser) primary() (ast.Expression, error) {
	switch {
	case p.check(token.Number), p.check(token.String), p.check(token.True),
		p.check(token.False), p.check(token.Nil):
		return &ast.Literal{Token: p.advance()}, nil
	case p.check(token.Identifier):
		tok := p.advance()
		return &ast.Variable{Name: tok.Lexeme, Tok: tok}, nil
	case p.check(token.LeftParen):
		p.advance()
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RightParen, "after expression"); err != nil {
			return nil, err
		}
		return &ast.Group{Inner: inner}, nil
	default:
		pos := p.cur().Position
		return nil, ierr.New(ierr.Parser, fmt.Sprintf("Expected an expression but found '%s'.", p.cur().Lexeme), &pos)
	}
}
