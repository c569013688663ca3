// Package ast defines Indu's Abstract Syntax Tree: the statement and
// expression node shapes the parser produces and the compiler consumes.
//
// A program is an ordered sequence of Statements. Every Expression
// exposes a Position (either its own token's or, for composite nodes,
// one derived from its children) so the compiler and VM can always
// attribute an error back to source.
package ast

import "github.com/kristofer/indu/pkg/token"

// Statement is any top-level or block-level construct that does not
// itself produce a value.
type Statement interface {
	statementNode()
}

// Expression is any construct that evaluates to a Value. Every
// expression knows its own source Position.
type Expression interface {
	Statement // an ExpressionStatement wraps an Expression as a Statement
	Position() token.Position
}

// Program is the root of a parsed source file: an ordered list of
// statements.
type Program struct {
	Statements []Statement
}

// Block is a brace-delimited sequence of statements, used for if/while
// bodies, function bodies, and the desugared body of `for`.
type Block struct {
	Statements []Statement
}

func (*Block) statementNode() {}

// VarStatement declares a new variable: `var NAME = initializer`. The
// initializer is always required; there is no bare `var NAME` form.
type VarStatement struct {
	Name        string
	NamePos     token.Position
	Initializer Expression
}

func (*VarStatement) statementNode() {}

// ElseBranch is either another If (an `else if`) or a plain Block (a
// final `else`).
type ElseBranch interface {
	statementNode()
}

// If is `if condition Block (else (If | Block))?`.
type If struct {
	KeywordPos token.Position
	Condition  Expression
	Then       *Block
	Else       ElseBranch // nil, *If, or *Block
}

func (*If) statementNode() {}

// While is `while condition Block`.
type While struct {
	KeywordPos token.Position
	Condition  Expression
	Body       *Block
}

func (*While) statementNode() {}

// Function is `fun NAME ( params? ) Block`. The compiler rejects these
// with a CompilerError — they are still parsed so that real Indu source
// containing function declarations produces a precise compile-time
// diagnostic rather than a parse failure.
type Function struct {
	Name    string
	NamePos token.Position
	Params  []token.Token
	Body    *Block
}

func (*Function) statementNode() {}

// Return is `return expr`.
type Return struct {
	KeywordPos token.Position
	Value      Expression
}

func (*Return) statementNode() {}

// Print is `print expr`.
type Print struct {
	KeywordPos token.Position
	Value      Expression
}

func (*Print) statementNode() {}

// ExpressionStatement is any bare expression used as a statement; its
// value is discarded (compiled to an expression followed by Pop).
type ExpressionStatement struct {
	Expr Expression
}

func (*ExpressionStatement) statementNode() {}

// Literal wraps a scanned literal token (Number, String, True, False,
// Nil) as an expression.
type Literal struct {
	Token token.Token
}

func (*Literal) statementNode()             {}
func (l *Literal) Position() token.Position { return l.Token.Position }

// Variable is an identifier read in expression position.
type Variable struct {
	Name string
	Tok  token.Token
}

func (*Variable) statementNode()             {}
func (v *Variable) Position() token.Position { return v.Tok.Position }

// Group is a parenthesized expression; its position is inherited from
// its child.
type Group struct {
	Inner Expression
}

func (*Group) statementNode()             {}
func (g *Group) Position() token.Position { return g.Inner.Position() }

// Unary is a prefix operator expression: `-x`, `!x`, `+x`.
type Unary struct {
	Op    token.Token
	Right Expression
}

func (*Unary) statementNode()             {}
func (u *Unary) Position() token.Position { return u.Op.Position }

// Binary is an infix operator expression.
type Binary struct {
	Left  Expression
	Op    token.Token
	Right Expression
}

func (*Binary) statementNode()             {}
func (b *Binary) Position() token.Position { return b.Op.Position }

// Assignment is `name = value`; its position is the target identifier's.
type Assignment struct {
	Name  string
	Tok   token.Token
	Value Expression
}

func (*Assignment) statementNode()             {}
func (a *Assignment) Position() token.Position { return a.Tok.Position }

// Call is `callee ( args... )`; its position is inherited from the
// callee. Only calls to the built-in names read/write/writeln compile;
// every other call is a CompilerError.
type Call struct {
	Callee Expression
	Args   []Expression
}

func (*Call) statementNode()             {}
func (c *Call) Position() token.Position { return c.Callee.Position() }
