// Package compiler compiles Indu's AST into a bytecode Chunk.
//
// Compilation is single-pass: every statement and expression is walked
// exactly once, emitting instructions as it goes. Forward jumps (if's
// else-skip, while's exit) are written with a placeholder target and
// backpatched once the real target address is known, using
// Chunk.Append's returned index and Chunk.ReplaceAt.
//
// Variables are globals-only at runtime: every declaration, read, and
// assignment goes through DefineGlobal/GetGlobal/SetGlobal keyed by
// name. The compiler additionally keeps a stack of block-scoped symbol
// tables, but only to catch assignment to a name that was never
// declared anywhere in the compilation; a bare *read* of an unknown
// name still compiles and is left for the VM to reject at run time,
// since the name may be bound by an earlier REPL line or an
// as-yet-unproven branch the compiler can't rule out.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/kristofer/indu/pkg/ast"
	"github.com/kristofer/indu/pkg/builtins"
	"github.com/kristofer/indu/pkg/bytecode"
	"github.com/kristofer/indu/pkg/ierr"
	"github.com/kristofer/indu/pkg/token"
	"github.com/kristofer/indu/pkg/value"
)

// scope is one block's table of names declared within it, used only for
// compile-time "undefined variable" diagnostics.
type scope map[string]bool

// Compiler lowers an AST Program to a bytecode Chunk.
type Compiler struct {
	chunk   *bytecode.Chunk
	scopes  []scope
	lastPos token.Position
}

// New creates a Compiler with a fresh top-level scope. Passing a
// non-empty globals set (e.g. from a REPL's accumulated bindings)
// lets previously defined names resolve in a later compilation.
func New(knownGlobals ...string) *Compiler {
	top := scope{}
	for _, name := range knownGlobals {
		top[name] = true
	}
	return &Compiler{chunk: bytecode.New(), scopes: []scope{top}}
}

// Globals returns every name the compiler has seen declared, across all
// scopes still open when compilation finished (normally just the
// top-level scope) — used by the REPL to seed the next Compiler.
func (c *Compiler) Globals() []string {
	names := make([]string, 0, len(c.scopes[0]))
	for name := range c.scopes[0] {
		names = append(names, name)
	}
	return names
}

// Compile compiles a whole program, appending a trailing Return.
func Compile(program *ast.Program, knownGlobals ...string) (*bytecode.Chunk, []string, error) {
	c := New(knownGlobals...)
	if err := c.compileProgram(program); err != nil {
		return nil, nil, err
	}
	return c.chunk, c.Globals(), nil
}

func (c *Compiler) compileProgram(program *ast.Program) error {
	for _, stmt := range program.Statements {
		if err := c.statement(stmt); err != nil {
			return err
		}
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpReturn}, c.lastPos)
	return nil
}

// --- scope bookkeeping ---------------------------------------------------

func (c *Compiler) pushScope() {
	c.scopes = append(c.scopes, scope{})
}

func (c *Compiler) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *Compiler) declare(name string) {
	c.scopes[len(c.scopes)-1][name] = true
}

func (c *Compiler) isDeclared(name string) bool {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i][name] {
			return true
		}
	}
	return false
}

func (c *Compiler) emit(instr bytecode.Instruction, pos token.Position) int {
	c.lastPos = pos
	return c.chunk.Append(instr, pos)
}

// --- statements -----------------------------------------------------------

func (c *Compiler) statement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.Block:
		return c.block(s)
	case *ast.VarStatement:
		return c.varStatement(s)
	case *ast.If:
		return c.ifStatement(s)
	case *ast.While:
		return c.whileStatement(s)
	case *ast.Function:
		pos := s.NamePos
		return ierr.New(ierr.Compiler, fmt.Sprintf("Function declarations are not supported by this compiler: '%s'.", s.Name), &pos)
	case *ast.Return:
		return c.returnStatement(s)
	case *ast.Print:
		return c.printStatement(s)
	case *ast.ExpressionStatement:
		if err := c.expression(s.Expr); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.OpPop}, s.Expr.Position())
		return nil
	default:
		return fmt.Errorf("compiler: unknown statement type %T", stmt)
	}
}

func (c *Compiler) block(b *ast.Block) error {
	c.pushScope()
	defer c.popScope()
	for _, stmt := range b.Statements {
		if err := c.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) varStatement(s *ast.VarStatement) error {
	if err := c.expression(s.Initializer); err != nil {
		return err
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpPush, Operand: value.Str(s.Name)}, s.NamePos)
	c.emit(bytecode.Instruction{Op: bytecode.OpDefineGlobal}, s.NamePos)
	c.declare(s.Name)
	return nil
}

func (c *Compiler) printStatement(s *ast.Print) error {
	if err := c.expression(s.Value); err != nil {
		return err
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpPrint}, s.KeywordPos)
	return nil
}

func (c *Compiler) returnStatement(s *ast.Return) error {
	if err := c.expression(s.Value); err != nil {
		return err
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpReturn}, s.KeywordPos)
	return nil
}

// ifStatement compiles:
//
//	<condition>
//	JumpIfFalse PATCH_ELSE
//	<then branch>
//	JumpIfFalse PATCH_END   (unconditional: condition is `Push false`... see below)
//	Continue                ; PATCH_ELSE lands here
//	<else branch>
//	Continue                ; PATCH_END lands here
//
// The unconditional "jump over the else" is encoded by pushing a
// constant false value ahead of a JumpIfFalse — false is never truthy,
// so the jump is always taken.
func (c *Compiler) ifStatement(s *ast.If) error {
	if err := c.expression(s.Condition); err != nil {
		return err
	}
	jumpToElseIdx := c.emit(bytecode.Instruction{Op: bytecode.OpJumpIfFalse, Target: bytecode.PatchPending}, s.KeywordPos)

	if err := c.block(s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		elseTarget := c.emit(bytecode.Instruction{Op: bytecode.OpContinue}, s.KeywordPos)
		c.patchJump(jumpToElseIdx, elseTarget)
		return nil
	}

	c.emit(bytecode.Instruction{Op: bytecode.OpPush, Operand: value.Bool(false)}, s.KeywordPos)
	skipElseIdx := c.emit(bytecode.Instruction{Op: bytecode.OpJumpIfFalse, Target: bytecode.PatchPending}, s.KeywordPos)

	elseTarget := c.emit(bytecode.Instruction{Op: bytecode.OpContinue}, s.KeywordPos)
	c.patchJump(jumpToElseIdx, elseTarget)

	switch elseBranch := s.Else.(type) {
	case *ast.If:
		if err := c.ifStatement(elseBranch); err != nil {
			return err
		}
	case *ast.Block:
		if err := c.block(elseBranch); err != nil {
			return err
		}
	default:
		return fmt.Errorf("compiler: unknown else-branch type %T", s.Else)
	}

	endTarget := c.emit(bytecode.Instruction{Op: bytecode.OpContinue}, s.KeywordPos)
	c.patchJump(skipElseIdx, endTarget)
	return nil
}

// whileStatement compiles:
//
//	Continue                ; loop start lands here
//	<condition>
//	JumpIfFalse PATCH_EXIT
//	<body>
//	Push false
//	JumpIfFalse loopStart    ; unconditional backward jump
//	Continue                 ; PATCH_EXIT lands here
func (c *Compiler) whileStatement(s *ast.While) error {
	loopStart := c.emit(bytecode.Instruction{Op: bytecode.OpContinue}, s.KeywordPos)

	if err := c.expression(s.Condition); err != nil {
		return err
	}
	exitJumpIdx := c.emit(bytecode.Instruction{Op: bytecode.OpJumpIfFalse, Target: bytecode.PatchPending}, s.KeywordPos)

	if err := c.block(s.Body); err != nil {
		return err
	}

	c.emit(bytecode.Instruction{Op: bytecode.OpPush, Operand: value.Bool(false)}, s.KeywordPos)
	c.emit(bytecode.Instruction{Op: bytecode.OpJumpIfFalse, Target: loopStart}, s.KeywordPos)

	exitTarget := c.emit(bytecode.Instruction{Op: bytecode.OpContinue}, s.KeywordPos)
	c.patchJump(exitJumpIdx, exitTarget)
	return nil
}

func (c *Compiler) patchJump(jumpIdx, target int) {
	instr, _ := c.chunk.At(jumpIdx)
	instr.Target = target
	c.chunk.ReplaceAt(jumpIdx, instr)
}

// --- expressions -----------------------------------------------------------

func (c *Compiler) expression(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.Literal:
		return c.literal(e)
	case *ast.Group:
		return c.expression(e.Inner)
	case *ast.Unary:
		return c.unary(e)
	case *ast.Binary:
		return c.binary(e)
	case *ast.Assignment:
		return c.assignment(e)
	case *ast.Variable:
		return c.variable(e)
	case *ast.Call:
		return c.call(e)
	default:
		return fmt.Errorf("compiler: unknown expression type %T", expr)
	}
}

func (c *Compiler) literal(l *ast.Literal) error {
	var v value.Value
	switch l.Token.Kind {
	case token.True:
		v = value.Bool(true)
	case token.False:
		v = value.Bool(false)
	case token.Nil:
		v = value.Nil
	case token.Number:
		v = value.Number(parseNumberLexeme(l.Token.Lexeme))
	default:
		v = value.Str(l.Token.Lexeme)
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpPush, Operand: v}, l.Token.Position)
	return nil
}

func (c *Compiler) unary(u *ast.Unary) error {
	if err := c.expression(u.Right); err != nil {
		return err
	}
	switch u.Op.Kind {
	case token.Minus:
		c.emit(bytecode.Instruction{Op: bytecode.OpNegate}, u.Op.Position)
	case token.Bang:
		c.emit(bytecode.Instruction{Op: bytecode.OpNot}, u.Op.Position)
	case token.Plus:
		c.emit(bytecode.Instruction{Op: bytecode.OpIdentify}, u.Op.Position)
	default:
		return ierr.New(ierr.Compiler, fmt.Sprintf("'%s' is not a valid unary operator.", u.Op.Lexeme), &u.Op.Position)
	}
	return nil
}

var binaryOpcodes = map[token.Kind]bytecode.Opcode{
	token.Plus:         bytecode.OpAdd,
	token.Minus:        bytecode.OpSubtract,
	token.Star:         bytecode.OpMultiply,
	token.Slash:        bytecode.OpDivide,
	token.Equal:        bytecode.OpEqual,
	token.BangEqual:    bytecode.OpNotEqual,
	token.Greater:      bytecode.OpGreater,
	token.GreaterEqual: bytecode.OpGreaterEqual,
	token.Less:         bytecode.OpLesser,
	token.LessEqual:    bytecode.OpLesserEqual,
	token.And:          bytecode.OpAnd,
	token.Or:           bytecode.OpOr,
}

func (c *Compiler) binary(b *ast.Binary) error {
	if err := c.expression(b.Left); err != nil {
		return err
	}
	if err := c.expression(b.Right); err != nil {
		return err
	}
	op, ok := binaryOpcodes[b.Op.Kind]
	if !ok {
		return ierr.New(ierr.Compiler, fmt.Sprintf("'%s' is not a valid binary operator.", b.Op.Lexeme), &b.Op.Position)
	}
	c.emit(bytecode.Instruction{Op: op}, b.Op.Position)
	return nil
}

func (c *Compiler) assignment(a *ast.Assignment) error {
	if !c.isDeclared(a.Name) {
		return ierr.New(ierr.Compiler, fmt.Sprintf("%s is not defined", a.Name), &a.Tok.Position)
	}
	if err := c.expression(a.Value); err != nil {
		return err
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpPush, Operand: value.Str(a.Name)}, a.Tok.Position)
	c.emit(bytecode.Instruction{Op: bytecode.OpSetGlobal}, a.Tok.Position)
	return nil
}

// variable compiles a name reference. Whether the name was ever
// declared in this compilation is not checked here: a name assigned
// inside a conditional branch the compiler can't prove taken, or one
// defined by an earlier REPL line outside this Compiler's knownGlobals,
// is still legal to read. An actually-missing name fails at run time
// with a GetGlobal error instead.
func (c *Compiler) variable(v *ast.Variable) error {
	c.emit(bytecode.Instruction{Op: bytecode.OpPush, Operand: value.Str(v.Name)}, v.Tok.Position)
	c.emit(bytecode.Instruction{Op: bytecode.OpGetGlobal}, v.Tok.Position)
	return nil
}

// call compiles a call expression. Only the three built-in names
// read/write/writeln are callable in this compiler; every other callee
// is a CompilerError naming it, since this tier adds no call-frame
// support.
func (c *Compiler) call(call *ast.Call) error {
	callee, ok := call.Callee.(*ast.Variable)
	if !ok || !builtins.IsBuiltin(callee.Name) {
		pos := call.Position()
		name := "<expression>"
		if ok {
			name = callee.Name
		}
		return ierr.New(ierr.Compiler, fmt.Sprintf("'%s' cannot be called: user-defined functions are not supported by this compiler.", name), &pos)
	}

	arity := builtins.Arity(callee.Name)
	if len(call.Args) != arity {
		pos := call.Position()
		return ierr.New(ierr.Compiler, fmt.Sprintf("'%s' expects %d argument(s), got %d.", callee.Name, arity, len(call.Args)), &pos)
	}

	for _, arg := range call.Args {
		if err := c.expression(arg); err != nil {
			return err
		}
	}
	c.emit(bytecode.Instruction{Op: bytecode.OpCallBuiltin, Argument: callee.Name, Target: len(call.Args)}, callee.Tok.Position)
	return nil
}

// parseNumberLexeme converts a NUMBER token's lexeme to a float64. The
// lexer has already validated the lexeme, so a parse failure here is
// an internal invariant violation, not a user-facing error.
func parseNumberLexeme(lexeme string) float64 {
	n, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		panic(fmt.Sprintf("compiler: lexer produced malformed number literal %q: %v", lexeme, err))
	}
	return n
}
