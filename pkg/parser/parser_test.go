package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/indu/pkg/ast"
)

func TestParse_VarStatement(t *testing.T) {
	program, err := Parse(`var x = 1`)
	require.NoError(t, err)
	require.Len(t, program.Statements, 1)

	v, ok := program.Statements[0].(*ast.VarStatement)
	require.True(t, ok)
	require.Equal(t, "x", v.Name)
	lit, ok := v.Initializer.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, "1", lit.Token.Lexeme)
}

func TestParse_VarStatement_RequiresInitializer(t *testing.T) {
	_, err := Parse(`var x`)
	require.Error(t, err)
}

func TestParse_IfElse(t *testing.T) {
	program, err := Parse(`if x { print 1 } else { print 2 }`)
	require.NoError(t, err)
	require.Len(t, program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, stmt.Then.Statements, 1)
	elseBlock, ok := stmt.Else.(*ast.Block)
	require.True(t, ok)
	require.Len(t, elseBlock.Statements, 1)
}

func TestParse_ElseIfChain(t *testing.T) {
	program, err := Parse(`if a { print 1 } else if b { print 2 } else { print 3 }`)
	require.NoError(t, err)

	stmt := program.Statements[0].(*ast.If)
	elseIf, ok := stmt.Else.(*ast.If)
	require.True(t, ok)
	_, ok = elseIf.Else.(*ast.Block)
	require.True(t, ok)
}

func TestParse_While(t *testing.T) {
	program, err := Parse(`while x { print x }`)
	require.NoError(t, err)

	stmt, ok := program.Statements[0].(*ast.While)
	require.True(t, ok)
	require.Len(t, stmt.Body.Statements, 1)
}

func TestParse_ForDesugarsToWhile(t *testing.T) {
	program, err := Parse(`for var i = 0, i < 3, i = i + 1 { print i }`)
	require.NoError(t, err)

	outer, ok := program.Statements[0].(*ast.Block)
	require.True(t, ok)
	require.Len(t, outer.Statements, 2)

	_, ok = outer.Statements[0].(*ast.VarStatement)
	require.True(t, ok)

	while, ok := outer.Statements[1].(*ast.While)
	require.True(t, ok)
	// body + appended step expression statement
	require.Len(t, while.Body.Statements, 2)
	_, ok = while.Body.Statements[1].(*ast.ExpressionStatement)
	require.True(t, ok)
}

func TestParse_FunctionDeclaration(t *testing.T) {
	program, err := Parse(`fun add(a, b) { return a + b }`)
	require.NoError(t, err)

	fn, ok := program.Statements[0].(*ast.Function)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
}

func TestParse_PrecedenceClimbing(t *testing.T) {
	program, err := Parse(`1 + 2 * 3`)
	require.NoError(t, err)

	exprStmt := program.Statements[0].(*ast.ExpressionStatement)
	bin, ok := exprStmt.Expr.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op.Lexeme)

	right, ok := bin.Right.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "*", right.Op.Lexeme)
}

func TestParse_UnaryPrefixOperators(t *testing.T) {
	for _, tc := range []struct {
		source string
		op     string
	}{
		{"-x", "-"},
		{"!x", "!"},
		{"+x", "+"},
	} {
		program, err := Parse(tc.source)
		require.NoError(t, err, tc.source)

		exprStmt := program.Statements[0].(*ast.ExpressionStatement)
		unary, ok := exprStmt.Expr.(*ast.Unary)
		require.True(t, ok, tc.source)
		require.Equal(t, tc.op, unary.Op.Lexeme)

		variable, ok := unary.Right.(*ast.Variable)
		require.True(t, ok, tc.source)
		require.Equal(t, "x", variable.Name)
	}
}

func TestParse_AssignmentIsRightAssociative(t *testing.T) {
	program, err := Parse(`a = b = 1`)
	require.NoError(t, err)

	exprStmt := program.Statements[0].(*ast.ExpressionStatement)
	outer, ok := exprStmt.Expr.(*ast.Assignment)
	require.True(t, ok)
	require.Equal(t, "a", outer.Name)

	inner, ok := outer.Value.(*ast.Assignment)
	require.True(t, ok)
	require.Equal(t, "b", inner.Name)
}

func TestParse_InvalidAssignmentTarget(t *testing.T) {
	_, err := Parse(`1 = 2`)
	require.Error(t, err)
}

func TestParse_CallExpression(t *testing.T) {
	program, err := Parse(`write("hi")`)
	require.NoError(t, err)

	exprStmt := program.Statements[0].(*ast.ExpressionStatement)
	call, ok := exprStmt.Expr.(*ast.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
}

func TestParse_TwoStatementsNeedNoSeparator(t *testing.T) {
	program, err := Parse(`var i = 0 while i < 3 { print i  i = i + 1 }`)
	require.NoError(t, err)
	require.Len(t, program.Statements, 2)

	_, ok := program.Statements[0].(*ast.VarStatement)
	require.True(t, ok)
	while, ok := program.Statements[1].(*ast.While)
	require.True(t, ok)
	require.Len(t, while.Body.Statements, 2)
}

func TestParse_StraySemicolonIsAnError(t *testing.T) {
	_, err := Parse(`;`)
	require.Error(t, err)
}

func TestParse_FailsFastOnFirstError(t *testing.T) {
	_, err := Parse(`var x = var y = 1`)
	require.Error(t, err)
}

func TestParse_GroupedExpression(t *testing.T) {
	program, err := Parse(`(1 + 2) * 3`)
	require.NoError(t, err)

	exprStmt := program.Statements[0].(*ast.ExpressionStatement)
	bin := exprStmt.Expr.(*ast.Binary)
	require.Equal(t, "*", bin.Op.Lexeme)
	_, ok := bin.Left.(*ast.Group)
	require.True(t, ok)
}
