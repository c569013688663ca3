package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/indu/pkg/ast"
	"github.com/kristofer/indu/pkg/compiler"
	"github.com/kristofer/indu/pkg/ierr"
	"github.com/kristofer/indu/pkg/parser"
)

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	program, err := parser.Parse(source)
	require.NoError(t, err)
	chunk, _, err := compiler.Compile(program)
	require.NoError(t, err)

	var out bytes.Buffer
	machine := New(strings.NewReader(""), &out)
	err = machine.Run(chunk)
	return out.String(), err
}

func TestRun_PrintsArithmetic(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestRun_StringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar"`)
	require.NoError(t, err)
	require.Equal(t, "foobar\n", out)
}

func TestRun_VariablesAndAssignment(t *testing.T) {
	out, err := run(t, `var x = 1 x = x + 1 print x`)
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestRun_IfElse(t *testing.T) {
	out, err := run(t, `var x = 0 if x { print "y" } else { print "n" }`)
	require.NoError(t, err)
	require.Equal(t, "n\n", out)
}

func TestRun_WhileLoop(t *testing.T) {
	out, err := run(t, `var i = 0 while i < 3 { print i  i = i + 1 }`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestRun_ForLoop(t *testing.T) {
	out, err := run(t, `for var i = 0, i < 3, i = i + 1 { print i }`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestRun_AndOrAreNotShortCircuited(t *testing.T) {
	out, err := run(t, `print true or write("side effect")`)
	require.NoError(t, err)
	require.Equal(t, "side effecttrue\n", out)
}

func TestRun_DivisionByZero(t *testing.T) {
	_, err := run(t, `print 1 / 0`)
	require.Error(t, err)
	ierrErr, ok := err.(*ierr.Error)
	require.True(t, ok)
	require.Equal(t, "Division by 0", ierrErr.Message)
}

func TestRun_UndefinedVariableReadError(t *testing.T) {
	_, err := run(t, `print undefined_name`)
	require.Error(t, err)
	ierrErr, ok := err.(*ierr.Error)
	require.True(t, ok)
	require.Equal(t, "undefined_name is not defined", ierrErr.Message)
}

func TestRun_UnaryOperators(t *testing.T) {
	out, err := run(t, `var x = 5 print -x print !false print +x`)
	require.NoError(t, err)
	require.Equal(t, "-5\ntrue\n5\n", out)
}

func TestRun_BinaryTypeMismatch(t *testing.T) {
	_, err := run(t, `print "foo" - 1`)
	require.Error(t, err)
	ierrErr, ok := err.(*ierr.Error)
	require.True(t, ok)
	require.Equal(t, "- is not defined for String and Number", ierrErr.Message)
}

func TestRun_AddTypeMismatch(t *testing.T) {
	_, err := run(t, `print "foo" + 1`)
	require.Error(t, err)
	ierrErr, ok := err.(*ierr.Error)
	require.True(t, ok)
	require.Equal(t, "+ is not defined for String and Number", ierrErr.Message)
}

func TestRun_GlobalsPersistAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	machine := New(strings.NewReader(""), &out)

	first, err := parser.Parse(`var x = 1`)
	require.NoError(t, err)
	chunk, globals, err := compiler.Compile(first)
	require.NoError(t, err)
	require.NoError(t, machine.Run(chunk))

	second, err := parser.Parse(`print x`)
	require.NoError(t, err)
	chunk2, _, err := compiler.Compile(second, globals...)
	require.NoError(t, err)
	require.NoError(t, machine.Run(chunk2))

	require.Equal(t, "1\n", out.String())
}

func TestRun_ReadBuiltin(t *testing.T) {
	program, err := parser.Parse(`write(read())`)
	require.NoError(t, err)
	chunk, _, err := compiler.Compile(program)
	require.NoError(t, err)

	var out bytes.Buffer
	machine := New(strings.NewReader("42\n"), &out)
	require.NoError(t, machine.Run(chunk))
	require.Equal(t, "42", out.String())
}

func TestRun_StackUnderflowPanicsWithInternalError(t *testing.T) {
	chunk, _, err := compiler.Compile(mustParse(t, `print true`))
	require.NoError(t, err)
	chunk.Instructions = chunk.Instructions[1:] // drop the Push, leaving a bare Print
	chunk.Positions = chunk.Positions[1:]

	var out bytes.Buffer
	machine := New(strings.NewReader(""), &out)

	require.Panics(t, func() {
		_ = machine.Run(chunk)
	})
}

func TestSetDebug_TracesInstructions(t *testing.T) {
	program, err := parser.Parse(`var x = 1 print x`)
	require.NoError(t, err)
	chunk, _, err := compiler.Compile(program)
	require.NoError(t, err)

	var trace bytes.Buffer
	var out bytes.Buffer
	machine := New(strings.NewReader(""), &out)
	machine.SetDebug(&trace)
	require.NoError(t, machine.Run(chunk))

	require.NotEmpty(t, trace.String())
	require.Contains(t, trace.String(), "Push")

	machine.SetDebug(nil)
	trace.Reset()
	require.NoError(t, machine.Run(chunk))
	require.Empty(t, trace.String())
}

func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	program, err := parser.Parse(source)
	require.NoError(t, err)
	return program
}
