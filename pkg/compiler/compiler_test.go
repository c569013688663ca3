package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/indu/pkg/bytecode"
	"github.com/kristofer/indu/pkg/parser"
	"github.com/kristofer/indu/pkg/value"
)

// opcodes extracts just the opcode sequence from a chunk, ignoring
// operands and positions, for tests that only care about shape.
func opcodes(chunk *bytecode.Chunk) []bytecode.Opcode {
	ops := make([]bytecode.Opcode, len(chunk.Instructions))
	for i, instr := range chunk.Instructions {
		ops[i] = instr.Op
	}
	return ops
}

func mustCompile(t *testing.T, source string) *bytecode.Chunk {
	t.Helper()
	program, err := parser.Parse(source)
	require.NoError(t, err)
	chunk, _, err := Compile(program)
	require.NoError(t, err)
	return chunk
}

func TestCompile_EndsInReturn(t *testing.T) {
	chunk := mustCompile(t, `var x = 1`)
	require.NotEmpty(t, chunk.Instructions)
	require.Equal(t, bytecode.OpReturn, chunk.Instructions[len(chunk.Instructions)-1].Op)
}

func TestCompile_VarDeclaration(t *testing.T) {
	chunk := mustCompile(t, `var x = 1`)
	got := opcodes(chunk)
	want := []bytecode.Opcode{bytecode.OpPush, bytecode.OpPush, bytecode.OpDefineGlobal, bytecode.OpReturn}
	require.Empty(t, cmp.Diff(want, got))
}

func TestCompile_VariableRead(t *testing.T) {
	chunk := mustCompile(t, `var x = 1 print x`)
	got := opcodes(chunk)
	want := []bytecode.Opcode{
		bytecode.OpPush, bytecode.OpPush, bytecode.OpDefineGlobal, // var x = 1
		bytecode.OpPush, bytecode.OpGetGlobal, bytecode.OpPrint, // print x
		bytecode.OpReturn,
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestCompile_UndefinedVariableReadCompilesAndDefersToVM(t *testing.T) {
	chunk := mustCompile(t, `print undefined_name`)
	got := opcodes(chunk)
	want := []bytecode.Opcode{
		bytecode.OpPush, bytecode.OpGetGlobal, bytecode.OpPrint,
		bytecode.OpReturn,
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestCompile_BinaryOperatorOpcodes(t *testing.T) {
	chunk := mustCompile(t, `print 1 + 2 * 3`)
	got := opcodes(chunk)
	want := []bytecode.Opcode{
		bytecode.OpPush, bytecode.OpPush, bytecode.OpPush, bytecode.OpMultiply, bytecode.OpAdd,
		bytecode.OpPrint, bytecode.OpReturn,
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestCompile_UnaryOperatorOpcodes(t *testing.T) {
	for _, tc := range []struct {
		source string
		want   bytecode.Opcode
	}{
		{"var x = 1 print -x", bytecode.OpNegate},
		{"var x = 1 print !x", bytecode.OpNot},
		{"var x = 1 print +x", bytecode.OpIdentify},
	} {
		chunk := mustCompile(t, tc.source)
		got := opcodes(chunk)
		require.Contains(t, got, tc.want, tc.source)
	}
}

func TestCompile_AssignmentToUndeclaredIsCompilerError(t *testing.T) {
	program, err := parser.Parse(`x = 1`)
	require.NoError(t, err)
	_, _, err = Compile(program)
	require.Error(t, err)
}

func TestCompile_IfWithoutElse_JumpTargetsAreWithinChunk(t *testing.T) {
	chunk := mustCompile(t, `var x = 1 if x { print x }`)
	for i, instr := range chunk.Instructions {
		if instr.Op == bytecode.OpJumpIfFalse {
			require.LessOrEqualf(t, instr.Target, chunk.Len(), "jump at %d", i)
			require.GreaterOrEqual(t, instr.Target, 0)
		}
	}
}

func TestCompile_IfElse_PatchesBothJumps(t *testing.T) {
	chunk := mustCompile(t, `var x = 1 if x { print 1 } else { print 2 }`)

	var jumpCount int
	for _, instr := range chunk.Instructions {
		if instr.Op == bytecode.OpJumpIfFalse {
			jumpCount++
			require.NotEqual(t, bytecode.PatchPending, instr.Target)
		}
	}
	require.Equal(t, 2, jumpCount)
}

func TestCompile_While_BackwardJumpToLoopStart(t *testing.T) {
	chunk := mustCompile(t, `var i = 0 while i { i = 0 }`)

	var sawBackwardJump bool
	for i, instr := range chunk.Instructions {
		if instr.Op == bytecode.OpJumpIfFalse && instr.Target < i {
			sawBackwardJump = true
		}
	}
	require.True(t, sawBackwardJump)
}

func TestCompile_ForDesugaredLoop(t *testing.T) {
	chunk := mustCompile(t, `for var i = 0, i < 3, i = i + 1 { print i }`)
	require.NotEmpty(t, chunk.Instructions)
	require.Equal(t, bytecode.OpReturn, chunk.Instructions[len(chunk.Instructions)-1].Op)
}

func TestCompile_CallBuiltin_Write(t *testing.T) {
	chunk := mustCompile(t, `write("hi")`)
	got := opcodes(chunk)
	want := []bytecode.Opcode{bytecode.OpPush, bytecode.OpCallBuiltin, bytecode.OpPop, bytecode.OpReturn}
	require.Empty(t, cmp.Diff(want, got))

	var found bool
	for _, instr := range chunk.Instructions {
		if instr.Op == bytecode.OpCallBuiltin {
			require.Equal(t, "write", instr.Argument)
			found = true
		}
	}
	require.True(t, found)
}

func TestCompile_CallBuiltin_WrongArityIsCompilerError(t *testing.T) {
	program, err := parser.Parse(`write()`)
	require.NoError(t, err)
	_, _, err = Compile(program)
	require.Error(t, err)
}

func TestCompile_UserDefinedCallIsCompilerError(t *testing.T) {
	program, err := parser.Parse(`foo()`)
	require.NoError(t, err)
	_, _, err = Compile(program)
	require.Error(t, err)
}

func TestCompile_FunctionDeclarationIsCompilerError(t *testing.T) {
	program, err := parser.Parse(`fun add(a, b) { return a + b }`)
	require.NoError(t, err)
	_, _, err = Compile(program)
	require.Error(t, err)
}

func TestCompile_GlobalsSeedingAcrossCompilations(t *testing.T) {
	first, err := parser.Parse(`var x = 1`)
	require.NoError(t, err)
	_, globals, err := Compile(first)
	require.NoError(t, err)
	require.Contains(t, globals, "x")

	second, err := parser.Parse(`print x`)
	require.NoError(t, err)
	_, _, err = Compile(second, globals...)
	require.NoError(t, err)
}

func TestCompile_LiteralValues(t *testing.T) {
	chunk := mustCompile(t, `print true`)
	require.Equal(t, value.Bool(true), chunk.Instructions[0].Operand)
}
