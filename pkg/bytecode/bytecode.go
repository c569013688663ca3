// Package bytecode defines the bytecode format and opcodes for Indu.
//
// The bytecode is the low-level intermediate representation that the
// Indu virtual machine (VM) executes. It consists of a sequence of
// instructions, each tagged with an Opcode and (for the three operand-
// carrying opcodes) a payload, plus parallel source-position metadata.
//
// Architecture:
//
// The bytecode system follows a stack-based architecture where:
//  1. Values are pushed onto and popped from a runtime operand stack
//  2. Operations consume values from the stack and push results back
//  3. Variables live in a single flat globals table, addressed by name
//  4. Control flow is expressed as forward/backward jumps over the
//     instruction stream, backpatched once their target is known
//
// Example compilation:
//
//	Source:  var x = 10 print x + 5
//
//	Bytecode:
//	  0  Push(Number(10))
//	  1  Push(String("x"))
//	  2  DefineGlobal
//	  3  Push(String("x"))
//	  4  GetGlobal
//	  5  Push(Number(5))
//	  6  Add
//	  7  Print
//	  8  Return
//
// Instruction Format:
//
// Every instruction is a Go struct carrying its Opcode plus whichever of
// its three optional fields that opcode uses:
//   - Operand: the Value pushed by Push
//   - Target: the jump destination for JumpIfFalse, or the argument
//     count for CallBuiltin
//   - Argument: the builtin's name for CallBuiltin
//
// This is a tagged-sum-by-convention rather than a packed byte format —
// idiomatic for a tree of structs the compiler builds once and the VM
// walks linearly, and it sidesteps a side constant pool entirely since
// Value is already cheap to copy.
package bytecode

import (
	"github.com/kristofer/indu/pkg/token"
	"github.com/kristofer/indu/pkg/value"
)

// Opcode identifies one discrete VM operation.
type Opcode int

const (
	// OpReturn stops execution of the current chunk.
	OpReturn Opcode = iota

	// OpPrint pops a value and writes its display form to stdout,
	// followed by a newline.
	OpPrint

	// OpPush pushes Operand onto the stack.
	OpPush

	// OpPop discards the top of the stack.
	OpPop

	// OpNegate pops a Number, pushes its arithmetic negation.
	OpNegate

	// OpNot pops a Boolean, pushes its logical negation.
	OpNot

	// OpIdentify pops a Number, pushes it back unchanged (unary `+`).
	OpIdentify

	// OpAdd pops b, a; Number+Number sums, String+String concatenates.
	OpAdd

	// OpSubtract pops b, a; Number-only.
	OpSubtract

	// OpMultiply pops b, a; Number-only.
	OpMultiply

	// OpDivide pops b, a; Number-only, errors on division by zero.
	OpDivide

	// OpEqual pops b, a; pushes their structural equality.
	OpEqual

	// OpNotEqual pops b, a; pushes the negation of their structural equality.
	OpNotEqual

	// OpGreater pops b, a; Number-only ordering comparison.
	OpGreater

	// OpGreaterEqual pops b, a; Number-only ordering comparison.
	OpGreaterEqual

	// OpLesser pops b, a; Number-only ordering comparison.
	OpLesser

	// OpLesserEqual pops b, a; Number-only ordering comparison.
	OpLesserEqual

	// OpAnd pops b, a; pushes Boolean(truthy(a) && truthy(b)).
	OpAnd

	// OpOr pops b, a; pushes Boolean(truthy(a) || truthy(b)).
	OpOr

	// OpDefineGlobal pops a String name, pops a value, writes globals[name].
	OpDefineGlobal

	// OpSetGlobal pops a String name; if defined, pops the rhs, writes it,
	// and pushes it back (assignment is itself an expression); otherwise
	// an undefined-variable runtime error.
	OpSetGlobal

	// OpGetGlobal pops a String name; if defined, pushes globals[name];
	// otherwise an undefined-variable runtime error.
	OpGetGlobal

	// OpJumpIfFalse pops a value; if not truthy, sets ip to Target.
	OpJumpIfFalse

	// OpContinue is a jump landing pad; it does nothing.
	OpContinue

	// OpCallBuiltin invokes one of the built-in intrinsics (read, write,
	// writeln) the compiler recognizes by name. Argument carries the
	// builtin's name and Target carries its argument count.
	OpCallBuiltin
)

var opcodeNames = map[Opcode]string{
	OpReturn:       "Return",
	OpPrint:        "Print",
	OpPush:         "Push",
	OpPop:          "Pop",
	OpNegate:       "Negate",
	OpNot:          "Not",
	OpIdentify:     "Identify",
	OpAdd:          "Add",
	OpSubtract:     "Subtract",
	OpMultiply:     "Multiply",
	OpDivide:       "Divide",
	OpEqual:        "Equal",
	OpNotEqual:     "NotEqual",
	OpGreater:      "Greater",
	OpGreaterEqual: "GreaterEqual",
	OpLesser:       "Lesser",
	OpLesserEqual:  "LesserEqual",
	OpAnd:          "And",
	OpOr:           "Or",
	OpDefineGlobal: "DefineGlobal",
	OpSetGlobal:    "SetGlobal",
	OpGetGlobal:    "GetGlobal",
	OpJumpIfFalse:  "JumpIfFalse",
	OpContinue:     "Continue",
	OpCallBuiltin:  "CallBuiltin",
}

// String renders an opcode's canonical name, used by the debugger's
// disassembly output and in panic messages for unknown opcodes.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// PatchPending marks a jump's Target as not-yet-known; the compiler
// backpatches it via Chunk.ReplaceAt once the real target is computed.
const PatchPending = -1

// Instruction is one bytecode operation plus whichever operand fields
// its Opcode uses. Operand is populated only for OpPush; Target only for
// OpJumpIfFalse (and internally by OpCallBuiltin, which reuses it for an
// argument count).
type Instruction struct {
	Op       Opcode
	Operand  value.Value
	Target   int
	Argument string // OpCallBuiltin: the builtin's name (read/write/writeln)
}

// Chunk is a compiled unit: a linear instruction stream with parallel
// source-position metadata. Invariant: len(Instructions) == len(Positions).
type Chunk struct {
	Instructions []Instruction
	Positions    []token.Position
}

// New returns an empty Chunk.
func New() *Chunk {
	return &Chunk{}
}

// Len reports the number of instructions currently in the chunk.
func (c *Chunk) Len() int {
	return len(c.Instructions)
}

// Append adds an instruction at the end of the chunk and returns its
// index, so the compiler can record it for later backpatching.
func (c *Chunk) Append(instr Instruction, pos token.Position) int {
	c.Instructions = append(c.Instructions, instr)
	c.Positions = append(c.Positions, pos)
	return len(c.Instructions) - 1
}

// ReplaceAt overwrites the instruction at index, used to backpatch a
// forward jump once its target address is known.
func (c *Chunk) ReplaceAt(index int, instr Instruction) {
	c.Instructions[index] = instr
}

// At returns the instruction and position at index.
func (c *Chunk) At(index int) (Instruction, token.Position) {
	return c.Instructions[index], c.Positions[index]
}
