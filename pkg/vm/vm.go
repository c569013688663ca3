// Package vm implements the bytecode virtual machine for Indu.
//
// The VM is a stack-based interpreter that executes a compiled Chunk.
// It's the final stage in the execution pipeline:
//
//	Source -> Lexer -> Parser -> AST -> Compiler -> Chunk -> VM -> Execution
//
// Virtual Machine Architecture:
//
// The VM holds three pieces of state:
//
//  1. Operand stack: intermediate values during computation
//  2. Instruction pointer (ip): the index of the next instruction to fetch
//  3. Globals: a flat map from variable name to Value, the only binding
//     mechanism this language has — there are no locals or closures
//
// Execution Model:
//
// The VM fetches the instruction at ip, advances ip by one, then
// dispatches on its Opcode. Most opcodes follow a uniform shape: pop N
// operands, compute, push the result. Control flow is the exception:
// JumpIfFalse conditionally overwrites ip instead of falling through.
//
// Example Execution:
//
//	Source: var x = 5 print x + 3
//
//	Bytecode:
//	  0: Push(5)
//	  1: Push("x")
//	  2: DefineGlobal
//	  3: Push("x")
//	  4: GetGlobal
//	  5: Push(3)
//	  6: Add
//	  7: Print
//	  8: Return
//
//	Execution trace:
//	  ip=0 Push(5)        stack=[5]
//	  ip=1 Push("x")      stack=[5, "x"]
//	  ip=2 DefineGlobal   stack=[]          globals={x: 5}
//	  ip=3 Push("x")      stack=["x"]
//	  ip=4 GetGlobal      stack=[5]
//	  ip=5 Push(3)        stack=[5, 3]
//	  ip=6 Add            stack=[8]
//	  ip=7 Print          stack=[]          stdout: "8\n"
//	  ip=8 Return         (halt)
//
// Error Handling:
//
// Runtime errors (type mismatches, undefined variables, division by
// zero) are returned as *ierr.Error values carrying the Position of the
// instruction that failed. Conditions that indicate a compiler bug
// rather than a user error — stack underflow, a non-String name operand
// reaching a *Global opcode, an unrecognized opcode — panic with an
// *InternalError instead; see errors.go.
package vm

import (
	"fmt"
	"io"

	"github.com/kristofer/indu/pkg/builtins"
	"github.com/kristofer/indu/pkg/bytecode"
	"github.com/kristofer/indu/pkg/ierr"
	"github.com/kristofer/indu/pkg/token"
	"github.com/kristofer/indu/pkg/value"
)

// VM executes compiled Chunks. A single VM's globals persist across
// multiple calls to Run, which is what lets the REPL accumulate
// bindings across iterations.
type VM struct {
	stack    []value.Value
	globals  map[string]value.Value
	ip       int
	io       *builtins.IO
	debugger *Debugger
}

// New creates a VM with empty globals, reading builtin input from in and
// writing builtin/print output to out.
func New(in io.Reader, out io.Writer) *VM {
	return &VM{
		globals: make(map[string]value.Value),
		io:      builtins.NewIO(in, out),
	}
}

// Globals exposes the current global bindings by name.
func (vm *VM) Globals() map[string]value.Value {
	return vm.globals
}

// SetDebug installs a trace sink: before each fetch, the VM writes the
// current operand stack and a disassembled view of the next instruction
// to w. Passing nil disables tracing.
func (vm *VM) SetDebug(w io.Writer) {
	if w == nil {
		vm.debugger = nil
		return
	}
	vm.debugger = NewDebugger(w)
}

// Run executes a Chunk to completion (a Return instruction) or until the
// first runtime error. The operand stack is reset at the start of each
// Run call; globals persist.
func (vm *VM) Run(chunk *bytecode.Chunk) error {
	vm.stack = vm.stack[:0]
	vm.ip = 0

	for vm.ip < chunk.Len() {
		instr, pos := chunk.At(vm.ip)

		if vm.debugger != nil {
			vm.debugger.Trace(vm.stack, instr, pos, vm.ip)
		}

		vm.ip++

		switch instr.Op {
		case bytecode.OpReturn:
			return nil

		case bytecode.OpPrint:
			v := vm.pop()
			fmt.Fprintln(vm.io.Out, v.String())

		case bytecode.OpPush:
			vm.push(instr.Operand)

		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpNegate:
			n := vm.pop()
			if n.Kind() != value.KindNumber {
				return vm.typeError1("unary -", n, pos)
			}
			vm.push(value.Number(-n.AsNumber()))

		case bytecode.OpNot:
			b := vm.pop()
			if b.Kind() != value.KindBoolean {
				return vm.typeError1("!", b, pos)
			}
			vm.push(value.Bool(!b.AsBoolean()))

		case bytecode.OpIdentify:
			n := vm.pop()
			if n.Kind() != value.KindNumber {
				return vm.typeError1("unary +", n, pos)
			}
			vm.push(n)

		case bytecode.OpAdd:
			if err := vm.add(pos); err != nil {
				return err
			}

		case bytecode.OpSubtract:
			if err := vm.numericBinary(pos, "-", func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}

		case bytecode.OpMultiply:
			if err := vm.numericBinary(pos, "*", func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}

		case bytecode.OpDivide:
			if err := vm.divide(pos); err != nil {
				return err
			}

		case bytecode.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.Equal(b)))

		case bytecode.OpNotEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!a.Equal(b)))

		case bytecode.OpGreater:
			if err := vm.comparison(pos, ">", func(a, b float64) bool { return a > b }); err != nil {
				return err
			}

		case bytecode.OpGreaterEqual:
			if err := vm.comparison(pos, ">=", func(a, b float64) bool { return a >= b }); err != nil {
				return err
			}

		case bytecode.OpLesser:
			if err := vm.comparison(pos, "<", func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case bytecode.OpLesserEqual:
			if err := vm.comparison(pos, "<=", func(a, b float64) bool { return a <= b }); err != nil {
				return err
			}

		case bytecode.OpAnd:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.Truthy() && b.Truthy()))

		case bytecode.OpOr:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.Truthy() || b.Truthy()))

		case bytecode.OpDefineGlobal:
			name := vm.popName()
			vm.globals[name] = vm.pop()

		case bytecode.OpSetGlobal:
			name := vm.popName()
			if _, defined := vm.globals[name]; !defined {
				return vm.runtimeError(pos, "%s is not defined", name)
			}
			v := vm.pop()
			vm.globals[name] = v
			vm.push(v)

		case bytecode.OpGetGlobal:
			name := vm.popName()
			v, defined := vm.globals[name]
			if !defined {
				return vm.runtimeError(pos, "%s is not defined", name)
			}
			vm.push(v)

		case bytecode.OpJumpIfFalse:
			v := vm.pop()
			if !v.Truthy() {
				vm.ip = instr.Target
			}

		case bytecode.OpContinue:
			// landing pad, no-op

		case bytecode.OpCallBuiltin:
			if err := vm.callBuiltin(instr, pos); err != nil {
				return err
			}

		default:
			vm.fault("unknown opcode %v", instr.Op)
		}
	}
	return nil
}

func (vm *VM) callBuiltin(instr bytecode.Instruction, pos token.Position) error {
	argc := instr.Target
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	result, err := vm.io.Call(instr.Argument, args)
	if err != nil {
		return ierr.New(ierr.Runtime, err.Error(), &pos)
	}
	vm.push(result)
	return nil
}

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() value.Value {
	if len(vm.stack) == 0 {
		vm.fault("operand stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// popName pops a value expected to be a global-name String. A non-String
// operand reaching a *Global opcode is a compiler bug, not a user error.
func (vm *VM) popName() string {
	v := vm.pop()
	if v.Kind() != value.KindString {
		vm.fault("expected String name operand, got %s", v.TypeName())
	}
	return v.AsString()
}

func (vm *VM) runtimeError(pos token.Position, format string, args ...any) error {
	p := pos
	return ierr.New(ierr.Runtime, fmt.Sprintf(format, args...), &p)
}

func (vm *VM) typeError1(op string, v value.Value, pos token.Position) error {
	return vm.runtimeError(pos, "%s is not defined for %s", op, v.TypeName())
}

func (vm *VM) add(pos token.Position) error {
	b, a := vm.pop(), vm.pop()
	switch {
	case a.Kind() == value.KindNumber && b.Kind() == value.KindNumber:
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
		return nil
	case a.Kind() == value.KindString && b.Kind() == value.KindString:
		vm.push(value.Str(a.AsString() + b.AsString()))
		return nil
	default:
		return vm.runtimeError(pos, "+ is not defined for %s and %s", a.TypeName(), b.TypeName())
	}
}

func (vm *VM) numericBinary(pos token.Position, op string, f func(a, b float64) value.Value) error {
	b, a := vm.pop(), vm.pop()
	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		return vm.runtimeError(pos, "%s is not defined for %s and %s", op, a.TypeName(), b.TypeName())
	}
	vm.push(f(a.AsNumber(), b.AsNumber()))
	return nil
}

func (vm *VM) divide(pos token.Position) error {
	b, a := vm.pop(), vm.pop()
	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		return vm.runtimeError(pos, "/ is not defined for %s and %s", a.TypeName(), b.TypeName())
	}
	if b.AsNumber() == 0 {
		return vm.runtimeError(pos, "Division by 0")
	}
	vm.push(value.Number(a.AsNumber() / b.AsNumber()))
	return nil
}

func (vm *VM) comparison(pos token.Position, op string, f func(a, b float64) bool) error {
	b, a := vm.pop(), vm.pop()
	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		return vm.runtimeError(pos, "%s is not defined for %s and %s", op, a.TypeName(), b.TypeName())
	}
	vm.push(value.Bool(f(a.AsNumber(), b.AsNumber())))
	return nil
}
