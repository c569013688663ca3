package vm

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/kristofer/indu/pkg/bytecode"
	"github.com/kristofer/indu/pkg/token"
	"github.com/kristofer/indu/pkg/value"
)

// Debugger is a trace sink, not an interactive breakpoint debugger:
// there is no step/continue/breakpoint protocol, only a line of
// disassembly written before each instruction fetch. See VM.SetDebug.
type Debugger struct {
	w io.Writer
}

// NewDebugger wraps w as a trace sink.
func NewDebugger(w io.Writer) *Debugger {
	return &Debugger{w: w}
}

var (
	ipColor   = color.New(color.FgYellow)
	opColor   = color.New(color.FgCyan, color.Bold)
	posColor  = color.New(color.FgHiBlack)
	stackColr = color.New(color.FgGreen)
)

// Trace writes one line describing the instruction about to execute and
// the operand stack as it stood before the fetch.
func (d *Debugger) Trace(stack []value.Value, instr bytecode.Instruction, pos token.Position, ip int) {
	ipColor.Fprintf(d.w, "%04d ", ip)
	posColor.Fprintf(d.w, "%-10s ", pos.String())
	opColor.Fprintf(d.w, "%-12s", instr.Op)

	switch instr.Op {
	case bytecode.OpPush:
		fmt.Fprintf(d.w, " %s", instr.Operand.String())
	case bytecode.OpJumpIfFalse:
		fmt.Fprintf(d.w, " -> %d", instr.Target)
	case bytecode.OpCallBuiltin:
		fmt.Fprintf(d.w, " %s/%d", instr.Argument, instr.Target)
	}

	stackColr.Fprintf(d.w, "  stack=%s\n", formatStack(stack))
}

func formatStack(stack []value.Value) string {
	s := "["
	for i, v := range stack {
		if i > 0 {
			s += ", "
		}
		s += v.String()
	}
	return s + "]"
}
