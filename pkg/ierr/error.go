// Package ierr defines the single Error type shared by every stage of the
// Indu pipeline (lexer, parser, compiler, VM) and by the CLI driver's
// reporting path.
package ierr

import (
	"fmt"
	"io"
	"strings"

	"github.com/kristofer/indu/pkg/token"
)

// Kind classifies which pipeline stage an Error originated from.
type Kind int

const (
	System Kind = iota
	Lexer
	Parser
	Compiler
	Runtime
)

func (k Kind) String() string {
	switch k {
	case System:
		return "SystemError"
	case Lexer:
		return "LexerError"
	case Parser:
		return "ParserError"
	case Compiler:
		return "CompilerError"
	case Runtime:
		return "RuntimeError"
	default:
		return "Error"
	}
}

// Error is a pipeline-stage error: a kind, a human message, and an
// optional source position. It implements the standard error interface
// so it composes with everything else in Go, while still carrying the
// structured fields the CLI driver needs to render a caret-underlined
// source line.
type Error struct {
	Kind     Kind
	Message  string
	Position *token.Position
}

// New constructs an Error. pos may be nil for errors with no useful
// source location (e.g. a failure to read the source file).
func New(kind Kind, message string, pos *token.Position) *Error {
	return &Error{Kind: kind, Message: message, Position: pos}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Position, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Report writes a human-readable rendering of the error to w, including
// the offending source line with a caret underline when both a position
// and the original source text are available.
func (e *Error) Report(w io.Writer, source string) {
	fmt.Fprintf(w, "%s: %s\n", e.Kind, e.Message)
	if e.Position == nil || source == "" {
		return
	}
	lines := strings.Split(source, "\n")
	lineIdx := int(e.Position.Line) - 1
	if lineIdx < 0 || lineIdx >= len(lines) {
		return
	}
	line := lines[lineIdx]
	fmt.Fprintf(w, "  %4d | %s\n", e.Position.Line, line)

	col := columnOf(lines, e.Position)
	if col < 0 {
		return
	}
	fmt.Fprintf(w, "       | %s^\n", strings.Repeat(" ", col))
}

// columnOf computes a 0-based column within its line for a position
// expressed as a byte offset into the whole source.
func columnOf(lines []string, pos *token.Position) int {
	lineIdx := int(pos.Line) - 1
	if lineIdx < 0 || lineIdx >= len(lines) {
		return -1
	}
	consumed := uint32(0)
	for i := 0; i < lineIdx; i++ {
		consumed += uint32(len(lines[i])) + 1
	}
	if pos.Start < consumed {
		return 0
	}
	return int(pos.Start - consumed)
}
