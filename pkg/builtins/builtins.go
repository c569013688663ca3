// Package builtins implements Indu's three intrinsic functions: read,
// write, and writeln. The compiler recognizes these three names as
// calls and compiles them to a dedicated CallBuiltin instruction (see
// pkg/compiler); this package supplies what that instruction invokes.
package builtins

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kristofer/indu/pkg/value"
)

// Arity reports how many arguments a builtin name expects, or -1 if the
// name is not a recognized builtin.
func Arity(name string) int {
	switch name {
	case "read":
		return 0
	case "write", "writeln":
		return 1
	default:
		return -1
	}
}

// IsBuiltin reports whether name is one of the three recognized
// intrinsics.
func IsBuiltin(name string) bool {
	return Arity(name) >= 0
}

// IO bundles the streams builtins read from and write to, so the VM
// can wire them to os.Stdin/os.Stdout in production and to buffers in
// tests.
type IO struct {
	Out io.Writer
	In  *bufio.Reader
}

// NewIO wraps raw reader/writer streams for use by the builtins.
func NewIO(in io.Reader, out io.Writer) *IO {
	return &IO{Out: out, In: bufio.NewReader(in)}
}

// Write writes v's display form without a trailing newline and flushes
// the output when it has a Flush method (such as *bufio.Writer); other
// writers are written to directly.
func (b *IO) Write(v value.Value) (value.Value, error) {
	if _, err := fmt.Fprint(b.Out, v.String()); err != nil {
		return value.Nil, err
	}
	if f, ok := b.Out.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return value.Nil, err
		}
	}
	return value.Nil, nil
}

// Writeln writes v's display form followed by a newline.
func (b *IO) Writeln(v value.Value) (value.Value, error) {
	if _, err := fmt.Fprintln(b.Out, v.String()); err != nil {
		return value.Nil, err
	}
	return value.Nil, nil
}

// Read reads one line from stdin, trims its trailing newline, and
// returns a Number if the trimmed text parses as a 64-bit float,
// otherwise a String.
func (b *IO) Read() (value.Value, error) {
	line, err := b.In.ReadString('\n')
	if err != nil && err != io.EOF {
		return value.Nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if n, perr := strconv.ParseFloat(line, 64); perr == nil {
		return value.Number(n), nil
	}
	return value.Str(line), nil
}

// Call dispatches to the named builtin. The compiler only emits a
// CallBuiltin instruction for a recognized name with a matching
// argument count; Call itself does not check the count, and an
// unrecognized name is returned as an error.
func (b *IO) Call(name string, args []value.Value) (value.Value, error) {
	switch name {
	case "read":
		return b.Read()
	case "write":
		return b.Write(args[0])
	case "writeln":
		return b.Writeln(args[0])
	default:
		return value.Nil, fmt.Errorf("builtins: unknown builtin %q", name)
	}
}
