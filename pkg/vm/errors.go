package vm

import "fmt"

// InternalError is the panic value raised when the VM observes a state
// that a compiler-emitted instruction stream must never produce: an
// operand-stack underflow, a non-String name operand reaching one of
// the *Global opcodes, or an opcode byte the dispatch loop does not
// recognize. These indicate a bug in the compiler, not in the user's
// program, so they are panics rather than returned *ierr.Error values —
// callers recover them at the top level and report them as a distinct
// bug class.
type InternalError struct {
	Message string
	IP      int
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error at ip=%d: %s", e.IP, e.Message)
}

func (vm *VM) fault(format string, args ...any) {
	panic(&InternalError{Message: fmt.Sprintf(format, args...), IP: vm.ip})
}
