// Command indu is the CLI driver for the Indu language: it runs a source
// file, or starts an interactive REPL when given none.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kristofer/indu/pkg/compiler"
	"github.com/kristofer/indu/pkg/ierr"
	"github.com/kristofer/indu/pkg/parser"
	"github.com/kristofer/indu/pkg/vm"
)

const version = "0.1.0"

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	resultColor = color.New(color.FgYellow)
	infoColor   = color.New(color.FgCyan)
)

func main() {
	var debug bool
	var showVersion bool

	root := &cobra.Command{
		Use:   "indu [file]",
		Short: "Indu: a small dynamically-typed scripting language",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				fmt.Fprint(os.Stderr, cmd.UsageString())
				os.Exit(2)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Println("indu version " + version)
				return nil
			}
			if len(args) == 0 {
				runREPL(debug)
				return nil
			}
			return runFile(args[0], debug)
		},
	}
	root.Flags().BoolVar(&debug, "debug", false, "trace VM instruction execution")
	root.Flags().BoolVar(&showVersion, "version", false, "print the version and exit")

	if err := root.Execute(); err != nil {
		errorColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFile reads, parses, compiles, and runs a single source file. A
// pipeline-stage error is reported with a caret-underlined source line
// and ends the process with a non-zero exit code; an internal-invariant
// panic is reported as a distinct bug class rather than swallowed.
func runFile(path string, debug bool) (err error) {
	source, readErr := os.ReadFile(path)
	if readErr != nil {
		return ierr.New(ierr.System, readErr.Error(), nil)
	}

	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*vm.InternalError); ok {
				errorColor.Fprintf(os.Stderr, "internal bug: %s\n", ie.Error())
				os.Exit(1)
			}
			panic(r)
		}
	}()

	program, err := parser.Parse(string(source))
	if err != nil {
		reportError(os.Stderr, err, string(source))
		os.Exit(1)
	}

	chunk, _, err := compiler.Compile(program)
	if err != nil {
		reportError(os.Stderr, err, string(source))
		os.Exit(1)
	}

	machine := vm.New(os.Stdin, os.Stdout)
	if debug {
		machine.SetDebug(os.Stderr)
	}
	if err := machine.Run(chunk); err != nil {
		reportError(os.Stderr, err, string(source))
		os.Exit(1)
	}
	return nil
}

func reportError(w io.Writer, err error, source string) {
	if ie, ok := err.(*ierr.Error); ok {
		ie.Report(w, source)
		return
	}
	fmt.Fprintln(w, err)
}

// runREPL is a read-eval-print loop backed by a single VM and a
// persistent known-globals set, so a variable declared in one line
// stays visible to the next. Each line gets its own lexer/parser/
// compiler; a recoverable error is reported and the loop continues
// with globals intact.
func runREPL(debug bool) {
	rl, err := readline.New("indu> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	infoColor.Println("Indu " + version + " — type @exit or @e to leave, @cmd for commands")

	machine := vm.New(os.Stdin, rl.Stdout())
	if debug {
		machine.SetDebug(rl.Stderr())
	}
	var knownGlobals []string

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF (Ctrl+D) or interrupt
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "@") {
			if !replCommand(line) {
				return
			}
			continue
		}

		evalREPLLine(machine, &knownGlobals, line)
	}
}

// replCommand handles an @-prefixed meta-command. It returns false when
// the REPL should exit.
func replCommand(line string) bool {
	switch line {
	case "@exit", "@e":
		return false
	case "@cmd":
		infoColor.Println("@cmd   list available commands")
		infoColor.Println("@exit, @e   leave the REPL")
		return true
	default:
		errorColor.Printf("unknown command: %s\n", line)
		return true
	}
}

func evalREPLLine(machine *vm.VM, knownGlobals *[]string, line string) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*vm.InternalError); ok {
				errorColor.Printf("internal bug: %s\n", ie.Error())
				return
			}
			panic(r)
		}
	}()

	program, err := parser.Parse(line)
	if err != nil {
		reportError(os.Stdout, err, line)
		return
	}

	chunk, globals, err := compiler.Compile(program, *knownGlobals...)
	if err != nil {
		reportError(os.Stdout, err, line)
		return
	}
	*knownGlobals = globals

	if err := machine.Run(chunk); err != nil {
		reportError(os.Stdout, err, line)
	}
}
