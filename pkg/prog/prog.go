// Package prog provides the entry point to the vellum command. Subprograms
// (compile, check, lsp, buildinfo) implement Program; Run dispatches to the
// first one that accepts the invocation.
package prog

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// Program is a subprogram of the command.
type Program interface {
	// RegisterFlags registers the subprogram's flags on the shared flag set.
	RegisterFlags(fs *FlagSet)
	// Run runs the subprogram with the parsed non-flag arguments. Returning
	// ErrNextProgram hands the invocation to the next subprogram.
	Run(fds [3]*os.File, args []string) error
}

// FlagSet wraps the shared flag set. Flags wanted by more than one subprogram
// are registered through lazy accessors here so they are only defined once.
type FlagSet struct {
	*flag.FlagSet
	json  *bool
	style *string
}

// JSON returns the shared -json flag.
func (fs *FlagSet) JSON() *bool {
	if fs.json == nil {
		var json bool
		fs.BoolVar(&json, "json", false,
			"Show the output from -buildinfo or check in JSON")
		fs.json = &json
	}
	return fs.json
}

// Style returns the shared -style flag.
func (fs *FlagSet) Style() *string {
	if fs.style == nil {
		var style string
		fs.StringVar(&style, "style", "",
			"Widget style, overriding the project file")
		fs.style = &style
	}
	return fs.style
}

// ErrNextProgram is returned by Program.Run to signal that the invocation is
// not for this subprogram.
var ErrNextProgram = errors.New("next program")

var errNoSuitableSubprogram = errors.New("unknown command; run with -help for usage")

// Run parses flags from args and runs the program, returning the exit status.
// The three files are stdin, stdout and stderr.
func Run(fds [3]*os.File, args []string, p Program) int {
	fs := flag.NewFlagSet("vellum", flag.ContinueOnError)
	// Error and usage will be printed explicitly.
	fs.SetOutput(io.Discard)
	var help bool
	fs.BoolVar(&help, "help", false, "Show usage help and quit")
	p.RegisterFlags(&FlagSet{FlagSet: fs})

	err := fs.Parse(args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			// -h is unregistered; flag.Parse reports it as ErrHelp.
			fmt.Fprintln(fds[2], "flag provided but not defined: -h")
		} else {
			fmt.Fprintln(fds[2], err)
		}
		usage(fds[2], fs)
		return 2
	}
	if help {
		usage(fds[1], fs)
		return 0
	}

	err = p.Run(fds, fs.Args())
	if err == nil {
		return 0
	}
	if err == ErrNextProgram {
		err = errNoSuitableSubprogram
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(fds[2], msg)
	}
	switch err := err.(type) {
	case badUsageError:
		usage(fds[2], fs)
		return 2
	case exitError:
		return err.exit
	}
	return 2
}

func usage(out io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(out, "Usage: vellum [flags] <compile|check|lsp> [args]")
	fmt.Fprintln(out, "Supported flags:")
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// Composite returns a Program that tries each of the given programs in order,
// stopping at the first one that does not return ErrNextProgram.
func Composite(programs ...Program) Program {
	return compositeProgram(programs)
}

type compositeProgram []Program

func (cp compositeProgram) RegisterFlags(fs *FlagSet) {
	for _, p := range cp {
		p.RegisterFlags(fs)
	}
}

func (cp compositeProgram) Run(fds [3]*os.File, args []string) error {
	for _, p := range cp {
		err := p.Run(fds, args)
		if err != ErrNextProgram {
			return err
		}
	}
	return ErrNextProgram
}

// BadUsage returns a special error that may be returned by Program.Run. It
// causes the main function to print out the message, the usage information and
// exit with 2.
func BadUsage(msg string) error { return badUsageError{msg} }

type badUsageError struct{ msg string }

func (e badUsageError) Error() string { return e.msg }

// Exit returns a special error that may be returned by Program.Run. It causes
// the main function to exit with the given code without printing any error
// messages. Exit(0) returns nil.
func Exit(exit int) error {
	if exit == 0 {
		return nil
	}
	return exitError{exit}
}

type exitError struct{ exit int }

func (e exitError) Error() string { return "" }
