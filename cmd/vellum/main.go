// Vellum is the command-line tool for the vellum UI markup language. It
// compiles and checks .vel documents and runs a language server for editors.
package main

import (
	"os"

	"github.com/vellum-ui/vellum/pkg/buildinfo"
	"github.com/vellum-ui/vellum/pkg/cli"
	"github.com/vellum-ui/vellum/pkg/lsp"
	"github.com/vellum-ui/vellum/pkg/prog"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			buildinfo.Program, &cli.CompileProgram{}, &cli.CheckProgram{},
			&lsp.Program{})))
}
