package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vellum-ui/vellum/pkg/prog"
)

// CompileProgram implements "vellum compile <file>": compile one document,
// report diagnostics and list the generated components.
type CompileProgram struct {
	style *string
	json  *bool
}

func (p *CompileProgram) RegisterFlags(fs *prog.FlagSet) {
	p.style = fs.Style()
	p.json = fs.JSON()
}

func (p *CompileProgram) Run(fds [3]*os.File, args []string) error {
	if len(args) == 0 || args[0] != "compile" {
		return prog.ErrNextProgram
	}
	if len(args) != 2 {
		return prog.BadUsage("compile takes exactly one file")
	}
	path := args[1]

	res, err := compileFile(context.Background(), path, *p.style)
	if err != nil {
		return fmt.Errorf("cannot compile %s: %w", path, err)
	}
	showDiags(fds[2], res.Diagnostics)

	names := componentNames(res)
	if *p.json {
		out, err := json.Marshal(struct {
			Components []string `json:"components"`
			HasError   bool     `json:"hasError"`
		}{names, res.HasError()})
		if err != nil {
			return err
		}
		fmt.Fprintln(fds[1], string(out))
	} else {
		for _, name := range names {
			fmt.Fprintln(fds[1], name)
		}
	}
	if res.HasError() {
		return prog.Exit(1)
	}
	return nil
}
