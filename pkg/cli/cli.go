// Package cli implements the compile and check subprograms of the vellum
// command.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mattn/go-isatty"

	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/interp"
	"github.com/vellum-ui/vellum/pkg/parse"
	"github.com/vellum-ui/vellum/pkg/project"
)

// compileFile loads the project configuration governing path (if any) and
// compiles the file.
func compileFile(ctx context.Context, path string, style string) (*interp.CompilationResult, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := interp.CompileConfig{}
	if projPath, err := project.Find(filepath.Dir(path)); err == nil {
		proj, err := project.Load(projPath)
		if err != nil {
			return nil, err
		}
		cfg = proj.CompileConfig()
	}
	if style != "" {
		cfg.Style = style
	}
	c := interp.NewCompiler(cfg)
	return c.Compile(ctx, parse.Source{Name: path, Code: string(code)})
}

// showDiags writes the diagnostics to w, with ANSI colors when w is a
// terminal.
func showDiags(w *os.File, diags []*diag.Diag) {
	color := isatty.IsTerminal(w.Fd())
	for _, d := range diags {
		if color {
			fmt.Fprintln(w, d.Show(""))
		} else {
			fmt.Fprintln(w, d.Error())
		}
	}
}

func componentNames(res *interp.CompilationResult) []string {
	names := make([]string, 0, len(res.Components))
	for name := range res.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
