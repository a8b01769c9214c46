package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/vellum-ui/vellum/pkg/prog"
	"github.com/vellum-ui/vellum/pkg/store"
)

// CheckProgram implements "vellum check <file>...": compile each file and
// report whether it is clean. With -cache, results are cached by content
// hash, so unchanged files are not recompiled.
type CheckProgram struct {
	style *string
	cache string
}

func (p *CheckProgram) RegisterFlags(fs *prog.FlagSet) {
	p.style = fs.Style()
	fs.StringVar(&p.cache, "cache", "", "Path to the check result cache database")
}

func (p *CheckProgram) Run(fds [3]*os.File, args []string) error {
	if len(args) == 0 || args[0] != "check" {
		return prog.ErrNextProgram
	}
	if len(args) < 2 {
		return prog.BadUsage("check takes one or more files")
	}

	var db store.DBStore
	if p.cache != "" {
		var err error
		db, err = store.NewStore(p.cache)
		if err != nil {
			return fmt.Errorf("cannot open cache: %w", err)
		}
		defer db.Close()
	}

	failed := false
	for _, path := range args[1:] {
		r, cached, err := p.checkFile(db, path)
		if err != nil {
			return fmt.Errorf("cannot check %s: %w", path, err)
		}
		status := "ok"
		if r.HasError {
			status = "failed"
			failed = true
		}
		if cached {
			status += " (cached)"
		}
		fmt.Fprintf(fds[1], "%s: %s\n", path, status)
		for _, msg := range r.Diagnostics {
			fmt.Fprintln(fds[2], msg)
		}
	}
	if failed {
		return prog.Exit(1)
	}
	return nil
}

func (p *CheckProgram) checkFile(db store.DBStore, path string) (store.CheckResult, bool, error) {
	var hash string
	if db != nil {
		code, err := os.ReadFile(path)
		if err != nil {
			return store.CheckResult{}, false, err
		}
		hash = store.HashSource(code)
		if r, err := db.CheckResult(hash); err == nil {
			return r, true, nil
		}
	}

	res, err := compileFile(context.Background(), path, *p.style)
	if err != nil {
		return store.CheckResult{}, false, err
	}
	r := store.CheckResult{
		Path:       path,
		HasError:   res.HasError(),
		Components: componentNames(res),
	}
	for _, d := range res.Diagnostics {
		r.Diagnostics = append(r.Diagnostics, d.Error())
	}
	if db != nil {
		if err := db.PutCheckResult(hash, r); err != nil {
			return store.CheckResult{}, false, err
		}
	}
	return r, false, nil
}
