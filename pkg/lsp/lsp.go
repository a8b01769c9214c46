// Package lsp implements a language server for vellum markup.
package lsp

import (
	"context"
	"os"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/vellum-ui/vellum/pkg/errutil"
	"github.com/vellum-ui/vellum/pkg/prog"
)

// Program is the LSP subprogram.
type Program struct{}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	if len(args) != 1 || args[0] != "lsp" {
		return prog.ErrNextProgram
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(transport{fds[0], fds[1]}, jsonrpc2.VSCodeObjectCodec{}),
		handler(newServer()))
	<-conn.DisconnectNotify()
	return nil
}

type transport struct{ in, out *os.File }

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	return errutil.Multi(c.in.Close(), c.out.Close())
}
