// Package buildinfo contains build information.
//
// Build information should be set during compilation by passing
// -ldflags "-X github.com/vellum-ui/vellum/pkg/buildinfo.Var=value" to
// "go build".
package buildinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/vellum-ui/vellum/pkg/prog"
)

// Version identifies the version of vellum. On development commits, it
// identifies the next release.
const Version = "v0.3.0"

// VersionSuffix is appended to Version in the output of "vellum -version" and
// "vellum -buildinfo" to build the full version string. It can be overridden
// when building.
var VersionSuffix = "-dev.unknown"

// Program is the buildinfo subprogram.
var Program prog.Program = &program{}

type program struct {
	version, buildinfo bool
	json               *bool
}

func (p *program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.version, "version", false, "Show version and quit")
	fs.BoolVar(&p.buildinfo, "buildinfo", false, "Show build info and quit")
	p.json = fs.JSON()
}

func (p *program) Run(fds [3]*os.File, _ []string) error {
	switch {
	case p.buildinfo:
		if *p.json {
			fmt.Fprintf(fds[1], `{"version":%s,"goversion":%s}`+"\n",
				quoteJSON(Version+VersionSuffix), quoteJSON(runtime.Version()))
		} else {
			fmt.Fprintln(fds[1], "Version:", Version+VersionSuffix)
			fmt.Fprintln(fds[1], "Go version:", runtime.Version())
		}
	case p.version:
		if *p.json {
			fmt.Fprintln(fds[1], quoteJSON(Version+VersionSuffix))
		} else {
			fmt.Fprintln(fds[1], Version+VersionSuffix)
		}
	default:
		return prog.ErrNextProgram
	}
	return nil
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
