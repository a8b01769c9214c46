package prog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
)

type testProgram struct {
	name     string
	accept   bool
	flagSeen *bool
	err      error
}

func (p *testProgram) RegisterFlags(fs *FlagSet) {
	if p.flagSeen != nil {
		fs.BoolVar(p.flagSeen, p.name+"-flag", false, "test flag")
	}
}

func (p *testProgram) Run(fds [3]*os.File, args []string) error {
	if !p.accept {
		return ErrNextProgram
	}
	fmt.Fprintln(fds[1], p.name)
	return p.err
}

// run invokes Run with piped stdout/stderr and returns the exit status and
// both outputs.
func run(t *testing.T, args []string, p Program) (int, string, string) {
	t.Helper()
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open %s: %v", os.DevNull, err)
	}
	defer devNull.Close()
	r1, w1, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	r2, w2, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	exit := Run([3]*os.File{devNull, w1, w2}, args, p)
	w1.Close()
	w2.Close()
	stdout, _ := io.ReadAll(r1)
	stderr, _ := io.ReadAll(r2)
	r1.Close()
	r2.Close()
	return exit, string(stdout), string(stderr)
}

func TestRun(t *testing.T) {
	exit, stdout, _ := run(t, []string{"vellum"}, &testProgram{name: "a", accept: true})
	if exit != 0 || stdout != "a\n" {
		t.Errorf("exit = %d, stdout = %q", exit, stdout)
	}
}

func TestCompositeTriesInOrder(t *testing.T) {
	exit, stdout, _ := run(t, []string{"vellum"}, Composite(
		&testProgram{name: "a"},
		&testProgram{name: "b", accept: true},
		&testProgram{name: "c", accept: true},
	))
	if exit != 0 || stdout != "b\n" {
		t.Errorf("exit = %d, stdout = %q, want the first accepting program", exit, stdout)
	}
}

func TestNoSuitableSubprogram(t *testing.T) {
	exit, _, stderr := run(t, []string{"vellum"}, Composite(&testProgram{name: "a"}))
	if exit != 2 {
		t.Errorf("exit = %d, want 2", exit)
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestBadFlag(t *testing.T) {
	exit, _, stderr := run(t, []string{"vellum", "-bogus"}, &testProgram{name: "a", accept: true})
	if exit != 2 {
		t.Errorf("exit = %d, want 2", exit)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Errorf("stderr has no usage:\n%s", stderr)
	}
}

func TestHelp(t *testing.T) {
	exit, stdout, _ := run(t, []string{"vellum", "-help"}, &testProgram{name: "a", accept: true})
	if exit != 0 {
		t.Errorf("exit = %d, want 0", exit)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Errorf("stdout has no usage:\n%s", stdout)
	}
}

func TestBadUsage(t *testing.T) {
	exit, _, stderr := run(t, []string{"vellum"},
		&testProgram{name: "a", accept: true, err: BadUsage("need an argument")})
	if exit != 2 {
		t.Errorf("exit = %d, want 2", exit)
	}
	if !strings.Contains(stderr, "need an argument") || !strings.Contains(stderr, "Usage:") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestExit(t *testing.T) {
	exit, _, stderr := run(t, []string{"vellum"},
		&testProgram{name: "a", accept: true, err: Exit(3)})
	if exit != 3 {
		t.Errorf("exit = %d, want 3", exit)
	}
	if stderr != "" {
		t.Errorf("Exit printed a message: %q", stderr)
	}
}

func TestExitZeroIsNil(t *testing.T) {
	if Exit(0) != nil {
		t.Errorf("Exit(0) != nil")
	}
}

func TestSharedJSONFlagRegisteredOnce(t *testing.T) {
	// Two subprograms asking for -json must share one flag; a second
	// registration would panic inside package flag.
	exit, _, _ := run(t, []string{"vellum", "-json"}, Composite(
		jsonProgram{}, jsonProgram{accept: true}))
	if exit != 0 {
		t.Errorf("exit = %d", exit)
	}
}

type jsonProgram struct{ accept bool }

func (p jsonProgram) RegisterFlags(fs *FlagSet) { _ = fs.JSON() }

func (p jsonProgram) Run(fds [3]*os.File, args []string) error {
	if !p.accept {
		return ErrNextProgram
	}
	return nil
}
