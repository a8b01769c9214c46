package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vellum-ui/vellum/pkg/must"
	"github.com/vellum-ui/vellum/pkg/prog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	must.WriteFile(path, content)
	return path
}

func run(t *testing.T, p prog.Program, args ...string) (int, string, string) {
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
	exit := prog.Run([3]*os.File{devNull, w1, w2}, append([]string{"vellum"}, args...), p)
	w1.Close()
	w2.Close()
	stdout, _ := io.ReadAll(r1)
	stderr, _ := io.ReadAll(r2)
	r1.Close()
	r2.Close()
	return exit, string(stdout), string(stderr)
}

func TestCompileCleanFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.vel",
		"export component App { in-out property <int> x: 1; }\n")

	exit, stdout, stderr := run(t, &CompileProgram{}, "compile", path)
	if exit != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", exit, stderr)
	}
	if !strings.Contains(stdout, "App") {
		t.Errorf("stdout does not list the component:\n%s", stdout)
	}
}

func TestCompileBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.vel", "export component Bad { Bogus {} }\n")

	exit, _, stderr := run(t, &CompileProgram{}, "compile", path)
	if exit != 1 {
		t.Errorf("exit = %d, want 1", exit)
	}
	if !strings.Contains(stderr, "Bogus") {
		t.Errorf("stderr does not show the diagnostic:\n%s", stderr)
	}
}

func TestCompileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.vel", "export component App {}\n")

	exit, stdout, _ := run(t, &CompileProgram{}, "-json", "compile", path)
	if exit != 0 {
		t.Fatalf("exit = %d", exit)
	}
	if !strings.Contains(stdout, `"components":["App"]`) {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCompileUsage(t *testing.T) {
	exit, _, stderr := run(t, &CompileProgram{}, "compile")
	if exit != 2 {
		t.Errorf("exit = %d, want 2", exit)
	}
	if !strings.Contains(stderr, "exactly one file") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestCompileUsesProjectFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "shared"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, dir, "vellum.yaml", "include-paths:\n  - shared\n")
	writeFile(t, filepath.Join(dir, "shared"), "button.vel",
		"export component Button { in property <string> label; }\n")
	path := writeFile(t, dir, "app.vel", `import { Button } from "button.vel";
export component App { Button { label: "go"; } }
`)

	exit, stdout, stderr := run(t, &CompileProgram{}, "compile", path)
	if exit != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", exit, stderr)
	}
	if !strings.Contains(stdout, "App") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCheckCachesResults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.vel", "export component App {}\n")
	cache := filepath.Join(dir, "cache.db")

	exit, stdout, _ := run(t, &CheckProgram{}, "-cache", cache, "check", path)
	if exit != 0 {
		t.Fatalf("exit = %d", exit)
	}
	if strings.Contains(stdout, "(cached)") {
		t.Errorf("first run reported a cache hit:\n%s", stdout)
	}

	exit, stdout, _ = run(t, &CheckProgram{}, "-cache", cache, "check", path)
	if exit != 0 {
		t.Fatalf("exit = %d", exit)
	}
	if !strings.Contains(stdout, "ok (cached)") {
		t.Errorf("second run missed the cache:\n%s", stdout)
	}

	// Changing the content invalidates the cached entry.
	writeFile(t, dir, "app.vel", "export component App { Bogus {} }\n")
	exit, stdout, _ = run(t, &CheckProgram{}, "-cache", cache, "check", path)
	if exit != 1 {
		t.Errorf("exit = %d after breaking the file, want 1", exit)
	}
	if strings.Contains(stdout, "(cached)") {
		t.Errorf("changed file hit the cache:\n%s", stdout)
	}
}

func TestCheckMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.vel", "export component Good {}\n")
	bad := writeFile(t, dir, "bad.vel", "export component Bad { Bogus {} }\n")

	exit, stdout, _ := run(t, &CheckProgram{}, "check", good, bad)
	if exit != 1 {
		t.Errorf("exit = %d, want 1", exit)
	}
	if !strings.Contains(stdout, fmt.Sprintf("%s: ok", good)) {
		t.Errorf("good file not reported ok:\n%s", stdout)
	}
	if !strings.Contains(stdout, fmt.Sprintf("%s: failed", bad)) {
		t.Errorf("bad file not reported failed:\n%s", stdout)
	}
}

func TestUnknownSubcommandFallsThrough(t *testing.T) {
	exit, _, _ := run(t, prog.Composite(&CompileProgram{}, &CheckProgram{}), "frobnicate")
	if exit != 2 {
		t.Errorf("exit = %d, want 2", exit)
	}
}
