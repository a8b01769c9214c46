package interp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/parse"
)

func compileOK(t *testing.T, cfg CompileConfig, src string) *CompilationResult {
	t.Helper()
	res, err := NewCompiler(cfg).Compile(context.Background(), parse.SourceForTest(src))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(res.Diagnostics))
	}
	return res
}

func createOK(t *testing.T, cfg CompileConfig, src, name string) *ComponentInstance {
	t.Helper()
	def := compileOK(t, cfg, src).Component(name)
	if def == nil {
		t.Fatalf("no definition for %q", name)
	}
	inst, err := def.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return inst
}

func diagsString(diags []*diag.Diag) string {
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(d.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func number(t *testing.T, inst *ComponentInstance, name string) float64 {
	t.Helper()
	v, err := inst.GetProperty(name)
	if err != nil {
		t.Fatalf("GetProperty(%q): %v", name, err)
	}
	n, ok := v.AsNumber()
	if !ok {
		t.Fatalf("%s = %s, want a number", name, v)
	}
	return n
}

func TestEndToEndPropertyRoundTrip(t *testing.T) {
	inst := createOK(t, CompileConfig{},
		`export component Foo { in-out property <int> value: 1; }`, "Foo")

	if got := number(t, inst, "value"); got != 1 {
		t.Errorf("value = %v right after create, want 1", got)
	}
	if err := inst.SetProperty("value", NumberValue(42)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if got := number(t, inst, "value"); got != 42 {
		t.Errorf("value = %v, want 42", got)
	}
	if err := inst.SetProperty("value", StringValue("x")); !errors.Is(err, ErrWrongType) {
		t.Fatalf("SetProperty with a string: %v, want ErrWrongType", err)
	}
	if got := number(t, inst, "value"); got != 42 {
		t.Errorf("value = %v after the failed write, want 42 untouched", got)
	}
	if _, err := inst.GetProperty("nope"); !errors.Is(err, ErrNoSuchProperty) {
		t.Errorf("GetProperty(nope): %v, want ErrNoSuchProperty", err)
	}
}

func TestDiagnosticsCompleteness(t *testing.T) {
	res, err := NewCompiler(CompileConfig{}).Compile(context.Background(), parse.SourceForTest(`
export component Bad {
    a := Rectangle {}
    a := Rectangle {}
    Bogus {}
}`))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var msgs []string
	for _, d := range res.Diagnostics {
		if d.Level == diag.Error {
			msgs = append(msgs, d.Message)
		}
	}
	all := strings.Join(msgs, "\n")
	if !strings.Contains(all, "duplicate element id") {
		t.Errorf("diagnostics do not mention the duplicate id:\n%s", all)
	}
	if !strings.Contains(all, "Bogus") {
		t.Errorf("diagnostics do not mention the unknown element:\n%s", all)
	}
	if res.Component("Bad") != nil {
		t.Errorf("a component with errors still yielded a definition")
	}
}

func TestBrokenSiblingDoesNotFailOthers(t *testing.T) {
	res, err := NewCompiler(CompileConfig{}).Compile(context.Background(), parse.SourceForTest(`
export component Broken { Bogus {} }
export component Fine { in-out property <int> x: 3; }
`))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !res.HasError() {
		t.Fatalf("no error diagnostics for the broken component")
	}
	if res.Component("Broken") != nil {
		t.Errorf("broken component yielded a definition")
	}
	def := res.Component("Fine")
	if def == nil {
		t.Fatalf("clean sibling yielded no definition")
	}
	inst, err := def.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := number(t, inst, "x"); got != 3 {
		t.Errorf("x = %v, want 3", got)
	}
}

func TestCallbacks(t *testing.T) {
	inst := createOK(t, CompileConfig{}, `
export component Api {
    in-out property <int> count: 0;
    callback bump();
    callback compute(int) -> int;
    bump => { count += 1; }
}`, "Api")

	if _, err := inst.Invoke("bump", nil); err != nil {
		t.Fatalf("Invoke(bump): %v", err)
	}
	if _, err := inst.Invoke("bump", nil); err != nil {
		t.Fatalf("Invoke(bump): %v", err)
	}
	if got := number(t, inst, "count"); got != 2 {
		t.Errorf("count = %v after two bumps, want 2", got)
	}

	err := inst.SetCallback("compute", func(args []Value) Value {
		n, _ := args[0].AsNumber()
		return NumberValue(n * 2)
	})
	if err != nil {
		t.Fatalf("SetCallback: %v", err)
	}
	v, err := inst.Invoke("compute", []Value{NumberValue(21)})
	if err != nil {
		t.Fatalf("Invoke(compute): %v", err)
	}
	if n, _ := v.AsNumber(); n != 42 {
		t.Errorf("compute(21) = %s, want 42", v)
	}

	if err := inst.SetCallback("count", func([]Value) Value { return VoidValue() }); !errors.Is(err, ErrNoSuchCallback) {
		t.Errorf("SetCallback on a plain property: %v, want ErrNoSuchCallback", err)
	}
	if _, err := inst.Invoke("missing", nil); !errors.Is(err, ErrNoSuchCallback) {
		t.Errorf("Invoke on a missing callback: %v, want ErrNoSuchCallback", err)
	}
}

func TestPublicTwoWayBinding(t *testing.T) {
	inst := createOK(t, CompileConfig{}, `
export component Mirror {
    in-out property <length> w <=> bar.width;
    bar := Rectangle { width: 8px; }
}`, "Mirror")

	if got := number(t, inst, "w"); got != 8 {
		t.Errorf("w = %v, want the linked width 8", got)
	}
	if err := inst.SetProperty("w", NumberValue(20)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if got := number(t, inst, "w"); got != 20 {
		t.Errorf("w = %v after writing through the alias, want 20", got)
	}
}

func TestTimerFires(t *testing.T) {
	inst := createOK(t, CompileConfig{}, `
export component Clock {
    in-out property <int> count: 0;
    t := Timer {
        interval: 100ms;
        running: true;
        triggered => { count += 1; }
    }
}`, "Clock")

	inst.Tick(100 * time.Millisecond) // arms the timer
	if got := number(t, inst, "count"); got != 0 {
		t.Fatalf("count = %v before the first due time, want 0", got)
	}
	inst.Tick(100 * time.Millisecond)
	if got := number(t, inst, "count"); got != 1 {
		t.Errorf("count = %v after one interval, want 1", got)
	}
	inst.Tick(200 * time.Millisecond)
	if got := number(t, inst, "count"); got != 3 {
		t.Errorf("count = %v after two more intervals, want 3", got)
	}
}

func TestRepeaters(t *testing.T) {
	inst := createOK(t, CompileConfig{}, `
export component List {
    in-out property <int> n: 0;
    for item[i] in [10, 20, 30] : Rectangle { width: item * 1px; }
    if n > 2 : Text {}
}`, "List")

	reps := inst.root.repeaters
	if len(reps) != 2 {
		t.Fatalf("got %d repeaters, want 2", len(reps))
	}
	if reps[0].InstanceCount() != 3 {
		t.Errorf("for-repeater has %d instances, want 3", reps[0].InstanceCount())
	}
	if d := asValue(reps[0].insts[1].data.Get()); !valueEqual(d, NumberValue(20)) {
		t.Errorf("second repetition data = %s, want 20", d)
	}
	if reps[1].InstanceCount() != 0 {
		t.Errorf("false conditional has %d instances, want 0", reps[1].InstanceCount())
	}
	if err := inst.SetProperty("n", NumberValue(5)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if reps[1].InstanceCount() != 1 {
		t.Errorf("true conditional has %d instances, want 1", reps[1].InstanceCount())
	}
}

func TestAnimatedWrite(t *testing.T) {
	inst := createOK(t, CompileConfig{}, `
export component Anim {
    in-out property <float> x: 0;
    animate x { duration: 100ms; }
}`, "Anim")

	if err := inst.SetProperty("x", NumberValue(10)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	inst.Tick(50 * time.Millisecond)
	if got := number(t, inst, "x"); got != 5 {
		t.Errorf("x = %v mid-animation, want 5", got)
	}
	inst.Tick(60 * time.Millisecond)
	if got := number(t, inst, "x"); got != 10 {
		t.Errorf("x = %v after the animation, want 10", got)
	}
}

func TestImportsThroughFileLoader(t *testing.T) {
	files := map[string]string{
		"button.vel": `export component Button { in property <string> label; }`,
	}
	cfg := CompileConfig{
		FileLoader: func(_ context.Context, path string) ([]byte, error) {
			src, ok := files[path]
			if !ok {
				return nil, fmt.Errorf("no such file")
			}
			return []byte(src), nil
		},
	}
	inst := createOK(t, cfg, `
import { Button } from "button.vel";
export component App {
    in-out property <int> z: 4;
    Button { label: "go"; }
}`, "App")
	if got := number(t, inst, "z"); got != 4 {
		t.Errorf("z = %v, want 4", got)
	}
}

func TestMissingImportIsDiagnostic(t *testing.T) {
	res, err := NewCompiler(CompileConfig{
		FileLoader: func(context.Context, string) ([]byte, error) {
			return nil, fmt.Errorf("no such file")
		},
	}).Compile(context.Background(), parse.SourceForTest(`
import { Button } from "button.vel";
export component App {}
`))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !res.HasError() {
		t.Fatalf("no diagnostics for a failing import")
	}
	if !strings.Contains(diagsString(res.Diagnostics), "button.vel") {
		t.Errorf("diagnostics do not name the import:\n%s", diagsString(res.Diagnostics))
	}
	// The load failure is reported once; the builder must not add an
	// "unknown imported component" for the same name.
	named := 0
	for _, d := range res.Diagnostics {
		if strings.Contains(d.Message, "Button") || strings.Contains(d.Message, "button.vel") {
			named++
		}
	}
	if named != 1 {
		t.Errorf("failed import diagnosed %d times:\n%s", named, diagsString(res.Diagnostics))
	}
}

func TestNotExportedImportIsDiagnosedOnce(t *testing.T) {
	files := map[string]string{
		"lib.vel": "component Hidden {}\nexport component Shown {}\n",
	}
	res, err := NewCompiler(CompileConfig{
		FileLoader: func(_ context.Context, path string) ([]byte, error) {
			if code, ok := files[path]; ok {
				return []byte(code), nil
			}
			return nil, fmt.Errorf("no such file")
		},
	}).Compile(context.Background(), parse.SourceForTest(`
import { Hidden } from "lib.vel";
export component App {}
`))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	named := 0
	for _, d := range res.Diagnostics {
		if strings.Contains(d.Message, "Hidden") {
			named++
		}
	}
	if named != 1 {
		t.Errorf("unexported import diagnosed %d times:\n%s", named, diagsString(res.Diagnostics))
	}
	if !strings.Contains(diagsString(res.Diagnostics), "not exported") {
		t.Errorf("diagnostics do not mention the export status:\n%s", diagsString(res.Diagnostics))
	}
}

func TestLastComponentOnly(t *testing.T) {
	inst := createOK(t, CompileConfig{ComponentsToGenerate: LastComponentOnly}, `
export component First { in-out property <int> a: 1; }
component Inner { in-out property <int> v: 7; }
`, "Inner")
	if got := number(t, inst, "v"); got != 7 {
		t.Errorf("v = %v, want 7", got)
	}
}

func TestGlobalSingleton(t *testing.T) {
	inst := createOK(t, CompileConfig{}, `
global Settings { in-out property <int> scale: 3; }
export component App {
    in-out property <int> size: Settings.scale * 2;
}`, "App")
	if got := number(t, inst, "size"); got != 6 {
		t.Errorf("size = %v, want 6", got)
	}
}

func TestRunHeadlessReturns(t *testing.T) {
	inst := createOK(t, CompileConfig{},
		`export component Foo { in-out property <int> value: 1; }`, "Foo")
	if err := inst.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := inst.Hide(); err != nil {
		t.Fatalf("Hide: %v", err)
	}
}
