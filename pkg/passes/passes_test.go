package passes

import (
	"strings"
	"testing"

	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/objtree"
	"github.com/vellum-ui/vellum/pkg/parse"
	"github.com/vellum-ui/vellum/pkg/registry"
)

func compileAny(t *testing.T, src string) (*objtree.Document, *diag.Sink) {
	t.Helper()
	tree, err := parse.Parse(parse.SourceForTest(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var sink diag.Sink
	doc := objtree.Build(tree, registry.New(), nil, &sink)
	return doc, &sink
}

func compile(t *testing.T, src string) (*objtree.Document, *diag.Sink) {
	t.Helper()
	doc, sink := compileAny(t, src)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	return doc, sink
}

func diagsString(sink *diag.Sink) string {
	var sb strings.Builder
	for _, d := range sink.All() {
		sb.WriteString(d.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func childIDs(e *objtree.Element) []string {
	ids := make([]string, len(e.Children))
	for i, ch := range e.Children {
		ids[i] = ch.ID
	}
	return ids
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestZOrderReordersAndConsumesZ(t *testing.T) {
	doc, sink := compile(t, `
component C {
    a := Rectangle { background: #f00; z: 2; }
    b := Rectangle { background: #0f0; }
    c := Rectangle { background: #00f; z: 1; }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	reorderByZOrder(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	if got := childIDs(comp.Root); !sameIDs(got, []string{"c", "b", "a"}) {
		t.Errorf("children after reorder: %v, want [c b a]", got)
	}
	for _, ch := range comp.Root.Children {
		if _, ok := ch.Bindings["z"]; ok {
			t.Errorf("element %q still has a z binding", ch.ID)
		}
	}
}

func TestZOrderKeepsOrderWithoutZ(t *testing.T) {
	doc, sink := compile(t, `
component C {
    a := Rectangle { background: #f00; }
    b := Rectangle { background: #0f0; }
    c := Rectangle { background: #00f; }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	reorderByZOrder(st, comp)
	if got := childIDs(comp.Root); !sameIDs(got, []string{"a", "b", "c"}) {
		t.Errorf("children changed without z bindings: %v", got)
	}
}

func TestZOrderUnsetSiblingsKeepPositions(t *testing.T) {
	doc, sink := compile(t, `
component C {
    a := Rectangle { background: #f00; z: 3; }
    b := Rectangle { background: #0f0; }
    c := Rectangle { background: #00f; }
    d := Rectangle { background: #fff; z: 1; }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	reorderByZOrder(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	// Only a and d bind z; they trade slots while b and c stay put.
	if got := childIDs(comp.Root); !sameIDs(got, []string{"d", "b", "c", "a"}) {
		t.Errorf("children after reorder: %v, want [d b c a]", got)
	}
}

func TestZOrderNonConstantIsError(t *testing.T) {
	doc, sink := compile(t, `
component C {
    in property <float> layer: 1;
    a := Rectangle { background: #f00; z: layer; }
    b := Rectangle { background: #0f0; }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	reorderByZOrder(st, comp)
	if !sink.HasError() {
		t.Fatalf("want error for non-constant z")
	}
	// The reorder still happens, with the bad z counting as 0.
	if got := childIDs(comp.Root); !sameIDs(got, []string{"a", "b"}) {
		t.Errorf("children after reorder: %v, want [a b]", got)
	}
}

func TestStructCollectionIsTopologicallySorted(t *testing.T) {
	doc, sink := compile(t, `
struct Outer { mid: Mid }
struct Mid { leaf: Leaf }
struct Leaf { x: float }

enum Mode { narrow, wide }

component C {
    in property <Outer> data;
    in property <Mode> mode;
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	collectStructsAndEnums(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	var names []string
	for _, s := range comp.UsedStructs {
		names = append(names, s.Name)
	}
	if !sameIDs(names, []string{"Leaf", "Mid", "Outer"}) {
		t.Errorf("UsedStructs order: %v, want [Leaf Mid Outer]", names)
	}
	pos := make(map[string]int)
	for i, s := range comp.UsedStructs {
		pos[s.Name] = i
	}
	for _, s := range comp.UsedStructs {
		for _, f := range s.Fields {
			if dep := namedStruct(f.Type); dep != nil && pos[dep.Name] > pos[s.Name] {
				t.Errorf("struct %s sorted before its field type %s", s.Name, dep.Name)
			}
		}
	}
	if len(comp.UsedEnums) != 1 || comp.UsedEnums[0].Name != "Mode" {
		t.Errorf("UsedEnums: %v, want [Mode]", comp.UsedEnums)
	}
}

func TestPublicAPICheck(t *testing.T) {
	doc, buildSink := compileAny(t, `
export component C {
    in property <int> a;
    private property <int> hidden;
    in property <Bogus> u;
}
`)
	if !buildSink.HasError() {
		t.Fatalf("want a build error for the unknown type")
	}
	var sink diag.Sink
	st := &state{doc: doc, sink: &sink}
	comp := doc.Components[0]
	checkPublicAPI(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected errors:\n%s", diagsString(&sink))
	}
	if sink.Len() == 0 {
		t.Errorf("want a warning for the demoted property")
	}
	root := comp.Root
	if !root.PropertyDecls["a"].ExposeInPublicAPI {
		t.Errorf("a is not exposed")
	}
	if root.PropertyDecls["hidden"].ExposeInPublicAPI {
		t.Errorf("hidden is exposed")
	}
	if u := root.PropertyDecls["u"]; u.Access != objtree.PrivateProp || u.ExposeInPublicAPI {
		t.Errorf("u was not demoted to private")
	}
}

func TestOpacityAndVisibleLowering(t *testing.T) {
	doc, sink := compile(t, `
component C {
    out property <float> fade: r.opacity;
    r := Rectangle { background: #fff; opacity: 0.5; }
    s := Rectangle { background: #000; visible: false; }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	lowerOpacityAndVisible(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	if len(comp.Root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(comp.Root.Children))
	}

	wrapOp := comp.Root.Children[0]
	if wrapOp.Base.Builtin == nil || wrapOp.Base.Builtin.Name != "Opacity" {
		t.Fatalf("first child is %v, want an Opacity wrapper", wrapOp.Base)
	}
	if n, ok := wrapOp.Bindings["opacity"].Expr.(objtree.NumberLiteral); !ok || n.Value != 0.5 {
		t.Errorf("wrapper opacity bound to %#v, want 0.5", wrapOp.Bindings["opacity"].Expr)
	}
	r := wrapOp.Children[0]
	if r.ID != "r" {
		t.Fatalf("wrapped element is %q, want r", r.ID)
	}
	if _, ok := r.Bindings["opacity"]; ok {
		t.Errorf("r still has an opacity binding")
	}
	fade := comp.Root.Bindings["fade"].Expr.(objtree.PropertyRef)
	if fade.Ref.Element != wrapOp || fade.Ref.Name != "opacity" {
		t.Errorf("fade reads %v, want the wrapper's opacity", fade.Ref)
	}

	wrapClip := comp.Root.Children[1]
	if wrapClip.Base.Builtin == nil || wrapClip.Base.Builtin.Name != "Clip" {
		t.Fatalf("second child is %v, want a Clip wrapper", wrapClip.Base)
	}
	if b, ok := wrapClip.Bindings["visible"].Expr.(objtree.BoolLiteral); !ok || b.Value {
		t.Errorf("wrapper visible bound to %#v, want false", wrapClip.Bindings["visible"].Expr)
	}
	if u, ok := wrapClip.Bindings["clip"].Expr.(objtree.Unary); !ok || u.Op != "!" {
		t.Errorf("wrapper clip bound to %#v, want a negation", wrapClip.Bindings["clip"].Expr)
	}

	// Idempotent: a second run must not wrap the wrappers.
	lowerOpacityAndVisible(st, comp)
	if comp.Root.Children[0] != wrapOp || comp.Root.Children[1] != wrapClip {
		t.Errorf("second run rewrapped the children")
	}
}

func TestOpacityOnRootIsDropped(t *testing.T) {
	doc, sink := compile(t, `
component W { opacity: 0.5; }
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	lowerOpacityAndVisible(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected errors:\n%s", diagsString(sink))
	}
	if sink.Len() == 0 {
		t.Errorf("want a warning for opacity on the root")
	}
	if _, ok := comp.Root.Bindings["opacity"]; ok {
		t.Errorf("root opacity binding was not dropped")
	}
}

func TestComponentContainerLowering(t *testing.T) {
	doc, sink := compile(t, `
component C {
    cc := ComponentContainer {}
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	lowerComponentContainer(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	cc := comp.Root.Children[0]
	if len(cc.Children) != 1 {
		t.Fatalf("container has %d children, want 1 slot", len(cc.Children))
	}
	slot := cc.Children[0]
	if slot.Repeated == nil || !slot.Repeated.IsComponentPlaceholder || !slot.Repeated.IsConditional {
		t.Fatalf("slot is not a conditional placeholder: %+v", slot.Repeated)
	}
	if b, ok := slot.Repeated.Model.Expr.(objtree.BoolLiteral); !ok || b.Value {
		t.Errorf("placeholder condition is %#v, want false", slot.Repeated.Model.Expr)
	}
	if len(comp.SubComponents) != 1 {
		t.Fatalf("got %d sub-components, want 1", len(comp.SubComponents))
	}

	lowerComponentContainer(st, comp)
	if len(comp.SubComponents) != 1 || len(cc.Children) != 1 {
		t.Errorf("second run lowered the container again")
	}
}

func TestComponentContainerWithChildrenIsError(t *testing.T) {
	doc, sink := compile(t, `
component C {
    ComponentContainer {
        Text { text: "x"; }
    }
}
`)
	st := &state{doc: doc, sink: sink}
	lowerComponentContainer(st, doc.Components[0])
	if !sink.HasError() {
		t.Fatalf("want error for container with children")
	}
}

func TestTimerLowering(t *testing.T) {
	doc, sink := compile(t, `
component C {
    in-out property <int> n: 0;
    t := Timer {
        interval: 1s;
        running: false;
        triggered => { n += 1; }
    }
    ta := TouchArea {
        width: 10px;
        clicked => { start-timer(t); }
    }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	lowerTimers(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	if len(comp.Timers) != 1 || comp.Timers[0].ID != "t" {
		t.Fatalf("timers: %v, want [t]", comp.Timers)
	}
	if got := childIDs(comp.Root); !sameIDs(got, []string{"ta"}) {
		t.Errorf("visual children after lowering: %v, want [ta]", got)
	}

	ta := comp.Root.Children[0]
	handler := ta.Bindings["clicked"].Expr.(objtree.CodeBlock)
	call := handler.Stmts[0].(objtree.ExprStmt).Expr
	block, ok := call.(objtree.CodeBlock)
	if !ok {
		t.Fatalf("start-timer was not rewritten: %#v", call)
	}
	assign := block.Stmts[0].(objtree.AssignStmt)
	if assign.Target.Element != comp.Timers[0] || assign.Target.Name != "running" {
		t.Errorf("rewrite targets %v, want t.running", assign.Target)
	}
	if v, ok := assign.Value.(objtree.BoolLiteral); !ok || !v.Value {
		t.Errorf("rewrite assigns %#v, want true", assign.Value)
	}
}

func TestTimerWithoutIntervalIsError(t *testing.T) {
	doc, sink := compile(t, `
component C {
    Timer { running: false; }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	lowerTimers(st, comp)
	if !sink.HasError() {
		t.Fatalf("want error for missing interval")
	}
	if len(comp.Timers) != 0 {
		t.Errorf("inert timer was moved to the timers list")
	}
	if len(comp.Root.Children) != 1 {
		t.Errorf("inert timer was detached")
	}
}

func TestTimerInRepeaterIsError(t *testing.T) {
	doc, sink := compile(t, `
component C {
    for x in [1, 2] : Rectangle {
        width: x * 1px;
        Timer { interval: 1s; }
    }
}
`)
	st := &state{doc: doc, sink: sink}
	lowerTimers(st, doc.Components[0])
	if !sink.HasError() {
		t.Fatalf("want error for timer inside a repeated element")
	}
}

func TestOptimizeUselessRectangles(t *testing.T) {
	doc, sink := compile(t, `
component C {
    out property <length> w: keep.width;
    outer := Rectangle {
        background: #111;
        Empty {
            inner := Text { text: "x"; }
        }
    }
    keep := Rectangle {}
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	optimizeUselessRectangles(st, comp)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	if got := childIDs(comp.Root); !sameIDs(got, []string{"outer", "keep"}) {
		t.Fatalf("root children: %v, want [outer keep]", got)
	}
	outer := comp.Root.Children[0]
	if got := childIDs(outer); !sameIDs(got, []string{"inner"}) {
		t.Errorf("outer children: %v, want [inner] (Empty spliced out)", got)
	}
	if outer.Children[0].Parent != outer {
		t.Errorf("spliced child has a stale parent pointer")
	}

	// Idempotent.
	optimizeUselessRectangles(st, comp)
	if got := childIDs(comp.Root); !sameIDs(got, []string{"outer", "keep"}) {
		t.Errorf("second run changed the tree: %v", got)
	}
}

func TestResolveNativeClassesIsMinimal(t *testing.T) {
	doc, sink := compile(t, `
component C {
    a := Rectangle { x: 1px; width: 2px; }
    b := Rectangle { border-width: 1px; background: #fff; }
    ta := TouchArea { enabled: true; }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	resolveNativeClasses(st, comp)

	want := map[string]string{"a": "Rectangle", "b": "BorderRectangle", "ta": "TouchArea"}
	for _, ch := range comp.Root.Children {
		if ch.Base.Kind != objtree.NativeType {
			t.Errorf("%s base kind %v, want NativeType", ch.ID, ch.Base.Kind)
			continue
		}
		if got := ch.Base.Native.Name; got != want[ch.ID] {
			t.Errorf("%s resolved to %s, want %s", ch.ID, got, want[ch.ID])
		}
	}
	if comp.Root.Base.Kind != objtree.NativeType || comp.Root.Base.Native.Name != "WindowItem" {
		t.Errorf("root resolved to %v, want WindowItem", comp.Root.Base)
	}
}

func TestGenerateItemIndices(t *testing.T) {
	doc, sink := compile(t, `
component C {
    a := Rectangle { background: #111;
        b := Text { text: "b"; }
        c := Text { text: "c"; }
    }
    d := Rectangle { background: #222; }
}
`)
	st := &state{doc: doc, sink: sink}
	comp := doc.Components[0]
	generateItemIndices(st, comp)

	byID := map[string]*objtree.Element{"": comp.Root}
	objtree.VisitElements(comp.Root, func(e *objtree.Element) { byID[e.ID] = e })

	wantIndex := map[string]int{"": 0, "a": 1, "d": 2, "b": 3, "c": 4}
	for id, want := range wantIndex {
		if got := byID[id].ItemIndex; got != want {
			t.Errorf("item index of %q: %d, want %d", id, got, want)
		}
	}
	if got := comp.Root.ItemIndexOfFirstChildren; got != 1 {
		t.Errorf("root first-children index: %d, want 1", got)
	}
	if got := byID["a"].ItemIndexOfFirstChildren; got != 3 {
		t.Errorf("a first-children index: %d, want 3", got)
	}
	if got := byID["d"].ItemIndexOfFirstChildren; got != -1 {
		t.Errorf("d first-children index: %d, want -1", got)
	}
}

func TestRunAssignsUniqueIDs(t *testing.T) {
	doc, sink := compile(t, `
export component Main {
    in-out property <int> count: 0;
    bar := Rectangle {
        width: count * 1px;
    }
    for item in [1, 2, 3] : Rectangle {
        width: item * 1px;
    }
}
`)
	Run(doc, sink)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	for _, comp := range doc.Components {
		forEachComponent(comp, func(c *objtree.Component) {
			seen := make(map[string]bool)
			eachComponentElement(c, func(e *objtree.Element) {
				if e.ID == "" {
					t.Errorf("element in %s has an empty id", c.Name)
				}
				if seen[e.ID] {
					t.Errorf("duplicate id %q in %s", e.ID, c.Name)
				}
				seen[e.ID] = true
				if e.ItemIndex < 0 {
					t.Errorf("element %s has no item index", e.ID)
				}
			})
		})
	}
}
