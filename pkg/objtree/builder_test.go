package objtree

import (
	"strings"
	"testing"

	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/parse"
	"github.com/vellum-ui/vellum/pkg/registry"
)

const sampleSource = `
global Theme {
    in-out property <brush> accent: #336699;
}

component Badge inherits Rectangle {
    in property <string> label;
    callback pressed(int);
    background: Theme.accent;
    Text {
        text: label;
    }
    ta := TouchArea {
        clicked => { root.pressed(1); }
    }
}

export component Main {
    in-out property <int> count: 0;
    out property <length> total: bar.width + 5px;
    function double(x: int) -> int { return x * 2; }
    bar := Rectangle {
        width: count * 1px;
        visible: count > 0;
    }
    for item[i] in [1, 2, 3] : Rectangle {
        x: i * 10px;
        width: item * 1px;
    }
    if count > 2 : Text { text: "many"; }
    t := Timer {
        interval: 2s;
        running: false;
        triggered => { count += 1; }
    }
    TouchArea {
        clicked => { start-timer(t); }
    }
}
`

func build(t *testing.T, src string) (*Document, *diag.Sink) {
	t.Helper()
	tree, err := parse.Parse(parse.SourceForTest(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var sink diag.Sink
	doc := Build(tree, registry.New(), nil, &sink)
	return doc, &sink
}

func buildOK(t *testing.T, src string) *Document {
	t.Helper()
	doc, sink := build(t, src)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(sink))
	}
	return doc
}

func diagsString(sink *diag.Sink) string {
	var sb strings.Builder
	for _, d := range sink.All() {
		sb.WriteString(d.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func findComponent(t *testing.T, doc *Document, name string) *Component {
	t.Helper()
	for _, c := range doc.Components {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no component %q", name)
	return nil
}

func findChild(t *testing.T, e *Element, id string) *Element {
	t.Helper()
	for _, ch := range e.Children {
		if ch.ID == id {
			return ch
		}
	}
	t.Fatalf("no child with id %q", id)
	return nil
}

func TestBuildSample(t *testing.T) {
	doc := buildOK(t, sampleSource)
	if len(doc.Components) != 3 {
		t.Fatalf("got %d components, want 3", len(doc.Components))
	}

	theme := findComponent(t, doc, "Theme")
	if !theme.Global {
		t.Errorf("Theme is not global")
	}
	accent := theme.Root.Bindings["accent"]
	if accent == nil {
		t.Fatalf("Theme.accent has no binding")
	}
	if c, ok := accent.Expr.(ColorLiteral); !ok || c.ARGB != 0xff336699 {
		t.Errorf("Theme.accent bound to %#v, want ColorLiteral ff336699", accent.Expr)
	}

	badge := findComponent(t, doc, "Badge")
	if badge.Root.Base.Kind != BuiltinType || badge.Root.Base.Builtin.Name != "Rectangle" {
		t.Errorf("Badge root base is %s, want Rectangle", badge.Root.Base)
	}
	bg := badge.Root.Bindings["background"]
	if bg == nil {
		t.Fatalf("Badge.background has no binding")
	}
	if ref, ok := bg.Expr.(PropertyRef); !ok || ref.Ref.Element != theme.Root || ref.Ref.Name != "accent" {
		t.Errorf("Badge.background bound to %#v, want Theme.accent", bg.Expr)
	}

	main := findComponent(t, doc, "Main")
	if !main.Exported {
		t.Errorf("Main is not exported")
	}
	if main.Root.Base.Kind != BuiltinType || main.Root.Base.Builtin.Name != "Window" {
		t.Errorf("Main root base is %s, want Window", main.Root.Base)
	}
	count := main.Root.PropertyDecls["count"]
	if count == nil || count.Access != InOutProp || count.Type.Kind != registry.Int {
		t.Errorf("bad declaration for count: %#v", count)
	}
	total := main.Root.PropertyDecls["total"]
	if total == nil || total.Access != OutProp || total.Type.Kind != registry.Length {
		t.Errorf("bad declaration for total: %#v", total)
	}
}

func TestBuildResolvesForwardReference(t *testing.T) {
	doc := buildOK(t, sampleSource)
	main := findComponent(t, doc, "Main")
	bar := findChild(t, main.Root, "bar")

	be := main.Root.Bindings["total"]
	if be == nil {
		t.Fatalf("total has no binding")
	}
	sum, ok := be.Expr.(Binary)
	if !ok || sum.Op != "+" {
		t.Fatalf("total bound to %#v, want a + expression", be.Expr)
	}
	lhs, ok := sum.Lhs.(PropertyRef)
	if !ok || lhs.Ref.Element != bar || lhs.Ref.Name != "width" {
		t.Errorf("total lhs is %#v, want bar.width", sum.Lhs)
	}
	if n, ok := sum.Rhs.(NumberLiteral); !ok || n.Value != 5 || n.Type != registry.LengthType {
		t.Errorf("total rhs is %#v, want 5px", sum.Rhs)
	}
}

func TestBuildPrecedence(t *testing.T) {
	doc := buildOK(t, `
component C {
    in property <float> a: 1 + 2 * 3;
    in property <bool> b: 1 + 2 < 4 && true;
}`)
	root := doc.Components[0].Root

	a := root.Bindings["a"].Expr
	sum, ok := a.(Binary)
	if !ok || sum.Op != "+" {
		t.Fatalf("a bound to %#v, want + at the top", a)
	}
	if prod, ok := sum.Rhs.(Binary); !ok || prod.Op != "*" {
		t.Errorf("rhs of a is %#v, want 2 * 3", sum.Rhs)
	}

	b := root.Bindings["b"].Expr
	and, ok := b.(Binary)
	if !ok || and.Op != "&&" {
		t.Fatalf("b bound to %#v, want && at the top", b)
	}
	if cmp, ok := and.Lhs.(Binary); !ok || cmp.Op != "<" {
		t.Errorf("lhs of b is %#v, want 1 + 2 < 4", and.Lhs)
	}
}

func TestBuildNumberUnits(t *testing.T) {
	doc := buildOK(t, `
component C {
    in property <duration> d: 2s;
    in property <angle> a: 45deg;
    in property <percent> p: 50%;
}`)
	root := doc.Components[0].Root
	if n := root.Bindings["d"].Expr.(NumberLiteral); n.Value != 2000 || n.Type != registry.DurationType {
		t.Errorf("d bound to %v %s, want 2000 duration", n.Value, n.Type)
	}
	if n := root.Bindings["a"].Expr.(NumberLiteral); n.Value != 45 || n.Type != registry.AngleType {
		t.Errorf("a bound to %v %s, want 45 angle", n.Value, n.Type)
	}
	if n := root.Bindings["p"].Expr.(NumberLiteral); n.Value != 50 || n.Type != registry.PercentType {
		t.Errorf("p bound to %v %s, want 50 percent", n.Value, n.Type)
	}
}

func TestBuildColorForms(t *testing.T) {
	doc := buildOK(t, `
component C {
    in property <brush> a: #123;
    in property <brush> b: #112233;
    in property <brush> c: #11223380;
}`)
	root := doc.Components[0].Root
	wants := map[string]uint32{
		"a": 0xff112233,
		"b": 0xff112233,
		"c": 0x80112233,
	}
	for name, want := range wants {
		if got := root.Bindings[name].Expr.(ColorLiteral).ARGB; got != want {
			t.Errorf("%s = %08x, want %08x", name, got, want)
		}
	}
}

func TestBuildRepeater(t *testing.T) {
	doc := buildOK(t, sampleSource)
	main := findComponent(t, doc, "Main")
	if len(main.SubComponents) != 2 {
		t.Fatalf("got %d sub-components, want 2", len(main.SubComponents))
	}

	var repeatSlot, condSlot *Element
	for _, ch := range main.Root.Children {
		if ch.Repeated == nil {
			continue
		}
		if ch.Repeated.IsConditional {
			condSlot = ch
		} else {
			repeatSlot = ch
		}
	}
	if repeatSlot == nil || condSlot == nil {
		t.Fatalf("missing repeater slots: repeat %v, cond %v", repeatSlot, condSlot)
	}

	if _, ok := repeatSlot.Repeated.Model.Expr.(ArrayLiteral); !ok {
		t.Errorf("repeat model is %#v, want array literal", repeatSlot.Repeated.Model.Expr)
	}
	sub := repeatSlot.Base.Component
	if sub == nil || sub.ParentComponent != main {
		t.Fatalf("repeat slot base is %s, want sub-component of Main", repeatSlot.Base)
	}
	x := sub.Root.Bindings["x"].Expr.(Binary)
	if _, ok := x.Lhs.(ModelIndex); !ok {
		t.Errorf("x of repeated element is %#v, want index * 10px", x)
	}
	w := sub.Root.Bindings["width"].Expr.(Binary)
	if _, ok := w.Lhs.(ModelData); !ok {
		t.Errorf("width of repeated element is %#v, want item * 1px", w)
	}

	if cond, ok := condSlot.Repeated.Model.Expr.(Binary); !ok || cond.Op != ">" {
		t.Errorf("condition is %#v, want count > 2", condSlot.Repeated.Model.Expr)
	}
}

func TestBuildHandlersAndFunctions(t *testing.T) {
	doc := buildOK(t, sampleSource)
	main := findComponent(t, doc, "Main")
	timer := findChild(t, main.Root, "t")

	triggered := timer.Bindings["triggered"]
	if triggered == nil {
		t.Fatalf("triggered has no handler")
	}
	block := triggered.Expr.(CodeBlock)
	assign := block.Stmts[0].(AssignStmt)
	if assign.Target.Element != main.Root || assign.Target.Name != "count" || assign.Op != "+=" {
		t.Errorf("handler assigns %s %s, want count +=", assign.Target, assign.Op)
	}

	double := main.Root.Bindings["double"]
	if double == nil {
		t.Fatalf("double has no body")
	}
	ret := double.Expr.(CodeBlock).Stmts[0].(ReturnStmt)
	prod := ret.Expr.(Binary)
	if arg, ok := prod.Lhs.(CallbackArg); !ok || arg.Index != 0 {
		t.Errorf("double returns %#v, want x * 2", ret.Expr)
	}
	decl := main.Root.PropertyDecls["double"]
	if decl == nil || !decl.IsCallback || decl.Access != PrivateProp {
		t.Errorf("bad declaration for double: %#v", decl)
	}
}

func TestBuildTimerFunctions(t *testing.T) {
	doc := buildOK(t, sampleSource)
	main := findComponent(t, doc, "Main")
	timer := findChild(t, main.Root, "t")

	var touch *Element
	for _, ch := range main.Root.Children {
		if ch.ID == "" && ch.Base.Kind == BuiltinType && ch.Base.Builtin.Name == "TouchArea" {
			touch = ch
		}
	}
	if touch == nil {
		t.Fatalf("no anonymous TouchArea")
	}
	block := touch.Bindings["clicked"].Expr.(CodeBlock)
	call := block.Stmts[0].(ExprStmt).Expr.(FunctionCall)
	if call.Function != "start-timer" {
		t.Fatalf("handler calls %q, want start-timer", call.Function)
	}
	ref, ok := call.Args[0].(PropertyRef)
	if !ok || ref.Ref.Element != timer || ref.Ref.Name != "running" {
		t.Errorf("start-timer argument is %#v, want t.running", call.Args[0])
	}
}

func TestBuildTwoWay(t *testing.T) {
	doc := buildOK(t, `
component C {
    in-out property <length> w <=> bar.width;
    bar := Rectangle {}
}`)
	root := doc.Components[0].Root
	bar := findChild(t, root, "bar")
	tw, ok := root.Bindings["w"].Expr.(TwoWay)
	if !ok || tw.Target.Element != bar || tw.Target.Name != "width" {
		t.Errorf("w bound to %#v, want two-way to bar.width", root.Bindings["w"].Expr)
	}
}

func TestBuildStatesAndAnimate(t *testing.T) {
	doc := buildOK(t, `
component C inherits Rectangle {
    in property <bool> on;
    width: 10px;
    animate width { duration: 100ms; }
    states [
        active when on : {
            width: 20px;
        }
        idle : {
        }
    ]
    transitions [
        in active : {
            animate width { duration: 250ms; }
        }
    ]
}`)
	root := doc.Components[0].Root
	if len(root.States) != 2 {
		t.Fatalf("got %d states, want 2", len(root.States))
	}
	active := root.States[0]
	if active.Name != "active" || active.Condition == nil || len(active.Sets) != 1 {
		t.Fatalf("bad state: %#v", active)
	}
	set := active.Sets[0]
	if set.Target.Element != root || set.Target.Name != "width" {
		t.Errorf("state sets %s, want width", set.Target)
	}
	if root.States[1].Condition != nil {
		t.Errorf("default state has a condition")
	}

	w := root.Bindings["width"]
	if w.Animation == nil {
		t.Fatalf("width has no animation")
	}
	if d := w.Animation.Duration.(NumberLiteral); d.Value != 100 {
		t.Errorf("animation duration %v, want 100", d.Value)
	}

	if len(root.Transitions) != 1 {
		t.Fatalf("got %d transitions, want 1", len(root.Transitions))
	}
	tr := root.Transitions[0]
	if tr.Out || tr.StateName != "active" {
		t.Errorf("bad transition: %#v", tr)
	}
	if a := tr.Animations["width"]; a == nil || a.Duration.(NumberLiteral).Value != 250 {
		t.Errorf("bad transition animation: %#v", tr.Animations)
	}
}

func TestBuildEnums(t *testing.T) {
	doc := buildOK(t, `
enum Mode { compact, wide }

component C {
    in property <Mode> mode: Mode.wide;
    Text {
        horizontal-alignment: TextHorizontalAlignment.center;
    }
}`)
	root := doc.Components[0].Root
	ev, ok := root.Bindings["mode"].Expr.(EnumValue)
	if !ok || ev.Enum.Name != "Mode" || ev.Case != "wide" {
		t.Errorf("mode bound to %#v, want Mode.wide", root.Bindings["mode"].Expr)
	}
	text := root.Children[0]
	ev2 := text.Bindings["horizontal-alignment"].Expr.(EnumValue)
	if ev2.Enum.Name != "TextHorizontalAlignment" || ev2.Case != "center" {
		t.Errorf("alignment bound to %#v", text.Bindings["horizontal-alignment"].Expr)
	}
}

func TestBuildStructs(t *testing.T) {
	doc := buildOK(t, `
struct Item { name: string, pos: Pos }
struct Pos { x: length, y: length }

component C {
    in property <Item> item: { name: "a", pos: { x: 1px, y: 2px } };
    in property <string> n: item.name;
}`)
	if len(doc.Structs) != 2 {
		t.Fatalf("got %d structs, want 2", len(doc.Structs))
	}
	item := doc.LocalStruct("Item")
	if item.FieldType("pos") == nil || item.FieldType("pos").StructDef != doc.LocalStruct("Pos") {
		t.Errorf("Item.pos does not reference struct Pos")
	}

	root := doc.Components[0].Root
	lit, ok := root.Bindings["item"].Expr.(StructLiteral)
	if !ok || len(lit.Names) != 2 {
		t.Fatalf("item bound to %#v, want struct literal", root.Bindings["item"].Expr)
	}
	fa, ok := root.Bindings["n"].Expr.(FieldAccess)
	if !ok || fa.Field != "name" {
		t.Errorf("n bound to %#v, want item.name", root.Bindings["n"].Expr)
	}
}

func TestBuildChildrenPlaceholder(t *testing.T) {
	doc := buildOK(t, `
component Panel {
    inner := Rectangle {
        @children
    }
}`)
	panel := doc.Components[0]
	if panel.ChildInsertion == nil || panel.ChildInsertion.ID != "inner" {
		t.Errorf("child insertion is %v, want inner", panel.ChildInsertion)
	}
}

var buildErrorTests = []struct {
	name    string
	src     string
	wantMsg string
}{
	{"unknown element", `component C { Bogus {} }`, "unknown element type"},
	{"unknown property", `component C { Rectangle { bogus: 1; } }`, "no property"},
	{"duplicate binding",
		`component C inherits Rectangle { width: 1px; width: 2px; }`,
		"duplicate binding"},
	{"unknown identifier", `component C { in property <int> a: nope; }`, "unknown identifier"},
	{"self containment", `component C { C {} }`, "cannot contain itself"},
	{"inherit component",
		`component A {}
component B inherits A {}`,
		"inherit from builtin element types"},
	{"global with elements", `global G { Rectangle {} }`, "global components"},
	{"global as element",
		`global G {}
component C { G {} }`,
		"cannot be used as an element"},
	{"two-way type mismatch",
		`component C {
    in property <string> s;
    in property <int> a <=> s;
}`,
		"incompatible types"},
	{"callback colon binding",
		`component C { TouchArea { clicked: 1; } }`,
		"must be set with"},
	{"binding type mismatch",
		`component C inherits Rectangle { width: "wat"; }`,
		"cannot bind"},
	{"bind output property",
		`component A { out property <int> n: 1; }
component C { A { n: 2; } }`,
		"output property"},
	{"bad timer argument",
		`component C { TouchArea { clicked => { start-timer(self); } } }`,
		"Timer element"},
	{"duplicate id",
		`component C {
    a := Rectangle {}
    a := Rectangle {}
}`,
		"duplicate element id"},
	{"condition not bool", `component C { if 1 : Rectangle {} }`, "must be bool"},
	{"animate needs duration",
		`component C inherits Rectangle { width: 1px; animate width {} }`,
		"needs a duration"},
	{"unknown state",
		`component C { transitions [ in missing : {} ] }`,
		"unknown state"},
	{"redeclare builtin callback",
		`component C { TouchArea { in-out property <int> clicked: 1; } }`,
		"cannot be redeclared"},
	{"redeclare builtin callback as callback",
		`component C { TouchArea { callback clicked(); } }`,
		"cannot be redeclared"},
}

func TestBuildErrors(t *testing.T) {
	for _, test := range buildErrorTests {
		t.Run(test.name, func(t *testing.T) {
			_, sink := build(t, test.src)
			if !sink.HasError() {
				t.Fatalf("no diagnostics, want %q", test.wantMsg)
			}
			if !strings.Contains(diagsString(sink), test.wantMsg) {
				t.Errorf("diagnostics do not mention %q:\n%s", test.wantMsg, diagsString(sink))
			}
		})
	}
}

func TestBuildDeclarationShadowsBuiltinProperty(t *testing.T) {
	doc := buildOK(t, `
export component App {
    in-out property <int> x: 1;
    r := Rectangle { in property <string> opacity: "solid"; }
}
`)
	root := doc.Components[0].Root
	if d, ok := root.PropertyDecls["x"]; !ok || !d.Type.Equal(registry.IntType) {
		t.Errorf("x declaration = %#v, want int", d)
	}
	rect := root.Children[0]
	if d, ok := rect.PropertyDecls["opacity"]; !ok || !d.Type.Equal(registry.StringType) {
		t.Errorf("opacity declaration = %#v, want string", d)
	}
	// The declaration wins over the builtin surface on lookup too.
	if typ := rect.LookupProperty("opacity"); !typ.Equal(registry.StringType) {
		t.Errorf("LookupProperty(opacity) = %v, want string", typ)
	}
}

func TestBuildImports(t *testing.T) {
	lib := buildOK(t, `export component Button {}`)
	button := lib.Components[0]

	tree, err := parse.Parse(parse.SourceForTest(
		`import { Button } from "lib.vel";
component C { Button {} }`))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var sink diag.Sink
	doc := Build(tree, registry.New(), map[string]*Component{"Button": button}, &sink)
	if sink.HasError() {
		t.Fatalf("unexpected diagnostics:\n%s", diagsString(&sink))
	}
	if len(doc.Imports) != 1 || doc.Imports[0].Path != "lib.vel" {
		t.Fatalf("bad import records: %#v", doc.Imports)
	}
	child := doc.Components[0].Root.Children[0]
	if child.Base.Kind != ComponentType || child.Base.Component != button {
		t.Errorf("child base is %s, want imported Button", child.Base)
	}
}
