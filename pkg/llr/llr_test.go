package llr

import (
	"strings"
	"testing"

	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/objtree"
	"github.com/vellum-ui/vellum/pkg/parse"
	"github.com/vellum-ui/vellum/pkg/passes"
	"github.com/vellum-ui/vellum/pkg/registry"
)

func lower(t *testing.T, src string) *CompilationUnit {
	t.Helper()
	tree, err := parse.Parse(parse.SourceForTest(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var sink diag.Sink
	doc := objtree.Build(tree, registry.New(), nil, &sink)
	passes.Run(doc, &sink)
	if sink.HasError() {
		var sb strings.Builder
		for _, d := range sink.All() {
			sb.WriteString(d.Error())
			sb.WriteByte('\n')
		}
		t.Fatalf("unexpected diagnostics:\n%s", sb.String())
	}
	return LowerDocument(doc)
}

// findItem returns the index of the item whose debug id carries the given
// user-facing prefix (the unique-id pass appends a counter).
func findItem(t *testing.T, sc *SubComponent, prefix string) int {
	t.Helper()
	for i, item := range sc.Items {
		if strings.HasPrefix(item.DebugID, prefix+"-") {
			return i
		}
	}
	t.Fatalf("no item with id prefix %q", prefix)
	return -1
}

// findProp returns the Local index of the property named "<anything>.<name>".
func findProp(t *testing.T, props []Property, name string) int {
	t.Helper()
	for i, p := range props {
		if strings.HasSuffix(p.Name, "."+name) {
			return i
		}
	}
	t.Fatalf("no property %q", name)
	return -1
}

func findBinding(t *testing.T, sc *SubComponent, ref PropertyReference) Binding {
	t.Helper()
	for _, b := range sc.Bindings {
		if b.Ref == ref {
			return b
		}
	}
	t.Fatalf("no binding for %#v", ref)
	return Binding{}
}

const mainSource = `
global Palette {
    in-out property <brush> accent: #f00;
}

component Badge inherits Rectangle {
    in property <string> label;
    background: Palette.accent;
    t := Text { text: label; }
}

export component Main {
    in-out property <int> count: 1;
    out property <length> total: bar.width;
    bar := Rectangle {
        width: count * 1px;
    }
    b := Badge { label: "hi"; }
    for item[i] in [10, 20] : Rectangle {
        width: item * 1px;
        x: total + i * 2px;
    }
    tm := Timer {
        interval: 1s;
        triggered => { count += 1; }
    }
    mirror := Rectangle {
        width <=> bar.width;
    }
}
`

func TestLowerDocument(t *testing.T) {
	u := lower(t, mainSource)

	if len(u.Globals) != 1 || u.Globals[0].Name != "Palette" {
		t.Fatalf("globals: %v", u.Globals)
	}
	pal := u.Globals[0]
	if len(pal.Properties) != 1 || !strings.HasSuffix(pal.Properties[0].Name, ".accent") {
		t.Fatalf("palette properties: %v", pal.Properties)
	}
	if c, ok := pal.Bindings[0].Expr.(ColorLiteral); !ok || c.ARGB != 0xffff0000 {
		t.Errorf("accent bound to %#v, want ffff0000", pal.Bindings[0].Expr)
	}

	if len(u.Components) != 1 {
		t.Fatalf("got %d public components, want 1 (Badge is not exported)", len(u.Components))
	}
	pc := u.Components[0]
	if pc.Name != "Main" {
		t.Fatalf("component name %q", pc.Name)
	}
	sc := pc.Root

	// Public API: count in-out, total out-only.
	if len(pc.PublicProperties) != 2 {
		t.Fatalf("public properties: %v", pc.PublicProperties)
	}
	count, total := pc.PublicProperties[0], pc.PublicProperties[1]
	if count.Name != "count" || !count.Settable || !count.Gettable {
		t.Errorf("bad public property: %+v", count)
	}
	if total.Name != "total" || total.Settable || !total.Gettable {
		t.Errorf("bad public property: %+v", total)
	}

	// Item tree: root window, then bar, inlined badge, repeater slot, mirror.
	if sc.Items[0].NativeClass.Name != "WindowItem" {
		t.Errorf("root item class %s, want WindowItem", sc.Items[0].NativeClass.Name)
	}
	barItem := findItem(t, sc, "bar")
	if got := sc.Items[barItem].NativeClass.Name; got != "Rectangle" {
		t.Errorf("bar class %s, want Rectangle", got)
	}
	badgeItem := findItem(t, sc, "b")
	if got := sc.Items[badgeItem].NativeClass.Name; got != "BorderRectangle" {
		t.Errorf("inlined badge class %s, want BorderRectangle", got)
	}
	textItem := findItem(t, sc, "t")
	if sc.Items[textItem].ParentIndex != badgeItem {
		t.Errorf("text item parent %d, want %d", sc.Items[textItem].ParentIndex, badgeItem)
	}

	// Inlined badge: label became a local property bound to the usage's
	// string, background reads the global.
	label := findProp(t, sc.Properties, "label")
	lb := findBinding(t, sc, Local{label})
	if s, ok := lb.Expr.(StringLiteral); !ok || s.Value != "hi" {
		t.Errorf("label bound to %#v, want \"hi\"", lb.Expr)
	}
	bg := findBinding(t, sc, InNativeItem{badgeItem, "background"})
	if pv, ok := bg.Expr.(PropertyValue); !ok || pv.Ref != (PropertyReference)(InGlobal{0, 0}) {
		t.Errorf("background bound to %#v, want the global accent", bg.Expr)
	}
	txt := findBinding(t, sc, InNativeItem{textItem, "text"})
	if pv, ok := txt.Expr.(PropertyValue); !ok || pv.Ref != (PropertyReference)(Local{label}) {
		t.Errorf("text bound to %#v, want the local label", txt.Expr)
	}

	// Two-way canonicalized: mirror.width aliases bar.width.
	mirrorItem := findItem(t, sc, "mirror")
	if len(sc.TwoWayLinks) != 1 {
		t.Fatalf("two-way links: %v", sc.TwoWayLinks)
	}
	link := sc.TwoWayLinks[0]
	if link.Alias != (PropertyReference)(InNativeItem{mirrorItem, "width"}) ||
		link.Canonical != (PropertyReference)(InNativeItem{barItem, "width"}) {
		t.Errorf("bad link: %+v", link)
	}

	// Timer: pseudo-local properties plus a descriptor.
	if len(sc.Timers) != 1 {
		t.Fatalf("timers: %v", sc.Timers)
	}
	iv := findBinding(t, sc, sc.Timers[0].Interval)
	if n, ok := iv.Expr.(NumberLiteral); !ok || n.Value != 1000 {
		t.Errorf("interval bound to %#v, want 1000ms", iv.Expr)
	}
	trig := findBinding(t, sc, sc.Timers[0].Triggered)
	block, ok := trig.Expr.(CodeBlock)
	if !ok {
		t.Fatalf("triggered bound to %#v, want a code block", trig.Expr)
	}
	countProp := findProp(t, sc.Properties, "count")
	assign := block.Stmts[0].(AssignStmt)
	if assign.Target != (PropertyReference)(Local{countProp}) || assign.Op != "+=" {
		t.Errorf("bad triggered assignment: %+v", assign)
	}

	// Repeater: slot item points at the descriptor, model and bindings are
	// index-addressed.
	if len(sc.Repeaters) != 1 {
		t.Fatalf("repeaters: %v", sc.Repeaters)
	}
	rep := sc.Repeaters[0]
	if sc.Items[rep.SlotItem].RepeaterIndex != 0 {
		t.Errorf("slot item does not point at the repeater")
	}
	if arr, ok := rep.Model.(ArrayLiteral); !ok || len(arr.Values) != 2 {
		t.Errorf("model: %#v", rep.Model)
	}
	sub := rep.SubComponent
	if len(sub.Items) != 1 || sub.Items[0].NativeClass.Name != "Rectangle" {
		t.Fatalf("sub items: %v", sub.Items)
	}
	w := findBinding(t, sub, InNativeItem{0, "width"})
	if mul, ok := w.Expr.(Binary); !ok || mul.Op != "*" {
		t.Errorf("sub width: %#v", w.Expr)
	} else if _, ok := mul.Lhs.(ModelData); !ok {
		t.Errorf("sub width lhs: %#v, want model data", mul.Lhs)
	}
	x := findBinding(t, sub, InNativeItem{0, "x"})
	add, ok := x.Expr.(Binary)
	if !ok || add.Op != "+" {
		t.Fatalf("sub x: %#v", x.Expr)
	}
	pv, ok := add.Lhs.(PropertyValue)
	if !ok {
		t.Fatalf("sub x lhs: %#v", add.Lhs)
	}
	inp, ok := pv.Ref.(InParent)
	if !ok || inp.Level != 1 {
		t.Fatalf("sub x lhs ref: %#v, want one level up", pv.Ref)
	}
	totalProp := findProp(t, sc.Properties, "total")
	if inp.Ref != (PropertyReference)(Local{totalProp}) {
		t.Errorf("sub x resolves %#v, want the parent's total", inp.Ref)
	}
}

func TestLowerStates(t *testing.T) {
	u := lower(t, `
export component Stated {
    in property <bool> on;
    r := Rectangle {
        width: 10px;
        states [
            big when on : {
                width: 50px;
            }
            idle : {
            }
        ]
        transitions [
            in big : {
                animate width { duration: 200ms; }
            }
        ]
    }
}
`)
	sc := u.Components[0].Root
	rItem := findItem(t, sc, "r")

	stateProp := findProp(t, sc.Properties, "state")
	sb := findBinding(t, sc, Local{stateProp})
	cond, ok := sb.Expr.(Conditional)
	if !ok {
		t.Fatalf("state binding: %#v", sb.Expr)
	}
	if th, ok := cond.Then.(NumberLiteral); !ok || th.Value != 0 {
		t.Errorf("state then-branch: %#v, want 0", cond.Then)
	}
	if el, ok := cond.Else.(NumberLiteral); !ok || el.Value != 1 {
		t.Errorf("state else-branch: %#v, want the default state index 1", cond.Else)
	}

	w := findBinding(t, sc, InNativeItem{rItem, "width"})
	wrapped, ok := w.Expr.(Conditional)
	if !ok {
		t.Fatalf("width binding was not wrapped: %#v", w.Expr)
	}
	if th, ok := wrapped.Then.(NumberLiteral); !ok || th.Value != 50 {
		t.Errorf("state override: %#v, want 50px", wrapped.Then)
	}
	if el, ok := wrapped.Else.(NumberLiteral); !ok || el.Value != 10 {
		t.Errorf("base value: %#v, want 10px", wrapped.Else)
	}
	eq, ok := wrapped.Cond.(Binary)
	if !ok || eq.Op != "==" {
		t.Fatalf("override condition: %#v", wrapped.Cond)
	}
	if pv, ok := eq.Lhs.(PropertyValue); !ok || pv.Ref != (PropertyReference)(Local{stateProp}) {
		t.Errorf("override condition reads %#v, want the state property", eq.Lhs)
	}
	if w.Animation == nil || w.Animation.DurationMs != 200 {
		t.Errorf("transition animation: %+v, want 200ms", w.Animation)
	}
}

func TestLowerPanicsOnUnresolvableReference(t *testing.T) {
	// A reference whose element belongs to no reachable component is a
	// pipeline defect.
	defer func() {
		if recover() == nil {
			t.Errorf("no panic for an unresolvable reference")
		}
	}()
	orphanComp := &objtree.Component{Name: "orphan"}
	orphan := objtree.NewElement(objtree.Type{}, orphanComp)
	cx := &scope{
		u:         &unit{out: &CompilationUnit{}, globalIndex: map[*objtree.Component]int{}, globalProps: map[*objtree.Component]map[string]int{}},
		comp:      &objtree.Component{Name: "c"},
		sc:        &SubComponent{},
		itemIndex: map[*objtree.Element]int{},
		propIndex: map[propKey]int{},
	}
	cx.resolveRef(&objtree.NamedReference{Element: orphan, Name: "x"})
}
