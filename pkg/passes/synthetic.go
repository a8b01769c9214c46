package passes

import (
	"github.com/vellum-ui/vellum/pkg/objtree"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// lowerOpacityAndVisible materializes the synthetic opacity and visible
// properties. An element binding one of them gets wrapped: opacity moves onto
// an Opacity wrapper's native property, visible becomes a declared property on
// a Clip wrapper whose clip is bound to its negation. References to the
// original property are rewritten to the wrapper, so reads keep working. A
// binding on the component root has nothing to wrap and is dropped with a
// warning.
func lowerOpacityAndVisible(st *state, c *objtree.Component) {
	moved := make(map[refKey]*objtree.Element)
	forEachComponent(c, func(comp *objtree.Component) {
		for _, name := range []string{"opacity", "visible"} {
			if be, ok := comp.Root.Bindings[name]; ok && syntheticHere(comp.Root, name) {
				st.warnf(be, "%s on the root element has no effect", name)
				delete(comp.Root.Bindings, name)
			}
		}
		wrapSynthetic(st, comp, comp.Root, moved)
	})
	if len(moved) == 0 {
		return
	}
	objtree.VisitNamedReferences(c, func(nr *objtree.NamedReference) {
		if w, ok := moved[refKey{nr.Element, nr.Name}]; ok {
			nr.Element = w
		}
	})
}

type refKey struct {
	elem *objtree.Element
	name string
}

func wrapSynthetic(st *state, comp *objtree.Component, e *objtree.Element, moved map[refKey]*objtree.Element) {
	for i, ch := range e.Children {
		wrapSynthetic(st, comp, ch, moved)
		e.Children[i] = wrapOne(st, comp, ch, moved)
	}
}

func wrapOne(st *state, comp *objtree.Component, ch *objtree.Element, moved map[refKey]*objtree.Element) *objtree.Element {
	out := ch
	if be, ok := ch.Bindings["visible"]; ok && syntheticHere(ch, "visible") {
		delete(ch.Bindings, "visible")
		w := newWrapper(st, comp, "Clip", out)
		w.DeclareProperty(&objtree.PropertyDecl{
			Name:    "visible",
			Type:    registry.BoolType,
			Access:  objtree.PrivateProp,
			Ranging: be.Ranging,
		})
		w.Bindings["visible"] = be
		w.Bindings["clip"] = &objtree.BindingExpression{
			Expr: objtree.Unary{
				Op:  "!",
				Sub: objtree.PropertyRef{Ref: &objtree.NamedReference{Element: w, Name: "visible"}},
			},
			Ranging: be.Ranging,
		}
		moved[refKey{ch, "visible"}] = w
		out = w
	}
	if be, ok := ch.Bindings["opacity"]; ok && syntheticHere(ch, "opacity") {
		delete(ch.Bindings, "opacity")
		w := newWrapper(st, comp, "Opacity", out)
		w.Bindings["opacity"] = be
		moved[refKey{ch, "opacity"}] = w
		out = w
	}
	return out
}

func newWrapper(st *state, comp *objtree.Component, base string, inner *objtree.Element) *objtree.Element {
	be, ok := st.doc.Registry.Element(base)
	if !ok {
		panic("builtin element " + base + " missing from registry")
	}
	w := objtree.NewElement(objtree.Type{Kind: objtree.BuiltinType, Builtin: be}, comp)
	w.Ranging = inner.Ranging
	w.Parent = inner.Parent
	inner.Parent = w
	w.Children = []*objtree.Element{inner}
	return w
}

// syntheticHere reports whether the property is synthetic for this element,
// i.e. neither declared on it nor provided by its base.
func syntheticHere(e *objtree.Element, name string) bool {
	if _, ok := e.PropertyDecls[name]; ok {
		return false
	}
	switch e.Base.Kind {
	case objtree.BuiltinType:
		t, _ := e.Base.Builtin.Native.Lookup(name)
		return t == nil
	case objtree.ComponentType:
		if d, ok := e.Base.Component.Root.PropertyDecls[name]; ok && d.Access != objtree.PrivateProp {
			return false
		}
		return true
	}
	return false
}
