package passes

import (
	"github.com/vellum-ui/vellum/pkg/objtree"
)

// optimizeUselessRectangles splices out elements that contribute nothing: an
// empty-capable builtin with no bindings, no declared properties, no states
// and no references pointing at it. Its children move up to the parent and
// its id is folded into the parent's debug ids. Component roots, @children
// carriers, repeater slots and popup anchors are always kept. The pass is
// idempotent: a second run finds no candidates.
func optimizeUselessRectangles(st *state, c *objtree.Component) {
	referenced := make(map[*objtree.Element]bool)
	objtree.VisitNamedReferences(c, func(nr *objtree.NamedReference) {
		referenced[nr.Element] = true
	})
	forEachComponent(c, func(comp *objtree.Component) {
		spliceUseless(comp, comp.Root, referenced)
	})
}

func spliceUseless(comp *objtree.Component, e *objtree.Element, referenced map[*objtree.Element]bool) {
	var out []*objtree.Element
	for _, ch := range e.Children {
		spliceUseless(comp, ch, referenced)
		if !uselessElement(comp, ch, referenced) {
			out = append(out, ch)
			continue
		}
		for _, gc := range ch.Children {
			gc.Parent = e
		}
		out = append(out, ch.Children...)
		if ch.ID != "" {
			e.DebugIDs = append(e.DebugIDs, ch.ID)
		}
		e.DebugIDs = append(e.DebugIDs, ch.DebugIDs...)
	}
	e.Children = out
}

func uselessElement(comp *objtree.Component, e *objtree.Element, referenced map[*objtree.Element]bool) bool {
	if e.Base.Kind != objtree.BuiltinType || !e.Base.Builtin.Empty {
		return false
	}
	if e.HasOwnBindings() || len(e.PropertyDecls) > 0 {
		return false
	}
	if len(e.States) > 0 || len(e.Transitions) > 0 {
		return false
	}
	if e.Repeated != nil || referenced[e] || e == comp.ChildInsertion {
		return false
	}
	for _, ch := range e.Children {
		if ch.Base.Kind == objtree.BuiltinType && ch.Base.Builtin.IsPopup {
			return false // popup anchor
		}
	}
	return true
}
