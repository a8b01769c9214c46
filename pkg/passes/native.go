package passes

import (
	"strings"

	"github.com/vellum-ui/vellum/pkg/objtree"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// resolveNativeClasses replaces every builtin element base with a concrete
// native class: the most basic class of the inheritance chain that still
// declares every property the element actually uses (binds, or is read
// through a reference). The top-level root keeps its full class since the
// backend needs the window surface regardless of which properties are bound.
func resolveNativeClasses(st *state, c *objtree.Component) {
	used := make(map[*objtree.Element]map[string]bool)
	mark := func(e *objtree.Element, name string) {
		if _, ok := e.PropertyDecls[name]; ok {
			return // local property, not native
		}
		m := used[e]
		if m == nil {
			m = make(map[string]bool)
			used[e] = m
		}
		m[name] = true
	}
	objtree.VisitComponentBindings(c, func(e *objtree.Element, name string, _ *objtree.BindingExpression) {
		if !strings.HasPrefix(name, "$") {
			mark(e, name)
		}
	})
	objtree.VisitNamedReferences(c, func(nr *objtree.NamedReference) {
		mark(nr.Element, nr.Name)
	})

	objtree.VisitAllElements(c, func(e *objtree.Element) {
		if e.Base.Kind != objtree.BuiltinType {
			return
		}
		be := e.Base.Builtin
		native := be.Native
		if e != c.Root {
			native = minimalClass(be.Native, used[e])
		}
		e.Base = objtree.Type{Kind: objtree.NativeType, Builtin: be, Native: native}
	})
}

func minimalClass(full *registry.NativeClass, used map[string]bool) *registry.NativeClass {
	best := full
	for best.Parent != nil {
		best = best.Parent
	}
	for name := range used {
		_, cls := full.Lookup(name)
		if cls != nil && cls.Depth() > best.Depth() {
			best = cls
		}
	}
	return best
}
