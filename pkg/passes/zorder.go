package passes

import (
	"sort"

	"github.com/vellum-ui/vellum/pkg/objtree"
)

// reorderByZOrder consumes constant z bindings: the siblings that bind z are
// stably sorted by ascending z among themselves and the sorted elements put
// back into the same slots, so siblings without z keep their positions. A
// non-constant z is an error (and counts as 0 for the sort).
func reorderByZOrder(st *state, c *objtree.Component) {
	objtree.VisitAllElements(c, func(e *objtree.Element) {
		reorderChildren(st, e)
	})
}

func reorderChildren(st *state, e *objtree.Element) {
	type zChild struct {
		el *objtree.Element
		z  float64
	}
	var slots []int
	var bound []zChild
	for i, ch := range e.Children {
		be, ok := ch.Bindings["z"]
		if !ok {
			continue
		}
		v, constOK := objtree.ConstantNumber(be.Expr)
		if !constOK {
			st.errorf(be, "z must be a constant number")
			v = 0
		}
		delete(ch.Bindings, "z")
		slots = append(slots, i)
		bound = append(bound, zChild{ch, v})
	}
	if len(bound) == 0 {
		return
	}
	sort.SliceStable(bound, func(i, j int) bool { return bound[i].z < bound[j].z })
	for k, i := range slots {
		e.Children[i] = bound[k].el
	}
}
