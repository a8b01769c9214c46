package passes

import (
	"github.com/vellum-ui/vellum/pkg/objtree"
)

// generateItemIndices numbers the visual items of every component in
// breadth-first order, so the children of any item occupy a contiguous index
// range starting at ItemIndexOfFirstChildren. Repeater slots take one index
// in the enclosing component; the repeated content is numbered in its own
// sub-component's space.
func generateItemIndices(st *state, c *objtree.Component) {
	forEachComponent(c, func(comp *objtree.Component) {
		order := []*objtree.Element{comp.Root}
		for i := 0; i < len(order); i++ {
			e := order[i]
			e.ItemIndex = i
			if len(e.Children) > 0 {
				e.ItemIndexOfFirstChildren = len(order)
				order = append(order, e.Children...)
			} else {
				e.ItemIndexOfFirstChildren = -1
			}
		}
	})
}
