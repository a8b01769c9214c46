package passes

import (
	"fmt"

	"github.com/vellum-ui/vellum/pkg/objtree"
)

// assignUniqueIDs gives every element a component-unique id by appending a
// per-component counter to the user-given id (or "item" for anonymous
// elements).
func assignUniqueIDs(st *state, c *objtree.Component) {
	forEachComponent(c, func(comp *objtree.Component) {
		eachComponentElement(comp, func(e *objtree.Element) {
			prefix := e.ID
			if prefix == "" {
				prefix = "item"
			}
			e.ID = fmt.Sprintf("%s-%d", prefix, comp.NextIDSuffix())
		})
	})
}

// checkUniqueIDs verifies the unique-id invariant, reporting both elements of
// any collision.
func checkUniqueIDs(st *state, c *objtree.Component) {
	forEachComponent(c, func(comp *objtree.Component) {
		seen := make(map[string]*objtree.Element)
		eachComponentElement(comp, func(e *objtree.Element) {
			if prev, ok := seen[e.ID]; ok {
				st.errorf(prev, "duplicate element id %q", e.ID)
				st.errorf(e, "duplicate element id %q", e.ID)
				return
			}
			seen[e.ID] = e
		})
	})
}

// eachComponentElement visits the elements owned directly by the component
// (visual tree plus optimized-away elements), not those of sub-components.
func eachComponentElement(comp *objtree.Component, f func(*objtree.Element)) {
	objtree.VisitElements(comp.Root, f)
	for _, e := range comp.OptimizedElements {
		objtree.VisitElements(e, f)
	}
}
