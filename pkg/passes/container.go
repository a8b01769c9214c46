package passes

import (
	"fmt"

	"github.com/vellum-ui/vellum/pkg/objtree"
)

// lowerComponentContainer rewrites every ComponentContainer element into a
// placeholder slot: a synthesized empty sub-component instantiated through a
// conditional repeat whose model is the constant false. The runtime embeds a
// caller-provided component by swapping the slot's component and flipping the
// condition. A container with literal children or holding the @children
// insertion point is an error.
func lowerComponentContainer(st *state, c *objtree.Component) {
	forEachComponent(c, func(comp *objtree.Component) {
		objtree.VisitElements(comp.Root, func(e *objtree.Element) {
			if e.Base.Kind != objtree.BuiltinType || e.Base.Builtin.Name != "ComponentContainer" {
				return
			}
			if len(e.Children) == 1 && e.Children[0].Repeated != nil &&
				e.Children[0].Repeated.IsComponentPlaceholder {
				return // already lowered
			}
			if len(e.Children) > 0 {
				st.errorf(e, "ComponentContainer cannot have children of its own")
				return
			}
			if e == comp.ChildInsertion {
				st.errorf(e, "@children cannot be placed in a ComponentContainer")
				return
			}

			sub := &objtree.Component{
				Name:            fmt.Sprintf("%s-container-%d", comp.Name, comp.NextIDSuffix()),
				ParentComponent: comp,
			}
			empty, _ := st.doc.Registry.Element("Empty")
			sub.Root = objtree.NewElement(objtree.Type{Kind: objtree.BuiltinType, Builtin: empty}, sub)
			sub.Root.Ranging = e.Ranging
			comp.SubComponents = append(comp.SubComponents, sub)

			slot := objtree.NewElement(objtree.Type{Kind: objtree.ComponentType, Component: sub}, comp)
			slot.Ranging = e.Ranging
			slot.Parent = e
			slot.Repeated = &objtree.RepeatInfo{
				IsConditional:          true,
				IsComponentPlaceholder: true,
				Model: &objtree.BindingExpression{
					Expr:    objtree.BoolLiteral{Value: false},
					Ranging: e.Ranging,
				},
			}
			e.Children = []*objtree.Element{slot}
		})
	})
}
