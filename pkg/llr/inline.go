package llr

import (
	"github.com/vellum-ui/vellum/pkg/objtree"
)

// Inlining: before translation, every non-repeated component-typed element is
// replaced by a deep copy of the used component's tree. Afterwards the only
// component-typed elements left are repeater slots, so the four
// PropertyReference variants can address everything — there is no "into a
// child instance" addressing mode.

// inlineAll inlines all component usages inside c and its sub-components.
// Shared used components are inlined in place once; done memoizes that.
func inlineAll(c *objtree.Component, done map[*objtree.Component]bool) {
	if done[c] {
		return
	}
	done[c] = true
	for _, sub := range c.SubComponents {
		inlineAll(sub, done)
	}
	inlineUsages(c, c.Root, done)
}

func inlineUsages(comp *objtree.Component, e *objtree.Element, done map[*objtree.Component]bool) {
	for i, ch := range e.Children {
		inlineUsages(comp, ch, done)
		if ch.Base.Kind != objtree.ComponentType || ch.Repeated != nil {
			continue
		}
		used := ch.Base.Component
		inlineAll(used, done)
		e.Children[i] = graft(comp, ch, used)
	}
}

// graft replaces the usage element with a fresh copy of the used component's
// tree: the copy's root takes the usage's place, id and bindings; literal
// children of the usage go to the copy's @children insertion point.
func graft(outer *objtree.Component, usage *objtree.Element, used *objtree.Component) *objtree.Element {
	clone := cloneComponent(used)
	root := clone.Root
	if usage.ID != "" {
		root.ID = usage.ID
	}
	root.Parent = usage.Parent
	root.Ranging = usage.Ranging

	objtree.VisitElements(root, func(e *objtree.Element) { e.Enclosing = outer })
	for _, oe := range clone.OptimizedElements {
		objtree.VisitElements(oe, func(e *objtree.Element) { e.Enclosing = outer })
	}
	for _, sub := range clone.SubComponents {
		sub.ParentComponent = outer
	}
	outer.SubComponents = append(outer.SubComponents, clone.SubComponents...)
	outer.OptimizedElements = append(outer.OptimizedElements, clone.OptimizedElements...)
	outer.Timers = append(outer.Timers, clone.Timers...)

	for _, name := range usage.DeclOrder {
		root.DeclareProperty(usage.PropertyDecls[name])
	}
	for name, be := range usage.Bindings {
		root.Bindings[name] = be
	}
	if len(usage.Children) > 0 {
		target := clone.ChildInsertion
		if target == nil {
			target = root
		}
		for _, ch := range usage.Children {
			ch.Parent = target
		}
		target.Children = append(target.Children, usage.Children...)
	}

	objtree.VisitNamedReferences(outer, func(nr *objtree.NamedReference) {
		if nr.Element == usage {
			nr.Element = root
		}
	})
	return root
}

// cloneComponent deep-copies a component: fresh elements, fresh binding
// expressions and fresh named references, remapped onto the copies. External
// references (to globals) keep their targets.
func cloneComponent(src *objtree.Component) *objtree.Component {
	elems := make(map[*objtree.Element]*objtree.Element)
	comps := make(map[*objtree.Component]*objtree.Component)
	dst := cloneComponentInto(src, elems, comps)
	for _, nc := range comps {
		remapComponent(nc, elems, comps)
	}
	return dst
}

func cloneComponentInto(src *objtree.Component, elems map[*objtree.Element]*objtree.Element, comps map[*objtree.Component]*objtree.Component) *objtree.Component {
	dst := &objtree.Component{
		Name:        src.Name,
		Exported:    src.Exported,
		Global:      src.Global,
		UsedStructs: src.UsedStructs,
		UsedEnums:   src.UsedEnums,
	}
	comps[src] = dst
	dst.Root = cloneElement(src.Root, dst, elems)
	for _, e := range src.OptimizedElements {
		dst.OptimizedElements = append(dst.OptimizedElements, cloneElement(e, dst, elems))
	}
	for _, e := range src.Timers {
		dst.Timers = append(dst.Timers, elems[e])
	}
	for _, sub := range src.SubComponents {
		nsub := cloneComponentInto(sub, elems, comps)
		nsub.ParentComponent = dst
		dst.SubComponents = append(dst.SubComponents, nsub)
	}
	if src.ChildInsertion != nil {
		dst.ChildInsertion = elems[src.ChildInsertion]
	}
	return dst
}

func cloneElement(e *objtree.Element, comp *objtree.Component, elems map[*objtree.Element]*objtree.Element) *objtree.Element {
	ne := &objtree.Element{
		ID:                       e.ID,
		Base:                     e.Base,
		Bindings:                 make(map[string]*objtree.BindingExpression, len(e.Bindings)),
		PropertyDecls:            make(map[string]*objtree.PropertyDecl, len(e.PropertyDecls)),
		DeclOrder:                append([]string(nil), e.DeclOrder...),
		ItemIndex:                e.ItemIndex,
		ItemIndexOfFirstChildren: e.ItemIndexOfFirstChildren,
		Enclosing:                comp,
		DebugIDs:                 append([]string(nil), e.DebugIDs...),
		Ranging:                  e.Ranging,
	}
	elems[e] = ne
	for name, d := range e.PropertyDecls {
		nd := *d
		ne.PropertyDecls[name] = &nd
	}
	for name, be := range e.Bindings {
		ne.Bindings[name] = cloneBindingExpression(be)
	}
	if e.Repeated != nil {
		r := *e.Repeated
		if r.Model != nil {
			r.Model = cloneBindingExpression(r.Model)
		}
		ne.Repeated = &r
	}
	for _, s := range e.States {
		ns := s
		if s.Condition != nil {
			ns.Condition = cloneBindingExpression(s.Condition)
		}
		ns.Sets = make([]objtree.StateSet, len(s.Sets))
		for j, set := range s.Sets {
			ns.Sets[j] = objtree.StateSet{
				Target: &objtree.NamedReference{Element: set.Target.Element, Name: set.Target.Name},
				Value:  cloneBindingExpression(set.Value),
			}
		}
		ne.States = append(ne.States, ns)
	}
	for _, tr := range e.Transitions {
		nt := tr
		nt.Animations = make(map[string]*objtree.Animation, len(tr.Animations))
		for name, a := range tr.Animations {
			na := *a
			nt.Animations[name] = &na
		}
		ne.Transitions = append(ne.Transitions, nt)
	}
	for _, ch := range e.Children {
		nch := cloneElement(ch, comp, elems)
		nch.Parent = ne
		ne.Children = append(ne.Children, nch)
	}
	return ne
}

func cloneBindingExpression(be *objtree.BindingExpression) *objtree.BindingExpression {
	nbe := *be
	if be.Animation != nil {
		na := *be.Animation
		nbe.Animation = &na
	}
	return &nbe
}

// remapComponent rewrites, in a cloned component, every named reference and
// component-type base onto the cloned counterparts. Expressions are rebuilt
// with fresh NamedReference pointers so the clone never aliases the source.
func remapComponent(comp *objtree.Component, elems map[*objtree.Element]*objtree.Element, comps map[*objtree.Component]*objtree.Component) {
	each := func(e *objtree.Element) {
		if e.Base.Kind == objtree.ComponentType {
			if nc, ok := comps[e.Base.Component]; ok {
				e.Base.Component = nc
			}
		}
		for _, be := range e.Bindings {
			remapBindingExpression(be, elems)
		}
		if e.Repeated != nil && e.Repeated.Model != nil {
			remapBindingExpression(e.Repeated.Model, elems)
		}
		for i := range e.States {
			if e.States[i].Condition != nil {
				remapBindingExpression(e.States[i].Condition, elems)
			}
			for j := range e.States[i].Sets {
				set := &e.States[i].Sets[j]
				set.Target = remapRef(set.Target, elems)
				remapBindingExpression(set.Value, elems)
			}
		}
		for i := range e.Transitions {
			for _, a := range e.Transitions[i].Animations {
				a.Duration = remapExpr(a.Duration, elems)
			}
		}
	}
	objtree.VisitElements(comp.Root, each)
	for _, e := range comp.OptimizedElements {
		objtree.VisitElements(e, each)
	}
}

func remapBindingExpression(be *objtree.BindingExpression, elems map[*objtree.Element]*objtree.Element) {
	be.Expr = remapExpr(be.Expr, elems)
	if be.Animation != nil {
		be.Animation.Duration = remapExpr(be.Animation.Duration, elems)
	}
}

func remapExpr(e objtree.Expression, elems map[*objtree.Element]*objtree.Element) objtree.Expression {
	if e == nil {
		return nil
	}
	return objtree.VisitExpressions(e, func(x objtree.Expression) objtree.Expression {
		switch x := x.(type) {
		case objtree.PropertyRef:
			return objtree.PropertyRef{Ref: remapRef(x.Ref, elems)}
		case objtree.CallbackCall:
			x.Ref = remapRef(x.Ref, elems)
			return x
		case objtree.TwoWay:
			return objtree.TwoWay{Target: remapRef(x.Target, elems)}
		case objtree.CodeBlock:
			for i, s := range x.Stmts {
				if a, ok := s.(objtree.AssignStmt); ok {
					a.Target = remapRef(a.Target, elems)
					x.Stmts[i] = a
				}
			}
			return x
		}
		return x
	})
}

func remapRef(nr *objtree.NamedReference, elems map[*objtree.Element]*objtree.Element) *objtree.NamedReference {
	el := nr.Element
	if m, ok := elems[el]; ok {
		el = m
	}
	return &objtree.NamedReference{Element: el, Name: nr.Name}
}
