package llr

import (
	"fmt"

	"github.com/vellum-ui/vellum/pkg/objtree"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// LowerDocument flattens a fully lowered object tree into the LLR. The input
// must have run through the whole passes pipeline without error diagnostics
// for the components being lowered; any reference this stage cannot resolve
// by indices alone is a pipeline defect and panics.
func LowerDocument(doc *objtree.Document) *CompilationUnit {
	u := &unit{
		out:         &CompilationUnit{},
		globalIndex: make(map[*objtree.Component]int),
		globalProps: make(map[*objtree.Component]map[string]int),
	}
	for _, c := range doc.Components {
		if c.Global {
			u.ensureGlobal(c)
		}
	}
	done := make(map[*objtree.Component]bool)
	for _, c := range doc.Components {
		if c.Global || !c.Exported {
			continue
		}
		inlineAll(c, done)
		cx := u.lowerComponent(c, nil)
		u.out.Components = append(u.out.Components, buildPublic(c, cx))
	}
	return u.out
}

type unit struct {
	out         *CompilationUnit
	globalIndex map[*objtree.Component]int
	globalProps map[*objtree.Component]map[string]int
}

type propKey struct {
	elem *objtree.Element
	name string
}

// scope is the lowering context of one sub-component (or of a global, which
// has properties but no items).
type scope struct {
	u         *unit
	comp      *objtree.Component
	parent    *scope
	sc        *SubComponent
	itemIndex map[*objtree.Element]int
	propIndex map[propKey]int
}

func (u *unit) ensureGlobal(c *objtree.Component) int {
	if i, ok := u.globalIndex[c]; ok {
		return i
	}
	i := len(u.out.Globals)
	g := &GlobalComponent{Name: c.Name}
	u.out.Globals = append(u.out.Globals, g)
	u.globalIndex[c] = i

	root := c.Root
	pidx := make(map[string]int, len(root.DeclOrder))
	for _, name := range root.DeclOrder {
		d := root.PropertyDecls[name]
		pidx[name] = len(g.Properties)
		g.Properties = append(g.Properties, Property{
			Name: c.Name + "." + name, Type: d.Type, IsCallback: d.IsCallback,
		})
	}
	u.globalProps[c] = pidx

	cx := &scope{
		u:         u,
		comp:      c,
		sc:        &SubComponent{Name: c.Name},
		itemIndex: make(map[*objtree.Element]int),
		propIndex: make(map[propKey]int, len(pidx)),
	}
	for name, pi := range pidx {
		cx.propIndex[propKey{root, name}] = pi
	}
	for _, name := range root.BindingNames() {
		be := root.Bindings[name]
		g.Bindings = append(g.Bindings, Binding{
			Ref:       Local{pidx[name]},
			Expr:      cx.lowerExpr(be.Expr),
			Animation: lowerAnim(be.Animation),
		})
	}
	return i
}

func (u *unit) lowerComponent(c *objtree.Component, parent *scope) *scope {
	cx := &scope{
		u:         u,
		comp:      c,
		parent:    parent,
		sc:        &SubComponent{Name: c.Name},
		itemIndex: make(map[*objtree.Element]int),
		propIndex: make(map[propKey]int),
	}

	// Item array in breadth-first order, matching the item index pass.
	order := []*objtree.Element{c.Root}
	for i := 0; i < len(order); i++ {
		cx.itemIndex[order[i]] = i
		order = append(order, order[i].Children...)
	}
	for _, e := range order {
		item := Item{
			DebugID:       e.ID,
			ParentIndex:   -1,
			FirstChild:    -1,
			ChildCount:    len(e.Children),
			RepeaterIndex: -1,
		}
		if e.Parent != nil {
			item.ParentIndex = cx.itemIndex[e.Parent]
		}
		if len(e.Children) > 0 {
			item.FirstChild = cx.itemIndex[e.Children[0]]
		}
		switch e.Base.Kind {
		case objtree.NativeType:
			item.NativeClass = e.Base.Native
		case objtree.ComponentType:
			if e.Repeated == nil {
				panic(fmt.Sprintf("llr: unresolved component usage %s in %s", e.ID, c.Name))
			}
		default:
			panic(fmt.Sprintf("llr: element %s in %s has no native class", e.ID, c.Name))
		}
		cx.sc.Items = append(cx.sc.Items, item)
	}

	// Declared properties, then the pseudo-local properties of timers (timers
	// are not items, so their native properties get local slots instead).
	for _, e := range order {
		cx.declareProps(e)
	}
	for _, e := range c.Timers {
		cx.declareProps(e)
		for _, tp := range []struct {
			name string
			typ  *registry.ValueType
			cb   bool
		}{
			{"interval", registry.DurationType, false},
			{"running", registry.BoolType, false},
			{"triggered", registry.CallbackOf(nil, nil), true},
		} {
			cx.propIndex[propKey{e, tp.name}] = len(cx.sc.Properties)
			cx.sc.Properties = append(cx.sc.Properties, Property{
				Name: e.ID + "." + tp.name, Type: tp.typ, IsCallback: tp.cb,
			})
		}
		cx.sc.Timers = append(cx.sc.Timers, Timer{
			Interval:  cx.refOf(e, "interval"),
			Running:   cx.refOf(e, "running"),
			Triggered: cx.refOf(e, "triggered"),
		})
	}

	// Repeaters after properties: sub-component expressions resolve parent
	// references against the property indices built above.
	for _, e := range order {
		if e.Repeated == nil {
			continue
		}
		sub := u.lowerComponent(e.Base.Component, cx)
		r := Repeater{
			SubComponent:           sub.sc,
			IsConditional:          e.Repeated.IsConditional,
			IsComponentPlaceholder: e.Repeated.IsComponentPlaceholder,
			SlotItem:               cx.itemIndex[e],
		}
		if e.Repeated.Model != nil {
			r.Model = cx.lowerExpr(e.Repeated.Model.Expr)
		}
		cx.sc.Items[cx.itemIndex[e]].RepeaterIndex = len(cx.sc.Repeaters)
		cx.sc.Repeaters = append(cx.sc.Repeaters, r)
	}

	for _, e := range order {
		cx.lowerBindings(e)
	}
	for _, e := range c.Timers {
		cx.lowerBindings(e)
	}
	for _, e := range order {
		cx.lowerStates(e)
	}
	return cx
}

func (cx *scope) declareProps(e *objtree.Element) {
	for _, name := range e.DeclOrder {
		d := e.PropertyDecls[name]
		cx.propIndex[propKey{e, name}] = len(cx.sc.Properties)
		cx.sc.Properties = append(cx.sc.Properties, Property{
			Name: e.ID + "." + name, Type: d.Type, IsCallback: d.IsCallback,
		})
	}
}

func (cx *scope) lowerBindings(e *objtree.Element) {
	for _, name := range e.BindingNames() {
		be := e.Bindings[name]
		if tw, ok := be.Expr.(objtree.TwoWay); ok {
			cx.sc.TwoWayLinks = append(cx.sc.TwoWayLinks, TwoWayLink{
				Canonical: cx.resolveRef(tw.Target),
				Alias:     cx.refOf(e, name),
			})
			continue
		}
		cx.sc.Bindings = append(cx.sc.Bindings, Binding{
			Ref:       cx.refOf(e, name),
			Expr:      cx.lowerExpr(be.Expr),
			Animation: lowerAnim(be.Animation),
		})
	}
}

// refOf addresses a property of an element of this sub-component.
func (cx *scope) refOf(e *objtree.Element, name string) PropertyReference {
	if pi, ok := cx.propIndex[propKey{e, name}]; ok {
		return Local{pi}
	}
	if ii, ok := cx.itemIndex[e]; ok {
		return InNativeItem{ItemIndex: ii, PropertyName: name}
	}
	panic(fmt.Sprintf("llr: unresolvable property %s.%s in %s", e.ID, name, cx.comp.Name))
}

// resolveRef translates a named reference by walking the repeater parent
// chain and counting levels; global references go through the global table.
func (cx *scope) resolveRef(nr *objtree.NamedReference) PropertyReference {
	owner := nr.Element.Enclosing
	level := 0
	for c := cx; c != nil; c = c.parent {
		if c.comp == owner {
			ref := c.refOf(nr.Element, nr.Name)
			if level > 0 {
				return InParent{Level: level, Ref: ref}
			}
			return ref
		}
		level++
	}
	if owner != nil && owner.Global {
		gi := cx.u.ensureGlobal(owner)
		pi, ok := cx.u.globalProps[owner][nr.Name]
		if !ok {
			panic(fmt.Sprintf("llr: unresolvable global reference %s", nr))
		}
		return InGlobal{GlobalIndex: gi, PropertyIndex: pi}
	}
	panic(fmt.Sprintf("llr: unresolvable reference %s", nr))
}

func lowerAnim(a *objtree.Animation) *Animation {
	if a == nil {
		return nil
	}
	v, ok := objtree.ConstantNumber(a.Duration)
	if !ok {
		panic("llr: non-constant animation duration")
	}
	return &Animation{DurationMs: v}
}

func (cx *scope) lowerExpr(e objtree.Expression) Expression {
	switch e := e.(type) {
	case nil, objtree.Invalid:
		return Invalid{}
	case objtree.NumberLiteral:
		return NumberLiteral{Value: e.Value, Type: e.Type}
	case objtree.StringLiteral:
		return StringLiteral{Value: e.Value}
	case objtree.BoolLiteral:
		return BoolLiteral{Value: e.Value}
	case objtree.ColorLiteral:
		return ColorLiteral{ARGB: e.ARGB}
	case objtree.EnumValue:
		return EnumValue{Enum: e.Enum, Case: e.Case}
	case objtree.PropertyRef:
		return PropertyValue{Ref: cx.resolveRef(e.Ref)}
	case objtree.ModelData:
		return ModelData{}
	case objtree.ModelIndex:
		return ModelIndex{}
	case objtree.FunctionCall:
		return FunctionCall{Function: e.Function, Args: cx.lowerExprs(e.Args)}
	case objtree.CallbackCall:
		return CallbackCall{Ref: cx.resolveRef(e.Ref), Args: cx.lowerExprs(e.Args)}
	case objtree.CallbackArg:
		return CallbackArg{Index: e.Index}
	case objtree.Unary:
		return Unary{Op: e.Op, Sub: cx.lowerExpr(e.Sub)}
	case objtree.Binary:
		return Binary{Op: e.Op, Lhs: cx.lowerExpr(e.Lhs), Rhs: cx.lowerExpr(e.Rhs)}
	case objtree.Conditional:
		return Conditional{Cond: cx.lowerExpr(e.Cond), Then: cx.lowerExpr(e.Then), Else: cx.lowerExpr(e.Else)}
	case objtree.StructLiteral:
		return StructLiteral{Type: e.Type, Names: e.Names, Values: cx.lowerExprs(e.Values)}
	case objtree.ArrayLiteral:
		return ArrayLiteral{Values: cx.lowerExprs(e.Values)}
	case objtree.FieldAccess:
		return FieldAccess{Base: cx.lowerExpr(e.Base), Field: e.Field}
	case objtree.IndexAccess:
		return IndexAccess{Base: cx.lowerExpr(e.Base), Index: cx.lowerExpr(e.Index)}
	case objtree.CodeBlock:
		stmts := make([]Stmt, len(e.Stmts))
		for i, s := range e.Stmts {
			switch s := s.(type) {
			case objtree.AssignStmt:
				stmts[i] = AssignStmt{Target: cx.resolveRef(s.Target), Op: s.Op, Value: cx.lowerExpr(s.Value)}
			case objtree.ExprStmt:
				stmts[i] = ExprStmt{Expr: cx.lowerExpr(s.Expr)}
			case objtree.ReturnStmt:
				var v Expression
				if s.Expr != nil {
					v = cx.lowerExpr(s.Expr)
				}
				stmts[i] = ReturnStmt{Expr: v}
			}
		}
		return CodeBlock{Stmts: stmts}
	case objtree.TwoWay:
		// Nested two-way markers read the canonical side.
		return PropertyValue{Ref: cx.resolveRef(e.Target)}
	}
	panic(fmt.Sprintf("llr: unhandled expression %T", e))
}

func (cx *scope) lowerExprs(es []objtree.Expression) []Expression {
	out := make([]Expression, len(es))
	for i, e := range es {
		out[i] = cx.lowerExpr(e)
	}
	return out
}

// lowerStates turns the element's states block into a synthesized integer
// state property plus conditional-wrapped bindings for every overridden
// property. Transition animations attach to the wrapped bindings.
func (cx *scope) lowerStates(e *objtree.Element) {
	if len(e.States) == 0 {
		return
	}
	si := len(cx.sc.Properties)
	cx.sc.Properties = append(cx.sc.Properties, Property{
		Name: e.ID + ".state", Type: registry.IntType,
	})
	stateRef := Local{si}

	defaultIdx := len(e.States)
	for i := range e.States {
		if e.States[i].Condition == nil {
			defaultIdx = i
			break
		}
	}
	var stateExpr Expression = NumberLiteral{Value: float64(defaultIdx), Type: registry.IntType}
	for i := len(e.States) - 1; i >= 0; i-- {
		s := e.States[i]
		if s.Condition == nil {
			continue
		}
		stateExpr = Conditional{
			Cond: cx.lowerExpr(s.Condition.Expr),
			Then: NumberLiteral{Value: float64(i), Type: registry.IntType},
			Else: stateExpr,
		}
	}
	cx.sc.Bindings = append(cx.sc.Bindings, Binding{Ref: stateRef, Expr: stateExpr})

	type override struct {
		state int
		value Expression
	}
	var targets []PropertyReference
	byTarget := make(map[PropertyReference][]override)
	targetName := make(map[PropertyReference]string)
	for i := range e.States {
		for _, set := range e.States[i].Sets {
			ref := cx.resolveRef(set.Target)
			if _, ok := byTarget[ref]; !ok {
				targets = append(targets, ref)
				targetName[ref] = set.Target.Name
			}
			byTarget[ref] = append(byTarget[ref], override{i, cx.lowerExpr(set.Value.Expr)})
		}
	}
	for _, ref := range targets {
		expr, anim := cx.takeBinding(ref)
		if expr == nil {
			expr = Invalid{}
		}
		for _, ov := range byTarget[ref] {
			expr = Conditional{
				Cond: Binary{Op: "==", Lhs: PropertyValue{Ref: stateRef},
					Rhs: NumberLiteral{Value: float64(ov.state), Type: registry.IntType}},
				Then: ov.value,
				Else: expr,
			}
		}
		if anim == nil {
			anim = cx.transitionAnim(e, targetName[ref])
		}
		cx.sc.Bindings = append(cx.sc.Bindings, Binding{Ref: ref, Expr: expr, Animation: anim})
	}
}

// takeBinding removes and returns the existing binding for ref, if any.
func (cx *scope) takeBinding(ref PropertyReference) (Expression, *Animation) {
	for i, b := range cx.sc.Bindings {
		if b.Ref == ref {
			cx.sc.Bindings = append(cx.sc.Bindings[:i], cx.sc.Bindings[i+1:]...)
			return b.Expr, b.Animation
		}
	}
	return nil, nil
}

func (cx *scope) transitionAnim(e *objtree.Element, prop string) *Animation {
	for i := range e.Transitions {
		if a, ok := e.Transitions[i].Animations[prop]; ok {
			return lowerAnim(a)
		}
	}
	return nil
}

func buildPublic(c *objtree.Component, cx *scope) *PublicComponent {
	pc := &PublicComponent{Name: c.Name, Root: cx.sc}
	for _, name := range c.Root.DeclOrder {
		d := c.Root.PropertyDecls[name]
		if !d.ExposeInPublicAPI {
			continue
		}
		pp := PublicProperty{
			Name:       name,
			Type:       d.Type,
			IsCallback: d.IsCallback,
			Prop:       cx.refOf(c.Root, name),
		}
		switch d.Access {
		case objtree.InProp:
			pp.Settable = true
		case objtree.OutProp:
			pp.Gettable = true
		case objtree.InOutProp:
			pp.Settable, pp.Gettable = true, true
		}
		pc.PublicProperties = append(pc.PublicProperties, pp)
	}
	return pc
}
