package objtree

import (
	"fmt"
	"strconv"

	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/parse"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// Build constructs the object tree for a parsed document. The extern map
// supplies components made available by import statements; the caller (the
// compiler driver) resolves import paths and compiles imported documents
// first. Diagnostics go to sink; Build always returns a document, possibly a
// partial one when sink has errors.
//
// Building runs in two phases. The first phase creates every component and
// element and registers all ids and property declarations; the second phase
// resolves binding expressions. The split is what makes forward references
// work: a binding may mention an element id or a component declared further
// down in the source.
func Build(tree parse.Tree, reg *registry.Registry, extern map[string]*Component, sink *diag.Sink) *Document {
	doc := &Document{Source: tree.Source, Registry: reg}
	b := &builder{
		doc: doc, reg: reg, sink: sink, src: tree.Source,
		components: make(map[string]*Component),
	}
	root := tree.Root
	b.importDecls(root.Imports, extern)
	b.collectTypes(root)

	type declComp struct {
		node *parse.ComponentDecl
		comp *Component
	}
	var decls []declComp
	for _, cn := range root.Components {
		if cn.Name == nil {
			continue
		}
		name := cn.Name.Name
		if _, ok := b.reg.Element(name); ok {
			b.errorf(cn.Name, "component %q shadows a builtin element type", name)
			continue
		}
		if _, ok := b.components[name]; ok {
			b.errorf(cn.Name, "duplicate component %q", name)
			continue
		}
		c := &Component{Name: name, Exported: cn.Export, Global: cn.Global}
		b.components[name] = c
		doc.Components = append(doc.Components, c)
		decls = append(decls, declComp{cn, c})
	}
	for _, d := range decls {
		b.buildComponent(d.node, d.comp)
	}
	b.resolveAll()
	return doc
}

type builder struct {
	doc  *Document
	reg  *registry.Registry
	sink *diag.Sink
	src  parse.Source

	// All components visible by name: document-local and imported ones.
	components map[string]*Component

	// Expression work deferred to the resolution phase.
	binds    []pendBind
	handlers []pendHandler
	twoways  []pendTwoWay
	funcs    []pendFunc
	models   []pendModel
	statesP  []pendStates
	transP   []pendTrans
	anims    []pendAnim
}

type pendBind struct {
	elem *Element
	name string
	r    diag.Ranger
	expr *parse.Expr
	sc   *scope
}

type pendHandler struct {
	elem   *Element
	name   string
	r      diag.Ranger
	params []string
	body   *parse.Block
	sc     *scope
}

type pendTwoWay struct {
	elem   *Element
	name   string
	r      diag.Ranger
	target *parse.Path
	sc     *scope
}

type pendFunc struct {
	elem   *Element
	name   string
	params []string
	ret    *registry.ValueType
	body   *parse.Block
	sc     *scope
}

type pendModel struct {
	slot *Element
	elem *Element // the element containing the repeater
	expr *parse.Expr
	sc   *scope
}

type pendStates struct {
	elem *Element
	node *parse.States
	sc   *scope
}

type pendTrans struct {
	elem *Element
	node *parse.Transitions
	sc   *scope
}

type pendAnim struct {
	elem *Element
	node *parse.Animate
	sc   *scope
}

// scope resolves identifiers during expression building. Each component body
// gets a scope; repeater bodies get a child scope carrying the model and
// index variables. Id lookup walks the whole chain, so expressions inside a
// repeater may still reference elements of the enclosing component.
type scope struct {
	parent   *scope
	ids      map[string]*Element
	root     *Element
	modelVar string
	indexVar string
}

func (sc *scope) lookup(id string) *Element {
	for s := sc; s != nil; s = s.parent {
		if e, ok := s.ids[id]; ok {
			return e
		}
	}
	return nil
}

func (b *builder) errorf(r diag.Ranger, format string, args ...any) {
	b.sink.Errorf(b.src.Name, b.src.Code, r, format, args...)
}

func (b *builder) warnf(r diag.Ranger, format string, args ...any) {
	b.sink.Warnf(b.src.Name, b.src.Code, r, format, args...)
}

func (b *builder) importDecls(ins []*parse.Import, extern map[string]*Component) {
	for _, in := range ins {
		rec := &ImportRecord{Ranging: in.Range()}
		if in.Path != nil {
			rec.Path = in.Path.Value
		}
		for _, id := range in.Names {
			rec.Names = append(rec.Names, id.Name)
			c, ok := extern[id.Name]
			if !ok {
				b.errorf(id, "unknown imported component %q", id.Name)
				continue
			}
			if c == nil {
				// Resolution failed and the loader already diagnosed the
				// name; don't report it a second time.
				continue
			}
			if _, dup := b.components[id.Name]; dup {
				b.errorf(id, "duplicate import of %q", id.Name)
				continue
			}
			b.components[id.Name] = c
		}
		b.doc.Imports = append(b.doc.Imports, rec)
	}
}

// collectTypes registers document-level struct and enum declarations. Struct
// names are registered before any fields are resolved, so struct fields may
// reference structs declared later in the document.
func (b *builder) collectTypes(root *parse.Document) {
	for _, en := range root.Enums {
		if en.Name == nil {
			continue
		}
		name := en.Name.Name
		if b.doc.LocalEnum(name) != nil {
			b.errorf(en.Name, "duplicate enum %q", name)
			continue
		}
		et := &registry.EnumType{Name: name}
		for _, cn := range en.Cases {
			if et.HasCase(cn.Name) {
				b.errorf(cn, "duplicate enum case %q", cn.Name)
				continue
			}
			et.Cases = append(et.Cases, cn.Name)
		}
		b.doc.Enums = append(b.doc.Enums, et)
	}

	var fills []*parse.StructDecl
	for _, sn := range root.Structs {
		if sn.Name == nil {
			continue
		}
		name := sn.Name.Name
		if b.doc.LocalStruct(name) != nil {
			b.errorf(sn.Name, "duplicate struct %q", name)
			continue
		}
		b.doc.Structs = append(b.doc.Structs, &registry.StructType{Name: name})
		fills = append(fills, sn)
	}
	for _, sn := range fills {
		st := b.doc.LocalStruct(sn.Name.Name)
		for _, fn := range sn.Fields {
			if fn.Name == nil || fn.Type == nil {
				continue
			}
			if st.FieldType(fn.Name.Name) != nil {
				b.errorf(fn.Name, "duplicate field %q in struct %q", fn.Name.Name, st.Name)
				continue
			}
			st.Fields = append(st.Fields, registry.StructField{
				Name: fn.Name.Name, Type: b.valueType(fn.Type),
			})
		}
	}
}

var primitiveTypes = map[string]*registry.ValueType{
	"int":      registry.IntType,
	"float":    registry.FloatType,
	"string":   registry.StringType,
	"bool":     registry.BoolType,
	"length":   registry.LengthType,
	"duration": registry.DurationType,
	"percent":  registry.PercentType,
	"angle":    registry.AngleType,
	"brush":    registry.BrushType,
	"color":    registry.BrushType,
	"image":    registry.ImageType,
}

func (b *builder) valueType(tn *parse.TypeNode) *registry.ValueType {
	switch tn.Kind {
	case parse.NamedType:
		if tn.Name == nil {
			return registry.InvalidType
		}
		name := tn.Name.Name
		if t, ok := primitiveTypes[name]; ok {
			return t
		}
		if s := b.doc.LocalStruct(name); s != nil {
			return registry.StructOf(s)
		}
		if e := b.enumByName(name); e != nil {
			return registry.EnumOf(e)
		}
		b.errorf(tn, "unknown type %q", name)
		return registry.InvalidType
	case parse.ArrayType:
		if tn.Elem == nil {
			return registry.InvalidType
		}
		return registry.ModelOf(b.valueType(tn.Elem))
	case parse.AnonStructType:
		st := &registry.StructType{}
		for _, fn := range tn.Fields {
			if fn.Name == nil || fn.Type == nil {
				continue
			}
			st.Fields = append(st.Fields, registry.StructField{
				Name: fn.Name.Name, Type: b.valueType(fn.Type),
			})
		}
		return registry.StructOf(st)
	}
	return registry.InvalidType
}

func (b *builder) enumByName(name string) *registry.EnumType {
	if e := b.doc.LocalEnum(name); e != nil {
		return e
	}
	if e, ok := b.reg.Enum(name); ok {
		return e
	}
	return nil
}

func (b *builder) buildComponent(cn *parse.ComponentDecl, comp *Component) {
	var base Type
	switch {
	case comp.Global:
		be, _ := b.reg.Element("Empty")
		base = Type{Kind: BuiltinType, Builtin: be}
	case cn.Base != nil:
		name := cn.Base.Name
		if be, ok := b.reg.Element(name); ok {
			base = Type{Kind: BuiltinType, Builtin: be}
		} else if _, ok := b.components[name]; ok {
			b.errorf(cn.Base, "components can only inherit from builtin element types, not %q", name)
			base = Type{Kind: ErrorType}
		} else {
			b.errorf(cn.Base, "unknown element type %q", name)
			base = Type{Kind: ErrorType}
		}
	default:
		be, _ := b.reg.Element("Window")
		base = Type{Kind: BuiltinType, Builtin: be}
	}
	root := NewElement(base, comp)
	root.Ranging = cn.Range()
	comp.Root = root

	body := cn.Body
	if body == nil {
		return
	}
	if comp.Global {
		if len(body.Children)+len(body.Repeats)+len(body.Conds)+len(body.Animations) > 0 ||
			body.States != nil || body.Transs != nil || body.ChildSlot != nil {
			b.errorf(body, "global components can only declare properties, callbacks and functions")
		}
	}
	sc := &scope{ids: make(map[string]*Element), root: root}
	b.buildBody(body, root, comp, sc)
}

func (b *builder) elementType(ident *parse.Ident, comp *Component) Type {
	name := ident.Name
	if be, ok := b.reg.Element(name); ok {
		return Type{Kind: BuiltinType, Builtin: be}
	}
	if c, ok := b.components[name]; ok {
		if c.Global {
			b.errorf(ident, "global component %q cannot be used as an element", name)
			return Type{Kind: ErrorType}
		}
		top := comp
		for top.ParentComponent != nil {
			top = top.ParentComponent
		}
		if c == top {
			b.errorf(ident, "component %q cannot contain itself", name)
			return Type{Kind: ErrorType}
		}
		return Type{Kind: ComponentType, Component: c}
	}
	b.errorf(ident, "unknown element type %q", name)
	return Type{Kind: ErrorType}
}

func (b *builder) buildElement(en *parse.Element, comp *Component, sc *scope, parent *Element) *Element {
	var base Type
	if en.Type != nil {
		base = b.elementType(en.Type, comp)
	} else {
		base = Type{Kind: ErrorType}
	}
	elem := NewElement(base, comp)
	elem.Ranging = en.Range()
	elem.Parent = parent
	if en.ID != nil {
		id := en.ID.Name
		if sc.lookup(id) != nil {
			b.errorf(en.ID, "duplicate element id %q", id)
		} else {
			elem.ID = id
			sc.ids[id] = elem
		}
	}
	if en.Body != nil {
		b.buildBody(en.Body, elem, comp, sc)
	}
	return elem
}

// builtinCallback returns the callback type the element's builtin base
// declares under name, or nil.
func builtinCallback(e *Element, name string) *registry.ValueType {
	if e.Base.Kind != BuiltinType {
		return nil
	}
	if t := e.Base.Builtin.LookupProp(name); t != nil && t.Kind == registry.Callback {
		return t
	}
	return nil
}

func accessOf(s string) PropAccess {
	switch s {
	case "in":
		return InProp
	case "out":
		return OutProp
	case "in-out":
		return InOutProp
	}
	return PrivateProp
}

func (b *builder) buildBody(body *parse.ElementBody, elem *Element, comp *Component, sc *scope) {
	for _, pn := range body.Properties {
		if pn.Name == nil || pn.Type == nil {
			continue
		}
		name := pn.Name.Name
		// Declared properties shadow the builtin surface (geometry, synthetic
		// opacity/visible/z); lookups resolve the declaration first. Only
		// builtin callbacks are off limits, since native event dispatch would
		// still target the builtin one.
		if t := builtinCallback(elem, name); t != nil {
			b.errorf(pn.Name, "%q is a callback of %s and cannot be redeclared", name, elem.Base.Builtin.Name)
			continue
		}
		d := &PropertyDecl{
			Name:    name,
			Type:    b.valueType(pn.Type),
			Access:  accessOf(pn.Access),
			Ranging: pn.Range(),
		}
		if !elem.DeclareProperty(d) {
			b.errorf(pn.Name, "duplicate property %q", name)
			continue
		}
		if pn.Init != nil {
			b.binds = append(b.binds, pendBind{elem, name, pn.Init, pn.Init, sc})
		}
		if pn.Link != nil {
			b.twoways = append(b.twoways, pendTwoWay{elem, name, pn.Link, pn.Link, sc})
		}
	}

	for _, cn := range body.Callbacks {
		if cn.Name == nil {
			continue
		}
		if t := builtinCallback(elem, cn.Name.Name); t != nil {
			b.errorf(cn.Name, "%q is a callback of %s and cannot be redeclared", cn.Name.Name, elem.Base.Builtin.Name)
			continue
		}
		var params []*registry.ValueType
		for _, tn := range cn.Params {
			params = append(params, b.valueType(tn))
		}
		var ret *registry.ValueType
		if cn.Ret != nil {
			ret = b.valueType(cn.Ret)
		}
		d := &PropertyDecl{
			Name:       cn.Name.Name,
			Type:       registry.CallbackOf(params, ret),
			Access:     InOutProp,
			IsCallback: true,
			Ranging:    cn.Range(),
		}
		if !elem.DeclareProperty(d) {
			b.errorf(cn.Name, "duplicate property %q", cn.Name.Name)
		}
	}

	for _, fn := range body.Functions {
		if fn.Name == nil || fn.Body == nil {
			continue
		}
		var paramTypes []*registry.ValueType
		var paramNames []string
		for _, tf := range fn.Params {
			if tf.Name == nil || tf.Type == nil {
				continue
			}
			paramNames = append(paramNames, tf.Name.Name)
			paramTypes = append(paramTypes, b.valueType(tf.Type))
		}
		var ret *registry.ValueType
		if fn.Ret != nil {
			ret = b.valueType(fn.Ret)
		}
		d := &PropertyDecl{
			Name:       fn.Name.Name,
			Type:       registry.CallbackOf(paramTypes, ret),
			Access:     PrivateProp,
			IsCallback: true,
			Ranging:    fn.Range(),
		}
		if !elem.DeclareProperty(d) {
			b.errorf(fn.Name, "duplicate property %q", fn.Name.Name)
			continue
		}
		b.funcs = append(b.funcs, pendFunc{elem, fn.Name.Name, paramNames, ret, fn.Body, sc})
	}

	for _, bn := range body.Bindings {
		if bn.Name == nil || bn.Expr == nil {
			continue
		}
		b.binds = append(b.binds, pendBind{elem, bn.Name.Name, bn.Name, bn.Expr, sc})
	}

	for _, tn := range body.TwoWays {
		if tn.Name == nil || tn.Target == nil {
			continue
		}
		b.twoways = append(b.twoways, pendTwoWay{elem, tn.Name.Name, tn.Name, tn.Target, sc})
	}

	for _, hn := range body.Handlers {
		if hn.Name == nil || hn.Body == nil {
			continue
		}
		var params []string
		for _, p := range hn.Params {
			params = append(params, p.Name)
		}
		b.handlers = append(b.handlers, pendHandler{elem, hn.Name.Name, hn.Name, params, hn.Body, sc})
	}

	for _, ch := range body.Children {
		elem.Children = append(elem.Children, b.buildElement(ch, comp, sc, elem))
	}

	for _, rn := range body.Repeats {
		if slot := b.buildRepeater(rn, elem, comp, sc); slot != nil {
			elem.Children = append(elem.Children, slot)
		}
	}

	for _, cn := range body.Conds {
		if slot := b.buildConditional(cn, elem, comp, sc); slot != nil {
			elem.Children = append(elem.Children, slot)
		}
	}

	if body.States != nil {
		b.statesP = append(b.statesP, pendStates{elem, body.States, sc})
	}
	if body.Transs != nil {
		b.transP = append(b.transP, pendTrans{elem, body.Transs, sc})
	}
	for _, an := range body.Animations {
		if an.Prop == nil {
			continue
		}
		b.anims = append(b.anims, pendAnim{elem, an, sc})
	}
	if body.ChildSlot != nil {
		if comp.ChildInsertion != nil {
			b.errorf(body.ChildSlot, "duplicate @children placeholder")
		} else {
			comp.ChildInsertion = elem
		}
	}
}

// buildRepeater lowers a for construct into a sub-component plus a repeater
// slot element in the parent. The repeated element becomes the sub-component
// root; its bindings resolve in a child scope carrying the model and index
// variables.
func (b *builder) buildRepeater(rn *parse.Repeat, elem *Element, comp *Component, sc *scope) *Element {
	if rn.Var == nil || rn.Model == nil || rn.Element == nil {
		return nil
	}
	sub := &Component{
		Name:            fmt.Sprintf("%s-repeated-%d", comp.Name, comp.NextIDSuffix()),
		ParentComponent: comp,
	}
	comp.SubComponents = append(comp.SubComponents, sub)
	info := &RepeatInfo{ModelVar: rn.Var.Name}
	if rn.IndexVar != nil {
		info.IndexVar = rn.IndexVar.Name
	}
	subScope := &scope{
		parent:   sc,
		ids:      make(map[string]*Element),
		modelVar: info.ModelVar,
		indexVar: info.IndexVar,
	}
	sub.Root = b.buildElement(rn.Element, sub, subScope, nil)
	subScope.root = sub.Root

	slot := NewElement(Type{Kind: ComponentType, Component: sub}, comp)
	slot.Ranging = rn.Range()
	slot.Parent = elem
	slot.Repeated = info
	b.models = append(b.models, pendModel{slot, elem, rn.Model, sc})
	return slot
}

// buildConditional lowers an if construct the same way as a repeater, with a
// boolean condition in place of the model.
func (b *builder) buildConditional(cn *parse.CondElement, elem *Element, comp *Component, sc *scope) *Element {
	if cn.Cond == nil || cn.Element == nil {
		return nil
	}
	sub := &Component{
		Name:            fmt.Sprintf("%s-conditional-%d", comp.Name, comp.NextIDSuffix()),
		ParentComponent: comp,
	}
	comp.SubComponents = append(comp.SubComponents, sub)
	subScope := &scope{parent: sc, ids: make(map[string]*Element)}
	sub.Root = b.buildElement(cn.Element, sub, subScope, nil)
	subScope.root = sub.Root

	slot := NewElement(Type{Kind: ComponentType, Component: sub}, comp)
	slot.Ranging = cn.Range()
	slot.Parent = elem
	slot.Repeated = &RepeatInfo{IsConditional: true}
	b.models = append(b.models, pendModel{slot, elem, cn.Cond, sc})
	return slot
}

// Resolution phase.

func (b *builder) resolveAll() {
	for _, p := range b.binds {
		b.resolveBinding(p)
	}
	for _, p := range b.funcs {
		b.resolveFunction(p)
	}
	for _, p := range b.handlers {
		b.resolveHandler(p)
	}
	for _, p := range b.twoways {
		b.resolveTwoWay(p)
	}
	for _, p := range b.models {
		b.resolveModel(p)
	}
	for _, p := range b.statesP {
		b.resolveStates(p)
	}
	for _, p := range b.transP {
		b.resolveTransitions(p)
	}
	// Animations attach to bindings, so they must come last.
	for _, p := range b.anims {
		b.resolveAnimate(p)
	}
}

func elemName(e *Element) string {
	if e.ID != "" {
		return e.ID
	}
	return e.Base.String()
}

func (b *builder) resolveBinding(p pendBind) {
	propType := p.elem.LookupProperty(p.name)
	if propType == nil {
		b.errorf(p.r, "%s has no property %q", elemName(p.elem), p.name)
		return
	}
	if propType.Kind == registry.Callback {
		b.errorf(p.r, "%q is a callback and must be set with \"=>\"", p.name)
		return
	}
	if p.elem.Base.Kind == ComponentType {
		if _, own := p.elem.PropertyDecls[p.name]; !own {
			if d, ok := p.elem.Base.Component.Root.PropertyDecls[p.name]; ok && d.Access == OutProp {
				b.errorf(p.r, "cannot bind output property %q of %s", p.name, p.elem.Base.Component.Name)
				return
			}
		}
	}
	xb := &exprBuilder{b: b, sc: p.sc, self: p.elem}
	expr := xb.expr(p.expr)
	if t := TypeOf(expr); !assignable(propType, t) {
		b.errorf(p.expr, "cannot bind %s value to %s property %q", t, propType, p.name)
	}
	be := &BindingExpression{Expr: expr, Ranging: p.expr.Range()}
	if !p.elem.SetBinding(p.name, be) {
		b.errorf(p.r, "duplicate binding for %q", p.name)
	}
}

func (b *builder) resolveFunction(p pendFunc) {
	xb := &exprBuilder{b: b, sc: p.sc, self: p.elem, params: p.params}
	body := xb.block(p.body)
	if p.ret != nil {
		if t := TypeOf(body); !assignable(p.ret, t) {
			b.errorf(p.body, "function %q must return %s, not %s", p.name, p.ret, t)
		}
	}
	be := &BindingExpression{Expr: body, Ranging: p.body.Range()}
	if !p.elem.SetBinding(p.name, be) {
		b.errorf(p.body, "duplicate definition of %q", p.name)
	}
}

func (b *builder) resolveHandler(p pendHandler) {
	t := p.elem.LookupProperty(p.name)
	if t == nil {
		b.errorf(p.r, "%s has no callback %q", elemName(p.elem), p.name)
		return
	}
	if t.Kind != registry.Callback {
		b.errorf(p.r, "%q is a property, not a callback", p.name)
		return
	}
	if len(p.params) > len(t.Params) {
		b.errorf(p.r, "callback %q takes %d arguments, handler names %d",
			p.name, len(t.Params), len(p.params))
		return
	}
	xb := &exprBuilder{b: b, sc: p.sc, self: p.elem, params: p.params}
	body := xb.block(p.body)
	be := &BindingExpression{Expr: body, Ranging: p.body.Range()}
	if !p.elem.SetBinding(p.name, be) {
		b.errorf(p.r, "duplicate handler for %q", p.name)
	}
}

func (b *builder) resolveTwoWay(p pendTwoWay) {
	propType := p.elem.LookupProperty(p.name)
	if propType == nil {
		b.errorf(p.r, "%s has no property %q", elemName(p.elem), p.name)
		return
	}
	xb := &exprBuilder{b: b, sc: p.sc, self: p.elem}
	ref := xb.resolveRef(p.target)
	if ref == nil {
		return
	}
	if t := ref.Type(); t != nil &&
		propType.Kind != registry.Invalid && t.Kind != registry.Invalid &&
		!propType.Equal(t) {
		b.errorf(p.r, "two-way binding between incompatible types %s and %s", propType, t)
		return
	}
	be := &BindingExpression{Expr: TwoWay{Target: ref}, Ranging: p.target.Range()}
	if !p.elem.SetBinding(p.name, be) {
		b.errorf(p.r, "duplicate binding for %q", p.name)
	}
}

func (b *builder) resolveModel(p pendModel) {
	xb := &exprBuilder{b: b, sc: p.sc, self: p.elem}
	expr := xb.expr(p.expr)
	t := TypeOf(expr)
	if p.slot.Repeated.IsConditional {
		if t.Kind != registry.Bool && t.Kind != registry.Invalid {
			b.errorf(p.expr, "if condition must be bool, not %s", t)
		}
	} else {
		switch t.Kind {
		case registry.Model, registry.Int, registry.Float, registry.Invalid:
		default:
			b.errorf(p.expr, "for model must be a model or a number, not %s", t)
		}
	}
	p.slot.Repeated.Model = &BindingExpression{Expr: expr, Ranging: p.expr.Range()}
}

func (b *builder) resolveStates(p pendStates) {
	xb := &exprBuilder{b: b, sc: p.sc, self: p.elem}
	var states []State
	for _, dn := range p.node.Defs {
		if dn.Name == nil {
			continue
		}
		for _, st := range states {
			if st.Name == dn.Name.Name {
				b.errorf(dn.Name, "duplicate state %q", dn.Name.Name)
			}
		}
		st := State{Name: dn.Name.Name, Ranging: dn.Range()}
		if dn.When != nil {
			cond := xb.expr(dn.When)
			if t := TypeOf(cond); t.Kind != registry.Bool && t.Kind != registry.Invalid {
				b.errorf(dn.When, "state condition must be bool, not %s", t)
			}
			st.Condition = &BindingExpression{Expr: cond, Ranging: dn.When.Range()}
		}
		for _, sp := range dn.Props {
			if sp.Target == nil || sp.Expr == nil {
				continue
			}
			ref := xb.resolveRef(sp.Target)
			if ref == nil {
				continue
			}
			value := xb.expr(sp.Expr)
			if dst := ref.Type(); dst != nil && !assignable(dst, TypeOf(value)) {
				b.errorf(sp.Expr, "cannot set %s property %s to %s value",
					dst, ref, TypeOf(value))
			}
			st.Sets = append(st.Sets, StateSet{
				Target: ref,
				Value:  &BindingExpression{Expr: value, Ranging: sp.Range()},
			})
		}
		states = append(states, st)
	}
	p.elem.States = states
}

func (b *builder) resolveTransitions(p pendTrans) {
	xb := &exprBuilder{b: b, sc: p.sc, self: p.elem}
	for _, dn := range p.node.Defs {
		if dn.State == nil {
			continue
		}
		found := false
		for _, st := range p.elem.States {
			if st.Name == dn.State.Name {
				found = true
				break
			}
		}
		if !found {
			b.errorf(dn.State, "transition references unknown state %q", dn.State.Name)
			continue
		}
		tr := Transition{
			Out:        dn.Out,
			StateName:  dn.State.Name,
			Animations: make(map[string]*Animation),
			Ranging:    dn.Range(),
		}
		for _, an := range dn.Anims {
			prop, anim := xb.animation(an)
			if anim == nil {
				continue
			}
			if p.elem.LookupProperty(prop) == nil {
				b.errorf(an.Prop, "%s has no property %q", elemName(p.elem), prop)
				continue
			}
			if _, dup := tr.Animations[prop]; dup {
				b.errorf(an.Prop, "duplicate animation for %q", prop)
				continue
			}
			tr.Animations[prop] = anim
		}
		p.elem.Transitions = append(p.elem.Transitions, tr)
	}
}

func (b *builder) resolveAnimate(p pendAnim) {
	xb := &exprBuilder{b: b, sc: p.sc, self: p.elem}
	prop, anim := xb.animation(p.node)
	if anim == nil {
		return
	}
	t := p.elem.LookupProperty(prop)
	if t == nil {
		b.errorf(p.node.Prop, "%s has no property %q", elemName(p.elem), prop)
		return
	}
	if !t.IsNumeric() && t.Kind != registry.Brush {
		b.errorf(p.node.Prop, "property %q of type %s cannot be animated", prop, t)
		return
	}
	be := p.elem.Bindings[prop]
	if be == nil {
		b.warnf(p.node.Prop, "animate on property %q without a binding has no effect", prop)
		return
	}
	if be.Animation != nil {
		b.errorf(p.node.Prop, "duplicate animate for %q", prop)
		return
	}
	be.Animation = anim
}

// Expression building.

type exprBuilder struct {
	b    *builder
	sc   *scope
	self *Element
	// Names of the callback arguments in scope, for handler and function
	// bodies.
	params []string
}

var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6,
}

func (xb *exprBuilder) expr(en *parse.Expr) Expression {
	if en == nil || len(en.Operands) == 0 {
		return Invalid{}
	}
	e := xb.operandChain(en)
	if en.Then != nil && en.Else != nil {
		if t := TypeOf(e); t.Kind != registry.Bool && t.Kind != registry.Invalid {
			xb.b.errorf(en, "condition must be bool, not %s", t)
		}
		e = Conditional{Cond: e, Then: xb.expr(en.Then), Else: xb.expr(en.Else)}
	}
	return e
}

// operandChain shapes the parser's flat operand/operator sequence into a
// Binary tree by operator precedence, all operators left-associative.
func (xb *exprBuilder) operandChain(en *parse.Expr) Expression {
	operands := []Expression{xb.unaryExpr(en.Operands[0])}
	var ops []string
	reduce := func() {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		rhs := operands[len(operands)-1]
		lhs := operands[len(operands)-2]
		operands = operands[:len(operands)-2]
		operands = append(operands, Binary{Op: op, Lhs: lhs, Rhs: rhs})
	}
	for i, opn := range en.Ops {
		if i+1 >= len(en.Operands) {
			break
		}
		for len(ops) > 0 && binaryPrec[ops[len(ops)-1]] >= binaryPrec[opn.Op] {
			reduce()
		}
		ops = append(ops, opn.Op)
		operands = append(operands, xb.unaryExpr(en.Operands[i+1]))
	}
	for len(ops) > 0 {
		reduce()
	}
	return operands[0]
}

func (xb *exprBuilder) unaryExpr(un *parse.Unary) Expression {
	if un == nil || un.Postfix == nil {
		return Invalid{}
	}
	e := xb.postfix(un.Postfix)
	for i := len(un.Ops) - 1; i >= 0; i-- {
		op := un.Ops[i]
		t := TypeOf(e)
		switch op {
		case "-":
			if !t.IsNumeric() && t.Kind != registry.Invalid {
				xb.b.errorf(un, "cannot negate %s value", t)
			}
		case "!":
			if t.Kind != registry.Bool && t.Kind != registry.Invalid {
				xb.b.errorf(un, "cannot apply ! to %s value", t)
			}
		}
		e = Unary{Op: op, Sub: e}
	}
	return e
}

func (xb *exprBuilder) postfix(pn *parse.Postfix) Expression {
	if pn.Head == nil {
		return Invalid{}
	}
	if pn.Head.Type == parse.IdentPrimary {
		return xb.identChain(pn)
	}
	return xb.foldAccesses(xb.primary(pn.Head), pn.Accesses)
}

func (xb *exprBuilder) primary(pn *parse.Primary) Expression {
	switch pn.Type {
	case parse.NumberPrimary:
		v, err := strconv.ParseFloat(pn.Value, 64)
		if err != nil {
			xb.b.errorf(pn, "invalid number literal")
			return Invalid{}
		}
		return numberLiteral(v, pn.Unit)
	case parse.StrPrimary:
		return StringLiteral{Value: pn.Value}
	case parse.ColorPrimary:
		argb, ok := parseColor(pn.Value)
		if !ok {
			return Invalid{}
		}
		return ColorLiteral{ARGB: argb}
	case parse.ParenPrimary:
		return xb.expr(pn.Sub)
	case parse.ArrayPrimary:
		return ArrayLiteral{Values: xb.exprList(pn.Elements)}
	case parse.StructPrimary:
		st := &registry.StructType{}
		lit := StructLiteral{Type: st}
		for _, fn := range pn.Fields {
			if fn.Name == nil || fn.Expr == nil {
				continue
			}
			v := xb.expr(fn.Expr)
			lit.Names = append(lit.Names, fn.Name.Name)
			lit.Values = append(lit.Values, v)
			st.Fields = append(st.Fields, registry.StructField{
				Name: fn.Name.Name, Type: TypeOf(v),
			})
		}
		return lit
	case parse.BlockPrimary:
		return xb.block(pn.Block)
	}
	return Invalid{}
}

// numberLiteral normalizes a number with a unit suffix: lengths to pixels,
// durations to milliseconds, angles to degrees.
func numberLiteral(v float64, unit string) NumberLiteral {
	switch unit {
	case "px":
		return NumberLiteral{Value: v, Type: registry.LengthType}
	case "ms":
		return NumberLiteral{Value: v, Type: registry.DurationType}
	case "s":
		return NumberLiteral{Value: v * 1000, Type: registry.DurationType}
	case "%":
		return NumberLiteral{Value: v, Type: registry.PercentType}
	case "deg":
		return NumberLiteral{Value: v, Type: registry.AngleType}
	}
	return NumberLiteral{Value: v, Type: registry.FloatType}
}

// parseColor converts "#rgb", "#rrggbb" or "#rrggbbaa" to 0xAARRGGBB.
func parseColor(s string) (uint32, bool) {
	hex := s[1:]
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, false
	}
	switch len(hex) {
	case 3:
		r := uint32(v>>8) & 0xf
		g := uint32(v>>4) & 0xf
		b := uint32(v) & 0xf
		return 0xff000000 | r<<20 | r<<16 | g<<12 | g<<8 | b<<4 | b, true
	case 6:
		return 0xff000000 | uint32(v), true
	case 8:
		return uint32(v>>8) | uint32(v&0xff)<<24, true
	}
	return 0, false
}

// identChain resolves a postfix expression whose head is an identifier. The
// identifier may denote a callback argument, a repeater variable, an element
// reference, a property of the enclosing element or component, a global
// component, an enum, or a builtin function; resolution is attempted in that
// order.
func (xb *exprBuilder) identChain(pn *parse.Postfix) Expression {
	head := pn.Head
	name := head.Value
	acc := pn.Accesses

	switch name {
	case "true":
		return xb.foldAccesses(BoolLiteral{Value: true}, acc)
	case "false":
		return xb.foldAccesses(BoolLiteral{Value: false}, acc)
	}

	for i, p := range xb.params {
		if p == name {
			return xb.foldAccesses(CallbackArg{Index: i}, acc)
		}
	}

	crossed := false
	for s := xb.sc; s != nil; s = s.parent {
		if name == s.modelVar || name == s.indexVar {
			if crossed {
				xb.b.errorf(head, "cannot reference %q of an enclosing repeater here", name)
				return Invalid{}
			}
			if name == s.modelVar {
				return xb.foldAccesses(ModelData{}, acc)
			}
			return xb.foldAccesses(ModelIndex{}, acc)
		}
		if s.modelVar != "" || s.indexVar != "" {
			crossed = true
		}
	}

	var elem *Element
	switch name {
	case "self":
		elem = xb.self
	case "root":
		top := xb.sc
		for top.parent != nil {
			top = top.parent
		}
		elem = top.root
	default:
		elem = xb.sc.lookup(name)
	}
	if elem != nil {
		if len(acc) == 0 || acc[0].Kind != parse.FieldAccess || acc[0].Field == nil {
			xb.b.errorf(head, "element reference %q must be followed by a property", name)
			return Invalid{}
		}
		return xb.memberExpr(elem, acc[0].Field.Name, acc[0], acc[1:])
	}

	if xb.self.LookupProperty(name) != nil {
		return xb.memberExpr(xb.self, name, head, acc)
	}
	for s := xb.sc; s != nil; s = s.parent {
		if s.root != nil && s.root != xb.self && s.root.LookupProperty(name) != nil {
			return xb.memberExpr(s.root, name, head, acc)
		}
	}

	if c, ok := xb.b.components[name]; ok && c.Global {
		if len(acc) == 0 || acc[0].Kind != parse.FieldAccess || acc[0].Field == nil {
			xb.b.errorf(head, "global %q must be followed by a property", name)
			return Invalid{}
		}
		return xb.memberExpr(c.Root, acc[0].Field.Name, acc[0], acc[1:])
	}

	if e := xb.b.enumByName(name); e != nil {
		if len(acc) == 0 || acc[0].Kind != parse.FieldAccess || acc[0].Field == nil {
			xb.b.errorf(head, "enum %q must be followed by a case name", name)
			return Invalid{}
		}
		caseName := acc[0].Field.Name
		if !e.HasCase(caseName) {
			xb.b.errorf(acc[0].Field, "enum %q has no case %q", name, caseName)
			return Invalid{}
		}
		return xb.foldAccesses(EnumValue{Enum: e, Case: caseName}, acc[1:])
	}

	if f, ok := xb.b.reg.Function(name); ok {
		return xb.functionCall(f, head, acc)
	}

	xb.b.errorf(head, "unknown identifier %q", name)
	return Invalid{}
}

func (xb *exprBuilder) functionCall(f *registry.BuiltinFunction, head *parse.Primary, acc []*parse.Access) Expression {
	if len(acc) == 0 || acc[0].Kind != parse.CallAccess {
		xb.b.errorf(head, "builtin function %q must be called", f.Name)
		return Invalid{}
	}
	argNodes := acc[0].Args
	if len(argNodes) < f.MinArgs || (f.MaxArgs >= 0 && len(argNodes) > f.MaxArgs) {
		xb.b.errorf(acc[0], "wrong number of arguments to %q", f.Name)
		return Invalid{}
	}
	var args []Expression
	if f.Name == "start-timer" || f.Name == "stop-timer" {
		// The argument is a timer element id; it resolves to the timer's
		// running property, which the timer lowering rewrites into an
		// assignment.
		timer := xb.timerArg(argNodes[0])
		if timer == nil {
			xb.b.errorf(argNodes[0], "argument to %q must be the id of a Timer element", f.Name)
			args = []Expression{Invalid{}}
		} else {
			args = []Expression{PropertyRef{Ref: &NamedReference{Element: timer, Name: "running"}}}
		}
	} else {
		args = xb.exprList(argNodes)
	}
	return xb.foldAccesses(FunctionCall{Function: f.Name, Args: args}, acc[1:])
}

// timerArg resolves an expression that must be a bare id of a Timer element.
func (xb *exprBuilder) timerArg(en *parse.Expr) *Element {
	if en == nil || len(en.Operands) != 1 || len(en.Ops) != 0 || en.Then != nil {
		return nil
	}
	un := en.Operands[0]
	if len(un.Ops) != 0 || un.Postfix == nil {
		return nil
	}
	pf := un.Postfix
	if pf.Head == nil || pf.Head.Type != parse.IdentPrimary || len(pf.Accesses) != 0 {
		return nil
	}
	e := xb.sc.lookup(pf.Head.Value)
	if e == nil || e.Base.Kind != BuiltinType || e.Base.Builtin.Name != "Timer" {
		return nil
	}
	return e
}

// memberExpr builds a property read or callback invocation on an element.
func (xb *exprBuilder) memberExpr(elem *Element, prop string, r diag.Ranger, rest []*parse.Access) Expression {
	t := elem.LookupProperty(prop)
	if t == nil {
		xb.b.errorf(r, "%s has no property %q", elemName(elem), prop)
		return Invalid{}
	}
	ref := &NamedReference{Element: elem, Name: prop}
	if t.Kind == registry.Callback {
		if len(rest) == 0 || rest[0].Kind != parse.CallAccess {
			xb.b.errorf(r, "callback %q must be called", prop)
			return Invalid{}
		}
		if len(rest[0].Args) != len(t.Params) {
			xb.b.errorf(rest[0], "wrong number of arguments to %q", prop)
			return Invalid{}
		}
		return xb.foldAccesses(CallbackCall{Ref: ref, Args: xb.exprList(rest[0].Args)}, rest[1:])
	}
	return xb.foldAccesses(PropertyRef{Ref: ref}, rest)
}

// foldAccesses applies the remaining postfix accesses to an already-built
// base expression.
func (xb *exprBuilder) foldAccesses(base Expression, accesses []*parse.Access) Expression {
	for _, a := range accesses {
		t := TypeOf(base)
		switch a.Kind {
		case parse.FieldAccess:
			if a.Field == nil {
				return Invalid{}
			}
			if t.Kind == registry.Struct {
				if t.StructDef.FieldType(a.Field.Name) == nil {
					xb.b.errorf(a.Field, "%s has no field %q", t, a.Field.Name)
					return Invalid{}
				}
			} else if t.Kind != registry.Invalid {
				xb.b.errorf(a.Field, "%s value has no fields", t)
				return Invalid{}
			}
			base = FieldAccess{Base: base, Field: a.Field.Name}
		case parse.IndexAccess:
			if t.Kind != registry.Model && t.Kind != registry.Invalid {
				xb.b.errorf(a, "cannot index %s value", t)
				return Invalid{}
			}
			base = IndexAccess{Base: base, Index: xb.expr(a.Index)}
		case parse.CallAccess:
			xb.b.errorf(a, "expression is not callable")
			return Invalid{}
		}
	}
	return base
}

func (xb *exprBuilder) exprList(ens []*parse.Expr) []Expression {
	out := make([]Expression, len(ens))
	for i, en := range ens {
		out[i] = xb.expr(en)
	}
	return out
}

func (xb *exprBuilder) block(bn *parse.Block) Expression {
	if bn == nil {
		return Invalid{}
	}
	var stmts []Stmt
	for _, sn := range bn.Stmts {
		switch sn.Kind {
		case parse.ReturnStmt:
			var e Expression
			if sn.Expr != nil {
				e = xb.expr(sn.Expr)
			}
			stmts = append(stmts, ReturnStmt{Expr: e})
		case parse.AssignStmt:
			if sn.Target == nil || sn.Expr == nil {
				continue
			}
			ref := xb.resolveRef(sn.Target)
			if ref == nil {
				continue
			}
			dst := ref.Type()
			if dst != nil && dst.Kind == registry.Callback {
				xb.b.errorf(sn.Target, "cannot assign to callback %q", ref.Name)
				continue
			}
			value := xb.expr(sn.Expr)
			if dst != nil && !assignable(dst, TypeOf(value)) {
				xb.b.errorf(sn.Expr, "cannot assign %s value to %s property %s",
					TypeOf(value), dst, ref)
			}
			if sn.Op != "=" && dst != nil && !dst.IsNumeric() &&
				!(sn.Op == "+=" && dst.Kind == registry.String) &&
				dst.Kind != registry.Invalid {
				xb.b.errorf(sn.Target, "operator %q needs a numeric property", sn.Op)
			}
			stmts = append(stmts, AssignStmt{Target: ref, Op: sn.Op, Value: value})
		default:
			if sn.Expr == nil {
				continue
			}
			stmts = append(stmts, ExprStmt{Expr: xb.expr(sn.Expr)})
		}
	}
	return CodeBlock{Stmts: stmts}
}

// resolveRef resolves a dotted path used as an assignment or two-way target:
// a bare property name on self (falling back to the component root), or an
// element or global reference followed by a property name.
func (xb *exprBuilder) resolveRef(path *parse.Path) *NamedReference {
	idents := path.Idents
	switch len(idents) {
	case 0:
		return nil
	case 1:
		name := idents[0].Name
		if xb.self.LookupProperty(name) != nil {
			return &NamedReference{Element: xb.self, Name: name}
		}
		for s := xb.sc; s != nil; s = s.parent {
			if s.root != nil && s.root != xb.self && s.root.LookupProperty(name) != nil {
				return &NamedReference{Element: s.root, Name: name}
			}
		}
		xb.b.errorf(idents[0], "%s has no property %q", elemName(xb.self), name)
		return nil
	case 2:
		base, prop := idents[0].Name, idents[1].Name
		var elem *Element
		switch base {
		case "self":
			elem = xb.self
		case "root":
			top := xb.sc
			for top.parent != nil {
				top = top.parent
			}
			elem = top.root
		default:
			elem = xb.sc.lookup(base)
			if elem == nil {
				if c, ok := xb.b.components[base]; ok && c.Global {
					elem = c.Root
				}
			}
		}
		if elem == nil {
			xb.b.errorf(idents[0], "unknown element %q", base)
			return nil
		}
		if elem.LookupProperty(prop) == nil {
			xb.b.errorf(idents[1], "%s has no property %q", elemName(elem), prop)
			return nil
		}
		return &NamedReference{Element: elem, Name: prop}
	}
	xb.b.errorf(path, "cannot assign to a nested field")
	return nil
}

// animation builds the animation metadata of an animate block, returning the
// animated property name. Returns a nil animation if the block is unusable.
func (xb *exprBuilder) animation(an *parse.Animate) (string, *Animation) {
	prop := an.Prop.Name
	anim := &Animation{}
	for _, bn := range an.Bindings {
		if bn.Name == nil || bn.Expr == nil {
			continue
		}
		switch bn.Name.Name {
		case "duration":
			e := xb.expr(bn.Expr)
			if n, ok := e.(NumberLiteral); ok && n.Type.Kind == registry.Duration {
				anim.Duration = e
			} else {
				xb.b.errorf(bn.Expr, "animation duration must be a constant duration")
			}
		default:
			xb.b.warnf(bn.Name, "unknown animation property %q", bn.Name.Name)
		}
	}
	if anim.Duration == nil {
		xb.b.errorf(an.Prop, "animate %q needs a duration", prop)
		return prop, nil
	}
	return prop, anim
}

// assignable reports whether a value of type src may be bound or assigned to
// a property of type dst. Unitless numbers convert to any numeric type;
// everything else must match exactly. Struct types match by field names and
// field types regardless of declaration order.
func assignable(dst, src *registry.ValueType) bool {
	if dst.Kind == registry.Invalid || src.Kind == registry.Invalid {
		return true
	}
	if dst.Equal(src) {
		return true
	}
	switch {
	case dst.IsNumeric() && (src.Kind == registry.Float || src.Kind == registry.Int):
		return true
	case (dst.Kind == registry.Float || dst.Kind == registry.Int) && src.IsNumeric():
		return true
	case dst.Kind == registry.Model && src.Kind == registry.Model:
		return assignable(dst.Elem, src.Elem)
	case dst.Kind == registry.Struct && src.Kind == registry.Struct:
		a, b := dst.StructDef, src.StructDef
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for _, f := range a.Fields {
			ft := b.FieldType(f.Name)
			if ft == nil || !assignable(f.Type, ft) {
				return false
			}
		}
		return true
	}
	return false
}
