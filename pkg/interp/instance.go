package interp

import (
	"time"

	"github.com/vellum-ui/vellum/pkg/llr"
	"github.com/vellum-ui/vellum/pkg/property"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// ComponentInstance is one live instantiation of a compiled component: a
// reactive property graph plus timers and repeaters, owned by a single
// goroutine.
type ComponentInstance struct {
	def *ComponentDefinition
	tr  *property.Tracker
	win WindowAdapter

	globals []*globalInstance
	root    *instance

	visible bool
}

// GetProperty reads a public property. The read evaluates any stale bindings
// it depends on.
func (ci *ComponentInstance) GetProperty(name string) (Value, error) {
	pp, ok := ci.findPublic(name)
	if !ok || pp.IsCallback {
		return VoidValue(), ErrNoSuchProperty
	}
	return asValue(ci.root.resolveProp(pp.Prop).Get()), nil
}

// SetProperty writes a public property. A type mismatch returns ErrWrongType
// and leaves the prior value and all dependents untouched. A write to a
// property with animation metadata animates to the new value instead of
// jumping.
func (ci *ComponentInstance) SetProperty(name string, v Value) error {
	pp, ok := ci.findPublic(name)
	if !ok || pp.IsCallback {
		return ErrNoSuchProperty
	}
	if !pp.Settable {
		return ErrReadOnly
	}
	if !matchesType(v, pp.Type) {
		return ErrWrongType
	}
	cell := ci.root.resolveProp(pp.Prop)
	if ms, ok := ci.root.anims[cell]; ok && ms > 0 {
		if _, isNum := v.AsNumber(); isNum {
			if cur := asValue(cell.Get()); cur.Kind() == Number {
				cell.AnimateValue(cur, v, time.Duration(ms*float64(time.Millisecond)), lerpValue)
				return nil
			}
		}
	}
	cell.Set(v)
	return nil
}

// lerpValue interpolates two Number values for animated writes.
func lerpValue(from, to any, t float64) any {
	f, _ := from.(Value).AsNumber()
	g, _ := to.(Value).AsNumber()
	return NumberValue(f + (g-f)*t)
}

// SetCallback installs a host handler for a public callback, replacing any
// handler declared in the source.
func (ci *ComponentInstance) SetCallback(name string, f func(args []Value) Value) error {
	pp, ok := ci.findPublic(name)
	if !ok || !pp.IsCallback {
		return ErrNoSuchCallback
	}
	ci.root.resolveHandler(pp.Prop).host = f
	return nil
}

// Invoke calls a public callback and returns its result. A callback with no
// handler returns void.
func (ci *ComponentInstance) Invoke(name string, args []Value) (Value, error) {
	pp, ok := ci.findPublic(name)
	if !ok || !pp.IsCallback {
		return VoidValue(), ErrNoSuchCallback
	}
	return ci.root.resolveHandler(pp.Prop).invoke(args), nil
}

// Show makes the window visible.
func (ci *ComponentInstance) Show() error {
	if err := ci.win.Show(); err != nil {
		return err
	}
	ci.visible = true
	return nil
}

// Hide hides the window; a running event loop ends on the next tick.
func (ci *ComponentInstance) Hide() error {
	if err := ci.win.Hide(); err != nil {
		return err
	}
	ci.visible = false
	return nil
}

// Run shows the window and drives the event loop until the instance is
// hidden or the window closes. With the headless platform Run returns
// immediately; tests drive time with Tick instead.
func (ci *ComponentInstance) Run() error {
	if err := ci.Show(); err != nil {
		return err
	}
	return ci.win.Run(func(dt time.Duration) bool {
		ci.Tick(dt)
		return ci.visible
	})
}

// Tick advances the instance clock: animations progress and due timers fire
// synchronously, in item-tree order.
func (ci *ComponentInstance) Tick(dt time.Duration) {
	ci.tr.Tick(dt)
	ci.root.tickTimers(ci.tr.Now())
}

func (ci *ComponentInstance) findPublic(name string) (llr.PublicProperty, bool) {
	for _, pp := range ci.def.comp.PublicProperties {
		if pp.Name == name {
			return pp, true
		}
	}
	return llr.PublicProperty{}, false
}

// globalInstance holds the property cells of one global singleton.
type globalInstance struct {
	owner    *ComponentInstance
	g        *llr.GlobalComponent
	props    []*property.Property
	handlers []*handler
}

func newGlobalInstance(owner *ComponentInstance, g *llr.GlobalComponent) *globalInstance {
	gi := &globalInstance{owner: owner, g: g}
	gi.props = make([]*property.Property, len(g.Properties))
	gi.handlers = make([]*handler, len(g.Properties))
	for i, p := range g.Properties {
		gi.props[i] = property.New(owner.tr, p.Name)
		gi.props[i].Set(zeroValue(p.Type))
		if p.IsCallback {
			gi.handlers[i] = &handler{}
		}
	}
	return gi
}

func (gi *globalInstance) installBindings() {
	for _, b := range gi.g.Bindings {
		local, ok := b.Ref.(llr.Local)
		if !ok {
			continue
		}
		if h := gi.handlers[local.PropertyIndex]; h != nil {
			h.expr = b.Expr
			h.scope = gi
			continue
		}
		expr := b.Expr
		gi.props[local.PropertyIndex].SetBinding(func() any {
			return (&env{scope: gi}).eval(expr)
		})
	}
}

func (gi *globalInstance) resolveProp(ref llr.PropertyReference) *property.Property {
	switch ref := ref.(type) {
	case llr.Local:
		return gi.props[ref.PropertyIndex]
	case llr.InGlobal:
		return gi.owner.globals[ref.GlobalIndex].props[ref.PropertyIndex]
	}
	panic("interp: unresolvable reference in a global")
}

func (gi *globalInstance) resolveHandler(ref llr.PropertyReference) *handler {
	switch ref := ref.(type) {
	case llr.Local:
		return gi.handlers[ref.PropertyIndex]
	case llr.InGlobal:
		g := gi.owner.globals[ref.GlobalIndex]
		return g.handlers[ref.PropertyIndex]
	}
	panic("interp: unresolvable callback reference in a global")
}

func (gi *globalInstance) modelData() *property.Property  { return nil }
func (gi *globalInstance) modelIndex() *property.Property { return nil }

// instance is one instantiated sub-component: the root component itself, or
// one repetition produced by a repeater.
type instance struct {
	owner  *ComponentInstance
	sub    *llr.SubComponent
	parent *instance

	locals        []*property.Property
	localHandlers []*handler
	items         []map[string]*property.Property
	itemHandlers  []map[string]*handler

	// anims records animation metadata per bound cell, consumed by direct
	// writes.
	anims map[*property.Property]float64

	repeaters []*repeaterState
	timers    []*timerState

	data, index *property.Property
}

func newInstance(owner *ComponentInstance, sub *llr.SubComponent, parent *instance, data Value, index int) *instance {
	in := &instance{
		owner:  owner,
		sub:    sub,
		parent: parent,
		items:  make([]map[string]*property.Property, len(sub.Items)),
		anims:  make(map[*property.Property]float64),
	}
	in.data = property.New(owner.tr, sub.Name+".$data")
	in.data.Set(data)
	in.index = property.New(owner.tr, sub.Name+".$index")
	in.index.Set(NumberValue(float64(index)))

	in.locals = make([]*property.Property, len(sub.Properties))
	in.localHandlers = make([]*handler, len(sub.Properties))
	for i, p := range sub.Properties {
		in.locals[i] = property.New(owner.tr, p.Name)
		in.locals[i].Set(zeroValue(p.Type))
		if p.IsCallback {
			in.localHandlers[i] = &handler{}
		}
	}

	for _, b := range sub.Bindings {
		if h := in.handlerSlot(b.Ref); h != nil {
			h.expr = b.Expr
			h.scope = in
			continue
		}
		cell := in.resolveProp(b.Ref)
		expr := b.Expr
		cell.SetBinding(func() any {
			return (&env{scope: in}).eval(expr)
		})
		if b.Animation != nil {
			in.anims[cell] = b.Animation.DurationMs
		}
	}
	for _, link := range sub.TwoWayLinks {
		property.Link(in.resolveProp(link.Canonical), in.resolveProp(link.Alias))
	}
	for _, r := range sub.Repeaters {
		in.repeaters = append(in.repeaters, newRepeaterState(in, r))
	}
	for _, t := range sub.Timers {
		in.timers = append(in.timers, &timerState{in: in, t: t})
	}
	return in
}

// handlerSlot returns the handler for a callback-typed binding target, nil
// when the target is a plain property.
func (in *instance) handlerSlot(ref llr.PropertyReference) *handler {
	switch ref := ref.(type) {
	case llr.Local:
		return in.localHandlers[ref.PropertyIndex]
	case llr.InNativeItem:
		t, _ := in.sub.Items[ref.ItemIndex].NativeClass.Lookup(ref.PropertyName)
		if t == nil || t.Kind != registry.Callback {
			return nil
		}
		return in.itemHandler(ref.ItemIndex, ref.PropertyName)
	}
	return nil
}

func (in *instance) resolveProp(ref llr.PropertyReference) *property.Property {
	switch ref := ref.(type) {
	case llr.Local:
		return in.locals[ref.PropertyIndex]
	case llr.InNativeItem:
		return in.itemProp(ref.ItemIndex, ref.PropertyName)
	case llr.InParent:
		p := in
		for i := 0; i < ref.Level; i++ {
			p = p.parent
		}
		return p.resolveProp(ref.Ref)
	case llr.InGlobal:
		return in.owner.globals[ref.GlobalIndex].props[ref.PropertyIndex]
	}
	panic("interp: unknown property reference")
}

func (in *instance) resolveHandler(ref llr.PropertyReference) *handler {
	switch ref := ref.(type) {
	case llr.Local:
		return in.localHandlers[ref.PropertyIndex]
	case llr.InNativeItem:
		return in.itemHandler(ref.ItemIndex, ref.PropertyName)
	case llr.InParent:
		p := in
		for i := 0; i < ref.Level; i++ {
			p = p.parent
		}
		return p.resolveHandler(ref.Ref)
	case llr.InGlobal:
		return in.owner.globals[ref.GlobalIndex].handlers[ref.PropertyIndex]
	}
	panic("interp: unknown callback reference")
}

// itemProp returns the cell for a native item property, creating it with the
// type's zero value on first use.
func (in *instance) itemProp(item int, name string) *property.Property {
	m := in.items[item]
	if m == nil {
		m = make(map[string]*property.Property)
		in.items[item] = m
	}
	if cell, ok := m[name]; ok {
		return cell
	}
	cell := property.New(in.owner.tr, in.sub.Items[item].DebugID+"."+name)
	t, _ := in.sub.Items[item].NativeClass.Lookup(name)
	cell.Set(zeroValue(t))
	m[name] = cell
	return cell
}

func (in *instance) itemHandler(item int, name string) *handler {
	m := in.itemHandlers
	if m == nil {
		m = make([]map[string]*handler, len(in.sub.Items))
		in.itemHandlers = m
	}
	if m[item] == nil {
		m[item] = make(map[string]*handler)
	}
	h, ok := m[item][name]
	if !ok {
		h = &handler{}
		m[item][name] = h
	}
	return h
}

func (in *instance) modelData() *property.Property  { return in.data }
func (in *instance) modelIndex() *property.Property { return in.index }

func (in *instance) tickTimers(now time.Duration) {
	for _, ts := range in.timers {
		ts.tick(now)
	}
	for _, rs := range in.repeaters {
		for _, sub := range rs.insts {
			sub.tickTimers(now)
		}
	}
}

// handler is the invocable slot behind a callback property: the handler
// declared in the source, a host handler installed with SetCallback, or
// nothing. A host handler takes precedence.
type handler struct {
	host  func(args []Value) Value
	expr  llr.Expression
	scope evalScope
}

func (h *handler) invoke(args []Value) Value {
	if h == nil {
		return VoidValue()
	}
	if h.host != nil {
		return h.host(args)
	}
	if h.expr != nil {
		return (&env{scope: h.scope, args: args}).eval(h.expr)
	}
	return VoidValue()
}

// repeaterState materializes the repetitions of one repeater. The model is
// held in a watched cell, so changing any model dependency rebuilds the
// repetitions.
type repeaterState struct {
	in    *instance
	rep   llr.Repeater
	model *property.Property
	insts []*instance
}

func newRepeaterState(in *instance, rep llr.Repeater) *repeaterState {
	rs := &repeaterState{in: in, rep: rep}
	rs.model = property.New(in.owner.tr, rep.SubComponent.Name+".$model")
	expr := rep.Model
	rs.model.SetBinding(func() any {
		return (&env{scope: in}).eval(expr)
	})
	rs.model.Watch(func(any) { rs.rebuild() })
	rs.rebuild()
	return rs
}

// rebuild recreates all repetitions from the current model value. A boolean
// model yields zero or one, a number N yields N with the index as data, a
// model value yields one per row.
func (rs *repeaterState) rebuild() {
	mv := asValue(rs.model.Get())
	var rows []Value
	switch mv.Kind() {
	case Bool:
		if b, _ := mv.AsBool(); b {
			rows = []Value{VoidValue()}
		}
	case Number:
		n, _ := mv.AsNumber()
		for i := 0; i < int(n); i++ {
			rows = append(rows, NumberValue(float64(i)))
		}
	case Model:
		m, _ := mv.AsModel()
		for i := 0; i < m.RowCount(); i++ {
			rows = append(rows, m.Row(i))
		}
	}
	rs.insts = rs.insts[:0]
	for i, row := range rows {
		rs.insts = append(rs.insts, newInstance(rs.in.owner, rs.rep.SubComponent, rs.in, row, i))
	}
}

// InstanceCount returns the current number of repetitions; used by tests and
// tree walkers.
func (rs *repeaterState) InstanceCount() int { return len(rs.insts) }

// timerState fires a lowered timer. The first fire is one interval after the
// timer is first observed running; stopping rearms it.
type timerState struct {
	in     *instance
	t      llr.Timer
	due    time.Duration
	active bool
}

func (ts *timerState) tick(now time.Duration) {
	running, _ := asValue(ts.in.resolveProp(ts.t.Running).Get()).AsBool()
	if !running {
		ts.active = false
		return
	}
	ms, _ := asValue(ts.in.resolveProp(ts.t.Interval).Get()).AsNumber()
	interval := time.Duration(ms * float64(time.Millisecond))
	if interval <= 0 {
		return
	}
	if !ts.active {
		ts.active = true
		ts.due = now + interval
	}
	for now >= ts.due {
		ts.in.resolveHandler(ts.t.Triggered).invoke(nil)
		ts.due += interval
	}
}
