package property

import (
	"reflect"
	"time"
)

// Binding computes a property's value on demand. Reads of other properties
// performed inside a binding register the evaluated property as their
// dependent.
type Binding func() any

type state uint8

const (
	// constant: a plain stored value, no binding. Writes elsewhere never
	// affect it.
	constant state = iota
	// bindingDirty: a binding is installed and the cached value is stale.
	bindingDirty
	// bindingClean: a binding is installed and the cached value is current.
	bindingClean
)

// Property is one reactive cell. The zero value is not usable; construct with
// New. A Property must only be used from the goroutine owning its Tracker.
type Property struct {
	tr   *Tracker
	name string

	st      state
	value   any
	binding Binding
	anim    *animation

	// alias, when set, makes this cell a pure forwarder: every operation
	// resolves to the canonical cell.
	alias *Property

	// dependents are the properties whose bindings read this one during their
	// last evaluation. sources is the reverse edge set, kept so re-evaluation
	// can drop stale edges.
	dependents []*Property
	sources    []*Property

	watchers []*watcher

	evaluating    bool
	refreshQueued bool
}

type watcher struct{ f func(any) }

// New returns a constant cell holding nil. The name is used in the binding
// loop panic message only.
func New(tr *Tracker, name string) *Property {
	return &Property{tr: tr, name: name}
}

// Name returns the diagnostic name of the cell.
func (p *Property) Name() string { return p.canonical().name }

func (p *Property) canonical() *Property {
	for p.alias != nil {
		p = p.alias
	}
	return p
}

// Get returns the current value, evaluating the binding first if it is stale.
// When called from inside another binding's evaluation, that binding's
// property is registered as a dependent of this one. A binding that directly
// or transitively reads the property it computes panics with "property
// binding loop".
func (p *Property) Get() any {
	p = p.canonical()
	if p.evaluating {
		panic("property binding loop: " + p.name)
	}
	if p.st == bindingDirty {
		p.refresh()
	}
	if ctx := p.tr.context(); ctx != nil && ctx != p {
		p.addDependent(ctx)
	}
	return p.value
}

// Set stores a plain value, removing any binding or animation. Dependents of
// the cell are marked stale if the value changed.
func (p *Property) Set(v any) {
	p = p.canonical()
	p.clearBinding()
	p.st = constant
	p.store(v)
	p.tr.deliver()
}

// SetBinding installs a binding. The binding is not evaluated until the first
// Get.
func (p *Property) SetBinding(f Binding) {
	p = p.canonical()
	p.clearBinding()
	p.binding = f
	p.st = bindingDirty
	p.dirtied()
	p.tr.deliver()
}

// Animate installs a time-driven binding interpolating from the current value
// to target over d on the tracker's clock. Non-numeric current values and
// non-positive durations degrade to a plain Set.
func (p *Property) Animate(target float64, d time.Duration) {
	p = p.canonical()
	from, ok := p.Get().(float64)
	if !ok || d <= 0 {
		p.Set(target)
		return
	}
	p.AnimateValue(from, target, d, lerpFloat)
}

// AnimateValue is Animate for arbitrary value representations: lerp produces
// the intermediate value for a progress in [0, 1). The animation settles into
// a plain to once the tracker clock passes d.
func (p *Property) AnimateValue(from, to any, d time.Duration, lerp func(from, to any, t float64) any) {
	p = p.canonical()
	if d <= 0 {
		p.Set(to)
		return
	}
	p.clearBinding()
	p.anim = &animation{from: from, to: to, lerp: lerp, start: p.tr.now, end: p.tr.now + d}
	p.st = bindingDirty
	p.tr.addAnim(p)
	p.dirtied()
	p.tr.deliver()
}

func lerpFloat(from, to any, t float64) any {
	f, g := from.(float64), to.(float64)
	return f + (g-f)*t
}

// Watch registers f to be called with the new value after every effective
// change of the cell. Callbacks are queued on write and delivered from the
// tracker once no binding evaluation is in progress. The returned function
// removes the watcher.
func (p *Property) Watch(f func(any)) (remove func()) {
	c := p.canonical()
	w := &watcher{f}
	c.watchers = append(c.watchers, w)
	return func() {
		c := p.canonical()
		for i, q := range c.watchers {
			if q == w {
				c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
				return
			}
		}
	}
}

// Link makes alias a pure forwarder for canonical: one storage cell reachable
// under two addresses, so writing either side is observed by both. Any
// binding, animation, dependents and watchers of the alias move to the
// canonical cell; its own value is discarded.
func Link(canonical, alias *Property) {
	canonical = canonical.canonical()
	alias = alias.canonical()
	if canonical == alias {
		return
	}
	alias.clearBinding()
	alias.value = nil
	alias.st = constant
	for _, d := range alias.dependents {
		canonical.addDependent(d)
		d.markDirty()
	}
	canonical.watchers = append(canonical.watchers, alias.watchers...)
	alias.dependents = nil
	alias.watchers = nil
	alias.alias = canonical
	canonical.tr.deliver()
}

// refresh re-evaluates the binding or animation and stores the result.
func (p *Property) refresh() {
	if p.anim != nil {
		v := p.anim.at(p.tr.now)
		if p.tr.now >= p.anim.end {
			// Settle into a plain value.
			p.anim = nil
			p.tr.delAnim(p)
			p.st = constant
		} else {
			p.st = bindingClean
		}
		p.store(v)
		p.tr.deliver()
		return
	}
	if p.binding == nil {
		p.st = constant
		return
	}
	p.dropSources()
	p.tr.push(p)
	p.evaluating = true
	v := p.binding()
	p.evaluating = false
	p.tr.pop()
	p.st = bindingClean
	p.store(v)
	p.tr.deliver()
}

// store writes the value and, if it changed, marks dependents stale and
// queues watcher callbacks.
func (p *Property) store(v any) {
	if sameValue(p.value, v) {
		return
	}
	p.value = v
	for _, d := range p.dependents {
		d.markDirty()
	}
	for _, w := range p.watchers {
		w := w
		p.tr.schedule(func() { w.f(v) })
	}
}

// markDirty flags a clean binding as stale. Staleness propagates through the
// dependency graph eagerly; re-evaluation stays lazy. Watched cells schedule
// a re-evaluation so their callbacks fire without an external read.
func (p *Property) markDirty() {
	if p.st != bindingClean {
		return
	}
	p.st = bindingDirty
	p.dirtied()
}

func (p *Property) dirtied() {
	if len(p.watchers) > 0 && !p.refreshQueued {
		p.refreshQueued = true
		p.tr.schedule(func() {
			p.refreshQueued = false
			p.Get()
		})
	}
	for _, d := range p.dependents {
		d.markDirty()
	}
}

func (p *Property) clearBinding() {
	p.binding = nil
	if p.anim != nil {
		p.anim = nil
		p.tr.delAnim(p)
	}
	p.dropSources()
}

func (p *Property) addDependent(d *Property) {
	for _, q := range p.dependents {
		if q == d {
			return
		}
	}
	p.dependents = append(p.dependents, d)
	d.sources = append(d.sources, p)
}

func (p *Property) dropSources() {
	for _, s := range p.sources {
		s.removeDependent(p)
	}
	p.sources = p.sources[:0]
}

func (p *Property) removeDependent(d *Property) {
	for i, q := range p.dependents {
		if q == d {
			p.dependents = append(p.dependents[:i], p.dependents[i+1:]...)
			return
		}
	}
}

type animation struct {
	from, to   any
	lerp       func(from, to any, t float64) any
	start, end time.Duration
}

func (a *animation) at(now time.Duration) any {
	if now >= a.end {
		return a.to
	}
	if now <= a.start {
		return a.from
	}
	t := float64(now-a.start) / float64(a.end-a.start)
	return a.lerp(a.from, a.to, t)
}

// sameValue reports whether a write is a no-op. Incomparable values (models,
// struct maps) always count as changed.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
