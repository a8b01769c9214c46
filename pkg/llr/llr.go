// Package llr defines the low-level representation: the flattened,
// index-addressed form of a compiled document. After lowering there are no
// name lookups left; every property is addressed by a PropertyReference that
// resolves with pure index arithmetic. An unresolvable reference at this stage
// is a compiler bug and panics.
package llr

import (
	"github.com/vellum-ui/vellum/pkg/registry"
)

// CompilationUnit is the lowered form of one document: its global singletons
// and its exported components.
type CompilationUnit struct {
	// Globals in stable order; InGlobal references index into this slice.
	Globals []*GlobalComponent
	// Exported components in declaration order.
	Components []*PublicComponent
}

// Global returns the lowered global with the given name, or nil.
func (u *CompilationUnit) Global(name string) *GlobalComponent {
	for _, g := range u.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Component returns the lowered exported component with the given name, or
// nil.
func (u *CompilationUnit) Component(name string) *PublicComponent {
	for _, c := range u.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// GlobalComponent is a lowered global singleton: properties only, no items.
type GlobalComponent struct {
	Name       string
	Properties []Property
	Bindings   []Binding
}

// PublicComponent is a lowered exported component together with its public
// API surface.
type PublicComponent struct {
	Name string
	Root *SubComponent
	// PublicProperties lists the root properties exposed to hosts, in
	// declaration order.
	PublicProperties []PublicProperty
}

// PublicProperty describes one externally visible property or callback.
type PublicProperty struct {
	Name       string
	Type       *registry.ValueType
	IsCallback bool
	// Settable and Gettable derive from the in/out access of the declaration.
	Settable bool
	Gettable bool
	// Prop addresses the property within the root sub-component.
	Prop PropertyReference
}

// SubComponent is one flattened component tree: a linear item array in
// breadth-first order, the declared properties, all bindings, two-way links,
// repeaters and timers.
type SubComponent struct {
	Name string

	// Items in breadth-first order: the children of any item occupy one
	// contiguous range.
	Items []Item

	// Properties declared in the source (plus synthesized ones, e.g. timer
	// state and state-machine indices). Local references index into this
	// slice.
	Properties []Property

	// Bindings for local and native-item properties, in deterministic order.
	Bindings []Binding

	// TwoWayLinks after canonicalization: the alias side has no binding of
	// its own and forwards to the canonical side.
	TwoWayLinks []TwoWayLink

	// Repeaters instantiated by repeater slot items.
	Repeaters []Repeater

	// Timers owned by this sub-component.
	Timers []Timer
}

// Item is one node of the flattened item tree.
type Item struct {
	// NativeClass of the item; nil for repeater slots.
	NativeClass *registry.NativeClass
	// DebugID is the unique element id, for diagnostics only.
	DebugID string
	// ParentIndex is the item index of the parent, -1 for the root.
	ParentIndex int
	// FirstChild is the item index of the first child, -1 if childless.
	// Children occupy FirstChild..FirstChild+ChildCount-1.
	FirstChild int
	ChildCount int
	// RepeaterIndex indexes into Repeaters for repeater slots, -1 otherwise.
	RepeaterIndex int
}

// Property is a declared (or synthesized) property slot.
type Property struct {
	// Name is "<element-id>.<property>", for diagnostics only.
	Name       string
	Type       *registry.ValueType
	IsCallback bool
}

// Binding attaches an expression to a property.
type Binding struct {
	Ref  PropertyReference
	Expr Expression
	// Animation, if set, animates value changes of the property.
	Animation *Animation
}

// Animation is lowered animation metadata.
type Animation struct {
	// Duration in milliseconds; constant by the time lowering runs.
	DurationMs float64
}

// TwoWayLink declares that Alias is a pure forwarder for Canonical: one
// storage cell, two addresses.
type TwoWayLink struct {
	Canonical PropertyReference
	Alias     PropertyReference
}

// Repeater describes the dynamic instantiation of a sub-component.
type Repeater struct {
	SubComponent *SubComponent
	// Model is evaluated in the enclosing sub-component. A boolean for
	// conditionals, a model or number otherwise.
	Model Expression
	// IsConditional marks if-lowered repeaters: zero or one instance.
	IsConditional bool
	// IsComponentPlaceholder marks the designated slot of a lowered
	// ComponentContainer.
	IsComponentPlaceholder bool
	// SlotItem is the item index of the repeater slot.
	SlotItem int
}

// Timer binds the three timer properties of one lowered Timer element.
type Timer struct {
	Interval  PropertyReference
	Running   PropertyReference
	Triggered PropertyReference
}

// PropertyReference addresses a property without names (the native item
// property name is part of the item's fixed native class layout, not a
// lookup). The set is closed.
type PropertyReference interface{ isPropertyReference() }

// Local addresses a property in the current sub-component's Properties.
type Local struct{ PropertyIndex int }

// InNativeItem addresses a native property of an item of the current
// sub-component.
type InNativeItem struct {
	ItemIndex    int
	PropertyName string
}

// InParent addresses a property Level sub-components up the repeater chain.
type InParent struct {
	Level int
	Ref   PropertyReference
}

// InGlobal addresses a property of a global singleton.
type InGlobal struct {
	GlobalIndex   int
	PropertyIndex int
}

func (Local) isPropertyReference()        {}
func (InNativeItem) isPropertyReference() {}
func (InParent) isPropertyReference()     {}
func (InGlobal) isPropertyReference()     {}
