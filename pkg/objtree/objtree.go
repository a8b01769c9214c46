// Package objtree defines the mutable object tree the compiler passes operate
// on: Components owning Elements, property bindings, named references and
// expression trees.
//
// Ownership is strictly tree shaped: a Component owns its root Element, an
// Element owns its children. Everything else (enclosing-component
// back-references, NamedReference handles) is a plain pointer with no
// ownership semantics, which is what keeps the graph acyclic in the ownership
// sense while still allowing passes to navigate upwards.
package objtree

import (
	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/parse"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// Document is the top-level compilation unit. It is created per source file,
// consumed once by the passes pipeline, and discarded after lowering.
type Document struct {
	Source   parse.Source
	Registry *registry.Registry

	Imports []*ImportRecord

	// Struct and enum types declared in this document, in declaration order.
	Structs []*registry.StructType
	Enums   []*registry.EnumType

	// Top-level components in declaration order. Sub-components created by
	// lowering live inside their parent component.
	Components []*Component
}

// ImportRecord records one import statement.
type ImportRecord struct {
	Names []string
	Path  string
	diag.Ranging
}

// LocalStruct returns the document-declared struct with the given name.
func (doc *Document) LocalStruct(name string) *registry.StructType {
	for _, s := range doc.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// LocalEnum returns the document-declared enum with the given name.
func (doc *Document) LocalEnum(name string) *registry.EnumType {
	for _, e := range doc.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// ExportedComponents returns the exported components in declaration order.
func (doc *Document) ExportedComponents() []*Component {
	var out []*Component
	for _, c := range doc.Components {
		if c.Exported {
			out = append(out, c)
		}
	}
	return out
}

// LastComponent returns the last declared non-global component, or nil.
func (doc *Document) LastComponent() *Component {
	for i := len(doc.Components) - 1; i >= 0; i-- {
		if !doc.Components[i].Global {
			return doc.Components[i]
		}
	}
	return nil
}

// Component is a named element template. It owns exactly one root element.
// A global component has no visual tree: its root element has no children and
// an Empty base, and only carries properties and callbacks.
type Component struct {
	Name     string
	Exported bool
	Global   bool

	Root *Element

	// Elements removed from the visual children but still owned by the
	// component (timers, optimized-away elements kept for bookkeeping).
	OptimizedElements []*Element
	// Timer elements, collected by the timer lowering pass.
	Timers []*Element

	// Sub-components created by lowering repeaters, conditionals and
	// component containers.
	SubComponents []*Component
	// The component this sub-component was lowered out of. Nil for top-level
	// components. Plain back-reference, no ownership.
	ParentComponent *Component

	// The element carrying the @children insertion point, if any.
	ChildInsertion *Element

	// Struct and enum types used by this component, filled in by the struct
	// collection pass. UsedStructs is topologically sorted: a struct appears
	// after every struct it references as a field.
	UsedStructs []*registry.StructType
	UsedEnums   []*registry.EnumType

	// Monotone counter backing the unique-id pass.
	idCounter int
}

// NextIDSuffix returns a fresh per-component counter value for the unique-id
// pass.
func (c *Component) NextIDSuffix() int {
	c.idCounter++
	return c.idCounter
}

// TypeKind tags the base type of an element.
type TypeKind int

// Possible values for TypeKind. The set is closed: every pass matches
// exhaustively over it.
const (
	ErrorType TypeKind = iota
	BuiltinType
	NativeType
	ComponentType
)

// Type is the polymorphic base type of an Element.
type Type struct {
	Kind TypeKind
	// Builtin is set for BuiltinType, and retained for NativeType after
	// native class resolution.
	Builtin *registry.BuiltinElement
	// Native is set for NativeType.
	Native *registry.NativeClass
	// Component is set for ComponentType.
	Component *Component
}

func (t Type) String() string {
	switch t.Kind {
	case ErrorType:
		return "<error>"
	case BuiltinType:
		return t.Builtin.Name
	case NativeType:
		return t.Native.Name
	case ComponentType:
		return t.Component.Name
	}
	return "<invalid>"
}

// PropAccess is the access specifier of a declared property.
type PropAccess int

// Possible values for PropAccess.
const (
	PrivateProp PropAccess = iota
	InProp
	OutProp
	InOutProp
)

func (a PropAccess) String() string {
	switch a {
	case InProp:
		return "in"
	case OutProp:
		return "out"
	case InOutProp:
		return "in-out"
	}
	return "private"
}

// PropertyDecl is a user-declared property or callback local to an element.
type PropertyDecl struct {
	Name       string
	Type       *registry.ValueType
	Access     PropAccess
	IsCallback bool
	// ExposeInPublicAPI is set by the public API check pass on root-element
	// properties of exported components.
	ExposeInPublicAPI bool
	diag.Ranging
}

// Element is a node in the object tree.
type Element struct {
	// ID is the user-given element id, or "" for anonymous elements. The
	// unique-id pass rewrites it to a component-unique identifier.
	ID   string
	Base Type

	// Bindings maps property and callback names to their binding expressions.
	Bindings map[string]*BindingExpression

	Children []*Element

	// PropertyDecls holds user-declared properties, keyed by name.
	// DeclOrder records declaration order for deterministic iteration.
	PropertyDecls map[string]*PropertyDecl
	DeclOrder     []string

	// Repeated is non-nil for repeater slots created from for/if constructs
	// and lowered component containers.
	Repeated *RepeatInfo

	// States and Transitions carry pre-lowering state machine metadata.
	States      []State
	Transitions []Transition

	// ItemIndex and ItemIndexOfFirstChildren are assigned by the item index
	// generation pass. -1 until then.
	ItemIndex                int
	ItemIndexOfFirstChildren int

	// Enclosing is the component this element belongs to. Plain
	// back-reference, no ownership.
	Enclosing *Component

	// Parent is the parent element in the visual tree, nil for component
	// roots. Maintained by the builder and by passes that splice or wrap
	// elements.
	Parent *Element

	// DebugIDs accumulates the ids of optimized-away elements folded into
	// this one, for error reporting.
	DebugIDs []string

	// Span of the element in the source, for diagnostics.
	diag.Ranging
}

// NewElement creates an element with initialized maps and unset item indices.
func NewElement(base Type, enclosing *Component) *Element {
	return &Element{
		Base:                     base,
		Bindings:                 make(map[string]*BindingExpression),
		PropertyDecls:            make(map[string]*PropertyDecl),
		Enclosing:                enclosing,
		ItemIndex:                -1,
		ItemIndexOfFirstChildren: -1,
	}
}

// LookupProperty returns the type of the named property on this element,
// checking declared properties, then the base type (builtin or component),
// then synthetic properties. Returns nil if the property is unknown.
func (e *Element) LookupProperty(name string) *registry.ValueType {
	if d, ok := e.PropertyDecls[name]; ok {
		return d.Type
	}
	switch e.Base.Kind {
	case BuiltinType:
		return e.Base.Builtin.LookupProp(name)
	case NativeType:
		if t, _ := e.Base.Native.Lookup(name); t != nil {
			return t
		}
		return registry.SyntheticProp(name)
	case ComponentType:
		root := e.Base.Component.Root
		if d, ok := root.PropertyDecls[name]; ok {
			if d.Access == PrivateProp {
				return nil
			}
			return d.Type
		}
		return registry.SyntheticProp(name)
	}
	return nil
}

// HasOwnBindings reports whether the element binds any property of its own
// (bindings other than folded-in debug metadata).
func (e *Element) HasOwnBindings() bool {
	return len(e.Bindings) > 0
}

// SetBinding inserts a binding, returning false if the property already has
// one.
func (e *Element) SetBinding(name string, b *BindingExpression) bool {
	if _, ok := e.Bindings[name]; ok {
		return false
	}
	e.Bindings[name] = b
	return true
}

// BindingNames returns the binding keys in deterministic (sorted) order.
func (e *Element) BindingNames() []string {
	return sortedKeys(e.Bindings)
}

// DeclareProperty adds a property declaration, returning false on duplicates.
func (e *Element) DeclareProperty(d *PropertyDecl) bool {
	if _, ok := e.PropertyDecls[d.Name]; ok {
		return false
	}
	e.PropertyDecls[d.Name] = d
	e.DeclOrder = append(e.DeclOrder, d.Name)
	return true
}

// RepeatInfo describes a repeater slot: an element instantiated zero or more
// times from a model.
type RepeatInfo struct {
	// Model computes the model. For conditionals it is the condition.
	Model *BindingExpression
	// IsConditional is true for if constructs: the model is a boolean.
	IsConditional bool
	// ModelVar and IndexVar are the source-level names bound inside the
	// repeated component, already resolved into the expressions; retained for
	// diagnostics only.
	ModelVar string
	IndexVar string
	// IsComponentPlaceholder marks the designated slot of a lowered
	// component container.
	IsComponentPlaceholder bool
}

// State is one entry of a states block.
type State struct {
	Name string
	// Condition is nil for the default state.
	Condition *BindingExpression
	// Sets are the property overrides active in this state.
	Sets []StateSet
	diag.Ranging
}

// StateSet is a single property override in a state.
type StateSet struct {
	Target *NamedReference
	Value  *BindingExpression
}

// Transition is one entry of a transitions block, kept as metadata.
type Transition struct {
	Out       bool
	StateName string
	// Animations maps property names to animation metadata.
	Animations map[string]*Animation
	diag.Ranging
}

// Animation is the animation metadata attached to a binding.
type Animation struct {
	// Duration of the animation. Must be a constant duration expression.
	Duration Expression
}

// NamedReference is a stable (element, property-name) handle into the
// property graph. It holds a plain pointer to the element: it does not own it
// and does not keep it in the visual tree. Passes rewrite references in place
// through VisitNamedReferences, so handles held elsewhere stay valid.
type NamedReference struct {
	Element *Element
	Name    string
}

func (nr *NamedReference) String() string {
	id := nr.Element.ID
	if id == "" {
		id = "<anonymous " + nr.Element.Base.String() + ">"
	}
	return id + "." + nr.Name
}

// Type returns the value type of the referenced property, or nil.
func (nr *NamedReference) Type() *registry.ValueType {
	return nr.Element.LookupProperty(nr.Name)
}

// BindingExpression is an expression tree plus optional animation metadata,
// attached to a property of an element.
type BindingExpression struct {
	Expr Expression
	// Animation, if set, animates value changes of the bound property.
	Animation *Animation
	// Span of the binding in the source, for diagnostics.
	diag.Ranging
}

// Visit functions.

// VisitElements calls f on e and all elements below it, pre-order. It does
// not descend into sub-components of repeater slots; use VisitAllElements on
// the component for that.
func VisitElements(e *Element, f func(*Element)) {
	f(e)
	for _, ch := range e.Children {
		VisitElements(ch, f)
	}
}

// VisitAllElements calls f on every element of the component, including
// elements inside lowered sub-components and optimized-away elements.
func VisitAllElements(c *Component, f func(*Element)) {
	VisitElements(c.Root, f)
	for _, e := range c.OptimizedElements {
		VisitElements(e, f)
	}
	for _, sub := range c.SubComponents {
		VisitAllElements(sub, f)
	}
}

// VisitComponentBindings calls f on every binding expression of the
// component, including repeat models and state metadata.
func VisitComponentBindings(c *Component, f func(*Element, string, *BindingExpression)) {
	VisitAllElements(c, func(e *Element) {
		for _, name := range e.BindingNames() {
			f(e, name, e.Bindings[name])
		}
		if e.Repeated != nil && e.Repeated.Model != nil {
			f(e, "$model", e.Repeated.Model)
		}
		for i := range e.States {
			if e.States[i].Condition != nil {
				f(e, "$when", e.States[i].Condition)
			}
			for _, set := range e.States[i].Sets {
				f(e, "$state-set", set.Value)
			}
		}
	})
}

// VisitNamedReferences calls f on every named reference of the component,
// allowing in-place rewriting.
func VisitNamedReferences(c *Component, f func(*NamedReference)) {
	VisitComponentBindings(c, func(e *Element, name string, b *BindingExpression) {
		b.Expr = VisitExpressions(b.Expr, func(expr Expression) Expression {
			visitExprRefs(expr, f)
			return expr
		})
	})
	VisitAllElements(c, func(e *Element) {
		for i := range e.States {
			for j := range e.States[i].Sets {
				f(e.States[i].Sets[j].Target)
			}
		}
	})
}
