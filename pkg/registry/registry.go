package registry

import "sort"

// NativeClass is a concrete, backend-rendered item class with a fixed property
// set. Native classes form a single-inheritance chain via Parent; the
// properties of a class are its own plus those of all ancestors.
type NativeClass struct {
	Name   string
	Parent *NativeClass
	// Own properties of this class, not including inherited ones. Ordered as
	// declared in the defs table.
	OwnProps []NativeProp
}

// NativeProp is a property (or callback) declared directly on a native class.
type NativeProp struct {
	Name string
	Type *ValueType
}

// Lookup returns the type of the named property, searching the inheritance
// chain, and the class that declares it.
func (nc *NativeClass) Lookup(name string) (*ValueType, *NativeClass) {
	for c := nc; c != nil; c = c.Parent {
		for _, p := range c.OwnProps {
			if p.Name == name {
				return p.Type, c
			}
		}
	}
	return nil, nil
}

// Depth returns the number of ancestors of the class. The root of a chain has
// depth 0.
func (nc *NativeClass) Depth() int {
	d := 0
	for c := nc.Parent; c != nil; c = c.Parent {
		d++
	}
	return d
}

// BuiltinElement is an element type usable in source documents. It maps to the
// most derived native class that could be needed; the native class resolution
// pass shrinks each use to the most basic class that still covers the
// properties actually used.
type BuiltinElement struct {
	Name   string
	Native *NativeClass
	// Empty elements set no content of their own and may be optimized away
	// when unused.
	Empty bool
	// IsViewport marks elements whose children positions depend on the
	// element itself, so it must never be optimized away.
	IsViewport bool
	// IsPopup marks transient separately-rooted elements; their parents are
	// popup anchors and must never be optimized away.
	IsPopup bool
	// NonVisual elements do not become items in the item tree (timers).
	NonVisual bool
}

// LookupProp returns the type of a property of the element, consulting the
// native class chain and then the synthetic property set.
func (be *BuiltinElement) LookupProp(name string) *ValueType {
	if t, _ := be.Native.Lookup(name); t != nil {
		return t
	}
	if t, ok := syntheticProps[name]; ok {
		return t
	}
	return nil
}

// BuiltinFunction is a pure function callable in binding expressions.
type BuiltinFunction struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for unbounded
}

// Registry is the read-only catalog of builtin types. It is constructed once
// with New and may be shared across concurrent compilations.
type Registry struct {
	elements  map[string]*BuiltinElement
	natives   map[string]*NativeClass
	enums     map[string]*EnumType
	structs   map[string]*StructType
	functions map[string]*BuiltinFunction
}

// New constructs a Registry from the builtin defs tables.
func New() *Registry {
	r := &Registry{
		elements:  make(map[string]*BuiltinElement),
		natives:   make(map[string]*NativeClass),
		enums:     make(map[string]*EnumType),
		structs:   make(map[string]*StructType),
		functions: make(map[string]*BuiltinFunction),
	}
	for _, def := range builtinEnumDefs {
		r.enums[def.Name] = def
	}
	for _, def := range builtinStructDefs {
		def := def
		r.structs[def.Name] = &def
	}
	for _, def := range nativeClassDefs {
		nc := &NativeClass{Name: def.name, OwnProps: def.props}
		if def.parent != "" {
			nc.Parent = r.natives[def.parent]
		}
		r.natives[def.name] = nc
	}
	for _, def := range builtinElementDefs {
		r.elements[def.name] = &BuiltinElement{
			Name:       def.name,
			Native:     r.natives[def.native],
			Empty:      def.empty,
			IsViewport: def.viewport,
			IsPopup:    def.popup,
			NonVisual:  def.nonVisual,
		}
	}
	for _, def := range builtinFunctionDefs {
		def := def
		r.functions[def.Name] = &def
	}
	return r
}

// ElementNames returns the names of all builtin element types, sorted.
func (r *Registry) ElementNames() []string {
	names := make([]string, 0, len(r.elements))
	for name := range r.elements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Element returns the builtin element type with the given name.
func (r *Registry) Element(name string) (*BuiltinElement, bool) {
	be, ok := r.elements[name]
	return be, ok
}

// Native returns the native class with the given name.
func (r *Registry) Native(name string) (*NativeClass, bool) {
	nc, ok := r.natives[name]
	return nc, ok
}

// Enum returns the builtin enum with the given name.
func (r *Registry) Enum(name string) (*EnumType, bool) {
	e, ok := r.enums[name]
	return e, ok
}

// Struct returns the builtin struct with the given name.
func (r *Registry) Struct(name string) (*StructType, bool) {
	s, ok := r.structs[name]
	return s, ok
}

// Function returns the builtin function with the given name.
func (r *Registry) Function(name string) (*BuiltinFunction, bool) {
	f, ok := r.functions[name]
	return f, ok
}

// SyntheticProp returns the type of a synthetic property (one lowered into
// wrapper elements rather than stored on native items), or nil.
func SyntheticProp(name string) *ValueType {
	return syntheticProps[name]
}
