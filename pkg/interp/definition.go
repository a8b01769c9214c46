package interp

import (
	"github.com/vellum-ui/vellum/pkg/llr"
	"github.com/vellum-ui/vellum/pkg/property"
)

// ComponentDefinition is a compiled, instantiable component.
type ComponentDefinition struct {
	name     string
	unit     *llr.CompilationUnit
	comp     *llr.PublicComponent
	platform Platform
}

// Name returns the exported component name.
func (d *ComponentDefinition) Name() string { return d.name }

// PropertyNames returns the public property and callback names in declaration
// order.
func (d *ComponentDefinition) PropertyNames() []string {
	names := make([]string, len(d.comp.PublicProperties))
	for i, pp := range d.comp.PublicProperties {
		names[i] = pp.Name
	}
	return names
}

// Create instantiates the component: a window from the platform, one global
// instance per global singleton, and the root item tree with all bindings
// installed (none evaluated yet). Platform failures are returned as-is.
func (d *ComponentDefinition) Create() (*ComponentInstance, error) {
	platform := d.platform
	if platform == nil {
		platform = headlessPlatform{}
	}
	win, err := platform.NewWindow(d.name)
	if err != nil {
		return nil, err
	}

	ci := &ComponentInstance{
		def: d,
		tr:  property.NewTracker(),
		win: win,
	}
	// All global cells must exist before any binding runs; bindings are
	// installed in a second pass so globals may read each other.
	for _, g := range d.unit.Globals {
		ci.globals = append(ci.globals, newGlobalInstance(ci, g))
	}
	for _, gi := range ci.globals {
		gi.installBindings()
	}
	ci.root = newInstance(ci, d.comp.Root, nil, VoidValue(), 0)
	return ci, nil
}
