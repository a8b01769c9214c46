package passes

import (
	"github.com/vellum-ui/vellum/pkg/objtree"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// checkPublicAPI decides which root properties of an exported component are
// part of its externally visible API. Properties whose types cannot cross the
// public Value surface are demoted to private with a warning; compilation
// continues.
func checkPublicAPI(st *state, c *objtree.Component) {
	if !c.Exported {
		return
	}
	root := c.Root
	for _, name := range root.DeclOrder {
		d := root.PropertyDecls[name]
		if d.Access == objtree.PrivateProp {
			continue
		}
		if !publicType(d.Type) {
			st.warnf(d, "property %q has a type that cannot be exposed in the public API; it is now private", name)
			d.Access = objtree.PrivateProp
			continue
		}
		d.ExposeInPublicAPI = true
	}
}

func publicType(t *registry.ValueType) bool {
	switch t.Kind {
	case registry.Invalid, registry.Void:
		return false
	case registry.Model:
		return publicType(t.Elem)
	case registry.Struct:
		for _, f := range t.StructDef.Fields {
			if !publicType(f.Type) {
				return false
			}
		}
		return true
	case registry.Callback:
		for _, p := range t.Params {
			if !publicType(p) {
				return false
			}
		}
		return t.Ret == nil || publicType(t.Ret)
	}
	return true
}
