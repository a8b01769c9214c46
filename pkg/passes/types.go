package passes

import (
	"github.com/vellum-ui/vellum/pkg/objtree"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// collectStructsAndEnums discovers every struct and enum type a component
// transitively uses, through property declarations and expression literals,
// and records them on the component. The struct list is topologically sorted:
// a struct appears after every struct it references as a field, so a code
// generator can emit declarations in list order. Builtin namespaced types
// need no forward declaration and are excluded.
func collectStructsAndEnums(st *state, c *objtree.Component) {
	var structs []*registry.StructType
	var enums []*registry.EnumType
	seenStruct := make(map[*registry.StructType]bool)
	seenEnum := make(map[*registry.EnumType]bool)

	var addType func(t *registry.ValueType)
	addStruct := func(s *registry.StructType) {
		if s == nil || s.Builtin || s.Name == "" || seenStruct[s] {
			return
		}
		seenStruct[s] = true
		for _, f := range s.Fields {
			addType(f.Type)
		}
		structs = append(structs, s)
	}
	addEnum := func(e *registry.EnumType) {
		if e == nil || seenEnum[e] {
			return
		}
		seenEnum[e] = true
		enums = append(enums, e)
	}
	addType = func(t *registry.ValueType) {
		switch t.Kind {
		case registry.Model:
			addType(t.Elem)
		case registry.Struct:
			addStruct(t.StructDef)
		case registry.Enum:
			addEnum(t.EnumDef)
		case registry.Callback:
			for _, p := range t.Params {
				addType(p)
			}
			if t.Ret != nil {
				addType(t.Ret)
			}
		}
	}

	objtree.VisitAllElements(c, func(e *objtree.Element) {
		for _, name := range e.DeclOrder {
			addType(e.PropertyDecls[name].Type)
		}
	})
	objtree.VisitComponentBindings(c, func(_ *objtree.Element, _ string, be *objtree.BindingExpression) {
		be.Expr = objtree.VisitExpressions(be.Expr, func(x objtree.Expression) objtree.Expression {
			switch x := x.(type) {
			case objtree.EnumValue:
				addEnum(x.Enum)
			case objtree.StructLiteral:
				addStruct(x.Type)
			}
			return x
		})
	})

	c.UsedStructs = topoSortStructs(st, c, structs)
	c.UsedEnums = enums
}

func topoSortStructs(st *state, c *objtree.Component, structs []*registry.StructType) []*registry.StructType {
	inSet := make(map[*registry.StructType]bool, len(structs))
	for _, s := range structs {
		inSet[s] = true
	}
	emitted := make(map[*registry.StructType]bool, len(structs))
	var sorted []*registry.StructType
	for len(sorted) < len(structs) {
		progress := false
		for _, s := range structs {
			if emitted[s] {
				continue
			}
			ready := true
			for _, f := range s.Fields {
				dep := namedStruct(f.Type)
				if dep != nil && dep != s && inSet[dep] && !emitted[dep] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			emitted[s] = true
			sorted = append(sorted, s)
			progress = true
		}
		if !progress {
			st.errorf(c.Root, "struct types used by %s form a reference cycle", c.Name)
			for _, s := range structs {
				if !emitted[s] {
					sorted = append(sorted, s)
				}
			}
			break
		}
	}
	return sorted
}

func namedStruct(t *registry.ValueType) *registry.StructType {
	switch t.Kind {
	case registry.Model:
		return namedStruct(t.Elem)
	case registry.Struct:
		if t.StructDef.Name != "" && !t.StructDef.Builtin {
			return t.StructDef
		}
	}
	return nil
}
