// Package registry holds the catalog of builtin element types, native item
// classes, builtin enums and builtin functions. A Registry is immutable after
// construction and may be shared by any number of concurrent compilations.
//
// The whole catalog is driven by plain data tables in defs.go; every consumer
// (the compiler passes, the lowering stage, the interpreter) reads the same
// tables by ordinary iteration.
package registry

import (
	"fmt"
	"strings"
)

// ValueKind enumerates the kinds of property value types.
type ValueKind int

// Possible values for ValueKind.
const (
	Invalid ValueKind = iota
	Void
	Int
	Float
	String
	Bool
	Length   // logical pixels
	Duration // milliseconds
	Percent
	Angle // degrees
	Brush
	Image
	Model  // array of values
	Struct // record with ordered named fields
	Enum
	Callback
)

// ValueType describes the type of a property or expression.
type ValueType struct {
	Kind ValueKind
	// Elem is the element type for Model.
	Elem *ValueType
	// StructDef is set for Struct.
	StructDef *StructType
	// EnumDef is set for Enum.
	EnumDef *EnumType
	// Params and Ret are set for Callback.
	Params []*ValueType
	Ret    *ValueType
}

// Singleton types for kinds that carry no further information.
var (
	InvalidType  = &ValueType{Kind: Invalid}
	VoidType     = &ValueType{Kind: Void}
	IntType      = &ValueType{Kind: Int}
	FloatType    = &ValueType{Kind: Float}
	StringType   = &ValueType{Kind: String}
	BoolType     = &ValueType{Kind: Bool}
	LengthType   = &ValueType{Kind: Length}
	DurationType = &ValueType{Kind: Duration}
	PercentType  = &ValueType{Kind: Percent}
	AngleType    = &ValueType{Kind: Angle}
	BrushType    = &ValueType{Kind: Brush}
	ImageType    = &ValueType{Kind: Image}
)

// ModelOf returns the model (array) type with the given element type.
func ModelOf(elem *ValueType) *ValueType {
	return &ValueType{Kind: Model, Elem: elem}
}

// StructOf returns the struct type for the given definition.
func StructOf(def *StructType) *ValueType {
	return &ValueType{Kind: Struct, StructDef: def}
}

// EnumOf returns the enum type for the given definition.
func EnumOf(def *EnumType) *ValueType {
	return &ValueType{Kind: Enum, EnumDef: def}
}

// CallbackOf returns a callback type.
func CallbackOf(params []*ValueType, ret *ValueType) *ValueType {
	return &ValueType{Kind: Callback, Params: params, Ret: ret}
}

// IsNumeric reports whether values of the type are represented as numbers.
func (t *ValueType) IsNumeric() bool {
	switch t.Kind {
	case Int, Float, Length, Duration, Percent, Angle:
		return true
	}
	return false
}

// Equal reports whether two value types are interchangeable. Numeric kinds are
// all distinct; struct types compare by field names and field types, in order.
func (t *ValueType) Equal(u *ValueType) bool {
	if t == u {
		return true
	}
	if t == nil || u == nil || t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case Model:
		return t.Elem.Equal(u.Elem)
	case Struct:
		a, b := t.StructDef, u.StructDef
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name ||
				!a.Fields[i].Type.Equal(b.Fields[i].Type) {
				return false
			}
		}
		return true
	case Enum:
		return t.EnumDef.Name == u.EnumDef.Name
	case Callback:
		if len(t.Params) != len(u.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(u.Params[i]) {
				return false
			}
		}
		if (t.Ret == nil) != (u.Ret == nil) {
			return false
		}
		return t.Ret == nil || t.Ret.Equal(u.Ret)
	}
	return true
}

func (t *ValueType) String() string {
	switch t.Kind {
	case Invalid:
		return "<error>"
	case Void:
		return "void"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Length:
		return "length"
	case Duration:
		return "duration"
	case Percent:
		return "percent"
	case Angle:
		return "angle"
	case Brush:
		return "brush"
	case Image:
		return "image"
	case Model:
		return "[" + t.Elem.String() + "]"
	case Struct:
		if t.StructDef.Name != "" {
			return t.StructDef.Name
		}
		var fields []string
		for _, f := range t.StructDef.Fields {
			fields = append(fields, f.Name+": "+f.Type.String())
		}
		return "{" + strings.Join(fields, ", ") + "}"
	case Enum:
		return t.EnumDef.Name
	case Callback:
		return "callback"
	}
	return fmt.Sprintf("ValueKind(%d)", int(t.Kind))
}

// StructField is a single field of a struct type.
type StructField struct {
	Name string
	Type *ValueType
}

// StructType is a named (or anonymous, Name == "") record type with ordered
// fields.
type StructType struct {
	Name   string
	Fields []StructField
	// Builtin struct types carry a namespaced name containing "::"; they are
	// excluded from topological sorting since they need no forward
	// declaration.
	Builtin bool
}

// FieldType returns the type of the named field, or nil.
func (s *StructType) FieldType(name string) *ValueType {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return nil
}

// EnumType is a named enumeration.
type EnumType struct {
	Name  string
	Cases []string
}

// HasCase reports whether the enum declares the given case.
func (e *EnumType) HasCase(name string) bool {
	for _, c := range e.Cases {
		if c == name {
			return true
		}
	}
	return false
}
