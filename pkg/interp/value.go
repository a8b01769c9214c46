package interp

import (
	"fmt"
	"strings"

	"github.com/vellum-ui/vellum/pkg/registry"
)

// Kind enumerates the variants of Value.
type Kind uint8

const (
	Void Kind = iota
	Number
	String
	Bool
	Model
	Struct
	Brush
	Image
)

var kindNames = [...]string{"void", "number", "string", "bool", "model", "struct", "brush", "image"}

func (k Kind) String() string { return kindNames[k] }

// Value is the wire format between a host and a running component: a tagged
// union. Numbers are float64 regardless of the declared property type; enum
// values surface as strings holding the case name.
type Value struct {
	kind  Kind
	num   float64
	str   string
	b     bool
	brush uint32
	model *ModelValue
	st    *StructValue
}

// VoidValue returns the void value.
func VoidValue() Value { return Value{} }

// NumberValue wraps a number.
func NumberValue(f float64) Value { return Value{kind: Number, num: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, str: s} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// BrushValue wraps a solid color in 0xAARRGGBB form.
func BrushValue(argb uint32) Value { return Value{kind: Brush, brush: argb} }

// ImageValue wraps an image by its source path.
func ImageValue(path string) Value { return Value{kind: Image, str: path} }

// NewModel wraps rows into a model value.
func NewModel(rows ...Value) Value {
	return Value{kind: Model, model: &ModelValue{rows: rows}}
}

// NewStruct returns an empty struct value; fields keep insertion order.
func NewStruct() Value {
	return Value{kind: Struct, st: &StructValue{fields: make(map[string]Value)}}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// AsNumber returns the numeric payload. The bool reports whether the value is
// a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == Number }

// AsString returns the string payload of a String or Image value.
func (v Value) AsString() (string, bool) { return v.str, v.kind == String || v.kind == Image }

// AsBool returns the bool payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsBrush returns the 0xAARRGGBB payload.
func (v Value) AsBrush() (uint32, bool) { return v.brush, v.kind == Brush }

// AsModel returns the model payload.
func (v Value) AsModel() (*ModelValue, bool) { return v.model, v.kind == Model }

// AsStruct returns the struct payload.
func (v Value) AsStruct() (*StructValue, bool) { return v.st, v.kind == Struct }

func (v Value) String() string {
	switch v.kind {
	case Void:
		return "void"
	case Number:
		return fmt.Sprintf("%v", v.num)
	case String:
		return fmt.Sprintf("%q", v.str)
	case Bool:
		return fmt.Sprintf("%v", v.b)
	case Brush:
		return fmt.Sprintf("#%08x", v.brush)
	case Image:
		return fmt.Sprintf("image(%q)", v.str)
	case Model:
		return fmt.Sprintf("model(%d rows)", v.model.RowCount())
	case Struct:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, name := range v.st.names {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %s", name, v.st.fields[name])
		}
		sb.WriteByte('}')
		return sb.String()
	}
	return "invalid"
}

// ModelValue is a sequence of rows.
type ModelValue struct {
	rows []Value
}

// RowCount returns the number of rows.
func (m *ModelValue) RowCount() int { return len(m.rows) }

// Row returns the i-th row, or void when out of range.
func (m *ModelValue) Row(i int) Value {
	if i < 0 || i >= len(m.rows) {
		return VoidValue()
	}
	return m.rows[i]
}

// StructValue is an ordered name→Value mapping. Field order is insertion
// order.
type StructValue struct {
	names  []string
	fields map[string]Value
}

// Set stores a field, keeping the position of an already present name.
func (s *StructValue) Set(name string, v Value) {
	if _, ok := s.fields[name]; !ok {
		s.names = append(s.names, name)
	}
	s.fields[name] = v
}

// Get returns a field value.
func (s *StructValue) Get(name string) (Value, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// Fields returns the field names in insertion order.
func (s *StructValue) Fields() []string { return s.names }

// matchesType reports whether a host-supplied value is acceptable for a
// declared property type. Struct values must carry exactly the declared field
// set: extra or missing fields are a mismatch.
func matchesType(v Value, t *registry.ValueType) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case registry.Int, registry.Float, registry.Length, registry.Duration,
		registry.Percent, registry.Angle:
		return v.kind == Number
	case registry.String:
		return v.kind == String
	case registry.Bool:
		return v.kind == Bool
	case registry.Brush:
		return v.kind == Brush
	case registry.Image:
		return v.kind == Image
	case registry.Model:
		return v.kind == Model
	case registry.Enum:
		return v.kind == String && t.EnumDef.HasCase(v.str)
	case registry.Struct:
		if v.kind != Struct {
			return false
		}
		def := t.StructDef
		if len(v.st.names) != len(def.Fields) {
			return false
		}
		for _, f := range def.Fields {
			fv, ok := v.st.Get(f.Name)
			if !ok || !matchesType(fv, f.Type) {
				return false
			}
		}
		return true
	}
	return false
}

// zeroValue returns the default value a declared property holds before any
// binding or write.
func zeroValue(t *registry.ValueType) Value {
	if t == nil {
		return VoidValue()
	}
	switch t.Kind {
	case registry.Int, registry.Float, registry.Length, registry.Duration,
		registry.Percent, registry.Angle:
		return NumberValue(0)
	case registry.String:
		return StringValue("")
	case registry.Bool:
		return BoolValue(false)
	case registry.Brush:
		return BrushValue(0)
	case registry.Image:
		return ImageValue("")
	case registry.Model:
		return NewModel()
	case registry.Enum:
		if len(t.EnumDef.Cases) > 0 {
			return StringValue(t.EnumDef.Cases[0])
		}
		return StringValue("")
	case registry.Struct:
		s := NewStruct()
		for _, f := range t.StructDef.Fields {
			s.st.Set(f.Name, zeroValue(f.Type))
		}
		return s
	}
	return VoidValue()
}

// valueEqual is the runtime == on values. Models compare by identity, structs
// by field values.
func valueEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Void:
		return true
	case Number:
		return a.num == b.num
	case String, Image:
		return a.str == b.str
	case Bool:
		return a.b == b.b
	case Brush:
		return a.brush == b.brush
	case Model:
		return a.model == b.model
	case Struct:
		if len(a.st.names) != len(b.st.names) {
			return false
		}
		for _, name := range a.st.names {
			bv, ok := b.st.Get(name)
			if !ok || !valueEqual(a.st.fields[name], bv) {
				return false
			}
		}
		return true
	}
	return false
}
