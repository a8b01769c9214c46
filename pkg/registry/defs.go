package registry

// The builtin catalog. Everything the compiler knows about builtin types lives
// in the tables of this file; there is no other source of truth.

// Builtin enums available by name in source documents.
var (
	textHorizontalAlignmentEnum = &EnumType{Name: "TextHorizontalAlignment", Cases: []string{"left", "center", "right"}}
	imageFitEnum                = &EnumType{Name: "ImageFit", Cases: []string{"fill", "contain", "cover"}}
)

var builtinEnumDefs = []*EnumType{textHorizontalAlignmentEnum, imageFitEnum}

// Synthetic properties are accepted on every element and lowered into wrapper
// elements by dedicated passes. z is consumed by the z-order pass.
var syntheticProps = map[string]*ValueType{
	"opacity": FloatType,
	"visible": BoolType,
	"z":       FloatType,
}

type nativeClassDef struct {
	name   string
	parent string
	props  []NativeProp
}

// Native classes, base first. The order matters: parents must precede
// children so New can link the chain in one sweep.
var nativeClassDefs = []nativeClassDef{
	{name: "Empty", props: nil},
	{name: "Rectangle", parent: "Empty", props: []NativeProp{
		{"x", LengthType},
		{"y", LengthType},
		{"width", LengthType},
		{"height", LengthType},
		{"background", BrushType},
	}},
	{name: "BorderRectangle", parent: "Rectangle", props: []NativeProp{
		{"border-width", LengthType},
		{"border-color", BrushType},
		{"border-radius", LengthType},
	}},
	{name: "ClipItem", parent: "Rectangle", props: []NativeProp{
		{"clip", BoolType},
	}},
	{name: "OpacityItem", parent: "Empty", props: []NativeProp{
		{"opacity", FloatType},
	}},
	{name: "RotateItem", parent: "Empty", props: []NativeProp{
		{"rotation-angle", AngleType},
		{"rotation-origin-x", LengthType},
		{"rotation-origin-y", LengthType},
	}},
	{name: "Text", parent: "Empty", props: []NativeProp{
		{"x", LengthType},
		{"y", LengthType},
		{"width", LengthType},
		{"height", LengthType},
		{"text", StringType},
		{"color", BrushType},
		{"font-size", LengthType},
		{"horizontal-alignment", EnumOf(textHorizontalAlignmentEnum)},
	}},
	{name: "ImageItem", parent: "Empty", props: []NativeProp{
		{"x", LengthType},
		{"y", LengthType},
		{"width", LengthType},
		{"height", LengthType},
		{"source", ImageType},
		{"image-fit", EnumOf(imageFitEnum)},
	}},
	{name: "TouchArea", parent: "Empty", props: []NativeProp{
		{"x", LengthType},
		{"y", LengthType},
		{"width", LengthType},
		{"height", LengthType},
		{"enabled", BoolType},
		{"pressed", BoolType},
		{"mouse-x", LengthType},
		{"mouse-y", LengthType},
		{"clicked", CallbackOf(nil, nil)},
	}},
	{name: "FocusScope", parent: "Empty", props: []NativeProp{
		{"x", LengthType},
		{"y", LengthType},
		{"width", LengthType},
		{"height", LengthType},
		{"has-focus", BoolType},
		{"enabled", BoolType},
		{"key-pressed", CallbackOf([]*ValueType{StringType}, BoolType)},
	}},
	{name: "Flickable", parent: "Rectangle", props: []NativeProp{
		{"viewport-x", LengthType},
		{"viewport-y", LengthType},
		{"viewport-width", LengthType},
		{"viewport-height", LengthType},
		{"interactive", BoolType},
	}},
	{name: "WindowItem", parent: "Rectangle", props: []NativeProp{
		{"title", StringType},
		{"icon", ImageType},
		{"default-font-size", LengthType},
	}},
	{name: "TimerItem", parent: "Empty", props: []NativeProp{
		{"interval", DurationType},
		{"running", BoolType},
		{"triggered", CallbackOf(nil, nil)},
	}},
	{name: "PopupWindowItem", parent: "Rectangle", props: []NativeProp{
		{"close-on-click", BoolType},
	}},
	{name: "ComponentContainerItem", parent: "Empty", props: []NativeProp{
		{"x", LengthType},
		{"y", LengthType},
		{"width", LengthType},
		{"height", LengthType},
	}},
}

type builtinElementDef struct {
	name      string
	native    string
	empty     bool
	viewport  bool
	popup     bool
	nonVisual bool
}

// Builtin element types. Each maps to the most derived native class its full
// property surface needs; native class resolution shrinks actual uses.
var builtinElementDefs = []builtinElementDef{
	{name: "Rectangle", native: "BorderRectangle", empty: true},
	{name: "Empty", native: "Empty", empty: true},
	{name: "Opacity", native: "OpacityItem"},
	{name: "Clip", native: "ClipItem"},
	{name: "Rotate", native: "RotateItem"},
	{name: "Text", native: "Text"},
	{name: "Image", native: "ImageItem"},
	{name: "TouchArea", native: "TouchArea"},
	{name: "FocusScope", native: "FocusScope"},
	{name: "Flickable", native: "Flickable", viewport: true},
	{name: "Window", native: "WindowItem"},
	{name: "Timer", native: "TimerItem", nonVisual: true},
	{name: "PopupWindow", native: "PopupWindowItem", popup: true},
	{name: "ComponentContainer", native: "ComponentContainerItem"},
}

// Builtin struct types. Their names are namespaced with "::" so the struct
// collection pass can tell them from user structs needing declaration.
var builtinStructDefs = []StructType{
	{Name: "vellum::Point", Builtin: true, Fields: []StructField{
		{"x", LengthType}, {"y", LengthType},
	}},
	{Name: "vellum::KeyEvent", Builtin: true, Fields: []StructField{
		{"text", StringType}, {"modifiers", IntType},
	}},
}

// Builtin functions callable in binding expressions. start-timer and
// stop-timer are rewritten away by the timer lowering pass and never reach
// the interpreter.
var builtinFunctionDefs = []BuiltinFunction{
	{Name: "min", MinArgs: 2, MaxArgs: -1},
	{Name: "max", MinArgs: 2, MaxArgs: -1},
	{Name: "abs", MinArgs: 1, MaxArgs: 1},
	{Name: "round", MinArgs: 1, MaxArgs: 1},
	{Name: "floor", MinArgs: 1, MaxArgs: 1},
	{Name: "ceil", MinArgs: 1, MaxArgs: 1},
	{Name: "clamp", MinArgs: 3, MaxArgs: 3},
	{Name: "start-timer", MinArgs: 1, MaxArgs: 1},
	{Name: "stop-timer", MinArgs: 1, MaxArgs: 1},
}
