package registry

import (
	"testing"

	"github.com/vellum-ui/vellum/pkg/tt"
)

var reg = New()

func TestNativeClassLookup(t *testing.T) {
	border, ok := reg.Native("BorderRectangle")
	if !ok {
		t.Fatalf("no BorderRectangle class")
	}

	typ, cls := border.Lookup("border-width")
	if typ != LengthType || cls != border {
		t.Errorf("border-width = %v on %v", typ, cls)
	}
	// Inherited properties report the declaring ancestor.
	typ, cls = border.Lookup("width")
	if typ != LengthType || cls == nil || cls.Name != "Rectangle" {
		t.Errorf("width = %v on %v", typ, cls)
	}
	if typ, cls := border.Lookup("no-such"); typ != nil || cls != nil {
		t.Errorf("lookup of a missing property = %v, %v", typ, cls)
	}
}

func TestNativeClassDepth(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"Empty", 0},
		{"Rectangle", 1},
		{"BorderRectangle", 2},
	}
	for _, test := range tests {
		nc, ok := reg.Native(test.name)
		if !ok {
			t.Fatalf("no class %s", test.name)
		}
		if got := nc.Depth(); got != test.want {
			t.Errorf("Depth(%s) = %d, want %d", test.name, got, test.want)
		}
	}
}

func TestElementLookupProp(t *testing.T) {
	rect, ok := reg.Element("Rectangle")
	if !ok {
		t.Fatalf("no Rectangle element")
	}
	if typ := rect.LookupProp("background"); typ != BrushType {
		t.Errorf("background = %v", typ)
	}
	// Synthetic properties resolve on every element.
	if typ := rect.LookupProp("opacity"); typ != FloatType {
		t.Errorf("opacity = %v", typ)
	}
	if typ := rect.LookupProp("no-such"); typ != nil {
		t.Errorf("missing property = %v", typ)
	}
}

func TestElementNames(t *testing.T) {
	names := reg.ElementNames()
	if len(names) == 0 {
		t.Fatalf("no element names")
	}
	seen := false
	for i, name := range names {
		if i > 0 && names[i-1] >= name {
			t.Errorf("names not sorted: %q before %q", names[i-1], name)
		}
		if name == "Rectangle" {
			seen = true
		}
	}
	if !seen {
		t.Errorf("Rectangle missing from %v", names)
	}
}

func TestValueTypeEqual(t *testing.T) {
	point := StructOf(&StructType{Fields: []StructField{
		{"x", LengthType}, {"y", LengthType},
	}})
	samePoint := StructOf(&StructType{Fields: []StructField{
		{"x", LengthType}, {"y", LengthType},
	}})
	otherPoint := StructOf(&StructType{Fields: []StructField{
		{"x", LengthType}, {"z", LengthType},
	}})

	tt.Test(t, tt.Fn("Equal", (*ValueType).Equal), tt.Table{
		tt.Args(IntType, IntType).Rets(true),
		tt.Args(IntType, FloatType).Rets(false),
		tt.Args(LengthType, DurationType).Rets(false),
		tt.Args(ModelOf(IntType), ModelOf(IntType)).Rets(true),
		tt.Args(ModelOf(IntType), ModelOf(StringType)).Rets(false),
		tt.Args(point, samePoint).Rets(true),
		tt.Args(point, otherPoint).Rets(false),
		tt.Args(CallbackOf(nil, nil), CallbackOf(nil, nil)).Rets(true),
		tt.Args(CallbackOf([]*ValueType{IntType}, nil), CallbackOf(nil, nil)).Rets(false),
	})
}

func TestIsNumeric(t *testing.T) {
	tt.Test(t, tt.Fn("IsNumeric", (*ValueType).IsNumeric), tt.Table{
		tt.Args(IntType).Rets(true),
		tt.Args(FloatType).Rets(true),
		tt.Args(LengthType).Rets(true),
		tt.Args(DurationType).Rets(true),
		tt.Args(PercentType).Rets(true),
		tt.Args(AngleType).Rets(true),
		tt.Args(StringType).Rets(false),
		tt.Args(BoolType).Rets(false),
		tt.Args(BrushType).Rets(false),
	})
}

func TestEnumHasCase(t *testing.T) {
	e, ok := reg.Enum("TextHorizontalAlignment")
	if !ok {
		t.Fatalf("no TextHorizontalAlignment enum")
	}
	if !e.HasCase("center") {
		t.Errorf("center missing")
	}
	if e.HasCase("middle") {
		t.Errorf("middle accepted")
	}
}
