package interp

import (
	"math"

	"github.com/vellum-ui/vellum/pkg/llr"
	"github.com/vellum-ui/vellum/pkg/property"
)

// evalScope is what an expression evaluates against: an instance, or a global
// (which has properties but no items and no model).
type evalScope interface {
	resolveProp(ref llr.PropertyReference) *property.Property
	resolveHandler(ref llr.PropertyReference) *handler
	modelData() *property.Property
	modelIndex() *property.Property
}

// env is one evaluation: a scope plus the arguments of the callback being
// run, if any.
type env struct {
	scope evalScope
	args  []Value
}

func asValue(x any) Value {
	if v, ok := x.(Value); ok {
		return v
	}
	return VoidValue()
}

func truthy(v Value) bool {
	b, _ := v.AsBool()
	return b
}

func (e *env) eval(x llr.Expression) Value {
	switch x := x.(type) {
	case nil, llr.Invalid:
		return VoidValue()
	case llr.NumberLiteral:
		return NumberValue(x.Value)
	case llr.StringLiteral:
		return StringValue(x.Value)
	case llr.BoolLiteral:
		return BoolValue(x.Value)
	case llr.ColorLiteral:
		return BrushValue(x.ARGB)
	case llr.EnumValue:
		return StringValue(x.Case)
	case llr.PropertyValue:
		return asValue(e.scope.resolveProp(x.Ref).Get())
	case llr.CallbackCall:
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			args[i] = e.eval(a)
		}
		return e.scope.resolveHandler(x.Ref).invoke(args)
	case llr.FunctionCall:
		return e.evalFunction(x)
	case llr.CallbackArg:
		if x.Index < 0 || x.Index >= len(e.args) {
			return VoidValue()
		}
		return e.args[x.Index]
	case llr.ModelData:
		if cell := e.scope.modelData(); cell != nil {
			return asValue(cell.Get())
		}
		return VoidValue()
	case llr.ModelIndex:
		if cell := e.scope.modelIndex(); cell != nil {
			return asValue(cell.Get())
		}
		return VoidValue()
	case llr.Unary:
		v := e.eval(x.Sub)
		switch x.Op {
		case "-":
			n, _ := v.AsNumber()
			return NumberValue(-n)
		case "!":
			return BoolValue(!truthy(v))
		}
		return VoidValue()
	case llr.Binary:
		return e.evalBinary(x)
	case llr.Conditional:
		if truthy(e.eval(x.Cond)) {
			return e.eval(x.Then)
		}
		return e.eval(x.Else)
	case llr.StructLiteral:
		s := NewStruct()
		for i, name := range x.Names {
			s.st.Set(name, e.eval(x.Values[i]))
		}
		return s
	case llr.ArrayLiteral:
		rows := make([]Value, len(x.Values))
		for i, v := range x.Values {
			rows[i] = e.eval(v)
		}
		return NewModel(rows...)
	case llr.FieldAccess:
		if s, ok := e.eval(x.Base).AsStruct(); ok {
			if v, ok := s.Get(x.Field); ok {
				return v
			}
		}
		return VoidValue()
	case llr.IndexAccess:
		if m, ok := e.eval(x.Base).AsModel(); ok {
			i, _ := e.eval(x.Index).AsNumber()
			return m.Row(int(i))
		}
		return VoidValue()
	case llr.CodeBlock:
		return e.evalBlock(x)
	}
	panic("interp: unhandled expression")
}

// evalBinary implements the operators. && and || short-circuit; == and !=
// compare by value; comparisons and arithmetic act on numbers, + also
// concatenates strings.
func (e *env) evalBinary(x llr.Binary) Value {
	switch x.Op {
	case "&&":
		return BoolValue(truthy(e.eval(x.Lhs)) && truthy(e.eval(x.Rhs)))
	case "||":
		return BoolValue(truthy(e.eval(x.Lhs)) || truthy(e.eval(x.Rhs)))
	}
	a, b := e.eval(x.Lhs), e.eval(x.Rhs)
	switch x.Op {
	case "==":
		return BoolValue(valueEqual(a, b))
	case "!=":
		return BoolValue(!valueEqual(a, b))
	}
	if as, aok := a.AsString(); aok {
		bs, _ := b.AsString()
		switch x.Op {
		case "+":
			return StringValue(as + bs)
		case "<":
			return BoolValue(as < bs)
		case "<=":
			return BoolValue(as <= bs)
		case ">":
			return BoolValue(as > bs)
		case ">=":
			return BoolValue(as >= bs)
		}
		return VoidValue()
	}
	an, _ := a.AsNumber()
	bn, _ := b.AsNumber()
	switch x.Op {
	case "+":
		return NumberValue(an + bn)
	case "-":
		return NumberValue(an - bn)
	case "*":
		return NumberValue(an * bn)
	case "/":
		if bn == 0 {
			return NumberValue(0)
		}
		return NumberValue(an / bn)
	case "<":
		return BoolValue(an < bn)
	case "<=":
		return BoolValue(an <= bn)
	case ">":
		return BoolValue(an > bn)
	case ">=":
		return BoolValue(an >= bn)
	}
	return VoidValue()
}

func (e *env) evalFunction(x llr.FunctionCall) Value {
	nums := make([]float64, len(x.Args))
	for i, a := range x.Args {
		nums[i], _ = e.eval(a).AsNumber()
	}
	if len(nums) == 0 || (x.Function == "clamp" && len(nums) < 3) {
		return VoidValue()
	}
	switch x.Function {
	case "min":
		out := nums[0]
		for _, n := range nums[1:] {
			out = math.Min(out, n)
		}
		return NumberValue(out)
	case "max":
		out := nums[0]
		for _, n := range nums[1:] {
			out = math.Max(out, n)
		}
		return NumberValue(out)
	case "abs":
		return NumberValue(math.Abs(nums[0]))
	case "round":
		return NumberValue(math.Round(nums[0]))
	case "floor":
		return NumberValue(math.Floor(nums[0]))
	case "ceil":
		return NumberValue(math.Ceil(nums[0]))
	case "clamp":
		return NumberValue(math.Min(math.Max(nums[0], nums[1]), nums[2]))
	}
	return VoidValue()
}

// evalBlock runs the statements; the block's value is the value of the first
// return statement executed, or of the trailing expression statement.
func (e *env) evalBlock(b llr.CodeBlock) Value {
	last := VoidValue()
	for _, s := range b.Stmts {
		switch s := s.(type) {
		case llr.AssignStmt:
			cell := e.scope.resolveProp(s.Target)
			v := e.eval(s.Value)
			if s.Op != "=" {
				cur := asValue(cell.Get())
				v = e.compound(s.Op, cur, v)
			}
			cell.Set(v)
		case llr.ExprStmt:
			last = e.eval(s.Expr)
		case llr.ReturnStmt:
			if s.Expr == nil {
				return VoidValue()
			}
			return e.eval(s.Expr)
		}
	}
	return last
}

func (e *env) compound(op string, cur, v Value) Value {
	if cs, ok := cur.AsString(); ok && op == "+=" {
		vs, _ := v.AsString()
		return StringValue(cs + vs)
	}
	cn, _ := cur.AsNumber()
	vn, _ := v.AsNumber()
	switch op {
	case "+=":
		return NumberValue(cn + vn)
	case "-=":
		return NumberValue(cn - vn)
	case "*=":
		return NumberValue(cn * vn)
	case "/=":
		if vn == 0 {
			return NumberValue(0)
		}
		return NumberValue(cn / vn)
	}
	return v
}
