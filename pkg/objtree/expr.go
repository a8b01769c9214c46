package objtree

import (
	"sort"

	"github.com/vellum-ui/vellum/pkg/registry"
)

// Expression is the closed set of binding expression variants. Passes match
// exhaustively over the concrete types.
type Expression interface{ isExpression() }

// Invalid is the expression produced for unresolvable source expressions. It
// evaluates to the zero value of the expected type.
type Invalid struct{}

// NumberLiteral is a numeric literal, normalized: lengths in pixels,
// durations in milliseconds, angles in degrees.
type NumberLiteral struct {
	Value float64
	Type  *registry.ValueType
}

// StringLiteral is a string literal.
type StringLiteral struct{ Value string }

// BoolLiteral is true or false.
type BoolLiteral struct{ Value bool }

// ColorLiteral is a color in 0xAARRGGBB form.
type ColorLiteral struct{ ARGB uint32 }

// EnumValue is a reference to an enum case.
type EnumValue struct {
	Enum *registry.EnumType
	Case string
}

// PropertyRef reads another property through a named reference.
type PropertyRef struct{ Ref *NamedReference }

// ModelData reads the per-instance model data inside a repeated component.
type ModelData struct{}

// ModelIndex reads the per-instance model index inside a repeated component.
type ModelIndex struct{}

// FunctionCall calls a builtin function.
type FunctionCall struct {
	Function string
	Args     []Expression
}

// CallbackCall invokes a callback (or declared function) on an element.
type CallbackCall struct {
	Ref  *NamedReference
	Args []Expression
}

// CallbackArg reads the n-th argument of the callback handler being
// evaluated.
type CallbackArg struct{ Index int }

// Unary applies "-" or "!".
type Unary struct {
	Op  string
	Sub Expression
}

// Binary applies a binary operator. Both operands are evaluated.
type Binary struct {
	Op       string
	Lhs, Rhs Expression
}

// Conditional is cond ? then : else.
type Conditional struct {
	Cond, Then, Else Expression
}

// StructLiteral constructs a struct value. Field order is source order.
type StructLiteral struct {
	Type   *registry.StructType
	Names  []string
	Values []Expression
}

// ArrayLiteral constructs a model value from element expressions.
type ArrayLiteral struct{ Values []Expression }

// FieldAccess reads a field of a struct-typed expression.
type FieldAccess struct {
	Base  Expression
	Field string
}

// IndexAccess reads an element of a model-typed expression.
type IndexAccess struct {
	Base  Expression
	Index Expression
}

// CodeBlock is a sequence of statements; its value is the value of the last
// ReturnStmt executed, or of the trailing expression statement.
type CodeBlock struct{ Stmts []Stmt }

// TwoWay is the two-way binding marker: the bound property and the target
// are kept synchronized. After lowering, exactly one side is canonical.
type TwoWay struct{ Target *NamedReference }

func (Invalid) isExpression()       {}
func (NumberLiteral) isExpression() {}
func (StringLiteral) isExpression() {}
func (BoolLiteral) isExpression()   {}
func (ColorLiteral) isExpression()  {}
func (EnumValue) isExpression()     {}
func (PropertyRef) isExpression()   {}
func (ModelData) isExpression()     {}
func (ModelIndex) isExpression()    {}
func (FunctionCall) isExpression()  {}
func (CallbackCall) isExpression()  {}
func (CallbackArg) isExpression()   {}
func (Unary) isExpression()         {}
func (Binary) isExpression()        {}
func (Conditional) isExpression()   {}
func (StructLiteral) isExpression() {}
func (ArrayLiteral) isExpression()  {}
func (FieldAccess) isExpression()   {}
func (IndexAccess) isExpression()   {}
func (CodeBlock) isExpression()     {}
func (TwoWay) isExpression()        {}

// Stmt is a statement in a code block.
type Stmt interface{ isStmt() }

// AssignStmt writes a property. Op is "=", "+=", "-=", "*=" or "/=".
type AssignStmt struct {
	Target *NamedReference
	Op     string
	Value  Expression
}

// ExprStmt evaluates an expression for its effect (and, when trailing,
// its value).
type ExprStmt struct{ Expr Expression }

// ReturnStmt ends the block with an optional value.
type ReturnStmt struct{ Expr Expression }

func (AssignStmt) isStmt() {}
func (ExprStmt) isStmt()   {}
func (ReturnStmt) isStmt() {}

// VisitExpressions rewrites an expression tree bottom-up: children are
// visited first, then f is applied to the rebuilt node. f returning its
// argument leaves the node unchanged.
func VisitExpressions(e Expression, f func(Expression) Expression) Expression {
	switch e := e.(type) {
	case Unary:
		e.Sub = VisitExpressions(e.Sub, f)
		return f(e)
	case Binary:
		e.Lhs = VisitExpressions(e.Lhs, f)
		e.Rhs = VisitExpressions(e.Rhs, f)
		return f(e)
	case Conditional:
		e.Cond = VisitExpressions(e.Cond, f)
		e.Then = VisitExpressions(e.Then, f)
		e.Else = VisitExpressions(e.Else, f)
		return f(e)
	case FunctionCall:
		e.Args = visitExprs(e.Args, f)
		return f(e)
	case CallbackCall:
		e.Args = visitExprs(e.Args, f)
		return f(e)
	case StructLiteral:
		e.Values = visitExprs(e.Values, f)
		return f(e)
	case ArrayLiteral:
		e.Values = visitExprs(e.Values, f)
		return f(e)
	case FieldAccess:
		e.Base = VisitExpressions(e.Base, f)
		return f(e)
	case IndexAccess:
		e.Base = VisitExpressions(e.Base, f)
		e.Index = VisitExpressions(e.Index, f)
		return f(e)
	case CodeBlock:
		stmts := make([]Stmt, len(e.Stmts))
		for i, s := range e.Stmts {
			switch s := s.(type) {
			case AssignStmt:
				s.Value = VisitExpressions(s.Value, f)
				stmts[i] = s
			case ExprStmt:
				s.Expr = VisitExpressions(s.Expr, f)
				stmts[i] = s
			case ReturnStmt:
				if s.Expr != nil {
					s.Expr = VisitExpressions(s.Expr, f)
				}
				stmts[i] = s
			}
		}
		e.Stmts = stmts
		return f(e)
	default:
		return f(e)
	}
}

func visitExprs(es []Expression, f func(Expression) Expression) []Expression {
	out := make([]Expression, len(es))
	for i, e := range es {
		out[i] = VisitExpressions(e, f)
	}
	return out
}

// visitExprRefs calls f on the named references held directly by e (not by
// its children; VisitExpressions handles recursion).
func visitExprRefs(e Expression, f func(*NamedReference)) {
	switch e := e.(type) {
	case PropertyRef:
		f(e.Ref)
	case CallbackCall:
		f(e.Ref)
	case TwoWay:
		f(e.Target)
	case CodeBlock:
		for _, s := range e.Stmts {
			if a, ok := s.(AssignStmt); ok {
				f(a.Target)
			}
		}
	}
}

// ConstantNumber evaluates e if it is a compile-time numeric constant.
func ConstantNumber(e Expression) (float64, bool) {
	switch e := e.(type) {
	case NumberLiteral:
		return e.Value, true
	case Unary:
		if v, ok := ConstantNumber(e.Sub); ok {
			if e.Op == "-" {
				return -v, true
			}
		}
	}
	return 0, false
}

// TypeOf infers the value type of an expression. Best effort: Invalid
// subtrees yield the invalid type.
func TypeOf(e Expression) *registry.ValueType {
	switch e := e.(type) {
	case NumberLiteral:
		return e.Type
	case StringLiteral:
		return registry.StringType
	case BoolLiteral:
		return registry.BoolType
	case ColorLiteral:
		return registry.BrushType
	case EnumValue:
		return registry.EnumOf(e.Enum)
	case PropertyRef:
		if t := e.Ref.Type(); t != nil {
			return t
		}
	case ModelData:
		return registry.FloatType
	case ModelIndex:
		return registry.IntType
	case FunctionCall:
		if len(e.Args) > 0 {
			return TypeOf(e.Args[0])
		}
		return registry.FloatType
	case CallbackCall:
		if t := e.Ref.Type(); t != nil && t.Kind == registry.Callback && t.Ret != nil {
			return t.Ret
		}
		return registry.VoidType
	case CallbackArg:
		return registry.FloatType
	case Unary:
		if e.Op == "!" {
			return registry.BoolType
		}
		return TypeOf(e.Sub)
	case Binary:
		switch e.Op {
		case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
			return registry.BoolType
		}
		lhs := TypeOf(e.Lhs)
		if lhs.Kind != registry.Invalid {
			return lhs
		}
		return TypeOf(e.Rhs)
	case Conditional:
		then := TypeOf(e.Then)
		if then.Kind != registry.Invalid {
			return then
		}
		return TypeOf(e.Else)
	case StructLiteral:
		return registry.StructOf(e.Type)
	case ArrayLiteral:
		if len(e.Values) > 0 {
			return registry.ModelOf(TypeOf(e.Values[0]))
		}
		return registry.ModelOf(registry.FloatType)
	case FieldAccess:
		if t := TypeOf(e.Base); t.Kind == registry.Struct {
			if ft := t.StructDef.FieldType(e.Field); ft != nil {
				return ft
			}
		}
	case IndexAccess:
		if t := TypeOf(e.Base); t.Kind == registry.Model {
			return t.Elem
		}
	case CodeBlock:
		for _, s := range e.Stmts {
			if r, ok := s.(ReturnStmt); ok && r.Expr != nil {
				return TypeOf(r.Expr)
			}
		}
		if len(e.Stmts) > 0 {
			if es, ok := e.Stmts[len(e.Stmts)-1].(ExprStmt); ok {
				return TypeOf(es.Expr)
			}
		}
		return registry.VoidType
	case TwoWay:
		if t := e.Target.Type(); t != nil {
			return t
		}
	}
	return registry.InvalidType
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
