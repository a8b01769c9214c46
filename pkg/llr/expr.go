package llr

import (
	"github.com/vellum-ui/vellum/pkg/registry"
)

// Expression is the lowered expression tree. It mirrors the object tree's
// expression set with all named references replaced by PropertyReferences and
// two-way markers canonicalized away.
type Expression interface{ isExpression() }

// Invalid evaluates to the zero value of the expected type. Produced for
// subtrees whose diagnostics already failed the component.
type Invalid struct{}

// NumberLiteral is a normalized numeric literal.
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

// EnumValue is an enum case, represented by its case index at runtime.
type EnumValue struct {
	Enum *registry.EnumType
	Case string
}

// PropertyValue reads a property.
type PropertyValue struct{ Ref PropertyReference }

// CallbackCall invokes a callback-typed property.
type CallbackCall struct {
	Ref  PropertyReference
	Args []Expression
}

// FunctionCall calls a builtin function by name. Only pure numeric builtins
// survive to this stage; timer control was rewritten by the passes.
type FunctionCall struct {
	Function string
	Args     []Expression
}

// CallbackArg reads the n-th argument of the callback being evaluated.
type CallbackArg struct{ Index int }

// ModelData reads the per-instance model data of the enclosing repeater.
type ModelData struct{}

// ModelIndex reads the per-instance model index of the enclosing repeater.
type ModelIndex struct{}

// Unary applies "-" or "!".
type Unary struct {
	Op  string
	Sub Expression
}

// Binary applies a binary operator.
type Binary struct {
	Op       string
	Lhs, Rhs Expression
}

// Conditional is cond ? then : else.
type Conditional struct {
	Cond, Then, Else Expression
}

// StructLiteral constructs a struct value, fields in source order.
type StructLiteral struct {
	Type   *registry.StructType
	Names  []string
	Values []Expression
}

// ArrayLiteral constructs a model value.
type ArrayLiteral struct{ Values []Expression }

// FieldAccess reads a struct field.
type FieldAccess struct {
	Base  Expression
	Field string
}

// IndexAccess reads a model element.
type IndexAccess struct {
	Base  Expression
	Index Expression
}

// CodeBlock is a statement sequence; its value is the value of the first
// ReturnStmt executed, or of the trailing expression statement.
type CodeBlock struct{ Stmts []Stmt }

func (Invalid) isExpression()       {}
func (NumberLiteral) isExpression() {}
func (StringLiteral) isExpression() {}
func (BoolLiteral) isExpression()   {}
func (ColorLiteral) isExpression()  {}
func (EnumValue) isExpression()     {}
func (PropertyValue) isExpression() {}
func (CallbackCall) isExpression()  {}
func (FunctionCall) isExpression()  {}
func (CallbackArg) isExpression()   {}
func (ModelData) isExpression()     {}
func (ModelIndex) isExpression()    {}
func (Unary) isExpression()         {}
func (Binary) isExpression()        {}
func (Conditional) isExpression()   {}
func (StructLiteral) isExpression() {}
func (ArrayLiteral) isExpression()  {}
func (FieldAccess) isExpression()   {}
func (IndexAccess) isExpression()   {}
func (CodeBlock) isExpression()     {}

// Stmt is a statement in a lowered code block.
type Stmt interface{ isStmt() }

// AssignStmt writes a property. Op is "=", "+=", "-=", "*=" or "/=".
type AssignStmt struct {
	Target PropertyReference
	Op     string
	Value  Expression
}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct{ Expr Expression }

// ReturnStmt ends the block with an optional value.
type ReturnStmt struct{ Expr Expression }

func (AssignStmt) isStmt() {}
func (ExprStmt) isStmt()   {}
func (ReturnStmt) isStmt() {}
