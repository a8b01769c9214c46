package passes

import (
	"github.com/vellum-ui/vellum/pkg/objtree"
)

// lowerTimers rewrites the start-timer/stop-timer builtins into assignments of
// the timer's running property and detaches Timer elements from the visual
// tree into the component's timer list. A Timer at the component root, inside
// a repeated element, or without an interval binding is an error and stays
// where it is, inert.
func lowerTimers(st *state, c *objtree.Component) {
	objtree.VisitComponentBindings(c, func(_ *objtree.Element, _ string, be *objtree.BindingExpression) {
		be.Expr = objtree.VisitExpressions(be.Expr, rewriteTimerCall)
	})
	forEachComponent(c, func(comp *objtree.Component) {
		if isTimer(comp.Root) {
			st.errorf(comp.Root, "Timer cannot be the root element")
		}
		detachTimers(st, comp, comp.Root)
	})
}

func rewriteTimerCall(x objtree.Expression) objtree.Expression {
	fc, ok := x.(objtree.FunctionCall)
	if !ok || (fc.Function != "start-timer" && fc.Function != "stop-timer") || len(fc.Args) != 1 {
		return x
	}
	ref, ok := fc.Args[0].(objtree.PropertyRef)
	if !ok {
		return objtree.Invalid{}
	}
	return objtree.CodeBlock{Stmts: []objtree.Stmt{objtree.AssignStmt{
		Target: ref.Ref,
		Op:     "=",
		Value:  objtree.BoolLiteral{Value: fc.Function == "start-timer"},
	}}}
}

func detachTimers(st *state, comp *objtree.Component, e *objtree.Element) {
	kept := e.Children[:0]
	for _, ch := range e.Children {
		detachTimers(st, comp, ch)
		if !isTimer(ch) {
			kept = append(kept, ch)
			continue
		}
		if _, ok := ch.Bindings["interval"]; !ok {
			st.errorf(ch, "Timer needs an interval binding")
			kept = append(kept, ch)
			continue
		}
		if comp.ParentComponent != nil {
			st.errorf(ch, "Timer cannot be inside a repeated element")
			kept = append(kept, ch)
			continue
		}
		ch.Parent = nil
		comp.Timers = append(comp.Timers, ch)
		comp.OptimizedElements = append(comp.OptimizedElements, ch)
	}
	e.Children = kept
}

func isTimer(e *objtree.Element) bool {
	return e.Base.Kind == objtree.BuiltinType && e.Base.Builtin.Name == "Timer"
}
