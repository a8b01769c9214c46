// Package passes implements the compiler's tree-rewriting pipeline. Each pass
// is a single-purpose, in-place rewrite of one component tree; passes run in
// the fixed order of the pipeline table and are idempotent on already-lowered
// input.
//
// Failure semantics: passes record diagnostics and keep going, so one run
// reports everything it can find. Only subtrees whose invariants are broken
// (a Timer at the root, say) are left alone.
package passes

import (
	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/objtree"
)

var pipeline = []func(*state, *objtree.Component){
	checkPublicAPI,
	collectStructsAndEnums,
	reorderByZOrder,
	lowerOpacityAndVisible,
	lowerComponentContainer,
	lowerTimers,
	optimizeUselessRectangles,
	resolveNativeClasses,
	generateItemIndices,
	assignUniqueIDs,
	checkUniqueIDs,
}

// Run applies the full pipeline to every top-level component of the document.
func Run(doc *objtree.Document, sink *diag.Sink) {
	st := &state{doc: doc, sink: sink}
	for _, pass := range pipeline {
		for _, c := range doc.Components {
			pass(st, c)
		}
	}
}

type state struct {
	doc  *objtree.Document
	sink *diag.Sink
}

func (st *state) errorf(r diag.Ranger, format string, args ...any) {
	st.sink.Errorf(st.doc.Source.Name, st.doc.Source.Code, r, format, args...)
}

func (st *state) warnf(r diag.Ranger, format string, args ...any) {
	st.sink.Warnf(st.doc.Source.Name, st.doc.Source.Code, r, format, args...)
}

// forEachComponent calls f on c and every sub-component below it. The
// sub-component list is read after f returns, so f may append new
// sub-components and they will be visited too.
func forEachComponent(c *objtree.Component, f func(*objtree.Component)) {
	f(c)
	for _, sub := range c.SubComponents {
		forEachComponent(sub, f)
	}
}
