package diag

import (
	"fmt"
	"sort"
)

// Sink collects diagnostics across compiler stages. Stages report as many
// diagnostics as they can instead of stopping at the first; the sink keeps
// them all and answers whether any of them is fatal.
//
// The zero value is ready to use.
type Sink struct {
	diags []*Diag
}

// Add adds a fully formed diagnostic.
func (s *Sink) Add(d *Diag) {
	s.diags = append(s.diags, d)
}

// Errorf records an error-level diagnostic against a source range.
func (s *Sink) Errorf(name, source string, r Ranger, format string, args ...any) {
	s.Add(&Diag{Error, fmt.Sprintf(format, args...), *NewContext(name, source, r)})
}

// Warnf records a warning-level diagnostic against a source range.
func (s *Sink) Warnf(name, source string, r Ranger, format string, args ...any) {
	s.Add(&Diag{Warning, fmt.Sprintf(format, args...), *NewContext(name, source, r)})
}

// HasError reports whether any collected diagnostic is error-level.
func (s *Sink) HasError() bool {
	for _, d := range s.diags {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// All returns the collected diagnostics in source order: grouped by file
// name, then by starting position, then by insertion order. The returned
// slice is owned by the sink.
func (s *Sink) All() []*Diag {
	sort.SliceStable(s.diags, func(i, j int) bool {
		ci, cj := &s.diags[i].Context, &s.diags[j].Context
		if ci.Name != cj.Name {
			return ci.Name < cj.Name
		}
		return ci.From < cj.From
	})
	return s.diags
}

// Len returns the number of collected diagnostics.
func (s *Sink) Len() int { return len(s.diags) }
