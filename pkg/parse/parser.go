package parse

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vellum-ui/vellum/pkg/diag"
)

// parser maintains the mutable state of parsing.
//
// NOTE: The src member is assumed to be valid UTF-8.
type parser struct {
	srcName string
	src     string
	pos     int
	overEOF int
	errors  []*Error
}

// Error is a parse error.
type Error struct {
	Message string
	Context diag.Context
	// Partial is true if the error is likely caused by the source being
	// incomplete, i.e. the parser ran into EOF where more input was expected.
	Partial bool
}

// Error returns a plain text representation of the parse error.
func (e *Error) Error() string {
	return fmt.Sprintf("parse error: %d-%d in %s: %s",
		e.Context.From, e.Context.To, e.Context.Name, e.Message)
}

// Range returns the range of the parse error.
func (e *Error) Range() diag.Ranging { return e.Context.Range() }

func parse[N Node](ps *parser, n N) parsed[N] {
	begin := ps.pos
	n.n().From = begin
	n.parse(ps)
	n.n().To = ps.pos
	n.n().sourceText = ps.src[begin:ps.pos]
	return parsed[N]{n}
}

type parsed[N Node] struct {
	n N
}

func (p parsed[N]) addAs(ptr *N, parent Node) {
	*ptr = p.n
	addChild(parent, p.n)
}

func (p parsed[N]) addTo(ptr *[]N, parent Node) {
	*ptr = append(*ptr, p.n)
	addChild(parent, p.n)
}

func addChild(p Node, ch Node) {
	p.n().addChild(ch)
	ch.n().parent = p
}

// Tells the parser that parsing is done.
func (ps *parser) done() {
	if ps.pos != len(ps.src) {
		r, _ := utf8.DecodeRuneInString(ps.src[ps.pos:])
		ps.error(fmt.Errorf("unexpected rune %q", r))
		// Consume the rest of the source so that the tree stays lossless.
		ps.pos = len(ps.src)
	}
}

const eof rune = -1

func (ps *parser) peek() rune {
	if ps.pos == len(ps.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(ps.src[ps.pos:])
	return r
}

func (ps *parser) hasPrefix(prefix string) bool {
	return strings.HasPrefix(ps.src[ps.pos:], prefix)
}

func (ps *parser) next() rune {
	if ps.pos == len(ps.src) {
		ps.overEOF++
		return eof
	}
	r, s := utf8.DecodeRuneInString(ps.src[ps.pos:])
	ps.pos += s
	return r
}

func (ps *parser) backup() {
	if ps.overEOF > 0 {
		ps.overEOF--
		return
	}
	_, s := utf8.DecodeLastRuneInString(ps.src[:ps.pos])
	ps.pos -= s
}

// savedState snapshots the parser for speculative parsing. Restoring also
// discards any errors recorded during the speculation.
type savedState struct {
	pos     int
	nerrors int
}

func (ps *parser) save() savedState { return savedState{ps.pos, len(ps.errors)} }

func (ps *parser) restore(s savedState) {
	ps.pos = s.pos
	ps.overEOF = 0
	ps.errors = ps.errors[:s.nerrors]
}

func (ps *parser) errorp(r diag.Ranger, e error) {
	err := &Error{
		Message: e.Error(),
		Context: *diag.NewContext(ps.srcName, ps.src, r),
		Partial: r.Range().From == len(ps.src),
	}
	ps.errors = append(ps.errors, err)
}

func (ps *parser) error(e error) {
	end := ps.pos
	if end < len(ps.src) {
		end++
	}
	ps.errorp(diag.Ranging{From: ps.pos, To: end}, e)
}

func newError(text string, shouldbe ...string) error {
	if len(shouldbe) == 0 {
		return errors.New(text)
	}
	var buf bytes.Buffer
	if len(text) > 0 {
		buf.WriteString(text + ", ")
	}
	buf.WriteString("should be " + shouldbe[0])
	for i, opt := range shouldbe[1:] {
		if i == len(shouldbe)-2 {
			buf.WriteString(" or ")
		} else {
			buf.WriteString(", ")
		}
		buf.WriteString(opt)
	}
	return errors.New(buf.String())
}
