// Package parse implements the vellum parser.
//
// The parser builds a hybrid of AST (abstract syntax tree) and parse tree
// (a.k.a. concrete syntax tree). The AST part only includes parts that are
// semantically significant, and is embodied in the fields of each *Node type.
// The parse tree part corresponds to all the text in the original source text,
// and is embodied in the children of each *Node type.
//
// Operator precedence is deliberately not resolved here: a binary expression
// is stored as a flat operand/operator sequence and shaped by the object tree
// builder. This keeps every token addressable in the parse tree.
package parse

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vellum-ui/vellum/pkg/diag"
)

// Tree represents a parsed source document.
type Tree struct {
	Root   *Document
	Source Source
}

// Parse parses the given source. The returned error, if not nil, contains one
// or more *Error values and can be unpacked with UnpackErrors.
func Parse(src Source) (Tree, error) {
	tree := Tree{&Document{}, src}
	ps := &parser{srcName: src.Name, src: src.Code}
	parse(ps, tree.Root)
	ps.done()
	if len(ps.errors) == 0 {
		return tree, nil
	}
	return tree, multiError(ps.errors)
}

type multiError []*Error

func (me multiError) Error() string {
	switch len(me) {
	case 0:
		return "no parse error"
	case 1:
		return me[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more parse errors)", me[0], len(me)-1)
	}
}

// UnpackErrors returns the constituent parse errors if the given error
// contains one or more parse errors. Otherwise it returns nil.
func UnpackErrors(e error) []*Error {
	if me, ok := e.(multiError); ok {
		return me
	}
	return nil
}

// Errors.
var (
	errShouldBeIdent      = newError("", "identifier")
	errShouldBeTypeName   = newError("", "type name")
	errShouldBeString     = newError("", "string literal")
	errShouldBeLBrace     = newError("", "'{'")
	errShouldBeRBrace     = newError("", "'}'")
	errShouldBeLBracket   = newError("", "'['")
	errShouldBeRBracket   = newError("", "']'")
	errShouldBeLParen     = newError("", "'('")
	errShouldBeRParen     = newError("", "')'")
	errShouldBeColon      = newError("", "':'")
	errShouldBeSemicolon  = newError("", "';'")
	errShouldBeLt         = newError("", "'<'")
	errShouldBeGt         = newError("", "'>'")
	errShouldBeFrom       = newError("", "'from'")
	errShouldBeIn         = newError("", "'in'")
	errShouldBeArrow      = newError("", "'=>'")
	errShouldBeExpr       = newError("", "expression")
	errShouldBeMember     = newError("bad element member")
	errShouldBeDecl       = newError("bad declaration", "'import'", "'struct'", "'enum'", "'component'", "'global'")
	errStringUnterminated = newError("string not terminated")
	errInvalidEscape      = newError("invalid escape sequence")
	errInvalidColor       = newError("invalid color literal")
)

// Document = { Import | StructDecl | EnumDecl | ComponentDecl }
type Document struct {
	node
	Imports    []*Import
	Structs    []*StructDecl
	Enums      []*EnumDecl
	Components []*ComponentDecl
}

func (dn *Document) parse(ps *parser) {
	parseSpaces(dn, ps)
	for ps.peek() != eof {
		before := ps.pos
		switch w := ps.peekWord(); w {
		case "import":
			parse(ps, &Import{}).addTo(&dn.Imports, dn)
		case "struct":
			parse(ps, &StructDecl{}).addTo(&dn.Structs, dn)
		case "enum":
			parse(ps, &EnumDecl{}).addTo(&dn.Enums, dn)
		case "component", "global", "export":
			parse(ps, &ComponentDecl{}).addTo(&dn.Components, dn)
		default:
			ps.error(errShouldBeDecl)
			if !skipToBoundary(dn, ps) {
				return
			}
		}
		if ps.pos == before {
			// Malformed input that no declaration consumed; drop one rune so
			// parsing always makes progress.
			ps.next()
			addSep(dn, ps)
		}
		parseSpaces(dn, ps)
	}
}

// Import = 'import' '{' Ident { ',' Ident } '}' 'from' Str ';'
type Import struct {
	node
	Names []*Ident
	Path  *Str
}

func (in *Import) parse(ps *parser) {
	parseKeyword(in, ps, "import")
	parseSpaces(in, ps)
	if !parseSep(in, ps, '{') {
		ps.error(errShouldBeLBrace)
		return
	}
	parseSpaces(in, ps)
	for startsIdent(ps.peek()) {
		parse(ps, &Ident{}).addTo(&in.Names, in)
		parseSpaces(in, ps)
		if !parseSep(in, ps, ',') {
			break
		}
		parseSpaces(in, ps)
	}
	if !parseSep(in, ps, '}') {
		ps.error(errShouldBeRBrace)
	}
	parseSpaces(in, ps)
	if ps.peekWord() == "from" {
		parseKeyword(in, ps, "from")
		parseSpaces(in, ps)
	} else {
		ps.error(errShouldBeFrom)
	}
	if ps.peek() == '"' {
		parse(ps, &Str{}).addAs(&in.Path, in)
	} else {
		ps.error(errShouldBeString)
	}
	parseSpaces(in, ps)
	if !parseSep(in, ps, ';') {
		ps.error(errShouldBeSemicolon)
	}
}

// StructDecl = 'struct' Ident '{' { Ident ':' TypeNode [','] } '}'
type StructDecl struct {
	node
	Name   *Ident
	Fields []*TypeField
}

func (sn *StructDecl) parse(ps *parser) {
	parseKeyword(sn, ps, "struct")
	parseSpaces(sn, ps)
	parseIdentInto(&sn.Name, sn, ps)
	parseSpaces(sn, ps)
	if !parseSep(sn, ps, '{') {
		ps.error(errShouldBeLBrace)
		return
	}
	parseSpaces(sn, ps)
	for startsIdent(ps.peek()) {
		parse(ps, &TypeField{}).addTo(&sn.Fields, sn)
		parseSpaces(sn, ps)
		if parseSep(sn, ps, ',') {
			parseSpaces(sn, ps)
		}
	}
	if !parseSep(sn, ps, '}') {
		ps.error(errShouldBeRBrace)
	}
}

// TypeField = Ident ':' TypeNode
type TypeField struct {
	node
	Name *Ident
	Type *TypeNode
}

func (fn *TypeField) parse(ps *parser) {
	parseIdentInto(&fn.Name, fn, ps)
	parseSpaces(fn, ps)
	if !parseSep(fn, ps, ':') {
		ps.error(errShouldBeColon)
		return
	}
	parseSpaces(fn, ps)
	parse(ps, &TypeNode{}).addAs(&fn.Type, fn)
}

// EnumDecl = 'enum' Ident '{' { Ident [','] } '}'
type EnumDecl struct {
	node
	Name  *Ident
	Cases []*Ident
}

func (en *EnumDecl) parse(ps *parser) {
	parseKeyword(en, ps, "enum")
	parseSpaces(en, ps)
	parseIdentInto(&en.Name, en, ps)
	parseSpaces(en, ps)
	if !parseSep(en, ps, '{') {
		ps.error(errShouldBeLBrace)
		return
	}
	parseSpaces(en, ps)
	for startsIdent(ps.peek()) {
		parse(ps, &Ident{}).addTo(&en.Cases, en)
		parseSpaces(en, ps)
		if parseSep(en, ps, ',') {
			parseSpaces(en, ps)
		}
	}
	if !parseSep(en, ps, '}') {
		ps.error(errShouldBeRBrace)
	}
}

// ComponentDecl = [ 'export' ] ( 'component' | 'global' ) Ident
//
//	[ 'inherits' Ident ] ElementBody
type ComponentDecl struct {
	node
	Export bool
	Global bool
	Name   *Ident
	Base   *Ident
	Body   *ElementBody
}

func (cn *ComponentDecl) parse(ps *parser) {
	if ps.peekWord() == "export" {
		parseKeyword(cn, ps, "export")
		cn.Export = true
		parseSpaces(cn, ps)
	}
	switch ps.peekWord() {
	case "global":
		parseKeyword(cn, ps, "global")
		cn.Global = true
	case "component":
		parseKeyword(cn, ps, "component")
	default:
		ps.error(newError("", "'component'", "'global'"))
		return
	}
	parseSpaces(cn, ps)
	parseIdentInto(&cn.Name, cn, ps)
	parseSpaces(cn, ps)
	if !cn.Global && ps.peekWord() == "inherits" {
		parseKeyword(cn, ps, "inherits")
		parseSpaces(cn, ps)
		parseIdentInto(&cn.Base, cn, ps)
		parseSpaces(cn, ps)
	}
	parse(ps, &ElementBody{}).addAs(&cn.Body, cn)
}

// Element = [ Ident ':=' ] Ident ElementBody
type Element struct {
	node
	ID   *Ident
	Type *Ident
	Body *ElementBody
}

func (en *Element) parse(ps *parser) {
	begin := ps.save()
	var scratch Ident
	scratch.parseInner(ps)
	ps.parseSpacesOnly()
	hasID := ps.hasPrefix(":=")
	ps.restore(begin)

	if hasID {
		parseIdentInto(&en.ID, en, ps)
		parseSpaces(en, ps)
		ps.next()
		ps.next()
		addSep(en, ps)
		parseSpaces(en, ps)
	}
	parseIdentInto(&en.Type, en, ps)
	parseSpaces(en, ps)
	parse(ps, &ElementBody{}).addAs(&en.Body, en)
}

// ElementBody = '{' { Member } '}'
//
// Member dispatch is decided by one word of lookahead, falling back to
// speculative parsing of a leading identifier.
type ElementBody struct {
	node
	Properties []*PropertyDecl
	Callbacks  []*CallbackDecl
	Functions  []*FunctionDecl
	Bindings   []*Binding
	TwoWays    []*TwoWayBinding
	Handlers   []*Handler
	Children   []*Element
	Repeats    []*Repeat
	Conds      []*CondElement
	States     *States
	Transs     *Transitions
	Animations []*Animate
	ChildSlot  *ChildrenPlaceholder
}

func (bn *ElementBody) parse(ps *parser) {
	if !parseSep(bn, ps, '{') {
		ps.error(errShouldBeLBrace)
		return
	}
	parseSpaces(bn, ps)
	for {
		r := ps.peek()
		if r == '}' || r == eof {
			break
		}
		before := ps.pos
		if !bn.parseMember(ps) {
			ps.error(errShouldBeMember)
			if !skipToBoundary(bn, ps) {
				break
			}
		} else if ps.pos > before && ps.src[ps.pos-1] == '}' && ps.peek() == ';' {
			// Block-bodied members may carry the terminator the other
			// member kinds require.
			ps.next()
			addSep(bn, ps)
		}
		if ps.pos == before && ps.peek() != '}' {
			ps.next()
			addSep(bn, ps)
		}
		parseSpaces(bn, ps)
	}
	if !parseSep(bn, ps, '}') {
		ps.error(errShouldBeRBrace)
	}
}

func (bn *ElementBody) parseMember(ps *parser) bool {
	if ps.peek() == '@' {
		parse(ps, &ChildrenPlaceholder{}).addAs(&bn.ChildSlot, bn)
		return true
	}
	switch w := ps.peekWord(); w {
	case "in", "out", "in-out", "private", "property":
		parse(ps, &PropertyDecl{}).addTo(&bn.Properties, bn)
		return true
	case "callback":
		parse(ps, &CallbackDecl{}).addTo(&bn.Callbacks, bn)
		return true
	case "function":
		parse(ps, &FunctionDecl{}).addTo(&bn.Functions, bn)
		return true
	case "for":
		parse(ps, &Repeat{}).addTo(&bn.Repeats, bn)
		return true
	case "if":
		parse(ps, &CondElement{}).addTo(&bn.Conds, bn)
		return true
	case "states":
		parse(ps, &States{}).addAs(&bn.States, bn)
		return true
	case "transitions":
		parse(ps, &Transitions{}).addAs(&bn.Transs, bn)
		return true
	case "animate":
		parse(ps, &Animate{}).addTo(&bn.Animations, bn)
		return true
	case "":
		return false
	}

	// Speculate: parse an identifier and see what follows.
	begin := ps.save()
	var scratch Ident
	scratch.parseInner(ps)
	ps.parseSpacesOnly()
	var next string
	switch {
	case ps.hasPrefix(":="):
		next = ":="
	case ps.hasPrefix("<=>"):
		next = "<=>"
	case ps.hasPrefix("=>"):
		next = "=>"
	case ps.peek() == ':':
		next = ":"
	case ps.peek() == '{':
		next = "{"
	case ps.peek() == '(':
		next = "("
	}
	ps.restore(begin)

	switch next {
	case ":=", "{":
		parse(ps, &Element{}).addTo(&bn.Children, bn)
	case "<=>":
		parse(ps, &TwoWayBinding{}).addTo(&bn.TwoWays, bn)
	case ":":
		parse(ps, &Binding{}).addTo(&bn.Bindings, bn)
	case "=>", "(":
		parse(ps, &Handler{}).addTo(&bn.Handlers, bn)
	default:
		return false
	}
	return true
}

// PropertyDecl = [ 'in' | 'out' | 'in-out' | 'private' ] 'property'
//
//	'<' TypeNode '>' Ident ( ':' Expr ';' | '<=>' Path ';' | ';' )
type PropertyDecl struct {
	node
	Access string // "in", "out", "in-out" or "private" (the default)
	Type   *TypeNode
	Name   *Ident
	Init   *Expr
	Link   *Path
}

func (pn *PropertyDecl) parse(ps *parser) {
	pn.Access = "private"
	switch w := ps.peekWord(); w {
	case "in", "out", "in-out", "private":
		parseKeyword(pn, ps, w)
		pn.Access = w
		parseSpaces(pn, ps)
	}
	if ps.peekWord() != "property" {
		ps.error(newError("", "'property'"))
		return
	}
	parseKeyword(pn, ps, "property")
	parseSpaces(pn, ps)
	if !parseSep(pn, ps, '<') {
		ps.error(errShouldBeLt)
		return
	}
	parseSpaces(pn, ps)
	parse(ps, &TypeNode{}).addAs(&pn.Type, pn)
	parseSpaces(pn, ps)
	if !parseSep(pn, ps, '>') {
		ps.error(errShouldBeGt)
		return
	}
	parseSpaces(pn, ps)
	parseIdentInto(&pn.Name, pn, ps)
	parseSpaces(pn, ps)
	switch {
	case ps.hasPrefix("<=>"):
		ps.next()
		ps.next()
		ps.next()
		addSep(pn, ps)
		parseSpaces(pn, ps)
		parse(ps, &Path{}).addAs(&pn.Link, pn)
		parseSpaces(pn, ps)
	case ps.peek() == ':':
		parseSep(pn, ps, ':')
		parseSpaces(pn, ps)
		parse(ps, &Expr{}).addAs(&pn.Init, pn)
		parseSpaces(pn, ps)
	}
	if !parseSep(pn, ps, ';') {
		ps.error(errShouldBeSemicolon)
	}
}

// CallbackDecl = 'callback' Ident '(' [ TypeNode { ',' TypeNode } ] ')'
//
//	[ '->' TypeNode ] ';'
type CallbackDecl struct {
	node
	Name   *Ident
	Params []*TypeNode
	Ret    *TypeNode
}

func (cn *CallbackDecl) parse(ps *parser) {
	parseKeyword(cn, ps, "callback")
	parseSpaces(cn, ps)
	parseIdentInto(&cn.Name, cn, ps)
	parseSpaces(cn, ps)
	if parseSep(cn, ps, '(') {
		parseSpaces(cn, ps)
		for startsIdent(ps.peek()) || ps.peek() == '[' || ps.peek() == '{' {
			parse(ps, &TypeNode{}).addTo(&cn.Params, cn)
			parseSpaces(cn, ps)
			if !parseSep(cn, ps, ',') {
				break
			}
			parseSpaces(cn, ps)
		}
		if !parseSep(cn, ps, ')') {
			ps.error(errShouldBeRParen)
		}
		parseSpaces(cn, ps)
	}
	if ps.hasPrefix("->") {
		ps.next()
		ps.next()
		addSep(cn, ps)
		parseSpaces(cn, ps)
		parse(ps, &TypeNode{}).addAs(&cn.Ret, cn)
		parseSpaces(cn, ps)
	}
	if !parseSep(cn, ps, ';') {
		ps.error(errShouldBeSemicolon)
	}
}

// FunctionDecl = 'function' Ident '(' [ Ident ':' TypeNode { ',' ... } ] ')'
//
//	[ '->' TypeNode ] Block
type FunctionDecl struct {
	node
	Name   *Ident
	Params []*TypeField
	Ret    *TypeNode
	Body   *Block
}

func (fn *FunctionDecl) parse(ps *parser) {
	parseKeyword(fn, ps, "function")
	parseSpaces(fn, ps)
	parseIdentInto(&fn.Name, fn, ps)
	parseSpaces(fn, ps)
	if !parseSep(fn, ps, '(') {
		ps.error(errShouldBeLParen)
		return
	}
	parseSpaces(fn, ps)
	for startsIdent(ps.peek()) {
		parse(ps, &TypeField{}).addTo(&fn.Params, fn)
		parseSpaces(fn, ps)
		if !parseSep(fn, ps, ',') {
			break
		}
		parseSpaces(fn, ps)
	}
	if !parseSep(fn, ps, ')') {
		ps.error(errShouldBeRParen)
	}
	parseSpaces(fn, ps)
	if ps.hasPrefix("->") {
		ps.next()
		ps.next()
		addSep(fn, ps)
		parseSpaces(fn, ps)
		parse(ps, &TypeNode{}).addAs(&fn.Ret, fn)
		parseSpaces(fn, ps)
	}
	parse(ps, &Block{}).addAs(&fn.Body, fn)
}

// Binding = Ident ':' Expr ';'
type Binding struct {
	node
	Name *Ident
	Expr *Expr
}

func (bn *Binding) parse(ps *parser) {
	parseIdentInto(&bn.Name, bn, ps)
	parseSpaces(bn, ps)
	if !parseSep(bn, ps, ':') {
		ps.error(errShouldBeColon)
		return
	}
	parseSpaces(bn, ps)
	parse(ps, &Expr{}).addAs(&bn.Expr, bn)
	parseSpaces(bn, ps)
	if !parseSep(bn, ps, ';') {
		ps.error(errShouldBeSemicolon)
	}
}

// TwoWayBinding = Ident '<=>' Path ';'
type TwoWayBinding struct {
	node
	Name   *Ident
	Target *Path
}

func (tn *TwoWayBinding) parse(ps *parser) {
	parseIdentInto(&tn.Name, tn, ps)
	parseSpaces(tn, ps)
	if !ps.hasPrefix("<=>") {
		ps.error(newError("", "'<=>'"))
		return
	}
	ps.next()
	ps.next()
	ps.next()
	addSep(tn, ps)
	parseSpaces(tn, ps)
	parse(ps, &Path{}).addAs(&tn.Target, tn)
	parseSpaces(tn, ps)
	if !parseSep(tn, ps, ';') {
		ps.error(errShouldBeSemicolon)
	}
}

// Handler = Ident [ '(' [ Ident { ',' Ident } ] ')' ] '=>' Block
type Handler struct {
	node
	Name   *Ident
	Params []*Ident
	Body   *Block
}

func (hn *Handler) parse(ps *parser) {
	parseIdentInto(&hn.Name, hn, ps)
	parseSpaces(hn, ps)
	if parseSep(hn, ps, '(') {
		parseSpaces(hn, ps)
		for startsIdent(ps.peek()) {
			parse(ps, &Ident{}).addTo(&hn.Params, hn)
			parseSpaces(hn, ps)
			if !parseSep(hn, ps, ',') {
				break
			}
			parseSpaces(hn, ps)
		}
		if !parseSep(hn, ps, ')') {
			ps.error(errShouldBeRParen)
		}
		parseSpaces(hn, ps)
	}
	if !ps.hasPrefix("=>") {
		ps.error(errShouldBeArrow)
		return
	}
	ps.next()
	ps.next()
	addSep(hn, ps)
	parseSpaces(hn, ps)
	parse(ps, &Block{}).addAs(&hn.Body, hn)
}

// Repeat = 'for' Ident [ '[' Ident ']' ] 'in' Expr ':' Element
type Repeat struct {
	node
	Var      *Ident
	IndexVar *Ident
	Model    *Expr
	Element  *Element
}

func (rn *Repeat) parse(ps *parser) {
	parseKeyword(rn, ps, "for")
	parseSpaces(rn, ps)
	parseIdentInto(&rn.Var, rn, ps)
	parseSpaces(rn, ps)
	if parseSep(rn, ps, '[') {
		parseSpaces(rn, ps)
		parseIdentInto(&rn.IndexVar, rn, ps)
		parseSpaces(rn, ps)
		if !parseSep(rn, ps, ']') {
			ps.error(errShouldBeRBracket)
		}
		parseSpaces(rn, ps)
	}
	if ps.peekWord() != "in" {
		ps.error(errShouldBeIn)
		return
	}
	parseKeyword(rn, ps, "in")
	parseSpaces(rn, ps)
	parse(ps, &Expr{}).addAs(&rn.Model, rn)
	parseSpaces(rn, ps)
	if !parseSep(rn, ps, ':') {
		ps.error(errShouldBeColon)
		return
	}
	parseSpaces(rn, ps)
	parse(ps, &Element{}).addAs(&rn.Element, rn)
}

// CondElement = 'if' Expr ':' Element
type CondElement struct {
	node
	Cond    *Expr
	Element *Element
}

func (cn *CondElement) parse(ps *parser) {
	parseKeyword(cn, ps, "if")
	parseSpaces(cn, ps)
	parse(ps, &Expr{}).addAs(&cn.Cond, cn)
	parseSpaces(cn, ps)
	if !parseSep(cn, ps, ':') {
		ps.error(errShouldBeColon)
		return
	}
	parseSpaces(cn, ps)
	parse(ps, &Element{}).addAs(&cn.Element, cn)
}

// States = 'states' '[' { StateDef } ']'
type States struct {
	node
	Defs []*StateDef
}

func (sn *States) parse(ps *parser) {
	parseKeyword(sn, ps, "states")
	parseSpaces(sn, ps)
	if !parseSep(sn, ps, '[') {
		ps.error(errShouldBeLBracket)
		return
	}
	parseSpaces(sn, ps)
	for startsIdent(ps.peek()) {
		parse(ps, &StateDef{}).addTo(&sn.Defs, sn)
		parseSpaces(sn, ps)
	}
	if !parseSep(sn, ps, ']') {
		ps.error(errShouldBeRBracket)
	}
}

// StateDef = Ident [ 'when' Expr ] ':' '{' { StateProp } '}'
type StateDef struct {
	node
	Name  *Ident
	When  *Expr
	Props []*StateProp
}

func (dn *StateDef) parse(ps *parser) {
	parseIdentInto(&dn.Name, dn, ps)
	parseSpaces(dn, ps)
	if ps.peekWord() == "when" {
		parseKeyword(dn, ps, "when")
		parseSpaces(dn, ps)
		parse(ps, &Expr{}).addAs(&dn.When, dn)
		parseSpaces(dn, ps)
	}
	if !parseSep(dn, ps, ':') {
		ps.error(errShouldBeColon)
		return
	}
	parseSpaces(dn, ps)
	if !parseSep(dn, ps, '{') {
		ps.error(errShouldBeLBrace)
		return
	}
	parseSpaces(dn, ps)
	for startsIdent(ps.peek()) {
		parse(ps, &StateProp{}).addTo(&dn.Props, dn)
		parseSpaces(dn, ps)
	}
	if !parseSep(dn, ps, '}') {
		ps.error(errShouldBeRBrace)
	}
}

// StateProp = Path ':' Expr ';'
type StateProp struct {
	node
	Target *Path
	Expr   *Expr
}

func (pn *StateProp) parse(ps *parser) {
	parse(ps, &Path{}).addAs(&pn.Target, pn)
	parseSpaces(pn, ps)
	if !parseSep(pn, ps, ':') {
		ps.error(errShouldBeColon)
		return
	}
	parseSpaces(pn, ps)
	parse(ps, &Expr{}).addAs(&pn.Expr, pn)
	parseSpaces(pn, ps)
	if !parseSep(pn, ps, ';') {
		ps.error(errShouldBeSemicolon)
	}
}

// Transitions = 'transitions' '[' { TransitionDef } ']'
type Transitions struct {
	node
	Defs []*TransitionDef
}

func (tn *Transitions) parse(ps *parser) {
	parseKeyword(tn, ps, "transitions")
	parseSpaces(tn, ps)
	if !parseSep(tn, ps, '[') {
		ps.error(errShouldBeLBracket)
		return
	}
	parseSpaces(tn, ps)
	for w := ps.peekWord(); w == "in" || w == "out"; w = ps.peekWord() {
		parse(ps, &TransitionDef{}).addTo(&tn.Defs, tn)
		parseSpaces(tn, ps)
	}
	if !parseSep(tn, ps, ']') {
		ps.error(errShouldBeRBracket)
	}
}

// TransitionDef = ( 'in' | 'out' ) Ident ':' '{' { Animate } '}'
type TransitionDef struct {
	node
	Out   bool
	State *Ident
	Anims []*Animate
}

func (dn *TransitionDef) parse(ps *parser) {
	w := ps.peekWord()
	parseKeyword(dn, ps, w)
	dn.Out = w == "out"
	parseSpaces(dn, ps)
	parseIdentInto(&dn.State, dn, ps)
	parseSpaces(dn, ps)
	if !parseSep(dn, ps, ':') {
		ps.error(errShouldBeColon)
		return
	}
	parseSpaces(dn, ps)
	if !parseSep(dn, ps, '{') {
		ps.error(errShouldBeLBrace)
		return
	}
	parseSpaces(dn, ps)
	for ps.peekWord() == "animate" {
		parse(ps, &Animate{}).addTo(&dn.Anims, dn)
		parseSpaces(dn, ps)
	}
	if !parseSep(dn, ps, '}') {
		ps.error(errShouldBeRBrace)
	}
}

// Animate = 'animate' Ident '{' { Binding } '}'
type Animate struct {
	node
	Prop     *Ident
	Bindings []*Binding
}

func (an *Animate) parse(ps *parser) {
	parseKeyword(an, ps, "animate")
	parseSpaces(an, ps)
	parseIdentInto(&an.Prop, an, ps)
	parseSpaces(an, ps)
	if !parseSep(an, ps, '{') {
		ps.error(errShouldBeLBrace)
		return
	}
	parseSpaces(an, ps)
	for startsIdent(ps.peek()) {
		parse(ps, &Binding{}).addTo(&an.Bindings, an)
		parseSpaces(an, ps)
	}
	if !parseSep(an, ps, '}') {
		ps.error(errShouldBeRBrace)
	}
}

// ChildrenPlaceholder = '@children' [ ';' ]
type ChildrenPlaceholder struct {
	node
}

func (cn *ChildrenPlaceholder) parse(ps *parser) {
	ps.next() // '@'
	addSep(cn, ps)
	if ps.peekWord() != "children" {
		ps.error(newError("", "'children'"))
		return
	}
	parseKeyword(cn, ps, "children")
	parseSpaces(cn, ps)
	parseSep(cn, ps, ';')
}

// TypeNode = Ident | '[' TypeNode ']' | '{' { TypeField [','] } '}'
type TypeNode struct {
	node
	Kind   TypeKind
	Name   *Ident
	Elem   *TypeNode
	Fields []*TypeField
}

// TypeKind enumerates the syntactic kinds of type references.
type TypeKind int

// Possible values for TypeKind.
const (
	BadType TypeKind = iota
	NamedType
	ArrayType
	AnonStructType
)

func (tn *TypeNode) parse(ps *parser) {
	switch r := ps.peek(); {
	case r == '[':
		tn.Kind = ArrayType
		parseSep(tn, ps, '[')
		parseSpaces(tn, ps)
		parse(ps, &TypeNode{}).addAs(&tn.Elem, tn)
		parseSpaces(tn, ps)
		if !parseSep(tn, ps, ']') {
			ps.error(errShouldBeRBracket)
		}
	case r == '{':
		tn.Kind = AnonStructType
		parseSep(tn, ps, '{')
		parseSpaces(tn, ps)
		for startsIdent(ps.peek()) {
			parse(ps, &TypeField{}).addTo(&tn.Fields, tn)
			parseSpaces(tn, ps)
			if parseSep(tn, ps, ',') {
				parseSpaces(tn, ps)
			}
		}
		if !parseSep(tn, ps, '}') {
			ps.error(errShouldBeRBrace)
		}
	case startsIdent(r):
		tn.Kind = NamedType
		parseIdentInto(&tn.Name, tn, ps)
	default:
		ps.error(errShouldBeTypeName)
	}
}

// Path = Ident { '.' Ident }
type Path struct {
	node
	Idents []*Ident
}

func (pn *Path) parse(ps *parser) {
	parse(ps, &Ident{}).addTo(&pn.Idents, pn)
	for parseSep(pn, ps, '.') {
		if !startsIdent(ps.peek()) {
			ps.error(errShouldBeIdent)
			return
		}
		parse(ps, &Ident{}).addTo(&pn.Idents, pn)
	}
}

// Ident is a leaf node for an identifier. Dashes are part of identifiers when
// followed by a letter or digit, so in-out and border-width are single
// identifiers; subtraction requires surrounding whitespace.
type Ident struct {
	node
	Name string
}

func (in *Ident) parse(ps *parser) {
	in.parseInner(ps)
	if in.Name == "" {
		ps.error(errShouldBeIdent)
	}
}

func (in *Ident) parseInner(ps *parser) {
	begin := ps.pos
	if !startsIdent(ps.peek()) {
		in.Name = ""
		return
	}
	ps.next()
	for {
		r := ps.peek()
		if allowedInIdent(r) {
			ps.next()
		} else if r == '-' {
			ps.next()
			if !allowedInIdent(ps.peek()) {
				ps.backup()
				break
			}
		} else {
			break
		}
	}
	in.Name = ps.src[begin:ps.pos]
}

func startsIdent(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func allowedInIdent(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// peekWord returns the identifier starting at the current position without
// consuming it, or "" if the current position does not start an identifier.
func (ps *parser) peekWord() string {
	begin := ps.save()
	var scratch Ident
	scratch.parseInner(ps)
	ps.restore(begin)
	return scratch.Name
}

// parseKeyword consumes the given keyword, which the caller must have checked
// with peekWord, and records it as a Sep child.
func parseKeyword(n Node, ps *parser, kw string) {
	for range kw {
		ps.next()
	}
	addSep(n, ps)
}

// parseIdentInto parses an identifier as a child of n.
func parseIdentInto(ptr **Ident, n Node, ps *parser) {
	parse(ps, &Ident{}).addAs(ptr, n)
}

// Expr = Unary { BinaryOp Unary } [ '?' Expr ':' Expr ]
//
// Binary operator precedence is resolved by the object tree builder; the
// parse tree keeps the flat operand/operator sequence.
type Expr struct {
	node
	Operands []*Unary
	Ops      []*BinaryOp
	// Conditional parts; both nil unless a '?' follows the operand sequence.
	Then *Expr
	Else *Expr
}

func (en *Expr) parse(ps *parser) {
	if !startsUnary(ps.peek()) {
		ps.error(errShouldBeExpr)
		return
	}
	parse(ps, &Unary{}).addTo(&en.Operands, en)
	parseSpaces(en, ps)
	for startsBinaryOp(ps) {
		parse(ps, &BinaryOp{}).addTo(&en.Ops, en)
		parseSpaces(en, ps)
		if !startsUnary(ps.peek()) {
			ps.error(errShouldBeExpr)
			return
		}
		parse(ps, &Unary{}).addTo(&en.Operands, en)
		parseSpaces(en, ps)
	}
	if parseSep(en, ps, '?') {
		parseSpaces(en, ps)
		parse(ps, &Expr{}).addAs(&en.Then, en)
		parseSpaces(en, ps)
		if !parseSep(en, ps, ':') {
			ps.error(errShouldBeColon)
			return
		}
		parseSpaces(en, ps)
		parse(ps, &Expr{}).addAs(&en.Else, en)
	}
}

// BinaryOp is a leaf node for a binary operator.
type BinaryOp struct {
	node
	Op string
}

var binaryOps = []string{
	"&&", "||", "==", "!=", "<=", ">=", "+", "-", "*", "/", "<", ">",
}

func startsBinaryOp(ps *parser) bool {
	if ps.hasPrefix("<=>") || ps.hasPrefix("=>") {
		return false
	}
	for _, op := range binaryOps {
		if ps.hasPrefix(op) {
			return true
		}
	}
	return false
}

func (on *BinaryOp) parse(ps *parser) {
	for _, op := range binaryOps {
		if ps.hasPrefix(op) {
			for range op {
				ps.next()
			}
			on.Op = op
			return
		}
	}
	ps.error(newError("", "binary operator"))
}

// Unary = { '-' | '!' } Postfix
type Unary struct {
	node
	Ops     []string
	Postfix *Postfix
}

func (un *Unary) parse(ps *parser) {
	for {
		r := ps.peek()
		if r == '-' || r == '!' {
			ps.next()
			un.Ops = append(un.Ops, string(r))
			addSep(un, ps)
			parseSpaces(un, ps)
		} else {
			break
		}
	}
	parse(ps, &Postfix{}).addAs(&un.Postfix, un)
}

func startsUnary(r rune) bool {
	return r == '-' || r == '!' || startsPrimary(r)
}

// Postfix = Primary { '.' Ident | '(' [ Expr { ',' Expr } ] ')' | '[' Expr ']' }
type Postfix struct {
	node
	Head     *Primary
	Accesses []*Access
}

func (pn *Postfix) parse(ps *parser) {
	parse(ps, &Primary{}).addAs(&pn.Head, pn)
	for {
		switch ps.peek() {
		case '.':
			parse(ps, &Access{Kind: FieldAccess}).addTo(&pn.Accesses, pn)
		case '(':
			parse(ps, &Access{Kind: CallAccess}).addTo(&pn.Accesses, pn)
		case '[':
			parse(ps, &Access{Kind: IndexAccess}).addTo(&pn.Accesses, pn)
		default:
			return
		}
	}
}

// AccessKind enumerates the kinds of postfix accesses.
type AccessKind int

// Possible values for AccessKind.
const (
	FieldAccess AccessKind = iota
	CallAccess
	IndexAccess
)

// Access is a postfix access: a field selection, a call or an index.
type Access struct {
	node
	Kind  AccessKind
	Field *Ident
	Args  []*Expr
	Index *Expr
}

func (an *Access) parse(ps *parser) {
	switch an.Kind {
	case FieldAccess:
		parseSep(an, ps, '.')
		if !startsIdent(ps.peek()) {
			ps.error(errShouldBeIdent)
			return
		}
		parse(ps, &Ident{}).addAs(&an.Field, an)
	case CallAccess:
		parseSep(an, ps, '(')
		parseSpaces(an, ps)
		for startsUnary(ps.peek()) {
			parse(ps, &Expr{}).addTo(&an.Args, an)
			parseSpaces(an, ps)
			if !parseSep(an, ps, ',') {
				break
			}
			parseSpaces(an, ps)
		}
		if !parseSep(an, ps, ')') {
			ps.error(errShouldBeRParen)
		}
	case IndexAccess:
		parseSep(an, ps, '[')
		parseSpaces(an, ps)
		parse(ps, &Expr{}).addAs(&an.Index, an)
		parseSpaces(an, ps)
		if !parseSep(an, ps, ']') {
			ps.error(errShouldBeRBracket)
		}
	}
}

// Primary is the smallest expression unit.
type Primary struct {
	node
	Type PrimaryType
	// The text value. Valid for NumberPrimary (without the unit), StrPrimary
	// (unquoted), ColorPrimary (including '#') and IdentPrimary.
	Value string
	// The unit suffix of a number: "px", "%", "ms", "s" or "".
	Unit     string
	Str      *Str        // valid for StrPrimary
	Sub      *Expr       // valid for ParenPrimary
	Elements []*Expr     // valid for ArrayPrimary
	Fields   []*FieldInit // valid for StructPrimary
	Block    *Block      // valid for BlockPrimary
}

// PrimaryType is the type of a Primary.
type PrimaryType int

// Possible values for PrimaryType.
const (
	BadPrimary PrimaryType = iota
	NumberPrimary
	StrPrimary
	ColorPrimary
	IdentPrimary
	ParenPrimary
	ArrayPrimary
	StructPrimary
	BlockPrimary
)

func (pn *Primary) parse(ps *parser) {
	switch r := ps.peek(); {
	case r >= '0' && r <= '9':
		pn.number(ps)
	case r == '"':
		pn.Type = StrPrimary
		parse(ps, &Str{}).addAs(&pn.Str, pn)
		pn.Value = pn.Str.Value
	case r == '#':
		pn.color(ps)
	case r == '(':
		pn.Type = ParenPrimary
		parseSep(pn, ps, '(')
		parseSpaces(pn, ps)
		parse(ps, &Expr{}).addAs(&pn.Sub, pn)
		parseSpaces(pn, ps)
		if !parseSep(pn, ps, ')') {
			ps.error(errShouldBeRParen)
		}
	case r == '[':
		pn.Type = ArrayPrimary
		parseSep(pn, ps, '[')
		parseSpaces(pn, ps)
		for startsUnary(ps.peek()) {
			parse(ps, &Expr{}).addTo(&pn.Elements, pn)
			parseSpaces(pn, ps)
			if !parseSep(pn, ps, ',') {
				break
			}
			parseSpaces(pn, ps)
		}
		if !parseSep(pn, ps, ']') {
			ps.error(errShouldBeRBracket)
		}
	case r == '{':
		pn.lbrace(ps)
	case startsIdent(r):
		pn.Type = IdentPrimary
		var in Ident
		in.parseInner(ps)
		pn.Value = in.Name
		addSep(pn, ps)
	default:
		ps.error(errShouldBeExpr)
	}
}

func startsPrimary(r rune) bool {
	return (r >= '0' && r <= '9') || r == '"' || r == '#' || r == '(' ||
		r == '[' || r == '{' || startsIdent(r)
}

func (pn *Primary) number(ps *parser) {
	pn.Type = NumberPrimary
	begin := ps.pos
	for r := ps.peek(); r >= '0' && r <= '9'; r = ps.peek() {
		ps.next()
	}
	if ps.peek() == '.' {
		ps.next()
		if r := ps.peek(); r < '0' || r > '9' {
			ps.backup()
		} else {
			for r := ps.peek(); r >= '0' && r <= '9'; r = ps.peek() {
				ps.next()
			}
		}
	}
	pn.Value = ps.src[begin:ps.pos]
	switch {
	case ps.hasPrefix("px"):
		ps.next()
		ps.next()
		pn.Unit = "px"
	case ps.hasPrefix("ms"):
		ps.next()
		ps.next()
		pn.Unit = "ms"
	case ps.hasPrefix("deg"):
		ps.next()
		ps.next()
		ps.next()
		pn.Unit = "deg"
	case ps.peek() == '%':
		ps.next()
		pn.Unit = "%"
	case ps.peek() == 's' && !allowedInIdent(peek2(ps)):
		ps.next()
		pn.Unit = "s"
	}
	addSep(pn, ps)
}

func peek2(ps *parser) rune {
	ps.next()
	r := ps.peek()
	ps.backup()
	return r
}

func (pn *Primary) color(ps *parser) {
	pn.Type = ColorPrimary
	begin := ps.pos
	ps.next() // '#'
	n := 0
	for isHexDigit(ps.peek()) {
		ps.next()
		n++
	}
	if n != 3 && n != 6 && n != 8 {
		ps.error(errInvalidColor)
	}
	pn.Value = ps.src[begin:ps.pos]
	addSep(pn, ps)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// lbrace parses either a struct literal or a code block. A '{' followed by an
// identifier and ':' is a struct literal; anything else is a block.
func (pn *Primary) lbrace(ps *parser) {
	begin := ps.save()
	ps.next() // '{'
	ps.parseSpacesOnly()
	var scratch Ident
	scratch.parseInner(ps)
	ps.parseSpacesOnly()
	isStruct := scratch.Name != "" && ps.peek() == ':' && !ps.hasPrefix("::")
	ps.restore(begin)

	if isStruct {
		pn.Type = StructPrimary
		parseSep(pn, ps, '{')
		parseSpaces(pn, ps)
		for startsIdent(ps.peek()) {
			parse(ps, &FieldInit{}).addTo(&pn.Fields, pn)
			parseSpaces(pn, ps)
			if !parseSep(pn, ps, ',') {
				break
			}
			parseSpaces(pn, ps)
		}
		if !parseSep(pn, ps, '}') {
			ps.error(errShouldBeRBrace)
		}
	} else {
		pn.Type = BlockPrimary
		parse(ps, &Block{}).addAs(&pn.Block, pn)
	}
}

// FieldInit = Ident ':' Expr
type FieldInit struct {
	node
	Name *Ident
	Expr *Expr
}

func (fn *FieldInit) parse(ps *parser) {
	parseIdentInto(&fn.Name, fn, ps)
	parseSpaces(fn, ps)
	if !parseSep(fn, ps, ':') {
		ps.error(errShouldBeColon)
		return
	}
	parseSpaces(fn, ps)
	parse(ps, &Expr{}).addAs(&fn.Expr, fn)
}

// Block = '{' { Stmt } '}'
type Block struct {
	node
	Stmts []*Stmt
}

func (bn *Block) parse(ps *parser) {
	if !parseSep(bn, ps, '{') {
		ps.error(errShouldBeLBrace)
		return
	}
	parseSpaces(bn, ps)
	for ps.peek() != '}' && ps.peek() != eof {
		before := ps.pos
		parse(ps, &Stmt{}).addTo(&bn.Stmts, bn)
		if ps.pos == before && ps.peek() != '}' {
			ps.next()
			addSep(bn, ps)
		}
		parseSpaces(bn, ps)
	}
	if !parseSep(bn, ps, '}') {
		ps.error(errShouldBeRBrace)
	}
}

// StmtKind enumerates the kinds of statements in a block.
type StmtKind int

// Possible values for StmtKind.
const (
	ExprStmt StmtKind = iota
	AssignStmt
	ReturnStmt
)

// Stmt = 'return' [ Expr ] ';'
//
//	| Path ( '=' | '+=' | '-=' | '*=' | '/=' ) Expr ';'
//	| Expr [ ';' ]
type Stmt struct {
	node
	Kind   StmtKind
	Target *Path // valid for AssignStmt
	Op     string
	Expr   *Expr
}

func (sn *Stmt) parse(ps *parser) {
	if ps.peekWord() == "return" {
		sn.Kind = ReturnStmt
		parseKeyword(sn, ps, "return")
		parseSpaces(sn, ps)
		if startsUnary(ps.peek()) && ps.peek() != ';' {
			parse(ps, &Expr{}).addAs(&sn.Expr, sn)
			parseSpaces(sn, ps)
		}
		if !parseSep(sn, ps, ';') {
			ps.error(errShouldBeSemicolon)
		}
		return
	}

	// Speculate an assignment: Path followed by an assignment operator.
	begin := ps.save()
	assign := false
	var op string
	if startsIdent(ps.peek()) {
		var scratch Path
		scratch.parse(ps)
		ps.parseSpacesOnly()
		for _, o := range []string{"+=", "-=", "*=", "/=", "="} {
			if ps.hasPrefix(o) && !ps.hasPrefix("==") {
				assign = true
				op = o
				break
			}
		}
	}
	ps.restore(begin)

	if assign {
		sn.Kind = AssignStmt
		sn.Op = op
		parse(ps, &Path{}).addAs(&sn.Target, sn)
		parseSpaces(sn, ps)
		for range op {
			ps.next()
		}
		addSep(sn, ps)
		parseSpaces(sn, ps)
		parse(ps, &Expr{}).addAs(&sn.Expr, sn)
		parseSpaces(sn, ps)
		if !parseSep(sn, ps, ';') {
			ps.error(errShouldBeSemicolon)
		}
		return
	}

	sn.Kind = ExprStmt
	if !startsUnary(ps.peek()) {
		ps.error(errShouldBeExpr)
		skipToBoundary(sn, ps)
		return
	}
	parse(ps, &Expr{}).addAs(&sn.Expr, sn)
	parseSpaces(sn, ps)
	// The trailing expression of a block may omit the semicolon.
	parseSep(sn, ps, ';')
}

// Str is a double-quoted string literal leaf.
type Str struct {
	node
	Value string
}

func (sn *Str) parse(ps *parser) {
	var sb strings.Builder
	defer func() { sn.Value = sb.String() }()
	ps.next() // opening quote
	for {
		switch r := ps.next(); r {
		case eof:
			ps.error(errStringUnterminated)
			addSep(sn, ps)
			return
		case '"':
			addSep(sn, ps)
			return
		case '\\':
			switch r := ps.next(); r {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"':
				sb.WriteRune(r)
			default:
				ps.backup()
				ps.error(errInvalidEscape)
				ps.next()
			}
		default:
			sb.WriteRune(r)
		}
	}
}

// skipToBoundary consumes input until after the next ';' or until before the
// next '}' or ']', so that parsing can continue past a malformed region. It
// returns false if it ran into EOF.
func skipToBoundary(n Node, ps *parser) bool {
	for {
		switch r := ps.peek(); r {
		case eof:
			addSep(n, ps)
			return false
		case ';':
			ps.next()
			addSep(n, ps)
			return true
		case '}', ']':
			addSep(n, ps)
			return true
		default:
			ps.next()
		}
	}
}

// parseSpaces parses whitespace and comments (both line and block) as Sep
// children of n.
func parseSpaces(n Node, ps *parser) {
spaces:
	for {
		r := ps.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			ps.next()
		case r == '/' && ps.hasPrefix("//"):
			for {
				r := ps.peek()
				if r == eof || r == '\r' || r == '\n' {
					break
				}
				ps.next()
			}
		case r == '/' && ps.hasPrefix("/*"):
			ps.next()
			ps.next()
			for {
				if ps.peek() == eof {
					break
				}
				if ps.hasPrefix("*/") {
					ps.next()
					ps.next()
					break
				}
				ps.next()
			}
		default:
			break spaces
		}
	}
	addSep(n, ps)
}

// parseSpacesOnly advances over whitespace and comments without recording
// separators. Used only inside speculative parses that will be restored.
func (ps *parser) parseSpacesOnly() {
	for {
		r := ps.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			ps.next()
		case r == '/' && (ps.hasPrefix("//") || ps.hasPrefix("/*")):
			ps.next()
			ps.next()
			if ps.src[ps.pos-1] == '*' {
				for ps.peek() != eof && !ps.hasPrefix("*/") {
					ps.next()
				}
				if ps.hasPrefix("*/") {
					ps.next()
					ps.next()
				}
			} else {
				for ps.peek() != eof && ps.peek() != '\n' {
					ps.next()
				}
			}
		default:
			return
		}
	}
}

// Sep is the catch-all node type for leaf nodes that lack internal structures
// and semantics, and serve solely for syntactic purposes.
type Sep struct {
	node
}

// NewSep makes a new Sep.
func NewSep(src string, begin, end int) *Sep {
	return &Sep{node: node{Ranging: diag.Ranging{From: begin, To: end}, sourceText: src[begin:end]}}
}

func (*Sep) parse(*parser) {
	// A no-op, only to satisfy the Node interface.
}

func addSep(n Node, ps *parser) {
	var begin int
	ch := Children(n)
	if len(ch) > 0 {
		begin = ch[len(ch)-1].Range().To
	} else {
		begin = n.Range().From
	}
	if begin < ps.pos {
		addChild(n, NewSep(ps.src, begin, ps.pos))
	}
}

func parseSep(n Node, ps *parser, sep rune) bool {
	if ps.peek() == sep {
		ps.next()
		addSep(n, ps)
		return true
	}
	return false
}
