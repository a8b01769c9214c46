package parse

import (
	"github.com/vellum-ui/vellum/pkg/diag"
)

// Node represents a parse tree node.
type Node interface {
	diag.Ranger
	parse(*parser)
	n() *node
}

// node is the base of all parse tree nodes. Each concrete node type embeds it
// and gains the range, source text and parent/children bookkeeping that makes
// the tree lossless: concatenating the source text of all leaves reproduces
// the input exactly.
type node struct {
	diag.Ranging
	sourceText string
	parent     Node
	children   []Node
}

func (n *node) n() *node { return n }

func (n *node) addChild(ch Node) { n.children = append(n.children, ch) }

// Parent returns the parent of a node. It returns nil if the node is the root
// of the parse tree.
func Parent(n Node) Node { return n.n().parent }

// SourceText returns the part of the source text that parses to the node.
func SourceText(n Node) string { return n.n().sourceText }

// Children returns all children of the node in the parse tree.
func Children(n Node) []Node { return n.n().children }

// Leaves returns all leaf nodes under n, in source order.
func Leaves(n Node) []Node {
	var leaves []Node
	var collect func(Node)
	collect = func(n Node) {
		ch := Children(n)
		if len(ch) == 0 {
			leaves = append(leaves, n)
			return
		}
		for _, c := range ch {
			collect(c)
		}
	}
	collect(n)
	return leaves
}
