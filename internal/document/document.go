// Package document represents one parsed source file: its raw bytes,
// the content hash that identifies it, and the node tree produced by the
// tree-sitter parser. Two documents with equal content hash are identical
// for all metric-storage purposes.
package document

import (
	"crypto/sha256"
	"encoding/hex"
)

// Node is one node of the parsed tree. Leaves correspond to tokens.
type Node struct {
	// Type is the grammar node type (e.g. "identifier", "comment").
	Type string
	// StartByte and EndByte delimit the node's span in the source.
	StartByte uint32
	EndByte   uint32
	// Named reports whether the node is a named grammar node
	// (as opposed to an anonymous literal token).
	Named bool
	// Children are the node's children in source order.
	Children []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// clone deep-copies the node and its subtree.
func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Type:      n.Type,
		StartByte: n.StartByte,
		EndByte:   n.EndByte,
		Named:     n.Named,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.clone()
		}
	}
	return c
}

// Document is an immutable-once-parsed representation of one source file.
// The source bytes are never mutated; destructive plugins mutate the node
// tree in place via Prune.
type Document struct {
	hash     string
	path     string
	language string
	source   []byte
	root     *Node
}

// ContentHash returns the hex SHA-256 digest of the raw source bytes.
// This is the document's primary identity for dedup and storage.
func (d *Document) ContentHash() string {
	return d.hash
}

// Path returns the origin path the document was parsed from. Advisory only;
// identity is the content hash.
func (d *Document) Path() string {
	return d.path
}

// Language returns the detected source language.
func (d *Document) Language() string {
	return d.language
}

// Size returns the raw source length in bytes.
func (d *Document) Size() int64 {
	return int64(len(d.source))
}

// Source returns the raw source bytes. Callers must not modify them.
func (d *Document) Source() []byte {
	return d.source
}

// Root returns the root of the node tree.
func (d *Document) Root() *Node {
	return d.root
}

// NodeText returns the source text spanned by a node.
func (d *Document) NodeText(n *Node) string {
	if n == nil || int(n.EndByte) > len(d.source) || n.StartByte > n.EndByte {
		return ""
	}
	return string(d.source[n.StartByte:n.EndByte])
}

// Clone returns a deep copy of the document. The node tree is copied so
// destructive plugins cannot affect the original; the source bytes are
// shared because they are never mutated.
func (d *Document) Clone() *Document {
	return &Document{
		hash:     d.hash,
		path:     d.path,
		language: d.language,
		source:   d.source,
		root:     d.root.clone(),
	}
}

// Prune removes every node (and its subtree) for which keep returns false.
// The root is never removed. This mutates the document in place and is the
// destructive operation plugins may apply.
func (d *Document) Prune(keep func(*Node) bool) {
	if d.root == nil {
		return
	}
	prune(d.root, keep)
}

func prune(n *Node, keep func(*Node) bool) {
	kept := n.Children[:0]
	for _, child := range n.Children {
		if !keep(child) {
			continue
		}
		prune(child, keep)
		kept = append(kept, child)
	}
	// Release references past the new length.
	for i := len(kept); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = kept
}

// Walk traverses the tree preorder. Returning false from fn skips the
// node's subtree.
func (d *Document) Walk(fn func(*Node) bool) {
	walk(d.root, fn)
}

func walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		walk(child, fn)
	}
}

// Tokens returns the leaf nodes in source order. For a freshly parsed
// document this is the token stream; after pruning it reflects the
// surviving nodes only.
func (d *Document) Tokens() []*Node {
	var leaves []*Node
	d.Walk(func(n *Node) bool {
		if n.IsLeaf() && n != d.root {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}

// HashBytes returns the hex SHA-256 digest of raw content. It is the same
// digest Parse assigns, usable to dedup-gate before parsing.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
