package snapshot

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hpungsan/glean/internal/capture"
)

// ErrGone is returned by Child for a node that vanished from the snapshot.
var ErrGone = errors.New("snapshot: node no longer exists")

// Tree serves a decoded document as capture.Node handles and counts the
// child handles that have been acquired but not yet released.
type Tree struct {
	doc         *Doc
	outstanding atomic.Int64
	acquired    atomic.Int64
}

// NewTree wraps doc. A nil doc yields a tree whose Root is nil.
func NewTree(doc *Doc) *Tree {
	return &Tree{doc: doc}
}

// Root returns the root handle, or nil for an empty tree.
// The root is not counted as outstanding.
func (t *Tree) Root() capture.Node {
	if t == nil || t.doc == nil {
		return nil
	}
	return &node{doc: t.doc, tree: t}
}

// Outstanding returns the number of child handles not yet released.
func (t *Tree) Outstanding() int64 {
	return t.outstanding.Load()
}

// Acquired returns the total number of child handles handed out.
func (t *Tree) Acquired() int64 {
	return t.acquired.Load()
}

type node struct {
	doc      *Doc
	tree     *Tree
	owned    bool
	released atomic.Bool
}

func (n *node) Text() (string, bool) {
	if n.doc.Text == nil {
		return "", false
	}
	return *n.doc.Text, true
}

func (n *node) ElementID() (string, bool) {
	if n.doc.ID == nil {
		return "", false
	}
	return *n.doc.ID, true
}

func (n *node) SourceID() (string, bool) {
	if n.doc.Source == nil {
		return "", false
	}
	return *n.doc.Source, true
}

func (n *node) ChildCount() int {
	return len(n.doc.Children)
}

func (n *node) Child(i int) (capture.Node, error) {
	if i < 0 || i >= len(n.doc.Children) {
		return nil, fmt.Errorf("snapshot: child %d out of range [0,%d)", i, len(n.doc.Children))
	}
	c := n.doc.Children[i]
	if c == nil || c.Gone {
		return nil, ErrGone
	}
	n.tree.acquired.Add(1)
	n.tree.outstanding.Add(1)
	return &node{doc: c, tree: n.tree, owned: true}, nil
}

// Release returns a child handle. Releasing twice, or releasing the root, is a no-op.
func (n *node) Release() {
	if !n.owned {
		return
	}
	if n.released.CompareAndSwap(false, true) {
		n.tree.outstanding.Add(-1)
	}
}
