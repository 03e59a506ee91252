// Package capture walks a snapshot tree and emits its text-bearing nodes.
package capture

// Node is one element of a snapshot tree as exposed by the event source.
//
// Handles returned by Child are owned by the caller and must be released
// exactly once. The root handle belongs to whoever obtained it.
type Node interface {
	// Text returns the node's text, ok=false if it has none.
	Text() (text string, ok bool)
	// ElementID identifies the UI element, ok=false if unavailable.
	ElementID() (id string, ok bool)
	// SourceID identifies the owning application, ok=false if unavailable.
	SourceID() (id string, ok bool)
	ChildCount() int
	// Child acquires the i-th child. An error means the child went away
	// between ChildCount and Child; it is not fatal to the walk. A handle
	// returned alongside an error is still released.
	Child(i int) (Node, error)
	Release()
}

// Item is one piece of text found in a snapshot.
type Item struct {
	Content   string
	ElementID string // "" when the node had no element identifier
	SourceID  string // "" when the node had no source identifier
}
