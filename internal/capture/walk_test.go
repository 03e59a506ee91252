package capture

import (
	"errors"
	"fmt"
	"testing"
)

// fakeNode is an in-memory tree node that counts acquired handles.
type fakeNode struct {
	text     *string
	id       *string
	source   *string
	children []*fakeNode
	gone     bool // Child() for this node fails
	leaky    bool // with gone, Child() also hands out the handle

	tracker *tracker
}

type tracker struct {
	acquired int
	released int
	order    []string // release order, by text or "?"
}

func (t *tracker) outstanding() int { return t.acquired - t.released }

func str(s string) *string { return &s }

func (n *fakeNode) Text() (string, bool) {
	if n.text == nil {
		return "", false
	}
	return *n.text, true
}

func (n *fakeNode) ElementID() (string, bool) {
	if n.id == nil {
		return "", false
	}
	return *n.id, true
}

func (n *fakeNode) SourceID() (string, bool) {
	if n.source == nil {
		return "", false
	}
	return *n.source, true
}

func (n *fakeNode) ChildCount() int { return len(n.children) }

func (n *fakeNode) Child(i int) (Node, error) {
	c := n.children[i]
	if c.gone {
		if c.leaky {
			c.tracker = n.tracker
			n.tracker.acquired++
			return c, errors.New("node no longer exists")
		}
		return nil, errors.New("node no longer exists")
	}
	c.tracker = n.tracker
	n.tracker.acquired++
	return c, nil
}

func (n *fakeNode) Release() {
	n.tracker.released++
	label := "?"
	if n.text != nil {
		label = *n.text
	}
	n.tracker.order = append(n.tracker.order, label)
}

func leaf(text string) *fakeNode {
	return &fakeNode{text: str(text), id: str("id-" + text), source: str("com.foo")}
}

func branch(children ...*fakeNode) *fakeNode {
	return &fakeNode{children: children}
}

func newRoot(n *fakeNode) *fakeNode {
	n.tracker = &tracker{}
	return n
}

func collect(root Node) ([]Item, Stats) {
	var items []Item
	st := Walk(root, func(it Item) { items = append(items, it) })
	return items, st
}

func contents(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Content
	}
	return out
}

func TestWalk_NilRoot(t *testing.T) {
	items, st := collect(nil)
	if len(items) != 0 || st.Visited != 0 {
		t.Errorf("nil root: items=%v stats=%+v", items, st)
	}
}

func TestWalk_PreOrder(t *testing.T) {
	// A
	// ├── B
	// │   ├── D
	// │   └── E
	// └── C
	//     └── F
	a := leaf("A")
	b := leaf("B")
	c := leaf("C")
	b.children = []*fakeNode{leaf("D"), leaf("E")}
	c.children = []*fakeNode{leaf("F")}
	a.children = []*fakeNode{b, c}
	root := newRoot(a)

	items, st := collect(root)

	want := []string{"A", "B", "D", "E", "C", "F"}
	got := contents(items)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if st.Visited != 6 || st.Emitted != 6 {
		t.Errorf("stats = %+v", st)
	}
	if st.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", st.MaxDepth)
	}
}

func TestWalk_NonTextNodesStillRecurse(t *testing.T) {
	// 3 text nodes among 7 total; text sits under textless parents
	root := newRoot(branch(
		branch(leaf("one"), branch(leaf("two"))),
		&fakeNode{text: str("")},
		branch(leaf("three")),
	))

	items, st := collect(root)

	if got := contents(items); fmt.Sprint(got) != "[one two three]" {
		t.Errorf("items = %v, want [one two three]", got)
	}
	if st.Visited != 8 {
		t.Errorf("Visited = %d, want 8", st.Visited)
	}
	if st.Emitted != 3 {
		t.Errorf("Emitted = %d, want 3", st.Emitted)
	}
}

func TestWalk_ParentEmitsBeforeChildren(t *testing.T) {
	parent := leaf("parent")
	parent.children = []*fakeNode{leaf("child")}
	root := newRoot(branch(parent))

	items, _ := collect(root)
	if got := contents(items); fmt.Sprint(got) != "[parent child]" {
		t.Errorf("items = %v, want [parent child]", got)
	}
}

func TestWalk_MissingIdentifiers(t *testing.T) {
	root := newRoot(branch(&fakeNode{text: str("bare")}))

	items, _ := collect(root)
	if len(items) != 1 {
		t.Fatalf("items = %v, want 1", items)
	}
	if items[0].ElementID != "" || items[0].SourceID != "" {
		t.Errorf("absent identifiers should be empty, got %+v", items[0])
	}
}

func TestWalk_ReleasesEveryChild(t *testing.T) {
	root := newRoot(branch(
		branch(leaf("a"), leaf("b")),
		leaf("c"),
	))

	collect(root)

	tr := root.tracker
	if tr.acquired != 4 {
		t.Errorf("acquired = %d, want 4", tr.acquired)
	}
	if tr.outstanding() != 0 {
		t.Errorf("outstanding handles = %d, want 0", tr.outstanding())
	}
	// Each child is released right after its own subtree: a, b, their parent, then c
	if fmt.Sprint(tr.order) != "[a b ? c]" {
		t.Errorf("release order = %v, want [a b ? c]", tr.order)
	}
}

func TestWalk_TransientChildErrorSkipsOnlyThatChild(t *testing.T) {
	gone := leaf("gone")
	gone.gone = true
	gone.children = []*fakeNode{leaf("never")}
	root := newRoot(branch(leaf("before"), gone, leaf("after")))

	items, st := collect(root)

	if got := contents(items); fmt.Sprint(got) != "[before after]" {
		t.Errorf("items = %v, want [before after]", got)
	}
	if st.ChildErrors != 1 {
		t.Errorf("ChildErrors = %d, want 1", st.ChildErrors)
	}
	if root.tracker.outstanding() != 0 {
		t.Errorf("outstanding handles = %d, want 0", root.tracker.outstanding())
	}
}

func TestWalk_ReleasesHandleReturnedWithError(t *testing.T) {
	stale := leaf("stale")
	stale.gone = true
	stale.leaky = true
	root := newRoot(branch(stale, leaf("next")))

	items, st := collect(root)

	if got := contents(items); fmt.Sprint(got) != "[next]" {
		t.Errorf("items = %v, want [next]", got)
	}
	if st.ChildErrors != 1 {
		t.Errorf("ChildErrors = %d, want 1", st.ChildErrors)
	}
	if root.tracker.outstanding() != 0 {
		t.Errorf("outstanding handles = %d, want 0", root.tracker.outstanding())
	}
}

func TestWalk_PanicInEmitReleasesHeldHandles(t *testing.T) {
	deep := leaf("boom")
	root := newRoot(branch(branch(branch(deep))))

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		Walk(root, func(it Item) {
			if it.Content == "boom" {
				panic("emit failed")
			}
		})
	}()

	if root.tracker.outstanding() != 0 {
		t.Errorf("outstanding handles after panic = %d, want 0", root.tracker.outstanding())
	}
}

func TestWalk_RootNotReleased(t *testing.T) {
	root := newRoot(leaf("only"))
	collect(root)
	if root.tracker.released != 0 {
		t.Errorf("root released %d times, want 0", root.tracker.released)
	}
}

func TestWalk_PathologicalDepth(t *testing.T) {
	const depth = 100000
	top := branch()
	cur := top
	for i := 0; i < depth; i++ {
		next := branch()
		cur.children = []*fakeNode{next}
		cur = next
	}
	cur.text = str("bottom")
	root := newRoot(top)

	items, st := collect(root)

	if len(items) != 1 || items[0].Content != "bottom" {
		t.Errorf("items = %v", contents(items))
	}
	if st.MaxDepth != depth {
		t.Errorf("MaxDepth = %d, want %d", st.MaxDepth, depth)
	}
	if root.tracker.outstanding() != 0 {
		t.Errorf("outstanding handles = %d, want 0", root.tracker.outstanding())
	}
}
