package capture

// Stats summarizes one walk.
type Stats struct {
	Visited     int `json:"visited"`      // nodes inspected, root included
	Emitted     int `json:"emitted"`      // items passed to emit
	ChildErrors int `json:"child_errors"` // children that could not be acquired
	MaxDepth    int `json:"max_depth"`    // deepest level reached, root at 0
}

// frame is a node on the walk stack together with the index of the next
// child to visit. owned marks handles acquired by the walker.
type frame struct {
	node  Node
	next  int
	count int
	owned bool
}

// Walk visits root depth-first in pre-order and calls emit for every node
// that carries non-empty text, before descending into its children.
// Children are visited in the order the node exposes them whether or not
// their parent emitted.
//
// Each child handle is released as soon as its subtree is finished. If emit
// panics, every handle still held is released before the panic propagates.
// The root is never released. A nil root is a no-op.
//
// The walk keeps its own stack, so tree depth is bounded by memory rather
// than by goroutine stack size.
func Walk(root Node, emit func(Item)) Stats {
	var st Stats
	if root == nil {
		return st
	}

	stack := []frame{}
	defer func() {
		// Only non-empty on panic: release what we still hold, innermost first.
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].owned {
				stack[i].node.Release()
			}
		}
	}()

	stack = append(stack, visit(root, false, 0, &st, emit))

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= top.count {
			done := *top
			stack = stack[:len(stack)-1]
			if done.owned {
				done.node.Release()
			}
			continue
		}

		i := top.next
		top.next++

		child, err := top.node.Child(i)
		if err != nil {
			if child != nil {
				child.Release()
			}
			st.ChildErrors++
			continue
		}
		if child == nil {
			continue
		}

		// Push first so a panic inside visit still releases the child.
		stack = append(stack, frame{node: child, owned: true})
		stack[len(stack)-1] = visit(child, true, len(stack)-1, &st, emit)
	}

	return st
}

// visit emits n's text, if any, and returns its frame.
func visit(n Node, owned bool, depth int, st *Stats, emit func(Item)) frame {
	st.Visited++
	if depth > st.MaxDepth {
		st.MaxDepth = depth
	}

	if text, ok := n.Text(); ok && text != "" {
		item := Item{Content: text}
		if id, ok := n.ElementID(); ok {
			item.ElementID = id
		}
		if src, ok := n.SourceID(); ok {
			item.SourceID = src
		}
		st.Emitted++
		emit(item)
	}

	return frame{node: n, count: n.ChildCount(), owned: owned}
}
