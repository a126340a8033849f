// Package tree provides the ordinary pointer-based trees that succinct
// trees are built from and exported back to.
package tree

// Node is a labelled node with ordered children.
type Node[L any] struct {
	Label    L
	Children []*Node[L]
}

// NewNode returns a node with the given label and children.
func NewNode[L any](label L, children ...*Node[L]) *Node[L] {
	return &Node[L]{Label: label, Children: children}
}

// Add appends a new child with the given label and returns it, so that
// trees can be built top-down by handle:
//
//	root := tree.NewNode("root")
//	a := root.Add("a")
//	a.Add("leaf")
func (n *Node[L]) Add(label L) *Node[L] {
	child := &Node[L]{Label: label}
	n.Children = append(n.Children, child)
	return child
}

// IsLeaf reports whether the node has no children.
func (n *Node[L]) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree wraps an optional root. A tree with a nil root is empty.
type Tree[L any] struct {
	Root *Node[L]
}

// New returns a tree rooted at root (which may be nil).
func New[L any](root *Node[L]) *Tree[L] {
	return &Tree[L]{Root: root}
}

// IsEmpty reports whether the tree has no nodes.
func (t *Tree[L]) IsEmpty() bool {
	return t == nil || t.Root == nil
}

// Len returns the number of nodes.
func (t *Tree[L]) Len() int {
	count := 0
	t.PreOrder(func(*Node[L], int) bool {
		count++
		return true
	})
	return count
}

// Height returns the number of nodes on the longest root-to-leaf path,
// zero for an empty tree.
func (t *Tree[L]) Height() int {
	height := 0
	t.PreOrder(func(_ *Node[L], depth int) bool {
		height = max(height, depth)
		return true
	})
	return height
}

// PreOrder visits nodes depth-first, parents before children. depth is
// one for the root. Returning false from fn stops the walk.
func (t *Tree[L]) PreOrder(fn func(n *Node[L], depth int) bool) {
	if t.IsEmpty() {
		return
	}
	type frame struct {
		n     *Node[L]
		depth int
	}
	// Explicit stack: generated trees can be far deeper than goroutine
	// stacks comfortably recurse.
	stack := []frame{{t.Root, 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.n, f.depth) {
			return
		}
		for i := len(f.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.n.Children[i], f.depth + 1})
		}
	}
}

// LevelOrder visits nodes breadth-first, left to right within a level.
// Returning false from fn stops the walk.
func (t *Tree[L]) LevelOrder(fn func(n *Node[L]) bool) {
	if t.IsEmpty() {
		return
	}
	queue := []*Node[L]{t.Root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if !fn(n) {
			return
		}
		queue = append(queue, n.Children...)
	}
}
