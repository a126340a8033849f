package succinct

import (
	"errors"

	"github.com/shinji-kodama/succinct/internal/bitvec"
	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/tree"
)

// Tree is the navigation contract shared by bp.Tree and louds.Tree.
type Tree[L comparable] interface {
	// Kind names the representation.
	Kind() model.TreeKind
	// Root returns the index of the root node.
	Root() uint64
	// Len returns the number of bits of the representation.
	Len() uint64
	// Nodes returns the number of nodes.
	Nodes() uint64
	// Bits returns the underlying sequence. It must not be modified.
	Bits() *bitvec.BitVec

	IsLeaf(i uint64) (bool, error)
	Parent(i uint64) (uint64, error)
	FirstChild(i uint64) (uint64, error)
	NextSibling(i uint64) (uint64, error)
	Degree(i uint64) (uint64, error)
	// Child returns the n-th child of i, counting from 1.
	Child(i uint64, n uint64) (uint64, error)
	// ChildRank returns how many siblings precede i.
	ChildRank(i uint64) (uint64, error)
	ChildLabel(i uint64) (L, error)
	LabeledChild(i uint64, label L) (uint64, error)
}

// IsValid reports whether bits, read as parentheses, form one closed
// group: the excess stays positive until the final bit and ends at zero.
// A LOUDS sequence with its leading 1 satisfies the same condition.
func IsValid(bits *bitvec.BitVec) bool {
	n := bits.Len()
	if n == 0 {
		return false
	}
	var excess int64
	for i := uint64(0); i < n; i++ {
		if bits.Get(i) {
			excess++
		} else {
			excess--
		}
		if excess <= 0 && i != n-1 {
			return false
		}
	}
	return excess == 0
}

// ToTree rebuilds the pointer tree that t encodes. Trees built without
// labels produce zero-valued labels.
func ToTree[L comparable](t Tree[L]) (*tree.Tree[L], error) {
	root, err := label(t, t.Root())
	if err != nil {
		return nil, err
	}
	out := tree.New(tree.NewNode(root))

	type pending struct {
		index uint64
		node  *tree.Node[L]
	}
	stack := []pending{{t.Root(), out.Root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		leaf, err := t.IsLeaf(p.index)
		if err != nil {
			return nil, err
		}
		if leaf {
			continue
		}
		child, err := t.FirstChild(p.index)
		if err != nil {
			return nil, err
		}
		for {
			l, err := label(t, child)
			if err != nil {
				return nil, err
			}
			stack = append(stack, pending{child, p.node.Add(l)})

			child, err = t.NextSibling(child)
			if errors.Is(err, model.ErrNoSibling) {
				break
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func label[L comparable](t Tree[L], i uint64) (L, error) {
	l, err := t.ChildLabel(i)
	if errors.Is(err, model.ErrNoLabel) {
		var zero L
		return zero, nil
	}
	return l, err
}
