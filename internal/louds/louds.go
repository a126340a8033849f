package louds

import (
	"fmt"
	"io"

	"github.com/shinji-kodama/succinct/internal/bitvec"
	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/rankselect"
	"github.com/shinji-kodama/succinct/internal/succinct"
	"github.com/shinji-kodama/succinct/internal/tree"
)

// Tree is an immutable LOUDS tree with labels of type L.
type Tree[L comparable] struct {
	rs     *rankselect.RankSelect
	labels []L
}

var _ succinct.Tree[string] = (*Tree[string])(nil)

// FromBits builds an unlabelled tree over a LOUDS sequence.
func FromBits[L comparable](bits *bitvec.BitVec) (*Tree[L], error) {
	return build[L](bits, nil)
}

func build[L comparable](bits *bitvec.BitVec, labels []L) (*Tree[L], error) {
	if !succinct.IsValid(bits) {
		return nil, fmt.Errorf("louds: %w", model.ErrInvalidBits)
	}
	t := &Tree[L]{rs: rankselect.NewDefault(bits)}
	if len(labels) > 0 {
		if uint64(len(labels)) != t.Nodes() {
			return nil, fmt.Errorf("louds: %d labels for %d nodes: %w", len(labels), t.Nodes(), model.ErrInvalidBits)
		}
		t.labels = labels
	}
	return t, nil
}

// FromTree encodes a pointer tree. Labels are kept in level order.
func FromTree[L comparable](src *tree.Tree[L]) (*Tree[L], error) {
	if src.IsEmpty() {
		return nil, fmt.Errorf("louds: %w", model.ErrEmptyTree)
	}
	bits := bitvec.New(0)
	bits.Push(true)
	var labels []L
	src.LevelOrder(func(n *tree.Node[L]) bool {
		for range n.Children {
			bits.Push(true)
		}
		bits.Push(false)
		labels = append(labels, n.Label)
		return true
	})
	return build(bits, labels)
}

// Load reads a tree written by Save.
func Load[L comparable](r io.Reader) (*Tree[L], error) {
	d, err := succinct.DecodeKind[L](r, model.KindLOUDS)
	if err != nil {
		return nil, err
	}
	t, err := build(d.Bits, d.Labels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecode, err)
	}
	return t, nil
}

// Save writes the tree in the saved-tree format.
func (t *Tree[L]) Save(w io.Writer) error {
	return succinct.Encode(w, model.KindLOUDS, t.Bits(), t.labels)
}

// Equal reports whether both trees have the same shape. Labels are not
// compared.
func (t *Tree[L]) Equal(other *Tree[L]) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Bits().Equal(other.Bits())
}

// String renders the bit sequence for debugging.
func (t *Tree[L]) String() string {
	return fmt.Sprintf("LOUDSTree\n  { bits: %s }", t.Bits())
}

// Kind returns model.KindLOUDS.
func (t *Tree[L]) Kind() model.TreeKind { return model.KindLOUDS }

// Root returns 1.
func (t *Tree[L]) Root() uint64 { return 1 }

// Len returns the number of bits, including the leading 1 of the
// virtual super-root.
func (t *Tree[L]) Len() uint64 { return t.rs.Len() }

// Nodes returns the number of nodes, one per 0 bit.
func (t *Tree[L]) Nodes() uint64 { return t.rs.Zeros() }

// Bits returns the degree sequence.
func (t *Tree[L]) Bits() *bitvec.BitVec { return t.rs.Bits() }

// Labels returns the level-order labels, or nil for an unlabelled tree.
func (t *Tree[L]) Labels() []L { return t.labels }

// check returns the level-order number (1-based) of node i.
func (t *Tree[L]) check(i uint64) (uint64, error) {
	if i == 0 || i >= t.Len() || (i > 1 && t.Bits().Get(i-1)) {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNotANode)
	}
	if i == 1 {
		return 1, nil
	}
	zeros, _ := t.rs.Rank0(i - 1)
	return zeros + 1, nil
}

// pointer returns the position of the 1 bit that points at the node with
// level-order number m. m must be at least 2.
func (t *Tree[L]) pointer(m uint64) uint64 {
	p, _ := t.rs.Select1(m)
	return p
}

// start returns the position of the node with level-order number m.
func (t *Tree[L]) start(m uint64) uint64 {
	if m == 1 {
		return 1
	}
	z, _ := t.rs.Select0(m - 1)
	return z + 1
}

// owner returns the start of the node whose description contains the
// pointer bit at p.
func (t *Tree[L]) owner(p uint64) uint64 {
	zeros, _ := t.rs.Rank0(p)
	return t.start(zeros + 1)
}

// IsLeaf reports whether node i has no children.
func (t *Tree[L]) IsLeaf(i uint64) (bool, error) {
	if _, err := t.check(i); err != nil {
		return false, err
	}
	return !t.Bits().Get(i), nil
}

// Parent returns the parent of node i.
func (t *Tree[L]) Parent(i uint64) (uint64, error) {
	m, err := t.check(i)
	if err != nil {
		return 0, err
	}
	if m == 1 {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrHasNoParent)
	}
	return t.owner(t.pointer(m)), nil
}

// FirstChild returns the leftmost child of i.
func (t *Tree[L]) FirstChild(i uint64) (uint64, error) {
	leaf, err := t.IsLeaf(i)
	if err != nil {
		return 0, err
	}
	if leaf {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNotAParent)
	}
	return t.Child(i, 1)
}

// NextSibling returns the node right after i under the same parent.
func (t *Tree[L]) NextSibling(i uint64) (uint64, error) {
	m, err := t.check(i)
	if err != nil {
		return 0, err
	}
	if m == 1 {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNoSibling)
	}
	p := t.pointer(m)
	if p+1 >= t.Len() || !t.Bits().Get(p+1) {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNoSibling)
	}
	return t.start(m + 1), nil
}

// Degree returns the number of children of i.
func (t *Tree[L]) Degree(i uint64) (uint64, error) {
	m, err := t.check(i)
	if err != nil {
		return 0, err
	}
	// The description of node m ends at the m-th 0.
	end, _ := t.rs.Select0(m)
	return end - i, nil
}

// Child returns the n-th child of i, counting from 1.
func (t *Tree[L]) Child(i uint64, n uint64) (uint64, error) {
	d, err := t.Degree(i)
	if err != nil {
		return 0, err
	}
	if n == 0 || n > d {
		return 0, fmt.Errorf("index %d child %d: %w", i, n, model.ErrNoSuchChild)
	}
	c, _ := t.rs.Rank1(i + n - 1)
	return t.start(c), nil
}

// ChildRank returns the number of siblings to the left of i. The root
// has rank 0.
func (t *Tree[L]) ChildRank(i uint64) (uint64, error) {
	m, err := t.check(i)
	if err != nil {
		return 0, err
	}
	if m == 1 {
		return 0, nil
	}
	p := t.pointer(m)
	return p - t.owner(p), nil
}

// ChildLabel returns the label of node i.
func (t *Tree[L]) ChildLabel(i uint64) (L, error) {
	var zero L
	m, err := t.check(i)
	if err != nil {
		return zero, err
	}
	if m > uint64(len(t.labels)) {
		return zero, fmt.Errorf("index %d: %w", i, model.ErrNoLabel)
	}
	return t.labels[m-1], nil
}

// LabeledChild returns the first child of i labelled label. Children of
// one node have consecutive level-order numbers, so their labels are a
// contiguous run.
func (t *Tree[L]) LabeledChild(i uint64, label L) (uint64, error) {
	d, err := t.Degree(i)
	if err != nil {
		return 0, err
	}
	if d > 0 && len(t.labels) == 0 {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNoLabel)
	}
	if d > 0 {
		first, _ := t.rs.Rank1(i)
		for k := range d {
			if t.labels[first+k-1] == label {
				return t.start(first + k), nil
			}
		}
	}
	return 0, fmt.Errorf("index %d: %w", i, model.ErrNoSuchChild)
}
