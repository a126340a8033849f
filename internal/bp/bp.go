package bp

import (
	"errors"
	"fmt"
	"io"

	"github.com/shinji-kodama/succinct/internal/bitvec"
	"github.com/shinji-kodama/succinct/internal/minmax"
	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/rankselect"
	"github.com/shinji-kodama/succinct/internal/succinct"
	"github.com/shinji-kodama/succinct/internal/tree"
)

// Tree is an immutable balanced-parentheses tree with labels of type L.
type Tree[L comparable] struct {
	rs     *rankselect.RankSelect
	mm     *minmax.MinMax
	labels []L
}

var _ succinct.Tree[string] = (*Tree[string])(nil)

type options struct {
	blockSize uint64
}

// Option configures how a tree is indexed.
type Option func(*options)

// WithBlockSize sets the block size of the range min-max tree.
// Zero keeps minmax.DefaultBlockSize.
func WithBlockSize(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.blockSize = n
		}
	}
}

// FromBits builds an unlabelled tree over a parentheses sequence.
func FromBits[L comparable](bits *bitvec.BitVec, opts ...Option) (*Tree[L], error) {
	return build[L](bits, nil, opts)
}

func build[L comparable](bits *bitvec.BitVec, labels []L, opts []Option) (*Tree[L], error) {
	if !succinct.IsValid(bits) {
		return nil, fmt.Errorf("bp: %w", model.ErrInvalidBits)
	}
	o := options{blockSize: minmax.DefaultBlockSize}
	for _, opt := range opts {
		opt(&o)
	}
	mm, err := minmax.New(bits, o.blockSize)
	if err != nil {
		return nil, err
	}
	t := &Tree[L]{
		rs: rankselect.NewDefault(bits),
		mm: mm,
	}
	if len(labels) > 0 {
		if uint64(len(labels)) != t.Nodes() {
			return nil, fmt.Errorf("bp: %d labels for %d nodes: %w", len(labels), t.Nodes(), model.ErrInvalidBits)
		}
		t.labels = labels
	}
	return t, nil
}

// FromTree encodes a pointer tree. Labels are kept in pre-order.
func FromTree[L comparable](src *tree.Tree[L], opts ...Option) (*Tree[L], error) {
	if src.IsEmpty() {
		return nil, fmt.Errorf("bp: %w", model.ErrEmptyTree)
	}
	bits := bitvec.New(0)
	var labels []L

	// Each stack entry either opens a node or closes one.
	type frame struct {
		n     *tree.Node[L]
		close bool
	}
	stack := []frame{{n: src.Root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.close {
			bits.Push(false)
			continue
		}
		bits.Push(true)
		labels = append(labels, f.n.Label)
		stack = append(stack, frame{n: f.n, close: true})
		for i := len(f.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{n: f.n.Children[i]})
		}
	}
	return build(bits, labels, opts)
}

// Load reads a tree written by Save.
func Load[L comparable](r io.Reader, opts ...Option) (*Tree[L], error) {
	d, err := succinct.DecodeKind[L](r, model.KindBP)
	if err != nil {
		return nil, err
	}
	t, err := build(d.Bits, d.Labels, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecode, err)
	}
	return t, nil
}

// Save writes the tree in the saved-tree format.
func (t *Tree[L]) Save(w io.Writer) error {
	return succinct.Encode(w, model.KindBP, t.Bits(), t.labels)
}

// Equal reports whether both trees have the same shape. Labels are not
// compared.
func (t *Tree[L]) Equal(other *Tree[L]) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Bits().Equal(other.Bits())
}

func (t *Tree[L]) String() string {
	return fmt.Sprintf("BPTree\n  { bits: %s }", t.Bits())
}

// Kind returns model.KindBP.
// Kind returns model.KindBP.
func (t *Tree[L]) Kind() model.TreeKind { return model.KindBP }

// Root returns 0.
func (t *Tree[L]) Root() uint64 { return 0 }

// Len returns the number of parentheses.
func (t *Tree[L]) Len() uint64 { return t.rs.Len() }

// Nodes returns the number of nodes, half the number of parentheses.
func (t *Tree[L]) Nodes() uint64 { return t.rs.Ones() }

// Bits returns the parentheses sequence.
func (t *Tree[L]) Bits() *bitvec.BitVec { return t.rs.Bits() }

// Labels returns the pre-order labels, or nil for an unlabelled tree.
func (t *Tree[L]) Labels() []L { return t.labels }

func (t *Tree[L]) check(i uint64) error {
	if i >= t.Len() || !t.Bits().Get(i) {
		return fmt.Errorf("index %d: %w", i, model.ErrNotANode)
	}
	return nil
}

// IsLeaf reports whether node i has no children.
func (t *Tree[L]) IsLeaf(i uint64) (bool, error) {
	if err := t.check(i); err != nil {
		return false, err
	}
	return !t.Bits().Get(i + 1), nil
}

// Parent returns the node enclosing i.
func (t *Tree[L]) Parent(i uint64) (uint64, error) {
	if err := t.check(i); err != nil {
		return 0, err
	}
	if i == 0 {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrHasNoParent)
	}
	return t.mm.Enclose(i)
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
	return i + 1, nil
}

// NextSibling returns the node right after i under the same parent.
func (t *Tree[L]) NextSibling(i uint64) (uint64, error) {
	c, err := t.Close(i)
	if err != nil {
		return 0, err
	}
	if c+1 >= t.Len() || !t.Bits().Get(c+1) {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNoSibling)
	}
	return c + 1, nil
}

// Close returns the position of the closing parenthesis of node i.
func (t *Tree[L]) Close(i uint64) (uint64, error) {
	if err := t.check(i); err != nil {
		return 0, err
	}
	return t.mm.FindClose(i)
}

// children calls fn for every child of i in order until fn returns false.
func (t *Tree[L]) children(i uint64, fn func(c uint64) bool) error {
	if err := t.check(i); err != nil {
		return err
	}
	if !t.Bits().Get(i + 1) {
		return nil
	}
	c := i + 1
	for {
		if !fn(c) {
			return nil
		}
		next, err := t.NextSibling(c)
		if errors.Is(err, model.ErrNoSibling) {
			return nil
		}
		if err != nil {
			return err
		}
		c = next
	}
}

// Degree returns the number of children of i.
func (t *Tree[L]) Degree(i uint64) (uint64, error) {
	var d uint64
	err := t.children(i, func(uint64) bool {
		d++
		return true
	})
	return d, err
}

// Child returns the n-th child of i, counting from 1.
func (t *Tree[L]) Child(i uint64, n uint64) (uint64, error) {
	var (
		seen  uint64
		found uint64
		ok    bool
	)
	err := t.children(i, func(c uint64) bool {
		seen++
		if seen == n {
			found, ok = c, true
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("index %d child %d: %w", i, n, model.ErrNoSuchChild)
	}
	return found, nil
}

// LastChild returns the rightmost child of i.
func (t *Tree[L]) LastChild(i uint64) (uint64, error) {
	leaf, err := t.IsLeaf(i)
	if err != nil {
		return 0, err
	}
	if leaf {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNotAParent)
	}
	c, err := t.Close(i)
	if err != nil {
		return 0, err
	}
	// The parenthesis before i's close is the close of its last child.
	return t.mm.FindOpen(c - 1)
}

// ChildRank returns the number of siblings to the left of i. The root
// has rank 0.
func (t *Tree[L]) ChildRank(i uint64) (uint64, error) {
	if err := t.check(i); err != nil {
		return 0, err
	}
	if i == 0 {
		return 0, nil
	}
	p, err := t.Parent(i)
	if err != nil {
		return 0, err
	}
	var rank uint64
	err = t.children(p, func(c uint64) bool {
		if c == i {
			return false
		}
		rank++
		return true
	})
	return rank, err
}

// ChildLabel returns the label of node i.
func (t *Tree[L]) ChildLabel(i uint64) (L, error) {
	var zero L
	if err := t.check(i); err != nil {
		return zero, err
	}
	r, err := t.PreRank(i)
	if err != nil {
		return zero, err
	}
	if r == 0 || r > uint64(len(t.labels)) {
		return zero, fmt.Errorf("index %d: %w", i, model.ErrNoLabel)
	}
	return t.labels[r-1], nil
}

// LabeledChild returns the first child of i labelled label.
func (t *Tree[L]) LabeledChild(i uint64, label L) (uint64, error) {
	var (
		found uint64
		ok    bool
		lerr  error
	)
	err := t.children(i, func(c uint64) bool {
		l, err := t.ChildLabel(c)
		if err != nil {
			lerr = err
			return false
		}
		if l == label {
			found, ok = c, true
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if lerr != nil {
		return 0, lerr
	}
	if !ok {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNoSuchChild)
	}
	return found, nil
}

// PreRank returns the number of opening parentheses in [0, i]. For a node
// this is its 1-based pre-order number.
func (t *Tree[L]) PreRank(i uint64) (uint64, error) {
	r, ok := t.rs.Rank1(i)
	if !ok {
		return 0, fmt.Errorf("index %d: %w", i, model.ErrNotANode)
	}
	return r, nil
}

// PreSelect returns the node with the given 1-based pre-order number.
func (t *Tree[L]) PreSelect(rank uint64) (uint64, error) {
	i, ok := t.rs.Select1(rank)
	if !ok {
		return 0, fmt.Errorf("pre-order rank %d: %w", rank, model.ErrNotANode)
	}
	return i, nil
}

// Ancestor reports whether x is an ancestor of y. Every node is its own
// ancestor.
func (t *Tree[L]) Ancestor(x, y uint64) (bool, error) {
	if err := t.check(y); err != nil {
		return false, err
	}
	c, err := t.Close(x)
	if err != nil {
		return false, err
	}
	return x <= y && y <= c, nil
}

// Depth returns the number of nodes from the root to i, the root having
// depth 1.
func (t *Tree[L]) Depth(i uint64) (uint64, error) {
	if err := t.check(i); err != nil {
		return 0, err
	}
	e, err := t.mm.Excess(i)
	if err != nil {
		return 0, err
	}
	return uint64(e), nil
}

// SubtreeSize returns the number of nodes in the subtree rooted at i,
// i included.
func (t *Tree[L]) SubtreeSize(i uint64) (uint64, error) {
	c, err := t.Close(i)
	if err != nil {
		return 0, err
	}
	return (c - i + 1) / 2, nil
}
