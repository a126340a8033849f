// Package minmax implements the range min-max tree over a parentheses
// sequence (Cordova and Navarro, 2016).
//
// A set bit is an opening parenthesis (+1) and a clear bit a closing one
// (-1). The excess at position i is the sum over [0, i]. The tree cuts the
// bits into fixed-size blocks and keeps, in a complete binary heap over the
// blocks, the total excess of every node together with the minimum and
// maximum prefix excess inside it. Forward and backward excess searches use
// those ranges to skip whole subtrees, which gives FindClose, FindOpen and
// Enclose in logarithmic time plus one block scan.
package minmax

import (
	"fmt"
	"math"

	"github.com/shinji-kodama/succinct/internal/bitvec"
	"github.com/shinji-kodama/succinct/internal/model"
)

// DefaultBlockSize is the block size used when none is configured.
const DefaultBlockSize = 1024

// node summarizes a run of bits. Empty padding nodes have bits == 0 and
// an inverted [min, max] range so that no search ever enters them.
type node struct {
	excess int64
	min    int64
	max    int64
	bits   uint64
}

func emptyNode() node {
	return node{min: math.MaxInt64, max: math.MinInt64}
}

func (n node) contains(target int64) bool {
	return n.bits > 0 && target >= n.min && target <= n.max
}

func combine(l, r node) node {
	if r.bits == 0 {
		return l
	}
	if l.bits == 0 {
		return r
	}
	return node{
		excess: l.excess + r.excess,
		min:    min(l.min, l.excess+r.min),
		max:    max(l.max, l.excess+r.max),
		bits:   l.bits + r.bits,
	}
}

// MinMax is an immutable range min-max tree.
type MinMax struct {
	bits      *bitvec.BitVec
	blockSize uint64
	leaves    uint64 // leaf slots, a power of two
	heap      []node
}

// New builds the tree over bits with the given block size.
func New(bits *bitvec.BitVec, blockSize uint64) (*MinMax, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("minmax: block size must be positive")
	}
	n := bits.Len()
	blocks := (n + blockSize - 1) / blockSize

	leaves := uint64(1)
	for leaves < blocks {
		leaves <<= 1
	}

	m := &MinMax{
		bits:      bits,
		blockSize: blockSize,
		leaves:    leaves,
		heap:      make([]node, 2*leaves-1),
	}
	for i := range m.heap {
		m.heap[i] = emptyNode()
	}

	for b := uint64(0); b < blocks; b++ {
		start := b * blockSize
		end := min(start+blockSize, n)

		var excess int64
		summary := emptyNode()
		for j := start; j < end; j++ {
			excess += m.step(j)
			summary.min = min(summary.min, excess)
			summary.max = max(summary.max, excess)
		}
		summary.excess = excess
		summary.bits = end - start
		m.heap[m.leaf(b)] = summary
	}

	for i := int(leaves) - 2; i >= 0; i-- {
		m.heap[i] = combine(m.heap[2*i+1], m.heap[2*i+2])
	}
	return m, nil
}

// Bits returns the indexed sequence.
func (m *MinMax) Bits() *bitvec.BitVec {
	return m.bits
}

// BlockSize returns the number of bits per leaf block.
func (m *MinMax) BlockSize() uint64 {
	return m.blockSize
}

func (m *MinMax) step(i uint64) int64 {
	if m.bits.Get(i) {
		return 1
	}
	return -1
}

func (m *MinMax) leaf(block uint64) int {
	return int(m.leaves - 1 + block)
}

func (m *MinMax) isLeaf(n int) bool {
	return uint64(n) >= m.leaves-1
}

// Excess returns (#open - #close) over [0, i].
func (m *MinMax) Excess(i uint64) (int64, error) {
	if i >= m.bits.Len() {
		return 0, fmt.Errorf("excess at %d: %w", i, model.ErrNotANode)
	}
	b := i / m.blockSize

	var excess int64
	for n := m.leaf(b); n > 0; n = (n - 1) / 2 {
		if n%2 == 0 {
			// Right child: everything under the left sibling comes first.
			excess += m.heap[n-1].excess
		}
	}
	for j := b * m.blockSize; j <= i; j++ {
		excess += m.step(j)
	}
	return excess, nil
}

// FwdSearch returns the smallest j > i with excess(j) = excess(i) + d.
func (m *MinMax) FwdSearch(i uint64, d int64) (uint64, error) {
	n := m.bits.Len()
	if i >= n {
		return 0, fmt.Errorf("forward search from %d: %w", i, model.ErrNotANode)
	}
	b := i / m.blockSize
	end := min((b+1)*m.blockSize, n)

	// cur is excess(j) - excess(i) for the last scanned j.
	var cur int64
	for j := i + 1; j < end; j++ {
		cur += m.step(j)
		if cur == d {
			return j, nil
		}
	}

	for v := m.leaf(b); v > 0; v = (v - 1) / 2 {
		if v%2 == 1 {
			sib := m.heap[v+1]
			if sib.contains(d - cur) {
				return m.descendFwd(v+1, d-cur)
			}
			cur += sib.excess
		}
	}
	return 0, fmt.Errorf("forward search from %d for %+d: %w", i, d, model.ErrNoMatch)
}

// descendFwd finds the first position under v whose prefix excess,
// relative to the start of v, equals target. v must contain target.
func (m *MinMax) descendFwd(v int, target int64) (uint64, error) {
	for !m.isLeaf(v) {
		l := 2*v + 1
		if m.heap[l].contains(target) {
			v = l
		} else {
			target -= m.heap[l].excess
			v = l + 1
		}
	}
	start := (uint64(v) - (m.leaves - 1)) * m.blockSize
	var cur int64
	for j := start; j < start+m.heap[v].bits; j++ {
		cur += m.step(j)
		if cur == target {
			return j, nil
		}
	}
	return 0, model.ErrNoMatch
}

// BwdSearch returns the largest j < i with excess(j) = excess(i) + d.
// j may be -1, the virtual position before the sequence with excess 0.
func (m *MinMax) BwdSearch(i uint64, d int64) (int64, error) {
	if i >= m.bits.Len() {
		return 0, fmt.Errorf("backward search from %d: %w", i, model.ErrNotANode)
	}
	b := i / m.blockSize
	start := b * m.blockSize

	// cur is excess(j) - excess(i) for the current candidate j.
	var cur int64
	for j := i; j > start; j-- {
		cur -= m.step(j)
		if cur == d {
			return int64(j - 1), nil
		}
	}
	// Step over the first bit of the block: the candidate is now the last
	// position of whatever lies to the left (or -1).
	cur -= m.step(start)

	for v := m.leaf(b); v > 0; v = (v - 1) / 2 {
		if v%2 == 0 {
			sib := m.heap[v-1]
			// Prefix excess inside sib that lands on the target.
			target := d - cur + sib.excess
			if sib.contains(target) {
				j, err := m.descendBwd(v-1, target)
				return int64(j), err
			}
			cur -= sib.excess
		}
	}
	if cur == d {
		return -1, nil
	}
	return 0, fmt.Errorf("backward search from %d for %+d: %w", i, d, model.ErrNoMatch)
}

// descendBwd finds the last position under v whose prefix excess,
// relative to the start of v, equals target. v must contain target.
func (m *MinMax) descendBwd(v int, target int64) (uint64, error) {
	for !m.isLeaf(v) {
		l, r := 2*v+1, 2*v+2
		if m.heap[r].contains(target - m.heap[l].excess) {
			target -= m.heap[l].excess
			v = r
		} else {
			v = l
		}
	}
	start := (uint64(v) - (m.leaves - 1)) * m.blockSize
	var (
		cur   int64
		found = false
		last  uint64
	)
	for j := start; j < start+m.heap[v].bits; j++ {
		cur += m.step(j)
		if cur == target {
			found, last = true, j
		}
	}
	if !found {
		return 0, model.ErrNoMatch
	}
	return last, nil
}

// FindClose returns the closing parenthesis matching the opening one at i.
func (m *MinMax) FindClose(i uint64) (uint64, error) {
	if i >= m.bits.Len() || !m.bits.Get(i) {
		return 0, fmt.Errorf("find close at %d: %w", i, model.ErrNotANode)
	}
	return m.FwdSearch(i, -1)
}

// FindOpen returns the opening parenthesis matching the closing one at i.
func (m *MinMax) FindOpen(i uint64) (uint64, error) {
	if i >= m.bits.Len() || m.bits.Get(i) {
		return 0, fmt.Errorf("find open at %d: %w", i, model.ErrNotANode)
	}
	j, err := m.BwdSearch(i, 0)
	if err != nil {
		return 0, err
	}
	return uint64(j + 1), nil
}

// Enclose returns the opening parenthesis of the tightest pair that
// strictly contains the opening parenthesis at i.
func (m *MinMax) Enclose(i uint64) (uint64, error) {
	if i >= m.bits.Len() || !m.bits.Get(i) {
		return 0, fmt.Errorf("enclose at %d: %w", i, model.ErrNotANode)
	}
	j, err := m.BwdSearch(i, -2)
	if err != nil {
		return 0, err
	}
	return uint64(j + 1), nil
}
