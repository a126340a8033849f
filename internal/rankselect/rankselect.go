// Package rankselect answers rank and select queries over a bit vector.
//
// The directory samples the cumulative popcount at the start of every
// superblock (a fixed number of 64-bit words). Rank adds the popcount of
// the words inside the superblock; select binary searches the samples and
// then scans words, so both run in time proportional to the superblock size.
package rankselect

import (
	"math"
	"math/bits"
	"sort"

	"github.com/shinji-kodama/succinct/internal/bitvec"
)

// RankSelect is an immutable rank/select directory over a bit vector.
type RankSelect struct {
	bits           *bitvec.BitVec
	superblockSize int      // words per superblock
	samples        []uint64 // ones before each superblock
	ones           uint64
}

// SuperblockSize returns the sampling rate used for a vector of n bits:
// ceil(log2(n)^2 / 64) words, at least one.
func SuperblockSize(n uint64) int {
	if n < 2 {
		return 1
	}
	lg := math.Log2(float64(n))
	size := int(math.Ceil(lg * lg / bitvec.WordBits))
	if size < 1 {
		return 1
	}
	return size
}

// New builds a directory with the given superblock size in words.
// Sizes below one are raised to one.
func New(b *bitvec.BitVec, superblockSize int) *RankSelect {
	if superblockSize < 1 {
		superblockSize = 1
	}
	words := b.Words()
	rs := &RankSelect{
		bits:           b,
		superblockSize: superblockSize,
		samples:        make([]uint64, 0, len(words)/superblockSize+1),
	}

	var total uint64
	for i, w := range words {
		if i%superblockSize == 0 {
			rs.samples = append(rs.samples, total)
		}
		total += uint64(bits.OnesCount64(w))
	}
	rs.ones = total
	return rs
}

// NewDefault builds a directory with SuperblockSize(b.Len()).
func NewDefault(b *bitvec.BitVec) *RankSelect {
	return New(b, SuperblockSize(b.Len()))
}

// Bits returns the indexed vector.
func (rs *RankSelect) Bits() *bitvec.BitVec {
	return rs.bits
}

// Len returns the number of indexed bits.
func (rs *RankSelect) Len() uint64 {
	return rs.bits.Len()
}

// Ones returns the total number of set bits.
func (rs *RankSelect) Ones() uint64 {
	return rs.ones
}

// Zeros returns the total number of clear bits.
func (rs *RankSelect) Zeros() uint64 {
	return rs.bits.Len() - rs.ones
}

// Rank1 returns the number of set bits in [0, i].
// ok is false when i is out of range.
func (rs *RankSelect) Rank1(i uint64) (rank uint64, ok bool) {
	if i >= rs.bits.Len() {
		return 0, false
	}
	words := rs.bits.Words()
	wi := int(i / bitvec.WordBits)
	sb := wi / rs.superblockSize

	rank = rs.samples[sb]
	for w := sb * rs.superblockSize; w < wi; w++ {
		rank += uint64(bits.OnesCount64(words[w]))
	}
	off := i % bitvec.WordBits
	mask := uint64(math.MaxUint64)
	if off < bitvec.WordBits-1 {
		mask = (uint64(1) << (off + 1)) - 1
	}
	rank += uint64(bits.OnesCount64(words[wi] & mask))
	return rank, true
}

// Rank0 returns the number of clear bits in [0, i].
func (rs *RankSelect) Rank0(i uint64) (uint64, bool) {
	r, ok := rs.Rank1(i)
	if !ok {
		return 0, false
	}
	return i + 1 - r, true
}

// Select1 returns the position of the k-th set bit, counting from one.
func (rs *RankSelect) Select1(k uint64) (uint64, bool) {
	if k == 0 || k > rs.ones {
		return 0, false
	}
	return rs.selectBit(k, true), true
}

// Select0 returns the position of the k-th clear bit, counting from one.
func (rs *RankSelect) Select0(k uint64) (uint64, bool) {
	if k == 0 || k > rs.Zeros() {
		return 0, false
	}
	return rs.selectBit(k, false), true
}

// selectBit assumes 1 <= k <= count of the requested bit value.
func (rs *RankSelect) selectBit(k uint64, one bool) uint64 {
	// before returns the number of matching bits ahead of superblock sb.
	before := func(sb int) uint64 {
		if one {
			return rs.samples[sb]
		}
		return uint64(sb*rs.superblockSize*bitvec.WordBits) - rs.samples[sb]
	}

	// Last superblock with fewer than k matches before it.
	sb := sort.Search(len(rs.samples), func(j int) bool {
		return before(j) >= k
	}) - 1

	remaining := k - before(sb)
	words := rs.bits.Words()
	for w := sb * rs.superblockSize; w < len(words); w++ {
		word := words[w]
		if !one {
			word = ^word
			if w == len(words)-1 {
				if rem := rs.bits.Len() % bitvec.WordBits; rem != 0 {
					word &= (uint64(1) << rem) - 1
				}
			}
		}
		c := uint64(bits.OnesCount64(word))
		if c >= remaining {
			return uint64(w)*bitvec.WordBits + selectInWord(word, remaining)
		}
		remaining -= c
	}
	panic("rankselect: select beyond directory")
}

// selectInWord returns the offset of the k-th set bit of w (k >= 1).
func selectInWord(w uint64, k uint64) uint64 {
	for i := uint64(1); i < k; i++ {
		w &= w - 1
	}
	return uint64(bits.TrailingZeros64(w))
}
