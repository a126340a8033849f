// Package bitvec provides a packed, append-only bit vector.
//
// Bits are stored LSB-first in 64-bit words. The vector is the storage
// layer for rank/select, the range min-max tree and both succinct tree
// representations, so it exposes its words directly for popcount-based
// scans.
package bitvec

import (
	"fmt"
	"strings"
)

// WordBits is the number of bits per storage word.
const WordBits = 64

// BitVec is a growable sequence of bits.
// Bits past Len() in the last word are always zero.
type BitVec struct {
	words []uint64
	n     uint64
}

// New returns a zeroed vector of n bits.
func New(n uint64) *BitVec {
	return &BitVec{
		words: make([]uint64, wordsFor(n)),
		n:     n,
	}
}

// FromBools builds a vector from individual bits.
func FromBools(bits ...bool) *BitVec {
	v := &BitVec{words: make([]uint64, 0, wordsFor(uint64(len(bits))))}
	for _, b := range bits {
		v.Push(b)
	}
	return v
}

// FromWords builds a vector of n bits backed by a copy of words.
// Stray bits beyond n are cleared so that Equal stays exact.
func FromWords(words []uint64, n uint64) (*BitVec, error) {
	if uint64(len(words)) != wordsFor(n) {
		return nil, fmt.Errorf("bitvec: %d words cannot hold exactly %d bits", len(words), n)
	}
	v := &BitVec{words: append([]uint64(nil), words...), n: n}
	v.clearTail()
	return v, nil
}

// Parse reads a bit string. '1' and '(' are set bits, '0' and ')' are
// clear bits, whitespace and underscores are ignored.
func Parse(s string) (*BitVec, error) {
	v := &BitVec{}
	for i, r := range s {
		switch r {
		case '1', '(':
			v.Push(true)
		case '0', ')':
			v.Push(false)
		case ' ', '\t', '\n', '\r', '_':
		default:
			return nil, fmt.Errorf("bitvec: invalid character %q at offset %d", r, i)
		}
	}
	return v, nil
}

func wordsFor(n uint64) uint64 {
	return (n + WordBits - 1) / WordBits
}

// Len returns the number of bits.
func (v *BitVec) Len() uint64 {
	return v.n
}

// Words exposes the backing words. Callers must not modify them.
func (v *BitVec) Words() []uint64 {
	return v.words
}

// Push appends a bit.
func (v *BitVec) Push(b bool) {
	if v.n%WordBits == 0 {
		v.words = append(v.words, 0)
	}
	if b {
		v.words[v.n/WordBits] |= 1 << (v.n % WordBits)
	}
	v.n++
}

// Append appends every bit of other.
func (v *BitVec) Append(other *BitVec) {
	for i := uint64(0); i < other.n; i++ {
		v.Push(other.Get(i))
	}
}

// Get returns bit i. It panics if i is out of range.
func (v *BitVec) Get(i uint64) bool {
	if i >= v.n {
		panic(fmt.Sprintf("bitvec: index %d out of range [0, %d)", i, v.n))
	}
	return v.words[i/WordBits]&(1<<(i%WordBits)) != 0
}

// Set assigns bit i. It panics if i is out of range.
func (v *BitVec) Set(i uint64, b bool) {
	if i >= v.n {
		panic(fmt.Sprintf("bitvec: index %d out of range [0, %d)", i, v.n))
	}
	mask := uint64(1) << (i % WordBits)
	if b {
		v.words[i/WordBits] |= mask
	} else {
		v.words[i/WordBits] &^= mask
	}
}

// Equal reports whether both vectors hold the same bits.
func (v *BitVec) Equal(other *BitVec) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.n != other.n {
		return false
	}
	for i := range v.words {
		if v.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (v *BitVec) Clone() *BitVec {
	return &BitVec{words: append([]uint64(nil), v.words...), n: v.n}
}

// String renders the vector as a 0/1 string.
func (v *BitVec) String() string {
	return v.render('1', '0')
}

// Parens renders the vector as a parenthesis string.
func (v *BitVec) Parens() string {
	return v.render('(', ')')
}

func (v *BitVec) render(one, zero byte) string {
	var sb strings.Builder
	sb.Grow(int(v.n))
	for i := uint64(0); i < v.n; i++ {
		if v.Get(i) {
			sb.WriteByte(one)
		} else {
			sb.WriteByte(zero)
		}
	}
	return sb.String()
}

func (v *BitVec) clearTail() {
	if rem := v.n % WordBits; rem != 0 {
		v.words[len(v.words)-1] &= (1 << rem) - 1
	}
}
