// Package gen produces random trees for the gen command, benchmarks and
// property tests.
package gen

import (
	"fmt"
	"math/rand/v2"

	"github.com/shinji-kodama/succinct/internal/bitvec"
	"github.com/shinji-kodama/succinct/internal/succinct"
	"github.com/shinji-kodama/succinct/internal/tree"
)

// maxAttempts bounds RandomBits. A random walk of n steps stays positive
// with probability of order 1/sqrt(n), so this is ample for any n that
// fits in memory.
const maxAttempts = 1 << 20

// RandomBits draws n fair random parentheses, closes whatever excess is
// left and repeats until the result is a valid tree sequence. n below 1
// is treated as 1.
func RandomBits(r *rand.Rand, n int) (*bitvec.BitVec, error) {
	n = max(n, 1)
	for range maxAttempts {
		bits := bitvec.New(0)
		var excess int
		for range n {
			b := r.IntN(2) == 1
			bits.Push(b)
			if b {
				excess++
			} else {
				excess--
			}
		}
		for ; excess < 0; excess++ {
			bits.Push(true)
		}
		for ; excess > 0; excess-- {
			bits.Push(false)
		}
		if succinct.IsValid(bits) {
			return bits, nil
		}
	}
	return nil, fmt.Errorf("gen: no valid sequence of %d bits after %d attempts", n, maxAttempts)
}

// RandomTree returns a random recursive tree with exactly nodes nodes:
// node k is attached under a uniformly chosen earlier node. Labels are
// "n0" for the root, "n1", "n2", ... in creation order.
func RandomTree(r *rand.Rand, nodes int) *tree.Tree[string] {
	if nodes <= 0 {
		return tree.New[string](nil)
	}
	all := make([]*tree.Node[string], 0, nodes)
	all = append(all, tree.NewNode("n0"))
	for k := 1; k < nodes; k++ {
		parent := all[r.IntN(len(all))]
		all = append(all, parent.Add(fmt.Sprintf("n%d", k)))
	}
	return tree.New(all[0])
}

// NewRand returns a deterministic source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
