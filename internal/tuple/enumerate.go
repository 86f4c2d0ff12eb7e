package tuple

import (
	"slices"

	"github.com/FranksOps/seedcorpus/internal/seed"
)

// preallocLimit bounds the up-front capacity reserved for the result.
const preallocLimit = 1 << 16

// Enumerate returns every k-combination of the indices 0..n-1, each in
// ascending order. k == 0 yields a single empty combination; k outside
// [0, n] yields none.
//
// Partial selections that can no longer reach length k are pruned, so the
// work done is proportional to C(n, k)·k.
func Enumerate(n, k int) [][]int {
	if k < 0 || k > n {
		return nil
	}

	size := preallocLimit
	if c := Capacity(n, k); c.IsInt64() && c.Int64() < preallocLimit {
		size = int(c.Int64())
	}
	out := make([][]int, 0, size)
	buf := make([]int, k)

	var walk func(start, end, index int)
	walk = func(start, end, index int) {
		if index == k {
			out = append(out, slices.Clone(buf))
			return
		}
		for i := start; i <= end && end-i+1 >= k-index; i++ {
			buf[index] = i
			walk(i+1, end, index+1)
		}
	}
	walk(0, n-1, 0)

	return out
}

// EnumerateSeeds maps every k-combination of positions in seeds to a Tuple.
// Seeds with identical text at different positions are distinct items.
func EnumerateSeeds(seeds seed.List, k int) []Tuple {
	combos := Enumerate(len(seeds), k)
	out := make([]Tuple, len(combos))
	for i, idx := range combos {
		t := make(Tuple, len(idx))
		for j, p := range idx {
			t[j] = seeds[p]
		}
		out[i] = t
	}
	return out
}
