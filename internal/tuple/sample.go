package tuple

import (
	"math/big"
	"math/rand/v2"
	"time"
)

// Rand is the randomness a Sampler needs. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	Shuffle(n int, swap func(i, j int))
}

// Sampler draws tuples from a combination set using two independent sources:
// one picks which combinations are kept, the other orders the seeds inside
// each kept tuple. A Sampler is not safe for concurrent use.
type Sampler struct {
	selection Rand
	order     Rand
}

// NewSampler builds a Sampler from explicit sources. Tests pass seeded
// sources here to get reproducible output.
func NewSampler(selection, order Rand) *Sampler {
	return &Sampler{selection: selection, order: order}
}

// NewSeededSampler derives both sources from seed as two distinct PCG
// streams. The same seed always yields the same tuples.
func NewSeededSampler(seed uint64) *Sampler {
	return NewSampler(
		rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15)),
		rand.New(rand.NewPCG(seed, 0xbf58476d1ce4e5b9)),
	)
}

// NewTimeSeededSampler returns a Sampler seeded from the wall clock. Its output
// is not reproducible.
func NewTimeSeededSampler() *Sampler {
	return NewSeededSampler(uint64(time.Now().UnixNano()))
}

// Sample shuffles combos in place, keeps the first m and then shuffles the
// seed order of each kept tuple independently. The returned tuples share
// storage with combos.
func (s *Sampler) Sample(combos []Tuple, m int) ([]Tuple, error) {
	if m < 0 {
		return nil, ErrInvalidCount
	}
	if m > len(combos) {
		return nil, &InfeasibleError{Requested: m, Capacity: big.NewInt(int64(len(combos)))}
	}

	s.selection.Shuffle(len(combos), func(i, j int) {
		combos[i], combos[j] = combos[j], combos[i]
	})

	picked := combos[:m:m]
	for _, t := range picked {
		s.order.Shuffle(len(t), func(i, j int) {
			t[i], t[j] = t[j], t[i]
		})
	}
	return picked, nil
}
