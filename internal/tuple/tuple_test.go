package tuple

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/seedcorpus/internal/seed"
)

func seededSampler(a, b uint64) *Sampler {
	return NewSampler(rand.New(rand.NewPCG(a, 1)), rand.New(rand.NewPCG(b, 2)))
}

// identity never moves anything.
type identity struct{}

func (identity) Shuffle(int, func(i, j int)) {}

// reverser reverses the sequence it is asked to shuffle.
type reverser struct{ calls int }

func (r *reverser) Shuffle(n int, swap func(i, j int)) {
	r.calls++
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func TestCapacity(t *testing.T) {
	cases := []struct {
		n, k int
		want string
	}{
		{3, 2, "3"},
		{10, 4, "210"},
		{5, 0, "1"},
		{0, 0, "1"},
		{2, 3, "0"},
		{4, -1, "0"},
		{100, 50, "100891344545564193334812497256"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Capacity(tc.n, tc.k).String(), "C(%d,%d)", tc.n, tc.k)
	}
}

func TestCheckFeasible(t *testing.T) {
	t.Run("boundary", func(t *testing.T) {
		for n := 1; n <= 9; n++ {
			for k := 1; k <= n; k++ {
				c := int(Capacity(n, k).Int64())

				got, err := CheckFeasible(n, Request{Size: k, Count: c})
				require.NoError(t, err)
				assert.Equal(t, int64(c), got.Int64())

				_, err = CheckFeasible(n, Request{Size: k, Count: c + 1})
				var inf *InfeasibleError
				require.ErrorAs(t, err, &inf)
				assert.ErrorIs(t, err, ErrInfeasible)
				assert.Equal(t, c+1, inf.Requested)
				assert.Equal(t, int64(c), inf.Capacity.Int64())
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := CheckFeasible(0, Request{Size: 1, Count: 1})
		assert.ErrorIs(t, err, ErrEmptyInput)

		_, err = CheckFeasible(0, Request{Size: 2, Count: 0})
		assert.NoError(t, err)
	})

	t.Run("size out of range", func(t *testing.T) {
		for _, size := range []int{0, -1, 3} {
			_, err := CheckFeasible(2, Request{Size: size, Count: 1})
			var se *SizeError
			require.ErrorAs(t, err, &se)
			assert.ErrorIs(t, err, ErrInvalidTupleSize)
			assert.Equal(t, 2, se.Seeds)
		}
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := CheckFeasible(3, Request{Size: 1, Count: -1})
		assert.ErrorIs(t, err, ErrInvalidCount)
	})

	t.Run("capacity beyond int64", func(t *testing.T) {
		got, err := CheckFeasible(200, Request{Size: 100, Count: 5})
		require.NoError(t, err)
		assert.False(t, got.IsInt64())
	})
}

func TestEnumerate_Properties(t *testing.T) {
	for n := 0; n <= 8; n++ {
		for k := 0; k <= n; k++ {
			combos := Enumerate(n, k)
			require.Len(t, combos, int(Capacity(n, k).Int64()), "n=%d k=%d", n, k)

			seen := make(map[string]bool, len(combos))
			for _, c := range combos {
				require.Len(t, c, k)
				for i := 1; i < len(c); i++ {
					require.Less(t, c[i-1], c[i], "indices must strictly increase")
				}
				for _, idx := range c {
					require.GreaterOrEqual(t, idx, 0)
					require.Less(t, idx, n)
				}
				key := fmt.Sprint(c)
				require.False(t, seen[key], "duplicate combination %v", c)
				seen[key] = true
			}
		}
	}
}

func TestEnumerate_Order(t *testing.T) {
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {1, 2}}, Enumerate(3, 2))
	assert.Equal(t, [][]int{{}}, Enumerate(3, 0))
	assert.Nil(t, Enumerate(2, 3))
}

func TestSampler_TwoStages(t *testing.T) {
	combos := []Tuple{{"a", "b"}, {"a", "c"}, {"b", "c"}}

	sel := &reverser{}
	s := NewSampler(sel, identity{})
	got, err := s.Sample(combos, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sel.calls)
	assert.Equal(t, []Tuple{{"b", "c"}, {"a", "c"}}, got)

	combos = []Tuple{{"a", "b"}, {"a", "c"}, {"b", "c"}}
	ord := &reverser{}
	s = NewSampler(identity{}, ord)
	got, err = s.Sample(combos, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, ord.calls, "one order shuffle per picked tuple")
	assert.Equal(t, []Tuple{{"b", "a"}, {"c", "a"}}, got)
}

func TestSampler_Errors(t *testing.T) {
	s := seededSampler(1, 2)

	_, err := s.Sample([]Tuple{{"a"}}, 2)
	var inf *InfeasibleError
	require.ErrorAs(t, err, &inf)
	assert.Equal(t, int64(1), inf.Capacity.Int64())

	_, err = s.Sample(nil, -1)
	assert.ErrorIs(t, err, ErrInvalidCount)

	got, err := s.Sample(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerate_ScenarioA(t *testing.T) {
	seeds := seed.List{"cat", "dog", "bird"}
	got, err := Generate(seeds, Request{Size: 2, Count: 3}, seededSampler(7, 11))
	require.NoError(t, err)
	require.Len(t, got, 3)

	var keys []string
	for _, tp := range got {
		terms := tp.Terms()
		sort.Strings(terms)
		keys = append(keys, strings.Join(terms, "+"))
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"bird+cat", "bird+dog", "cat+dog"}, keys)
}

func TestGenerate_ScenarioB(t *testing.T) {
	_, err := Generate(seed.List{"a", "b"}, Request{Size: 3, Count: 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidTupleSize)
}

func TestGenerate_ScenarioC(t *testing.T) {
	seeds := seed.FromLines([]string{"x", "x", "x", "x", "x"})
	assert.Len(t, EnumerateSeeds(seeds, 2), 10)

	got, err := Generate(seeds, Request{Size: 2, Count: 1}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x x", got[0].String())
}

func TestGenerate_ScenarioE(t *testing.T) {
	seeds := seed.FromLines(strings.Split("a b c d e f g h i j", " "))
	require.Len(t, seeds, 10)

	_, err := Generate(seeds, Request{Size: 4, Count: 211}, nil)
	var inf *InfeasibleError
	require.ErrorAs(t, err, &inf)
	assert.Equal(t, 211, inf.Requested)
	assert.Equal(t, "210", inf.Capacity.String())
	assert.Contains(t, err.Error(), "210")
}

func TestGenerate_SubsetRoundTrip(t *testing.T) {
	seeds := seed.FromLines([]string{"alpha", "beta", "gamma  ray", "delta", "epsilon", "zeta"})
	for k := 1; k <= len(seeds); k++ {
		c := int(Capacity(len(seeds), k).Int64())
		got, err := Generate(seeds, Request{Size: k, Count: c}, seededSampler(uint64(k), 99))
		require.NoError(t, err)
		require.Len(t, got, c)

		for _, tp := range got {
			require.Len(t, tp, k)
			seen := map[seed.Seed]bool{}
			for _, s := range tp {
				require.True(t, slices.Contains(seeds, s), "%q is not a seed", s)
				require.False(t, seen[s], "seed %q repeated", s)
				seen[s] = true
			}
		}
	}
}

func TestGenerate_ZeroCount(t *testing.T) {
	got, err := Generate(nil, Request{Size: 0, Count: 0}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Generate(seed.List{"a", "b"}, Request{Size: 1, Count: 0}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerate_Reproducible(t *testing.T) {
	seeds := seed.FromLines([]string{"a", "b", "c", "d", "e"})
	first, err := Generate(seeds, Request{Size: 3, Count: 4}, seededSampler(5, 6))
	require.NoError(t, err)
	second, err := Generate(seeds, Request{Size: 3, Count: 4}, seededSampler(5, 6))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	third, err := Generate(seeds, Request{Size: 3, Count: 4}, NewSeededSampler(42))
	require.NoError(t, err)
	fourth, err := Generate(seeds, Request{Size: 3, Count: 4}, NewSeededSampler(42))
	require.NoError(t, err)
	assert.Equal(t, third, fourth)
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("device error") }

func TestFromReader(t *testing.T) {
	got, err := FromReader(strings.NewReader("cat\ndog\n\nbird\n"), Request{Size: 3, Count: 1}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.ElementsMatch(t, Tuple{"cat", "dog", "bird"}, got[0])

	_, err = FromReader(brokenReader{}, Request{Size: 1, Count: 1}, nil)
	assert.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "device error")

	_, err = FromReader(strings.NewReader("\n  \n"), Request{Size: 1, Count: 1}, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTuple_String(t *testing.T) {
	assert.Equal(t, `cat "big bird"`, Tuple{"cat", `"big bird"`}.String())
	assert.Equal(t, "", Tuple{}.String())
}
