package tuple

import "math/big"

// Request is one sampling request: Count tuples of Size seeds each.
type Request struct {
	Size  int
	Count int
}

// Capacity returns C(n, k), the exact number of k-combinations of n items.
// It is 1 for k == 0 and 0 when k is negative or larger than n.
func Capacity(n, k int) *big.Int {
	if k < 0 || k > n {
		return new(big.Int)
	}
	return new(big.Int).Binomial(int64(n), int64(k))
}

// CheckFeasible validates req against n seeds and returns the combination
// capacity. It must run before any enumeration.
func CheckFeasible(n int, req Request) (*big.Int, error) {
	if req.Count < 0 {
		return nil, ErrInvalidCount
	}
	if n == 0 {
		if req.Count > 0 {
			return nil, ErrEmptyInput
		}
		return new(big.Int), nil
	}
	if req.Size < 1 || req.Size > n {
		return nil, &SizeError{Size: req.Size, Seeds: n}
	}

	capacity := Capacity(n, req.Size)
	if capacity.Cmp(big.NewInt(int64(req.Count))) < 0 {
		return nil, &InfeasibleError{Requested: req.Count, Capacity: capacity}
	}
	return capacity, nil
}
