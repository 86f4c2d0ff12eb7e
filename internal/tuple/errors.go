package tuple

import (
	"errors"
	"fmt"
	"math/big"
)

// Error kinds. Match with errors.Is; the typed errors below carry details.
var (
	ErrEmptyInput       = errors.New("tuple: no seeds after normalization")
	ErrInvalidTupleSize = errors.New("tuple: invalid tuple size")
	ErrInvalidCount     = errors.New("tuple: invalid sample count")
	ErrInfeasible       = errors.New("tuple: sample count exceeds combination capacity")
	ErrIO               = errors.New("tuple: i/o failure")
)

// SizeError reports a tuple size outside [1, Seeds].
type SizeError struct {
	Size  int
	Seeds int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("tuple: size %d out of range [1, %d]", e.Size, e.Seeds)
}

func (e *SizeError) Unwrap() error { return ErrInvalidTupleSize }

// InfeasibleError reports a sample count larger than the number of distinct
// combinations that exist.
type InfeasibleError struct {
	Requested int
	Capacity  *big.Int
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("tuple: requested %d tuples but only %s combinations exist", e.Requested, e.Capacity)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }

// IOError wraps a failure reading seeds or writing tuples. It matches both
// ErrIO and the underlying error.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("tuple: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }
