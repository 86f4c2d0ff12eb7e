// Package tuple builds randomized query tuples from a seed list.
//
// Generate is the entry point: it checks that the request can be satisfied,
// enumerates every combination of seed positions and samples the requested
// number of them. The package does no logging, no network access and holds no
// state between calls.
package tuple

import (
	"io"
	"strings"

	"github.com/FranksOps/seedcorpus/internal/seed"
)

// Tuple is an ordered group of seeds submitted together as one query.
type Tuple []seed.Seed

// String joins the canonical seeds with single spaces.
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, s := range t {
		parts[i] = string(s)
	}
	return strings.TrimRight(strings.Join(parts, " "), " \t")
}

// Terms returns the seeds without their wrapping quotes.
func (t Tuple) Terms() []string {
	out := make([]string, len(t))
	for i, s := range t {
		out[i] = s.Term()
	}
	return out
}

// Generate samples req.Count tuples of req.Size seeds. The feasibility check
// runs first; nothing is enumerated for a request that cannot be met. A nil
// sampler means a time-seeded one.
func Generate(seeds seed.List, req Request, s *Sampler) ([]Tuple, error) {
	if _, err := CheckFeasible(len(seeds), req); err != nil {
		return nil, err
	}
	if req.Count == 0 {
		return []Tuple{}, nil
	}
	if s == nil {
		s = NewTimeSeededSampler()
	}
	return s.Sample(EnumerateSeeds(seeds, req.Size), req.Count)
}

// LoadSeeds reads and normalizes seeds from r. Read failures are IOErrors.
func LoadSeeds(r io.Reader) (seed.List, error) {
	seeds, err := seed.Read(r)
	if err != nil {
		return nil, &IOError{Op: "read seeds", Err: err}
	}
	return seeds, nil
}

// FromReader loads seeds from r and then runs Generate.
func FromReader(r io.Reader, req Request, s *Sampler) ([]Tuple, error) {
	seeds, err := LoadSeeds(r)
	if err != nil {
		return nil, err
	}
	return Generate(seeds, req, s)
}
