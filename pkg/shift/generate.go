package shift

import (
	"fmt"
	"math/rand/v2"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// GenerateOptions shapes a random graph from [Generate].
type GenerateOptions struct {
	Ops    int `json:"ops"`
	Allocs int `json:"allocs"`
	// EdgeProb is the probability of a constraint between any two ops.
	EdgeProb float64 `json:"edge_prob"`
	// LinkProb is the probability that an op is linked to its successor by
	// address.
	LinkProb float64 `json:"link_prob"`
	// MaxWeight bounds alloc weights, which are drawn from [1, MaxWeight].
	MaxWeight int `json:"max_weight"`
	// MaxUsers bounds the number of ops using each alloc.
	MaxUsers int    `json:"max_users"`
	Seed     uint64 `json:"seed"`
}

// DefaultGenerateOptions returns a small sparse graph shape.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Ops:       50,
		Allocs:    40,
		EdgeProb:  0.05,
		LinkProb:  0.05,
		MaxWeight: 9,
		MaxUsers:  4,
		Seed:      uint64(DefaultSeed),
	}
}

// Generate builds a random schedulable graph. Constraints always point from
// a lower to a higher address and links join consecutive addresses, so the
// address order is a valid schedule. The same options give the same graph.
func Generate(opts GenerateOptions) (*Graph, error) {
	switch {
	case opts.Ops < 0 || opts.Allocs < 0:
		return nil, errors.New(errors.ErrCodeInvalidSetting, "op and alloc counts must be non-negative")
	case opts.Ops == 0 && opts.Allocs > 0:
		return nil, errors.New(errors.ErrCodeInvalidSetting, "allocs need at least one op")
	case opts.EdgeProb < 0 || opts.EdgeProb > 1 || opts.LinkProb < 0 || opts.LinkProb > 1:
		return nil, errors.New(errors.ErrCodeInvalidSetting, "probabilities must lie in [0, 1]")
	}
	if opts.MaxWeight < 1 {
		opts.MaxWeight = 1
	}
	if opts.MaxUsers < 1 {
		opts.MaxUsers = 1
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	g := NewGraph()
	for i := range opts.Ops {
		g.InsertOp(fmt.Sprintf("op%d", i))
	}
	for a := range opts.Ops {
		for b := a + 1; b < opts.Ops; b++ {
			if rng.Float64() < opts.EdgeProb {
				g.insertConstraint(a, b)
			}
		}
	}
	for a := 0; a+1 < opts.Ops; a++ {
		if rng.Float64() < opts.LinkProb {
			if err := g.InsertLink(a, a+1); err != nil {
				return nil, err
			}
		}
	}
	for range opts.Allocs {
		alloc := g.InsertAlloc(NewWeight(float64(1 + rng.IntN(opts.MaxWeight))))
		users := make([]OpAddress, 1+rng.IntN(min(opts.MaxUsers, opts.Ops)))
		for i := range users {
			users[i] = rng.IntN(opts.Ops)
		}
		if err := g.InsertOpAlloc(users, alloc); err != nil {
			return nil, err
		}
	}
	return g, nil
}
