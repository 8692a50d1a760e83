package conversation

import "math/rand/v2"

// Sampler picks uniformly from [0, n). Tests inject a deterministic one.
type Sampler interface {
	IntN(n int) int
}

type defaultSampler struct{}

func (defaultSampler) IntN(n int) int { return rand.IntN(n) }

// DefaultSampler uses the goroutine-safe global source.
var DefaultSampler Sampler = defaultSampler{}

// NewSeededSampler returns a reproducible sampler. It is not safe for concurrent use.
func NewSeededSampler(seed uint64) Sampler {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Pick returns one element of pool, or "" for an empty pool.
func Pick(s Sampler, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	if s == nil {
		s = DefaultSampler
	}
	return pool[s.IntN(len(pool))]
}
