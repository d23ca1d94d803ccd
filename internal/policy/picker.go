package policy

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Picker makes random selections from a seedable source. It is safe for
// concurrent use.
type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker returns a Picker seeded with seed. A zero seed uses the clock.
func NewPicker(seed uint64) *Picker {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Picker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Sample returns up to n distinct ids chosen uniformly from ids. The input
// slice is not modified.
func (p *Picker) Sample(ids []int64, n int) []int64 {
	if n <= 0 || len(ids) == 0 {
		return nil
	}
	pool := append([]int64(nil), ids...)
	n = min(n, len(pool))

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range n {
		j := i + p.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
