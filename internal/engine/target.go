package engine

import (
	"math/rand"
	"sync"
	"time"
)

const (
	// Reveal delay bounds, milliseconds. The delay is uniform over
	// [DelayMinMs, DelayMaxMs).
	DelayMinMs = 1500
	DelayMaxMs = 10000

	gridSide = 10
)

// TargetGenerator produces the (delay, targetCell) pair for a round. The cell
// is the product of two independent uniform draws from [1,10], so it is
// deliberately non-uniform over [1,100]: composite numbers are reachable by
// more factor pairs than primes. That skew is part of the game mechanic and
// must not be "fixed" to a uniform picker.
type TargetGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTargetGenerator() *TargetGenerator {
	return NewTargetGeneratorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewTargetGeneratorWithSource allows a seeded source in tests.
func NewTargetGeneratorWithSource(src rand.Source) *TargetGenerator {
	return &TargetGenerator{rnd: rand.New(src)}
}

func (g *TargetGenerator) Next() (delayMs, targetCell int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delayMs = DelayMinMs + g.rnd.Intn(DelayMaxMs-DelayMinMs)
	x := g.rnd.Intn(gridSide) + 1
	y := g.rnd.Intn(gridSide) + 1
	return delayMs, x * y
}
