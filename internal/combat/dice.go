package combat

import (
	"math/rand"
	"sync"
	"time"
)

// Dice is the randomness source for initiative, intent and damage rolls.
type Dice interface {
	// Intn returns a uniform integer in [0,n).
	Intn(n int) int
	// Float64 returns a uniform float in [0,1).
	Float64() float64
}

// NewDice returns a seeded source. Seed 0 is remapped to 1 so a zero config
// value still yields a reproducible sequence.
func NewDice(seed int64) Dice {
	if seed == 0 {
		seed = 1
	}
	return &lockedDice{r: rand.New(rand.NewSource(seed))}
}

// lockedDice guards a *rand.Rand, which is not safe for concurrent use.
type lockedDice struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (d *lockedDice) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r.Intn(n)
}

func (d *lockedDice) Float64() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r.Float64()
}

// Clock abstracts the host's wall clock so the Wait step can be driven
// from tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock uses the time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
