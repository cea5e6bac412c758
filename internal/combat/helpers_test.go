package combat

import (
	"sync"
	"time"
)

// scriptedDice replays fixed draws. Exhausted queues fall back to 0 for
// Intn and 0.99 for Float64, which never dodges and never crits.
type scriptedDice struct {
	ints   []int
	floats []float64
}

func (d *scriptedDice) Intn(n int) int {
	if len(d.ints) == 0 {
		return 0
	}
	v := d.ints[0]
	d.ints = d.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func (d *scriptedDice) Float64() float64 {
	if len(d.floats) == 0 {
		return 0.99
	}
	v := d.floats[0]
	d.floats = d.floats[1:]
	return v
}

// fakeClock fires every wait immediately and records what was asked for.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waits   []time.Duration
	onAfter func(n int)
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	n := len(c.waits)
	hook := c.onAfter
	now := c.now
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

// duelSpec is a fighter with no personal space, 1m reach and 0.5m steps.
func duelSpec(id string, team Team, x float64) Spec {
	return Spec{
		ID:          id,
		Name:        id,
		Team:        team,
		Position:    Vec3{X: x},
		MaxHealth:   200,
		MoveBudget:  0.5,
		AttackRange: 1,
	}
}

func sword(base float64) *AttackProfile {
	return &AttackProfile{Weapon: "sword", BaseDamage: base, Timings: DefaultTimings()}
}

// eventRecorder collects emitted events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) ofKind(k EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
