package combat

import (
	"sync"
	"time"
)

// Timings are the durations of each action as played by the presentation
// layer. Zero fields fall back to the scheduler defaults.
type Timings struct {
	Idle   time.Duration `json:"idle" yaml:"idle"`
	Walk   time.Duration `json:"walk" yaml:"walk"`
	Attack time.Duration `json:"attack" yaml:"attack"`
	Dodge  time.Duration `json:"dodge" yaml:"dodge"`
	Hit    time.Duration `json:"hit" yaml:"hit"`
	Death  time.Duration `json:"death" yaml:"death"`
}

// DefaultTimings approximates the clip lengths of the stock fighter.
func DefaultTimings() Timings {
	return Timings{
		Idle:   50 * time.Millisecond,
		Walk:   800 * time.Millisecond,
		Attack: 900 * time.Millisecond,
		Dodge:  700 * time.Millisecond,
		Hit:    500 * time.Millisecond,
		Death:  1500 * time.Millisecond,
	}
}

// Merge fills zero fields of t from base.
func (t Timings) Merge(base Timings) Timings {
	pick := func(v, b time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return b
	}
	return Timings{
		Idle:   pick(t.Idle, base.Idle),
		Walk:   pick(t.Walk, base.Walk),
		Attack: pick(t.Attack, base.Attack),
		Dodge:  pick(t.Dodge, base.Dodge),
		Hit:    pick(t.Hit, base.Hit),
		Death:  pick(t.Death, base.Death),
	}
}

// AttackProfile is what the equipment system reports for a combatant's
// current weapon.
type AttackProfile struct {
	Weapon     string  `json:"weapon" yaml:"weapon"`
	BaseDamage float64 `json:"baseDamage" yaml:"baseDamage"`
	Range      float64 `json:"range,omitempty" yaml:"range"` // overrides AttackRange when > 0
	Label      string  `json:"label,omitempty" yaml:"label"`
	Timings    Timings `json:"timings" yaml:"timings"`
}

// ProfileProvider looks up the attack profile of a combatant.
type ProfileProvider interface {
	AttackProfile(c *Combatant) (AttackProfile, bool)
}

// ProfileFunc adapts a function to ProfileProvider.
type ProfileFunc func(c *Combatant) (AttackProfile, bool)

func (f ProfileFunc) AttackProfile(c *Combatant) (AttackProfile, bool) { return f(c) }

// Armory is a ProfileProvider backed by a table keyed by combatant ID.
// It is safe for concurrent use.
type Armory struct {
	mu       sync.RWMutex
	profiles map[string]AttackProfile
}

// NewArmory creates an empty armory
func NewArmory() *Armory {
	return &Armory{profiles: make(map[string]AttackProfile)}
}

// Equip assigns p to the combatant with the given ID.
func (a *Armory) Equip(id string, p AttackProfile) {
	a.mu.Lock()
	a.profiles[id] = p
	a.mu.Unlock()
}

// Unequip removes any profile held for id.
func (a *Armory) Unequip(id string) {
	a.mu.Lock()
	delete(a.profiles, id)
	a.mu.Unlock()
}

// Lookup returns the profile for id.
func (a *Armory) Lookup(id string) (AttackProfile, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.profiles[id]
	return p, ok
}

func (a *Armory) AttackProfile(c *Combatant) (AttackProfile, bool) {
	if c == nil {
		return AttackProfile{}, false
	}
	return a.Lookup(c.ID)
}
