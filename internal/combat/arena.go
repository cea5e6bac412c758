package combat

import "fmt"

// Arena is the registry of combatants owned by a Scheduler. Combatants stay
// registered after death so the presentation layer can keep showing them;
// only Remove tears them down. Arena is not safe for concurrent use.
type Arena struct {
	combatants []*Combatant // registration order
	byID       map[string]*Combatant
	seq        uint64
}

// NewArena creates an empty arena
func NewArena() *Arena {
	return &Arena{byID: make(map[string]*Combatant)}
}

// Spawn validates s and registers a new combatant. An empty s.ID gets a
// sequential one.
func (a *Arena) Spawn(s Spec) (*Combatant, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	id := s.ID
	if id == "" {
		for {
			a.seq++
			id = fmt.Sprintf("kaiju-%d", a.seq)
			if _, taken := a.byID[id]; !taken {
				break
			}
		}
	}
	if _, taken := a.byID[id]; taken {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	c := newCombatant(id, s)
	a.combatants = append(a.combatants, c)
	a.byID[id] = c
	return c, nil
}

// Remove tears down the combatant with the given id. Other combatants that
// cached it as target drop the reference.
func (a *Arena) Remove(id string) (*Combatant, bool) {
	c, ok := a.byID[id]
	if !ok {
		return nil, false
	}
	delete(a.byID, id)
	for i, other := range a.combatants {
		if other == c {
			a.combatants = append(a.combatants[:i], a.combatants[i+1:]...)
			break
		}
	}
	for _, other := range a.combatants {
		if other.Target == c {
			other.Target = nil
		}
	}
	return c, true
}

// Get returns the combatant with the given id.
func (a *Arena) Get(id string) (*Combatant, bool) {
	c, ok := a.byID[id]
	return c, ok
}

// All returns every registered combatant, dead or alive, in registration order.
func (a *Arena) All() []*Combatant {
	out := make([]*Combatant, len(a.combatants))
	copy(out, a.combatants)
	return out
}

// Discover returns the living combatants in registration order.
func (a *Arena) Discover() []*Combatant {
	out := make([]*Combatant, 0, len(a.combatants))
	for _, c := range a.combatants {
		if !c.IsDead() {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered combatants.
func (a *Arena) Len() int { return len(a.combatants) }
